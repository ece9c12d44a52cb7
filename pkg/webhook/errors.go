package webhook

import "errors"

// Every failure mode is a typed sentinel so callers can branch with
// errors.Is. None of these are retried here: a failed delivery is terminal
// on this side, the license server redelivers on its own schedule.
var (
	// ErrInvalidInput marks a nil/empty payload, secret or signature.
	ErrInvalidInput = errors.New("webhook: invalid input")

	// ErrInvalidFormat marks a body that does not parse as an event
	// envelope, or an event name this SDK does not recognize.
	ErrInvalidFormat = errors.New("webhook: invalid payload format")

	// ErrSignatureMismatch marks a signature that does not match the one
	// recomputed from the raw body and the shared secret.
	ErrSignatureMismatch = errors.New("webhook: signature verification failed")

	// ErrHandlerFailed wraps an error (or recovered panic) from an
	// application handler, so one broken handler cannot take down the
	// receiving loop.
	ErrHandlerFailed = errors.New("webhook: event handler failed")
)
