package keygate

import (
	"errors"
	"fmt"
)

// API error codes returned by the license server.
const (
	ErrCodeInvalidKey       = "INVALID_LICENSE_KEY"
	ErrCodeInvalidFormat    = "INVALID_FORMAT"
	ErrCodeExpired          = "LICENSE_EXPIRED"
	ErrCodeNotFound         = "LICENSE_NOT_FOUND"
	ErrCodeMachineMismatch  = "MACHINE_MISMATCH"
	ErrCodeMachineLimit     = "MACHINE_LIMIT_REACHED"
	ErrCodeAlreadyActivated = "ALREADY_ACTIVATED"
	ErrCodeRateLimited      = "RATE_LIMITED"
)

// Error is a decoded API error response.
type Error struct {
	StatusCode int
	Code       string
	Message    string
	RequestID  string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("keygate: %s (%d %s)", e.Message, e.StatusCode, e.Code)
	}
	return fmt.Sprintf("keygate: %s (%d)", e.Message, e.StatusCode)
}

// apiErrorCode extracts the API error code from err, or "".
func apiErrorCode(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

// IsNotFound reports whether err is the server saying the license does not
// exist.
func IsNotFound(err error) bool {
	return apiErrorCode(err) == ErrCodeNotFound
}

// IsExpired reports whether err is the server rejecting an expired license.
func IsExpired(err error) bool {
	return apiErrorCode(err) == ErrCodeExpired
}

// IsRateLimited reports whether err is a rate-limit rejection; callers
// should back off before trying again.
func IsRateLimited(err error) bool {
	return apiErrorCode(err) == ErrCodeRateLimited
}
