package webhook

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Stage identifies how far an inbound delivery made it through processing.
type Stage int

const (
	StageReceived Stage = iota
	StageParsed
	StageVerified
	StageDispatched
)

func (s Stage) String() string {
	switch s {
	case StageReceived:
		return "received"
	case StageParsed:
		return "parsed"
	case StageVerified:
		return "verified"
	case StageDispatched:
		return "dispatched"
	default:
		return "unknown"
	}
}

// Handler consumes a verified event. Returning an error (or panicking)
// surfaces as ErrHandlerFailed; it never aborts the receiving loop.
type Handler func(Event) error

// Handlers holds one callback per event kind. Nil fields mean the
// application does not care about that kind; the delivery still counts as
// dispatched.
type Handlers struct {
	LicenseCreated     Handler
	LicenseUpdated     Handler
	LicenseDeleted     Handler
	LicenseRenewed     Handler
	LicenseExpired     Handler
	MachineActivated   Handler
	MachineDeactivated Handler
}

// Processor takes a raw delivery through parse, verify and dispatch.
// It is stateless apart from configuration, so one Processor is safe to
// share across concurrent requests.
type Processor struct {
	secret   string
	skip     bool
	handlers Handlers
	log      zerolog.Logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithSkipVerification disables signature checking. Every delivery then
// passes the VERIFIED stage unconditionally. This is for local development
// against unsigned fixtures only and is logged loudly.
func WithSkipVerification() ProcessorOption {
	return func(p *Processor) { p.skip = true }
}

// WithLogger routes processor logging through the given logger.
func WithLogger(log zerolog.Logger) ProcessorOption {
	return func(p *Processor) { p.log = log }
}

// NewProcessor builds a Processor verifying against secret and dispatching
// to handlers.
func NewProcessor(secret string, handlers Handlers, opts ...ProcessorOption) *Processor {
	p := &Processor{
		secret:   secret,
		handlers: handlers,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.skip {
		p.log.Warn().Msg("webhook signature verification is DISABLED; all deliveries will be accepted")
	}
	return p
}

// Result reports the outcome of processing one delivery. Stage is the last
// stage completed; on success it is StageDispatched.
type Result struct {
	Stage Stage
	Event Event
}

// Process runs the raw body and signature header value through the
// pipeline: received -> parsed -> verified -> dispatched. A failure at any
// stage stops processing, and the event is never handed to application
// code. The body must be the exact bytes received on the wire.
func (p *Processor) Process(body []byte, signature string) (Result, error) {
	res := Result{Stage: StageReceived}

	if len(body) == 0 {
		return res, fmt.Errorf("%w: empty body", ErrInvalidInput)
	}

	event, err := parseEvent(body)
	if err != nil {
		p.log.Debug().Err(err).Msg("webhook rejected at parse stage")
		return res, err
	}
	res.Stage = StageParsed
	res.Event = event

	if p.skip {
		p.log.Debug().
			Str("event", event.Kind.String()).
			Msg("signature verification skipped by configuration")
	} else if err := Verify(body, signature, p.secret); err != nil {
		p.log.Warn().
			Str("event", event.Kind.String()).
			Str("delivery_id", event.ID).
			Err(err).
			Msg("webhook rejected at verify stage")
		return res, err
	}
	res.Stage = StageVerified

	if err := p.dispatch(event); err != nil {
		return res, err
	}
	res.Stage = StageDispatched

	p.log.Info().
		Str("event", event.Kind.String()).
		Str("delivery_id", event.ID).
		Msg("webhook dispatched")
	return res, nil
}

// dispatch routes the event to its handler. The switch is exhaustive over
// EventKind; EventUnknown cannot reach here because parsing rejects it.
func (p *Processor) dispatch(event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrHandlerFailed, r)
		}
	}()

	var h Handler
	switch event.Kind {
	case EventLicenseCreated:
		h = p.handlers.LicenseCreated
	case EventLicenseUpdated:
		h = p.handlers.LicenseUpdated
	case EventLicenseDeleted:
		h = p.handlers.LicenseDeleted
	case EventLicenseRenewed:
		h = p.handlers.LicenseRenewed
	case EventLicenseExpired:
		h = p.handlers.LicenseExpired
	case EventMachineActivated:
		h = p.handlers.MachineActivated
	case EventMachineDeactivated:
		h = p.handlers.MachineDeactivated
	case EventUnknown:
		return fmt.Errorf("%w: unknown event reached dispatch", ErrInvalidFormat)
	default:
		return fmt.Errorf("%w: no dispatch arm for %v", ErrInvalidFormat, event.Kind)
	}

	if h == nil {
		return nil
	}
	if herr := h(event); herr != nil {
		return fmt.Errorf("%w: %v", ErrHandlerFailed, herr)
	}
	return nil
}
