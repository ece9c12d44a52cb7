package webhook

import (
	"encoding/json"
	"fmt"
)

// EventKind enumerates the webhook events the license server delivers.
// Using a closed enum instead of raw strings keeps the dispatcher
// exhaustive: a new kind added here without a dispatch arm is a compile
// target for staticcheck, and an unknown name fails parsing up front.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventLicenseCreated
	EventLicenseUpdated
	EventLicenseDeleted
	EventLicenseRenewed
	EventLicenseExpired
	EventMachineActivated
	EventMachineDeactivated
)

var eventNames = map[EventKind]string{
	EventLicenseCreated:     "license.created",
	EventLicenseUpdated:     "license.updated",
	EventLicenseDeleted:     "license.deleted",
	EventLicenseRenewed:     "license.renewed",
	EventLicenseExpired:     "license.expired",
	EventMachineActivated:   "machine.activated",
	EventMachineDeactivated: "machine.deactivated",
}

var eventKinds = func() map[string]EventKind {
	m := make(map[string]EventKind, len(eventNames))
	for k, n := range eventNames {
		m[n] = k
	}
	return m
}()

// ParseEventKind maps a wire-format event name onto its kind. Unrecognized
// names are an ErrInvalidFormat, not a silent pass-through.
func ParseEventKind(name string) (EventKind, error) {
	if k, ok := eventKinds[name]; ok {
		return k, nil
	}
	return EventUnknown, fmt.Errorf("%w: unrecognized event %q", ErrInvalidFormat, name)
}

func (k EventKind) String() string {
	if n, ok := eventNames[k]; ok {
		return n
	}
	return "unknown"
}

// Event is a decoded webhook envelope. Data stays raw so handlers decode
// only the shape they care about.
type Event struct {
	ID        string          `json:"id"`
	Kind      EventKind       `json:"-"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// envelope is the wire shape of a delivery body.
type envelope struct {
	ID        string          `json:"id"`
	Event     string          `json:"event"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// parseEvent decodes the raw body into an Event, rejecting bodies that are
// not JSON objects or that name no recognized event.
func parseEvent(body []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if env.Event == "" {
		return Event{}, fmt.Errorf("%w: missing event field", ErrInvalidFormat)
	}

	kind, err := ParseEventKind(env.Event)
	if err != nil {
		return Event{}, err
	}

	return Event{
		ID:        env.ID,
		Kind:      kind,
		Timestamp: env.Timestamp,
		Data:      env.Data,
	}, nil
}
