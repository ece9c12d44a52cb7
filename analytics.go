package keygate

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

// UsageEvent is an application-defined usage signal tied to a license,
// for example a feature invocation or a session start.
type UsageEvent struct {
	LicenseKey  string            `json:"license_key"`
	Name        string            `json:"name"`
	Fingerprint string            `json:"fingerprint,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	OccurredAt  time.Time         `json:"occurred_at"`
}

// DailyUsage is one day's aggregated count for a single event name.
type DailyUsage struct {
	Date  string `json:"date"`
	Event string `json:"event"`
	Count int64  `json:"count"`
}

// UsageStatsParams filters GetUsageStats. Zero values mean no filter.
type UsageStatsParams struct {
	Event string
	From  time.Time
	To    time.Time
}

// TrackEvent records a usage event against the event's license. Events
// with a zero OccurredAt are stamped with the current time.
func (c *Client) TrackEvent(ctx context.Context, ev UsageEvent) error {
	key, err := c.checkKey(ev.LicenseKey)
	if err != nil {
		return err
	}
	ev.LicenseKey = key

	if ev.Name == "" {
		return &Error{Code: ErrCodeInvalidFormat, Message: "event name is required"}
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	return c.do(ctx, "POST", "/analytics/events", ev, nil)
}

// GetUsageStats returns per-day event counts for a license.
func (c *Client) GetUsageStats(ctx context.Context, key string, params UsageStatsParams) ([]DailyUsage, error) {
	key, err := c.checkKey(key)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	if params.Event != "" {
		q.Set("event", params.Event)
	}
	if !params.From.IsZero() {
		q.Set("from", strconv.FormatInt(params.From.Unix(), 10))
	}
	if !params.To.IsZero() {
		q.Set("to", strconv.FormatInt(params.To.Unix(), 10))
	}

	path := "/licenses/" + url.PathEscape(key) + "/stats"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp struct {
		Stats []DailyUsage `json:"stats"`
	}
	if err := c.do(ctx, "GET", path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Stats, nil
}
