// Package models holds the rows the hookd store persists.
package models

// Delivery is one webhook delivery received from the license server.
// DeliveryID is the server-assigned identifier used for deduplication;
// ID is our own row key.
type Delivery struct {
	ID          string `json:"id"`
	DeliveryID  string `json:"delivery_id"`
	Event       string `json:"event"`
	Status      string `json:"status"` // processed, failed, rejected
	Error       string `json:"error,omitempty"`
	Payload     string `json:"payload,omitempty"`
	ReceivedAt  int64  `json:"received_at"`
	ProcessedAt int64  `json:"processed_at,omitempty"`
}

// Delivery statuses.
const (
	DeliveryProcessed = "processed"
	DeliveryFailed    = "failed"
	DeliveryRejected  = "rejected"
)

// DailyStat is one day's event count, aggregated from deliveries.
type DailyStat struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Event string `json:"event"`
	Count int64  `json:"count"`
}
