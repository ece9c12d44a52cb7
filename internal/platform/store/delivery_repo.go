// Package store persists webhook deliveries and their daily aggregates.
package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"keygate/internal/platform/models"
)

type DeliveryRepository struct {
	db *sql.DB
}

func NewDeliveryRepository(db *sql.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

// Create inserts a delivery, ignoring duplicates of the same server-side
// delivery ID. It returns true when the row was actually inserted, so the
// handler can tell a fresh delivery from a replay.
func (r *DeliveryRepository) Create(d *models.Delivery) (bool, error) {
	d.ID = "del_" + uuid.New().String()
	if d.ReceivedAt == 0 {
		d.ReceivedAt = time.Now().Unix()
	}

	query := `
		INSERT INTO deliveries (id, delivery_id, event, status, error, payload, received_at, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(delivery_id) DO NOTHING
	`
	res, err := r.db.Exec(query, d.ID, d.DeliveryID, d.Event, d.Status, d.Error, d.Payload, d.ReceivedAt, d.ProcessedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *DeliveryRepository) GetByDeliveryID(deliveryID string) (*models.Delivery, error) {
	query := `
		SELECT id, delivery_id, event, status, error, payload, received_at, processed_at
		FROM deliveries WHERE delivery_id = ?
	`
	return scanDelivery(r.db.QueryRow(query, deliveryID))
}

// List returns the most recent deliveries, newest first. An empty event
// filter matches everything.
func (r *DeliveryRepository) List(event string, limit, offset int) ([]*models.Delivery, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT id, delivery_id, event, status, error, payload, received_at, processed_at
		FROM deliveries
		WHERE (? = '' OR event = ?)
		ORDER BY received_at DESC
		LIMIT ? OFFSET ?
	`
	rows, err := r.db.Query(query, event, event, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deliveries []*models.Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}

func (r *DeliveryRepository) MarkProcessed(id string) error {
	query := `UPDATE deliveries SET status = ?, processed_at = ? WHERE id = ?`
	_, err := r.db.Exec(query, models.DeliveryProcessed, time.Now().Unix(), id)
	return err
}

func (r *DeliveryRepository) MarkFailed(id, reason string) error {
	query := `UPDATE deliveries SET status = ?, error = ?, processed_at = ? WHERE id = ?`
	_, err := r.db.Exec(query, models.DeliveryFailed, reason, time.Now().Unix(), id)
	return err
}

// PruneBefore deletes deliveries received before the cutoff and returns
// how many rows went away.
func (r *DeliveryRepository) PruneBefore(cutoff time.Time) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM deliveries WHERE received_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDelivery(row rowScanner) (*models.Delivery, error) {
	var d models.Delivery
	var errMsg, payload sql.NullString
	var processedAt sql.NullInt64

	err := row.Scan(&d.ID, &d.DeliveryID, &d.Event, &d.Status, &errMsg, &payload, &d.ReceivedAt, &processedAt)
	if err != nil {
		return nil, err
	}

	d.Error = errMsg.String
	d.Payload = payload.String
	if processedAt.Valid {
		d.ProcessedAt = processedAt.Int64
	}
	return &d, nil
}
