package store

import (
	"database/sql"
	"time"

	"keygate/internal/platform/models"
)

type StatsRepository struct {
	db *sql.DB
}

func NewStatsRepository(db *sql.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// AggregateDay recomputes per-event delivery counts for one day straight
// from the deliveries table and upserts them into daily_stats.
func (r *StatsRepository) AggregateDay(date string) error {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return err
	}
	start := day.Unix()
	end := day.Add(24 * time.Hour).Unix()

	rows, err := r.db.Query(`
		SELECT event, COUNT(*)
		FROM deliveries
		WHERE received_at >= ? AND received_at < ?
		GROUP BY event
	`, start, end)
	if err != nil {
		return err
	}
	defer rows.Close()

	var stats []models.DailyStat
	for rows.Next() {
		s := models.DailyStat{Date: date}
		if err := rows.Scan(&s.Event, &s.Count); err != nil {
			return err
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, s := range stats {
		if err := r.upsert(s); err != nil {
			return err
		}
	}
	return nil
}

func (r *StatsRepository) upsert(s models.DailyStat) error {
	query := `
		INSERT INTO daily_stats (date, event, count)
		VALUES (?, ?, ?)
		ON CONFLICT(date, event) DO UPDATE SET count = excluded.count
	`
	_, err := r.db.Exec(query, s.Date, s.Event, s.Count)
	return err
}

// Range returns daily stats between two dates inclusive, oldest first.
func (r *StatsRepository) Range(from, to string) ([]models.DailyStat, error) {
	rows, err := r.db.Query(`
		SELECT date, event, count
		FROM daily_stats
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC, event ASC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []models.DailyStat
	for rows.Next() {
		var s models.DailyStat
		if err := rows.Scan(&s.Date, &s.Event, &s.Count); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Schema creates the hookd tables. cmd/migrate and the test helpers both
// run it; CREATE IF NOT EXISTS keeps it idempotent.
func Schema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS deliveries (
			id           TEXT PRIMARY KEY,
			delivery_id  TEXT NOT NULL UNIQUE,
			event        TEXT NOT NULL,
			status       TEXT NOT NULL,
			error        TEXT,
			payload      TEXT,
			received_at  INTEGER NOT NULL,
			processed_at INTEGER
		);
		CREATE INDEX IF NOT EXISTS idx_deliveries_received_at ON deliveries(received_at);
		CREATE INDEX IF NOT EXISTS idx_deliveries_event ON deliveries(event);

		CREATE TABLE IF NOT EXISTS daily_stats (
			date  TEXT NOT NULL,
			event TEXT NOT NULL,
			count INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (date, event)
		);
	`)
	return err
}
