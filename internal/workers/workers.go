// Package workers runs hookd's periodic maintenance: pruning old
// deliveries and rolling deliveries up into daily stats.
package workers

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"keygate/internal/platform/config"
	"keygate/internal/platform/store"
)

type Maintenance struct {
	deliveries *store.DeliveryRepository
	stats      *store.StatsRepository
	cfg        config.RetentionConfig
}

func NewMaintenance(deliveries *store.DeliveryRepository, stats *store.StatsRepository, cfg config.RetentionConfig) *Maintenance {
	return &Maintenance{deliveries: deliveries, stats: stats, cfg: cfg}
}

// Run blocks until ctx is cancelled, firing each job on its own ticker.
func (m *Maintenance) Run(ctx context.Context) {
	pruneTicker := time.NewTicker(m.cfg.PruneInterval)
	aggregateTicker := time.NewTicker(m.cfg.AggregateInterval)
	defer pruneTicker.Stop()
	defer aggregateTicker.Stop()

	// Catch up on startup so a restarted daemon does not wait a full
	// interval before its first pass.
	m.aggregate()

	for {
		select {
		case <-ctx.Done():
			return
		case <-pruneTicker.C:
			m.prune()
		case <-aggregateTicker.C:
			m.aggregate()
		}
	}
}

func (m *Maintenance) prune() {
	cutoff := time.Now().Add(-m.cfg.DeliveryTTL)
	pruned, err := m.deliveries.PruneBefore(cutoff)
	if err != nil {
		log.Error().Err(err).Msg("delivery pruning failed")
		return
	}
	if pruned > 0 {
		log.Info().Int64("pruned", pruned).Time("cutoff", cutoff).Msg("pruned old deliveries")
	}
}

// aggregate recomputes today and yesterday. Yesterday is included so
// deliveries landing just before midnight still end up in the right day.
func (m *Maintenance) aggregate() {
	now := time.Now().UTC()
	for _, day := range []string{
		now.AddDate(0, 0, -1).Format("2006-01-02"),
		now.Format("2006-01-02"),
	} {
		if err := m.stats.AggregateDay(day); err != nil {
			log.Error().Err(err).Str("date", day).Msg("daily stats aggregation failed")
		}
	}
}
