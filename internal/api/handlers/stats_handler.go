package handlers

import (
	"net/http"
	"time"

	apierrors "keygate/internal/pkg/errors"
	"keygate/internal/platform/models"
	"keygate/internal/platform/store"
)

type StatsHandler struct {
	stats *store.StatsRepository
}

func NewStatsHandler(stats *store.StatsRepository) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// Daily returns per-event delivery counts by day. Defaults to the last
// seven days when no range is given.
func (h *StatsHandler) Daily(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	to := q.Get("to")
	if to == "" {
		to = time.Now().UTC().Format("2006-01-02")
	}
	from := q.Get("from")
	if from == "" {
		from = time.Now().UTC().AddDate(0, 0, -7).Format("2006-01-02")
	}

	for _, date := range []string{from, to} {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidFormat, "Dates must be YYYY-MM-DD", nil)
			return
		}
	}

	stats, err := h.stats.Range(from, to)
	if err != nil {
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrCodeInternal, "Failed to load stats", nil)
		return
	}
	if stats == nil {
		stats = []models.DailyStat{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"from": from, "to": to, "stats": stats})
}
