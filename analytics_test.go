package keygate

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackEvent(t *testing.T) {
	var got UsageEvent
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/analytics/events", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	})

	err := client.TrackEvent(context.Background(), UsageEvent{
		LicenseKey: "kg-abcd-1234-ef56",
		Name:       "export.pdf",
		Metadata:   map[string]string{"pages": "12"},
	})
	require.NoError(t, err)
	assert.Equal(t, "KG-ABCD-1234-EF56", got.LicenseKey)
	assert.Equal(t, "export.pdf", got.Name)
	assert.False(t, got.OccurredAt.IsZero(), "zero OccurredAt should be stamped")
}

func TestTrackEventRequiresName(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request should never reach the server")
	})

	err := client.TrackEvent(context.Background(), UsageEvent{LicenseKey: "KG-ABCD-1234-EF56"})
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, ErrCodeInvalidFormat, apiErr.Code)
}

func TestGetUsageStats(t *testing.T) {
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/licenses/KG-ABCD-1234-EF56/stats", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "export.pdf", q.Get("event"))
		assert.Equal(t, "1785542400", q.Get("from"))

		json.NewEncoder(w).Encode(map[string][]DailyUsage{
			"stats": {
				{Date: "2026-08-01", Event: "export.pdf", Count: 4},
				{Date: "2026-08-02", Event: "export.pdf", Count: 9},
			},
		})
	})

	stats, err := client.GetUsageStats(context.Background(), "KG-ABCD-1234-EF56", UsageStatsParams{
		Event: "export.pdf",
		From:  from,
	})
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.EqualValues(t, 9, stats[1].Count)
}
