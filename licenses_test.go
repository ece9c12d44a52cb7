package keygate

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keygate/internal/pkg/validator"
)

func TestCreateLicense(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/licenses", r.URL.Path)

		var params CreateLicenseParams
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		assert.Equal(t, "acme", params.Owner)
		assert.Equal(t, "pro", params.Plan)

		json.NewEncoder(w).Encode(License{
			Key:         "KG-ABCD-1234-EF56",
			Owner:       params.Owner,
			Plan:        params.Plan,
			Status:      "active",
			MaxMachines: 3,
		})
	})

	lic, err := client.CreateLicense(context.Background(), CreateLicenseParams{
		Owner:       "acme",
		Plan:        "pro",
		MaxMachines: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, "KG-ABCD-1234-EF56", lic.Key)
	assert.Equal(t, "active", lic.Status)
}

func TestGetLicenseNormalizesKey(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/licenses/KG-ABCD-1234-EF56", r.URL.Path)
		json.NewEncoder(w).Encode(License{Key: "KG-ABCD-1234-EF56"})
	})

	// Lowercase with surrounding whitespace still hits the canonical path.
	_, err := client.GetLicense(context.Background(), "  kg-abcd-1234-ef56 ")
	require.NoError(t, err)
}

func TestGetLicenseRejectsBadFormat(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request should never reach the server")
	})

	_, err := client.GetLicense(context.Background(), "not-a-license-key")
	require.Error(t, err)
	assert.ErrorIs(t, err, validator.ErrInvalidKeyFormat)
}

func TestListLicensesQueryParams(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "active", q.Get("status"))
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "50", q.Get("per_page"))
		json.NewEncoder(w).Encode(LicenseList{Total: 120, Page: 2})
	})

	list, err := client.ListLicenses(context.Background(), ListLicensesParams{
		Status:  "active",
		Page:    2,
		PerPage: 50,
	})
	require.NoError(t, err)
	assert.Equal(t, 120, list.Total)
}

func TestUpdateLicense(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/v1/licenses/KG-ABCD-1234-EF56", r.URL.Path)
		json.NewEncoder(w).Encode(License{Key: "KG-ABCD-1234-EF56", Status: "suspended"})
	})

	lic, err := client.UpdateLicense(context.Background(), "KG-ABCD-1234-EF56", UpdateLicenseParams{
		Status: "suspended",
	})
	require.NoError(t, err)
	assert.Equal(t, "suspended", lic.Status)
}

func TestDeleteLicense(t *testing.T) {
	var method, path string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})

	err := client.DeleteLicense(context.Background(), "KG-ABCD-1234-EF56")
	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, method)
	assert.Equal(t, "/v1/licenses/KG-ABCD-1234-EF56", path)
}

func TestValidateLicenseUsesCache(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		json.NewEncoder(w).Encode(Validation{Valid: true, Status: "active"})
	}, WithValidationCache(time.Minute, 16))

	v1, err := client.ValidateLicense(context.Background(), "KG-ABCD-1234-EF56")
	require.NoError(t, err)
	assert.True(t, v1.Valid)

	// Second call within the TTL must not touch the server.
	v2, err := client.ValidateLicense(context.Background(), "KG-ABCD-1234-EF56")
	require.NoError(t, err)
	assert.True(t, v2.Valid)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	// Invalidation forces a fresh round trip.
	client.InvalidateValidation("kg-abcd-1234-ef56")
	_, err = client.ValidateLicense(context.Background(), "KG-ABCD-1234-EF56")
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestUpdateLicenseInvalidatesCachedValidation(t *testing.T) {
	var validateCalls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPatch {
			json.NewEncoder(w).Encode(License{Key: "KG-ABCD-1234-EF56"})
			return
		}
		atomic.AddInt32(&validateCalls, 1)
		json.NewEncoder(w).Encode(Validation{Valid: true})
	}, WithValidationCache(time.Minute, 16))

	_, err := client.ValidateLicense(context.Background(), "KG-ABCD-1234-EF56")
	require.NoError(t, err)

	_, err = client.UpdateLicense(context.Background(), "KG-ABCD-1234-EF56", UpdateLicenseParams{Status: "suspended"})
	require.NoError(t, err)

	_, err = client.ValidateLicense(context.Background(), "KG-ABCD-1234-EF56")
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&validateCalls))
}

func TestValidationCacheEviction(t *testing.T) {
	cache := newValidationCache(time.Minute, 2)

	cache.set("a", Validation{Valid: true})
	time.Sleep(2 * time.Millisecond)
	cache.set("b", Validation{Valid: true})
	time.Sleep(2 * time.Millisecond)
	cache.set("c", Validation{Valid: true})

	_, okA := cache.get("a")
	_, okB := cache.get("b")
	_, okC := cache.get("c")
	assert.False(t, okA, "oldest entry should have been evicted")
	assert.True(t, okB)
	assert.True(t, okC)

	hits, misses, size := cache.stats()
	assert.EqualValues(t, 2, hits)
	assert.EqualValues(t, 1, misses)
	assert.Equal(t, 2, size)
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "KG-ABCD****", maskKey("KG-ABCD-1234-EF56"))
	assert.Equal(t, "***", maskKey("short"))
}
