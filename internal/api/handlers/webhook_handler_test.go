package handlers

import (
	"bytes"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"keygate/internal/platform/models"
	"keygate/internal/platform/store"
	"keygate/pkg/webhook"
)

const testSecret = "topsecret"

func setupHandler(t *testing.T, handlers webhook.Handlers) (*WebhookHandler, *store.DeliveryRepository) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := store.Schema(db); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	repo := store.NewDeliveryRepository(db)
	processor := webhook.NewProcessor(testSecret, handlers, webhook.WithLogger(zerolog.Nop()))
	return NewWebhookHandler(processor, repo, NewMetrics(), 0), repo
}

func deliver(h *WebhookHandler, deliveryID string, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/keygate", bytes.NewReader(body))
	req.Header.Set(HeaderDeliveryID, deliveryID)
	req.Header.Set(HeaderEvent, "license.created")
	if signature != "" {
		req.Header.Set(HeaderSignature, signature)
	}
	rr := httptest.NewRecorder()
	h.Receive(rr, req)
	return rr
}

func TestWebhookHandler_SignedDeliveryProcessed(t *testing.T) {
	var handled int
	h, repo := setupHandler(t, webhook.Handlers{
		LicenseCreated: func(ev webhook.Event) error {
			handled++
			return nil
		},
	})

	body := []byte(`{"id":"evt_1","event":"license.created","data":{"licenseKey":"KG-ABCD-1234-EF56"}}`)
	rr := deliver(h, "whd_1", body, webhook.Sign(body, testSecret))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if handled != 1 {
		t.Errorf("Expected handler to run once, ran %d times", handled)
	}

	recorded, err := repo.GetByDeliveryID("whd_1")
	if err != nil {
		t.Fatalf("Delivery not recorded: %v", err)
	}
	if recorded.Status != models.DeliveryProcessed {
		t.Errorf("Expected status processed, got %s", recorded.Status)
	}
	if recorded.Event != "license.created" {
		t.Errorf("Expected event license.created, got %s", recorded.Event)
	}
}

func TestWebhookHandler_DuplicateAcknowledgedOnce(t *testing.T) {
	var handled int
	h, _ := setupHandler(t, webhook.Handlers{
		LicenseCreated: func(ev webhook.Event) error {
			handled++
			return nil
		},
	})

	body := []byte(`{"id":"evt_2","event":"license.created","data":{}}`)
	sig := webhook.Sign(body, testSecret)

	if rr := deliver(h, "whd_dup", body, sig); rr.Code != http.StatusOK {
		t.Fatalf("First delivery failed: %d", rr.Code)
	}
	rr := deliver(h, "whd_dup", body, sig)
	if rr.Code != http.StatusOK {
		t.Fatalf("Replay should be acknowledged, got %d", rr.Code)
	}
	if handled != 1 {
		t.Errorf("Replay must not re-run the handler; ran %d times", handled)
	}
}

func TestWebhookHandler_BadSignatureRejected(t *testing.T) {
	h, repo := setupHandler(t, webhook.Handlers{
		LicenseCreated: func(ev webhook.Event) error {
			t.Error("handler must not run for a bad signature")
			return nil
		},
	})

	body := []byte(`{"id":"evt_3","event":"license.created","data":{}}`)
	rr := deliver(h, "whd_bad", body, "sha256=0000000000000000000000000000000000000000000000000000000000000000")

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", rr.Code)
	}

	recorded, err := repo.GetByDeliveryID("whd_bad")
	if err != nil {
		t.Fatalf("Rejected delivery should still be recorded: %v", err)
	}
	if recorded.Status != models.DeliveryRejected {
		t.Errorf("Expected status rejected, got %s", recorded.Status)
	}
}

func TestWebhookHandler_UnknownEventRejected(t *testing.T) {
	h, _ := setupHandler(t, webhook.Handlers{})

	body := []byte(`{"id":"evt_4","event":"license.teleported","data":{}}`)
	rr := deliver(h, "whd_unknown", body, webhook.Sign(body, testSecret))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rr.Code)
	}
}

func TestWebhookHandler_FailedDeliveryRetriable(t *testing.T) {
	var attempts int
	h, repo := setupHandler(t, webhook.Handlers{
		LicenseCreated: func(ev webhook.Event) error {
			attempts++
			if attempts == 1 {
				return webhook.ErrHandlerFailed
			}
			return nil
		},
	})

	body := []byte(`{"id":"evt_5","event":"license.created","data":{}}`)
	sig := webhook.Sign(body, testSecret)

	if rr := deliver(h, "whd_retry", body, sig); rr.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500 on handler failure, got %d", rr.Code)
	}

	// The server retries; second attempt succeeds and flips the row.
	if rr := deliver(h, "whd_retry", body, sig); rr.Code != http.StatusOK {
		t.Fatalf("Expected retry to succeed, got %d", rr.Code)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 handler attempts, got %d", attempts)
	}

	recorded, err := repo.GetByDeliveryID("whd_retry")
	if err != nil {
		t.Fatalf("GetByDeliveryID failed: %v", err)
	}
	if recorded.Status != models.DeliveryProcessed {
		t.Errorf("Expected status processed after retry, got %s", recorded.Status)
	}
}

func TestWebhookHandler_MissingDeliveryHeader(t *testing.T) {
	h, _ := setupHandler(t, webhook.Handlers{})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/keygate", bytes.NewReader([]byte(`{}`)))
	rr := httptest.NewRecorder()
	h.Receive(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 without delivery header, got %d", rr.Code)
	}
}
