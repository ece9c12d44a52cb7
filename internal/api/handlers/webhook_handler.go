package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	apierrors "keygate/internal/pkg/errors"
	"keygate/internal/platform/models"
	"keygate/internal/platform/store"
	"keygate/pkg/webhook"
)

// Webhook delivery headers set by the license server.
const (
	HeaderSignature  = "X-Keygate-Signature"
	HeaderDeliveryID = "X-Keygate-Delivery"
	HeaderEvent      = "X-Keygate-Event"
)

type WebhookHandler struct {
	processor    *webhook.Processor
	deliveries   *store.DeliveryRepository
	metrics      *Metrics
	maxBodyBytes int64
}

func NewWebhookHandler(processor *webhook.Processor, deliveries *store.DeliveryRepository, metrics *Metrics, maxBodyBytes int64) *WebhookHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = 1 << 20
	}
	return &WebhookHandler{
		processor:    processor,
		deliveries:   deliveries,
		metrics:      metrics,
		maxBodyBytes: maxBodyBytes,
	}
}

// Receive ingests one webhook delivery. The body is read raw before any
// JSON decoding because the signature covers the exact bytes on the wire.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	deliveryID := r.Header.Get(HeaderDeliveryID)
	if deliveryID == "" {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, "Missing "+HeaderDeliveryID+" header", nil)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, h.maxBodyBytes+1))
	if err != nil {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, "Failed to read request body", nil)
		return
	}
	if int64(len(body)) > h.maxBodyBytes {
		apierrors.WriteError(w, http.StatusRequestEntityTooLarge, apierrors.ErrCodeInvalidInput, "Request body too large", nil)
		return
	}

	// Retried deliveries that already succeeded or were rejected are
	// acknowledged without reprocessing, so the server stops resending.
	// Failed ones run again: the handler bug may be fixed by now.
	existing, _ := h.deliveries.GetByDeliveryID(deliveryID)
	if existing != nil && existing.Status != models.DeliveryFailed {
		log.Debug().Str("delivery_id", deliveryID).Msg("duplicate delivery acknowledged")
		h.metrics.Duplicates.Add(1)
		writeJSON(w, http.StatusOK, map[string]string{"status": "duplicate", "id": existing.ID})
		return
	}

	h.metrics.Received.Add(1)

	result, procErr := h.processor.Process(body, r.Header.Get(HeaderSignature))
	h.record(existing, deliveryID, r.Header.Get(HeaderEvent), body, result, procErr)

	if procErr != nil {
		log.Warn().
			Err(procErr).
			Str("delivery_id", deliveryID).
			Str("stage", result.Stage.String()).
			Msg("webhook delivery not processed")
	}

	switch {
	case procErr == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "processed"})
	case errors.Is(procErr, webhook.ErrSignatureMismatch):
		apierrors.WriteError(w, http.StatusUnauthorized, apierrors.ErrCodeSignatureInvalid, "Signature verification failed", nil)
	case errors.Is(procErr, webhook.ErrInvalidFormat):
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidFormat, procErr.Error(), nil)
	case errors.Is(procErr, webhook.ErrInvalidInput):
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, procErr.Error(), nil)
	default:
		// Handler failures are our problem, not the sender's. A 500
		// makes the server retry later.
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrCodeInternal, "Event handler failed", nil)
	}
}

// record persists the outcome, updating the existing row on a failed
// delivery's retry and inserting otherwise.
func (h *WebhookHandler) record(existing *models.Delivery, deliveryID, eventHeader string, body []byte, result webhook.Result, procErr error) {
	event := eventHeader
	if result.Event.Kind != webhook.EventUnknown {
		event = result.Event.Kind.String()
	}

	status := models.DeliveryProcessed
	reason := ""
	switch {
	case procErr == nil:
		h.metrics.Processed.Add(1)
	case errors.Is(procErr, webhook.ErrHandlerFailed):
		status = models.DeliveryFailed
		reason = procErr.Error()
		h.metrics.Failed.Add(1)
	default:
		status = models.DeliveryRejected
		reason = procErr.Error()
		h.metrics.Rejected.Add(1)
	}

	var err error
	if existing != nil {
		if status == models.DeliveryProcessed {
			err = h.deliveries.MarkProcessed(existing.ID)
		} else {
			err = h.deliveries.MarkFailed(existing.ID, reason)
		}
	} else {
		_, err = h.deliveries.Create(&models.Delivery{
			DeliveryID:  deliveryID,
			Event:       event,
			Status:      status,
			Error:       reason,
			Payload:     string(body),
			ReceivedAt:  time.Now().Unix(),
			ProcessedAt: time.Now().Unix(),
		})
	}
	if err != nil {
		log.Error().Err(err).Str("delivery_id", deliveryID).Msg("failed to record delivery")
	}
}
