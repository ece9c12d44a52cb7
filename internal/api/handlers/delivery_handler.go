package handlers

import (
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	apiContext "keygate/internal/api/context"
	apierrors "keygate/internal/pkg/errors"
	"keygate/internal/platform/models"
	"keygate/internal/platform/store"
)

type DeliveryHandler struct {
	deliveries *store.DeliveryRepository
}

func NewDeliveryHandler(deliveries *store.DeliveryRepository) *DeliveryHandler {
	return &DeliveryHandler{deliveries: deliveries}
}

func (h *DeliveryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	deliveries, err := h.deliveries.List(q.Get("event"), limit, offset)
	if err != nil {
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrCodeInternal, "Failed to list deliveries", nil)
		return
	}
	if deliveries == nil {
		deliveries = []*models.Delivery{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"deliveries": deliveries})
}

func (h *DeliveryHandler) Get(w http.ResponseWriter, r *http.Request) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)
	deliveryID := params.ByName("delivery_id")

	delivery, err := h.deliveries.GetByDeliveryID(deliveryID)
	if err != nil {
		apierrors.WriteError(w, http.StatusNotFound, apierrors.ErrCodeNotFound, "Delivery not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, delivery)
}
