package payment

import (
	"io"
	"net/http"

	"github.com/my-other-app/moa-backend/internal/transport"
	"github.com/my-other-app/moa-backend/pkg/logger"
)

const (
	headerSignature = "X-Razorpay-Signature"
	headerEventID   = "X-Razorpay-Event-Id"
)

type WebhookHandler struct {
	transport.BaseHandler
	service *Service
}

func NewWebhookHandler(service *Service) *WebhookHandler {
	return &WebhookHandler{service: service}
}

// HandleWebhook godoc
// @Summary Receive a gateway webhook delivery
// @Description Verifies the delivery signature, records the event exactly once and applies it to the ledger. Redeliveries succeed without effect.
// @Tags payments
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 400 {object} errors.AppError
// @Router /payments/webhook [post]
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context())

	// Signature verification runs over the raw bytes; the body must not be
	// decoded and re-encoded first.
	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		log.Warn("failed to read webhook body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	if len(rawBody) == 0 {
		// Providers probe the endpoint with empty deliveries.
		h.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	signature := r.Header.Get(headerSignature)
	eventID := r.Header.Get(headerEventID)

	if err := h.service.IngestWebhook(r.Context(), eventID, signature, rawBody); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
