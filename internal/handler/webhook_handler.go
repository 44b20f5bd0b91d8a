package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"milebot/internal/monitor"
	"milebot/pkg/log"
	"milebot/pkg/utils"
)

// PaymentProcessor reconciles a gateway payment id into whatever it
// paid for.
type PaymentProcessor interface {
	ProcessPaymentEvent(ctx context.Context, paymentID string) error
}

// WebhookHandler receives PIX gateway notifications
type WebhookHandler struct {
	payments PaymentProcessor
}

// NewWebhookHandler creates a webhook handler
func NewWebhookHandler(payments PaymentProcessor) *WebhookHandler {
	return &WebhookHandler{payments: payments}
}

// gatewayNotification is the gateway's webhook envelope. Only the
// payment id matters, the current status is re-fetched from the
// gateway before anything is credited.
type gatewayNotification struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}

// HandlePayment processes a payment notification. The gateway retries
// any non-200 response forever, so every branch acks 200, including
// bodies the handler cannot parse. Failures are only logged; the
// reconciliation itself is idempotent and a retry is harmless.
func (h *WebhookHandler) HandlePayment(c *gin.Context) {
	var notif gatewayNotification
	if err := c.ShouldBindJSON(&notif); err != nil {
		log.WithError(err).Warn("Malformed payment notification body")
		monitor.RecordPaymentEvent("malformed")
		utils.AckResponse(c)
		return
	}

	// Some gateway notification modes put the id in the query string.
	paymentID := notif.Data.ID
	if paymentID == "" {
		paymentID = c.Query("data.id")
	}
	if paymentID == "" {
		paymentID = c.Query("id")
	}

	if notif.Type != "" && notif.Type != "payment" {
		log.WithFields(map[string]interface{}{
			"type":   notif.Type,
			"action": notif.Action,
		}).Debug("Ignoring non-payment notification")
		monitor.RecordPaymentEvent("ignored")
		utils.AckResponse(c)
		return
	}

	if paymentID == "" {
		log.WithField("action", notif.Action).Warn("Payment notification without payment id")
		monitor.RecordPaymentEvent("missing_id")
		utils.AckResponse(c)
		return
	}

	if err := h.payments.ProcessPaymentEvent(c.Request.Context(), paymentID); err != nil {
		log.WithFields(map[string]interface{}{
			"payment_id": paymentID,
			"error":      err.Error(),
		}).Error("Failed to process payment notification")
		monitor.RecordPaymentEvent("failed")
	} else {
		monitor.RecordPaymentEvent("processed")
	}

	utils.AckResponse(c)
}

// Health reports process liveness
func Health(c *gin.Context) {
	utils.SuccessResponse(c, gin.H{"status": "ok"})
}
