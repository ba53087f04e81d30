package handlers

import (
	"net/http"

	"eventify-payments/internal/logger"
	"eventify-payments/internal/services"

	"github.com/gin-gonic/gin"
)

type WebhookHandler struct {
	verifier   *services.WebhookVerifier
	reconciler *services.ReconcilerService
	log        *logger.Logger
}

func NewWebhookHandler(verifier *services.WebhookVerifier, reconciler *services.ReconcilerService, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		verifier:   verifier,
		reconciler: reconciler,
		log:        log,
	}
}

// HandleStripeWebhook verifies and processes one provider delivery.
// Response codes drive the provider's retry behavior: 400 is terminal
// (tampered or misrouted payload, never retried), 200 acknowledges the
// delivery, 500 signals a transient failure so the provider redelivers.
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	event, err := h.verifier.VerifyAndParse(body, c.GetHeader("Stripe-Signature"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
		return
	}

	if err := h.reconciler.HandleEvent(c.Request.Context(), event); err != nil {
		h.log.Error("WEBHOOK", "Processing failed, requesting redelivery: "+err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
