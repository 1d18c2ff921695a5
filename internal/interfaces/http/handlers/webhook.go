// internal/interfaces/http/handlers/webhook.go
package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront/internal/domain/reconciliation"
)

const stripeSignatureHeader = "Stripe-Signature"

// WebhookHandler receives payment provider notifications
type WebhookHandler struct {
	reconciler *reconciliation.Service
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(reconciler *reconciliation.Service) *WebhookHandler {
	return &WebhookHandler{reconciler: reconciler}
}

// PaymentWebhook handles POST /webhooks/stripe. The raw body is needed for
// signature verification. Any 2xx tells the provider to stop redelivering.
func (h *WebhookHandler) PaymentWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondBadRequest(c, "Failed to read request body", err)
		return
	}

	outcome, err := h.reconciler.HandleWebhook(c.Request.Context(), payload, c.GetHeader(stripeSignatureHeader))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"received": true,
		"outcome":  outcome,
	})
}
