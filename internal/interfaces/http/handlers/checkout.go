// internal/interfaces/http/handlers/checkout.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront/internal/domain/address"
	"github.com/your-org/storefront/internal/domain/checkout"
	"github.com/your-org/storefront/internal/interfaces/http/middleware"
)

// CheckoutHandler starts payments for signed-in users
type CheckoutHandler struct {
	checkoutService *checkout.Service
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkoutService *checkout.Service) *CheckoutHandler {
	return &CheckoutHandler{checkoutService: checkoutService}
}

// CheckoutRequest is the body of POST /checkout
type CheckoutRequest struct {
	ShippingAddress address.Address `json:"shipping_address"`
}

// Prefill handles GET /checkout/prefill and returns the address on file
func (h *CheckoutHandler) Prefill(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	addr, err := h.checkoutService.Prefill(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Checkout details retrieved successfully",
		"data":    gin.H{"shipping_address": addr},
	})
}

// Checkout handles POST /checkout
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request data", err)
		return
	}

	result, err := h.checkoutService.Checkout(c.Request.Context(), middleware.GetIdentity(c), req.ShippingAddress)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order created, continue to payment",
		"data":    result,
	})
}

// RetryPayment handles POST /checkout/orders/:publicId/payment
func (h *CheckoutHandler) RetryPayment(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	result, err := h.checkoutService.RetryPayment(c.Request.Context(), userID, c.Param("publicId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment session created",
		"data":    result,
	})
}

// PaymentStatus handles GET /checkout/orders/:publicId/status, which the
// success page polls. It only reports the order's current state.
func (h *CheckoutHandler) PaymentStatus(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	view, err := h.checkoutService.PaymentStatus(c.Request.Context(), userID, c.Param("publicId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment status retrieved successfully",
		"data":    view,
	})
}
