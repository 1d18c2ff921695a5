// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/interfaces/http/middleware"
)

// CartHandler handles cart endpoints for guests and signed-in users
type CartHandler struct {
	cartService *cart.Service
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cartService *cart.Service) *CartHandler {
	return &CartHandler{cartService: cartService}
}

// AddItemRequest is the body of POST /cart/items
type AddItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1,max=999"`
}

// SetQuantityRequest is the body of PUT /cart/items/:productId
type SetQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required,max=999"`
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	h.respondWithCart(c, http.StatusOK, "Cart retrieved successfully")
}

// GetCount handles GET /cart/count
func (h *CartHandler) GetCount(c *gin.Context) {
	count, err := h.cartService.Count(c.Request.Context(), middleware.GetIdentity(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart count retrieved successfully",
		"data":    gin.H{"count": count},
	})
}

// AddItem handles POST /cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request data", err)
		return
	}

	if err := h.cartService.AddProduct(c.Request.Context(), middleware.GetIdentity(c), req.ProductID, req.Quantity); err != nil {
		respondError(c, err)
		return
	}

	h.respondWithCart(c, http.StatusOK, "Item added to cart successfully")
}

// SetQuantity handles PUT /cart/items/:productId. Zero removes the line.
func (h *CartHandler) SetQuantity(c *gin.Context) {
	productID, ok := parseUintParam(c, "productId")
	if !ok {
		return
	}

	var req SetQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request data", err)
		return
	}

	if err := h.cartService.SetQuantity(c.Request.Context(), middleware.GetIdentity(c), productID, *req.Quantity); err != nil {
		respondError(c, err)
		return
	}

	h.respondWithCart(c, http.StatusOK, "Cart item updated successfully")
}

// Increment handles POST /cart/items/:productId/increment
func (h *CartHandler) Increment(c *gin.Context) {
	productID, ok := parseUintParam(c, "productId")
	if !ok {
		return
	}

	if err := h.cartService.Increment(c.Request.Context(), middleware.GetIdentity(c), productID); err != nil {
		respondError(c, err)
		return
	}

	h.respondWithCart(c, http.StatusOK, "Cart item updated successfully")
}

// Decrement handles POST /cart/items/:productId/decrement
func (h *CartHandler) Decrement(c *gin.Context) {
	productID, ok := parseUintParam(c, "productId")
	if !ok {
		return
	}

	if err := h.cartService.Decrement(c.Request.Context(), middleware.GetIdentity(c), productID); err != nil {
		respondError(c, err)
		return
	}

	h.respondWithCart(c, http.StatusOK, "Cart item updated successfully")
}

// RemoveItem handles DELETE /cart/items/:productId
func (h *CartHandler) RemoveItem(c *gin.Context) {
	productID, ok := parseUintParam(c, "productId")
	if !ok {
		return
	}

	if err := h.cartService.Remove(c.Request.Context(), middleware.GetIdentity(c), productID); err != nil {
		respondError(c, err)
		return
	}

	h.respondWithCart(c, http.StatusOK, "Item removed from cart successfully")
}

// ClearCart handles DELETE /cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	if err := h.cartService.Clear(c.Request.Context(), middleware.GetIdentity(c)); err != nil {
		respondError(c, err)
		return
	}

	h.respondWithCart(c, http.StatusOK, "Cart cleared successfully")
}

// MergeCart handles POST /cart/merge: the guest cart of the session cookie
// is folded into the signed-in user's cart.
func (h *CartHandler) MergeCart(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		respondError(c, cart.ErrNoIdentity)
		return
	}

	merged := 0
	if token, ok := middleware.GetSessionToken(c); ok {
		var err error
		merged, err = h.cartService.MergeGuestCart(c.Request.Context(), token, userID)
		if err != nil {
			respondError(c, err)
			return
		}
	}

	view, err := h.cartService.View(c.Request.Context(), middleware.GetIdentity(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart merged successfully",
		"data": gin.H{
			"merged_lines": merged,
			"cart":         view,
		},
	})
}

func (h *CartHandler) respondWithCart(c *gin.Context, status int, message string) {
	view, err := h.cartService.View(c.Request.Context(), middleware.GetIdentity(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(status, gin.H{
		"message": message,
		"data":    view,
	})
}
