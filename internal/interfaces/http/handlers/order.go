// internal/interfaces/http/handlers/order.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/interfaces/http/middleware"
)

// OrderHandler handles order history and admin order listing
type OrderHandler struct {
	orderService *order.Service
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *order.Service) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// OrderListResponse is a page of order views
type OrderListResponse struct {
	Orders     []order.View     `json:"orders"`
	Pagination order.Pagination `json:"pagination"`
}

// GetUserOrders handles GET /orders
func (h *OrderHandler) GetUserOrders(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var req order.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBadRequest(c, "Invalid query parameters", err)
		return
	}

	response, err := h.orderService.ListForUser(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Orders retrieved successfully",
		"data":    toListResponse(response),
	})
}

// GetOrder handles GET /orders/:publicId
func (h *OrderHandler) GetOrder(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	o, err := h.orderService.GetForUser(c.Request.Context(), userID, c.Param("publicId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order retrieved successfully",
		"data":    o.ToView(),
	})
}

// CancelOrder handles POST /orders/:publicId/cancel. Only Pending orders
// can be cancelled.
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	o, err := h.orderService.GetForUser(c.Request.Context(), userID, c.Param("publicId"))
	if err != nil {
		respondError(c, err)
		return
	}

	cancelled, _, err := h.orderService.Cancel(c.Request.Context(), o.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order cancelled successfully",
		"data":    cancelled.ToView(),
	})
}

// GetAllOrders handles GET /admin/orders
func (h *OrderHandler) GetAllOrders(c *gin.Context) {
	var req order.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBadRequest(c, "Invalid query parameters", err)
		return
	}

	response, err := h.orderService.ListAll(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Orders retrieved successfully",
		"data":    toListResponse(response),
	})
}

func toListResponse(response *order.ListResponse) OrderListResponse {
	return OrderListResponse{
		Orders:     order.Views(response.Orders),
		Pagination: response.Pagination,
	}
}
