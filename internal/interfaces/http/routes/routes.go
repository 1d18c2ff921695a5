// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/interfaces/http/handlers"
	"github.com/your-org/storefront/internal/interfaces/http/middleware"
	"github.com/your-org/storefront/internal/pkg/auth"
)

// Handlers groups the handlers mounted under /api/v1
type Handlers struct {
	Product  *handlers.ProductHandler
	Cart     *handlers.CartHandler
	Checkout *handlers.CheckoutHandler
	Order    *handlers.OrderHandler
	Webhook  *handlers.WebhookHandler
}

// SetupRoutes mounts every API route group on rg
func SetupRoutes(rg *gin.RouterGroup, h Handlers, jwtManager *auth.JWTManager, security config.SecurityConfig) {
	SetupProductRoutes(rg, h.Product, jwtManager)
	SetupCartRoutes(rg, h.Cart, jwtManager, security)
	SetupCheckoutRoutes(rg, h.Checkout, jwtManager, security)
	SetupOrderRoutes(rg, h.Order, jwtManager)
	SetupAdminRoutes(rg, h.Order, jwtManager)
	SetupWebhookRoutes(rg, h.Webhook)
}

// SetupProductRoutes sets up the read-only catalog routes
func SetupProductRoutes(rg *gin.RouterGroup, productHandler *handlers.ProductHandler, jwtManager *auth.JWTManager) {
	products := rg.Group("/products")
	products.Use(middleware.OptionalAuthMiddleware(jwtManager))
	{
		products.GET("", productHandler.GetProducts)
		products.GET("/:id", productHandler.GetProduct)
	}
}

// SetupCartRoutes sets up cart routes. They work for guests (session
// cookie) and signed-in users alike.
func SetupCartRoutes(rg *gin.RouterGroup, cartHandler *handlers.CartHandler, jwtManager *auth.JWTManager, security config.SecurityConfig) {
	cart := rg.Group("/cart")
	cart.Use(middleware.OptionalAuthMiddleware(jwtManager), middleware.Session(security))
	{
		cart.GET("", cartHandler.GetCart)
		cart.GET("/count", cartHandler.GetCount)
		cart.DELETE("", cartHandler.ClearCart)

		cart.POST("/items", cartHandler.AddItem)
		cart.PUT("/items/:productId", cartHandler.SetQuantity)
		cart.POST("/items/:productId/increment", cartHandler.Increment)
		cart.POST("/items/:productId/decrement", cartHandler.Decrement)
		cart.DELETE("/items/:productId", cartHandler.RemoveItem)
	}

	merge := rg.Group("/cart")
	merge.Use(middleware.AuthMiddleware(jwtManager), middleware.Session(security))
	{
		merge.POST("/merge", cartHandler.MergeCart)
	}
}

// SetupCheckoutRoutes sets up checkout routes, all of which require a
// signed-in user
func SetupCheckoutRoutes(rg *gin.RouterGroup, checkoutHandler *handlers.CheckoutHandler, jwtManager *auth.JWTManager, security config.SecurityConfig) {
	checkout := rg.Group("/checkout")
	checkout.Use(middleware.AuthMiddleware(jwtManager), middleware.Session(security))
	{
		checkout.GET("/prefill", checkoutHandler.Prefill)
		checkout.POST("", checkoutHandler.Checkout)
		checkout.POST("/orders/:publicId/payment", checkoutHandler.RetryPayment)
		checkout.GET("/orders/:publicId/status", checkoutHandler.PaymentStatus)
	}
}

// SetupOrderRoutes sets up the buyer's order history routes
func SetupOrderRoutes(rg *gin.RouterGroup, orderHandler *handlers.OrderHandler, jwtManager *auth.JWTManager) {
	orders := rg.Group("/orders")
	orders.Use(middleware.AuthMiddleware(jwtManager))
	{
		orders.GET("", orderHandler.GetUserOrders)
		orders.GET("/:publicId", orderHandler.GetOrder)
		orders.POST("/:publicId/cancel", orderHandler.CancelOrder)
	}
}

// SetupAdminRoutes sets up admin routes
func SetupAdminRoutes(rg *gin.RouterGroup, orderHandler *handlers.OrderHandler, jwtManager *auth.JWTManager) {
	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(jwtManager), middleware.AdminMiddleware())
	{
		admin.GET("/orders", orderHandler.GetAllOrders)
	}
}

// SetupWebhookRoutes sets up payment provider webhooks. They carry no user
// auth; the handler verifies the provider signature.
func SetupWebhookRoutes(rg *gin.RouterGroup, webhookHandler *handlers.WebhookHandler) {
	webhooks := rg.Group("/webhooks")
	{
		webhooks.POST("/stripe", webhookHandler.PaymentWebhook)
	}
}
