// internal/interfaces/http/server.go
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/checkout"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/domain/payment"
	"github.com/your-org/storefront/internal/domain/product"
	"github.com/your-org/storefront/internal/domain/reconciliation"
	"github.com/your-org/storefront/internal/domain/user"
	redisinfra "github.com/your-org/storefront/internal/infrastructure/database/redis"
	"github.com/your-org/storefront/internal/interfaces/http/handlers"
	"github.com/your-org/storefront/internal/interfaces/http/middleware"
	"github.com/your-org/storefront/internal/interfaces/http/routes"
	"github.com/your-org/storefront/internal/pkg/auth"
	"github.com/your-org/storefront/internal/pkg/telemetry"
	"gorm.io/gorm"
)

// Dependencies are the long-lived resources the server is built from.
// Provider overrides the provider chosen by configuration when set.
type Dependencies struct {
	DB       *gorm.DB
	Redis    *redisinfra.Client
	Logger   logrus.FieldLogger
	Registry *prometheus.Registry
	Provider payment.Provider
}

// Server represents the HTTP server
type Server struct {
	config     *config.Config
	deps       Dependencies
	gin        *gin.Engine
	httpServer *http.Server
	startedAt  time.Time
}

// NewServer wires the domain services and builds the router
func NewServer(cfg *config.Config, deps Dependencies) (*Server, error) {
	if deps.DB == nil || deps.Redis == nil {
		return nil, errors.New("database and redis are required")
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	if deps.Registry == nil {
		deps.Registry = prometheus.NewRegistry()
	}
	if deps.Provider == nil {
		deps.Provider = payment.NewStripeProvider(payment.StripeConfig{SecretKey: cfg.Payment.SecretKey})
	}

	s := &Server{
		config:    cfg,
		deps:      deps,
		startedAt: time.Now(),
	}

	if gin.Mode() != gin.TestMode {
		if cfg.IsProduction() {
			gin.SetMode(gin.ReleaseMode)
		} else {
			gin.SetMode(gin.DebugMode)
		}
	}

	s.gin = gin.New()
	if err := s.gin.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	s.setupMiddleware()
	if err := s.setupRoutes(); err != nil {
		return nil, err
	}
	return s, nil
}

// Handler returns the router, for tests and custom listeners
func (s *Server) Handler() http.Handler {
	return s.gin
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         ":" + s.config.Server.Port,
		Handler:      s.gin,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	s.deps.Logger.WithFields(logrus.Fields{
		"port":     s.config.Server.Port,
		"base_url": "http://localhost:" + s.config.Server.Port + "/api/v1",
		"provider": s.deps.Provider.Name(),
	}).Info("HTTP server starting")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	s.deps.Logger.Info("Shutting down HTTP server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.deps.Logger.Info("HTTP server stopped gracefully")
	return nil
}

func (s *Server) setupMiddleware() {
	s.gin.Use(gin.Recovery())
	s.gin.Use(middleware.RequestID())
	s.gin.Use(middleware.Logger(s.deps.Logger))
	s.gin.Use(middleware.CORS(s.config.Security))
	s.gin.Use(middleware.SecurityHeaders(s.config.IsProduction()))
	s.gin.Use(middleware.RateLimit(s.config.Security.RateLimitPerMinute, s.deps.Redis, s.deps.Logger))
	s.gin.Use(middleware.RequestSizeLimit(s.config.Server.MaxBodyBytes))
	s.gin.Use(middleware.Timeout(s.config.Server.WriteTimeout))
}

func (s *Server) setupRoutes() error {
	cfg := s.config
	logger := s.deps.Logger
	metrics := telemetry.New(s.deps.Registry)
	db := s.deps.DB

	guard, err := redisinfra.NewEventGuard(s.deps.Redis, cfg.Payment.EventTTL, s.deps.Provider.Name())
	if err != nil {
		return fmt.Errorf("failed to create event guard: %w", err)
	}

	productService := product.NewService(db)
	userService := user.NewService(db)
	orderService := order.NewService(db, logger, metrics)
	cartService := cart.NewService(db, s.deps.Redis.GetClient(), productService, cart.Config{
		GuestTTL: cfg.Cart.GuestTTL,
		Currency: cfg.Payment.Currency,
	}, logger, metrics)
	checkoutService := checkout.NewService(db, cartService, orderService, userService, s.deps.Provider, checkout.Config{
		Currency:   cfg.Payment.Currency,
		SuccessURL: cfg.Payment.SuccessURL,
		CancelURL:  cfg.Payment.CancelURL,
	}, logger, metrics)
	reconciler := reconciliation.NewService(db, orderService, productService, cartService, s.deps.Provider, guard, reconciliation.Config{
		WebhookSecret: cfg.Payment.WebhookSecret,
	}, logger, metrics)

	s.gin.GET("/health", s.healthCheck)
	s.gin.GET("/ready", s.readinessCheck)
	if cfg.Metrics.Enabled {
		s.gin.GET(cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(s.deps.Registry, promhttp.HandlerOpts{})))
	}

	apiV1 := s.gin.Group("/api/v1")
	routes.SetupRoutes(apiV1, routes.Handlers{
		Product:  handlers.NewProductHandler(productService),
		Cart:     handlers.NewCartHandler(cartService),
		Checkout: handlers.NewCheckoutHandler(checkoutService),
		Order:    handlers.NewOrderHandler(orderService),
		Webhook:  handlers.NewWebhookHandler(reconciler),
	}, auth.NewJWTManager(cfg.JWT), cfg.Security)

	if cfg.IsDevelopment() {
		s.gin.GET("/", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"message":     cfg.App.Name + " API",
				"version":     cfg.App.Version,
				"environment": cfg.App.Environment,
				"health":      "/health",
				"endpoints": gin.H{
					"products": "/api/v1/products",
					"cart":     "/api/v1/cart",
					"checkout": "/api/v1/checkout",
					"orders":   "/api/v1/orders",
					"webhooks": "/api/v1/webhooks",
					"admin":    "/api/v1/admin",
				},
			})
		})
	}
	return nil
}

// healthCheck reports whether the database and Redis answer
func (s *Server) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	sqlDB, err := s.deps.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		s.deps.Logger.WithError(err).Warn("Database health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  "database ping failed",
		})
		return
	}

	if err := s.deps.Redis.Health(ctx); err != nil {
		s.deps.Logger.WithError(err).Warn("Redis health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  "redis ping failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"timestamp":   time.Now().UTC(),
		"version":     s.config.App.Version,
		"environment": s.config.App.Environment,
	})
}

// readinessCheck reports that the router is serving
func (s *Server) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	})
}
