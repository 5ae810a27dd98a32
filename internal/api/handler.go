package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"order-assistant/config"
	"order-assistant/internal/ratelimit"
	"order-assistant/internal/service"
	"order-assistant/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ReadinessCheck reports whether a dependency can serve traffic
type ReadinessCheck func(ctx context.Context) error

// Handler contains HTTP handlers
type Handler struct {
	cartService     *service.CartService
	checkoutService *service.CheckoutService
	hoursService    *service.HoursService
	orderService    *service.OrderService
	limiter         *ratelimit.Limiter
	limits          config.RateLimitConfig
	checks          map[string]ReadinessCheck
	logger          *zap.Logger
}

// NewHandler creates a new HTTP handler. A nil limiter disables rate limiting.
func NewHandler(
	cartService *service.CartService,
	checkoutService *service.CheckoutService,
	hoursService *service.HoursService,
	orderService *service.OrderService,
	limiter *ratelimit.Limiter,
	limits config.RateLimitConfig,
) *Handler {
	return &Handler{
		cartService:     cartService,
		checkoutService: checkoutService,
		hoursService:    hoursService,
		orderService:    orderService,
		limiter:         limiter,
		limits:          limits,
		checks:          make(map[string]ReadinessCheck),
		logger:          util.GetLogger(),
	}
}

// AddReadinessCheck registers a dependency probed by /ready
func (h *Handler) AddReadinessCheck(name string, check ReadinessCheck) {
	h.checks[name] = check
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	tenant := v1.Group("/tenants/:tenantID")
	{
		tenant.GET("/hours", h.rateLimit("check_hours", h.limits.Hours), h.getHours)
		tenant.GET("/orders/:orderID", h.getOrder)
	}

	session := tenant.Group("/sessions/:sessionID")
	{
		session.GET("/cart", h.rateLimit("get_cart", h.limits.Cart), h.getCart)
		session.GET("/cart/summary", h.rateLimit("get_cart_summary", h.limits.Cart), h.getCartSummary)
		session.DELETE("/cart", h.rateLimit("clear_cart", h.limits.Cart), h.clearCart)
		session.POST("/cart/items", h.rateLimit("add_to_cart", h.limits.Cart), h.addItem)
		session.DELETE("/cart/items/:itemID", h.rateLimit("remove_from_cart", h.limits.Cart), h.removeItem)
		session.PATCH("/cart/items/:itemID", h.rateLimit("update_cart_item", h.limits.Cart), h.updateItem)
		session.POST("/checkout", h.rateLimit("checkout", h.limits.Checkout), h.checkout)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck probes every registered dependency
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Warn("Readiness check failed", zap.String("dependency", name), zap.Error(err))
			failed[name] = "unavailable"
		}
	}

	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"failed": failed,
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
