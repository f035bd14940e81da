// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"shopledger/internal/domain/auth"
	"shopledger/internal/infrastructure/http/v1/handlers"
	"shopledger/internal/infrastructure/http/v1/middleware"
	"shopledger/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// DB is pinged by the readiness check
	DB handlers.Pinger

	// Version is reported by /health
	Version string

	Auth      handlers.AuthService
	Customers handlers.CustomerService
	Orders    handlers.OrderService
	Ledger    interface {
		handlers.Ledger
		handlers.PaymentHistory
	}
	Reports  handlers.ReportService
	Activity handlers.ActivityReader

	// Idempotency guards payment endpoints; nil disables it
	Idempotency middleware.IdempotencyStore

	// Debug keeps gin in debug mode
	Debug bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Recovery())

	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Version)
	router.GET("/health", healthHandler.Live)
	router.GET("/ready", healthHandler.Ready)

	base := handlers.NewBaseHandler()

	v1 := router.Group("/api/v1")
	{
		authHandler := handlers.NewAuthHandler(base, cfg.Auth)
		publicAuth := v1.Group("/auth")
		protectedAuth := v1.Group("/auth")
		protectedAuth.Use(middleware.Auth(cfg.JWTValidator))
		authHandler.RegisterRoutes(publicAuth, protectedAuth)

		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))

		registerCustomerRoutes(protected, base, cfg)
		registerCreditRoutes(protected, base, cfg)
		registerReportRoutes(protected, base, cfg)
		registerActivityRoutes(protected, base, cfg)
	}

	return router
}

// registerCustomerRoutes registers customer endpoints.
func registerCustomerRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewCustomerHandler(base, cfg.Customers, cfg.Ledger)
	read := middleware.RequirePermission(auth.PermCustomerRead)
	write := middleware.RequirePermission(auth.PermCustomerWrite)

	customers := rg.Group("/customers")
	customers.GET("", read, h.List)
	customers.POST("", write, h.Create)
	customers.GET("/:id", read, h.Get)
	customers.PUT("/:id", write, h.Update)
	customers.GET("/:id/payments", middleware.RequirePermission(auth.PermCreditRead), h.Payments)
}

// registerCreditRoutes registers credit order and payment endpoints.
func registerCreditRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewCreditHandler(base, cfg.Orders, cfg.Ledger)
	read := middleware.RequirePermission(auth.PermCreditRead)
	write := middleware.RequirePermission(auth.PermCreditWrite)

	creditGroup := rg.Group("/credit")

	orders := creditGroup.Group("/orders")
	orders.GET("", read, h.ListOrders)
	orders.POST("", write, h.CreateOrder)
	orders.GET("/overdue", read, h.ListOverdue)
	orders.GET("/:id", read, h.GetOrder)

	payments := creditGroup.Group("/payments")
	payments.Use(write)
	if cfg.Idempotency != nil {
		payments.Use(middleware.Idempotency(cfg.Idempotency))
	}
	payments.POST("", h.Pay)
	payments.POST("/order", h.PayOrder)
	payments.POST("/balance", h.PayBalance)
}

// registerReportRoutes registers report endpoints.
func registerReportRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewReportsHandler(base, cfg.Reports)

	reportsGroup := rg.Group("/reports")
	reportsGroup.Use(middleware.RequirePermission(auth.PermReportsRead))
	reportsGroup.GET("/dashboard", h.Dashboard)
	reportsGroup.GET("/revenue", h.Revenue)
	reportsGroup.GET("/categories", h.Categories)
	reportsGroup.GET("/top-products", h.TopProducts)
}

// registerActivityRoutes registers activity log endpoints.
func registerActivityRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewActivityHandler(base, cfg.Activity)
	rg.GET("/activity", middleware.RequirePermission(auth.PermActivityRead), h.List)
}
