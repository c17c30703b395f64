package handler

import (
	"wallet-ledger/internal/adapter/http/middleware"
	redisStore "wallet-ledger/internal/adapter/storage/redis"
	"wallet-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	LedgerSvc      ports.LedgerService
	QuerySvc       ports.QueryService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	MaxBodyBytes   int64
	OpenAPISpec    []byte // nil = /swagger/spec returns 404
	Mode           string // gin mode, defaults to release
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	mode := deps.Mode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(deps.MaxBodyBytes))

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec(deps.OpenAPISpec))
	}

	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")

	walletHandler := NewWalletHandler(deps.LedgerSvc, deps.QuerySvc)
	wallets := v1.Group("/wallets")
	{
		wallets.POST("", rl(middleware.GroupWalletsWrite), walletHandler.Create)
		wallets.GET("", rl(middleware.GroupRead), walletHandler.List)
		wallets.GET("/:id", rl(middleware.GroupRead), walletHandler.Get)
		wallets.GET("/:id/audit", rl(middleware.GroupRead), walletHandler.Audit)
	}

	txHandler := NewTransactionHandler(deps.LedgerSvc, deps.QuerySvc)
	transactions := v1.Group("/transactions")
	{
		transactions.POST("", rl(middleware.GroupTransactionsWrite), txHandler.Create)
		transactions.GET("", rl(middleware.GroupRead), txHandler.List)
		transactions.GET("/:id", rl(middleware.GroupRead), txHandler.Get)
	}

	return r
}
