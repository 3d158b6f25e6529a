package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"charging-kiosk-backend/config"
	"charging-kiosk-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg config.ServerConfig, handler *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestLogger(handler.logger))

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(ttl, 2*ttl)
	caching := mw.Cache(cacheStore, ttl)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/health", handler.GetHealth)

		slots := api.Group("/slots")
		slots.GET("", handler.ListSlots)
		slots.GET("/:number", handler.GetSlot)
		slots.POST("/:number/start", handler.StartSlot)
		slots.POST("/:number/stop", handler.StopSlot)
		slots.POST("/:number/sanitize", handler.SanitizeSlot)
		slots.POST("/:number/unlock", handler.UnlockSlot)
		slots.PUT("/:number/relay", handler.PutRelay)
		slots.PUT("/:number/lock", handler.PutLock)
		slots.POST("/:number/out-of-service", handler.OutOfService)
		slots.POST("/:number/in-service", handler.InService)
		slots.POST("/:number/clear-fault", handler.ClearFault)

		api.POST("/fingerprints/verify", handler.VerifyFingerprint)
		api.POST("/fingerprints/enroll", handler.EnrollFingerprint)

		// Denominations only change through the database, so they cache well.
		api.GET("/denominations", caching, handler.GetDenominations)
		api.GET("/coins/credit", handler.GetCredit)
		api.POST("/coins/quote", handler.QuoteMinutes)
		api.GET("/transactions", handler.GetTransactions)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
