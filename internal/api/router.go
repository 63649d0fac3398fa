package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"hostel-allocation-backend/config"
	"hostel-allocation-backend/internal/mw"
)

// NewResponseCache builds the GET response cache shared by the router and
// background jobs that change what it serves.
func NewResponseCache(cfg config.ServerConfig) *cache.Cache {
	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	return cache.New(ttl, 2*ttl)
}

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg config.ServerConfig, handler *Handler, cacheStore *cache.Cache, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestID(), mw.Logger(logger))

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	caching := mw.Cache(cacheStore, time.Duration(cfg.CacheTTLSeconds)*time.Second)

	api := r.Group("/api")
	api.Use(rateLimiter, mw.Identity(), mw.FlushOnWrite(cacheStore))
	{
		api.POST("/hostels", handler.CreateHostel)
		api.GET("/hostels", caching, handler.ListHostels)
		api.POST("/hostels/:hostel_id/rooms", handler.CreateRoom)
		api.GET("/hostels/:hostel_id/waitlist", handler.GetWaitlist)
		api.POST("/hostels/:hostel_id/waitlist", handler.Enqueue)
		api.GET("/hostels/:hostel_id/waitlist/next", handler.NextCandidate)
		api.DELETE("/waitlist/:entry_id", handler.RemoveWaitlistEntry)

		api.GET("/beds", handler.GetAvailableBeds)
		api.PUT("/beds/:bed_id/status", handler.SetBedStatus)
		api.GET("/beds/:bed_id/history", handler.GetBedHistory)

		api.POST("/applications", handler.SubmitApplication)
		api.GET("/applications", handler.ListApplications)
		api.GET("/applications/:id", handler.GetApplication)
		api.PUT("/applications/:id/status", handler.UpdateApplicationStatus)
		api.POST("/applications/:id/reopen", handler.ReopenApplication)
		api.POST("/applications/:id/offer", handler.OfferNextBed)

		api.POST("/allocations", handler.CreateAllocation)
		api.GET("/allocations", handler.ListAllocations)
		api.GET("/allocations/:id", handler.GetAllocation)
		api.POST("/allocations/:id/response", handler.RespondToAllocation)

		api.POST("/sweeps", handler.RunSweep)
		api.GET("/reports/occupancy", caching, handler.GetOccupancyReport)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
