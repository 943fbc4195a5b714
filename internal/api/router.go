package api

import (
	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"fleet-telemetry-backend/internal/auth"
	"fleet-telemetry-backend/internal/mw"
	"fleet-telemetry-backend/internal/notification"
	"fleet-telemetry-backend/internal/store"
)

// RouterOptions bundles the collaborators the router wires together.
type RouterOptions struct {
	Store           store.Store
	Resolver        *auth.Resolver
	Alerts          *notification.WorkerPool
	Webpush         *webpush.Options
	AdminToken      string
	RateLimitPerSec float64
	RateLimitBurst  int
}

// NewRouter creates and configures a new Gin router.
func NewRouter(opts RouterOptions) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(opts.Store, opts.Alerts, opts.Webpush)
	handler.adminToken = opts.AdminToken

	rateLimiter := mw.RateLimiter(rate.Limit(opts.RateLimitPerSec), opts.RateLimitBurst)

	adminOnly := mw.Require(opts.Resolver, auth.KindAdmin)
	operator := mw.Require(opts.Resolver, auth.KindAdmin, auth.KindUser)
	machineOnly := mw.Require(opts.Resolver, auth.KindMachine)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		// POST /api/login
		api.POST("/login", handler.Login)

		// GET+POST /api/machines, PUT /api/machines/{id}
		api.GET("/machines", operator, handler.ListMachines)
		api.POST("/machines", adminOnly, handler.CreateMachine)
		api.PUT("/machines/:id", adminOnly, handler.UpdateMachine)

		// POST /api/machines/update — telemetry reports, machine credential only
		api.POST("/machines/update", machineOnly, handler.UpdateSpeed)

		// Comments and history
		api.GET("/machines/:id/comments", operator, handler.GetComments)
		api.POST("/machines/:id/comments", operator, handler.AddComment)
		api.GET("/machines/:id/history", operator, handler.GetHistory)

		// User administration
		api.GET("/users", adminOnly, handler.ListUsers)
		api.POST("/users", adminOnly, handler.CreateUser)
		api.PUT("/users/:id", adminOnly, handler.UpdateUser)

		// Maintenance-alert push subscriptions
		api.GET("/subscriptions", operator, handler.GetSubscription)
		api.PUT("/subscriptions", operator, handler.PutSubscription)
		api.DELETE("/subscriptions", operator, handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
