package api

import (
	"errors"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"fleet-telemetry-backend/internal/notification"
	"fleet-telemetry-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	alerts  *notification.WorkerPool
	webpush *webpush.Options

	// adminToken identifies the built-in admin seed row, which the user
	// endpoints must refuse to modify.
	adminToken string
}

// NewHandler creates a new API handler. alerts may be nil when push is
// not configured; comment writes then skip alert dispatch.
func NewHandler(s store.Store, alerts *notification.WorkerPool, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:   s,
		alerts:  alerts,
		webpush: webpushOptions,
	}
}

// storeError maps store-layer failures onto the fixed status families:
// 400 for constraint violations, 404 for missing entities, 500 for
// everything else.
func storeError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, store.ErrDuplicate):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg + " already exists"})
	case errors.Is(err, store.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": msg + " not found"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "database error"})
	}
}
