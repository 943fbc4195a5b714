package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fleet-telemetry-backend/internal/mw"
)

type speedUpdateRequest struct {
	Speed   float64 `json:"speed"`
	Message *string `json:"message"`
}

type speedUpdateResponse struct {
	Success   bool  `json:"success"`
	Timestamp int64 `json:"timestamp"`
}

// UpdateSpeed handles POST /api/machines/update, the telemetry report
// path. The route is gated to machine credentials, and the machine can
// only ever write its own row: the target ID comes from the resolved
// credential, not from the payload.
func (h *Handler) UpdateSpeed(c *gin.Context) {
	principal := mw.PrincipalFrom(c)

	var req speedUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "malformed telemetry payload"})
		return
	}

	message := ""
	if req.Message != nil {
		message = *req.Message
	}

	timestamp, err := h.store.RecordTelemetry(c.Request.Context(), principal.MachineID, req.Speed, message)
	if err != nil {
		storeError(c, err, "machine")
		return
	}

	c.JSON(http.StatusOK, speedUpdateResponse{Success: true, Timestamp: timestamp})
}
