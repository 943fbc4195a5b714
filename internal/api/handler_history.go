package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const defaultHistoryLimit = 100

// GetHistory handles GET /api/machines/{id}/history. Samples come back
// newest first, capped by the caller-supplied limit (default 100).
func (h *Handler) GetHistory(c *gin.Context) {
	machineID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid machine ID"})
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	if _, err := h.store.GetMachine(c.Request.Context(), machineID); err != nil {
		storeError(c, err, "machine")
		return
	}

	history, err := h.store.ListHistory(c.Request.Context(), machineID, limit)
	if err != nil {
		storeError(c, err, "history")
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": history})
}
