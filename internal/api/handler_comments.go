package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"fleet-telemetry-backend/internal/auth"
	"fleet-telemetry-backend/internal/model"
	"fleet-telemetry-backend/internal/mw"
)

type addCommentRequest struct {
	Comment  string  `json:"comment" binding:"required"`
	Priority *string `json:"priority"`
}

// AddComment handles POST /api/machines/{id}/comments. The author is
// whichever admin or operator presented the credential; machine
// credentials never reach this handler.
func (h *Handler) AddComment(c *gin.Context) {
	machineID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid machine ID"})
		return
	}

	var req addCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "comment is required"})
		return
	}

	priority := model.PriorityNormal
	if req.Priority != nil {
		if !model.ValidPriority(*req.Priority) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid priority"})
			return
		}
		priority = *req.Priority
	}

	if _, err := h.store.GetMachine(c.Request.Context(), machineID); err != nil {
		storeError(c, err, "machine")
		return
	}

	principal := mw.PrincipalFrom(c)
	username := principal.Username
	if principal.Kind == auth.KindAdmin {
		username = "admin"
	}

	comment := model.MaintenanceComment{
		MachineID: machineID,
		Username:  username,
		Comment:   req.Comment,
		Priority:  priority,
		CreatedAt: time.Now().Unix(),
	}
	if err := h.store.AddComment(c.Request.Context(), &comment); err != nil {
		storeError(c, err, "comment")
		return
	}

	if h.alerts != nil && (priority == model.PriorityHigh || priority == model.PriorityCritical) {
		h.alerts.Dispatch(comment.ID)
	}

	c.JSON(http.StatusCreated, comment)
}

// GetComments handles GET /api/machines/{id}/comments, newest first.
func (h *Handler) GetComments(c *gin.Context) {
	machineID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid machine ID"})
		return
	}

	if _, err := h.store.GetMachine(c.Request.Context(), machineID); err != nil {
		storeError(c, err, "machine")
		return
	}

	comments, err := h.store.ListComments(c.Request.Context(), machineID)
	if err != nil {
		storeError(c, err, "comments")
		return
	}

	c.JSON(http.StatusOK, gin.H{"comments": comments})
}
