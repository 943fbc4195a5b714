package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fleet-telemetry-backend/internal/auth"
	"fleet-telemetry-backend/internal/model"
	"fleet-telemetry-backend/internal/store"
)

type createUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

// CreateUser handles POST /api/users. Admin only: registers an operator
// account and mints its token.
func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "username, password, and role are required"})
		return
	}
	if !model.ValidRole(req.Role) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
		return
	}

	user := model.User{
		Username: req.Username,
		Password: req.Password,
		Role:     req.Role,
		Token:    auth.MintUserToken(),
	}
	if err := h.store.CreateUser(c.Request.Context(), &user); err != nil {
		storeError(c, err, "username")
		return
	}

	c.JSON(http.StatusCreated, user)
}

// ListUsers handles GET /api/users. Admin only.
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.store.ListUsers(c.Request.Context())
	if err != nil {
		storeError(c, err, "users")
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

type updateUserRequest struct {
	Role     *string `json:"role"`
	Password *string `json:"password"`
}

// UpdateUser handles PUT /api/users/{id}. Admin only. The built-in
// admin seed row is permanent configuration state and cannot be edited
// here.
func (h *Handler) UpdateUser(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}
	if req.Role != nil && !model.ValidRole(*req.Role) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
		return
	}

	existing, err := h.store.GetUser(c.Request.Context(), id)
	if err != nil {
		storeError(c, err, "user")
		return
	}
	if existing.Token == h.adminToken {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "built-in admin account cannot be modified"})
		return
	}

	user, err := h.store.UpdateUser(c.Request.Context(), id, store.UserPatch{
		Role:     req.Role,
		Password: req.Password,
	})
	if err != nil {
		storeError(c, err, "user")
		return
	}

	c.JSON(http.StatusOK, user)
}
