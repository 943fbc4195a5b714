package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fleet-telemetry-backend/internal/auth"
	"fleet-telemetry-backend/internal/model"
	"fleet-telemetry-backend/internal/store"
)

type createMachineRequest struct {
	Name        string `json:"name" binding:"required"`
	Code        string `json:"code" binding:"required"`
	Location    string `json:"location"`
	MachineType string `json:"machine_type"`
}

// machineCreatedResponse is the only place the API key ever leaves the
// backend.
type machineCreatedResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Code        string `json:"code"`
	APIKey      string `json:"api_key"`
	Location    string `json:"location,omitempty"`
	MachineType string `json:"machine_type,omitempty"`
}

// CreateMachine handles POST /api/machines. Admin only: registers a
// machine and mints its API key.
func (h *Handler) CreateMachine(c *gin.Context) {
	var req createMachineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "name and code are required"})
		return
	}

	machine := model.Machine{
		Name:        req.Name,
		Code:        req.Code,
		APIKey:      auth.MintMachineKey(),
		Location:    req.Location,
		MachineType: req.MachineType,
	}
	if err := h.store.CreateMachine(c.Request.Context(), &machine); err != nil {
		storeError(c, err, "machine name or code")
		return
	}

	c.JSON(http.StatusCreated, machineCreatedResponse{
		ID:          machine.ID,
		Name:        machine.Name,
		Code:        machine.Code,
		APIKey:      machine.APIKey,
		Location:    machine.Location,
		MachineType: machine.MachineType,
	})
}

// ListMachines handles GET /api/machines for admins and operators.
func (h *Handler) ListMachines(c *gin.Context) {
	machines, err := h.store.ListMachines(c.Request.Context())
	if err != nil {
		storeError(c, err, "machines")
		return
	}
	c.JSON(http.StatusOK, gin.H{"machines": machines})
}

type updateMachineRequest struct {
	Name        *string `json:"name"`
	Code        *string `json:"code"`
	Location    *string `json:"location"`
	MachineType *string `json:"machine_type"`
}

// UpdateMachine handles PUT /api/machines/{id}. Admin only: edits the
// registration fields, never the telemetry fields.
func (h *Handler) UpdateMachine(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid machine ID"})
		return
	}

	var req updateMachineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}

	machine, err := h.store.UpdateMachine(c.Request.Context(), id, store.MachinePatch{
		Name:        req.Name,
		Code:        req.Code,
		Location:    req.Location,
		MachineType: req.MachineType,
	})
	if err != nil {
		storeError(c, err, "machine")
		return
	}

	c.JSON(http.StatusOK, machine)
}
