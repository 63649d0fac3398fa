package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/store"
)

type createAllocationRequest struct {
	ApplicationID string `json:"application_id" binding:"required"`
	BedID         string `json:"bed_id" binding:"required"`
	DeadlineDays  int    `json:"deadline_days"`
}

// CreateAllocation handles POST /api/allocations.
func (h *Handler) CreateAllocation(c *gin.Context) {
	var req createAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	alloc, err := h.engine.CreateAllocation(c.Request.Context(), scopeFrom(c), req.ApplicationID, req.BedID, req.DeadlineDays)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, alloc)
}

// ListAllocations handles GET /api/allocations?hostel_id=&student_id=&status=.
func (h *Handler) ListAllocations(c *gin.Context) {
	allocs, err := h.engine.ListAllocations(c.Request.Context(), scopeFrom(c), store.AllocationFilter{
		HostelID:  c.Query("hostel_id"),
		StudentID: c.Query("student_id"),
		Status:    model.AllocationStatus(c.Query("status")),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, allocs)
}

// GetAllocation handles GET /api/allocations/:id.
func (h *Handler) GetAllocation(c *gin.Context) {
	alloc, err := h.engine.GetAllocation(c.Request.Context(), scopeFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, alloc)
}

type respondRequest struct {
	Response model.StudentResponse `json:"response" binding:"required"`
}

// RespondToAllocation handles POST /api/allocations/:id/response. Only the
// student the bed was offered to may answer.
func (h *Handler) RespondToAllocation(c *gin.Context) {
	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	alloc, err := h.engine.RespondToAllocation(c.Request.Context(), scopeFrom(c), c.Param("id"), req.Response)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, alloc)
}

// RunSweep handles POST /api/sweeps.
func (h *Handler) RunSweep(c *gin.Context) {
	if h.sweeper == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "sweeper is not configured"})
		return
	}
	res, err := h.sweeper.SweepOnce(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
