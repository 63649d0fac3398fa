package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hostel-allocation-backend/internal/model"
)

// GetAvailableBeds handles GET /api/beds?hostel_id=&room_type=.
func (h *Handler) GetAvailableBeds(c *gin.Context) {
	beds, err := h.engine.GetAvailableBeds(c.Request.Context(), scopeFrom(c), c.Query("hostel_id"), c.Query("room_type"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, beds)
}

type setBedStatusRequest struct {
	Status model.BedStatus `json:"status" binding:"required"`
}

// SetBedStatus handles PUT /api/beds/:bed_id/status.
func (h *Handler) SetBedStatus(c *gin.Context) {
	var req setBedStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	bed, err := h.engine.SetBedStatus(c.Request.Context(), scopeFrom(c), c.Param("bed_id"), req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bed)
}

// GetBedHistory handles GET /api/beds/:bed_id/history.
func (h *Handler) GetBedHistory(c *gin.Context) {
	records, err := h.engine.GetBedHistory(c.Request.Context(), scopeFrom(c), c.Param("bed_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}
