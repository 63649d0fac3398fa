package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hostel-allocation-backend/internal/engine"
)

// CreateHostel handles POST /api/hostels.
func (h *Handler) CreateHostel(c *gin.Context) {
	var req engine.HostelSpec
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	hostel, err := h.engine.CreateHostel(c.Request.Context(), scopeFrom(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, hostel)
}

// ListHostels handles GET /api/hostels.
func (h *Handler) ListHostels(c *gin.Context) {
	hostels, err := h.engine.ListHostels(c.Request.Context(), scopeFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, hostels)
}

// CreateRoom handles POST /api/hostels/:hostel_id/rooms.
func (h *Handler) CreateRoom(c *gin.Context) {
	var req engine.RoomSpec
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	room, err := h.engine.CreateRoom(c.Request.Context(), scopeFrom(c), c.Param("hostel_id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

// GetOccupancyReport handles GET /api/reports/occupancy.
func (h *Handler) GetOccupancyReport(c *gin.Context) {
	report, err := h.engine.GetOccupancyReport(c.Request.Context(), scopeFrom(c), c.Query("hostel_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
