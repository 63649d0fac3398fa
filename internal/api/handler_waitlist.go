package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetWaitlist handles GET /api/hostels/:hostel_id/waitlist.
func (h *Handler) GetWaitlist(c *gin.Context) {
	entries, err := h.engine.GetWaitlist(c.Request.Context(), scopeFrom(c), c.Param("hostel_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

type enqueueRequest struct {
	ApplicationID string `json:"application_id" binding:"required"`
	PriorityScore *int   `json:"priority_score"`
}

// Enqueue handles POST /api/hostels/:hostel_id/waitlist.
func (h *Handler) Enqueue(c *gin.Context) {
	var req enqueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	entry, err := h.engine.Enqueue(c.Request.Context(), scopeFrom(c), req.ApplicationID, c.Param("hostel_id"), req.PriorityScore)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// NextCandidate handles GET /api/hostels/:hostel_id/waitlist/next.
func (h *Handler) NextCandidate(c *gin.Context) {
	entry, err := h.engine.NextCandidate(c.Request.Context(), scopeFrom(c), c.Param("hostel_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if entry == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// RemoveWaitlistEntry handles DELETE /api/waitlist/:entry_id?reason=.
func (h *Handler) RemoveWaitlistEntry(c *gin.Context) {
	entry, err := h.engine.RemoveWaitlistEntry(c.Request.Context(), scopeFrom(c), c.Param("entry_id"), c.Query("reason"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}
