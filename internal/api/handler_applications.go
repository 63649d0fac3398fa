package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hostel-allocation-backend/internal/engine"
	"hostel-allocation-backend/internal/model"
)

// SubmitApplication handles POST /api/applications.
func (h *Handler) SubmitApplication(c *gin.Context) {
	var req engine.ApplicationSpec
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	app, err := h.engine.SubmitApplication(c.Request.Context(), scopeFrom(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

// ListApplications handles GET /api/applications?hostel_id=&status=.
func (h *Handler) ListApplications(c *gin.Context) {
	apps, err := h.engine.ListApplications(c.Request.Context(), scopeFrom(c),
		c.Query("hostel_id"), model.ApplicationStatus(c.Query("status")))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apps)
}

// GetApplication handles GET /api/applications/:id.
func (h *Handler) GetApplication(c *gin.Context) {
	app, err := h.engine.GetApplication(c.Request.Context(), scopeFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

type updateApplicationStatusRequest struct {
	Status        model.ApplicationStatus `json:"status" binding:"required"`
	Remarks       string                  `json:"remarks"`
	PriorityScore *int                    `json:"priority_score"`
}

// UpdateApplicationStatus handles PUT /api/applications/:id/status.
func (h *Handler) UpdateApplicationStatus(c *gin.Context) {
	var req updateApplicationStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	change, err := h.engine.UpdateApplicationStatus(c.Request.Context(), scopeFrom(c),
		c.Param("id"), req.Status, req.Remarks, req.PriorityScore)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, change)
}

type priorityRequest struct {
	PriorityScore *int `json:"priority_score"`
}

// ReopenApplication handles POST /api/applications/:id/reopen.
func (h *Handler) ReopenApplication(c *gin.Context) {
	var req priorityRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		badRequest(c, err)
		return
	}
	change, err := h.engine.ReopenApplication(c.Request.Context(), scopeFrom(c), c.Param("id"), req.PriorityScore)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, change)
}

type offerRequest struct {
	DeadlineDays int `json:"deadline_days"`
}

// OfferNextBed handles POST /api/applications/:id/offer. The response
// carries either the allocation or, when the hostel is full, the waitlist
// entry.
func (h *Handler) OfferNextBed(c *gin.Context) {
	var req offerRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.engine.OfferNextBed(c.Request.Context(), scopeFrom(c), c.Param("id"), req.DeadlineDays)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if res.Allocation != nil {
		c.JSON(http.StatusCreated, res)
		return
	}
	c.JSON(http.StatusAccepted, res)
}

// bindOptionalJSON binds a JSON body when one is sent.
func bindOptionalJSON(c *gin.Context, obj any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(obj)
}
