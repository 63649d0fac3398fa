package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"hostel-allocation-backend/internal/model"
)

type putSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	P256DH   string `json:"p256dh" binding:"required"`
	Auth     string `json:"auth" binding:"required"`
}

// PutSubscription registers or replaces the caller's push endpoint.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	recipient := scopeFrom(c).ActorID
	if recipient == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "actor is required"})
		return
	}

	sub := &model.PushSubscription{
		Endpoint:    req.Endpoint,
		RecipientID: recipient,
		P256DH:      req.P256DH,
		Auth:        req.Auth,
	}
	if err := h.subscriptions.UpsertSubscription(c.Request.Context(), sub); err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusCreated)
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription removes one of the caller's own endpoints.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	deleted, err := h.subscriptions.DeleteRecipientSubscription(c.Request.Context(), scopeFrom(c).ActorID, req.Endpoint)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		return
	}

	c.Status(http.StatusNoContent)
}

func rawQueryParam(rawQuery, key string) (string, bool) {
	for _, kv := range strings.Split(rawQuery, "&") {
		if strings.HasPrefix(kv, key+"=") {
			return kv[len(key)+1:], true // endpoints are matched undecoded
		}
	}
	return "", false
}

// GetSubscription reports which recipient an endpoint is registered to.
func (h *Handler) GetSubscription(c *gin.Context) {
	raw, ok := rawQueryParam(c.Request.URL.RawQuery, "endpoint")
	if !ok || raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endpoint is required"})
		return
	}

	sub, err := h.subscriptions.GetSubscription(c.Request.Context(), raw)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if sub.RecipientID != scopeFrom(c).ActorID {
		c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"endpoint": sub.Endpoint, "recipient_id": sub.RecipientID, "created_at": sub.CreatedAt})
}
