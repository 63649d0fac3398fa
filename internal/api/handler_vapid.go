package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type vapidKeyResponse struct {
	PublicKey string `json:"public_key"`
}

// GetVAPIDPublicKey serves the application server key a browser needs
// before it can subscribe. Responds 503 while web push is disabled.
func (h *Handler) GetVAPIDPublicKey(c *gin.Context) {
	if !h.pushEnabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "web push is disabled"})
		return
	}
	c.JSON(http.StatusOK, vapidKeyResponse{PublicKey: h.webpush.VAPIDPublicKey})
}

func (h *Handler) pushEnabled() bool {
	return h.webpush != nil && h.webpush.VAPIDPublicKey != "" && h.webpush.VAPIDPrivateKey != ""
}
