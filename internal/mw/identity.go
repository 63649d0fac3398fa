package mw

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Identity headers set by the upstream gateway after authentication.
const (
	HeaderOrganization = "X-Organization-ID"
	HeaderActor        = "X-Actor-ID"

	ContextOrganization = "organization_id"
	ContextActor        = "actor_id"
)

const maxIdentityLen = 64

// Identity copies the caller's organization and actor from the gateway
// headers into the request context. Requests without an organization are
// rejected; the actor is optional for reads.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		org := strings.TrimSpace(c.GetHeader(HeaderOrganization))
		actor := strings.TrimSpace(c.GetHeader(HeaderActor))
		if org == "" || len(org) > maxIdentityLen || len(actor) > maxIdentityLen {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing or invalid " + HeaderOrganization})
			return
		}
		c.Set(ContextOrganization, org)
		c.Set(ContextActor, actor)
		c.Next()
	}
}
