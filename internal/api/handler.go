package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/engine"
	"hostel-allocation-backend/internal/mw"
	"hostel-allocation-backend/internal/store"
	"hostel-allocation-backend/internal/sweeper"
)

// Sweeper runs one expiry sweep on demand.
type Sweeper interface {
	SweepOnce(ctx context.Context) (sweeper.Result, error)
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	engine        *engine.Engine
	sweeper       Sweeper
	subscriptions store.SubscriptionStore
	webpush       *webpush.Options
	logger        *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(e *engine.Engine, sw Sweeper, subs store.SubscriptionStore, webpushOptions *webpush.Options, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		engine:        e,
		sweeper:       sw,
		subscriptions: subs,
		webpush:       webpushOptions,
		logger:        logger.Named("api"),
	}
}

func scopeFrom(c *gin.Context) engine.Scope {
	return engine.Scope{
		OrganizationID: c.GetString(mw.ContextOrganization),
		ActorID:        c.GetString(mw.ContextActor),
	}
}

var statusByKind = map[apperr.Kind]int{
	apperr.KindValidation:        http.StatusBadRequest,
	apperr.KindInvalidTransition: http.StatusUnprocessableEntity,
	apperr.KindPrecondition:      http.StatusPreconditionFailed,
	apperr.KindConflict:          http.StatusConflict,
	apperr.KindAuthorization:     http.StatusForbidden,
	apperr.KindNotFound:          http.StatusNotFound,
}

// respondError writes err as JSON. Engine errors keep their kind and state
// so clients can tell a retryable conflict from a hard failure.
func (h *Handler) respondError(c *gin.Context, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	body := gin.H{
		"error":     ae.Error(),
		"kind":      ae.Kind,
		"retryable": apperr.Retryable(err),
	}
	if ae.Entity != "" {
		body["entity"] = ae.Entity
	}
	if ae.ID != "" {
		body["id"] = ae.ID
	}
	if ae.Current != "" || ae.Expected != "" {
		body["current"] = ae.Current
		body["expected"] = ae.Expected
	}

	status, ok := statusByKind[ae.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "detail": err.Error()})
}
