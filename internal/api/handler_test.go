package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hostel-allocation-backend/config"
	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/db"
	"hostel-allocation-backend/internal/engine"
	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/mw"
	"hostel-allocation-backend/internal/store"
	"hostel-allocation-backend/internal/sweeper"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type apiEnv struct {
	store   store.Store
	engine  *engine.Engine
	handler *Handler
	router  *gin.Engine
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	gormDB, err := db.Init(&config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	s := store.NewGormStore(gormDB)
	e := engine.New(s, config.AllocationConfig{DefaultDeadlineDays: 7, MaxOfferAttempts: 3, DefaultPriorityScore: 100}, zap.NewNop())
	serverCfg := config.ServerConfig{RateLimitPerSec: 1000, RateLimitBurst: 1000, CacheTTLSeconds: 30}
	responses := NewResponseCache(serverCfg)
	sw := sweeper.NewService(config.SweeperConfig{Enabled: true, BatchSize: 50}, s, e, nil, zap.NewNop())
	sw.OnRelease(responses.Flush)
	h := NewHandler(e, sw, s, nil, zap.NewNop())
	router := NewRouter(serverCfg, h, responses, zap.NewNop())
	return &apiEnv{store: s, engine: e, handler: h, router: router}
}

func (env *apiEnv) do(router http.Handler, method, path, actor, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(mw.HeaderOrganization, "org-1")
	if actor != "" {
		req.Header.Set(mw.HeaderActor, actor)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestRespondError_StatusMapping(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", apperr.Validation("hostel", "name is required"), http.StatusBadRequest},
		{"invalid transition", apperr.InvalidTransition("application", "a1", "accepted", "verified"), http.StatusUnprocessableEntity},
		{"precondition", apperr.Precondition("bed", "b1", "reserved", "available", "bed is not available"), http.StatusPreconditionFailed},
		{"conflict", apperr.Conflict("bed", "b1", "concurrent update"), http.StatusConflict},
		{"authorization", apperr.Authorization("allocation", "x", "not your offer"), http.StatusForbidden},
		{"not found", apperr.NotFound("bed", "b1"), http.StatusNotFound},
		{"internal", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	h := NewHandler(nil, nil, nil, nil, nil)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/", func(c *gin.Context) { h.respondError(c, tc.err) })
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestRespondError_ConflictIsRetryable(t *testing.T) {
	h := NewHandler(nil, nil, nil, nil, nil)
	r := gin.New()
	r.GET("/", func(c *gin.Context) {
		h.respondError(c, apperr.Conflict("bed", "b1", "concurrent update"))
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	body := decode[map[string]any](t, w)
	assert.Equal(t, "conflict", body["kind"])
	assert.Equal(t, true, body["retryable"])
	assert.Equal(t, "b1", body["id"])
}

func TestRouter_RequiresOrganization(t *testing.T) {
	env := newAPIEnv(t)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/hostels", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_HostelListingCacheFlushedByWrite(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(env.router, http.MethodGet, "/api/hostels", "staff-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]model.Hostel](t, w))

	w = env.do(env.router, http.MethodPost, "/api/hostels", "staff-1", `{"name":"North","declared_capacity":10}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(env.router, http.MethodGet, "/api/hostels", "staff-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.Hostel](t, w), 1)
}

func TestRouter_CreateRoomFromCode(t *testing.T) {
	env := newAPIEnv(t)
	hostel := decode[model.Hostel](t, env.do(env.router, http.MethodPost, "/api/hostels", "staff-1", `{"name":"North"}`))

	w := env.do(env.router, http.MethodPost, "/api/hostels/"+hostel.ID+"/rooms", "staff-1",
		`{"code":"A3#2-15","capacity":2,"room_type":"double"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	room := decode[model.Room](t, w)
	assert.Equal(t, "215", room.RoomNumber)
	assert.Equal(t, 2, room.Floor)
	assert.Len(t, room.Beds, 2)

	w = env.do(env.router, http.MethodPost, "/api/hostels/"+hostel.ID+"/rooms", "staff-1",
		`{"code":"A3#2-15","capacity":2}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(env.router, http.MethodPost, "/api/hostels/"+hostel.ID+"/rooms", "staff-1",
		`{"floor":1,"room_number":"101","capacity":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_BedStatus(t *testing.T) {
	env := newAPIEnv(t)
	ctx := context.Background()
	staff := engine.Scope{OrganizationID: "org-1", ActorID: "staff-1"}
	hostel, err := env.engine.CreateHostel(ctx, staff, engine.HostelSpec{Name: "North"})
	require.NoError(t, err)
	room, err := env.engine.CreateRoom(ctx, staff, hostel.ID, engine.RoomSpec{Floor: 1, RoomNumber: "101", Capacity: 1})
	require.NoError(t, err)
	bedID := room.Beds[0].ID

	w := env.do(env.router, http.MethodPut, "/api/beds/"+bedID+"/status", "staff-1", `{"status":"occupied"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = env.do(env.router, http.MethodPut, "/api/beds/"+bedID+"/status", "staff-1", `{"status":"maintenance"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.BedMaintenance, decode[model.Bed](t, w).Status)

	w = env.do(env.router, http.MethodGet, "/api/beds?hostel_id="+hostel.ID, "staff-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]store.AvailableBed](t, w))

	w = env.do(env.router, http.MethodGet, "/api/beds/"+bedID+"/history", "staff-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.BedHistoryRecord](t, w), 1)

	w = env.do(env.router, http.MethodGet, "/api/beds/does-not-exist/history", "staff-1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_NextCandidateEmpty(t *testing.T) {
	env := newAPIEnv(t)
	hostel := decode[model.Hostel](t, env.do(env.router, http.MethodPost, "/api/hostels", "staff-1", `{"name":"North"}`))

	w := env.do(env.router, http.MethodGet, "/api/hostels/"+hostel.ID+"/waitlist/next", "staff-1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRouter_RunSweep(t *testing.T) {
	env := newAPIEnv(t)
	w := env.do(env.router, http.MethodPost, "/api/sweeps", "staff-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, sweeper.Result{}, decode[sweeper.Result](t, w))
}
