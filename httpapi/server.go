// Package httpapi exposes creation sessions over HTTP.
package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Twynzen/dymensisCDA-sub002/action"
	"github.com/Twynzen/dymensisCDA-sub002/agent"
	"github.com/Twynzen/dymensisCDA-sub002/session"
	"github.com/Twynzen/dymensisCDA-sub002/types"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// SessionResponse carries the session state after an operation. Error is set
// when the operation failed; the snapshot then already holds the message
// shown to the user.
type SessionResponse struct {
	SessionID string           `json:"session_id"`
	Snapshot  session.Snapshot `json:"snapshot"`
	Error     *APIError        `json:"error,omitempty"`
}

type entry struct {
	mu    sync.Mutex
	store *session.Store
}

// Server owns the live sessions. Each session is guarded by its own mutex;
// different sessions proceed in parallel.
type Server struct {
	svc    *agent.Service
	locale types.Locale

	mu       sync.RWMutex
	sessions map[string]*entry
}

func NewServer(svc *agent.Service, locale types.Locale) *Server {
	return &Server{
		svc:      svc,
		locale:   locale,
		sessions: make(map[string]*entry),
	}
}

func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	api := router.Group("/api")
	{
		api.GET("/universes", s.ListUniverses)
		api.POST("/sessions", s.CreateSession)
		api.POST("/resume/:tracking_id", s.ResumeSession)
		api.GET("/sessions/:id", s.GetSession)
		api.DELETE("/sessions/:id", s.DeleteSession)
		api.POST("/sessions/:id/start", s.StartCreation)
		api.POST("/sessions/:id/messages", s.ProcessMessage)
		api.POST("/sessions/:id/universe", s.SelectUniverse)
		api.POST("/sessions/:id/images", s.UploadImage)
		api.POST("/sessions/:id/images/classify", s.ClassifyImage)
		api.POST("/sessions/:id/actions/:type", s.Dispatch)
	}
	return router
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func (s *Server) register(store *session.Store) string {
	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = &entry{store: store}
	s.mu.Unlock()
	return id
}

func (s *Server) lookup(c *gin.Context) (string, *entry, bool) {
	id := c.Param("id")
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		RespondError(c, http.StatusNotFound, "session_not_found", errors.New("session not found"))
	}
	return id, e, ok
}

// withSession runs op under the session lock and writes the resulting snapshot.
func (s *Server) withSession(c *gin.Context, op func(ctx context.Context, store *session.Store) error) {
	id, e, ok := s.lookup(c)
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	err := op(c.Request.Context(), e.store)
	resp := SessionResponse{SessionID: id, Snapshot: e.store.Snapshot()}
	status := http.StatusOK
	if err != nil {
		var code string
		status, code = classify(err)
		resp.Error = &APIError{Message: err.Error(), Code: code}
		slog.Debug("session operation failed", "session_id", id, "status", status, "error", err)
	}
	c.JSON(status, resp)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, agent.ErrBusy):
		return http.StatusConflict, "busy"
	case errors.Is(err, agent.ErrConfirmBlocked):
		return http.StatusUnprocessableEntity, "confirm_blocked"
	case errors.Is(err, agent.ErrUniverseNotFound):
		return http.StatusNotFound, "universe_not_found"
	case errors.Is(err, agent.ErrPersistence):
		return http.StatusBadGateway, "persistence_failed"
	case errors.Is(err, agent.ErrGeneration), errors.Is(err, agent.ErrStreaming):
		return http.StatusBadGateway, "generation_failed"
	case errors.Is(err, agent.ErrNoDraft),
		errors.Is(err, agent.ErrNoActiveFlow),
		errors.Is(err, agent.ErrNoPendingImage),
		errors.Is(err, agent.ErrInvalidImage),
		errors.Is(err, agent.ErrInvalidImageSlot),
		errors.Is(err, agent.ErrUnsupportedTarget):
		return http.StatusBadRequest, "invalid_operation"
	}
	return http.StatusInternalServerError, "internal"
}

type createSessionRequest struct {
	Locale types.Locale     `json:"locale"`
	Target types.TargetType `json:"target"`
}

// POST /api/sessions
func (s *Server) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, http.StatusBadRequest, "bad_request", err)
			return
		}
	}
	locale := s.locale
	if req.Locale != "" {
		locale = req.Locale
	}
	store := session.New(session.WithLocale(locale))
	id := s.register(store)
	slog.Info("session created", "session_id", id, "locale", locale)
	c.Params = append(c.Params, gin.Param{Key: "id", Value: id})
	s.withSession(c, func(ctx context.Context, store *session.Store) error {
		if req.Target == "" {
			return nil
		}
		return s.svc.StartCreation(ctx, store, req.Target)
	})
}

// POST /api/resume/:tracking_id
func (s *Server) ResumeSession(c *gin.Context) {
	store, err := s.svc.Resume(c.Request.Context(), c.Param("tracking_id"), session.WithLocale(s.locale))
	if err != nil {
		if errors.Is(err, session.ErrNoCheckpoint) {
			RespondError(c, http.StatusNotFound, "checkpoint_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	id := s.register(store)
	c.JSON(http.StatusOK, SessionResponse{SessionID: id, Snapshot: store.Snapshot()})
}

// GET /api/sessions/:id
func (s *Server) GetSession(c *gin.Context) {
	s.withSession(c, func(ctx context.Context, store *session.Store) error { return nil })
}

// DELETE /api/sessions/:id
func (s *Server) DeleteSession(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		RespondError(c, http.StatusNotFound, "session_not_found", errors.New("session not found"))
		return
	}
	c.Status(http.StatusNoContent)
}

type startRequest struct {
	Target types.TargetType `json:"target" binding:"required"`
}

// POST /api/sessions/:id/start
func (s *Server) StartCreation(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	s.withSession(c, func(ctx context.Context, store *session.Store) error {
		return s.svc.StartCreation(ctx, store, req.Target)
	})
}

type messageRequest struct {
	Text string `json:"text" binding:"required"`
}

// POST /api/sessions/:id/messages
func (s *Server) ProcessMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	s.withSession(c, func(ctx context.Context, store *session.Store) error {
		return s.svc.ProcessMessage(ctx, store, req.Text)
	})
}

type selectUniverseRequest struct {
	UniverseID string `json:"universe_id" binding:"required"`
}

// POST /api/sessions/:id/universe
func (s *Server) SelectUniverse(c *gin.Context) {
	var req selectUniverseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	s.withSession(c, func(ctx context.Context, store *session.Store) error {
		return s.svc.SelectUniverse(ctx, store, req.UniverseID)
	})
}

// POST /api/sessions/:id/images
// Accepts a multipart "image" file or a raw body with the image content type.
func (s *Server) UploadImage(c *gin.Context) {
	data, mimeType, err := readImage(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	s.withSession(c, func(ctx context.Context, store *session.Store) error {
		return s.svc.UploadImage(ctx, store, data, mimeType)
	})
}

func readImage(c *gin.Context) ([]byte, string, error) {
	if fh, err := c.FormFile("image"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return nil, "", err
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, agent.MaxImageSize+1))
		if err != nil {
			return nil, "", err
		}
		return data, fh.Header.Get("Content-Type"), nil
	}
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, agent.MaxImageSize+1))
	if err != nil {
		return nil, "", err
	}
	return data, c.ContentType(), nil
}

type classifyRequest struct {
	Slot string `json:"slot" binding:"required"`
}

// POST /api/sessions/:id/images/classify
func (s *Server) ClassifyImage(c *gin.Context) {
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	slot, ok := agent.ParseImageSlot(req.Slot)
	if !ok {
		RespondError(c, http.StatusBadRequest, "bad_request", errors.New("unknown image slot"))
		return
	}
	s.withSession(c, func(ctx context.Context, store *session.Store) error {
		return s.svc.ClassifyImage(ctx, store, slot)
	})
}

type dispatchRequest struct {
	Arg string `json:"arg"`
}

// POST /api/sessions/:id/actions/:type
func (s *Server) Dispatch(c *gin.Context) {
	t, err := action.ParseType(c.Param("type"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "unknown_action", err)
		return
	}
	var req dispatchRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, http.StatusBadRequest, "bad_request", err)
			return
		}
	}
	s.withSession(c, func(ctx context.Context, store *session.Store) error {
		return s.svc.Dispatch(ctx, store, t, req.Arg)
	})
}

// GET /api/universes
func (s *Server) ListUniverses(c *gin.Context) {
	universes, err := s.svc.Repository().ListUniverses(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusBadGateway, "persistence_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"universes": universes})
}
