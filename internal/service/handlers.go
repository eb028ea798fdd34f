package service

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/visa-autofill/api/schemas"
	"github.com/xkilldash9x/visa-autofill/internal/autofill"
	"github.com/xkilldash9x/visa-autofill/internal/settings"
)

const maxBodyBytes = 64 << 10

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func (s *Server) registerRoutes(r chi.Router) {
	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/answers", s.handleGetAnswers)
		r.Post("/sessions", s.handleCreateSession)
		r.Get("/config", s.handleGetConfig)
		r.Put("/config", s.handlePutConfig)
		r.Post("/fill", s.handleFill)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, http.StatusOK, schemas.HealthResponse{Status: "ok", Version: s.deps.Version})
}

// handleGetAnswers loads answers for the requested session, falling back to
// the saved one.
func (s *Server) handleGetAnswers(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		sessionID = s.deps.Settings.Get().SessionID
	}
	if sessionID == "" {
		s.respondError(w, r, http.StatusBadRequest, ErrNoSession)
		return
	}

	m := s.deps.Answers.LoadAnswers(r.Context(), sessionID)
	s.respond(w, r, http.StatusOK, schemas.AnswersResponse{SessionID: sessionID, Answers: m})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req schemas.CreateSessionRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		s.respondError(w, r, http.StatusBadRequest, errors.New("user_id is required"))
		return
	}

	id, err := s.deps.Sessions.CreateSession(r.Context(), req.UserID)
	if err != nil {
		s.logger.Error("Session creation failed", zap.Error(err))
		s.respondError(w, r, http.StatusInternalServerError, err)
		return
	}
	s.respond(w, r, http.StatusCreated, schemas.CreateSessionResponse{SessionID: id})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, http.StatusOK, s.deps.Settings.Get())
}

func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var patch settings.Patch
	if !s.decode(w, r, &patch) {
		return
	}
	updated, err := s.deps.Settings.Update(patch)
	if err != nil {
		s.logger.Error("Saving settings failed", zap.Error(err))
		s.respondError(w, r, http.StatusInternalServerError, err)
		return
	}
	s.respond(w, r, http.StatusOK, updated)
}

// handleFill runs one pass and reports it. Pass failures are reported in the
// body with success=false.
func (s *Server) handleFill(w http.ResponseWriter, r *http.Request) {
	runner := s.currentRunner()
	if runner == nil {
		s.respond(w, r, http.StatusServiceUnavailable, schemas.FillResponse{Error: ErrNoPage.Error()})
		return
	}

	summary, err := runner.RunPass(r.Context())
	switch {
	case errors.Is(err, autofill.ErrBusy):
		s.respond(w, r, http.StatusConflict, schemas.FillResponse{Error: err.Error()})
	case err != nil:
		s.respond(w, r, http.StatusOK, schemas.FillResponse{Error: err.Error(), Summary: &summary})
	default:
		s.respond(w, r, http.StatusOK, schemas.FillResponse{Success: true, Summary: &summary})
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		s.respondError(w, r, http.StatusBadRequest, errors.New("invalid request body"))
		return false
	}
	return true
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, err error) {
	s.respond(w, r, status, schemas.ErrorResponse{Error: err.Error()})
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to encode response",
			zap.Error(err),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	}
}
