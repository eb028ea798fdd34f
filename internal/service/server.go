// Package service exposes the autofill runtime over a local HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/xkilldash9x/visa-autofill/internal/answers"
	"github.com/xkilldash9x/visa-autofill/internal/autofill"
	"github.com/xkilldash9x/visa-autofill/internal/settings"
)

const (
	requestTimeout  = 60 * time.Second
	shutdownTimeout = 10 * time.Second
)

var (
	// ErrNoPage is returned by fill requests when no page is attached.
	ErrNoPage = errors.New("no page attached")
	// ErrNoSession is returned when neither the request nor the settings name a session.
	ErrNoSession = errors.New("no session id")
)

// AnswersLoader loads the answers for a session. It never fails.
type AnswersLoader interface {
	LoadAnswers(ctx context.Context, sessionID string) *answers.Map
}

// SessionCreator creates and saves a session.
type SessionCreator interface {
	CreateSession(ctx context.Context, userID string) (string, error)
}

// SettingsStore reads and updates the persisted settings.
type SettingsStore interface {
	Get() settings.Settings
	Update(p settings.Patch) (settings.Settings, error)
}

// PassRunner runs one fill pass on demand.
type PassRunner interface {
	RunPass(ctx context.Context) (autofill.PassSummary, error)
}

// Deps are the collaborators behind the API. Runner may be nil and attached later.
type Deps struct {
	Answers  AnswersLoader
	Sessions SessionCreator
	Settings SettingsStore
	Runner   PassRunner
	Version  string
}

// Server is the local API.
type Server struct {
	deps   Deps
	logger *zap.Logger

	mu     sync.RWMutex
	runner PassRunner
}

// New validates deps and returns a Server.
func New(deps Deps, logger *zap.Logger) (*Server, error) {
	if deps.Answers == nil || deps.Sessions == nil || deps.Settings == nil {
		return nil, fmt.Errorf("service: answers, sessions and settings are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{deps: deps, runner: deps.Runner, logger: logger.Named("service")}, nil
}

// Attach sets the pass runner used by fill requests. nil detaches.
func (s *Server) Attach(r PassRunner) {
	s.mu.Lock()
	s.runner = r
	s.mu.Unlock()
}

func (s *Server) currentRunner() PassRunner {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runner
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	s.registerRoutes(r)
	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("service: listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API listening", zap.String("address", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("service: shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
