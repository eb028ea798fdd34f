package answers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/visa-autofill/internal/config"
	"github.com/xkilldash9x/visa-autofill/internal/network"
)

// SessionSaver persists the active session id.
type SessionSaver interface {
	SaveSessionID(ctx context.Context, sessionID string) error
}

type createSessionRequest struct {
	UserID string `json:"user_id"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

// SessionService creates questionnaire sessions on the REST backend.
type SessionService struct {
	cfg    config.AnswersConfig
	client *http.Client
	saver  SessionSaver
	logger *zap.Logger
	newID  func() string
}

// NewSessionService returns a SessionService. client and saver may be nil.
func NewSessionService(cfg config.AnswersConfig, client *http.Client, saver SessionSaver, logger *zap.Logger) *SessionService {
	if client == nil {
		client = network.NewClient(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		cfg:    cfg,
		client: client,
		saver:  saver,
		logger: logger.Named("sessions"),
		newID:  func() string { return uuid.NewString() },
	}
}

// CreateSession asks the backend for a new session for userID. When the base URL is not a
// REST backend, or the call fails, a local UUID is used instead. The id is saved either way.
func (s *SessionService) CreateSession(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("answers: user id is required")
	}

	id, err := s.createRemote(ctx, userID)
	if err != nil {
		s.logger.Warn("Remote session creation failed, generating a local session id", zap.Error(err))
		id = s.newID()
	}

	if s.saver != nil {
		if err := s.saver.SaveSessionID(ctx, id); err != nil {
			return id, fmt.Errorf("answers: saving session id: %w", err)
		}
	}
	return id, nil
}

func (s *SessionService) createRemote(ctx context.Context, userID string) (string, error) {
	if ClassifyBaseURL(s.cfg.BaseURL) != config.SourceREST {
		return "", fmt.Errorf("base url %q is not a REST backend", s.cfg.BaseURL)
	}
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	payload, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(createSessionRequest{UserID: userID})
	if err != nil {
		return "", err
	}
	endpoint := joinURL(s.cfg.BaseURL, "wizard", "questionnaire", "sessions")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{URL: endpoint, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", err
	}
	var out createSessionResponse
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decoding session response: %w", err)
	}
	if out.SessionID == "" {
		return "", fmt.Errorf("session response has no session_id")
	}
	return out.SessionID, nil
}
