package schemas

import (
	"github.com/xkilldash9x/visa-autofill/internal/answers"
	"github.com/xkilldash9x/visa-autofill/internal/autofill"
)

// -- Local API Messages --

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// AnswersResponse carries the answers for a session in questionnaire order.
type AnswersResponse struct {
	SessionID string       `json:"session_id"`
	Answers   *answers.Map `json:"answers"`
}

// CreateSessionRequest asks for a new questionnaire session.
type CreateSessionRequest struct {
	UserID string `json:"user_id"`
}

// CreateSessionResponse returns the session that is now active.
type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

// FillResponse reports the outcome of a manually triggered pass.
type FillResponse struct {
	Success bool                  `json:"success"`
	Error   string                `json:"error,omitempty"`
	Summary *autofill.PassSummary `json:"summary,omitempty"`
}

// HealthResponse is returned by the health check.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}
