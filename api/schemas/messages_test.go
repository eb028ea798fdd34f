package schemas_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/visa-autofill/api/schemas"
	"github.com/xkilldash9x/visa-autofill/internal/answers"
	"github.com/xkilldash9x/visa-autofill/internal/autofill"
)

// TestJSONTags pins the field names the local API clients depend on.
func TestJSONTags(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name     string
		value    interface{}
		expected string
	}{
		{"error", schemas.ErrorResponse{Error: "no session id"}, `{"error":"no session id"}`},
		{"answers", schemas.AnswersResponse{SessionID: "s1", Answers: answers.FromPairs("B question", "2", "A question", "1")},
			`{"session_id":"s1","answers":{"b question":"2","a question":"1"}}`},
		{"create session", schemas.CreateSessionRequest{UserID: "u1"}, `{"user_id":"u1"}`},
		{"session created", schemas.CreateSessionResponse{SessionID: "s1"}, `{"session_id":"s1"}`},
		{"fill failure", schemas.FillResponse{Error: "no page attached"}, `{"success":false,"error":"no page attached"}`},
		{"health", schemas.HealthResponse{Status: "ok"}, `{"status":"ok"}`},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			b, err := json.Marshal(tc.value)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, string(b))
		})
	}
}

func TestFillResponseFlattensSummary(t *testing.T) {
	summary := autofill.PassSummary{Trigger: autofill.TriggerManual, Status: "Auto-filled 3 fields"}
	summary.Filled = 3
	b, err := json.Marshal(schemas.FillResponse{Success: true, Summary: &summary})
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &decoded))
	inner, ok := decoded["summary"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(3), inner["filled"])
	assert.Equal(t, "manual", inner["trigger"])
}
