package advisor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayush/finance-advisor/internal/apperror"
	"github.com/ayush/finance-advisor/internal/models"
)

func newTestClient(url string) *Client {
	return NewClient(ClientConfig{
		BaseURL:     url,
		APIKey:      "sk-test",
		Model:       "claude-3-7-sonnet-20250219",
		MaxTokens:   1000,
		Temperature: 0.7,
		Timeout:     2 * time.Second,
	})
}

func TestClient_Complete(t *testing.T) {
	var got messagesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"content":[{"type":"tool_use","id":"x"},{"type":"text","text":"Build an emergency fund."},{"type":"text","text":"second"}]}`))
	}))
	defer srv.Close()

	text, err := newTestClient(srv.URL+"/").Complete(context.Background(), []models.Message{
		{Role: models.RoleUser, Content: "How much should I save?"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Build an emergency fund.", text)
	assert.Equal(t, "claude-3-7-sonnet-20250219", got.Model)
	assert.Equal(t, 1000, got.MaxTokens)
	assert.InDelta(t, 0.7, got.Temperature, 1e-9)
	assert.Equal(t, []wireMessage{{Role: "user", Content: "How much should I save?"}}, got.Messages)
}

func TestClient_DropsLeadingAssistantTurns(t *testing.T) {
	var got messagesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"content":[{"type":"text","text":"ok"}]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Complete(context.Background(), []models.Message{
		{Role: models.RoleAssistant, Content: "earlier answer"},
		{Role: models.RoleUser, Content: "q2"},
		{Role: models.RoleAssistant, Content: "a2"},
		{Role: models.RoleUser, Content: "q3"},
	})
	require.NoError(t, err)

	require.Len(t, got.Messages, 3)
	assert.Equal(t, "q2", got.Messages[0].Content)
	assert.Equal(t, "user", got.Messages[0].Role)
}

func TestClient_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"server error", http.StatusInternalServerError, `{"error":{"type":"api_error"}}`, "returned 500"},
		{"overloaded", 529, `{"error":{"type":"overloaded_error"}}`, "returned 529"},
		{"no text block", http.StatusOK, `{"content":[]}`, "no text content"},
		{"empty text", http.StatusOK, `{"content":[{"type":"text","text":""}]}`, "no text content"},
		{"malformed body", http.StatusOK, `not json`, "decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL).Complete(context.Background(), []models.Message{{Role: models.RoleUser, Content: "hi"}})
			require.Error(t, err)

			var genErr *GenerationError
			assert.ErrorAs(t, err, &genErr)
			assert.ErrorIs(t, err, apperror.ErrUnavailable)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestClient(srv.URL).Complete(ctx, []models.Message{{Role: models.RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_NoUserMessage(t *testing.T) {
	_, err := newTestClient("http://127.0.0.1:0").Complete(context.Background(), []models.Message{
		{Role: models.RoleAssistant, Content: "hello"},
	})
	assert.ErrorIs(t, err, apperror.ErrUnavailable)
}
