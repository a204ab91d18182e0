package responder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/chatcore/internal/logging"
	"github.com/rcliao/chatcore/internal/model"
)

func newServer(t *testing.T, h http.HandlerFunc) *HTTPResponder {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewHTTPResponder(HTTPOptions{URL: srv.URL, APIKey: "sk-test", Timeout: 5 * time.Second}, logging.Nop())
}

func TestRespondSendsHistoryAndContexts(t *testing.T) {
	var got Request
	var auth string
	r := newServer(t, func(w http.ResponseWriter, req *http.Request) {
		auth = req.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(req.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"response": "Hi!",
			"thinking": {"assumptions": ["user is greeting"], "confidenceLevel": "high",
				"reasoningChain": [{"description": "read"}, {"description": "reply"}]}
		}`))
	})

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	history := []model.Message{model.NewUserMessage("m1", "c1", "Hello", now)}
	ctxs := []model.Context{{ID: "ctx1", Title: "Style guide", Content: "be brief"}}

	resp, err := r.Respond(context.Background(), NewRequest(history, ctxs))
	require.NoError(t, err)
	assert.Equal(t, "Hi!", resp.Response)
	assert.Equal(t, "high", resp.Thinking.ConfidenceLevel)
	require.Len(t, resp.Thinking.Assumptions, 1)
	assert.Equal(t, "user is greeting", resp.Thinking.Assumptions[0].Text)
	assert.Len(t, resp.Thinking.ReasoningChain, 2)

	assert.Equal(t, "Bearer sk-test", auth)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "Hello", got.Messages[0].Content)
	assert.Equal(t, "c1", got.Messages[0].ChatID)
	require.Len(t, got.Contexts, 1)
	assert.Equal(t, "Style guide", got.Contexts[0].Title)
}

func TestRespondMissingThinkingIsEmpty(t *testing.T) {
	r := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"response": "ok", "thinking": "garbage"}`))
	})
	resp, err := r.Respond(context.Background(), Request{})
	require.NoError(t, err)
	assert.Empty(t, resp.Thinking.Assumptions)
	assert.Empty(t, resp.Thinking.ConfidenceLevel)
}

func TestRespondFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"server error", http.StatusInternalServerError, `boom`, ErrRequestFailed},
		{"not json", http.StatusOK, `<html>`, ErrRequestFailed},
		{"error string", http.StatusOK, `{"response": "x", "error": "overloaded"}`, ErrResponderError},
		{"error object", http.StatusOK, `{"error": {"message": "quota"}}`, ErrResponderError},
		{"empty response", http.StatusOK, `{"response": "  "}`, ErrResponderError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := r.Respond(context.Background(), Request{})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRespondNullErrorIsIgnored(t *testing.T) {
	r := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"response": "fine", "error": null}`))
	})
	resp, err := r.Respond(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "fine", resp.Response)
}

func TestRespondUnreachable(t *testing.T) {
	r := NewHTTPResponder(HTTPOptions{URL: "http://127.0.0.1:1", Timeout: time.Second}, logging.Nop())
	_, err := r.Respond(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrRequestFailed)
}

func TestRespondCanceledContext(t *testing.T) {
	r := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"response": "late"}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Respond(ctx, Request{})
	assert.ErrorIs(t, err, ErrRequestFailed)
}

func TestNewRequestDropsThinking(t *testing.T) {
	m := model.NewPlaceholder("a1", "c1", time.Now())
	m.Thinking = &model.ThinkingRecord{}
	req := NewRequest([]model.Message{m}, nil)

	b, err := json.Marshal(req)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "thinking")
	assert.NotNil(t, req.Contexts)
}

func TestFuncAdapter(t *testing.T) {
	var r Responder = Func(func(_ context.Context, req Request) (*Response, error) {
		return &Response{Response: "echo"}, nil
	})
	resp, err := r.Respond(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "echo", resp.Response)
}
