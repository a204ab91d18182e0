package responder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/rcliao/chatcore/internal/logging"
	"github.com/rcliao/chatcore/internal/thinking"
)

const (
	defaultTimeout = 60 * time.Second
	maxErrorBody   = 4 << 10
)

// HTTPOptions configures an HTTPResponder.
type HTTPOptions struct {
	URL    string
	APIKey string
	// Timeout bounds one round trip. Zero means 60s.
	Timeout time.Duration
	// RequestsPerMinute throttles outgoing calls. Zero or less disables it.
	RequestsPerMinute int
}

// HTTPResponder posts a Request as JSON and decodes the reply.
type HTTPResponder struct {
	url     string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	log     *logging.Logger
}

// NewHTTPResponder creates a responder for opts.URL.
func NewHTTPResponder(opts HTTPOptions, log *logging.Logger) *HTTPResponder {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	limit := rate.Inf
	if opts.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(opts.RequestsPerMinute) / 60)
	}
	return &HTTPResponder{
		url:     opts.URL,
		apiKey:  opts.APIKey,
		client:  &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(limit, 1),
		log:     log,
	}
}

type wireResponse struct {
	Response string          `json:"response"`
	Thinking json.RawMessage `json:"thinking"`
	Error    json.RawMessage `json:"error"`
}

func (h *HTTPResponder) Respond(ctx context.Context, req Request) (*Response, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit: %v", ErrRequestFailed, err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if h.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	start := time.Now()
	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: status %d: %s", ErrRequestFailed, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var wire wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("%w: decode reply: %v", ErrRequestFailed, err)
	}
	if msg := errorText(wire.Error); msg != "" {
		return nil, fmt.Errorf("%w: %s", ErrResponderError, msg)
	}
	if strings.TrimSpace(wire.Response) == "" {
		return nil, fmt.Errorf("%w: empty response", ErrResponderError)
	}

	h.log.Debug("responder replied", "messages", len(req.Messages), "contexts", len(req.Contexts), "elapsed", time.Since(start))
	return &Response{
		Response: wire.Response,
		Thinking: thinking.Parse(wire.Thinking),
	}, nil
}

// errorText extracts a message from an error field that may be a string, an
// object with a message, or anything else non-empty.
func errorText(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	switch s {
	case "", "null", "false", `""`, "{}":
		return ""
	}
	var str string
	if json.Unmarshal(raw, &str) == nil {
		return str
	}
	var obj struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &obj) == nil && obj.Message != "" {
		return obj.Message
	}
	return s
}
