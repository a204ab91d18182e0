// Package responder is the client side of the remote AI responder: one
// request carrying the chat history and attached contexts, one reply
// carrying the answer and its thinking payload.
package responder

import (
	"context"
	"errors"
	"time"

	"github.com/rcliao/chatcore/internal/model"
	"github.com/rcliao/chatcore/internal/thinking"
)

var (
	// ErrRequestFailed covers transport failures and non-2xx replies.
	ErrRequestFailed = errors.New("responder request failed")
	// ErrResponderError covers replies that carry an error field or no answer.
	ErrResponderError = errors.New("responder returned an error")
)

// Responder produces an AI reply for a chat history.
type Responder interface {
	Respond(ctx context.Context, req Request) (*Response, error)
}

// Func adapts a plain function to Responder.
type Func func(ctx context.Context, req Request) (*Response, error)

func (f Func) Respond(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// WireMessage is the shape of one prior message on the wire. Thinking data
// never travels back to the responder.
type WireMessage struct {
	ID        string       `json:"id"`
	ChatID    string       `json:"chatId"`
	Content   string       `json:"content"`
	Role      model.Role   `json:"role"`
	Timestamp time.Time    `json:"timestamp"`
	Status    model.Status `json:"status"`
}

// Request is the responder input.
type Request struct {
	Messages []WireMessage   `json:"messages"`
	Contexts []model.Context `json:"contexts"`
}

// Response is the responder output after boundary validation.
type Response struct {
	Response string       `json:"response"`
	Thinking thinking.Raw `json:"thinking"`
}

// NewRequest builds a request from history in timeline order.
func NewRequest(history []model.Message, contexts []model.Context) Request {
	req := Request{
		Messages: make([]WireMessage, 0, len(history)),
		Contexts: make([]model.Context, 0, len(contexts)),
	}
	for _, m := range history {
		req.Messages = append(req.Messages, WireMessage{
			ID:        m.ID,
			ChatID:    m.ChatID,
			Content:   m.Content,
			Role:      m.Role,
			Timestamp: m.Timestamp,
			Status:    m.Status,
		})
	}
	req.Contexts = append(req.Contexts, contexts...)
	return req
}
