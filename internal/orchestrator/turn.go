package orchestrator

import (
	"github.com/rcliao/chatcore/internal/model"
	"github.com/rcliao/chatcore/internal/persist"
)

// TurnState is a step of a turn.
type TurnState string

const (
	UserCommitted      TurnState = "user_committed"
	PlaceholderCreated TurnState = "placeholder_created"
	AwaitingRemote     TurnState = "awaiting_remote"
	Resolved           TurnState = "resolved"
	Recovered          TurnState = "recovered"
	Fallback           TurnState = "fallback"
	Persisted          TurnState = "persisted"
	// Failed ends a turn whose error was surfaced as a system message.
	Failed TurnState = "failed"
	// Discarded ends a turn whose reply was dropped under OrphanDrop.
	Discarded TurnState = "discarded"
)

// Turn is the record of one Send. MessageID is the placeholder id, which
// the reply keeps on every path. Message is the final AI message, or the
// system message when the turn failed. Persisted resolves once Message has
// been written.
type Turn struct {
	ChatID      string           `json:"chatId"`
	UserMessage model.Message    `json:"userMessage"`
	MessageID   string           `json:"messageId,omitempty"`
	Message     model.Message    `json:"message"`
	State       TurnState        `json:"state"`
	Trace       []TurnState      `json:"trace"`
	Err         error            `json:"-"`
	Persisted   *persist.Outcome `json:"-"`
}

func (t *Turn) enter(s TurnState) {
	t.State = s
	t.Trace = append(t.Trace, s)
}
