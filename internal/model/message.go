package model

import "time"

// Role identifies who authored a message.
type Role string

const (
	RoleUser   Role = "user"
	RoleAI     Role = "ai"
	RoleSystem Role = "system"
)

// Status is the delivery state of a message. The only legal transition is
// StatusSending -> StatusDelivered.
type Status string

const (
	StatusSending   Status = "sending"
	StatusDelivered Status = "delivered"
)

// ValidRoles are the allowed message roles.
var ValidRoles = map[Role]bool{
	RoleUser:   true,
	RoleAI:     true,
	RoleSystem: true,
}

// ValidStatuses are the allowed message statuses.
var ValidStatuses = map[Status]bool{
	StatusSending:   true,
	StatusDelivered: true,
}

// Message is a single entry in a chat timeline.
type Message struct {
	ID        string          `json:"id"`
	ChatID    string          `json:"chatId"`
	Content   string          `json:"content"`
	Role      Role            `json:"role"`
	Timestamp time.Time       `json:"timestamp"`
	Status    Status          `json:"status"`
	Thinking  *ThinkingRecord `json:"thinking,omitempty"`
}

// NewUserMessage builds a user message in the sending state.
func NewUserMessage(id, chatID, content string, now time.Time) Message {
	return Message{
		ID:        id,
		ChatID:    chatID,
		Content:   content,
		Role:      RoleUser,
		Timestamp: now,
		Status:    StatusSending,
	}
}

// NewPlaceholder builds an empty AI message awaiting the responder.
func NewPlaceholder(id, chatID string, now time.Time) Message {
	return Message{
		ID:        id,
		ChatID:    chatID,
		Role:      RoleAI,
		Timestamp: now,
		Status:    StatusSending,
	}
}

// NewSystemMessage builds a delivered system message.
func NewSystemMessage(id, chatID, content string, now time.Time) Message {
	return Message{
		ID:        id,
		ChatID:    chatID,
		Content:   content,
		Role:      RoleSystem,
		Timestamp: now,
		Status:    StatusDelivered,
	}
}

// IsPlaceholder reports whether m is an AI message still waiting for content.
func (m Message) IsPlaceholder() bool {
	return m.Role == RoleAI && m.Status == StatusSending
}

// Clone returns a deep copy so callers cannot mutate store-owned state.
func (m Message) Clone() Message {
	if m.Thinking != nil {
		t := m.Thinking.Clone()
		m.Thinking = &t
	}
	return m
}
