// Package timeline owns the in-memory chat state: the per-chat message
// sequences, the chat index derived from them, and the tag index.
//
// A Timeline is constructed explicitly and handed to whatever needs it; there
// is no package-level instance. Every mutation runs to completion under the
// timeline's lock and then queues a write on the persist.Writer, so in-memory
// state is visible before, and independent of, durable storage.
package timeline

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rcliao/chatcore/internal/ids"
	"github.com/rcliao/chatcore/internal/logging"
	"github.com/rcliao/chatcore/internal/model"
	"github.com/rcliao/chatcore/internal/persist"
)

var (
	ErrChatNotFound      = errors.New("chat not found")
	ErrMessageNotFound   = errors.New("message not found")
	ErrMessageDelivered  = errors.New("message already delivered")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrDuplicateMessage  = errors.New("duplicate message id in chat")
	ErrInvalidMessage    = errors.New("invalid message")
	ErrEmptyTag          = errors.New("tag is empty")
)

// Timeline is the single owner of chats, messages and tags.
type Timeline struct {
	mu sync.RWMutex

	chats     map[string]*model.Chat
	messages  map[string][]model.Message
	knownTags map[string]bool
	filter    []string
	selection map[string]bool
	typing    map[string]bool
	loading   int
	active    string

	writer *persist.Writer
	ids    ids.Generator
	log    *logging.Logger
	now    func() time.Time
}

// New returns an empty timeline that persists through w.
func New(w *persist.Writer, gen ids.Generator, log *logging.Logger) *Timeline {
	t := &Timeline{
		writer: w,
		ids:    gen,
		log:    log,
		now:    time.Now,
	}
	t.resetLocked()
	return t
}

func (t *Timeline) resetLocked() {
	t.chats = map[string]*model.Chat{}
	t.messages = map[string][]model.Message{}
	t.knownTags = map[string]bool{}
	t.filter = nil
	t.selection = map[string]bool{}
	t.typing = map[string]bool{}
	t.loading = 0
	t.active = ""
}

// Reset drops all in-memory state without touching storage. Used on logout.
func (t *Timeline) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked()
}

// ClearAll drops all in-memory state and erases storage.
func (t *Timeline) ClearAll() *persist.Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked()
	t.log.Info("all chat data cleared")
	// Queued under the lock so a chat created right after survives the erase.
	return t.writer.ClearAllData()
}

// Snapshot is a read-only copy of the state a UI renders from.
type Snapshot struct {
	Chats      []model.Chat               `json:"chats"`
	Messages   map[string][]model.Message `json:"messages"`
	Typing     map[string]bool            `json:"typing"`
	Loading    bool                       `json:"loading"`
	Filter     []string                   `json:"filter"`
	Selection  []string                   `json:"selection"`
	KnownTags  []string                   `json:"knownTags"`
	ActiveChat string                     `json:"activeChat,omitempty"`
}

// Snapshot copies the current read surface.
func (t *Timeline) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := Snapshot{
		Chats:      t.chatsLocked(),
		Messages:   make(map[string][]model.Message, len(t.messages)),
		Typing:     map[string]bool{},
		Loading:    t.loading > 0,
		Filter:     append([]string{}, t.filter...),
		Selection:  sortedKeys(t.selection),
		KnownTags:  sortedKeys(t.knownTags),
		ActiveChat: t.active,
	}
	for id, msgs := range t.messages {
		s.Messages[id] = cloneMessages(msgs)
	}
	for id, on := range t.typing {
		if on {
			s.Typing[id] = true
		}
	}
	return s
}

// SetTyping marks whether an AI reply is pending in chatID.
func (t *Timeline) SetTyping(chatID string, on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if on {
		t.typing[chatID] = true
	} else {
		delete(t.typing, chatID)
	}
}

// IsTyping reports whether an AI reply is pending in chatID.
func (t *Timeline) IsTyping(chatID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.typing[chatID]
}

// Loading reports whether a load from storage is in progress.
func (t *Timeline) Loading() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.loading > 0
}

// ToggleSelection flips whether messageID is selected and returns the new
// state. Unknown ids are never selected.
func (t *Timeline) ToggleSelection(messageID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.selection[messageID] {
		delete(t.selection, messageID)
		return false
	}
	if _, _, ok := t.locateLocked(messageID); !ok {
		return false
	}
	t.selection[messageID] = true
	return true
}

// ClearSelection deselects every message.
func (t *Timeline) ClearSelection() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.selection = map[string]bool{}
}

// NewID mints an identifier from the timeline's generator.
func (t *Timeline) NewID() string {
	return t.ids.NewID()
}

// Now returns the timeline's clock reading.
func (t *Timeline) Now() time.Time {
	return t.now()
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		if v {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func cloneMessages(msgs []model.Message) []model.Message {
	out := make([]model.Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}
