// Package persisttest provides an in-memory persist.Backend for tests.
package persisttest

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/rcliao/chatcore/internal/model"
)

// ErrInjected is returned by operations listed in Backend.Fail.
var ErrInjected = errors.New("persisttest: injected failure")

// Backend keeps everything in maps and records the order of calls.
type Backend struct {
	mu        sync.Mutex
	chats     map[string]model.Chat
	messages  map[string][]model.Message
	tags      map[string]bool
	calls     []string
	failing   map[string]bool
	saveCount map[string]int
	stall     chan struct{}
}

// New returns an empty backend.
func New() *Backend {
	return &Backend{
		chats:     map[string]model.Chat{},
		messages:  map[string][]model.Message{},
		tags:      map[string]bool{},
		failing:   map[string]bool{},
		saveCount: map[string]int{},
	}
}

// Fail makes every later call to op return ErrInjected.
func (b *Backend) Fail(op string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failing[op] = true
}

// Stall makes every later write block until the returned release is called.
// Reads and Calls are unaffected.
func (b *Backend) Stall() (release func()) {
	gate := make(chan struct{})
	b.mu.Lock()
	b.stall = gate
	b.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			b.stall = nil
			b.mu.Unlock()
			close(gate)
		})
	}
}

func (b *Backend) wait() {
	b.mu.Lock()
	gate := b.stall
	b.mu.Unlock()
	if gate != nil {
		<-gate
	}
}

func (b *Backend) record(op string) error {
	b.calls = append(b.calls, op)
	if b.failing[op] {
		return ErrInjected
	}
	return nil
}

// Calls returns the operations seen so far.
func (b *Backend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

// SaveCount reports how many times message id was saved.
func (b *Backend) SaveCount(id string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saveCount[id]
}

// Chat returns the stored summary for id.
func (b *Backend) Chat(id string) (model.Chat, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.chats[id]
	return c, ok
}

// Seed stores chats and messages without recording calls.
func (b *Backend) Seed(chats []model.Chat, msgs []model.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range chats {
		b.chats[c.ID] = c.Clone()
	}
	for _, m := range msgs {
		b.messages[m.ChatID] = append(b.messages[m.ChatID], m.Clone())
	}
}

func (b *Backend) SaveMessage(_ context.Context, m model.Message) error {
	b.wait()
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("save_message"); err != nil {
		return err
	}
	b.saveCount[m.ID]++
	list := b.messages[m.ChatID]
	for i := range list {
		if list[i].ID == m.ID {
			list[i] = m.Clone()
			return nil
		}
	}
	b.messages[m.ChatID] = append(list, m.Clone())
	return nil
}

func (b *Backend) SaveChat(_ context.Context, c model.Chat) error {
	b.wait()
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("save_chat"); err != nil {
		return err
	}
	b.chats[c.ID] = c.Clone()
	return nil
}

func (b *Backend) LoadMessages(_ context.Context, chatID string) ([]model.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("load_messages"); err != nil {
		return nil, err
	}
	out := make([]model.Message, 0, len(b.messages[chatID]))
	for _, m := range b.messages[chatID] {
		out = append(out, m.Clone())
	}
	return out, nil
}

func (b *Backend) LoadChats(_ context.Context) ([]model.Chat, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("load_chats"); err != nil {
		return nil, err
	}
	out := make([]model.Chat, 0, len(b.chats))
	for _, c := range b.chats {
		out = append(out, c.Clone())
	}
	model.SortChats(out)
	return out, nil
}

func (b *Backend) DeleteChat(_ context.Context, chatID string) error {
	b.wait()
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("delete_chat"); err != nil {
		return err
	}
	delete(b.chats, chatID)
	delete(b.messages, chatID)
	return nil
}

func (b *Backend) ClearAllData(_ context.Context) error {
	b.wait()
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("clear_all"); err != nil {
		return err
	}
	b.chats = map[string]model.Chat{}
	b.messages = map[string][]model.Message{}
	b.tags = map[string]bool{}
	return nil
}

func (b *Backend) SaveKnownTag(_ context.Context, tag string) error {
	b.wait()
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("save_known_tag"); err != nil {
		return err
	}
	b.tags[tag] = true
	return nil
}

func (b *Backend) LoadKnownTags(_ context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("load_known_tags"); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(b.tags))
	for t := range b.tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}
