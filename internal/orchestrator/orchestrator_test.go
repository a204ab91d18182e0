package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/chatcore/internal/ids"
	"github.com/rcliao/chatcore/internal/logging"
	"github.com/rcliao/chatcore/internal/model"
	"github.com/rcliao/chatcore/internal/persist"
	"github.com/rcliao/chatcore/internal/persist/persisttest"
	"github.com/rcliao/chatcore/internal/responder"
	"github.com/rcliao/chatcore/internal/thinking"
	"github.com/rcliao/chatcore/internal/timeline"
)

type harness struct {
	tl      *timeline.Timeline
	backend *persisttest.Backend
	writer  *persist.Writer
	chatID  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	b := persisttest.New()
	w := persist.NewWriter(b, logging.Nop(), persist.WriterOptions{})
	t.Cleanup(w.Close)
	tl := timeline.New(w, ids.NewULID(), logging.Nop())
	return &harness{tl: tl, backend: b, writer: w, chatID: tl.CreateChat("", nil).ID}
}

func (h *harness) orchestrator(r responder.Func, policy OrphanPolicy) *Orchestrator {
	return New(h.tl, h.writer, r, logging.Nop(), Options{OrphanPolicy: policy})
}

func reply(content string, raw thinking.Raw) responder.Func {
	return func(context.Context, responder.Request) (*responder.Response, error) {
		return &responder.Response{Response: content, Thinking: raw}, nil
	}
}

func countID(msgs []model.Message, id string) int {
	n := 0
	for _, m := range msgs {
		if m.ID == id {
			n++
		}
	}
	return n
}

func TestSendHappyPath(t *testing.T) {
	h := newHarness(t)
	var seen responder.Request
	var typing bool
	o := h.orchestrator(func(_ context.Context, req responder.Request) (*responder.Response, error) {
		seen = req
		typing = h.tl.IsTyping(h.chatID)
		return &responder.Response{Response: "Hi! How can I help?", Thinking: thinking.Raw{
			ConfidenceLevel: "high",
			ReasoningChain:  []thinking.RawStep{{Description: "greet"}, {Description: "offer help"}, {Description: "wait"}},
		}}, nil
	}, OrphanDrop)

	turn, err := o.Send(context.Background(), h.chatID, "Hello", nil)
	require.NoError(t, err)
	require.NoError(t, turn.Persisted.Wait(context.Background()))

	assert.Equal(t, []TurnState{UserCommitted, PlaceholderCreated, AwaitingRemote, Resolved, Persisted}, turn.Trace)
	assert.Equal(t, Persisted, turn.State)

	msgs := h.tl.Messages(h.chatID)
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, "Hello", msgs[0].Content)
	assert.Equal(t, model.StatusDelivered, msgs[0].Status)

	ai := msgs[1]
	assert.Equal(t, turn.MessageID, ai.ID)
	assert.Equal(t, model.RoleAI, ai.Role)
	assert.Equal(t, model.StatusDelivered, ai.Status)
	assert.NotEmpty(t, ai.Content)
	require.NotNil(t, ai.Thinking)
	for i, step := range ai.Thinking.ReasoningChain {
		assert.Equal(t, i+1, step.Step)
	}
	assert.Len(t, ai.Thinking.ReasoningChain, 3)

	require.Len(t, seen.Messages, 1, "placeholder must not be sent")
	assert.Equal(t, "Hello", seen.Messages[0].Content)
	assert.True(t, typing)
	assert.False(t, h.tl.IsTyping(h.chatID))

	require.NoError(t, h.writer.Flush(context.Background()))
	assert.Equal(t, 1, h.backend.SaveCount(ai.ID))
	assert.Equal(t, 1, h.backend.SaveCount(msgs[0].ID))

	chat, _ := h.tl.Chat(h.chatID)
	assert.Equal(t, "Hello", chat.Title)
	assert.Equal(t, ai.ID, chat.LastMessage.ID)
}

func TestSendResponderFailureFallsBack(t *testing.T) {
	h := newHarness(t)
	o := h.orchestrator(func(context.Context, responder.Request) (*responder.Response, error) {
		return nil, responder.ErrRequestFailed
	}, OrphanDrop)

	turn, err := o.Send(context.Background(), h.chatID, "Hello", nil)
	require.NoError(t, err)
	require.NoError(t, turn.Persisted.Wait(context.Background()))

	assert.Equal(t, []TurnState{UserCommitted, PlaceholderCreated, AwaitingRemote, Fallback, Persisted}, turn.Trace)
	ai, ok := h.tl.Find(turn.MessageID)
	require.True(t, ok)
	assert.Equal(t, FallbackContent, ai.Content)
	assert.Equal(t, model.StatusDelivered, ai.Status)
	require.NotNil(t, ai.Thinking)
	assert.Equal(t, model.ConfidenceLow, ai.Thinking.ConfidenceLevel)
	assert.Equal(t, 1, h.backend.SaveCount(ai.ID))
}

func TestSendNilResponseFallsBack(t *testing.T) {
	h := newHarness(t)
	o := h.orchestrator(func(context.Context, responder.Request) (*responder.Response, error) {
		return nil, nil
	}, OrphanDrop)

	turn, err := o.Send(context.Background(), h.chatID, "Hello", nil)
	require.NoError(t, err)
	assert.Equal(t, Persisted, turn.State)
	assert.Equal(t, FallbackContent, turn.Message.Content)
}

func TestSendRecoversLostPlaceholder(t *testing.T) {
	h := newHarness(t)
	o := h.orchestrator(func(ctx context.Context, req responder.Request) (*responder.Response, error) {
		// A history reload from storage lands while the call is in flight.
		require.NoError(t, h.writer.Flush(ctx))
		require.NoError(t, h.tl.Activate(ctx, h.chatID))
		return &responder.Response{Response: "late answer", Thinking: thinking.Raw{
			Assumptions: []thinking.RawAssumption{{Text: "x"}},
		}}, nil
	}, OrphanDrop)

	turn, err := o.Send(context.Background(), h.chatID, "Hello", nil)
	require.NoError(t, err)
	require.NoError(t, turn.Persisted.Wait(context.Background()))

	assert.Contains(t, turn.Trace, Recovered)
	assert.Equal(t, Persisted, turn.State)

	msgs := h.tl.Messages(h.chatID)
	assert.Equal(t, 1, countID(msgs, turn.MessageID))
	ai, ok := h.tl.Find(turn.MessageID)
	require.True(t, ok)
	assert.Equal(t, model.StatusDelivered, ai.Status)
	assert.Equal(t, "late answer", ai.Content)
	require.NotNil(t, ai.Thinking)
	require.Len(t, ai.Thinking.Assumptions, 1)
	assert.Equal(t, thinking.ItemID(turn.MessageID, "assumption", 0), ai.Thinking.Assumptions[0].ID)
	assert.Equal(t, 1, h.backend.SaveCount(turn.MessageID))
}

func TestOneReplyCountsOnceUnread(t *testing.T) {
	answer := reply("answer", thinking.Raw{})
	cases := map[string]struct {
		respond func(t *testing.T, h *harness) responder.Func
		state   TurnState
	}{
		"resolved": {
			respond: func(*testing.T, *harness) responder.Func { return answer },
			state:   Resolved,
		},
		"recovered": {
			respond: func(t *testing.T, h *harness) responder.Func {
				return func(ctx context.Context, req responder.Request) (*responder.Response, error) {
					// Reload without the placeholder, leaving the chat inactive.
					require.NoError(t, h.tl.ReplaceAll(h.chatID, h.tl.Messages(h.chatID)[:1]))
					return answer(ctx, req)
				}
			},
			state: Recovered,
		},
		"fallback": {
			respond: func(*testing.T, *harness) responder.Func {
				return func(context.Context, responder.Request) (*responder.Response, error) {
					return nil, responder.ErrRequestFailed
				}
			},
			state: Fallback,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			require.Empty(t, h.tl.ActiveChat())
			o := h.orchestrator(tc.respond(t, h), OrphanDrop)

			turn, err := o.Send(context.Background(), h.chatID, "Hello", nil)
			require.NoError(t, err)
			require.Contains(t, turn.Trace, tc.state)
			require.NoError(t, h.writer.Flush(context.Background()))

			chat, _ := h.tl.Chat(h.chatID)
			assert.Equal(t, 1, chat.UnreadCount)
			stored, _ := h.backend.Chat(h.chatID)
			assert.Equal(t, 1, stored.UnreadCount)
		})
	}
}

func TestSendOrphanDropped(t *testing.T) {
	h := newHarness(t)
	o := h.orchestrator(func(context.Context, responder.Request) (*responder.Response, error) {
		_, err := h.tl.DeleteChat(h.chatID)
		require.NoError(t, err)
		return &responder.Response{Response: "nobody listens"}, nil
	}, OrphanDrop)

	turn, err := o.Send(context.Background(), h.chatID, "Hello", nil)
	require.NoError(t, err)
	assert.Equal(t, Discarded, turn.State)
	assert.Nil(t, turn.Persisted)

	_, ok := h.tl.Chat(h.chatID)
	assert.False(t, ok)
	_, ok = h.tl.Find(turn.MessageID)
	assert.False(t, ok)

	require.NoError(t, h.writer.Flush(context.Background()))
	assert.Zero(t, h.backend.SaveCount(turn.MessageID))
}

func TestSendOrphanResurrected(t *testing.T) {
	h := newHarness(t)
	o := h.orchestrator(func(context.Context, responder.Request) (*responder.Response, error) {
		_, err := h.tl.DeleteChat(h.chatID)
		require.NoError(t, err)
		return &responder.Response{Response: "still here"}, nil
	}, OrphanResurrect)

	turn, err := o.Send(context.Background(), h.chatID, "Hello", nil)
	require.NoError(t, err)
	require.NoError(t, turn.Persisted.Wait(context.Background()))
	assert.Contains(t, turn.Trace, Recovered)

	chat, ok := h.tl.Chat(h.chatID)
	require.True(t, ok)
	assert.Equal(t, RecoveredChatTitle, chat.Title)
	msgs := h.tl.Messages(h.chatID)
	require.Len(t, msgs, 1)
	assert.Equal(t, turn.MessageID, msgs[0].ID)
	assert.Equal(t, turn.MessageID, chat.LastMessage.ID)

	stored, ok := h.backend.Chat(h.chatID)
	require.True(t, ok)
	assert.Equal(t, RecoveredChatTitle, stored.Title)
	assert.Equal(t, 1, h.backend.SaveCount(turn.MessageID))
}

func TestSendPanicSurfacesSystemMessage(t *testing.T) {
	h := newHarness(t)
	o := h.orchestrator(func(context.Context, responder.Request) (*responder.Response, error) {
		panic("decoder exploded")
	}, OrphanDrop)

	turn, err := o.Send(context.Background(), h.chatID, "Hello", nil)
	require.NoError(t, err)
	assert.Equal(t, Failed, turn.State)
	require.Error(t, turn.Err)
	assert.NotContains(t, turn.Trace, Persisted)
	assert.False(t, h.tl.IsTyping(h.chatID))

	msgs := h.tl.Messages(h.chatID)
	last := msgs[len(msgs)-1]
	assert.Equal(t, model.RoleSystem, last.Role)
	assert.Contains(t, last.Content, "decoder exploded")
	require.NoError(t, turn.Persisted.Wait(context.Background()))
	assert.Equal(t, 1, h.backend.SaveCount(last.ID))

	// The unsent placeholder stays for the session, still sending and last.
	p, ok := h.tl.Find(turn.MessageID)
	require.True(t, ok)
	assert.Equal(t, model.StatusSending, p.Status)
	assert.Empty(t, p.Content)
	chat, _ := h.tl.Chat(h.chatID)
	assert.Equal(t, turn.MessageID, chat.LastMessage.ID)
	assert.Zero(t, chat.UnreadCount)

	// It was never saved, so the next load drops it and keeps the error.
	require.NoError(t, h.writer.Flush(context.Background()))
	assert.Zero(t, h.backend.SaveCount(turn.MessageID))
	require.NoError(t, h.tl.Activate(context.Background(), h.chatID))
	_, ok = h.tl.Find(turn.MessageID)
	assert.False(t, ok)
	_, ok = h.tl.Find(last.ID)
	assert.True(t, ok)
}

func TestFallbackWithLostPlaceholderSurfaces(t *testing.T) {
	h := newHarness(t)
	o := h.orchestrator(func(ctx context.Context, _ responder.Request) (*responder.Response, error) {
		require.NoError(t, h.writer.Flush(ctx))
		require.NoError(t, h.tl.Activate(ctx, h.chatID))
		return nil, errors.New("connection reset")
	}, OrphanDrop)

	turn, err := o.Send(context.Background(), h.chatID, "Hello", nil)
	require.NoError(t, err)
	assert.Equal(t, Failed, turn.State)
	assert.ErrorIs(t, turn.Err, timeline.ErrMessageNotFound)
	assert.Equal(t, model.RoleSystem, turn.Message.Role)
}

func TestSendAttachesContexts(t *testing.T) {
	h := newHarness(t)
	var seen responder.Request
	o := h.orchestrator(func(_ context.Context, req responder.Request) (*responder.Response, error) {
		seen = req
		return &responder.Response{Response: "ok"}, nil
	}, OrphanDrop)

	ctxs := []model.Context{{ID: "ctx1", Title: "Glossary"}}
	_, err := o.Send(context.Background(), h.chatID, "define it", ctxs)
	require.NoError(t, err)

	require.Len(t, seen.Contexts, 1)
	assert.Equal(t, "Glossary", seen.Contexts[0].Title)
	chat, _ := h.tl.Chat(h.chatID)
	assert.Equal(t, []string{"ctx1"}, chat.ContextIDs)
}

func TestSendPreconditions(t *testing.T) {
	h := newHarness(t)
	o := h.orchestrator(reply("x", thinking.Raw{}), OrphanDrop)

	_, err := o.Send(context.Background(), h.chatID, "   ", nil)
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, err = o.Send(context.Background(), "missing", "hi", nil)
	assert.ErrorIs(t, err, timeline.ErrChatNotFound)
	assert.Empty(t, h.tl.Messages(h.chatID))
}

func TestConsecutiveTurnsKeepOrder(t *testing.T) {
	h := newHarness(t)
	o := h.orchestrator(reply("answer", thinking.Raw{}), OrphanDrop)

	for _, q := range []string{"one", "two", "three"} {
		_, err := o.Send(context.Background(), h.chatID, q, nil)
		require.NoError(t, err)
	}
	msgs := h.tl.Messages(h.chatID)
	require.Len(t, msgs, 6)
	for i, m := range msgs {
		if i%2 == 0 {
			assert.Equal(t, model.RoleUser, m.Role)
		} else {
			assert.Equal(t, model.RoleAI, m.Role)
		}
	}
}

func TestParseOrphanPolicy(t *testing.T) {
	p, err := ParseOrphanPolicy("")
	require.NoError(t, err)
	assert.Equal(t, OrphanDrop, p)

	p, err = ParseOrphanPolicy(" Resurrect ")
	require.NoError(t, err)
	assert.Equal(t, OrphanResurrect, p)

	_, err = ParseOrphanPolicy("keep")
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}
