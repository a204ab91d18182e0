// Package orchestrator drives one user turn: commit the user message, hold
// a placeholder for the reply, call the responder, then settle the reply
// onto the placeholder id whatever happened to the timeline meanwhile.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rcliao/chatcore/internal/logging"
	"github.com/rcliao/chatcore/internal/model"
	"github.com/rcliao/chatcore/internal/persist"
	"github.com/rcliao/chatcore/internal/responder"
	"github.com/rcliao/chatcore/internal/thinking"
	"github.com/rcliao/chatcore/internal/timeline"
)

// FallbackContent replaces the reply when the responder fails.
const FallbackContent = "I'm having trouble reaching the AI service right now. Please try again in a moment."

// RecoveredChatTitle names a chat re-created under OrphanResurrect.
const RecoveredChatTitle = "Recovered chat"

var (
	ErrEmptyContent  = errors.New("message content is empty")
	ErrUnknownPolicy = errors.New("unknown orphan policy")

	errNilResponse     = errors.New("responder returned no reply")
	errPlaceholderGone = errors.New("placeholder missing before fallback")
)

// OrphanPolicy decides what happens to a recovered reply whose chat no longer
// exists.
type OrphanPolicy string

const (
	// OrphanDrop discards the reply; the turn ends Discarded.
	OrphanDrop OrphanPolicy = "drop"
	// OrphanResurrect re-creates the chat and appends the reply to it.
	OrphanResurrect OrphanPolicy = "resurrect"
)

// ParseOrphanPolicy accepts "drop", "resurrect", or "" (drop).
func ParseOrphanPolicy(s string) (OrphanPolicy, error) {
	switch OrphanPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", OrphanDrop:
		return OrphanDrop, nil
	case OrphanResurrect:
		return OrphanResurrect, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

// Options configures an Orchestrator.
type Options struct {
	OrphanPolicy OrphanPolicy
}

// Orchestrator runs turns against one timeline.
type Orchestrator struct {
	tl        *timeline.Timeline
	writer    *persist.Writer
	responder responder.Responder
	log       *logging.Logger
	policy    OrphanPolicy
}

// New returns an orchestrator. Messages are persisted through w, which
// should be the writer tl was built with.
func New(tl *timeline.Timeline, w *persist.Writer, r responder.Responder, log *logging.Logger, opts Options) *Orchestrator {
	if opts.OrphanPolicy == "" {
		opts.OrphanPolicy = OrphanDrop
	}
	return &Orchestrator{tl: tl, writer: w, responder: r, log: log, policy: opts.OrphanPolicy}
}

// Send runs a full turn for content in chatID and blocks until it settles.
// Only precondition failures are returned as errors; anything that goes
// wrong during the turn is surfaced as a system message and recorded on the
// returned Turn.
func (o *Orchestrator) Send(ctx context.Context, chatID, content string, contexts []model.Context) (turn *Turn, err error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	if _, ok := o.tl.Chat(chatID); !ok {
		return nil, fmt.Errorf("send: %w", timeline.ErrChatNotFound)
	}

	turn = &Turn{ChatID: chatID}
	log := o.log.With("chat_id", chatID)
	defer func() {
		if r := recover(); r != nil {
			o.surface(turn, log, fmt.Errorf("panic: %v", r))
		}
	}()

	if err := o.run(ctx, turn, log, content, contexts); err != nil {
		o.surface(turn, log, err)
	}
	return turn, nil
}

func (o *Orchestrator) run(ctx context.Context, turn *Turn, log *logging.Logger, content string, contexts []model.Context) error {
	chatID := turn.ChatID

	user := model.NewUserMessage(o.tl.NewID(), chatID, content, o.tl.Now())
	if err := o.tl.Append(user); err != nil {
		return fmt.Errorf("append user message: %w", err)
	}
	delivered := model.StatusDelivered
	user, err := o.tl.Update(user.ID, timeline.Patch{Status: &delivered})
	if err != nil {
		return fmt.Errorf("deliver user message: %w", err)
	}
	o.writer.SaveMessage(user)
	turn.UserMessage = user
	turn.enter(UserCommitted)

	placeholder := model.NewPlaceholder(o.tl.NewID(), chatID, o.tl.Now())
	if err := o.tl.Append(placeholder); err != nil {
		return fmt.Errorf("append placeholder: %w", err)
	}
	turn.MessageID = placeholder.ID
	turn.enter(PlaceholderCreated)
	log = log.With("message_id", placeholder.ID)

	if len(contexts) > 0 {
		ids := make([]string, 0, len(contexts))
		for _, c := range contexts {
			ids = append(ids, c.ID)
		}
		if err := o.tl.AttachContexts(chatID, ids); err != nil {
			return fmt.Errorf("attach contexts: %w", err)
		}
	}

	history := o.tl.History(chatID, placeholder.ID)
	turn.enter(AwaitingRemote)
	resp, rerr := o.await(ctx, chatID, responder.NewRequest(history, contexts))

	var final model.Message
	if rerr != nil {
		log.Warn("responder failed, using fallback", "error", rerr)
		final, err = o.fallback(placeholder.ID)
		if err != nil {
			return err
		}
		turn.enter(Fallback)
	} else {
		var ok bool
		final, ok, err = o.resolve(turn, log, placeholder, resp)
		if err != nil {
			return err
		}
		if !ok {
			turn.Message = final
			turn.enter(Discarded)
			return nil
		}
	}

	turn.Message = final
	turn.Persisted = o.writer.SaveMessage(final)
	turn.enter(Persisted)
	return nil
}

// await calls the responder with the chat marked as typing.
func (o *Orchestrator) await(ctx context.Context, chatID string, req responder.Request) (*responder.Response, error) {
	o.tl.SetTyping(chatID, true)
	defer o.tl.SetTyping(chatID, false)

	resp, err := o.responder.Respond(ctx, req)
	if err == nil && resp == nil {
		err = errNilResponse
	}
	return resp, err
}

func (o *Orchestrator) fallback(id string) (model.Message, error) {
	content := FallbackContent
	delivered := model.StatusDelivered
	rec := thinking.Unavailable(id)
	m, err := o.tl.Update(id, timeline.Patch{Content: &content, Status: &delivered, Thinking: &rec})
	if err != nil {
		return model.Message{}, fmt.Errorf("%w: %w", errPlaceholderGone, err)
	}
	return m, nil
}

// resolve settles a successful reply. It reports false when the reply was
// dropped because its chat is gone.
func (o *Orchestrator) resolve(turn *Turn, log *logging.Logger, placeholder model.Message, resp *responder.Response) (model.Message, bool, error) {
	content := resp.Response
	delivered := model.StatusDelivered
	rec := thinking.Normalize(resp.Thinking, placeholder.ID)

	if _, found := o.tl.Find(placeholder.ID); found {
		m, err := o.tl.Update(placeholder.ID, timeline.Patch{Content: &content, Status: &delivered, Thinking: &rec})
		if err == nil {
			turn.enter(Resolved)
			return m, true, nil
		}
		if !errors.Is(err, timeline.ErrMessageNotFound) {
			return model.Message{}, false, fmt.Errorf("update reply: %w", err)
		}
	}

	recovered := model.Message{
		ID:        placeholder.ID,
		ChatID:    placeholder.ChatID,
		Content:   content,
		Role:      model.RoleAI,
		Timestamp: o.tl.Now(),
		Status:    model.StatusDelivered,
		Thinking:  &rec,
	}

	if _, ok := o.tl.Chat(placeholder.ChatID); !ok {
		if o.policy != OrphanResurrect {
			log.Warn("reply dropped, chat no longer exists")
			return recovered, false, nil
		}
		o.tl.RestoreChat(model.Chat{ID: placeholder.ChatID, Title: RecoveredChatTitle, LastActivity: recovered.Timestamp})
		log.Info("chat re-created for recovered reply")
	}

	if err := o.tl.Append(recovered); err != nil {
		return model.Message{}, false, fmt.Errorf("recover reply: %w", err)
	}
	log.Info("placeholder lost, reply recovered under original id")
	turn.enter(Recovered)
	return recovered, true, nil
}

// surface records err as a system message in the turn's chat.
func (o *Orchestrator) surface(turn *Turn, log *logging.Logger, err error) {
	log.Error("turn failed", "error", err)
	turn.Err = err
	turn.enter(Failed)

	sys := model.NewSystemMessage(o.tl.NewID(), turn.ChatID, "Error: "+err.Error(), o.tl.Now())
	if aerr := o.tl.Append(sys); aerr != nil {
		log.Error("system message not recorded", "error", aerr)
		return
	}
	turn.Message = sys
	turn.Persisted = o.writer.SaveMessage(sys)
}
