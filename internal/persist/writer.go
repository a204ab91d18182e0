package persist

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rcliao/chatcore/internal/logging"
	"github.com/rcliao/chatcore/internal/model"
)

// ErrClosed is reported by outcomes of writes submitted after Close.
var ErrClosed = errors.New("persist: writer closed")

const (
	defaultQueueSize    = 64
	defaultWriteTimeout = 10 * time.Second
)

// Outcome is the eventual result of one write. Callers may Wait on it or
// drop it; failures are logged either way.
type Outcome struct {
	done chan struct{}
	err  error
}

func newOutcome() *Outcome {
	return &Outcome{done: make(chan struct{})}
}

func resolved(err error) *Outcome {
	o := newOutcome()
	o.resolve(err)
	return o
}

func (o *Outcome) resolve(err error) {
	o.err = err
	close(o.done)
}

// Done is closed once the write has been applied or has failed.
func (o *Outcome) Done() <-chan struct{} {
	return o.done
}

// Wait blocks until the write finishes or ctx ends.
func (o *Outcome) Wait(ctx context.Context) error {
	select {
	case <-o.done:
		return o.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type job struct {
	op      string
	chatID  string
	msgID   string
	run     func(ctx context.Context) error
	outcome *Outcome
}

// WriterOptions tunes a Writer. QueueSize only sizes the initial buffer;
// the queue grows so submitters never wait on a slow backend.
type WriterOptions struct {
	QueueSize    int
	WriteTimeout time.Duration
}

// Writer applies saves to a Backend on a single goroutine, in submission
// order, so a later chat summary never gets overwritten by an earlier one.
type Writer struct {
	backend Backend
	log     *logging.Logger
	timeout time.Duration

	mu      sync.Mutex
	closed  bool
	pending []job
	wake    chan struct{}
	wg      sync.WaitGroup
}

// NewWriter starts a writer over backend.
func NewWriter(backend Backend, log *logging.Logger, opts WriterOptions) *Writer {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	w := &Writer{
		backend: backend,
		log:     log,
		timeout: opts.WriteTimeout,
		pending: make([]job, 0, opts.QueueSize),
		wake:    make(chan struct{}, 1),
	}
	w.wg.Add(1)
	go w.loop()
	return w
}

func (w *Writer) loop() {
	defer w.wg.Done()
	for {
		batch, closed := w.take()
		for _, j := range batch {
			ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
			err := j.run(ctx)
			cancel()
			if err != nil {
				w.log.Error("persistence failed", "op", j.op, "chat_id", j.chatID, "message_id", j.msgID, "error", err)
			}
			j.outcome.resolve(err)
		}
		if len(batch) == 0 {
			if closed {
				return
			}
			<-w.wake
		}
	}
}

// take hands the loop everything queued so far.
func (w *Writer) take() ([]job, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	batch := w.pending
	w.pending = nil
	return batch, w.closed
}

func (w *Writer) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// submit never blocks on the backend; callers may hold their own locks.
func (w *Writer) submit(j job) *Outcome {
	j.outcome = newOutcome()
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.log.Warn("write after close dropped", "op", j.op, "chat_id", j.chatID, "message_id", j.msgID)
		return resolved(ErrClosed)
	}
	w.pending = append(w.pending, j)
	w.mu.Unlock()
	w.signal()
	return j.outcome
}

// SaveMessage queues m for storage.
func (w *Writer) SaveMessage(m model.Message) *Outcome {
	m = m.Clone()
	return w.submit(job{op: "save_message", chatID: m.ChatID, msgID: m.ID, run: func(ctx context.Context) error {
		return w.backend.SaveMessage(ctx, m)
	}})
}

// SaveChat queues the chat summary for storage.
func (w *Writer) SaveChat(c model.Chat) *Outcome {
	c = c.Clone()
	return w.submit(job{op: "save_chat", chatID: c.ID, run: func(ctx context.Context) error {
		return w.backend.SaveChat(ctx, c)
	}})
}

// DeleteChat queues removal of a chat and its messages.
func (w *Writer) DeleteChat(chatID string) *Outcome {
	return w.submit(job{op: "delete_chat", chatID: chatID, run: func(ctx context.Context) error {
		return w.backend.DeleteChat(ctx, chatID)
	}})
}

// ClearAllData queues removal of everything.
func (w *Writer) ClearAllData() *Outcome {
	return w.submit(job{op: "clear_all", run: w.backend.ClearAllData})
}

// SaveKnownTag queues registration of a known tag.
func (w *Writer) SaveKnownTag(tag string) *Outcome {
	return w.submit(job{op: "save_known_tag", run: func(ctx context.Context) error {
		return w.backend.SaveKnownTag(ctx, tag)
	}})
}

// LoadMessages reads a chat's history directly; loads are never queued.
func (w *Writer) LoadMessages(ctx context.Context, chatID string) ([]model.Message, error) {
	return w.backend.LoadMessages(ctx, chatID)
}

// LoadChats reads all chat summaries directly.
func (w *Writer) LoadChats(ctx context.Context) ([]model.Chat, error) {
	return w.backend.LoadChats(ctx)
}

// LoadKnownTags reads the known-tag set directly.
func (w *Writer) LoadKnownTags(ctx context.Context) ([]string, error) {
	return w.backend.LoadKnownTags(ctx)
}

// Flush waits until every write submitted before the call has finished.
func (w *Writer) Flush(ctx context.Context) error {
	o := w.submit(job{op: "flush", run: func(context.Context) error { return nil }})
	if err := o.Wait(ctx); err != nil && !errors.Is(err, ErrClosed) {
		return err
	}
	return nil
}

// Close drains queued writes and stops the writer.
func (w *Writer) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()
	w.signal()
	w.wg.Wait()
}
