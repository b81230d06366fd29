package usecase

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"chatstream/internal/domain"
	"chatstream/internal/infra/config"
	"chatstream/internal/usecase/stream"
)

// ChatThread owns a conversation: its messages, the tool-output log of the
// latest session, and the single active stream session. Sending a new query
// aborts the active session before the next one starts.
type ChatThread struct {
	id       string
	opener   stream.Opener
	logger   *slog.Logger
	pub      domain.EventPublisher
	sessOpts []stream.Option

	mu   sync.RWMutex // guards msgs
	msgs []domain.Message

	tools *stream.ToolOutputLog

	// sessMu serializes Send, Stop and Clear. Lock order is sessMu, then the
	// session's lock, then mu; mu is never held while calling a session.
	// current is readable without sessMu so observers may query the thread
	// while Send waits for an aborted session.
	sessMu  sync.Mutex
	current atomic.Pointer[stream.Session]
}

// ThreadOption configures a ChatThread.
type ThreadOption func(*ChatThread)

// WithThreadLogger sets the logger for the thread and its sessions.
func WithThreadLogger(l *slog.Logger) ThreadOption {
	return func(t *ChatThread) { t.logger = l }
}

// WithThreadPublisher sets the observer for thread and session events.
func WithThreadPublisher(p domain.EventPublisher) ThreadOption {
	return func(t *ChatThread) { t.pub = p }
}

// WithSessionOptions appends options applied to every session.
func WithSessionOptions(opts ...stream.Option) ThreadOption {
	return func(t *ChatThread) { t.sessOpts = append(t.sessOpts, opts...) }
}

// StreamOptions translates stream configuration into session options.
func StreamOptions(cfg config.StreamConfig) []stream.Option {
	return []stream.Option{
		stream.WithMaxFrameBytes(cfg.MaxFrameBytes),
		stream.WithReadBufferBytes(cfg.ReadBufferBytes),
		stream.WithDecoder(stream.NewDecoder(cfg.ToolOutputsField)),
		stream.WithApology(cfg.Apology),
	}
}

// NewChatThread creates an empty thread that opens streams with opener.
func NewChatThread(opener stream.Opener, opts ...ThreadOption) *ChatThread {
	t := &ChatThread{
		id:     ulid.Make().String(),
		opener: opener,
		logger: slog.Default(),
		tools:  stream.NewToolOutputLog(),
	}
	for _, o := range opts {
		o(t)
	}
	t.logger = t.logger.With("thread_id", t.id)
	return t
}

// ID returns the thread's ULID.
func (t *ChatThread) ID() string { return t.id }

// Send aborts any active session, waits for it to release its transport and
// starts a new session for query. ctx bounds the new session's lifetime.
func (t *ChatThread) Send(ctx context.Context, query string) (*stream.Session, error) {
	t.sessMu.Lock()
	defer t.sessMu.Unlock()

	// A stopped session may still be draining its transport; its terminal
	// event must reach observers before the next session starts.
	if prev := t.current.Load(); prev != nil {
		if prev.State().Status.Active() {
			t.logger.Info("aborting active session for new query", "session_id", prev.ID())
		}
		prev.Cancel()
		prev.Wait()
	}

	opts := make([]stream.Option, 0, len(t.sessOpts)+2)
	opts = append(opts, stream.WithLogger(t.logger))
	if t.pub != nil {
		opts = append(opts, stream.WithPublisher(t.pub))
	}
	opts = append(opts, t.sessOpts...)

	s := stream.New(t.opener, transcript{t}, t.tools, opts...)
	if err := s.Start(ctx, query); err != nil {
		return nil, domain.WrapOp("ChatThread.Send", err)
	}
	t.current.Store(s)
	return s, nil
}

// Stop aborts the active session, if any. It does not wait for the
// transport to be released.
func (t *ChatThread) Stop() {
	t.sessMu.Lock()
	defer t.sessMu.Unlock()
	if s := t.current.Load(); s != nil {
		s.Cancel()
	}
}

// Clear aborts the active session and empties the messages and tool outputs.
func (t *ChatThread) Clear(ctx context.Context) {
	t.sessMu.Lock()
	if prev := t.current.Load(); prev != nil {
		prev.Cancel()
		prev.Wait()
		t.current.Store(nil)
	}
	t.mu.Lock()
	n := len(t.msgs)
	t.msgs = nil
	t.mu.Unlock()
	t.tools.Reset()
	t.sessMu.Unlock()

	t.logger.Debug("thread cleared", "messages", n)
	if t.pub != nil {
		t.pub.Publish(ctx, domain.Event{
			Type:      domain.EventThreadCleared,
			Timestamp: time.Now(),
			State:     domain.SessionState{Status: domain.StatusIdle},
		})
	}
}

// Current returns the latest session, or nil before the first Send.
func (t *ChatThread) Current() *stream.Session {
	return t.current.Load()
}

// State returns the latest session's state, or an Idle state.
func (t *ChatThread) State() domain.SessionState {
	if s := t.Current(); s != nil {
		return s.State()
	}
	return domain.SessionState{Status: domain.StatusIdle}
}

// Messages returns a copy of the conversation.
func (t *ChatThread) Messages() []domain.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	cp := make([]domain.Message, len(t.msgs))
	copy(cp, t.msgs)
	return cp
}

// ToolOutputs returns the tool outputs of the latest session.
func (t *ChatThread) ToolOutputs() []domain.ToolOutputEvent {
	return t.tools.Events()
}

// transcript gives sessions write access to the thread's messages without
// exposing Append and SetContent on ChatThread.
type transcript struct{ t *ChatThread }

func (tr transcript) History() []domain.Message { return tr.t.Messages() }

func (tr transcript) Append(msg domain.Message) int {
	tr.t.mu.Lock()
	defer tr.t.mu.Unlock()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	tr.t.msgs = append(tr.t.msgs, msg)
	return len(tr.t.msgs) - 1
}

func (tr transcript) SetContent(index int, content string) {
	tr.t.mu.Lock()
	defer tr.t.mu.Unlock()
	// Clear may have emptied the thread under an aborted session.
	if index < 0 || index >= len(tr.t.msgs) {
		return
	}
	tr.t.msgs[index].Content = content
}

var _ stream.Transcript = transcript{}
