package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"

	"chatstream/internal/domain"
	"chatstream/internal/infra/tracer"
)

// DefaultApology replaces the assistant message when a session errors.
const DefaultApology = "Sorry, an error occurred."

// DefaultReadBufferBytes is the size of a single transport read.
const DefaultReadBufferBytes = 32 * 1024

// Opener opens the streaming transport and returns its byte cursor.
// Reads on the returned body must stop when ctx is canceled.
type Opener interface {
	Open(ctx context.Context, req domain.AgentRequest) (io.ReadCloser, error)
}

// Transcript is the message sequence a session writes its turn into.
// It is owned by the chat thread and mutated only by the active session.
type Transcript interface {
	History() []domain.Message
	Append(msg domain.Message) int
	SetContent(index int, content string)
}

// Result is the outcome of a session that reached a terminal state.
type Result struct {
	SessionID   string
	Status      domain.SessionStatus
	FinalText   string
	ToolOutputs []domain.ToolOutputEvent
	Err         error
	Frames      int // decoded content and tool-output frames
	Dropped     int // unrecognized or malformed frames
	Shrunk      int // content snapshots shorter than their predecessor
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithPublisher sets the observer that receives session events in order.
func WithPublisher(p domain.EventPublisher) Option {
	return func(s *Session) { s.pub = p }
}

// WithDecoder overrides the frame decoder.
func WithDecoder(d *Decoder) Option {
	return func(s *Session) { s.decoder = d }
}

// WithMaxFrameBytes bounds a single pending line.
func WithMaxFrameBytes(n int) Option {
	return func(s *Session) { s.maxFrame = n }
}

// WithReadBufferBytes sets the transport read size.
func WithReadBufferBytes(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.readBuf = n
		}
	}
}

// WithApology sets the text shown in place of the answer on error.
func WithApology(text string) Option {
	return func(s *Session) {
		if text != "" {
			s.apology = text
		}
	}
}

// Session drives one query/response cycle:
// Idle -> Sending -> Streaming -> Completed | Errored | Aborted.
// A Session is single-use; Start succeeds at most once.
type Session struct {
	id         string
	opener     Opener
	transcript Transcript
	tools      *ToolOutputLog
	decoder    *Decoder
	logger     *slog.Logger
	pub        domain.EventPublisher
	maxFrame   int
	readBuf    int
	apology    string

	mu            sync.Mutex
	status        domain.SessionStatus
	acc           Accumulator
	streamingText string
	finalText     *string
	finalTools    []domain.ToolOutputEvent // captured at the terminal transition
	assistantIdx  int
	err           error
	frames        int
	dropped       int
	cancel        context.CancelFunc
	done          chan struct{}
}

// New creates an idle session. tools is reset when the session starts and
// keeps its contents after the session ends.
func New(opener Opener, transcript Transcript, tools *ToolOutputLog, opts ...Option) *Session {
	s := &Session{
		id:         ulid.Make().String(),
		opener:     opener,
		transcript: transcript,
		tools:      tools,
		decoder:    NewDecoder(""),
		logger:     slog.Default(),
		readBuf:    DefaultReadBufferBytes,
		apology:    DefaultApology,
		done:       make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	if s.tools == nil {
		s.tools = NewToolOutputLog()
	}
	s.logger = s.logger.With("session_id", s.id)
	return s
}

// ID returns the session's ULID.
func (s *Session) ID() string { return s.id }

// Start records the user query, appends an empty assistant placeholder,
// clears the tool-output log and opens the transport on a new goroutine.
// It returns domain.ErrSessionStarted if the session has left Idle.
// Canceling ctx has the same effect as Cancel.
func (s *Session) Start(ctx context.Context, query string) error {
	if strings.TrimSpace(query) == "" {
		return domain.NewDomainError("Session.Start", domain.ErrEmptyQuery, "")
	}

	s.mu.Lock()
	if s.status != domain.StatusIdle {
		status := s.status
		s.mu.Unlock()
		return domain.NewDomainError("Session.Start", domain.ErrSessionStarted, status.String())
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.status = domain.StatusSending
	s.streamingText = ""
	s.acc.Reset()
	s.tools.Reset()

	now := time.Now()
	s.transcript.Append(domain.Message{Role: domain.RoleUser, Content: query, Timestamp: now})
	history := s.transcript.History()
	s.assistantIdx = s.transcript.Append(domain.Message{Role: domain.RoleAssistant, Timestamp: now})
	started := s.stateLocked()
	s.mu.Unlock()

	s.logger.Debug("session started", "history", len(history))
	go s.run(runCtx, cancel, history, started)
	return nil
}

// Cancel moves an active session to Aborted and abandons the in-flight read.
// No frame is applied once Cancel returns. Cancel is idempotent and a no-op
// for idle or terminal sessions.
func (s *Session) Cancel() {
	s.mu.Lock()
	if !s.status.Active() {
		s.mu.Unlock()
		return
	}
	s.abortLocked()
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.logger.Info("session aborted")
}

// State returns a snapshot of the session, readable at any time.
func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Done is closed once the read loop has exited and the transport is closed.
func (s *Session) Done() <-chan struct{} { return s.done }

// Wait blocks until the session is terminal and its transport released.
// On an idle session it returns immediately.
func (s *Session) Wait() Result {
	s.mu.Lock()
	idle := s.status == domain.StatusIdle
	s.mu.Unlock()
	if !idle {
		<-s.done
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	res := Result{
		SessionID:   s.id,
		Status:      s.status,
		ToolOutputs: s.toolsLocked(),
		Err:         s.err,
		Frames:      s.frames,
		Dropped:     s.dropped,
		Shrunk:      s.acc.Shrunk(),
	}
	switch s.status {
	case domain.StatusCompleted:
		res.FinalText = *s.finalText
	case domain.StatusAborted:
		res.FinalText = s.acc.Value()
	}
	return res
}

func (s *Session) run(ctx context.Context, cancel context.CancelFunc, history []domain.Message, started domain.SessionState) {
	defer close(s.done)
	defer cancel()

	ctx, span := tracer.StartSpan(ctx, "stream.session",
		trace.WithAttributes(tracer.StringAttr("session.id", s.id)),
	)
	defer span.End()

	s.emit(ctx, domain.Event{Type: domain.EventSessionStarted, State: started})

	err := s.stream(ctx, history)
	s.finish(ctx, span, err)
}

func (s *Session) stream(ctx context.Context, history []domain.Message) error {
	body, err := s.opener.Open(ctx, domain.NewAgentRequest(history))
	if err != nil {
		if body != nil {
			_ = body.Close()
		}
		if !domain.IsTerminalError(err) {
			err = fmt.Errorf("%w: %w", domain.ErrTransportOpen, err)
		}
		return err
	}
	if body == nil {
		return domain.ErrMissingCursor
	}
	defer body.Close()

	// Unblock a pending Read as soon as the session is canceled.
	stop := context.AfterFunc(ctx, func() { _ = body.Close() })
	defer stop()

	framer := NewLineFramer(s.maxFrame)
	buf := make([]byte, s.readBuf)
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			frames, ferr := framer.Push(buf[:n])
			for _, payload := range frames {
				if !s.apply(ctx, payload) {
					s.logger.Debug("abandoning stream", "pending_bytes", framer.Pending())
					return nil
				}
			}
			if ferr != nil {
				return ferr
			}
		}
		if errors.Is(rerr, io.EOF) {
			if left := framer.End(); left > 0 {
				s.logger.Debug("discarding unterminated trailing frame", "bytes", left)
			}
			return nil
		}
		if rerr != nil {
			return fmt.Errorf("%w: %w", domain.ErrStreamRead, rerr)
		}
	}
}

// apply decodes one payload and folds it into the session. It reports false
// once the session is terminal, after which no frame may be applied.
func (s *Session) apply(ctx context.Context, payload string) bool {
	if ctx.Err() != nil {
		return false
	}
	ev := s.decoder.Decode(payload)

	s.mu.Lock()
	if s.status.Terminal() {
		s.mu.Unlock()
		return false
	}
	if ev.Kind == domain.KindUnrecognized {
		s.dropped++
		s.mu.Unlock()
		if ev.Err != nil {
			s.logger.Warn("dropping malformed frame", "error", ev.Err)
		} else {
			s.logger.Debug("ignoring unrecognized frame", "payload", truncate(ev.Raw, 120))
		}
		return true
	}

	promoted := s.status == domain.StatusSending
	if promoted {
		s.status = domain.StatusStreaming
	}
	s.frames++

	var out domain.Event
	switch ev.Kind {
	case domain.KindContentSnapshot:
		prev, shrunk := s.streamingText, s.acc.Shrunk()
		s.streamingText = s.acc.Apply(ev.Text)
		s.transcript.SetContent(s.assistantIdx, s.streamingText)
		if s.acc.Shrunk() > shrunk {
			s.logger.Debug("content snapshot shrank", "from", len(prev), "to", len(s.streamingText))
		}
		out = domain.Event{Type: domain.EventStreamSnapshot}
	case domain.KindToolOutputs:
		s.tools.Append(ev.ToolOutputs)
		out = domain.Event{Type: domain.EventStreamToolOutput, Batch: ev.ToolOutputs}
	}
	state := s.stateLocked()
	s.mu.Unlock()

	if promoted {
		s.emit(ctx, domain.Event{Type: domain.EventSessionStreaming, State: state})
	}
	out.State = state
	s.emit(ctx, out)
	return true
}

// finish performs the terminal transition unless Cancel already did, then
// publishes the terminal event. Only the read loop publishes, so observers
// see events in order and exactly one terminal event.
func (s *Session) finish(ctx context.Context, span trace.Span, err error) {
	canceled := ctx.Err() != nil
	ctx = context.WithoutCancel(ctx)

	s.mu.Lock()
	switch {
	case s.status.Terminal():
		// Cancel won the race.
	case canceled:
		s.abortLocked()
	case err != nil:
		s.errorLocked(err)
	default:
		s.completeLocked()
	}
	state := s.stateLocked()
	status, termErr, frames, dropped := s.status, s.err, s.frames, s.dropped
	shrunk := s.acc.Shrunk()
	s.mu.Unlock()

	span.SetAttributes(
		tracer.StringAttr("session.status", status.String()),
		tracer.IntAttr("session.frames", frames),
		tracer.IntAttr("session.dropped", dropped),
		tracer.IntAttr("session.shrunk", shrunk),
	)

	ev := domain.Event{State: state}
	switch status {
	case domain.StatusCompleted:
		tracer.SetOK(span)
		ev.Type = domain.EventSessionCompleted
		s.logger.Info("session completed", "frames", frames, "dropped", dropped, "chars", len(*state.FinalText))
	case domain.StatusErrored:
		tracer.RecordError(span, termErr)
		ev.Type = domain.EventSessionErrored
		ev.Error = termErr.Error()
		s.logger.Error("session failed", "error", termErr, "code", string(domain.ErrorCodeOf(termErr)))
	default:
		ev.Type = domain.EventSessionAborted
		s.logger.Debug("session read loop stopped after abort", "frames", frames)
	}
	s.emit(ctx, ev)
}

func (s *Session) completeLocked() {
	final := s.acc.Value()
	s.finalText = &final
	s.streamingText = ""
	s.status = domain.StatusCompleted
	s.transcript.SetContent(s.assistantIdx, final)
	s.finalTools = s.tools.Events()
}

func (s *Session) errorLocked(err error) {
	if !domain.IsTerminalError(err) {
		err = fmt.Errorf("%w: %w", domain.ErrStreamRead, err)
	}
	s.err = err
	s.streamingText = ""
	s.status = domain.StatusErrored
	s.transcript.SetContent(s.assistantIdx, s.apology)
	s.finalTools = s.tools.Events()
}

func (s *Session) abortLocked() {
	s.err = domain.ErrSessionCanceled
	s.streamingText = ""
	s.status = domain.StatusAborted
	s.finalTools = s.tools.Events()
}

func (s *Session) toolsLocked() []domain.ToolOutputEvent {
	if s.status.Terminal() {
		cp := make([]domain.ToolOutputEvent, len(s.finalTools))
		copy(cp, s.finalTools)
		return cp
	}
	return s.tools.Events()
}

func (s *Session) stateLocked() domain.SessionState {
	st := domain.SessionState{
		Status:        s.status,
		StreamingText: s.streamingText,
		ToolOutputs:   s.toolsLocked(),
	}
	if s.finalText != nil {
		final := *s.finalText
		st.FinalText = &final
	}
	return st
}

func (s *Session) emit(ctx context.Context, ev domain.Event) {
	if s.pub == nil {
		return
	}
	ev.SessionID = s.id
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	s.pub.Publish(ctx, ev)
}
