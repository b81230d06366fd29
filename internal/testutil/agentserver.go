// Package testutil provides a scripted fake of the streaming agent endpoint.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/tidwall/sjson"

	"chatstream/internal/domain"
)

// StreamWriter writes a response to one agent request, flushing after
// every write so each call reaches the client as its own chunk.
type StreamWriter struct {
	t       testing.TB
	w       http.ResponseWriter
	flusher http.Flusher
	ctx     context.Context
	started bool
}

// Fail sends a non-2xx status with body. It must be the first call.
func (s *StreamWriter) Fail(status int, body string) {
	s.w.WriteHeader(status)
	_, _ = io.WriteString(s.w, body)
	s.started = true
}

// Raw writes text verbatim. Use it to split frames across chunks.
func (s *StreamWriter) Raw(text string) {
	if !s.started {
		s.w.Header().Set("Content-Type", "text/event-stream")
		s.w.WriteHeader(http.StatusOK)
		s.started = true
	}
	_, _ = io.WriteString(s.w, text)
	s.flusher.Flush()
}

// Frame writes one "data: <payload>\n\n" event.
func (s *StreamWriter) Frame(payload string) {
	s.Raw("data: " + payload + "\n\n")
}

// Content writes a content snapshot frame.
func (s *StreamWriter) Content(text string) {
	s.field("content", text)
}

// ToolOutputs writes a tool-output batch frame.
func (s *StreamWriter) ToolOutputs(events ...domain.ToolOutputEvent) {
	s.field("tool_outputs", events)
}

// field writes a frame holding a single top-level field. Encoding failures
// fail the owning test; handlers run off the test goroutine, so Errorf.
func (s *StreamWriter) field(path string, value any) {
	payload, err := sjson.Set("", path, value)
	if err != nil {
		s.t.Errorf("testutil: encode %s frame: %v", path, err)
		return
	}
	s.Frame(payload)
}

// Context is done when the client goes away.
func (s *StreamWriter) Context() context.Context { return s.ctx }

// Handler scripts the response to one request.
type Handler func(w *StreamWriter, req domain.AgentRequest)

// AgentServer is an httptest server that records requests and replies
// using a Handler.
type AgentServer struct {
	*httptest.Server

	t        testing.TB
	mu       sync.Mutex
	handler  Handler
	requests []domain.AgentRequest
	headers  []http.Header
}

// NewAgentServer starts a server closed at test cleanup.
func NewAgentServer(t testing.TB, h Handler) *AgentServer {
	t.Helper()
	a := &AgentServer{t: t, handler: h}
	a.Server = httptest.NewServer(http.HandlerFunc(a.serve))
	t.Cleanup(a.Close)
	return a
}

// Streaming returns a handler that sends the given payloads as frames and
// ends the stream.
func Streaming(payloads ...string) Handler {
	return func(w *StreamWriter, _ domain.AgentRequest) {
		for _, p := range payloads {
			w.Frame(p)
		}
	}
}

// Failing returns a handler that answers with status and body.
func Failing(status int, body string) Handler {
	return func(w *StreamWriter, _ domain.AgentRequest) {
		w.Fail(status, body)
	}
}

// SetHandler replaces the handler for subsequent requests.
func (a *AgentServer) SetHandler(h Handler) {
	a.mu.Lock()
	a.handler = h
	a.mu.Unlock()
}

// Requests returns the decoded bodies received so far.
func (a *AgentServer) Requests() []domain.AgentRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.AgentRequest, len(a.requests))
	copy(out, a.requests)
	return out
}

// Headers returns the request headers received so far.
func (a *AgentServer) Headers() []http.Header {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]http.Header, len(a.headers))
	copy(out, a.headers)
	return out
}

func (a *AgentServer) serve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req domain.AgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("bad request: %v", err), http.StatusBadRequest)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	a.mu.Lock()
	a.requests = append(a.requests, req)
	a.headers = append(a.headers, r.Header.Clone())
	h := a.handler
	a.mu.Unlock()

	sw := &StreamWriter{t: a.t, w: w, flusher: flusher, ctx: r.Context()}
	if h != nil {
		h(sw, req)
	}
	if !sw.started {
		w.WriteHeader(http.StatusOK)
	}
}
