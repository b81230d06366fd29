package domain

import (
	"context"
	"time"
)

// EventType identifies the kind of event being published.
type EventType string

const (
	EventSessionStarted   EventType = "session.started"
	EventSessionStreaming EventType = "session.streaming"
	EventStreamSnapshot   EventType = "stream.snapshot"
	EventStreamToolOutput EventType = "stream.tool_outputs"
	EventSessionCompleted EventType = "session.completed"
	EventSessionErrored   EventType = "session.errored"
	EventSessionAborted   EventType = "session.aborted"
	EventThreadCleared    EventType = "thread.cleared"
)

// Event is the envelope published on the event bus.
type Event struct {
	Type      EventType         `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	SessionID string            `json:"session_id,omitempty"`
	State     SessionState      `json:"state"`
	Batch     []ToolOutputEvent `json:"batch,omitempty"` // EventStreamToolOutput only
	Error     string            `json:"error,omitempty"` // EventSessionErrored only
}

// EventHandler processes a published event.
type EventHandler func(ctx context.Context, event Event)

// EventPublisher delivers events to observers in publish order.
type EventPublisher interface {
	Publish(ctx context.Context, event Event)
}
