package stream

import (
	"sync"

	"chatstream/internal/domain"
)

// ToolOutputLog is an append-only, ordered record of the tool outputs seen
// during one session. Duplicates are kept; the backend owns uniqueness.
type ToolOutputLog struct {
	mu     sync.RWMutex
	events []domain.ToolOutputEvent
}

// NewToolOutputLog creates an empty log.
func NewToolOutputLog() *ToolOutputLog {
	return &ToolOutputLog{}
}

// Append adds a batch as one update, preserving its order.
func (l *ToolOutputLog) Append(events []domain.ToolOutputEvent) {
	if len(events) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, events...)
}

// Events returns a copy of the log in append order.
func (l *ToolOutputLog) Events() []domain.ToolOutputEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	cp := make([]domain.ToolOutputEvent, len(l.events))
	copy(cp, l.events)
	return cp
}

// Len returns the number of logged events.
func (l *ToolOutputLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// Reset empties the log. Only a starting session calls this.
func (l *ToolOutputLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}
