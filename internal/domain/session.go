package domain

// SessionStatus is a state of the per-query stream session machine.
type SessionStatus int

const (
	StatusIdle SessionStatus = iota
	StatusSending
	StatusStreaming
	StatusCompleted
	StatusErrored
	StatusAborted
)

// String returns a human-readable label for the status.
func (s SessionStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusSending:
		return "sending"
	case StatusStreaming:
		return "streaming"
	case StatusCompleted:
		return "completed"
	case StatusErrored:
		return "errored"
	case StatusAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Terminal reports whether no transition leaves s.
func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusErrored || s == StatusAborted
}

// Active reports whether a session in s owns an open transport.
func (s SessionStatus) Active() bool {
	return s == StatusSending || s == StatusStreaming
}

// MarshalText implements encoding.TextMarshaler.
func (s SessionStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// SessionState is an observable snapshot of a stream session.
type SessionState struct {
	Status        SessionStatus     `json:"status"`
	StreamingText string            `json:"streaming_text"`
	ToolOutputs   []ToolOutputEvent `json:"tool_outputs"`
	FinalText     *string           `json:"final_text,omitempty"` // set on Completed only
}
