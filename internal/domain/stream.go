package domain

// StreamEventKind discriminates the decoded StreamEvent union.
type StreamEventKind int

const (
	KindUnrecognized StreamEventKind = iota
	KindContentSnapshot
	KindToolOutputs
)

// String returns a human-readable label for the kind.
func (k StreamEventKind) String() string {
	switch k {
	case KindContentSnapshot:
		return "content_snapshot"
	case KindToolOutputs:
		return "tool_outputs"
	default:
		return "unrecognized"
	}
}

// ToolOutputEvent is one tool execution result reported by the agent.
// Immutable once appended to a ToolOutputLog.
type ToolOutputEvent struct {
	Name       string `json:"name"`
	Content    string `json:"content"`
	ToolCallID string `json:"tool_call_id"`
	Status     string `json:"status,omitempty"`
}

// StreamEvent is the result of decoding one frame. Exactly one variant is
// populated, selected by Kind.
type StreamEvent struct {
	Kind        StreamEventKind
	Text        string            // KindContentSnapshot: cumulative response text
	ToolOutputs []ToolOutputEvent // KindToolOutputs: ordered batch
	Raw         string            // KindUnrecognized: original payload
	Err         error             // KindUnrecognized: parse failure, if any
}

// ContentSnapshot builds a content variant.
func ContentSnapshot(text string) StreamEvent {
	return StreamEvent{Kind: KindContentSnapshot, Text: text}
}

// ToolOutputs builds a tool-output variant.
func ToolOutputs(events []ToolOutputEvent) StreamEvent {
	return StreamEvent{Kind: KindToolOutputs, ToolOutputs: events}
}

// Unrecognized builds an ignorable variant. err is nil for well-formed
// payloads that simply carry nothing the client understands.
func Unrecognized(raw string, err error) StreamEvent {
	return StreamEvent{Kind: KindUnrecognized, Raw: raw, Err: err}
}
