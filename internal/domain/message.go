package domain

import "time"

// Role constants for message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Wire message types understood by the agent endpoint.
const (
	WireTypeHuman = "human"
	WireTypeAI    = "ai"
)

// Message represents a single message in a chat thread.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// WireType maps a message role onto the agent's message type.
func (m Message) WireType() string {
	if m.Role == RoleUser {
		return WireTypeHuman
	}
	return WireTypeAI
}

// AgentRequest is the body POSTed to the streaming agent endpoint.
type AgentRequest struct {
	Input  AgentInput     `json:"input"`
	Config map[string]any `json:"config"`
	Kwargs map[string]any `json:"kwargs"`
}

// AgentInput wraps the conversation history.
type AgentInput struct {
	Messages []AgentMessage `json:"messages"`
}

// AgentMessage is one history entry on the wire.
type AgentMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// NewAgentRequest builds a request carrying the full history.
// Config and Kwargs are always sent as empty objects, never null.
func NewAgentRequest(history []Message) AgentRequest {
	msgs := make([]AgentMessage, 0, len(history))
	for _, m := range history {
		msgs = append(msgs, AgentMessage{Type: m.WireType(), Content: m.Content})
	}
	return AgentRequest{
		Input:  AgentInput{Messages: msgs},
		Config: map[string]any{},
		Kwargs: map[string]any{},
	}
}
