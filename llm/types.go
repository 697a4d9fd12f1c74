// Package llm defines the model-backend boundary for the agent loop: the
// message types sent to a backend, the blocking Backend contract, the error
// hierarchy surfaced when a backend fails, and two implementations (a
// deterministic scripted backend for fixtures and tests, and a live backend
// built on gollm).
package llm

// Role identifies who produced a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is the fundamental unit sent to a backend. The agent loop flattens
// its turn history into messages; tool results travel as user messages so any
// plain-text backend can consume them.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SystemMessage creates a system Message.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

// UserMessage creates a user Message.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// AssistantMessage creates an assistant Message.
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}
