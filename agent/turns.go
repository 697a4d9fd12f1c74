package agent

import (
	"time"

	"github.com/matdev83/cli-agent/llm"
)

// Role discriminates between turn types.
type Role string

const (
	RoleUser       Role = "user"
	RoleAssistant  Role = "assistant"
	RoleToolResult Role = "tool-result"
)

// Turn is a single entry in the conversation transcript.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewUserTurn creates a Turn wrapping user input.
func NewUserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content, Timestamp: time.Now()}
}

// NewAssistantTurn creates a Turn wrapping a model reply.
func NewAssistantTurn(content string) Turn {
	return Turn{Role: RoleAssistant, Content: content, Timestamp: time.Now()}
}

// NewToolResultTurn creates a Turn wrapping a tool outcome fed back to the
// model.
func NewToolResultTurn(content string) Turn {
	return Turn{Role: RoleToolResult, Content: content, Timestamp: time.Now()}
}

// Transcript is the append-only conversation state. It is owned exclusively
// by the Session: turns are only ever appended, never edited or removed, and
// the loop's turn cap bounds growth rather than eviction.
type Transcript struct {
	turns []Turn
}

// Append adds a turn to the transcript.
func (t *Transcript) Append(turn Turn) {
	t.turns = append(t.turns, turn)
}

// Turns returns a copy of the transcript.
func (t *Transcript) Turns() []Turn {
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Len returns the number of turns.
func (t *Transcript) Len() int { return len(t.turns) }

// CountRole returns the number of turns with the given role.
func (t *Transcript) CountRole(role Role) int {
	n := 0
	for _, turn := range t.turns {
		if turn.Role == role {
			n++
		}
	}
	return n
}

// Last returns the most recent turn, or false when the transcript is empty.
func (t *Transcript) Last() (Turn, bool) {
	if len(t.turns) == 0 {
		return Turn{}, false
	}
	return t.turns[len(t.turns)-1], true
}

// Messages converts the transcript into backend messages, prefixed with the
// given system prompt when non-empty. Tool-result turns travel as user
// messages so the model sees them as input it must react to.
func (t *Transcript) Messages(systemPrompt string) []llm.Message {
	var messages []llm.Message
	if systemPrompt != "" {
		messages = append(messages, llm.SystemMessage(systemPrompt))
	}
	for _, turn := range t.turns {
		switch turn.Role {
		case RoleAssistant:
			messages = append(messages, llm.AssistantMessage(turn.Content))
		default:
			messages = append(messages, llm.UserMessage(turn.Content))
		}
	}
	return messages
}
