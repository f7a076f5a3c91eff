// Package chat holds the in-memory conversation state for a session:
// role-tagged turns and the append-only message log they live in.
package chat

// Role identifies the author of a turn.
type Role string

const (
	// RoleUser marks a turn written by the player.
	RoleUser Role = "user"
	// RoleAssistant marks a turn written by the game master.
	RoleAssistant Role = "assistant"
)

// Turn is a single message in the conversation.
// Turns are immutable once appended, with one exception: an assistant turn
// still being streamed is mutated in place until it is finalized or
// discarded. Such a turn is marked InProgress and is never persisted.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// InProgress marks an assistant turn whose content is still growing.
	InProgress bool `json:"-"`
}

// NewUserTurn creates a finalized user turn.
func NewUserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content}
}

// NewAssistantTurn creates a finalized assistant turn.
func NewAssistantTurn(content string) Turn {
	return Turn{Role: RoleAssistant, Content: content}
}
