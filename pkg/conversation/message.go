package conversation

import "fmt"

// Role identifies the author of a conversation turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	default:
		return false
	}
}

// Message is a single conversation turn
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Validate checks every message for a known role.
func Validate(msgs []Message) error {
	for i, msg := range msgs {
		if msg.Role == "" {
			return fmt.Errorf("message %d: role is required", i)
		}
		if !msg.Role.Valid() {
			return fmt.Errorf("message %d: invalid role %q (must be: user, assistant, system)", i, msg.Role)
		}
	}
	return nil
}

// Last returns the final message, or false when msgs is empty.
func Last(msgs []Message) (Message, bool) {
	if len(msgs) == 0 {
		return Message{}, false
	}
	return msgs[len(msgs)-1], true
}
