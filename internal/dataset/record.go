package dataset

import "fmt"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn in a chat-formatted training record.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Record is one training example: an ordered chat transcript.
type Record struct {
	ID       string    `json:"id,omitempty"`
	Messages []Message `json:"messages"`
}

// ValidationError describes a structural violation in a single record.
// A load never tolerates it: the whole dataset is rejected.
type ValidationError struct {
	RecordID string
	Line     int
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("dataset record %s (line %d): %s", e.RecordID, e.Line, e.Reason)
}

// validate checks the chat structure invariants: a non-empty sequence,
// known roles, non-empty content, at most one system message and only as
// the first element, and strict user/assistant alternation after it.
func (r Record) validate() string {
	if len(r.Messages) == 0 {
		return "empty message sequence"
	}

	offset := 0
	if r.Messages[0].Role == RoleSystem {
		offset = 1
	}

	for i, m := range r.Messages {
		switch m.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return fmt.Sprintf("unknown role %q at message %d", m.Role, i)
		}
		if m.Content == "" {
			return fmt.Sprintf("empty content at message %d (role %s)", i, m.Role)
		}
		if m.Role == RoleSystem && i > 0 {
			return fmt.Sprintf("system message at position %d, only the first message may be system", i)
		}
		if i >= offset {
			expected := RoleUser
			if (i-offset)%2 == 1 {
				expected = RoleAssistant
			}
			if m.Role != expected {
				return fmt.Sprintf("message %d has role %s, expected %s (roles must alternate)", i, m.Role, expected)
			}
		}
	}
	return ""
}
