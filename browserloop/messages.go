package browserloop

import "fmt"

// Role identifies who produced a message in the conversation.
type Role string

const (
	RoleSystem Role = "system"
	RoleHuman  Role = "human"
	RoleAI     Role = "ai"
)

// Message is a single entry in the conversation history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SystemMessage creates a system Message.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

// HumanMessage creates a human Message.
func HumanMessage(text string) Message {
	return Message{Role: RoleHuman, Content: text}
}

// AIMessage creates an AI Message.
func AIMessage(text string) Message {
	return Message{Role: RoleAI, Content: text}
}

// History is the append-only, ordered conversation record. The leading system
// message may be amended exactly once, when the tool catalog arrives from the
// MCP endpoint.
type History struct {
	messages        []Message
	catalogAttached bool
}

// NewHistory creates a History seeded with the given system prompt.
func NewHistory(systemPrompt string) *History {
	return &History{
		messages: []Message{SystemMessage(systemPrompt)},
	}
}

// AttachToolCatalog appends the tool catalog to the system message. It may be
// called once per history; later calls return an error.
func (h *History) AttachToolCatalog(catalog string) error {
	if h.catalogAttached {
		return fmt.Errorf("tool catalog already attached")
	}
	if len(h.messages) == 0 || h.messages[0].Role != RoleSystem {
		return fmt.Errorf("history has no leading system message")
	}
	h.messages[0].Content += "\n\nAvailable tools:\n" + catalog
	h.catalogAttached = true
	return nil
}

// AppendHuman appends a human message.
func (h *History) AppendHuman(text string) {
	h.messages = append(h.messages, HumanMessage(text))
}

// AppendAI appends an AI message.
func (h *History) AppendAI(text string) {
	h.messages = append(h.messages, AIMessage(text))
}

// Messages returns a copy of the ordered history.
func (h *History) Messages() []Message {
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Len returns the number of messages in the history.
func (h *History) Len() int { return len(h.messages) }
