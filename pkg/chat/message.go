package chat

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
)

// Message is a single entry in a conversation transcript. Messages are
// append-only: once created, only Content is ever overwritten, and only
// once (placeholder resolution).
type Message struct {
	ID             uuid.UUID `json:"id"`
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id,omitempty"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	ModelUsed      string    `json:"model_used,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type MessageOption func(*Message)

func WithID(id uuid.UUID) MessageOption {
	return func(m *Message) {
		m.ID = id
	}
}

func WithUserID(userID string) MessageOption {
	return func(m *Message) {
		m.UserID = userID
	}
}

func WithModel(model string) MessageOption {
	return func(m *Message) {
		m.ModelUsed = model
	}
}

func WithCreatedAt(t time.Time) MessageOption {
	return func(m *Message) {
		m.CreatedAt = t
	}
}

func NewMessage(conversationID string, role Role, content string, options ...MessageOption) Message {
	ret := Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now(),
	}

	for _, option := range options {
		option(&ret)
	}

	return ret
}

// IsPlaceholder reports whether the message is an unresolved assistant
// placeholder (inserted on submission, awaiting the completion response).
func (m Message) IsPlaceholder() bool {
	return m.Role == RoleAssistant && m.Content == ""
}
