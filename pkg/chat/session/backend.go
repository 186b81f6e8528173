package session

import (
	"context"

	"github.com/go-go-golems/parley/pkg/chat"
	"github.com/go-go-golems/parley/pkg/chat/api"
)

// Backend is the slice of the chat backend the session layer depends on.
// api.Client satisfies it; tests inject fakes.
type Backend interface {
	CreateConversation(ctx context.Context, req api.CreateRequest) (chat.Conversation, error)
	SaveMessage(ctx context.Context, req api.SaveRequest) error
	Complete(ctx context.Context, req api.CompleteRequest) (*api.CompleteResponse, error)
	Messages(ctx context.Context, conversationID string) ([]chat.Message, error)
	DeleteConversation(ctx context.Context, conversationID string) error
	Models(ctx context.Context) ([]chat.ModelOption, error)
}

var _ Backend = (*api.Client)(nil)

// Notifier surfaces transient user-visible notices for failures the user
// directly triggered. Background write failures never reach it.
type Notifier interface {
	Notify(text string)
}

type NopNotifier struct{}

func (NopNotifier) Notify(string) {}
