package session

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/parley/pkg/chat/api"
	"github.com/go-go-golems/parley/pkg/chat/registry"
	"github.com/go-go-golems/parley/pkg/identity"
)

const defaultConversationTitle = "New Chat"

// Coordinator turns a "start a new thread" intent into a durable
// conversation id. One call issues exactly one creation request; it never
// retries, so idempotence per intent is the caller invoking it once.
type Coordinator struct {
	backend  Backend
	registry *registry.Registry
	user     identity.Identity
}

func NewCoordinator(backend Backend, reg *registry.Registry, user identity.Identity) *Coordinator {
	return &Coordinator{
		backend:  backend,
		registry: reg,
		user:     user,
	}
}

// CreateConversation persists a new thread and echoes the returned
// summary into the registry. On failure nothing is mutated and the caller
// is left without a conversation id; it must not proceed to send.
func (c *Coordinator) CreateConversation(ctx context.Context, title string, model string) (string, error) {
	if title == "" {
		title = defaultConversationTitle
	}

	conv, err := c.backend.CreateConversation(ctx, api.CreateRequest{
		UserID: c.user.ID,
		Title:  title,
		Model:  model,
	})
	if err != nil {
		return "", errors.Wrap(err, "create conversation")
	}

	c.registry.Upsert(conv)
	log.Debug().Str("conversation_id", conv.ID).Str("title", conv.Title).Msg("conversation created")
	return conv.ID, nil
}
