package sync

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/parley/pkg/chat/registry"
	"github.com/go-go-golems/parley/pkg/helpers"
)

// Topic returns the change-feed topic for one identity's conversations.
func Topic(userID string) string {
	return "conversations." + userID
}

// Adapter subscribes to the conversations change feed of one identity and
// merges every event into the registry. It holds no reconnection or
// backoff logic: a dropped subscription means silent staleness until a
// new adapter is started.
type Adapter struct {
	router *message.Router
	userID string
	reg    *registry.Registry
}

type AdapterOption func(*adapterConfig)

type adapterConfig struct {
	logger watermill.LoggerAdapter
}

func WithLogger(logger watermill.LoggerAdapter) AdapterOption {
	return func(c *adapterConfig) {
		c.logger = logger
	}
}

func NewAdapter(sub message.Subscriber, reg *registry.Registry, userID string, options ...AdapterOption) (*Adapter, error) {
	cfg := &adapterConfig{
		logger: helpers.NewWatermill(log.Logger),
	}
	for _, option := range options {
		option(cfg)
	}

	router, err := message.NewRouter(message.RouterConfig{}, cfg.logger)
	if err != nil {
		return nil, errors.Wrap(err, "create sync router")
	}

	ret := &Adapter{
		router: router,
		userID: userID,
		reg:    reg,
	}
	router.AddNoPublisherHandler("conversation-sync", Topic(userID), sub, ret.handle)

	return ret, nil
}

// handle decodes and merges one feed event. Malformed payloads and
// foreign-owner rows are logged and acked; one bad event must not wedge
// the subscription.
func (a *Adapter) handle(msg *message.Message) error {
	var ev registry.ChangeEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		log.Warn().Err(err).Str("message_id", msg.UUID).Msg("malformed change event, dropping")
		return nil
	}

	if ev.New != nil && ev.New.UserID != "" && ev.New.UserID != a.userID {
		log.Debug().Str("owner", ev.New.UserID).Msg("change event for foreign owner, dropping")
		return nil
	}

	log.Debug().
		Str("type", string(ev.Type)).
		Str("message_id", msg.UUID).
		Msg("merging change event")
	a.reg.Apply(ev)
	return nil
}

// Run blocks consuming the feed until the context is cancelled.
func (a *Adapter) Run(ctx context.Context) error {
	return a.router.Run(ctx)
}

// Running is closed once the router consumes the subscription.
func (a *Adapter) Running() chan struct{} {
	return a.router.Running()
}

func (a *Adapter) Close() error {
	return a.router.Close()
}
