package sync

import (
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"

	"github.com/go-go-golems/parley/pkg/chat/registry"
)

// Feed publishes typed change events onto an identity's feed topic. It is
// the seam where a server-push transport bridges into the adapter; tests
// and local echoes publish through it directly.
type Feed struct {
	pub   message.Publisher
	topic string
}

func NewFeed(pub message.Publisher, userID string) *Feed {
	return &Feed{
		pub:   pub,
		topic: Topic(userID),
	}
}

func (f *Feed) Publish(ev registry.ChangeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "marshal change event")
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := f.pub.Publish(f.topic, msg); err != nil {
		return errors.Wrap(err, "publish change event")
	}
	return nil
}
