package sync

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/parley/pkg/chat"
	"github.com/go-go-golems/parley/pkg/chat/registry"
)

func startAdapter(t *testing.T) (*Feed, *registry.Registry, func()) {
	t.Helper()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	reg := registry.New()

	adapter, err := NewAdapter(pubSub, reg, "u1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = adapter.Run(ctx)
	}()

	select {
	case <-adapter.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("adapter did not start")
	}

	return NewFeed(pubSub, "u1"), reg, func() {
		cancel()
		<-done
		_ = pubSub.Close()
	}
}

func waitForLen(t *testing.T, reg *registry.Registry, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return reg.Len() == want
	}, 5*time.Second, 10*time.Millisecond)
}

func TestAdapterMergesFeedEvents(t *testing.T) {
	feed, reg, stop := startAdapter(t)
	defer stop()

	created := chat.Conversation{ID: "c1", Title: "First", UserID: "u1", CreatedAt: time.Now()}
	require.NoError(t, feed.Publish(registry.ChangeEvent{Type: registry.ChangeInsert, New: &created}))
	waitForLen(t, reg, 1)

	renamed := created
	renamed.Title = "Renamed"
	require.NoError(t, feed.Publish(registry.ChangeEvent{Type: registry.ChangeUpdate, New: &renamed}))
	require.Eventually(t, func() bool {
		got, ok := reg.Get("c1")
		return ok && got.Title == "Renamed"
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, feed.Publish(registry.ChangeEvent{Type: registry.ChangeDelete, Old: &registry.ChangeRef{ID: "c1"}}))
	waitForLen(t, reg, 0)
}

func TestAdapterFiltersForeignOwners(t *testing.T) {
	feed, reg, stop := startAdapter(t)
	defer stop()

	foreign := chat.Conversation{ID: "x1", Title: "Not mine", UserID: "u2", CreatedAt: time.Now()}
	require.NoError(t, feed.Publish(registry.ChangeEvent{Type: registry.ChangeInsert, New: &foreign}))

	mine := chat.Conversation{ID: "c1", Title: "Mine", UserID: "u1", CreatedAt: time.Now()}
	require.NoError(t, feed.Publish(registry.ChangeEvent{Type: registry.ChangeInsert, New: &mine}))

	waitForLen(t, reg, 1)
	_, ok := reg.Get("x1")
	require.False(t, ok)
}

func TestAdapterSurvivesMalformedPayload(t *testing.T) {
	feed, reg, stop := startAdapter(t)
	defer stop()

	garbage := message.NewMessage(watermill.NewUUID(), []byte("not json"))
	require.NoError(t, feed.pub.Publish(Topic("u1"), garbage))

	valid := chat.Conversation{ID: "c1", Title: "Still alive", UserID: "u1", CreatedAt: time.Now()}
	require.NoError(t, feed.Publish(registry.ChangeEvent{Type: registry.ChangeInsert, New: &valid}))

	waitForLen(t, reg, 1)
}

func TestLocalAndFeedMutationsConverge(t *testing.T) {
	feed, reg, stop := startAdapter(t)
	defer stop()

	// local optimistic creation echo
	local := chat.Conversation{ID: "c1", Title: "Local title", UserID: "u1", CreatedAt: time.Now()}
	reg.Upsert(local)

	// the server's committed view of the same row arrives later and wins
	committed := local
	committed.Title = "Committed title"
	bump := time.Now().Add(time.Second)
	committed.UpdatedAt = &bump
	require.NoError(t, feed.Publish(registry.ChangeEvent{Type: registry.ChangeUpdate, New: &committed}))

	require.Eventually(t, func() bool {
		got, ok := reg.Get("c1")
		return ok && got.Title == "Committed title" && got.UpdatedAt != nil
	}, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, 1, reg.Len())
}
