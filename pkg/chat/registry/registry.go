package registry

import (
	"sort"
	"sync"

	"github.com/huandu/go-clone"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/parley/pkg/chat"
)

type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// ChangeRef identifies the row a DELETE event removed; the feed only
// carries the old row's id.
type ChangeRef struct {
	ID string `json:"id"`
}

// ChangeEvent is one row-level notification from the conversations change
// feed. Local optimistic mutations are expressed as the same events so
// both producers share a single merge path.
type ChangeEvent struct {
	Type ChangeType         `json:"eventType"`
	New  *chat.Conversation `json:"new,omitempty"`
	Old  *ChangeRef         `json:"old,omitempty"`
}

// Registry holds the canonical set of conversation summaries for the
// current identity, unique by id. Two producers feed it: local optimistic
// mutations and the realtime change feed. The merge is idempotent and
// order-tolerant across distinct ids, so any interleaving of the two
// streams converges as long as each id's own events stay ordered.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]chat.Conversation
}

func New() *Registry {
	return &Registry{
		entries: make(map[string]chat.Conversation),
	}
}

// Apply merges one change event. INSERT and UPDATE are the same
// operation: a full-row, last-writer-wins upsert — the incoming row is
// the server's last-committed view and replaces whatever is held for
// that id. DELETE of an unknown id is a no-op.
func (r *Registry) Apply(ev ChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.Type {
	case ChangeInsert, ChangeUpdate:
		if ev.New == nil || ev.New.ID == "" {
			log.Warn().Str("type", string(ev.Type)).Msg("change event without row, dropping")
			return
		}
		r.entries[ev.New.ID] = *ev.New
	case ChangeDelete:
		id := ""
		if ev.Old != nil {
			id = ev.Old.ID
		}
		if id == "" {
			log.Warn().Msg("delete event without id, dropping")
			return
		}
		delete(r.entries, id)
	default:
		log.Warn().Str("type", string(ev.Type)).Msg("unknown change event type, dropping")
	}
}

// Upsert is the local optimistic echo for creation and title changes.
func (r *Registry) Upsert(conv chat.Conversation) {
	r.Apply(ChangeEvent{Type: ChangeUpdate, New: &conv})
}

// Remove is the local optimistic echo for deletion. Removing an id that
// is not present is a no-op.
func (r *Registry) Remove(id string) {
	r.Apply(ChangeEvent{Type: ChangeDelete, Old: &ChangeRef{ID: id}})
}

// Replace resets the registry from a full list fetch.
func (r *Registry) Replace(rows []chat.Conversation) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = make(map[string]chat.Conversation, len(rows))
	for _, row := range rows {
		if row.ID == "" {
			continue
		}
		r.entries[row.ID] = row
	}
}

func (r *Registry) Get(id string) (chat.Conversation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conv, ok := r.entries[id]
	return conv, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

// Snapshot returns a deep copy of the current list, sorted descending by
// last activity (UpdatedAt falling back to CreatedAt), ties broken by id
// so the order is deterministic.
func (r *Registry) Snapshot() []chat.Conversation {
	r.mu.RLock()
	ret := make([]chat.Conversation, 0, len(r.entries))
	for _, conv := range r.entries {
		ret = append(ret, conv)
	}
	r.mu.RUnlock()

	sort.Slice(ret, func(i, j int) bool {
		ti, tj := ret[i].ActivityTime(), ret[j].ActivityTime()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return ret[i].ID < ret[j].ID
	})

	return clone.Clone(ret).([]chat.Conversation)
}
