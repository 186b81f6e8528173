package chat

import "time"

// Conversation is the summary row kept in the registry, one per thread
// owned by an identity. UpdatedAt is nil until the server first bumps it.
type Conversation struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	UserID    string     `json:"user_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// ActivityTime returns the sort key for list ordering: UpdatedAt when
// set, CreatedAt otherwise.
func (c Conversation) ActivityTime() time.Time {
	if c.UpdatedAt != nil {
		return *c.UpdatedAt
	}
	return c.CreatedAt
}

// ModelOption is one entry of the read-only model catalog. Selection is
// local UI state and never persisted.
type ModelOption struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Available   bool   `json:"available"`
}
