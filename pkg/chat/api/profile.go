package api

import (
	"context"

	"github.com/pkg/errors"

	"github.com/go-go-golems/parley/pkg/profile"
)

// pgUniqueViolation is the Postgres error code for a unique-constraint
// violation, which is how the backend reports a taken username.
const pgUniqueViolation = "23505"

var _ profile.Store = (*Client)(nil)

// UpsertProfile persists the identity's profile row. A uniqueness
// conflict on the username column maps to profile.ErrUsernameTaken so the
// bootstrap can regenerate and retry.
func (c *Client) UpsertProfile(ctx context.Context, p profile.Profile) error {
	err := c.postJSON(ctx, "/users/upsert", p, nil)
	if err == nil {
		return nil
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Code == pgUniqueViolation {
		return profile.ErrUsernameTaken
	}
	return errors.Wrap(err, "upsert profile")
}
