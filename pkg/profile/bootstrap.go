package profile

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/parley/pkg/helpers"
	"github.com/go-go-golems/parley/pkg/identity"
)

// ErrUsernameTaken signals a uniqueness-constraint violation on the
// username column. Stores map their backend's conflict signal onto it.
var ErrUsernameTaken = errors.New("username already taken")

// Profile is the row persisted for an identity, keyed by identity id.
type Profile struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

type Store interface {
	UpsertProfile(ctx context.Context, p Profile) error
}

const bootstrapAttempts = 10

// Bootstrap allocates a username for the identity and upserts its profile
// row. On a username conflict it regenerates and retries, up to ten
// attempts; any other store error aborts immediately.
//
// Failure here is non-fatal to sign-in. Callers log the returned error
// and proceed; the profile simply stays without a username until the next
// sign-in runs the bootstrap again.
func Bootstrap(ctx context.Context, store Store, id identity.Identity) (Profile, error) {
	name := id.DisplayName
	if name == "" {
		name = id.Email
	}

	var p Profile
	err := helpers.Retry(ctx, bootstrapAttempts, func(ctx context.Context) error {
		candidate := GenerateUsername(name, DefaultUsernameLength)
		p = Profile{
			ID:        id.ID,
			Email:     id.Email,
			Name:      id.DisplayName,
			Username:  candidate,
			AvatarURL: id.AvatarRef,
		}

		err := store.UpsertProfile(ctx, p)
		if errors.Is(err, ErrUsernameTaken) {
			log.Debug().Str("username", candidate).Msg("username conflict, regenerating")
		}
		return err
	}, func(err error) bool {
		return errors.Is(err, ErrUsernameTaken)
	})
	if err != nil {
		log.Warn().Err(err).Str("user_id", id.ID).Msg("username bootstrap failed")
		return Profile{}, errors.Wrap(err, "username bootstrap")
	}

	log.Debug().Str("user_id", id.ID).Str("username", p.Username).Msg("profile upserted")
	return p, nil
}
