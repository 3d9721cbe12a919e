// Package identity issues the stable opaque participant identifier for
// one profile. The id is generated once, persisted, and immutable for
// the lifetime of the backing store.
package identity

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/quickassist/collab-server-go/internal/apperr"
	"github.com/quickassist/collab-server-go/internal/localstore"
)

type Provider struct {
	store *localstore.Store

	mu     sync.Mutex
	cached string
}

func NewProvider(store *localstore.Store) *Provider {
	return &Provider{store: store}
}

// GetOrCreate returns the profile's participant id, generating and
// persisting one on first call. Idempotent: every later call returns the
// same value.
func (p *Provider) GetOrCreate() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != "" {
		return p.cached, nil
	}

	id, err := p.store.GetIdentity()
	if err != nil {
		return "", apperr.Persistence(err)
	}

	if id == "" {
		id = uuid.NewString()
		if err := p.store.PutIdentity(id); err != nil {
			// Lost a race with another process sharing the profile;
			// re-read the winner.
			existing, readErr := p.store.GetIdentity()
			if readErr != nil || existing == "" {
				return "", apperr.Persistence(err)
			}
			id = existing
		} else {
			log.Info().Str("participantId", id).Msg("participant identity created")
		}
	}

	p.cached = id
	return id, nil
}
