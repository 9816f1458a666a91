package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Lister fetches the provider's model identifiers.
type Lister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// Catalog is a lazy TTL cache over the provider's model listing. A failed
// refresh keeps serving the previous list so the config menu stays usable
// while the provider is down.
type Catalog struct {
	lister Lister
	ttl    time.Duration
	log    zerolog.Logger
	now    func() time.Time

	mu        sync.Mutex
	models    []string
	fetchedAt time.Time
}

func New(lister Lister, ttl time.Duration, log zerolog.Logger) *Catalog {
	return &Catalog{
		lister: lister,
		ttl:    ttl,
		log:    log.With().Str("component", "catalog").Logger(),
		now:    time.Now,
	}
}

// Models returns the cached model ids, refreshing them once the TTL has
// elapsed.
func (c *Catalog) Models(ctx context.Context) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.models != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.models
	}

	ids, err := c.lister.ListModels(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("model listing refresh failed, serving cached list")
		return c.models
	}

	c.models = ids
	c.fetchedAt = c.now()
	return c.models
}
