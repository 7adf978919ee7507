package universe

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/screener/internal/contracts"
	"github.com/wonny/screener/pkg/logger"
)

// Store is the JSON cache the listing is kept in (pkg/redis.Cache)
type Store interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Cached serves a listing from the store and refreshes it from the source on a miss.
// Cache errors never fail a listing; the source is asked instead.
type Cached struct {
	source Source
	store  Store
	key    string
	ttl    time.Duration
	logger *logger.Logger
}

// NewCached wraps source with a cache entry under key
func NewCached(source Source, store Store, key string, ttl time.Duration, log *logger.Logger) *Cached {
	return &Cached{
		source: source,
		store:  store,
		key:    key,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"module": "universe", "key": key}),
	}
}

// ListInstruments implements Source
func (c *Cached) ListInstruments(ctx context.Context) ([]contracts.Instrument, error) {
	var cached []contracts.Instrument
	found, err := c.store.Get(ctx, c.key, &cached)
	if err != nil {
		c.logger.WithError(err).Warn("Universe cache read failed")
	}
	if found && len(cached) > 0 {
		c.logger.WithField("count", len(cached)).Debug("Universe cache hit")
		return cached, nil
	}

	instruments, err := c.source.ListInstruments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list instruments: %w", err)
	}

	if len(instruments) > 0 {
		if err := c.store.Set(ctx, c.key, instruments, c.ttl); err != nil {
			c.logger.WithError(err).Warn("Universe cache write failed")
		}
	}

	return instruments, nil
}
