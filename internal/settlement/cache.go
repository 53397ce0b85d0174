package settlement

import (
	"context"
	"sync"

	"pokerbank/internal/logger"
	"pokerbank/internal/payments"
)

type EndpointResolver interface {
	ResolveFundedEndpoint(ctx context.Context, userID string) (*payments.Endpoint, error)
}

// EndpointCache memoises endpoint lookups for one settlement run. Concurrent
// lookups for the same user share a single call. A failed lookup is cached as
// "no endpoint".
type EndpointCache struct {
	resolver EndpointResolver
	logger   *logger.Logger

	mu      sync.Mutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	once     sync.Once
	endpoint *payments.Endpoint
}

func NewEndpointCache(resolver EndpointResolver, log *logger.Logger) *EndpointCache {
	if log == nil {
		log = logger.Nop()
	}
	return &EndpointCache{resolver: resolver, logger: log, entries: make(map[string]*cacheEntry)}
}

func (c *EndpointCache) Resolve(ctx context.Context, userID string) *payments.Endpoint {
	if userID == "" {
		return nil
	}
	c.mu.Lock()
	entry, ok := c.entries[userID]
	if !ok {
		entry = &cacheEntry{}
		c.entries[userID] = entry
	}
	c.mu.Unlock()

	entry.once.Do(func() {
		endpoint, err := c.resolver.ResolveFundedEndpoint(ctx, userID)
		if err != nil {
			c.logger.Error(c.logger.WithField(ctx, "user_id", userID), "endpoint lookup failed", err)
			return
		}
		if endpoint != nil && endpoint.FundingSourceURL != "" {
			entry.endpoint = endpoint
		}
	})
	return entry.endpoint
}
