package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

const (
	defaultReportTTL        = 5 * time.Minute
	defaultReportMaxEntries = 256
)

// InMemoryReportCache is a bounded TTL cache of encoded reports.
// When full, the least recently used entry is evicted.
type InMemoryReportCache struct {
	entries    *expirable.LRU[string, []byte]
	ttl        time.Duration
	maxEntries int
	logger     *zap.Logger

	// Stats for monitoring
	hits      int64
	misses    int64
	evictions int64
}

// InMemoryReportCacheOption is a functional option for configuring the cache
type InMemoryReportCacheOption func(*InMemoryReportCache)

// WithTTL sets how long a report stays cached
func WithTTL(ttl time.Duration) InMemoryReportCacheOption {
	return func(c *InMemoryReportCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithMaxEntries bounds the number of cached reports
func WithMaxEntries(n int) InMemoryReportCacheOption {
	return func(c *InMemoryReportCache) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithInMemoryLogger sets the logger for the cache
func WithInMemoryLogger(logger *zap.Logger) InMemoryReportCacheOption {
	return func(c *InMemoryReportCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewInMemoryReportCache creates a cache holding at most maxEntries reports for ttl each
func NewInMemoryReportCache(opts ...InMemoryReportCacheOption) *InMemoryReportCache {
	c := &InMemoryReportCache{
		ttl:        defaultReportTTL,
		maxEntries: defaultReportMaxEntries,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.entries = expirable.NewLRU[string, []byte](c.maxEntries, func(string, []byte) {
		atomic.AddInt64(&c.evictions, 1)
	}, c.ttl)
	return c
}

// Get returns a copy of the cached bytes for key
func (c *InMemoryReportCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, ok := c.entries.Get(key)
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return nil, false, nil
	}
	atomic.AddInt64(&c.hits, 1)
	return append([]byte(nil), data...), true, nil
}

// Set stores a copy of data under key
func (c *InMemoryReportCache) Set(_ context.Context, key string, data []byte) error {
	c.entries.Add(key, append([]byte(nil), data...))
	c.logger.Debug("Cached report", zap.String("key", key), zap.Int("bytes", len(data)))
	return nil
}

// Clear drops every cached report
func (c *InMemoryReportCache) Clear(_ context.Context) error {
	n := c.entries.Len()
	c.entries.Purge()
	c.logger.Debug("Cleared report cache", zap.Int("entries", n))
	return nil
}

// Close releases resources held by the cache
func (c *InMemoryReportCache) Close() error {
	c.entries.Purge()
	return nil
}

// Len returns the number of live entries
func (c *InMemoryReportCache) Len() int {
	return c.entries.Len()
}

// GetStats returns cache statistics
func (c *InMemoryReportCache) GetStats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

var _ ReportStore = (*InMemoryReportCache)(nil)
