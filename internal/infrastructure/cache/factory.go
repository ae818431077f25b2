package cache

import (
	"context"
	"fmt"

	"github.com/erp/shopfloor/internal/infrastructure/config"
	"go.uber.org/zap"
)

// ReportStore is a byte cache for computed reports
type ReportStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte) error
	Clear(ctx context.Context) error
	Close() error
}

// ReportCacheFactory creates report caches based on configuration
type ReportCacheFactory struct {
	cacheConfig           config.ReportCacheConfig
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// ReportCacheFactoryOption is a functional option for configuring the factory
type ReportCacheFactoryOption func(*ReportCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) ReportCacheFactoryOption {
	return func(f *ReportCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory cache when Redis is unavailable.
// Default is true.
func WithInMemoryFallback(allow bool) ReportCacheFactoryOption {
	return func(f *ReportCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewReportCacheFactory creates a new factory
func NewReportCacheFactory(cacheCfg config.ReportCacheConfig, redisCfg config.RedisConfig, opts ...ReportCacheFactoryOption) *ReportCacheFactory {
	f := &ReportCacheFactory{
		cacheConfig:           cacheCfg,
		redisConfig:           redisCfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateInMemoryCache creates a process-local cache.
// Instances do not share it, so a backfill on one instance only clears its own copy.
func (f *ReportCacheFactory) CreateInMemoryCache() *InMemoryReportCache {
	return NewInMemoryReportCache(
		WithTTL(f.cacheConfig.TTL),
		WithMaxEntries(f.cacheConfig.MaxEntries),
		WithInMemoryLogger(f.logger.Named("report_cache")),
	)
}

// CreateRedisCache creates a Redis-backed cache
func (f *ReportCacheFactory) CreateRedisCache(ctx context.Context) (*RedisReportCache, error) {
	c, err := NewRedisReportCache(ctx, RedisConfig{
		Addr:     f.redisConfig.Addr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}, f.cacheConfig.KeyPrefix, f.cacheConfig.TTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis report cache: %w", err)
	}
	return c, nil
}

// CreateCache creates the configured cache. It returns nil when caching is
// disabled. A redis backend that cannot be reached falls back to memory
// unless fallback was turned off.
func (f *ReportCacheFactory) CreateCache(ctx context.Context) (ReportStore, error) {
	if !f.cacheConfig.Enabled {
		f.logger.Info("report cache disabled")
		return nil, nil
	}

	if f.cacheConfig.Backend != "redis" {
		f.logger.Info("using in-memory report cache",
			zap.Duration("ttl", f.cacheConfig.TTL),
			zap.Int("max_entries", f.cacheConfig.MaxEntries))
		return f.CreateInMemoryCache(), nil
	}

	store, err := f.CreateRedisCache(ctx)
	if err == nil {
		f.logger.Info("using Redis report cache", zap.String("addr", f.redisConfig.Addr()))
		return store, nil
	}
	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis report cache required but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory report cache. "+
		"Backfills on other instances will not invalidate this cache before its TTL.",
		zap.Error(err),
	)
	return f.CreateInMemoryCache(), nil
}
