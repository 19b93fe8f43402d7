package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"delyva-shipping-layer/internal/domain"
	"delyva-shipping-layer/internal/ports"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisQuoteCache caches instant-quote results in Redis. The rate callback
// blocks checkout, so a short TTL keeps repeated quotes for the same parcel
// off the provider API.
type RedisQuoteCache struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedisQuoteCache creates a Redis-backed quote cache.
func NewRedisQuoteCache(client *redis.Client, logger zerolog.Logger) ports.QuoteCache {
	return &RedisQuoteCache{client: client, logger: logger}
}

// quoteKey derives a cache key from the quote inputs.
func quoteKey(locationID string, origin, destination domain.Address, weightKg float64) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%s|%s|%s|%.3f",
		locationID,
		origin.Postcode, origin.City,
		destination.Postcode, destination.City,
		weightKg,
	))
	return "quote:" + hex.EncodeToString(sum[:16])
}

// Get returns the cached rates or (nil, nil) on a miss. Redis failures are
// logged and treated as misses.
func (c *RedisQuoteCache) Get(ctx context.Context, locationID string, origin, destination domain.Address, weightKg float64) ([]domain.Rate, error) {
	raw, err := c.client.Get(ctx, quoteKey(locationID, origin, destination, weightKg)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		c.logger.Warn().Err(err).Msg("Quote cache read failed, treating as miss")
		return nil, nil
	}

	var rates []domain.Rate
	if err := json.Unmarshal(raw, &rates); err != nil {
		c.logger.Warn().Err(err).Msg("Quote cache entry corrupt, treating as miss")
		return nil, nil
	}
	return rates, nil
}

// Set stores rates for the quote inputs with the given TTL. Failures are
// logged only.
func (c *RedisQuoteCache) Set(ctx context.Context, locationID string, origin, destination domain.Address, weightKg float64, rates []domain.Rate, ttl time.Duration) error {
	raw, err := json.Marshal(rates)
	if err != nil {
		return fmt.Errorf("failed to encode rates: %w", err)
	}
	if err := c.client.Set(ctx, quoteKey(locationID, origin, destination, weightKg), raw, ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("Quote cache write failed")
	}
	return nil
}
