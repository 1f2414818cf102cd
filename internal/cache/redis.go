package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmarchuk/shorturls/internal/models"
	"github.com/redis/go-redis/v9"
)

// shortcodeKeyPrefix namespaces mapping entries in Redis.
const shortcodeKeyPrefix = "short:code:"

const pingTimeout = 5 * time.Second

// MappingCache caches shortcode-to-URL mappings for the redirect path.
// Mappings are immutable once created, so entries are only ever evicted
// by their TTL.
type MappingCache struct {
	client *redis.Client
}

// New connects to Redis and verifies the connection with a ping.
func New(addr, password string, db, poolSize int) (*MappingCache, error) {
	const op = "cache.New"

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: poolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: failed to connect to redis: %w", op, err)
	}

	return &MappingCache{client: client}, nil
}

// GetMapping retrieves a cached mapping. A miss is reported as (nil, nil).
func (c *MappingCache) GetMapping(ctx context.Context, shortcode string) (*models.URLMapping, error) {
	const op = "cache.MappingCache.GetMapping"

	data, err := c.client.Get(ctx, shortcodeKeyPrefix+shortcode).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get mapping: %w", op, err)
	}

	var mapping models.URLMapping
	if err := json.Unmarshal(data, &mapping); err != nil {
		return nil, fmt.Errorf("%s: failed to unmarshal mapping: %w", op, err)
	}

	return &mapping, nil
}

// SetMapping stores a mapping under its shortcode for the given TTL.
func (c *MappingCache) SetMapping(ctx context.Context, mapping *models.URLMapping, ttl time.Duration) error {
	const op = "cache.MappingCache.SetMapping"

	data, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("%s: failed to marshal mapping: %w", op, err)
	}

	if err := c.client.Set(ctx, shortcodeKeyPrefix+mapping.Shortcode, data, ttl).Err(); err != nil {
		return fmt.Errorf("%s: failed to set mapping: %w", op, err)
	}

	return nil
}

// Close closes the underlying Redis connection.
func (c *MappingCache) Close() error {
	return c.client.Close()
}
