package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/strideapp/habitsync/internal/models"
)

// Cache is a short-TTL Redis read cache for per-user habit lists. Every
// method is safe on a nil receiver and treats Redis failures as cache misses,
// so a Redis outage degrades to direct database reads.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCache connects to Redis and verifies connectivity
func NewCache(redisURL string, ttl time.Duration, logger *zap.Logger) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Cache{client: client, ttl: ttl, logger: logger}, nil
}

func habitsKey(userID uuid.UUID) string {
	return fmt.Sprintf("habits:%s", userID)
}

// GetHabits returns the cached habit list for a user, if present
func (c *Cache) GetHabits(ctx context.Context, userID uuid.UUID) ([]*models.Habit, bool) {
	if c == nil {
		return nil, false
	}

	payload, err := c.client.Get(ctx, habitsKey(userID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("cache_read_failed", zap.Error(err))
		}
		return nil, false
	}

	var habits []*models.Habit
	if err := json.Unmarshal(payload, &habits); err != nil {
		c.logger.Warn("cache_entry_corrupt", zap.String("key", habitsKey(userID)), zap.Error(err))
		c.Invalidate(ctx, userID)
		return nil, false
	}

	return habits, true
}

// SetHabits caches the habit list for a user with the configured TTL
func (c *Cache) SetHabits(ctx context.Context, userID uuid.UUID, habits []*models.Habit) {
	if c == nil {
		return
	}

	payload, err := json.Marshal(habits)
	if err != nil {
		c.logger.Warn("cache_marshal_failed", zap.Error(err))
		return
	}

	if err := c.client.Set(ctx, habitsKey(userID), payload, c.ttl).Err(); err != nil {
		c.logger.Debug("cache_write_failed", zap.Error(err))
	}
}

// Invalidate drops the cached habit list for a user
func (c *Cache) Invalidate(ctx context.Context, userID uuid.UUID) {
	if c == nil {
		return
	}

	if err := c.client.Del(ctx, habitsKey(userID)).Err(); err != nil {
		c.logger.Debug("cache_invalidate_failed", zap.Error(err))
	}
}

// Ping checks if Redis is reachable
func (c *Cache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
