package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/peter-kozarec/flowdelta/pkg/common"
	"github.com/peter-kozarec/flowdelta/pkg/data"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "flowdelta:bars:"

// BarCache keeps aggregated bar series in redis as JSON with an expiry.
type BarCache struct {
	client redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

func NewBarCache(client redis.Cmdable, ttl time.Duration, logger *zap.Logger) *BarCache {
	return &BarCache{
		client: client,
		ttl:    ttl,
		logger: logger.Named("bar_cache"),
	}
}

// Dial connects to the redis instance at url and verifies it with a ping.
func Dial(ctx context.Context, url, password string, ttl time.Duration, logger *zap.Logger) (*BarCache, *redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if password != "" {
		opt.Password = password
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("%w: redis ping failed: %w", common.ErrSourceUnavailable, err)
	}

	return NewBarCache(client, ttl, logger), client, nil
}

func CacheKey(key common.SeriesKey) string {
	return keyPrefix + key.String()
}

func (c *BarCache) SaveBars(ctx context.Context, key common.SeriesKey, bars []common.Bar) error {
	payload, err := json.Marshal(bars)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	if err := c.client.Set(ctx, CacheKey(key), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	c.logger.Debug("bars cached",
		zap.String("key", CacheKey(key)),
		zap.Int("bars", len(bars)),
		zap.Int("bytes", len(payload)),
		zap.Duration("ttl", c.ttl))
	return nil
}

func (c *BarCache) LoadBars(ctx context.Context, key common.SeriesKey) ([]common.Bar, bool, error) {
	payload, err := c.client.Get(ctx, CacheKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	bars, err := decodeBars(payload)
	if err != nil {
		return nil, false, err
	}
	return bars, len(bars) > 0, nil
}

func decodeBars(payload []byte) ([]common.Bar, error) {
	var bars []common.Bar
	if err := json.Unmarshal(payload, &bars); err != nil {
		return nil, fmt.Errorf("json.Unmarshal: %w", err)
	}
	return bars, nil
}

var _ data.BarStore = (*BarCache)(nil)
