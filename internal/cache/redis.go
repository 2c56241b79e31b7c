package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/whisperapi/internal/transcribe"
)

// ErrMiss is returned by Get when no transcript is stored for the key.
var ErrMiss = errors.New("cache miss")

// Cache stores finished transcripts in Redis, keyed by model and audio hash.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Key derives the cache key for audio transcribed by the named model.
func Key(model string, audio []byte) string {
	sum := sha256.Sum256(audio)
	return "transcribe:" + model + ":" + hex.EncodeToString(sum[:])
}

func (c *Cache) Get(ctx context.Context, key string) ([]transcribe.Segment, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get %s: %w", key, err)
	}
	var segs []transcribe.Segment
	if err := json.Unmarshal(val, &segs); err != nil {
		return nil, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return segs, nil
}

func (c *Cache) Set(ctx context.Context, key string, segs []transcribe.Segment) error {
	data, err := json.Marshal(segs)
	if err != nil {
		return fmt.Errorf("marshal segments: %w", err)
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}
