// Package cache keeps generation replies in Redis so identical prompts are
// not sent to the generation service twice within the TTL.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"note-enhancer/internal/openai"
)

const defaultTTL = 24 * time.Hour

type entry struct {
	Reply    string    `json:"reply"`
	Model    string    `json:"model"`
	CachedAt time.Time `json:"cached_at"`
}

type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisCache(redisURL string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisCacheWithClient(client, ttl), nil
}

func NewRedisCacheWithClient(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisCache{client: client, prefix: "gen:", ttl: ttl}
}

func (c *RedisCache) Key(req openai.CompletionRequest) string {
	h := sha256.New()
	for _, part := range []string{req.Model, req.SystemPrompt, req.UserPrompt} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return c.prefix + hex.EncodeToString(h.Sum(nil))
}

// Get reports ok=false on a miss.
func (c *RedisCache) Get(ctx context.Context, req openai.CompletionRequest) (string, bool, error) {
	raw, err := c.client.Get(ctx, c.Key(req)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup cached reply: %w", err)
	}
	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return "", false, fmt.Errorf("unmarshal cached reply: %w", err)
	}
	return e.Reply, true, nil
}

func (c *RedisCache) Put(ctx context.Context, req openai.CompletionRequest, reply string) error {
	data, err := json.Marshal(entry{Reply: reply, Model: req.Model, CachedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal cached reply: %w", err)
	}
	if err := c.client.Set(ctx, c.Key(req), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("save cached reply: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// CachingClient serves replies from the cache and falls back to the wrapped
// client. Cache errors never fail a generation.
type CachingClient struct {
	next  openai.Client
	cache *RedisCache
}

func NewCachingClient(next openai.Client, cache *RedisCache) *CachingClient {
	return &CachingClient{next: next, cache: cache}
}

func (c *CachingClient) Complete(ctx context.Context, req openai.CompletionRequest) (string, error) {
	reply, ok, err := c.cache.Get(ctx, req)
	if err != nil {
		log.Printf("generation cache read failed: %v", err)
	}
	if ok {
		return reply, nil
	}

	reply, err = c.next.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	if err := c.cache.Put(ctx, req, reply); err != nil {
		log.Printf("generation cache write failed: %v", err)
	}
	return reply, nil
}
