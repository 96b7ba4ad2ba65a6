// Package cache memoizes completions so a re-run over the same pages does
// not pay for the same prompts twice.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitecat/internal/llm"
)

// DefaultTTL keeps entries for thirty days.
const DefaultTTL = 720 * time.Hour

// ErrMiss is returned by Store.Get when the key is absent.
var ErrMiss = errors.New("cache: miss")

// Store is a byte-oriented key/value store with expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Hasher turns prompt material into a key.
type Hasher interface {
	HashParts(parts ...string) string
}

// Completer wraps another Completer with a read-through cache.
type Completer struct {
	next   llm.Completer
	store  Store
	hasher Hasher
	model  string
	ttl    time.Duration
	logger *zap.Logger
}

// New builds a caching Completer. model namespaces the keys.
func New(next llm.Completer, store Store, hasher Hasher, model string, ttl time.Duration, logger *zap.Logger) *Completer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Completer{next: next, store: store, hasher: hasher, model: model, ttl: ttl, logger: logger}
}

type entry struct {
	Text string `json:"text"`
}

// Complete serves hits with zero token usage; store failures degrade to a
// miss.
func (c *Completer) Complete(ctx context.Context, msgs []llm.Message, opts llm.Options) (llm.Completion, error) {
	key := c.key(msgs, opts)

	raw, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		var e entry
		if err := json.Unmarshal(raw, &e); err == nil {
			c.logger.Debug("llm cache hit", zap.String("key", key))
			return llm.Completion{Text: e.Text}, nil
		}
		c.logger.Warn("llm cache entry corrupt", zap.String("key", key))
	case !errors.Is(err, ErrMiss):
		c.logger.Warn("llm cache read failed", zap.Error(err))
	}

	out, err := c.next.Complete(ctx, msgs, opts)
	if err != nil {
		return out, err
	}
	payload, err := json.Marshal(entry{Text: out.Text})
	if err != nil {
		return out, nil
	}
	if err := c.store.Set(ctx, key, payload, c.ttl); err != nil {
		c.logger.Warn("llm cache write failed", zap.Error(err))
	}
	return out, nil
}

func (c *Completer) key(msgs []llm.Message, opts llm.Options) string {
	parts := make([]string, 0, 2*len(msgs)+3)
	parts = append(parts, c.model, strconv.Itoa(opts.MaxTokens), strconv.FormatFloat(opts.Temperature, 'f', -1, 64))
	for _, m := range msgs {
		parts = append(parts, string(m.Role), m.Content)
	}
	return "sitecat:llm:" + c.hasher.HashParts(parts...)
}

// Redis stores entries in Redis.
type Redis struct {
	client *redis.Client
}

// RedisOptions addresses a Redis server.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	c := redis.NewClient(&redis.Options{Addr: opts.Addr, Password: opts.Password, DB: opts.DB})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	return &Redis{client: c}, nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(c *redis.Client) *Redis { return &Redis{client: c} }

// Get reads key, mapping redis.Nil to ErrMiss.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return b, nil
}

// Set writes key with ttl.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (r *Redis) Close() error { return r.client.Close() }
