package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/angelmondragon/poslite-backend/pkg/config"
	"github.com/angelmondragon/poslite-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	clockTick       = time.Second
	keyNamespace    = "pos"
	rateLimitPrefix = "rate_limit"
	revokedPrefix   = "revoked"
)

// Nil is returned by Get when the key does not exist.
var Nil = redis.Nil

// Client wraps the key/value helpers used for login throttling and token
// revocation. It talks to a Redis server, or to a miniredis instance running
// inside the process when no endpoint is configured.
type Client struct {
	raw   *redis.Client
	local *miniredis.Miniredis
	stop  chan struct{}
	once  sync.Once
}

// New bootstraps a Redis client with pooling/timeouts and verifies connectivity.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "redis_addr", opts.Addr), "redis connection established")
	}
	return &Client{raw: raw}, nil
}

// NewInProcess starts a miniredis server on a loopback port and connects to
// it. Counters and revocations do not survive a restart.
func NewInProcess() (*Client, error) {
	return newInProcess(clockTick)
}

// newInProcess advances the miniredis clock every tick so TTLs lapse in real
// time. A zero tick leaves the clock to FastForward.
func newInProcess(tick time.Duration) (*Client, error) {
	local, err := miniredis.Run()
	if err != nil {
		return nil, fmt.Errorf("start in-process redis: %w", err)
	}
	c := &Client{
		raw:   redis.NewClient(&redis.Options{Addr: local.Addr()}),
		local: local,
		stop:  make(chan struct{}),
	}
	if tick > 0 {
		go c.runClock(tick)
	}
	return c, nil
}

func (c *Client) runClock(tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-c.stop:
			return
		case now := <-ticker.C:
			c.local.FastForward(now.Sub(last))
			last = now
		}
	}
}

// Open returns a Redis-backed client when cfg names an endpoint and an
// in-process client otherwise.
func Open(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	if !cfg.Enabled() {
		c, err := NewInProcess()
		if err == nil && logg != nil {
			logg.Warn(ctx, "redis not configured, using in-process store")
		}
		return c, err
	}
	return New(ctx, cfg, logg)
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.URL == "" && cfg.Address == "" {
		return nil, errors.New("redis url or address is required")
	}
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	if opts.DB == 0 {
		opts.DB = cfg.DB
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

// Set stores a string value with an optional TTL.
func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c.raw == nil {
		return errors.New("redis client not initialized")
	}
	return c.raw.Set(ctx, key, value, ttl).Err()
}

// Get returns a string value stored at key.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if c.raw == nil {
		return "", errors.New("redis client not initialized")
	}
	return c.raw.Get(ctx, key).Result()
}

// Incr increments the counter stored at key.
func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	if c.raw == nil {
		return 0, errors.New("redis client not initialized")
	}
	return c.raw.Incr(ctx, key).Result()
}

// IncrWithTTL increments and ensures the key has the supplied TTL on the first increment.
func (c *Client) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := c.Incr(ctx, key)
	if err != nil {
		return 0, err
	}
	if ttl > 0 && count == 1 {
		if _, expErr := c.raw.Expire(ctx, key, ttl).Result(); expErr != nil {
			return count, expErr
		}
	}
	return count, nil
}

// RateLimitKey returns a namespaced key for rate limit counters.
func (c *Client) RateLimitKey(scope string) string {
	return c.buildKey(rateLimitPrefix, scope)
}

// RevokedTokenKey returns the key marking an access token id as revoked.
func (c *Client) RevokedTokenKey(jti string) string {
	return c.buildKey(revokedPrefix, jti)
}

// Del removes the provided keys.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	if c.raw == nil {
		return errors.New("redis client not initialized")
	}
	return c.raw.Del(ctx, keys...).Err()
}

// Ping verifies the connection.
func (c *Client) Ping(ctx context.Context) error {
	if c.raw == nil {
		return errors.New("redis client not initialized")
	}
	return c.raw.Ping(ctx).Err()
}

// Close shuts down the client and the in-process server, if any.
func (c *Client) Close() error {
	if c.raw == nil {
		return nil
	}
	var err error
	c.once.Do(func() {
		err = c.raw.Close()
		if c.local != nil {
			close(c.stop)
			c.local.Close()
		}
	})
	return err
}

func (c *Client) buildKey(parts ...string) string {
	if len(parts) == 0 {
		return keyNamespace
	}
	clean := []string{keyNamespace}
	for _, part := range parts {
		if part == "" {
			continue
		}
		clean = append(clean, strings.TrimSpace(part))
	}
	return strings.Join(clean, ":")
}
