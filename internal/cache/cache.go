package cache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/MikeSquared-Agency/Decision/internal/scoring"
)

const keyPrefix = "decision:"

// Cache stores finished analyses keyed by a digest of their inputs. A miss is
// reported as (nil, false, nil).
type Cache interface {
	GetResult(ctx context.Context, key string) (*scoring.Result, bool, error)
	PutResult(ctx context.Context, key string, res *scoring.Result) error
	GetSensitivity(ctx context.Context, key string) (*scoring.SensitivityResult, bool, error)
	PutSensitivity(ctx context.Context, key string, res *scoring.SensitivityResult) error
	Close() error
}

type request struct {
	Problem   *scoring.Problem `json:"problem"`
	Method    scoring.Method   `json:"method"`
	Options   *scoring.Options `json:"options,omitempty"`
	Criterion *int             `json:"criterion,omitempty"`
	Samples   *int             `json:"samples,omitempty"`
}

// ResultKey derives the cache key of an Analyze call. Options only take part
// for ELECTRE, the one method that reads them.
func ResultKey(p *scoring.Problem, method scoring.Method, opts scoring.Options) (string, error) {
	return digest("result", request{Problem: p, Method: method, Options: optionsFor(method, opts)})
}

// SensitivityKey derives the cache key of a Sensitivity call.
func SensitivityKey(p *scoring.Problem, method scoring.Method, criterion, samples int, opts scoring.Options) (string, error) {
	return digest("sensitivity", request{
		Problem:   p,
		Method:    method,
		Options:   optionsFor(method, opts),
		Criterion: &criterion,
		Samples:   &samples,
	})
}

func optionsFor(method scoring.Method, opts scoring.Options) *scoring.Options {
	if method != scoring.ELECTRE {
		return nil
	}
	return &opts
}

func digest(kind string, req request) (string, error) {
	// Problem.MarshalJSON writes criteria and alternatives in problem order,
	// so equal problems hash equally.
	b, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("cache key: %w", err)
	}
	sum := sha256.Sum256(b)
	return keyPrefix + kind + ":" + hex.EncodeToString(sum[:]), nil
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

// RedisCache keeps msgpack-encoded results in Redis with a fixed TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to the Redis server at url (redis://host:port/db).
func NewRedisCache(ctx context.Context, url string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse cache url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisCacheFromClient(client, ttl), nil
}

func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) GetResult(ctx context.Context, key string) (*scoring.Result, bool, error) {
	res := &scoring.Result{}
	ok, err := c.get(ctx, key, res)
	if !ok || err != nil {
		return nil, false, err
	}
	return res, true, nil
}

func (c *RedisCache) PutResult(ctx context.Context, key string, res *scoring.Result) error {
	return c.put(ctx, key, res)
}

func (c *RedisCache) GetSensitivity(ctx context.Context, key string) (*scoring.SensitivityResult, bool, error) {
	res := &scoring.SensitivityResult{}
	ok, err := c.get(ctx, key, res)
	if !ok || err != nil {
		return nil, false, err
	}
	return res, true, nil
}

func (c *RedisCache) PutSensitivity(ctx context.Context, key string, res *scoring.SensitivityResult) error {
	return c.put(ctx, key, res)
}

func (c *RedisCache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func (c *RedisCache) get(ctx context.Context, key string, v any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get: %w", err)
	}
	if err := decode(data, v); err != nil {
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return true, nil
}

func (c *RedisCache) put(ctx context.Context, key string, v any) error {
	data, err := encode(v)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Noop never stores anything. It is used when no cache URL is configured.
type Noop struct{}

func (Noop) GetResult(context.Context, string) (*scoring.Result, bool, error) { return nil, false, nil }
func (Noop) PutResult(context.Context, string, *scoring.Result) error        { return nil }
func (Noop) GetSensitivity(context.Context, string) (*scoring.SensitivityResult, bool, error) {
	return nil, false, nil
}
func (Noop) PutSensitivity(context.Context, string, *scoring.SensitivityResult) error { return nil }
func (Noop) Close() error                                                            { return nil }
