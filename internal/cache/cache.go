// Package cache keeps recent verdicts in Redis, keyed by model version and
// text, so repeated submissions skip classification.
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"truthlens/internal/logging"
	"truthlens/internal/model"
)

// VerdictCache stores verdicts for a (model version, text) pair. A miss is
// (zero, false, nil).
type VerdictCache interface {
	Get(ctx context.Context, version, text string) (model.Verdict, bool, error)
	Set(ctx context.Context, version, text string, v model.Verdict) error
}

// Key derives the cache key. Classification is deterministic for a fixed
// artifact, so the version must be part of it.
func Key(version, text string) string {
	h := sha1.Sum([]byte(version + "|" + text))
	return "truthlens:verdict:" + hex.EncodeToString(h[:])
}

// Redis is a VerdictCache backed by a Redis server.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedis connects to addr. An empty or unreachable address yields a Nop
// cache so the service keeps working without Redis.
func NewRedis(ctx context.Context, addr string, ttl time.Duration) VerdictCache {
	if addr == "" {
		logging.Info("cache_disabled", map[string]any{"reason": "no redis address"})
		return Nop{}
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logging.Warn("cache_unavailable", map[string]any{"addr": addr, "error": err.Error()})
		_ = rdb.Close()
		return Nop{}
	}
	logging.Info("cache_connected", map[string]any{"addr": addr})
	return &Redis{rdb: rdb, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, version, text string) (model.Verdict, bool, error) {
	var v model.Verdict
	raw, err := r.rdb.Get(ctx, Key(version, text)).Bytes()
	if errors.Is(err, redis.Nil) {
		return v, false, nil
	}
	if err != nil {
		return v, false, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, err
	}
	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, version, text string, v model.Verdict) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, Key(version, text), b, r.ttl).Err()
}

func (r *Redis) Close() error { return r.rdb.Close() }

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string, string) (model.Verdict, bool, error) {
	return model.Verdict{}, false, nil
}
func (Nop) Set(context.Context, string, string, model.Verdict) error { return nil }

// Memory is an in-process VerdictCache without expiry, used by tests and
// single-shot CLI runs.
type Memory struct {
	mu sync.Mutex
	m  map[string]model.Verdict
}

func NewMemory() *Memory { return &Memory{m: map[string]model.Verdict{}} }

func (c *Memory) Get(_ context.Context, version, text string) (model.Verdict, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[Key(version, text)]
	return v, ok, nil
}

func (c *Memory) Set(_ context.Context, version, text string, v model.Verdict) error {
	c.mu.Lock()
	c.m[Key(version, text)] = v
	c.mu.Unlock()
	return nil
}
