package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/yungbote/neurobridge-authoring/internal/platform/llm"
	"github.com/yungbote/neurobridge-authoring/internal/platform/logger"
)

const DefaultTTL = 24 * time.Hour

// sharedCallTimeout bounds an upstream call that no longer depends on the caller
// that started it.
const sharedCallTimeout = 3 * time.Minute

// KV is the subset of *goredis.Client the cache needs.
type KV interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd
}

type cachedEntry struct {
	StoredAt int64           `json:"stored_at"`
	Raw      json.RawMessage `json:"raw"`
}

// CachedGenerator serves repeated identical requests from Redis. Concurrent misses
// for the same request share one upstream call, which runs detached from any single
// caller's cancellation; each caller still returns as soon as its own context is
// done. Hits carry
// cache{hit: true, age_seconds} so the resolver can report them.
type CachedGenerator struct {
	log    *logger.Logger
	kv     KV
	next   llm.Generator
	ttl    time.Duration
	prefix string
	group  singleflight.Group
	now    func() time.Time

	callTimeout time.Duration
}

func NewCachedGenerator(baseLog *logger.Logger, kv KV, next llm.Generator, ttl time.Duration) *CachedGenerator {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CachedGenerator{
		log:    baseLog.With("service", "GenerationCache"),
		kv:     kv,
		next:   next,
		ttl:    ttl,
		prefix: "authoring:gen:",
		now:    time.Now,

		callTimeout: sharedCallTimeout,
	}
}

func (c *CachedGenerator) Generate(ctx context.Context, req llm.Request) (any, error) {
	key := c.prefix + req.Key()

	if raw, age, ok := c.lookup(ctx, key); ok {
		c.log.Debug("Generation cache hit", "mode", req.Mode, "age_seconds", age)
		return annotate(raw, true, age), nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.callTimeout)
		defer cancel()
		raw, err := c.next.Generate(callCtx, req)
		if err != nil {
			return nil, err
		}
		c.store(callCtx, key, raw)
		return raw, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return annotate(r.Val, false, 0), nil
	}
}

func (c *CachedGenerator) lookup(ctx context.Context, key string) (any, int64, bool) {
	s, err := c.kv.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.log.Warn("Generation cache read failed", "error", err)
		}
		return nil, 0, false
	}
	var entry cachedEntry
	if err := json.Unmarshal([]byte(s), &entry); err != nil || len(entry.Raw) == 0 {
		c.log.Warn("Generation cache entry unreadable", "error", err)
		return nil, 0, false
	}
	var raw any
	if err := json.Unmarshal(entry.Raw, &raw); err != nil {
		return nil, 0, false
	}
	age := c.now().Unix() - entry.StoredAt
	if age < 0 {
		age = 0
	}
	return raw, age, true
}

func (c *CachedGenerator) store(ctx context.Context, key string, raw any) {
	b, err := json.Marshal(raw)
	if err != nil {
		c.log.Warn("Generation cache skipped unencodable response", "error", err)
		return
	}
	entry, err := json.Marshal(cachedEntry{StoredAt: c.now().Unix(), Raw: b})
	if err != nil {
		return
	}
	if err := c.kv.Set(ctx, key, entry, c.ttl).Err(); err != nil {
		c.log.Warn("Generation cache write failed", "error", err)
	}
}

// annotate returns a copy of raw carrying the cache block; raw itself is shared
// between singleflight callers and is never modified.
func annotate(raw any, hit bool, age int64) any {
	info := map[string]any{"hit": hit, "age_seconds": age}
	switch v := raw.(type) {
	case map[string]any:
		out := make(map[string]any, len(v)+1)
		for k, val := range v {
			out[k] = val
		}
		out["cache"] = info
		return out
	case string:
		return map[string]any{"content": v, "cache": info}
	}
	return raw
}
