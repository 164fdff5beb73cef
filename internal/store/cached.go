package store

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"

	"github.com/p-n-ai/pai-feedback/internal/feedback"
)

// CachedStore memoizes another ResponseStore in Redis. Cache failures are
// logged and fall through to the wrapped store.
type CachedStore struct {
	next   ResponseStore
	client *redis.Client
	ttl    time.Duration
}

// NewCachedStore wraps next with a Redis cache holding entries for ttl.
func NewCachedStore(next ResponseStore, client *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{next: next, client: client, ttl: ttl}
}

// cacheKey hashes the filter so keys stay short whatever the identifiers contain.
func cacheKey(kind string, f Filter) string {
	data, _ := json.Marshal(f)
	sum := blake2b.Sum256(data)
	return "feedback:" + kind + ":" + hex.EncodeToString(sum[:16])
}

func (s *CachedStore) FetchResponses(ctx context.Context, f Filter) ([]feedback.ResponseRow, error) {
	var rows []feedback.ResponseRow
	err := s.cached(ctx, cacheKey("responses", f), &rows, func() (any, error) {
		return s.next.FetchResponses(ctx, f)
	})
	return rows, err
}

func (s *CachedStore) ListOfferings(ctx context.Context, f Filter) ([]feedback.OfferingKey, error) {
	var keys []feedback.OfferingKey
	err := s.cached(ctx, cacheKey("offerings", f), &keys, func() (any, error) {
		return s.next.ListOfferings(ctx, f)
	})
	return keys, err
}

// cached decodes key into dst, or calls load, stores its result and decodes that.
func (s *CachedStore) cached(ctx context.Context, key string, dst any, load func() (any, error)) error {
	data, err := s.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if err := json.Unmarshal(data, dst); err == nil {
			return nil
		}
		slog.Warn("discarding corrupt cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		slog.Warn("cache read failed", "key", key, "error", err)
	}

	v, err := load()
	if err != nil {
		return err
	}
	data, err = json.Marshal(v)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		slog.Warn("cache write failed", "key", key, "error", err)
	}
	return json.Unmarshal(data, dst)
}
