package cache

import (
	"context"
	"time"

	"github.com/tinywideclouds/go-fanpush-service/pkg/dispatch"
)

// CacheClient defines the subset of Redis commands we need.
type CacheClient interface {
	// Get returns an error on a miss.
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// CachedUserStore adds read-aside caching of single-user token lookups to any
// dispatch.UserStore. Writes go to the real store first and then drop the
// cached entry. Client apps also write token lists directly, so a cached list
// can lag the real record by up to ttl. Missing records and empty lists are
// never cached.
type CachedUserStore struct {
	realStore dispatch.UserStore
	cache     CacheClient
	ttl       time.Duration
}

func NewCachedUserStore(realStore dispatch.UserStore, cache CacheClient, ttl time.Duration) *CachedUserStore {
	return &CachedUserStore{
		realStore: realStore,
		cache:     cache,
		ttl:       ttl,
	}
}

type cachedTokens struct {
	Tokens []string `json:"tokens"`
}

// --- READ PATHS ---

func (s *CachedUserStore) GetTokens(ctx context.Context, userID string) ([]string, bool, error) {
	key := cacheKey(userID)

	var cached cachedTokens
	if err := s.cache.Get(ctx, key, &cached); err == nil && len(cached.Tokens) > 0 {
		return cached.Tokens, true, nil
	}

	tokens, found, err := s.realStore.GetTokens(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if !found || len(tokens) == 0 {
		return tokens, found, nil
	}

	// Caching is an optimisation; a Redis failure must not fail the read.
	_ = s.cache.Set(ctx, key, cachedTokens{Tokens: tokens}, s.ttl)

	return tokens, found, nil
}

// GetTokensForUsers is not cached: the result depends on the whole id set.
func (s *CachedUserStore) GetTokensForUsers(ctx context.Context, userIDs []string) ([]string, error) {
	return s.realStore.GetTokensForUsers(ctx, userIDs)
}

// --- WRITE PATHS (Invalidate-on-Write) ---

func (s *CachedUserStore) RemoveTokens(ctx context.Context, userID string, tokens []string) error {
	if err := s.realStore.RemoveTokens(ctx, userID, tokens); err != nil {
		return err
	}
	return s.invalidate(ctx, userID)
}

func (s *CachedUserStore) RegisterToken(ctx context.Context, userID string, token string) error {
	if err := s.realStore.RegisterToken(ctx, userID, token); err != nil {
		return err
	}
	return s.invalidate(ctx, userID)
}

func (s *CachedUserStore) invalidate(ctx context.Context, userID string) error {
	return s.cache.Del(ctx, cacheKey(userID))
}

func cacheKey(userID string) string {
	return "fanpush:tokens:" + userID
}
