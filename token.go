package main

import (
	"context"
	"log"
	"sync"
	"time"
)

// Tokens expiring within this margin are treated as already expired, so a
// slow request never rides a token that dies mid-flight.
const tokenExpiryMargin = 60 * time.Second

// AccessToken is the platform credential gating every remote call.
type AccessToken struct {
	Value     string
	ExpiresAt time.Time
}

func (t AccessToken) expired(now time.Time) bool {
	return t.Value == "" || !t.ExpiresAt.After(now.Add(tokenExpiryMargin))
}

// TokenManager caches the access token and serializes refreshes so at most
// one fetch is in flight per process. It is created at pipeline start and
// passed explicitly to everything that needs authentication.
type TokenManager struct {
	mu      sync.Mutex
	fetch   func(ctx context.Context) (AccessToken, error)
	current AccessToken
	now     func() time.Time
}

// NewTokenManager creates a manager around the given fetch function.
func NewTokenManager(fetch func(ctx context.Context) (AccessToken, error)) *TokenManager {
	return &TokenManager{
		fetch: fetch,
		now:   time.Now,
	}
}

// Token returns the cached token, fetching a fresh one if the cache is empty
// or inside the expiry margin. Concurrent callers block on the same refresh.
func (tm *TokenManager) Token(ctx context.Context) (string, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if !tm.current.expired(tm.now()) {
		return tm.current.Value, nil
	}

	log.Printf("→ Requesting new access token...")
	token, err := tm.fetch(ctx)
	if err != nil {
		tm.current = AccessToken{}
		return "", &AuthError{Err: err}
	}

	tm.current = token
	return token.Value, nil
}

// Invalidate discards the cached token, but only if it still matches the
// value the caller saw rejected. A token refreshed concurrently in the
// meantime survives.
func (tm *TokenManager) Invalidate(rejected string) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.current.Value == rejected {
		log.Printf("Access token rejected by platform, invalidating cache")
		tm.current = AccessToken{}
	}
}
