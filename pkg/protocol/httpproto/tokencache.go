package httpproto

import (
	"sync"
	"time"
)

// cachedToken is one OAuth2 client-credentials grant result.
type cachedToken struct {
	accessToken string
	expiresAt   time.Time
	hasExpiry   bool
}

// tokenCache caches OAuth2 access tokens by client_id, modeled on the
// teacher's runtime/registry.MemoryCache TTL-map shape but keyed by
// client_id per spec §4.7 rather than by an arbitrary cache key, and
// without background refresh (tokens are re-fetched lazily on next use).
type tokenCache struct {
	mu      sync.Mutex
	entries map[string]cachedToken
}

func newTokenCache() *tokenCache {
	return &tokenCache{entries: make(map[string]cachedToken)}
}

// get returns the cached token for clientID if present and, when it
// carries an expiry, not yet expired.
func (c *tokenCache) get(clientID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.entries[clientID]
	if !ok {
		return "", false
	}
	if t.hasExpiry && time.Now().After(t.expiresAt) {
		delete(c.entries, clientID)
		return "", false
	}
	return t.accessToken, true
}

// set stores accessToken for clientID. expiresAt is the zero time when the
// grant response carried no expiry, in which case the entry never expires
// on its own (matching the loosely-checked expires_in behavior noted in
// spec §9's open questions).
func (c *tokenCache) set(clientID, accessToken string, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[clientID] = cachedToken{
		accessToken: accessToken,
		expiresAt:   expiresAt,
		hasExpiry:   !expiresAt.IsZero(),
	}
}
