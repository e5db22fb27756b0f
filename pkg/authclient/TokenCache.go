package authclient

import "sync"

// TokenCache is an in-memory session store of access tokens by account ID.
//
// Tokens live for the duration of the process and are cleared on logout or
// disconnect. Nothing is written to durable storage.
type TokenCache struct {
	tokens     map[string]string
	tokenMutex sync.RWMutex
}

// Get returns the cached access token of the account, if any
func (cache *TokenCache) Get(accountID string) (token string, found bool) {
	cache.tokenMutex.RLock()
	defer cache.tokenMutex.RUnlock()
	token, found = cache.tokens[accountID]
	return token, found
}

// Put stores the access token of the account, replacing any existing token
func (cache *TokenCache) Put(accountID string, token string) {
	cache.tokenMutex.Lock()
	defer cache.tokenMutex.Unlock()
	cache.tokens[accountID] = token
}

// Remove clears the access token of the account, eg on logout
func (cache *TokenCache) Remove(accountID string) {
	cache.tokenMutex.Lock()
	defer cache.tokenMutex.Unlock()
	delete(cache.tokens, accountID)
}

// NewTokenCache creates a new empty session token cache
func NewTokenCache() *TokenCache {
	return &TokenCache{
		tokens: make(map[string]string),
	}
}
