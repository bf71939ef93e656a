package splitkit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// IdentityTTL is how long a visitor token should persist. One year,
// scoped to the whole site, so assignment stays sticky across visits.
const IdentityTTL = 365 * 24 * time.Hour

// IdentityStore persists visitor identity tokens. The cookie jar of an
// HTTP layer, a server-side session table, and the in-memory store
// below all satisfy it.
//
// Get returns ErrIdentityNotFound when no token exists for the key.
// Implementations must be safe for concurrent use.
type IdentityStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, token string, ttl time.Duration) error
}

// NewToken generates a fresh visitor identity token (UUIDv4, 122 bits
// of entropy). Token generation does not fail: an exhausted random
// source panics inside uuid, which is a process-level fault, not a
// handled condition.
func NewToken() string {
	return uuid.NewString()
}

// ResolveToken returns the existing token unchanged, or a fresh one
// when existing is empty. isNew tells the caller to persist the token.
func ResolveToken(existing string) (token string, isNew bool) {
	if existing != "" {
		return existing, false
	}
	return NewToken(), true
}

// MemoryIdentityStore is an in-memory IdentityStore for tests and
// single-process use. Tokens expire lazily on read.
type MemoryIdentityStore struct {
	mu     sync.RWMutex
	tokens map[string]storedToken
}

type storedToken struct {
	token   string
	expires time.Time
}

// NewMemoryIdentityStore creates an empty in-memory identity store.
func NewMemoryIdentityStore() *MemoryIdentityStore {
	return &MemoryIdentityStore{tokens: make(map[string]storedToken)}
}

// Get implements IdentityStore.
func (m *MemoryIdentityStore) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	st, ok := m.tokens[key]
	m.mu.RUnlock()

	if !ok {
		return "", ErrIdentityNotFound
	}
	if !st.expires.IsZero() && time.Now().After(st.expires) {
		m.mu.Lock()
		delete(m.tokens, key)
		m.mu.Unlock()
		return "", ErrIdentityNotFound
	}
	return st.token, nil
}

// Set implements IdentityStore. A non-positive ttl stores the token
// without expiry.
func (m *MemoryIdentityStore) Set(_ context.Context, key, token string, ttl time.Duration) error {
	var expires time.Time
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}
	m.mu.Lock()
	m.tokens[key] = storedToken{token: token, expires: expires}
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored tokens. Useful for testing.
func (m *MemoryIdentityStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tokens)
}
