package auth

import (
	"sync"

	"bizchat.dev/console/internal/store"
)

// Credentials is the process-wide authentication context: either Anonymous
// (no token) or Authenticated (one opaque bearer token). The token is never
// inspected locally; the backend alone decides whether it is still valid.
//
// Every change is written through to the settings store so a restarted
// console stays logged in, the same way the web front end kept its token in
// localStorage.
type Credentials struct {
	mu    sync.Mutex
	token string
	store *store.SQLiteStore
}

// NewCredentials loads any previously persisted token.
func NewCredentials(s *store.SQLiteStore) (*Credentials, error) {
	c := &Credentials{store: s}
	if s != nil {
		token, ok, err := s.LoadToken()
		if err != nil {
			return nil, err
		}
		if ok {
			c.token = token
		}
	}
	return c, nil
}

// Set transitions to Authenticated with the given token.
func (c *Credentials) Set(token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	if c.store != nil {
		return c.store.SaveToken(token)
	}
	return nil
}

// Token returns the current token and whether one is present.
func (c *Credentials) Token() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token, c.token != ""
}

// Clear transitions to Anonymous. Clearing while already Anonymous is a no-op.
func (c *Credentials) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	if c.store != nil {
		return c.store.DeleteToken()
	}
	return nil
}
