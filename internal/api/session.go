package api

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/arbolmarket/cartsync/pkg/kv"
	"github.com/golang-jwt/jwt/v5"
)

const (
	authKey         = "auth"
	authExpiryField = "expiresAt"

	// Fallback TTL for tokens whose expiry cannot be read. The server
	// remains the authority; this only bounds the local copy.
	defaultSessionTTL = 24 * time.Hour
)

// StoredSession is the persisted shape of an installed session.
type StoredSession struct {
	Token  string `json:"token"`
	UserID string `json:"userId,omitempty"`
}

// Session holds the current authentication token as one explicit value with
// an install/clear surface. Every remote call reads the token through here;
// nothing else in the module touches authentication state.
type Session struct {
	mu    sync.Mutex
	token string
	user  string

	store *kv.Store
	now   func() time.Time
}

// NewSession builds a session backed by the given persisted store. The store
// may be nil for callers that do not persist authentication.
func NewSession(store *kv.Store) *Session {
	return &Session{store: store, now: time.Now}
}

// Install makes token the current session and persists it. The persisted
// entry's TTL is bounded by the token's own exp claim when one is readable.
func (s *Session) Install(ctx context.Context, token, userID string) error {
	s.mu.Lock()
	s.token = token
	s.user = userID
	s.mu.Unlock()

	if s.store == nil || token == "" {
		return nil
	}
	return s.store.Write(ctx, authKey, StoredSession{Token: token, UserID: userID}, kv.WriteOptions{
		TTL:         s.tokenTTL(token),
		ExpiryField: authExpiryField,
	})
}

// Clear drops the current session and its persisted copy. It never fails the
// caller: a stale persisted entry expires on its own.
func (s *Session) Clear(ctx context.Context) {
	s.mu.Lock()
	s.token = ""
	s.user = ""
	s.mu.Unlock()

	if s.store != nil {
		_ = s.store.Delete(ctx, authKey)
	}
}

// Token returns the installed token, if any.
func (s *Session) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.token != ""
}

// UserID returns the user the installed token belongs to.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Restore loads a previously persisted, unexpired session into memory.
func (s *Session) Restore(ctx context.Context) bool {
	if s.store == nil {
		return false
	}
	var stored StoredSession
	found, err := s.store.Read(ctx, authKey, kv.ReadOptions{ExpiryField: authExpiryField}, &stored)
	if err != nil || !found || stored.Token == "" {
		return false
	}

	s.mu.Lock()
	s.token = stored.Token
	s.user = stored.UserID
	s.mu.Unlock()
	return true
}

// tokenTTL derives a persistence TTL from the token's exp claim. The claim
// is read without signature verification: this client is not the token
// authority and only needs the deadline.
func (s *Session) tokenTTL(token string) time.Duration {
	parsed, _, err := jwt.NewParser().ParseUnverified(strings.TrimSpace(token), jwt.MapClaims{})
	if err != nil {
		return defaultSessionTTL
	}
	expiry, err := parsed.Claims.GetExpirationTime()
	if err != nil || expiry == nil {
		return defaultSessionTTL
	}
	ttl := expiry.Sub(s.now())
	if ttl <= 0 || ttl > defaultSessionTTL {
		return defaultSessionTTL
	}
	return ttl
}
