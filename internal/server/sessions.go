package server

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	internalauth "docvault/internal/auth"
	"docvault/internal/store"
)

const sessionCookieName = "docvault_session"

var errInvalidCredentials = errors.New("invalid credentials")

// SessionService checks the shared password and tracks browser sessions.
// Only an HMAC of each token is stored, keyed by the server secret.
type SessionService struct {
	store        store.SessionStore
	passwordHash string
	pepper       []byte
	ttl          time.Duration
}

// NewSessionService validates the password hash and returns a session service.
func NewSessionService(sessionStore store.SessionStore, passwordHash string, secretKey []byte, ttl time.Duration) (*SessionService, error) {
	if sessionStore == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if err := internalauth.CheckHash(passwordHash); err != nil {
		return nil, err
	}
	if len(secretKey) == 0 {
		return nil, fmt.Errorf("secret key is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &SessionService{
		store:        sessionStore,
		passwordHash: strings.TrimSpace(passwordHash),
		pepper:       append([]byte(nil), secretKey...),
		ttl:          ttl,
	}, nil
}

// TTL returns how long new sessions last.
func (a *SessionService) TTL() time.Duration {
	return a.ttl
}

// Login verifies password and opens a session. It returns the raw token for
// the cookie and when it expires.
func (a *SessionService) Login(ctx context.Context, password string, now time.Time) (string, time.Time, error) {
	if password == "" || !internalauth.VerifyPassword(a.passwordHash, password) {
		return "", time.Time{}, errInvalidCredentials
	}

	token, err := generateSessionToken()
	if err != nil {
		return "", time.Time{}, err
	}
	expiresAt := now.Add(a.ttl)
	if err := a.store.CreateSession(ctx, a.hashToken(token), expiresAt, now); err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Authenticate reports whether token names an active session.
func (a *SessionService) Authenticate(ctx context.Context, token string, now time.Time) (bool, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return false, nil
	}
	return a.store.SessionActive(ctx, a.hashToken(token), now)
}

// Revoke ends the session for token. Unknown tokens are ignored.
func (a *SessionService) Revoke(ctx context.Context, token string, now time.Time) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return a.store.RevokeSessionByTokenHash(ctx, a.hashToken(token), now)
}

// Prune drops sessions that expired before now.
func (a *SessionService) Prune(ctx context.Context, now time.Time) (int64, error) {
	return a.store.DeleteExpiredSessions(ctx, now)
}

func (a *SessionService) hashToken(token string) string {
	mac := hmac.New(sha256.New, a.pepper)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

func generateSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
