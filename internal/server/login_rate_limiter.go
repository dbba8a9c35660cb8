package server

import (
	"sync"
	"time"
)

// loginRateLimiter blocks a client after too many failed password attempts
// inside a sliding window.
type loginRateLimiter struct {
	mu            sync.Mutex
	clients       map[string]loginAttempts
	maxFailures   int
	window        time.Duration
	blockedFor    time.Duration
	staleAfter    time.Duration
	opCount       int
	cleanupEveryN int
}

type loginAttempts struct {
	failures       int
	firstFailureAt time.Time
	blockedUntil   time.Time
	lastSeenAt     time.Time
}

func newLoginRateLimiter(maxFailures int, window, blockedFor time.Duration) *loginRateLimiter {
	if maxFailures <= 0 || window <= 0 || blockedFor <= 0 {
		return nil
	}
	staleAfter := 2 * max(window, blockedFor)
	if staleAfter < 10*time.Minute {
		staleAfter = 10 * time.Minute
	}
	return &loginRateLimiter{
		clients:       make(map[string]loginAttempts),
		maxFailures:   maxFailures,
		window:        window,
		blockedFor:    blockedFor,
		staleAfter:    staleAfter,
		cleanupEveryN: 64,
	}
}

// Allow reports whether key may attempt a login now. When it may not, the
// returned duration says how long the block lasts.
func (l *loginRateLimiter) Allow(key string, now time.Time) (bool, time.Duration) {
	if l == nil || key == "" {
		return true, 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	defer l.maybeCleanupLocked(now)

	attempts := l.clients[key]
	attempts.lastSeenAt = now
	if now.Before(attempts.blockedUntil) {
		l.clients[key] = attempts
		return false, attempts.blockedUntil.Sub(now)
	}

	attempts.blockedUntil = time.Time{}
	if !attempts.firstFailureAt.IsZero() && now.Sub(attempts.firstFailureAt) > l.window {
		attempts.failures = 0
		attempts.firstFailureAt = time.Time{}
	}
	l.clients[key] = attempts
	return true, 0
}

// RegisterFailure counts one failed attempt and starts a block once the
// limit is reached.
func (l *loginRateLimiter) RegisterFailure(key string, now time.Time) {
	if l == nil || key == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	defer l.maybeCleanupLocked(now)

	attempts := l.clients[key]
	if attempts.firstFailureAt.IsZero() || now.Sub(attempts.firstFailureAt) > l.window {
		attempts.failures = 0
		attempts.firstFailureAt = now
	}
	attempts.failures++
	if attempts.failures >= l.maxFailures {
		attempts.blockedUntil = now.Add(l.blockedFor)
		attempts.failures = 0
		attempts.firstFailureAt = time.Time{}
	}
	attempts.lastSeenAt = now
	l.clients[key] = attempts
}

func (l *loginRateLimiter) Reset(key string) {
	if l == nil || key == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.clients, key)
}

func (l *loginRateLimiter) maybeCleanupLocked(now time.Time) {
	l.opCount++
	if l.opCount%l.cleanupEveryN != 0 {
		return
	}
	for key, attempts := range l.clients {
		if attempts.lastSeenAt.IsZero() || now.Sub(attempts.lastSeenAt) > l.staleAfter {
			delete(l.clients, key)
		}
	}
}
