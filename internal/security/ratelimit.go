package security

import (
	"fmt"
	"sync"
	"time"

	"github.com/acolita/sshsync/internal/adapters/realclock"
	"github.com/acolita/sshsync/internal/ports"
)

// DefaultMaxAuthFailures is the default number of failures before lockout.
const DefaultMaxAuthFailures = 3

// DefaultAuthLockoutDuration is the default lockout duration.
const DefaultAuthLockoutDuration = 5 * time.Minute

// LockedOutError is returned while user@host is locked out.
type LockedOutError struct {
	User      string
	Host      string
	Remaining time.Duration
}

func (e *LockedOutError) Error() string {
	return fmt.Sprintf("authentication for %s@%s locked for another %s", e.User, e.Host, e.Remaining.Round(time.Second))
}

// AuthRateLimiter tracks authentication failures per user@host and refuses
// further attempts for a while once too many fail in a row.
type AuthRateLimiter struct {
	mu              sync.Mutex
	failures        map[string]*authFailure
	maxFailures     int
	lockoutDuration time.Duration
	clock           ports.Clock
}

type authFailure struct {
	count    int
	lockedAt time.Time
}

// NewAuthRateLimiter creates a limiter. Non-positive arguments select the
// defaults; a nil clock selects the real one.
func NewAuthRateLimiter(maxFailures int, lockoutDuration time.Duration, clock ports.Clock) *AuthRateLimiter {
	if maxFailures <= 0 {
		maxFailures = DefaultMaxAuthFailures
	}
	if lockoutDuration <= 0 {
		lockoutDuration = DefaultAuthLockoutDuration
	}
	if clock == nil {
		clock = realclock.New()
	}
	return &AuthRateLimiter{
		failures:        make(map[string]*authFailure),
		maxFailures:     maxFailures,
		lockoutDuration: lockoutDuration,
		clock:           clock,
	}
}

func key(host, user string) string {
	return user + "@" + host
}

// Allow returns a *LockedOutError while user@host is locked out.
func (r *AuthRateLimiter) Allow(host, user string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.failures[key(host, user)]
	if !ok || f.lockedAt.IsZero() {
		return nil
	}
	elapsed := r.clock.Now().Sub(f.lockedAt)
	if elapsed >= r.lockoutDuration {
		delete(r.failures, key(host, user))
		return nil
	}
	return &LockedOutError{User: user, Host: host, Remaining: r.lockoutDuration - elapsed}
}

// RecordFailure records an authentication failure.
func (r *AuthRateLimiter) RecordFailure(host, user string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(host, user)
	f, ok := r.failures[k]
	if !ok {
		f = &authFailure{}
		r.failures[k] = f
	}
	if !f.lockedAt.IsZero() && r.clock.Now().Sub(f.lockedAt) >= r.lockoutDuration {
		*f = authFailure{}
	}

	f.count++
	if f.count >= r.maxFailures && f.lockedAt.IsZero() {
		f.lockedAt = r.clock.Now()
	}
}

// RecordSuccess clears the failure count for user@host.
func (r *AuthRateLimiter) RecordSuccess(host, user string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.failures, key(host, user))
}
