package rate

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"
)

// ErrBackendUnavailable wraps storage failures from non-memory stores.
var ErrBackendUnavailable = errors.New("attempt store unavailable")

// UnknownClient is the fallback key when no client identity can be derived.
const UnknownClient = "unknown"

// AttemptStore persists failed-attempt timestamps per client key. CountSince
// must discard entries at or before cutoff, Record appends an attempt, Clear
// drops the key entirely.
type AttemptStore interface {
	CountSince(ctx context.Context, key string, cutoff time.Time) (int, error)
	Record(ctx context.Context, key string, at time.Time, window time.Duration) error
	Clear(ctx context.Context, key string) error
}

// Config holds limiter tuning parameters.
type Config struct {
	Window      time.Duration
	MaxAttempts int
}

// Limiter enforces the sliding-window login attempt budget.
type Limiter struct {
	store  AttemptStore
	config Config
	now    func() time.Time
}

// NewLimiter creates a Limiter over the given store. A nil clock defaults to
// time.Now; zero config fields default to a 300s window and 7 attempts.
func NewLimiter(store AttemptStore, cfg Config, now func() time.Time) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = 300 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 7
	}
	if now == nil {
		now = time.Now
	}
	return &Limiter{store: store, config: cfg, now: now}
}

// IsBlocked reports whether key has reached the attempt budget inside the
// trailing window. Store failures block: under ambiguity the limiter denies.
func (l *Limiter) IsBlocked(ctx context.Context, key string) bool {
	count, err := l.store.CountSince(ctx, normalizeKey(key), l.now().Add(-l.config.Window))
	if err != nil {
		return true
	}
	return count >= l.config.MaxAttempts
}

// RecordFailure appends a failed attempt for key.
func (l *Limiter) RecordFailure(ctx context.Context, key string) {
	_ = l.store.Record(ctx, normalizeKey(key), l.now(), l.config.Window)
}

// Clear removes all recorded attempts for key. Called on successful login.
func (l *Limiter) Clear(ctx context.Context, key string) {
	_ = l.store.Clear(ctx, normalizeKey(key))
}

func normalizeKey(key string) string {
	if strings.TrimSpace(key) == "" {
		return UnknownClient
	}
	return key
}

// ClientKey derives the rate-limit identity for a request: the first
// X-Forwarded-For hop when present, else the peer address host, else
// [UnknownClient].
func ClientKey(forwardedFor, remoteAddr string) string {
	if first, _, found := strings.Cut(forwardedFor, ","); found || strings.TrimSpace(first) != "" {
		if hop := strings.TrimSpace(first); hop != "" {
			return hop
		}
	}

	if remoteAddr != "" {
		if host, _, err := net.SplitHostPort(remoteAddr); err == nil && host != "" {
			return host
		}
		return remoteAddr
	}

	return UnknownClient
}
