package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/planora/authcore/internal/rate"
	"github.com/planora/authcore/password"
	"github.com/planora/authcore/sensitive"
	"github.com/planora/authcore/session"
	"github.com/planora/authcore/token"
)

// Builder defines a public type used by authcore APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  *redis.Client

	userProvider UserProvider
	attemptStore rate.AttemptStore
	auditSink    AuditSink
	now          func() time.Time

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithUserProvider describes the withuserprovider operation and its observable behavior.
//
// WithUserProvider may return an error when input validation, dependency calls, or security checks fail.
// WithUserProvider does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithRedis wires the login rate limiter to Redis sorted sets so attempt
// state survives restarts and is shared across replicas.
//
// WithRedis may return an error when input validation, dependency calls, or security checks fail.
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithAttemptStore overrides the rate-limit attempt store directly. Takes
// precedence over WithRedis.
//
// WithAttemptStore may return an error when input validation, dependency calls, or security checks fail.
// WithAttemptStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAttemptStore(store rate.AttemptStore) *Builder {
	b.attemptStore = store
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock injects the time source; tests use it to step through rate-limit
// windows and token expiries.
//
// WithClock may return an error when input validation, dependency calls, or security checks fail.
// WithClock does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	secrets, err := NewSecretMaterial(cfg.Secrets.SigningSecret, cfg.Secrets.SensitiveSecret)
	if err != nil {
		return nil, err
	}

	hasher, err := password.New(password.Config{
		Iterations:           cfg.Password.Iterations,
		AllowLegacyPlaintext: cfg.Password.AllowLegacyPlaintext,
	})
	if err != nil {
		return nil, err
	}

	codec, err := sensitive.New(secrets.SensitiveKey(), secrets.LookupKey())
	if err != nil {
		return nil, err
	}

	sessions, err := session.NewCookieCodec(secrets.SigningKey())
	if err != nil {
		return nil, err
	}

	tokens, err := token.NewManager(secrets.SigningKey(), now)
	if err != nil {
		return nil, err
	}

	attemptStore := b.attemptStore
	if attemptStore == nil {
		if b.redis != nil {
			attemptStore = rate.NewRedisStore(b.redis)
		} else {
			attemptStore = rate.NewMemoryStore()
		}
	}

	engine := &Engine{
		config:       cfg,
		secrets:      secrets,
		users:        b.userProvider,
		passwordHash: hasher,
		codec:        codec,
		sessions:     sessions,
		tokens:       tokens,
		rateLimiter: rate.NewLimiter(attemptStore, rate.Config{
			Window:      cfg.RateLimit.Window,
			MaxAttempts: cfg.RateLimit.MaxAttempts,
		}, now),
		totp:    newTOTPManager(cfg.TOTP),
		audit:   newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics: NewMetrics(cfg.Metrics),
		now:     now,
	}

	// The legacy plaintext shim widens the accepted credential surface, so
	// turning it on leaves a permanent audit trace.
	if cfg.Password.AllowLegacyPlaintext {
		engine.emitAudit(context.Background(), auditEventLegacyPasswordMode, true, "", "", "", nil, nil)
	}

	b.built = true

	return engine, nil
}
