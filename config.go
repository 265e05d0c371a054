package authcore

import (
	"errors"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config defines a public type used by authcore APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Secrets   SecretsConfig
	Password  PasswordConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
	TOTP      TOTPConfig
	Passkey   PasskeyConfig
	MFA       MFAConfig
	CSRF      CSRFConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
SECRETS CONFIG
====================================
*/

// SecretsConfig defines a public type used by authcore APIs.
//
// SecretsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SecretsConfig struct {
	// SigningSecret is required; the process must not start without it.
	SigningSecret string
	// SensitiveSecret defaults to SigningSecret when blank.
	SensitiveSecret string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig defines a public type used by authcore APIs.
//
// PasswordConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordConfig struct {
	Iterations int

	// AllowLegacyPlaintext enables a constant-time direct comparison for
	// stored values that do not parse as pbkdf2 hashes. Compatibility shim
	// only; enabling it is audited at build time.
	AllowLegacyPlaintext bool

	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumber    bool
	RequireSpecial   bool
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig defines a public type used by authcore APIs.
//
// SessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionConfig struct {
	CookieName   string
	MaxAge       time.Duration
	CookieSecure bool
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig defines a public type used by authcore APIs.
//
// RateLimitConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RateLimitConfig struct {
	Window      time.Duration
	MaxAttempts int
}

/*
====================================
TOTP CONFIG
====================================
*/

// TOTPConfig defines a public type used by authcore APIs.
//
// TOTPConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TOTPConfig struct {
	Issuer    string
	Digits    int
	Period    int
	Skew      int
	Algorithm string // "SHA1" (default), "SHA256", "SHA512"

	// SharedSecret is the legacy shared-mode secret consulted when a user in
	// SharedSecretRole has no per-user secret enabled.
	SharedSecret     string
	SharedSecretRole string
}

/*
====================================
PASSKEY CONFIG
====================================
*/

// PasskeyConfig defines a public type used by authcore APIs.
//
// PasskeyConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasskeyConfig struct {
	RPID         string
	RPName       string
	Origin       string
	ChallengeTTL time.Duration
}

/*
====================================
MFA CONFIG
====================================
*/

// MFAConfig defines a public type used by authcore APIs.
//
// MFAConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MFAConfig struct {
	// RequiredRoles lists the roles (lowercase) that must present a second
	// factor after password verification.
	RequiredRoles []string
	GateTTL       time.Duration
}

/*
====================================
CSRF CONFIG
====================================
*/

// CSRFConfig defines a public type used by authcore APIs.
//
// CSRFConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CSRFConfig struct {
	// ExemptPathPrefixes bypass the same-origin check. Passkey endpoints use
	// their own challenge-token binding instead.
	ExemptPathPrefixes []string
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig defines a public type used by authcore APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by authcore APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the baseline configuration. Secrets.SigningSecret
// must be set before the engine can be built.
func DefaultConfig() Config {
	return cloneConfig(defaultConfig())
}

func defaultConfig() Config {
	return Config{
		Password: PasswordConfig{
			Iterations: 120_000,
			MinLength:  8,
		},
		Session: SessionConfig{
			CookieName:   "auth_session",
			MaxAge:       8 * time.Hour,
			CookieSecure: true,
		},
		RateLimit: RateLimitConfig{
			Window:      300 * time.Second,
			MaxAttempts: 7,
		},
		TOTP: TOTPConfig{
			Issuer:           "Planora",
			Digits:           6,
			Period:           30,
			Skew:             1,
			Algorithm:        "SHA1",
			SharedSecretRole: "superadmin",
		},
		Passkey: PasskeyConfig{
			RPName:       "Planora",
			ChallengeTTL: 300 * time.Second,
		},
		MFA: MFAConfig{
			RequiredRoles: []string{"superadmin"},
			GateTTL:       300 * time.Second,
		},
		CSRF: CSRFConfig{
			ExemptPathPrefixes: []string{"/auth/passkey/", "/api/v1/identidad/"},
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Secrets.SigningSecret) == "" {
		return errors.New("Secrets.SigningSecret is required")
	}
	if c.Password.Iterations < 100_000 {
		return errors.New("Password.Iterations must be >= 100000")
	}
	if c.RateLimit.Window <= 0 {
		return errors.New("RateLimit.Window must be positive")
	}
	if c.RateLimit.MaxAttempts <= 0 {
		return errors.New("RateLimit.MaxAttempts must be positive")
	}
	if c.TOTP.Digits < 6 || c.TOTP.Digits > 10 {
		return errors.New("TOTP.Digits must be between 6 and 10")
	}
	if c.TOTP.Period <= 0 {
		return errors.New("TOTP.Period must be positive")
	}
	if c.TOTP.Skew < 0 {
		return errors.New("TOTP.Skew must not be negative")
	}
	if c.Session.MaxAge <= 0 {
		return errors.New("Session.MaxAge must be positive")
	}
	if c.Passkey.ChallengeTTL <= 0 {
		return errors.New("Passkey.ChallengeTTL must be positive")
	}
	if c.MFA.GateTTL <= 0 {
		return errors.New("MFA.GateTTL must be positive")
	}
	for _, role := range c.MFA.RequiredRoles {
		if strings.TrimSpace(role) == "" {
			return errors.New("MFA.RequiredRoles contains an empty role")
		}
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.MFA.RequiredRoles = append([]string(nil), cfg.MFA.RequiredRoles...)
	out.CSRF.ExemptPathPrefixes = append([]string(nil), cfg.CSRF.ExemptPathPrefixes...)
	return out
}

type envConfig struct {
	SigningSecret   string `env:"AUTHCORE_SIGNING_SECRET,required"`
	SensitiveSecret string `env:"AUTHCORE_SENSITIVE_SECRET"`

	LoginWindowSeconds int `env:"AUTHCORE_LOGIN_WINDOW_SECONDS" envDefault:"300"`
	LoginMaxAttempts   int `env:"AUTHCORE_LOGIN_MAX_ATTEMPTS" envDefault:"7"`

	TOTPPeriodSeconds int    `env:"AUTHCORE_TOTP_PERIOD_SECONDS" envDefault:"30"`
	TOTPSkewSteps     int    `env:"AUTHCORE_TOTP_SKEW_STEPS" envDefault:"1"`
	SharedTOTPSecret  string `env:"AUTHCORE_SHARED_TOTP_SECRET"`

	AllowLegacyPasswords bool `env:"AUTHCORE_ALLOW_LEGACY_PASSWORDS" envDefault:"false"`
	CookieSecure         bool `env:"AUTHCORE_COOKIE_SECURE" envDefault:"true"`
	SessionMaxAgeSeconds int  `env:"AUTHCORE_SESSION_MAX_AGE_SECONDS" envDefault:"28800"`

	RPID   string `env:"AUTHCORE_PASSKEY_RP_ID"`
	Origin string `env:"AUTHCORE_PASSKEY_ORIGIN"`
}

// ConfigFromEnv loads configuration from the environment on top of the
// defaults. A missing AUTHCORE_SIGNING_SECRET returns an error; callers are
// expected to treat that as fatal at startup.
func ConfigFromEnv() (Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return Config{}, err
	}

	cfg := defaultConfig()
	cfg.Secrets.SigningSecret = raw.SigningSecret
	cfg.Secrets.SensitiveSecret = raw.SensitiveSecret
	cfg.RateLimit.Window = time.Duration(raw.LoginWindowSeconds) * time.Second
	cfg.RateLimit.MaxAttempts = raw.LoginMaxAttempts
	cfg.TOTP.Period = raw.TOTPPeriodSeconds
	cfg.TOTP.Skew = raw.TOTPSkewSteps
	cfg.TOTP.SharedSecret = raw.SharedTOTPSecret
	cfg.Password.AllowLegacyPlaintext = raw.AllowLegacyPasswords
	cfg.Session.CookieSecure = raw.CookieSecure
	cfg.Session.MaxAge = time.Duration(raw.SessionMaxAgeSeconds) * time.Second
	cfg.Passkey.RPID = raw.RPID
	cfg.Passkey.Origin = raw.Origin

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
