package httpapi

import (
	"net/http"
	"time"

	authcore "github.com/planora/authcore"
)

// Challenge and companion cookie names. The session cookie name comes from
// engine configuration.
const (
	cookieUserRole = "user_role"
	cookieUserName = "user_name"

	cookieRegisterChallenge = "passkey_register"
	cookieAuthChallenge     = "passkey_auth"
	cookieMFAGate           = "passkey_mfa_gate"
)

// Config holds the handler's routing targets.
type Config struct {
	// SuccessPath is the post-login redirect target.
	SuccessPath string
	// LoginPath is where unauthenticated browsers are sent.
	LoginPath string
	// MFAPath is the passkey step shown when a login needs a second factor.
	MFAPath string
}

// Handler defines a public type used by authcore APIs.
//
// Handler instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Handler struct {
	engine *authcore.Engine
	config Config

	sessionCookie string
	cookieSecure  bool
	sessionMaxAge time.Duration
	challengeTTL  time.Duration
	gateTTL       time.Duration
}

// NewHandler wires a Handler over a built engine. Zero-value paths default to
// /inicio, /login and /login/passkey.
func NewHandler(engine *authcore.Engine, cfg Config) *Handler {
	if cfg.SuccessPath == "" {
		cfg.SuccessPath = "/inicio"
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}
	if cfg.MFAPath == "" {
		cfg.MFAPath = "/login/passkey"
	}

	engineCfg := engine.Config()

	return &Handler{
		engine:        engine,
		config:        cfg,
		sessionCookie: engineCfg.Session.CookieName,
		cookieSecure:  engineCfg.Session.CookieSecure,
		sessionMaxAge: engineCfg.Session.MaxAge,
		challengeTTL:  engineCfg.Passkey.ChallengeTTL,
		gateTTL:       engineCfg.MFA.GateTTL,
	}
}

// Register mounts every endpoint on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/login", h.Login)
	mux.HandleFunc("POST /auth/logout", h.Logout)
	mux.HandleFunc("POST /auth/passkey/register/options", h.PasskeyRegisterOptions)
	mux.HandleFunc("POST /auth/passkey/register/verify", h.PasskeyRegisterVerify)
	mux.HandleFunc("POST /auth/passkey/auth/options", h.PasskeyAuthOptions)
	mux.HandleFunc("POST /auth/passkey/auth/verify", h.PasskeyAuthVerify)
}

func (h *Handler) setCookie(w http.ResponseWriter, name, value string, httpOnly bool, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		Secure:   h.cookieSecure,
		HttpOnly: httpOnly,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   h.cookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// setSessionCookies writes the signed session cookie plus the role/name
// companions the server reads back when rendering. All three are httponly.
func (h *Handler) setSessionCookies(w http.ResponseWriter, result *authcore.LoginResult) {
	h.setCookie(w, h.sessionCookie, result.SessionToken, true, h.sessionMaxAge)
	h.setCookie(w, cookieUserRole, result.Role, true, h.sessionMaxAge)
	h.setCookie(w, cookieUserName, result.Username, true, h.sessionMaxAge)
}

func (h *Handler) clearAllCookies(w http.ResponseWriter) {
	for _, name := range []string{
		h.sessionCookie, cookieUserRole, cookieUserName,
		cookieRegisterChallenge, cookieAuthChallenge, cookieMFAGate,
	} {
		h.clearCookie(w, name)
	}
}
