package httpapi

import (
	"net/http"

	authcore "github.com/planora/authcore"
	"github.com/planora/authcore/internal/rate"
)

// Login handles the credential form post. Field names match the frontend's
// Spanish form: usuario, contrasena, totp.
//
// A granted login sets the session cookies and redirects 303 to the success
// path. A login that needs a passkey second factor sets the MFA gate cookie
// and redirects 303 to the passkey step. Failures answer with their status
// code so the login page can render the error.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, authcore.ErrMalformedRequest)
		return
	}

	result, err := h.engine.Login(r.Context(), authcore.LoginRequest{
		Username:  r.PostFormValue("usuario"),
		Password:  r.PostFormValue("contrasena"),
		TOTPCode:  r.PostFormValue("totp"),
		ClientKey: clientKey(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if result.MFARequired {
		h.setCookie(w, cookieMFAGate, result.GateToken, true, h.gateTTL)
		http.Redirect(w, r, h.config.MFAPath, http.StatusSeeOther)
		return
	}

	h.setSessionCookies(w, result)
	http.Redirect(w, r, h.config.SuccessPath, http.StatusSeeOther)
}

// Logout clears every auth cookie and sends the browser back to the login
// page.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	username := ""
	if payload, err := sessionPayload(h, r); err == nil {
		username = payload.Username
	}
	h.engine.Logout(r.Context(), username)

	h.clearAllCookies(w)
	http.Redirect(w, r, h.config.LoginPath, http.StatusSeeOther)
}

func sessionPayload(h *Handler, r *http.Request) (*sessionView, error) {
	cookie, err := r.Cookie(h.sessionCookie)
	if err != nil {
		return nil, err
	}
	payload, err := h.engine.VerifySession(cookie.Value)
	if err != nil {
		return nil, err
	}
	return &sessionView{Username: payload.Username, Role: payload.Role, TenantID: payload.TenantID}, nil
}

type sessionView struct {
	Username string
	Role     string
	TenantID string
}

func clientKey(r *http.Request) string {
	return rate.ClientKey(r.Header.Get("X-Forwarded-For"), r.RemoteAddr)
}
