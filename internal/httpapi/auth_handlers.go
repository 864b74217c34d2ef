package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"mediavault.org/internal/audit"
	"mediavault.org/internal/auth"
	"mediavault.org/internal/obs"
)

const refreshCookieName = "refresh_token"

// The cookie only travels to the auth endpoints.
const refreshCookiePath = "/v1/auth"

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "username and password are required")
		return
	}

	sess, err := a.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		obs.CountLogin("failure")
		_ = audit.LogEvent(r.Context(), audit.EventLoginFailed, map[string]any{
			"username": req.Username,
		})
		if errors.Is(err, auth.ErrInvalidInput) {
			writeError(w, r, http.StatusBadRequest, "username and password are required")
			return
		}
		// Credential mismatch never says which half was wrong.
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		return
	}

	obs.CountLogin("success")
	_ = audit.LogEvent(r.Context(), audit.EventLogin, map[string]any{
		"user_id":  sess.UserID,
		"username": sess.Username,
	})

	a.setRefreshCookie(w, sess)
	writeJSON(w, http.StatusOK, sessionResponse{
		Token:     sess.AccessToken,
		Username:  sess.Username,
		ExpiresAt: sess.AccessExpiresAt,
	})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || strings.TrimSpace(cookie.Value) == "" {
		obs.CountRefresh("missing")
		writeError(w, r, http.StatusUnauthorized, "missing refresh token")
		return
	}

	sess, err := a.auth.Refresh(r.Context(), cookie.Value)
	if err != nil {
		obs.CountRefresh("rejected")
		_ = audit.LogEvent(r.Context(), audit.EventRefreshRejected, nil)
		// The cookie is dead either way; make the client drop it.
		a.clearRefreshCookie(w)
		writeError(w, r, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	obs.CountRefresh("success")
	_ = audit.LogEvent(r.Context(), audit.EventTokenRotated, map[string]any{
		"user_id": sess.UserID,
	})

	a.setRefreshCookie(w, sess)
	writeJSON(w, http.StatusOK, sessionResponse{
		Token:     sess.AccessToken,
		Username:  sess.Username,
		ExpiresAt: sess.AccessExpiresAt,
	})
}

func (a *API) handleValidate(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":    true,
		"username": principal.Username,
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	if err := a.auth.Logout(r.Context(), principal.UserID); err != nil {
		writeError(w, r, http.StatusInternalServerError, "logout failed")
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventLogout, nil)
	a.clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{"status": "logged_out"})
}

func (a *API) setRefreshCookie(w http.ResponseWriter, sess auth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    sess.RefreshToken,
		Path:     refreshCookiePath,
		Domain:   a.cookieDomain,
		Expires:  sess.RefreshExpiresAt,
		MaxAge:   int(time.Until(sess.RefreshExpiresAt) / time.Second),
		HttpOnly: true,
		Secure:   a.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (a *API) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		Domain:   a.cookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}
