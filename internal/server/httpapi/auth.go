package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/photoforge/internal/common"
	"github.com/dmitrijs2005/photoforge/internal/server/models"
)

type signInRequest struct {
	IDToken   string `json:"id_token"`
	SessionID string `json:"session_id"`
	Client    string `json:"client"`
}

type tokenResponse struct {
	AccessToken  string    `json:"access_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	RefreshToken string    `json:"refresh_token,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := readJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	pair, err := h.users.SignIn(r.Context(), req.IDToken, req.SessionID, req.Client)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken, pair.RefreshExpiresAt)
	resp := tokenResponse{AccessToken: pair.AccessToken, ExpiresAt: pair.AccessExpiresAt}
	// Mobile clients have no cookie jar.
	if req.Client == models.ClientMobile {
		resp.RefreshToken = pair.RefreshToken
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	token := ""
	if c, err := r.Cookie(common.RefreshTokenCookieName); err == nil {
		token = c.Value
	}
	if token == "" && r.ContentLength != 0 {
		var req refreshRequest
		if err := readJSON(w, r, &req); err != nil {
			h.writeError(w, r, err)
			return
		}
		token = req.RefreshToken
	}
	if token == "" {
		h.writeError(w, r, common.ErrorUnauthorized)
		return
	}

	access, exp, err := h.tokens.Refresh(r.Context(), token)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: access, ExpiresAt: exp})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.tokens.Logout(r.Context(), PrincipalFromContext(r.Context())); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) logoutAll(w http.ResponseWriter, r *http.Request) {
	if err := h.tokens.LogoutEverywhere(r.Context(), PrincipalFromContext(r.Context())); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.RefreshTokenCookieName,
		Value:    token,
		Path:     common.RefreshTokenCookiePath,
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.RefreshTokenCookieName,
		Value:    "",
		Path:     common.RefreshTokenCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
