// Pipewatch - CI/CD Pipeline Monitoring and Deployment Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pipewatch

package api

import (
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/pipewatch/internal/auth"
	"github.com/tomtom215/pipewatch/internal/logging"
	"github.com/tomtom215/pipewatch/internal/validation"
)

// githubAuthorizeURL is where the OAuth login flow starts.
const githubAuthorizeURL = "https://github.com/login/oauth/authorize"

// LoginRequest is the admin credential login body.
type LoginRequest struct {
	Username string `json:"username" validate:"required,min=1,max=100"`
	Password string `json:"password" validate:"required,min=1,max=200"`
}

// loginResponse is returned after a successful login.
type loginResponse struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Login authenticates against the configured admin credentials and
// issues a session-backed JWT cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest,
			"request body must be valid JSON", nil)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondError(w, http.StatusBadRequest, ErrCodeValidationFailed,
			verr.Error(), nil)
		return
	}

	sec := h.config.Security
	if sec.AdminUsername == "" {
		respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized,
			"password login is not enabled", nil)
		return
	}

	if !auth.VerifyAdminCredentials(sec.AdminUsername, sec.AdminPassword, req.Username, req.Password) {
		logging.Warn().
			Str("username", sanitizeLogValue(req.Username)).
			Str("remote", sanitizeLogValue(r.RemoteAddr)).
			Msg("Failed admin login attempt")
		respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized,
			"invalid credentials", nil)
		return
	}

	h.issueSession(w, r, auth.NewSession(req.Username, "admin", sec.SessionTimeout), false)
}

// Logout revokes the current session and clears the cookie. The JWT
// becomes useless once the session row is gone.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized,
			"not authenticated", nil)
		return
	}

	if err := h.sessions.Delete(r.Context(), claims.SessionID); err != nil {
		logging.Error().Err(err).Msg("Failed to delete session on logout")
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})

	respondSuccess(w, map[string]string{"message": "logged out"})
}

// Me returns the authenticated user's profile.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized,
			"not authenticated", nil)
		return
	}

	resp := loginResponse{
		Username:  claims.Username,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if session, err := h.sessions.Get(r.Context(), claims.SessionID); err == nil {
		resp.AvatarURL = session.AvatarURL
	}

	respondSuccess(w, resp)
}

// GitHubStart redirects the browser to GitHub's OAuth consent page
// with a single-use state nonce.
func (h *Handler) GitHubStart(w http.ResponseWriter, r *http.Request) {
	gh := h.config.GitHub
	if gh.OAuthClientID == "" || gh.OAuthRedirectURL == "" {
		respondError(w, http.StatusNotFound, ErrCodeNotFound,
			"GitHub OAuth login is not configured", nil)
		return
	}

	state := uuid.NewString()
	if err := h.sessions.SaveState(r.Context(), state); err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError,
			"failed to start login flow", err)
		return
	}

	params := url.Values{}
	params.Set("client_id", gh.OAuthClientID)
	params.Set("redirect_uri", gh.OAuthRedirectURL)
	params.Set("state", state)
	params.Set("scope", "read:user")

	http.Redirect(w, r, githubAuthorizeURL+"?"+params.Encode(), http.StatusFound)
}

// GitHubCallback completes the OAuth flow: the state nonce must match
// a saved one, then the code is exchanged for a token and the GitHub
// profile becomes the session identity.
func (h *Handler) GitHubCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if state == "" || code == "" {
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest,
			"missing state or code parameter", nil)
		return
	}

	valid, err := h.sessions.ConsumeState(r.Context(), state)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError,
			"failed to verify login state", err)
		return
	}
	if !valid {
		logging.Warn().
			Str("remote", sanitizeLogValue(r.RemoteAddr)).
			Msg("OAuth callback with unknown or reused state")
		respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized,
			"invalid or expired login state", nil)
		return
	}

	token, err := h.github.ExchangeCode(r.Context(), code)
	if err != nil {
		logging.Error().Err(err).Msg("OAuth code exchange failed")
		respondError(w, http.StatusBadGateway, ErrCodeExternalServiceFail,
			"failed to complete GitHub login", err)
		return
	}

	user, err := h.github.GetAuthenticatedUser(r.Context(), token)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to fetch GitHub profile after login")
		respondError(w, http.StatusBadGateway, ErrCodeExternalServiceFail,
			"failed to load GitHub profile", err)
		return
	}

	session := auth.NewSession(user.Login, "viewer", h.config.Security.SessionTimeout)
	session.AvatarURL = user.AvatarURL
	session.GitHubToken = token

	h.issueSession(w, r, session, true)
}

// issueSession persists the session, mints the JWT cookie, and either
// redirects (browser OAuth flow) or returns the profile as JSON.
func (h *Handler) issueSession(w http.ResponseWriter, r *http.Request, session *auth.Session, redirect bool) {
	if h.jwtManager == nil {
		respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized,
			"authentication is disabled", nil)
		return
	}

	if err := h.sessions.Create(r.Context(), session); err != nil {
		logging.Error().Err(err).Msg("Failed to persist session")
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError,
			"failed to create session", err)
		return
	}

	token, err := h.jwtManager.GenerateToken(session.Username, session.Role, session.ID)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to sign session token")
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError,
			"failed to create session", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.config.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})

	logging.Info().
		Str("username", sanitizeLogValue(session.Username)).
		Str("role", session.Role).
		Msg("Session created")

	if redirect {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	respondSuccess(w, loginResponse{
		Username:  session.Username,
		Role:      session.Role,
		AvatarURL: session.AvatarURL,
		ExpiresAt: session.ExpiresAt,
	})
}
