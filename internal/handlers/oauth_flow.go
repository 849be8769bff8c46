package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"studentportal/internal/auth"
	"studentportal/internal/security"
)

const (
	oauthStateCookie = "oauth_state"
	oauthNonceCookie = "oauth_nonce"
	oauthNextCookie  = "oauth_next"
	oauthCookieTTL   = 10 * time.Minute
)

var googleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

// StartGoogle redirects the visitor to Google's consent screen.
func (h *AuthHandler) StartGoogle(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		h.loginError(w, r, MsgGoogleUnavailable, http.StatusNotFound)
		return
	}

	state := security.GenerateSessionID()
	nonce := security.GenerateSessionID()

	http.SetCookie(w, security.CreateTempCookie(r, oauthStateCookie, state, oauthCookieTTL))
	http.SetCookie(w, security.CreateTempCookie(r, oauthNonceCookie, nonce, oauthCookieTTL))
	if next := auth.SafeNext(r.URL.Query().Get("next"), ""); next != "" {
		http.SetCookie(w, security.CreateTempCookie(r, oauthNextCookie, next, oauthCookieTTL))
	}

	config := *h.google
	config.RedirectURL = h.oauthRedirectURL(r)

	authURL := config.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.SetAuthURLParam("nonce", nonce))
	http.Redirect(w, r, authURL, http.StatusFound)
}

// GoogleCallback finishes the Google flow and hands the ID token to the
// backend, which issues the portal token.
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		h.loginError(w, r, MsgGoogleUnavailable, http.StatusNotFound)
		return
	}

	query := r.URL.Query()
	if query.Get("error") != "" {
		h.clearOAuthCookies(w, r)
		h.loginError(w, r, "Google sign-in was cancelled", http.StatusOK)
		return
	}

	code := query.Get("code")
	if code == "" {
		h.loginError(w, r, "Missing authorization code", http.StatusBadRequest)
		return
	}

	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != query.Get("state") {
		h.loginError(w, r, "Invalid OAuth state", http.StatusBadRequest)
		return
	}

	nonce := ""
	if cookie, err := r.Cookie(oauthNonceCookie); err == nil {
		nonce = cookie.Value
	}
	next := ""
	if cookie, err := r.Cookie(oauthNextCookie); err == nil {
		next = cookie.Value
	}
	h.clearOAuthCookies(w, r)

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	config := *h.google
	config.RedirectURL = h.oauthRedirectURL(r)

	token, err := config.Exchange(ctx, code)
	if err != nil {
		h.reporter.Warn("Google code exchange failed", err)
		h.loginError(w, r, "Failed to exchange OAuth code", http.StatusBadRequest)
		return
	}

	idToken, _ := token.Extra("id_token").(string)
	if _, err := checkGoogleIDToken(idToken, h.google.ClientID, nonce, time.Now()); err != nil {
		h.reporter.Warn("Rejected Google ID token", err)
		h.loginError(w, r, MsgGoogleFailed, http.StatusBadRequest)
		return
	}

	loginCtx, sessionID := freshSession(r.Context())
	result, err := h.api.GoogleLogin(loginCtx, idToken)
	if err != nil {
		data := h.loginData(r)
		h.showError(r, &data.PageData, err, MsgGoogleFailed)
		h.render(w, "login.tmpl", http.StatusOK, data)
		return
	}
	if !result.Success {
		message := result.Error
		if message == "" {
			message = MsgGoogleFailed
		}
		h.loginError(w, r, message, http.StatusOK)
		return
	}

	h.completeLogin(w, r, sessionID, result, next)
}

// googleClaims are the ID token claims checked before the token is passed
// on.
type googleClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Nonce         string `json:"nonce"`
}

// checkGoogleIDToken rejects ID tokens minted for another client, another
// flow or already expired. The backend verifies the signature.
func checkGoogleIDToken(idToken, clientID, nonce string, now time.Time) (*googleClaims, error) {
	if idToken == "" {
		return nil, errors.New("missing Google id_token")
	}

	claims := &googleClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return nil, fmt.Errorf("parsing id_token: %w", err)
	}

	if !slices.Contains(googleIssuers, claims.Issuer) {
		return nil, fmt.Errorf("unexpected issuer %q", claims.Issuer)
	}
	if !slices.Contains([]string(claims.Audience), clientID) {
		return nil, errors.New("invalid Google audience")
	}
	if nonce != "" && claims.Nonce != nonce {
		return nil, errors.New("invalid Google nonce")
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.After(now) {
		return nil, errors.New("expired Google id_token")
	}
	if claims.Email == "" {
		return nil, errors.New("Google email not available")
	}
	return claims, nil
}

func (h *AuthHandler) oauthRedirectURL(r *http.Request) string {
	baseURL := strings.TrimSpace(h.oauthRedirectBaseURL)
	if baseURL == "" {
		scheme := "http"
		if security.IsSecureRequest(r) {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s", scheme, r.Host)
	}
	return strings.TrimRight(baseURL, "/") + "/auth/google/callback"
}

func (h *AuthHandler) clearOAuthCookies(w http.ResponseWriter, r *http.Request) {
	for _, name := range []string{oauthStateCookie, oauthNonceCookie, oauthNextCookie} {
		http.SetCookie(w, security.CreateDeleteCookie(r, name))
	}
}

func (h *AuthHandler) loginError(w http.ResponseWriter, r *http.Request, message string, status int) {
	data := h.loginData(r)
	data.Error = message
	h.render(w, "login.tmpl", status, data)
}
