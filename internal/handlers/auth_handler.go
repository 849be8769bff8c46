package handlers

import (
	"context"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"studentportal/internal/api"
	"studentportal/internal/auth"
	"studentportal/internal/diag"
	"studentportal/internal/security"
	"studentportal/internal/tokenstore"
	"studentportal/internal/validation"
)

// AuthAPI is the part of the backend client used for signing in and out.
type AuthAPI interface {
	Login(ctx context.Context, creds api.Credentials) (*api.LoginResult, error)
	GoogleLogin(ctx context.Context, idToken string) (*api.LoginResult, error)
	CheckSession(ctx context.Context) (api.SessionStatus, error)
	Logout(ctx context.Context) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	pages
	api                  AuthAPI
	google               *oauth2.Config
	oauthRedirectBaseURL string
}

// NewAuthHandler creates a new auth handler. google may be nil when Google
// sign-in is not configured.
func NewAuthHandler(client AuthAPI, tokens TokenClearer, google *oauth2.Config, oauthRedirectBaseURL string, templates *template.Template, middleware *Middleware, reporter *diag.Reporter) *AuthHandler {
	return &AuthHandler{
		pages: pages{
			templates:  templates,
			middleware: middleware,
			reporter:   reporter,
			tokens:     tokens,
		},
		api:                  client,
		google:               google,
		oauthRedirectBaseURL: oauthRedirectBaseURL,
	}
}

func (h *AuthHandler) loginData(r *http.Request) LoginViewData {
	method := r.URL.Query().Get("method")
	if method != validation.LoginByIndex {
		method = validation.LoginByEmail
	}

	data := LoginViewData{
		PageData: h.page(r, "Login"),
		Method:   method,
		Next:     auth.SafeNext(r.URL.Query().Get("next"), ""),
	}
	if h.google != nil {
		data.GoogleURL = "/auth/google/start"
		if data.Next != "" {
			data.GoogleURL += "?next=" + url.QueryEscape(data.Next)
		}
	}
	return data
}

// ShowLogin renders the login page, or the welcome screen for a student
// who is already signed in.
func (h *AuthHandler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	data := h.loginData(r)

	status, err := h.api.CheckSession(r.Context())
	if err != nil {
		log.Printf("Session check failed (%s): %v", api.Classify(err), err)
	} else if status.LoggedIn && status.IsStudent && status.User != nil {
		data.Welcome = status.User
		data.User = status.User
	}

	h.render(w, "login.tmpl", http.StatusOK, data)
}

// Login handles login form submission
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	form := validation.LoginForm{
		Method:      r.FormValue("method"),
		Email:       strings.TrimSpace(r.FormValue("email")),
		IndexNumber: strings.TrimSpace(r.FormValue("index_number")),
		Password:    r.FormValue("password"),
	}
	if form.Method != validation.LoginByIndex {
		form.Method = validation.LoginByEmail
	}

	data := h.loginData(r)
	data.Method = form.Method
	data.Email = form.Email
	data.IndexNumber = form.IndexNumber
	data.Next = auth.SafeNext(r.FormValue("next"), "")

	if errs := validation.ValidateLogin(form); errs != nil {
		data.FieldErrors = errs
		h.render(w, "login.tmpl", http.StatusOK, data)
		return
	}

	creds := api.Credentials{Password: form.Password}
	if form.Method == validation.LoginByIndex {
		creds.IndexNumber = form.IndexNumber
	} else {
		creds.Email = form.Email
	}

	ctx, sessionID := freshSession(r.Context())
	result, err := h.api.Login(ctx, creds)
	if err != nil {
		h.showError(r, &data.PageData, err, MsgLoginFailed)
		h.render(w, "login.tmpl", http.StatusOK, data)
		return
	}
	if !result.Success {
		data.Error = result.Error
		if data.Error == "" {
			data.Error = MsgLoginFailed
		}
		h.render(w, "login.tmpl", http.StatusOK, data)
		return
	}

	h.completeLogin(w, r, sessionID, result, data.Next)
}

// freshSession returns ctx keyed by a new portal session ID. Sign-ins store
// the issued token there, never under the ID the visitor arrived with.
func freshSession(ctx context.Context) (context.Context, string) {
	sessionID := security.GenerateSessionID()
	return tokenstore.WithSessionID(ctx, sessionID), sessionID
}

// completeLogin moves the visitor onto sessionID, which holds the new
// token, drops anything stored under the old ID and redirects to next, or
// the portal.
func (h *AuthHandler) completeLogin(w http.ResponseWriter, r *http.Request, sessionID string, result *api.LoginResult, next string) {
	if err := h.tokens.ClearToken(r.Context()); err != nil {
		h.reporter.Warn("Clearing the previous session failed", err)
	}
	h.middleware.IssueSession(w, r, sessionID)

	if s := auth.SessionFromContext(r.Context()); s != nil && result.User != nil {
		s.Login(result.User)
	}
	http.Redirect(w, r, auth.SafeNext(next, DefaultLandingPath), http.StatusSeeOther)
}

// Logout handles logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.api.Logout(r.Context()); err != nil {
		h.reporter.Warn("Backend logout failed", err)
	}
	if s := auth.SessionFromContext(r.Context()); s != nil {
		s.Logout()
	}

	// Redirect to home
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
