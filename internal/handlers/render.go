package handlers

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"log"
	"net/http"

	"studentportal/internal/api"
	"studentportal/internal/auth"
	"studentportal/internal/diag"
)

// TokenClearer drops the visitor's stored bearer token.
type TokenClearer interface {
	ClearToken(ctx context.Context) error
}

// pages carries what every page handler needs to render.
type pages struct {
	templates  *template.Template
	middleware *Middleware
	reporter   *diag.Reporter
	tokens     TokenClearer
}

// page returns the shared view data for r.
func (p *pages) page(r *http.Request, title string) PageData {
	return PageData{
		Title:     title + " - " + siteName,
		User:      auth.UserFromContext(r.Context()),
		CSRFToken: p.middleware.CSRFToken(r),
	}
}

// render executes a template into a buffer so a failed render never leaves
// a half-written page.
func (p *pages) render(w http.ResponseWriter, name string, status int, data any) {
	var buf bytes.Buffer
	if err := p.templates.ExecuteTemplate(&buf, name, data); err != nil {
		p.fail(w, nil, http.StatusInternalServerError, ErrInternalServerError, "Error rendering "+name, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// fail writes a plain-text error response through the page's reporter.
func (p *pages) fail(w http.ResponseWriter, r *http.Request, status int, userMsg, logMsg string, err error) {
	respondWithError(w, r, p.reporter, status, userMsg, logMsg, err)
}

// showError fills the banner for err. Validation and auth messages are
// shown verbatim, transient failures get a retry link and anything else is
// reported and replaced by fallback.
func (p *pages) showError(r *http.Request, data *PageData, err error, fallback string) {
	switch api.Classify(err) {
	case api.KindValidation, api.KindAuth:
		data.Error = err.Error()
	case api.KindTransient:
		log.Printf("Backend unavailable for %s: %v", r.URL.Path, err)
		data.Error = api.UserMessage(err)
		data.RetryURL = r.URL.RequestURI()
	default:
		p.reporter.Error(r, "Unexpected backend error on "+r.URL.Path, err)
		data.Error = fallback
	}
	if data.Error == "" {
		data.Error = fallback
	}
}

// sessionExpired handles a 401 from the backend on a guarded page: the
// stored token is dropped and the visitor is sent to sign in again.
func (p *pages) sessionExpired(w http.ResponseWriter, r *http.Request, err error, guard auth.Guard) bool {
	var authErr *api.AuthError
	if !errors.As(err, &authErr) || authErr.StatusCode != http.StatusUnauthorized {
		return false
	}

	if clearErr := p.tokens.ClearToken(r.Context()); clearErr != nil {
		p.reporter.Error(r, "Error clearing expired token", clearErr)
	}
	if s := auth.SessionFromContext(r.Context()); s != nil {
		s.Logout()
	}
	http.Redirect(w, r, guard.RedirectURL(r), http.StatusSeeOther)
	return true
}

// LoadingPage renders the indicator shown while a guarded page waits for
// session verification. It refreshes itself until verification settles.
func LoadingPage(templates *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		data := PageData{Title: "Loading...", RefreshAfter: 2}

		var buf bytes.Buffer
		if err := templates.ExecuteTemplate(&buf, "loading.tmpl", data); err != nil {
			respondWithError(w, r, nil, http.StatusInternalServerError, ErrInternalServerError, "Error rendering loading page", err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = buf.WriteTo(w)
	}
}
