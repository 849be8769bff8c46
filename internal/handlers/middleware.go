package handlers

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"studentportal/internal/security"
	"studentportal/internal/tokenstore"
)

// Middleware holds dependencies for middleware functions
type Middleware struct {
	csrf            *security.CSRFGenerator
	limiter         *security.RateLimiter
	sessionDuration time.Duration
	uploadMaxSize   int64
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(csrf *security.CSRFGenerator, limiter *security.RateLimiter, sessionDuration time.Duration, uploadMaxSize int64) *Middleware {
	return &Middleware{
		csrf:            csrf,
		limiter:         limiter,
		sessionDuration: sessionDuration,
		uploadMaxSize:   uploadMaxSize,
	}
}

// Session makes sure every visitor carries a portal session cookie and puts
// its ID in the request context, where the token store looks it up.
func (m *Middleware) Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := ""
		if cookie, err := r.Cookie(security.SessionCookieName); err == nil {
			if _, err := uuid.Parse(cookie.Value); err == nil {
				sessionID = cookie.Value
			}
		}

		if sessionID == "" {
			sessionID = security.GenerateSessionID()
			m.IssueSession(w, r, sessionID)
		}

		ctx := tokenstore.WithSessionID(r.Context(), sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IssueSession sends the portal cookie for sessionID, replacing the one the
// visitor holds.
func (m *Middleware) IssueSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	http.SetCookie(w, security.CreateSessionCookie(r, security.SessionCookieName, sessionID, time.Now().Add(m.sessionDuration)))
}

// CSRFToken returns the token to embed in forms rendered for r.
func (m *Middleware) CSRFToken(r *http.Request) string {
	if m == nil || m.csrf == nil {
		return ""
	}
	token, err := m.csrf.GenerateToken(tokenstore.SessionIDFrom(r.Context()))
	if err != nil {
		return ""
	}
	return token
}

// CSRFProtect rejects form posts without a valid CSRF token. Multipart
// bodies are parsed here, bounded by the upload limit.
func (m *Middleware) CSRFProtect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			r.Body = http.MaxBytesReader(w, r.Body, m.uploadMaxSize+1<<20)
			if err := r.ParseMultipartForm(m.uploadMaxSize); err != nil {
				respondWithError(w, r, nil, http.StatusBadRequest, ErrInvalidFormData, "Error parsing multipart form", err)
				return
			}
		}

		sessionID := tokenstore.SessionIDFrom(r.Context())
		if !m.csrf.ValidateToken(sessionID, security.TokenFromRequest(r)) {
			respondWithError(w, r, nil, http.StatusForbidden, ErrInvalidCSRFToken, "", nil)
			return
		}
		next(w, r)
	}
}

// RateLimit limits how often one client may perform action.
func (m *Middleware) RateLimit(action string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := action + ":" + security.GetClientIP(r)
		if !m.limiter.Allow(key) {
			log.Printf("Rate limit exceeded for %s", key)
			respondWithError(w, r, nil, http.StatusTooManyRequests, ErrTooManyRequests, "", nil)
			return
		}
		next(w, r)
	}
}

// Logging middleware logs HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Call next handler
		next.ServeHTTP(w, r)

		// Log request
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
