package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentportal/internal/security"
	"studentportal/internal/tokenstore"
)

func TestSessionIssuesCookieOnce(t *testing.T) {
	m := NewMiddleware(security.NewCSRFGenerator("test-secret"), nil, time.Hour, 1<<20)

	var seen string
	h := m.Session(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = tokenstore.SessionIDFrom(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, security.SessionCookieName, cookies[0].Name)
	assert.Equal(t, cookies[0].Value, seen)
	assert.True(t, cookies[0].HttpOnly)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: security.SessionCookieName, Value: seen})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	assert.Empty(t, rec.Result().Cookies(), "existing session is reused")
	assert.Equal(t, cookies[0].Value, seen)
}

func TestSessionReplacesMalformedCookie(t *testing.T) {
	m := NewMiddleware(security.NewCSRFGenerator("test-secret"), nil, time.Hour, 1<<20)

	var seen string
	h := m.Session(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = tokenstore.SessionIDFrom(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: security.SessionCookieName, Value: "../../etc/passwd"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	assert.NotEqual(t, "../../etc/passwd", seen)
	assert.Len(t, rec.Result().Cookies(), 1)
}

func TestCSRFProtect(t *testing.T) {
	csrf := security.NewCSRFGenerator("test-secret")
	m := NewMiddleware(csrf, nil, time.Hour, 1<<20)
	token, err := csrf.GenerateToken(testSessionID)
	require.NoError(t, err)

	called := false
	h := m.CSRFProtect(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	post := func(form url.Values) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		r = r.WithContext(tokenstore.WithSessionID(r.Context(), testSessionID))
		rec := httptest.NewRecorder()
		h(rec, r)
		return rec
	}

	rec := post(url.Values{"csrf_token": {"forged"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, called)

	rec = post(url.Values{"csrf_token": {token}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
}

func TestCSRFTokenWithoutSession(t *testing.T) {
	m := NewMiddleware(security.NewCSRFGenerator("test-secret"), nil, time.Hour, 1<<20)
	assert.Empty(t, m.CSRFToken(httptest.NewRequest(http.MethodGet, "/", nil)))

	var nilMiddleware *Middleware
	assert.Empty(t, nilMiddleware.CSRFToken(httptest.NewRequest(http.MethodGet, "/", nil)))
}

func TestRateLimit(t *testing.T) {
	limiter := security.NewRateLimiter(2, time.Minute)
	defer limiter.Stop()
	m := NewMiddleware(security.NewCSRFGenerator("test-secret"), limiter, time.Hour, 1<<20)

	h := m.RateLimit("login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		r := httptest.NewRequest(http.MethodPost, "/login", nil)
		r.RemoteAddr = "203.0.113.7:5000"
		rec := httptest.NewRecorder()
		h(rec, r)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}
