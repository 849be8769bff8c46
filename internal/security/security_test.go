package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestCSRFTokenRoundTrip(t *testing.T) {
	g := NewCSRFGenerator("secret")

	token, err := g.GenerateToken("session-1")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if !g.ValidateToken("session-1", token) {
		t.Error("ValidateToken() rejected its own token")
	}
	if g.ValidateToken("session-2", token) {
		t.Error("ValidateToken() accepted a token for another session")
	}
	if NewCSRFGenerator("other").ValidateToken("session-1", token) {
		t.Error("ValidateToken() accepted a token signed with another secret")
	}
	if _, err := g.GenerateToken(""); err == nil {
		t.Error("GenerateToken() should fail without a session ID")
	}
}

func TestTokenFromRequest(t *testing.T) {
	form := url.Values{CSRFFormField: {"from-form"}}
	r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if got := TokenFromRequest(r); got != "from-form" {
		t.Errorf("TokenFromRequest() = %q, want from-form", got)
	}

	r = httptest.NewRequest(http.MethodPost, "/login", nil)
	r.Header.Set(CSRFHeader, "from-header")
	if got := TokenFromRequest(r); got != "from-header" {
		t.Errorf("TokenFromRequest() = %q, want from-header", got)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()

	if !rl.Allow("login:1.2.3.4") || !rl.Allow("login:1.2.3.4") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("login:1.2.3.4") {
		t.Error("third request within the window should be blocked")
	}
	if !rl.Allow("login:5.6.7.8") {
		t.Error("a different key has its own budget")
	}

	rl.Stop()
	rl.Stop()
}

func TestRateLimiterWindowReset(t *testing.T) {
	rl := NewRateLimiter(1, 20*time.Millisecond)
	defer rl.Stop()

	if !rl.Allow("k") {
		t.Fatal("first request should pass")
	}
	if rl.Allow("k") {
		t.Fatal("second request should be blocked")
	}
	time.Sleep(30 * time.Millisecond)
	if !rl.Allow("k") {
		t.Error("request after the window should pass")
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded chain", headers: map[string]string{"X-Forwarded-For": "10.0.0.1, 172.16.0.1"}, remote: "127.0.0.1:1234", want: "10.0.0.1"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "10.0.0.2"}, remote: "127.0.0.1:1234", want: "10.0.0.2"},
		{name: "remote addr", remote: "192.168.1.5:5555", want: "192.168.1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := GetClientIP(r); got != tt.want {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCookies(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	c := CreateSessionCookie(r, SessionCookieName, "abc", time.Now().Add(time.Hour))
	if c.Secure {
		t.Error("plain HTTP request should not get a Secure cookie")
	}
	if !c.HttpOnly || c.SameSite != http.SameSiteLaxMode {
		t.Error("session cookie must be HttpOnly and SameSite=Lax")
	}

	r.TLS = &tls.ConnectionState{}
	if !CreateDeleteCookie(r, SessionCookieName).Secure {
		t.Error("TLS request should get a Secure cookie")
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Forwarded-Proto", "https")
	tmp := CreateTempCookie(r, "oauth_state", "s", 10*time.Minute)
	if !tmp.Secure || tmp.MaxAge != 600 {
		t.Errorf("temp cookie = %+v", tmp)
	}
}

func TestSealer(t *testing.T) {
	s, err := NewSealer("secret")
	if err != nil {
		t.Fatalf("NewSealer() error = %v", err)
	}

	sealed, err := s.Seal("bearer-token")
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	if strings.Contains(sealed, "bearer-token") {
		t.Error("sealed value leaks the plaintext")
	}

	again, _ := s.Seal("bearer-token")
	if again == sealed {
		t.Error("sealing twice should use fresh nonces")
	}

	plain, err := s.Open(sealed)
	if err != nil || plain != "bearer-token" {
		t.Fatalf("Open() = %q, %v", plain, err)
	}

	other, _ := NewSealer("different")
	if _, err := other.Open(sealed); err != ErrUnsealable {
		t.Errorf("Open() with wrong key error = %v, want ErrUnsealable", err)
	}
	if _, err := s.Open("not base64!"); err != ErrUnsealable {
		t.Errorf("Open() of garbage error = %v, want ErrUnsealable", err)
	}
	if _, err := NewSealer(""); err == nil {
		t.Error("NewSealer() should reject an empty secret")
	}
}
