package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"studentportal/internal/models"
)

// Credentials identify a student by email or by index number, never both.
type Credentials struct {
	Email       string
	IndexNumber string
	Password    string
}

// Validate enforces exactly one identifier plus a password.
func (c Credentials) Validate() error {
	email := strings.TrimSpace(c.Email)
	index := strings.TrimSpace(c.IndexNumber)

	switch {
	case email == "" && index == "":
		return &ValidationError{Field: "identifier", Message: "Email or index number is required"}
	case email != "" && index != "":
		return &ValidationError{Field: "identifier", Message: "Use either your email or your index number, not both"}
	case c.Password == "":
		return &ValidationError{Field: "password", Message: "Password is required"}
	}
	return nil
}

type loginRequest struct {
	Email       string `json:"email,omitempty"`
	IndexNumber string `json:"index_number,omitempty"`
	Password    string `json:"password"`
}

// LoginResult is the backend's answer to a sign-in attempt.
type LoginResult struct {
	Success     bool         `json:"success"`
	AccessToken string       `json:"access_token"`
	Token       string       `json:"token"`
	Access      string       `json:"access"`
	User        *models.User `json:"user"`
	Error       string       `json:"error"`
}

func (r *LoginResult) bearer() string {
	for _, t := range []string{r.AccessToken, r.Token, r.Access} {
		if t != "" {
			return t
		}
	}
	return ""
}

// SessionStatus is the result of a session check.
type SessionStatus struct {
	LoggedIn  bool         `json:"logged_in"`
	IsStudent bool         `json:"is_student"`
	User      *models.User `json:"user"`
}

// Login signs a student in and stores the issued token. A 2xx answer with
// success=false is returned as a result, not an error; 4xx answers come back
// as *AuthError or *APIError carrying the backend's message.
func (c *Client) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	req := loginRequest{
		Email:       strings.TrimSpace(creds.Email),
		IndexNumber: strings.TrimSpace(creds.IndexNumber),
		Password:    creds.Password,
	}
	return c.authenticate(ctx, "/login", req)
}

// GoogleLogin exchanges a Google ID token for a portal token.
func (c *Client) GoogleLogin(ctx context.Context, idToken string) (*LoginResult, error) {
	if idToken == "" {
		return nil, &ValidationError{Field: "credential", Message: "Google sign-in did not return a credential"}
	}
	return c.authenticate(ctx, "/google-login/", map[string]string{"credential": idToken})
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (*LoginResult, error) {
	var result LoginResult
	if err := c.do(ctx, http.MethodPost, path, body, &result); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			return nil, &AuthError{StatusCode: apiErr.StatusCode, Message: apiErr.Message}
		}
		return nil, err
	}

	if !result.Success {
		return &result, nil
	}

	token := result.bearer()
	if token == "" {
		return nil, fmt.Errorf("login succeeded without an access token")
	}
	if err := c.tokens.SetToken(ctx, token); err != nil {
		return nil, fmt.Errorf("storing token: %w", err)
	}
	return &result, nil
}

// CheckSession asks the backend whether the stored token is still valid. It
// makes no call when no token is stored and reports a 401 as logged out.
func (c *Client) CheckSession(ctx context.Context) (SessionStatus, error) {
	ok, err := c.hasToken(ctx)
	if err != nil || !ok {
		return SessionStatus{}, err
	}

	var status SessionStatus
	err = c.do(ctx, http.MethodGet, "/session", nil, &status)
	var authErr *AuthError
	if errors.As(err, &authErr) && authErr.StatusCode == http.StatusUnauthorized {
		return SessionStatus{}, nil
	}
	if err != nil {
		return SessionStatus{}, err
	}

	if status.User != nil && !status.IsStudent {
		status.IsStudent = status.User.IsStudent()
	}
	return status, nil
}

// Logout ends the backend session when there is one and always clears the
// stored token. The returned error is informational: the visitor is logged
// out locally either way.
func (c *Client) Logout(ctx context.Context) error {
	var serverErr error
	ok, err := c.hasToken(ctx)
	if err != nil {
		serverErr = err
	} else if ok {
		serverErr = c.do(ctx, http.MethodPost, "/logout", nil, nil)
	}

	if err := c.tokens.ClearToken(ctx); err != nil {
		return errors.Join(serverErr, fmt.Errorf("clearing token: %w", err))
	}
	return serverErr
}

// GetCurrentUser fetches the signed-in user's profile.
func (c *Client) GetCurrentUser(ctx context.Context) (*models.User, error) {
	ok, err := c.hasToken(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoToken
	}

	var user models.User
	if err := c.do(ctx, http.MethodGet, "/user-detail/", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
