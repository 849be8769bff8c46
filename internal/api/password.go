package api

import (
	"context"
	"net/http"
)

// RequestVerificationCode starts a password reset by emailing a code.
func (c *Client) RequestVerificationCode(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/password-reset/request/", map[string]string{
		"email": email,
	}, nil)
}

// VerifyResetCode checks the emailed code before a new password is chosen.
func (c *Client) VerifyResetCode(ctx context.Context, email, code string) error {
	return c.do(ctx, http.MethodPost, "/password-reset/verify/", map[string]string{
		"email":             email,
		"verification_code": code,
	}, nil)
}

// ResetPassword sets a new password using a verified code.
func (c *Client) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	return c.do(ctx, http.MethodPost, "/password-reset/confirm/", map[string]string{
		"email":             email,
		"verification_code": code,
		"new_password":      newPassword,
	}, nil)
}

// ChangePasswordRequest carries the final step of the change wizard. The
// confirmation field never leaves the portal.
type ChangePasswordRequest struct {
	VerificationCode string `json:"verification_code"`
	OldPassword      string `json:"old_password"`
	NewPassword      string `json:"new_password"`
}

// SendVerificationCode emails a change-password code to the signed-in user.
func (c *Client) SendVerificationCode(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/change-password-request/", map[string]string{
		"email": email,
	}, nil)
}

// VerifyCode checks a change-password code.
func (c *Client) VerifyCode(ctx context.Context, code string) error {
	return c.do(ctx, http.MethodPost, "/verify-change-password-code/", map[string]string{
		"verification_code": code,
	}, nil)
}

// ChangePassword replaces the signed-in user's password.
func (c *Client) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	return c.do(ctx, http.MethodPost, "/change-password/", req, nil)
}
