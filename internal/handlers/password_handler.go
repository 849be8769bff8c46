package handlers

import (
	"context"
	"html/template"
	"net/http"
	"strings"

	"studentportal/internal/diag"
	"studentportal/internal/validation"
)

// PasswordResetAPI is the backend's forgot-password flow.
type PasswordResetAPI interface {
	RequestVerificationCode(ctx context.Context, email string) error
	VerifyResetCode(ctx context.Context, email, code string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
}

// PasswordHandler serves the three-step forgot-password wizard: email,
// verification code, new password. The step and earlier answers travel in
// hidden fields.
type PasswordHandler struct {
	pages
	api PasswordResetAPI
}

// NewPasswordHandler creates a new password handler
func NewPasswordHandler(client PasswordResetAPI, templates *template.Template, middleware *Middleware, reporter *diag.Reporter) *PasswordHandler {
	return &PasswordHandler{
		pages: pages{
			templates:  templates,
			middleware: middleware,
			reporter:   reporter,
		},
		api: client,
	}
}

// ShowForgotPassword renders the first step.
func (h *PasswordHandler) ShowForgotPassword(w http.ResponseWriter, r *http.Request) {
	data := ForgotPasswordViewData{
		PageData: h.page(r, "Reset Password"),
		Step:     1,
	}
	h.render(w, "forgot_password.tmpl", http.StatusOK, data)
}

// ForgotPassword handles a submitted wizard step.
func (h *PasswordHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	data := ForgotPasswordViewData{
		PageData: h.page(r, "Reset Password"),
		Email:    strings.TrimSpace(r.FormValue("email")),
		Code:     strings.TrimSpace(r.FormValue("code")),
	}
	ctx := r.Context()

	switch r.FormValue("step") {
	case "2":
		data.Step = 2
		if err := validation.ValidateCode(data.Code); err != nil {
			data.FieldErrors = validation.Errors{"code": err.Error()}
			break
		}
		if err := h.api.VerifyResetCode(ctx, data.Email, data.Code); err != nil {
			h.showError(r, &data.PageData, err, MsgResetFailed)
			break
		}
		data.Step = 3

	case "3":
		data.Step = 3
		newPassword := r.FormValue("new_password")
		if err := validation.ValidatePassword(newPassword); err != nil {
			data.FieldErrors = validation.Errors{"password": err.Error()}
			break
		}
		if err := h.api.ResetPassword(ctx, data.Email, data.Code, newPassword); err != nil {
			h.showError(r, &data.PageData, err, MsgResetFailed)
			break
		}
		data.Done = true
		data.Success = MsgResetDone
		data.RefreshURL = "/"
		data.RefreshAfter = 2

	default:
		data.Step = 1
		if err := validation.ValidateEmail(data.Email); err != nil {
			data.FieldErrors = validation.Errors{"email": err.Error()}
			break
		}
		if err := h.api.RequestVerificationCode(ctx, data.Email); err != nil {
			h.showError(r, &data.PageData, err, MsgResetFailed)
			break
		}
		data.Step = 2
	}

	h.render(w, "forgot_password.tmpl", http.StatusOK, data)
}
