package handlers

import (
	"context"
	"html/template"
	"net/http"
	"strings"

	"studentportal/internal/api"
	"studentportal/internal/auth"
	"studentportal/internal/diag"
	"studentportal/internal/validation"
)

// AccountAPI is the backend's change-password flow plus logout.
type AccountAPI interface {
	SendVerificationCode(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, code string) error
	ChangePassword(ctx context.Context, req api.ChangePasswordRequest) error
	Logout(ctx context.Context) error
}

// AccountHandler serves the account page: the profile and the change
// password wizard (send code, verify code, change password).
type AccountHandler struct {
	pages
	api AccountAPI
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(client AccountAPI, tokens TokenClearer, templates *template.Template, middleware *Middleware, reporter *diag.Reporter) *AccountHandler {
	return &AccountHandler{
		pages: pages{
			templates:  templates,
			middleware: middleware,
			reporter:   reporter,
			tokens:     tokens,
		},
		api: client,
	}
}

func (h *AccountHandler) accountData(r *http.Request) AccountViewData {
	page := h.page(r, "Account")
	data := AccountViewData{
		PageData: page,
		Profile:  page.User,
		Step:     1,
	}
	if page.User != nil {
		data.IsGoogleAccount = page.User.IsGoogleAccount
	}
	return data
}

// ShowAccount renders the profile and the first wizard step.
func (h *AccountHandler) ShowAccount(w http.ResponseWriter, r *http.Request) {
	h.render(w, "account.tmpl", http.StatusOK, h.accountData(r))
}

// ChangePassword handles a submitted wizard step.
func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	data := h.accountData(r)
	if data.Profile == nil {
		http.Redirect(w, r, auth.RequireAuth.RedirectURL(r), http.StatusSeeOther)
		return
	}
	if data.IsGoogleAccount {
		h.render(w, "account.tmpl", http.StatusOK, data)
		return
	}

	ctx := r.Context()
	data.Code = strings.TrimSpace(r.FormValue("code"))

	var err error
	switch r.FormValue("step") {
	case "2":
		data.Step = 2
		if err = validation.ValidateCode(data.Code); err != nil {
			data.Error = err.Error()
			break
		}
		if err = h.api.VerifyCode(ctx, data.Code); err == nil {
			data.Step = 3
			data.Success = MsgCodeVerified
		}

	case "3":
		data.Step = 3
		oldPassword := r.FormValue("old_password")
		newPassword := r.FormValue("new_password")
		if err = validation.ValidatePasswordChange(oldPassword, newPassword, r.FormValue("confirm_password")); err != nil {
			data.Error = err.Error()
			break
		}
		err = h.api.ChangePassword(ctx, api.ChangePasswordRequest{
			VerificationCode: data.Code,
			OldPassword:      oldPassword,
			NewPassword:      newPassword,
		})
		if err == nil {
			h.finishChange(w, r, data)
			return
		}

	default:
		if err = h.api.SendVerificationCode(ctx, data.Profile.Email); err == nil {
			data.Step = 2
			data.Success = MsgCodeSent
		}
	}

	if err != nil && data.Error == "" {
		if h.sessionExpired(w, r, err, auth.RequireAuth) {
			return
		}
		h.showError(r, &data.PageData, err, MsgAccountFailed)
	}
	h.render(w, "account.tmpl", http.StatusOK, data)
}

// finishChange logs the visitor out after a password change and shows the
// confirmation before returning to the login page.
func (h *AccountHandler) finishChange(w http.ResponseWriter, r *http.Request, data AccountViewData) {
	if err := h.api.Logout(r.Context()); err != nil {
		h.reporter.Warn("Logout after password change failed", err)
	}
	if s := auth.SessionFromContext(r.Context()); s != nil {
		s.Logout()
	}

	data.User = nil
	data.Done = true
	data.Success = MsgPasswordChanged
	data.RefreshURL = "/"
	data.RefreshAfter = 3
	h.render(w, "account.tmpl", http.StatusOK, data)
}
