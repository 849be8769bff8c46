package handlers

import (
	"context"
	"errors"
	"html/template"
	"mime/multipart"
	"net/http"
	"strings"

	"studentportal/internal/diag"
	"studentportal/internal/models"
	"studentportal/internal/validation"
)

// TicketAPI submits support tickets.
type TicketAPI interface {
	SubmitTicket(ctx context.Context, t models.Ticket) error
}

// TicketHandler serves the support ticket form.
type TicketHandler struct {
	pages
	api           TicketAPI
	uploadMaxSize int64
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(client TicketAPI, uploadMaxSize int64, templates *template.Template, middleware *Middleware, reporter *diag.Reporter) *TicketHandler {
	return &TicketHandler{
		pages: pages{
			templates:  templates,
			middleware: middleware,
			reporter:   reporter,
		},
		api:           client,
		uploadMaxSize: uploadMaxSize,
	}
}

func (h *TicketHandler) supportData(r *http.Request) SupportViewData {
	return SupportViewData{
		PageData: h.page(r, "Support"),
		Form: validation.TicketForm{
			Section:  models.SectionAuthentication,
			Severity: models.SeverityLow,
		},
		Sections:   ticketSections,
		Severities: ticketSeverities,
	}
}

// ShowSupport renders an empty ticket form.
func (h *TicketHandler) ShowSupport(w http.ResponseWriter, r *http.Request) {
	h.render(w, "support.tmpl", http.StatusOK, h.supportData(r))
}

// SubmitTicket validates the form and sends it with its screenshot. Nothing
// is sent while any required field is missing.
func (h *TicketHandler) SubmitTicket(w http.ResponseWriter, r *http.Request) {
	if r.MultipartForm == nil {
		if err := r.ParseMultipartForm(h.uploadMaxSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			h.fail(w, r, http.StatusBadRequest, ErrInvalidFormData, "Error parsing ticket form", err)
			return
		}
	}

	data := h.supportData(r)
	data.Form.FullName = strings.TrimSpace(r.FormValue("full_name"))
	data.Form.Email = strings.TrimSpace(r.FormValue("email"))
	data.Form.PhoneNumber = strings.TrimSpace(r.FormValue("phone_number"))
	data.Form.Description = strings.TrimSpace(r.FormValue("description"))
	if section := r.FormValue("section"); section != "" {
		data.Form.Section = section
	}
	if severity := r.FormValue("severity"); severity != "" {
		data.Form.Severity = severity
	}

	file, header, err := r.FormFile("screenshot")
	switch {
	case err == nil:
		defer file.Close()
		data.Form.HasScreenshot = true
	case !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart):
		h.fail(w, r, http.StatusBadRequest, ErrInvalidFormData, "Error reading screenshot", err)
		return
	}

	if errs := validation.ValidateTicket(data.Form); errs != nil {
		data.FieldErrors = errs
		h.render(w, "support.tmpl", http.StatusOK, data)
		return
	}

	ticket := models.Ticket{
		FullName:    data.Form.FullName,
		Email:       data.Form.Email,
		PhoneNumber: data.Form.PhoneNumber,
		Section:     data.Form.Section,
		Severity:    data.Form.Severity,
		Description: data.Form.Description,
		Screenshot:  screenshotFrom(file, header),
	}

	if err := h.api.SubmitTicket(r.Context(), ticket); err != nil {
		h.reporter.Error(r, "Error submitting ticket", err)
		data.Error = MsgTicketFailed
		h.render(w, "support.tmpl", http.StatusOK, data)
		return
	}

	submitted := h.supportData(r)
	submitted.Submitted = true
	h.render(w, "support.tmpl", http.StatusOK, submitted)
}

func screenshotFrom(file multipart.File, header *multipart.FileHeader) *models.Screenshot {
	if file == nil || header == nil {
		return nil
	}
	return &models.Screenshot{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	}
}
