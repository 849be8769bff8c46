package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"studentportal/internal/models"
)

// SubmitTicket posts a support ticket with its screenshot as multipart form
// data.
func (c *Client) SubmitTicket(ctx context.Context, t models.Ticket) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{"full_name", t.FullName},
		{"email", t.Email},
		{"phone_number", t.PhoneNumber},
		{"section", t.Section},
		{"severity", t.Severity},
		{"description", t.Description},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := w.WriteField(f.name, f.value); err != nil {
			return fmt.Errorf("writing %s: %w", f.name, err)
		}
	}

	if t.Screenshot != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="screenshot"; filename=%q`, t.Screenshot.Filename))
		contentType := t.Screenshot.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)

		part, err := w.CreatePart(header)
		if err != nil {
			return fmt.Errorf("creating screenshot part: %w", err)
		}
		if _, err := io.Copy(part, t.Screenshot.Body); err != nil {
			return fmt.Errorf("copying screenshot: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("closing multipart body: %w", err)
	}

	resp, err := c.send(ctx, http.MethodPost, "/tickets", w.FormDataContentType(), &buf)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeBody(resp.Body, nil)
}
