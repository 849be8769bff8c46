// Package templates holds the portal's embedded html/template files.
package templates

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"strings"

	"studentportal/internal/billing"
	"studentportal/internal/models"
)

//go:embed *.tmpl
var files embed.FS

//go:embed static
var staticFiles embed.FS

// Load parses every embedded template with the portal's helper functions.
func Load() (*template.Template, error) {
	tmpl, err := template.New("").Funcs(FuncMap()).ParseFS(files, "*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return tmpl, nil
}

// Static returns the stylesheet and other assets served under /static/.
func Static() fs.FS {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// FuncMap returns the functions available to templates.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"formatCurrency":  billing.FormatCurrency,
		"formatDate":      billing.FormatDate,
		"formatShortDate": billing.FormatShortDate,
		"termDisplay":     billing.TermDisplay,
		"statusLabel":     billing.StatusLabel,
		"statusClass":     billing.StatusClass,
		"categoryClass":   billing.CategoryClass,
		"chargeClass":     billing.ChargeClass,
		"chargeLogText":   billing.ChargeLogText,
		"negative": func(a models.Amount) bool {
			return a < 0
		},
		"abs": func(a models.Amount) models.Amount {
			if a < 0 {
				return -a
			}
			return a
		},
		"add": func(a, b int) int {
			return a + b
		},
		"title": func(s string) string {
			if s == "" {
				return s
			}
			return strings.ToUpper(s[:1]) + s[1:]
		},
		"humanize": func(s string) string {
			return strings.ReplaceAll(s, "_", " ")
		},
	}
}
