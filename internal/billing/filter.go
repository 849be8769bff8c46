// Package billing derives the dashboard's views from bills already fetched
// from the backend. Nothing here calls the network.
package billing

import (
	"strings"

	"studentportal/internal/models"
)

// Dashboard tabs
const (
	TabCurrent = "current"
	TabAll     = "all"
)

// FilterAll disables a filter.
const FilterAll = "all"

// Filter is the dashboard's tab and filter selection.
type Filter struct {
	Tab    string
	Status string
	Term   string
	Class  string
}

// ParseFilter normalises raw query values. Unknown tabs fall back to the
// current-class tab and empty filters to "all".
func ParseFilter(tab, status, term, class string) Filter {
	f := Filter{
		Tab:    strings.ToLower(strings.TrimSpace(tab)),
		Status: strings.ToLower(strings.TrimSpace(status)),
		Term:   strings.TrimSpace(term),
		Class:  strings.TrimSpace(class),
	}
	if f.Tab != TabAll {
		f.Tab = TabCurrent
	}
	if f.Status == "" {
		f.Status = FilterAll
	}
	if f.Term == "" {
		f.Term = FilterAll
	}
	if f.Class == "" {
		f.Class = FilterAll
	}
	return f
}

// Apply returns the bills matching f, in their original order. The term
// filter only applies on the current tab and the class filter only on the
// all tab.
func (f Filter) Apply(bills []models.Bill) []models.Bill {
	out := make([]models.Bill, 0, len(bills))
	for _, b := range bills {
		if f.Status != "" && f.Status != FilterAll && b.PaymentStatus != f.Status {
			continue
		}
		if f.Tab == TabCurrent && f.Term != "" && f.Term != FilterAll && b.BillingTemplate.Term != f.Term {
			continue
		}
		if f.Tab == TabAll && f.Class != "" && f.Class != FilterAll && b.BillingTemplate.ClassName != f.Class {
			continue
		}
		out = append(out, b)
	}
	return out
}

// AvailableTerms lists distinct terms in first-seen order.
func AvailableTerms(bills []models.Bill) []string {
	return distinct(bills, func(b models.Bill) string { return b.BillingTemplate.Term })
}

// AvailableClasses lists distinct class names in first-seen order.
func AvailableClasses(bills []models.Bill) []string {
	return distinct(bills, func(b models.Bill) string { return b.BillingTemplate.ClassName })
}

func distinct(bills []models.Bill, key func(models.Bill) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, b := range bills {
		k := key(b)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
