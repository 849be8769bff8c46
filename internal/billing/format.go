package billing

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"studentportal/internal/models"
)

// FormatCurrency renders an amount in Ghana cedis, e.g. "GH₵1,234.50".
func FormatCurrency(amount models.Amount) string {
	v := float64(amount)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}

	s := strconv.FormatFloat(math.Round(v*100)/100, 'f', 2, 64)
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + "GH₵" + b.String() + "." + frac
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate reads the date formats the backend emits.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDate renders a backend date as "2 January 2026". Unparseable input
// is returned unchanged.
func FormatDate(s string) string {
	t, ok := ParseDate(s)
	if !ok {
		return s
	}
	return t.Format("2 January 2006")
}

// FormatShortDate renders a backend date as "2 Jan 2026".
func FormatShortDate(s string) string {
	t, ok := ParseDate(s)
	if !ok {
		return s
	}
	return t.Format("2 Jan 2006")
}

// TermDisplay names a term for display.
func TermDisplay(term string) string {
	switch strings.ToLower(term) {
	case "first":
		return "First Term"
	case "second":
		return "Second Term"
	case "third":
		return "Third Term"
	}
	return term
}

// StatusLabel capitalises a payment status.
func StatusLabel(status string) string {
	if status == "" {
		return ""
	}
	return strings.ToUpper(status[:1]) + status[1:]
}

// StatusClass is the CSS class for a payment status badge.
func StatusClass(status string) string {
	switch strings.ToLower(status) {
	case models.PaymentPaid:
		return "status-paid"
	case models.PaymentPartial:
		return "status-partial"
	case models.PaymentOverdue:
		return "status-overdue"
	}
	return "status-pending"
}

var categoryClasses = map[string]string{
	"TUITION":       "category-tuition",
	"TUTION":        "category-tuition",
	"ELECTRIC BILL": "category-utilities",
	"FACILITIES":    "category-facilities",
	"ACTIVITIES":    "category-activities",
	"LIBRARY":       "category-library",
	"TRANSPORT":     "category-transport",
	"MEALS":         "category-meals",
	"UNIFORM":       "category-uniform",
	"BOOKS":         "category-books",
}

// CategoryClass is the CSS class for a billing item category.
func CategoryClass(category string) string {
	if c, ok := categoryClasses[strings.ToUpper(strings.TrimSpace(category))]; ok {
		return c
	}
	return "category-other"
}

// ChargeClass cycles through badge classes for custom charges.
func ChargeClass(index int) string {
	return fmt.Sprintf("charge-%d", index%5)
}

// ChargeLogText describes a bill log entry.
func ChargeLogText(l models.BillLog) string {
	switch l.FieldName {
	case "custom_charge_added":
		return "Added custom charge: " + l.NewValue
	case "custom_charge_updated":
		return "Updated custom charge: " + l.OldValue + " → " + l.NewValue
	case "custom_charge_removed":
		return "Removed custom charge: " + l.OldValue
	}
	return l.FieldName + ": " + l.OldValue + " → " + l.NewValue
}
