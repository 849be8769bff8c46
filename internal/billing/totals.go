package billing

import (
	"math"
	"time"

	"studentportal/internal/models"
)

// Due date states
const (
	DueOverdue  = "overdue"
	DueSoon     = "due-soon"
	DueUpcoming = "upcoming"
)

const (
	dueSoonDays = 7
	recentDays  = 30
)

// ItemsTotal sums template item amounts.
func ItemsTotal(items []models.BillingItem) models.Amount {
	var total models.Amount
	for _, it := range items {
		total += it.Amount
	}
	return total
}

// CustomChargesTotal sums custom charge amounts.
func CustomChargesTotal(charges []models.CustomCharge) models.Amount {
	var total models.Amount
	for _, c := range charges {
		total += c.Amount
	}
	return total
}

// TotalBillAmount is items plus custom charges plus previous arrears.
func TotalBillAmount(items []models.BillingItem, charges []models.CustomCharge, previousArrears models.Amount) models.Amount {
	return ItemsTotal(items) + CustomChargesTotal(charges) + previousArrears
}

// DaysUntilDue counts whole days from now to the due date, rounding up.
// Negative values are days past due.
func DaysUntilDue(dueDate string, now time.Time) (int, bool) {
	due, ok := ParseDate(dueDate)
	if !ok {
		return 0, false
	}
	return int(math.Ceil(due.Sub(now).Hours() / 24)), true
}

// DueDateStatus buckets a due date as overdue, due within a week or
// upcoming. Unparseable dates count as upcoming.
func DueDateStatus(dueDate string, now time.Time) string {
	days, ok := DaysUntilDue(dueDate, now)
	switch {
	case !ok:
		return DueUpcoming
	case days < 0:
		return DueOverdue
	case days <= dueSoonDays:
		return DueSoon
	}
	return DueUpcoming
}

// IsRecent reports whether date falls within the last 30 days.
func IsRecent(date string, now time.Time) bool {
	t, ok := ParseDate(date)
	if !ok {
		return false
	}
	return t.After(now.AddDate(0, 0, -recentDays))
}
