package billing

import (
	"time"

	"studentportal/internal/models"
)

// Card is the display projection of one bill on the dashboard.
type Card struct {
	Bill         models.Bill
	Balance      models.Amount
	AbsBalance   models.Amount
	IsOverdue    bool
	HasCredit    bool
	HasDiscount  bool
	DueStatus    string
	IsRecent     bool
	ItemCount    int
	ItemsTotal   models.Amount
	ChargesTotal models.Amount
	StatusLabel  string
	StatusClass  string
	TermLabel    string
	StudentName  string
}

// NewCard projects a bill. The balance comes from current_bill_balance;
// a bill is overdue only while it still has a positive balance.
func NewCard(b models.Bill, now time.Time) Card {
	balance := b.CurrentBillBalance
	abs := balance
	if abs < 0 {
		abs = -abs
	}
	return Card{
		Bill:         b,
		Balance:      balance,
		AbsBalance:   abs,
		IsOverdue:    b.IsOverdue && balance > 0,
		HasCredit:    balance < 0,
		HasDiscount:  b.DiscountAmount > 0,
		DueStatus:    DueDateStatus(b.DueDate, now),
		IsRecent:     IsRecent(b.GeneratedDate, now),
		ItemCount:    len(b.BillingTemplate.BillingItems),
		ItemsTotal:   ItemsTotal(b.BillingTemplate.BillingItems),
		ChargesTotal: CustomChargesTotal(b.CustomCharges),
		StatusLabel:  StatusLabel(b.PaymentStatus),
		StatusClass:  StatusClass(b.PaymentStatus),
		TermLabel:    TermDisplay(b.BillingTemplate.Term),
		StudentName:  b.FirstName + " " + b.LastName,
	}
}

// Cards projects a list of bills.
func Cards(bills []models.Bill, now time.Time) []Card {
	cards := make([]Card, 0, len(bills))
	for _, b := range bills {
		cards = append(cards, NewCard(b, now))
	}
	return cards
}
