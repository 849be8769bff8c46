package handlers

import (
	"studentportal/internal/billing"
	"studentportal/internal/models"
	"studentportal/internal/validation"
)

// PageData is shared by every page. Error and Success feed the dismissible
// banner; RetryURL adds a retry link for transient failures.
type PageData struct {
	Title        string
	User         *models.User
	CSRFToken    string
	Error        string
	RetryURL     string
	Success      string
	RefreshURL   string
	RefreshAfter int
}

// Option is a select or radio choice.
type Option struct {
	Value string
	Label string
}

type LoginViewData struct {
	PageData
	Method      string
	Email       string
	IndexNumber string
	Next        string
	GoogleURL   string
	Welcome     *models.User
	FieldErrors validation.Errors
}

type ForgotPasswordViewData struct {
	PageData
	Step        int
	Email       string
	Code        string
	Done        bool
	FieldErrors validation.Errors
}

type AccountViewData struct {
	PageData
	Profile         *models.User
	IsGoogleAccount bool
	Step            int
	Code            string
	Done            bool
}

type SupportViewData struct {
	PageData
	Form        validation.TicketForm
	Sections    []Option
	Severities  []Option
	Submitted   bool
	FieldErrors validation.Errors
}

type PortalViewData struct {
	PageData
	Loaded       bool
	Student      string
	CurrentClass string
	Summary      models.BillsSummary
	Filter       billing.Filter
	Statuses     []Option
	Terms        []string
	Classes      []string
	Cards        []billing.Card
	CurrentCount int
	AllCount     int
}

type BillDetailViewData struct {
	PageData
	Card           billing.Card
	Charges        []models.CustomCharge
	Logs           []models.BillLog
	Total          models.Amount
	ChargeForm     validation.ChargeForm
	PaymentForm    validation.PaymentForm
	PaymentMethods []Option
	FieldErrors    validation.Errors
}

var ticketSections = []Option{
	{Value: models.SectionAuthentication, Label: "Authentication"},
	{Value: models.SectionReservation, Label: "Reservation Booking"},
	{Value: models.SectionAdmissions, Label: "Admissions"},
	{Value: models.SectionOthers, Label: "Others"},
}

var ticketSeverities = []Option{
	{Value: models.SeverityLow, Label: "Low"},
	{Value: models.SeverityMedium, Label: "Medium"},
	{Value: models.SeverityHigh, Label: "High"},
	{Value: models.SeverityCritical, Label: "Critical"},
}

var billStatuses = []Option{
	{Value: billing.FilterAll, Label: "All Status"},
	{Value: models.PaymentPaid, Label: "Paid"},
	{Value: models.PaymentPending, Label: "Pending"},
	{Value: models.PaymentPartial, Label: "Partial"},
	{Value: models.PaymentOverdue, Label: "Overdue"},
}

var paymentMethods = []Option{
	{Value: "mobile_money", Label: "Mobile Money"},
	{Value: "card", Label: "Card"},
	{Value: "bank_transfer", Label: "Bank Transfer"},
	{Value: "cash", Label: "Cash"},
}
