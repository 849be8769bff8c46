package models

import "io"

// Ticket sections
const (
	SectionAuthentication = "authentication"
	SectionReservation    = "reservation"
	SectionAdmissions     = "admissions"
	SectionOthers         = "others"
)

// Ticket severities
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// TicketSections lists the selectable sections in display order.
var TicketSections = []string{SectionAuthentication, SectionReservation, SectionAdmissions, SectionOthers}

// TicketSeverities lists the selectable severities in display order.
var TicketSeverities = []string{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Screenshot is the file attached to a support ticket
type Screenshot struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// Ticket is a support request submitted to the backend
type Ticket struct {
	FullName    string
	Email       string
	PhoneNumber string
	Section     string
	Severity    string
	Description string
	Screenshot  *Screenshot
}
