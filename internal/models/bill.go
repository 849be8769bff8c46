package models

// Payment statuses reported on a bill
const (
	PaymentPending = "pending"
	PaymentPartial = "partial"
	PaymentPaid    = "paid"
	PaymentOverdue = "overdue"
)

// BillingItem is a line item defined by a billing template
type BillingItem struct {
	ID              int64  `json:"id"`
	BillingTemplate int64  `json:"billing_template"`
	ItemName        string `json:"item_name"`
	Category        string `json:"category"`
	Amount          Amount `json:"amount"`
	Description     string `json:"description"`
	CreatedDate     string `json:"created_date"`
	CreatedBy       string `json:"created_by"`
}

// BillingTemplate groups the items billed to a class for one term
type BillingTemplate struct {
	ID           int64         `json:"id"`
	AcademicYear string        `json:"academic_year"`
	ClassName    string        `json:"class_name"`
	Term         string        `json:"term"`
	CreatedDate  string        `json:"created_date"`
	CreatedBy    string        `json:"created_by"`
	DueDate      string        `json:"due_date"`
	BillingItems []BillingItem `json:"billing_items"`
}

// CustomCharge is an ad-hoc line added to a single bill
type CustomCharge struct {
	ID          int64  `json:"id,omitempty"`
	ChargeName  string `json:"charge_name"`
	Description string `json:"description"`
	Amount      Amount `json:"amount"`
	CreatedDate string `json:"created_date,omitempty"`
}

// PaymentReceipt records a payment made against a bill
type PaymentReceipt struct {
	ID            int64  `json:"id"`
	ReceiptNumber string `json:"receipt_number"`
	PaymentMethod string `json:"payment_method"`
	PaymentDate   string `json:"payment_date"`
	AmountPaid    Amount `json:"amount_paid"`
	Notes         string `json:"notes"`
}

// BillLog is an audit entry for a change to a bill
type BillLog struct {
	ID            int64  `json:"id"`
	FieldName     string `json:"field_name"`
	OldValue      string `json:"old_value"`
	NewValue      string `json:"new_value"`
	UserFirstName string `json:"user_first_name"`
	UserLastName  string `json:"user_last_name"`
	UserEmail     string `json:"user_email"`
	Timestamp     string `json:"timestamp"`
}

// Bill is a student's bill as projected by the backend
type Bill struct {
	ID                 int64            `json:"id"`
	Student            string           `json:"student"`
	BillingTemplate    BillingTemplate  `json:"billing_template"`
	BillNumber         string           `json:"bill_number"`
	FirstName          string           `json:"first_name"`
	LastName           string           `json:"last_name"`
	PreviousArrears    Amount           `json:"previous_arrears"`
	DiscountAmount     Amount           `json:"discount_amount"`
	DiscountReason     string           `json:"discount_reason"`
	DiscountApprovedBy string           `json:"discount_approved_by"`
	Status             string           `json:"status"`
	PaymentStatus      string           `json:"payment_status"`
	GeneratedDate      string           `json:"generated_date"`
	ScheduledDate      string           `json:"scheduled_date"`
	DueDate            string           `json:"due_date"`
	CreatedDate        string           `json:"created_date"`
	CreatedBy          string           `json:"created_by"`
	TotalAmountDue     Amount           `json:"total_amount_due"`
	TotalPaid          Amount           `json:"total_paid"`
	Notes              string           `json:"notes"`
	BalanceDue         Amount           `json:"balance_due"`
	IsOverdue          bool             `json:"is_overdue"`
	CustomCharges      []CustomCharge   `json:"custom_charges"`
	PaymentReceipts    []PaymentReceipt `json:"payment_receipts"`
	Logs               []BillLog        `json:"logs"`
	CurrentBillBalance Amount           `json:"current_bill_balance"`
	TotalOutstanding   Amount           `json:"total_outstanding"`
}

// BillsSummary aggregates a student's bills
type BillsSummary struct {
	TotalBills              int    `json:"total_bills"`
	TotalOutstandingBalance Amount `json:"total_outstanding_balance"`
	TotalPaid               Amount `json:"total_paid"`
	PaidBills               int    `json:"paid_bills"`
	OverdueBills            int    `json:"overdue_bills"`
}

// BillsResponse is the payload of the all-bills endpoint
type BillsResponse struct {
	Student      string       `json:"student"`
	CurrentClass string       `json:"current_class"`
	Summary      BillsSummary `json:"summary"`
	Bills        []Bill       `json:"bills"`
}
