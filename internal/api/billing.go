package api

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"studentportal/internal/models"
)

// GetAllBills returns every bill for the signed-in student with a summary.
func (c *Client) GetAllBills(ctx context.Context) (*models.BillsResponse, error) {
	var resp models.BillsResponse
	if err := c.do(ctx, http.MethodGet, "/my-bills/", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetCurrentClassBills returns bills for the student's current class.
func (c *Client) GetCurrentClassBills(ctx context.Context) ([]models.Bill, error) {
	var bills []models.Bill
	if err := c.do(ctx, http.MethodGet, "/my-bills/current-class/", nil, &bills); err != nil {
		return nil, err
	}
	return bills, nil
}

// GetPreviousClassBills returns bills from earlier classes.
func (c *Client) GetPreviousClassBills(ctx context.Context) ([]models.Bill, error) {
	var bills []models.Bill
	if err := c.do(ctx, http.MethodGet, "/billing/my-bills/previous-classes/", nil, &bills); err != nil {
		return nil, err
	}
	return bills, nil
}

// GetBillDetails returns a single bill.
func (c *Client) GetBillDetails(ctx context.Context, billID int64) (*models.Bill, error) {
	var bill models.Bill
	if err := c.do(ctx, http.MethodGet, billPath(billID, ""), nil, &bill); err != nil {
		return nil, err
	}
	return &bill, nil
}

// GetBillLogs returns the audit log of a bill.
func (c *Client) GetBillLogs(ctx context.Context, billID int64) ([]models.BillLog, error) {
	var logs []models.BillLog
	if err := c.do(ctx, http.MethodGet, billPath(billID, "logs/"), nil, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// BillPDF is a downloaded bill document. The caller must close Body.
type BillPDF struct {
	Body        io.ReadCloser
	ContentType string
	Filename    string
}

// DownloadBillPDF streams the bill document.
func (c *Client) DownloadBillPDF(ctx context.Context, billID int64) (*BillPDF, error) {
	resp, err := c.send(ctx, http.MethodGet, billPath(billID, "download/"), "", nil)
	if err != nil {
		return nil, err
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/pdf"
	}
	return &BillPDF{
		Body:        resp.Body,
		ContentType: contentType,
		Filename:    fmt.Sprintf("bill-%d.pdf", billID),
	}, nil
}

type paymentRequest struct {
	Amount        models.Amount `json:"amount"`
	PaymentMethod string        `json:"payment_method"`
}

// PaymentResult is the backend's acknowledgement of a payment.
type PaymentResult struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Receipt *models.PaymentReceipt `json:"receipt"`
}

// MakePayment records a payment against a bill.
func (c *Client) MakePayment(ctx context.Context, billID int64, amount float64, method string) (*PaymentResult, error) {
	var result PaymentResult
	req := paymentRequest{Amount: models.Amount(amount), PaymentMethod: method}
	if err := c.do(ctx, http.MethodPost, billPath(billID, "payment/"), req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetCustomCharges lists the custom charges of a bill.
func (c *Client) GetCustomCharges(ctx context.Context, billID int64) ([]models.CustomCharge, error) {
	var charges []models.CustomCharge
	if err := c.do(ctx, http.MethodGet, billPath(billID, "custom-charges/"), nil, &charges); err != nil {
		return nil, err
	}
	return charges, nil
}

// AddCustomCharge adds a charge to a bill.
func (c *Client) AddCustomCharge(ctx context.Context, billID int64, charge models.CustomCharge) (*models.CustomCharge, error) {
	charge.ID = 0
	charge.CreatedDate = ""

	var created models.CustomCharge
	if err := c.do(ctx, http.MethodPost, billPath(billID, "custom-charges/"), charge, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateCustomCharge patches an existing charge.
func (c *Client) UpdateCustomCharge(ctx context.Context, billID, chargeID int64, charge models.CustomCharge) (*models.CustomCharge, error) {
	charge.ID = 0
	charge.CreatedDate = ""

	var updated models.CustomCharge
	path := billPath(billID, fmt.Sprintf("custom-charges/%d/", chargeID))
	if err := c.do(ctx, http.MethodPatch, path, charge, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteCustomCharge removes a charge from a bill.
func (c *Client) DeleteCustomCharge(ctx context.Context, billID, chargeID int64) error {
	path := billPath(billID, fmt.Sprintf("custom-charges/%d/", chargeID))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func billPath(billID int64, suffix string) string {
	return fmt.Sprintf("/billing/bills/%d/%s", billID, suffix)
}
