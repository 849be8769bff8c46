package handlers

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"studentportal/internal/api"
	"studentportal/internal/auth"
	"studentportal/internal/billing"
	"studentportal/internal/diag"
	"studentportal/internal/models"
	"studentportal/internal/validation"
)

// BillingAPI is the backend's student billing endpoints.
type BillingAPI interface {
	GetAllBills(ctx context.Context) (*models.BillsResponse, error)
	GetCurrentClassBills(ctx context.Context) ([]models.Bill, error)
	GetBillDetails(ctx context.Context, billID int64) (*models.Bill, error)
	GetBillLogs(ctx context.Context, billID int64) ([]models.BillLog, error)
	DownloadBillPDF(ctx context.Context, billID int64) (*api.BillPDF, error)
	MakePayment(ctx context.Context, billID int64, amount float64, method string) (*api.PaymentResult, error)
	GetCustomCharges(ctx context.Context, billID int64) ([]models.CustomCharge, error)
	AddCustomCharge(ctx context.Context, billID int64, charge models.CustomCharge) (*models.CustomCharge, error)
	UpdateCustomCharge(ctx context.Context, billID, chargeID int64, charge models.CustomCharge) (*models.CustomCharge, error)
	DeleteCustomCharge(ctx context.Context, billID, chargeID int64) error
}

// Confirmation shown after a redirect back to a bill
var billNotices = map[string]string{
	"paid":           "Payment recorded successfully",
	"charge-added":   "Custom charge added",
	"charge-updated": "Custom charge updated",
	"charge-deleted": "Custom charge deleted",
}

// PortalHandler serves the student portal: the billing dashboard, bill
// details and the results and book list pages.
type PortalHandler struct {
	pages
	api BillingAPI
	now func() time.Time
}

// NewPortalHandler creates a new portal handler
func NewPortalHandler(client BillingAPI, tokens TokenClearer, templates *template.Template, middleware *Middleware, reporter *diag.Reporter) *PortalHandler {
	return &PortalHandler{
		pages: pages{
			templates:  templates,
			middleware: middleware,
			reporter:   reporter,
			tokens:     tokens,
		},
		api: client,
		now: time.Now,
	}
}

// Dashboard renders the billing dashboard. Both bill lists are fetched
// concurrently and the page waits for both.
func (h *PortalHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	data := PortalViewData{
		PageData: h.page(r, "Bills & Payments"),
		Filter:   billing.ParseFilter(query.Get("tab"), query.Get("status"), query.Get("term"), query.Get("class")),
		Statuses: billStatuses,
	}

	var (
		all     *models.BillsResponse
		current []models.Bill
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		all, err = h.api.GetAllBills(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		current, err = h.api.GetCurrentClassBills(ctx)
		return err
	})

	if err := g.Wait(); err != nil {
		if h.sessionExpired(w, r, err, auth.RequireStudentAuth) {
			return
		}
		log.Printf("Error loading bills: %v", err)
		if api.Classify(err) == api.KindUnknown {
			h.reporter.Error(r, "Error loading bills", err)
		}
		data.Error = MsgBillsFailed
		data.RetryURL = r.URL.RequestURI()
		h.render(w, "portal.tmpl", http.StatusOK, data)
		return
	}

	data.Loaded = true
	data.Student = all.Student
	data.CurrentClass = all.CurrentClass
	data.Summary = all.Summary
	data.CurrentCount = len(current)
	data.AllCount = len(all.Bills)
	data.Terms = billing.AvailableTerms(current)
	data.Classes = billing.AvailableClasses(all.Bills)

	source := current
	if data.Filter.Tab == billing.TabAll {
		source = all.Bills
	}
	data.Cards = billing.Cards(data.Filter.Apply(source), h.now())

	h.render(w, "portal.tmpl", http.StatusOK, data)
}

// BillDetails renders one bill with its charges, receipts and history.
func (h *PortalHandler) BillDetails(w http.ResponseWriter, r *http.Request) {
	billID, ok := billIDFrom(w, r)
	if !ok {
		return
	}

	h.renderBill(w, r, billID, func(data *BillDetailViewData) {
		data.Success = billNotices[r.URL.Query().Get("done")]
	})
}

// renderBill fetches a bill, its custom charges and logs concurrently and
// renders the details page. adjust may add form state before rendering.
func (h *PortalHandler) renderBill(w http.ResponseWriter, r *http.Request, billID int64, adjust func(*BillDetailViewData)) {
	var (
		bill    *models.Bill
		charges []models.CustomCharge
		logs    []models.BillLog
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		bill, err = h.api.GetBillDetails(ctx, billID)
		return err
	})
	g.Go(func() error {
		var err error
		charges, err = h.api.GetCustomCharges(ctx, billID)
		return err
	})
	g.Go(func() error {
		var err error
		logs, err = h.api.GetBillLogs(ctx, billID)
		return err
	})

	if err := g.Wait(); err != nil {
		h.billError(w, r, err)
		return
	}

	bill.CustomCharges = charges
	data := BillDetailViewData{
		PageData:       h.page(r, "Bill "+bill.BillNumber),
		Card:           billing.NewCard(*bill, h.now()),
		Charges:        charges,
		Logs:           logs,
		Total:          billing.TotalBillAmount(bill.BillingTemplate.BillingItems, charges, bill.PreviousArrears),
		PaymentMethods: paymentMethods,
		PaymentForm:    validation.PaymentForm{PaymentMethod: paymentMethods[0].Value},
	}
	if adjust != nil {
		adjust(&data)
	}
	h.render(w, "bill_detail.tmpl", http.StatusOK, data)
}

func (h *PortalHandler) billError(w http.ResponseWriter, r *http.Request, err error) {
	if h.sessionExpired(w, r, err, auth.RequireStudentAuth) {
		return
	}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		h.fail(w, r, http.StatusNotFound, ErrBillNotFound, "", nil)
		return
	}
	if api.Classify(err) == api.KindUnknown {
		h.reporter.Error(r, "Error loading bill", err)
	}
	h.fail(w, r, http.StatusBadGateway, api.UserMessage(err), "Error loading bill", err)
}

// DownloadBill streams the bill PDF from the backend.
func (h *PortalHandler) DownloadBill(w http.ResponseWriter, r *http.Request) {
	billID, ok := billIDFrom(w, r)
	if !ok {
		return
	}

	pdf, err := h.api.DownloadBillPDF(r.Context(), billID)
	if err != nil {
		h.billError(w, r, err)
		return
	}
	defer pdf.Body.Close()

	w.Header().Set("Content-Type", pdf.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", pdf.Filename))
	if _, err := io.Copy(w, pdf.Body); err != nil {
		log.Printf("Error streaming bill %d: %v", billID, err)
	}
}

// MakePayment records a payment and returns to the bill.
func (h *PortalHandler) MakePayment(w http.ResponseWriter, r *http.Request) {
	billID, ok := billIDFrom(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	form := validation.PaymentForm{
		Amount:        strings.TrimSpace(r.FormValue("amount")),
		PaymentMethod: r.FormValue("payment_method"),
	}
	amount, errs := validation.ValidatePayment(form)
	if errs != nil {
		if msg, ok := errs["amount"]; ok {
			delete(errs, "amount")
			errs["payment_amount"] = msg
		}
		h.renderBill(w, r, billID, func(data *BillDetailViewData) {
			data.PaymentForm = form
			data.FieldErrors = errs
		})
		return
	}

	result, err := h.api.MakePayment(r.Context(), billID, amount, form.PaymentMethod)
	if err != nil {
		h.mutationFailed(w, r, billID, err, func(data *BillDetailViewData) {
			data.PaymentForm = form
		})
		return
	}
	if result != nil && result.Message != "" {
		log.Printf("Payment on bill %d: %s", billID, result.Message)
	}
	h.backToBill(w, r, billID, "paid")
}

// AddCharge adds a custom charge to a bill.
func (h *PortalHandler) AddCharge(w http.ResponseWriter, r *http.Request) {
	billID, ok := billIDFrom(w, r)
	if !ok {
		return
	}

	form, amount, errs, ok := h.chargeForm(w, r)
	if !ok {
		return
	}
	if errs != nil {
		h.renderBill(w, r, billID, func(data *BillDetailViewData) {
			data.ChargeForm = form
			data.FieldErrors = errs
		})
		return
	}

	charge := models.CustomCharge{ChargeName: form.ChargeName, Description: form.Description, Amount: models.Amount(amount)}
	if _, err := h.api.AddCustomCharge(r.Context(), billID, charge); err != nil {
		h.mutationFailed(w, r, billID, err, func(data *BillDetailViewData) {
			data.ChargeForm = form
		})
		return
	}
	h.backToBill(w, r, billID, "charge-added")
}

// UpdateCharge edits a custom charge.
func (h *PortalHandler) UpdateCharge(w http.ResponseWriter, r *http.Request) {
	billID, ok := billIDFrom(w, r)
	if !ok {
		return
	}
	chargeID, err := strconv.ParseInt(r.PathValue("chargeId"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	form, amount, errs, ok := h.chargeForm(w, r)
	if !ok {
		return
	}
	if errs != nil {
		h.renderBill(w, r, billID, func(data *BillDetailViewData) {
			data.Error = errs.Error()
		})
		return
	}

	charge := models.CustomCharge{ChargeName: form.ChargeName, Description: form.Description, Amount: models.Amount(amount)}
	if _, err := h.api.UpdateCustomCharge(r.Context(), billID, chargeID, charge); err != nil {
		h.mutationFailed(w, r, billID, err, nil)
		return
	}
	h.backToBill(w, r, billID, "charge-updated")
}

// DeleteCharge removes a custom charge.
func (h *PortalHandler) DeleteCharge(w http.ResponseWriter, r *http.Request) {
	billID, ok := billIDFrom(w, r)
	if !ok {
		return
	}
	chargeID, err := strconv.ParseInt(r.PathValue("chargeId"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if err := h.api.DeleteCustomCharge(r.Context(), billID, chargeID); err != nil {
		h.mutationFailed(w, r, billID, err, nil)
		return
	}
	h.backToBill(w, r, billID, "charge-deleted")
}

// Results renders the results page.
func (h *PortalHandler) Results(w http.ResponseWriter, r *http.Request) {
	h.render(w, "results.tmpl", http.StatusOK, h.page(r, "Results"))
}

// Booklist renders the book list page.
func (h *PortalHandler) Booklist(w http.ResponseWriter, r *http.Request) {
	h.render(w, "booklist.tmpl", http.StatusOK, h.page(r, "Book List"))
}

func (h *PortalHandler) chargeForm(w http.ResponseWriter, r *http.Request) (validation.ChargeForm, float64, validation.Errors, bool) {
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return validation.ChargeForm{}, 0, nil, false
	}
	form := validation.ChargeForm{
		ChargeName:  strings.TrimSpace(r.FormValue("charge_name")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Amount:      strings.TrimSpace(r.FormValue("amount")),
	}
	amount, errs := validation.ValidateCharge(form)
	return form, amount, errs, true
}

// mutationFailed shows a failed write on the freshly fetched bill.
func (h *PortalHandler) mutationFailed(w http.ResponseWriter, r *http.Request, billID int64, err error, adjust func(*BillDetailViewData)) {
	if h.sessionExpired(w, r, err, auth.RequireStudentAuth) {
		return
	}
	h.renderBill(w, r, billID, func(data *BillDetailViewData) {
		h.showError(r, &data.PageData, err, MsgBillingFailed)
		data.RetryURL = ""
		if adjust != nil {
			adjust(data)
		}
	})
}

func (h *PortalHandler) backToBill(w http.ResponseWriter, r *http.Request, billID int64, notice string) {
	http.Redirect(w, r, fmt.Sprintf("/student-portal/bills/%d?done=%s", billID, notice), http.StatusSeeOther)
}

func billIDFrom(w http.ResponseWriter, r *http.Request) (int64, bool) {
	billID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || billID <= 0 {
		http.NotFound(w, r)
		return 0, false
	}
	return billID, true
}
