package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/pesio-ai/be-catering-requests/internal/domain"
	"github.com/pesio-ai/be-catering-requests/internal/service"
)

type createInvoiceBody struct {
	RequestID   string          `json:"requestId"`
	InvoiceDate string          `json:"invoiceDate"`
	DueDate     string          `json:"dueDate"`
	GrossAmount decimal.Decimal `json:"grossAmount"`
	TaxAmount   decimal.Decimal `json:"taxAmount"`
}

type updateInvoiceBody struct {
	InvoiceDate *string               `json:"invoiceDate"`
	DueDate     *string               `json:"dueDate"`
	GrossAmount *decimal.Decimal      `json:"grossAmount"`
	TaxAmount   *decimal.Decimal      `json:"taxAmount"`
	Status      *domain.InvoiceStatus `json:"status"`
}

type recordPaymentBody struct {
	InvoiceID   string               `json:"invoiceId"`
	Amount      decimal.Decimal      `json:"amount"`
	Method      domain.PaymentMethod `json:"method"`
	PaymentDate string               `json:"paymentDate"`
	Reference   *string              `json:"reference"`
	Status      domain.PaymentStatus `json:"status"`
}

type updatePaymentBody struct {
	Amount      *decimal.Decimal      `json:"amount"`
	Method      *domain.PaymentMethod `json:"method"`
	Status      *domain.PaymentStatus `json:"status"`
	PaymentDate *string               `json:"paymentDate"`
	Reference   *string               `json:"reference"`
}

// CreateInvoice handles POST /api/v1/invoices
func (h *HTTPHandler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var body createInvoiceBody
	if err := decode(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	invoiceDate, err := parseDate("invoiceDate", body.InvoiceDate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dueDate, err := parseDate("dueDate", body.DueDate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	invoice, err := h.svc.Invoices.CreateInvoice(r.Context(), actorFrom(r), &service.CreateInvoiceRequest{
		RequestID:   body.RequestID,
		InvoiceDate: invoiceDate,
		DueDate:     dueDate,
		GrossAmount: body.GrossAmount,
		TaxAmount:   body.TaxAmount,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, invoice)
}

// UpdateInvoice handles PATCH /api/v1/invoices/{id}
func (h *HTTPHandler) UpdateInvoice(w http.ResponseWriter, r *http.Request) {
	var body updateInvoiceBody
	if err := decode(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	invoiceDate, err := parseOptionalDate("invoiceDate", body.InvoiceDate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dueDate, err := parseOptionalDate("dueDate", body.DueDate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	invoice, err := h.svc.Invoices.UpdateInvoice(r.Context(), actorFrom(r), chi.URLParam(r, "id"), &service.UpdateInvoiceRequest{
		InvoiceDate: invoiceDate,
		DueDate:     dueDate,
		GrossAmount: body.GrossAmount,
		TaxAmount:   body.TaxAmount,
		Status:      body.Status,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, invoice)
}

// GetInvoice handles GET /api/v1/invoices/{id}
func (h *HTTPHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	invoice, err := h.svc.Invoices.GetInvoice(r.Context(), actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, invoice)
}

// ListInvoices handles GET /api/v1/invoices
func (h *HTTPHandler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pageParams(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	invoices, err := h.svc.Invoices.ListInvoices(r.Context(), actorFrom(r), &service.ListInvoicesRequest{
		RequestID: r.URL.Query().Get("request_id"),
		Status:    domain.InvoiceStatus(r.URL.Query().Get("status")),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeList(w, invoices)
}

// CreatePayment handles POST /api/v1/payments
func (h *HTTPHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var body recordPaymentBody
	if err := decode(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	paymentDate, err := parseDate("paymentDate", body.PaymentDate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	payment, err := h.svc.Payments.RecordPayment(r.Context(), actorFrom(r), &service.RecordPaymentRequest{
		InvoiceID:   body.InvoiceID,
		Amount:      body.Amount,
		Method:      body.Method,
		PaymentDate: paymentDate,
		Reference:   body.Reference,
		Status:      body.Status,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, payment)
}

// UpdatePayment handles PATCH /api/v1/payments/{id}
func (h *HTTPHandler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	var body updatePaymentBody
	if err := decode(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	paymentDate, err := parseOptionalDate("paymentDate", body.PaymentDate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	payment, err := h.svc.Payments.UpdatePayment(r.Context(), actorFrom(r), chi.URLParam(r, "id"), &service.UpdatePaymentRequest{
		Amount:      body.Amount,
		Method:      body.Method,
		Status:      body.Status,
		PaymentDate: paymentDate,
		Reference:   body.Reference,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, payment)
}

// GetPayment handles GET /api/v1/payments/{id}
func (h *HTTPHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	payment, err := h.svc.Payments.GetPayment(r.Context(), actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, payment)
}

// ListPayments handles GET /api/v1/payments
func (h *HTTPHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pageParams(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	payments, err := h.svc.Payments.ListPayments(r.Context(), actorFrom(r), &service.ListPaymentsRequest{
		InvoiceID: r.URL.Query().Get("invoice_id"),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeList(w, payments)
}

// DashboardSummary handles GET /api/v1/dashboard/summary
func (h *HTTPHandler) DashboardSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.Reports.DashboardSummary(r.Context(), actorFrom(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
