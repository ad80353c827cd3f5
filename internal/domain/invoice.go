package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is the billing state of an Invoice.
type InvoiceStatus string

const (
	InvoiceDraft              InvoiceStatus = "DRAFT"
	InvoiceSubmitted          InvoiceStatus = "SUBMITTED"
	InvoiceVerified           InvoiceStatus = "VERIFIED"
	InvoiceApprovedForPayment InvoiceStatus = "APPROVED_FOR_PAYMENT"
	InvoiceDisputed           InvoiceStatus = "DISPUTED"
	InvoicePartiallyPaid      InvoiceStatus = "PARTIALLY_PAID"
	InvoicePaid               InvoiceStatus = "PAID"
	InvoiceClosed             InvoiceStatus = "CLOSED"
)

// InvoiceStatuses lists every invoice status.
var InvoiceStatuses = []InvoiceStatus{
	InvoiceDraft, InvoiceSubmitted, InvoiceVerified, InvoiceApprovedForPayment,
	InvoiceDisputed, InvoicePartiallyPaid, InvoicePaid, InvoiceClosed,
}

// Valid reports whether s is a known invoice status.
func (s InvoiceStatus) Valid() bool {
	for _, known := range InvoiceStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// LedgerOwned reports whether the status is derived from payments only.
func (s InvoiceStatus) LedgerOwned() bool {
	return s == InvoicePaid || s == InvoicePartiallyPaid
}

// Held reports whether finance has parked the invoice. Payment
// recomputation keeps a held status instead of deriving one.
func (s InvoiceStatus) Held() bool {
	return s == InvoiceDisputed || s == InvoiceClosed
}

// AcceptsPayments reports whether a new payment may be recorded.
func (s InvoiceStatus) AcceptsPayments() bool {
	switch s {
	case InvoiceSubmitted, InvoiceVerified, InvoiceApprovedForPayment, InvoicePartiallyPaid:
		return true
	}
	return false
}

// PayableInvoiceStatuses are the statuses AcceptsPayments allows.
var PayableInvoiceStatuses = []InvoiceStatus{
	InvoiceSubmitted, InvoiceVerified, InvoiceApprovedForPayment, InvoicePartiallyPaid,
}

// Invoice is a billing document derived from one approved request.
type Invoice struct {
	ID          string          `json:"id"`
	RequestID   string          `json:"requestId"`
	InvoiceDate time.Time       `json:"invoiceDate"`
	DueDate     time.Time       `json:"dueDate"`
	GrossAmount decimal.Decimal `json:"grossAmount"`
	TaxAmount   decimal.Decimal `json:"taxAmount"`
	NetAmount   decimal.Decimal `json:"netAmount"`
	Status      InvoiceStatus   `json:"status"`
	CreatedBy   string          `json:"createdBy"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// SetAmounts sets gross and tax and recomputes the net amount.
func (i *Invoice) SetAmounts(gross, tax decimal.Decimal) {
	i.GrossAmount = gross
	i.TaxAmount = tax
	i.NetAmount = NetAmount(gross, tax)
}

// NetAmount is the only way a net amount is produced.
func NetAmount(gross, tax decimal.Decimal) decimal.Decimal {
	return gross.Add(tax)
}

// InvoiceView is an invoice with its ledger position.
type InvoiceView struct {
	Invoice
	AmountPaid decimal.Decimal `json:"amountPaid"`
	BalanceDue decimal.Decimal `json:"balanceDue"`
}

// NewInvoiceView derives the ledger position of inv from its payments.
func NewInvoiceView(inv *Invoice, payments []*Payment) *InvoiceView {
	paid := PaidTotal(payments)
	return &InvoiceView{
		Invoice:    *inv,
		AmountPaid: paid,
		BalanceDue: inv.NetAmount.Sub(paid),
	}
}
