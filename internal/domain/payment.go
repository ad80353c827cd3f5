package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is how a payment was settled.
type PaymentMethod string

const (
	MethodCheque      PaymentMethod = "CHEQUE"
	MethodTransfer    PaymentMethod = "TRANSFER"
	MethodMobileMoney PaymentMethod = "MOBILE_MONEY"
	MethodCash        PaymentMethod = "CASH"
)

// Valid reports whether m is a known method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCheque, MethodTransfer, MethodMobileMoney, MethodCash:
		return true
	}
	return false
}

// PaymentStatus is the processing state of a payment.
type PaymentStatus string

const (
	PaymentDraft     PaymentStatus = "DRAFT"
	PaymentProcessed PaymentStatus = "PROCESSED"
	PaymentCleared   PaymentStatus = "CLEARED"
	PaymentCancelled PaymentStatus = "CANCELLED"
	PaymentFailed    PaymentStatus = "FAILED"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentDraft, PaymentProcessed, PaymentCleared, PaymentCancelled, PaymentFailed:
		return true
	}
	return false
}

// Counts reports whether a payment in this status contributes to the paid total.
func (s PaymentStatus) Counts() bool {
	return s != PaymentCancelled && s != PaymentFailed
}

// Payment is a manually recorded settlement against one invoice.
type Payment struct {
	ID          string          `json:"id"`
	InvoiceID   string          `json:"invoiceId"`
	Method      PaymentMethod   `json:"method"`
	Reference   *string         `json:"reference,omitempty"`
	PaymentDate time.Time       `json:"paymentDate"`
	Amount      decimal.Decimal `json:"amount"`
	Status      PaymentStatus   `json:"status"`
	CreatedBy   string          `json:"createdBy"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// PaidTotal sums the payments that count toward an invoice.
func PaidTotal(payments []*Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		if p.Status.Counts() {
			total = total.Add(p.Amount)
		}
	}
	return total
}

// DeriveInvoiceStatus recomputes the invoice status from the paid total.
// It is a pure function of (current, net, paid) so repeated calls agree.
//
//	current is DISPUTED/CLOSED -> current
//	paid == net                -> PAID
//	0 < paid < net             -> PARTIALLY_PAID
//	paid == 0                  -> APPROVED_FOR_PAYMENT if current was ledger-owned
//	otherwise                  -> current
//
// The status an invoice had before its first payment is not kept, so an
// invoice whose payments are all cancelled or failed lands on
// APPROVED_FOR_PAYMENT even if it was SUBMITTED or VERIFIED before.
func DeriveInvoiceStatus(current InvoiceStatus, net, paid decimal.Decimal) InvoiceStatus {
	switch {
	case current.Held():
		return current
	case paid.IsPositive() && paid.Equal(net):
		return InvoicePaid
	case paid.IsPositive() && paid.LessThan(net):
		return InvoicePartiallyPaid
	case paid.IsZero() && current.LedgerOwned():
		return InvoiceApprovedForPayment
	default:
		return current
	}
}
