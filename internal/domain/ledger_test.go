package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestNetAmount(t *testing.T) {
	inv := &Invoice{}
	inv.SetAmounts(d("1000"), d("150"))
	assert.True(t, inv.NetAmount.Equal(d("1150")))

	inv.SetAmounts(d("99.99"), d("0.01"))
	assert.True(t, inv.NetAmount.Equal(d("100")))
}

func TestPaidTotal_ExcludesCancelledAndFailed(t *testing.T) {
	payments := []*Payment{
		{Amount: d("500"), Status: PaymentProcessed},
		{Amount: d("100"), Status: PaymentCleared},
		{Amount: d("50"), Status: PaymentDraft},
		{Amount: d("300"), Status: PaymentCancelled},
		{Amount: d("200"), Status: PaymentFailed},
	}
	assert.True(t, PaidTotal(payments).Equal(d("650")))
	assert.True(t, PaidTotal(nil).IsZero())
}

func TestDeriveInvoiceStatus(t *testing.T) {
	net := d("1150")
	tests := []struct {
		name    string
		current InvoiceStatus
		paid    string
		want    InvoiceStatus
	}{
		{"fully paid", InvoiceSubmitted, "1150", InvoicePaid},
		{"partial", InvoiceVerified, "500", InvoicePartiallyPaid},
		{"paid drops to partial", InvoicePaid, "650", InvoicePartiallyPaid},
		{"all payments cancelled", InvoicePaid, "0", InvoiceApprovedForPayment},
		{"nothing paid keeps status", InvoiceVerified, "0", InvoiceVerified},
		{"disputed with no payments", InvoiceDisputed, "0", InvoiceDisputed},
		{"disputed hold survives payments", InvoiceDisputed, "500", InvoiceDisputed},
		{"closed stays closed when settled", InvoiceClosed, "1150", InvoiceClosed},
		{"cancelled payments forget submitted", InvoicePartiallyPaid, "0", InvoiceApprovedForPayment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveInvoiceStatus(tt.current, net, d(tt.paid))
			assert.Equal(t, tt.want, got)
			// Re-deriving from the result is stable.
			assert.Equal(t, got, DeriveInvoiceStatus(got, net, d(tt.paid)))
		})
	}
}

func TestInvoiceView(t *testing.T) {
	inv := &Invoice{ID: "i1"}
	inv.SetAmounts(d("1000"), d("150"))
	view := NewInvoiceView(inv, []*Payment{
		{Amount: d("500"), Status: PaymentProcessed},
		{Amount: d("100"), Status: PaymentCancelled},
	})
	assert.True(t, view.AmountPaid.Equal(d("500")))
	assert.True(t, view.BalanceDue.Equal(d("650")))
}

func TestAcceptsPayments(t *testing.T) {
	for _, s := range InvoiceStatuses {
		want := false
		for _, p := range PayableInvoiceStatuses {
			if s == p {
				want = true
			}
		}
		assert.Equal(t, want, s.AcceptsPayments(), string(s))
	}
}

func TestAttachmentOwner(t *testing.T) {
	a := &Attachment{ID: "a1"}
	_, _, err := a.Owner()
	require.Error(t, err)

	a.SetOwner(OwnerRequest, "r1")
	a.SetOwner(OwnerInvoice, "i1")
	owner, id, err := a.Owner()
	require.NoError(t, err)
	assert.Equal(t, OwnerInvoice, owner)
	assert.Equal(t, "i1", id)
	assert.Nil(t, a.RequestID)

	p := "p1"
	a.PaymentID = &p
	_, _, err = a.Owner()
	assert.Error(t, err)
}
