package domain

import (
	"fmt"
	"time"
)

// OwnerType names the entity an attachment belongs to.
type OwnerType string

const (
	OwnerRequest OwnerType = "request"
	OwnerInvoice OwnerType = "invoice"
	OwnerPayment OwnerType = "payment"
)

// Valid reports whether t is a known owner type.
func (t OwnerType) Valid() bool {
	return t == OwnerRequest || t == OwnerInvoice || t == OwnerPayment
}

// Attachment is uploaded file metadata linked to exactly one owner.
type Attachment struct {
	ID         string    `json:"id"`
	FileName   string    `json:"fileName"`
	FileType   string    `json:"fileType"`
	FileSize   int64     `json:"fileSize"`
	URL        string    `json:"url"`
	UploadedBy string    `json:"uploadedBy"`
	RequestID  *string   `json:"requestId,omitempty"`
	InvoiceID  *string   `json:"invoiceId,omitempty"`
	PaymentID  *string   `json:"paymentId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// SetOwner points the attachment at a single owner, clearing the others.
func (a *Attachment) SetOwner(t OwnerType, id string) {
	a.RequestID, a.InvoiceID, a.PaymentID = nil, nil, nil
	switch t {
	case OwnerRequest:
		a.RequestID = &id
	case OwnerInvoice:
		a.InvoiceID = &id
	case OwnerPayment:
		a.PaymentID = &id
	}
}

// Owner returns the single owner reference.
func (a *Attachment) Owner() (OwnerType, string, error) {
	var (
		owner OwnerType
		id    string
		n     int
	)
	if a.RequestID != nil {
		owner, id, n = OwnerRequest, *a.RequestID, n+1
	}
	if a.InvoiceID != nil {
		owner, id, n = OwnerInvoice, *a.InvoiceID, n+1
	}
	if a.PaymentID != nil {
		owner, id, n = OwnerPayment, *a.PaymentID, n+1
	}
	if n != 1 {
		return "", "", fmt.Errorf("attachment %s has %d owners", a.ID, n)
	}
	return owner, id, nil
}
