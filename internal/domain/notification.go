package domain

import "time"

// NotificationType mirrors the lifecycle events that produce notifications.
type NotificationType string

const (
	NotifyRequestCreated   NotificationType = "REQUEST_CREATED"
	NotifyRequestSubmitted NotificationType = "REQUEST_SUBMITTED"
	NotifyRequestApproved  NotificationType = "REQUEST_APPROVED"
	NotifyRequestRejected  NotificationType = "REQUEST_REJECTED"
	NotifyRequestRevision  NotificationType = "REQUEST_REVISION"
	NotifyRequestFulfilled NotificationType = "REQUEST_FULFILLED"
	NotifyInvoiceCreated   NotificationType = "INVOICE_CREATED"
	NotifyPaymentRecorded  NotificationType = "PAYMENT_RECORDED"
)

// Notification is an in-app message for one recipient.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Read      bool             `json:"read"`
	RequestID *string          `json:"requestId,omitempty"`
	InvoiceID *string          `json:"invoiceId,omitempty"`
	PaymentID *string          `json:"paymentId,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
	ReadAt    *time.Time       `json:"readAt,omitempty"`
}

// Event is a notification-worthy occurrence collected during a transaction
// and emitted once it commits.
type Event struct {
	Type       NotificationType
	Recipients []string
	Title      string
	Message    string
	RequestID  *string
	InvoiceID  *string
	PaymentID  *string
}
