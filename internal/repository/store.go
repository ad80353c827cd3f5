// Package repository persists the catering workflow aggregates. Two Store
// implementations exist: Postgres for deployments and an in-memory store for
// tests and local runs.
package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/pesio-ai/be-catering-requests/internal/domain"
)

// Store runs units of work against the data store.
type Store interface {
	// InTransaction runs fn atomically. Any error rolls back every write fn made.
	InTransaction(ctx context.Context, fn func(q Queries) error) error
	// View runs read-only fn.
	View(ctx context.Context, fn func(q Queries) error) error
	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}

// RequestFilter narrows ListRequests. Zero values mean no constraint.
type RequestFilter struct {
	RequesterID  string
	DepartmentID string
	Statuses     []domain.RequestStatus
	// ApproverID limits results to departments this user approves or
	// departments without a designated approver.
	ApproverID string
	// ExcludeRequesterID drops requests owned by this user.
	ExcludeRequesterID string
	Limit              int
	Offset             int
}

// InvoiceFilter narrows ListInvoices.
type InvoiceFilter struct {
	RequestID string
	Status    domain.InvoiceStatus
	Limit     int
	Offset    int
}

// NotificationFilter narrows ListNotifications.
type NotificationFilter struct {
	UnreadOnly bool
	Limit      int
}

// InvoiceTotals aggregates invoice amounts for the dashboard.
type InvoiceTotals struct {
	Count int             `json:"count"`
	Net   decimal.Decimal `json:"net"`
	Paid  decimal.Decimal `json:"paid"`
}

// Queries is the set of reads and writes available inside a unit of work.
// Lock* methods take a row lock held until the transaction ends.
type Queries interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
	CreateUser(ctx context.Context, u *domain.User) error
	UpdateUser(ctx context.Context, u *domain.User) error
	ListUsersByRole(ctx context.Context, role domain.Role) ([]*domain.User, error)

	GetDepartment(ctx context.Context, id string) (*domain.Department, error)
	FindDepartmentByName(ctx context.Context, name string) (*domain.Department, error)
	CreateDepartment(ctx context.Context, d *domain.Department) error
	ListDepartments(ctx context.Context) ([]*domain.Department, error)

	CreateRequest(ctx context.Context, r *domain.ServiceRequest) error
	GetRequest(ctx context.Context, id string) (*domain.ServiceRequest, error)
	LockRequest(ctx context.Context, id string) (*domain.ServiceRequest, error)
	UpdateRequest(ctx context.Context, r *domain.ServiceRequest) error
	ListRequests(ctx context.Context, f RequestFilter) ([]*domain.ServiceRequest, error)
	CountRequestsByStatus(ctx context.Context) (map[domain.RequestStatus]int, error)

	AppendHistory(ctx context.Context, e *domain.RequestHistoryEntry) error
	ListHistory(ctx context.Context, requestID string) ([]*domain.RequestHistoryEntry, error)

	CreateInvoice(ctx context.Context, inv *domain.Invoice) error
	GetInvoice(ctx context.Context, id string) (*domain.Invoice, error)
	LockInvoice(ctx context.Context, id string) (*domain.Invoice, error)
	UpdateInvoice(ctx context.Context, inv *domain.Invoice) error
	ListInvoices(ctx context.Context, f InvoiceFilter) ([]*domain.Invoice, error)
	InvoiceTotals(ctx context.Context) (*InvoiceTotals, error)

	CreatePayment(ctx context.Context, p *domain.Payment) error
	GetPayment(ctx context.Context, id string) (*domain.Payment, error)
	UpdatePayment(ctx context.Context, p *domain.Payment) error
	ListPaymentsByInvoice(ctx context.Context, invoiceID string) ([]*domain.Payment, error)
	ListPayments(ctx context.Context, limit, offset int) ([]*domain.Payment, error)

	CreateAttachment(ctx context.Context, a *domain.Attachment) error
	ListAttachments(ctx context.Context, owner domain.OwnerType, ownerID string) ([]*domain.Attachment, error)

	CreateNotification(ctx context.Context, n *domain.Notification) error
	ListNotifications(ctx context.Context, userID string, f NotificationFilter) ([]*domain.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID string) (*domain.Notification, error)
	MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error)
	CountUnreadNotifications(ctx context.Context, userID string) (int, error)
}

var (
	_ Store   = (*MemoryStore)(nil)
	_ Store   = (*PostgresStore)(nil)
	_ Queries = (*memQueries)(nil)
	_ Queries = (*pgQueries)(nil)
)
