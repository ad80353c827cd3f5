package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pesio-ai/be-catering-requests/internal/domain"
	"github.com/pesio-ai/be-catering-requests/internal/errors"
	"github.com/pesio-ai/be-catering-requests/internal/logger"
	"github.com/pesio-ai/be-catering-requests/internal/repository"
)

// InvoiceService handles invoice business logic
type InvoiceService struct {
	store   repository.Store
	emitter *Emitter
	log     *logger.Logger
}

// NewInvoiceService creates a new invoice service
func NewInvoiceService(
	store repository.Store,
	emitter *Emitter,
	log *logger.Logger,
) *InvoiceService {
	return &InvoiceService{
		store:   store,
		emitter: emitter,
		log:     log,
	}
}

// CreateInvoiceRequest represents a create invoice request
type CreateInvoiceRequest struct {
	RequestID   string
	InvoiceDate time.Time
	DueDate     time.Time
	GrossAmount decimal.Decimal
	TaxAmount   decimal.Decimal
}

// UpdateInvoiceRequest represents an update invoice request. Nil fields are
// left unchanged.
type UpdateInvoiceRequest struct {
	InvoiceDate *time.Time
	DueDate     *time.Time
	GrossAmount *decimal.Decimal
	TaxAmount   *decimal.Decimal
	Status      *domain.InvoiceStatus
}

// ListInvoicesRequest represents a list invoices request
type ListInvoicesRequest struct {
	RequestID string
	Status    domain.InvoiceStatus
	Limit     int
	Offset    int
}

func validateAmounts(gross, tax decimal.Decimal) error {
	if !gross.IsPositive() {
		return errors.InvalidInput("grossAmount", "gross amount must be positive")
	}
	if tax.IsNegative() {
		return errors.InvalidInput("taxAmount", "tax amount cannot be negative")
	}
	return nil
}

func validateDates(invoiceDate, dueDate time.Time) error {
	if invoiceDate.IsZero() {
		return errors.InvalidInput("invoiceDate", "invoice date is required")
	}
	if dueDate.IsZero() {
		return errors.InvalidInput("dueDate", "due date is required")
	}
	if dueDate.Before(invoiceDate) {
		return errors.InvalidInput("dueDate", "due date cannot be before the invoice date")
	}
	return nil
}

// CreateInvoice bills an APPROVED request. The invoice starts SUBMITTED.
func (s *InvoiceService) CreateInvoice(ctx context.Context, actor domain.Actor, req *CreateInvoiceRequest) (*domain.InvoiceView, error) {
	if !actor.Caps.CanCreateInvoice {
		err := errors.Forbidden(fmt.Sprintf("role %s cannot create invoices", actor.Role))
		record(entityInvoice, "create", err)
		return nil, err
	}
	if req.RequestID == "" {
		return nil, errors.InvalidInput("requestId", "request id is required")
	}
	if err := validateAmounts(req.GrossAmount, req.TaxAmount); err != nil {
		return nil, err
	}
	if err := validateDates(req.InvoiceDate, req.DueDate); err != nil {
		return nil, err
	}

	ts := now()
	invoice := &domain.Invoice{
		ID:          newID(),
		RequestID:   req.RequestID,
		InvoiceDate: req.InvoiceDate,
		DueDate:     req.DueDate,
		Status:      domain.InvoiceSubmitted,
		CreatedBy:   actor.UserID,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	invoice.SetAmounts(req.GrossAmount, req.TaxAmount)

	var events []domain.Event
	err := s.store.InTransaction(ctx, func(q repository.Queries) error {
		// Locked so a concurrent lifecycle step cannot move the request
		// out of APPROVED underneath the invoice.
		sr, err := q.LockRequest(ctx, req.RequestID)
		if err != nil {
			return err
		}
		if sr.Status != domain.RequestApproved {
			return errors.NotEligible(fmt.Sprintf("cannot invoice request with status '%s', must be approved", sr.Status)).
				WithDetail("request_id", sr.ID).
				WithDetail("current_status", string(sr.Status)).
				WithDetail("required_status", string(domain.RequestApproved))
		}

		if err := q.CreateInvoice(ctx, invoice); err != nil {
			return err
		}

		events = append(events, domain.Event{
			Type:       domain.NotifyInvoiceCreated,
			Recipients: []string{sr.RequesterID},
			Title:      "Invoice issued",
			Message:    fmt.Sprintf("An invoice of %s was issued for \"%s\".", invoice.NetAmount.StringFixed(2), sr.EventName),
			RequestID:  strPtr(sr.ID),
			InvoiceID:  strPtr(invoice.ID),
		})
		return nil
	})
	record(entityInvoice, "create", err)
	if err != nil {
		return nil, err
	}

	s.emitter.Emit(ctx, actor.UserID, events)

	s.log.Info().
		Str("invoice_id", invoice.ID).
		Str("request_id", invoice.RequestID).
		Str("gross_amount", invoice.GrossAmount.StringFixed(2)).
		Str("tax_amount", invoice.TaxAmount.StringFixed(2)).
		Str("net_amount", invoice.NetAmount.StringFixed(2)).
		Str("created_by", actor.UserID).
		Msg("Invoice created")

	return domain.NewInvoiceView(invoice, nil), nil
}

// UpdateInvoice edits dates, amounts and status. PAID and PARTIALLY_PAID
// always follow the payment ledger. DISPUTED and CLOSED are holds finance
// may place at any time, except that CLOSED needs an unpaid or fully paid
// invoice.
func (s *InvoiceService) UpdateInvoice(ctx context.Context, actor domain.Actor, id string, req *UpdateInvoiceRequest) (*domain.InvoiceView, error) {
	if !actor.Caps.CanCreateInvoice {
		err := errors.Forbidden(fmt.Sprintf("role %s cannot update invoices", actor.Role))
		record(entityInvoice, "update", err)
		return nil, err
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, errors.InvalidInput("status", fmt.Sprintf("unknown invoice status '%s'", *req.Status))
	}

	var view *domain.InvoiceView
	var previous domain.InvoiceStatus
	err := s.store.InTransaction(ctx, func(q repository.Queries) error {
		invoice, err := q.LockInvoice(ctx, id)
		if err != nil {
			return err
		}
		previous = invoice.Status

		if req.InvoiceDate != nil {
			invoice.InvoiceDate = *req.InvoiceDate
		}
		if req.DueDate != nil {
			invoice.DueDate = *req.DueDate
		}
		if err := validateDates(invoice.InvoiceDate, invoice.DueDate); err != nil {
			return err
		}

		gross, tax := invoice.GrossAmount, invoice.TaxAmount
		if req.GrossAmount != nil {
			gross = *req.GrossAmount
		}
		if req.TaxAmount != nil {
			tax = *req.TaxAmount
		}
		if err := validateAmounts(gross, tax); err != nil {
			return err
		}
		invoice.SetAmounts(gross, tax)

		payments, err := q.ListPaymentsByInvoice(ctx, invoice.ID)
		if err != nil {
			return err
		}
		paid := domain.PaidTotal(payments)
		if invoice.NetAmount.LessThan(paid) {
			return errors.OverPayment(fmt.Sprintf("net amount %s is below the %s already paid", invoice.NetAmount.StringFixed(2), paid.StringFixed(2))).
				WithDetail("invoice_id", invoice.ID).
				WithDetail("net_amount", invoice.NetAmount.StringFixed(2)).
				WithDetail("amount_paid", paid.StringFixed(2))
		}

		status := invoice.Status
		if req.Status != nil {
			status = *req.Status
		}
		derived := domain.DeriveInvoiceStatus(status, invoice.NetAmount, paid)
		if req.Status != nil && derived != *req.Status {
			return errors.Conflict(fmt.Sprintf("invoice status '%s' does not match the payment ledger", *req.Status)).
				WithDetail("invoice_id", invoice.ID).
				WithDetail("requested_status", string(*req.Status)).
				WithDetail("ledger_status", string(domain.DeriveInvoiceStatus(invoice.Status, invoice.NetAmount, paid))).
				WithDetail("amount_paid", paid.StringFixed(2))
		}
		if derived == domain.InvoiceClosed && paid.IsPositive() && !paid.Equal(invoice.NetAmount) {
			return errors.Conflict("a closed invoice must be unpaid or fully paid").
				WithDetail("invoice_id", invoice.ID).
				WithDetail("amount_paid", paid.StringFixed(2)).
				WithDetail("balance_due", invoice.NetAmount.Sub(paid).StringFixed(2))
		}
		invoice.Status = derived
		invoice.UpdatedAt = now()

		if err := q.UpdateInvoice(ctx, invoice); err != nil {
			return err
		}
		view = domain.NewInvoiceView(invoice, payments)
		return nil
	})
	record(entityInvoice, "update", err)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("invoice_id", id).
		Str("from_status", string(previous)).
		Str("to_status", string(view.Status)).
		Str("net_amount", view.NetAmount.StringFixed(2)).
		Str("updated_by", actor.UserID).
		Msg("Invoice updated")

	return view, nil
}

// GetInvoice retrieves an invoice with its ledger position. Staff see every
// invoice; requesters see invoices for their own requests.
func (s *InvoiceService) GetInvoice(ctx context.Context, actor domain.Actor, id string) (*domain.InvoiceView, error) {
	var view *domain.InvoiceView
	err := s.store.View(ctx, func(q repository.Queries) error {
		invoice, err := q.GetInvoice(ctx, id)
		if err != nil {
			return err
		}
		if err := canViewBilling(ctx, q, actor, invoice.RequestID); err != nil {
			return err
		}
		payments, err := q.ListPaymentsByInvoice(ctx, invoice.ID)
		if err != nil {
			return err
		}
		view = domain.NewInvoiceView(invoice, payments)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// ListInvoices lists invoices with filtering and pagination. Requesters must
// filter by one of their own requests.
func (s *InvoiceService) ListInvoices(ctx context.Context, actor domain.Actor, req *ListInvoicesRequest) ([]*domain.InvoiceView, error) {
	if req.Status != "" && !req.Status.Valid() {
		return nil, errors.InvalidInput("status", fmt.Sprintf("unknown invoice status '%s'", req.Status))
	}
	limit, offset := page(req.Limit, req.Offset)

	var views []*domain.InvoiceView
	err := s.store.View(ctx, func(q repository.Queries) error {
		if !actor.IsElevated() {
			if req.RequestID == "" {
				return errors.Forbidden("only finance staff can list all invoices")
			}
			if err := canViewBilling(ctx, q, actor, req.RequestID); err != nil {
				return err
			}
		}

		invoices, err := q.ListInvoices(ctx, repository.InvoiceFilter{
			RequestID: req.RequestID,
			Status:    req.Status,
			Limit:     limit,
			Offset:    offset,
		})
		if err != nil {
			return err
		}
		views = make([]*domain.InvoiceView, 0, len(invoices))
		for _, inv := range invoices {
			payments, err := q.ListPaymentsByInvoice(ctx, inv.ID)
			if err != nil {
				return err
			}
			views = append(views, domain.NewInvoiceView(inv, payments))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

// canViewBilling allows staff and the owner of the billed request.
func canViewBilling(ctx context.Context, q repository.Queries, actor domain.Actor, requestID string) error {
	if actor.IsElevated() || actor.Caps.CanViewDashboard {
		return nil
	}
	sr, err := q.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if sr.RequesterID != actor.UserID {
		return errors.Forbidden("you cannot view invoices of this request")
	}
	return nil
}
