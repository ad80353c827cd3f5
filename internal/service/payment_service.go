package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pesio-ai/be-catering-requests/internal/domain"
	"github.com/pesio-ai/be-catering-requests/internal/errors"
	"github.com/pesio-ai/be-catering-requests/internal/logger"
	"github.com/pesio-ai/be-catering-requests/internal/metrics"
	"github.com/pesio-ai/be-catering-requests/internal/repository"
)

// PaymentService records payments and keeps invoice status in line with
// the payment ledger.
type PaymentService struct {
	store   repository.Store
	emitter *Emitter
	log     *logger.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(store repository.Store, emitter *Emitter, log *logger.Logger) *PaymentService {
	return &PaymentService{
		store:   store,
		emitter: emitter,
		log:     log,
	}
}

// RecordPaymentRequest represents a record payment request
type RecordPaymentRequest struct {
	InvoiceID   string
	Amount      decimal.Decimal
	Method      domain.PaymentMethod
	PaymentDate time.Time
	Reference   *string
	// Status defaults to PROCESSED.
	Status domain.PaymentStatus
}

// UpdatePaymentRequest represents an update payment request. Nil fields are
// left unchanged.
type UpdatePaymentRequest struct {
	Amount      *decimal.Decimal
	Method      *domain.PaymentMethod
	Status      *domain.PaymentStatus
	PaymentDate *time.Time
	Reference   *string
}

// ListPaymentsRequest represents a list payments request
type ListPaymentsRequest struct {
	InvoiceID string
	Limit     int
	Offset    int
}

func requireFinance(actor domain.Actor, action string) error {
	if !actor.Caps.CanCreatePayment {
		return errors.Forbidden(fmt.Sprintf("role %s cannot %s payments", actor.Role, action))
	}
	return nil
}

func overPayment(inv *domain.Invoice, paid, attempted decimal.Decimal) *errors.Error {
	balance := inv.NetAmount.Sub(paid)
	return errors.OverPayment(fmt.Sprintf("payment of %s exceeds the balance due of %s", attempted.StringFixed(2), balance.StringFixed(2))).
		WithDetail("invoice_id", inv.ID).
		WithDetail("net_amount", inv.NetAmount.StringFixed(2)).
		WithDetail("amount_paid", paid.StringFixed(2)).
		WithDetail("balance_due", balance.StringFixed(2)).
		WithDetail("attempted_amount", attempted.StringFixed(2))
}

// RecordPayment records a payment against an invoice and re-derives the
// invoice status from every payment that counts.
func (s *PaymentService) RecordPayment(ctx context.Context, actor domain.Actor, req *RecordPaymentRequest) (*domain.Payment, error) {
	if err := requireFinance(actor, "record"); err != nil {
		record(entityPayment, "create", err)
		return nil, err
	}
	if req.InvoiceID == "" {
		return nil, errors.InvalidInput("invoiceId", "invoice id is required")
	}
	if !req.Amount.IsPositive() {
		return nil, errors.InvalidInput("amount", "payment amount must be positive")
	}
	if !req.Method.Valid() {
		return nil, errors.InvalidInput("method", fmt.Sprintf("unknown payment method '%s'", req.Method))
	}
	if req.PaymentDate.IsZero() {
		return nil, errors.InvalidInput("paymentDate", "payment date is required")
	}
	if req.Status == "" {
		req.Status = domain.PaymentProcessed
	}
	if !req.Status.Valid() || !req.Status.Counts() {
		return nil, errors.InvalidInput("status", fmt.Sprintf("a new payment cannot have status '%s'", req.Status))
	}

	ts := now()
	payment := &domain.Payment{
		ID:          newID(),
		InvoiceID:   req.InvoiceID,
		Method:      req.Method,
		Reference:   trimmed(req.Reference),
		PaymentDate: req.PaymentDate,
		Amount:      req.Amount,
		Status:      req.Status,
		CreatedBy:   actor.UserID,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}

	var invoiceStatus domain.InvoiceStatus
	var events []domain.Event
	err := s.store.InTransaction(ctx, func(q repository.Queries) error {
		invoice, err := q.LockInvoice(ctx, req.InvoiceID)
		if err != nil {
			return err
		}
		existing, err := q.ListPaymentsByInvoice(ctx, invoice.ID)
		if err != nil {
			return err
		}

		paid := domain.PaidTotal(existing)
		total := paid.Add(payment.Amount)
		if total.GreaterThan(invoice.NetAmount) {
			return overPayment(invoice, paid, payment.Amount)
		}
		if !invoice.Status.AcceptsPayments() {
			return notEligibleForPayment(invoice)
		}

		if err := q.CreatePayment(ctx, payment); err != nil {
			return err
		}
		if err := s.recomputeInvoice(ctx, q, invoice, total); err != nil {
			return err
		}
		invoiceStatus = invoice.Status

		sr, err := q.GetRequest(ctx, invoice.RequestID)
		if err != nil {
			return err
		}
		events = append(events, domain.Event{
			Type:       domain.NotifyPaymentRecorded,
			Recipients: []string{sr.RequesterID, invoice.CreatedBy},
			Title:      "Payment recorded",
			Message:    fmt.Sprintf("A payment of %s was recorded for \"%s\".", payment.Amount.StringFixed(2), sr.EventName),
			RequestID:  strPtr(sr.ID),
			InvoiceID:  strPtr(invoice.ID),
			PaymentID:  strPtr(payment.ID),
		})
		return nil
	})
	record(entityPayment, "create", err)
	if err != nil {
		return nil, err
	}

	metrics.RecordPayment(payment.Amount)
	s.emitter.Emit(ctx, actor.UserID, events)

	s.log.Info().
		Str("payment_id", payment.ID).
		Str("invoice_id", payment.InvoiceID).
		Str("amount", payment.Amount.StringFixed(2)).
		Str("method", string(payment.Method)).
		Str("invoice_status", string(invoiceStatus)).
		Msg("Payment recorded")

	return payment, nil
}

// UpdatePayment edits a payment and re-derives the invoice status from the
// full payment set, so cancelling or failing a payment lowers the status.
func (s *PaymentService) UpdatePayment(ctx context.Context, actor domain.Actor, id string, req *UpdatePaymentRequest) (*domain.Payment, error) {
	if err := requireFinance(actor, "update"); err != nil {
		record(entityPayment, "update", err)
		return nil, err
	}
	if req.Amount != nil && !req.Amount.IsPositive() {
		return nil, errors.InvalidInput("amount", "payment amount must be positive")
	}
	if req.Method != nil && !req.Method.Valid() {
		return nil, errors.InvalidInput("method", fmt.Sprintf("unknown payment method '%s'", *req.Method))
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, errors.InvalidInput("status", fmt.Sprintf("unknown payment status '%s'", *req.Status))
	}
	if req.PaymentDate != nil && req.PaymentDate.IsZero() {
		return nil, errors.InvalidInput("paymentDate", "payment date cannot be empty")
	}

	var payment *domain.Payment
	var invoiceStatus domain.InvoiceStatus
	err := s.store.InTransaction(ctx, func(q repository.Queries) error {
		current, err := q.GetPayment(ctx, id)
		if err != nil {
			return err
		}
		invoice, err := q.LockInvoice(ctx, current.InvoiceID)
		if err != nil {
			return err
		}
		// Re-read under the invoice lock; every payment write takes it.
		payment, err = q.GetPayment(ctx, id)
		if err != nil {
			return err
		}

		if req.Amount != nil {
			payment.Amount = *req.Amount
		}
		if req.Method != nil {
			payment.Method = *req.Method
		}
		if req.Status != nil {
			payment.Status = *req.Status
		}
		if req.PaymentDate != nil {
			payment.PaymentDate = *req.PaymentDate
		}
		if req.Reference != nil {
			payment.Reference = trimmed(req.Reference)
		}
		payment.UpdatedAt = now()

		payments, err := q.ListPaymentsByInvoice(ctx, invoice.ID)
		if err != nil {
			return err
		}
		others := make([]*domain.Payment, 0, len(payments))
		for _, p := range payments {
			if p.ID != payment.ID {
				others = append(others, p)
			}
		}
		paidByOthers := domain.PaidTotal(others)
		total := domain.PaidTotal(append(others, payment))
		if total.GreaterThan(invoice.NetAmount) {
			return overPayment(invoice, paidByOthers, payment.Amount)
		}
		if total.GreaterThan(domain.PaidTotal(payments)) && !invoice.Status.AcceptsPayments() {
			return notEligibleForPayment(invoice)
		}

		if err := q.UpdatePayment(ctx, payment); err != nil {
			return err
		}
		if err := s.recomputeInvoice(ctx, q, invoice, total); err != nil {
			return err
		}
		invoiceStatus = invoice.Status
		return nil
	})
	record(entityPayment, "update", err)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("payment_id", payment.ID).
		Str("invoice_id", payment.InvoiceID).
		Str("status", string(payment.Status)).
		Str("amount", payment.Amount.StringFixed(2)).
		Str("invoice_status", string(invoiceStatus)).
		Str("updated_by", actor.UserID).
		Msg("Payment updated")

	return payment, nil
}

func notEligibleForPayment(invoice *domain.Invoice) error {
	return errors.NotEligible(fmt.Sprintf("cannot record payment for invoice with status '%s'", invoice.Status)).
		WithDetail("invoice_id", invoice.ID).
		WithDetail("current_status", string(invoice.Status)).
		WithDetail("required_statuses", domain.PayableInvoiceStatuses)
}

// recomputeInvoice stores the status derived from paid, if it changed.
func (s *PaymentService) recomputeInvoice(ctx context.Context, q repository.Queries, invoice *domain.Invoice, paid decimal.Decimal) error {
	next := domain.DeriveInvoiceStatus(invoice.Status, invoice.NetAmount, paid)
	if next == invoice.Status {
		return nil
	}
	s.log.Debug().
		Str("invoice_id", invoice.ID).
		Str("from_status", string(invoice.Status)).
		Str("to_status", string(next)).
		Str("amount_paid", paid.StringFixed(2)).
		Msg("Invoice status re-derived from payments")

	invoice.Status = next
	invoice.UpdatedAt = now()
	return q.UpdateInvoice(ctx, invoice)
}

// GetPayment retrieves a payment visible to the actor.
func (s *PaymentService) GetPayment(ctx context.Context, actor domain.Actor, id string) (*domain.Payment, error) {
	var payment *domain.Payment
	err := s.store.View(ctx, func(q repository.Queries) error {
		var err error
		payment, err = q.GetPayment(ctx, id)
		if err != nil {
			return err
		}
		invoice, err := q.GetInvoice(ctx, payment.InvoiceID)
		if err != nil {
			return err
		}
		return canViewBilling(ctx, q, actor, invoice.RequestID)
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// ListPayments lists the payments of one invoice, or every payment for staff.
func (s *PaymentService) ListPayments(ctx context.Context, actor domain.Actor, req *ListPaymentsRequest) ([]*domain.Payment, error) {
	limit, offset := page(req.Limit, req.Offset)

	var out []*domain.Payment
	err := s.store.View(ctx, func(q repository.Queries) error {
		if req.InvoiceID == "" {
			if !actor.IsElevated() {
				return errors.Forbidden("only finance staff can list all payments")
			}
			var err error
			out, err = q.ListPayments(ctx, limit, offset)
			return err
		}

		invoice, err := q.GetInvoice(ctx, req.InvoiceID)
		if err != nil {
			return err
		}
		if err := canViewBilling(ctx, q, actor, invoice.RequestID); err != nil {
			return err
		}
		out, err = q.ListPaymentsByInvoice(ctx, invoice.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
