package repository

import (
	"context"
	"fmt"

	"github.com/pesio-ai/be-catering-requests/internal/domain"
	"github.com/pesio-ai/be-catering-requests/internal/errors"
)

const invoiceColumns = `
	id, request_id, invoice_date, due_date,
	gross_amount::text, tax_amount::text, net_amount::text,
	status, created_by, created_at, updated_at`

func scanInvoice(sc rowScanner) (*domain.Invoice, error) {
	inv := &domain.Invoice{}
	var gross, tax, net string
	err := sc.Scan(
		&inv.ID,
		&inv.RequestID,
		&inv.InvoiceDate,
		&inv.DueDate,
		&gross,
		&tax,
		&net,
		&inv.Status,
		&inv.CreatedBy,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if inv.GrossAmount, err = parseAmount(gross); err != nil {
		return nil, err
	}
	if inv.TaxAmount, err = parseAmount(tax); err != nil {
		return nil, err
	}
	if inv.NetAmount, err = parseAmount(net); err != nil {
		return nil, err
	}
	return inv, nil
}

// CreateInvoice inserts an invoice. The table's check constraint rejects a net
// amount that is not gross + tax.
func (q *pgQueries) CreateInvoice(ctx context.Context, inv *domain.Invoice) error {
	query := `
		INSERT INTO invoices (id, request_id, invoice_date, due_date,
		                      gross_amount, tax_amount, net_amount,
		                      status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := q.db.Exec(ctx, query,
		inv.ID,
		inv.RequestID,
		inv.InvoiceDate,
		inv.DueDate,
		inv.GrossAmount,
		inv.TaxAmount,
		inv.NetAmount,
		inv.Status,
		inv.CreatedBy,
		inv.CreatedAt,
		inv.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create invoice")
	}
	return nil
}

func (q *pgQueries) GetInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	inv, err := scanInvoice(q.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFoundOr(err, "invoice", id, "failed to get invoice")
	}
	return inv, nil
}

// LockInvoice reads an invoice and holds its row lock. Every payment write
// goes through this so two payments cannot race past the balance.
func (q *pgQueries) LockInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1 FOR UPDATE`
	inv, err := scanInvoice(q.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFoundOr(err, "invoice", id, "failed to lock invoice")
	}
	return inv, nil
}

func (q *pgQueries) UpdateInvoice(ctx context.Context, inv *domain.Invoice) error {
	query := `
		UPDATE invoices
		SET invoice_date = $2, due_date = $3,
		    gross_amount = $4, tax_amount = $5, net_amount = $6,
		    status = $7, updated_at = $8
		WHERE id = $1
	`
	tag, err := q.db.Exec(ctx, query,
		inv.ID,
		inv.InvoiceDate,
		inv.DueDate,
		inv.GrossAmount,
		inv.TaxAmount,
		inv.NetAmount,
		inv.Status,
		inv.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to update invoice")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("invoice", inv.ID)
	}
	return nil
}

// ListInvoices retrieves invoices with filtering and pagination.
func (q *pgQueries) ListInvoices(ctx context.Context, f InvoiceFilter) ([]*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE 1 = 1`

	args := []any{}
	argCount := 1

	if f.RequestID != "" {
		query += fmt.Sprintf(" AND request_id = $%d", argCount)
		args = append(args, f.RequestID)
		argCount++
	}

	if f.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, f.Status)
		argCount++
	}

	limit, offset := limitClause(f.Limit, f.Offset)
	query += " ORDER BY created_at DESC, id"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, limit, offset)

	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list invoices")
	}
	defer rows.Close()

	invoices := make([]*domain.Invoice, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan invoice")
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (q *pgQueries) InvoiceTotals(ctx context.Context) (*InvoiceTotals, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM invoices),
			(SELECT COALESCE(SUM(net_amount), 0)::text FROM invoices),
			(SELECT COALESCE(SUM(amount), 0)::text FROM payments
			  WHERE status NOT IN ('CANCELLED', 'FAILED'))
	`
	var (
		totals    InvoiceTotals
		net, paid string
	)
	if err := q.db.QueryRow(ctx, query).Scan(&totals.Count, &net, &paid); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to compute invoice totals")
	}
	var err error
	if totals.Net, err = parseAmount(net); err != nil {
		return nil, err
	}
	if totals.Paid, err = parseAmount(paid); err != nil {
		return nil, err
	}
	return &totals, nil
}

// Payments --------------------------------------------------------------------

const paymentColumns = `
	id, invoice_id, method, reference, payment_date, amount::text,
	status, created_by, created_at, updated_at`

func scanPayment(sc rowScanner) (*domain.Payment, error) {
	p := &domain.Payment{}
	var amount string
	err := sc.Scan(
		&p.ID,
		&p.InvoiceID,
		&p.Method,
		&p.Reference,
		&p.PaymentDate,
		&amount,
		&p.Status,
		&p.CreatedBy,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if p.Amount, err = parseAmount(amount); err != nil {
		return nil, err
	}
	return p, nil
}

func (q *pgQueries) CreatePayment(ctx context.Context, p *domain.Payment) error {
	query := `
		INSERT INTO payments (id, invoice_id, method, reference, payment_date, amount,
		                      status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := q.db.Exec(ctx, query,
		p.ID,
		p.InvoiceID,
		p.Method,
		p.Reference,
		p.PaymentDate,
		p.Amount,
		p.Status,
		p.CreatedBy,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to record payment")
	}
	return nil
}

func (q *pgQueries) GetPayment(ctx context.Context, id string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	p, err := scanPayment(q.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFoundOr(err, "payment", id, "failed to get payment")
	}
	return p, nil
}

func (q *pgQueries) UpdatePayment(ctx context.Context, p *domain.Payment) error {
	query := `
		UPDATE payments
		SET method = $2, reference = $3, payment_date = $4, amount = $5,
		    status = $6, updated_at = $7
		WHERE id = $1
	`
	tag, err := q.db.Exec(ctx, query,
		p.ID,
		p.Method,
		p.Reference,
		p.PaymentDate,
		p.Amount,
		p.Status,
		p.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to update payment")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("payment", p.ID)
	}
	return nil
}

func (q *pgQueries) ListPaymentsByInvoice(ctx context.Context, invoiceID string) ([]*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE invoice_id = $1 ORDER BY created_at, id`
	return q.queryPayments(ctx, query, invoiceID)
}

func (q *pgQueries) ListPayments(ctx context.Context, limit, offset int) ([]*domain.Payment, error) {
	limit, offset = limitClause(limit, offset)
	query := `SELECT ` + paymentColumns + ` FROM payments ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`
	return q.queryPayments(ctx, query, limit, offset)
}

func (q *pgQueries) queryPayments(ctx context.Context, query string, args ...any) ([]*domain.Payment, error) {
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list payments")
	}
	defer rows.Close()

	payments := make([]*domain.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan payment")
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
