package repository

import (
	"context"

	"github.com/pesio-ai/be-catering-requests/internal/domain"
	"github.com/pesio-ai/be-catering-requests/internal/errors"
)

func (q *pgQueries) CreateAttachment(ctx context.Context, a *domain.Attachment) error {
	query := `
		INSERT INTO attachments (id, file_name, file_type, file_size, url, uploaded_by,
		                         request_id, invoice_id, payment_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := q.db.Exec(ctx, query,
		a.ID,
		a.FileName,
		a.FileType,
		a.FileSize,
		a.URL,
		a.UploadedBy,
		a.RequestID,
		a.InvoiceID,
		a.PaymentID,
		a.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create attachment")
	}
	return nil
}

func (q *pgQueries) ListAttachments(ctx context.Context, owner domain.OwnerType, ownerID string) ([]*domain.Attachment, error) {
	var column string
	switch owner {
	case domain.OwnerRequest:
		column = "request_id"
	case domain.OwnerInvoice:
		column = "invoice_id"
	case domain.OwnerPayment:
		column = "payment_id"
	default:
		return nil, errors.InvalidInput("owner_type", "must be one of request, invoice, payment")
	}

	query := `
		SELECT id, file_name, file_type, file_size, url, uploaded_by,
		       request_id, invoice_id, payment_id, created_at
		FROM attachments
		WHERE ` + column + ` = $1
		ORDER BY created_at, id
	`
	rows, err := q.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list attachments")
	}
	defer rows.Close()

	attachments := make([]*domain.Attachment, 0)
	for rows.Next() {
		a := &domain.Attachment{}
		err := rows.Scan(
			&a.ID,
			&a.FileName,
			&a.FileType,
			&a.FileSize,
			&a.URL,
			&a.UploadedBy,
			&a.RequestID,
			&a.InvoiceID,
			&a.PaymentID,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan attachment")
		}
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}
