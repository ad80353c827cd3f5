package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/pesio-ai/be-catering-requests/internal/domain"
	"github.com/pesio-ai/be-catering-requests/internal/errors"
)

const requestColumns = `
	id, requester_id, department_id, event_name, event_date, venue,
	attendee_count, estimate_amount::text, service_type, funding_source,
	description, contact_phone, status, rejection_reason, review_comments,
	approver_id, approval_date, submitted_at, fulfilled_at, closed_at,
	created_at, updated_at`

func scanRequest(sc rowScanner) (*domain.ServiceRequest, error) {
	r := &domain.ServiceRequest{}
	var estimate string
	err := sc.Scan(
		&r.ID,
		&r.RequesterID,
		&r.DepartmentID,
		&r.EventName,
		&r.EventDate,
		&r.Venue,
		&r.AttendeeCount,
		&estimate,
		&r.ServiceType,
		&r.FundingSource,
		&r.Description,
		&r.ContactPhone,
		&r.Status,
		&r.RejectionReason,
		&r.ReviewComments,
		&r.ApproverID,
		&r.ApprovalDate,
		&r.SubmittedAt,
		&r.FulfilledAt,
		&r.ClosedAt,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if r.EstimateAmount, err = parseAmount(estimate); err != nil {
		return nil, err
	}
	return r, nil
}

func (q *pgQueries) CreateRequest(ctx context.Context, r *domain.ServiceRequest) error {
	query := `
		INSERT INTO service_requests (id, requester_id, department_id, event_name, event_date, venue,
		                              attendee_count, estimate_amount, service_type, funding_source,
		                              description, contact_phone, status, submitted_at,
		                              created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := q.db.Exec(ctx, query,
		r.ID,
		r.RequesterID,
		r.DepartmentID,
		r.EventName,
		r.EventDate,
		r.Venue,
		r.AttendeeCount,
		r.EstimateAmount,
		r.ServiceType,
		r.FundingSource,
		r.Description,
		r.ContactPhone,
		r.Status,
		r.SubmittedAt,
		r.CreatedAt,
		r.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create request")
	}
	return nil
}

func (q *pgQueries) GetRequest(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM service_requests WHERE id = $1`
	r, err := scanRequest(q.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFoundOr(err, "request", id, "failed to get request")
	}
	return r, nil
}

func (q *pgQueries) LockRequest(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM service_requests WHERE id = $1 FOR UPDATE`
	r, err := scanRequest(q.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFoundOr(err, "request", id, "failed to lock request")
	}
	return r, nil
}

func (q *pgQueries) UpdateRequest(ctx context.Context, r *domain.ServiceRequest) error {
	query := `
		UPDATE service_requests
		SET department_id = $2, event_name = $3, event_date = $4, venue = $5,
		    attendee_count = $6, estimate_amount = $7, service_type = $8, funding_source = $9,
		    description = $10, contact_phone = $11, status = $12, rejection_reason = $13,
		    review_comments = $14, approver_id = $15, approval_date = $16, submitted_at = $17,
		    fulfilled_at = $18, closed_at = $19, updated_at = $20
		WHERE id = $1
	`
	tag, err := q.db.Exec(ctx, query,
		r.ID,
		r.DepartmentID,
		r.EventName,
		r.EventDate,
		r.Venue,
		r.AttendeeCount,
		r.EstimateAmount,
		r.ServiceType,
		r.FundingSource,
		r.Description,
		r.ContactPhone,
		r.Status,
		r.RejectionReason,
		r.ReviewComments,
		r.ApproverID,
		r.ApprovalDate,
		r.SubmittedAt,
		r.FulfilledAt,
		r.ClosedAt,
		r.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to update request")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("request", r.ID)
	}
	return nil
}

func (q *pgQueries) ListRequests(ctx context.Context, f RequestFilter) ([]*domain.ServiceRequest, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.RequesterID != "" {
		where = append(where, "r.requester_id = "+arg(f.RequesterID))
	}
	if f.ExcludeRequesterID != "" {
		where = append(where, "r.requester_id <> "+arg(f.ExcludeRequesterID))
	}
	if f.DepartmentID != "" {
		where = append(where, "r.department_id = "+arg(f.DepartmentID))
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		where = append(where, "r.status = ANY("+arg(statuses)+")")
	}
	if f.ApproverID != "" {
		where = append(where, "(d.approver_id IS NULL OR d.approver_id = "+arg(f.ApproverID)+")")
	}

	limit, offset := limitClause(f.Limit, f.Offset)
	query := `SELECT ` + prefixColumns("r", requestColumns) + `
		FROM service_requests r
		JOIN departments d ON d.id = r.department_id`
	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\t\tORDER BY r.created_at DESC, r.id LIMIT " + arg(limit) + " OFFSET " + arg(offset)

	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list requests")
	}
	defer rows.Close()

	var requests []*domain.ServiceRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan request")
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

func (q *pgQueries) CountRequestsByStatus(ctx context.Context) (map[domain.RequestStatus]int, error) {
	rows, err := q.db.Query(ctx, `SELECT status, COUNT(*) FROM service_requests GROUP BY status`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to count requests")
	}
	defer rows.Close()

	counts := make(map[domain.RequestStatus]int)
	for rows.Next() {
		var (
			status domain.RequestStatus
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan request count")
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// prefixColumns qualifies a column list with a table alias.
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
