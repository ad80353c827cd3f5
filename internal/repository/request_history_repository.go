package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-catering-requests/internal/domain"
	"github.com/pesio-ai/be-catering-requests/internal/errors"
)

// AppendHistory inserts one history entry. The table has an update/delete
// prevention trigger so this is the only mutation exposed.
func (q *pgQueries) AppendHistory(ctx context.Context, e *domain.RequestHistoryEntry) error {
	query := `
		INSERT INTO request_history
		    (id, request_id, action,
		     from_status, to_status,
		     actor_id, comments, created_at)
		VALUES ($1, $2, $3,
		        $4, $5,
		        $6, $7, $8)
	`

	_, err := q.db.Exec(ctx, query,
		e.ID,
		e.RequestID,
		e.Action,
		e.FromStatus,
		e.ToStatus,
		e.ActorID,
		e.Comments,
		e.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to append request history")
	}
	return nil
}

// ListHistory returns the full trail for a request ordered oldest-first.
func (q *pgQueries) ListHistory(ctx context.Context, requestID string) ([]*domain.RequestHistoryEntry, error) {
	query := `
		SELECT id, request_id, action,
		       from_status, to_status,
		       actor_id, comments, created_at
		FROM request_history
		WHERE request_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := q.db.Query(ctx, query, requestID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get request history")
	}
	defer rows.Close()

	return scanHistoryRows(rows)
}

// ── scan helpers ──────────────────────────────────────────────────────────────

func scanHistoryRows(rows pgx.Rows) ([]*domain.RequestHistoryEntry, error) {
	var entries []*domain.RequestHistoryEntry
	for rows.Next() {
		entry, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanHistoryEntry(sc rowScanner) (*domain.RequestHistoryEntry, error) {
	entry := &domain.RequestHistoryEntry{}

	err := sc.Scan(
		&entry.ID,
		&entry.RequestID,
		&entry.Action,
		&entry.FromStatus,
		&entry.ToStatus,
		&entry.ActorID,
		&entry.Comments,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan history entry")
	}

	return entry, nil
}
