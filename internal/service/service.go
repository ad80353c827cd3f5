// Package service holds the catering workflow: request lifecycle, billing,
// payment ledger, attachments and notifications. Every mutating operation
// runs as one unit of work against a repository.Store.
package service

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pesio-ai/be-catering-requests/internal/errors"
	"github.com/pesio-ai/be-catering-requests/internal/metrics"
)

const (
	entityRequest    = "request"
	entityInvoice    = "invoice"
	entityPayment    = "payment"
	entityAttachment = "attachment"
	entityUser       = "user"
	entityDepartment = "department"
)

func newID() string {
	return uuid.NewString()
}

func now() time.Time {
	return time.Now().UTC()
}

// record counts a workflow operation by its outcome.
func record(entity, action string, err error) {
	result := "ok"
	if err != nil {
		result = strings.ToLower(string(errors.CodeOf(err)))
	}
	metrics.RecordTransition(entity, action, result)
}

func strPtr(s string) *string {
	return &s
}

// trimmed returns nil for blank strings.
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// page clamps limit/offset query parameters.
func page(limit, offset int) (int, int) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
