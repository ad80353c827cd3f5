package service

import (
	"context"

	"github.com/pesio-ai/be-catering-requests/internal/domain"
	"github.com/pesio-ai/be-catering-requests/internal/errors"
	"github.com/pesio-ai/be-catering-requests/internal/repository"
)

// ── Approver routing ─────────────────────────────────────────────────────────

// approverRecipients returns who is told about a request awaiting approval:
// the department's designated approver when set, otherwise every APPROVER.
func approverRecipients(ctx context.Context, q repository.Queries, dept *domain.Department) ([]string, error) {
	if dept != nil && dept.ApproverID != nil && *dept.ApproverID != "" {
		return []string{*dept.ApproverID}, nil
	}

	approvers, err := q.ListUsersByRole(ctx, domain.RoleApprover)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(approvers))
	for _, u := range approvers {
		ids = append(ids, u.ID)
	}
	return ids, nil
}

// awaitingApprovalEvent builds the event sent to approvers when a request
// enters SUBMITTED.
func awaitingApprovalEvent(ctx context.Context, q repository.Queries, req *domain.ServiceRequest, t domain.NotificationType, title string) (domain.Event, error) {
	dept, err := q.GetDepartment(ctx, req.DepartmentID)
	if err != nil && !errors.Is(err, errors.ErrCodeNotFound) {
		return domain.Event{}, err
	}
	recipients, err := approverRecipients(ctx, q, dept)
	if err != nil {
		return domain.Event{}, err
	}

	return domain.Event{
		Type:       t,
		Recipients: recipients,
		Title:      title,
		Message:    "\"" + req.EventName + "\" is awaiting your approval.",
		RequestID:  strPtr(req.ID),
	}, nil
}

// ── Pending approvals ────────────────────────────────────────────────────────

// ListPendingApprovals returns the requests the actor can act on as an
// approver. APPROVER users see requests in departments they approve or that
// have no designated approver; finance and admins see every pending request.
// The actor's own requests are left out unless self-approval is allowed.
func (s *RequestService) ListPendingApprovals(ctx context.Context, actor domain.Actor, limit, offset int) ([]*domain.ServiceRequest, error) {
	if !actor.Caps.CanApproveRequest {
		return nil, errors.Forbidden("role " + string(actor.Role) + " cannot approve requests")
	}
	limit, offset = page(limit, offset)

	filter := repository.RequestFilter{
		Statuses: []domain.RequestStatus{domain.RequestSubmitted, domain.RequestNeedsRevision},
		Limit:    limit,
		Offset:   offset,
	}
	if actor.Role == domain.RoleApprover {
		filter.ApproverID = actor.UserID
	}
	if !s.policy.AllowSelfApproval {
		filter.ExcludeRequesterID = actor.UserID
	}

	var out []*domain.ServiceRequest
	err := s.store.View(ctx, func(q repository.Queries) error {
		var err error
		out, err = q.ListRequests(ctx, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
