package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pesio-ai/be-catering-requests/internal/domain"
	"github.com/pesio-ai/be-catering-requests/internal/errors"
	"github.com/pesio-ai/be-catering-requests/internal/logger"
	"github.com/pesio-ai/be-catering-requests/internal/repository"
)

// RequestService drives the service request lifecycle.
type RequestService struct {
	store   repository.Store
	policy  domain.Policy
	emitter *Emitter
	log     *logger.Logger
}

// NewRequestService creates a new request service
func NewRequestService(
	store repository.Store,
	policy domain.Policy,
	emitter *Emitter,
	log *logger.Logger,
) *RequestService {
	return &RequestService{
		store:   store,
		policy:  policy,
		emitter: emitter,
		log:     log,
	}
}

// RequestFields are the requester-editable fields of a service request.
type RequestFields struct {
	DepartmentID   string
	DepartmentName string
	EventName      string
	EventDate      time.Time
	Venue          string
	AttendeeCount  int
	EstimateAmount decimal.Decimal
	ServiceType    string
	FundingSource  string
	Description    *string
	ContactPhone   *string
}

// CreateRequestRequest represents a create service request request
type CreateRequestRequest struct {
	RequestFields
	SaveAsDraft bool
}

// TransitionRequest carries the optional input of a lifecycle transition.
type TransitionRequest struct {
	ID       string
	Comments *string
}

// ListRequestsRequest represents a list requests request
type ListRequestsRequest struct {
	Status       domain.RequestStatus
	DepartmentID string
	Limit        int
	Offset       int
}

func (f *RequestFields) validate() error {
	f.EventName = strings.TrimSpace(f.EventName)
	f.Venue = strings.TrimSpace(f.Venue)
	f.ServiceType = strings.TrimSpace(f.ServiceType)
	f.FundingSource = strings.TrimSpace(f.FundingSource)
	f.DepartmentID = strings.TrimSpace(f.DepartmentID)
	f.DepartmentName = strings.TrimSpace(f.DepartmentName)
	f.Description = trimmed(f.Description)
	f.ContactPhone = trimmed(f.ContactPhone)

	switch {
	case f.DepartmentID == "" && f.DepartmentName == "":
		return errors.InvalidInput("department", "department is required")
	case f.EventName == "":
		return errors.InvalidInput("eventName", "event name is required")
	case f.EventDate.IsZero():
		return errors.InvalidInput("eventDate", "event date is required")
	case f.Venue == "":
		return errors.InvalidInput("venue", "venue is required")
	case f.AttendeeCount < 1:
		return errors.InvalidInput("attendeeCount", "attendee count must be at least 1")
	case f.EstimateAmount.IsNegative():
		return errors.InvalidInput("estimateAmount", "estimate amount cannot be negative")
	case f.ServiceType == "":
		return errors.InvalidInput("serviceType", "service type is required")
	case f.FundingSource == "":
		return errors.InvalidInput("fundingSource", "funding source is required")
	case f.ContactPhone != nil && !validPhone(*f.ContactPhone):
		return errors.InvalidInput("contactPhone", "contact phone is not a valid phone number")
	}
	return nil
}

func (f *RequestFields) apply(r *domain.ServiceRequest) {
	r.EventName = f.EventName
	r.EventDate = f.EventDate
	r.Venue = f.Venue
	r.AttendeeCount = f.AttendeeCount
	r.EstimateAmount = f.EstimateAmount
	r.ServiceType = f.ServiceType
	r.FundingSource = f.FundingSource
	r.Description = f.Description
	r.ContactPhone = f.ContactPhone
}

// resolveDepartment finds the department by id, then by name, and creates
// it when only an unknown name was given.
func resolveDepartment(ctx context.Context, q repository.Queries, id, name string) (*domain.Department, error) {
	if id != "" {
		dept, err := q.GetDepartment(ctx, id)
		if errors.Is(err, errors.ErrCodeNotFound) {
			return nil, errors.InvalidInput("departmentId", fmt.Sprintf("department '%s' does not exist", id))
		}
		return dept, err
	}

	dept, err := q.FindDepartmentByName(ctx, name)
	if err == nil {
		return dept, nil
	}
	if !errors.Is(err, errors.ErrCodeNotFound) {
		return nil, err
	}

	dept = &domain.Department{
		ID:        newID(),
		Name:      name,
		Code:      departmentCode(name),
		CreatedAt: now(),
	}
	if err := q.CreateDepartment(ctx, dept); err != nil {
		return nil, err
	}
	return dept, nil
}

// ── Create / edit ────────────────────────────────────────────────────────────

// CreateRequest creates a service request owned by the actor. It starts in
// SUBMITTED, or DRAFT when SaveAsDraft is set.
func (s *RequestService) CreateRequest(ctx context.Context, actor domain.Actor, req *CreateRequestRequest) (*domain.ServiceRequest, error) {
	if !actor.Caps.CanCreateRequest {
		return nil, errors.Forbidden(fmt.Sprintf("role %s cannot create requests", actor.Role))
	}
	if err := req.validate(); err != nil {
		record(entityRequest, string(domain.ActionCreate), err)
		return nil, err
	}

	ts := now()
	sr := &domain.ServiceRequest{
		ID:          newID(),
		RequesterID: actor.UserID,
		Status:      domain.RequestSubmitted,
		SubmittedAt: &ts,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	if req.SaveAsDraft {
		sr.Status = domain.RequestDraft
		sr.SubmittedAt = nil
	}
	req.apply(sr)

	var events []domain.Event
	err := s.store.InTransaction(ctx, func(q repository.Queries) error {
		dept, err := resolveDepartment(ctx, q, req.DepartmentID, req.DepartmentName)
		if err != nil {
			return err
		}
		sr.DepartmentID = dept.ID

		if err := q.CreateRequest(ctx, sr); err != nil {
			return err
		}
		if err := q.AppendHistory(ctx, historyEntry(sr, domain.ActionCreate, nil, actor.UserID, nil)); err != nil {
			return err
		}

		if sr.Status == domain.RequestSubmitted {
			ev, err := awaitingApprovalEvent(ctx, q, sr, domain.NotifyRequestCreated, "New catering request")
			if err != nil {
				return err
			}
			events = append(events, ev)
		}
		return nil
	})
	record(entityRequest, string(domain.ActionCreate), err)
	if err != nil {
		return nil, err
	}

	s.emitter.Emit(ctx, actor.UserID, events)

	s.log.Info().
		Str("request_id", sr.ID).
		Str("requester_id", sr.RequesterID).
		Str("department_id", sr.DepartmentID).
		Str("status", string(sr.Status)).
		Int("attendee_count", sr.AttendeeCount).
		Str("estimate_amount", sr.EstimateAmount.StringFixed(2)).
		Msg("Request created")

	return sr, nil
}

// EditRequest replaces the editable fields of a request. Only the owner may
// edit, and only while the request is DRAFT, SUBMITTED or NEEDS_REVISION.
func (s *RequestService) EditRequest(ctx context.Context, actor domain.Actor, id string, fields *RequestFields) (*domain.ServiceRequest, error) {
	if err := fields.validate(); err != nil {
		record(entityRequest, string(domain.ActionEdit), err)
		return nil, err
	}

	var sr *domain.ServiceRequest
	err := s.store.InTransaction(ctx, func(q repository.Queries) error {
		var err error
		sr, err = q.LockRequest(ctx, id)
		if err != nil {
			return err
		}
		if err := s.policy.Authorize(actor, sr, domain.ActionEdit); err != nil {
			return err
		}
		if !sr.Status.Editable() {
			return domain.TransitionConflict(sr, domain.ActionEdit)
		}

		dept, err := resolveDepartment(ctx, q, fields.DepartmentID, fields.DepartmentName)
		if err != nil {
			return err
		}
		sr.DepartmentID = dept.ID
		fields.apply(sr)
		sr.UpdatedAt = now()

		if err := q.UpdateRequest(ctx, sr); err != nil {
			return err
		}
		return q.AppendHistory(ctx, historyEntry(sr, domain.ActionEdit, &sr.Status, actor.UserID, nil))
	})
	record(entityRequest, string(domain.ActionEdit), err)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("request_id", sr.ID).
		Str("edited_by", actor.UserID).
		Msg("Request edited")

	return sr, nil
}

// ── Transitions ──────────────────────────────────────────────────────────────

// SubmitRequest moves a DRAFT or NEEDS_REVISION request to SUBMITTED.
func (s *RequestService) SubmitRequest(ctx context.Context, actor domain.Actor, req *TransitionRequest) (*domain.ServiceRequest, error) {
	return s.transition(ctx, actor, req, domain.ActionSubmit,
		func(sr *domain.ServiceRequest, ts time.Time) {
			sr.SubmittedAt = &ts
		},
		func(ctx context.Context, q repository.Queries, sr *domain.ServiceRequest, from domain.RequestStatus) (domain.Event, error) {
			title := "New catering request"
			if from == domain.RequestNeedsRevision {
				title = "Catering request resubmitted"
			}
			return awaitingApprovalEvent(ctx, q, sr, domain.NotifyRequestSubmitted, title)
		},
	)
}

// ApproveRequest approves a SUBMITTED or NEEDS_REVISION request.
func (s *RequestService) ApproveRequest(ctx context.Context, actor domain.Actor, req *TransitionRequest) (*domain.ServiceRequest, error) {
	return s.transition(ctx, actor, req, domain.ActionApprove,
		func(sr *domain.ServiceRequest, ts time.Time) {
			sr.ApproverID = strPtr(actor.UserID)
			sr.ApprovalDate = &ts
			if c := trimmed(req.Comments); c != nil {
				sr.ReviewComments = c
			}
		},
		requesterEvent(domain.NotifyRequestApproved, "Catering request approved", "has been approved."),
	)
}

// RejectRequest rejects a SUBMITTED or NEEDS_REVISION request. A reason is required.
func (s *RequestService) RejectRequest(ctx context.Context, actor domain.Actor, req *TransitionRequest) (*domain.ServiceRequest, error) {
	reason := trimmed(req.Comments)
	if reason == nil {
		err := errors.InvalidInput("reason", "a rejection reason is required")
		record(entityRequest, string(domain.ActionReject), err)
		return nil, err
	}
	return s.transition(ctx, actor, req, domain.ActionReject,
		func(sr *domain.ServiceRequest, ts time.Time) {
			sr.ApproverID = strPtr(actor.UserID)
			sr.RejectionReason = reason
		},
		requesterEvent(domain.NotifyRequestRejected, "Catering request rejected", "has been rejected: "+*reason),
	)
}

// RequestRevision sends a SUBMITTED request back to its owner.
func (s *RequestService) RequestRevision(ctx context.Context, actor domain.Actor, req *TransitionRequest) (*domain.ServiceRequest, error) {
	return s.transition(ctx, actor, req, domain.ActionRequestRevision,
		func(sr *domain.ServiceRequest, _ time.Time) {
			sr.ReviewComments = trimmed(req.Comments)
		},
		requesterEvent(domain.NotifyRequestRevision, "Revision requested", "needs changes before it can be approved."),
	)
}

// FulfillRequest marks an APPROVED request as delivered.
func (s *RequestService) FulfillRequest(ctx context.Context, actor domain.Actor, req *TransitionRequest) (*domain.ServiceRequest, error) {
	return s.transition(ctx, actor, req, domain.ActionFulfill,
		func(sr *domain.ServiceRequest, ts time.Time) {
			sr.FulfilledAt = &ts
		},
		requesterEvent(domain.NotifyRequestFulfilled, "Catering request fulfilled", "has been fulfilled."),
	)
}

// CloseRequest closes a FULFILLED request.
func (s *RequestService) CloseRequest(ctx context.Context, actor domain.Actor, req *TransitionRequest) (*domain.ServiceRequest, error) {
	return s.transition(ctx, actor, req, domain.ActionClose,
		func(sr *domain.ServiceRequest, ts time.Time) {
			sr.ClosedAt = &ts
		},
		nil,
	)
}

// eventFunc builds the notification for a transition out of from.
type eventFunc func(ctx context.Context, q repository.Queries, sr *domain.ServiceRequest, from domain.RequestStatus) (domain.Event, error)

func requesterEvent(t domain.NotificationType, title, suffix string) eventFunc {
	return func(_ context.Context, _ repository.Queries, sr *domain.ServiceRequest, _ domain.RequestStatus) (domain.Event, error) {
		return domain.Event{
			Type:       t,
			Recipients: []string{sr.RequesterID},
			Title:      title,
			Message:    "Your request \"" + sr.EventName + "\" " + suffix,
			RequestID:  strPtr(sr.ID),
		}, nil
	}
}

// transition runs one lifecycle step atomically: lock, authorize, check the
// state machine, mutate, append history. Nothing is written on failure.
func (s *RequestService) transition(
	ctx context.Context,
	actor domain.Actor,
	req *TransitionRequest,
	action domain.Action,
	mutate func(sr *domain.ServiceRequest, ts time.Time),
	notify eventFunc,
) (*domain.ServiceRequest, error) {
	var sr *domain.ServiceRequest
	var from domain.RequestStatus
	var events []domain.Event

	err := s.store.InTransaction(ctx, func(q repository.Queries) error {
		var err error
		sr, err = q.LockRequest(ctx, req.ID)
		if err != nil {
			return err
		}
		if err := s.policy.Authorize(actor, sr, action); err != nil {
			return err
		}

		next, ok, err := domain.NextStatus(sr.Status, action)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to evaluate request lifecycle")
		}
		if !ok {
			return domain.TransitionConflict(sr, action)
		}

		from = sr.Status
		ts := now()
		sr.Status = next
		sr.UpdatedAt = ts
		if mutate != nil {
			mutate(sr, ts)
		}

		if err := q.UpdateRequest(ctx, sr); err != nil {
			return err
		}
		if err := q.AppendHistory(ctx, historyEntry(sr, action, &from, actor.UserID, trimmed(req.Comments))); err != nil {
			return err
		}

		if notify != nil {
			ev, err := notify(ctx, q, sr, from)
			if err != nil {
				return err
			}
			events = append(events, ev)
		}
		return nil
	})
	record(entityRequest, string(action), err)
	if err != nil {
		return nil, err
	}

	s.emitter.Emit(ctx, actor.UserID, events)

	s.log.Info().
		Str("request_id", sr.ID).
		Str("action", string(action)).
		Str("from_status", string(from)).
		Str("to_status", string(sr.Status)).
		Str("actor_id", actor.UserID).
		Msg("Request transitioned")

	return sr, nil
}

func historyEntry(sr *domain.ServiceRequest, action domain.Action, from *domain.RequestStatus, actorID string, comments *string) *domain.RequestHistoryEntry {
	var fromCopy *domain.RequestStatus
	if from != nil {
		f := *from
		fromCopy = &f
	}
	return &domain.RequestHistoryEntry{
		ID:         newID(),
		RequestID:  sr.ID,
		Action:     action,
		FromStatus: fromCopy,
		ToStatus:   sr.Status,
		ActorID:    actorID,
		Comments:   comments,
		CreatedAt:  sr.UpdatedAt,
	}
}

// ── Reads ────────────────────────────────────────────────────────────────────

// canView reports whether actor may read sr.
func canView(actor domain.Actor, sr *domain.ServiceRequest) bool {
	return sr.RequesterID == actor.UserID || actor.IsElevated() || actor.Caps.CanViewDashboard
}

// GetRequest retrieves a request visible to the actor.
func (s *RequestService) GetRequest(ctx context.Context, actor domain.Actor, id string) (*domain.ServiceRequest, error) {
	var sr *domain.ServiceRequest
	err := s.store.View(ctx, func(q repository.Queries) error {
		var err error
		sr, err = q.GetRequest(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !canView(actor, sr) {
		return nil, errors.Forbidden("you cannot view this request")
	}
	return sr, nil
}

// ListRequests lists requests. Requesters only see their own.
func (s *RequestService) ListRequests(ctx context.Context, actor domain.Actor, req *ListRequestsRequest) ([]*domain.ServiceRequest, error) {
	if req.Status != "" && !req.Status.Valid() {
		return nil, errors.InvalidInput("status", fmt.Sprintf("unknown request status '%s'", req.Status))
	}
	limit, offset := page(req.Limit, req.Offset)

	filter := repository.RequestFilter{
		DepartmentID: req.DepartmentID,
		Limit:        limit,
		Offset:       offset,
	}
	if req.Status != "" {
		filter.Statuses = []domain.RequestStatus{req.Status}
	}
	if !actor.IsElevated() && !actor.Caps.CanViewDashboard {
		filter.RequesterID = actor.UserID
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

// GetRequestHistory returns the transition history of a request, oldest first.
func (s *RequestService) GetRequestHistory(ctx context.Context, actor domain.Actor, id string) ([]*domain.RequestHistoryEntry, error) {
	var entries []*domain.RequestHistoryEntry
	err := s.store.View(ctx, func(q repository.Queries) error {
		sr, err := q.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		if !canView(actor, sr) {
			return errors.Forbidden("you cannot view this request")
		}
		entries, err = q.ListHistory(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// AllowedActions lists what the actor may do to the request right now.
func (s *RequestService) AllowedActions(ctx context.Context, actor domain.Actor, id string) ([]domain.Action, error) {
	sr, err := s.GetRequest(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.policy.AllowedActions(actor, sr), nil
}

// Policy returns the guard policy the service enforces.
func (s *RequestService) Policy() domain.Policy {
	return s.policy
}
