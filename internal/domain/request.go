package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RequestStatus is the lifecycle state of a ServiceRequest.
type RequestStatus string

const (
	RequestDraft         RequestStatus = "DRAFT"
	RequestSubmitted     RequestStatus = "SUBMITTED"
	RequestNeedsRevision RequestStatus = "NEEDS_REVISION"
	RequestApproved      RequestStatus = "APPROVED"
	RequestRejected      RequestStatus = "REJECTED"
	RequestFulfilled     RequestStatus = "FULFILLED"
	RequestClosed        RequestStatus = "CLOSED"
)

// RequestStatuses lists every lifecycle state.
var RequestStatuses = []RequestStatus{
	RequestDraft, RequestSubmitted, RequestNeedsRevision, RequestApproved,
	RequestRejected, RequestFulfilled, RequestClosed,
}

// Valid reports whether s is a known request status.
func (s RequestStatus) Valid() bool {
	for _, known := range RequestStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Editable reports whether the owner may still change the request fields.
func (s RequestStatus) Editable() bool {
	return s == RequestDraft || s == RequestSubmitted || s == RequestNeedsRevision
}

// Terminal reports whether no further work happens on the request.
func (s RequestStatus) Terminal() bool {
	return s == RequestRejected || s == RequestClosed
}

// AwaitingApproval reports whether approvers should see the request.
func (s RequestStatus) AwaitingApproval() bool {
	return s == RequestSubmitted || s == RequestNeedsRevision
}

// User is a person known to the service. Created on first authenticated access.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     *string   `json:"phone,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Department groups requests and optionally names the approver.
type Department struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Code       string    `json:"code"`
	CostCentre *string   `json:"costCentre,omitempty"`
	ApproverID *string   `json:"approverId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ServiceRequest is a catering ask tied to one event, department and requester.
type ServiceRequest struct {
	ID              string          `json:"id"`
	RequesterID     string          `json:"requesterId"`
	DepartmentID    string          `json:"departmentId"`
	EventName       string          `json:"eventName"`
	EventDate       time.Time       `json:"eventDate"`
	Venue           string          `json:"venue"`
	AttendeeCount   int             `json:"attendeeCount"`
	EstimateAmount  decimal.Decimal `json:"estimateAmount"`
	ServiceType     string          `json:"serviceType"`
	FundingSource   string          `json:"fundingSource"`
	Description     *string         `json:"description,omitempty"`
	ContactPhone    *string         `json:"contactPhone,omitempty"`
	Status          RequestStatus   `json:"status"`
	RejectionReason *string         `json:"rejectionReason,omitempty"`
	ReviewComments  *string         `json:"reviewComments,omitempty"`
	ApproverID      *string         `json:"approverId,omitempty"`
	ApprovalDate    *time.Time      `json:"approvalDate,omitempty"`
	SubmittedAt     *time.Time      `json:"submittedAt,omitempty"`
	FulfilledAt     *time.Time      `json:"fulfilledAt,omitempty"`
	ClosedAt        *time.Time      `json:"closedAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Clone returns a deep copy.
func (r *ServiceRequest) Clone() *ServiceRequest {
	if r == nil {
		return nil
	}
	c := *r
	c.Description = cloneString(r.Description)
	c.ContactPhone = cloneString(r.ContactPhone)
	c.RejectionReason = cloneString(r.RejectionReason)
	c.ReviewComments = cloneString(r.ReviewComments)
	c.ApproverID = cloneString(r.ApproverID)
	c.ApprovalDate = cloneTime(r.ApprovalDate)
	c.SubmittedAt = cloneTime(r.SubmittedAt)
	c.FulfilledAt = cloneTime(r.FulfilledAt)
	c.ClosedAt = cloneTime(r.ClosedAt)
	return &c
}

// RequestHistoryEntry is one immutable record of a lifecycle transition.
type RequestHistoryEntry struct {
	ID         string         `json:"id"`
	RequestID  string         `json:"requestId"`
	Action     Action         `json:"action"`
	FromStatus *RequestStatus `json:"fromStatus,omitempty"`
	ToStatus   RequestStatus  `json:"toStatus"`
	ActorID    string         `json:"actorId"`
	Comments   *string        `json:"comments,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
