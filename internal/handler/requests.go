package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/pesio-ai/be-catering-requests/internal/domain"
	"github.com/pesio-ai/be-catering-requests/internal/errors"
	"github.com/pesio-ai/be-catering-requests/internal/service"
)

type requestBody struct {
	DepartmentID   string          `json:"departmentId"`
	Department     string          `json:"department"`
	EventName      string          `json:"eventName"`
	EventDate      string          `json:"eventDate"`
	Venue          string          `json:"venue"`
	AttendeeCount  int             `json:"attendeeCount"`
	EstimateAmount decimal.Decimal `json:"estimateAmount"`
	ServiceType    string          `json:"serviceType"`
	FundingSource  string          `json:"fundingSource"`
	Description    *string         `json:"description"`
	ContactPhone   *string         `json:"contactPhone"`
	SaveAsDraft    bool            `json:"saveAsDraft"`
}

func (b *requestBody) fields() (*service.RequestFields, error) {
	eventDate, err := parseDate("eventDate", b.EventDate)
	if err != nil {
		return nil, err
	}
	return &service.RequestFields{
		DepartmentID:   b.DepartmentID,
		DepartmentName: b.Department,
		EventName:      b.EventName,
		EventDate:      eventDate,
		Venue:          b.Venue,
		AttendeeCount:  b.AttendeeCount,
		EstimateAmount: b.EstimateAmount,
		ServiceType:    b.ServiceType,
		FundingSource:  b.FundingSource,
		Description:    b.Description,
		ContactPhone:   b.ContactPhone,
	}, nil
}

type transitionBody struct {
	Comments *string `json:"comments"`
	Reason   *string `json:"reason"`
}

type requestResponse struct {
	*domain.ServiceRequest
	AllowedActions []domain.Action `json:"allowedActions"`
}

// CreateRequest handles POST /api/v1/requests
func (h *HTTPHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var body requestBody
	if err := decode(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	fields, err := body.fields()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	actor := actorFrom(r)
	sr, err := h.svc.Requests.CreateRequest(r.Context(), actor, &service.CreateRequestRequest{
		RequestFields: *fields,
		SaveAsDraft:   body.SaveAsDraft,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, h.withActions(actor, sr))
}

// EditRequest handles PUT /api/v1/requests/{id}
func (h *HTTPHandler) EditRequest(w http.ResponseWriter, r *http.Request) {
	var body requestBody
	if err := decode(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	fields, err := body.fields()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	actor := actorFrom(r)
	sr, err := h.svc.Requests.EditRequest(r.Context(), actor, chi.URLParam(r, "id"), fields)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, h.withActions(actor, sr))
}

// GetRequest handles GET /api/v1/requests/{id}
func (h *HTTPHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	sr, err := h.svc.Requests.GetRequest(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, h.withActions(actor, sr))
}

// ListRequests handles GET /api/v1/requests
func (h *HTTPHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pageParams(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	requests, err := h.svc.Requests.ListRequests(r.Context(), actorFrom(r), &service.ListRequestsRequest{
		Status:       domain.RequestStatus(r.URL.Query().Get("status")),
		DepartmentID: r.URL.Query().Get("department_id"),
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeList(w, requests)
}

// GetRequestHistory handles GET /api/v1/requests/{id}/history
func (h *HTTPHandler) GetRequestHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.svc.Requests.GetRequestHistory(r.Context(), actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeList(w, history)
}

// ListPendingApprovals handles GET /api/v1/approvals/pending
func (h *HTTPHandler) ListPendingApprovals(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pageParams(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	requests, err := h.svc.Requests.ListPendingApprovals(r.Context(), actorFrom(r), limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeList(w, requests)
}

type transitionFunc func(ctx context.Context, actor domain.Actor, req *service.TransitionRequest) (*domain.ServiceRequest, error)

// transitionHandler adapts a lifecycle operation to a POST endpoint with an
// optional comments body.
func (h *HTTPHandler) transitionHandler(fn transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body transitionBody
		if err := decodeOptional(r, &body); err != nil {
			h.writeError(w, r, err)
			return
		}
		comments := body.Comments
		if comments == nil {
			comments = body.Reason
		}

		actor := actorFrom(r)
		sr, err := fn(r.Context(), actor, &service.TransitionRequest{
			ID:       chi.URLParam(r, "id"),
			Comments: comments,
		})
		if err != nil {
			h.writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, h.withActions(actor, sr))
	}
}

// SubmitRequest handles POST /api/v1/requests/{id}/submit
func (h *HTTPHandler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	h.transitionHandler(h.svc.Requests.SubmitRequest)(w, r)
}

// ApproveRequest handles POST /api/v1/requests/{id}/approve
func (h *HTTPHandler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.transitionHandler(h.svc.Requests.ApproveRequest)(w, r)
}

// RejectRequest handles POST /api/v1/requests/{id}/reject. The body carries
// the reason as "reason" or "comments".
func (h *HTTPHandler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	h.transitionHandler(h.svc.Requests.RejectRequest)(w, r)
}

// RequestRevision handles POST /api/v1/requests/{id}/revision
func (h *HTTPHandler) RequestRevision(w http.ResponseWriter, r *http.Request) {
	h.transitionHandler(h.svc.Requests.RequestRevision)(w, r)
}

// FulfillRequest handles POST /api/v1/requests/{id}/fulfill
func (h *HTTPHandler) FulfillRequest(w http.ResponseWriter, r *http.Request) {
	h.transitionHandler(h.svc.Requests.FulfillRequest)(w, r)
}

// CloseRequest handles POST /api/v1/requests/{id}/close
func (h *HTTPHandler) CloseRequest(w http.ResponseWriter, r *http.Request) {
	h.transitionHandler(h.svc.Requests.CloseRequest)(w, r)
}

func (h *HTTPHandler) withActions(actor domain.Actor, sr *domain.ServiceRequest) requestResponse {
	actions := h.svc.Requests.Policy().AllowedActions(actor, sr)
	if actions == nil {
		actions = []domain.Action{}
	}
	return requestResponse{ServiceRequest: sr, AllowedActions: actions}
}

// requireQuery returns the named query parameter or a validation error.
func requireQuery(r *http.Request, name string) (string, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return "", errors.InvalidInput(name, name+" is required")
	}
	return v, nil
}
