package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pesio-ai/be-catering-requests/internal/domain"
	"github.com/pesio-ai/be-catering-requests/internal/service"
)

type meResponse struct {
	*domain.User
	Capabilities domain.Capabilities `json:"capabilities"`
}

type updateMeBody struct {
	Phone *string `json:"phone"`
}

type updateRoleBody struct {
	Role string `json:"role"`
}

type createDepartmentBody struct {
	Name       string  `json:"name"`
	Code       string  `json:"code"`
	CostCentre *string `json:"costCentre"`
	ApproverID *string `json:"approverId"`
}

// GetMe handles GET /api/v1/me
func (h *HTTPHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	user, err := h.svc.Users.GetUser(r.Context(), actor.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, meResponse{User: user, Capabilities: actor.Caps})
}

// UpdateMe handles PATCH /api/v1/me. Only the phone number is self-service.
func (h *HTTPHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var body updateMeBody
	if err := decode(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}

	actor := actorFrom(r)
	user, err := h.svc.Users.UpdatePhone(r.Context(), actor, body.Phone)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, meResponse{User: user, Capabilities: actor.Caps})
}

// UpdateUserRole handles PUT /api/v1/users/{id}/role
func (h *HTTPHandler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	var body updateRoleBody
	if err := decode(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.svc.Users.UpdateUserRole(r.Context(), actorFrom(r), chi.URLParam(r, "id"), body.Role)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// ListDepartments handles GET /api/v1/departments
func (h *HTTPHandler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := h.svc.Users.ListDepartments(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeList(w, departments)
}

// CreateDepartment handles POST /api/v1/departments
func (h *HTTPHandler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	var body createDepartmentBody
	if err := decode(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}

	dept, err := h.svc.Users.CreateDepartment(r.Context(), actorFrom(r), &service.CreateDepartmentRequest{
		Name:       body.Name,
		Code:       body.Code,
		CostCentre: body.CostCentre,
		ApproverID: body.ApproverID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dept)
}
