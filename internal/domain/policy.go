package domain

import (
	"fmt"

	"github.com/pesio-ai/be-catering-requests/internal/errors"
)

// Policy holds the configurable parts of the request guards.
type Policy struct {
	AllowSelfApproval bool
}

// Authorize checks that actor may perform action on req, ignoring status.
func (p Policy) Authorize(actor Actor, req *ServiceRequest, action Action) error {
	owner := req.RequesterID == actor.UserID

	switch action {
	case ActionEdit, ActionSubmit:
		if !owner {
			return errors.Forbidden(fmt.Sprintf("only the requester can %s this request", verb(action)))
		}
	case ActionApprove, ActionReject, ActionRequestRevision:
		if !actor.Caps.CanApproveRequest {
			return errors.Forbidden(fmt.Sprintf("role %s cannot %s requests", actor.Role, verb(action)))
		}
		if owner && !p.AllowSelfApproval {
			return errors.Forbidden(fmt.Sprintf("cannot %s your own request", verb(action))).
				WithDetail("request_id", req.ID)
		}
	case ActionFulfill, ActionClose:
		if !actor.Caps.CanCreatePayment {
			return errors.Forbidden(fmt.Sprintf("role %s cannot %s requests", actor.Role, verb(action)))
		}
	case ActionAttach:
		if !owner && !actor.IsElevated() {
			return errors.Forbidden("only the requester or staff can attach files to this request")
		}
	default:
		return errors.Forbidden(fmt.Sprintf("unknown action %s", action))
	}
	return nil
}

// AllowedActions lists what actor can do to req right now.
func (p Policy) AllowedActions(actor Actor, req *ServiceRequest) []Action {
	actions := make([]Action, 0, 4)
	if req.Status.Editable() && p.Authorize(actor, req, ActionEdit) == nil {
		actions = append(actions, ActionEdit)
	}
	for _, a := range TransitionActions {
		if CanTransition(req.Status, a) && p.Authorize(actor, req, a) == nil {
			actions = append(actions, a)
		}
	}
	if !req.Status.Terminal() && p.Authorize(actor, req, ActionAttach) == nil {
		actions = append(actions, ActionAttach)
	}
	return actions
}

// TransitionConflict builds the Conflict error for action in status.
func TransitionConflict(req *ServiceRequest, action Action) *errors.Error {
	return errors.Conflict(fmt.Sprintf("cannot %s request with status '%s'", verb(action), req.Status)).
		WithDetail("request_id", req.ID).
		WithDetail("current_status", string(req.Status))
}

func verb(a Action) string {
	switch a {
	case ActionRequestRevision:
		return "request revision of"
	case ActionCreate:
		return "create"
	case ActionEdit:
		return "edit"
	case ActionSubmit:
		return "submit"
	case ActionApprove:
		return "approve"
	case ActionReject:
		return "reject"
	case ActionFulfill:
		return "fulfill"
	case ActionClose:
		return "close"
	case ActionAttach:
		return "attach files to"
	}
	return string(a)
}
