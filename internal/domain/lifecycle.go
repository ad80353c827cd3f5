package domain

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// Action names a request lifecycle operation. Transitioning actions are also
// the statekit event types.
type Action string

const (
	ActionCreate          Action = "CREATE"
	ActionEdit            Action = "EDIT"
	ActionSubmit          Action = "SUBMIT"
	ActionApprove         Action = "APPROVE"
	ActionReject          Action = "REJECT"
	ActionRequestRevision Action = "REQUEST_REVISION"
	ActionFulfill         Action = "FULFILL"
	ActionClose           Action = "CLOSE"
	ActionAttach          Action = "ATTACH"
)

// TransitionActions are the actions that move a request between states.
var TransitionActions = []Action{
	ActionSubmit, ActionApprove, ActionReject, ActionRequestRevision, ActionFulfill, ActionClose,
}

// requestTransitions is the declarative form of the lifecycle. requestMachine
// must describe exactly the same graph.
var requestTransitions = map[RequestStatus]map[Action]RequestStatus{
	RequestDraft: {
		ActionSubmit: RequestSubmitted,
	},
	RequestSubmitted: {
		ActionApprove:         RequestApproved,
		ActionReject:          RequestRejected,
		ActionRequestRevision: RequestNeedsRevision,
	},
	RequestNeedsRevision: {
		ActionApprove: RequestApproved,
		ActionReject:  RequestRejected,
		ActionSubmit:  RequestSubmitted,
	},
	RequestApproved: {
		ActionFulfill: RequestFulfilled,
	},
	RequestFulfilled: {
		ActionClose: RequestClosed,
	},
	RequestRejected: {},
	RequestClosed:   {},
}

func stateID(s RequestStatus) statekit.StateID { return statekit.StateID(s) }

func eventType(a Action) statekit.EventType { return statekit.EventType(a) }

// requestMachine builds the lifecycle machine starting at initial.
func requestMachine(initial RequestStatus) (*statekit.Interpreter[struct{}], error) {
	machine, err := statekit.NewMachine[struct{}]("service-request").
		WithInitial(stateID(initial)).
		State(stateID(RequestDraft)).
		On(eventType(ActionSubmit)).Target(stateID(RequestSubmitted)).
		Done().
		State(stateID(RequestSubmitted)).
		On(eventType(ActionApprove)).Target(stateID(RequestApproved)).
		On(eventType(ActionReject)).Target(stateID(RequestRejected)).
		On(eventType(ActionRequestRevision)).Target(stateID(RequestNeedsRevision)).
		Done().
		State(stateID(RequestNeedsRevision)).
		On(eventType(ActionApprove)).Target(stateID(RequestApproved)).
		On(eventType(ActionReject)).Target(stateID(RequestRejected)).
		On(eventType(ActionSubmit)).Target(stateID(RequestSubmitted)).
		Done().
		State(stateID(RequestApproved)).
		On(eventType(ActionFulfill)).Target(stateID(RequestFulfilled)).
		Done().
		State(stateID(RequestFulfilled)).
		On(eventType(ActionClose)).Target(stateID(RequestClosed)).
		Done().
		// Rejected requests are terminal; resubmission means a new request.
		State(stateID(RequestRejected)).
		Final().
		Done().
		State(stateID(RequestClosed)).
		Final().
		Done().
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build request state machine: %w", err)
	}
	return statekit.NewInterpreter(machine), nil
}

// NextStatus applies action to a request in current. ok is false when the
// action is not a declared transition for that status.
func NextStatus(current RequestStatus, action Action) (next RequestStatus, ok bool, err error) {
	if _, listed := requestTransitions[current][action]; !listed {
		return current, false, nil
	}
	next, err = machineTarget(current, action)
	if err != nil {
		return current, false, err
	}
	if next == current {
		return current, false, nil
	}
	return next, true, nil
}

// machineTarget returns the state the machine lands in after action.
func machineTarget(current RequestStatus, action Action) (RequestStatus, error) {
	interp, err := requestMachine(current)
	if err != nil {
		return current, err
	}
	interp.Start()
	interp.Send(statekit.Event{Type: eventType(action)})
	return RequestStatus(interp.State().Value), nil
}

// CanTransition reports whether action is declared for current.
func CanTransition(current RequestStatus, action Action) bool {
	_, ok := requestTransitions[current][action]
	return ok
}

