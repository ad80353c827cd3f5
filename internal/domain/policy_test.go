package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pesio-ai/be-catering-requests/internal/errors"
)

func TestCapabilitiesFor(t *testing.T) {
	tests := []struct {
		role Role
		want Capabilities
	}{
		{RoleRequester, Capabilities{CanCreateRequest: true}},
		{RoleApprover, Capabilities{CanCreateRequest: true, CanApproveRequest: true}},
		{RoleFinanceClerk, Capabilities{CanCreateRequest: true, CanCreateInvoice: true, CanCreatePayment: true}},
		{RoleFinanceOfficer, Capabilities{true, true, true, true, true, true}},
		{RoleAdmin, Capabilities{true, true, true, true, true, true}},
		{Role("SUPERUSER"), Capabilities{CanCreateRequest: true}},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.want, CapabilitiesFor(tt.role))
		})
	}
}

func TestParseRole(t *testing.T) {
	r, ok := ParseRole(" finance_officer ")
	assert.True(t, ok)
	assert.Equal(t, RoleFinanceOfficer, r)

	_, ok = ParseRole("root")
	assert.False(t, ok)
}

func TestAuthorize(t *testing.T) {
	req := &ServiceRequest{ID: "r1", RequesterID: "owner", Status: RequestSubmitted}
	owner := NewActor("owner", RoleRequester)
	approver := NewActor("approver", RoleApprover)
	clerk := NewActor("clerk", RoleFinanceClerk)
	stranger := NewActor("stranger", RoleRequester)

	p := Policy{}

	assert.NoError(t, p.Authorize(owner, req, ActionEdit))
	assert.True(t, errors.Is(p.Authorize(stranger, req, ActionEdit), errors.ErrCodeForbidden))

	assert.NoError(t, p.Authorize(approver, req, ActionApprove))
	assert.True(t, errors.Is(p.Authorize(owner, req, ActionApprove), errors.ErrCodeForbidden))
	assert.True(t, errors.Is(p.Authorize(clerk, req, ActionReject), errors.ErrCodeForbidden))

	assert.NoError(t, p.Authorize(clerk, req, ActionFulfill))
	assert.True(t, errors.Is(p.Authorize(approver, req, ActionFulfill), errors.ErrCodeForbidden))

	assert.NoError(t, p.Authorize(clerk, req, ActionAttach))
	assert.True(t, errors.Is(p.Authorize(stranger, req, ActionAttach), errors.ErrCodeForbidden))
}

func TestAuthorize_SelfApproval(t *testing.T) {
	self := NewActor("u1", RoleApprover)
	req := &ServiceRequest{ID: "r1", RequesterID: "u1", Status: RequestSubmitted}

	err := Policy{}.Authorize(self, req, ActionApprove)
	assert.True(t, errors.Is(err, errors.ErrCodeForbidden))

	assert.NoError(t, Policy{AllowSelfApproval: true}.Authorize(self, req, ActionApprove))
}

func TestAllowedActions(t *testing.T) {
	p := Policy{}
	owner := NewActor("owner", RoleRequester)
	approver := NewActor("approver", RoleApprover)
	officer := NewActor("officer", RoleFinanceOfficer)

	submitted := &ServiceRequest{RequesterID: "owner", Status: RequestSubmitted}
	assert.Equal(t, []Action{ActionEdit, ActionAttach}, p.AllowedActions(owner, submitted))
	assert.Equal(t,
		[]Action{ActionApprove, ActionReject, ActionRequestRevision, ActionAttach},
		p.AllowedActions(approver, submitted))

	approved := &ServiceRequest{RequesterID: "owner", Status: RequestApproved}
	assert.Equal(t, []Action{ActionFulfill, ActionAttach}, p.AllowedActions(officer, approved))
	assert.Equal(t, []Action{ActionAttach}, p.AllowedActions(owner, approved))

	rejected := &ServiceRequest{RequesterID: "owner", Status: RequestRejected}
	assert.Empty(t, p.AllowedActions(officer, rejected))
}
