// Package domain holds the catering workflow entities, the request state
// machine, the capability table and the ledger arithmetic.
package domain

import "strings"

// Role is the closed set of user roles.
type Role string

const (
	RoleRequester      Role = "REQUESTER"
	RoleApprover       Role = "APPROVER"
	RoleFinanceOfficer Role = "FINANCE_OFFICER"
	RoleFinanceClerk   Role = "FINANCE_CLERK"
	RoleAdmin          Role = "ADMIN"
)

// Roles lists every valid role.
var Roles = []Role{RoleRequester, RoleApprover, RoleFinanceOfficer, RoleFinanceClerk, RoleAdmin}

// ParseRole normalises s and reports whether it names a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.Valid()
}

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// Capabilities is the permission set derived from a role.
type Capabilities struct {
	CanCreateRequest  bool `json:"canCreateRequest"`
	CanApproveRequest bool `json:"canApproveRequest"`
	CanCreateInvoice  bool `json:"canCreateInvoice"`
	CanCreatePayment  bool `json:"canCreatePayment"`
	CanViewDashboard  bool `json:"canViewDashboard"`
	CanManageUsers    bool `json:"canManageUsers"`
}

var capabilityTable = map[Role]Capabilities{
	RoleRequester: {
		CanCreateRequest: true,
	},
	RoleApprover: {
		CanCreateRequest:  true,
		CanApproveRequest: true,
	},
	RoleFinanceOfficer: {
		CanCreateRequest:  true,
		CanApproveRequest: true,
		CanCreateInvoice:  true,
		CanCreatePayment:  true,
		CanViewDashboard:  true,
		CanManageUsers:    true,
	},
	RoleFinanceClerk: {
		CanCreateRequest: true,
		CanCreateInvoice: true,
		CanCreatePayment: true,
	},
	RoleAdmin: {
		CanCreateRequest:  true,
		CanApproveRequest: true,
		CanCreateInvoice:  true,
		CanCreatePayment:  true,
		CanViewDashboard:  true,
		CanManageUsers:    true,
	},
}

// CapabilitiesFor returns the capability set for role. Unknown roles only
// get what every authenticated user gets.
func CapabilitiesFor(role Role) Capabilities {
	if caps, ok := capabilityTable[role]; ok {
		return caps
	}
	return Capabilities{CanCreateRequest: true}
}

// Actor is the verified caller of an operation. Capabilities are computed
// once, when the actor is built.
type Actor struct {
	UserID string
	Role   Role
	Caps   Capabilities
}

// NewActor builds an actor for a verified user id and stored role.
func NewActor(userID string, role Role) Actor {
	return Actor{UserID: userID, Role: role, Caps: CapabilitiesFor(role)}
}

// IsElevated reports whether the actor has any capability beyond creating requests.
func (a Actor) IsElevated() bool {
	c := a.Caps
	return c.CanApproveRequest || c.CanCreateInvoice || c.CanCreatePayment || c.CanManageUsers
}
