package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesio-ai/be-catering-requests/internal/auth"
	"github.com/pesio-ai/be-catering-requests/internal/domain"
	"github.com/pesio-ai/be-catering-requests/internal/errors"
)

func TestEnsureUser(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, domain.Policy{})

	u, err := h.users.EnsureUser(ctx, &auth.Identity{Subject: "u1", Email: "ada@uni.edu", Name: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleRequester, u.Role)
	assert.Nil(t, u.Phone)

	u, err = h.users.EnsureUser(ctx, &auth.Identity{Subject: "u1", Email: "ada@uni.edu", Name: "Ada Lovelace", Phone: "+44 20 7946 0000"})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", u.Name)
	require.NotNil(t, u.Phone)
	assert.Equal(t, "+44 20 7946 0000", *u.Phone)

	bursar, err := h.users.EnsureUser(ctx, &auth.Identity{Subject: "u2", Email: "bursar@uni.edu"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleFinanceOfficer, bursar.Role)

	root, err := h.users.EnsureUser(ctx, &auth.Identity{Subject: "u3", Email: "ROOT@uni.edu"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, root.Role)

	_, err = h.users.EnsureUser(ctx, &auth.Identity{})
	assert.True(t, errors.Is(err, errors.ErrCodeUnauthorized))
}

func TestEnsureUser_RoleNeverFollowsLogin(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, domain.Policy{})
	officer := h.actor(t, "officer", domain.RoleFinanceOfficer)

	_, err := h.users.EnsureUser(ctx, &auth.Identity{Subject: "u1", Email: "ada@uni.edu"})
	require.NoError(t, err)
	_, err = h.users.UpdateUserRole(ctx, officer, "u1", "approver")
	require.NoError(t, err)

	// Even an email on the admin list does not change an existing role.
	u, err := h.users.EnsureUser(ctx, &auth.Identity{Subject: "u1", Email: "root@uni.edu"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleApprover, u.Role)
	assert.Equal(t, "root@uni.edu", u.Email)
}

func TestUpdateUserRole(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, domain.Policy{})
	requester := h.actor(t, "req-1", domain.RoleRequester)
	clerk := h.actor(t, "clerk", domain.RoleFinanceClerk)
	admin := h.actor(t, "admin", domain.RoleAdmin)

	_, err := h.users.UpdateUserRole(ctx, requester, "req-1", "ADMIN")
	assert.True(t, errors.Is(err, errors.ErrCodeForbidden))
	_, err = h.users.UpdateUserRole(ctx, clerk, "req-1", "ADMIN")
	assert.True(t, errors.Is(err, errors.ErrCodeForbidden))

	_, err = h.users.UpdateUserRole(ctx, admin, "req-1", "SUPERUSER")
	assert.True(t, errors.Is(err, errors.ErrCodeValidation))
	_, err = h.users.UpdateUserRole(ctx, admin, "missing", "APPROVER")
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))

	u, err := h.users.UpdateUserRole(ctx, admin, "req-1", "FINANCE_CLERK")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleFinanceClerk, u.Role)

	stored, err := h.users.GetUser(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleFinanceClerk, stored.Role)
}

func TestUpdatePhone(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, domain.Policy{})
	requester := h.actor(t, "req-1", domain.RoleRequester)

	u, err := h.users.UpdatePhone(ctx, requester, strPtr(" (555) 010-9999 "))
	require.NoError(t, err)
	assert.Equal(t, "(555) 010-9999", *u.Phone)

	_, err = h.users.UpdatePhone(ctx, requester, strPtr("ring ring"))
	assert.True(t, errors.Is(err, errors.ErrCodeValidation))

	u, err = h.users.UpdatePhone(ctx, requester, strPtr(""))
	require.NoError(t, err)
	assert.Nil(t, u.Phone)
}

func TestCreateDepartment(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, domain.Policy{})
	requester := h.actor(t, "req-1", domain.RoleRequester)
	officer := h.actor(t, "officer", domain.RoleFinanceOfficer)
	approver := h.actor(t, "appr-1", domain.RoleApprover)

	_, err := h.users.CreateDepartment(ctx, requester, &CreateDepartmentRequest{Name: "Physics"})
	assert.True(t, errors.Is(err, errors.ErrCodeForbidden))

	_, err = h.users.CreateDepartment(ctx, officer, &CreateDepartmentRequest{Name: "Physics", ApproverID: strPtr(requester.UserID)})
	assert.True(t, errors.Is(err, errors.ErrCodeValidation), "requesters cannot be designated approvers")

	dept, err := h.users.CreateDepartment(ctx, officer, &CreateDepartmentRequest{
		Name:       "School of Medicine",
		CostCentre: strPtr("CC-410"),
		ApproverID: strPtr(approver.UserID),
	})
	require.NoError(t, err)
	assert.Equal(t, "SM", dept.Code)
	assert.Equal(t, "CC-410", *dept.CostCentre)

	_, err = h.users.CreateDepartment(ctx, officer, &CreateDepartmentRequest{Name: "school of medicine"})
	assert.True(t, errors.Is(err, errors.ErrCodeConflict))
}

func TestDepartmentCode(t *testing.T) {
	assert.Equal(t, "CHEM", departmentCode("Chemistry"))
	assert.Equal(t, "HA", departmentCode("History of Art"))
	assert.Equal(t, "CS", departmentCode("computer-science"))
	assert.Equal(t, "DEPT", departmentCode("  "))
}

func TestNotifications(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, domain.Policy{})
	requester := h.actor(t, "req-1", domain.RoleRequester)
	approver := h.actor(t, "appr-1", domain.RoleApprover)

	for i := 0; i < 3; i++ {
		h.createRequest(t, requester)
	}

	count, err := h.notifications.UnreadCount(ctx, approver)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	inbox, err := h.notifications.ListNotifications(ctx, approver, true, 0)
	require.NoError(t, err)
	require.Len(t, inbox, 3)

	read, err := h.notifications.MarkRead(ctx, approver, inbox[0].ID)
	require.NoError(t, err)
	assert.True(t, read.Read)
	assert.NotNil(t, read.ReadAt)

	_, err = h.notifications.MarkRead(ctx, requester, inbox[1].ID)
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound), "other users' notifications are invisible")

	unread, err := h.notifications.ListNotifications(ctx, approver, true, 0)
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	updated, err := h.notifications.MarkAllRead(ctx, approver)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	count, err = h.notifications.UnreadCount(ctx, approver)
	require.NoError(t, err)
	assert.Zero(t, count)

	all, err := h.notifications.ListNotifications(ctx, approver, false, 2)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRecipientsExcept(t *testing.T) {
	assert.Equal(t, []string{"b", "c"}, recipientsExcept([]string{"a", "b", "", "c", "b"}, "a"))
	assert.Empty(t, recipientsExcept([]string{"a"}, "a"))
}
