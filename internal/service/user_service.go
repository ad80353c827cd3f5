package service

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/pesio-ai/be-catering-requests/internal/auth"
	"github.com/pesio-ai/be-catering-requests/internal/domain"
	"github.com/pesio-ai/be-catering-requests/internal/errors"
	"github.com/pesio-ai/be-catering-requests/internal/logger"
	"github.com/pesio-ai/be-catering-requests/internal/repository"
)

// RoleRules assigns the initial role of a user created on first login.
type RoleRules struct {
	AdminEmails          []string
	FinanceOfficerEmails []string
}

// InitialRole returns the role a new user with email starts with.
func (r RoleRules) InitialRole(email string) domain.Role {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, e := range r.AdminEmails {
		if strings.EqualFold(strings.TrimSpace(e), email) {
			return domain.RoleAdmin
		}
	}
	for _, e := range r.FinanceOfficerEmails {
		if strings.EqualFold(strings.TrimSpace(e), email) {
			return domain.RoleFinanceOfficer
		}
	}
	return domain.RoleRequester
}

// UserService manages users and departments.
type UserService struct {
	store repository.Store
	rules RoleRules
	log   *logger.Logger
}

// NewUserService creates a new user service
func NewUserService(store repository.Store, rules RoleRules, log *logger.Logger) *UserService {
	return &UserService{
		store: store,
		rules: rules,
		log:   log,
	}
}

// EnsureUser loads the user behind a verified identity, creating it on first
// access. Profile fields follow the identity provider; the role never does.
func (s *UserService) EnsureUser(ctx context.Context, id *auth.Identity) (*domain.User, error) {
	if id == nil || id.Subject == "" {
		return nil, errors.Unauthorized("missing identity")
	}

	var user *domain.User
	var created bool
	upsert := func(q repository.Queries) error {
		existing, err := q.GetUser(ctx, id.Subject)
		if errors.Is(err, errors.ErrCodeNotFound) {
			ts := now()
			user = &domain.User{
				ID:        id.Subject,
				Email:     id.Email,
				Name:      id.Name,
				Phone:     trimmed(&id.Phone),
				Role:      s.rules.InitialRole(id.Email),
				CreatedAt: ts,
				UpdatedAt: ts,
			}
			created = true
			return q.CreateUser(ctx, user)
		}
		if err != nil {
			return err
		}

		user = existing
		if !refreshProfile(user, id) {
			return nil
		}
		user.UpdatedAt = now()
		return q.UpdateUser(ctx, user)
	}

	err := s.store.InTransaction(ctx, upsert)
	if errors.Is(err, errors.ErrCodeConflict) {
		// A concurrent first login created the row; load it instead.
		created = false
		err = s.store.InTransaction(ctx, upsert)
	}
	if err != nil {
		return nil, err
	}

	if created {
		s.log.Info().
			Str("user_id", user.ID).
			Str("email", user.Email).
			Str("role", string(user.Role)).
			Msg("User created on first login")
	}

	return user, nil
}

func refreshProfile(u *domain.User, id *auth.Identity) bool {
	changed := false
	if id.Email != "" && id.Email != u.Email {
		u.Email = id.Email
		changed = true
	}
	if id.Name != "" && id.Name != u.Name {
		u.Name = id.Name
		changed = true
	}
	if phone := trimmed(&id.Phone); phone != nil && (u.Phone == nil || *u.Phone != *phone) {
		u.Phone = phone
		changed = true
	}
	return changed
}

// GetUser retrieves a user by ID
func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var user *domain.User
	err := s.store.View(ctx, func(q repository.Queries) error {
		var err error
		user, err = q.GetUser(ctx, id)
		return err
	})
	return user, err
}

// UpdateUserRole changes the role of userID.
func (s *UserService) UpdateUserRole(ctx context.Context, actor domain.Actor, userID, role string) (*domain.User, error) {
	if !actor.Caps.CanManageUsers {
		err := errors.Forbidden(fmt.Sprintf("role %s cannot manage users", actor.Role))
		record(entityUser, "update_role", err)
		return nil, err
	}
	newRole, ok := domain.ParseRole(role)
	if !ok {
		return nil, errors.InvalidInput("role", fmt.Sprintf("unknown role '%s'", role))
	}

	var user *domain.User
	var previous domain.Role
	err := s.store.InTransaction(ctx, func(q repository.Queries) error {
		var err error
		user, err = q.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		previous = user.Role
		if previous == newRole {
			return nil
		}
		user.Role = newRole
		user.UpdatedAt = now()
		return q.UpdateUser(ctx, user)
	})
	record(entityUser, "update_role", err)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("user_id", userID).
		Str("from_role", string(previous)).
		Str("to_role", string(newRole)).
		Str("changed_by", actor.UserID).
		Msg("User role updated")

	return user, nil
}

// UpdatePhone sets or clears the actor's own phone number.
func (s *UserService) UpdatePhone(ctx context.Context, actor domain.Actor, phone *string) (*domain.User, error) {
	phone = trimmed(phone)
	if phone != nil && !validPhone(*phone) {
		return nil, errors.InvalidInput("phone", "phone may contain digits, spaces, '+', '-' and parentheses only")
	}

	var user *domain.User
	err := s.store.InTransaction(ctx, func(q repository.Queries) error {
		var err error
		user, err = q.GetUser(ctx, actor.UserID)
		if err != nil {
			return err
		}
		user.Phone = phone
		user.UpdatedAt = now()
		return q.UpdateUser(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func validPhone(p string) bool {
	if len(p) > 32 {
		return false
	}
	digits := 0
	for _, r := range p {
		switch {
		case unicode.IsDigit(r):
			digits++
		case strings.ContainsRune("+-() ", r):
		default:
			return false
		}
	}
	return digits >= 4
}

// ListDepartments returns every department ordered by name.
func (s *UserService) ListDepartments(ctx context.Context) ([]*domain.Department, error) {
	var out []*domain.Department
	err := s.store.View(ctx, func(q repository.Queries) error {
		var err error
		out, err = q.ListDepartments(ctx)
		return err
	})
	return out, err
}

// CreateDepartmentRequest represents a create department request
type CreateDepartmentRequest struct {
	Name       string
	Code       string
	CostCentre *string
	ApproverID *string
}

// CreateDepartment registers a department.
func (s *UserService) CreateDepartment(ctx context.Context, actor domain.Actor, req *CreateDepartmentRequest) (*domain.Department, error) {
	if !actor.Caps.CanManageUsers {
		return nil, errors.Forbidden(fmt.Sprintf("role %s cannot manage departments", actor.Role))
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errors.InvalidInput("name", "department name is required")
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		code = departmentCode(name)
	}

	dept := &domain.Department{
		ID:         newID(),
		Name:       name,
		Code:       code,
		CostCentre: trimmed(req.CostCentre),
		ApproverID: trimmed(req.ApproverID),
		CreatedAt:  now(),
	}

	err := s.store.InTransaction(ctx, func(q repository.Queries) error {
		if dept.ApproverID != nil {
			approver, err := q.GetUser(ctx, *dept.ApproverID)
			if errors.Is(err, errors.ErrCodeNotFound) {
				return errors.InvalidInput("approverId", "approver does not exist")
			}
			if err != nil {
				return err
			}
			if !domain.CapabilitiesFor(approver.Role).CanApproveRequest {
				return errors.InvalidInput("approverId", fmt.Sprintf("user with role %s cannot approve requests", approver.Role))
			}
		}
		return q.CreateDepartment(ctx, dept)
	})
	record(entityDepartment, "create", err)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("department_id", dept.ID).
		Str("name", dept.Name).
		Str("code", dept.Code).
		Msg("Department created")

	return dept, nil
}

// departmentCode derives a short code from a department name: the initials
// of multi-word names, otherwise the first four letters.
func departmentCode(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var b strings.Builder
	if len(words) > 1 {
		for _, w := range words {
			if strings.EqualFold(w, "of") || strings.EqualFold(w, "and") || strings.EqualFold(w, "the") {
				continue
			}
			b.WriteRune(unicode.ToUpper([]rune(w)[0]))
		}
	} else if len(words) == 1 {
		for i, r := range []rune(words[0]) {
			if i == 4 {
				break
			}
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	if b.Len() == 0 {
		return "DEPT"
	}
	return b.String()
}
