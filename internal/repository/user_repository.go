package repository

import (
	"context"
	"fmt"

	"github.com/pesio-ai/be-catering-requests/internal/domain"
	"github.com/pesio-ai/be-catering-requests/internal/errors"
)

const userColumns = `id, email, name, phone, role, created_at, updated_at`

func scanUser(sc rowScanner) (*domain.User, error) {
	u := &domain.User{}
	err := sc.Scan(&u.ID, &u.Email, &u.Name, &u.Phone, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (q *pgQueries) GetUser(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(q.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFoundOr(err, "user", id, "failed to get user")
	}
	return u, nil
}

func (q *pgQueries) CreateUser(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (id, email, name, phone, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := q.db.Exec(ctx, query, u.ID, u.Email, u.Name, u.Phone, u.Role, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if uniqueViolation(err) {
			return errors.Conflict(fmt.Sprintf("user %s already exists", u.ID))
		}
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create user")
	}
	return nil
}

func (q *pgQueries) UpdateUser(ctx context.Context, u *domain.User) error {
	query := `
		UPDATE users
		SET email = $2, name = $3, phone = $4, role = $5, updated_at = $6
		WHERE id = $1
	`
	tag, err := q.db.Exec(ctx, query, u.ID, u.Email, u.Name, u.Phone, u.Role, u.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to update user")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("user", u.ID)
	}
	return nil
}

func (q *pgQueries) ListUsersByRole(ctx context.Context, role domain.Role) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = $1 ORDER BY id`
	rows, err := q.db.Query(ctx, query, role)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list users")
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan user")
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

const departmentColumns = `id, name, code, cost_centre, approver_id, created_at`

func scanDepartment(sc rowScanner) (*domain.Department, error) {
	d := &domain.Department{}
	err := sc.Scan(&d.ID, &d.Name, &d.Code, &d.CostCentre, &d.ApproverID, &d.CreatedAt)
	return d, err
}

func (q *pgQueries) GetDepartment(ctx context.Context, id string) (*domain.Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments WHERE id = $1`
	d, err := scanDepartment(q.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFoundOr(err, "department", id, "failed to get department")
	}
	return d, nil
}

func (q *pgQueries) FindDepartmentByName(ctx context.Context, name string) (*domain.Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments WHERE LOWER(name) = LOWER(TRIM($1))`
	d, err := scanDepartment(q.db.QueryRow(ctx, query, name))
	if err != nil {
		return nil, notFoundOr(err, "department", name, "failed to find department")
	}
	return d, nil
}

func (q *pgQueries) CreateDepartment(ctx context.Context, d *domain.Department) error {
	query := `
		INSERT INTO departments (id, name, code, cost_centre, approver_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := q.db.Exec(ctx, query, d.ID, d.Name, d.Code, d.CostCentre, d.ApproverID, d.CreatedAt)
	if err != nil {
		if uniqueViolation(err) {
			return errors.Conflict(fmt.Sprintf("department '%s' already exists", d.Name))
		}
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create department")
	}
	return nil
}

func (q *pgQueries) ListDepartments(ctx context.Context) ([]*domain.Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments ORDER BY LOWER(name)`
	rows, err := q.db.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list departments")
	}
	defer rows.Close()

	var departments []*domain.Department
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan department")
		}
		departments = append(departments, d)
	}
	return departments, rows.Err()
}
