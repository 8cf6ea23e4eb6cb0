package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/dept-csat-engine/internal/models"
)

// DepartmentRepository reads departments and the user directory.
type DepartmentRepository struct {
	db *sqlx.DB
}

// NewDepartmentRepository constructs the repository.
func NewDepartmentRepository(db *sqlx.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

func (r *DepartmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns all departments ordered by name.
func (r *DepartmentRepository) List(ctx context.Context, exec sqlx.ExtContext) ([]models.Department, error) {
	const query = `SELECT id, name, created_at FROM departments ORDER BY name ASC`
	var departments []models.Department
	if err := sqlx.SelectContext(ctx, r.exec(exec), &departments, query); err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return departments, nil
}

// FindByID fetches a department; sql.ErrNoRows when absent.
func (r *DepartmentRepository) FindByID(ctx context.Context, id string) (*models.Department, error) {
	const query = `SELECT id, name, created_at FROM departments WHERE id = $1`
	var department models.Department
	if err := r.db.GetContext(ctx, &department, query, id); err != nil {
		return nil, err
	}
	return &department, nil
}

// ListActiveUsers returns active users belonging to any of the departments.
func (r *DepartmentRepository) ListActiveUsers(ctx context.Context, departmentIDs []string) ([]models.DirectoryUser, error) {
	if len(departmentIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT id, name, email, department_id FROM users
WHERE is_active = TRUE AND department_id = ANY($1)
ORDER BY department_id, name`
	var users []models.DirectoryUser
	if err := r.db.SelectContext(ctx, &users, query, pq.Array(departmentIDs)); err != nil {
		return nil, fmt.Errorf("list department users: %w", err)
	}
	return users, nil
}
