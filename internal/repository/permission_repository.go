package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/dept-csat-engine/internal/models"
)

const permissionColumns = `id, from_department_id, to_department_id, start_date, end_date, can_survey_self, created_at`

// PermissionRepository persists the directed permission matrix.
type PermissionRepository struct {
	db *sqlx.DB
}

// NewPermissionRepository constructs the repository.
func NewPermissionRepository(db *sqlx.DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

func (r *PermissionRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns every permission row regardless of window.
func (r *PermissionRepository) List(ctx context.Context, exec sqlx.ExtContext) ([]models.Permission, error) {
	query := `SELECT ` + permissionColumns + ` FROM permissions ORDER BY from_department_id, to_department_id`
	var permissions []models.Permission
	if err := sqlx.SelectContext(ctx, r.exec(exec), &permissions, query); err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	return permissions, nil
}

// ListFrom returns the permissions a department rates under.
func (r *PermissionRepository) ListFrom(ctx context.Context, fromDepartmentID string) ([]models.Permission, error) {
	query := `SELECT ` + permissionColumns + ` FROM permissions WHERE from_department_id = $1 ORDER BY to_department_id`
	var permissions []models.Permission
	if err := r.db.SelectContext(ctx, &permissions, query, fromDepartmentID); err != nil {
		return nil, fmt.Errorf("list permissions from %s: %w", fromDepartmentID, err)
	}
	return permissions, nil
}

// FindByPair fetches the unique edge; sql.ErrNoRows when absent.
func (r *PermissionRepository) FindByPair(ctx context.Context, fromDepartmentID, toDepartmentID string) (*models.Permission, error) {
	query := `SELECT ` + permissionColumns + ` FROM permissions WHERE from_department_id = $1 AND to_department_id = $2`
	var permission models.Permission
	if err := r.db.GetContext(ctx, &permission, query, fromDepartmentID, toDepartmentID); err != nil {
		return nil, err
	}
	return &permission, nil
}

// Insert adds a new edge.
func (r *PermissionRepository) Insert(ctx context.Context, exec sqlx.ExtContext, permission *models.Permission) error {
	if permission.ID == "" {
		permission.ID = uuid.NewString()
	}
	if permission.CreatedAt.IsZero() {
		permission.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO permissions (id, from_department_id, to_department_id, start_date, end_date, can_survey_self, created_at)
VALUES (:id, :from_department_id, :to_department_id, :start_date, :end_date, :can_survey_self, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, permission); err != nil {
		return fmt.Errorf("insert permission: %w", err)
	}
	return nil
}

// UpdateWindow rewrites the window and self-rating flag of an existing edge.
func (r *PermissionRepository) UpdateWindow(ctx context.Context, exec sqlx.ExtContext, permission models.Permission) error {
	const query = `UPDATE permissions SET start_date = $1, end_date = $2, can_survey_self = $3 WHERE id = $4`
	if _, err := r.exec(exec).ExecContext(ctx, query, permission.StartDate, permission.EndDate, permission.CanSurveySelf, permission.ID); err != nil {
		return fmt.Errorf("update permission %s: %w", permission.ID, err)
	}
	return nil
}

// DeleteByIDs removes the given edges.
func (r *PermissionRepository) DeleteByIDs(ctx context.Context, exec sqlx.ExtContext, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	const query = `DELETE FROM permissions WHERE id = ANY($1)`
	if _, err := r.exec(exec).ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("delete permissions: %w", err)
	}
	return nil
}
