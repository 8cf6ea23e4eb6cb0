package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/dept-csat-engine/internal/dto"
	"github.com/noah-isme/dept-csat-engine/internal/models"
)

const ratingEventColumns = `id, survey_id, user_id, survey_submission_id, question_id, from_department_id, to_department_id,
submitted_at, rating, remark, final_suggestion, explanation, action_plan, responsible_person, target_date,
acknowledged, responded_at, overall_rating, super_overall`

// RatingEventRepository persists summary and detail rating events.
type RatingEventRepository struct {
	db *sqlx.DB
}

// NewRatingEventRepository constructs the repository.
func NewRatingEventRepository(db *sqlx.DB) *RatingEventRepository {
	return &RatingEventRepository{db: db}
}

func (r *RatingEventRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Insert stores an event.
func (r *RatingEventRepository) Insert(ctx context.Context, exec sqlx.ExtContext, event *models.RatingEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	const query = `INSERT INTO survey_responses (id, survey_id, user_id, survey_submission_id, question_id, from_department_id,
	to_department_id, submitted_at, rating, remark, final_suggestion, acknowledged, overall_rating)
VALUES (:id, :survey_id, :user_id, :survey_submission_id, :question_id, :from_department_id,
	:to_department_id, :submitted_at, :rating, :remark, :final_suggestion, :acknowledged, :overall_rating)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, event); err != nil {
		return fmt.Errorf("insert rating event: %w", err)
	}
	return nil
}

// LockDepartment serialises roll-ups of one department for the rest of the transaction.
func (r *RatingEventRepository) LockDepartment(ctx context.Context, exec sqlx.ExtContext, departmentID string) error {
	if _, err := r.exec(exec).ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, departmentID); err != nil {
		return fmt.Errorf("lock department %s: %w", departmentID, err)
	}
	return nil
}

// AverageOverall averages the non-null overall ratings of a department's summary events.
// It returns nil when no event qualifies.
func (r *RatingEventRepository) AverageOverall(ctx context.Context, exec sqlx.ExtContext, departmentID string) (*float64, error) {
	const query = `SELECT AVG(overall_rating) FROM survey_responses
WHERE to_department_id = $1 AND question_id IS NULL AND overall_rating IS NOT NULL`
	var avg sql.NullFloat64
	if err := sqlx.GetContext(ctx, r.exec(exec), &avg, query, departmentID); err != nil {
		return nil, fmt.Errorf("average overall for %s: %w", departmentID, err)
	}
	if !avg.Valid {
		return nil, nil
	}
	value := avg.Float64
	return &value, nil
}

// SetSuperOverall writes the roll-up into every summary event of the department.
func (r *RatingEventRepository) SetSuperOverall(ctx context.Context, exec sqlx.ExtContext, departmentID string, value float64) (int64, error) {
	const query = `UPDATE survey_responses SET super_overall = $1 WHERE to_department_id = $2 AND question_id IS NULL`
	res, err := r.exec(exec).ExecContext(ctx, query, value, departmentID)
	if err != nil {
		return 0, fmt.Errorf("update super overall for %s: %w", departmentID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update super overall rows: %w", err)
	}
	return affected, nil
}

// FindForUpdate locks and returns an event; sql.ErrNoRows when absent.
func (r *RatingEventRepository) FindForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.RatingEvent, error) {
	query := `SELECT ` + ratingEventColumns + ` FROM survey_responses WHERE id = $1 FOR UPDATE`
	var event models.RatingEvent
	if err := sqlx.GetContext(ctx, r.exec(exec), &event, query, id); err != nil {
		return nil, err
	}
	return &event, nil
}

// Respond records the rated department's remediation plan.
func (r *RatingEventRepository) Respond(ctx context.Context, exec sqlx.ExtContext, req dto.RespondRequest, at time.Time) error {
	const query = `UPDATE survey_responses
SET explanation = $1, action_plan = $2, responsible_person = $3, target_date = $4, responded_at = $5
WHERE id = $6`
	if _, err := r.exec(exec).ExecContext(ctx, query, req.Explanation, req.ActionPlan, req.ResponsiblePerson, req.TargetDate, at, req.EventID); err != nil {
		return fmt.Errorf("respond to rating event %s: %w", req.EventID, err)
	}
	return nil
}

// Acknowledge marks an answered event as accepted by the rater.
func (r *RatingEventRepository) Acknowledge(ctx context.Context, exec sqlx.ExtContext, id string) error {
	const query = `UPDATE survey_responses SET acknowledged = TRUE WHERE id = $1`
	if _, err := r.exec(exec).ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("acknowledge rating event %s: %w", id, err)
	}
	return nil
}

// ListIncoming returns unanswered low ratings received by a department, newest first.
func (r *RatingEventRepository) ListIncoming(ctx context.Context, departmentID string) ([]dto.IncomingFeedback, error) {
	const query = `
SELECT sr.id, d.name AS from_department, sr.rating, COALESCE(sr.remark, '') AS remark, q.category, sr.submitted_at
FROM survey_responses sr
JOIN departments d ON d.id = sr.from_department_id
LEFT JOIN questions q ON q.id = sr.question_id
WHERE sr.to_department_id = $1
	AND sr.question_id IS NOT NULL
	AND sr.rating <= 2
	AND (sr.explanation IS NULL OR sr.explanation = '')
ORDER BY sr.submitted_at DESC`
	var rows []dto.IncomingFeedback
	if err := r.db.SelectContext(ctx, &rows, query, departmentID); err != nil {
		return nil, fmt.Errorf("list incoming feedback: %w", err)
	}
	return rows, nil
}

// ListOutgoing returns answered low ratings a department gave, newest first.
func (r *RatingEventRepository) ListOutgoing(ctx context.Context, departmentID string) ([]dto.OutgoingFeedback, error) {
	const query = `
SELECT sr.id, d.name AS to_department, sr.rating, COALESCE(sr.remark, '') AS remark, q.category,
	sr.explanation, sr.action_plan, sr.responsible_person, sr.target_date, sr.acknowledged
FROM survey_responses sr
JOIN departments d ON d.id = sr.to_department_id
LEFT JOIN questions q ON q.id = sr.question_id
WHERE sr.from_department_id = $1
	AND sr.question_id IS NOT NULL
	AND sr.explanation IS NOT NULL AND sr.explanation <> ''
ORDER BY sr.responded_at DESC NULLS LAST`
	var rows []dto.OutgoingFeedback
	if err := r.db.SelectContext(ctx, &rows, query, departmentID); err != nil {
		return nil, fmt.Errorf("list outgoing feedback: %w", err)
	}
	return rows, nil
}

// DepartmentPerformance averages overall ratings received per department on read.
func (r *RatingEventRepository) DepartmentPerformance(ctx context.Context) ([]dto.DepartmentPerformance, error) {
	const query = `
SELECT d.id AS department_id, d.name, ROUND(AVG(sr.overall_rating)::numeric, 2)::float8 AS super_overall, COUNT(sr.id) AS ratings
FROM departments d
JOIN survey_responses sr ON sr.to_department_id = d.id AND sr.question_id IS NULL AND sr.overall_rating IS NOT NULL
GROUP BY d.id, d.name
ORDER BY super_overall DESC, d.name ASC`
	var rows []dto.DepartmentPerformance
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("department performance: %w", err)
	}
	return rows, nil
}

// RatingsByRater averages the overall ratings a department received, per rater department.
func (r *RatingEventRepository) RatingsByRater(ctx context.Context, departmentID string) ([]dto.RaterRating, error) {
	const query = `
SELECT d.name, ROUND(AVG(sr.overall_rating)::numeric, 2)::float8 AS rating
FROM survey_responses sr
JOIN departments d ON d.id = sr.from_department_id
WHERE sr.to_department_id = $1 AND sr.question_id IS NULL AND sr.overall_rating IS NOT NULL
GROUP BY d.name
ORDER BY d.name ASC`
	var rows []dto.RaterRating
	if err := r.db.SelectContext(ctx, &rows, query, departmentID); err != nil {
		return nil, fmt.Errorf("ratings by rater: %w", err)
	}
	return rows, nil
}
