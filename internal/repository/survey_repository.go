package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/dept-csat-engine/internal/dto"
	"github.com/noah-isme/dept-csat-engine/internal/models"
)

// catalogLockKey serialises concurrent synchronizer runs.
const catalogLockKey = "survey_catalog_sync"

// SurveyRepository persists the survey catalog and its questions.
type SurveyRepository struct {
	db *sqlx.DB
}

// NewSurveyRepository constructs the repository.
func NewSurveyRepository(db *sqlx.DB) *SurveyRepository {
	return &SurveyRepository{db: db}
}

func (r *SurveyRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// LockCatalog takes a transaction-scoped advisory lock over the catalog.
func (r *SurveyRepository) LockCatalog(ctx context.Context, exec sqlx.ExtContext) error {
	if _, err := r.exec(exec).ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, catalogLockKey); err != nil {
		return fmt.Errorf("lock survey catalog: %w", err)
	}
	return nil
}

// List returns the whole catalog.
func (r *SurveyRepository) List(ctx context.Context, exec sqlx.ExtContext) ([]models.Survey, error) {
	const query = `SELECT id, title, description, rated_department_id, managing_department_id, created_at
FROM surveys ORDER BY rated_department_id, managing_department_id`
	var surveys []models.Survey
	if err := sqlx.SelectContext(ctx, r.exec(exec), &surveys, query); err != nil {
		return nil, fmt.Errorf("list surveys: %w", err)
	}
	return surveys, nil
}

// FindByID fetches a survey; sql.ErrNoRows when absent.
func (r *SurveyRepository) FindByID(ctx context.Context, id string) (*models.Survey, error) {
	const query = `SELECT id, title, description, rated_department_id, managing_department_id, created_at
FROM surveys WHERE id = $1`
	var survey models.Survey
	if err := r.db.GetContext(ctx, &survey, query, id); err != nil {
		return nil, err
	}
	return &survey, nil
}

// Create inserts a survey.
func (r *SurveyRepository) Create(ctx context.Context, exec sqlx.ExtContext, survey *models.Survey) error {
	if survey.ID == "" {
		survey.ID = uuid.NewString()
	}
	if survey.CreatedAt.IsZero() {
		survey.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO surveys (id, title, description, rated_department_id, managing_department_id, created_at)
VALUES (:id, :title, :description, :rated_department_id, :managing_department_id, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, survey); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert survey: %w", err)
	}
	return nil
}

// DeleteByIDs removes surveys. Questions and submissions cascade in the schema.
func (r *SurveyRepository) DeleteByIDs(ctx context.Context, exec sqlx.ExtContext, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	const query = `DELETE FROM surveys WHERE id = ANY($1)`
	if _, err := r.exec(exec).ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("delete surveys: %w", err)
	}
	return nil
}

// CreateQuestions seeds questions for a survey.
func (r *SurveyRepository) CreateQuestions(ctx context.Context, exec sqlx.ExtContext, surveyID string, templates []models.QuestionTemplate) error {
	const query = `INSERT INTO questions (id, survey_id, text, type, "order", category)
VALUES (:id, :survey_id, :text, :type, :order, :category)`
	target := r.exec(exec)
	for _, tpl := range templates {
		question := models.Question{
			ID:       uuid.NewString(),
			SurveyID: surveyID,
			Text:     tpl.Text,
			Type:     models.QuestionTypeRating,
			Order:    tpl.Order,
			Category: tpl.Category,
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, question); err != nil {
			return fmt.Errorf("insert question %d for survey %s: %w", tpl.Order, surveyID, err)
		}
	}
	return nil
}

// ListQuestions returns a survey's questions in order.
func (r *SurveyRepository) ListQuestions(ctx context.Context, surveyID string) ([]models.Question, error) {
	const query = `SELECT id, survey_id, text, type, "order", category FROM questions WHERE survey_id = $1 ORDER BY "order" ASC`
	var questions []models.Question
	if err := r.db.SelectContext(ctx, &questions, query, surveyID); err != nil {
		return nil, fmt.Errorf("list questions for survey %s: %w", surveyID, err)
	}
	return questions, nil
}

// ListAssigned returns the surveys a department manages whose permission window,
// its end extended by grace, contains at. The self-rating flag is honoured.
func (r *SurveyRepository) ListAssigned(ctx context.Context, departmentID string, at time.Time, grace time.Duration) ([]dto.AssignedSurvey, error) {
	const query = `
SELECT s.id, s.title, s.description, s.rated_department_id, d.name AS rated_department_name, s.managing_department_id
FROM surveys s
JOIN permissions p ON p.from_department_id = s.managing_department_id AND p.to_department_id = s.rated_department_id
JOIN departments d ON d.id = s.rated_department_id
WHERE s.managing_department_id = $1
	AND p.start_date <= $2 AND p.end_date >= $3
	AND (p.from_department_id <> p.to_department_id OR p.can_survey_self)
ORDER BY d.name ASC`
	var surveys []dto.AssignedSurvey
	if err := r.db.SelectContext(ctx, &surveys, query, departmentID, at, at.Add(-grace)); err != nil {
		return nil, fmt.Errorf("list assigned surveys: %w", err)
	}
	return surveys, nil
}

// CountCatalog returns the number of surveys and how many have a non-draft submission.
func (r *SurveyRepository) CountCatalog(ctx context.Context) (total int, submitted int, err error) {
	const query = `
SELECT
	COUNT(*) AS total,
	COUNT(*) FILTER (WHERE EXISTS (
		SELECT 1 FROM survey_submissions ss WHERE ss.survey_id = s.id AND ss.status <> 'Draft'
	)) AS submitted
FROM surveys s`
	var row struct {
		Total     int `db:"total"`
		Submitted int `db:"submitted"`
	}
	if err = r.db.GetContext(ctx, &row, query); err != nil {
		return 0, 0, fmt.Errorf("count survey catalog: %w", err)
	}
	return row.Total, row.Submitted, nil
}
