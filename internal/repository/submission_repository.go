package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/dept-csat-engine/internal/models"
)

const submissionColumns = `id, survey_id, submitter_user_id, submitter_department_id, rated_department_id, status,
submitted_at, suggestions, answers_by_category, overall_customer_rating, rating_description, survey_attendance`

// SubmissionRepository persists survey submissions and their answers.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

func (r *SubmissionRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// HasFinal reports whether the user already holds a non-draft submission for the survey.
func (r *SubmissionRepository) HasFinal(ctx context.Context, exec sqlx.ExtContext, surveyID, userID string) (bool, error) {
	const query = `SELECT EXISTS (
	SELECT 1 FROM survey_submissions WHERE survey_id = $1 AND submitter_user_id = $2 AND status <> 'Draft'
)`
	var exists bool
	if err := sqlx.GetContext(ctx, r.exec(exec), &exists, query, surveyID, userID); err != nil {
		return false, fmt.Errorf("check final submission: %w", err)
	}
	return exists, nil
}

// FindDraft returns the user's draft for the survey or nil when none exists.
func (r *SubmissionRepository) FindDraft(ctx context.Context, exec sqlx.ExtContext, surveyID, userID string) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM survey_submissions
WHERE survey_id = $1 AND submitter_user_id = $2 AND status = 'Draft'
ORDER BY submitted_at DESC LIMIT 1`
	var submission models.Submission
	if err := sqlx.GetContext(ctx, r.exec(exec), &submission, query, surveyID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find draft: %w", err)
	}
	return &submission, nil
}

// DeleteDrafts removes the user's drafts for the survey together with their answers.
func (r *SubmissionRepository) DeleteDrafts(ctx context.Context, exec sqlx.ExtContext, surveyID, userID string) error {
	target := r.exec(exec)
	const answers = `DELETE FROM survey_answers WHERE submission_id IN (
	SELECT id FROM survey_submissions WHERE survey_id = $1 AND submitter_user_id = $2 AND status = 'Draft'
)`
	if _, err := target.ExecContext(ctx, answers, surveyID, userID); err != nil {
		return fmt.Errorf("delete draft answers: %w", err)
	}
	const drafts = `DELETE FROM survey_submissions WHERE survey_id = $1 AND submitter_user_id = $2 AND status = 'Draft'`
	if _, err := target.ExecContext(ctx, drafts, surveyID, userID); err != nil {
		return fmt.Errorf("delete drafts: %w", err)
	}
	return nil
}

// Create inserts a submission. ErrDuplicate signals a concurrent final submission.
func (r *SubmissionRepository) Create(ctx context.Context, exec sqlx.ExtContext, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	if submission.SubmittedAt.IsZero() {
		submission.SubmittedAt = time.Now().UTC()
	}
	if len(submission.AnswersByCategory) == 0 {
		submission.AnswersByCategory = []byte("{}")
	}
	const query = `INSERT INTO survey_submissions (id, survey_id, submitter_user_id, submitter_department_id, rated_department_id,
	status, submitted_at, suggestions, answers_by_category, overall_customer_rating, rating_description, survey_attendance)
VALUES (:id, :survey_id, :submitter_user_id, :submitter_department_id, :rated_department_id,
	:status, :submitted_at, :suggestions, :answers_by_category, :overall_customer_rating, :rating_description, :survey_attendance)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, submission); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

// InsertAnswers stores the answers of one submission.
func (r *SubmissionRepository) InsertAnswers(ctx context.Context, exec sqlx.ExtContext, answers []models.Answer) error {
	const query = `INSERT INTO survey_answers (id, submission_id, question_id, rating_value, text_response, selected_option_id)
VALUES (:id, :submission_id, :question_id, :rating_value, :text_response, :selected_option_id)`
	target := r.exec(exec)
	for i := range answers {
		if answers[i].ID == "" {
			answers[i].ID = uuid.NewString()
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, answers[i]); err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return fmt.Errorf("insert answer for question %s: %w", answers[i].QuestionID, err)
		}
	}
	return nil
}

// ListAnswers returns a submission's answers.
func (r *SubmissionRepository) ListAnswers(ctx context.Context, submissionID string) ([]models.Answer, error) {
	const query = `SELECT a.id, a.submission_id, a.question_id, a.rating_value, a.text_response, a.selected_option_id
FROM survey_answers a
JOIN questions q ON q.id = a.question_id
WHERE a.submission_id = $1
ORDER BY q."order" ASC`
	var answers []models.Answer
	if err := r.db.SelectContext(ctx, &answers, query, submissionID); err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	return answers, nil
}

// ListTimestamps returns the compliance projection of every submission.
func (r *SubmissionRepository) ListTimestamps(ctx context.Context, exec sqlx.ExtContext) ([]models.SubmissionTimestamp, error) {
	const query = `SELECT submitter_department_id, status, submitted_at, survey_attendance
FROM survey_submissions ORDER BY submitted_at ASC`
	var rows []models.SubmissionTimestamp
	if err := sqlx.SelectContext(ctx, r.exec(exec), &rows, query); err != nil {
		return nil, fmt.Errorf("list submission timestamps: %w", err)
	}
	return rows, nil
}
