package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/dept-csat-engine/internal/dto"
	"github.com/noah-isme/dept-csat-engine/internal/models"
	"github.com/noah-isme/dept-csat-engine/internal/repository"
	appErrors "github.com/noah-isme/dept-csat-engine/pkg/errors"
)

type surveyReader interface {
	FindByID(ctx context.Context, id string) (*models.Survey, error)
	ListQuestions(ctx context.Context, surveyID string) ([]models.Question, error)
}

type permissionFinder interface {
	FindByPair(ctx context.Context, fromDepartmentID, toDepartmentID string) (*models.Permission, error)
}

type submissionStore interface {
	HasFinal(ctx context.Context, exec sqlx.ExtContext, surveyID, userID string) (bool, error)
	FindDraft(ctx context.Context, exec sqlx.ExtContext, surveyID, userID string) (*models.Submission, error)
	DeleteDrafts(ctx context.Context, exec sqlx.ExtContext, surveyID, userID string) error
	Create(ctx context.Context, exec sqlx.ExtContext, submission *models.Submission) error
	InsertAnswers(ctx context.Context, exec sqlx.ExtContext, answers []models.Answer) error
	ListAnswers(ctx context.Context, submissionID string) ([]models.Answer, error)
}

type ratingEventWriter interface {
	Insert(ctx context.Context, exec sqlx.ExtContext, event *models.RatingEvent) error
}

type departmentRollup interface {
	RecomputeTx(ctx context.Context, exec sqlx.ExtContext, departmentID string) (*float64, error)
}

// SubmissionServiceConfig carries the scoring and timeliness rules.
type SubmissionServiceConfig struct {
	Bands      RatingBands
	Compliance ComplianceRules
}

// SubmissionService validates, scores and persists survey submissions.
type SubmissionService struct {
	surveys     surveyReader
	permissions permissionFinder
	submissions submissionStore
	events      ratingEventWriter
	rollup      departmentRollup
	tx          txProvider
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         SubmissionServiceConfig
	now         func() time.Time
}

// SubmissionServiceParams groups constructor dependencies.
type SubmissionServiceParams struct {
	Surveys     surveyReader
	Permissions permissionFinder
	Submissions submissionStore
	Events      ratingEventWriter
	Rollup      departmentRollup
	Tx          txProvider
	Cache       *CacheService
	Metrics     *MetricsService
	Validator   *validator.Validate
	Logger      *zap.Logger
	Config      SubmissionServiceConfig
}

// NewSubmissionService constructs the aggregator.
func NewSubmissionService(params SubmissionServiceParams) *SubmissionService {
	if params.Validator == nil {
		params.Validator = validator.New()
	}
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	params.Config.Bands = params.Config.Bands.withDefaults()
	params.Config.Compliance = params.Config.Compliance.withDefaults()
	return &SubmissionService{
		surveys:     params.Surveys,
		permissions: params.Permissions,
		submissions: params.Submissions,
		events:      params.Events,
		rollup:      params.Rollup,
		tx:          params.Tx,
		cache:       params.Cache,
		metrics:     params.Metrics,
		validator:   params.Validator,
		logger:      params.Logger,
		cfg:         params.Config,
		now:         time.Now,
	}
}

type answeredQuestion struct {
	QuestionID string `json:"questionId"`
	Text       string `json:"text"`
	Rating     *int   `json:"rating,omitempty"`
	Remarks    string `json:"remarks,omitempty"`
}

type lowRating struct {
	questionID string
	rating     int
	remark     string
}

type checkedAnswers struct {
	answers    []models.Answer
	ratings    []CategoryRating
	lowRatings []lowRating
	byCategory map[models.Category][]answeredQuestion
}

// AggregateSubmission validates a completed submission, stores it with its answers
// and rating events, and refreshes the rated department's super overall, all in one
// transaction. Insufficient category data is reported through Complete=false.
func (s *SubmissionService) AggregateSubmission(ctx context.Context, input dto.SubmissionInput) (*dto.SubmissionResult, error) {
	if err := s.validator.Struct(input); err != nil {
		s.metrics.RecordSubmission(OutcomeRejected)
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}

	now := s.now().UTC()
	survey, permission, err := s.authorize(ctx, input.SurveyID, input.DepartmentID, now)
	if err != nil {
		s.metrics.RecordSubmission(OutcomeRejected)
		return nil, err
	}

	final, err := s.submissions.HasFinal(ctx, nil, survey.ID, input.UserID)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to check existing submission")
	}
	if final {
		s.metrics.RecordSubmission(OutcomeDuplicate)
		return nil, appErrors.Clone(appErrors.ErrDuplicateSubmission, "survey already submitted by this user")
	}

	questions, err := s.surveys.ListQuestions(ctx, survey.ID)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load survey questions")
	}
	checked, err := checkAnswers(questions, input.Answers, true)
	if err != nil {
		s.metrics.RecordSubmission(OutcomeRejected)
		return nil, err
	}

	score := ScoreAnswers(checked.ratings, s.cfg.Bands)
	snapshot, err := json.Marshal(checked.byCategory)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode answers snapshot")
	}

	submission := &models.Submission{
		SurveyID:              survey.ID,
		SubmitterUserID:       input.UserID,
		SubmitterDepartmentID: input.DepartmentID,
		RatedDepartmentID:     survey.RatedDepartmentID,
		Status:                models.SubmissionStatusSubmitted,
		SubmittedAt:           now,
		Suggestions:           strings.TrimSpace(input.Suggestion),
		AnswersByCategory:     snapshot,
		OverallRating:         score.Overall,
		SurveyAttendance:      s.cfg.Compliance.AttendanceFor(now, permission.EndDate),
	}
	if score.Complete {
		description := score.Description
		submission.RatingDescription = &description
	}

	superOverall, err := s.persist(ctx, submission, checked)
	if err != nil {
		if appErrors.FromError(err).Code == appErrors.ErrDuplicateSubmission.Code {
			s.metrics.RecordSubmission(OutcomeDuplicate)
		}
		return nil, err
	}

	s.cache.InvalidateDashboards(ctx)
	if score.Complete {
		s.metrics.RecordSubmission(OutcomeSubmitted)
	} else {
		s.metrics.RecordSubmission(OutcomeIncomplete)
		s.logger.Warn("submission has incomplete category data",
			zap.String("submission_id", submission.ID),
			zap.String("survey_id", survey.ID),
		)
	}

	return &dto.SubmissionResult{
		SubmissionID:      submission.ID,
		Complete:          score.Complete,
		Categories:        score.Categories,
		OverallRating:     score.Overall,
		RatingDescription: score.Description,
		DetailEvents:      len(checked.lowRatings),
		SuperOverall:      superOverall,
		SubmittedAt:       now,
	}, nil
}

func (s *SubmissionService) persist(ctx context.Context, submission *models.Submission, checked checkedAnswers) (superOverall *float64, err error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to begin submission transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.submissions.DeleteDrafts(ctx, tx, submission.SurveyID, submission.SubmitterUserID); err != nil {
		return nil, appErrors.Storage(err, "failed to discard draft")
	}
	if err = s.submissions.Create(ctx, tx, submission); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Wrap(err, appErrors.ErrDuplicateSubmission.Code, appErrors.ErrDuplicateSubmission.Status, "survey already submitted by this user")
		}
		return nil, appErrors.Storage(err, "failed to store submission")
	}

	answers := make([]models.Answer, len(checked.answers))
	for i, answer := range checked.answers {
		answer.SubmissionID = submission.ID
		answers[i] = answer
	}
	if err = s.submissions.InsertAnswers(ctx, tx, answers); err != nil {
		return nil, appErrors.Storage(err, "failed to store answers")
	}

	for _, low := range checked.lowRatings {
		questionID := low.questionID
		rating := low.rating
		remark := low.remark
		event := &models.RatingEvent{
			SurveyID:         submission.SurveyID,
			UserID:           submission.SubmitterUserID,
			SubmissionID:     submission.ID,
			QuestionID:       &questionID,
			FromDepartmentID: submission.SubmitterDepartmentID,
			ToDepartmentID:   submission.RatedDepartmentID,
			SubmittedAt:      submission.SubmittedAt,
			Rating:           &rating,
			Remark:           &remark,
		}
		if err = s.events.Insert(ctx, tx, event); err != nil {
			return nil, appErrors.Storage(err, "failed to store detail event")
		}
	}

	summary := &models.RatingEvent{
		SurveyID:         submission.SurveyID,
		UserID:           submission.SubmitterUserID,
		SubmissionID:     submission.ID,
		FromDepartmentID: submission.SubmitterDepartmentID,
		ToDepartmentID:   submission.RatedDepartmentID,
		SubmittedAt:      submission.SubmittedAt,
		OverallRating:    submission.OverallRating,
	}
	if submission.Suggestions != "" {
		suggestion := submission.Suggestions
		summary.FinalSuggestion = &suggestion
	}
	if err = s.events.Insert(ctx, tx, summary); err != nil {
		return nil, appErrors.Storage(err, "failed to store summary event")
	}

	superOverall, err = s.rollup.RecomputeTx(ctx, tx, submission.RatedDepartmentID)
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Storage(err, "failed to commit submission")
	}
	return superOverall, nil
}

// SaveDraft replaces the caller's draft. Drafts are rejected once a final submission exists.
func (s *SubmissionService) SaveDraft(ctx context.Context, input dto.DraftInput) (view *dto.DraftView, err error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid draft payload")
	}
	now := s.now().UTC()
	survey, _, err := s.authorize(ctx, input.SurveyID, input.DepartmentID, now)
	if err != nil {
		return nil, err
	}
	questions, err := s.surveys.ListQuestions(ctx, survey.ID)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load survey questions")
	}
	checked, err := checkAnswers(questions, input.Answers, false)
	if err != nil {
		return nil, err
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to begin draft transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	final, err := s.submissions.HasFinal(ctx, tx, survey.ID, input.UserID)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to check existing submission")
	}
	if final {
		err = appErrors.Clone(appErrors.ErrDuplicateSubmission, "survey already submitted by this user")
		return nil, err
	}
	if err = s.submissions.DeleteDrafts(ctx, tx, survey.ID, input.UserID); err != nil {
		return nil, appErrors.Storage(err, "failed to replace draft")
	}

	draft := &models.Submission{
		SurveyID:              survey.ID,
		SubmitterUserID:       input.UserID,
		SubmitterDepartmentID: input.DepartmentID,
		RatedDepartmentID:     survey.RatedDepartmentID,
		Status:                models.SubmissionStatusDraft,
		SubmittedAt:           now,
		Suggestions:           strings.TrimSpace(input.Suggestion),
	}
	if err = s.submissions.Create(ctx, tx, draft); err != nil {
		return nil, appErrors.Storage(err, "failed to store draft")
	}
	answers := make([]models.Answer, len(checked.answers))
	for i, answer := range checked.answers {
		answer.SubmissionID = draft.ID
		answers[i] = answer
	}
	if err = s.submissions.InsertAnswers(ctx, tx, answers); err != nil {
		return nil, appErrors.Storage(err, "failed to store draft answers")
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Storage(err, "failed to commit draft")
	}

	s.metrics.RecordSubmission(OutcomeDraft)
	return &dto.DraftView{
		SurveyID:        survey.ID,
		Answers:         input.Answers,
		FinalSuggestion: draft.Suggestions,
		SavedAt:         now,
	}, nil
}

// GetDraft returns the caller's draft, or nil when there is none.
func (s *SubmissionService) GetDraft(ctx context.Context, surveyID, userID string) (*dto.DraftView, error) {
	if surveyID == "" || userID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "survey id and user id are required")
	}
	draft, err := s.submissions.FindDraft(ctx, nil, surveyID, userID)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load draft")
	}
	if draft == nil {
		return nil, nil
	}
	answers, err := s.submissions.ListAnswers(ctx, draft.ID)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load draft answers")
	}

	view := &dto.DraftView{
		SurveyID:        draft.SurveyID,
		Answers:         make([]dto.AnswerInput, 0, len(answers)),
		FinalSuggestion: draft.Suggestions,
		SavedAt:         draft.SubmittedAt,
	}
	for _, answer := range answers {
		view.Answers = append(view.Answers, dto.AnswerInput{
			QuestionID: answer.QuestionID,
			Rating:     answer.RatingValue,
			Remarks:    answer.TextResponse,
			OptionID:   answer.SelectedOptionID,
		})
	}
	return view, nil
}

// authorize resolves the survey and the permission edge the submitter rates under.
// The edge's window end is extended by the grace period.
func (s *SubmissionService) authorize(ctx context.Context, surveyID, departmentID string, now time.Time) (*models.Survey, *models.Permission, error) {
	survey, err := s.surveys.FindByID(ctx, surveyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "survey not found")
		}
		return nil, nil, appErrors.Storage(err, "failed to load survey")
	}
	if survey.ManagingDepartmentID != departmentID {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "department does not manage this survey")
	}

	permission, err := s.permissions.FindByPair(ctx, departmentID, survey.RatedDepartmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "department is not permitted to rate this department")
		}
		return nil, nil, appErrors.Storage(err, "failed to load permission")
	}
	if permission.IsSelf() && !permission.CanSurveySelf {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "self-rating is not permitted")
	}
	if !permission.Allows(now, s.cfg.Compliance.GracePeriod) {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "survey window is closed")
	}
	return survey, permission, nil
}

// checkAnswers validates answers against the survey's questions. With complete set,
// every question must be answered and low ratings need a remark.
func checkAnswers(questions []models.Question, inputs []dto.AnswerInput, complete bool) (checkedAnswers, error) {
	byID := make(map[string]models.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	result := checkedAnswers{byCategory: make(map[models.Category][]answeredQuestion)}
	seen := make(map[string]struct{}, len(inputs))
	for _, input := range inputs {
		question, ok := byID[input.QuestionID]
		if !ok {
			return checkedAnswers{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown question %s", input.QuestionID))
		}
		if _, dup := seen[input.QuestionID]; dup {
			return checkedAnswers{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("question %d answered more than once", question.Order))
		}
		seen[input.QuestionID] = struct{}{}
		remark := strings.TrimSpace(input.Remarks)

		answer := models.Answer{QuestionID: question.ID, TextResponse: remark}
		switch question.Type {
		case models.QuestionTypeRating:
			if input.Rating == nil {
				if complete {
					return checkedAnswers{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("question %d requires a rating", question.Order))
				}
				break
			}
			rating := *input.Rating
			if rating < minRating || rating > maxRating {
				return checkedAnswers{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("question %d rating must be between %d and %d", question.Order, minRating, maxRating))
			}
			if rating <= lowRatingCeiling && remark == "" && complete {
				return checkedAnswers{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("question %d: a remark is required for ratings of %d or below", question.Order, lowRatingCeiling))
			}
			answer.RatingValue = &rating
			result.ratings = append(result.ratings, CategoryRating{Category: question.Category, Rating: rating})
			if rating <= lowRatingCeiling {
				result.lowRatings = append(result.lowRatings, lowRating{questionID: question.ID, rating: rating, remark: remark})
			}
		case models.QuestionTypeMultipleChoice:
			if input.Rating != nil {
				return checkedAnswers{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("question %d does not take a rating", question.Order))
			}
			if input.OptionID == nil && complete {
				return checkedAnswers{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("question %d requires an option", question.Order))
			}
			answer.SelectedOptionID = input.OptionID
		default:
			if input.Rating != nil {
				return checkedAnswers{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("question %d does not take a rating", question.Order))
			}
		}

		result.answers = append(result.answers, answer)
		result.byCategory[question.Category] = append(result.byCategory[question.Category], answeredQuestion{
			QuestionID: question.ID,
			Text:       question.Text,
			Rating:     answer.RatingValue,
			Remarks:    remark,
		})
	}

	if complete && len(seen) != len(questions) {
		for _, q := range questions {
			if _, ok := seen[q.ID]; !ok {
				return checkedAnswers{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("question %d is unanswered", q.Order))
			}
		}
	}
	return result, nil
}
