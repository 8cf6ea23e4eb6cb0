package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dept-csat-engine/internal/dto"
	"github.com/noah-isme/dept-csat-engine/internal/models"
	"github.com/noah-isme/dept-csat-engine/internal/repository"
	appErrors "github.com/noah-isme/dept-csat-engine/pkg/errors"
)

type surveyReaderStub struct {
	survey    *models.Survey
	questions []models.Question
}

func (s surveyReaderStub) FindByID(ctx context.Context, id string) (*models.Survey, error) {
	if s.survey == nil || s.survey.ID != id {
		return nil, sql.ErrNoRows
	}
	survey := *s.survey
	return &survey, nil
}

func (s surveyReaderStub) ListQuestions(ctx context.Context, surveyID string) ([]models.Question, error) {
	return s.questions, nil
}

type permissionFinderStub struct {
	permission *models.Permission
}

func (s permissionFinderStub) FindByPair(ctx context.Context, from, to string) (*models.Permission, error) {
	if s.permission == nil || s.permission.FromDepartmentID != from || s.permission.ToDepartmentID != to {
		return nil, sql.ErrNoRows
	}
	permission := *s.permission
	return &permission, nil
}

type submissionStoreStub struct {
	final        bool
	createErr    error
	created      []models.Submission
	answers      []models.Answer
	draftDeletes int
	draft        *models.Submission
}

func (s *submissionStoreStub) HasFinal(ctx context.Context, exec sqlx.ExtContext, surveyID, userID string) (bool, error) {
	return s.final, nil
}

func (s *submissionStoreStub) FindDraft(ctx context.Context, exec sqlx.ExtContext, surveyID, userID string) (*models.Submission, error) {
	return s.draft, nil
}

func (s *submissionStoreStub) DeleteDrafts(ctx context.Context, exec sqlx.ExtContext, surveyID, userID string) error {
	s.draftDeletes++
	s.draft = nil
	return nil
}

func (s *submissionStoreStub) Create(ctx context.Context, exec sqlx.ExtContext, submission *models.Submission) error {
	if s.createErr != nil {
		return s.createErr
	}
	submission.ID = fmt.Sprintf("sub-%d", len(s.created)+1)
	s.created = append(s.created, *submission)
	if submission.Status == models.SubmissionStatusDraft {
		draft := *submission
		s.draft = &draft
	}
	return nil
}

func (s *submissionStoreStub) InsertAnswers(ctx context.Context, exec sqlx.ExtContext, answers []models.Answer) error {
	s.answers = append(s.answers, answers...)
	return nil
}

func (s *submissionStoreStub) ListAnswers(ctx context.Context, submissionID string) ([]models.Answer, error) {
	var out []models.Answer
	for _, a := range s.answers {
		if a.SubmissionID == submissionID {
			out = append(out, a)
		}
	}
	return out, nil
}

func standardQuestions(surveyID string) []models.Question {
	questions := make([]models.Question, 0, len(models.StandardQuestions))
	for _, tpl := range models.StandardQuestions {
		questions = append(questions, models.Question{
			ID:       fmt.Sprintf("q-%d", tpl.Order),
			SurveyID: surveyID,
			Text:     tpl.Text,
			Type:     models.QuestionTypeRating,
			Order:    tpl.Order,
			Category: tpl.Category,
		})
	}
	return questions
}

// scenarioAnswers rates Q:4 D:3 C:2 R:4 I:4 with remarks on every low rating.
func scenarioAnswers() []dto.AnswerInput {
	perCategory := []int{4, 3, 2, 4, 4}
	answers := make([]dto.AnswerInput, 0, 20)
	for i := 0; i < 20; i++ {
		rating := perCategory[i/4]
		answer := dto.AnswerInput{QuestionID: fmt.Sprintf("q-%d", i+1), Rating: &rating}
		if rating <= 2 {
			answer.Remarks = "needs follow-up"
		}
		answers = append(answers, answer)
	}
	return answers
}

type submissionFixture struct {
	svc         *SubmissionService
	submissions *submissionStoreStub
	events      *eventStoreStub
}

func newSubmissionFixture(t *testing.T, tx txProvider, now time.Time, questions []models.Question) submissionFixture {
	t.Helper()
	survey := &models.Survey{ID: "s-1", RatedDepartmentID: "d-log", ManagingDepartmentID: "d-fin"}
	permission := &models.Permission{
		ID:               "p-1",
		FromDepartmentID: "d-fin",
		ToDepartmentID:   "d-log",
		StartDate:        day(2023, 12, 1),
		EndDate:          day(2024, 1, 1),
	}
	if questions == nil {
		questions = standardQuestions(survey.ID)
	}
	submissions := &submissionStoreStub{}
	events := &eventStoreStub{}
	svc := NewSubmissionService(SubmissionServiceParams{
		Surveys:     surveyReaderStub{survey: survey, questions: questions},
		Permissions: permissionFinderStub{permission: permission},
		Submissions: submissions,
		Events:      events,
		Rollup:      NewRollupService(events, nil, nil, nil),
		Tx:          tx,
		Metrics:     NewMetricsService(),
	})
	svc.now = func() time.Time { return now }
	return submissionFixture{svc: svc, submissions: submissions, events: events}
}

func scenarioInput() dto.SubmissionInput {
	return dto.SubmissionInput{
		SurveyID:     "s-1",
		UserID:       "u-1",
		DepartmentID: "d-fin",
		Answers:      scenarioAnswers(),
		Suggestion:   "  keep the weekly sync  ",
	}
}

func TestAggregateSubmissionScenario(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	fx := newSubmissionFixture(t, tx, day(2023, 12, 20), nil)

	result, err := fx.svc.AggregateSubmission(context.Background(), scenarioInput())
	require.NoError(t, err)
	require.True(t, result.Complete)
	require.NotNil(t, result.OverallRating)
	assert.Equal(t, 85.0, *result.OverallRating)
	assert.Equal(t, "Satisfactory - Meets the Customer requirement", result.RatingDescription)
	assert.Equal(t, 4, result.DetailEvents)
	require.NotNil(t, result.SuperOverall)
	assert.Equal(t, 85.0, *result.SuperOverall)

	require.Len(t, fx.submissions.created, 1)
	stored := fx.submissions.created[0]
	assert.Equal(t, models.SubmissionStatusSubmitted, stored.Status)
	assert.Equal(t, "keep the weekly sync", stored.Suggestions)
	require.NotNil(t, stored.SurveyAttendance)
	assert.Equal(t, 100.0, *stored.SurveyAttendance)
	assert.Len(t, fx.submissions.answers, 20)
	assert.Equal(t, 1, fx.submissions.draftDeletes)

	var details, summaries int
	for _, e := range fx.events.events {
		if e.IsSummary() {
			summaries++
			require.NotNil(t, e.FinalSuggestion)
			assert.Equal(t, "keep the weekly sync", *e.FinalSuggestion)
			continue
		}
		details++
		assert.Equal(t, 2, *e.Rating)
		assert.Equal(t, "needs follow-up", *e.Remark)
	}
	assert.Equal(t, 4, details)
	assert.Equal(t, 1, summaries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAggregateSubmissionLowRatingNeedsRemark(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	fx := newSubmissionFixture(t, tx, day(2023, 12, 20), nil)

	input := scenarioInput()
	input.Answers[9].Remarks = "   "
	_, err := fx.svc.AggregateSubmission(context.Background(), input)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, fx.submissions.created)
	assert.Empty(t, fx.events.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAggregateSubmissionRejectsBadAnswers(t *testing.T) {
	tx, _ := newTxProviderMock(t)
	fx := newSubmissionFixture(t, tx, day(2023, 12, 20), nil)

	outOfRange := 5
	cases := map[string]func(in *dto.SubmissionInput){
		"rating out of range": func(in *dto.SubmissionInput) { in.Answers[0].Rating = &outOfRange },
		"unknown question":    func(in *dto.SubmissionInput) { in.Answers[0].QuestionID = "q-99" },
		"missing question":    func(in *dto.SubmissionInput) { in.Answers = in.Answers[:19] },
		"duplicate answer":    func(in *dto.SubmissionInput) { in.Answers[1].QuestionID = in.Answers[0].QuestionID },
		"missing rating":      func(in *dto.SubmissionInput) { in.Answers[0].Rating = nil },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			input := scenarioInput()
			mutate(&input)
			_, err := fx.svc.AggregateSubmission(context.Background(), input)
			assert.True(t, errors.Is(err, appErrors.ErrValidation), "got %v", err)
		})
	}
	assert.Empty(t, fx.submissions.created)
}

func TestAggregateSubmissionDuplicate(t *testing.T) {
	tx, _ := newTxProviderMock(t)
	fx := newSubmissionFixture(t, tx, day(2023, 12, 20), nil)
	fx.submissions.final = true

	_, err := fx.svc.AggregateSubmission(context.Background(), scenarioInput())
	assert.True(t, errors.Is(err, appErrors.ErrDuplicateSubmission))
	assert.Empty(t, fx.submissions.created)
}

func TestAggregateSubmissionConcurrentDuplicateRollsBack(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()
	fx := newSubmissionFixture(t, tx, day(2023, 12, 20), nil)
	fx.submissions.createErr = repository.ErrDuplicate

	_, err := fx.svc.AggregateSubmission(context.Background(), scenarioInput())
	assert.True(t, errors.Is(err, appErrors.ErrDuplicateSubmission))
	assert.Empty(t, fx.events.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAggregateSubmissionReplacesDraft(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()
	fx := newSubmissionFixture(t, tx, day(2023, 12, 20), nil)

	rating := 3
	_, err := fx.svc.SaveDraft(context.Background(), dto.DraftInput{
		SurveyID:     "s-1",
		UserID:       "u-1",
		DepartmentID: "d-fin",
		Answers:      []dto.AnswerInput{{QuestionID: "q-1", Rating: &rating}},
	})
	require.NoError(t, err)
	require.NotNil(t, fx.submissions.draft)

	result, err := fx.svc.AggregateSubmission(context.Background(), scenarioInput())
	require.NoError(t, err)
	assert.True(t, result.Complete)
	assert.Nil(t, fx.submissions.draft)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAggregateSubmissionWindowAndGrace(t *testing.T) {
	t.Run("late within grace", func(t *testing.T) {
		tx, mock := newTxProviderMock(t)
		mock.ExpectBegin()
		mock.ExpectCommit()
		fx := newSubmissionFixture(t, tx, day(2024, 1, 8), nil)

		_, err := fx.svc.AggregateSubmission(context.Background(), scenarioInput())
		require.NoError(t, err)
		require.NotNil(t, fx.submissions.created[0].SurveyAttendance)
		assert.Equal(t, 95.0, *fx.submissions.created[0].SurveyAttendance)
	})

	t.Run("after grace", func(t *testing.T) {
		tx, _ := newTxProviderMock(t)
		fx := newSubmissionFixture(t, tx, day(2024, 1, 9), nil)

		_, err := fx.svc.AggregateSubmission(context.Background(), scenarioInput())
		assert.True(t, errors.Is(err, appErrors.ErrForbidden))
	})

	t.Run("before window", func(t *testing.T) {
		tx, _ := newTxProviderMock(t)
		fx := newSubmissionFixture(t, tx, day(2023, 11, 30), nil)

		_, err := fx.svc.AggregateSubmission(context.Background(), scenarioInput())
		assert.True(t, errors.Is(err, appErrors.ErrForbidden))
	})
}

func TestAggregateSubmissionAuthorization(t *testing.T) {
	tx, _ := newTxProviderMock(t)
	fx := newSubmissionFixture(t, tx, day(2023, 12, 20), nil)

	input := scenarioInput()
	input.DepartmentID = "d-hr"
	_, err := fx.svc.AggregateSubmission(context.Background(), input)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	input = scenarioInput()
	input.SurveyID = "s-404"
	_, err = fx.svc.AggregateSubmission(context.Background(), input)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	input = scenarioInput()
	input.Answers = nil
	_, err = fx.svc.AggregateSubmission(context.Background(), input)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestAggregateSubmissionSelfRatingNeedsFlag(t *testing.T) {
	tx, _ := newTxProviderMock(t)
	self := &models.Permission{ID: "p-self", FromDepartmentID: "d-fin", ToDepartmentID: "d-fin", StartDate: day(2023, 12, 1), EndDate: day(2024, 1, 1)}
	svc := NewSubmissionService(SubmissionServiceParams{
		Surveys:     surveyReaderStub{survey: &models.Survey{ID: "s-1", RatedDepartmentID: "d-fin", ManagingDepartmentID: "d-fin"}, questions: standardQuestions("s-1")},
		Permissions: permissionFinderStub{permission: self},
		Submissions: &submissionStoreStub{},
		Events:      &eventStoreStub{},
		Tx:          tx,
	})
	svc.now = func() time.Time { return day(2023, 12, 20) }

	_, err := svc.AggregateSubmission(context.Background(), scenarioInput())
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestAggregateSubmissionIncompleteCategories(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	questions := standardQuestions("s-1")[:19]
	fx := newSubmissionFixture(t, tx, day(2023, 12, 20), questions)

	input := scenarioInput()
	input.Answers = input.Answers[:19]
	result, err := fx.svc.AggregateSubmission(context.Background(), input)
	require.NoError(t, err)
	assert.False(t, result.Complete)
	assert.Nil(t, result.OverallRating)
	assert.Nil(t, result.SuperOverall)
	assert.Nil(t, fx.submissions.created[0].RatingDescription)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDraft(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	fx := newSubmissionFixture(t, tx, day(2023, 12, 20), nil)

	view, err := fx.svc.GetDraft(context.Background(), "s-1", "u-1")
	require.NoError(t, err)
	assert.Nil(t, view)

	rating := 1
	_, err = fx.svc.SaveDraft(context.Background(), dto.DraftInput{
		SurveyID:     "s-1",
		UserID:       "u-1",
		DepartmentID: "d-fin",
		Answers:      []dto.AnswerInput{{QuestionID: "q-2", Rating: &rating}},
		Suggestion:   "half way",
	})
	require.NoError(t, err)

	view, err = fx.svc.GetDraft(context.Background(), "s-1", "u-1")
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, "half way", view.FinalSuggestion)
	require.Len(t, view.Answers, 1)
	assert.Equal(t, "q-2", view.Answers[0].QuestionID)
	assert.Equal(t, 1, *view.Answers[0].Rating)
}

func TestSaveDraftRejectedAfterSubmission(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()
	fx := newSubmissionFixture(t, tx, day(2023, 12, 20), nil)
	fx.submissions.final = true

	_, err := fx.svc.SaveDraft(context.Background(), dto.DraftInput{SurveyID: "s-1", UserID: "u-1", DepartmentID: "d-fin"})
	assert.True(t, errors.Is(err, appErrors.ErrDuplicateSubmission))
	assert.NoError(t, mock.ExpectationsWereMet())
}
