package dto

import "time"

// AnswerInput is one decoded answer from the web layer.
type AnswerInput struct {
	QuestionID string  `json:"id" validate:"required"`
	Rating     *int    `json:"rating,omitempty"`
	Remarks    string  `json:"remarks"`
	OptionID   *string `json:"optionId,omitempty"`
}

// SubmissionInput is a completed survey submission on behalf of a department.
type SubmissionInput struct {
	SurveyID     string        `json:"surveyId" validate:"required"`
	UserID       string        `json:"userId" validate:"required"`
	DepartmentID string        `json:"departmentId" validate:"required"`
	Answers      []AnswerInput `json:"answers" validate:"required,min=1,dive"`
	Suggestion   string        `json:"suggestion"`
}

// DraftInput saves partial answers for later completion.
type DraftInput struct {
	SurveyID     string        `json:"surveyId" validate:"required"`
	UserID       string        `json:"userId" validate:"required"`
	DepartmentID string        `json:"departmentId" validate:"required"`
	Answers      []AnswerInput `json:"answers" validate:"dive"`
	Suggestion   string        `json:"suggestion"`
}

// CategoryScore is the average of one category's four ratings.
type CategoryScore struct {
	Category string  `json:"category"`
	Average  float64 `json:"average"`
}

// SubmissionResult reports the outcome of an aggregated submission. Complete is false
// when category data was insufficient; OverallRating is nil in that case.
type SubmissionResult struct {
	SubmissionID      string          `json:"submissionId"`
	Complete          bool            `json:"complete"`
	Categories        []CategoryScore `json:"categories,omitempty"`
	OverallRating     *float64        `json:"overallRating,omitempty"`
	RatingDescription string          `json:"ratingDescription,omitempty"`
	DetailEvents      int             `json:"detailEvents"`
	SuperOverall      *float64        `json:"superOverall,omitempty"`
	SubmittedAt       time.Time       `json:"submittedAt"`
}

// DraftView is the persisted draft returned to the caller.
type DraftView struct {
	SurveyID        string        `json:"surveyId"`
	Answers         []AnswerInput `json:"answers"`
	FinalSuggestion string        `json:"finalSuggestion"`
	SavedAt         time.Time     `json:"savedAt"`
}
