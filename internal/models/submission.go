package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// SubmissionStatus captures the per (survey, user) state machine.
type SubmissionStatus string

const (
	SubmissionStatusDraft     SubmissionStatus = "Draft"
	SubmissionStatusSubmitted SubmissionStatus = "Submitted"
)

// Submission is one attempt by a user, acting for their department, to answer a survey.
type Submission struct {
	ID                    string           `db:"id" json:"id"`
	SurveyID              string           `db:"survey_id" json:"surveyId"`
	SubmitterUserID       string           `db:"submitter_user_id" json:"submitterUserId"`
	SubmitterDepartmentID string           `db:"submitter_department_id" json:"submitterDepartmentId"`
	RatedDepartmentID     string           `db:"rated_department_id" json:"ratedDepartmentId"`
	Status                SubmissionStatus `db:"status" json:"status"`
	SubmittedAt           time.Time        `db:"submitted_at" json:"submittedAt"`
	Suggestions           string           `db:"suggestions" json:"suggestions"`
	AnswersByCategory     types.JSONText   `db:"answers_by_category" json:"answersByCategory"`
	OverallRating         *float64         `db:"overall_customer_rating" json:"overallRating,omitempty"`
	RatingDescription     *string          `db:"rating_description" json:"ratingDescription,omitempty"`
	SurveyAttendance      *float64         `db:"survey_attendance" json:"surveyAttendance,omitempty"`
}

// Answer is one value for one question within one submission.
type Answer struct {
	ID               string  `db:"id" json:"id"`
	SubmissionID     string  `db:"submission_id" json:"submissionId"`
	QuestionID       string  `db:"question_id" json:"questionId"`
	RatingValue      *int    `db:"rating_value" json:"ratingValue,omitempty"`
	TextResponse     string  `db:"text_response" json:"textResponse"`
	SelectedOptionID *string `db:"selected_option_id" json:"selectedOptionId,omitempty"`
}

// SubmissionTimestamp is the compliance projection of a submission.
type SubmissionTimestamp struct {
	SubmitterDepartmentID string           `db:"submitter_department_id"`
	Status                SubmissionStatus `db:"status"`
	SubmittedAt           time.Time        `db:"submitted_at"`
	SurveyAttendance      *float64         `db:"survey_attendance"`
}
