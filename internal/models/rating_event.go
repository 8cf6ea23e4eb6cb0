package models

import "time"

// RatingEvent is a derived record of a submission. Summary events have no QuestionID
// and carry the overall rating; detail events carry one low rating and its remediation.
type RatingEvent struct {
	ID                string     `db:"id" json:"id"`
	SurveyID          string     `db:"survey_id" json:"surveyId"`
	UserID            string     `db:"user_id" json:"userId"`
	SubmissionID      string     `db:"survey_submission_id" json:"submissionId"`
	QuestionID        *string    `db:"question_id" json:"questionId,omitempty"`
	FromDepartmentID  string     `db:"from_department_id" json:"fromDepartmentId"`
	ToDepartmentID    string     `db:"to_department_id" json:"toDepartmentId"`
	SubmittedAt       time.Time  `db:"submitted_at" json:"submittedAt"`
	Rating            *int       `db:"rating" json:"rating,omitempty"`
	Remark            *string    `db:"remark" json:"remark,omitempty"`
	FinalSuggestion   *string    `db:"final_suggestion" json:"finalSuggestion,omitempty"`
	Explanation       *string    `db:"explanation" json:"explanation,omitempty"`
	ActionPlan        *string    `db:"action_plan" json:"actionPlan,omitempty"`
	ResponsiblePerson *string    `db:"responsible_person" json:"responsiblePerson,omitempty"`
	TargetDate        *time.Time `db:"target_date" json:"targetDate,omitempty"`
	Acknowledged      bool       `db:"acknowledged" json:"acknowledged"`
	RespondedAt       *time.Time `db:"responded_at" json:"respondedAt,omitempty"`
	OverallRating     *float64   `db:"overall_rating" json:"overallRating,omitempty"`
	SuperOverall      *float64   `db:"super_overall" json:"superOverall,omitempty"`
}

// IsSummary reports whether the event is the per-submission summary row.
func (e RatingEvent) IsSummary() bool {
	return e.QuestionID == nil
}

// Answered reports whether the rated department has explained a detail event.
func (e RatingEvent) Answered() bool {
	return e.Explanation != nil && *e.Explanation != ""
}
