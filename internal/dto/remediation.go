package dto

import "time"

// IncomingFeedback is an unanswered low rating received by a department.
type IncomingFeedback struct {
	ID             string    `json:"id" db:"id"`
	FromDepartment string    `json:"fromDepartment" db:"from_department"`
	Rating         int       `json:"ratingGiven" db:"rating"`
	Remark         string    `json:"remark" db:"remark"`
	Category       *string   `json:"category,omitempty" db:"category"`
	SubmittedAt    time.Time `json:"submittedAt" db:"submitted_at"`
}

// OutgoingFeedback is an answered low rating the department gave.
type OutgoingFeedback struct {
	ID                string     `json:"id" db:"id"`
	Department        string     `json:"department" db:"to_department"`
	Rating            int        `json:"rating" db:"rating"`
	Remark            string     `json:"yourRemark" db:"remark"`
	Category          *string    `json:"category,omitempty" db:"category"`
	Explanation       string     `json:"explanation" db:"explanation"`
	ActionPlan        *string    `json:"actionPlan,omitempty" db:"action_plan"`
	ResponsiblePerson *string    `json:"responsiblePerson,omitempty" db:"responsible_person"`
	TargetDate        *time.Time `json:"targetDate,omitempty" db:"target_date"`
	Acknowledged      bool       `json:"acknowledged" db:"acknowledged"`
}

// RespondRequest carries the rated department's remediation plan for a detail event.
type RespondRequest struct {
	EventID           string     `json:"id" validate:"required"`
	DepartmentID      string     `json:"departmentId" validate:"required"`
	Explanation       string     `json:"explanation" validate:"required"`
	ActionPlan        string     `json:"actionPlan" validate:"required"`
	ResponsiblePerson string     `json:"responsiblePerson" validate:"required"`
	TargetDate        *time.Time `json:"targetDate,omitempty"`
}
