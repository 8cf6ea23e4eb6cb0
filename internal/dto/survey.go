package dto

// SyncResult summarises a catalog reconciliation run.
type SyncResult struct {
	Created int `json:"created"`
	Deleted int `json:"deleted"`
	Skipped int `json:"skipped"`
}

// AssignedSurvey is a survey the caller's department may currently answer.
type AssignedSurvey struct {
	ID                   string `json:"id" db:"id"`
	Title                string `json:"title" db:"title"`
	Description          string `json:"description" db:"description"`
	RatedDepartmentID    string `json:"ratedDepartmentId" db:"rated_department_id"`
	RatedDepartmentName  string `json:"ratedDepartmentName" db:"rated_department_name"`
	ManagingDepartmentID string `json:"managingDepartmentId" db:"managing_department_id"`
}
