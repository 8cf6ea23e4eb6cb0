package models

import "time"

// Permission authorizes FromDepartmentID to rate ToDepartmentID within [StartDate, EndDate].
type Permission struct {
	ID               string    `db:"id" json:"id"`
	FromDepartmentID string    `db:"from_department_id" json:"fromDepartmentId"`
	ToDepartmentID   string    `db:"to_department_id" json:"toDepartmentId"`
	StartDate        time.Time `db:"start_date" json:"startDate"`
	EndDate          time.Time `db:"end_date" json:"endDate"`
	CanSurveySelf    bool      `db:"can_survey_self" json:"canSurveySelf"`
	CreatedAt        time.Time `db:"created_at" json:"createdAt"`
}

// IsSelf reports whether the permission is a self-rating edge.
func (p Permission) IsSelf() bool {
	return p.FromDepartmentID == p.ToDepartmentID
}

// Allows reports whether the edge may be used at the given instant. Both bounds are
// inclusive; extra extends the end of the window.
func (p Permission) Allows(at time.Time, extra time.Duration) bool {
	if p.IsSelf() && !p.CanSurveySelf {
		return false
	}
	return !at.Before(p.StartDate) && !at.After(p.EndDate.Add(extra))
}

// DepartmentPair identifies a directed (rated, managing) survey slot.
type DepartmentPair struct {
	RatedDepartmentID    string
	ManagingDepartmentID string
}
