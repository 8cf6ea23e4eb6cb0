package models

import "time"

// Department is a rater and/or ratee in the survey matrix.
type Department struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// DirectoryUser is the read-only projection of an account used for notifications.
type DirectoryUser struct {
	ID           string `db:"id" json:"id"`
	Name         string `db:"name" json:"name"`
	Email        string `db:"email" json:"email"`
	DepartmentID string `db:"department_id" json:"departmentId"`
}
