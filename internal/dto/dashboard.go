package dto

// DepartmentPerformance is a department's average overall rating received.
type DepartmentPerformance struct {
	DepartmentID string  `json:"departmentId" db:"department_id"`
	Name         string  `json:"name" db:"name"`
	SuperOverall float64 `json:"superOverall" db:"super_overall"`
	Ratings      int     `json:"ratings" db:"ratings"`
}

// AdminDashboardResponse captures the admin dashboard payload.
type AdminDashboardResponse struct {
	TotalSurveysAssigned  int                     `json:"totalSurveysAssigned"`
	TotalSurveysSubmitted int                     `json:"totalSurveysSubmitted"`
	SurveysNotSubmitted   int                     `json:"surveysNotSubmitted"`
	DepartmentPerformance []DepartmentPerformance `json:"departmentPerformance"`
	BelowTarget           []string                `json:"belowTargetDepartments"`
	PerformanceTarget     float64                 `json:"performanceTarget"`
}

// RaterRating is the average overall rating one rater department gave.
type RaterRating struct {
	Name   string  `json:"name" db:"name"`
	Rating float64 `json:"rating" db:"rating"`
}
