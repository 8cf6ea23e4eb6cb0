package dto

import "time"

// ComplianceReport buckets departments by submission timeliness. Names are sorted.
type ComplianceReport struct {
	GeneratedAt        time.Time `json:"generatedAt"`
	OnTimeDepartments  []string  `json:"onTimeDepartments"`
	LateDepartments    []string  `json:"lateDepartments"`
	MissedDepartments  []string  `json:"missedDepartments"`
	PendingDepartments []string  `json:"pendingDepartments"`
	MissedCount        int       `json:"missedCount"`
}
