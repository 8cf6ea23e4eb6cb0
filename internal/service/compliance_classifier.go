package service

import (
	"sort"
	"time"

	"github.com/noah-isme/dept-csat-engine/internal/dto"
	"github.com/noah-isme/dept-csat-engine/internal/models"
)

// ComplianceRules parameterises the classifier.
type ComplianceRules struct {
	GracePeriod      time.Duration
	OnTimeAttendance float64
	LateAttendance   float64
}

// DefaultComplianceRules returns the stock 7 day grace period and 100/95 sentinels.
func DefaultComplianceRules() ComplianceRules {
	return ComplianceRules{GracePeriod: 7 * 24 * time.Hour, OnTimeAttendance: 100, LateAttendance: 95}
}

func (r ComplianceRules) withDefaults() ComplianceRules {
	def := DefaultComplianceRules()
	if r.GracePeriod <= 0 {
		r.GracePeriod = def.GracePeriod
	}
	if r.OnTimeAttendance <= 0 {
		r.OnTimeAttendance = def.OnTimeAttendance
	}
	if r.LateAttendance <= 0 {
		r.LateAttendance = def.LateAttendance
	}
	return r
}

// AttendanceFor returns the attendance credit for a submission made at submittedAt
// against a window ending at deadline, or nil when it falls after the grace period.
func (r ComplianceRules) AttendanceFor(submittedAt, deadline time.Time) *float64 {
	r = r.withDefaults()
	var credit float64
	switch {
	case !submittedAt.After(deadline):
		credit = r.OnTimeAttendance
	case !submittedAt.After(deadline.Add(r.GracePeriod)):
		credit = r.LateAttendance
	default:
		return nil
	}
	return &credit
}

// ClassifyDepartments buckets every department. A department's deadline is the latest
// end date among the permissions it rates under; without one it is missed. Until the
// grace period after the deadline has elapsed a department is never missed. After it,
// the department is missed unless one of its non-draft submissions was made on or
// before the end of the grace period. Departments that are not missed are on-time or
// late by the attendance credit of their submissions, else pending.
func ClassifyDepartments(
	departments []models.Department,
	permissions []models.Permission,
	submissions []models.SubmissionTimestamp,
	now time.Time,
	rules ComplianceRules,
) dto.ComplianceReport {
	rules = rules.withDefaults()

	deadlines := make(map[string]time.Time, len(departments))
	for _, p := range permissions {
		if current, ok := deadlines[p.FromDepartmentID]; !ok || p.EndDate.After(current) {
			deadlines[p.FromDepartmentID] = p.EndDate
		}
	}

	byDepartment := make(map[string][]models.SubmissionTimestamp, len(departments))
	for _, s := range submissions {
		if s.Status == models.SubmissionStatusDraft {
			continue
		}
		byDepartment[s.SubmitterDepartmentID] = append(byDepartment[s.SubmitterDepartmentID], s)
	}

	report := dto.ComplianceReport{
		GeneratedAt:        now.UTC(),
		OnTimeDepartments:  []string{},
		LateDepartments:    []string{},
		MissedDepartments:  []string{},
		PendingDepartments: []string{},
	}

	for _, dept := range departments {
		subs := byDepartment[dept.ID]
		deadline, ok := deadlines[dept.ID]
		if !ok || missedDeadline(subs, deadline.Add(rules.GracePeriod), now) {
			report.MissedDepartments = append(report.MissedDepartments, dept.Name)
			continue
		}

		switch {
		case hasAttendance(subs, rules.OnTimeAttendance):
			report.OnTimeDepartments = append(report.OnTimeDepartments, dept.Name)
		case hasAttendance(subs, rules.LateAttendance):
			report.LateDepartments = append(report.LateDepartments, dept.Name)
		default:
			report.PendingDepartments = append(report.PendingDepartments, dept.Name)
		}
	}

	sort.Strings(report.OnTimeDepartments)
	sort.Strings(report.LateDepartments)
	sort.Strings(report.MissedDepartments)
	sort.Strings(report.PendingDepartments)
	report.MissedCount = len(report.MissedDepartments)
	return report
}

func missedDeadline(subs []models.SubmissionTimestamp, graceEnd, now time.Time) bool {
	if !now.After(graceEnd) {
		return false
	}
	for _, s := range subs {
		if !s.SubmittedAt.After(graceEnd) {
			return false
		}
	}
	return true
}

func hasAttendance(subs []models.SubmissionTimestamp, sentinel float64) bool {
	for _, s := range subs {
		if s.SurveyAttendance != nil && *s.SurveyAttendance == sentinel {
			return true
		}
	}
	return false
}
