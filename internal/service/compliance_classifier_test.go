package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/dept-csat-engine/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func floatPtr(v float64) *float64 {
	return &v
}

var complianceDepartments = []models.Department{
	{ID: "d-fin", Name: "Finance"},
	{ID: "d-log", Name: "Logistics"},
}

func windowFor(from string, end time.Time) models.Permission {
	return models.Permission{ID: "p-" + from, FromDepartmentID: from, ToDepartmentID: "d-other", StartDate: end.AddDate(0, -1, 0), EndDate: end}
}

func TestClassifyWithinGraceNeverMissed(t *testing.T) {
	end := day(2024, 1, 1)
	permissions := []models.Permission{windowFor("d-fin", end), windowFor("d-log", end)}

	report := ClassifyDepartments(complianceDepartments, permissions, nil, day(2024, 1, 8), DefaultComplianceRules())
	assert.Empty(t, report.MissedDepartments)
	assert.Equal(t, []string{"Finance", "Logistics"}, report.PendingDepartments)
}

func TestClassifyAfterGraceWithoutSubmissionIsMissed(t *testing.T) {
	end := day(2024, 1, 1)
	permissions := []models.Permission{windowFor("d-fin", end), windowFor("d-log", end)}
	submissions := []models.SubmissionTimestamp{
		{SubmitterDepartmentID: "d-log", Status: models.SubmissionStatusSubmitted, SubmittedAt: day(2024, 1, 8), SurveyAttendance: floatPtr(95)},
		{SubmitterDepartmentID: "d-fin", Status: models.SubmissionStatusDraft, SubmittedAt: day(2024, 1, 2)},
	}

	report := ClassifyDepartments(complianceDepartments, permissions, submissions, day(2024, 1, 9), DefaultComplianceRules())
	assert.Equal(t, []string{"Finance"}, report.MissedDepartments)
	assert.Equal(t, 1, report.MissedCount)
	assert.Equal(t, []string{"Logistics"}, report.LateDepartments)
}

func TestClassifyWithoutPermissionIsMissed(t *testing.T) {
	report := ClassifyDepartments(complianceDepartments, []models.Permission{windowFor("d-fin", day(2024, 3, 1))}, nil, day(2024, 1, 1), DefaultComplianceRules())
	assert.Equal(t, []string{"Logistics"}, report.MissedDepartments)
	assert.Equal(t, []string{"Finance"}, report.PendingDepartments)
}

func TestClassifyUsesLatestDeadline(t *testing.T) {
	permissions := []models.Permission{
		windowFor("d-fin", day(2024, 1, 1)),
		{ID: "p-2", FromDepartmentID: "d-fin", ToDepartmentID: "d-log", StartDate: day(2024, 1, 1), EndDate: day(2024, 2, 1)},
	}
	report := ClassifyDepartments(complianceDepartments[:1], permissions, nil, day(2024, 1, 20), DefaultComplianceRules())
	assert.Empty(t, report.MissedDepartments)
}

func TestClassifyOnTimeBeatsLate(t *testing.T) {
	end := day(2024, 1, 1)
	permissions := []models.Permission{windowFor("d-fin", end)}
	submissions := []models.SubmissionTimestamp{
		{SubmitterDepartmentID: "d-fin", Status: models.SubmissionStatusSubmitted, SubmittedAt: day(2024, 1, 5), SurveyAttendance: floatPtr(95)},
		{SubmitterDepartmentID: "d-fin", Status: models.SubmissionStatusSubmitted, SubmittedAt: day(2023, 12, 30), SurveyAttendance: floatPtr(100)},
	}
	report := ClassifyDepartments(complianceDepartments[:1], permissions, submissions, day(2024, 2, 1), DefaultComplianceRules())
	assert.Equal(t, []string{"Finance"}, report.OnTimeDepartments)
	assert.Empty(t, report.LateDepartments)
}

func TestAttendanceFor(t *testing.T) {
	rules := DefaultComplianceRules()
	end := day(2024, 1, 1)

	onTime := rules.AttendanceFor(end, end)
	if assert.NotNil(t, onTime) {
		assert.Equal(t, 100.0, *onTime)
	}
	late := rules.AttendanceFor(day(2024, 1, 8), end)
	if assert.NotNil(t, late) {
		assert.Equal(t, 95.0, *late)
	}
	assert.Nil(t, rules.AttendanceFor(day(2024, 1, 8).Add(time.Second), end))
}
