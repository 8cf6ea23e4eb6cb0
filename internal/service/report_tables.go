package service

import (
	"strconv"

	"github.com/noah-isme/dept-csat-engine/internal/dto"
	"github.com/noah-isme/dept-csat-engine/pkg/export"
)

// Compliance buckets as written to exported reports.
const (
	ComplianceOnTime  = "on_time"
	ComplianceLate    = "late"
	ComplianceMissed  = "missed"
	CompliancePending = "pending"
)

// ComplianceTable flattens a compliance report into one row per department.
func ComplianceTable(report *dto.ComplianceReport) export.Table {
	table := export.Table{
		Title:   "Survey Compliance " + report.GeneratedAt.Format("2006-01-02"),
		Headers: []string{"Department", "Status"},
	}
	buckets := []struct {
		status string
		names  []string
	}{
		{ComplianceOnTime, report.OnTimeDepartments},
		{ComplianceLate, report.LateDepartments},
		{ComplianceMissed, report.MissedDepartments},
		{CompliancePending, report.PendingDepartments},
	}
	for _, b := range buckets {
		for _, name := range b.names {
			table.Rows = append(table.Rows, []string{name, b.status})
		}
	}
	return table
}

// PerformanceTable lists each department's super overall and whether it meets the target.
func PerformanceTable(resp *dto.AdminDashboardResponse) export.Table {
	below := make(map[string]struct{}, len(resp.BelowTarget))
	for _, name := range resp.BelowTarget {
		below[name] = struct{}{}
	}
	table := export.Table{
		Title:   "Department Performance",
		Headers: []string{"Department", "Super Overall", "Ratings", "Meets Target"},
	}
	for _, p := range resp.DepartmentPerformance {
		_, miss := below[p.Name]
		table.Rows = append(table.Rows, []string{
			p.Name,
			strconv.FormatFloat(p.SuperOverall, 'f', 2, 64),
			strconv.Itoa(p.Ratings),
			strconv.FormatBool(!miss),
		})
	}
	return table
}
