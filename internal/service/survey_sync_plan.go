package service

import (
	"fmt"
	"sort"

	"github.com/noah-isme/dept-csat-engine/internal/models"
)

// SyncPlan is the diff between the surveys the permission matrix justifies and the
// surveys in the catalog.
type SyncPlan struct {
	Create  []models.Survey
	Delete  []models.Survey
	Skipped []models.Permission
}

// PlanSurveySync computes the catalog diff. Permission windows are ignored: any
// permission row justifies its survey. Permissions naming an unknown department are
// returned in Skipped and justify nothing.
func PlanSurveySync(permissions []models.Permission, existing []models.Survey, departments []models.Department) SyncPlan {
	names := make(map[string]string, len(departments))
	for _, d := range departments {
		names[d.ID] = d.Name
	}

	var plan SyncPlan
	valid := make(map[models.DepartmentPair]struct{}, len(permissions))
	for _, p := range permissions {
		_, fromOK := names[p.FromDepartmentID]
		_, toOK := names[p.ToDepartmentID]
		if !fromOK || !toOK {
			plan.Skipped = append(plan.Skipped, p)
			continue
		}
		valid[models.DepartmentPair{RatedDepartmentID: p.ToDepartmentID, ManagingDepartmentID: p.FromDepartmentID}] = struct{}{}
	}

	present := make(map[models.DepartmentPair]struct{}, len(existing))
	for _, s := range existing {
		pair := s.Pair()
		if _, ok := valid[pair]; !ok {
			plan.Delete = append(plan.Delete, s)
			continue
		}
		present[pair] = struct{}{}
	}

	for pair := range valid {
		if _, ok := present[pair]; ok {
			continue
		}
		rated := names[pair.RatedDepartmentID]
		managing := names[pair.ManagingDepartmentID]
		plan.Create = append(plan.Create, models.Survey{
			Title:                fmt.Sprintf("Quarterly Survey for %s", rated),
			Description:          fmt.Sprintf("Survey for %s managed by %s", rated, managing),
			RatedDepartmentID:    pair.RatedDepartmentID,
			ManagingDepartmentID: pair.ManagingDepartmentID,
		})
	}
	sort.Slice(plan.Create, func(i, j int) bool {
		if plan.Create[i].RatedDepartmentID == plan.Create[j].RatedDepartmentID {
			return plan.Create[i].ManagingDepartmentID < plan.Create[j].ManagingDepartmentID
		}
		return plan.Create[i].RatedDepartmentID < plan.Create[j].RatedDepartmentID
	})

	return plan
}

// Empty reports whether applying the plan would change nothing.
func (p SyncPlan) Empty() bool {
	return len(p.Create) == 0 && len(p.Delete) == 0
}
