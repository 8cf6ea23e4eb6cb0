package dto

import "time"

// PermissionPair is one requested edge of the permission matrix.
type PermissionPair struct {
	FromDepartmentID string `json:"fromDeptId" validate:"required"`
	ToDepartmentID   string `json:"toDeptId" validate:"required"`
	CanSurveySelf    bool   `json:"canSurveySelf"`
}

// SetPermissionsRequest replaces the permission matrix with a shared window.
type SetPermissionsRequest struct {
	Pairs     []PermissionPair `json:"allowedPairs" validate:"dive"`
	StartDate time.Time        `json:"startDate" validate:"required"`
	EndDate   time.Time        `json:"endDate" validate:"required,gtefield=StartDate"`
	Notify    bool             `json:"notify"`
}

// SetPermissionsResult reports the applied diff.
type SetPermissionsResult struct {
	Inserted int        `json:"inserted"`
	Updated  int        `json:"updated"`
	Deleted  int        `json:"deleted"`
	Skipped  int        `json:"skipped"`
	Sync     SyncResult `json:"sync"`
}
