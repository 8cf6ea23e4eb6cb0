package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/dept-csat-engine/internal/dto"
	"github.com/noah-isme/dept-csat-engine/internal/models"
	appErrors "github.com/noah-isme/dept-csat-engine/pkg/errors"
)

type permissionStore interface {
	List(ctx context.Context, exec sqlx.ExtContext) ([]models.Permission, error)
	ListFrom(ctx context.Context, fromDepartmentID string) ([]models.Permission, error)
	Insert(ctx context.Context, exec sqlx.ExtContext, permission *models.Permission) error
	UpdateWindow(ctx context.Context, exec sqlx.ExtContext, permission models.Permission) error
	DeleteByIDs(ctx context.Context, exec sqlx.ExtContext, ids []string) error
}

type catalogSynchronizer interface {
	SynchronizeTx(ctx context.Context, exec sqlx.ExtContext) (dto.SyncResult, error)
}

type assignedSurveyLister interface {
	ListAssigned(ctx context.Context, departmentID string, at time.Time, grace time.Duration) ([]dto.AssignedSurvey, error)
}

// WindowNotifier announces a newly opened survey window to rater departments.
type WindowNotifier interface {
	NotifyWindow(ctx context.Context, alert PermissionWindowAlert) error
}

// PermissionWindowAlert names the rater departments of a permission window.
type PermissionWindowAlert struct {
	DepartmentIDs []string  `json:"departmentIds"`
	StartDate     time.Time `json:"startDate"`
	EndDate       time.Time `json:"endDate"`
}

// PermissionService administers the permission matrix.
type PermissionService struct {
	permissions permissionStore
	departments departmentLister
	surveys     assignedSurveyLister
	sync        catalogSynchronizer
	notifier    WindowNotifier
	tx          txProvider
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	grace       time.Duration
	now         func() time.Time
}

// PermissionServiceParams groups constructor dependencies. Notifier is optional.
// GracePeriod extends every window for the active and assigned reads, matching
// submission authorization; zero selects the default.
type PermissionServiceParams struct {
	Permissions permissionStore
	Departments departmentLister
	Surveys     assignedSurveyLister
	Sync        catalogSynchronizer
	Notifier    WindowNotifier
	Tx          txProvider
	Cache       *CacheService
	Metrics     *MetricsService
	Validator   *validator.Validate
	Logger      *zap.Logger
	GracePeriod time.Duration
}

// NewPermissionService constructs the service.
func NewPermissionService(params PermissionServiceParams) *PermissionService {
	if params.Validator == nil {
		params.Validator = validator.New()
	}
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	return &PermissionService{
		permissions: params.Permissions,
		departments: params.Departments,
		surveys:     params.Surveys,
		sync:        params.Sync,
		notifier:    params.Notifier,
		tx:          params.Tx,
		cache:       params.Cache,
		metrics:     params.Metrics,
		validator:   params.Validator,
		logger:      params.Logger,
		grace:       ComplianceRules{GracePeriod: params.GracePeriod}.withDefaults().GracePeriod,
		now:         time.Now,
	}
}

// Replace makes the matrix equal to the requested pairs, all sharing one window, and
// resynchronizes the survey catalog in the same transaction. Pairs naming unknown
// departments and self pairs without the self-rating flag are skipped.
func (s *PermissionService) Replace(ctx context.Context, req dto.SetPermissionsRequest) (result *dto.SetPermissionsResult, err error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid permission payload")
	}

	departments, err := s.departments.List(ctx, nil)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load departments")
	}
	known := make(map[string]struct{}, len(departments))
	for _, d := range departments {
		known[d.ID] = struct{}{}
	}

	result = &dto.SetPermissionsResult{}
	desired := make(map[models.DepartmentPair]dto.PermissionPair, len(req.Pairs))
	for _, pair := range req.Pairs {
		_, fromOK := known[pair.FromDepartmentID]
		_, toOK := known[pair.ToDepartmentID]
		if !fromOK || !toOK || (pair.FromDepartmentID == pair.ToDepartmentID && !pair.CanSurveySelf) {
			s.logger.Warn("skipping permission pair",
				zap.String("from_department_id", pair.FromDepartmentID),
				zap.String("to_department_id", pair.ToDepartmentID),
			)
			result.Skipped++
			continue
		}
		desired[pairKey(pair.FromDepartmentID, pair.ToDepartmentID)] = pair
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to begin permission transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	existing, err := s.permissions.List(ctx, tx)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load permissions")
	}

	var stale []string
	present := make(map[models.DepartmentPair]struct{}, len(existing))
	for _, current := range existing {
		key := pairKey(current.FromDepartmentID, current.ToDepartmentID)
		pair, ok := desired[key]
		if !ok {
			stale = append(stale, current.ID)
			continue
		}
		present[key] = struct{}{}
		if current.StartDate.Equal(req.StartDate) && current.EndDate.Equal(req.EndDate) && current.CanSurveySelf == pair.CanSurveySelf {
			continue
		}
		current.StartDate = req.StartDate
		current.EndDate = req.EndDate
		current.CanSurveySelf = pair.CanSurveySelf
		if err = s.permissions.UpdateWindow(ctx, tx, current); err != nil {
			return nil, appErrors.Storage(err, "failed to update permission")
		}
		result.Updated++
	}

	if err = s.permissions.DeleteByIDs(ctx, tx, stale); err != nil {
		return nil, appErrors.Storage(err, "failed to delete permissions")
	}
	result.Deleted = len(stale)

	for _, pair := range req.Pairs {
		key := pairKey(pair.FromDepartmentID, pair.ToDepartmentID)
		if _, ok := desired[key]; !ok {
			continue
		}
		if _, ok := present[key]; ok {
			continue
		}
		present[key] = struct{}{}
		permission := &models.Permission{
			FromDepartmentID: pair.FromDepartmentID,
			ToDepartmentID:   pair.ToDepartmentID,
			StartDate:        req.StartDate,
			EndDate:          req.EndDate,
			CanSurveySelf:    pair.CanSurveySelf,
		}
		if err = s.permissions.Insert(ctx, tx, permission); err != nil {
			return nil, appErrors.Storage(err, "failed to insert permission")
		}
		result.Inserted++
	}

	result.Sync, err = s.sync.SynchronizeTx(ctx, tx)
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Storage(err, "failed to commit permissions")
	}

	s.metrics.RecordSync(result.Sync)
	s.cache.InvalidateDashboards(ctx)
	s.logger.Info("permission matrix replaced",
		zap.Int("inserted", result.Inserted),
		zap.Int("updated", result.Updated),
		zap.Int("deleted", result.Deleted),
		zap.Int("skipped", result.Skipped),
	)

	if req.Notify && s.notifier != nil && len(desired) > 0 {
		alert := PermissionWindowAlert{StartDate: req.StartDate, EndDate: req.EndDate}
		raters := make(map[string]struct{}, len(desired))
		for _, pair := range req.Pairs {
			if _, ok := desired[pairKey(pair.FromDepartmentID, pair.ToDepartmentID)]; !ok {
				continue
			}
			if _, ok := raters[pair.FromDepartmentID]; ok {
				continue
			}
			raters[pair.FromDepartmentID] = struct{}{}
			alert.DepartmentIDs = append(alert.DepartmentIDs, pair.FromDepartmentID)
		}
		if notifyErr := s.notifier.NotifyWindow(ctx, alert); notifyErr != nil {
			s.logger.Warn("failed to dispatch permission window alert", zap.Error(notifyErr))
		}
	}
	return result, nil
}

// ListActiveFor returns the edges a department may rate under right now, grace period included.
func (s *PermissionService) ListActiveFor(ctx context.Context, departmentID string) ([]models.Permission, error) {
	if departmentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "department id is required")
	}
	permissions, err := s.permissions.ListFrom(ctx, departmentID)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load permissions")
	}
	now := s.now().UTC()
	active := make([]models.Permission, 0, len(permissions))
	for _, p := range permissions {
		if p.Allows(now, s.grace) {
			active = append(active, p)
		}
	}
	return active, nil
}

// AssignedSurveys lists the surveys the department may answer right now, grace period included.
func (s *PermissionService) AssignedSurveys(ctx context.Context, departmentID string) ([]dto.AssignedSurvey, error) {
	if departmentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "department id is required")
	}
	surveys, err := s.surveys.ListAssigned(ctx, departmentID, s.now().UTC(), s.grace)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load assigned surveys")
	}
	return surveys, nil
}

func pairKey(fromDepartmentID, toDepartmentID string) models.DepartmentPair {
	return models.DepartmentPair{RatedDepartmentID: toDepartmentID, ManagingDepartmentID: fromDepartmentID}
}
