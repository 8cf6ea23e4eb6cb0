package service

import (
	"context"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/dept-csat-engine/internal/dto"
	"github.com/noah-isme/dept-csat-engine/internal/models"
	appErrors "github.com/noah-isme/dept-csat-engine/pkg/errors"
)

type permissionLister interface {
	List(ctx context.Context, exec sqlx.ExtContext) ([]models.Permission, error)
}

type departmentLister interface {
	List(ctx context.Context, exec sqlx.ExtContext) ([]models.Department, error)
}

type surveyCatalog interface {
	LockCatalog(ctx context.Context, exec sqlx.ExtContext) error
	List(ctx context.Context, exec sqlx.ExtContext) ([]models.Survey, error)
	Create(ctx context.Context, exec sqlx.ExtContext, survey *models.Survey) error
	CreateQuestions(ctx context.Context, exec sqlx.ExtContext, surveyID string, templates []models.QuestionTemplate) error
	DeleteByIDs(ctx context.Context, exec sqlx.ExtContext, ids []string) error
}

// SurveySyncService reconciles the survey catalog with the permission matrix.
type SurveySyncService struct {
	permissions permissionLister
	departments departmentLister
	surveys     surveyCatalog
	tx          txProvider
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewSurveySyncService constructs the synchronizer.
func NewSurveySyncService(
	permissions permissionLister,
	departments departmentLister,
	surveys surveyCatalog,
	tx txProvider,
	cache *CacheService,
	metrics *MetricsService,
	logger *zap.Logger,
) *SurveySyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SurveySyncService{
		permissions: permissions,
		departments: departments,
		surveys:     surveys,
		tx:          tx,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
	}
}

// Synchronize creates a survey, with the standard questionnaire, for every permitted
// (rated, managing) pair that lacks one and deletes surveys no permission justifies.
// Running it twice without permission changes is a no-op.
func (s *SurveySyncService) Synchronize(ctx context.Context) (result dto.SyncResult, err error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return dto.SyncResult{}, appErrors.Storage(err, "failed to begin survey sync")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	result, err = s.SynchronizeTx(ctx, tx)
	if err != nil {
		return dto.SyncResult{}, err
	}
	if err = tx.Commit(); err != nil {
		return dto.SyncResult{}, appErrors.Storage(err, "failed to commit survey sync")
	}

	s.metrics.RecordSync(result)
	if result.Created > 0 || result.Deleted > 0 {
		s.cache.InvalidateDashboards(ctx)
	}
	s.logger.Info("survey catalog synchronized",
		zap.Int("created", result.Created),
		zap.Int("deleted", result.Deleted),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

// SynchronizeTx runs the reconciliation inside the caller's transaction.
func (s *SurveySyncService) SynchronizeTx(ctx context.Context, exec sqlx.ExtContext) (dto.SyncResult, error) {
	if err := s.surveys.LockCatalog(ctx, exec); err != nil {
		return dto.SyncResult{}, appErrors.Storage(err, "failed to lock survey catalog")
	}
	permissions, err := s.permissions.List(ctx, exec)
	if err != nil {
		return dto.SyncResult{}, appErrors.Storage(err, "failed to load permissions")
	}
	departments, err := s.departments.List(ctx, exec)
	if err != nil {
		return dto.SyncResult{}, appErrors.Storage(err, "failed to load departments")
	}
	existing, err := s.surveys.List(ctx, exec)
	if err != nil {
		return dto.SyncResult{}, appErrors.Storage(err, "failed to load surveys")
	}

	plan := PlanSurveySync(permissions, existing, departments)
	for _, p := range plan.Skipped {
		s.logger.Warn("permission references unknown department",
			zap.String("permission_id", p.ID),
			zap.String("from_department_id", p.FromDepartmentID),
			zap.String("to_department_id", p.ToDepartmentID),
		)
	}

	if len(plan.Delete) > 0 {
		ids := make([]string, 0, len(plan.Delete))
		for _, survey := range plan.Delete {
			ids = append(ids, survey.ID)
		}
		if err := s.surveys.DeleteByIDs(ctx, exec, ids); err != nil {
			return dto.SyncResult{}, appErrors.Storage(err, "failed to delete orphaned surveys")
		}
	}

	for i := range plan.Create {
		survey := &plan.Create[i]
		if err := s.surveys.Create(ctx, exec, survey); err != nil {
			return dto.SyncResult{}, appErrors.Storage(err, "failed to create survey")
		}
		if err := s.surveys.CreateQuestions(ctx, exec, survey.ID, models.StandardQuestions); err != nil {
			return dto.SyncResult{}, appErrors.Storage(err, "failed to seed survey questions")
		}
	}

	return dto.SyncResult{
		Created: len(plan.Create),
		Deleted: len(plan.Delete),
		Skipped: len(plan.Skipped),
	}, nil
}
