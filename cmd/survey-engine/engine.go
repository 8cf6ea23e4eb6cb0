package main

import (
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/dept-csat-engine/internal/repository"
	"github.com/noah-isme/dept-csat-engine/internal/service"
	"github.com/noah-isme/dept-csat-engine/pkg/config"
)

// engine holds every operation the survey engine offers. The runner drives sync,
// compliance and roll-ups itself; the remaining services serve the embedding web layer.
type engine struct {
	departments *repository.DepartmentRepository
	metrics     *service.MetricsService
	sync        *service.SurveySyncService
	submissions *service.SubmissionService
	rollup      *service.RollupService
	compliance  *service.ComplianceService
	permissions *service.PermissionService
	remediation *service.RemediationService
	dashboard   *service.DashboardService
}

func newEngine(cfg *config.Config, db *sqlx.DB, cacheRepo service.CacheRepository, cacheEnabled bool, notifier service.WindowNotifier, logr *zap.Logger) *engine {
	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, cacheEnabled)

	departments := repository.NewDepartmentRepository(db)
	permissions := repository.NewPermissionRepository(db)
	surveys := repository.NewSurveyRepository(db)
	submissions := repository.NewSubmissionRepository(db)
	events := repository.NewRatingEventRepository(db)

	validate := validator.New()
	rules := service.ComplianceRules{
		GracePeriod:      cfg.Compliance.GracePeriod,
		OnTimeAttendance: cfg.Compliance.OnTimeAttendance,
		LateAttendance:   cfg.Compliance.LateAttendance,
	}

	rollup := service.NewRollupService(events, db, metrics, logr)
	syncSvc := service.NewSurveySyncService(permissions, departments, surveys, db, cacheSvc, metrics, logr)

	return &engine{
		departments: departments,
		metrics:     metrics,
		sync:        syncSvc,
		rollup:      rollup,
		compliance:  service.NewComplianceService(departments, permissions, submissions, db, rules, metrics, logr),
		submissions: service.NewSubmissionService(service.SubmissionServiceParams{
			Surveys:     surveys,
			Permissions: permissions,
			Submissions: submissions,
			Events:      events,
			Rollup:      rollup,
			Tx:          db,
			Cache:       cacheSvc,
			Metrics:     metrics,
			Validator:   validate,
			Logger:      logr,
			Config: service.SubmissionServiceConfig{
				Bands: service.RatingBands{
					Excellent:    cfg.Rating.Excellent,
					Satisfactory: cfg.Rating.Satisfactory,
					BelowAverage: cfg.Rating.BelowAverage,
				},
				Compliance: rules,
			},
		}),
		permissions: service.NewPermissionService(service.PermissionServiceParams{
			Permissions: permissions,
			Departments: departments,
			Surveys:     surveys,
			Sync:        syncSvc,
			Notifier:    notifier,
			Tx:          db,
			Cache:       cacheSvc,
			Metrics:     metrics,
			Validator:   validate,
			Logger:      logr,
			GracePeriod: rules.GracePeriod,
		}),
		remediation: service.NewRemediationService(events, db, validate, logr),
		dashboard: service.NewDashboardService(surveys, events, cacheSvc, logr, service.DashboardServiceConfig{
			CacheTTL:          cfg.Dashboard.CacheTTL,
			PerformanceTarget: cfg.Dashboard.PerformanceTarget,
		}),
	}
}
