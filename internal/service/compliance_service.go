package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/dept-csat-engine/internal/dto"
	"github.com/noah-isme/dept-csat-engine/internal/models"
	appErrors "github.com/noah-isme/dept-csat-engine/pkg/errors"
)

type submissionTimestampLister interface {
	ListTimestamps(ctx context.Context, exec sqlx.ExtContext) ([]models.SubmissionTimestamp, error)
}

// ComplianceService loads the inputs of the compliance classifier from the store.
type ComplianceService struct {
	departments departmentLister
	permissions permissionLister
	submissions submissionTimestampLister
	tx          txProvider
	rules       ComplianceRules
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewComplianceService constructs the service.
func NewComplianceService(
	departments departmentLister,
	permissions permissionLister,
	submissions submissionTimestampLister,
	tx txProvider,
	rules ComplianceRules,
	metrics *MetricsService,
	logger *zap.Logger,
) *ComplianceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ComplianceService{
		departments: departments,
		permissions: permissions,
		submissions: submissions,
		tx:          tx,
		rules:       rules.withDefaults(),
		metrics:     metrics,
		logger:      logger,
	}
}

// ClassifyDepartments buckets every department as of now. Its three reads share one
// read-only repeatable-read snapshot.
func (s *ComplianceService) ClassifyDepartments(ctx context.Context, now time.Time) (report *dto.ComplianceReport, err error) {
	tx, err := s.tx.BeginTxx(ctx, &sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return nil, appErrors.Storage(err, "failed to begin compliance snapshot")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	departments, err := s.departments.List(ctx, tx)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load departments")
	}
	permissions, err := s.permissions.List(ctx, tx)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load permissions")
	}
	submissions, err := s.submissions.ListTimestamps(ctx, tx)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load submissions")
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Storage(err, "failed to close compliance snapshot")
	}

	classified := ClassifyDepartments(departments, permissions, submissions, now, s.rules)
	report = &classified
	s.metrics.SetCompliance(classified)
	s.logger.Info("compliance classified",
		zap.Int("on_time", len(report.OnTimeDepartments)),
		zap.Int("late", len(report.LateDepartments)),
		zap.Int("missed", report.MissedCount),
		zap.Int("pending", len(report.PendingDepartments)),
	)
	return report, nil
}
