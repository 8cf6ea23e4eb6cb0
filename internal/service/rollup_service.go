package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/dept-csat-engine/pkg/errors"
)

type rollupStore interface {
	LockDepartment(ctx context.Context, exec sqlx.ExtContext, departmentID string) error
	AverageOverall(ctx context.Context, exec sqlx.ExtContext, departmentID string) (*float64, error)
	SetSuperOverall(ctx context.Context, exec sqlx.ExtContext, departmentID string, value float64) (int64, error)
}

// RollupService maintains the per-department super overall rating.
type RollupService struct {
	events  rollupStore
	tx      txProvider
	metrics *MetricsService
	logger  *zap.Logger
}

// NewRollupService constructs the roll-up service.
func NewRollupService(events rollupStore, tx txProvider, metrics *MetricsService, logger *zap.Logger) *RollupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RollupService{events: events, tx: tx, metrics: metrics, logger: logger}
}

// RecomputeSuperOverall recomputes a department's super overall in its own transaction.
// It returns nil when the department has no rated summary events.
func (s *RollupService) RecomputeSuperOverall(ctx context.Context, departmentID string) (result *float64, err error) {
	if departmentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "department id is required")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to begin roll-up transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	result, err = s.RecomputeTx(ctx, tx, departmentID)
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Storage(err, "failed to commit roll-up")
	}
	return result, nil
}

// RecomputeTx recomputes within the caller's transaction. Concurrent roll-ups of the
// same department block on an advisory lock until the holder commits.
func (s *RollupService) RecomputeTx(ctx context.Context, exec sqlx.ExtContext, departmentID string) (*float64, error) {
	start := time.Now()
	if err := s.events.LockDepartment(ctx, exec, departmentID); err != nil {
		return nil, appErrors.Storage(err, "failed to lock department for roll-up")
	}
	avg, err := s.events.AverageOverall(ctx, exec, departmentID)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to average overall ratings")
	}
	if avg == nil {
		s.metrics.ObserveRollup(departmentID, nil, time.Since(start))
		return nil, nil
	}

	value := round2(*avg)
	affected, err := s.events.SetSuperOverall(ctx, exec, departmentID, value)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to store super overall")
	}
	s.metrics.ObserveRollup(departmentID, &value, time.Since(start))
	s.logger.Debug("super overall recomputed",
		zap.String("department_id", departmentID),
		zap.Float64("super_overall", value),
		zap.Int64("summary_events", affected),
	)
	return &value, nil
}
