package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/dept-csat-engine/internal/dto"
	appErrors "github.com/noah-isme/dept-csat-engine/pkg/errors"
)

type catalogCounter interface {
	CountCatalog(ctx context.Context) (total int, submitted int, err error)
}

type performanceReader interface {
	DepartmentPerformance(ctx context.Context) ([]dto.DepartmentPerformance, error)
	RatingsByRater(ctx context.Context, departmentID string) ([]dto.RaterRating, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL          time.Duration
	PerformanceTarget float64
}

// DashboardService composes dashboard read models, cached when Redis is available.
type DashboardService struct {
	catalog     catalogCounter
	performance performanceReader
	cache       *CacheService
	logger      *zap.Logger
	cfg         DashboardServiceConfig
}

// NewDashboardService constructs the service.
func NewDashboardService(catalog catalogCounter, performance performanceReader, cache *CacheService, logger *zap.Logger, cfg DashboardServiceConfig) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.PerformanceTarget <= 0 {
		cfg.PerformanceTarget = 80
	}
	return &DashboardService{catalog: catalog, performance: performance, cache: cache, logger: logger, cfg: cfg}
}

// Admin returns catalog totals, per-department performance and the departments
// whose average sits below the performance target.
func (s *DashboardService) Admin(ctx context.Context) (*dto.AdminDashboardResponse, error) {
	var cached dto.AdminDashboardResponse
	if hit, _ := s.cache.Get(ctx, adminDashboardKey(), &cached); hit {
		return &cached, nil
	}

	total, submitted, err := s.catalog.CountCatalog(ctx)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to count surveys")
	}
	performance, err := s.performance.DepartmentPerformance(ctx)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load department performance")
	}

	resp := &dto.AdminDashboardResponse{
		TotalSurveysAssigned:  total,
		TotalSurveysSubmitted: submitted,
		SurveysNotSubmitted:   total - submitted,
		DepartmentPerformance: performance,
		BelowTarget:           []string{},
		PerformanceTarget:     s.cfg.PerformanceTarget,
	}
	if resp.DepartmentPerformance == nil {
		resp.DepartmentPerformance = []dto.DepartmentPerformance{}
	}
	for _, dept := range performance {
		if dept.SuperOverall < s.cfg.PerformanceTarget {
			resp.BelowTarget = append(resp.BelowTarget, dept.Name)
		}
	}

	_ = s.cache.Set(ctx, adminDashboardKey(), resp, s.cfg.CacheTTL)
	return resp, nil
}

// RatingsByRater returns the average overall rating each rater gave the department.
func (s *DashboardService) RatingsByRater(ctx context.Context, departmentID string) ([]dto.RaterRating, error) {
	if departmentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "department id is required")
	}
	key := raterDashboardKey(departmentID)
	var cached []dto.RaterRating
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	rows, err := s.performance.RatingsByRater(ctx, departmentID)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load ratings by rater")
	}
	if rows == nil {
		rows = []dto.RaterRating{}
	}
	_ = s.cache.Set(ctx, key, rows, s.cfg.CacheTTL)
	return rows, nil
}
