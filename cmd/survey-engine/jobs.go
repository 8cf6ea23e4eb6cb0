package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/dept-csat-engine/internal/dto"
	"github.com/noah-isme/dept-csat-engine/internal/models"
	"github.com/noah-isme/dept-csat-engine/internal/service"
	"github.com/noah-isme/dept-csat-engine/pkg/jobs"
)

type synchronizer interface {
	Synchronize(ctx context.Context) (dto.SyncResult, error)
}

type complianceClassifier interface {
	ClassifyDepartments(ctx context.Context, now time.Time) (*dto.ComplianceReport, error)
}

type rollupRecomputer interface {
	RecomputeSuperOverall(ctx context.Context, departmentID string) (*float64, error)
}

type departmentLister interface {
	List(ctx context.Context, exec sqlx.ExtContext) ([]models.Department, error)
}

type enqueuer interface {
	Enqueue(job jobs.Job) error
}

type jobHandlers struct {
	sync        synchronizer
	compliance  complianceClassifier
	rollup      rollupRecomputer
	departments departmentLister
	alerts      service.WindowNotifier
	logger      *zap.Logger
}

type registrar interface {
	Register(jobType string, handler jobs.Handler)
}

func registerJobs(q registrar, h jobHandlers) {
	if h.logger == nil {
		h.logger = zap.NewNop()
	}

	q.Register(jobs.TypeSurveySync, func(ctx context.Context, job jobs.Job) error {
		_, err := h.sync.Synchronize(ctx)
		return err
	})

	q.Register(jobs.TypeComplianceSnapshot, func(ctx context.Context, job jobs.Job) error {
		report, err := h.compliance.ClassifyDepartments(ctx, time.Now().UTC())
		if err != nil {
			return err
		}
		if report.MissedCount > 0 {
			h.logger.Warn("departments missed their survey deadline", zap.Strings("departments", report.MissedDepartments))
		}
		return nil
	})

	// A department id recomputes that department; an empty payload sweeps every
	// department in place. Handlers never enqueue into their own queue.
	q.Register(jobs.TypeRollupRecompute, func(ctx context.Context, job jobs.Job) error {
		departmentID, _ := job.Payload.(string)
		if departmentID != "" {
			_, err := h.rollup.RecomputeSuperOverall(ctx, departmentID)
			return err
		}
		departments, err := h.departments.List(ctx, nil)
		if err != nil {
			return fmt.Errorf("list departments for roll-up: %w", err)
		}
		var failed []error
		for _, d := range departments {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if _, err := h.rollup.RecomputeSuperOverall(ctx, d.ID); err != nil {
				h.logger.Warn("roll-up failed", zap.String("department_id", d.ID), zap.Error(err))
				failed = append(failed, fmt.Errorf("roll-up %s: %w", d.ID, err))
			}
		}
		return errors.Join(failed...)
	})

	if h.alerts != nil {
		q.Register(jobs.TypePermissionAlert, func(ctx context.Context, job jobs.Job) error {
			alert, ok := job.Payload.(service.PermissionWindowAlert)
			if !ok {
				h.logger.Error("unexpected permission alert payload", zap.String("job_id", job.ID))
				return nil
			}
			return h.alerts.NotifyWindow(ctx, alert)
		})
	}
}

// queuedNotifier defers permission alert mails to the job queue.
type queuedNotifier struct {
	queue enqueuer
}

func (n queuedNotifier) NotifyWindow(ctx context.Context, alert service.PermissionWindowAlert) error {
	return n.queue.Enqueue(jobs.Job{Type: jobs.TypePermissionAlert, Payload: alert})
}
