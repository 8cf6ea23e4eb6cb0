package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dept-csat-engine/internal/dto"
	"github.com/noah-isme/dept-csat-engine/internal/models"
	"github.com/noah-isme/dept-csat-engine/internal/service"
	"github.com/noah-isme/dept-csat-engine/pkg/jobs"
)

type fakeQueue struct {
	handlers map[string]jobs.Handler
	enqueued []jobs.Job
}

func (q *fakeQueue) Register(jobType string, handler jobs.Handler) {
	if q.handlers == nil {
		q.handlers = map[string]jobs.Handler{}
	}
	q.handlers[jobType] = handler
}

func (q *fakeQueue) Enqueue(job jobs.Job) error {
	q.enqueued = append(q.enqueued, job)
	return nil
}

type syncStub struct{ calls int }

func (s *syncStub) Synchronize(ctx context.Context) (dto.SyncResult, error) {
	s.calls++
	return dto.SyncResult{}, nil
}

type complianceStub struct{}

func (complianceStub) ClassifyDepartments(ctx context.Context, now time.Time) (*dto.ComplianceReport, error) {
	return &dto.ComplianceReport{MissedDepartments: []string{"HR"}, MissedCount: 1}, nil
}

type rollupStub struct {
	mu          sync.Mutex
	departments []string
	failFor     string
	done        chan string
}

func (r *rollupStub) RecomputeSuperOverall(ctx context.Context, departmentID string) (*float64, error) {
	r.mu.Lock()
	r.departments = append(r.departments, departmentID)
	r.mu.Unlock()
	if r.done != nil {
		r.done <- departmentID
	}
	if departmentID == r.failFor {
		return nil, errors.New("lock timeout")
	}
	return nil, nil
}

type departmentsStub struct{ ids []string }

func (d departmentsStub) List(ctx context.Context, exec sqlx.ExtContext) ([]models.Department, error) {
	ids := d.ids
	if ids == nil {
		ids = []string{"d-fin", "d-log"}
	}
	out := make([]models.Department, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.Department{ID: id})
	}
	return out, nil
}

type alertStub struct{ alerts []service.PermissionWindowAlert }

func (a *alertStub) NotifyWindow(ctx context.Context, alert service.PermissionWindowAlert) error {
	a.alerts = append(a.alerts, alert)
	return nil
}

func TestRegisterJobs(t *testing.T) {
	q := &fakeQueue{}
	sync := &syncStub{}
	rollup := &rollupStub{}
	alerts := &alertStub{}
	registerJobs(q, jobHandlers{
		sync:        sync,
		compliance:  complianceStub{},
		rollup:      rollup,
		departments: departmentsStub{},
		alerts:      alerts,
	})
	ctx := context.Background()

	require.NoError(t, q.handlers[jobs.TypeSurveySync](ctx, jobs.Job{}))
	assert.Equal(t, 1, sync.calls)
	require.NoError(t, q.handlers[jobs.TypeComplianceSnapshot](ctx, jobs.Job{}))

	require.NoError(t, q.handlers[jobs.TypeRollupRecompute](ctx, jobs.Job{}))
	assert.Empty(t, q.enqueued)
	assert.Equal(t, []string{"d-fin", "d-log"}, rollup.departments)
	require.NoError(t, q.handlers[jobs.TypeRollupRecompute](ctx, jobs.Job{Type: jobs.TypeRollupRecompute, Payload: "d-hr"}))
	assert.Equal(t, []string{"d-fin", "d-log", "d-hr"}, rollup.departments)

	notifier := queuedNotifier{queue: q}
	require.NoError(t, notifier.NotifyWindow(ctx, service.PermissionWindowAlert{DepartmentIDs: []string{"d-fin"}}))
	last := q.enqueued[len(q.enqueued)-1]
	assert.Equal(t, jobs.TypePermissionAlert, last.Type)
	require.NoError(t, q.handlers[jobs.TypePermissionAlert](ctx, last))
	require.Len(t, alerts.alerts, 1)
}

func TestRegisterJobsWithoutAlerts(t *testing.T) {
	q := &fakeQueue{}
	registerJobs(q, jobHandlers{sync: &syncStub{}, compliance: complianceStub{}, rollup: &rollupStub{}, departments: departmentsStub{}})
	_, ok := q.handlers[jobs.TypePermissionAlert]
	assert.False(t, ok)
}

func TestRollupSweepKeepsFailuresAndContinues(t *testing.T) {
	q := &fakeQueue{}
	rollup := &rollupStub{failFor: "d-fin"}
	registerJobs(q, jobHandlers{sync: &syncStub{}, compliance: complianceStub{}, rollup: rollup, departments: departmentsStub{}})

	err := q.handlers[jobs.TypeRollupRecompute](context.Background(), jobs.Job{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "d-fin")
	assert.Equal(t, []string{"d-fin", "d-log"}, rollup.departments)
}

func TestRollupSweepOnSingleWorkerQueue(t *testing.T) {
	ids := make([]string, 10)
	for i := range ids {
		ids[i] = fmt.Sprintf("d-%02d", i)
	}
	rollup := &rollupStub{done: make(chan string, len(ids))}
	q := jobs.NewQueue("sweep", jobs.QueueConfig{Workers: 1})
	registerJobs(q, jobHandlers{sync: &syncStub{}, compliance: complianceStub{}, rollup: rollup, departments: departmentsStub{ids: ids}})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(jobs.Job{Type: jobs.TypeRollupRecompute}))

	seen := 0
	timeout := time.After(2 * time.Second)
	for seen < len(ids) {
		select {
		case <-rollup.done:
			seen++
		case <-timeout:
			t.Fatalf("recomputed %d of %d departments", seen, len(ids))
		}
	}

	ran := make(chan struct{}, 1)
	q.Register(jobs.TypeComplianceSnapshot, func(ctx context.Context, job jobs.Job) error {
		ran <- struct{}{}
		return nil
	})
	require.NoError(t, q.Enqueue(jobs.Job{Type: jobs.TypeComplianceSnapshot}))
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not pick up the next job")
	}
}
