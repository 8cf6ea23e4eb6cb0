package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/dept-csat-engine/internal/dto"
	"github.com/noah-isme/dept-csat-engine/internal/models"
	appErrors "github.com/noah-isme/dept-csat-engine/pkg/errors"
)

type remediationStore interface {
	ListIncoming(ctx context.Context, departmentID string) ([]dto.IncomingFeedback, error)
	ListOutgoing(ctx context.Context, departmentID string) ([]dto.OutgoingFeedback, error)
	FindForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.RatingEvent, error)
	Respond(ctx context.Context, exec sqlx.ExtContext, req dto.RespondRequest, at time.Time) error
	Acknowledge(ctx context.Context, exec sqlx.ExtContext, id string) error
}

// RemediationService runs the low-rating follow-up between rated and rater departments.
type RemediationService struct {
	events    remediationStore
	tx        txProvider
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewRemediationService constructs the service.
func NewRemediationService(events remediationStore, tx txProvider, validate *validator.Validate, logger *zap.Logger) *RemediationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemediationService{events: events, tx: tx, validator: validate, logger: logger, now: time.Now}
}

// ListIncoming returns low ratings the department received and has not yet explained.
func (s *RemediationService) ListIncoming(ctx context.Context, departmentID string) ([]dto.IncomingFeedback, error) {
	if departmentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "department id is required")
	}
	rows, err := s.events.ListIncoming(ctx, departmentID)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load incoming feedback")
	}
	return rows, nil
}

// ListOutgoing returns low ratings the department gave that have been explained.
func (s *RemediationService) ListOutgoing(ctx context.Context, departmentID string) ([]dto.OutgoingFeedback, error) {
	if departmentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "department id is required")
	}
	rows, err := s.events.ListOutgoing(ctx, departmentID)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load outgoing feedback")
	}
	return rows, nil
}

// Respond records the rated department's explanation and action plan.
func (s *RemediationService) Respond(ctx context.Context, req dto.RespondRequest) (err error) {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid remediation payload")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Storage(err, "failed to begin remediation transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	event, err := s.load(ctx, tx, req.EventID)
	if err != nil {
		return err
	}
	if event.ToDepartmentID != req.DepartmentID {
		err = appErrors.Clone(appErrors.ErrForbidden, "only the rated department can respond")
		return err
	}
	if event.Acknowledged {
		err = appErrors.Clone(appErrors.ErrPreconditionFailed, "feedback already acknowledged")
		return err
	}
	if err = s.events.Respond(ctx, tx, req, s.now().UTC()); err != nil {
		return appErrors.Storage(err, "failed to store remediation")
	}
	if err = tx.Commit(); err != nil {
		return appErrors.Storage(err, "failed to commit remediation")
	}
	s.logger.Info("feedback answered", zap.String("event_id", event.ID), zap.String("department_id", req.DepartmentID))
	return nil
}

// Acknowledge lets the rater department accept an answered low rating.
func (s *RemediationService) Acknowledge(ctx context.Context, eventID, departmentID string) (err error) {
	if eventID == "" || departmentID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "event id and department id are required")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Storage(err, "failed to begin acknowledgement transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	event, err := s.load(ctx, tx, eventID)
	if err != nil {
		return err
	}
	if event.FromDepartmentID != departmentID {
		err = appErrors.Clone(appErrors.ErrForbidden, "only the rating department can acknowledge")
		return err
	}
	if !event.Answered() {
		err = appErrors.Clone(appErrors.ErrPreconditionFailed, "feedback has not been answered yet")
		return err
	}
	if !event.Acknowledged {
		if err = s.events.Acknowledge(ctx, tx, event.ID); err != nil {
			return appErrors.Storage(err, "failed to acknowledge feedback")
		}
	}
	if err = tx.Commit(); err != nil {
		return appErrors.Storage(err, "failed to commit acknowledgement")
	}
	return nil
}

func (s *RemediationService) load(ctx context.Context, exec sqlx.ExtContext, id string) (*models.RatingEvent, error) {
	event, err := s.events.FindForUpdate(ctx, exec, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "feedback not found")
		}
		return nil, appErrors.Storage(err, "failed to load feedback")
	}
	if event.IsSummary() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "summary events carry no remediation")
	}
	return event, nil
}
