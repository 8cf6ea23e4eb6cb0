package service

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/dept-csat-engine/internal/models"
	appErrors "github.com/noah-isme/dept-csat-engine/pkg/errors"
	"github.com/noah-isme/dept-csat-engine/pkg/mailer"
)

const windowDateLayout = "02 Jan 2006"

type activeUserLister interface {
	ListActiveUsers(ctx context.Context, departmentIDs []string) ([]models.DirectoryUser, error)
}

type mailSender interface {
	Send(msg mailer.Message) error
}

// PermissionAlertService mails active users of rater departments when a window opens.
type PermissionAlertService struct {
	users  activeUserLister
	mail   mailSender
	logger *zap.Logger
}

// NewPermissionAlertService constructs the alert sender.
func NewPermissionAlertService(users activeUserLister, mail mailSender, logger *zap.Logger) *PermissionAlertService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PermissionAlertService{users: users, mail: mail, logger: logger}
}

// NotifyWindow sends one mail per active user. Every recipient is attempted; the
// first delivery failure is returned.
func (s *PermissionAlertService) NotifyWindow(ctx context.Context, alert PermissionWindowAlert) error {
	if len(alert.DepartmentIDs) == 0 {
		return nil
	}
	users, err := s.users.ListActiveUsers(ctx, alert.DepartmentIDs)
	if err != nil {
		return appErrors.Storage(err, "failed to load alert recipients")
	}

	subject := fmt.Sprintf("Survey window open until %s", alert.EndDate.Format(windowDateLayout))
	var firstErr error
	sent := 0
	for _, user := range users {
		if strings.TrimSpace(user.Email) == "" {
			continue
		}
		msg := mailer.Message{
			To:      []string{user.Email},
			Subject: subject,
			HTML:    windowAlertHTML(user.Name, alert),
		}
		if err := s.mail.Send(msg); err != nil {
			s.logger.Warn("permission alert not delivered", zap.String("user_id", user.ID), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		sent++
	}
	s.logger.Info("permission alerts sent", zap.Int("recipients", sent), zap.Int("departments", len(alert.DepartmentIDs)))
	return firstErr
}

func windowAlertHTML(name string, alert PermissionWindowAlert) string {
	var b strings.Builder
	b.WriteString(`<p style="margin:0 0 18px 0;line-height:1.7;">Hello `)
	b.WriteString(template.HTMLEscapeString(strings.TrimSpace(name)))
	b.WriteString(`,</p>`)
	fmt.Fprintf(&b, `<p style="margin:0 0 18px 0;line-height:1.7;">Your department can now rate the departments assigned to it. The survey window runs from <strong>%s</strong> to <strong>%s</strong>.</p>`,
		template.HTMLEscapeString(alert.StartDate.Format(windowDateLayout)),
		template.HTMLEscapeString(alert.EndDate.Format(windowDateLayout)),
	)
	b.WriteString(`<p style="margin:0;line-height:1.7;color:#6b7280;">Submissions after the end date are recorded as late.</p>`)
	return b.String()
}
