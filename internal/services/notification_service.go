package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"

	"github.com/sabaq-center/sabaq-service/internal/mailer"
	"github.com/sabaq-center/sabaq-service/internal/models"
	"github.com/sabaq-center/sabaq-service/internal/repositories"
)

// dispatchBatchSize bounds one drain of the queue.
const dispatchBatchSize = 50

type notificationService struct {
	repo     repositories.Repository
	logger   *slog.Logger
	mailer   mailer.Mailer
	interval time.Duration
}

func NewNotificationService(repo repositories.Repository, logger *slog.Logger, m mailer.Mailer, interval time.Duration) NotificationService {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &notificationService{
		repo:     repo,
		logger:   logger,
		mailer:   m,
		interval: interval,
	}
}

// QueueEmail inserts a durable PENDING row. Sending happens on the
// dispatcher's schedule; enqueue failures are the only failure mode visible
// to callers.
func (s *notificationService) QueueEmail(ctx context.Context, to, subject, template string, data map[string]interface{}) error {
	return s.enqueue(ctx, to, subject, template, data, nil, nil)
}

func (s *notificationService) QueueEmailWithAttachment(ctx context.Context, to, subject, template string, data map[string]interface{}, attachmentName string, attachmentData []byte) error {
	return s.enqueue(ctx, to, subject, template, data, &attachmentName, attachmentData)
}

func (s *notificationService) enqueue(ctx context.Context, to, subject, template string, data map[string]interface{}, attachmentName *string, attachmentData []byte) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal email data: %w", err)
	}

	email := &models.EmailLog{
		To:             to,
		Subject:        subject,
		Template:       template,
		Data:           datatypes.JSON(payload),
		AttachmentName: attachmentName,
		AttachmentData: attachmentData,
	}
	if err := s.repo.Email().Enqueue(ctx, email); err != nil {
		return fmt.Errorf("failed to enqueue email: %w", err)
	}

	s.logger.Debug("Email queued", "to", to, "template", template)
	return nil
}

// ProcessEmailQueue drains up to one batch of PENDING rows. Each row is
// marked SENT or FAILED individually; a bad row never blocks the rest.
func (s *notificationService) ProcessEmailQueue(ctx context.Context) (*QueueRunResult, error) {
	pending, err := s.repo.Email().ListPending(ctx, dispatchBatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending emails: %w", err)
	}

	result := &QueueRunResult{}
	for _, email := range pending {
		if err := s.send(ctx, email); err != nil {
			result.FailureCount++
			if markErr := s.repo.Email().MarkFailed(ctx, email.ID, err.Error()); markErr != nil {
				s.logger.Error("Failed to mark email failed", "email_id", email.ID, "error", markErr)
			}
			s.logger.Warn("Email send failed", "email_id", email.ID, "to", email.To, "error", err)
			continue
		}
		result.SuccessCount++
		if err := s.repo.Email().MarkSent(ctx, email.ID); err != nil {
			s.logger.Error("Failed to mark email sent", "email_id", email.ID, "error", err)
		}
	}

	if len(pending) > 0 {
		s.logger.Info("Email queue processed",
			"sent", result.SuccessCount,
			"failed", result.FailureCount)
	}
	return result, nil
}

// RetryFailedEmails resets FAILED rows to PENDING; the dispatcher picks them
// up on its next tick.
func (s *notificationService) RetryFailedEmails(ctx context.Context) (int64, error) {
	count, err := s.repo.Email().ResetFailed(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to reset failed emails: %w", err)
	}
	if count > 0 {
		s.logger.Info("Failed emails reset for redelivery", "count", count)
	}
	return count, nil
}

// StartDispatcher drains the queue on a timer until the context ends.
// Intended to run in its own goroutine from main.
func (s *notificationService) StartDispatcher(ctx context.Context) {
	s.logger.Info("Email dispatcher started", "interval", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Email dispatcher stopped")
			return
		case <-ticker.C:
			if _, err := s.ProcessEmailQueue(ctx); err != nil {
				s.logger.Error("Email queue run failed", "error", err)
			}
		}
	}
}

func (s *notificationService) send(ctx context.Context, email *models.EmailLog) error {
	var data map[string]interface{}
	if len(email.Data) > 0 {
		if err := json.Unmarshal(email.Data, &data); err != nil {
			return fmt.Errorf("corrupt email data: %w", err)
		}
	}

	text, html := renderTemplate(email.Template, data)
	msg := mailer.Message{
		ToEmail:     email.To,
		Subject:     email.Subject,
		TextContent: text,
		HTMLContent: html,
	}
	if name, ok := data["name"].(string); ok {
		msg.ToName = name
	}
	if email.AttachmentName != nil && len(email.AttachmentData) > 0 {
		msg.Attachments = append(msg.Attachments, mailer.Attachment{
			Filename:    *email.AttachmentName,
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Content:     base64.StdEncoding.EncodeToString(email.AttachmentData),
		})
	}

	return s.mailer.Send(ctx, msg)
}
