package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sabaq-center/sabaq-service/internal/events"
	"github.com/sabaq-center/sabaq-service/internal/livestore"
	"github.com/sabaq-center/sabaq-service/internal/models"
	"github.com/sabaq-center/sabaq-service/internal/permissions"
	"github.com/sabaq-center/sabaq-service/internal/reports"
	"github.com/sabaq-center/sabaq-service/internal/repositories"
)

// EndWithReport drives the full session-end reconciliation: sync the live
// buffer into postgres, finalize the lifecycle transition, compute the
// aggregate, build the workbook, and queue report emails to the admin set.
//
// Checkpoints 0-50 cover sync and report build; 50-100 the emailing
// sub-phase. Progress is advisory: a crash mid-way requires re-invoking the
// whole flow, which is safe because the sync step is idempotent per record.
func (s *sessionService) EndWithReport(ctx context.Context, id uint, opts EndSessionOptions, actorID uint, onProgress ProgressFunc) (*SessionReportResult, error) {
	jobID := opts.JobID
	if jobID == "" {
		jobID = uuid.New().String()
	}
	s.logger.Info("Ending session with report", "session_id", id, "actor_id", actorID, "job_id", jobID)

	emit := func(percent int, stage string, done bool, errMsg string) {
		if onProgress != nil {
			onProgress(percent, stage)
		}
		if s.progress != nil {
			update := livestore.ProgressUpdate{
				JobID:   jobID,
				Percent: percent,
				Stage:   stage,
				Done:    done,
				Error:   errMsg,
			}
			if err := s.progress.Publish(ctx, update); err != nil {
				s.logger.Warn("Failed to publish progress", "job_id", jobID, "error", err)
			}
		}
	}

	fail := func(stage string, err error) (*SessionReportResult, error) {
		emit(100, stage, true, err.Error())
		return nil, err
	}

	emit(0, "starting", false, "")

	session, err := s.repo.Session().GetByIDWithSabaq(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return fail("starting", ErrSessionNotFound)
		}
		return fail("starting", fmt.Errorf("failed to get session: %w", err))
	}
	sabaq := &session.Sabaq

	if _, _, err := s.authorize(ctx, session.SabaqID, actorID, permissions.ActionEnd); err != nil {
		return fail("starting", err)
	}

	emit(10, "syncing live records", false, "")
	synced, syncFailures := s.syncLiveRecords(ctx, session)

	emit(20, "finalizing session", false, "")
	if session.EndedAt == nil {
		opts.SkipActiveCheck = true
		resp, err := s.End(ctx, id, opts, actorID)
		if err != nil {
			return fail("finalizing session", err)
		}
		session.IsActive = resp.IsActive
		session.EndedAt = resp.EndedAt
	}

	emit(30, "computing statistics", false, "")
	stats, report, err := s.buildAggregates(ctx, session, sabaq)
	if err != nil {
		return fail("computing statistics", err)
	}

	emit(40, "building report", false, "")
	workbook, err := reports.BuildWorkbook(*report)
	if err != nil {
		return fail("building report", fmt.Errorf("failed to build workbook: %w", err))
	}

	emit(50, "queueing report emails", false, "")
	queued := s.queueReportEmails(ctx, session, sabaq, stats, workbook, func(done, total int) {
		if total == 0 {
			return
		}
		// Map the emailing sub-phase onto the 50-100 window.
		emit(50+(done*50)/total, "queueing report emails", false, "")
	})

	if s.live != nil {
		if err := s.live.Clear(ctx, session.ID); err != nil {
			s.logger.Warn("Failed to clear live buffer", "session_id", session.ID, "error", err)
		}
	}

	if s.eventPublisher != nil {
		event := events.NewEvent(events.TopicSessionReportReady, events.SessionReportReadyEvent{
			SessionID:      session.ID,
			SabaqID:        sabaq.ID,
			JobID:          jobID,
			PresentCount:   stats.PresentCount,
			LateCount:      stats.LateCount,
			AbsentCount:    stats.AbsentCount,
			NoShowCount:    stats.NoShowCount,
			AttendanceRate: stats.AttendanceRate,
		})
		if err := s.eventPublisher.Publish(ctx, events.TopicSessionReportReady, event); err != nil {
			s.logger.Warn("Failed to publish report event", "session_id", session.ID, "error", err)
		}
	}

	emit(100, "completed", true, "")

	s.logger.Info("Session report completed",
		"session_id", session.ID,
		"job_id", jobID,
		"synced", synced,
		"sync_failures", syncFailures,
		"queued_emails", queued)

	return &SessionReportResult{
		Session:        s.toResponse(session),
		Stats:          *stats,
		JobID:          jobID,
		SyncedFromLive: synced,
		SyncFailures:   syncFailures,
		QueuedEmails:   queued,
	}, nil
}

// syncLiveRecords replays the live buffer into postgres. Records already
// present (by the (session, user) key) are skipped, so re-running the sync
// against the same snapshot inserts nothing new. Per-record failures are
// counted, never fatal.
func (s *sessionService) syncLiveRecords(ctx context.Context, session *models.Session) (synced, failures int) {
	if s.live == nil {
		return 0, 0
	}

	records, err := s.live.List(ctx, session.ID)
	if err != nil {
		s.logger.Warn("Failed to read live buffer", "session_id", session.ID, "error", err)
		return 0, 1
	}

	for _, record := range records {
		existing, err := s.repo.Attendance().GetBySessionAndUser(ctx, session.ID, record.UserID)
		if err == nil && existing != nil {
			continue
		}
		if err != nil && !repositories.IsNotFoundError(err) {
			failures++
			continue
		}

		isLate, minutesLate := CalculateLateness(record.MarkedAt, session.CutoffTime)
		markedBy := record.UserID
		if record.MarkedByID != nil {
			markedBy = *record.MarkedByID
		}
		attendance := &models.Attendance{
			SessionID:   session.ID,
			SabaqID:     session.SabaqID,
			UserID:      record.UserID,
			MarkedAt:    record.MarkedAt,
			MarkedByID:  markedBy,
			Method:      models.AttendanceMethod(record.Method),
			IsLate:      isLate,
			MinutesLate: minutesLate,
			Latitude:    record.Latitude,
			Longitude:   record.Longitude,
		}

		err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
			if err := tx.Attendance().Create(ctx, attendance); err != nil {
				if repositories.IsDuplicateError(err) {
					// Lost the race to an online mark; nothing to repair.
					return nil
				}
				return err
			}
			if err := tx.Session().IncrementAttendanceCount(ctx, session.ID, 1); err != nil {
				return err
			}
			lateDelta := 0
			if isLate {
				lateDelta = 1
			}
			return tx.User().IncrementAttendanceCounters(ctx, record.UserID, 1, lateDelta)
		})
		if err != nil {
			s.logger.Warn("Failed to sync live record", "session_id", session.ID, "user_id", record.UserID, "error", err)
			failures++
			continue
		}
		synced++
	}

	return synced, failures
}

// buildAggregates computes the session statistics and the rows of the
// three-sheet report. No-shows are enrolled users with zero attendance
// across the sabaq's entire history, distinct from this session's absentees.
func (s *sessionService) buildAggregates(ctx context.Context, session *models.Session, sabaq *models.Sabaq) (*repositories.SessionStats, *reports.SessionReport, error) {
	enrolled, err := s.repo.Enrollment().ApprovedUsers(ctx, sabaq.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list enrolled users: %w", err)
	}

	attendances, err := s.repo.Attendance().ListBySession(ctx, session.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list attendance: %w", err)
	}

	everAttended, err := s.repo.Attendance().AttendedUserIDs(ctx, sabaq.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan attendance history: %w", err)
	}
	everAttendedSet := make(map[uint]struct{}, len(everAttended))
	for _, id := range everAttended {
		everAttendedSet[id] = struct{}{}
	}

	attendedSet := make(map[uint]*models.Attendance, len(attendances))
	for _, a := range attendances {
		attendedSet[a.UserID] = a
	}

	report := &reports.SessionReport{
		SabaqName:   sabaq.Name,
		SessionDate: session.ScheduledAt.Format("2006-01-02"),
	}
	stats := &repositories.SessionStats{TotalEnrolled: len(enrolled)}

	for _, member := range enrolled {
		email := ""
		if member.HasEmail() {
			email = *member.Email
		}

		if a, ok := attendedSet[member.ID]; ok {
			status := models.BulkPresent
			if a.IsLate {
				status = models.BulkLate
				stats.LateCount++
			} else {
				stats.PresentCount++
			}
			report.Attended = append(report.Attended, reports.AttendedRow{
				Name:        member.Name,
				ITSNumber:   member.ITSNumber,
				Email:       email,
				Status:      status,
				MinutesLate: a.MinutesLate,
				Method:      a.Method,
			})
			continue
		}

		row := reports.MemberRow{Name: member.Name, ITSNumber: member.ITSNumber, Email: email}
		stats.AbsentCount++
		report.Absent = append(report.Absent, row)

		if _, ever := everAttendedSet[member.ID]; !ever {
			stats.NoShowCount++
			report.NoShows = append(report.NoShows, row)
		}
	}

	if stats.TotalEnrolled > 0 {
		stats.AttendanceRate = float64(stats.PresentCount+stats.LateCount) / float64(stats.TotalEnrolled)
	}

	return stats, report, nil
}

// queueReportEmails queues one session-report email per distinct admin email
// among the sabaq-scoped admins, global superadmins, and the janab.
// Attendee emails are deliberately not sent here; they were notified at
// mark time.
func (s *sessionService) queueReportEmails(ctx context.Context, session *models.Session, sabaq *models.Sabaq, stats *repositories.SessionStats, workbook []byte, onEach func(done, total int)) int {
	if s.notifier == nil {
		return 0
	}

	recipients := make(map[string]*models.User)
	add := func(users []*models.User) {
		for _, u := range users {
			if u.HasEmail() {
				recipients[*u.Email] = u
			}
		}
	}

	if admins, err := s.repo.Sabaq().AdminUsers(ctx, sabaq.ID); err != nil {
		s.logger.Warn("Failed to list sabaq admins", "sabaq_id", sabaq.ID, "error", err)
	} else {
		add(admins)
	}
	if superadmins, err := s.repo.User().GetByRole(ctx, models.RoleSuperAdmin); err != nil {
		s.logger.Warn("Failed to list superadmins", "error", err)
	} else {
		add(superadmins)
	}
	if sabaq.JanabID != nil {
		if janab, err := s.repo.User().GetByID(ctx, *sabaq.JanabID); err != nil {
			s.logger.Warn("Failed to load janab", "sabaq_id", sabaq.ID, "error", err)
		} else {
			add([]*models.User{janab})
		}
	}

	sessionDate := session.ScheduledAt.Format("2006-01-02")
	subject := fmt.Sprintf("Attendance report: %s (%s)", sabaq.Name, sessionDate)
	attachmentName := reports.AttachmentName(sabaq.Name, sessionDate)

	total := len(recipients)
	queued := 0
	for email, user := range recipients {
		data := map[string]interface{}{
			"name":            user.Name,
			"sabaq_name":      sabaq.Name,
			"session_date":    sessionDate,
			"total_enrolled":  stats.TotalEnrolled,
			"present_count":   stats.PresentCount,
			"late_count":      stats.LateCount,
			"absent_count":    stats.AbsentCount,
			"no_show_count":   stats.NoShowCount,
			"attendance_rate": stats.AttendanceRate,
		}
		if err := s.notifier.QueueEmailWithAttachment(ctx, email, subject, models.TemplateSessionReport, data, attachmentName, workbook); err != nil {
			s.logger.Warn("Failed to queue report email", "to", email, "error", err)
		} else {
			queued++
		}
		onEach(queued, total)
	}

	return queued
}
