package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sabaq-center/sabaq-service/internal/events"
	"github.com/sabaq-center/sabaq-service/internal/mailer"
	"github.com/sabaq-center/sabaq-service/internal/models"
	"github.com/sabaq-center/sabaq-service/internal/validator"
)

type attendanceFixture struct {
	repo     *fakeRepository
	svc      AttendanceService
	pub      *events.MockEventPublisher
	notifier NotificationService
}

func newAttendanceFixture() *attendanceFixture {
	repo := newFakeRepository()
	logger := testLogger()
	pub := events.NewMockEventPublisher(logger)
	notifier := NewNotificationService(repo, logger, mailer.NewLogMailer(logger), time.Minute)

	return &attendanceFixture{
		repo:     repo,
		svc:      NewAttendanceService(repo, logger, validator.New(), pub, nil, notifier),
		pub:      pub,
		notifier: notifier,
	}
}

func TestMarkManual(t *testing.T) {
	ctx := context.Background()

	t.Run("marks an enrolled member and updates counters", func(t *testing.T) {
		fx := newAttendanceFixture()
		admin := fx.repo.seedUser(models.RoleAdmin, "90000001", "")
		target := fx.repo.seedUser(models.RoleMumin, "10000001", "member@example.com")
		sabaq := fx.repo.seedSabaq(nil)
		session := fx.repo.seedSession(sabaq.ID, true)
		fx.repo.seedEnrollment(sabaq.ID, target.ID, models.EnrollmentApproved)

		resp, err := fx.svc.MarkManual(ctx, session.ID, &ManualMarkRequest{ITSNumber: target.ITSNumber}, admin.ID)
		if err != nil {
			t.Fatalf("MarkManual() error = %v", err)
		}
		if resp.Method != models.MethodManualEntry {
			t.Errorf("Method = %s, want %s", resp.Method, models.MethodManualEntry)
		}
		if resp.IsLate {
			t.Error("mark before cutoff should not be late")
		}
		if resp.MarkedByID != admin.ID {
			t.Errorf("MarkedByID = %d, want %d", resp.MarkedByID, admin.ID)
		}

		updatedSession, _ := fx.repo.Session().GetByID(ctx, session.ID)
		if updatedSession.AttendanceCount != 1 {
			t.Errorf("session AttendanceCount = %d, want 1", updatedSession.AttendanceCount)
		}
		updatedUser, _ := fx.repo.User().GetByID(ctx, target.ID)
		if updatedUser.AttendedCount != 1 || updatedUser.LateCount != 0 {
			t.Errorf("user counters = (%d, %d), want (1, 0)", updatedUser.AttendedCount, updatedUser.LateCount)
		}

		pending, _ := fx.repo.Email().ListPending(ctx, 10)
		if len(pending) != 1 {
			t.Fatalf("queued emails = %d, want 1", len(pending))
		}
		if pending[0].Template != models.TemplateAttendanceMarked {
			t.Errorf("template = %s, want %s", pending[0].Template, models.TemplateAttendanceMarked)
		}

		published := fx.pub.GetPublishedEvents()
		if len(published) != 1 || published[0].Topic != events.TopicAttendanceMarked {
			t.Errorf("published events = %+v, want one %s", published, events.TopicAttendanceMarked)
		}
	})

	t.Run("classifies a mark after the cutoff as late", func(t *testing.T) {
		fx := newAttendanceFixture()
		admin := fx.repo.seedUser(models.RoleAdmin, "90000001", "")
		target := fx.repo.seedUser(models.RoleMumin, "10000001", "")
		sabaq := fx.repo.seedSabaq(nil)
		session := fx.repo.seedSession(sabaq.ID, true)
		fx.repo.seedEnrollment(sabaq.ID, target.ID, models.EnrollmentApproved)

		// Move the cutoff into the past.
		stored, _ := fx.repo.Session().GetByID(ctx, session.ID)
		stored.CutoffTime = time.Now().Add(-5 * time.Minute)
		if err := fx.repo.Session().Update(ctx, stored); err != nil {
			t.Fatal(err)
		}

		resp, err := fx.svc.MarkManual(ctx, session.ID, &ManualMarkRequest{ITSNumber: target.ITSNumber}, admin.ID)
		if err != nil {
			t.Fatalf("MarkManual() error = %v", err)
		}
		if !resp.IsLate || resp.MinutesLate < 5 {
			t.Errorf("lateness = (%v, %d), want late with >= 5 minutes", resp.IsLate, resp.MinutesLate)
		}

		updatedUser, _ := fx.repo.User().GetByID(ctx, target.ID)
		if updatedUser.LateCount != 1 {
			t.Errorf("user LateCount = %d, want 1", updatedUser.LateCount)
		}
	})

	t.Run("rejects a second mark for the same session", func(t *testing.T) {
		fx := newAttendanceFixture()
		admin := fx.repo.seedUser(models.RoleAdmin, "90000001", "")
		target := fx.repo.seedUser(models.RoleMumin, "10000001", "")
		sabaq := fx.repo.seedSabaq(nil)
		session := fx.repo.seedSession(sabaq.ID, true)
		fx.repo.seedEnrollment(sabaq.ID, target.ID, models.EnrollmentApproved)

		req := &ManualMarkRequest{ITSNumber: target.ITSNumber}
		if _, err := fx.svc.MarkManual(ctx, session.ID, req, admin.ID); err != nil {
			t.Fatalf("first MarkManual() error = %v", err)
		}
		if _, err := fx.svc.MarkManual(ctx, session.ID, req, admin.ID); !errors.Is(err, ErrAlreadyMarked) {
			t.Errorf("second MarkManual() error = %v, want ErrAlreadyMarked", err)
		}

		updatedSession, _ := fx.repo.Session().GetByID(ctx, session.ID)
		if updatedSession.AttendanceCount != 1 {
			t.Errorf("session AttendanceCount = %d, want 1 after duplicate", updatedSession.AttendanceCount)
		}
	})

	t.Run("requires an approved enrollment", func(t *testing.T) {
		fx := newAttendanceFixture()
		admin := fx.repo.seedUser(models.RoleAdmin, "90000001", "")
		stranger := fx.repo.seedUser(models.RoleMumin, "10000001", "")
		pendingUser := fx.repo.seedUser(models.RoleMumin, "10000002", "")
		sabaq := fx.repo.seedSabaq(nil)
		session := fx.repo.seedSession(sabaq.ID, true)
		fx.repo.seedEnrollment(sabaq.ID, pendingUser.ID, models.EnrollmentPending)

		if _, err := fx.svc.MarkManual(ctx, session.ID, &ManualMarkRequest{ITSNumber: stranger.ITSNumber}, admin.ID); !errors.Is(err, ErrNotEnrolled) {
			t.Errorf("unenrolled user error = %v, want ErrNotEnrolled", err)
		}
		if _, err := fx.svc.MarkManual(ctx, session.ID, &ManualMarkRequest{ITSNumber: pendingUser.ITSNumber}, admin.ID); !errors.Is(err, ErrNotEnrolled) {
			t.Errorf("pending enrollment error = %v, want ErrNotEnrolled", err)
		}
	})

	t.Run("rejects inactive session for non-superadmin", func(t *testing.T) {
		fx := newAttendanceFixture()
		admin := fx.repo.seedUser(models.RoleAdmin, "90000001", "")
		target := fx.repo.seedUser(models.RoleMumin, "10000001", "")
		sabaq := fx.repo.seedSabaq(nil)
		session := fx.repo.seedSession(sabaq.ID, false)
		fx.repo.seedEnrollment(sabaq.ID, target.ID, models.EnrollmentApproved)

		if _, err := fx.svc.MarkManual(ctx, session.ID, &ManualMarkRequest{ITSNumber: target.ITSNumber}, admin.ID); !errors.Is(err, ErrSessionNotActive) {
			t.Errorf("error = %v, want ErrSessionNotActive", err)
		}
	})

	t.Run("superadmin may mark an inactive session", func(t *testing.T) {
		fx := newAttendanceFixture()
		superadmin := fx.repo.seedUser(models.RoleSuperAdmin, "90000001", "")
		target := fx.repo.seedUser(models.RoleMumin, "10000001", "")
		sabaq := fx.repo.seedSabaq(nil)
		session := fx.repo.seedSession(sabaq.ID, false)
		fx.repo.seedEnrollment(sabaq.ID, target.ID, models.EnrollmentApproved)

		if _, err := fx.svc.MarkManual(ctx, session.ID, &ManualMarkRequest{ITSNumber: target.ITSNumber}, superadmin.ID); err != nil {
			t.Errorf("MarkManual() error = %v, want nil", err)
		}
	})

	t.Run("janab of the sabaq may mark an inactive session", func(t *testing.T) {
		fx := newAttendanceFixture()
		janab := fx.repo.seedUser(models.RoleJanab, "90000001", "")
		target := fx.repo.seedUser(models.RoleMumin, "10000001", "")
		sabaq := fx.repo.seedSabaq(&janab.ID)
		session := fx.repo.seedSession(sabaq.ID, false)
		fx.repo.seedEnrollment(sabaq.ID, target.ID, models.EnrollmentApproved)

		if _, err := fx.svc.MarkManual(ctx, session.ID, &ManualMarkRequest{ITSNumber: target.ITSNumber}, janab.ID); err != nil {
			t.Errorf("MarkManual() error = %v, want nil", err)
		}
	})

	t.Run("janab of another sabaq is denied", func(t *testing.T) {
		fx := newAttendanceFixture()
		owner := fx.repo.seedUser(models.RoleJanab, "90000001", "")
		otherJanab := fx.repo.seedUser(models.RoleJanab, "90000002", "")
		target := fx.repo.seedUser(models.RoleMumin, "10000001", "")
		sabaq := fx.repo.seedSabaq(&owner.ID)
		session := fx.repo.seedSession(sabaq.ID, true)
		fx.repo.seedEnrollment(sabaq.ID, target.ID, models.EnrollmentApproved)

		_, err := fx.svc.MarkManual(ctx, session.ID, &ManualMarkRequest{ITSNumber: target.ITSNumber}, otherJanab.ID)
		if !IsPermissionError(err) {
			t.Errorf("error = %v, want PermissionError", err)
		}
	})

	t.Run("mumin may not mark manually", func(t *testing.T) {
		fx := newAttendanceFixture()
		mumin := fx.repo.seedUser(models.RoleMumin, "90000001", "")
		target := fx.repo.seedUser(models.RoleMumin, "10000001", "")
		sabaq := fx.repo.seedSabaq(nil)
		session := fx.repo.seedSession(sabaq.ID, true)
		fx.repo.seedEnrollment(sabaq.ID, target.ID, models.EnrollmentApproved)

		_, err := fx.svc.MarkManual(ctx, session.ID, &ManualMarkRequest{ITSNumber: target.ITSNumber}, mumin.ID)
		if !IsPermissionError(err) {
			t.Errorf("error = %v, want PermissionError", err)
		}
	})

	t.Run("rejects a malformed ITS number", func(t *testing.T) {
		fx := newAttendanceFixture()
		admin := fx.repo.seedUser(models.RoleAdmin, "90000001", "")
		sabaq := fx.repo.seedSabaq(nil)
		session := fx.repo.seedSession(sabaq.ID, true)

		_, err := fx.svc.MarkManual(ctx, session.ID, &ManualMarkRequest{ITSNumber: "1234567"}, admin.ID)
		if !errors.Is(err, ErrValidationFailed) {
			t.Errorf("error = %v, want ErrValidationFailed", err)
		}
	})

	t.Run("unknown ITS number", func(t *testing.T) {
		fx := newAttendanceFixture()
		admin := fx.repo.seedUser(models.RoleAdmin, "90000001", "")
		sabaq := fx.repo.seedSabaq(nil)
		session := fx.repo.seedSession(sabaq.ID, true)

		_, err := fx.svc.MarkManual(ctx, session.ID, &ManualMarkRequest{ITSNumber: "19999999"}, admin.ID)
		if !errors.Is(err, ErrUserNotFound) {
			t.Errorf("error = %v, want ErrUserNotFound", err)
		}
	})
}

func TestMarkByLocation(t *testing.T) {
	ctx := context.Background()

	// Anchor near the venue; ~111m per 0.001 degrees of latitude.
	const anchorLat, anchorLon = 21.4225, 39.8262

	setupGeofence := func(fx *attendanceFixture, enabled bool, radius float64) (*models.User, *models.Session) {
		member := fx.repo.seedUser(models.RoleMumin, "10000001", "")
		sabaq := fx.repo.seedSabaq(nil)
		session := fx.repo.seedSession(sabaq.ID, true)
		fx.repo.seedEnrollment(sabaq.ID, member.ID, models.EnrollmentApproved)

		fx.repo.mu.Lock()
		stored := fx.repo.sabaqs[sabaq.ID]
		stored.AllowLocationAttendance = enabled
		if radius > 0 {
			stored.Location = &models.Location{
				Name:         "Main Hall",
				Latitude:     anchorLat,
				Longitude:    anchorLon,
				RadiusMeters: radius,
			}
		}
		fx.repo.mu.Unlock()

		return member, session
	}

	t.Run("marks inside the geofence", func(t *testing.T) {
		fx := newAttendanceFixture()
		member, session := setupGeofence(fx, true, 100)

		resp, err := fx.svc.MarkByLocation(ctx, session.ID, &LocationMarkRequest{Latitude: anchorLat + 0.0003, Longitude: anchorLon}, member.ID)
		if err != nil {
			t.Fatalf("MarkByLocation() error = %v", err)
		}
		if resp.Method != models.MethodLocationBasedSelf {
			t.Errorf("Method = %s, want %s", resp.Method, models.MethodLocationBasedSelf)
		}
		if resp.DistanceMeters == nil || *resp.DistanceMeters <= 0 || *resp.DistanceMeters > 100 {
			t.Errorf("DistanceMeters = %v, want in (0, 100]", resp.DistanceMeters)
		}
		if resp.Latitude == nil || resp.Longitude == nil {
			t.Error("coordinates should be recorded on the mark")
		}
	})

	t.Run("rejects a mark outside the geofence", func(t *testing.T) {
		fx := newAttendanceFixture()
		member, session := setupGeofence(fx, true, 100)

		// ~1.1km north of the anchor.
		_, err := fx.svc.MarkByLocation(ctx, session.ID, &LocationMarkRequest{Latitude: anchorLat + 0.01, Longitude: anchorLon}, member.ID)
		if !errors.Is(err, ErrOutOfRange) {
			t.Errorf("error = %v, want ErrOutOfRange", err)
		}

		count, _ := fx.repo.Attendance().CountBySession(ctx, session.ID)
		if count != 0 {
			t.Errorf("attendance rows = %d, want 0", count)
		}
	})

	t.Run("radius boundary is inclusive", func(t *testing.T) {
		// ~33m north of the anchor; pin the radius to the exact distance.
		const markLat, markLon = anchorLat + 0.0003, anchorLon
		d := HaversineDistance(markLat, markLon, anchorLat, anchorLon)

		fx := newAttendanceFixture()
		member, session := setupGeofence(fx, true, d)
		resp, err := fx.svc.MarkByLocation(ctx, session.ID, &LocationMarkRequest{Latitude: markLat, Longitude: markLon}, member.ID)
		if err != nil {
			t.Fatalf("MarkByLocation() at exactly the radius error = %v", err)
		}
		if resp.DistanceMeters == nil || *resp.DistanceMeters != d {
			t.Errorf("DistanceMeters = %v, want %f", resp.DistanceMeters, d)
		}

		fx = newAttendanceFixture()
		member, session = setupGeofence(fx, true, d-1)
		if _, err := fx.svc.MarkByLocation(ctx, session.ID, &LocationMarkRequest{Latitude: markLat, Longitude: markLon}, member.ID); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("error one meter beyond the radius = %v, want ErrOutOfRange", err)
		}
	})

	t.Run("rejects when location attendance is disabled", func(t *testing.T) {
		fx := newAttendanceFixture()
		member, session := setupGeofence(fx, false, 100)

		_, err := fx.svc.MarkByLocation(ctx, session.ID, &LocationMarkRequest{Latitude: anchorLat, Longitude: anchorLon}, member.ID)
		if !errors.Is(err, ErrLocationNotAllowed) {
			t.Errorf("error = %v, want ErrLocationNotAllowed", err)
		}
	})

	t.Run("rejects when no anchor is configured", func(t *testing.T) {
		fx := newAttendanceFixture()
		member, session := setupGeofence(fx, true, 0)

		_, err := fx.svc.MarkByLocation(ctx, session.ID, &LocationMarkRequest{Latitude: anchorLat, Longitude: anchorLon}, member.ID)
		if !errors.Is(err, ErrLocationNotSet) {
			t.Errorf("error = %v, want ErrLocationNotSet", err)
		}
	})
}

func TestMarkByQR(t *testing.T) {
	ctx := context.Background()

	t.Run("self-service mark succeeds for an enrolled member", func(t *testing.T) {
		fx := newAttendanceFixture()
		member := fx.repo.seedUser(models.RoleMumin, "10000001", "")
		sabaq := fx.repo.seedSabaq(nil)
		session := fx.repo.seedSession(sabaq.ID, true)
		fx.repo.seedEnrollment(sabaq.ID, member.ID, models.EnrollmentApproved)

		resp, err := fx.svc.MarkByQR(ctx, session.ID, member.ID)
		if err != nil {
			t.Fatalf("MarkByQR() error = %v", err)
		}
		if resp.Method != models.MethodQRScan {
			t.Errorf("Method = %s, want %s", resp.Method, models.MethodQRScan)
		}
		if resp.MarkedByID != member.ID {
			t.Errorf("MarkedByID = %d, want self (%d)", resp.MarkedByID, member.ID)
		}
	})

	t.Run("second scan is a conflict", func(t *testing.T) {
		fx := newAttendanceFixture()
		member := fx.repo.seedUser(models.RoleMumin, "10000001", "")
		sabaq := fx.repo.seedSabaq(nil)
		session := fx.repo.seedSession(sabaq.ID, true)
		fx.repo.seedEnrollment(sabaq.ID, member.ID, models.EnrollmentApproved)

		if _, err := fx.svc.MarkByQR(ctx, session.ID, member.ID); err != nil {
			t.Fatalf("first MarkByQR() error = %v", err)
		}
		if _, err := fx.svc.MarkByQR(ctx, session.ID, member.ID); !errors.Is(err, ErrAlreadyMarked) {
			t.Errorf("second MarkByQR() error = %v, want ErrAlreadyMarked", err)
		}
	})

	t.Run("requires an active session", func(t *testing.T) {
		fx := newAttendanceFixture()
		member := fx.repo.seedUser(models.RoleMumin, "10000001", "")
		sabaq := fx.repo.seedSabaq(nil)
		session := fx.repo.seedSession(sabaq.ID, false)
		fx.repo.seedEnrollment(sabaq.ID, member.ID, models.EnrollmentApproved)

		if _, err := fx.svc.MarkByQR(ctx, session.ID, member.ID); !errors.Is(err, ErrSessionNotActive) {
			t.Errorf("error = %v, want ErrSessionNotActive", err)
		}
	})
}

func TestBulkMark(t *testing.T) {
	ctx := context.Background()

	t.Run("applies mixed corrections with per-item failures", func(t *testing.T) {
		fx := newAttendanceFixture()
		admin := fx.repo.seedUser(models.RoleAdmin, "90000001", "")
		flipped := fx.repo.seedUser(models.RoleMumin, "10000001", "")
		removed := fx.repo.seedUser(models.RoleMumin, "10000002", "")
		fresh := fx.repo.seedUser(models.RoleMumin, "10000003", "")
		stranger := fx.repo.seedUser(models.RoleMumin, "10000004", "")
		sabaq := fx.repo.seedSabaq(nil)
		session := fx.repo.seedSession(sabaq.ID, true)
		for _, u := range []*models.User{flipped, removed, fresh} {
			fx.repo.seedEnrollment(sabaq.ID, u.ID, models.EnrollmentApproved)
		}

		// Existing on-time marks for the flip and the removal.
		for _, u := range []*models.User{flipped, removed} {
			if _, err := fx.svc.MarkManual(ctx, session.ID, &ManualMarkRequest{ITSNumber: u.ITSNumber}, admin.ID); err != nil {
				t.Fatalf("seed mark error = %v", err)
			}
		}

		result, err := fx.svc.BulkMark(ctx, session.ID, &BulkMarkRequest{Items: []validator.BulkMarkItemRequest{
			{UserID: flipped.ID, Status: models.BulkLate},
			{UserID: removed.ID, Status: models.BulkAbsent},
			{UserID: fresh.ID, Status: models.BulkPresent},
			{UserID: stranger.ID, Status: models.BulkPresent},
		}}, admin.ID)
		if err != nil {
			t.Fatalf("BulkMark() error = %v", err)
		}

		if result.SuccessCount != 3 || result.FailedCount != 1 {
			t.Errorf("result = (%d ok, %d failed), want (3, 1)", result.SuccessCount, result.FailedCount)
		}
		if len(result.Errors) != 1 || result.Errors[0].UserID != stranger.ID {
			t.Errorf("errors = %+v, want one for user %d", result.Errors, stranger.ID)
		}

		flippedMark, err := fx.repo.Attendance().GetBySessionAndUser(ctx, session.ID, flipped.ID)
		if err != nil || !flippedMark.IsLate {
			t.Errorf("flipped mark = (%+v, %v), want late", flippedMark, err)
		}
		flippedUser, _ := fx.repo.User().GetByID(ctx, flipped.ID)
		if flippedUser.LateCount != 1 {
			t.Errorf("flipped user LateCount = %d, want 1", flippedUser.LateCount)
		}

		if _, err := fx.repo.Attendance().GetBySessionAndUser(ctx, session.ID, removed.ID); err == nil {
			t.Error("removed mark should be deleted")
		}
		removedUser, _ := fx.repo.User().GetByID(ctx, removed.ID)
		if removedUser.AttendedCount != 0 {
			t.Errorf("removed user AttendedCount = %d, want 0", removedUser.AttendedCount)
		}

		freshMark, err := fx.repo.Attendance().GetBySessionAndUser(ctx, session.ID, fresh.ID)
		if err != nil || freshMark.Method != models.MethodManualEntry || freshMark.IsLate {
			t.Errorf("fresh mark = (%+v, %v), want on-time manual entry", freshMark, err)
		}

		// Two seeded marks, one removed, one added.
		updatedSession, _ := fx.repo.Session().GetByID(ctx, session.ID)
		if updatedSession.AttendanceCount != 2 {
			t.Errorf("session AttendanceCount = %d, want 2", updatedSession.AttendanceCount)
		}
	})

	t.Run("absent for an unmarked user is a no-op", func(t *testing.T) {
		fx := newAttendanceFixture()
		admin := fx.repo.seedUser(models.RoleAdmin, "90000001", "")
		member := fx.repo.seedUser(models.RoleMumin, "10000001", "")
		sabaq := fx.repo.seedSabaq(nil)
		session := fx.repo.seedSession(sabaq.ID, true)
		fx.repo.seedEnrollment(sabaq.ID, member.ID, models.EnrollmentApproved)

		result, err := fx.svc.BulkMark(ctx, session.ID, &BulkMarkRequest{Items: []validator.BulkMarkItemRequest{
			{UserID: member.ID, Status: models.BulkAbsent},
		}}, admin.ID)
		if err != nil {
			t.Fatalf("BulkMark() error = %v", err)
		}
		if result.SuccessCount != 1 || result.FailedCount != 0 {
			t.Errorf("result = (%d ok, %d failed), want (1, 0)", result.SuccessCount, result.FailedCount)
		}
	})

	t.Run("same-status item re-attributes without touching counters", func(t *testing.T) {
		fx := newAttendanceFixture()
		incharge := fx.repo.seedUser(models.RoleAttendanceIncharge, "90000001", "")
		admin := fx.repo.seedUser(models.RoleAdmin, "90000002", "")
		member := fx.repo.seedUser(models.RoleMumin, "10000001", "")
		sabaq := fx.repo.seedSabaq(nil)
		session := fx.repo.seedSession(sabaq.ID, true)
		fx.repo.seedEnrollment(sabaq.ID, member.ID, models.EnrollmentApproved)

		if _, err := fx.svc.MarkManual(ctx, session.ID, &ManualMarkRequest{ITSNumber: member.ITSNumber}, incharge.ID); err != nil {
			t.Fatalf("seed mark error = %v", err)
		}

		result, err := fx.svc.BulkMark(ctx, session.ID, &BulkMarkRequest{Items: []validator.BulkMarkItemRequest{
			{UserID: member.ID, Status: models.BulkPresent},
		}}, admin.ID)
		if err != nil {
			t.Fatalf("BulkMark() error = %v", err)
		}
		if result.SuccessCount != 1 {
			t.Errorf("SuccessCount = %d, want 1", result.SuccessCount)
		}

		mark, _ := fx.repo.Attendance().GetBySessionAndUser(ctx, session.ID, member.ID)
		if mark.MarkedByID != admin.ID {
			t.Errorf("MarkedByID = %d, want the correcting admin (%d)", mark.MarkedByID, admin.ID)
		}
		user, _ := fx.repo.User().GetByID(ctx, member.ID)
		if user.AttendedCount != 1 || user.LateCount != 0 {
			t.Errorf("user counters = (%d, %d), want unchanged (1, 0)", user.AttendedCount, user.LateCount)
		}
	})

	t.Run("mumin may not bulk mark", func(t *testing.T) {
		fx := newAttendanceFixture()
		mumin := fx.repo.seedUser(models.RoleMumin, "90000001", "")
		sabaq := fx.repo.seedSabaq(nil)
		session := fx.repo.seedSession(sabaq.ID, true)

		_, err := fx.svc.BulkMark(ctx, session.ID, &BulkMarkRequest{Items: []validator.BulkMarkItemRequest{
			{UserID: mumin.ID, Status: models.BulkPresent},
		}}, mumin.ID)
		if !IsPermissionError(err) {
			t.Errorf("error = %v, want PermissionError", err)
		}
	})
}

func TestAttendanceDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("admin deletes a mark and counters roll back", func(t *testing.T) {
		fx := newAttendanceFixture()
		admin := fx.repo.seedUser(models.RoleAdmin, "90000001", "")
		member := fx.repo.seedUser(models.RoleMumin, "10000001", "")
		sabaq := fx.repo.seedSabaq(nil)
		session := fx.repo.seedSession(sabaq.ID, true)
		fx.repo.seedEnrollment(sabaq.ID, member.ID, models.EnrollmentApproved)

		if _, err := fx.svc.MarkManual(ctx, session.ID, &ManualMarkRequest{ITSNumber: member.ITSNumber}, admin.ID); err != nil {
			t.Fatalf("seed mark error = %v", err)
		}

		if err := fx.svc.Delete(ctx, session.ID, member.ID, admin.ID); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}

		if _, err := fx.repo.Attendance().GetBySessionAndUser(ctx, session.ID, member.ID); err == nil {
			t.Error("mark should be gone")
		}
		updatedSession, _ := fx.repo.Session().GetByID(ctx, session.ID)
		if updatedSession.AttendanceCount != 0 {
			t.Errorf("session AttendanceCount = %d, want 0", updatedSession.AttendanceCount)
		}
		user, _ := fx.repo.User().GetByID(ctx, member.ID)
		if user.AttendedCount != 0 {
			t.Errorf("user AttendedCount = %d, want 0", user.AttendedCount)
		}

		// Privileged deletions leave an audit trail.
		logs, _ := fx.repo.SecurityLog().ListByUser(ctx, admin.ID, 10)
		if len(logs) != 1 || logs[0].Action != "attendance.delete" {
			t.Errorf("audit entries = %+v, want one attendance.delete", logs)
		}
	})

	t.Run("missing mark", func(t *testing.T) {
		fx := newAttendanceFixture()
		admin := fx.repo.seedUser(models.RoleAdmin, "90000001", "")
		sabaq := fx.repo.seedSabaq(nil)
		session := fx.repo.seedSession(sabaq.ID, true)

		if err := fx.svc.Delete(ctx, session.ID, 999, admin.ID); !errors.Is(err, ErrAttendanceNotFound) {
			t.Errorf("error = %v, want ErrAttendanceNotFound", err)
		}
	})

	t.Run("manager may not delete", func(t *testing.T) {
		fx := newAttendanceFixture()
		manager := fx.repo.seedUser(models.RoleManager, "90000001", "")
		sabaq := fx.repo.seedSabaq(nil)
		session := fx.repo.seedSession(sabaq.ID, true)

		if err := fx.svc.Delete(ctx, session.ID, 999, manager.ID); !IsPermissionError(err) {
			t.Errorf("error = %v, want PermissionError", err)
		}
	})
}

func TestAttendanceListBySession(t *testing.T) {
	ctx := context.Background()

	t.Run("lists marks for authorized roles", func(t *testing.T) {
		fx := newAttendanceFixture()
		incharge := fx.repo.seedUser(models.RoleAttendanceIncharge, "90000001", "")
		member := fx.repo.seedUser(models.RoleMumin, "10000001", "")
		sabaq := fx.repo.seedSabaq(nil)
		session := fx.repo.seedSession(sabaq.ID, true)
		fx.repo.seedEnrollment(sabaq.ID, member.ID, models.EnrollmentApproved)

		if _, err := fx.svc.MarkManual(ctx, session.ID, &ManualMarkRequest{ITSNumber: member.ITSNumber}, incharge.ID); err != nil {
			t.Fatalf("seed mark error = %v", err)
		}

		list, err := fx.svc.ListBySession(ctx, session.ID, incharge.ID)
		if err != nil {
			t.Fatalf("ListBySession() error = %v", err)
		}
		if len(list) != 1 || list[0].UserID != member.ID {
			t.Errorf("list = %+v, want one mark for user %d", list, member.ID)
		}
	})

	t.Run("mumin may not list", func(t *testing.T) {
		fx := newAttendanceFixture()
		mumin := fx.repo.seedUser(models.RoleMumin, "90000001", "")
		sabaq := fx.repo.seedSabaq(nil)
		session := fx.repo.seedSession(sabaq.ID, true)

		if _, err := fx.svc.ListBySession(ctx, session.ID, mumin.ID); !IsPermissionError(err) {
			t.Errorf("error = %v, want PermissionError", err)
		}
	})
}
