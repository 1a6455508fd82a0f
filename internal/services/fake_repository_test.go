package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sabaq-center/sabaq-service/internal/models"
	"github.com/sabaq-center/sabaq-service/internal/repositories"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRepository is an in-memory repositories.Repository for the service
// tests. Uniqueness rules mirror the database unique indexes and surface as
// repositories.ErrDuplicate. WithTransaction runs the callback against the
// same store without rollback, so tests only assert on committed outcomes.
type fakeRepository struct {
	mu     sync.Mutex
	nextID uint

	users        map[uint]*models.User
	sabaqs       map[uint]*models.Sabaq
	sabaqAdmins  map[uint]map[uint]bool
	sessions     map[uint]*models.Session
	enrollments  map[uint]*models.Enrollment
	attendances  map[uint]*models.Attendance
	questions    map[uint]*models.Question
	votes        map[uint]*models.QuestionVote
	emails       map[uint]*models.EmailLog
	securityLogs []*models.SecurityLog
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		users:       make(map[uint]*models.User),
		sabaqs:      make(map[uint]*models.Sabaq),
		sabaqAdmins: make(map[uint]map[uint]bool),
		sessions:    make(map[uint]*models.Session),
		enrollments: make(map[uint]*models.Enrollment),
		attendances: make(map[uint]*models.Attendance),
		questions:   make(map[uint]*models.Question),
		votes:       make(map[uint]*models.QuestionVote),
		emails:      make(map[uint]*models.EmailLog),
	}
}

func (f *fakeRepository) id() uint {
	f.nextID++
	return f.nextID
}

func (f *fakeRepository) User() repositories.UserRepository             { return &fakeUserRepo{f} }
func (f *fakeRepository) Sabaq() repositories.SabaqRepository           { return &fakeSabaqRepo{f} }
func (f *fakeRepository) Session() repositories.SessionRepository       { return &fakeSessionRepo{f} }
func (f *fakeRepository) Enrollment() repositories.EnrollmentRepository { return &fakeEnrollmentRepo{f} }
func (f *fakeRepository) Attendance() repositories.AttendanceRepository { return &fakeAttendanceRepo{f} }
func (f *fakeRepository) Question() repositories.QuestionRepository     { return &fakeQuestionRepo{f} }
func (f *fakeRepository) Email() repositories.EmailRepository           { return &fakeEmailRepo{f} }
func (f *fakeRepository) SecurityLog() repositories.SecurityLogRepository {
	return &fakeSecurityLogRepo{f}
}

func (f *fakeRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(f)
}

func (f *fakeRepository) Ping(ctx context.Context) error { return nil }
func (f *fakeRepository) Close() error                   { return nil }

// ===== SEED HELPERS =====

func (f *fakeRepository) seedUser(role models.UserRole, its string, email string) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()

	user := &models.User{
		ID:        f.id(),
		ITSNumber: its,
		Name:      "User " + its,
		Role:      role,
	}
	if email != "" {
		user.Email = &email
	}
	f.users[user.ID] = user
	c := *user
	return &c
}

func (f *fakeRepository) seedSabaq(janabID *uint) *models.Sabaq {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	sabaq := &models.Sabaq{
		ID:              f.id(),
		Name:            "Test Sabaq",
		Kitaab:          "Test Kitaab",
		EnrollmentStart: now.Add(-24 * time.Hour),
		EnrollmentEnd:   now.Add(24 * time.Hour),
		JanabID:         janabID,
	}
	f.sabaqs[sabaq.ID] = sabaq
	c := *sabaq
	return &c
}

func (f *fakeRepository) seedSession(sabaqID uint, active bool) *models.Session {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	session := &models.Session{
		ID:          f.id(),
		SabaqID:     sabaqID,
		ScheduledAt: now.Add(-time.Hour),
		CutoffTime:  now.Add(time.Hour),
		IsActive:    active,
	}
	if active {
		started := now.Add(-time.Hour)
		session.StartedAt = &started
	}
	f.sessions[session.ID] = session
	if active {
		if sabaq, ok := f.sabaqs[sabaqID]; ok {
			id := session.ID
			sabaq.ActiveSessionID = &id
		}
	}
	c := *session
	return &c
}

func (f *fakeRepository) seedEnrollment(sabaqID, userID uint, status models.EnrollmentStatus) *models.Enrollment {
	f.mu.Lock()
	defer f.mu.Unlock()

	enrollment := &models.Enrollment{
		ID:      f.id(),
		SabaqID: sabaqID,
		UserID:  userID,
		Status:  status,
	}
	f.enrollments[enrollment.ID] = enrollment
	c := *enrollment
	return &c
}

// ===== USERS =====

type fakeUserRepo struct{ f *fakeRepository }

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	for _, existing := range r.f.users {
		if existing.ITSNumber == user.ITSNumber {
			return repositories.ErrDuplicate
		}
	}
	user.ID = r.f.id()
	c := *user
	r.f.users[user.ID] = &c
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uint) (*models.User, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	user, ok := r.f.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	c := *user
	return &c, nil
}

func (r *fakeUserRepo) GetByITSNumber(ctx context.Context, its string) (*models.User, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	for _, user := range r.f.users {
		if user.ITSNumber == its {
			c := *user
			return &c, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeUserRepo) GetByRole(ctx context.Context, role models.UserRole) ([]*models.User, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	var out []*models.User
	for _, user := range r.f.users {
		if user.Role == role {
			c := *user
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *models.User) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	if _, ok := r.f.users[user.ID]; !ok {
		return repositories.ErrNotFound
	}
	c := *user
	r.f.users[user.ID] = &c
	return nil
}

func (r *fakeUserRepo) IncrementAttendanceCounters(ctx context.Context, userID uint, attendedDelta, lateDelta int) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	user, ok := r.f.users[userID]
	if !ok {
		return repositories.ErrNotFound
	}
	user.AttendedCount += attendedDelta
	user.LateCount += lateDelta
	return nil
}

func (r *fakeUserRepo) IncrementQuestionsCount(ctx context.Context, userID uint, delta int) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	user, ok := r.f.users[userID]
	if !ok {
		return repositories.ErrNotFound
	}
	user.QuestionsCount += delta
	return nil
}

func (r *fakeUserRepo) IncrementManagedSabaqs(ctx context.Context, userID uint, delta int) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	user, ok := r.f.users[userID]
	if !ok {
		return repositories.ErrNotFound
	}
	user.ManagedSabaqsCount += delta
	return nil
}

// ===== SABAQS =====

type fakeSabaqRepo struct{ f *fakeRepository }

func (r *fakeSabaqRepo) Create(ctx context.Context, sabaq *models.Sabaq) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	sabaq.ID = r.f.id()
	c := *sabaq
	r.f.sabaqs[sabaq.ID] = &c
	return nil
}

func (r *fakeSabaqRepo) GetByID(ctx context.Context, id uint) (*models.Sabaq, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	return r.getLocked(id)
}

func (r *fakeSabaqRepo) getLocked(id uint) (*models.Sabaq, error) {
	sabaq, ok := r.f.sabaqs[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	c := *sabaq
	return &c, nil
}

func (r *fakeSabaqRepo) GetByIDWithDetails(ctx context.Context, id uint) (*models.Sabaq, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeSabaqRepo) Update(ctx context.Context, sabaq *models.Sabaq) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	if _, ok := r.f.sabaqs[sabaq.ID]; !ok {
		return repositories.ErrNotFound
	}
	c := *sabaq
	r.f.sabaqs[sabaq.ID] = &c
	return nil
}

func (r *fakeSabaqRepo) Delete(ctx context.Context, id uint) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	if _, ok := r.f.sabaqs[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.f.sabaqs, id)
	return nil
}

func (r *fakeSabaqRepo) List(ctx context.Context, filters repositories.SabaqFilters) ([]*models.Sabaq, int64, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	var out []*models.Sabaq
	for _, sabaq := range r.f.sabaqs {
		if filters.JanabID != nil && (sabaq.JanabID == nil || *sabaq.JanabID != *filters.JanabID) {
			continue
		}
		if filters.Level != nil && sabaq.Level != *filters.Level {
			continue
		}
		c := *sabaq
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r *fakeSabaqRepo) SetActiveSession(ctx context.Context, sabaqID uint, sessionID *uint) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	sabaq, ok := r.f.sabaqs[sabaqID]
	if !ok {
		return repositories.ErrNotFound
	}
	sabaq.ActiveSessionID = sessionID
	return nil
}

func (r *fakeSabaqRepo) IncrementConductedSessions(ctx context.Context, sabaqID uint) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	sabaq, ok := r.f.sabaqs[sabaqID]
	if !ok {
		return repositories.ErrNotFound
	}
	sabaq.ConductedSessionsCount++
	return nil
}

func (r *fakeSabaqRepo) IncrementMembers(ctx context.Context, sabaqID uint, delta int) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	sabaq, ok := r.f.sabaqs[sabaqID]
	if !ok {
		return repositories.ErrNotFound
	}
	sabaq.MembersCount += delta
	return nil
}

func (r *fakeSabaqRepo) IsSabaqAdmin(ctx context.Context, sabaqID, userID uint) (bool, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	return r.f.sabaqAdmins[sabaqID][userID], nil
}

func (r *fakeSabaqRepo) AddAdmin(ctx context.Context, sabaqID, userID uint) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	if r.f.sabaqAdmins[sabaqID][userID] {
		return repositories.ErrDuplicate
	}
	if r.f.sabaqAdmins[sabaqID] == nil {
		r.f.sabaqAdmins[sabaqID] = make(map[uint]bool)
	}
	r.f.sabaqAdmins[sabaqID][userID] = true
	return nil
}

func (r *fakeSabaqRepo) RemoveAdmin(ctx context.Context, sabaqID, userID uint) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	delete(r.f.sabaqAdmins[sabaqID], userID)
	return nil
}

func (r *fakeSabaqRepo) AdminUsers(ctx context.Context, sabaqID uint) ([]*models.User, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	var out []*models.User
	for userID := range r.f.sabaqAdmins[sabaqID] {
		if user, ok := r.f.users[userID]; ok {
			c := *user
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ===== SESSIONS =====

type fakeSessionRepo struct{ f *fakeRepository }

func (r *fakeSessionRepo) Create(ctx context.Context, session *models.Session) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	session.ID = r.f.id()
	c := *session
	r.f.sessions[session.ID] = &c
	return nil
}

func (r *fakeSessionRepo) GetByID(ctx context.Context, id uint) (*models.Session, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	session, ok := r.f.sessions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	c := *session
	return &c, nil
}

func (r *fakeSessionRepo) GetByIDWithSabaq(ctx context.Context, id uint) (*models.Session, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	session, ok := r.f.sessions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	c := *session
	if sabaq, ok := r.f.sabaqs[session.SabaqID]; ok {
		c.Sabaq = *sabaq
	}
	return &c, nil
}

func (r *fakeSessionRepo) Update(ctx context.Context, session *models.Session) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	if _, ok := r.f.sessions[session.ID]; !ok {
		return repositories.ErrNotFound
	}
	c := *session
	c.Sabaq = models.Sabaq{}
	r.f.sessions[session.ID] = &c
	return nil
}

func (r *fakeSessionRepo) Delete(ctx context.Context, id uint) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	if _, ok := r.f.sessions[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.f.sessions, id)
	return nil
}

func (r *fakeSessionRepo) List(ctx context.Context, filters repositories.SessionFilters) ([]*models.Session, int64, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	var out []*models.Session
	for _, session := range r.f.sessions {
		if filters.SabaqID != nil && session.SabaqID != *filters.SabaqID {
			continue
		}
		if filters.IsActive != nil && session.IsActive != *filters.IsActive {
			continue
		}
		if filters.DateFrom != nil && session.ScheduledAt.Before(*filters.DateFrom) {
			continue
		}
		if filters.DateTo != nil && session.ScheduledAt.After(*filters.DateTo) {
			continue
		}
		c := *session
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r *fakeSessionRepo) GetActiveBySabaq(ctx context.Context, sabaqID uint) (*models.Session, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	for _, session := range r.f.sessions {
		if session.SabaqID == sabaqID && session.IsActive {
			c := *session
			return &c, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeSessionRepo) IncrementAttendanceCount(ctx context.Context, sessionID uint, delta int) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	session, ok := r.f.sessions[sessionID]
	if !ok {
		return repositories.ErrNotFound
	}
	session.AttendanceCount += delta
	return nil
}

func (r *fakeSessionRepo) IncrementQuestionsCount(ctx context.Context, sessionID uint, delta int) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	session, ok := r.f.sessions[sessionID]
	if !ok {
		return repositories.ErrNotFound
	}
	session.QuestionsCount += delta
	return nil
}

// ===== ENROLLMENTS =====

type fakeEnrollmentRepo struct{ f *fakeRepository }

func (r *fakeEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	for _, existing := range r.f.enrollments {
		if existing.SabaqID == enrollment.SabaqID && existing.UserID == enrollment.UserID {
			return repositories.ErrDuplicate
		}
	}
	enrollment.ID = r.f.id()
	c := *enrollment
	r.f.enrollments[enrollment.ID] = &c
	return nil
}

func (r *fakeEnrollmentRepo) GetByID(ctx context.Context, id uint) (*models.Enrollment, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	enrollment, ok := r.f.enrollments[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	c := *enrollment
	return &c, nil
}

func (r *fakeEnrollmentRepo) GetBySabaqAndUser(ctx context.Context, sabaqID, userID uint) (*models.Enrollment, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	for _, enrollment := range r.f.enrollments {
		if enrollment.SabaqID == sabaqID && enrollment.UserID == userID {
			c := *enrollment
			return &c, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeEnrollmentRepo) Update(ctx context.Context, enrollment *models.Enrollment) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	if _, ok := r.f.enrollments[enrollment.ID]; !ok {
		return repositories.ErrNotFound
	}
	c := *enrollment
	r.f.enrollments[enrollment.ID] = &c
	return nil
}

func (r *fakeEnrollmentRepo) ListBySabaq(ctx context.Context, sabaqID uint, filters repositories.EnrollmentFilters) ([]*models.Enrollment, int64, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	var out []*models.Enrollment
	for _, enrollment := range r.f.enrollments {
		if enrollment.SabaqID != sabaqID {
			continue
		}
		if filters.Status != nil && enrollment.Status != *filters.Status {
			continue
		}
		c := *enrollment
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r *fakeEnrollmentRepo) ApprovedUsers(ctx context.Context, sabaqID uint) ([]*models.User, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	var out []*models.User
	for _, enrollment := range r.f.enrollments {
		if enrollment.SabaqID != sabaqID || enrollment.Status != models.EnrollmentApproved {
			continue
		}
		if user, ok := r.f.users[enrollment.UserID]; ok {
			c := *user
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ===== ATTENDANCE =====

type fakeAttendanceRepo struct{ f *fakeRepository }

func (r *fakeAttendanceRepo) Create(ctx context.Context, attendance *models.Attendance) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	for _, existing := range r.f.attendances {
		if existing.SessionID == attendance.SessionID && existing.UserID == attendance.UserID {
			return repositories.ErrDuplicate
		}
	}
	attendance.ID = r.f.id()
	c := *attendance
	r.f.attendances[attendance.ID] = &c
	return nil
}

func (r *fakeAttendanceRepo) GetByID(ctx context.Context, id uint) (*models.Attendance, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	attendance, ok := r.f.attendances[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	c := *attendance
	return &c, nil
}

func (r *fakeAttendanceRepo) GetBySessionAndUser(ctx context.Context, sessionID, userID uint) (*models.Attendance, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	for _, attendance := range r.f.attendances {
		if attendance.SessionID == sessionID && attendance.UserID == userID {
			c := *attendance
			return &c, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeAttendanceRepo) Update(ctx context.Context, attendance *models.Attendance) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	if _, ok := r.f.attendances[attendance.ID]; !ok {
		return repositories.ErrNotFound
	}
	c := *attendance
	r.f.attendances[attendance.ID] = &c
	return nil
}

func (r *fakeAttendanceRepo) Delete(ctx context.Context, id uint) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	if _, ok := r.f.attendances[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.f.attendances, id)
	return nil
}

func (r *fakeAttendanceRepo) DeleteBySessionAndUser(ctx context.Context, sessionID, userID uint) (bool, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	for id, attendance := range r.f.attendances {
		if attendance.SessionID == sessionID && attendance.UserID == userID {
			delete(r.f.attendances, id)
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeAttendanceRepo) ListBySession(ctx context.Context, sessionID uint) ([]*models.Attendance, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	var out []*models.Attendance
	for _, attendance := range r.f.attendances {
		if attendance.SessionID == sessionID {
			c := *attendance
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeAttendanceRepo) CountBySession(ctx context.Context, sessionID uint) (int64, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	var count int64
	for _, attendance := range r.f.attendances {
		if attendance.SessionID == sessionID {
			count++
		}
	}
	return count, nil
}

func (r *fakeAttendanceRepo) AttendedUserIDs(ctx context.Context, sabaqID uint) ([]uint, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	seen := make(map[uint]struct{})
	var out []uint
	for _, attendance := range r.f.attendances {
		if attendance.SabaqID != sabaqID {
			continue
		}
		if _, ok := seen[attendance.UserID]; ok {
			continue
		}
		seen[attendance.UserID] = struct{}{}
		out = append(out, attendance.UserID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// ===== QUESTIONS =====

type fakeQuestionRepo struct{ f *fakeRepository }

func (r *fakeQuestionRepo) Create(ctx context.Context, question *models.Question) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	question.ID = r.f.id()
	c := *question
	r.f.questions[question.ID] = &c
	return nil
}

func (r *fakeQuestionRepo) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	question, ok := r.f.questions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	c := *question
	return &c, nil
}

func (r *fakeQuestionRepo) Delete(ctx context.Context, id uint) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	if _, ok := r.f.questions[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.f.questions, id)
	return nil
}

func (r *fakeQuestionRepo) ListBySession(ctx context.Context, sessionID uint) ([]*models.Question, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	var out []*models.Question
	for _, question := range r.f.questions {
		if question.SessionID == sessionID {
			c := *question
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpvoteCount != out[j].UpvoteCount {
			return out[i].UpvoteCount > out[j].UpvoteCount
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *fakeQuestionRepo) CreateVote(ctx context.Context, vote *models.QuestionVote) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	for _, existing := range r.f.votes {
		if existing.QuestionID == vote.QuestionID && existing.UserID == vote.UserID {
			return repositories.ErrDuplicate
		}
	}
	vote.ID = r.f.id()
	c := *vote
	r.f.votes[vote.ID] = &c
	return nil
}

func (r *fakeQuestionRepo) DeleteVote(ctx context.Context, questionID, userID uint) (bool, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	for id, vote := range r.f.votes {
		if vote.QuestionID == questionID && vote.UserID == userID {
			delete(r.f.votes, id)
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeQuestionRepo) IncrementUpvotes(ctx context.Context, questionID uint, delta int) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	question, ok := r.f.questions[questionID]
	if !ok {
		return repositories.ErrNotFound
	}
	question.UpvoteCount += delta
	return nil
}

func (r *fakeQuestionRepo) CountVotes(ctx context.Context, questionID uint) (int64, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	var count int64
	for _, vote := range r.f.votes {
		if vote.QuestionID == questionID {
			count++
		}
	}
	return count, nil
}

// ===== EMAILS =====

type fakeEmailRepo struct{ f *fakeRepository }

func (r *fakeEmailRepo) Enqueue(ctx context.Context, email *models.EmailLog) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	email.ID = r.f.id()
	if email.Status == "" {
		email.Status = models.EmailPending
	}
	c := *email
	r.f.emails[email.ID] = &c
	return nil
}

func (r *fakeEmailRepo) GetByID(ctx context.Context, id uint) (*models.EmailLog, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	email, ok := r.f.emails[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	c := *email
	return &c, nil
}

func (r *fakeEmailRepo) ListPending(ctx context.Context, limit int) ([]*models.EmailLog, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	var out []*models.EmailLog
	for _, email := range r.f.emails {
		if email.Status == models.EmailPending {
			c := *email
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeEmailRepo) MarkSent(ctx context.Context, id uint) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	email, ok := r.f.emails[id]
	if !ok {
		return repositories.ErrNotFound
	}
	now := time.Now()
	email.Status = models.EmailSent
	email.SentAt = &now
	email.Attempts++
	return nil
}

func (r *fakeEmailRepo) MarkFailed(ctx context.Context, id uint, errMsg string) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	email, ok := r.f.emails[id]
	if !ok {
		return repositories.ErrNotFound
	}
	email.Status = models.EmailFailed
	email.Error = &errMsg
	email.Attempts++
	return nil
}

func (r *fakeEmailRepo) ResetFailed(ctx context.Context) (int64, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	var count int64
	for _, email := range r.f.emails {
		if email.Status == models.EmailFailed {
			email.Status = models.EmailPending
			email.Error = nil
			count++
		}
	}
	return count, nil
}

func (r *fakeEmailRepo) CountByStatus(ctx context.Context, status models.EmailStatus) (int64, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	var count int64
	for _, email := range r.f.emails {
		if email.Status == status {
			count++
		}
	}
	return count, nil
}

// ===== SECURITY LOGS =====

type fakeSecurityLogRepo struct{ f *fakeRepository }

func (r *fakeSecurityLogRepo) Create(ctx context.Context, entry *models.SecurityLog) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	entry.ID = r.f.id()
	c := *entry
	r.f.securityLogs = append(r.f.securityLogs, &c)
	return nil
}

func (r *fakeSecurityLogRepo) ListByUser(ctx context.Context, userID uint, limit int) ([]*models.SecurityLog, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	var out []*models.SecurityLog
	for _, entry := range r.f.securityLogs {
		if entry.UserID != nil && *entry.UserID == userID {
			c := *entry
			out = append(out, &c)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
