package services

import (
	"errors"
	"fmt"
)

// Sentinel errors returned across the service boundary. Handlers map these
// to status codes and user-facing messages; none of them should surface as a
// generic 500.
var (
	// Not-found errors.
	ErrUserNotFound       = errors.New("user not found")
	ErrSabaqNotFound      = errors.New("sabaq not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrAttendanceNotFound = errors.New("attendance not found")
	ErrQuestionNotFound   = errors.New("question not found")

	// Attendance state conflicts.
	ErrAlreadyMarked    = errors.New("You have already marked attendance for this session")
	ErrNotEnrolled      = errors.New("user is not enrolled in this sabaq")
	ErrSessionNotActive = errors.New("session is not active")

	// Geofence errors.
	ErrOutOfRange          = errors.New("you are outside the attendance area")
	ErrLocationNotAllowed  = errors.New("location-based attendance is not enabled for this sabaq")
	ErrLocationNotSet      = errors.New("sabaq has no attendance location configured")
	ErrInvalidQRToken      = errors.New("QR code is invalid or expired")

	// Session lifecycle conflicts.
	ErrSessionAlreadyActive  = errors.New("another session is already active for this sabaq")
	ErrSessionAlreadyStarted = errors.New("session has already started")
	ErrSessionAlreadyEnded   = errors.New("session has already ended")
	ErrSessionHasNotEnded    = errors.New("session has not ended")
	ErrSessionNotDeletable   = errors.New("a started session cannot be deleted")

	// Enrollment conflicts.
	ErrEnrollmentClosed   = errors.New("enrollment window is closed")
	ErrAlreadyEnrolled    = errors.New("enrollment request already exists")
	ErrEnrollmentReviewed = errors.New("enrollment has already been reviewed")

	// Question conflicts.
	ErrAlreadyVoted = errors.New("you have already upvoted this question")
	ErrVoteNotFound = errors.New("no upvote to remove")

	// ErrValidationFailed wraps request-shape validation errors.
	ErrValidationFailed = errors.New("validation failed")
)

// PermissionError carries who tried what on which resource.
type PermissionError struct {
	UserID   uint
	Resource string
	Action   string
	Reason   string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %d cannot %s %s: %s", e.UserID, e.Action, e.Resource, e.Reason)
}

func NewPermissionError(userID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{UserID: userID, Resource: resource, Action: action, Reason: reason}
}

// IsPermissionError reports whether err is a permission failure.
func IsPermissionError(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}

// BusinessRuleError marks a domain-validation failure with a message safe to
// show the user.
type BusinessRuleError struct {
	Rule    string
	Message string
}

func (e *BusinessRuleError) Error() string {
	return e.Message
}

func NewBusinessRuleError(rule, message string) *BusinessRuleError {
	return &BusinessRuleError{Rule: rule, Message: message}
}

func IsBusinessRuleError(err error) bool {
	var bre *BusinessRuleError
	return errors.As(err, &bre)
}

// IsNotFound reports whether err is any of the domain not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrSabaqNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrEnrollmentNotFound) ||
		errors.Is(err, ErrAttendanceNotFound) ||
		errors.Is(err, ErrQuestionNotFound)
}

// IsConflict reports whether err is a state-conflict sentinel.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyMarked) ||
		errors.Is(err, ErrSessionAlreadyActive) ||
		errors.Is(err, ErrSessionAlreadyStarted) ||
		errors.Is(err, ErrSessionAlreadyEnded) ||
		errors.Is(err, ErrSessionHasNotEnded) ||
		errors.Is(err, ErrSessionNotDeletable) ||
		errors.Is(err, ErrAlreadyEnrolled) ||
		errors.Is(err, ErrEnrollmentReviewed) ||
		errors.Is(err, ErrAlreadyVoted)
}
