package service

import (
	"errors"
)

// ErrorKind classifies service failures so the transport layer can map them.
type ErrorKind string

const (
	KindInternal        ErrorKind = "internal"
	KindNotFound        ErrorKind = "not_found"
	KindConflict        ErrorKind = "conflict"
	KindInvalidArgument ErrorKind = "invalid_argument"
	KindInvalidState    ErrorKind = "invalid_state"
	KindForbidden       ErrorKind = "forbidden"
)

// Error is a classified service error. Compare against the exported
// sentinels with errors.Is; wrap them with fmt.Errorf("%w: ...") for detail.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// --- Error Definitions ---
var (
	// Auth
	ErrUserAlreadyExists    = newError(KindConflict, "user with this email already exists")
	ErrAuthenticationFailed = newError(KindInvalidArgument, "authentication failed: invalid email or password")
	ErrInvalidRegistration  = newError(KindInvalidArgument, "name, email, password and a valid role are required")
	ErrUserNotFound         = newError(KindNotFound, "user not found")

	// Attendance
	ErrAlreadyCheckedIn   = newError(KindConflict, "already checked in for this day")
	ErrAttendanceNotFound = newError(KindNotFound, "attendance record not found")
	ErrInvalidMonth       = newError(KindInvalidArgument, "month must be formatted as YYYY-MM")
	ErrInvalidDate        = newError(KindInvalidArgument, "invalid check-in date")
	ErrInvalidRange       = newError(KindInvalidArgument, "invalid date range")
	ErrMissingUser        = newError(KindInvalidArgument, "user id is required")
	ErrNotStaff           = newError(KindForbidden, "only trainers and admins may record attendance for other members")

	// Challenges
	ErrChallengeNotFound     = newError(KindNotFound, "challenge not found")
	ErrParticipationNotFound = newError(KindNotFound, "not participating in this challenge")
	ErrAlreadyJoined         = newError(KindConflict, "already joined this challenge")
	ErrChallengeInactive     = newError(KindInvalidState, "challenge is not active")
	ErrChallengeEnded        = newError(KindInvalidState, "challenge has ended")
	ErrDayOutOfRange         = newError(KindInvalidArgument, "day is outside the challenge")
	ErrInvalidChallenge      = newError(KindInvalidArgument, "invalid challenge")
	ErrProgressContention    = newError(KindConflict, "progress was updated concurrently, retry")

	// Exports
	ErrExportFailed = newError(KindInternal, "failed to export attendance")
)
