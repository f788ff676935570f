package booking

import "errors"

// Every rejection in this package is actionable caller feedback, never a
// crash: unknown ids, missing rights, frozen appointments, occupied
// slots and malformed input each get their own type so the HTTP layer
// can map them to distinct responses.

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidState = errors.New("appointment is not in a state that allows this operation")
)

// ValidationError covers malformed input: bad time ranges, unknown
// statuses, past dates, duplicate weekly template rows.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func validationf(msg string) *ValidationError {
	return &ValidationError{Msg: msg}
}

// ConflictSubject names whose calendar the collision is on. The remedy
// differs: a dentist conflict means pick another time or dentist, a
// client conflict means the client already holds an overlapping booking.
type ConflictSubject string

const (
	SubjectDentist ConflictSubject = "dentist"
	SubjectClient  ConflictSubject = "client"
)

type ConflictError struct {
	Subject ConflictSubject
}

func (e *ConflictError) Error() string {
	if e.Subject == SubjectClient {
		return "you already have an appointment at this time"
	}
	return "this time slot is already taken"
}
