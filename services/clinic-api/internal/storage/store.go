// Package storage is the pgx-backed implementation of the booking
// store. The no-overlap invariant is enforced by the database itself
// through range-exclusion constraints on the appointments table, so a
// lost race between two writers surfaces here as an exclusion
// violation and is translated back into a conflict error.
package storage

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clinicore/dentbook/libs/db"
	"github.com/clinicore/dentbook/libs/outbox"
	"github.com/clinicore/dentbook/services/clinic-api/internal/booking"
)

const (
	dentistOverlapConstraint = "appointments_dentist_no_overlap"
	clientOverlapConstraint  = "appointments_client_no_overlap"
	scheduleWeekdayUnique    = "schedules_dentist_id_day_of_week_key"
)

type Store struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func New(pool *db.Pool) *Store {
	return &Store{pool: pool, outbox: outbox.NewRepository(pool)}
}

// translateErr maps driver-level failures onto the booking error
// taxonomy. Exclusion violations carry the constraint name, which tells
// us whose calendar was double-booked.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return booking.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23P01":
		subject := booking.SubjectDentist
		if pgErr.ConstraintName == clientOverlapConstraint {
			subject = booking.SubjectClient
		}
		return &booking.ConflictError{Subject: subject}
	case "23505":
		if pgErr.ConstraintName == scheduleWeekdayUnique {
			return &booking.ValidationError{Msg: "dentist already has a schedule for this weekday"}
		}
		return &booking.ValidationError{Msg: "duplicate record"}
	case "23503":
		if strings.Contains(pgErr.ConstraintName, "appointments_") {
			// FK RESTRICT on delete of a referenced dentist/service.
			return &booking.ValidationError{Msg: "record is referenced by existing appointments"}
		}
		return booking.ErrNotFound
	}
	return err
}
