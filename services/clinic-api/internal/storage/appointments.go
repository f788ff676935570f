package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/clinicore/dentbook/libs/outbox"
	"github.com/clinicore/dentbook/services/clinic-api/internal/booking"
	"github.com/clinicore/dentbook/services/clinic-api/internal/model"
)

const apptColumns = `id, reference, client_id, dentist_id, service_id, date, start_minute, end_minute,
	status, COALESCE(notes, ''), COALESCE(admin_notes, ''), cancelled_by, COALESCE(cancel_reason, ''),
	created_at, updated_at`

func scanAppt(row pgx.Row) (model.Appointment, error) {
	var a model.Appointment
	err := row.Scan(
		&a.ID,
		&a.Reference,
		&a.ClientID,
		&a.DentistID,
		&a.ServiceID,
		&a.Date,
		&a.Start,
		&a.End,
		&a.Status,
		&a.Notes,
		&a.AdminNotes,
		&a.CancelledBy,
		&a.CancelReason,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	a.Date = model.Midnight(a.Date)
	return a, nil
}

func (s *Store) GetAppointment(ctx context.Context, id string) (model.Appointment, error) {
	appt, err := scanAppt(s.pool.QueryRow(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE id = $1
	`, id))
	if err != nil {
		return model.Appointment{}, translateErr(err)
	}
	return appt, nil
}

func (s *Store) ListDayOccupancy(ctx context.Context, key booking.OccupancyKey, date time.Time, excludeID string) ([]model.Appointment, error) {
	column := "dentist_id"
	if key.Subject == booking.SubjectClient {
		column = "client_id"
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE `+column+` = $1
			AND date = $2
			AND status <> 'cancelled'
			AND ($3 = '' OR id::text <> $3)
		ORDER BY start_minute
	`, key.ID, date, excludeID)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppt(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

// nextReference claims the next sequence number for the booking year.
// The counter row is updated inside the caller's transaction, so the
// number is never burned by a booking that fails its exclusion check:
// the whole transaction rolls back together.
func (s *Store) nextReference(ctx context.Context, tx pgx.Tx, year int) (string, error) {
	var seq int
	err := tx.QueryRow(ctx, `
		INSERT INTO appointment_counters (year, last_seq)
		VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET last_seq = appointment_counters.last_seq + 1
		RETURNING last_seq
	`, year).Scan(&seq)
	if err != nil {
		return "", err
	}
	return model.Reference(year, seq), nil
}

// InsertAppointment writes the booking and its outbox event in one
// transaction. The exclusion constraints on the appointments table are
// the authoritative overlap check: if a concurrent writer took the slot
// after the service's pre-check, the insert fails with an exclusion
// violation and translateErr turns it into a conflict.
func (s *Store) InsertAppointment(ctx context.Context, appt model.Appointment) (model.Appointment, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer tx.Rollback(ctx)

	appt.Reference, err = s.nextReference(ctx, tx, appt.Date.Year())
	if err != nil {
		return model.Appointment{}, translateErr(err)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO appointments
			(reference, client_id, dentist_id, service_id, date, start_minute, end_minute, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''))
		RETURNING id, created_at, updated_at
	`, appt.Reference, appt.ClientID, appt.DentistID, appt.ServiceID,
		appt.Date, appt.Start, appt.End, appt.Status, appt.Notes,
	).Scan(&appt.ID, &appt.CreatedAt, &appt.UpdatedAt)
	if err != nil {
		return model.Appointment{}, translateErr(err)
	}

	if err := s.emit(ctx, tx, "appointment.booked", appt); err != nil {
		return model.Appointment{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, translateErr(err)
	}
	return appt, nil
}

// UpdateAppointment rewrites the row under a row lock. The prior status
// is read first so the right event is emitted: a move into cancelled, a
// status change, or a reschedule.
func (s *Store) UpdateAppointment(ctx context.Context, appt model.Appointment) (model.Appointment, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer tx.Rollback(ctx)

	prev, err := scanAppt(tx.QueryRow(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, appt.ID))
	if err != nil {
		return model.Appointment{}, translateErr(err)
	}

	err = tx.QueryRow(ctx, `
		UPDATE appointments
		SET client_id = $2,
			dentist_id = $3,
			service_id = $4,
			date = $5,
			start_minute = $6,
			end_minute = $7,
			status = $8,
			notes = NULLIF($9, ''),
			admin_notes = NULLIF($10, ''),
			cancelled_by = $11,
			cancel_reason = NULLIF($12, ''),
			updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, appt.ID, appt.ClientID, appt.DentistID, appt.ServiceID,
		appt.Date, appt.Start, appt.End, appt.Status,
		appt.Notes, appt.AdminNotes, appt.CancelledBy, appt.CancelReason,
	).Scan(&appt.UpdatedAt)
	if err != nil {
		return model.Appointment{}, translateErr(err)
	}

	switch {
	case appt.Status == model.StatusCancelled && prev.Status != model.StatusCancelled:
		err = s.emit(ctx, tx, "appointment.cancelled", appt)
	case appt.Status != prev.Status:
		err = s.emit(ctx, tx, "appointment.status_changed", appt)
	case !appt.Date.Equal(prev.Date) || appt.Start != prev.Start || appt.End != prev.End || appt.DentistID != prev.DentistID:
		err = s.emit(ctx, tx, "appointment.rescheduled", appt)
	}
	if err != nil {
		return model.Appointment{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, translateErr(err)
	}
	return appt, nil
}

func (s *Store) ListAppointments(ctx context.Context, f booking.AppointmentFilter) ([]model.Appointment, error) {
	query := `SELECT ` + apptColumns + ` FROM appointments WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.ClientID != "" {
		query += ` AND client_id = ` + arg(f.ClientID)
	}
	if f.DentistID != "" {
		query += ` AND dentist_id = ` + arg(f.DentistID)
	}
	if f.Status != "" {
		query += ` AND status = ` + arg(f.Status)
	}
	if f.Date != nil {
		query += ` AND date = ` + arg(model.Midnight(*f.Date))
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` ORDER BY date DESC, start_minute DESC LIMIT ` + arg(limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppt(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

type apptEvent struct {
	AppointmentID string `json:"appointment_id"`
	Reference     string `json:"reference"`
	ClientID      string `json:"client_id"`
	DentistID     string `json:"dentist_id"`
	ServiceID     string `json:"service_id"`
	Date          string `json:"date"`
	StartMinute   int    `json:"start_minute"`
	EndMinute     int    `json:"end_minute"`
	Status        string `json:"status"`
	CancelledBy   string `json:"cancelled_by,omitempty"`
	CancelReason  string `json:"cancel_reason,omitempty"`
}

func (s *Store) emit(ctx context.Context, tx pgx.Tx, eventType string, appt model.Appointment) error {
	payload, err := json.Marshal(apptEvent{
		AppointmentID: appt.ID,
		Reference:     appt.Reference,
		ClientID:      appt.ClientID,
		DentistID:     appt.DentistID,
		ServiceID:     appt.ServiceID,
		Date:          model.DateString(appt.Date),
		StartMinute:   int(appt.Start),
		EndMinute:     int(appt.End),
		Status:        string(appt.Status),
		CancelledBy:   string(appt.CancelledBy),
		CancelReason:  appt.CancelReason,
	})
	if err != nil {
		return err
	}
	return s.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     eventType,
		Payload:       payload,
	})
}
