package storage

import (
	"context"

	"github.com/clinicore/dentbook/services/clinic-api/internal/booking"
	"github.com/clinicore/dentbook/services/clinic-api/internal/model"
)

const scheduleColumns = `id, dentist_id, day_of_week, start_minute, end_minute, slot_minutes, active`

func (s *Store) GetAvailability(ctx context.Context, dentistID string, weekday int) (model.Availability, error) {
	var av model.Availability
	err := s.pool.QueryRow(ctx, `
		SELECT `+scheduleColumns+`
		FROM schedules
		WHERE dentist_id = $1 AND day_of_week = $2
	`, dentistID, weekday).Scan(&av.ID, &av.DentistID, &av.Weekday, &av.WorkStart, &av.WorkEnd, &av.SlotMinutes, &av.Active)
	if err != nil {
		return model.Availability{}, translateErr(err)
	}
	return av, nil
}

func (s *Store) GetAvailabilityByID(ctx context.Context, id string) (model.Availability, error) {
	var av model.Availability
	err := s.pool.QueryRow(ctx, `
		SELECT `+scheduleColumns+`
		FROM schedules
		WHERE id = $1
	`, id).Scan(&av.ID, &av.DentistID, &av.Weekday, &av.WorkStart, &av.WorkEnd, &av.SlotMinutes, &av.Active)
	if err != nil {
		return model.Availability{}, translateErr(err)
	}
	return av, nil
}

func (s *Store) ListAvailability(ctx context.Context, dentistID string) ([]model.Availability, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+scheduleColumns+`
		FROM schedules
		WHERE dentist_id = $1
		ORDER BY day_of_week
	`, dentistID)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var avs []model.Availability
	for rows.Next() {
		var av model.Availability
		if err := rows.Scan(&av.ID, &av.DentistID, &av.Weekday, &av.WorkStart, &av.WorkEnd, &av.SlotMinutes, &av.Active); err != nil {
			return nil, err
		}
		avs = append(avs, av)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return avs, nil
}

func (s *Store) CreateAvailability(ctx context.Context, av model.Availability) (model.Availability, error) {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO schedules (dentist_id, day_of_week, start_minute, end_minute, slot_minutes, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, av.DentistID, av.Weekday, av.WorkStart, av.WorkEnd, av.SlotMinutes, av.Active).Scan(&av.ID)
	if err != nil {
		return model.Availability{}, translateErr(err)
	}
	return av, nil
}

func (s *Store) UpdateAvailability(ctx context.Context, av model.Availability) (model.Availability, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE schedules
		SET start_minute = $2,
			end_minute = $3,
			slot_minutes = $4,
			active = $5,
			updated_at = now()
		WHERE id = $1
	`, av.ID, av.WorkStart, av.WorkEnd, av.SlotMinutes, av.Active)
	if err != nil {
		return model.Availability{}, translateErr(err)
	}
	if tag.RowsAffected() == 0 {
		return model.Availability{}, booking.ErrNotFound
	}
	return av, nil
}

func (s *Store) DeleteAvailability(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return translateErr(err)
	}
	if tag.RowsAffected() == 0 {
		return booking.ErrNotFound
	}
	return nil
}
