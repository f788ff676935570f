package storage

import (
	"context"
	"time"

	"github.com/clinicore/dentbook/services/clinic-api/internal/booking"
)

func (s *Store) DashboardStats(ctx context.Context, today time.Time) (booking.DashboardStats, error) {
	var stats booking.DashboardStats
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM appointments WHERE date = $1 AND status <> 'cancelled'),
			(SELECT count(*) FROM appointments WHERE status = 'pending'),
			(SELECT count(*) FROM appointments WHERE status = 'confirmed'),
			(SELECT count(*) FROM appointments WHERE date = $1 AND status = 'completed'),
			(SELECT count(*) FROM clients),
			(SELECT count(*) FROM dentists WHERE active)
	`, today).Scan(
		&stats.AppointmentsToday,
		&stats.PendingAppointments,
		&stats.ConfirmedAppointments,
		&stats.CompletedToday,
		&stats.TotalClients,
		&stats.ActiveDentists,
	)
	if err != nil {
		return booking.DashboardStats{}, translateErr(err)
	}

	recent, err := s.ListAppointments(ctx, booking.AppointmentFilter{Limit: 10})
	if err != nil {
		return booking.DashboardStats{}, err
	}
	stats.RecentAppointments = recent
	return stats, nil
}
