package booking

import (
	"context"
	"time"

	"github.com/clinicore/dentbook/services/clinic-api/internal/model"
)

// OccupancyKey selects which calendar to read from the booking ledger.
type OccupancyKey struct {
	Subject ConflictSubject
	ID      string
}

// AppointmentFilter narrows ListAppointments. Zero values match all.
type AppointmentFilter struct {
	ClientID  string
	DentistID string
	Status    model.Status
	Date      *time.Time
	Limit     int
}

// DashboardStats are the admin landing-page aggregates.
type DashboardStats struct {
	AppointmentsToday     int
	PendingAppointments   int
	ConfirmedAppointments int
	CompletedToday        int
	TotalClients          int
	ActiveDentists        int
	RecentAppointments    []model.Appointment
}

// Store is the persistence boundary of the scheduling core.
//
// InsertAppointment and UpdateAppointment carry the critical contract:
// they must atomically re-verify the no-overlap invariant for both the
// dentist and the client calendars together with the write, and return
// *ConflictError when it would be violated. The pgx implementation does
// this with a transaction plus range-exclusion constraints; the
// in-memory test store does it under a mutex. Callers treat the
// service-level pre-check as a fast path only.
type Store interface {
	GetDentist(ctx context.Context, id string) (model.Dentist, error)
	GetClient(ctx context.Context, id string) (model.Client, error)
	GetService(ctx context.Context, id string) (model.Service, error)

	// GetAvailability returns ErrNotFound when the dentist has no template
	// row for the weekday.
	GetAvailability(ctx context.Context, dentistID string, weekday int) (model.Availability, error)
	GetAvailabilityByID(ctx context.Context, id string) (model.Availability, error)
	ListAvailability(ctx context.Context, dentistID string) ([]model.Availability, error)
	// CreateAvailability returns *ValidationError for a duplicate
	// (dentist, weekday) row.
	CreateAvailability(ctx context.Context, av model.Availability) (model.Availability, error)
	UpdateAvailability(ctx context.Context, av model.Availability) (model.Availability, error)
	DeleteAvailability(ctx context.Context, id string) error

	GetAppointment(ctx context.Context, id string) (model.Appointment, error)
	// ListDayOccupancy returns the non-cancelled appointments on the
	// given calendar and date, minus excludeID when set.
	ListDayOccupancy(ctx context.Context, key OccupancyKey, date time.Time, excludeID string) ([]model.Appointment, error)
	// InsertAppointment assigns the id and yearly reference.
	InsertAppointment(ctx context.Context, appt model.Appointment) (model.Appointment, error)
	UpdateAppointment(ctx context.Context, appt model.Appointment) (model.Appointment, error)
	ListAppointments(ctx context.Context, f AppointmentFilter) ([]model.Appointment, error)

	DashboardStats(ctx context.Context, today time.Time) (DashboardStats, error)
}
