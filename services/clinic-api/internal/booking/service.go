package booking

import (
	"context"
	"errors"
	"time"

	"github.com/clinicore/dentbook/services/clinic-api/internal/availability"
	"github.com/clinicore/dentbook/services/clinic-api/internal/model"
)

// Service is the scheduling core: it turns weekly templates into
// bookable slots and owns the appointment lifecycle, including the
// no-double-booking invariant for dentists and clients.
type Service struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Service {
	return NewWithClock(store, time.Now)
}

// NewWithClock injects the clock used for "today" in edit guards and
// dashboard aggregates.
func NewWithClock(store Store, now func() time.Time) *Service {
	return &Service{store: store, now: now}
}

func (s *Service) today() time.Time {
	return model.Midnight(s.now())
}

// ListAvailableSlots projects the dentist's template for the date's
// weekday against the current booking ledger. A missing or inactive
// template row means "no slots that day", not an error. The available
// flags are a read-time snapshot; the write path re-checks.
func (s *Service) ListAvailableSlots(ctx context.Context, dentistID string, date time.Time) ([]model.TimeSlot, error) {
	if _, err := s.store.GetDentist(ctx, dentistID); err != nil {
		return nil, err
	}

	av, err := s.store.GetAvailability(ctx, dentistID, model.Weekday(date))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !av.Active {
		return nil, nil
	}

	candidates := availability.Slots(av.WorkStart, av.WorkEnd, av.SlotMinutes)
	if len(candidates) == 0 {
		return nil, nil
	}

	booked, err := s.store.ListDayOccupancy(ctx, OccupancyKey{Subject: SubjectDentist, ID: dentistID}, model.Midnight(date), "")
	if err != nil {
		return nil, err
	}
	busy := make([]availability.Interval, 0, len(booked))
	for _, a := range booked {
		busy = append(busy, availability.Interval{Start: a.Start, End: a.End})
	}
	return availability.Mark(candidates, busy), nil
}

type CreateRequest struct {
	ClientID  string
	DentistID string
	ServiceID string
	Date      time.Time
	Start     model.Minutes
	End       model.Minutes
	Notes     string
}

// CreateAppointment books a new appointment in state pending. The
// conflict check here is the fast path; the store re-verifies the
// no-overlap invariant atomically with the insert.
func (s *Service) CreateAppointment(ctx context.Context, actor Actor, req CreateRequest) (model.Appointment, error) {
	if !actor.Staff() {
		// Clients book for themselves only.
		if req.ClientID == "" {
			req.ClientID = actor.ClientID
		}
		if req.ClientID != actor.ClientID {
			return model.Appointment{}, ErrForbidden
		}
	}
	if req.ClientID == "" {
		return model.Appointment{}, validationf("client id required")
	}

	if err := model.ValidateInterval(req.Start, req.End); err != nil {
		return model.Appointment{}, validationf(err.Error())
	}
	date := model.Midnight(req.Date)
	if date.Before(s.today()) {
		return model.Appointment{}, validationf("appointment date must not be in the past")
	}

	if _, err := s.store.GetClient(ctx, req.ClientID); err != nil {
		return model.Appointment{}, err
	}
	if _, err := s.store.GetDentist(ctx, req.DentistID); err != nil {
		return model.Appointment{}, err
	}
	if _, err := s.store.GetService(ctx, req.ServiceID); err != nil {
		return model.Appointment{}, err
	}

	if err := s.checkConflicts(ctx, req.DentistID, req.ClientID, date, req.Start, req.End, ""); err != nil {
		return model.Appointment{}, err
	}

	return s.store.InsertAppointment(ctx, model.Appointment{
		ClientID:  req.ClientID,
		DentistID: req.DentistID,
		ServiceID: req.ServiceID,
		Date:      date,
		Start:     req.Start,
		End:       req.End,
		Status:    model.StatusPending,
		Notes:     req.Notes,
	})
}

// Changes carries an appointment edit; nil fields stay untouched.
type Changes struct {
	DentistID  *string
	ServiceID  *string
	Date       *time.Time
	Start      *model.Minutes
	End        *model.Minutes
	Notes      *string
	AdminNotes *string
}

// UpdateAppointment edits date/time/dentist/service/notes. Clients may
// edit only their own pending or confirmed appointments dated strictly
// after today; staff edit anything. Any change to the date, times or
// dentist re-runs the full conflict check, excluding the appointment's
// own id.
func (s *Service) UpdateAppointment(ctx context.Context, actor Actor, id string, ch Changes) (model.Appointment, error) {
	appt, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return model.Appointment{}, err
	}

	if !actor.Staff() {
		if appt.ClientID != actor.ClientID {
			return model.Appointment{}, ErrForbidden
		}
		if ch.AdminNotes != nil {
			return model.Appointment{}, ErrForbidden
		}
		if appt.Status != model.StatusPending && appt.Status != model.StatusConfirmed {
			return model.Appointment{}, ErrInvalidState
		}
		if !appt.Date.After(s.today()) {
			// Same-day and past appointments are frozen against client edits.
			return model.Appointment{}, ErrInvalidState
		}
	}

	updated := appt
	if ch.DentistID != nil {
		if _, err := s.store.GetDentist(ctx, *ch.DentistID); err != nil {
			return model.Appointment{}, err
		}
		updated.DentistID = *ch.DentistID
	}
	if ch.ServiceID != nil {
		if _, err := s.store.GetService(ctx, *ch.ServiceID); err != nil {
			return model.Appointment{}, err
		}
		updated.ServiceID = *ch.ServiceID
	}
	if ch.Date != nil {
		updated.Date = model.Midnight(*ch.Date)
	}
	if ch.Start != nil {
		updated.Start = *ch.Start
	}
	if ch.End != nil {
		updated.End = *ch.End
	}
	if ch.Notes != nil {
		updated.Notes = *ch.Notes
	}
	if ch.AdminNotes != nil {
		updated.AdminNotes = *ch.AdminNotes
	}

	if err := model.ValidateInterval(updated.Start, updated.End); err != nil {
		return model.Appointment{}, validationf(err.Error())
	}
	if !actor.Staff() && updated.Date.Before(s.today()) {
		return model.Appointment{}, validationf("appointment date must not be in the past")
	}

	rescheduled := !updated.Date.Equal(appt.Date) ||
		updated.Start != appt.Start ||
		updated.End != appt.End ||
		updated.DentistID != appt.DentistID
	if rescheduled {
		if err := s.checkConflicts(ctx, updated.DentistID, updated.ClientID, updated.Date, updated.Start, updated.End, appt.ID); err != nil {
			return model.Appointment{}, err
		}
	}

	return s.store.UpdateAppointment(ctx, updated)
}

// SetStatus drives the appointment state machine. Staff may set any
// valid status unconditionally: they correct real-world state, the
// server does not second-guess them. Clients may only move their own
// pending or confirmed appointments to cancelled.
func (s *Service) SetStatus(ctx context.Context, actor Actor, id string, status model.Status, adminNotes, cancelReason string) (model.Appointment, error) {
	if !status.Valid() {
		return model.Appointment{}, validationf("unknown status")
	}

	appt, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return model.Appointment{}, err
	}

	if !actor.Staff() {
		if appt.ClientID != actor.ClientID {
			return model.Appointment{}, ErrForbidden
		}
		if status != model.StatusCancelled {
			return model.Appointment{}, ErrForbidden
		}
		if appt.Status != model.StatusPending && appt.Status != model.StatusConfirmed {
			return model.Appointment{}, ErrInvalidState
		}
	}

	updated := appt
	updated.Status = status
	if status == model.StatusCancelled {
		if appt.Status != model.StatusCancelled {
			updated.CancelledBy = model.CancelledByAdmin
			if !actor.Staff() {
				updated.CancelledBy = model.CancelledByClient
			}
			updated.CancelReason = cancelReason
		}
		// Re-cancelling keeps the original attribution and reason.
	} else {
		// cancelled_by and cancel_reason are meaningless outside cancelled.
		updated.CancelledBy = model.CancelledByNone
		updated.CancelReason = ""
	}
	if actor.Staff() && adminNotes != "" {
		updated.AdminNotes = adminNotes
	}

	// Reactivating a cancelled appointment re-enters the ledger, so its
	// slot must be free again.
	if appt.Status == model.StatusCancelled && status != model.StatusCancelled {
		if err := s.checkConflicts(ctx, updated.DentistID, updated.ClientID, updated.Date, updated.Start, updated.End, appt.ID); err != nil {
			return model.Appointment{}, err
		}
	}

	return s.store.UpdateAppointment(ctx, updated)
}

// CancelAppointment is the dedicated cancel path. Cancelling an
// already-cancelled appointment is rejected rather than silently
// repeated.
func (s *Service) CancelAppointment(ctx context.Context, actor Actor, id string, reason string) (model.Appointment, error) {
	appt, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return model.Appointment{}, err
	}

	if appt.Status == model.StatusCancelled {
		return model.Appointment{}, ErrInvalidState
	}
	if !actor.Staff() {
		if appt.ClientID != actor.ClientID {
			return model.Appointment{}, ErrForbidden
		}
		if appt.Status != model.StatusPending && appt.Status != model.StatusConfirmed {
			return model.Appointment{}, ErrInvalidState
		}
	}

	updated := appt
	updated.Status = model.StatusCancelled
	updated.CancelledBy = model.CancelledByAdmin
	if !actor.Staff() {
		updated.CancelledBy = model.CancelledByClient
	}
	updated.CancelReason = reason
	return s.store.UpdateAppointment(ctx, updated)
}

func (s *Service) GetAppointment(ctx context.Context, actor Actor, id string) (model.Appointment, error) {
	appt, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return model.Appointment{}, err
	}
	if !actor.Staff() && appt.ClientID != actor.ClientID {
		return model.Appointment{}, ErrForbidden
	}
	return appt, nil
}

func (s *Service) ListAppointments(ctx context.Context, actor Actor, f AppointmentFilter) ([]model.Appointment, error) {
	if !actor.Staff() {
		f.ClientID = actor.ClientID
	}
	return s.store.ListAppointments(ctx, f)
}

func (s *Service) Dashboard(ctx context.Context, actor Actor) (DashboardStats, error) {
	if !actor.Staff() {
		return DashboardStats{}, ErrForbidden
	}
	return s.store.DashboardStats(ctx, s.today())
}

// checkConflicts reads both calendars and rejects any overlap with a
// non-cancelled appointment. The dentist's calendar is checked first so
// a double collision reports the dentist subject.
func (s *Service) checkConflicts(ctx context.Context, dentistID, clientID string, date time.Time, start, end model.Minutes, excludeID string) error {
	keys := []OccupancyKey{
		{Subject: SubjectDentist, ID: dentistID},
		{Subject: SubjectClient, ID: clientID},
	}
	for _, key := range keys {
		appts, err := s.store.ListDayOccupancy(ctx, key, date, excludeID)
		if err != nil {
			return err
		}
		for _, a := range appts {
			if availability.Overlaps(start, end, a.Start, a.End) {
				return &ConflictError{Subject: key.Subject}
			}
		}
	}
	return nil
}
