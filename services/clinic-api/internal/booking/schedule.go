package booking

import (
	"context"

	"github.com/clinicore/dentbook/services/clinic-api/internal/model"
)

// Weekly template management. Staff only: the template feeds slot
// generation, and deactivating a weekday only affects future generation,
// never appointments already booked against it.

func (s *Service) CreateAvailability(ctx context.Context, actor Actor, dentistID string, weekday int, workStart, workEnd model.Minutes, slotMinutes int) (model.Availability, error) {
	if !actor.Staff() {
		return model.Availability{}, ErrForbidden
	}
	av, err := model.NewAvailability(dentistID, weekday, workStart, workEnd, slotMinutes)
	if err != nil {
		return model.Availability{}, validationf(err.Error())
	}
	if _, err := s.store.GetDentist(ctx, dentistID); err != nil {
		return model.Availability{}, err
	}
	return s.store.CreateAvailability(ctx, av)
}

// AvailabilityChanges carries a template edit; nil fields stay untouched.
type AvailabilityChanges struct {
	WorkStart   *model.Minutes
	WorkEnd     *model.Minutes
	SlotMinutes *int
	Active      *bool
}

func (s *Service) UpdateAvailability(ctx context.Context, actor Actor, id string, ch AvailabilityChanges) (model.Availability, error) {
	if !actor.Staff() {
		return model.Availability{}, ErrForbidden
	}
	av, err := s.store.GetAvailabilityByID(ctx, id)
	if err != nil {
		return model.Availability{}, err
	}
	if ch.WorkStart != nil {
		av.WorkStart = *ch.WorkStart
	}
	if ch.WorkEnd != nil {
		av.WorkEnd = *ch.WorkEnd
	}
	if ch.SlotMinutes != nil {
		av.SlotMinutes = *ch.SlotMinutes
	}
	if ch.Active != nil {
		av.Active = *ch.Active
	}

	if _, err := model.NewAvailability(av.DentistID, av.Weekday, av.WorkStart, av.WorkEnd, av.SlotMinutes); err != nil {
		return model.Availability{}, validationf(err.Error())
	}
	return s.store.UpdateAvailability(ctx, av)
}

func (s *Service) DeleteAvailability(ctx context.Context, actor Actor, id string) error {
	if !actor.Staff() {
		return ErrForbidden
	}
	if _, err := s.store.GetAvailabilityByID(ctx, id); err != nil {
		return err
	}
	return s.store.DeleteAvailability(ctx, id)
}

func (s *Service) ListAvailability(ctx context.Context, actor Actor, dentistID string) ([]model.Availability, error) {
	if !actor.Staff() {
		return nil, ErrForbidden
	}
	return s.store.ListAvailability(ctx, dentistID)
}
