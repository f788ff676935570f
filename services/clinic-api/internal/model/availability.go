package model

import "fmt"

// MinSlotMinutes is the smallest bookable slot granularity.
const MinSlotMinutes = 15

// Availability is one row of a dentist's weekly template: the work
// window and slot granularity for a single weekday. At most one row
// exists per (dentist, weekday).
type Availability struct {
	ID          string
	DentistID   string
	Weekday     int // 0=Sunday..6=Saturday
	WorkStart   Minutes
	WorkEnd     Minutes
	SlotMinutes int
	Active      bool
}

func NewAvailability(dentistID string, weekday int, workStart, workEnd Minutes, slotMinutes int) (Availability, error) {
	if dentistID == "" {
		return Availability{}, fmt.Errorf("dentist id required")
	}
	if weekday < 0 || weekday > 6 {
		return Availability{}, fmt.Errorf("weekday must be 0..6 (got %d)", weekday)
	}
	if !workStart.InDay() || !workEnd.InDay() {
		return Availability{}, fmt.Errorf("work hours must fall within the day")
	}
	if workEnd <= workStart {
		return Availability{}, fmt.Errorf("work end must be after work start")
	}
	if slotMinutes < MinSlotMinutes {
		return Availability{}, fmt.Errorf("slot duration must be at least %d minutes", MinSlotMinutes)
	}
	return Availability{
		DentistID:   dentistID,
		Weekday:     weekday,
		WorkStart:   workStart,
		WorkEnd:     workEnd,
		SlotMinutes: slotMinutes,
		Active:      true,
	}, nil
}

// TimeSlot is a derived read model: one candidate window of the
// template for a concrete date, with occupancy resolved against the
// booking ledger at generation time.
type TimeSlot struct {
	Start     Minutes
	End       Minutes
	Available bool
}
