package model

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Terminal statuses end the appointment's lifecycle; any further visit
// needs a new appointment.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

type CancelledBy string

const (
	CancelledByClient CancelledBy = "client"
	CancelledByAdmin  CancelledBy = "admin"
	CancelledByNone   CancelledBy = ""
)

type Appointment struct {
	ID           string
	Reference    string // human-readable clinic reference, e.g. DC-2026-00042
	ClientID     string
	DentistID    string
	ServiceID    string
	Date         time.Time // civil date, UTC midnight
	Start        Minutes
	End          Minutes
	Status       Status
	Notes        string // client-authored
	AdminNotes   string // staff-only
	CancelledBy  CancelledBy
	CancelReason string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const referencePrefix = "DC"

// Reference formats the clinic-unique appointment number. The sequence
// is zero-padded to five digits and resets every calendar year.
func Reference(year, seq int) string {
	return fmt.Sprintf("%s-%d-%05d", referencePrefix, year, seq)
}

// ValidateInterval checks a proposed [start, end) appointment window.
func ValidateInterval(start, end Minutes) error {
	if !start.InDay() || !end.InDay() {
		return fmt.Errorf("times must fall within the day")
	}
	if end <= start {
		return fmt.Errorf("end time must be after start time")
	}
	return nil
}
