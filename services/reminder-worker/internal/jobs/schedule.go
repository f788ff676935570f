package jobs

import (
	"fmt"
	"time"
)

// AppointmentEvent is the payload shape the clinic API publishes for
// appointment events. Times are civil: a date plus minutes since
// midnight, interpreted as UTC.
type AppointmentEvent struct {
	AppointmentID string `json:"appointment_id"`
	Reference     string `json:"reference"`
	ClientID      string `json:"client_id"`
	DentistID     string `json:"dentist_id"`
	ServiceID     string `json:"service_id"`
	Date          string `json:"date"`
	StartMinute   int    `json:"start_minute"`
	EndMinute     int    `json:"end_minute"`
	Status        string `json:"status"`
}

func (ev AppointmentEvent) StartAt() (time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", ev.Date, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid event date %q: %w", ev.Date, err)
	}
	return day.Add(time.Duration(ev.StartMinute) * time.Minute), nil
}

// JobsFor expands a booked appointment into one reminder job per
// offset. Offsets that would already be in the past are skipped; the
// idempotency key binds the job to the appointment's current start
// time, so a reschedule produces fresh keys instead of colliding with
// the old ones.
func JobsFor(ev AppointmentEvent, offsets []time.Duration, now time.Time) ([]Job, error) {
	startAt, err := ev.StartAt()
	if err != nil {
		return nil, err
	}

	var out []Job
	for _, offset := range offsets {
		remindAt := startAt.Add(-offset)
		if remindAt.Before(now) {
			continue
		}
		out = append(out, Job{
			IdempotencyKey: fmt.Sprintf("%s:%s:%d", ev.AppointmentID, startAt.UTC().Format(time.RFC3339), int(offset.Minutes())),
			AppointmentID:  ev.AppointmentID,
			Reference:      ev.Reference,
			ClientID:       ev.ClientID,
			DentistID:      ev.DentistID,
			AppointmentAt:  startAt,
			RemindAt:       remindAt,
		})
	}
	return out, nil
}
