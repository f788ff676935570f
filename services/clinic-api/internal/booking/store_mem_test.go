package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/clinicore/dentbook/services/clinic-api/internal/availability"
	"github.com/clinicore/dentbook/services/clinic-api/internal/model"
)

// memStore implements Store in memory for tests. Like the pgx store, it
// enforces the no-overlap invariant atomically with each write: here a
// single mutex spans the re-check and the mutation.
type memStore struct {
	mu           sync.Mutex
	dentists     map[string]model.Dentist
	clients      map[string]model.Client
	services     map[string]model.Service
	templates    map[string]model.Availability
	appointments map[string]model.Appointment
	nextID       int
	yearSeq      map[int]int
}

func newMemStore() *memStore {
	return &memStore{
		dentists:     map[string]model.Dentist{},
		clients:      map[string]model.Client{},
		services:     map[string]model.Service{},
		templates:    map[string]model.Availability{},
		appointments: map[string]model.Appointment{},
		yearSeq:      map[int]int{},
	}
}

func (m *memStore) addDentist(id string) {
	m.dentists[id] = model.Dentist{ID: id, FirstName: "Test", LastName: "Dentist", Active: true}
}

func (m *memStore) addClient(id string) {
	m.clients[id] = model.Client{ID: id, Name: "Test Client", Active: true}
}

func (m *memStore) addService(id string) {
	m.services[id] = model.Service{ID: id, Name: "Cleaning", DurationMinutes: 30, Active: true}
}

func (m *memStore) genID() string {
	m.nextID++
	return fmt.Sprintf("id-%d", m.nextID)
}

func (m *memStore) GetDentist(_ context.Context, id string) (model.Dentist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.dentists[id]
	if !ok {
		return model.Dentist{}, ErrNotFound
	}
	return d, nil
}

func (m *memStore) GetClient(_ context.Context, id string) (model.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok {
		return model.Client{}, ErrNotFound
	}
	return c, nil
}

func (m *memStore) GetService(_ context.Context, id string) (model.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.services[id]
	if !ok {
		return model.Service{}, ErrNotFound
	}
	return s, nil
}

func (m *memStore) GetAvailability(_ context.Context, dentistID string, weekday int) (model.Availability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, av := range m.templates {
		if av.DentistID == dentistID && av.Weekday == weekday {
			return av, nil
		}
	}
	return model.Availability{}, ErrNotFound
}

func (m *memStore) GetAvailabilityByID(_ context.Context, id string) (model.Availability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	av, ok := m.templates[id]
	if !ok {
		return model.Availability{}, ErrNotFound
	}
	return av, nil
}

func (m *memStore) ListAvailability(_ context.Context, dentistID string) ([]model.Availability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Availability
	for _, av := range m.templates {
		if dentistID == "" || av.DentistID == dentistID {
			out = append(out, av)
		}
	}
	return out, nil
}

func (m *memStore) CreateAvailability(_ context.Context, av model.Availability) (model.Availability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.templates {
		if existing.DentistID == av.DentistID && existing.Weekday == av.Weekday {
			return model.Availability{}, &ValidationError{Msg: "a schedule for this dentist on this day already exists"}
		}
	}
	av.ID = m.genID()
	m.templates[av.ID] = av
	return av, nil
}

func (m *memStore) UpdateAvailability(_ context.Context, av model.Availability) (model.Availability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[av.ID]; !ok {
		return model.Availability{}, ErrNotFound
	}
	m.templates[av.ID] = av
	return av, nil
}

func (m *memStore) DeleteAvailability(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[id]; !ok {
		return ErrNotFound
	}
	delete(m.templates, id)
	return nil
}

func (m *memStore) GetAppointment(_ context.Context, id string) (model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return model.Appointment{}, ErrNotFound
	}
	return a, nil
}

func (m *memStore) ListDayOccupancy(_ context.Context, key OccupancyKey, date time.Time, excludeID string) ([]model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.occupancyLocked(key, date, excludeID), nil
}

func (m *memStore) occupancyLocked(key OccupancyKey, date time.Time, excludeID string) []model.Appointment {
	var out []model.Appointment
	for _, a := range m.appointments {
		if a.Status == model.StatusCancelled {
			continue
		}
		if !a.Date.Equal(date) || a.ID == excludeID {
			continue
		}
		switch key.Subject {
		case SubjectDentist:
			if a.DentistID == key.ID {
				out = append(out, a)
			}
		case SubjectClient:
			if a.ClientID == key.ID {
				out = append(out, a)
			}
		}
	}
	return out
}

func (m *memStore) conflictLocked(appt model.Appointment) error {
	keys := []OccupancyKey{
		{Subject: SubjectDentist, ID: appt.DentistID},
		{Subject: SubjectClient, ID: appt.ClientID},
	}
	for _, key := range keys {
		for _, other := range m.occupancyLocked(key, appt.Date, appt.ID) {
			if availability.Overlaps(appt.Start, appt.End, other.Start, other.End) {
				return &ConflictError{Subject: key.Subject}
			}
		}
	}
	return nil
}

func (m *memStore) InsertAppointment(_ context.Context, appt model.Appointment) (model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	appt.ID = m.genID()
	if err := m.conflictLocked(appt); err != nil {
		return model.Appointment{}, err
	}

	year := appt.Date.Year()
	m.yearSeq[year]++
	appt.Reference = model.Reference(year, m.yearSeq[year])
	appt.CreatedAt = time.Now()
	appt.UpdatedAt = appt.CreatedAt
	m.appointments[appt.ID] = appt
	return appt, nil
}

func (m *memStore) UpdateAppointment(_ context.Context, appt model.Appointment) (model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appointments[appt.ID]; !ok {
		return model.Appointment{}, ErrNotFound
	}
	if appt.Status != model.StatusCancelled {
		if err := m.conflictLocked(appt); err != nil {
			return model.Appointment{}, err
		}
	}
	appt.UpdatedAt = time.Now()
	m.appointments[appt.ID] = appt
	return appt, nil
}

func (m *memStore) ListAppointments(_ context.Context, f AppointmentFilter) ([]model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Appointment
	for _, a := range m.appointments {
		if f.ClientID != "" && a.ClientID != f.ClientID {
			continue
		}
		if f.DentistID != "" && a.DentistID != f.DentistID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.Date != nil && !a.Date.Equal(*f.Date) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *memStore) DashboardStats(_ context.Context, today time.Time) (DashboardStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stats DashboardStats
	for _, a := range m.appointments {
		if a.Date.Equal(today) && a.Status != model.StatusCancelled {
			stats.AppointmentsToday++
			if a.Status == model.StatusCompleted {
				stats.CompletedToday++
			}
		}
		switch a.Status {
		case model.StatusPending:
			stats.PendingAppointments++
		case model.StatusConfirmed:
			stats.ConfirmedAppointments++
		}
	}
	stats.TotalClients = len(m.clients)
	for _, d := range m.dentists {
		if d.Active {
			stats.ActiveDentists++
		}
	}
	return stats, nil
}
