package storage

import (
	"context"

	"github.com/clinicore/dentbook/services/clinic-api/internal/model"
)

func (s *Store) GetDentist(ctx context.Context, id string) (model.Dentist, error) {
	var d model.Dentist
	err := s.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, active
		FROM dentists
		WHERE id = $1
	`, id).Scan(&d.ID, &d.FirstName, &d.LastName, &d.Active)
	if err != nil {
		return model.Dentist{}, translateErr(err)
	}
	return d, nil
}

func (s *Store) GetClient(ctx context.Context, id string) (model.Client, error) {
	var c model.Client
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, active
		FROM clients
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Active)
	if err != nil {
		return model.Client{}, translateErr(err)
	}
	return c, nil
}

func (s *Store) GetService(ctx context.Context, id string) (model.Service, error) {
	var svc model.Service
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, duration_minutes, active
		FROM services
		WHERE id = $1
	`, id).Scan(&svc.ID, &svc.Name, &svc.DurationMinutes, &svc.Active)
	if err != nil {
		return model.Service{}, translateErr(err)
	}
	return svc, nil
}
