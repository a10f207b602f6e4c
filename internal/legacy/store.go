// Package legacy reads the previous system's database. All queries are
// read-only and ordered by creation time ascending so a migration run replays
// deterministically.
package legacy

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Specialist struct {
	ID                 uuid.UUID
	Name               string
	ExternalCalendarID string
	CreatedAt          time.Time
}

type Referrer struct {
	ID        uuid.UUID
	Name      string
	Email     string
	CreatedAt time.Time
}

type Examinee struct {
	ID         uuid.UUID
	ReferrerID uuid.UUID
	Name       string
	Email      string
	Phone      string
	CreatedAt  time.Time
}

type Booking struct {
	ID                    uuid.UUID
	ReferrerID            uuid.UUID
	ExamineeID            uuid.UUID
	SpecialistID          *uuid.UUID
	DateTime              *time.Time
	Duration              int
	Location              string
	Type                  string
	ExternalAppointmentID string
	ExternalCalendarID    string
	Status                string
	Notes                 string
	CreatedAt             time.Time
}

type Progress struct {
	ID         uuid.UUID
	BookingID  uuid.UUID
	FromStatus *string
	ToStatus   string
	ChangedBy  string
	Reason     string
	CreatedAt  time.Time
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Specialists(ctx context.Context) ([]Specialist, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, external_calendar_id, created_at
		FROM specialists
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collect(rows, func(row pgx.Rows) (Specialist, error) {
		var sp Specialist
		err := row.Scan(&sp.ID, &sp.Name, &sp.ExternalCalendarID, &sp.CreatedAt)
		return sp, err
	})
}

func (s *Store) Referrers(ctx context.Context) ([]Referrer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, email, created_at
		FROM referrers
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collect(rows, func(row pgx.Rows) (Referrer, error) {
		var r Referrer
		err := row.Scan(&r.ID, &r.Name, &r.Email, &r.CreatedAt)
		return r, err
	})
}

func (s *Store) Examinees(ctx context.Context) ([]Examinee, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, referrer_id, name, email, phone, created_at
		FROM examinees
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collect(rows, func(row pgx.Rows) (Examinee, error) {
		var e Examinee
		err := row.Scan(&e.ID, &e.ReferrerID, &e.Name, &e.Email, &e.Phone, &e.CreatedAt)
		return e, err
	})
}

func (s *Store) Bookings(ctx context.Context) ([]Booking, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, referrer_id, examinee_id, specialist_id, date_time, duration,
		       location, type, external_appointment_id, external_calendar_id,
		       status, notes, created_at
		FROM bookings
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collect(rows, func(row pgx.Rows) (Booking, error) {
		var b Booking
		err := row.Scan(
			&b.ID, &b.ReferrerID, &b.ExamineeID, &b.SpecialistID, &b.DateTime,
			&b.Duration, &b.Location, &b.Type, &b.ExternalAppointmentID,
			&b.ExternalCalendarID, &b.Status, &b.Notes, &b.CreatedAt,
		)
		return b, err
	})
}

func (s *Store) ProgressEntries(ctx context.Context) ([]Progress, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, booking_id, from_status, to_status, changed_by, reason, created_at
		FROM progress
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collect(rows, func(row pgx.Rows) (Progress, error) {
		var p Progress
		err := row.Scan(&p.ID, &p.BookingID, &p.FromStatus, &p.ToStatus, &p.ChangedBy, &p.Reason, &p.CreatedAt)
		return p, err
	})
}

func collect[T any](rows pgx.Rows, scan func(pgx.Rows) (T, error)) ([]T, error) {
	var result []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
