package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medexam/booking-portal/internal/securefield"
)

const uniqueViolation = "23505"

type PgRepository struct {
	pool  *pgxpool.Pool
	codec *securefield.Codec
	now   func() time.Time
}

func NewPgRepository(pool *pgxpool.Pool, codec *securefield.Codec) *PgRepository {
	return &PgRepository{pool: pool, codec: codec, now: time.Now}
}

const bookingColumns = `
	id, organization_id, referrer_id, specialist_id, examinee_id,
	date_time, duration_minutes, location, booking_type,
	external_appointment_id, external_calendar_id, status,
	scheduled_at, completed_at, cancelled_at,
	examinee_name, examinee_email, examinee_phone, notes,
	created_at, updated_at`

// Helpers

func (r *PgRepository) scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	var encName, encEmail, encPhone, encNotes string

	err := row.Scan(
		&b.ID,
		&b.OrganizationID,
		&b.ReferrerID,
		&b.SpecialistID,
		&b.ExamineeID,
		&b.DateTime,
		&b.Duration,
		&b.Location,
		&b.Type,
		&b.ExternalAppointmentID,
		&b.ExternalCalendarID,
		&b.Status,
		&b.ScheduledAt,
		&b.CompletedAt,
		&b.CancelledAt,
		&encName,
		&encEmail,
		&encPhone,
		&encNotes,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	// Decode failure surfaces as an error for this read; the stored ciphertext
	// must never leak through the normal read path.
	if b.ExamineeName, err = r.codec.Decode(encName); err != nil {
		return nil, fmt.Errorf("decode examinee_name for booking %s: %w", b.ID, err)
	}
	if b.ExamineeEmail, err = r.codec.Decode(encEmail); err != nil {
		return nil, fmt.Errorf("decode examinee_email for booking %s: %w", b.ID, err)
	}
	if b.ExamineePhone, err = r.codec.Decode(encPhone); err != nil {
		return nil, fmt.Errorf("decode examinee_phone for booking %s: %w", b.ID, err)
	}
	if b.Notes, err = r.codec.Decode(encNotes); err != nil {
		return nil, fmt.Errorf("decode notes for booking %s: %w", b.ID, err)
	}

	return &b, nil
}

func scanProgressEntry(row pgx.Row) (*ProgressEntry, error) {
	var e ProgressEntry
	var metadata []byte

	err := row.Scan(
		&e.ID,
		&e.BookingID,
		&e.FromStage,
		&e.ToStage,
		&e.ChangedBy,
		&e.Reason,
		&metadata,
		&e.CreatedAt,
		&e.Seq,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoProgressHistory
		}
		return nil, err
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for progress entry %s: %w", e.ID, err)
		}
	}

	return &e, nil
}

func scanSpecialist(row pgx.Row) (*Specialist, error) {
	var s Specialist

	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.ExternalCalendarID,
		&s.Position,
		&s.IsActive,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSpecialistNotFound
		}
		return nil, err
	}

	return &s, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Interface methods

func (r *PgRepository) GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1
	`, id)
	return r.scanBooking(row)
}

func (r *PgRepository) GetBookingByExternalID(ctx context.Context, externalID string) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE external_appointment_id = $1
	`, externalID)
	return r.scanBooking(row)
}

func (r *PgRepository) ListBookings(ctx context.Context, f BookingFilter) ([]Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::uuid IS NULL OR specialist_id = $2)
		  AND ($3::uuid IS NULL OR organization_id = $3)
		ORDER BY date_time NULLS LAST, created_at
	`, f.Status, f.SpecialistID, f.OrganizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Booking
	for rows.Next() {
		b, err := r.scanBooking(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) CreateBooking(ctx context.Context, b *Booking) error {
	return r.insertBooking(ctx, r.pool, b)
}

// CreateBookingWithEntry inserts the booking and its initial audit entry in
// one transaction. Used by the migration importer so a crash between the two
// writes cannot leave a booking with an empty history.
func (r *PgRepository) CreateBookingWithEntry(ctx context.Context, b *Booking, e *ProgressEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create booking: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := r.insertBooking(ctx, tx, b); err != nil {
		return err
	}

	e.BookingID = b.ID
	if err := insertEntryTx(ctx, tx, e); err != nil {
		return fmt.Errorf("append initial entry: %w", err)
	}

	return tx.Commit(ctx)
}

// rowQuerier is satisfied by both *pgxpool.Pool and pgx.Tx.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *PgRepository) insertBooking(ctx context.Context, q rowQuerier, b *Booking) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.Status == "" {
		b.Status = StatusActive
	}

	encName, err := r.codec.Encode(b.ExamineeName)
	if err != nil {
		return fmt.Errorf("encode examinee_name: %w", err)
	}
	encEmail, err := r.codec.Encode(b.ExamineeEmail)
	if err != nil {
		return fmt.Errorf("encode examinee_email: %w", err)
	}
	encPhone, err := r.codec.Encode(b.ExamineePhone)
	if err != nil {
		return fmt.Errorf("encode examinee_phone: %w", err)
	}
	encNotes, err := r.codec.Encode(b.Notes)
	if err != nil {
		return fmt.Errorf("encode notes: %w", err)
	}

	row := q.QueryRow(ctx, `
		INSERT INTO bookings (
			id, organization_id, referrer_id, specialist_id, examinee_id,
			date_time, duration_minutes, location, booking_type,
			external_appointment_id, external_calendar_id, status,
			scheduled_at, completed_at, cancelled_at,
			examinee_name, examinee_email, examinee_phone, notes,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
		        $13, $14, $15, $16, $17, $18, $19, COALESCE($20, now()), now())
		RETURNING created_at, updated_at
	`,
		b.ID, b.OrganizationID, b.ReferrerID, b.SpecialistID, b.ExamineeID,
		b.DateTime, b.Duration, b.Location, b.Type,
		b.ExternalAppointmentID, b.ExternalCalendarID, b.Status,
		b.ScheduledAt, b.CompletedAt, b.CancelledAt,
		encName, encEmail, encPhone, encNotes,
		nullableTime(b.CreatedAt),
	)

	if err := row.Scan(&b.CreatedAt, &b.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateExternalID, b.ExternalAppointmentID)
		}
		return err
	}

	return nil
}

// Transition updates the booking row and appends the audit entry in one
// transaction. The row is locked for the duration so the stage walk check and
// the update cannot interleave with a concurrent writer.
func (r *PgRepository) Transition(ctx context.Context, req TransitionRequest) (*Booking, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1
		FOR UPDATE
	`, req.BookingID)
	b, err := r.scanBooking(row)
	if err != nil {
		return nil, err
	}

	var fromStage *Stage
	latest, err := latestEntryTx(ctx, tx, req.BookingID)
	if err != nil && !errors.Is(err, ErrNoProgressHistory) {
		return nil, err
	}
	if latest != nil {
		fromStage = &latest.ToStage
	}

	req, err = normalizeTransition(b, fromStage, req)
	if err != nil {
		return nil, err
	}

	effective := req.EffectiveAt
	if effective.IsZero() {
		effective = r.now()
	}
	applyTransition(b, req, effective)

	_, err = tx.Exec(ctx, `
		UPDATE bookings
		SET status = $2,
		    scheduled_at = $3,
		    completed_at = $4,
		    cancelled_at = $5,
		    updated_at = now()
		WHERE id = $1
	`, b.ID, b.Status, b.ScheduledAt, b.CompletedAt, b.CancelledAt)
	if err != nil {
		return nil, fmt.Errorf("update booking status: %w", err)
	}

	entry := &ProgressEntry{
		ID:        uuid.New(),
		BookingID: b.ID,
		FromStage: fromStage,
		ToStage:   req.ToStage,
		ChangedBy: req.ChangedBy,
		Reason:    req.Reason,
		Metadata:  req.Metadata,
	}
	if req.Correction || req.Archive {
		if entry.Metadata == nil {
			entry.Metadata = map[string]string{}
		}
		if req.Correction {
			entry.Metadata["correction"] = "true"
		}
		if req.Archive {
			entry.Metadata["archived"] = "true"
		}
	}
	if err := insertEntryTx(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("append progress entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}

	return b, nil
}

func latestEntryTx(ctx context.Context, tx pgx.Tx, bookingID uuid.UUID) (*ProgressEntry, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, booking_id, from_stage, to_stage, changed_by, reason, metadata, created_at, seq
		FROM progress_entries
		WHERE booking_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT 1
	`, bookingID)
	return scanProgressEntry(row)
}

func insertEntryTx(ctx context.Context, tx pgx.Tx, e *ProgressEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	var metadata []byte
	if len(e.Metadata) > 0 {
		var err error
		metadata, err = json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO progress_entries (id, booking_id, from_stage, to_stage, changed_by, reason, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, now()))
		RETURNING created_at, seq
	`, e.ID, e.BookingID, e.FromStage, e.ToStage, e.ChangedBy, e.Reason, metadata, nullableTime(e.CreatedAt))

	return row.Scan(&e.CreatedAt, &e.Seq)
}

func (r *PgRepository) AppendProgress(ctx context.Context, e *ProgressEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertEntryTx(ctx, tx, e); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *PgRepository) HistoryFor(ctx context.Context, bookingID uuid.UUID) ([]ProgressEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, booking_id, from_stage, to_stage, changed_by, reason, metadata, created_at, seq
		FROM progress_entries
		WHERE booking_id = $1
		ORDER BY created_at ASC, seq ASC
	`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ProgressEntry
	for rows.Next() {
		e, err := scanProgressEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) LatestFor(ctx context.Context, bookingID uuid.UUID) (*ProgressEntry, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, booking_id, from_stage, to_stage, changed_by, reason, metadata, created_at, seq
		FROM progress_entries
		WHERE booking_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT 1
	`, bookingID)
	return scanProgressEntry(row)
}

func (r *PgRepository) CreateSpecialist(ctx context.Context, s *Specialist) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO specialists (id, user_id, external_calendar_id, position, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING created_at, updated_at
	`, s.ID, s.UserID, s.ExternalCalendarID, s.Position, s.IsActive)

	return row.Scan(&s.CreatedAt, &s.UpdatedAt)
}

func (r *PgRepository) ListActiveSpecialists(ctx context.Context) ([]Specialist, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, external_calendar_id, position, is_active, created_at, updated_at
		FROM specialists
		WHERE is_active
		ORDER BY position, created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Specialist
	for rows.Next() {
		s, err := scanSpecialist(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) CreateReferrer(ctx context.Context, ref *Referrer) error {
	if ref.ID == uuid.Nil {
		ref.ID = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO referrers (id, organization_id, name, email, created_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()))
		RETURNING created_at
	`, ref.ID, ref.OrganizationID, ref.Name, ref.Email, nullableTime(ref.CreatedAt))

	return row.Scan(&ref.CreatedAt)
}

func (r *PgRepository) CreateExaminee(ctx context.Context, e *Examinee) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	encName, err := r.codec.Encode(e.Name)
	if err != nil {
		return fmt.Errorf("encode examinee name: %w", err)
	}
	encEmail, err := r.codec.Encode(e.Email)
	if err != nil {
		return fmt.Errorf("encode examinee email: %w", err)
	}
	encPhone, err := r.codec.Encode(e.Phone)
	if err != nil {
		return fmt.Errorf("encode examinee phone: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO examinees (id, referrer_id, name, email, phone, created_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()))
		RETURNING created_at
	`, e.ID, e.ReferrerID, encName, encEmail, encPhone, nullableTime(e.CreatedAt))

	return row.Scan(&e.CreatedAt)
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
