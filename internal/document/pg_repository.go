package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medexam/booking-portal/internal/securefield"
)

type PgRepository struct {
	pool  *pgxpool.Pool
	codec *securefield.Codec
}

func NewPgRepository(pool *pgxpool.Pool, codec *securefield.Codec) *PgRepository {
	return &PgRepository{pool: pool, codec: codec}
}

func (r *PgRepository) scanDocument(row pgx.Row) (*Document, error) {
	var d Document
	var encKey, encName, encDesc string

	err := row.Scan(&d.ID, &d.BookingID, &encKey, &encName, &encDesc, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}

	if d.StorageKey, err = r.codec.Decode(encKey); err != nil {
		return nil, fmt.Errorf("decode storage_key for document %s: %w", d.ID, err)
	}
	if d.DisplayName, err = r.codec.Decode(encName); err != nil {
		return nil, fmt.Errorf("decode display_name for document %s: %w", d.ID, err)
	}
	if d.Description, err = r.codec.Decode(encDesc); err != nil {
		return nil, fmt.Errorf("decode description for document %s: %w", d.ID, err)
	}

	return &d, nil
}

func (r *PgRepository) Create(ctx context.Context, d *Document) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}

	encKey, err := r.codec.Encode(d.StorageKey)
	if err != nil {
		return fmt.Errorf("encode storage_key: %w", err)
	}
	encName, err := r.codec.Encode(d.DisplayName)
	if err != nil {
		return fmt.Errorf("encode display_name: %w", err)
	}
	encDesc, err := r.codec.Encode(d.Description)
	if err != nil {
		return fmt.Errorf("encode description: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO documents (id, booking_id, storage_key, display_name, description, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING created_at
	`, d.ID, d.BookingID, encKey, encName, encDesc)

	return row.Scan(&d.CreatedAt)
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, booking_id, storage_key, display_name, description, created_at
		FROM documents
		WHERE id = $1
	`, id)
	return r.scanDocument(row)
}

func (r *PgRepository) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]Document, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, booking_id, storage_key, display_name, description, created_at
		FROM documents
		WHERE booking_id = $1
		ORDER BY created_at
	`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Document
	for rows.Next() {
		d, err := r.scanDocument(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
