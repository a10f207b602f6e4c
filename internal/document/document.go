// Package document stores metadata about files attached to bookings. The
// storage medium itself is out of scope here; what matters is that the
// metadata fields are encrypted at rest through the same codec contract as the
// booking's sensitive attributes.
package document

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrDocumentNotFound = errors.New("document not found")

type Document struct {
	ID        uuid.UUID
	BookingID uuid.UUID

	// Encrypted at rest.
	StorageKey  string
	DisplayName string
	Description string

	CreatedAt time.Time
}

type Repository interface {
	Create(ctx context.Context, d *Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*Document, error)
	ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]Document, error)
}
