package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/medexam/booking-portal/internal/booking"
	"github.com/medexam/booking-portal/internal/document"
)

type UpdateProgressRequest struct {
	ToStatus   string `json:"to_status"`
	Reason     string `json:"reason"`
	Correction bool   `json:"correction,omitempty"`
}

type ArchiveRequest struct {
	Reason string `json:"reason,omitempty"`
}

type BookingResponse struct {
	ID                    uuid.UUID  `json:"id"`
	OrganizationID        uuid.UUID  `json:"organization_id"`
	ReferrerID            uuid.UUID  `json:"referrer_id"`
	SpecialistID          *uuid.UUID `json:"specialist_id,omitempty"`
	ExamineeID            uuid.UUID  `json:"examinee_id"`
	DateTime              *time.Time `json:"date_time,omitempty"`
	Duration              int        `json:"duration"`
	Location              string     `json:"location,omitempty"`
	Type                  string     `json:"type"`
	ExternalAppointmentID string     `json:"external_appointment_id,omitempty"`
	ExternalCalendarID    string     `json:"external_calendar_id,omitempty"`
	Status                string     `json:"status"`
	ScheduledAt           *time.Time `json:"scheduled_at,omitempty"`
	CompletedAt           *time.Time `json:"completed_at,omitempty"`
	CancelledAt           *time.Time `json:"cancelled_at,omitempty"`
	ExamineeName          string     `json:"examinee_name,omitempty"`
	ExamineeEmail         string     `json:"examinee_email,omitempty"`
	ExamineePhone         string     `json:"examinee_phone,omitempty"`
	Notes                 string     `json:"notes,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

type ProgressEntryResponse struct {
	ID        uuid.UUID         `json:"id"`
	BookingID uuid.UUID         `json:"booking_id"`
	FromStage *string           `json:"from_stage,omitempty"`
	ToStage   string            `json:"to_stage"`
	ChangedBy string            `json:"changed_by"`
	Reason    string            `json:"reason,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

type DocumentResponse struct {
	ID          uuid.UUID `json:"id"`
	BookingID   uuid.UUID `json:"booking_id"`
	DisplayName string    `json:"display_name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:                    b.ID,
		OrganizationID:        b.OrganizationID,
		ReferrerID:            b.ReferrerID,
		SpecialistID:          b.SpecialistID,
		ExamineeID:            b.ExamineeID,
		DateTime:              b.DateTime,
		Duration:              b.Duration,
		Location:              b.Location,
		Type:                  string(b.Type),
		ExternalAppointmentID: b.ExternalAppointmentID,
		ExternalCalendarID:    b.ExternalCalendarID,
		Status:                string(b.Status),
		ScheduledAt:           b.ScheduledAt,
		CompletedAt:           b.CompletedAt,
		CancelledAt:           b.CancelledAt,
		ExamineeName:          b.ExamineeName,
		ExamineeEmail:         b.ExamineeEmail,
		ExamineePhone:         b.ExamineePhone,
		Notes:                 b.Notes,
		CreatedAt:             b.CreatedAt,
		UpdatedAt:             b.UpdatedAt,
	}
}

func toProgressEntryResponse(e booking.ProgressEntry) ProgressEntryResponse {
	var from *string
	if e.FromStage != nil {
		s := string(*e.FromStage)
		from = &s
	}
	return ProgressEntryResponse{
		ID:        e.ID,
		BookingID: e.BookingID,
		FromStage: from,
		ToStage:   string(e.ToStage),
		ChangedBy: e.ChangedBy,
		Reason:    e.Reason,
		Metadata:  e.Metadata,
		CreatedAt: e.CreatedAt,
	}
}

// toDocumentResponse intentionally omits the storage key: it is an internal
// handle, not part of the read contract.
func toDocumentResponse(d document.Document) DocumentResponse {
	return DocumentResponse{
		ID:          d.ID,
		BookingID:   d.BookingID,
		DisplayName: d.DisplayName,
		Description: d.Description,
		CreatedAt:   d.CreatedAt,
	}
}
