package response

import (
	"time"

	"coach-booking/internal/data/entity"
)

type DisputeResponse struct {
	ID              string               `json:"id"`
	BookingID       string               `json:"booking_id"`
	OpenedBy        entity.UserRole      `json:"opened_by"`
	DisputeType     string               `json:"dispute_type"`
	Description     *string              `json:"description,omitempty"`
	Status          entity.DisputeStatus `json:"status"`
	ResolutionNotes *string              `json:"resolution_notes,omitempty"`
	ResolvedAt      *time.Time           `json:"resolved_at,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
}

func DisputeToResponse(d *entity.Dispute) DisputeResponse {
	return DisputeResponse{
		ID:              d.ID.String(),
		BookingID:       d.BookingID.String(),
		OpenedBy:        d.OpenedBy,
		DisputeType:     d.DisputeType,
		Description:     d.Description,
		Status:          d.Status,
		ResolutionNotes: d.ResolutionNotes,
		ResolvedAt:      d.ResolvedAt,
		CreatedAt:       d.CreatedAt,
	}
}
