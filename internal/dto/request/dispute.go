package request

type OpenDisputeRequest struct {
	BookingID   string  `json:"booking_id" validate:"required,uuid"`
	DisputeType string  `json:"dispute_type" validate:"required,max=50"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
}

type ResolveDisputeRequest struct {
	ResolutionNotes string `json:"resolution_notes" validate:"required,max=2000"`
}

type RestoreBookingRequest struct {
	Status string `json:"status" validate:"required,oneof=confirmed awaiting_verification completed cancelled"`
}
