package request

import "time"

type CreateBookingRequest struct {
	LessonID        string    `json:"lesson_id" validate:"required,uuid"`
	StudentID       string    `json:"student_id,omitempty" validate:"omitempty,uuid"` // admin booking on behalf of a student
	ScheduledAt     time.Time `json:"scheduled_at" validate:"required"`
	PaymentMethod   string    `json:"payment_method,omitempty" validate:"omitempty,oneof=stripe apple_pay google_pay card"`
	CourtLocationID string    `json:"court_location_id,omitempty" validate:"omitempty,uuid"`
}

type CancelBookingRequest struct {
	Notes *string `json:"notes,omitempty" validate:"omitempty,max=500"`
}

type NoShowRequest struct {
	Notes *string `json:"notes,omitempty" validate:"omitempty,max=500"`
}

type RescheduleRequest struct {
	NewScheduledAt time.Time `json:"new_scheduled_at" validate:"required"`
	Paid           bool      `json:"paid"`
	Reason         *string   `json:"reason,omitempty" validate:"omitempty,max=500"`
}
