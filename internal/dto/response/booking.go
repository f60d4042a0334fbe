package response

import (
	"time"

	"coach-booking/internal/data/entity"

	"github.com/shopspring/decimal"
)

func money(d decimal.Decimal) string { return d.StringFixed(2) }

type BookingResponse struct {
	ID                   string               `json:"id"`
	LessonID             string               `json:"lesson_id"`
	CoachID              string               `json:"coach_id"`
	StudentID            string               `json:"student_id"`
	ScheduledAt          time.Time            `json:"scheduled_at"`
	DurationMinutes      int                  `json:"duration_minutes"`
	Price                string               `json:"price"`
	Status               entity.BookingStatus `json:"status"`
	PayoutStatus         entity.PayoutStatus  `json:"payout_status"`
	CancelledBy          *entity.UserRole     `json:"cancelled_by,omitempty"`
	CancelledAt          *time.Time           `json:"cancelled_at,omitempty"`
	MessagingLocked      bool                 `json:"messaging_locked"`
	RescheduleCount      int                  `json:"reschedule_count"`
	RescheduleLimit      int                  `json:"reschedule_limit"`
	ExtraPaidReschedules int                  `json:"extra_paid_reschedules"`
	RescheduleDeadline   time.Time            `json:"reschedule_deadline"`
	CourtLocationID      *string              `json:"court_location_id,omitempty"`
	CreatedAt            time.Time            `json:"created_at"`
}

func BookingToResponse(b *entity.Booking) BookingResponse {
	resp := BookingResponse{
		ID:                   b.ID.String(),
		LessonID:             b.LessonID.String(),
		CoachID:              b.CoachID.String(),
		StudentID:            b.PrimaryStudentID.String(),
		ScheduledAt:          b.ScheduledAt,
		DurationMinutes:      b.DurationMinutes,
		Price:                money(b.Price),
		Status:               b.Status,
		PayoutStatus:         b.PayoutStatus,
		CancelledBy:          b.CancelledBy,
		CancelledAt:          b.CancelledAt,
		MessagingLocked:      b.MessagingLocked,
		RescheduleCount:      b.RescheduleCount,
		RescheduleLimit:      b.RescheduleLimit,
		ExtraPaidReschedules: b.ExtraPaidReschedules,
		RescheduleDeadline:   b.RescheduleDeadline,
		CreatedAt:            b.CreatedAt,
	}
	if b.CourtLocationID != nil {
		id := b.CourtLocationID.String()
		resp.CourtLocationID = &id
	}
	return resp
}

// BookingCreatedResponse carries what the client needs to confirm the charge.
type BookingCreatedResponse struct {
	Booking      BookingResponse  `json:"booking"`
	Payment      *PaymentResponse `json:"payment,omitempty"`
	ClientSecret string           `json:"client_secret,omitempty"`
}

type CancellationResponse struct {
	CancelledBy   entity.UserRole `json:"cancelled_by"`
	RefundAmount  string          `json:"refund_amount"`
	PenaltyAmount string          `json:"penalty_amount"`
	PenaltyReason *string         `json:"penalty_reason,omitempty"`
	NoShow        bool            `json:"no_show"`
	Notes         *string         `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

func CancellationToResponse(c *entity.CancellationHistory) *CancellationResponse {
	if c == nil {
		return nil
	}
	return &CancellationResponse{
		CancelledBy:   c.CancelledBy,
		RefundAmount:  money(c.RefundAmount),
		PenaltyAmount: money(c.PenaltyAmount),
		PenaltyReason: c.PenaltyReason,
		NoShow:        c.NoShow,
		Notes:         c.Notes,
		CreatedAt:     c.CreatedAt,
	}
}

type BookingDetailResponse struct {
	BookingResponse
	Payment      *PaymentResponse      `json:"payment,omitempty"`
	Reschedules  []RescheduleResponse  `json:"reschedules"`
	Cancellation *CancellationResponse `json:"cancellation,omitempty"`
	Disputes     []DisputeResponse     `json:"disputes"`
}

type RescheduleResponse struct {
	ID             string                `json:"id"`
	BookingID      string                `json:"booking_id"`
	RequestedBy    entity.UserRole       `json:"requested_by"`
	OldScheduledAt time.Time             `json:"old_scheduled_at"`
	NewScheduledAt time.Time             `json:"new_scheduled_at"`
	ApprovalStatus entity.ApprovalStatus `json:"approval_status"`
	ApprovedAt     *time.Time            `json:"approved_at,omitempty"`
	PaidReschedule bool                  `json:"paid_reschedule"`
	Reason         *string               `json:"reason,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
}

func RescheduleToResponse(h *entity.RescheduleHistory) RescheduleResponse {
	return RescheduleResponse{
		ID:             h.ID.String(),
		BookingID:      h.BookingID.String(),
		RequestedBy:    h.RequestedBy,
		OldScheduledAt: h.OldScheduledAt,
		NewScheduledAt: h.NewScheduledAt,
		ApprovalStatus: h.ApprovalStatus,
		ApprovedAt:     h.ApprovedAt,
		PaidReschedule: h.PaidReschedule,
		Reason:         h.Reason,
		CreatedAt:      h.CreatedAt,
	}
}
