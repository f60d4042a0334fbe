package response

import (
	"time"

	"coach-booking/internal/data/entity"
)

type PaymentResponse struct {
	ID                   string               `json:"id"`
	BookingID            string               `json:"booking_id"`
	LessonPrice          string               `json:"lesson_price"`
	PlatformFeePercent   string               `json:"platform_fee_percent"`
	PlatformFeeAmount    string               `json:"platform_fee_amount"`
	TotalChargeToStudent string               `json:"total_charge_to_student"`
	CoachPayoutExpected  string               `json:"coach_payout_expected"`
	RefundedAmount       string               `json:"refunded_amount"`
	Currency             string               `json:"currency"`
	PaymentMethod        entity.PaymentMethod `json:"payment_method"`
	PaymentStatus        entity.PaymentStatus `json:"payment_status"`
	EscrowStatus         entity.EscrowStatus  `json:"escrow_status"`
	PaymentIntentID      *string              `json:"payment_intent_id,omitempty"`
	CreatedAt            time.Time            `json:"created_at"`
}

func PaymentToResponse(p *entity.Payment) *PaymentResponse {
	if p == nil {
		return nil
	}
	return &PaymentResponse{
		ID:                   p.ID.String(),
		BookingID:            p.BookingID.String(),
		LessonPrice:          money(p.LessonPrice),
		PlatformFeePercent:   p.PlatformFeePercent.String(),
		PlatformFeeAmount:    money(p.PlatformFeeAmount),
		TotalChargeToStudent: money(p.TotalChargeToStudent),
		CoachPayoutExpected:  money(p.CoachPayoutExpected),
		RefundedAmount:       money(p.RefundedAmount),
		Currency:             p.Currency,
		PaymentMethod:        p.PaymentMethod,
		PaymentStatus:        p.PaymentStatus,
		EscrowStatus:         p.EscrowStatus,
		PaymentIntentID:      p.PaymentIntentID,
		CreatedAt:            p.CreatedAt,
	}
}

type PayoutResponse struct {
	ID               string                    `json:"id"`
	PaymentID        string                    `json:"payment_id"`
	CoachID          string                    `json:"coach_id"`
	Amount           string                    `json:"amount"`
	Currency         string                    `json:"currency"`
	Status           entity.PayoutRecordStatus `json:"status"`
	ExternalPayoutID *string                   `json:"external_payout_id,omitempty"`
	FailureReason    *string                   `json:"failure_reason,omitempty"`
	ProcessedAt      *time.Time                `json:"processed_at,omitempty"`
}

func PayoutToResponse(p *entity.Payout) PayoutResponse {
	return PayoutResponse{
		ID:               p.ID.String(),
		PaymentID:        p.PaymentID.String(),
		CoachID:          p.CoachID.String(),
		Amount:           money(p.Amount),
		Currency:         p.Currency,
		Status:           p.Status,
		ExternalPayoutID: p.ExternalPayoutID,
		FailureReason:    p.FailureReason,
		ProcessedAt:      p.ProcessedAt,
	}
}

// SplitResponse previews the charge breakdown for a lesson price.
type SplitResponse struct {
	LessonPrice string `json:"lesson_price"`
	FeePercent  string `json:"platform_fee_percent"`
	Fee         string `json:"platform_fee_amount"`
	Total       string `json:"total_charge_to_student"`
	CoachPayout string `json:"coach_payout_expected"`
}

func SplitToResponse(s entity.Split) SplitResponse {
	return SplitResponse{
		LessonPrice: money(s.LessonPrice),
		FeePercent:  s.FeePercent.String(),
		Fee:         money(s.Fee),
		Total:       money(s.Total),
		CoachPayout: money(s.CoachPayout),
	}
}
