package response

import (
	"time"

	"coach-booking/internal/data/entity"
)

type ReviewResponse struct {
	ID         string    `json:"id"`
	BookingID  string    `json:"booking_id"`
	ReviewerID string    `json:"reviewer_id"`
	CoachID    string    `json:"coach_id"`
	Rating     int       `json:"rating"`
	Comment    *string   `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func ReviewToResponse(review *entity.Review) ReviewResponse {
	return ReviewResponse{
		ID:         review.ID.String(),
		BookingID:  review.BookingID.String(),
		ReviewerID: review.ReviewerID.String(),
		CoachID:    review.TargetID.String(),
		Rating:     review.Rating,
		Comment:    review.Comment,
		CreatedAt:  review.CreatedAt,
	}
}
