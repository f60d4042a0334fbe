package response

import "coach-booking/internal/data/entity"

type ReliabilityResponse struct {
	UserID           string  `json:"user_id"`
	TotalBookings    int     `json:"total_bookings"`
	Reschedules      int     `json:"reschedules"`
	PaidReschedules  int     `json:"paid_reschedules"`
	LateCancels      int     `json:"late_cancels"`
	NoShows          int     `json:"no_shows"`
	CoachCancels     int     `json:"coach_cancels"`
	ReliabilityScore float64 `json:"reliability_score"`
}

func ReliabilityToResponse(r *entity.UserReliability) ReliabilityResponse {
	return ReliabilityResponse{
		UserID:           r.UserID.String(),
		TotalBookings:    r.TotalBookings,
		Reschedules:      r.Reschedules,
		PaidReschedules:  r.PaidReschedules,
		LateCancels:      r.LateCancels,
		NoShows:          r.NoShows,
		CoachCancels:     r.CoachCancels,
		ReliabilityScore: r.ReliabilityScore,
	}
}
