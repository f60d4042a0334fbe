package memstore

import (
	"context"
	"sort"

	"coach-booking/internal/data/entity"
	"coach-booking/internal/data/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type userRepo struct{ s *Store }

var _ repository.UserRepository = userRepo{}

func (r userRepo) Create(_ context.Context, u *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	r.s.users[u.ID] = *u
	return nil
}

func (r userRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok || !u.Live() {
		return nil, nil
	}
	return &u, nil
}

func (r userRepo) FindActiveByRoles(_ context.Context, roles []entity.UserRole) ([]*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.User
	for _, u := range r.s.users {
		if u.IsActive && u.Live() && contains(roles, u.Role) {
			u := u
			out = append(out, &u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type lessonRepo struct{ s *Store }

var _ repository.LessonRepository = lessonRepo{}

func (r lessonRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Lesson, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.lessons[id]
	if !ok || !l.Live() {
		return nil, nil
	}
	return &l, nil
}

type coachProfileRepo struct{ s *Store }

var _ repository.CoachProfileRepository = coachProfileRepo{}

func (r coachProfileRepo) FindByUserID(_ context.Context, userID uuid.UUID) (*entity.CoachProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp, ok := r.s.coachProfiles[userID]
	if !ok {
		return nil, nil
	}
	return &cp, nil
}

func (r coachProfileRepo) UpdateRating(_ context.Context, userID uuid.UUID, average decimal.Decimal, count int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp, ok := r.s.coachProfiles[userID]
	if !ok {
		return nil
	}
	cp.RatingAverage = average
	cp.RatingCount = count
	cp.UpdatedAt = r.s.now()
	r.s.coachProfiles[userID] = cp
	return nil
}

type reviewRepo struct{ s *Store }

var _ repository.ReviewRepository = reviewRepo{}

func (r reviewRepo) Create(_ context.Context, review *entity.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.reviews {
		if existing.BookingID == review.BookingID && existing.ReviewerID == review.ReviewerID {
			return repository.ErrDuplicate
		}
	}
	r.s.reviews[review.ID] = *review
	return nil
}

func (r reviewRepo) byTarget(targetID uuid.UUID) []*entity.Review {
	var out []*entity.Review
	for _, review := range r.s.reviews {
		if review.TargetID == targetID {
			review := review
			out = append(out, &review)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r reviewRepo) FindByTargetID(_ context.Context, targetID uuid.UUID, limit, offset int) ([]*entity.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return page(r.byTarget(targetID), limit, offset), nil
}

func (r reviewRepo) CountByTargetID(_ context.Context, targetID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.byTarget(targetID))), nil
}

func (r reviewRepo) GetTargetRatingStats(_ context.Context, targetID uuid.UUID) (decimal.Decimal, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	reviews := r.byTarget(targetID)
	if len(reviews) == 0 {
		return decimal.Zero, 0, nil
	}
	sum := 0
	for _, review := range reviews {
		sum += review.Rating
	}
	avg := decimal.NewFromInt(int64(sum)).Div(decimal.NewFromInt(int64(len(reviews)))).Round(2)
	return avg, len(reviews), nil
}
