package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"coach-booking/internal/data/entity"
	"coach-booking/internal/data/memstore"
	"coach-booking/internal/gateway"
	"coach-booking/internal/notify"
	"coach-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingNotifier struct {
	mu    sync.Mutex
	notes []notify.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, note notify.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, note)
	return nil
}

func (n *recordingNotifier) count(kind notify.Kind) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, note := range n.notes {
		if note.Kind == kind {
			c++
		}
	}
	return c
}

type testEnv struct {
	now       time.Time
	store     *memstore.Store
	processor *gateway.FakeProcessor
	notifier  *recordingNotifier
	svc       *Service

	student entity.Actor
	coach   entity.Actor
	admin   entity.Actor
	lesson  entity.Lesson
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		now:       time.Date(2030, 3, 1, 12, 0, 0, 0, time.UTC),
		processor: gateway.NewFakeProcessor("whsec_test"),
		notifier:  &recordingNotifier{},
		student:   entity.Actor{UserID: uuid.New(), Role: entity.RoleStudent},
		coach:     entity.Actor{UserID: uuid.New(), Role: entity.RoleCoach},
		admin:     entity.Actor{UserID: uuid.New(), Role: entity.RoleAdmin},
	}
	clock := func() time.Time { return env.now }
	env.store = memstore.New().WithClock(clock)

	for _, a := range []entity.Actor{env.student, env.coach, env.admin} {
		env.store.PutUser(entity.User{
			Base:     entity.Base{ID: a.UserID, CreatedAt: env.now},
			Name:     string(a.Role),
			Email:    a.UserID.String() + "@example.com",
			Role:     a.Role,
			IsActive: true,
		})
	}
	env.store.PutCoachProfile(entity.CoachProfile{
		BaseNoDelete: entity.BaseNoDelete{ID: uuid.New(), CreatedAt: env.now},
		UserID:       env.coach.UserID,
	})
	env.lesson = entity.Lesson{
		Base:            entity.Base{ID: uuid.New(), CreatedAt: env.now},
		CoachID:         env.coach.UserID,
		Title:           "Backhand clinic",
		DurationMinutes: 60,
		Price:           decimal.RequireFromString("100.00"),
		IsActive:        true,
	}
	env.store.PutLesson(env.lesson)

	policy := utils.DefaultPolicy()
	env.svc = NewService(Deps{
		Repo:      env.store.Repository(),
		Processor: env.processor,
		Notifier:  env.notifier,
		Policy:    policy,
		Currency:  entity.DefaultCurrency,
		Clock:     clock,
		Log:       zap.NewNop(),
	})
	return env
}

// putBooking stores a booking of the env lesson in the given state.
func (env *testEnv) putBooking(status entity.BookingStatus, scheduledAt time.Time) entity.Booking {
	b := entity.Booking{
		Base:               entity.Base{ID: uuid.New(), CreatedAt: env.now, UpdatedAt: env.now},
		LessonID:           env.lesson.ID,
		CoachID:            env.coach.UserID,
		PrimaryStudentID:   env.student.UserID,
		ScheduledAt:        scheduledAt,
		DurationMinutes:    env.lesson.DurationMinutes,
		Price:              env.lesson.Price,
		Status:             status,
		PayoutStatus:       entity.PayoutStatusNone,
		RescheduleLimit:    entity.DefaultRescheduleLimit,
		RescheduleDeadline: entity.DeadlineFor(scheduledAt),
	}
	env.store.PutBooking(b)
	return b
}

// putCapturedPayment stores a captured, held payment for b.
func (env *testEnv) putCapturedPayment(b entity.Booking) entity.Payment {
	split := entity.ComputeSplit(b.Price)
	intent := "pi_" + uuid.NewString()
	charge := "ch_" + uuid.NewString()
	p := entity.Payment{
		BaseNoDelete:         entity.BaseNoDelete{ID: uuid.New(), CreatedAt: env.now, UpdatedAt: env.now},
		BookingID:            b.ID,
		CoachID:              b.CoachID,
		StudentID:            b.PrimaryStudentID,
		LessonPrice:          split.LessonPrice,
		PlatformFeePercent:   split.FeePercent,
		PlatformFeeAmount:    split.Fee,
		TotalChargeToStudent: split.Total,
		CoachPayoutExpected:  split.CoachPayout,
		EscrowStatus:         entity.EscrowStatusHeld,
		PaymentStatus:        entity.PaymentStatusCaptured,
		PaymentMethod:        entity.PaymentMethodCard,
		Currency:             entity.DefaultCurrency,
		PaymentIntentID:      &intent,
		ChargeID:             &charge,
		RefundedAmount:       decimal.Zero,
	}
	env.store.PutPayment(p)
	return p
}

func (env *testEnv) booking(t *testing.T, id uuid.UUID) entity.Booking {
	t.Helper()
	b, ok := env.store.Booking(id)
	require.True(t, ok)
	return b
}

func (env *testEnv) payment(t *testing.T, id uuid.UUID) entity.Payment {
	t.Helper()
	p, ok := env.store.Payment(id)
	require.True(t, ok)
	return p
}
