package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"coach-booking/internal/data/entity"
	"coach-booking/internal/data/memstore"
	"coach-booking/internal/dto/request"
	"coach-booking/internal/gateway"
	"coach-booking/internal/notify"
	"coach-booking/internal/usecase"
	"coach-booking/pkg/cache"
	"coach-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
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

type fixture struct {
	now       time.Time
	store     *memstore.Store
	processor *gateway.FakeProcessor
	notifier  *recordingNotifier
	svc       *usecase.Service
	sched     *Scheduler
	student   entity.Actor
	coach     entity.Actor
	lessonID  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		now:       time.Date(2030, 3, 1, 12, 0, 0, 0, time.UTC),
		processor: gateway.NewFakeProcessor("whsec_test"),
		notifier:  &recordingNotifier{},
		student:   entity.Actor{UserID: uuid.New(), Role: entity.RoleStudent},
		coach:     entity.Actor{UserID: uuid.New(), Role: entity.RoleCoach},
		lessonID:  uuid.New(),
	}
	clock := func() time.Time { return f.now }
	f.store = memstore.New().WithClock(clock)
	for _, a := range []entity.Actor{f.student, f.coach, {UserID: uuid.New(), Role: entity.RoleAdmin}} {
		f.store.PutUser(entity.User{Base: entity.Base{ID: a.UserID}, Role: a.Role, IsActive: true})
	}
	f.store.PutCoachProfile(entity.CoachProfile{UserID: f.coach.UserID})

	policy := utils.DefaultPolicy()
	repo := f.store.Repository()
	f.svc = usecase.NewService(usecase.Deps{
		Repo:      repo,
		Processor: f.processor,
		Notifier:  f.notifier,
		Policy:    policy,
		Clock:     clock,
		Log:       zap.NewNop(),
	})
	f.sched = NewScheduler(zap.NewNop())
	Register(f.sched, Deps{
		Repo:     repo,
		Service:  f.svc,
		Notifier: f.notifier,
		Deduper:  cache.NewMemoryDeduper(),
		Policy:   policy,
		Clock:    clock,
		Log:      zap.NewNop(),
	}, utils.SchedulerConfig{
		ReminderInterval:    time.Minute,
		AutoConfirmInterval: 5 * time.Minute,
		PayoutInterval:      10 * time.Minute,
		ReliabilityHour:     2,
	})
	return f
}

func (f *fixture) putBooking(status entity.BookingStatus, scheduledAt time.Time) entity.Booking {
	b := entity.Booking{
		Base:               entity.Base{ID: uuid.New(), CreatedAt: f.now},
		LessonID:           f.lessonID,
		CoachID:            f.coach.UserID,
		PrimaryStudentID:   f.student.UserID,
		ScheduledAt:        scheduledAt,
		DurationMinutes:    60,
		Price:              decimal.RequireFromString("100.00"),
		Status:             status,
		PayoutStatus:       entity.PayoutStatusNone,
		RescheduleLimit:    1,
		RescheduleDeadline: entity.DeadlineFor(scheduledAt),
	}
	if status == entity.BookingStatusCompleted {
		b.PayoutStatus = entity.PayoutStatusPending
	}
	f.store.PutBooking(b)
	return b
}

func (f *fixture) putCapturedPayment(b entity.Booking) entity.Payment {
	split := entity.ComputeSplit(b.Price)
	charge := "ch_" + uuid.NewString()
	p := entity.Payment{
		BaseNoDelete:         entity.BaseNoDelete{ID: uuid.New(), CreatedAt: f.now},
		BookingID:            b.ID,
		CoachID:              b.CoachID,
		StudentID:            b.PrimaryStudentID,
		LessonPrice:          split.LessonPrice,
		PlatformFeeAmount:    split.Fee,
		TotalChargeToStudent: split.Total,
		CoachPayoutExpected:  split.CoachPayout,
		EscrowStatus:         entity.EscrowStatusHeld,
		PaymentStatus:        entity.PaymentStatusCaptured,
		Currency:             entity.DefaultCurrency,
		ChargeID:             &charge,
	}
	f.store.PutPayment(p)
	return p
}

func (f *fixture) openDispute(t *testing.T, bookingID uuid.UUID) {
	t.Helper()
	_, err := f.svc.Dispute.OpenDispute(context.Background(), f.student, &request.OpenDisputeRequest{
		BookingID:   bookingID.String(),
		DisputeType: "quality",
	})
	require.NoError(t, err)
}

func TestAutoConfirmSweep(t *testing.T) {
	t.Run("Given an unverified lesson 30h ago, When the sweep runs, Then it is completed with payout pending", func(t *testing.T) {
		f := newFixture(t)
		b := f.putBooking(entity.BookingStatusAwaitingVerification, f.now.Add(-30*time.Hour))

		report, err := f.sched.RunOnce(context.Background(), AutoConfirmSweepName)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Processed)

		got, _ := f.store.Booking(b.ID)
		assert.Equal(t, entity.BookingStatusCompleted, got.Status)
		assert.Equal(t, entity.PayoutStatusPending, got.PayoutStatus)
	})

	t.Run("Given an open dispute, When the sweep runs, Then the booking is left alone", func(t *testing.T) {
		f := newFixture(t)
		b := f.putBooking(entity.BookingStatusAwaitingVerification, f.now.Add(-30*time.Hour))
		f.openDispute(t, b.ID)

		report, err := f.sched.RunOnce(context.Background(), AutoConfirmSweepName)
		require.NoError(t, err)
		assert.Equal(t, Report{Selected: 1, Skipped: 1}, report)

		got, _ := f.store.Booking(b.ID)
		assert.Equal(t, entity.BookingStatusAwaitingVerification, got.Status)
	})

	t.Run("Given a lesson verified window not yet over, When the sweep runs, Then nothing is selected", func(t *testing.T) {
		f := newFixture(t)
		f.putBooking(entity.BookingStatusAwaitingVerification, f.now.Add(-23*time.Hour))

		report, err := f.sched.RunOnce(context.Background(), AutoConfirmSweepName)
		require.NoError(t, err)
		assert.Zero(t, report.Selected)
	})
}

func TestPayoutSweep(t *testing.T) {
	t.Run("Given a completed booking and no payout account, When the sweep runs twice, Then one pending payout exists and escrow is held", func(t *testing.T) {
		f := newFixture(t)
		b := f.putBooking(entity.BookingStatusCompleted, f.now.Add(-48*time.Hour))
		p := f.putCapturedPayment(b)

		for i := 0; i < 2; i++ {
			_, err := f.sched.RunOnce(context.Background(), PayoutSweepName)
			require.NoError(t, err)
		}

		payouts := f.store.Payouts()
		require.Len(t, payouts, 1)
		assert.Equal(t, entity.PayoutRecordPending, payouts[0].Status)
		assert.True(t, payouts[0].Amount.Equal(decimal.RequireFromString("92.00")))
		got, _ := f.store.Payment(p.ID)
		assert.Equal(t, entity.EscrowStatusHeld, got.EscrowStatus)
		assert.Zero(t, f.processor.TransferCount())
	})

	t.Run("Given a payout account, When the sweep runs, Then the coach is paid and the booking moves to processing", func(t *testing.T) {
		f := newFixture(t)
		account := "acct_coach"
		f.store.PutCoachProfile(entity.CoachProfile{UserID: f.coach.UserID, PayoutAccountID: &account})
		b := f.putBooking(entity.BookingStatusCompleted, f.now.Add(-48*time.Hour))
		p := f.putCapturedPayment(b)

		report, err := f.sched.RunOnce(context.Background(), PayoutSweepName)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Processed)

		got, _ := f.store.Payment(p.ID)
		assert.Equal(t, entity.EscrowStatusReleased, got.EscrowStatus)
		booking, _ := f.store.Booking(b.ID)
		assert.Equal(t, entity.PayoutStatusProcessing, booking.PayoutStatus)

		report, err = f.sched.RunOnce(context.Background(), PayoutSweepName)
		require.NoError(t, err)
		assert.Zero(t, report.Selected)
		assert.Equal(t, 1, f.processor.TransferCount())
	})

	t.Run("Given an open dispute, When the sweep runs, Then no payout is created", func(t *testing.T) {
		f := newFixture(t)
		b := f.putBooking(entity.BookingStatusAwaitingVerification, f.now.Add(-48*time.Hour))
		f.putCapturedPayment(b)
		f.openDispute(t, b.ID)

		report, err := f.sched.RunOnce(context.Background(), PayoutSweepName)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Skipped)
		assert.Empty(t, f.store.Payouts())
	})

	t.Run("Given an awaiting booking under 24h old, When the sweep runs, Then it waits", func(t *testing.T) {
		f := newFixture(t)
		b := f.putBooking(entity.BookingStatusAwaitingVerification, f.now.Add(-3*time.Hour))
		f.putCapturedPayment(b)

		report, err := f.sched.RunOnce(context.Background(), PayoutSweepName)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Skipped)
		assert.Empty(t, f.store.Payouts())
	})

	t.Run("Given a failing transfer, When the sweep runs, Then the failure is counted and other payments still go out", func(t *testing.T) {
		f := newFixture(t)
		account := "acct_coach"
		f.store.PutCoachProfile(entity.CoachProfile{UserID: f.coach.UserID, PayoutAccountID: &account})
		f.putCapturedPayment(f.putBooking(entity.BookingStatusCompleted, f.now.Add(-48*time.Hour)))
		f.processor.TransferErr = assert.AnError

		report, err := f.sched.RunOnce(context.Background(), PayoutSweepName)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Failed)
	})
}

func TestReminderSweep(t *testing.T) {
	t.Run("Given lessons at each threshold, When the sweep runs twice, Then each participant is reminded once per threshold", func(t *testing.T) {
		f := newFixture(t)
		f.putBooking(entity.BookingStatusConfirmed, f.now.Add(48*time.Hour))
		f.putBooking(entity.BookingStatusConfirmed, f.now.Add(24*time.Hour+30*time.Second))
		f.putBooking(entity.BookingStatusAwaitingVerification, f.now.Add(time.Hour))
		f.putBooking(entity.BookingStatusConfirmed, f.now.Add(2*time.Hour))
		f.putBooking(entity.BookingStatusPending, f.now.Add(24*time.Hour))

		report, err := f.sched.RunOnce(context.Background(), ReminderSweepName)
		require.NoError(t, err)
		assert.Equal(t, 3, report.Processed)
		assert.Len(t, f.notifier.notes, 6)

		report, err = f.sched.RunOnce(context.Background(), ReminderSweepName)
		require.NoError(t, err)
		assert.Equal(t, 3, report.Skipped)
		assert.Len(t, f.notifier.notes, 6)

		labels := map[string]int{}
		for _, n := range f.notifier.notes {
			assert.Equal(t, notify.KindLessonReminder, n.Kind)
			labels[n.Threshold]++
		}
		assert.Equal(t, map[string]int{"48h": 2, "24h": 2, "1h": 2}, labels)
	})
}

func TestReminderSweepDrift(t *testing.T) {
	t.Run("Given a tick that lands after a minute boundary, When the sweep runs, Then the skipped minute is still covered", func(t *testing.T) {
		f := newFixture(t)
		f.putBooking(entity.BookingStatusConfirmed, time.Date(2030, 3, 3, 12, 1, 30, 0, time.UTC))

		f.now = time.Date(2030, 3, 1, 12, 0, 59, 900_000_000, time.UTC)
		report, err := f.sched.RunOnce(context.Background(), ReminderSweepName)
		require.NoError(t, err)
		assert.Zero(t, report.Selected)

		f.now = time.Date(2030, 3, 1, 12, 2, 0, 200_000_000, time.UTC)
		report, err = f.sched.RunOnce(context.Background(), ReminderSweepName)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Processed)
		require.Len(t, f.notifier.notes, 2)
		assert.Equal(t, "48h", f.notifier.notes[0].Threshold)
	})
}

func TestReliabilitySweep(t *testing.T) {
	f := newFixture(t)
	f.putBooking(entity.BookingStatusCompleted, f.now.Add(-48*time.Hour))

	report, err := f.sched.RunOnce(context.Background(), ReliabilitySweepName)
	require.NoError(t, err)
	assert.Equal(t, Report{Selected: 2, Processed: 2}, report, "admins are not scored")

	rel, err := f.store.Repository().Reliability.FindByUserID(context.Background(), f.student.UserID)
	require.NoError(t, err)
	require.NotNil(t, rel)
	assert.Equal(t, 100.0, rel.ReliabilityScore)
	assert.Equal(t, 1, rel.TotalBookings)
}
