package usecase

import (
	"context"
	"testing"
	"time"

	"coach-booking/internal/apperr"
	"coach-booking/internal/data/entity"
	"coach-booking/internal/dto/request"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisputeLifecycle(t *testing.T) {
	t.Run("Given an active dispute, When another is opened, Then Conflict", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := context.Background()
		b := env.putBooking(entity.BookingStatusAwaitingVerification, env.now.Add(-2*time.Hour))

		d, err := env.svc.Dispute.OpenDispute(ctx, env.student, &request.OpenDisputeRequest{BookingID: b.ID.String(), DisputeType: "no_show"})
		require.NoError(t, err)
		assert.Equal(t, entity.RoleStudent, d.OpenedBy)
		assert.Equal(t, entity.DisputeStatusOpen, d.Status)

		_, err = env.svc.Dispute.OpenDispute(ctx, env.coach, &request.OpenDisputeRequest{BookingID: b.ID.String(), DisputeType: "quality"})
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("Given an open dispute, When an admin reviews and resolves it, Then it is stamped and the booking keeps its status", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := context.Background()
		b := env.putBooking(entity.BookingStatusAwaitingVerification, env.now.Add(-2*time.Hour))
		d, err := env.svc.Dispute.OpenDispute(ctx, env.student, &request.OpenDisputeRequest{BookingID: b.ID.String(), DisputeType: "quality"})
		require.NoError(t, err)

		_, err = env.svc.Dispute.Resolve(ctx, env.coach, d.ID, &request.ResolveDisputeRequest{ResolutionNotes: "fine"})
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)

		reviewing, err := env.svc.Dispute.StartReview(ctx, env.admin, d.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.DisputeStatusUnderReview, reviewing.Status)

		resolved, err := env.svc.Dispute.Resolve(ctx, env.admin, d.ID, &request.ResolveDisputeRequest{ResolutionNotes: "lesson delivered"})
		require.NoError(t, err)
		assert.Equal(t, entity.DisputeStatusResolved, resolved.Status)
		require.NotNil(t, resolved.ResolvedAt)
		assert.Equal(t, env.admin.UserID, *resolved.AdminID)
		assert.Equal(t, entity.BookingStatusAwaitingVerification, env.booking(t, b.ID).Status)

		_, err = env.svc.Dispute.Reject(ctx, env.admin, d.ID, &request.ResolveDisputeRequest{ResolutionNotes: "again"})
		assert.ErrorIs(t, err, apperr.ErrInvalidState)

		_, err = env.svc.Dispute.OpenDispute(ctx, env.coach, &request.OpenDisputeRequest{BookingID: b.ID.String(), DisputeType: "payment"})
		assert.NoError(t, err, "a new dispute is allowed once the previous one is closed")
	})

	t.Run("Given an active dispute, When escrow is released, Then InvalidState", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := context.Background()
		b := env.putBooking(entity.BookingStatusCompleted, env.now.Add(-48*time.Hour))
		p := env.putCapturedPayment(b)
		account := "acct_coach"
		_, err := env.svc.Dispute.OpenDispute(ctx, env.admin, &request.OpenDisputeRequest{BookingID: b.ID.String(), DisputeType: "fraud"})
		assert.ErrorIs(t, err, apperr.ErrInvalidState, "completed bookings are terminal")

		b2 := env.putBooking(entity.BookingStatusAwaitingVerification, env.now.Add(-48*time.Hour))
		p2 := env.putCapturedPayment(b2)
		_, err = env.svc.Dispute.OpenDispute(ctx, env.student, &request.OpenDisputeRequest{BookingID: b2.ID.String(), DisputeType: "quality"})
		require.NoError(t, err)

		_, err = env.svc.Escrow.ReleaseEscrow(ctx, p2.ID, &account)
		assert.ErrorIs(t, err, apperr.ErrInvalidState)
		_, err = env.svc.Escrow.ReleaseEscrow(ctx, p.ID, &account)
		assert.NoError(t, err)
	})
}

func TestRestoreBooking(t *testing.T) {
	t.Run("Given a charged-back booking, When the dispute is resolved and the admin restores it, Then escrow is held again", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := context.Background()
		b := env.putBooking(entity.BookingStatusConfirmed, env.now.Add(24*time.Hour))
		p := env.putCapturedPayment(b)

		d, err := env.svc.Dispute.OpenChargeback(ctx, Chargeback{ProcessorDisputeID: "dp_1", ChargeID: *p.ChargeID, Reason: "fraudulent"})
		require.NoError(t, err)
		assert.Equal(t, entity.RoleSystem, d.OpenedBy)
		assert.Equal(t, entity.BookingStatusDisputed, env.booking(t, b.ID).Status)
		assert.Equal(t, entity.EscrowStatusDisputed, env.payment(t, p.ID).EscrowStatus)

		restore := &request.RestoreBookingRequest{Status: string(entity.BookingStatusConfirmed)}
		_, err = env.svc.Dispute.RestoreBooking(ctx, env.admin, b.ID, restore)
		assert.ErrorIs(t, err, apperr.ErrInvalidState, "dispute still open")

		_, err = env.svc.Dispute.Resolve(ctx, env.admin, d.ID, &request.ResolveDisputeRequest{ResolutionNotes: "won"})
		require.NoError(t, err)

		got, err := env.svc.Dispute.RestoreBooking(ctx, env.admin, b.ID, restore)
		require.NoError(t, err)
		assert.Equal(t, entity.BookingStatusConfirmed, got.Status)
		assert.Equal(t, entity.EscrowStatusHeld, env.payment(t, p.ID).EscrowStatus)
	})
}
