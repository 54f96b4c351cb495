package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"trustedhands/internal/config"
	"trustedhands/internal/models"
	"trustedhands/internal/utils"
	"trustedhands/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestInitiatePayment(t *testing.T) {
	ctx := context.Background()

	t.Run("creates pending payment from booking", func(t *testing.T) {
		f := newFixture(t)

		payment, err := f.ledger.InitiatePayment(ctx, f.booking.ID, "", f.customerActor())
		require.NoError(t, err)

		assert.Equal(t, models.PaymentStatusPending, payment.Status)
		assert.Equal(t, 1000.0, payment.Amount)
		assert.Equal(t, models.PaymentMethodUPIQR, payment.PaymentMethod)
		assert.Equal(t, "escrow@upi", payment.AdminUPIID)
		assert.False(t, payment.EscrowFrozen)
		assert.Contains(t, f.notifier.kinds(f.customer.ID), models.NotificationTypePaymentInitiated)

		booking, err := f.bookings.GetByID(ctx, f.booking.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingPaymentPending, booking.PaymentStatus)
	})

	t.Run("is idempotent per booking", func(t *testing.T) {
		f := newFixture(t)

		first := f.pendingPayment(t)
		second, err := f.ledger.InitiatePayment(ctx, f.booking.ID, models.PaymentMethodUPIID, f.customerActor())
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("terminal payment conflicts", func(t *testing.T) {
		f := newFixture(t)

		payment := f.pendingPayment(t)
		_, err := f.ledger.FailPayment(ctx, payment.ID, "no funds received")
		require.NoError(t, err)

		_, err = f.ledger.InitiatePayment(ctx, f.booking.ID, "", f.customerActor())
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("unknown booking", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.ledger.InitiatePayment(ctx, primitive.NewObjectID(), "", f.customerActor())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("only the customer may pay", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.ledger.InitiatePayment(ctx, f.booking.ID, "", Actor{ID: f.provider.ID, Role: models.UserRoleTasker})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("zero amount booking", func(t *testing.T) {
		f := newFixture(t)
		booking := f.bookings.Add(&models.Booking{CustomerID: f.customer.ID, ProviderID: f.provider.ID})

		_, err := f.ledger.InitiatePayment(ctx, booking.ID, "", f.customerActor())
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("concurrent initiations share one payment", func(t *testing.T) {
		f := newFixture(t)

		var wg sync.WaitGroup
		ids := make([]primitive.ObjectID, 8)
		for i := range ids {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				payment, err := f.ledger.InitiatePayment(ctx, f.booking.ID, "", f.customerActor())
				if assert.NoError(t, err) {
					ids[i] = payment.ID
				}
			}(i)
		}
		wg.Wait()

		for _, id := range ids {
			assert.Equal(t, ids[0], id)
		}
	})
}

func TestPaymentLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	locked := f.lockedPayment(t)
	assert.Equal(t, models.PaymentStatusLocked, locked.Status)
	assert.True(t, locked.IsVerified)
	assert.NotNil(t, locked.LockedAt)
	assert.NotNil(t, locked.PaidAt)
	require.NotNil(t, locked.VerifiedBy)
	assert.Equal(t, f.admin.ID, *locked.VerifiedBy)
	assert.Contains(t, f.notifier.kinds(f.provider.ID), models.NotificationTypePaymentLocked)

	_, err := f.ledger.VerifyPayment(ctx, &VerifyPaymentInput{PaymentID: locked.ID, UPITransactionID: "again"})
	assert.ErrorIs(t, err, ErrInvalidState)

	released, err := f.ledger.ReleasePayment(ctx, locked.ID, "great job", f.customerActor())
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusReleased, released.Status)
	assert.NotNil(t, released.ReleasedAt)
	assert.Contains(t, f.notifier.kinds(f.provider.ID), models.NotificationTypePaymentReleased)

	booking, err := f.bookings.GetByID(ctx, f.booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingPaymentReleased, booking.PaymentStatus)

	_, err = f.ledger.ReleasePayment(ctx, locked.ID, "twice", f.customerActor())
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.NotErrorIs(t, err, ErrEscrowFrozen)

	current, err := f.ledger.GetPayment(ctx, locked.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusReleased, current.Status)
	assert.Equal(t, released.ReleasedAt, current.ReleasedAt)
	assert.Equal(t, "great job", current.PaymentNotes)

	_, err = f.ledger.RefundPayment(ctx, locked.ID, "too late")
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.NotErrorIs(t, err, ErrEscrowFrozen)
}

func TestVerifyPayment_RequiresProof(t *testing.T) {
	f := newFixture(t)
	payment := f.pendingPayment(t)

	_, err := f.ledger.VerifyPayment(context.Background(), &VerifyPaymentInput{PaymentID: payment.ID})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestReleasePayment_Authorization(t *testing.T) {
	f := newFixture(t)
	payment := f.lockedPayment(t)

	_, err := f.ledger.ReleasePayment(context.Background(), payment.ID, "", Actor{ID: f.provider.ID, Role: models.UserRoleTasker})
	assert.ErrorIs(t, err, ErrForbidden)

	released, err := f.ledger.ReleasePayment(context.Background(), payment.ID, "", f.adminActor())
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusReleased, released.Status)
}

func TestReleasePayment_PendingIsInvalid(t *testing.T) {
	f := newFixture(t)
	payment := f.pendingPayment(t)

	_, err := f.ledger.ReleasePayment(context.Background(), payment.ID, "", f.customerActor())
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.NotErrorIs(t, err, ErrEscrowFrozen)
}

func TestFrozenPaymentCannotMove(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	payment := f.lockedPayment(t)

	frozen, err := f.ledger.FreezeEscrow(ctx, payment.ID, primitive.NewObjectID(), "complaint filed")
	require.NoError(t, err)
	assert.True(t, frozen.EscrowFrozen)
	assert.Equal(t, models.PaymentStatusLocked, frozen.Status)

	again, err := f.ledger.FreezeEscrow(ctx, payment.ID, primitive.NewObjectID(), "second complaint")
	require.NoError(t, err)
	assert.Equal(t, "complaint filed", again.EscrowFrozenReason)
	assert.Len(t, again.DisputeHolds, 2)

	_, err = f.ledger.ReleasePayment(ctx, payment.ID, "", f.customerActor())
	assert.ErrorIs(t, err, ErrEscrowFrozen)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = f.ledger.RefundPayment(ctx, payment.ID, "changed my mind")
	assert.ErrorIs(t, err, ErrEscrowFrozen)

	current, err := f.ledger.GetPayment(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusLocked, current.Status)
	assert.True(t, current.EscrowFrozen)
}

func TestFreezeEscrow_RequiresLocked(t *testing.T) {
	f := newFixture(t)
	payment := f.pendingPayment(t)

	_, err := f.ledger.FreezeEscrow(context.Background(), payment.ID, primitive.NewObjectID(), "complaint")
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = f.ledger.FreezeEscrow(context.Background(), primitive.NewObjectID(), primitive.NewObjectID(), "complaint")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUnfreezeEscrow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	payment := f.lockedPayment(t)

	first, second := primitive.NewObjectID(), primitive.NewObjectID()

	unchanged, err := f.ledger.UnfreezeEscrow(ctx, payment.ID, first)
	require.NoError(t, err)
	assert.False(t, unchanged.EscrowFrozen)
	assert.Nil(t, unchanged.EscrowUnfrozenAt)

	_, err = f.ledger.FreezeEscrow(ctx, payment.ID, first, "complaint")
	require.NoError(t, err)
	_, err = f.ledger.FreezeEscrow(ctx, payment.ID, second, "another complaint")
	require.NoError(t, err)

	stillHeld, err := f.ledger.UnfreezeEscrow(ctx, payment.ID, first)
	require.NoError(t, err)
	assert.True(t, stillHeld.EscrowFrozen)
	assert.Equal(t, []primitive.ObjectID{second}, stillHeld.DisputeHolds)

	again, err := f.ledger.UnfreezeEscrow(ctx, payment.ID, first)
	require.NoError(t, err)
	assert.True(t, again.EscrowFrozen)

	_, err = f.ledger.ReleasePayment(ctx, payment.ID, "", f.customerActor())
	assert.ErrorIs(t, err, ErrEscrowFrozen)

	unfrozen, err := f.ledger.UnfreezeEscrow(ctx, payment.ID, second)
	require.NoError(t, err)
	assert.False(t, unfrozen.EscrowFrozen)
	assert.Empty(t, unfrozen.DisputeHolds)
	assert.NotNil(t, unfrozen.EscrowUnfrozenAt)

	released, err := f.ledger.ReleasePayment(ctx, payment.ID, "", f.customerActor())
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusReleased, released.Status)
}

func TestRefundDisputed(t *testing.T) {
	ctx := context.Background()

	t.Run("refunds a frozen payment and clears the freeze", func(t *testing.T) {
		f := newFixture(t)
		payment := f.lockedPayment(t)
		_, err := f.ledger.FreezeEscrow(ctx, payment.ID, primitive.NewObjectID(), "complaint")
		require.NoError(t, err)

		refunded, err := f.ledger.RefundDisputed(ctx, payment.ID, 400, "partial")
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusRefunded, refunded.Status)
		assert.Equal(t, 400.0, refunded.RefundAmount)
		assert.False(t, refunded.EscrowFrozen)
		assert.Empty(t, refunded.DisputeHolds)
		assert.NotNil(t, refunded.EscrowUnfrozenAt)
		assert.Contains(t, f.notifier.kinds(f.customer.ID), models.NotificationTypePaymentRefunded)
	})

	t.Run("amount must be within the payment", func(t *testing.T) {
		f := newFixture(t)
		payment := f.lockedPayment(t)

		for _, amount := range []float64{0, -5, 1000.01} {
			_, err := f.ledger.RefundDisputed(ctx, payment.ID, amount, "bad")
			assert.ErrorIs(t, err, ErrValidation, "amount %v", amount)
		}
	})

	t.Run("released payment cannot be refunded", func(t *testing.T) {
		f := newFixture(t)
		payment := f.lockedPayment(t)
		_, err := f.ledger.ReleasePayment(ctx, payment.ID, "", f.customerActor())
		require.NoError(t, err)

		_, err = f.ledger.RefundDisputed(ctx, payment.ID, 100, "late")
		assert.ErrorIs(t, err, ErrInvalidState)
	})
}

// Release and freeze race on the same locked payment. Whatever the
// interleaving, a frozen payment must never end up released.
func TestReleaseRacesFreeze(t *testing.T) {
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		f := newFixture(t)
		payment := f.lockedPayment(t)

		var wg sync.WaitGroup
		var releaseErr, freezeErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, releaseErr = f.ledger.ReleasePayment(ctx, payment.ID, "", f.customerActor())
		}()
		go func() {
			defer wg.Done()
			_, freezeErr = f.ledger.FreezeEscrow(ctx, payment.ID, primitive.NewObjectID(), "complaint")
		}()
		wg.Wait()

		final, err := f.ledger.GetPayment(ctx, payment.ID)
		require.NoError(t, err)

		switch {
		case releaseErr == nil:
			assert.Equal(t, models.PaymentStatusReleased, final.Status)
			assert.False(t, final.EscrowFrozen)
			assert.ErrorIs(t, freezeErr, ErrInvalidState)
		case freezeErr == nil:
			assert.Equal(t, models.PaymentStatusLocked, final.Status)
			assert.True(t, final.EscrowFrozen)
			assert.ErrorIs(t, releaseErr, ErrEscrowFrozen)
		default:
			t.Fatalf("both operations failed: release=%v freeze=%v", releaseErr, freezeErr)
		}
	}
}

func TestBookingSyncFailureDoesNotRollBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	ledger := NewPaymentLedger(f.payments, failingBookings{f.bookings}, f.audit, f.settings, f.notifier,
		&config.EscrowConfig{Currency: "INR"}, logger.NewDiscard())

	payment, err := ledger.InitiatePayment(ctx, f.booking.ID, "", f.customerActor())
	require.NoError(t, err)

	locked, err := ledger.VerifyPayment(ctx, &VerifyPaymentInput{PaymentID: payment.ID, UPITransactionID: "UPI1"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusLocked, locked.Status)
}

func TestListPayments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.pendingPayment(t)

	params := utils.NewPaginationParams(1, 10, "created_at", "desc")

	mine, total, err := f.ledger.ListPayments(ctx, f.customerActor(), params)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, mine, 1)

	provider, total, err := f.ledger.ListPayments(ctx, Actor{ID: f.provider.ID, Role: models.UserRoleTasker}, params)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, mine[0].ID, provider[0].ID)

	status, err := f.ledger.GetPaymentStatus(ctx, mine[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, status.Status)
}

func TestServiceErrorMessage(t *testing.T) {
	err := newError(ErrEscrowFrozen, "release payment", "payment is held")
	assert.Equal(t, "payment is held", ErrorMessage(err, "fallback"))
	assert.Equal(t, "fallback", ErrorMessage(errors.New("boom"), "fallback"))
	assert.True(t, errors.Is(err, ErrInvalidState))
}

func TestPaymentHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	payment := f.lockedPayment(t)

	_, err := f.ledger.FreezeEscrow(ctx, payment.ID, primitive.NewObjectID(), "dispute")
	require.NoError(t, err)
	_, err = f.ledger.RefundDisputed(ctx, payment.ID, 400, "partial refund")
	require.NoError(t, err)

	history, total, err := f.ledger.PaymentHistory(ctx, payment.ID, utils.NewPaginationParams(1, 20, "created_at", "asc"))
	require.NoError(t, err)
	require.Equal(t, int64(3), total)

	actions := []models.PaymentAction{history[0].Action, history[1].Action, history[2].Action}
	assert.Equal(t, []models.PaymentAction{models.PaymentActionVerify, models.PaymentActionFreeze, models.PaymentActionRefund}, actions)

	assert.Equal(t, f.admin.ID, *history[0].UserID)
	assert.Equal(t, models.PaymentStatusPending, history[0].OldValues["status"])
	assert.Equal(t, true, history[2].OldValues["escrow_frozen"])
	assert.Equal(t, models.PaymentStatusRefunded, history[2].NewValues["status"])
	assert.Equal(t, 400.0, history[2].NewValues["refund_amount"])

	_, _, err = f.ledger.PaymentHistory(ctx, primitive.NewObjectID(), utils.NewPaginationParams(1, 20, "created_at", "asc"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPaymentSettings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	defaults, err := f.ledger.GetPaymentSettings(ctx)
	require.NoError(t, err)
	assert.False(t, defaults.IsConfigured)
	assert.Equal(t, "escrow@upi", defaults.AdminUPIID)
	assert.Equal(t, "Trusted Hands", defaults.AdminUPIName)
	assert.True(t, defaults.EscrowEnabled)
	assert.Equal(t, 3, defaults.AutoReleaseDays)

	_, err = f.ledger.UpdatePaymentSettings(ctx, &UpdatePaymentSettingsInput{AdminUPIName: "Ops", UpdatedBy: f.admin.ID})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.ledger.UpdatePaymentSettings(ctx, &UpdatePaymentSettingsInput{
		AdminUPIID: "ops@okbank", AdminUPIName: "Ops", AutoReleaseDays: -1, UpdatedBy: f.admin.ID,
	})
	assert.ErrorIs(t, err, ErrValidation)

	saved, err := f.ledger.UpdatePaymentSettings(ctx, &UpdatePaymentSettingsInput{
		AdminUPIID:      "ops@okbank",
		AdminUPIName:    "Trusted Hands Ops",
		AdminQRCodeURL:  "https://cdn.example.com/qr.png",
		EscrowEnabled:   true,
		AutoReleaseDays: 5,
		UpdatedBy:       f.admin.ID,
	})
	require.NoError(t, err)
	assert.True(t, saved.IsConfigured)
	require.NotNil(t, saved.UpdatedBy)
	assert.Equal(t, f.admin.ID, *saved.UpdatedBy)

	updated, err := f.ledger.UpdatePaymentSettings(ctx, &UpdatePaymentSettingsInput{
		AdminUPIID: "ops2@okbank", AdminUPIName: "Trusted Hands Ops", AutoReleaseDays: 2, UpdatedBy: f.admin.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, saved.ID, updated.ID)
	assert.Equal(t, saved.CreatedAt, updated.CreatedAt)
	assert.Empty(t, updated.AdminQRCodeURL)

	current, err := f.ledger.GetPaymentSettings(ctx)
	require.NoError(t, err)
	assert.True(t, current.IsConfigured)
	assert.Equal(t, "ops2@okbank", current.AdminUPIID)

	payment := f.pendingPayment(t)
	assert.Equal(t, "ops2@okbank", payment.AdminUPIID)
	assert.Empty(t, payment.AdminQRCodeURL)
	require.NotEmpty(t, f.notifier.byKind(models.NotificationTypePaymentInitiated))
	assert.Contains(t, f.notifier.byKind(models.NotificationTypePaymentInitiated)[0].Message, "ops2@okbank")
}
