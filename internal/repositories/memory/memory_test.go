package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"trustedhands/internal/models"
	"trustedhands/internal/repositories/interfaces"
	"trustedhands/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func lockedPayment(t *testing.T, repo *PaymentRepository) *models.Payment {
	t.Helper()
	payment := &models.Payment{
		BookingID:     primitive.NewObjectID(),
		CustomerID:    primitive.NewObjectID(),
		ProviderID:    primitive.NewObjectID(),
		Amount:        500,
		PaymentMethod: models.PaymentMethodUPIQR,
		Status:        models.PaymentStatusLocked,
	}
	require.NoError(t, repo.Create(context.Background(), payment))
	return payment
}

func TestPaymentRepository_CreateDuplicateBooking(t *testing.T) {
	repo := NewPaymentRepository()
	payment := lockedPayment(t, repo)

	err := repo.Create(context.Background(), &models.Payment{BookingID: payment.BookingID})
	assert.ErrorIs(t, err, interfaces.ErrDuplicate)

	found, err := repo.GetByBookingID(context.Background(), payment.BookingID)
	require.NoError(t, err)
	assert.Equal(t, payment.ID, found.ID)

	_, err = repo.GetByID(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestPaymentRepository_Transition(t *testing.T) {
	ctx := context.Background()
	repo := NewPaymentRepository()
	payment := lockedPayment(t, repo)

	release := &models.PaymentTransition{
		Action:          models.PaymentActionRelease,
		From:            []models.PaymentStatus{models.PaymentStatusLocked},
		RequireUnfrozen: true,
		Set:             map[string]interface{}{"status": models.PaymentStatusReleased, "released_at": time.Now()},
	}

	_, err := repo.Transition(ctx, payment.ID, &models.PaymentTransition{
		Action: models.PaymentActionFreeze,
		From:   []models.PaymentStatus{models.PaymentStatusLocked},
		Set:    map[string]interface{}{"escrow_frozen": true, "escrow_frozen_reason": "dispute"},
	})
	require.NoError(t, err)

	_, err = repo.Transition(ctx, payment.ID, release)
	assert.ErrorIs(t, err, interfaces.ErrStaleState)

	unfrozen, err := repo.Transition(ctx, payment.ID, &models.PaymentTransition{
		Action:        models.PaymentActionUnfreeze,
		From:          models.PaymentStatuses,
		RequireFrozen: true,
		Set:           map[string]interface{}{"escrow_frozen": false},
	})
	require.NoError(t, err)
	assert.False(t, unfrozen.EscrowFrozen)
	assert.Equal(t, "dispute", unfrozen.EscrowFrozenReason)

	released, err := repo.Transition(ctx, payment.ID, release)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusReleased, released.Status)
	assert.NotNil(t, released.ReleasedAt)
	assert.Equal(t, payment.Amount, released.Amount)

	_, err = repo.Transition(ctx, payment.ID, release)
	assert.ErrorIs(t, err, interfaces.ErrStaleState)

	_, err = repo.Transition(ctx, primitive.NewObjectID(), release)
	assert.ErrorIs(t, err, interfaces.ErrStaleState)
}

func TestPaymentRepository_DisputeHolds(t *testing.T) {
	ctx := context.Background()
	repo := NewPaymentRepository()
	payment := lockedPayment(t, repo)
	first, second := primitive.NewObjectID(), primitive.NewObjectID()
	locked := []models.PaymentStatus{models.PaymentStatusLocked}

	addHold := func(ticketID primitive.ObjectID, reason string) (*models.Payment, error) {
		return repo.Transition(ctx, payment.ID, &models.PaymentTransition{
			Action:  models.PaymentActionFreeze,
			From:    locked,
			AddHold: &ticketID,
			Set:     map[string]interface{}{"escrow_frozen_reason": reason},
		})
	}
	releaseHold := func(ticketID primitive.ObjectID) (*models.Payment, error) {
		return repo.Transition(ctx, payment.ID, &models.PaymentTransition{
			Action:      models.PaymentActionUnfreeze,
			From:        models.PaymentStatuses,
			ReleaseHold: &ticketID,
			Set:         map[string]interface{}{"escrow_unfrozen_at": time.Now()},
		})
	}

	held, err := addHold(first, "first complaint")
	require.NoError(t, err)
	assert.True(t, held.EscrowFrozen)
	assert.Equal(t, []primitive.ObjectID{first}, held.DisputeHolds)

	held, err = addHold(second, "second complaint")
	require.NoError(t, err)
	assert.Len(t, held.DisputeHolds, 2)
	assert.Equal(t, "first complaint", held.EscrowFrozenReason, "only the first hold sets the reason")

	held, err = addHold(second, "again")
	require.NoError(t, err)
	assert.Len(t, held.DisputeHolds, 2)

	remaining, err := releaseHold(first)
	require.NoError(t, err)
	assert.True(t, remaining.EscrowFrozen)
	assert.Equal(t, []primitive.ObjectID{second}, remaining.DisputeHolds)
	assert.Nil(t, remaining.EscrowUnfrozenAt)

	_, err = releaseHold(first)
	assert.ErrorIs(t, err, interfaces.ErrStaleState)

	cleared, err := releaseHold(second)
	require.NoError(t, err)
	assert.False(t, cleared.EscrowFrozen)
	assert.Empty(t, cleared.DisputeHolds)
	assert.NotNil(t, cleared.EscrowUnfrozenAt)
}

func TestPaymentRepository_ConcurrentHolds(t *testing.T) {
	ctx := context.Background()
	repo := NewPaymentRepository()
	payment := lockedPayment(t, repo)

	tickets := make([]primitive.ObjectID, 10)
	for i := range tickets {
		tickets[i] = primitive.NewObjectID()
	}

	var wg sync.WaitGroup
	for _, id := range tickets {
		wg.Add(1)
		go func(id primitive.ObjectID) {
			defer wg.Done()
			_, err := repo.Transition(ctx, payment.ID, &models.PaymentTransition{
				Action:  models.PaymentActionFreeze,
				From:    []models.PaymentStatus{models.PaymentStatusLocked},
				AddHold: &id,
			})
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	for _, id := range tickets[1:] {
		wg.Add(1)
		go func(id primitive.ObjectID) {
			defer wg.Done()
			_, err := repo.Transition(ctx, payment.ID, &models.PaymentTransition{
				Action:      models.PaymentActionUnfreeze,
				From:        models.PaymentStatuses,
				ReleaseHold: &id,
			})
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	current, err := repo.GetByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.True(t, current.EscrowFrozen)
	assert.Equal(t, []primitive.ObjectID{tickets[0]}, current.DisputeHolds)
}

func TestPaymentRepository_TransitionSingleWinner(t *testing.T) {
	repo := NewPaymentRepository()
	payment := lockedPayment(t, repo)

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Transition(context.Background(), payment.ID, &models.PaymentTransition{
				Action: models.PaymentActionRefund,
				From:   []models.PaymentStatus{models.PaymentStatusLocked},
				Set:    map[string]interface{}{"status": models.PaymentStatusRefunded},
			})
			if err == nil {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
}

func TestPaymentRepository_ListByParty(t *testing.T) {
	repo := NewPaymentRepository()
	first := lockedPayment(t, repo)
	for i := 0; i < 2; i++ {
		require.NoError(t, repo.Create(context.Background(), &models.Payment{
			BookingID:  primitive.NewObjectID(),
			CustomerID: first.CustomerID,
			ProviderID: primitive.NewObjectID(),
			Status:     models.PaymentStatusPending,
		}))
	}

	payments, total, err := repo.GetByCustomerID(context.Background(), first.CustomerID, &utils.PaginationParams{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, payments, 2)

	payments, total, err = repo.GetByProviderID(context.Background(), first.ProviderID, &utils.PaginationParams{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, first.ID, payments[0].ID)
}

func openComplaint(t *testing.T, repo *SupportTicketRepository, number string, paymentID primitive.ObjectID) *models.SupportTicket {
	t.Helper()
	ticket := &models.SupportTicket{
		TicketNumber:      number,
		UserID:            primitive.NewObjectID(),
		Category:          models.TicketCategoryPoorService,
		Priority:          models.TicketPriorityHigh,
		Tier:              models.TicketTierHuman,
		Status:            models.TicketStatusOpen,
		IsComplaint:       true,
		PaymentIDAffected: &paymentID,
		EscrowFrozen:      true,
	}
	require.NoError(t, repo.Create(context.Background(), ticket))
	return ticket
}

func TestSupportTicketRepository_Resolve(t *testing.T) {
	ctx := context.Background()
	repo := NewSupportTicketRepository()
	paymentID := primitive.NewObjectID()
	first := openComplaint(t, repo, "TKT-1", paymentID)
	second := openComplaint(t, repo, "TKT-2", paymentID)

	err := repo.Create(ctx, &models.SupportTicket{TicketNumber: "TKT-1"})
	assert.ErrorIs(t, err, interfaces.ErrDuplicate)

	resolution := &models.TicketResolution{
		Result:     models.ResolutionNoAction,
		Notes:      "no fault found",
		ResolvedBy: primitive.NewObjectID(),
		ResolvedAt: time.Now(),
	}
	resolved, err := repo.Resolve(ctx, second.ID, resolution)
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusResolved, resolved.Status)
	assert.True(t, resolved.AdminReviewCompleted)
	assert.Equal(t, models.ResolutionNoAction, resolved.ResolutionAction)

	_, err = repo.Resolve(ctx, second.ID, resolution)
	assert.ErrorIs(t, err, interfaces.ErrStaleState)

	stored, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusOpen, stored.Status)

	stats, err := repo.GetStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalTickets)
	assert.Equal(t, int64(1), stats.OpenComplaints)
	assert.Equal(t, int64(1), stats.ResolvedTickets)
}

func TestSupportTicketRepository_ListFilter(t *testing.T) {
	ctx := context.Background()
	repo := NewSupportTicketRepository()
	ticket := openComplaint(t, repo, "TKT-1", primitive.NewObjectID())
	openComplaint(t, repo, "TKT-2", primitive.NewObjectID())

	_, err := repo.Update(ctx, ticket.ID, map[string]interface{}{"status": models.TicketStatusInProgress})
	require.NoError(t, err)

	tickets, total, err := repo.List(ctx, &models.TicketFilter{Status: models.TicketStatusInProgress}, &utils.PaginationParams{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, ticket.ID, tickets[0].ID)

	tickets, _, err = repo.List(ctx, &models.TicketFilter{UserID: &ticket.UserID}, &utils.PaginationParams{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, tickets, 1)

	_, err = repo.Update(ctx, primitive.NewObjectID(), map[string]interface{}{"status": models.TicketStatusClosed})
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestPaymentSettingsRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewPaymentSettingsRepository()

	_, err := repo.GetActive(ctx)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	first, err := repo.Upsert(ctx, &models.PaymentSettings{AdminUPIID: "a@upi", AdminUPIName: "A"})
	require.NoError(t, err)
	assert.True(t, first.IsActive)

	second, err := repo.Upsert(ctx, &models.PaymentSettings{AdminUPIID: "b@upi", AdminUPIName: "B"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)

	active, err := repo.GetActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b@upi", active.AdminUPIID)
}

func TestTicketMessageRepository_ListByTicket(t *testing.T) {
	ctx := context.Background()
	repo := NewTicketMessageRepository()
	ticketID := primitive.NewObjectID()

	for _, text := range []string{"one", "two", "three"} {
		require.NoError(t, repo.Create(ctx, &models.TicketMessage{TicketID: ticketID, Message: text}))
	}
	require.NoError(t, repo.Create(ctx, &models.TicketMessage{TicketID: primitive.NewObjectID(), Message: "elsewhere"}))

	messages, err := repo.ListByTicket(ctx, ticketID, 2)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "one", messages[0].Message)
	assert.Equal(t, "two", messages[1].Message)

	none, err := repo.ListByTicket(ctx, primitive.NewObjectID(), 10)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
