package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"trustedhands/internal/config"
	"trustedhands/internal/models"
	"trustedhands/internal/repositories/interfaces"
	"trustedhands/internal/repositories/memory"
	"trustedhands/pkg/logger"
	"trustedhands/pkg/ml"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []*models.Notification
}

func (n *recordingNotifier) Notify(ctx context.Context, notification *models.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification)
}

func (n *recordingNotifier) byKind(kind models.NotificationType) []*models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	var matched []*models.Notification
	for _, sent := range n.sent {
		if sent.Type == kind {
			matched = append(matched, sent)
		}
	}
	return matched
}

func (n *recordingNotifier) kinds(userID primitive.ObjectID) []models.NotificationType {
	n.mu.Lock()
	defer n.mu.Unlock()

	var kinds []models.NotificationType
	for _, sent := range n.sent {
		if sent.UserID == userID {
			kinds = append(kinds, sent.Type)
		}
	}
	return kinds
}

// failingBookings accepts reads but fails every payment status sync.
type failingBookings struct {
	*memory.BookingRepository
}

func (b failingBookings) UpdatePaymentStatus(ctx context.Context, id primitive.ObjectID, status models.BookingPaymentStatus, paymentID primitive.ObjectID) error {
	return context.DeadlineExceeded
}

// failingPenalties reads users but cannot record penalties.
type failingPenalties struct {
	*memory.UserRepository
}

func (u failingPenalties) ApplyPenalty(ctx context.Context, userID primitive.ObjectID, penalty *models.Penalty) error {
	return context.DeadlineExceeded
}

// hookedTickets runs afterResolve once, right after the first ticket is resolved.
type hookedTickets struct {
	*memory.SupportTicketRepository
	once         sync.Once
	afterResolve func()
}

func (r *hookedTickets) Resolve(ctx context.Context, id primitive.ObjectID, resolution *models.TicketResolution) (*models.SupportTicket, error) {
	ticket, err := r.SupportTicketRepository.Resolve(ctx, id, resolution)
	if err == nil {
		r.once.Do(r.afterResolve)
	}
	return ticket, err
}

// flakyLedger fails the first unfreeze it sees.
type flakyLedger struct {
	EscrowLedger
	failed atomic.Bool
}

func (l *flakyLedger) UnfreezeEscrow(ctx context.Context, paymentID, ticketID primitive.ObjectID) (*models.Payment, error) {
	if l.failed.CompareAndSwap(false, true) {
		return nil, context.DeadlineExceeded
	}
	return l.EscrowLedger.UnfreezeEscrow(ctx, paymentID, ticketID)
}

type fixture struct {
	payments    *memory.PaymentRepository
	tickets     *memory.SupportTicketRepository
	bookings    *memory.BookingRepository
	audit       *memory.AuditLogRepository
	settings    *memory.PaymentSettingsRepository
	messages    *memory.TicketMessageRepository
	users       *memory.UserRepository
	notifier    *recordingNotifier
	ledger      *PaymentLedger
	coordinator *EscrowCoordinator
	support     *SupportService

	customer *models.User
	provider *models.User
	admin    *models.User
	booking  *models.Booking
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		payments: memory.NewPaymentRepository(),
		tickets:  memory.NewSupportTicketRepository(),
		bookings: memory.NewBookingRepository(),
		audit:    memory.NewAuditLogRepository(),
		settings: memory.NewPaymentSettingsRepository(),
		messages: memory.NewTicketMessageRepository(),
		users:    memory.NewUserRepository(),
		notifier: &recordingNotifier{},
	}

	cfg := &config.EscrowConfig{
		AdminUPIID:       "escrow@upi",
		AdminName:        "Trusted Hands",
		Currency:         "INR",
		MaxEvidenceItems: 10,
	}
	log := logger.NewDiscard()

	f.ledger = NewPaymentLedger(f.payments, f.bookings, f.audit, f.settings, f.notifier, cfg, log)
	f.coordinator = NewEscrowCoordinator(f.ledger, f.tickets, f.bookings, f.users,
		ml.NewKeywordClassifier(), ml.NewHeuristicReviewer(), f.notifier, cfg, log)
	f.support = NewSupportService(f.tickets, f.messages, f.users, f.coordinator, ml.NewKeywordClassifier(), nil, f.notifier, cfg, log)

	f.customer = f.users.Add(&models.User{Name: "Asha", Role: models.UserRoleCustomer})
	f.provider = f.users.Add(&models.User{Name: "Ravi", Role: models.UserRoleTasker})
	f.admin = f.users.Add(&models.User{Name: "Ops", Role: models.UserRoleAdmin})
	f.booking = f.bookings.Add(&models.Booking{
		CustomerID:  f.customer.ID,
		ProviderID:  f.provider.ID,
		Status:      "completed",
		TotalAmount: 1000,
	})

	return f
}

// coordinatorWith builds a coordinator over the fixture with some parts swapped.
func (f *fixture) coordinatorWith(ledger EscrowLedger, tickets interfaces.SupportTicketRepository, users interfaces.UserRepository) *EscrowCoordinator {
	return NewEscrowCoordinator(ledger, tickets, f.bookings, users,
		ml.NewKeywordClassifier(), ml.NewHeuristicReviewer(), f.notifier, f.coordinator.config, logger.NewDiscard())
}

func (f *fixture) customerActor() Actor {
	return Actor{ID: f.customer.ID, Role: models.UserRoleCustomer}
}

func (f *fixture) adminActor() Actor {
	return Actor{ID: f.admin.ID, Role: models.UserRoleAdmin}
}

func (f *fixture) pendingPayment(t *testing.T) *models.Payment {
	t.Helper()
	payment, err := f.ledger.InitiatePayment(context.Background(), f.booking.ID, "", f.customerActor())
	require.NoError(t, err)
	return payment
}

func (f *fixture) lockedPayment(t *testing.T) *models.Payment {
	t.Helper()
	payment := f.pendingPayment(t)
	locked, err := f.ledger.VerifyPayment(context.Background(), &VerifyPaymentInput{
		PaymentID:        payment.ID,
		UPITransactionID: "UPI123456",
		VerifiedBy:       f.admin.ID,
	})
	require.NoError(t, err)
	return locked
}

func (f *fixture) fileComplaint(t *testing.T, category models.TicketCategory) *ComplaintOutcome {
	t.Helper()
	return f.fileComplaintWith(t, f.coordinator, category)
}

func (f *fixture) fileComplaintWith(t *testing.T, coordinator *EscrowCoordinator, category models.TicketCategory) *ComplaintOutcome {
	t.Helper()
	outcome, err := coordinator.FileComplaint(context.Background(), f.complaintInput(category))
	require.NoError(t, err)
	return outcome
}

// complaintInput is a customer complaint about the provider on the fixture booking.
func (f *fixture) complaintInput(category models.TicketCategory) *FileComplaintInput {
	return &FileComplaintInput{
		UserID:             f.customer.ID,
		UserRole:           models.UserRoleCustomer,
		Category:           category,
		Subject:            "Work left unfinished",
		Description:        "The provider left halfway through the job",
		BookingID:          f.booking.ID,
		ComplaintAgainstID: f.provider.ID,
	}
}

func float(v float64) *float64 {
	return &v
}
