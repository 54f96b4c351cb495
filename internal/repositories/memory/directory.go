package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"trustedhands/internal/models"
	"trustedhands/internal/repositories/interfaces"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BookingRepository struct {
	mu       sync.RWMutex
	bookings map[primitive.ObjectID]models.Booking
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{bookings: make(map[primitive.ObjectID]models.Booking)}
}

var _ interfaces.BookingRepository = (*BookingRepository)(nil)

// Add stores a booking as-is, assigning an id when it has none.
func (r *BookingRepository) Add(booking *models.Booking) *models.Booking {
	r.mu.Lock()
	defer r.mu.Unlock()

	if booking.ID.IsZero() {
		booking.ID = primitive.NewObjectID()
	}
	r.bookings[booking.ID] = *booking
	return booking
}

func (r *BookingRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	booking, ok := r.bookings[id]
	if !ok {
		return nil, fmt.Errorf("booking: %w", interfaces.ErrNotFound)
	}
	return &booking, nil
}

func (r *BookingRepository) UpdatePaymentStatus(ctx context.Context, id primitive.ObjectID, status models.BookingPaymentStatus, paymentID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	booking, ok := r.bookings[id]
	if !ok {
		return fmt.Errorf("booking: %w", interfaces.ErrNotFound)
	}
	booking.PaymentStatus = status
	booking.PaymentID = &paymentID
	booking.UpdatedAt = time.Now()
	r.bookings[id] = booking
	return nil
}

type UserRepository struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]models.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[primitive.ObjectID]models.User)}
}

var _ interfaces.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) Add(user *models.User) *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	r.users[user.ID] = *user
	return user
}

func (r *UserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user: %w", interfaces.ErrNotFound)
	}
	return &user, nil
}

func (r *UserRepository) GetByRole(ctx context.Context, role models.UserRole) ([]*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var users []*models.User
	for _, user := range r.users {
		user := user
		if user.Role == role {
			users = append(users, &user)
		}
	}
	return users, nil
}

func (r *UserRepository) ApplyPenalty(ctx context.Context, userID primitive.ObjectID, penalty *models.Penalty) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return fmt.Errorf("user: %w", interfaces.ErrNotFound)
	}
	user.PenaltyCount++
	user.TotalPenalties += penalty.Amount
	user.Penalties = append(append([]models.Penalty(nil), user.Penalties...), *penalty)
	user.UpdatedAt = time.Now()
	r.users[userID] = user
	return nil
}

type NotificationRepository struct {
	mu            sync.Mutex
	notifications []models.Notification
}

func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{}
}

var _ interfaces.NotificationRepository = (*NotificationRepository)(nil)

func (r *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	notification.ID = primitive.NewObjectID()
	notification.CreatedAt = time.Now()
	if notification.Status == "" {
		notification.Status = models.NotificationStatusUnread
	}
	r.notifications = append(r.notifications, *notification)
	return nil
}

// All returns a copy of every stored notification in insertion order.
func (r *NotificationRepository) All() []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Notification(nil), r.notifications...)
}

type PaymentSettingsRepository struct {
	mu       sync.RWMutex
	settings *models.PaymentSettings
}

func NewPaymentSettingsRepository() *PaymentSettingsRepository {
	return &PaymentSettingsRepository{}
}

var _ interfaces.PaymentSettingsRepository = (*PaymentSettingsRepository)(nil)

func (r *PaymentSettingsRepository) GetActive(ctx context.Context) (*models.PaymentSettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.settings == nil {
		return nil, fmt.Errorf("payment settings: %w", interfaces.ErrNotFound)
	}
	settings := *r.settings
	return &settings, nil
}

func (r *PaymentSettingsRepository) Upsert(ctx context.Context, settings *models.PaymentSettings) (*models.PaymentSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	saved := *settings
	saved.IsActive = true
	saved.UpdatedAt = now
	if r.settings == nil {
		saved.ID = primitive.NewObjectID()
		saved.CreatedAt = now
	} else {
		saved.ID = r.settings.ID
		saved.CreatedAt = r.settings.CreatedAt
		if saved.UpdatedBy == nil {
			saved.UpdatedBy = r.settings.UpdatedBy
		}
	}
	r.settings = &saved

	out := saved
	return &out, nil
}
