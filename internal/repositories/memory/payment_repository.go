package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"trustedhands/internal/models"
	"trustedhands/internal/repositories/interfaces"
	"trustedhands/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PaymentRepository struct {
	mu        sync.RWMutex
	payments  map[primitive.ObjectID]models.Payment
	byBooking map[primitive.ObjectID]primitive.ObjectID
}

func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{
		payments:  make(map[primitive.ObjectID]models.Payment),
		byBooking: make(map[primitive.ObjectID]primitive.ObjectID),
	}
}

var _ interfaces.PaymentRepository = (*PaymentRepository)(nil)

func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byBooking[payment.BookingID]; exists {
		return fmt.Errorf("payment for booking %s: %w", payment.BookingID.Hex(), interfaces.ErrDuplicate)
	}

	if payment.ID.IsZero() {
		payment.ID = primitive.NewObjectID()
	}
	payment.CreatedAt = time.Now()
	payment.UpdatedAt = payment.CreatedAt

	r.payments[payment.ID] = *payment
	r.byBooking[payment.BookingID] = payment.ID
	return nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	payment, ok := r.payments[id]
	if !ok {
		return nil, fmt.Errorf("payment: %w", interfaces.ErrNotFound)
	}
	return &payment, nil
}

func (r *PaymentRepository) GetByBookingID(ctx context.Context, bookingID primitive.ObjectID) (*models.Payment, error) {
	r.mu.RLock()
	id, ok := r.byBooking[bookingID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("payment: %w", interfaces.ErrNotFound)
	}
	return r.GetByID(ctx, id)
}

func (r *PaymentRepository) Transition(ctx context.Context, id primitive.ObjectID, transition *models.PaymentTransition) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.payments[id]
	if !ok || !matchesTransition(&current, transition) {
		return nil, fmt.Errorf("payment %s %s: %w", id.Hex(), transition.Action, interfaces.ErrStaleState)
	}

	set := map[string]interface{}{"updated_at": time.Now()}
	if holdEdge(&current, transition) {
		for k, v := range transition.Set {
			set[k] = v
		}
	}

	var next models.Payment
	if err := applySet(&current, set, &next); err != nil {
		return nil, fmt.Errorf("failed to %s payment: %w", transition.Action, err)
	}
	applyHold(&next, transition)

	r.payments[id] = next
	return &next, nil
}

func (r *PaymentRepository) GetByCustomerID(ctx context.Context, customerID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Payment, int64, error) {
	return r.list(func(p *models.Payment) bool { return p.CustomerID == customerID }, params)
}

func (r *PaymentRepository) GetByProviderID(ctx context.Context, providerID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Payment, int64, error) {
	return r.list(func(p *models.Payment) bool { return p.ProviderID == providerID }, params)
}

func (r *PaymentRepository) list(match func(*models.Payment) bool, params *utils.PaginationParams) ([]*models.Payment, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*models.Payment
	for _, payment := range r.payments {
		payment := payment
		if match(&payment) {
			matched = append(matched, &payment)
		}
	}

	// Only creation time ordering is supported here.
	sort.Slice(matched, func(i, j int) bool {
		if params.Order == "asc" {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	return page(matched, params.GetSkip(), params.GetLimit()), int64(len(matched)), nil
}

func matchesTransition(payment *models.Payment, transition *models.PaymentTransition) bool {
	if transition.ReleaseHold != nil && !payment.HeldBy(*transition.ReleaseHold) {
		return false
	}
	if transition.RequireUnfrozen && payment.EscrowFrozen {
		return false
	}
	if transition.RequireFrozen && !payment.EscrowFrozen {
		return false
	}
	for _, status := range transition.From {
		if payment.Status == status {
			return true
		}
	}
	return false
}

// holdEdge reports whether Set applies: always for plain transitions, and for
// hold changes only when the hold set goes from empty or to empty.
func holdEdge(payment *models.Payment, transition *models.PaymentTransition) bool {
	switch {
	case transition.AddHold != nil:
		return len(payment.DisputeHolds) == 0
	case transition.ReleaseHold != nil:
		return len(payment.DisputeHolds) == 1
	}
	return true
}

func applyHold(payment *models.Payment, transition *models.PaymentTransition) {
	switch {
	case transition.AddHold != nil:
		if !payment.HeldBy(*transition.AddHold) {
			payment.DisputeHolds = append(payment.DisputeHolds, *transition.AddHold)
		}
		payment.EscrowFrozen = true
	case transition.ReleaseHold != nil:
		holds := payment.DisputeHolds[:0]
		for _, id := range payment.DisputeHolds {
			if id != *transition.ReleaseHold {
				holds = append(holds, id)
			}
		}
		payment.DisputeHolds = holds
		payment.EscrowFrozen = len(holds) > 0
	}
}
