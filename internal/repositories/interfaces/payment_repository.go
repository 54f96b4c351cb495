package interfaces

import (
	"context"

	"trustedhands/internal/models"
	"trustedhands/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PaymentRepository interface {
	// Create inserts a pending payment. ErrDuplicate when the booking already has one.
	Create(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Payment, error)
	GetByBookingID(ctx context.Context, bookingID primitive.ObjectID) (*models.Payment, error)

	// Transition applies one compare-and-set and returns the updated document.
	// ErrStaleState when the stored status or freeze flag does not match.
	Transition(ctx context.Context, id primitive.ObjectID, transition *models.PaymentTransition) (*models.Payment, error)

	GetByCustomerID(ctx context.Context, customerID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Payment, int64, error)
	GetByProviderID(ctx context.Context, providerID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Payment, int64, error)
}
