package interfaces

import (
	"context"

	"trustedhands/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BookingRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Booking, error)
	UpdatePaymentStatus(ctx context.Context, id primitive.ObjectID, status models.BookingPaymentStatus, paymentID primitive.ObjectID) error
}
