package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trustedhands/internal/models"
	"trustedhands/internal/repositories/interfaces"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type bookingRepository struct {
	collection *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) interfaces.BookingRepository {
	return &bookingRepository{
		collection: db.Collection("bookings"),
	}
}

func (r *bookingRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Booking, error) {
	var booking models.Booking
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("booking: %w", interfaces.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	return &booking, nil
}

func (r *bookingRepository) UpdatePaymentStatus(ctx context.Context, id primitive.ObjectID, status models.BookingPaymentStatus, paymentID primitive.ObjectID) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"payment_status": status,
		"payment_id":     paymentID,
		"updated_at":     time.Now(),
	}})
	if err != nil {
		return fmt.Errorf("failed to update booking payment status: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("booking: %w", interfaces.ErrNotFound)
	}

	return nil
}
