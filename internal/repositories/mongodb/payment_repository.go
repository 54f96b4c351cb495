package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trustedhands/internal/models"
	"trustedhands/internal/repositories/interfaces"
	"trustedhands/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type paymentRepository struct {
	collection *mongo.Collection
}

func NewPaymentRepository(db *mongo.Database) interfaces.PaymentRepository {
	return &paymentRepository{
		collection: db.Collection("payments"),
	}
}

func (r *paymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	payment.ID = primitive.NewObjectID()
	payment.CreatedAt = time.Now()
	payment.UpdatedAt = payment.CreatedAt

	_, err := r.collection.InsertOne(ctx, payment)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("payment for booking %s: %w", payment.BookingID.Hex(), interfaces.ErrDuplicate)
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

func (r *paymentRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Payment, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *paymentRepository) GetByBookingID(ctx context.Context, bookingID primitive.ObjectID) (*models.Payment, error) {
	return r.findOne(ctx, bson.M{"booking_id": bookingID})
}

func (r *paymentRepository) Transition(ctx context.Context, id primitive.ObjectID, transition *models.PaymentTransition) (*models.Payment, error) {
	filter := paymentTransitionFilter(id, transition)

	var update interface{}
	switch {
	case transition.AddHold != nil:
		update = addHoldPipeline(*transition.AddHold, transition.Set)
	case transition.ReleaseHold != nil:
		update = releaseHoldPipeline(*transition.ReleaseHold, transition.Set)
	default:
		set := bson.M{"updated_at": time.Now()}
		for k, v := range transition.Set {
			set[k] = v
		}
		update = bson.M{"$set": set}
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var payment models.Payment
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&payment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("payment %s %s: %w", id.Hex(), transition.Action, interfaces.ErrStaleState)
		}
		return nil, fmt.Errorf("failed to %s payment: %w", transition.Action, err)
	}

	return &payment, nil
}

func (r *paymentRepository) GetByCustomerID(ctx context.Context, customerID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Payment, int64, error) {
	return r.findPaymentsWithFilter(ctx, bson.M{"customer_id": customerID}, params)
}

func (r *paymentRepository) GetByProviderID(ctx context.Context, providerID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Payment, int64, error) {
	return r.findPaymentsWithFilter(ctx, bson.M{"provider_id": providerID}, params)
}

// paymentTransitionFilter matches the document only while it is still in a
// state the transition may start from.
func paymentTransitionFilter(id primitive.ObjectID, transition *models.PaymentTransition) bson.M {
	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$in": transition.From},
	}
	if transition.RequireUnfrozen {
		filter["escrow_frozen"] = bson.M{"$ne": true}
	}
	if transition.RequireFrozen {
		filter["escrow_frozen"] = true
	}
	if transition.ReleaseHold != nil {
		filter["dispute_holds"] = *transition.ReleaseHold
	}
	return filter
}

// addHoldPipeline adds ticketID to the hold set and freezes the escrow. The
// extra fields are written only by the first hold.
func addHoldPipeline(ticketID primitive.ObjectID, extra map[string]interface{}) mongo.Pipeline {
	holds := bson.M{"$ifNull": bson.A{"$dispute_holds", bson.A{}}}
	wasHeld := bson.M{"$gt": bson.A{bson.M{"$size": holds}, 0}}

	set := bson.M{
		"dispute_holds": bson.M{"$setUnion": bson.A{holds, bson.A{ticketID}}},
		"escrow_frozen": true,
		"updated_at":    time.Now(),
	}
	for k, v := range extra {
		set[k] = bson.M{"$cond": bson.A{wasHeld, "$" + k, bson.M{"$literal": v}}}
	}
	return mongo.Pipeline{{{Key: "$set", Value: set}}}
}

// releaseHoldPipeline removes ticketID from the hold set and recomputes the
// freeze flag from what is left. The extra fields are written only when the
// last hold goes.
func releaseHoldPipeline(ticketID primitive.ObjectID, extra map[string]interface{}) mongo.Pipeline {
	remaining := bson.M{"$setDifference": bson.A{"$dispute_holds", bson.A{ticketID}}}
	released := bson.M{"$eq": bson.A{bson.M{"$size": "$dispute_holds"}, 0}}

	set := bson.M{"escrow_frozen": bson.M{"$not": bson.A{released}}}
	for k, v := range extra {
		set[k] = bson.M{"$cond": bson.A{released, bson.M{"$literal": v}, "$" + k}}
	}
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.M{"dispute_holds": remaining, "updated_at": time.Now()}}},
		{{Key: "$set", Value: set}},
	}
}

func (r *paymentRepository) findOne(ctx context.Context, filter bson.M) (*models.Payment, error) {
	var payment models.Payment
	err := r.collection.FindOne(ctx, filter).Decode(&payment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("payment: %w", interfaces.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return &payment, nil
}

func (r *paymentRepository) findPaymentsWithFilter(ctx context.Context, filter bson.M, params *utils.PaginationParams) ([]*models.Payment, int64, error) {
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count payments: %w", err)
	}

	cursor, err := r.collection.Find(ctx, filter, params.GetSortOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find payments: %w", err)
	}
	defer cursor.Close(ctx)

	var payments []*models.Payment
	for cursor.Next(ctx) {
		var payment models.Payment
		if err := cursor.Decode(&payment); err != nil {
			return nil, 0, fmt.Errorf("failed to decode payment: %w", err)
		}
		payments = append(payments, &payment)
	}

	return payments, total, cursor.Err()
}
