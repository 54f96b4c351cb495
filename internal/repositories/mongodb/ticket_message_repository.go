package mongodb

import (
	"context"
	"fmt"
	"time"

	"trustedhands/internal/models"
	"trustedhands/internal/repositories/interfaces"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ticketMessageRepository struct {
	collection *mongo.Collection
}

func NewTicketMessageRepository(db *mongo.Database) interfaces.TicketMessageRepository {
	return &ticketMessageRepository{
		collection: db.Collection("ticket_messages"),
	}
}

func (r *ticketMessageRepository) Create(ctx context.Context, message *models.TicketMessage) error {
	message.ID = primitive.NewObjectID()
	message.CreatedAt = time.Now()
	if message.Attachments == nil {
		message.Attachments = []string{}
	}

	if _, err := r.collection.InsertOne(ctx, message); err != nil {
		return fmt.Errorf("failed to create ticket message: %w", err)
	}

	return nil
}

func (r *ticketMessageRepository) ListByTicket(ctx context.Context, ticketID primitive.ObjectID, limit int) ([]*models.TicketMessage, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{"ticket_id": ticketID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find ticket messages: %w", err)
	}
	defer cursor.Close(ctx)

	messages := []*models.TicketMessage{}
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode ticket messages: %w", err)
	}

	return messages, nil
}
