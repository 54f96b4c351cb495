package interfaces

import (
	"context"

	"trustedhands/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TicketMessageRepository interface {
	Create(ctx context.Context, message *models.TicketMessage) error
	// ListByTicket returns up to limit messages, oldest first.
	ListByTicket(ctx context.Context, ticketID primitive.ObjectID, limit int) ([]*models.TicketMessage, error)
}
