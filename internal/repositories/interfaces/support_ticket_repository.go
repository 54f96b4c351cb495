package interfaces

import (
	"context"

	"trustedhands/internal/models"
	"trustedhands/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SupportTicketRepository interface {
	Create(ctx context.Context, ticket *models.SupportTicket) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.SupportTicket, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) (*models.SupportTicket, error)
	List(ctx context.Context, filter *models.TicketFilter, params *utils.PaginationParams) ([]*models.SupportTicket, int64, error)

	// Resolve flips an unresolved complaint to resolved in one conditional update.
	// ErrStaleState when the ticket is missing, not a complaint or already final.
	Resolve(ctx context.Context, id primitive.ObjectID, resolution *models.TicketResolution) (*models.SupportTicket, error)

	GetStatistics(ctx context.Context) (*models.TicketStatistics, error)
}
