package interfaces

import (
	"context"

	"trustedhands/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByRole(ctx context.Context, role models.UserRole) ([]*models.User, error)

	// ApplyPenalty records a dispute penalty against a provider's account.
	ApplyPenalty(ctx context.Context, userID primitive.ObjectID, penalty *models.Penalty) error
}
