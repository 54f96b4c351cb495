package interfaces

import (
	"context"

	"trustedhands/internal/models"
)

type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
}
