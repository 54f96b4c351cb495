package interfaces

import (
	"context"

	"trustedhands/internal/models"
	"trustedhands/internal/utils"
)

type AuditLogRepository interface {
	Create(ctx context.Context, auditLog *models.AuditLog) error
	// GetResourceHistory lists entries for one resource, oldest first.
	GetResourceHistory(ctx context.Context, resource, resourceID string, params *utils.PaginationParams) ([]*models.AuditLog, int64, error)
}
