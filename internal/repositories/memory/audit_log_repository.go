package memory

import (
	"context"
	"sync"
	"time"

	"trustedhands/internal/models"
	"trustedhands/internal/repositories/interfaces"
	"trustedhands/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AuditLogRepository struct {
	mu      sync.RWMutex
	entries []models.AuditLog
}

func NewAuditLogRepository() *AuditLogRepository {
	return &AuditLogRepository{}
}

var _ interfaces.AuditLogRepository = (*AuditLogRepository)(nil)

func (r *AuditLogRepository) Create(ctx context.Context, auditLog *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	auditLog.ID = primitive.NewObjectID()
	auditLog.CreatedAt = time.Now()
	r.entries = append(r.entries, *auditLog)
	return nil
}

func (r *AuditLogRepository) GetResourceHistory(ctx context.Context, resource, resourceID string, params *utils.PaginationParams) ([]*models.AuditLog, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*models.AuditLog
	for _, entry := range r.entries {
		entry := entry
		if entry.Resource == resource && entry.ResourceID == resourceID {
			matched = append(matched, &entry)
		}
	}

	return page(matched, params.GetSkip(), params.GetLimit()), int64(len(matched)), nil
}
