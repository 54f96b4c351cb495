package interfaces

import (
	"context"

	"trustedhands/internal/models"
)

type PaymentSettingsRepository interface {
	// GetActive returns ErrNotFound until an operator saves settings.
	GetActive(ctx context.Context) (*models.PaymentSettings, error)
	// Upsert replaces the active settings, creating them on first save.
	Upsert(ctx context.Context, settings *models.PaymentSettings) (*models.PaymentSettings, error)
}
