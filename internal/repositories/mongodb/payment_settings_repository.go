package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trustedhands/internal/models"
	"trustedhands/internal/repositories/interfaces"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type paymentSettingsRepository struct {
	collection *mongo.Collection
}

func NewPaymentSettingsRepository(db *mongo.Database) interfaces.PaymentSettingsRepository {
	return &paymentSettingsRepository{
		collection: db.Collection("payment_settings"),
	}
}

func (r *paymentSettingsRepository) GetActive(ctx context.Context) (*models.PaymentSettings, error) {
	var settings models.PaymentSettings
	err := r.collection.FindOne(ctx, bson.M{"is_active": true}).Decode(&settings)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("payment settings: %w", interfaces.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get payment settings: %w", err)
	}
	return &settings, nil
}

func (r *paymentSettingsRepository) Upsert(ctx context.Context, settings *models.PaymentSettings) (*models.PaymentSettings, error) {
	now := time.Now()
	set := bson.M{
		"admin_upi_id":      settings.AdminUPIID,
		"admin_upi_name":    settings.AdminUPIName,
		"admin_qr_code_url": settings.AdminQRCodeURL,
		"escrow_enabled":    settings.EscrowEnabled,
		"auto_release_days": settings.AutoReleaseDays,
		"updated_at":        now,
	}
	if settings.UpdatedBy != nil {
		set["updated_by"] = *settings.UpdatedBy
	}

	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"created_at": now,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var saved models.PaymentSettings
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"is_active": true}, update, opts).Decode(&saved); err != nil {
		return nil, fmt.Errorf("failed to save payment settings: %w", err)
	}
	return &saved, nil
}
