package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentSettings is the operator-managed escrow account. A single active
// document overrides the environment defaults.
type PaymentSettings struct {
	ID              primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	AdminUPIID      string              `json:"admin_upi_id" bson:"admin_upi_id"`
	AdminUPIName    string              `json:"admin_upi_name" bson:"admin_upi_name"`
	AdminQRCodeURL  string              `json:"admin_qr_code_url,omitempty" bson:"admin_qr_code_url,omitempty"`
	EscrowEnabled   bool                `json:"escrow_enabled" bson:"escrow_enabled"`
	AutoReleaseDays int                 `json:"auto_release_days" bson:"auto_release_days"`
	IsActive        bool                `json:"is_active" bson:"is_active"`
	IsConfigured    bool                `json:"is_configured" bson:"-"`
	UpdatedBy       *primitive.ObjectID `json:"updated_by,omitempty" bson:"updated_by,omitempty"`
	CreatedAt       time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at" bson:"updated_at"`
}
