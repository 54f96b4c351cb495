package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const AuditResourcePayment = "payment"

// AuditLog records one custody change. Entries are append-only.
type AuditLog struct {
	ID         primitive.ObjectID     `json:"id" bson:"_id,omitempty"`
	UserID     *primitive.ObjectID    `json:"user_id,omitempty" bson:"user_id,omitempty"`
	Action     PaymentAction          `json:"action" bson:"action" validate:"required"`
	Resource   string                 `json:"resource" bson:"resource" validate:"required"`
	ResourceID string                 `json:"resource_id" bson:"resource_id"`
	OldValues  map[string]interface{} `json:"old_values,omitempty" bson:"old_values,omitempty"`
	NewValues  map[string]interface{} `json:"new_values,omitempty" bson:"new_values,omitempty"`
	RequestID  string                 `json:"request_id,omitempty" bson:"request_id,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedAt  time.Time              `json:"created_at" bson:"created_at"`
}

// NewPaymentAudit records a custody change of payment from the previous
// status and freeze flag to its current ones.
func NewPaymentAudit(action PaymentAction, userID *primitive.ObjectID, previous PaymentStatus, wasFrozen bool, payment *Payment) *AuditLog {
	newValues := map[string]interface{}{
		"status":        payment.Status,
		"escrow_frozen": payment.EscrowFrozen,
	}
	if payment.RefundAmount > 0 {
		newValues["refund_amount"] = payment.RefundAmount
	}

	return &AuditLog{
		UserID:     userID,
		Action:     action,
		Resource:   AuditResourcePayment,
		ResourceID: payment.ID.Hex(),
		OldValues: map[string]interface{}{
			"status":        previous,
			"escrow_frozen": wasFrozen,
		},
		NewValues: newValues,
	}
}
