package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationType string
type NotificationStatus string

const (
	NotificationTypePaymentInitiated  NotificationType = "payment_initiated"
	NotificationTypePaymentLocked     NotificationType = "payment_locked"
	NotificationTypePaymentReleased   NotificationType = "payment_released"
	NotificationTypePaymentRefunded   NotificationType = "payment_refunded"
	NotificationTypePaymentFailed     NotificationType = "payment_failed"
	NotificationTypeComplaintFiled    NotificationType = "complaint_filed"
	NotificationTypeComplaintResolved NotificationType = "complaint_resolved"
	NotificationTypeTicketEscalated   NotificationType = "ticket_escalated"
	NotificationTypePenaltyApplied    NotificationType = "penalty_applied"

	NotificationStatusUnread NotificationStatus = "unread"
	NotificationStatusRead   NotificationStatus = "read"
)

// IsUrgent marks kinds that also go out over push and SMS.
func (t NotificationType) IsUrgent() bool {
	switch t {
	case NotificationTypeComplaintFiled, NotificationTypeComplaintResolved, NotificationTypePenaltyApplied:
		return true
	}
	return false
}

type Notification struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID    primitive.ObjectID `json:"user_id" bson:"user_id"`
	Type      NotificationType   `json:"type" bson:"type"`
	Status    NotificationStatus `json:"status" bson:"status"`
	Title     string             `json:"title" bson:"title"`
	Message   string             `json:"message" bson:"message"`
	Link      string             `json:"link,omitempty" bson:"link,omitempty"`
	Data      map[string]string  `json:"data,omitempty" bson:"data,omitempty"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}
