package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BookingPaymentStatus string

const (
	BookingPaymentPending  BookingPaymentStatus = "pending"
	BookingPaymentPaid     BookingPaymentStatus = "paid"
	BookingPaymentReleased BookingPaymentStatus = "released"
	BookingPaymentRefunded BookingPaymentStatus = "refunded"
	BookingPaymentFailed   BookingPaymentStatus = "failed"
)

// Booking is the read model of the booking store used for payment
// initiation. Providers are stored as taskers.
type Booking struct {
	ID            primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	CustomerID    primitive.ObjectID   `json:"customer_id" bson:"customer_id"`
	ProviderID    primitive.ObjectID   `json:"tasker_id" bson:"tasker_id"`
	ServiceName   string               `json:"service_name,omitempty" bson:"service_name,omitempty"`
	Status        string               `json:"status" bson:"status"`
	TotalAmount   float64              `json:"total_amount" bson:"total_amount"`
	PaymentStatus BookingPaymentStatus `json:"payment_status,omitempty" bson:"payment_status,omitempty"`
	PaymentID     *primitive.ObjectID  `json:"payment_id,omitempty" bson:"payment_id,omitempty"`
	CreatedAt     time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at" bson:"updated_at"`
}

// BookingPaymentStatusFor maps a payment status onto the booking's mirror field.
func BookingPaymentStatusFor(status PaymentStatus) BookingPaymentStatus {
	switch status {
	case PaymentStatusLocked:
		return BookingPaymentPaid
	case PaymentStatusReleased:
		return BookingPaymentReleased
	case PaymentStatusRefunded:
		return BookingPaymentRefunded
	case PaymentStatusFailed:
		return BookingPaymentFailed
	}
	return BookingPaymentPending
}
