package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserRole string

const (
	UserRoleCustomer   UserRole = "customer"
	UserRoleTasker     UserRole = "tasker"
	UserRoleAdmin      UserRole = "admin"
	UserRoleSuperAdmin UserRole = "superadmin"
)

// IsOperator reports whether the role may act on other users' disputes and payments.
func (r UserRole) IsOperator() bool {
	return r == UserRoleAdmin || r == UserRoleSuperAdmin
}

// User is the slice of the user directory the escrow core reads.
// Profile management lives elsewhere.
type User struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name           string             `json:"name" bson:"name"`
	Email          string             `json:"email" bson:"email"`
	Phone          string             `json:"phone,omitempty" bson:"phone,omitempty"`
	Role           UserRole           `json:"role" bson:"role"`
	DeviceToken    string             `json:"-" bson:"device_token,omitempty"`
	DevicePlatform string             `json:"-" bson:"device_platform,omitempty"`
	PenaltyCount   int                `json:"penalty_count" bson:"penalty_count"`
	TotalPenalties float64            `json:"total_penalties" bson:"total_penalties"`
	Penalties      []Penalty          `json:"penalties,omitempty" bson:"penalties,omitempty"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at" bson:"updated_at"`
}

// Penalty is one accounting entry charged to a provider after a dispute.
type Penalty struct {
	Amount   float64            `json:"amount" bson:"amount"`
	Reason   string             `json:"reason" bson:"reason"`
	TicketID primitive.ObjectID `json:"ticket_id" bson:"ticket_id"`
	Date     time.Time          `json:"date" bson:"date"`
}
