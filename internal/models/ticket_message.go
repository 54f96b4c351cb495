package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MessageSenderType string

const (
	MessageSenderCustomer MessageSenderType = "customer"
	MessageSenderAgent    MessageSenderType = "agent"
	MessageSenderAI       MessageSenderType = "ai"
)

// TicketMessage is one entry in a ticket's conversation thread.
type TicketMessage struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	TicketID    primitive.ObjectID `json:"ticket_id" bson:"ticket_id"`
	SenderID    primitive.ObjectID `json:"sender_id" bson:"sender_id"`
	SenderName  string             `json:"sender_name" bson:"sender_name"`
	SenderType  MessageSenderType  `json:"sender_type" bson:"sender_type"`
	Message     string             `json:"message" bson:"message"`
	Attachments []string           `json:"attachments" bson:"attachments"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
}
