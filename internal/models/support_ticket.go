package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TicketCategory string
type TicketPriority string
type TicketTier string
type TicketStatus string
type AIReviewResult string
type ResolutionResult string

const (
	TicketCategoryBookingHelp    TicketCategory = "booking_help"
	TicketCategoryPaymentStatus  TicketCategory = "payment_status"
	TicketCategoryFAQ            TicketCategory = "faq"
	TicketCategoryDelay          TicketCategory = "delay"
	TicketCategorySafetyIssue    TicketCategory = "safety_issue"
	TicketCategoryServiceDispute TicketCategory = "service_dispute"
	TicketCategoryAccountIssue   TicketCategory = "account_issue"
	TicketCategoryTechnicalIssue TicketCategory = "technical_issue"
	TicketCategoryLateArrival    TicketCategory = "complaint_late_arrival"
	TicketCategoryPoorService    TicketCategory = "complaint_poor_service"
	TicketCategoryBehaviourIssue TicketCategory = "complaint_behaviour_issue"
	TicketCategoryOvercharging   TicketCategory = "complaint_overcharging"
	TicketCategoryOther          TicketCategory = "other"

	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"

	TicketTierAI    TicketTier = "ai"
	TicketTierHuman TicketTier = "human"

	TicketStatusOpen            TicketStatus = "open"
	TicketStatusInProgress      TicketStatus = "in_progress"
	TicketStatusWaitingCustomer TicketStatus = "waiting_customer"
	TicketStatusEscalated       TicketStatus = "escalated"
	TicketStatusResolved        TicketStatus = "resolved"
	TicketStatusClosed          TicketStatus = "closed"

	AIReviewFavorCustomer AIReviewResult = "favor_customer"
	AIReviewFavorProvider AIReviewResult = "favor_provider"
	AIReviewNeedsHuman    AIReviewResult = "needs_human"

	ResolutionRefundFull      ResolutionResult = "refund_full"
	ResolutionRefundPartial   ResolutionResult = "refund_partial"
	ResolutionPenaltyProvider ResolutionResult = "penalty_provider"
	ResolutionNoAction        ResolutionResult = "no_action"
)

var complaintCategories = map[TicketCategory]bool{
	TicketCategoryLateArrival:    true,
	TicketCategoryPoorService:    true,
	TicketCategoryBehaviourIssue: true,
	TicketCategoryOvercharging:   true,
}

func (c TicketCategory) IsComplaint() bool {
	return complaintCategories[c]
}

func (c TicketCategory) IsValid() bool {
	switch c {
	case TicketCategoryBookingHelp, TicketCategoryPaymentStatus, TicketCategoryFAQ, TicketCategoryDelay,
		TicketCategorySafetyIssue, TicketCategoryServiceDispute, TicketCategoryAccountIssue,
		TicketCategoryTechnicalIssue, TicketCategoryOther:
		return true
	}
	return c.IsComplaint()
}

func (s TicketStatus) IsValid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusWaitingCustomer,
		TicketStatusEscalated, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// IsFinal reports whether the ticket can no longer be resolved.
func (s TicketStatus) IsFinal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

func (p TicketPriority) IsValid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical:
		return true
	}
	return false
}

func (r ResolutionResult) IsValid() bool {
	switch r {
	case ResolutionRefundFull, ResolutionRefundPartial, ResolutionPenaltyProvider, ResolutionNoAction:
		return true
	}
	return false
}

func (r ResolutionResult) IsRefund() bool {
	return r == ResolutionRefundFull || r == ResolutionRefundPartial
}

type SupportTicket struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	TicketNumber string             `json:"ticket_number" bson:"ticket_number"`

	UserID    primitive.ObjectID `json:"user_id" bson:"user_id"`
	UserName  string             `json:"user_name,omitempty" bson:"user_name,omitempty"`
	UserEmail string             `json:"user_email,omitempty" bson:"user_email,omitempty"`
	UserRole  string             `json:"user_role" bson:"user_role"`

	Category    TicketCategory `json:"category" bson:"category"`
	Priority    TicketPriority `json:"priority" bson:"priority"`
	Tier        TicketTier     `json:"tier" bson:"tier"`
	Status      TicketStatus   `json:"status" bson:"status"`
	Subject     string         `json:"subject" bson:"subject"`
	Description string         `json:"description" bson:"description"`

	BookingID *primitive.ObjectID `json:"booking_id,omitempty" bson:"booking_id,omitempty"`
	PaymentID *primitive.ObjectID `json:"payment_id,omitempty" bson:"payment_id,omitempty"`

	AutoEscalated    bool       `json:"auto_escalated" bson:"auto_escalated"`
	EscalationReason string     `json:"escalation_reason,omitempty" bson:"escalation_reason,omitempty"`
	EscalatedAt      *time.Time `json:"escalated_at,omitempty" bson:"escalated_at,omitempty"`

	AssignedTo        *primitive.ObjectID `json:"assigned_to,omitempty" bson:"assigned_to,omitempty"`
	AssignedAgentName string              `json:"assigned_agent_name,omitempty" bson:"assigned_agent_name,omitempty"`
	AssignedAt        *time.Time          `json:"assigned_at,omitempty" bson:"assigned_at,omitempty"`

	IsComplaint          bool                `json:"is_complaint" bson:"is_complaint"`
	ComplaintAgainstID   *primitive.ObjectID `json:"complaint_against_id,omitempty" bson:"complaint_against_id,omitempty"`
	ComplaintAgainstName string              `json:"complaint_against_name,omitempty" bson:"complaint_against_name,omitempty"`
	EvidenceURLs         []string            `json:"evidence_urls" bson:"evidence_urls"`
	EvidenceDescription  string              `json:"evidence_description,omitempty" bson:"evidence_description,omitempty"`

	EscrowFrozen      bool                `json:"escrow_frozen" bson:"escrow_frozen"`
	EscrowFrozenAt    *time.Time          `json:"escrow_frozen_at,omitempty" bson:"escrow_frozen_at,omitempty"`
	PaymentIDAffected *primitive.ObjectID `json:"payment_id_affected,omitempty" bson:"payment_id_affected,omitempty"`

	AIReviewCompleted  bool           `json:"ai_review_completed" bson:"ai_review_completed"`
	AIReviewResult     AIReviewResult `json:"ai_review_result,omitempty" bson:"ai_review_result,omitempty"`
	AIReviewConfidence float64        `json:"ai_review_confidence,omitempty" bson:"ai_review_confidence,omitempty"`
	AIReviewNotes      string         `json:"ai_review_notes,omitempty" bson:"ai_review_notes,omitempty"`

	AdminReviewCompleted bool             `json:"admin_review_completed" bson:"admin_review_completed"`
	AdminReviewResult    ResolutionResult `json:"admin_review_result,omitempty" bson:"admin_review_result,omitempty"`
	AdminReviewNotes     string           `json:"admin_review_notes,omitempty" bson:"admin_review_notes,omitempty"`
	RefundAmount         float64          `json:"refund_amount,omitempty" bson:"refund_amount,omitempty"`
	PenaltyAmount        float64          `json:"penalty_amount,omitempty" bson:"penalty_amount,omitempty"`

	ResolutionAction ResolutionResult    `json:"resolution_action,omitempty" bson:"resolution_action,omitempty"`
	ResolutionNotes  string              `json:"resolution_notes,omitempty" bson:"resolution_notes,omitempty"`
	ResolutionError  string              `json:"resolution_error,omitempty" bson:"resolution_error,omitempty"`
	ResolvedAt       *time.Time          `json:"resolved_at,omitempty" bson:"resolved_at,omitempty"`
	ResolvedBy       *primitive.ObjectID `json:"resolved_by,omitempty" bson:"resolved_by,omitempty"`

	CustomerRating   int    `json:"customer_rating,omitempty" bson:"customer_rating,omitempty"`
	CustomerFeedback string `json:"customer_feedback,omitempty" bson:"customer_feedback,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// TicketResolution is the payload written when a complaint is resolved.
type TicketResolution struct {
	Result        ResolutionResult
	Notes         string
	RefundAmount  float64
	PenaltyAmount float64
	ResolvedBy    primitive.ObjectID
	ResolvedAt    time.Time
}

type TicketFilter struct {
	UserID *primitive.ObjectID
	Tier   TicketTier
	Status TicketStatus
}

type TicketStatistics struct {
	TotalTickets     int64 `json:"total_tickets"`
	OpenTickets      int64 `json:"open_tickets"`
	InProgress       int64 `json:"in_progress"`
	ResolvedTickets  int64 `json:"resolved_tickets"`
	AIHandled        int64 `json:"ai_handled"`
	HumanEscalated   int64 `json:"human_escalated"`
	AutoEscalated    int64 `json:"auto_escalated"`
	CriticalPriority int64 `json:"critical_priority"`
	HighPriority     int64 `json:"high_priority"`
	OpenComplaints   int64 `json:"open_complaints"`
	FrozenEscrows    int64 `json:"frozen_escrows"`
}
