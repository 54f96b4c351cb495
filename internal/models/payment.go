package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PaymentStatus string
type PaymentMethod string
type PaymentAction string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusLocked   PaymentStatus = "locked"
	PaymentStatusReleased PaymentStatus = "released"
	PaymentStatusRefunded PaymentStatus = "refunded"
	PaymentStatusFailed   PaymentStatus = "failed"

	PaymentMethodUPIQR PaymentMethod = "upi_qr"
	PaymentMethodUPIID PaymentMethod = "upi_id"

	PaymentActionVerify   PaymentAction = "verify"
	PaymentActionFail     PaymentAction = "fail"
	PaymentActionRelease  PaymentAction = "release"
	PaymentActionRefund   PaymentAction = "refund"
	PaymentActionFreeze   PaymentAction = "freeze"
	PaymentActionUnfreeze PaymentAction = "unfreeze"
)

// PaymentTransitions is the complete legality table for payment custody.
// A (status, action) pair that is absent is an illegal transition.
// Freeze and unfreeze keep the status and only toggle the escrow flag.
var PaymentTransitions = map[PaymentStatus]map[PaymentAction]PaymentStatus{
	PaymentStatusPending: {
		PaymentActionVerify: PaymentStatusLocked,
		PaymentActionFail:   PaymentStatusFailed,
		PaymentActionRefund: PaymentStatusRefunded,
	},
	PaymentStatusLocked: {
		PaymentActionRelease:  PaymentStatusReleased,
		PaymentActionRefund:   PaymentStatusRefunded,
		PaymentActionFreeze:   PaymentStatusLocked,
		PaymentActionUnfreeze: PaymentStatusLocked,
	},
}

// NextPaymentStatus looks up the target status of action applied in status.
func NextPaymentStatus(status PaymentStatus, action PaymentAction) (PaymentStatus, bool) {
	next, ok := PaymentTransitions[status][action]
	return next, ok
}

// PaymentStatuses lists every payment status in lifecycle order.
var PaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusLocked,
	PaymentStatusReleased,
	PaymentStatusRefunded,
	PaymentStatusFailed,
}

// PaymentSourceStatuses lists every status from which action is legal.
func PaymentSourceStatuses(action PaymentAction) []PaymentStatus {
	var from []PaymentStatus
	for _, status := range PaymentStatuses {
		if _, ok := PaymentTransitions[status][action]; ok {
			from = append(from, status)
		}
	}
	return from
}

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusReleased || s == PaymentStatusRefunded || s == PaymentStatusFailed
}

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusLocked, PaymentStatusReleased, PaymentStatusRefunded, PaymentStatusFailed:
		return true
	}
	return false
}

func (m PaymentMethod) IsValid() bool {
	return m == PaymentMethodUPIQR || m == PaymentMethodUPIID
}

type Payment struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	BookingID  primitive.ObjectID `json:"booking_id" bson:"booking_id" validate:"required"`
	CustomerID primitive.ObjectID `json:"customer_id" bson:"customer_id" validate:"required"`
	ProviderID primitive.ObjectID `json:"provider_id" bson:"provider_id" validate:"required"`

	Amount        float64       `json:"amount" bson:"amount" validate:"required,gt=0"`
	Currency      string        `json:"currency" bson:"currency"`
	PaymentMethod PaymentMethod `json:"payment_method" bson:"payment_method" validate:"required"`
	Status        PaymentStatus `json:"status" bson:"status"`

	// Where the customer sends funds; operator attests receipt.
	AdminUPIID     string `json:"admin_upi_id,omitempty" bson:"admin_upi_id,omitempty"`
	AdminQRCodeURL string `json:"admin_qr_code_url,omitempty" bson:"admin_qr_code_url,omitempty"`

	UPITransactionID   string `json:"upi_transaction_id,omitempty" bson:"upi_transaction_id,omitempty"`
	UPIReferenceNumber string `json:"upi_reference_number,omitempty" bson:"upi_reference_number,omitempty"`

	IsVerified bool                `json:"is_verified" bson:"is_verified"`
	VerifiedAt *time.Time          `json:"verified_at,omitempty" bson:"verified_at,omitempty"`
	VerifiedBy *primitive.ObjectID `json:"verified_by,omitempty" bson:"verified_by,omitempty"`

	PaidAt     *time.Time `json:"paid_at,omitempty" bson:"paid_at,omitempty"`
	LockedAt   *time.Time `json:"locked_at,omitempty" bson:"locked_at,omitempty"`
	ReleasedAt *time.Time `json:"released_at,omitempty" bson:"released_at,omitempty"`
	RefundedAt *time.Time `json:"refunded_at,omitempty" bson:"refunded_at,omitempty"`
	FailedAt   *time.Time `json:"failed_at,omitempty" bson:"failed_at,omitempty"`

	EscrowFrozen       bool       `json:"escrow_frozen" bson:"escrow_frozen"`
	EscrowFrozenReason string     `json:"escrow_frozen_reason,omitempty" bson:"escrow_frozen_reason,omitempty"`
	EscrowFrozenAt     *time.Time `json:"escrow_frozen_at,omitempty" bson:"escrow_frozen_at,omitempty"`
	EscrowUnfrozenAt   *time.Time `json:"escrow_unfrozen_at,omitempty" bson:"escrow_unfrozen_at,omitempty"`

	// Tickets currently holding the escrow. EscrowFrozen is true exactly
	// while this is non-empty.
	DisputeHolds []primitive.ObjectID `json:"dispute_holds,omitempty" bson:"dispute_holds,omitempty"`

	PaymentNotes  string  `json:"payment_notes,omitempty" bson:"payment_notes,omitempty"`
	RefundAmount  float64 `json:"refund_amount,omitempty" bson:"refund_amount,omitempty"`
	RefundReason  string  `json:"refund_reason,omitempty" bson:"refund_reason,omitempty"`
	FailureReason string  `json:"failure_reason,omitempty" bson:"failure_reason,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// PaymentTransition describes one compare-and-set on a payment document.
// The update only applies while the stored status is one of From and,
// when RequireUnfrozen is set, escrow_frozen is false.
//
// AddHold puts a ticket on the hold set and freezes the escrow. ReleaseHold
// only matches while the ticket is on the set, removes it, and clears the
// freeze when no hold is left. Both happen in the same update as Set.
type PaymentTransition struct {
	Action          PaymentAction
	From            []PaymentStatus
	RequireUnfrozen bool
	RequireFrozen   bool
	Set             map[string]interface{}
	AddHold         *primitive.ObjectID
	ReleaseHold     *primitive.ObjectID
}

// PaymentStatusView is the lightweight status summary shown to parties.
type PaymentStatusView struct {
	PaymentID    primitive.ObjectID `json:"payment_id"`
	Status       PaymentStatus      `json:"status"`
	IsVerified   bool               `json:"is_verified"`
	EscrowFrozen bool               `json:"escrow_frozen"`
	Amount       float64            `json:"amount"`
	PaidAt       *time.Time         `json:"paid_at,omitempty"`
	LockedAt     *time.Time         `json:"locked_at,omitempty"`
	ReleasedAt   *time.Time         `json:"released_at,omitempty"`
	RefundedAt   *time.Time         `json:"refunded_at,omitempty"`
}

func (p *Payment) StatusView() *PaymentStatusView {
	return &PaymentStatusView{
		PaymentID:    p.ID,
		Status:       p.Status,
		IsVerified:   p.IsVerified,
		EscrowFrozen: p.EscrowFrozen,
		Amount:       p.Amount,
		PaidAt:       p.PaidAt,
		LockedAt:     p.LockedAt,
		ReleasedAt:   p.ReleasedAt,
		RefundedAt:   p.RefundedAt,
	}
}

// HeldBy reports whether ticketID is one of the dispute holds.
func (p *Payment) HeldBy(ticketID primitive.ObjectID) bool {
	for _, id := range p.DisputeHolds {
		if id == ticketID {
			return true
		}
	}
	return false
}

// IsParty reports whether userID is the customer or the provider.
func (p *Payment) IsParty(userID primitive.ObjectID) bool {
	return p.CustomerID == userID || p.ProviderID == userID
}
