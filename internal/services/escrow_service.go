package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"trustedhands/internal/config"
	"trustedhands/internal/models"
	"trustedhands/internal/repositories/interfaces"
	"trustedhands/pkg/logger"
	"trustedhands/pkg/ml"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type FileComplaintInput struct {
	UserID              primitive.ObjectID
	UserRole            models.UserRole
	Category            models.TicketCategory
	Subject             string
	Description         string
	BookingID           primitive.ObjectID
	PaymentID           *primitive.ObjectID
	ComplaintAgainstID  primitive.ObjectID
	EvidenceURLs        []string
	EvidenceDescription string
}

// ComplaintOutcome reports the filed ticket and whether its payment is now held.
type ComplaintOutcome struct {
	Ticket       *models.SupportTicket `json:"ticket"`
	EscrowFrozen bool                  `json:"escrow_frozen"`
	Message      string                `json:"message"`
}

type ResolveInput struct {
	TicketID      primitive.ObjectID
	Result        models.ResolutionResult
	Notes         string
	RefundAmount  *float64
	PenaltyAmount *float64
	OperatorID    primitive.ObjectID
}

// ResolveOutcome is the resolved ticket and the payment as left by the resolution.
type ResolveOutcome struct {
	Ticket  *models.SupportTicket `json:"ticket"`
	Payment *models.Payment       `json:"payment,omitempty"`
}

// EscrowCoordinator ties complaints to payment custody. Filing a complaint
// freezes the payment and resolving it is the only way to apply a refund
// or penalty and lift the freeze.
type EscrowCoordinator struct {
	ledger     EscrowLedger
	tickets    interfaces.SupportTicketRepository
	bookings   interfaces.BookingRepository
	users      interfaces.UserRepository
	classifier ml.SeverityClassifier
	reviewer   ml.ComplaintReviewer
	notifier   Notifier
	config     *config.EscrowConfig
	logger     *logger.Logger
}

func NewEscrowCoordinator(
	ledger EscrowLedger,
	tickets interfaces.SupportTicketRepository,
	bookings interfaces.BookingRepository,
	users interfaces.UserRepository,
	classifier ml.SeverityClassifier,
	reviewer ml.ComplaintReviewer,
	notifier Notifier,
	cfg *config.EscrowConfig,
	log *logger.Logger,
) *EscrowCoordinator {
	return &EscrowCoordinator{
		ledger:     ledger,
		tickets:    tickets,
		bookings:   bookings,
		users:      users,
		classifier: classifier,
		reviewer:   reviewer,
		notifier:   notifier,
		config:     cfg,
		logger:     log,
	}
}

func (c *EscrowCoordinator) FileComplaint(ctx context.Context, input *FileComplaintInput) (*ComplaintOutcome, error) {
	const op = "file complaint"

	if err := c.validateComplaint(op, input); err != nil {
		return nil, err
	}

	booking, err := c.bookings.GetByID(ctx, input.BookingID)
	if err != nil {
		return nil, notFoundOr(err, op, "booking")
	}
	if !input.UserRole.IsOperator() && input.UserID != booking.CustomerID && input.UserID != booking.ProviderID {
		return nil, newError(ErrForbidden, op, "only a party to the booking can file a complaint")
	}

	payment, err := c.complaintPayment(ctx, op, input)
	if err != nil {
		return nil, err
	}

	triage := c.classifier.Classify(&ml.TriageRequest{
		Category:    string(input.Category),
		Subject:     input.Subject,
		Description: input.Description,
		IsComplaint: true,
	})

	ticket := &models.SupportTicket{
		UserID:              input.UserID,
		UserRole:            string(input.UserRole),
		Category:            input.Category,
		Priority:            models.TicketPriority(triage.Priority),
		Tier:                models.TicketTier(triage.Tier),
		Status:              models.TicketStatusOpen,
		Subject:             input.Subject,
		Description:         input.Description,
		BookingID:           &booking.ID,
		AutoEscalated:       triage.AutoEscalated,
		EscalationReason:    triage.EscalationReason,
		IsComplaint:         true,
		ComplaintAgainstID:  &input.ComplaintAgainstID,
		EvidenceURLs:        input.EvidenceURLs,
		EvidenceDescription: input.EvidenceDescription,
	}
	if ticket.EvidenceURLs == nil {
		ticket.EvidenceURLs = []string{}
	}
	if triage.AutoEscalated {
		now := time.Now()
		ticket.EscalatedAt = &now
	}
	if payment != nil {
		ticket.PaymentID = &payment.ID
		ticket.PaymentIDAffected = &payment.ID
	}
	c.fillNames(ctx, ticket)

	if err := insertTicket(ctx, c.tickets, ticket); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log := c.logger.WithContext(ctx).WithTicketID(ticket.ID)
	log.LogDisputeEvent(ticket.ID, "complaint_filed", map[string]interface{}{
		"category": ticket.Category,
		"tier":     ticket.Tier,
		"priority": ticket.Priority,
	})

	outcome := &ComplaintOutcome{Ticket: ticket}
	switch {
	case payment == nil:
		outcome.Message = "Complaint filed. No payment is associated with this booking."
	default:
		frozen, err := c.freeze(ctx, ticket, payment.ID)
		if err != nil {
			return nil, err
		}
		outcome.EscrowFrozen = frozen
		if frozen {
			outcome.Message = "Complaint filed. The payment is on hold until the dispute is resolved."
		} else {
			outcome.Message = "Complaint filed. The payment is not held in escrow and could not be frozen."
		}
	}

	c.notifier.Notify(ctx, newNotification(input.ComplaintAgainstID, models.NotificationTypeComplaintFiled,
		"Complaint Filed", fmt.Sprintf("A complaint (%s) was filed about booking %s", ticket.TicketNumber, booking.ID.Hex()),
		ticketLink(ticket.ID), map[string]string{"ticket_id": ticket.ID.Hex()}))

	return outcome, nil
}

func (c *EscrowCoordinator) validateComplaint(op string, input *FileComplaintInput) error {
	var missing []string
	if !input.Category.IsComplaint() {
		return newError(ErrValidation, op, "category %q is not a complaint category", input.Category)
	}
	if strings.TrimSpace(input.Subject) == "" {
		missing = append(missing, "subject")
	}
	if strings.TrimSpace(input.Description) == "" {
		missing = append(missing, "description")
	}
	if input.BookingID.IsZero() {
		missing = append(missing, "booking_id")
	}
	if input.ComplaintAgainstID.IsZero() {
		missing = append(missing, "complaint_against_id")
	}
	if len(missing) > 0 {
		return newError(ErrValidation, op, "missing required fields: %s", strings.Join(missing, ", "))
	}
	if input.ComplaintAgainstID == input.UserID {
		return newError(ErrValidation, op, "cannot file a complaint against yourself")
	}
	if limit := c.config.MaxEvidenceItems; limit > 0 && len(input.EvidenceURLs) > limit {
		return newError(ErrValidation, op, "at most %d evidence items are allowed", limit)
	}
	return nil
}

// complaintPayment finds the payment a complaint is about. An explicit id must
// exist and belong to the booking; otherwise the booking's payment is used if any.
func (c *EscrowCoordinator) complaintPayment(ctx context.Context, op string, input *FileComplaintInput) (*models.Payment, error) {
	if input.PaymentID != nil {
		payment, err := c.ledger.GetPayment(ctx, *input.PaymentID)
		if err != nil {
			return nil, err
		}
		if payment.BookingID != input.BookingID {
			return nil, newError(ErrValidation, op, "payment does not belong to the booking")
		}
		return payment, nil
	}

	payment, err := c.ledger.GetPaymentByBooking(ctx, input.BookingID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return payment, err
}

// freeze holds the payment for the ticket. A payment that is not in escrow is
// reported as not frozen rather than as an error.
func (c *EscrowCoordinator) freeze(ctx context.Context, ticket *models.SupportTicket, paymentID primitive.ObjectID) (bool, error) {
	log := c.logger.WithContext(ctx).WithTicketID(ticket.ID).WithPaymentID(paymentID)

	reason := fmt.Sprintf("complaint %s filed", ticket.TicketNumber)
	if _, err := c.ledger.FreezeEscrow(ctx, paymentID, ticket.ID, reason); err != nil {
		if errors.Is(err, ErrInvalidState) {
			log.WithError(err).Info("Payment not in escrow, complaint filed without freeze")
			return false, nil
		}
		return false, err
	}

	now := time.Now()
	updated, err := c.tickets.Update(ctx, ticket.ID, map[string]interface{}{
		"escrow_frozen":    true,
		"escrow_frozen_at": now,
	})
	if err != nil {
		// The hold is keyed by ticket id; the ticket flag is only a mirror.
		log.WithError(err).Warn("Failed to mark ticket escrow frozen")
		ticket.EscrowFrozen = true
		ticket.EscrowFrozenAt = &now
	} else {
		*ticket = *updated
	}

	log.LogDisputeEvent(ticket.ID, "escrow_frozen", map[string]interface{}{"payment_id": paymentID.Hex()})
	return true, nil
}

func (c *EscrowCoordinator) fillNames(ctx context.Context, ticket *models.SupportTicket) {
	if user, err := c.users.GetByID(ctx, ticket.UserID); err == nil {
		ticket.UserName = user.Name
		ticket.UserEmail = user.Email
	}
	if ticket.ComplaintAgainstID != nil {
		if against, err := c.users.GetByID(ctx, *ticket.ComplaintAgainstID); err == nil {
			ticket.ComplaintAgainstName = against.Name
		}
	}
}

// AIReview stores an advisory verdict on a complaint. It never touches the payment.
func (c *EscrowCoordinator) AIReview(ctx context.Context, ticketID primitive.ObjectID) (*models.SupportTicket, error) {
	const op = "ai review"

	ticket, err := c.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, op, "ticket")
	}
	if !ticket.IsComplaint {
		return nil, newError(ErrNotAComplaint, op, "only complaints can be reviewed")
	}

	review := c.reviewer.Review(&ml.ReviewRequest{
		Category:      string(ticket.Category),
		Description:   ticket.Description,
		EvidenceCount: len(ticket.EvidenceURLs),
	})

	updated, err := c.tickets.Update(ctx, ticketID, map[string]interface{}{
		"ai_review_completed":  true,
		"ai_review_result":     models.AIReviewResult(review.Result),
		"ai_review_confidence": review.Confidence,
		"ai_review_notes":      review.Notes,
	})
	if err != nil {
		return nil, notFoundOr(err, op, "ticket")
	}

	c.logger.WithContext(ctx).LogDisputeEvent(ticketID, "ai_reviewed", map[string]interface{}{
		"result":     review.Result,
		"confidence": review.Confidence,
	})

	return updated, nil
}

// ResolveComplaint ends a dispute exactly once. The ticket is flipped to
// resolved first; only the caller that wins that update applies the outcome.
func (c *EscrowCoordinator) ResolveComplaint(ctx context.Context, input *ResolveInput) (*ResolveOutcome, error) {
	const op = "resolve complaint"

	if !input.Result.IsValid() {
		return nil, newError(ErrValidation, op, "unknown resolution result %q", input.Result)
	}

	ticket, err := c.tickets.GetByID(ctx, input.TicketID)
	if err != nil {
		return nil, notFoundOr(err, op, "ticket")
	}
	if !ticket.IsComplaint {
		return nil, newError(ErrNotAComplaint, op, "only complaints can be resolved here")
	}
	if ticket.Status.IsFinal() || ticket.AdminReviewCompleted {
		// Finish a resolution that stopped before dropping its hold.
		if ticket.AdminReviewCompleted && ticket.PaymentIDAffected != nil {
			if _, err := c.release(ctx, ticket); err != nil {
				c.logger.WithContext(ctx).WithTicketID(ticket.ID).WithError(err).Warn("Failed to release hold of resolved complaint")
			} else if ticket.EscrowFrozen {
				if _, err := c.tickets.Update(ctx, ticket.ID, map[string]interface{}{"escrow_frozen": false}); err != nil {
					c.logger.WithContext(ctx).WithTicketID(ticket.ID).WithError(err).Warn("Failed to update resolved ticket")
				}
			}
		}
		return nil, newError(ErrConflict, op, "complaint is already %s", ticket.Status)
	}

	resolution, err := c.prepareResolution(ctx, op, ticket, input)
	if err != nil {
		// A concurrent resolution may have moved the payment under us.
		if errors.Is(err, ErrInvalidState) {
			if current, getErr := c.tickets.GetByID(ctx, input.TicketID); getErr == nil && current.Status.IsFinal() {
				return nil, newError(ErrConflict, op, "complaint was resolved concurrently")
			}
		}
		return nil, err
	}

	resolved, err := c.tickets.Resolve(ctx, input.TicketID, resolution)
	if err != nil {
		if errors.Is(err, interfaces.ErrStaleState) {
			return nil, newError(ErrConflict, op, "complaint was resolved concurrently")
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log := c.logger.WithContext(ctx).WithTicketID(resolved.ID)
	log.LogDisputeEvent(resolved.ID, "complaint_resolved", map[string]interface{}{
		"result":      resolution.Result,
		"resolved_by": resolution.ResolvedBy.Hex(),
	})

	outcome := &ResolveOutcome{Ticket: resolved}
	ticketUpdates := make(map[string]interface{})

	// The outcome is applied best-effort; the hold is released whatever happens.
	var refundErr error
	switch {
	case input.Result.IsRefund():
		payment, err := c.ledger.RefundDisputed(ctx, *resolved.PaymentIDAffected, resolution.RefundAmount,
			fmt.Sprintf("complaint %s: %s", resolved.TicketNumber, resolution.Notes))
		if err != nil {
			log.WithError(err).Error("Resolved complaint but refund failed")
			refundErr = err
			ticketUpdates["refund_amount"] = 0.0
			ticketUpdates["resolution_error"] = "refund not applied: " + err.Error()
		} else {
			outcome.Payment = payment
		}

	case input.Result == models.ResolutionPenaltyProvider:
		if err := c.users.ApplyPenalty(ctx, *resolved.ComplaintAgainstID, &models.Penalty{
			Amount:   resolution.PenaltyAmount,
			Reason:   resolution.Notes,
			TicketID: resolved.ID,
			Date:     resolution.ResolvedAt,
		}); err != nil {
			log.WithError(err).Error("Resolved complaint but penalty was not recorded")
			ticketUpdates["resolution_error"] = "penalty not recorded: " + err.Error()
		} else {
			c.notifier.Notify(ctx, newNotification(*resolved.ComplaintAgainstID, models.NotificationTypePenaltyApplied,
				"Penalty Applied", fmt.Sprintf("A penalty of %.2f was applied after complaint %s", resolution.PenaltyAmount, resolved.TicketNumber),
				ticketLink(resolved.ID), nil))
		}
	}

	var releaseErr error
	if resolved.PaymentIDAffected != nil {
		payment, err := c.release(ctx, resolved)
		if err != nil {
			releaseErr = err
		} else {
			outcome.Payment = payment
		}
	}

	if resolved.EscrowFrozen && releaseErr == nil {
		ticketUpdates["escrow_frozen"] = false
	}
	if len(ticketUpdates) > 0 {
		updated, err := c.tickets.Update(ctx, resolved.ID, ticketUpdates)
		if err != nil {
			log.WithError(err).Warn("Failed to update resolved ticket")
		} else {
			outcome.Ticket = updated
		}
	}

	if releaseErr != nil {
		return nil, releaseErr
	}
	if refundErr != nil {
		return nil, refundErr
	}

	message := fmt.Sprintf("Complaint %s was resolved: %s", resolved.TicketNumber, strings.ReplaceAll(string(resolution.Result), "_", " "))
	c.notifier.Notify(ctx, newNotification(resolved.UserID, models.NotificationTypeComplaintResolved,
		"Complaint Resolved", message, ticketLink(resolved.ID), nil))
	if resolved.ComplaintAgainstID != nil {
		c.notifier.Notify(ctx, newNotification(*resolved.ComplaintAgainstID, models.NotificationTypeComplaintResolved,
			"Complaint Resolved", message, ticketLink(resolved.ID), nil))
	}

	return outcome, nil
}

// prepareResolution checks the outcome against the linked payment before the
// ticket is committed, so a rejected refund never leaves a resolved ticket.
func (c *EscrowCoordinator) prepareResolution(ctx context.Context, op string, ticket *models.SupportTicket, input *ResolveInput) (*models.TicketResolution, error) {
	resolution := &models.TicketResolution{
		Result:     input.Result,
		Notes:      input.Notes,
		ResolvedBy: input.OperatorID,
		ResolvedAt: time.Now(),
	}

	switch {
	case input.Result.IsRefund():
		if ticket.PaymentIDAffected == nil {
			return nil, newError(ErrValidation, op, "complaint has no payment to refund")
		}
		payment, err := c.ledger.GetPayment(ctx, *ticket.PaymentIDAffected)
		if err != nil {
			return nil, err
		}
		if payment.Status != models.PaymentStatusPending && payment.Status != models.PaymentStatusLocked {
			return nil, newError(ErrInvalidState, op, "cannot refund a %s payment", payment.Status)
		}

		resolution.RefundAmount = payment.Amount
		if input.Result == models.ResolutionRefundPartial {
			if input.RefundAmount == nil || *input.RefundAmount <= 0 {
				return nil, newError(ErrValidation, op, "partial refund needs a positive refund amount")
			}
			resolution.RefundAmount = *input.RefundAmount
		}
		if resolution.RefundAmount > payment.Amount {
			return nil, newError(ErrValidation, op, "refund amount exceeds payment amount %.2f", payment.Amount)
		}

	case input.Result == models.ResolutionPenaltyProvider:
		if ticket.ComplaintAgainstID == nil {
			return nil, newError(ErrValidation, op, "complaint names no provider to penalise")
		}
		if _, err := c.users.GetByID(ctx, *ticket.ComplaintAgainstID); err != nil {
			if errors.Is(err, interfaces.ErrNotFound) {
				return nil, newError(ErrValidation, op, "complaint target %s is not a known user", ticket.ComplaintAgainstID.Hex())
			}
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if input.PenaltyAmount != nil {
			if *input.PenaltyAmount < 0 {
				return nil, newError(ErrValidation, op, "penalty amount cannot be negative")
			}
			resolution.PenaltyAmount = *input.PenaltyAmount
		}
	}

	return resolution, nil
}

// release drops the ticket's hold on its payment. The payment stays frozen
// while another complaint still holds it.
func (c *EscrowCoordinator) release(ctx context.Context, ticket *models.SupportTicket) (*models.Payment, error) {
	paymentID := *ticket.PaymentIDAffected
	log := c.logger.WithContext(ctx).WithTicketID(ticket.ID).WithPaymentID(paymentID)

	payment, err := c.ledger.UnfreezeEscrow(ctx, paymentID, ticket.ID)
	if err != nil {
		log.WithError(err).Error("Resolved complaint but unfreeze failed")
		return nil, err
	}
	if payment.EscrowFrozen {
		log.WithField("holds", len(payment.DisputeHolds)).Info("Payment stays frozen for other open complaints")
	}
	return payment, nil
}

func ticketLink(id primitive.ObjectID) string {
	return "/support/tickets/" + id.Hex()
}
