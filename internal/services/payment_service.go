package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trustedhands/internal/config"
	"trustedhands/internal/models"
	"trustedhands/internal/repositories/interfaces"
	"trustedhands/internal/utils"
	"trustedhands/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID   primitive.ObjectID
	Role models.UserRole
}

type VerifyPaymentInput struct {
	PaymentID          primitive.ObjectID
	UPITransactionID   string
	UPIReferenceNumber string
	VerifiedBy         primitive.ObjectID
}

type UpdatePaymentSettingsInput struct {
	AdminUPIID      string
	AdminUPIName    string
	AdminQRCodeURL  string
	EscrowEnabled   bool
	AutoReleaseDays int
	UpdatedBy       primitive.ObjectID
}

const defaultAutoReleaseDays = 3

// PaymentService is the handler-facing surface of the payment ledger.
type PaymentService interface {
	InitiatePayment(ctx context.Context, bookingID primitive.ObjectID, method models.PaymentMethod, actor Actor) (*models.Payment, error)
	VerifyPayment(ctx context.Context, input *VerifyPaymentInput) (*models.Payment, error)
	FailPayment(ctx context.Context, paymentID primitive.ObjectID, reason string) (*models.Payment, error)
	ReleasePayment(ctx context.Context, paymentID primitive.ObjectID, notes string, actor Actor) (*models.Payment, error)
	RefundPayment(ctx context.Context, paymentID primitive.ObjectID, reason string) (*models.Payment, error)

	GetPayment(ctx context.Context, paymentID primitive.ObjectID) (*models.Payment, error)
	GetPaymentByBooking(ctx context.Context, bookingID primitive.ObjectID) (*models.Payment, error)
	GetPaymentStatus(ctx context.Context, paymentID primitive.ObjectID) (*models.PaymentStatusView, error)
	ListPayments(ctx context.Context, actor Actor, params *utils.PaginationParams) ([]*models.Payment, int64, error)
	PaymentHistory(ctx context.Context, paymentID primitive.ObjectID, params *utils.PaginationParams) ([]*models.AuditLog, int64, error)

	GetPaymentSettings(ctx context.Context) (*models.PaymentSettings, error)
	UpdatePaymentSettings(ctx context.Context, input *UpdatePaymentSettingsInput) (*models.PaymentSettings, error)
}

// EscrowLedger is reserved for the escrow coordinator. These operations
// change custody as a side effect of a dispute.
type EscrowLedger interface {
	GetPayment(ctx context.Context, paymentID primitive.ObjectID) (*models.Payment, error)
	GetPaymentByBooking(ctx context.Context, bookingID primitive.ObjectID) (*models.Payment, error)
	FreezeEscrow(ctx context.Context, paymentID, ticketID primitive.ObjectID, reason string) (*models.Payment, error)
	UnfreezeEscrow(ctx context.Context, paymentID, ticketID primitive.ObjectID) (*models.Payment, error)
	RefundDisputed(ctx context.Context, paymentID primitive.ObjectID, amount float64, reason string) (*models.Payment, error)
}

// PaymentLedger owns payment custody. Every status change is a single
// conditional update on the stored status and freeze flag.
type PaymentLedger struct {
	payments interfaces.PaymentRepository
	bookings interfaces.BookingRepository
	audit    interfaces.AuditLogRepository
	settings interfaces.PaymentSettingsRepository
	notifier Notifier
	config   *config.EscrowConfig
	logger   *logger.Logger
}

func NewPaymentLedger(
	payments interfaces.PaymentRepository,
	bookings interfaces.BookingRepository,
	audit interfaces.AuditLogRepository,
	settings interfaces.PaymentSettingsRepository,
	notifier Notifier,
	cfg *config.EscrowConfig,
	log *logger.Logger,
) *PaymentLedger {
	return &PaymentLedger{
		payments: payments,
		bookings: bookings,
		audit:    audit,
		settings: settings,
		notifier: notifier,
		config:   cfg,
		logger:   log,
	}
}

var (
	_ PaymentService = (*PaymentLedger)(nil)
	_ EscrowLedger   = (*PaymentLedger)(nil)
)

func (l *PaymentLedger) InitiatePayment(ctx context.Context, bookingID primitive.ObjectID, method models.PaymentMethod, actor Actor) (*models.Payment, error) {
	const op = "initiate payment"

	booking, err := l.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, notFoundOr(err, op, "booking")
	}
	if booking.CustomerID != actor.ID && !actor.Role.IsOperator() {
		return nil, newError(ErrForbidden, op, "only the booking's customer can pay for it")
	}

	existing, err := l.payments.GetByBookingID(ctx, bookingID)
	if err == nil {
		return l.existingPayment(op, existing)
	}
	if !errors.Is(err, interfaces.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if booking.TotalAmount <= 0 {
		return nil, newError(ErrValidation, op, "booking amount must be positive")
	}
	if method == "" {
		method = models.PaymentMethodUPIQR
	}
	if !method.IsValid() {
		return nil, newError(ErrValidation, op, "unsupported payment method %q", method)
	}

	settings, err := l.GetPaymentSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	payment := &models.Payment{
		BookingID:      booking.ID,
		CustomerID:     booking.CustomerID,
		ProviderID:     booking.ProviderID,
		Amount:         booking.TotalAmount,
		Currency:       l.config.Currency,
		PaymentMethod:  method,
		Status:         models.PaymentStatusPending,
		AdminUPIID:     settings.AdminUPIID,
		AdminQRCodeURL: settings.AdminQRCodeURL,
	}

	if err := l.payments.Create(ctx, payment); err != nil {
		if !errors.Is(err, interfaces.ErrDuplicate) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		// Lost a race with a concurrent initiate for the same booking.
		existing, err := l.payments.GetByBookingID(ctx, bookingID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return l.existingPayment(op, existing)
	}

	l.logger.WithContext(ctx).LogPaymentEvent(payment.ID, "initiated", payment.Amount, payment.Currency)
	l.syncBooking(ctx, payment)
	l.notifier.Notify(ctx, newNotification(payment.CustomerID, models.NotificationTypePaymentInitiated,
		"Payment Pending",
		fmt.Sprintf("Pay %.2f %s to %s to confirm your booking", payment.Amount, payment.Currency, payment.AdminUPIID),
		paymentLink(payment.ID), nil))

	return payment, nil
}

func (l *PaymentLedger) existingPayment(op string, payment *models.Payment) (*models.Payment, error) {
	if payment.Status.IsTerminal() {
		return nil, newError(ErrConflict, op, "booking already has a %s payment", payment.Status)
	}
	return payment, nil
}

func (l *PaymentLedger) VerifyPayment(ctx context.Context, input *VerifyPaymentInput) (*models.Payment, error) {
	const op = "verify payment"

	if input.UPITransactionID == "" {
		return nil, newError(ErrValidation, op, "transaction reference is required")
	}

	now := time.Now()
	payment, err := l.apply(ctx, op, input.PaymentID, models.PaymentActionVerify, false, map[string]interface{}{
		"upi_transaction_id":   input.UPITransactionID,
		"upi_reference_number": input.UPIReferenceNumber,
		"is_verified":          true,
		"verified_at":          now,
		"verified_by":          input.VerifiedBy,
		"paid_at":              now,
		"locked_at":            now,
	})
	if err != nil {
		return nil, err
	}

	l.logger.WithContext(ctx).LogPaymentEvent(payment.ID, "locked", payment.Amount, payment.Currency)
	l.record(ctx, models.PaymentActionVerify, &input.VerifiedBy, models.PaymentStatusPending, false, payment)
	l.syncBooking(ctx, payment)
	message := fmt.Sprintf("%.2f %s is now held in escrow", payment.Amount, payment.Currency)
	for _, userID := range []primitive.ObjectID{payment.CustomerID, payment.ProviderID} {
		l.notifier.Notify(ctx, newNotification(userID, models.NotificationTypePaymentLocked,
			"Payment Verified", message, paymentLink(payment.ID), nil))
	}

	return payment, nil
}

func (l *PaymentLedger) FailPayment(ctx context.Context, paymentID primitive.ObjectID, reason string) (*models.Payment, error) {
	const op = "fail payment"

	payment, err := l.apply(ctx, op, paymentID, models.PaymentActionFail, false, map[string]interface{}{
		"failure_reason": reason,
		"failed_at":      time.Now(),
	})
	if err != nil {
		return nil, err
	}

	l.logger.WithContext(ctx).WithField("reason", reason).LogPaymentEvent(payment.ID, "failed", payment.Amount, payment.Currency)
	l.record(ctx, models.PaymentActionFail, nil, models.PaymentStatusPending, false, payment)
	l.syncBooking(ctx, payment)
	l.notifier.Notify(ctx, newNotification(payment.CustomerID, models.NotificationTypePaymentFailed,
		"Payment Not Verified", "We could not verify your payment: "+reason, paymentLink(payment.ID), nil))

	return payment, nil
}

func (l *PaymentLedger) ReleasePayment(ctx context.Context, paymentID primitive.ObjectID, notes string, actor Actor) (*models.Payment, error) {
	const op = "release payment"

	current, err := l.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, notFoundOr(err, op, "payment")
	}
	if current.CustomerID != actor.ID && !actor.Role.IsOperator() {
		return nil, newError(ErrForbidden, op, "only the customer or an operator can release a payment")
	}

	set := map[string]interface{}{"released_at": time.Now()}
	if notes != "" {
		set["payment_notes"] = notes
	}

	payment, err := l.apply(ctx, op, paymentID, models.PaymentActionRelease, true, set)
	if err != nil {
		return nil, err
	}

	l.logger.WithContext(ctx).LogPaymentEvent(payment.ID, "released", payment.Amount, payment.Currency)
	l.record(ctx, models.PaymentActionRelease, &actor.ID, current.Status, false, payment)
	l.syncBooking(ctx, payment)
	l.notifier.Notify(ctx, newNotification(payment.ProviderID, models.NotificationTypePaymentReleased,
		"Payment Released", fmt.Sprintf("%.2f %s has been released to you", payment.Amount, payment.Currency),
		paymentLink(payment.ID), nil))
	l.notifier.Notify(ctx, newNotification(payment.CustomerID, models.NotificationTypePaymentReleased,
		"Payment Released", "Your payment has been released to the provider",
		paymentLink(payment.ID), nil))

	return payment, nil
}

// RefundPayment is the ordinary refund path. It is refused while a dispute
// holds the escrow.
func (l *PaymentLedger) RefundPayment(ctx context.Context, paymentID primitive.ObjectID, reason string) (*models.Payment, error) {
	const op = "refund payment"

	current, err := l.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, notFoundOr(err, op, "payment")
	}

	payment, err := l.apply(ctx, op, paymentID, models.PaymentActionRefund, true, map[string]interface{}{
		"refund_amount": current.Amount,
		"refund_reason": reason,
		"refunded_at":   time.Now(),
	})
	if err != nil {
		return nil, err
	}

	l.afterRefund(ctx, current, payment)
	return payment, nil
}

// RefundDisputed refunds as the outcome of a dispute. It ignores the freeze
// and clears it, with every hold, in the same update.
func (l *PaymentLedger) RefundDisputed(ctx context.Context, paymentID primitive.ObjectID, amount float64, reason string) (*models.Payment, error) {
	const op = "refund disputed payment"

	current, err := l.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, notFoundOr(err, op, "payment")
	}
	if amount <= 0 || amount > current.Amount {
		return nil, newError(ErrValidation, op, "refund amount must be greater than 0 and at most %.2f", current.Amount)
	}

	now := time.Now()
	set := map[string]interface{}{
		"refund_amount": amount,
		"refund_reason": reason,
		"refunded_at":   now,
		"escrow_frozen": false,
		"dispute_holds": []primitive.ObjectID{},
	}
	if current.EscrowFrozen {
		set["escrow_unfrozen_at"] = now
	}

	payment, err := l.apply(ctx, op, paymentID, models.PaymentActionRefund, false, set)
	if err != nil {
		return nil, err
	}

	l.afterRefund(ctx, current, payment)
	return payment, nil
}

func (l *PaymentLedger) afterRefund(ctx context.Context, previous, payment *models.Payment) {
	l.logger.WithContext(ctx).WithField("refund_amount", payment.RefundAmount).
		LogPaymentEvent(payment.ID, "refunded", payment.Amount, payment.Currency)
	l.record(ctx, models.PaymentActionRefund, nil, previous.Status, previous.EscrowFrozen, payment)
	l.syncBooking(ctx, payment)
	l.notifier.Notify(ctx, newNotification(payment.CustomerID, models.NotificationTypePaymentRefunded,
		"Payment Refunded", fmt.Sprintf("%.2f %s is being refunded to you", payment.RefundAmount, payment.Currency),
		paymentLink(payment.ID), nil))
}

// FreezeEscrow puts a dispute hold for ticketID on a locked payment. The
// escrow stays frozen until every hold is released. Adding a hold the
// ticket already has returns the payment unchanged.
func (l *PaymentLedger) FreezeEscrow(ctx context.Context, paymentID, ticketID primitive.ObjectID, reason string) (*models.Payment, error) {
	const op = "freeze escrow"

	from := models.PaymentSourceStatuses(models.PaymentActionFreeze)
	payment, err := l.payments.Transition(ctx, paymentID, &models.PaymentTransition{
		Action:  models.PaymentActionFreeze,
		From:    from,
		AddHold: &ticketID,
		Set: map[string]interface{}{
			"escrow_frozen_reason": reason,
			"escrow_frozen_at":     time.Now(),
		},
	})
	if err != nil {
		if !errors.Is(err, interfaces.ErrStaleState) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		current, err := l.payments.GetByID(ctx, paymentID)
		if err != nil {
			return nil, notFoundOr(err, op, "payment")
		}
		return nil, newError(ErrInvalidState, op, "only locked payments can be frozen, payment is %s", current.Status)
	}

	log := l.logger.WithContext(ctx).WithTicketID(ticketID).WithField("holds", len(payment.DisputeHolds))
	if len(payment.DisputeHolds) == 1 {
		log.WithField("reason", reason).LogPaymentEvent(payment.ID, "frozen", payment.Amount, payment.Currency)
		l.record(ctx, models.PaymentActionFreeze, nil, payment.Status, false, payment)
	} else {
		log.LogPaymentEvent(payment.ID, "hold_added", payment.Amount, payment.Currency)
	}
	return payment, nil
}

// UnfreezeEscrow releases the hold of ticketID. The freeze is lifted in the
// same update only when no other hold remains. Releasing a hold the ticket
// does not have returns the payment unchanged.
func (l *PaymentLedger) UnfreezeEscrow(ctx context.Context, paymentID, ticketID primitive.ObjectID) (*models.Payment, error) {
	const op = "unfreeze escrow"

	payment, err := l.payments.Transition(ctx, paymentID, &models.PaymentTransition{
		Action:      models.PaymentActionUnfreeze,
		From:        models.PaymentStatuses,
		ReleaseHold: &ticketID,
		Set: map[string]interface{}{
			"escrow_unfrozen_at": time.Now(),
		},
	})
	if err != nil {
		if !errors.Is(err, interfaces.ErrStaleState) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		current, err := l.payments.GetByID(ctx, paymentID)
		if err != nil {
			return nil, notFoundOr(err, op, "payment")
		}
		if current.HeldBy(ticketID) {
			return nil, fmt.Errorf("%s: hold of ticket %s was not released", op, ticketID.Hex())
		}
		return current, nil
	}

	log := l.logger.WithContext(ctx).WithTicketID(ticketID).WithField("holds", len(payment.DisputeHolds))
	if !payment.EscrowFrozen {
		log.LogPaymentEvent(payment.ID, "unfrozen", payment.Amount, payment.Currency)
		l.record(ctx, models.PaymentActionUnfreeze, nil, payment.Status, true, payment)
	} else {
		log.LogPaymentEvent(payment.ID, "hold_released", payment.Amount, payment.Currency)
	}
	return payment, nil
}

func (l *PaymentLedger) GetPayment(ctx context.Context, paymentID primitive.ObjectID) (*models.Payment, error) {
	payment, err := l.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, notFoundOr(err, "get payment", "payment")
	}
	return payment, nil
}

func (l *PaymentLedger) GetPaymentByBooking(ctx context.Context, bookingID primitive.ObjectID) (*models.Payment, error) {
	payment, err := l.payments.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, notFoundOr(err, "get payment by booking", "payment")
	}
	return payment, nil
}

func (l *PaymentLedger) GetPaymentStatus(ctx context.Context, paymentID primitive.ObjectID) (*models.PaymentStatusView, error) {
	payment, err := l.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return payment.StatusView(), nil
}

func (l *PaymentLedger) ListPayments(ctx context.Context, actor Actor, params *utils.PaginationParams) ([]*models.Payment, int64, error) {
	if actor.Role == models.UserRoleTasker {
		return l.payments.GetByProviderID(ctx, actor.ID, params)
	}
	return l.payments.GetByCustomerID(ctx, actor.ID, params)
}

// PaymentHistory lists the custody changes of a payment, oldest first.
func (l *PaymentLedger) PaymentHistory(ctx context.Context, paymentID primitive.ObjectID, params *utils.PaginationParams) ([]*models.AuditLog, int64, error) {
	if _, err := l.GetPayment(ctx, paymentID); err != nil {
		return nil, 0, err
	}
	return l.audit.GetResourceHistory(ctx, models.AuditResourcePayment, paymentID.Hex(), params)
}

// apply runs one table-driven transition and, when the conditional update
// misses, reloads the payment to report why.
// GetPaymentSettings returns the saved escrow account, or the configured
// defaults with IsConfigured false when no operator has saved one.
func (l *PaymentLedger) GetPaymentSettings(ctx context.Context) (*models.PaymentSettings, error) {
	settings, err := l.settings.GetActive(ctx)
	if err == nil {
		settings.IsConfigured = true
		return settings, nil
	}
	if !errors.Is(err, interfaces.ErrNotFound) {
		return nil, fmt.Errorf("get payment settings: %w", err)
	}

	return &models.PaymentSettings{
		AdminUPIID:      l.config.AdminUPIID,
		AdminUPIName:    l.config.AdminName,
		AdminQRCodeURL:  l.config.AdminQRCodeURL,
		EscrowEnabled:   true,
		AutoReleaseDays: defaultAutoReleaseDays,
	}, nil
}

func (l *PaymentLedger) UpdatePaymentSettings(ctx context.Context, input *UpdatePaymentSettingsInput) (*models.PaymentSettings, error) {
	const op = "update payment settings"

	if input.AdminUPIID == "" || input.AdminUPIName == "" {
		return nil, newError(ErrValidation, op, "UPI id and account name are required")
	}
	if input.AutoReleaseDays < 0 {
		return nil, newError(ErrValidation, op, "auto release days cannot be negative")
	}

	updatedBy := input.UpdatedBy
	settings, err := l.settings.Upsert(ctx, &models.PaymentSettings{
		AdminUPIID:      input.AdminUPIID,
		AdminUPIName:    input.AdminUPIName,
		AdminQRCodeURL:  input.AdminQRCodeURL,
		EscrowEnabled:   input.EscrowEnabled,
		AutoReleaseDays: input.AutoReleaseDays,
		UpdatedBy:       &updatedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	settings.IsConfigured = true

	l.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"admin_upi_id": settings.AdminUPIID,
		"updated_by":   updatedBy.Hex(),
	}).Info("Payment settings updated")

	return settings, nil
}

func (l *PaymentLedger) apply(ctx context.Context, op string, paymentID primitive.ObjectID, action models.PaymentAction, requireUnfrozen bool, set map[string]interface{}) (*models.Payment, error) {
	from := models.PaymentSourceStatuses(action)
	next, ok := models.NextPaymentStatus(from[0], action)
	if !ok {
		return nil, fmt.Errorf("%s: no transition for %s", op, action)
	}
	set["status"] = next

	payment, err := l.payments.Transition(ctx, paymentID, &models.PaymentTransition{
		Action:          action,
		From:            from,
		RequireUnfrozen: requireUnfrozen,
		Set:             set,
	})
	if err == nil {
		return payment, nil
	}
	if !errors.Is(err, interfaces.ErrStaleState) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	current, err := l.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, notFoundOr(err, op, "payment")
	}
	if requireUnfrozen && current.EscrowFrozen && statusIn(current.Status, from) {
		return nil, newError(ErrEscrowFrozen, op, "payment is held by an open dispute")
	}
	return nil, newError(ErrInvalidState, op, "cannot %s a %s payment", action, current.Status)
}

// syncBooking mirrors the payment status onto the booking. Failures are logged only.
func (l *PaymentLedger) syncBooking(ctx context.Context, payment *models.Payment) {
	status := models.BookingPaymentStatusFor(payment.Status)
	if err := l.bookings.UpdatePaymentStatus(ctx, payment.BookingID, status, payment.ID); err != nil {
		l.logger.WithContext(ctx).WithPaymentID(payment.ID).WithError(err).Warn("Failed to sync booking payment status")
	}
}

// record appends a custody change to the audit trail. Failures are logged only.
func (l *PaymentLedger) record(ctx context.Context, action models.PaymentAction, userID *primitive.ObjectID, previous models.PaymentStatus, wasFrozen bool, payment *models.Payment) {
	entry := models.NewPaymentAudit(action, userID, previous, wasFrozen, payment)
	if requestID, ok := ctx.Value(logger.RequestIDKey).(string); ok {
		entry.RequestID = requestID
	}
	if err := l.audit.Create(ctx, entry); err != nil {
		l.logger.WithContext(ctx).WithPaymentID(payment.ID).WithError(err).Warn("Failed to record payment audit entry")
	}
}

func statusIn(status models.PaymentStatus, from []models.PaymentStatus) bool {
	for _, s := range from {
		if s == status {
			return true
		}
	}
	return false
}

func paymentLink(id primitive.ObjectID) string {
	return "/payments/" + id.Hex()
}
