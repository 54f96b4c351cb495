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
	"trustedhands/internal/utils"
	"trustedhands/pkg/cache"
	"trustedhands/pkg/logger"
	"trustedhands/pkg/ml"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ticketNumberAttempts = 5
	maxThreadMessages    = 500
)

type CreateTicketInput struct {
	UserID              primitive.ObjectID
	UserRole            models.UserRole
	Category            models.TicketCategory
	Subject             string
	Description         string
	BookingID           *primitive.ObjectID
	PaymentID           *primitive.ObjectID
	IsComplaint         bool
	ComplaintAgainstID  *primitive.ObjectID
	EvidenceURLs        []string
	EvidenceDescription string
}

type UpdateTicketInput struct {
	Status            models.TicketStatus
	Priority          models.TicketPriority
	AssignedTo        *primitive.ObjectID
	AssignedAgentName string
	ResolutionNotes   string
}

type AddMessageInput struct {
	TicketID    primitive.ObjectID
	Message     string
	Attachments []string
	Actor       Actor
}

type SupportService struct {
	tickets     interfaces.SupportTicketRepository
	messages    interfaces.TicketMessageRepository
	users       interfaces.UserRepository
	coordinator *EscrowCoordinator
	classifier  ml.SeverityClassifier
	cache       CacheService
	notifier    Notifier
	config      *config.EscrowConfig
	logger      *logger.Logger
}

func NewSupportService(
	tickets interfaces.SupportTicketRepository,
	messages interfaces.TicketMessageRepository,
	users interfaces.UserRepository,
	coordinator *EscrowCoordinator,
	classifier ml.SeverityClassifier,
	cache CacheService,
	notifier Notifier,
	cfg *config.EscrowConfig,
	log *logger.Logger,
) *SupportService {
	return &SupportService{
		tickets:     tickets,
		messages:    messages,
		users:       users,
		coordinator: coordinator,
		classifier:  classifier,
		cache:       cache,
		notifier:    notifier,
		config:      cfg,
		logger:      log,
	}
}

// CreateTicket files a support ticket. Complaints go through the escrow
// coordinator so the linked payment is frozen.
func (s *SupportService) CreateTicket(ctx context.Context, input *CreateTicketInput) (*ComplaintOutcome, error) {
	const op = "create ticket"

	if input.IsComplaint || input.Category.IsComplaint() {
		complaint := &FileComplaintInput{
			UserID:              input.UserID,
			UserRole:            input.UserRole,
			Category:            input.Category,
			Subject:             input.Subject,
			Description:         input.Description,
			PaymentID:           input.PaymentID,
			EvidenceURLs:        input.EvidenceURLs,
			EvidenceDescription: input.EvidenceDescription,
		}
		if input.BookingID != nil {
			complaint.BookingID = *input.BookingID
		}
		if input.ComplaintAgainstID != nil {
			complaint.ComplaintAgainstID = *input.ComplaintAgainstID
		}

		return s.FileComplaint(ctx, complaint)
	}

	if !input.Category.IsValid() {
		return nil, newError(ErrValidation, op, "unknown category %q", input.Category)
	}
	if strings.TrimSpace(input.Subject) == "" || strings.TrimSpace(input.Description) == "" {
		return nil, newError(ErrValidation, op, "subject and description are required")
	}

	triage := s.classifier.Classify(&ml.TriageRequest{
		Category:    string(input.Category),
		Subject:     input.Subject,
		Description: input.Description,
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
		BookingID:           input.BookingID,
		PaymentID:           input.PaymentID,
		AutoEscalated:       triage.AutoEscalated,
		EscalationReason:    triage.EscalationReason,
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

	if err := insertTicket(ctx, s.tickets, ticket); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidateStatistics(ctx)

	s.logger.WithContext(ctx).WithTicketID(ticket.ID).WithFields(map[string]interface{}{
		"category":       ticket.Category,
		"tier":           ticket.Tier,
		"priority":       ticket.Priority,
		"auto_escalated": ticket.AutoEscalated,
	}).Info("Support ticket created")

	message := "Ticket created. Our assistant will help you shortly."
	if ticket.Tier == models.TicketTierHuman {
		message = "Ticket created and routed to a support agent."
	}
	return &ComplaintOutcome{Ticket: ticket, Message: message}, nil
}

// FileComplaint files a complaint through the escrow coordinator.
func (s *SupportService) FileComplaint(ctx context.Context, input *FileComplaintInput) (*ComplaintOutcome, error) {
	outcome, err := s.coordinator.FileComplaint(ctx, input)
	if err == nil {
		s.invalidateStatistics(ctx)
	}
	return outcome, err
}

// ResolveComplaint resolves a complaint through the escrow coordinator. A
// failed resolution may still have closed the ticket, so the cached
// statistics are dropped either way.
func (s *SupportService) ResolveComplaint(ctx context.Context, input *ResolveInput) (*ResolveOutcome, error) {
	outcome, err := s.coordinator.ResolveComplaint(ctx, input)
	s.invalidateStatistics(ctx)
	return outcome, err
}

func (s *SupportService) GetTicket(ctx context.Context, ticketID primitive.ObjectID, actor Actor) (*models.SupportTicket, error) {
	const op = "get ticket"

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, op, "ticket")
	}
	if ticket.UserID != actor.ID && !actor.Role.IsOperator() {
		return nil, newError(ErrForbidden, op, "ticket belongs to another user")
	}
	return ticket, nil
}

// AddMessage appends to the ticket's thread. Operators post as agents and
// everyone else as the customer side.
func (s *SupportService) AddMessage(ctx context.Context, input *AddMessageInput) (*models.TicketMessage, error) {
	const op = "add message"

	if strings.TrimSpace(input.Message) == "" {
		return nil, newError(ErrValidation, op, "message is required")
	}
	if len(input.Attachments) > s.config.MaxEvidenceItems {
		return nil, newError(ErrValidation, op, "at most %d attachments are allowed", s.config.MaxEvidenceItems)
	}

	ticket, err := s.GetTicket(ctx, input.TicketID, input.Actor)
	if err != nil {
		return nil, err
	}

	senderType := models.MessageSenderCustomer
	if input.Actor.Role.IsOperator() {
		senderType = models.MessageSenderAgent
	}

	senderName := string(input.Actor.Role)
	if sender, err := s.users.GetByID(ctx, input.Actor.ID); err == nil {
		senderName = sender.Name
	} else if !errors.Is(err, interfaces.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	message := &models.TicketMessage{
		TicketID:    ticket.ID,
		SenderID:    input.Actor.ID,
		SenderName:  senderName,
		SenderType:  senderType,
		Message:     input.Message,
		Attachments: input.Attachments,
	}
	if err := s.messages.Create(ctx, message); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// Bumps updated_at so the ticket sorts as recently active.
	if _, err := s.tickets.Update(ctx, ticket.ID, map[string]interface{}{}); err != nil {
		s.logger.WithContext(ctx).WithTicketID(ticket.ID).WithError(err).Warn("Failed to touch ticket after message")
	}

	return message, nil
}

// ListMessages returns the thread oldest first.
func (s *SupportService) ListMessages(ctx context.Context, ticketID primitive.ObjectID, actor Actor) ([]*models.TicketMessage, error) {
	ticket, err := s.GetTicket(ctx, ticketID, actor)
	if err != nil {
		return nil, err
	}

	messages, err := s.messages.ListByTicket(ctx, ticket.ID, maxThreadMessages)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

func (s *SupportService) ListUserTickets(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.SupportTicket, int64, error) {
	return s.tickets.List(ctx, &models.TicketFilter{UserID: &userID}, params)
}

func (s *SupportService) ListTickets(ctx context.Context, filter *models.TicketFilter, params *utils.PaginationParams) ([]*models.SupportTicket, int64, error) {
	return s.tickets.List(ctx, filter, params)
}

// UpdateTicket is the operator's general edit. Complaints can only be
// resolved through ResolveComplaint.
func (s *SupportService) UpdateTicket(ctx context.Context, ticketID primitive.ObjectID, input *UpdateTicketInput) (*models.SupportTicket, error) {
	const op = "update ticket"

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, op, "ticket")
	}

	updates := make(map[string]interface{})
	if input.Status != "" {
		if !input.Status.IsValid() {
			return nil, newError(ErrValidation, op, "unknown status %q", input.Status)
		}
		if ticket.IsComplaint && input.Status.IsFinal() {
			return nil, newError(ErrValidation, op, "complaints must be closed through dispute resolution")
		}
		updates["status"] = input.Status
		if input.Status == models.TicketStatusResolved {
			updates["resolved_at"] = time.Now()
		}
	}
	if input.Priority != "" {
		if !input.Priority.IsValid() {
			return nil, newError(ErrValidation, op, "unknown priority %q", input.Priority)
		}
		updates["priority"] = input.Priority
	}
	if input.AssignedTo != nil {
		updates["assigned_to"] = *input.AssignedTo
		updates["assigned_agent_name"] = input.AssignedAgentName
		updates["assigned_at"] = time.Now()
	}
	if input.ResolutionNotes != "" {
		updates["resolution_notes"] = input.ResolutionNotes
	}
	if len(updates) == 0 {
		return ticket, nil
	}

	updated, err := s.tickets.Update(ctx, ticketID, updates)
	if err != nil {
		return nil, notFoundOr(err, op, "ticket")
	}
	s.invalidateStatistics(ctx)

	s.logger.WithContext(ctx).WithTicketID(ticketID).WithField("status", updated.Status).Info("Support ticket updated")
	return updated, nil
}

// EscalateTicket hands a ticket to a human agent at high priority. The
// ticket status is left alone. Repeating it only updates the reason.
func (s *SupportService) EscalateTicket(ctx context.Context, ticketID primitive.ObjectID, reason string, actor Actor) (*models.SupportTicket, error) {
	const op = "escalate ticket"

	if strings.TrimSpace(reason) == "" {
		return nil, newError(ErrValidation, op, "escalation reason is required")
	}

	if _, err := s.GetTicket(ctx, ticketID, actor); err != nil {
		return nil, err
	}

	updated, err := s.tickets.Update(ctx, ticketID, map[string]interface{}{
		"tier":              models.TicketTierHuman,
		"priority":          models.TicketPriorityHigh,
		"auto_escalated":    false,
		"escalation_reason": reason,
		"escalated_at":      time.Now(),
	})
	if err != nil {
		return nil, notFoundOr(err, op, "ticket")
	}
	s.invalidateStatistics(ctx)

	s.logger.WithContext(ctx).LogDisputeEvent(ticketID, "ticket_escalated", map[string]interface{}{
		"reason":       reason,
		"escalated_by": actor.ID.Hex(),
	})
	s.notifier.Notify(ctx, newNotification(updated.UserID, models.NotificationTypeTicketEscalated,
		"Ticket Escalated", fmt.Sprintf("Ticket %s has been passed to a support agent", updated.TicketNumber),
		ticketLink(updated.ID), nil))

	return updated, nil
}

func (s *SupportService) RateTicket(ctx context.Context, ticketID primitive.ObjectID, rating int, feedback string, actor Actor) (*models.SupportTicket, error) {
	const op = "rate ticket"

	if rating < utils.MinTicketRating || rating > utils.MaxTicketRating {
		return nil, newError(ErrValidation, op, "rating must be between %d and %d", utils.MinTicketRating, utils.MaxTicketRating)
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, op, "ticket")
	}
	if ticket.UserID != actor.ID {
		return nil, newError(ErrForbidden, op, "only the ticket owner can rate it")
	}
	if !ticket.Status.IsFinal() {
		return nil, newError(ErrInvalidState, op, "only resolved tickets can be rated")
	}

	updated, err := s.tickets.Update(ctx, ticketID, map[string]interface{}{
		"customer_rating":   rating,
		"customer_feedback": feedback,
	})
	if err != nil {
		return nil, notFoundOr(err, op, "ticket")
	}
	return updated, nil
}

// GetStatistics returns ticket counts, served from the cache when one is configured.
func (s *SupportService) GetStatistics(ctx context.Context) (*models.TicketStatistics, error) {
	if s.cache != nil {
		var cached models.TicketStatistics
		err := s.cache.Get(ctx, utils.CacheStatisticsKey, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to read cached statistics")
		}
	}

	stats, err := s.tickets.GetStatistics(ctx)
	if err != nil {
		return nil, fmt.Errorf("get statistics: %w", err)
	}

	if s.cache != nil {
		ttl := s.config.StatisticsCacheTTL
		if ttl <= 0 {
			ttl = utils.StatisticsCacheTTL
		}
		if err := s.cache.Set(ctx, utils.CacheStatisticsKey, stats, ttl); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to cache statistics")
		}
	}

	return stats, nil
}

func (s *SupportService) invalidateStatistics(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, utils.CacheStatisticsKey); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Failed to invalidate cached statistics")
	}
}

// insertTicket assigns a ticket number and stores the ticket, drawing a new
// number when the random one is already taken.
func insertTicket(ctx context.Context, repo interfaces.SupportTicketRepository, ticket *models.SupportTicket) error {
	var err error
	for attempt := 0; attempt < ticketNumberAttempts; attempt++ {
		ticket.TicketNumber = utils.GenerateTicketNumber(time.Now())
		err = repo.Create(ctx, ticket)
		if !errors.Is(err, interfaces.ErrDuplicate) {
			return err
		}
	}
	return err
}
