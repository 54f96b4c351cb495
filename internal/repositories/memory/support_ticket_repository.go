package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"trustedhands/internal/models"
	"trustedhands/internal/repositories/interfaces"
	"trustedhands/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SupportTicketRepository struct {
	mu      sync.RWMutex
	tickets map[primitive.ObjectID]models.SupportTicket
	numbers map[string]primitive.ObjectID
}

func NewSupportTicketRepository() *SupportTicketRepository {
	return &SupportTicketRepository{
		tickets: make(map[primitive.ObjectID]models.SupportTicket),
		numbers: make(map[string]primitive.ObjectID),
	}
}

var _ interfaces.SupportTicketRepository = (*SupportTicketRepository)(nil)

func (r *SupportTicketRepository) Create(ctx context.Context, ticket *models.SupportTicket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.numbers[ticket.TicketNumber]; exists {
		return fmt.Errorf("ticket %s: %w", ticket.TicketNumber, interfaces.ErrDuplicate)
	}

	if ticket.ID.IsZero() {
		ticket.ID = primitive.NewObjectID()
	}
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt

	r.tickets[ticket.ID] = *ticket
	r.numbers[ticket.TicketNumber] = ticket.ID
	return nil
}

func (r *SupportTicketRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.SupportTicket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ticket, ok := r.tickets[id]
	if !ok {
		return nil, fmt.Errorf("support ticket: %w", interfaces.ErrNotFound)
	}
	return &ticket, nil
}

func (r *SupportTicketRepository) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) (*models.SupportTicket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.tickets[id]
	if !ok {
		return nil, fmt.Errorf("support ticket: %w", interfaces.ErrNotFound)
	}
	return r.apply(&current, updates)
}

func (r *SupportTicketRepository) List(ctx context.Context, filter *models.TicketFilter, params *utils.PaginationParams) ([]*models.SupportTicket, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*models.SupportTicket
	for _, ticket := range r.tickets {
		ticket := ticket
		if filter != nil {
			if filter.UserID != nil && ticket.UserID != *filter.UserID {
				continue
			}
			if filter.Tier != "" && ticket.Tier != filter.Tier {
				continue
			}
			if filter.Status != "" && ticket.Status != filter.Status {
				continue
			}
		}
		matched = append(matched, &ticket)
	}

	sort.Slice(matched, func(i, j int) bool {
		if params.Order == "asc" {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	return page(matched, params.GetSkip(), params.GetLimit()), int64(len(matched)), nil
}

func (r *SupportTicketRepository) Resolve(ctx context.Context, id primitive.ObjectID, resolution *models.TicketResolution) (*models.SupportTicket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.tickets[id]
	if !ok || !current.IsComplaint || current.Status.IsFinal() || current.AdminReviewCompleted {
		return nil, fmt.Errorf("resolve ticket %s: %w", id.Hex(), interfaces.ErrStaleState)
	}

	return r.apply(&current, map[string]interface{}{
		"status":                 models.TicketStatusResolved,
		"admin_review_completed": true,
		"admin_review_result":    resolution.Result,
		"admin_review_notes":     resolution.Notes,
		"refund_amount":          resolution.RefundAmount,
		"penalty_amount":         resolution.PenaltyAmount,
		"resolution_action":      resolution.Result,
		"resolution_notes":       resolution.Notes,
		"resolved_at":            resolution.ResolvedAt,
		"resolved_by":            resolution.ResolvedBy,
	})
}

func (r *SupportTicketRepository) GetStatistics(ctx context.Context) (*models.TicketStatistics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &models.TicketStatistics{}
	for _, ticket := range r.tickets {
		stats.TotalTickets++
		switch ticket.Status {
		case models.TicketStatusOpen:
			stats.OpenTickets++
		case models.TicketStatusInProgress:
			stats.InProgress++
		case models.TicketStatusResolved:
			stats.ResolvedTickets++
		}
		switch ticket.Tier {
		case models.TicketTierAI:
			stats.AIHandled++
		case models.TicketTierHuman:
			stats.HumanEscalated++
		}
		switch ticket.Priority {
		case models.TicketPriorityCritical:
			stats.CriticalPriority++
		case models.TicketPriorityHigh:
			stats.HighPriority++
		}
		if ticket.AutoEscalated {
			stats.AutoEscalated++
		}
		if ticket.IsComplaint && !ticket.Status.IsFinal() {
			stats.OpenComplaints++
		}
		if ticket.EscrowFrozen {
			stats.FrozenEscrows++
		}
	}
	return stats, nil
}

// apply must be called with the write lock held.
func (r *SupportTicketRepository) apply(current *models.SupportTicket, updates map[string]interface{}) (*models.SupportTicket, error) {
	set := map[string]interface{}{"updated_at": time.Now()}
	for k, v := range updates {
		set[k] = v
	}

	var next models.SupportTicket
	if err := applySet(current, set, &next); err != nil {
		return nil, fmt.Errorf("failed to update support ticket: %w", err)
	}

	r.tickets[next.ID] = next
	return &next, nil
}

type TicketMessageRepository struct {
	mu       sync.RWMutex
	messages []models.TicketMessage
}

func NewTicketMessageRepository() *TicketMessageRepository {
	return &TicketMessageRepository{}
}

var _ interfaces.TicketMessageRepository = (*TicketMessageRepository)(nil)

func (r *TicketMessageRepository) Create(ctx context.Context, message *models.TicketMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	message.ID = primitive.NewObjectID()
	message.CreatedAt = time.Now()
	if message.Attachments == nil {
		message.Attachments = []string{}
	}
	r.messages = append(r.messages, *message)
	return nil
}

func (r *TicketMessageRepository) ListByTicket(ctx context.Context, ticketID primitive.ObjectID, limit int) ([]*models.TicketMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	messages := []*models.TicketMessage{}
	for _, message := range r.messages {
		message := message
		if message.TicketID == ticketID {
			messages = append(messages, &message)
		}
	}
	if len(messages) > limit {
		messages = messages[:limit]
	}
	return messages, nil
}
