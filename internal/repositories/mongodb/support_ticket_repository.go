package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trustedhands/internal/models"
	"trustedhands/internal/repositories/interfaces"
	"trustedhands/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var finalTicketStatuses = []models.TicketStatus{models.TicketStatusResolved, models.TicketStatusClosed}

type supportTicketRepository struct {
	collection *mongo.Collection
}

func NewSupportTicketRepository(db *mongo.Database) interfaces.SupportTicketRepository {
	return &supportTicketRepository{
		collection: db.Collection("support_tickets"),
	}
}

func (r *supportTicketRepository) Create(ctx context.Context, ticket *models.SupportTicket) error {
	ticket.ID = primitive.NewObjectID()
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt

	_, err := r.collection.InsertOne(ctx, ticket)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("ticket %s: %w", ticket.TicketNumber, interfaces.ErrDuplicate)
		}
		return fmt.Errorf("failed to create support ticket: %w", err)
	}

	return nil
}

func (r *supportTicketRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.SupportTicket, error) {
	var ticket models.SupportTicket
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&ticket)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("support ticket: %w", interfaces.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get support ticket: %w", err)
	}

	return &ticket, nil
}

func (r *supportTicketRepository) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) (*models.SupportTicket, error) {
	set := bson.M{"updated_at": time.Now()}
	for k, v := range updates {
		set[k] = v
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var ticket models.SupportTicket
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&ticket)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("support ticket: %w", interfaces.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update support ticket: %w", err)
	}

	return &ticket, nil
}

func (r *supportTicketRepository) List(ctx context.Context, filter *models.TicketFilter, params *utils.PaginationParams) ([]*models.SupportTicket, int64, error) {
	query := bson.M{}
	if filter != nil {
		if filter.UserID != nil {
			query["user_id"] = *filter.UserID
		}
		if filter.Tier != "" {
			query["tier"] = filter.Tier
		}
		if filter.Status != "" {
			query["status"] = filter.Status
		}
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count support tickets: %w", err)
	}

	cursor, err := r.collection.Find(ctx, query, params.GetSortOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find support tickets: %w", err)
	}
	defer cursor.Close(ctx)

	var tickets []*models.SupportTicket
	if err := cursor.All(ctx, &tickets); err != nil {
		return nil, 0, fmt.Errorf("failed to decode support tickets: %w", err)
	}

	return tickets, total, nil
}

func (r *supportTicketRepository) Resolve(ctx context.Context, id primitive.ObjectID, resolution *models.TicketResolution) (*models.SupportTicket, error) {
	filter := bson.M{
		"_id":                    id,
		"is_complaint":           true,
		"status":                 bson.M{"$nin": finalTicketStatuses},
		"admin_review_completed": bson.M{"$ne": true},
	}

	update := bson.M{"$set": bson.M{
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
		"updated_at":             resolution.ResolvedAt,
	}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var ticket models.SupportTicket
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&ticket)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("resolve ticket %s: %w", id.Hex(), interfaces.ErrStaleState)
		}
		return nil, fmt.Errorf("failed to resolve support ticket: %w", err)
	}

	return &ticket, nil
}

type ticketCount struct {
	filter bson.M
	dest   *int64
}

func (r *supportTicketRepository) GetStatistics(ctx context.Context) (*models.TicketStatistics, error) {
	stats := &models.TicketStatistics{}

	counts := []ticketCount{
		{bson.M{}, &stats.TotalTickets},
		{bson.M{"status": models.TicketStatusOpen}, &stats.OpenTickets},
		{bson.M{"status": models.TicketStatusInProgress}, &stats.InProgress},
		{bson.M{"status": models.TicketStatusResolved}, &stats.ResolvedTickets},
		{bson.M{"tier": models.TicketTierAI}, &stats.AIHandled},
		{bson.M{"tier": models.TicketTierHuman}, &stats.HumanEscalated},
		{bson.M{"auto_escalated": true}, &stats.AutoEscalated},
		{bson.M{"priority": models.TicketPriorityCritical}, &stats.CriticalPriority},
		{bson.M{"priority": models.TicketPriorityHigh}, &stats.HighPriority},
		{bson.M{"is_complaint": true, "status": bson.M{"$nin": finalTicketStatuses}}, &stats.OpenComplaints},
		{bson.M{"escrow_frozen": true}, &stats.FrozenEscrows},
	}

	for _, c := range counts {
		n, err := r.collection.CountDocuments(ctx, c.filter)
		if err != nil {
			return nil, fmt.Errorf("failed to count support tickets: %w", err)
		}
		*c.dest = n
	}

	return stats, nil
}
