package database

import (
	"context"
	"fmt"
	"time"

	"trustedhands/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Migration struct {
	Version     int
	Description string
	Up          func(ctx context.Context, db *mongo.Database) error
	Down        func(ctx context.Context, db *mongo.Database) error
}

type Migrator struct {
	db         *mongo.Database
	logger     *logger.Logger
	migrations []Migration
}

func NewMigrator(db *mongo.Database, log *logger.Logger) *Migrator {
	return &Migrator{
		db:         db,
		logger:     log,
		migrations: getMigrations(),
	}
}

func (m *Migrator) Up(ctx context.Context) error {
	currentVersion, err := m.getCurrentVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range m.migrations {
		if migration.Version <= currentVersion {
			continue
		}

		m.logger.WithField("version", migration.Version).Infof("Running migration: %s", migration.Description)

		if err := migration.Up(ctx, m.db); err != nil {
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}

		if err := m.updateVersion(ctx, migration.Version); err != nil {
			return fmt.Errorf("failed to update migration version: %w", err)
		}
	}

	return nil
}

func (m *Migrator) Down(ctx context.Context, targetVersion int) error {
	currentVersion, err := m.getCurrentVersion(ctx)
	if err != nil {
		return err
	}

	for i := len(m.migrations) - 1; i >= 0; i-- {
		migration := m.migrations[i]
		if migration.Version > currentVersion || migration.Version <= targetVersion {
			continue
		}

		m.logger.WithField("version", migration.Version).Infof("Reverting migration: %s", migration.Description)

		if err := migration.Down(ctx, m.db); err != nil {
			return fmt.Errorf("migration %d rollback failed: %w", migration.Version, err)
		}

		previousVersion := targetVersion
		if i > 0 {
			previousVersion = m.migrations[i-1].Version
		}

		if err := m.updateVersion(ctx, previousVersion); err != nil {
			return fmt.Errorf("failed to update migration version: %w", err)
		}
	}

	return nil
}

func (m *Migrator) getCurrentVersion(ctx context.Context) (int, error) {
	var result struct {
		Version int `bson:"version"`
	}

	err := m.db.Collection("migrations").FindOne(ctx, bson.D{}).Decode(&result)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return 0, nil
		}
		return 0, err
	}

	return result.Version, nil
}

func (m *Migrator) updateVersion(ctx context.Context, version int) error {
	_, err := m.db.Collection("migrations").ReplaceOne(
		ctx,
		bson.D{},
		bson.D{{Key: "version", Value: version}, {Key: "updated_at", Value: time.Now()}},
		options.Replace().SetUpsert(true),
	)

	return err
}

func dropIndexes(collection string) func(ctx context.Context, db *mongo.Database) error {
	return func(ctx context.Context, db *mongo.Database) error {
		_, err := db.Collection(collection).Indexes().DropAll(ctx)
		return err
	}
}

func getMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create payments indexes",
			Up:          createPaymentsIndexes,
			Down:        dropIndexes("payments"),
		},
		{
			Version:     2,
			Description: "Create support_tickets indexes",
			Up:          createSupportTicketsIndexes,
			Down:        dropIndexes("support_tickets"),
		},
		{
			Version:     3,
			Description: "Create bookings, users and notifications indexes",
			Up:          createSupportingIndexes,
			Down: func(ctx context.Context, db *mongo.Database) error {
				for _, name := range []string{"bookings", "users", "notifications"} {
					if err := dropIndexes(name)(ctx, db); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			Version:     4,
			Description: "Create audit_logs indexes",
			Up:          createAuditLogsIndexes,
			Down:        dropIndexes("audit_logs"),
		},
		{
			Version:     5,
			Description: "Create ticket_messages and payment_settings indexes",
			Up:          createTicketMessagesIndexes,
			Down: func(ctx context.Context, db *mongo.Database) error {
				for _, name := range []string{"ticket_messages", "payment_settings"} {
					if err := dropIndexes(name)(ctx, db); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}

func createPaymentsIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			// One payment per booking; initiate relies on this to stay idempotent.
			Keys:    bson.D{{Key: "booking_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "customer_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "provider_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "escrow_frozen", Value: 1}},
		},
	}

	_, err := db.Collection("payments").Indexes().CreateMany(ctx, indexes)
	return err
}

func createSupportTicketsIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "ticket_number", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "tier", Value: 1}, {Key: "status", Value: 1}},
		},
		{
			Keys: bson.D{
				{Key: "payment_id_affected", Value: 1},
				{Key: "is_complaint", Value: 1},
				{Key: "status", Value: 1},
			},
			Options: options.Index().SetSparse(true),
		},
	}

	_, err := db.Collection("support_tickets").Indexes().CreateMany(ctx, indexes)
	return err
}

func createSupportingIndexes(ctx context.Context, db *mongo.Database) error {
	if _, err := db.Collection("bookings").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "customer_id", Value: 1}}},
		{Keys: bson.D{{Key: "tasker_id", Value: 1}}},
	}); err != nil {
		return err
	}

	if _, err := db.Collection("users").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "role", Value: 1}},
	}); err != nil {
		return err
	}

	_, err := db.Collection("notifications").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	return err
}

func createAuditLogsIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("audit_logs").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "resource", Value: 1}, {Key: "resource_id", Value: 1}, {Key: "created_at", Value: 1}},
	})
	return err
}

func createTicketMessagesIndexes(ctx context.Context, db *mongo.Database) error {
	if _, err := db.Collection("ticket_messages").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "ticket_id", Value: 1}, {Key: "created_at", Value: 1}},
	}); err != nil {
		return err
	}

	// At most one active settings document; upserts match on this flag.
	_, err := db.Collection("payment_settings").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "is_active", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"is_active": true}),
	})
	return err
}
