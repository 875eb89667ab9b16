package migrations

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"leadflow/internal/constants"
)

// EnsureMongoIndexes creates the lead event log indexes.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	collection := db.Collection(constants.LeadEventsCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "lead_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_lead_events_lead_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "lead_id", Value: 1}, {Key: "event_type", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_lead_events_lead_type_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "event_type", Value: 1}},
			Options: options.Index().SetName("idx_lead_events_event_type"),
		},
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_lead_events_timestamp"),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
