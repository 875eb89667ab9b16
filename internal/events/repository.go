package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"leadflow/internal/constants"
	"leadflow/pkg/metrics"
	"leadflow/pkg/models"
)

// Query selects entries of one lead's activity log, newest first.
type Query struct {
	LeadID    string
	EventType string
	Limit     int
}

type Repository interface {
	Append(ctx context.Context, event *models.LeadEvent) error
	List(ctx context.Context, q Query) ([]models.LeadEvent, error)
	DeleteForLead(ctx context.Context, leadID string) (int64, error)
	// CountSince returns the number of events per lead recorded at or after since.
	CountSince(ctx context.Context, since time.Time) (map[string]int64, error)
}

type mongoRepository struct {
	collection *mongo.Collection
}

func NewRepository(db *mongo.Database) Repository {
	return &mongoRepository{
		collection: db.Collection(constants.LeadEventsCollection),
	}
}

func (r *mongoRepository) Append(ctx context.Context, event *models.LeadEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	start := time.Now()
	_, err := r.collection.InsertOne(ctx, event)
	observeQuery("insert", start, err)
	if err != nil {
		return fmt.Errorf("failed to append lead event: %w", err)
	}
	return nil
}

func (r *mongoRepository) List(ctx context.Context, q Query) ([]models.LeadEvent, error) {
	filter := bson.M{"lead_id": q.LeadID}
	if q.EventType != "" {
		filter["event_type"] = q.EventType
	}

	limit := q.Limit
	if limit <= 0 || limit > constants.MaxLimit {
		limit = constants.DefaultLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))

	start := time.Now()
	cursor, err := r.collection.Find(ctx, filter, opts)
	observeQuery("find", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list lead events: %w", err)
	}
	defer cursor.Close(ctx)

	events := []models.LeadEvent{}
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode lead events: %w", err)
	}
	return events, nil
}

func (r *mongoRepository) DeleteForLead(ctx context.Context, leadID string) (int64, error) {
	start := time.Now()
	result, err := r.collection.DeleteMany(ctx, bson.M{"lead_id": leadID})
	observeQuery("delete", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to delete lead events: %w", err)
	}
	return result.DeletedCount, nil
}

func (r *mongoRepository) CountSince(ctx context.Context, since time.Time) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"timestamp": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.M{"_id": "$lead_id", "count": bson.M{"$sum": 1}}}},
	}

	start := time.Now()
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	observeQuery("aggregate", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to count lead events: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		LeadID string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode lead event counts: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.LeadID] = row.Count
	}
	return counts, nil
}

func observeQuery(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.IncDatabaseQuery(constants.ServiceName, "mongodb", operation, status)
	metrics.ObserveDatabaseQueryDuration(constants.ServiceName, "mongodb", operation, time.Since(start))
}
