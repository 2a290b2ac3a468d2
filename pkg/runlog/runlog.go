// Package runlog keeps one history document per pipeline run in MongoDB.
// Recording is a best-effort post-step: a run that exported and published
// successfully does not fail because its history write failed.
package runlog

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"docs-export/pkg/domain"
)

// Store wraps the MongoDB client and the runs collection
type Store struct {
	mongoClient *mongo.Client
	collection  *mongo.Collection
}

// NewStore creates a new run log store
func NewStore(connectionString, databaseName, collectionName string) *Store {
	clientOptions := options.Client().ApplyURI(connectionString)
	mongoClient, err := mongo.Connect(context.Background(), clientOptions)
	if err != nil {
		// Return store with nil - error will be caught during Connect()
		return &Store{}
	}

	return &Store{
		mongoClient: mongoClient,
		collection:  mongoClient.Database(databaseName).Collection(collectionName),
	}
}

// Connect establishes connection to MongoDB
func (s *Store) Connect(ctx context.Context) error {
	if s.mongoClient == nil {
		return fmt.Errorf("mongo client not initialized")
	}
	return s.mongoClient.Ping(ctx, nil)
}

// Close closes the MongoDB connection
func (s *Store) Close(ctx context.Context) error {
	if s.mongoClient == nil {
		return nil
	}
	return s.mongoClient.Disconnect(ctx)
}

// SaveRun upserts the summary keyed by run ID, so a retried write for the
// same run never creates a duplicate history entry
func (s *Store) SaveRun(ctx context.Context, summary *domain.RunSummary) error {
	if s.collection == nil {
		return fmt.Errorf("collection not initialized")
	}

	filter := bson.M{"run_id": summary.RunID}
	update := bson.M{"$set": summary}
	opts := options.Update().SetUpsert(true)

	_, err := s.collection.UpdateOne(ctx, filter, update, opts)
	return err
}

// RecentRuns returns up to limit summaries, newest first
func (s *Store) RecentRuns(ctx context.Context, limit int64) ([]domain.RunSummary, error) {
	if s.collection == nil {
		return nil, fmt.Errorf("collection not initialized")
	}

	opts := options.Find().SetSort(bson.M{"started_at": -1}).SetLimit(limit)
	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer cursor.Close(ctx)

	var runs []domain.RunSummary
	if err := cursor.All(ctx, &runs); err != nil {
		return nil, fmt.Errorf("decode runs: %w", err)
	}
	return runs, nil
}
