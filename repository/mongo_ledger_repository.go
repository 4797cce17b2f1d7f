package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Techyana/RWP-Pilot/models"
)

// MongoLedgerRepository implements the append-only transaction ledger on a
// MongoDB collection. There is deliberately no update or delete path; the
// collection holds a created_at index for the time-window queries.
type MongoLedgerRepository struct {
	collection *mongo.Collection
}

func NewMongoLedgerRepository(db *mongo.Database) *MongoLedgerRepository {
	return &MongoLedgerRepository{collection: db.Collection("transactions")}
}

func (r *MongoLedgerRepository) Append(ctx context.Context, entry *models.Transaction) error {
	if err := entry.ValidateDelta(); err != nil {
		return err
	}
	if _, err := r.collection.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}
	return nil
}

func (r *MongoLedgerRepository) QueryRecent(ctx context.Context, q LedgerQuery) ([]models.Transaction, error) {
	filter := bson.M{}
	if q.Hours > 0 {
		cutoff := time.Now().UTC().Add(-time.Duration(q.Hours) * time.Hour)
		filter["created_at"] = bson.M{"$gte": cutoff}
	}
	if len(q.Types) > 0 {
		filter["type"] = bson.M{"$in": q.Types}
	}
	if q.UserID != "" {
		filter["user_id"] = q.UserID
	}
	if q.ItemKind != "" {
		filter["item_kind"] = q.ItemKind
	}

	cursor, err := r.collection.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("query recent transactions: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []models.Transaction
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}
	return entries, nil
}

func (r *MongoLedgerRepository) ListByItem(ctx context.Context, itemID string) ([]models.Transaction, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"item_id": itemID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list item transactions: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []models.Transaction
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}
	return entries, nil
}
