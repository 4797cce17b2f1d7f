package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Techyana/RWP-Pilot/models"
)

// MongoItemRepository implements ItemRepository on a MongoDB collection.
// Every stock mutation is a single FindOneAndUpdate whose filter carries the
// precondition, so concurrent claims against the last unit cannot both
// succeed.
type MongoItemRepository struct {
	collection *mongo.Collection
}

func NewMongoItemRepository(db *mongo.Database) *MongoItemRepository {
	return &MongoItemRepository{collection: db.Collection("items")}
}

func (r *MongoItemRepository) Get(ctx context.Context, id string) (*models.Item, error) {
	var item models.Item
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find item: %w", err)
	}
	return &item, nil
}

func (r *MongoItemRepository) List(ctx context.Context, kind models.ItemKind) ([]models.Item, error) {
	filter := bson.M{}
	if kind != "" {
		filter["kind"] = kind
	}
	cursor, err := r.collection.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer cursor.Close(ctx)

	var items []models.Item
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	return items, nil
}

func (r *MongoItemRepository) Create(ctx context.Context, item *models.Item) error {
	if _, err := r.collection.InsertOne(ctx, item); err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (r *MongoItemRepository) ClaimUnit(ctx context.Context, id, claimedByName string, at time.Time) (*models.Item, error) {
	filter := bson.M{"_id": id, "available_quantity": bson.M{"$gte": 1}}
	// A claim supersedes any pending request, so the request marker is dropped.
	update := bson.M{
		"$inc": bson.M{"available_quantity": -1},
		"$set": bson.M{
			"status":          models.StatusPendingCollection,
			"claimed_by_name": claimedByName,
			"claimed_at":      at,
			"updated_at":      time.Now().UTC(),
		},
		"$unset": bson.M{"requested_by_id": "", "requested_at": ""},
	}
	return r.findOneAndUpdate(ctx, id, filter, update, ErrNoStock)
}

func (r *MongoItemRepository) ReturnUnit(ctx context.Context, id string) (*models.Item, error) {
	filter := bson.M{"_id": id, "$expr": bson.M{"$lt": bson.A{"$available_quantity", "$quantity"}}}
	update := bson.A{
		bson.M{"$set": bson.M{
			"available_quantity": bson.M{"$add": bson.A{"$available_quantity", 1}},
			"updated_at":         time.Now().UTC(),
		}},
		bson.M{"$set": bson.M{
			"status": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$available_quantity", "$quantity"}},
				models.StatusAvailable,
				models.StatusPendingCollection,
			}},
		}},
	}
	return r.findOneAndUpdate(ctx, id, filter, update, ErrConflict)
}

func (r *MongoItemRepository) CollectUnit(ctx context.Context, id string) (*models.Item, error) {
	filter := bson.M{"_id": id, "$expr": bson.M{
		"$gt": bson.A{bson.M{"$subtract": bson.A{"$quantity", "$available_quantity"}}, 0},
	}}
	update := bson.A{
		bson.M{"$set": bson.M{
			"quantity":   bson.M{"$subtract": bson.A{"$quantity", 1}},
			"updated_at": time.Now().UTC(),
		}},
		bson.M{"$set": bson.M{
			"status": bson.M{"$switch": bson.M{
				"branches": bson.A{
					bson.M{"case": bson.M{"$eq": bson.A{"$quantity", 0}}, "then": models.StatusCollected},
					bson.M{"case": bson.M{"$eq": bson.A{"$available_quantity", "$quantity"}}, "then": models.StatusAvailable},
				},
				"default": models.StatusPendingCollection,
			}},
		}},
	}
	return r.findOneAndUpdate(ctx, id, filter, update, ErrConflict)
}

func (r *MongoItemRepository) UncollectUnit(ctx context.Context, id string) (*models.Item, error) {
	filter := bson.M{"_id": id}
	update := bson.A{
		bson.M{"$set": bson.M{
			"quantity":   bson.M{"$add": bson.A{"$quantity", 1}},
			"updated_at": time.Now().UTC(),
		}},
		bson.M{"$set": bson.M{
			"status": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$available_quantity", "$quantity"}},
				models.StatusAvailable,
				models.StatusPendingCollection,
			}},
		}},
	}
	return r.findOneAndUpdate(ctx, id, filter, update, ErrConflict)
}

func (r *MongoItemRepository) MarkRequested(ctx context.Context, id, requestedByID string, at time.Time) (*models.Item, error) {
	filter := bson.M{"_id": id, "status": models.StatusAvailable}
	update := bson.M{"$set": bson.M{
		"status":          models.StatusRequested,
		"requested_by_id": requestedByID,
		"requested_at":    at,
		"updated_at":      time.Now().UTC(),
	}}
	return r.findOneAndUpdate(ctx, id, filter, update, ErrConflict)
}

func (r *MongoItemRepository) AddStock(ctx context.Context, id string, n int) (*models.Item, error) {
	filter := bson.M{"_id": id}
	update := bson.A{
		bson.M{"$set": bson.M{
			"quantity":           bson.M{"$add": bson.A{"$quantity", n}},
			"available_quantity": bson.M{"$add": bson.A{"$available_quantity", n}},
			"updated_at":         time.Now().UTC(),
			"requested_by_id":    "$$REMOVE",
			"requested_at":       "$$REMOVE",
		}},
		bson.M{"$set": bson.M{
			"status": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$available_quantity", "$quantity"}},
				models.StatusAvailable,
				models.StatusPendingCollection,
			}},
		}},
	}
	return r.findOneAndUpdate(ctx, id, filter, update, ErrConflict)
}

// findOneAndUpdate runs the conditional update and disambiguates a miss into
// ErrNotFound (unknown id) vs the caller's precondition error.
func (r *MongoItemRepository) findOneAndUpdate(ctx context.Context, id string, filter bson.M, update interface{}, precondErr error) (*models.Item, error) {
	var item models.Item
	err := r.collection.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		count, countErr := r.collection.CountDocuments(ctx, bson.M{"_id": id})
		if countErr != nil {
			return nil, fmt.Errorf("conditional update miss lookup: %w", countErr)
		}
		if count == 0 {
			return nil, ErrNotFound
		}
		return nil, precondErr
	}
	if err != nil {
		return nil, fmt.Errorf("conditional update: %w", err)
	}
	return &item, nil
}
