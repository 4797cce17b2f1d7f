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

// MongoDeviceRepository implements DeviceRepository on MongoDB. The removed
// guard rides in the update filter so the removal reason can only ever be
// written once.
type MongoDeviceRepository struct {
	collection *mongo.Collection
}

func NewMongoDeviceRepository(db *mongo.Database) *MongoDeviceRepository {
	return &MongoDeviceRepository{collection: db.Collection("devices")}
}

func (r *MongoDeviceRepository) Get(ctx context.Context, id string) (*models.Device, error) {
	var device models.Device
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&device)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find device: %w", err)
	}
	return &device, nil
}

func (r *MongoDeviceRepository) List(ctx context.Context) ([]models.Device, error) {
	cursor, err := r.collection.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer cursor.Close(ctx)

	var devices []models.Device
	if err := cursor.All(ctx, &devices); err != nil {
		return nil, fmt.Errorf("decode devices: %w", err)
	}
	return devices, nil
}

func (r *MongoDeviceRepository) Create(ctx context.Context, device *models.Device) error {
	if _, err := r.collection.InsertOne(ctx, device); err != nil {
		return fmt.Errorf("insert device: %w", err)
	}
	return nil
}

func (r *MongoDeviceRepository) AppendStrippedPart(ctx context.Context, id string, part models.StrippedPart) (*models.Device, error) {
	filter := bson.M{"_id": id, "status": bson.M{"$ne": models.StatusRemoved}}
	update := bson.M{
		"$push": bson.M{"stripped_parts": part},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	return r.findOneAndUpdate(ctx, id, filter, update)
}

func (r *MongoDeviceRepository) Remove(ctx context.Context, id, reason string) (*models.Device, error) {
	filter := bson.M{"_id": id, "status": bson.M{"$ne": models.StatusRemoved}}
	update := bson.M{"$set": bson.M{
		"status":         models.StatusRemoved,
		"removal_reason": reason,
		"updated_at":     time.Now().UTC(),
	}}
	return r.findOneAndUpdate(ctx, id, filter, update)
}

func (r *MongoDeviceRepository) findOneAndUpdate(ctx context.Context, id string, filter, update bson.M) (*models.Device, error) {
	var device models.Device
	err := r.collection.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&device)
	if errors.Is(err, mongo.ErrNoDocuments) {
		count, countErr := r.collection.CountDocuments(ctx, bson.M{"_id": id})
		if countErr != nil {
			return nil, fmt.Errorf("conditional update miss lookup: %w", countErr)
		}
		if count == 0 {
			return nil, ErrNotFound
		}
		return nil, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("conditional update: %w", err)
	}
	return &device, nil
}
