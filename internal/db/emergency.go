package db

import (
	"context"
	"time"

	"github.com/ukydev/initinere/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoEmergencyCollection implements EmergencyCollection for MongoDB
type MongoEmergencyCollection struct {
	Collection *mongo.Collection
}

func (c *MongoEmergencyCollection) InsertEmergency(ctx context.Context, emergency *models.Emergency) error {
	if emergency.ID.IsZero() {
		emergency.ID = primitive.NewObjectID()
	}
	return insertOne(ctx, c.Collection, emergency)
}

func (c *MongoEmergencyCollection) FindEmergency(ctx context.Context, id primitive.ObjectID, userID string) (*models.Emergency, error) {
	var emergency models.Emergency
	if err := findOne(ctx, c.Collection, bson.M{"_id": id, "user_id": userID}, &emergency); err != nil {
		return nil, err
	}
	return &emergency, nil
}

func (c *MongoEmergencyCollection) FindEmergencies(ctx context.Context, userID string, status models.EmergencyStatus, limit int64) ([]models.Emergency, error) {
	filter := bson.M{"user_id": userID}
	if status != "" {
		filter["status"] = status
	}
	emergencies := []models.Emergency{}
	if err := findMany(ctx, c.Collection, filter, limit, &emergencies); err != nil {
		return nil, err
	}
	return emergencies, nil
}

func (c *MongoEmergencyCollection) ResolveEmergency(ctx context.Context, id primitive.ObjectID, userID string, from []models.EmergencyStatus, notes string, at time.Time) (*models.Emergency, error) {
	filter := bson.M{"_id": id, "user_id": userID, "status": statusIn(from)}
	set := bson.M{"status": models.EmergencyResolved, "resolved_at": at, "updated_at": at}
	if notes != "" {
		set["resolution_notes"] = notes
	}

	var emergency models.Emergency
	if err := findOneAndUpdate(ctx, c.Collection, filter, bson.M{"$set": set}, &emergency); err != nil {
		return nil, err
	}
	return &emergency, nil
}

func (c *MongoEmergencyCollection) CountEmergencies(ctx context.Context, userID string) (int64, error) {
	if c.Collection == nil {
		return 0, ErrNilCollection
	}
	return c.Collection.CountDocuments(ctx, bson.M{"user_id": userID})
}
