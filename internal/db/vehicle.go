package db

import (
	"context"
	"strings"
	"time"

	"github.com/ukydev/initinere/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoVehicleCollection implements VehicleCollection for MongoDB
type MongoVehicleCollection struct {
	Collection *mongo.Collection
}

// InsertVehicle inserts a vehicle record into the collection.
func (c *MongoVehicleCollection) InsertVehicle(ctx context.Context, vehicle *models.Vehicle) error {
	if vehicle.ID.IsZero() {
		vehicle.ID = primitive.NewObjectID()
	}
	vehicle.LicensePlate = strings.ToUpper(strings.TrimSpace(vehicle.LicensePlate))
	return insertOne(ctx, c.Collection, vehicle)
}

// FindVehicles lists a user's vehicles, newest first.
func (c *MongoVehicleCollection) FindVehicles(ctx context.Context, userID string, activeOnly bool) ([]models.Vehicle, error) {
	filter := bson.M{"user_id": userID}
	if activeOnly {
		filter["is_active"] = true
	}
	vehicles := []models.Vehicle{}
	if err := findMany(ctx, c.Collection, filter, 0, &vehicles); err != nil {
		return nil, err
	}
	return vehicles, nil
}

// FindVehicle finds a vehicle owned by userID.
func (c *MongoVehicleCollection) FindVehicle(ctx context.Context, id primitive.ObjectID, userID string) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	if err := findOne(ctx, c.Collection, bson.M{"_id": id, "user_id": userID}, &vehicle); err != nil {
		return nil, err
	}
	return &vehicle, nil
}

// DeactivateVehicle soft-deletes a vehicle.
func (c *MongoVehicleCollection) DeactivateVehicle(ctx context.Context, id primitive.ObjectID, userID string, at time.Time) (*models.Vehicle, error) {
	update := bson.M{"$set": bson.M{"is_active": false, "updated_at": at}}
	var vehicle models.Vehicle
	if err := findOneAndUpdate(ctx, c.Collection, bson.M{"_id": id, "user_id": userID}, update, &vehicle); err != nil {
		return nil, err
	}
	return &vehicle, nil
}
