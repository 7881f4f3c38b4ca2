package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"

	tripsCollection        = "trips"
	safetyChecksCollection = "safety_checks"
	emergenciesCollection  = "emergencies"
	usersCollection        = "users"
	vehiclesCollection     = "vehicles"
)

// ConnectMongo connects to MongoDB. timeout bounds every operation issued
// through the returned client.
func ConnectMongo(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	opts := options.Client().ApplyURI(uri).SetTimeout(timeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	// Ping to verify connection
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// NewMongoStore wires every collection of dbName.
func NewMongoStore(client *mongo.Client, dbName string) *Store {
	database := client.Database(dbName)
	return &Store{
		Driver:       DriverMongo,
		Trips:        &MongoTripCollection{Collection: database.Collection(tripsCollection)},
		SafetyChecks: &MongoSafetyCheckCollection{Collection: database.Collection(safetyChecksCollection)},
		Emergencies:  &MongoEmergencyCollection{Collection: database.Collection(emergenciesCollection)},
		Users:        &MongoUserCollection{Collection: database.Collection(usersCollection)},
		Vehicles:     &MongoVehicleCollection{Collection: database.Collection(vehiclesCollection)},
		ping: func(ctx context.Context) error {
			return client.Ping(ctx, nil)
		},
		close: client.Disconnect,
	}
}

// ActiveTripIndex is the partial unique index that allows a single
// in-progress trip per user.
const ActiveTripIndex = "one_active_trip_per_user"

// EnsureIndexes creates the indexes the collections rely on. It is safe to
// call on every start.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		vehiclesCollection: {
			{Keys: bson.D{{Key: "license_plate", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		tripsCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "started_at", Value: -1}}},
			{
				Keys: bson.D{{Key: "user_id", Value: 1}},
				Options: options.Index().
					SetName(ActiveTripIndex).
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"status": "in_progress"}),
			},
		},
		safetyChecksCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "status", Value: 1}, {Key: "passed_at", Value: -1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "trip_id", Value: 1}}},
		},
		emergenciesCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
	}

	for name, idx := range indexes {
		if _, err := database.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

// findOneAndUpdate applies update to the single document matching filter and
// decodes the updated document into out.
func findOneAndUpdate(ctx context.Context, c *mongo.Collection, filter, update interface{}, out interface{}) error {
	if c == nil {
		return ErrNilCollection
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := c.FindOneAndUpdate(ctx, filter, update, opts).Decode(out)
	return translate(err)
}

// findOne decodes the first document matching filter into out.
func findOne(ctx context.Context, c *mongo.Collection, filter interface{}, out interface{}, opts ...*options.FindOneOptions) error {
	if c == nil {
		return ErrNilCollection
	}
	return translate(c.FindOne(ctx, filter, opts...).Decode(out))
}

func insertOne(ctx context.Context, c *mongo.Collection, doc interface{}) error {
	if c == nil {
		return ErrNilCollection
	}
	_, err := c.InsertOne(ctx, doc)
	return translate(err)
}

// findMany runs a newest-first query and decodes all results into out.
func findMany(ctx context.Context, c *mongo.Collection, filter interface{}, limit int64, out interface{}) error {
	if c == nil {
		return ErrNilCollection
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := c.Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	return cursor.All(ctx, out)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	default:
		return err
	}
}

func statusIn[S ~string](statuses []S) bson.M {
	values := make(bson.A, 0, len(statuses))
	for _, s := range statuses {
		values = append(values, string(s))
	}
	return bson.M{"$in": values}
}
