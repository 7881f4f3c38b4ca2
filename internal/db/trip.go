package db

import (
	"context"
	"time"

	"github.com/ukydev/initinere/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoTripCollection implements TripCollection for MongoDB
type MongoTripCollection struct {
	Collection *mongo.Collection
}

// InsertTrip inserts a trip. The partial unique index on user_id turns a
// second in-progress trip into ErrDuplicate.
func (c *MongoTripCollection) InsertTrip(ctx context.Context, trip *models.Trip) error {
	if trip.ID.IsZero() {
		trip.ID = primitive.NewObjectID()
	}
	if trip.Route == nil {
		trip.Route = []models.LocationPoint{}
	}
	return insertOne(ctx, c.Collection, trip)
}

func (c *MongoTripCollection) FindTrip(ctx context.Context, id primitive.ObjectID, userID string) (*models.Trip, error) {
	var trip models.Trip
	if err := findOne(ctx, c.Collection, bson.M{"_id": id, "user_id": userID}, &trip); err != nil {
		return nil, err
	}
	return &trip, nil
}

// FindActiveTrip returns the user's in-progress trip or ErrNotFound.
func (c *MongoTripCollection) FindActiveTrip(ctx context.Context, userID string) (*models.Trip, error) {
	var trip models.Trip
	filter := bson.M{"user_id": userID, "status": models.TripInProgress}
	if err := findOne(ctx, c.Collection, filter, &trip); err != nil {
		return nil, err
	}
	return &trip, nil
}

func (c *MongoTripCollection) FindTrips(ctx context.Context, userID string, status models.TripStatus, limit int64) ([]models.Trip, error) {
	filter := bson.M{"user_id": userID}
	if status != "" {
		filter["status"] = status
	}
	trips := []models.Trip{}
	if err := findMany(ctx, c.Collection, filter, limit, &trips); err != nil {
		return nil, err
	}
	return trips, nil
}

// AppendRoutePoint pushes a point onto the route only while the route still
// has the length the caller read, so concurrent reports cannot both count
// the distance from the same previous point.
func (c *MongoTripCollection) AppendRoutePoint(ctx context.Context, id primitive.ObjectID, userID string, from []models.TripStatus, a RouteAppend) (*models.Trip, error) {
	filter := bson.M{
		"_id":     id,
		"user_id": userID,
		"status":  statusIn(from),
		"route":   bson.M{"$size": a.ExpectedLen},
	}
	update := bson.M{
		"$push": bson.M{"route": a.Point},
		"$inc":  bson.M{"distance_km": a.AddKm, "route_distance_km": a.AddKm},
		"$set":  bson.M{"duration_minutes": a.DurationMinutes, "updated_at": a.UpdatedAt},
	}

	var trip models.Trip
	if err := findOneAndUpdate(ctx, c.Collection, filter, update, &trip); err != nil {
		return nil, err
	}
	return &trip, nil
}

// TransitionTrip applies change only if the trip is still in one of the from
// statuses.
func (c *MongoTripCollection) TransitionTrip(ctx context.Context, id primitive.ObjectID, userID string, from []models.TripStatus, change TripChange) (*models.Trip, error) {
	set := bson.M{"status": change.Status, "updated_at": change.UpdatedAt}
	if change.Destination != nil {
		set["destination"] = change.Destination
	}
	if change.DistanceKm != nil {
		set["distance_km"] = *change.DistanceKm
	}
	if change.DurationMinutes != nil {
		set["duration_minutes"] = *change.DurationMinutes
	}
	if change.CompletedAt != nil {
		set["completed_at"] = *change.CompletedAt
	}

	filter := bson.M{"_id": id, "user_id": userID, "status": statusIn(from)}
	var trip models.Trip
	if err := findOneAndUpdate(ctx, c.Collection, filter, bson.M{"$set": set}, &trip); err != nil {
		return nil, err
	}
	return &trip, nil
}

func (c *MongoTripCollection) TripTotals(ctx context.Context, userID string, since time.Time) (TripTotals, error) {
	match := bson.M{"user_id": userID}
	if !since.IsZero() {
		match["started_at"] = bson.M{"$gte": since}
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.M{"$sum": 1}},
			{Key: "completed", Value: countStatus(models.TripCompleted)},
			{Key: "active", Value: countStatus(models.TripInProgress)},
			{Key: "emergency", Value: countStatus(models.TripEmergency)},
			{Key: "distance_km", Value: bson.M{"$sum": "$distance_km"}},
			{Key: "duration_minutes", Value: bson.M{"$sum": "$duration_minutes"}},
		}}},
	}

	var rows []TripTotals
	if err := aggregate(ctx, c.Collection, pipeline, &rows); err != nil {
		return TripTotals{}, err
	}
	if len(rows) == 0 {
		return TripTotals{}, nil
	}
	return rows[0], nil
}

// DailyTripTotals groups trips by $dayOfWeek of started_at, evaluated in UTC.
func (c *MongoTripCollection) DailyTripTotals(ctx context.Context, userID string, since time.Time) ([]DayTotals, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user_id": userID, "started_at": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.M{"$dayOfWeek": "$started_at"}},
			{Key: "trips", Value: bson.M{"$sum": 1}},
			{Key: "distance_km", Value: bson.M{"$sum": "$distance_km"}},
			{Key: "duration_minutes", Value: bson.M{"$sum": "$duration_minutes"}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	days := []DayTotals{}
	if err := aggregate(ctx, c.Collection, pipeline, &days); err != nil {
		return nil, err
	}
	return days, nil
}

func countStatus(status models.TripStatus) bson.M {
	return bson.M{"$sum": bson.M{"$cond": bson.A{
		bson.M{"$eq": bson.A{"$status", string(status)}}, 1, 0,
	}}}
}

func aggregate(ctx context.Context, c *mongo.Collection, pipeline mongo.Pipeline, out interface{}) error {
	if c == nil {
		return ErrNilCollection
	}
	cursor, err := c.Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	return cursor.All(ctx, out)
}
