package db

import (
	"context"
	"time"

	"github.com/ukydev/initinere/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSafetyCheckCollection implements SafetyCheckCollection for MongoDB
type MongoSafetyCheckCollection struct {
	Collection *mongo.Collection
}

func (c *MongoSafetyCheckCollection) InsertSafetyCheck(ctx context.Context, check *models.SafetyCheck) error {
	if check.ID.IsZero() {
		check.ID = primitive.NewObjectID()
	}
	return insertOne(ctx, c.Collection, check)
}

func (c *MongoSafetyCheckCollection) FindSafetyCheck(ctx context.Context, id primitive.ObjectID, userID string) (*models.SafetyCheck, error) {
	var check models.SafetyCheck
	if err := findOne(ctx, c.Collection, bson.M{"_id": id, "user_id": userID}, &check); err != nil {
		return nil, err
	}
	return &check, nil
}

// FindLatestSafetyCheck returns the user's newest check of any status.
func (c *MongoSafetyCheckCollection) FindLatestSafetyCheck(ctx context.Context, userID string) (*models.SafetyCheck, error) {
	var check models.SafetyCheck
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if err := findOne(ctx, c.Collection, bson.M{"user_id": userID}, &check, opts); err != nil {
		return nil, err
	}
	return &check, nil
}

// FindLatestPassedSafetyCheck returns the most recently passed check, claimed
// or not.
func (c *MongoSafetyCheckCollection) FindLatestPassedSafetyCheck(ctx context.Context, userID string) (*models.SafetyCheck, error) {
	var check models.SafetyCheck
	filter := bson.M{"user_id": userID, "status": models.SafetyCheckPassed}
	opts := options.FindOne().SetSort(bson.D{{Key: "passed_at", Value: -1}})
	if err := findOne(ctx, c.Collection, filter, &check, opts); err != nil {
		return nil, err
	}
	return &check, nil
}

func (c *MongoSafetyCheckCollection) ReplaceItems(ctx context.Context, id primitive.ObjectID, userID string, from []models.SafetyCheckStatus, items []models.ChecklistItem, at time.Time) (*models.SafetyCheck, error) {
	filter := bson.M{"_id": id, "user_id": userID, "status": statusIn(from)}
	update := bson.M{"$set": bson.M{"items": items, "updated_at": at}}

	var check models.SafetyCheck
	if err := findOneAndUpdate(ctx, c.Collection, filter, update, &check); err != nil {
		return nil, err
	}
	return &check, nil
}

// TransitionSafetyCheck decides a check. With requireComplete, status and
// item completeness are evaluated by the same conditional write.
func (c *MongoSafetyCheckCollection) TransitionSafetyCheck(ctx context.Context, id primitive.ObjectID, userID string, from []models.SafetyCheckStatus, to models.SafetyCheckStatus, requireComplete bool, at time.Time) (*models.SafetyCheck, error) {
	filter := bson.M{"_id": id, "user_id": userID, "status": statusIn(from)}
	if requireComplete {
		filter["items.0"] = bson.M{"$exists": true}
		filter["items.is_checked"] = bson.M{"$ne": false}
	}
	set := bson.M{"status": to, "updated_at": at}
	if to == models.SafetyCheckPassed {
		set["passed_at"] = at
	}

	var check models.SafetyCheck
	if err := findOneAndUpdate(ctx, c.Collection, filter, bson.M{"$set": set}, &check); err != nil {
		return nil, err
	}
	return &check, nil
}

// ClaimPassedSafetyCheck atomically marks the newest passed, unclaimed check
// as consumed by tripID.
func (c *MongoSafetyCheckCollection) ClaimPassedSafetyCheck(ctx context.Context, userID string, tripID primitive.ObjectID, at time.Time) (*models.SafetyCheck, error) {
	if c.Collection == nil {
		return nil, ErrNilCollection
	}
	filter := bson.M{"user_id": userID, "status": models.SafetyCheckPassed, "trip_id": nil}
	update := bson.M{"$set": bson.M{"trip_id": tripID, "updated_at": at}}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "passed_at", Value: -1}}).
		SetReturnDocument(options.After)

	var check models.SafetyCheck
	if err := translate(c.Collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&check)); err != nil {
		return nil, err
	}
	return &check, nil
}

// ReleaseSafetyCheck undoes a claim made for tripID.
func (c *MongoSafetyCheckCollection) ReleaseSafetyCheck(ctx context.Context, id, tripID primitive.ObjectID) error {
	if c.Collection == nil {
		return ErrNilCollection
	}
	_, err := c.Collection.UpdateOne(ctx,
		bson.M{"_id": id, "trip_id": tripID},
		bson.M{"$set": bson.M{"trip_id": nil}},
	)
	return err
}

func (c *MongoSafetyCheckCollection) CountPassedSafetyChecks(ctx context.Context, userID string) (int64, error) {
	if c.Collection == nil {
		return 0, ErrNilCollection
	}
	return c.Collection.CountDocuments(ctx, bson.M{"user_id": userID, "status": models.SafetyCheckPassed})
}
