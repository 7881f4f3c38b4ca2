package db

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/initinere/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestConnectMongo_BadURI(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := ConnectMongo(ctx, "mongodb://bad:uri", time.Second)
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestMongoCollections_NilCollection(t *testing.T) {
	ctx := context.Background()

	err := (&MongoTripCollection{}).InsertTrip(ctx, &models.Trip{})
	assert.True(t, errors.Is(err, ErrNilCollection))

	_, err = (&MongoSafetyCheckCollection{}).ClaimPassedSafetyCheck(ctx, "u1", primitive.NewObjectID(), time.Now())
	assert.True(t, errors.Is(err, ErrNilCollection))

	_, err = (&MongoEmergencyCollection{}).CountEmergencies(ctx, "u1")
	assert.True(t, errors.Is(err, ErrNilCollection))

	_, err = (&MongoTripCollection{}).TripTotals(ctx, "u1", time.Time{})
	assert.True(t, errors.Is(err, ErrNilCollection))
}

// Integration test (requires running MongoDB)
func TestMongoStore_Contract(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set, skipping integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client, err := ConnectMongo(ctx, uri, 10*time.Second)
	if err != nil {
		t.Skipf("failed to connect: %v, skipping integration test", err)
	}
	defer client.Disconnect(context.Background())

	dbName := "initinere_test_" + primitive.NewObjectID().Hex()
	database := client.Database(dbName)
	defer database.Drop(context.Background())

	require.NoError(t, EnsureIndexes(ctx, database))
	// second run is a no-op
	require.NoError(t, EnsureIndexes(ctx, database))

	store := NewMongoStore(client, dbName)
	require.NoError(t, store.Ping(ctx))
	runStoreContract(t, store)
}
