package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/ulvi123/ChanceuStore-techMVP/internal/model"
)

func TestMongoFilter(t *testing.T) {
	f := mongoFilter(Filter{StoreID: "S1", Section: "athletic", ItemsAny: []string{"a", "b"}, Since: baseTime})

	assert.Equal(t, "S1", f["store_id"])
	assert.Equal(t, "athletic", f["section"])
	assert.Equal(t, bson.M{"$in": []string{"a", "b"}}, f["items_touched"])
	assert.Equal(t, bson.M{"$gte": baseTime}, f["timestamp"])

	assert.Empty(t, mongoFilter(Filter{}))
}

func TestMongo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("insert assigns object id", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		e := &model.InteractionEvent{StoreID: "S1", Section: "athletic", ItemsTouched: []string{"a"}, Timestamp: baseTime}
		id, err := NewMongoWithCollection(mt.Coll).Insert(context.Background(), e)
		require.NoError(mt, err)

		_, err = primitive.ObjectIDFromHex(id)
		assert.NoError(mt, err)
		assert.Equal(mt, id, e.ID)
	})

	mt.Run("insert surfaces write errors", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key"}))

		_, err := NewMongoWithCollection(mt.Coll).Insert(context.Background(), &model.InteractionEvent{StoreID: "S1", Section: "a"})
		assert.Error(mt, err)
	})

	mt.Run("find decodes documents", func(mt *mtest.T) {
		oid := primitive.NewObjectID()
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: oid},
			{Key: "store_id", Value: "S1"},
			{Key: "section", Value: "athletic"},
			{Key: "items_touched", Value: bson.A{"a", "c"}},
			{Key: "time_spent_seconds", Value: int32(400)},
			{Key: "timestamp", Value: primitive.NewDateTimeFromTime(baseTime)},
		}))

		got, err := NewMongoWithCollection(mt.Coll).Find(context.Background(), Filter{StoreID: "S1"}, FindOptions{Sort: NewestFirst, Limit: 50})
		require.NoError(mt, err)
		require.Len(mt, got, 1)
		assert.Equal(mt, oid.Hex(), got[0].ID)
		assert.Equal(mt, []string{"a", "c"}, got[0].ItemsTouched)
		assert.Equal(mt, 400, got[0].TimeSpentSeconds)
		assert.True(mt, baseTime.Equal(got[0].Timestamp))
	})

	mt.Run("count", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(3)}}))

		n, err := NewMongoWithCollection(mt.Coll).Count(context.Background(), Filter{StoreID: "S1"})
		require.NoError(mt, err)
		assert.Equal(mt, int64(3), n)
	})

	mt.Run("aggregate sections", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "formal"}, {Key: "visits", Value: int32(15)}, {Key: "avg_time", Value: 80.0}, {Key: "items", Value: int32(20)}},
			bson.D{{Key: "_id", Value: "athletic"}, {Key: "visits", Value: int32(3)}, {Key: "avg_time", Value: 160.0}, {Key: "items", Value: int32(5)}},
		))

		got, err := NewMongoWithCollection(mt.Coll).AggregateSections(context.Background(), "S1", SumItems)
		require.NoError(mt, err)
		assert.Equal(mt, []SectionAggregate{
			{Section: "formal", Visits: 15, AvgTime: 80, Items: 20},
			{Section: "athletic", Visits: 3, AvgTime: 160, Items: 5},
		}, got)
	})

	mt.Run("count by store", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "demo-store-001"}, {Key: "count", Value: int32(100)}},
		))

		got, err := NewMongoWithCollection(mt.Coll).CountByStore(context.Background())
		require.NoError(mt, err)
		assert.Equal(mt, []StoreCount{{StoreID: "demo-store-001", Count: 100}}, got)
	})

	mt.Run("delete missing record", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(0)}))

		err := NewMongoWithCollection(mt.Coll).Delete(context.Background(), primitive.NewObjectID().Hex())
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("delete rejects malformed id", func(mt *mtest.T) {
		err := NewMongoWithCollection(mt.Coll).Delete(context.Background(), "not-an-object-id")
		assert.ErrorIs(mt, err, ErrNotFound)
	})
}
