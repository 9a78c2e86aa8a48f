package store

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ulvi123/ChanceuStore-techMVP/internal/model"
)

var eventRowColumns = []string{"id", "store_id", "section", "items_touched", "time_spent_seconds", "demographics", "associate_id", "source", "timestamp"}

func TestPostgres_Insert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgres(db)
	e := &model.InteractionEvent{
		StoreID:          "S1",
		Section:          "athletic",
		ItemsTouched:     []string{"a", "b"},
		TimeSpentSeconds: 50,
		Demographics:     map[string]interface{}{"age_range": "25-34"},
		Timestamp:        baseTime,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO interaction_events")).
		WithArgs(sqlmock.AnyArg(), "S1", "athletic", `["a","b"]`, 50, `{"age_range":"25-34"}`, nil, nil, baseTime).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := store.Insert(context.Background(), e)
	require.NoError(t, err)
	assert.Len(t, id, 36)
	assert.Equal(t, id, e.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_InsertEmptyItems(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO interaction_events")).
		WithArgs(sqlmock.AnyArg(), "S1", "formal", `[]`, 0, nil, "associate-01", nil, baseTime).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err = NewPostgres(db).Insert(context.Background(), &model.InteractionEvent{
		StoreID: "S1", Section: "formal", AssociateID: "associate-01", Timestamp: baseTime,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_InsertManyCommits(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO interaction_events"))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	events := []*model.InteractionEvent{
		{StoreID: "S1", Section: "a", Timestamp: baseTime},
		{StoreID: "S1", Section: "b", Timestamp: baseTime},
	}
	ids, err := NewPostgres(db).InsertMany(context.Background(), events)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
	assert.Equal(t, ids[1], events[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_FindNewestFirst(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows(eventRowColumns).
		AddRow("0b4a3f4e-6a0f-4a43-9f7e-3d0c0f7c2b11", "S1", "athletic", []byte(`["a","c"]`), 400, []byte(`{"gender":"F"}`), "associate-02", nil, baseTime).
		AddRow("1c5b4f5f-7b1f-4b54-8f8f-4e1d1f8d3c22", "S1", "athletic", []byte(`[]`), 30, nil, nil, []byte(`{"device_type":"mobile"}`), baseTime)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id::text, store_id, section, items_touched, time_spent_seconds, demographics, associate_id, source, timestamp FROM interaction_events WHERE store_id = $1 ORDER BY timestamp DESC LIMIT $2")).
		WithArgs("S1", 50).
		WillReturnRows(rows)

	got, err := NewPostgres(db).Find(context.Background(), Filter{StoreID: "S1"}, FindOptions{Sort: NewestFirst, Limit: 50})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"a", "c"}, got[0].ItemsTouched)
	assert.Equal(t, "F", got[0].Demographics["gender"])
	assert.Equal(t, "associate-02", got[0].AssociateID)
	assert.Empty(t, got[1].ItemsTouched)
	require.NotNil(t, got[1].Source)
	assert.Equal(t, "mobile", got[1].Source.DeviceType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_FindItemsAny(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE store_id = $1 AND section = $2 AND items_touched ?| ARRAY(SELECT jsonb_array_elements_text($3::jsonb)) LIMIT $4")).
		WithArgs("S1", "athletic", `["a"]`, 50).
		WillReturnRows(sqlmock.NewRows(eventRowColumns))

	got, err := NewPostgres(db).Find(context.Background(), Filter{StoreID: "S1", Section: "athletic", ItemsAny: []string{"a"}}, FindOptions{Limit: 50})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Count(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM interaction_events WHERE store_id = $1 AND timestamp >= $2")).
		WithArgs("S1", baseTime).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	n, err := NewPostgres(db).Count(context.Background(), Filter{StoreID: "S1", Since: baseTime})
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}

func TestPostgres_AggregateSectionsUsesAccumulator(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("AVG(jsonb_array_length(items_touched))::float8 AS items")).
		WithArgs("S1").
		WillReturnRows(sqlmock.NewRows([]string{"section", "visits", "avg_time", "items"}).
			AddRow("formal", 15, 80.0, 1.5).
			AddRow("athletic", 3, 160.0, 1.67))

	got, err := NewPostgres(db).AggregateSections(context.Background(), "S1", AvgItems)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, SectionAggregate{Section: "formal", Visits: 15, AvgTime: 80, Items: 1.5}, got[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_DeleteUnknown(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgres(db)
	assert.ErrorIs(t, store.Delete(context.Background(), "not-a-uuid"), ErrNotFound)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM interaction_events WHERE id = $1")).
		WithArgs("0b4a3f4e-6a0f-4a43-9f7e-3d0c0f7c2b11").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, store.Delete(context.Background(), "0b4a3f4e-6a0f-4a43-9f7e-3d0c0f7c2b11"), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWhereClause_Empty(t *testing.T) {
	where, args, err := whereClause(Filter{})
	require.NoError(t, err)
	assert.Empty(t, where)
	assert.Empty(t, args)
}
