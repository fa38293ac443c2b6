// internal/store/sql_test.go
//
// Unit-tests for the MySQL record store using sqlmock.
//
// Run: go test ./internal/store -v

package store

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func newMock(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := NewSQLStore(sqlx.NewDb(db, "mysql"))
	s.now = func() time.Time { return fixedNow }
	return s, mock
}

func TestSQLFilter(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(`SELECT data FROM entity_record WHERE entity = \? ` +
		`AND JSON_EXTRACT\(data, \?\) = CAST\(\? AS JSON\) ` +
		`AND tenant_id = \? ` +
		`ORDER BY JSON_UNQUOTE\(JSON_EXTRACT\(data, '\$\.published_date'\)\) DESC LIMIT 5`).
		WithArgs("BlogPost", "$.status", `"published"`, "t1").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).
			AddRow(`{"id":"b2","tenant_id":"t1","published_date":"2026-02-01"}`).
			AddRow(`{"id":"b1","tenant_id":"t1","published_date":"2026-01-01"}`))

	got, err := s.Filter(context.Background(), EntityBlogPost,
		Filter{"tenant_id": "t1", "status": "published"}, "-published_date", 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b2", got[0]["id"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLFilter_CreatedDateUsesColumn(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(`ORDER BY created_date DESC`).
		WithArgs("FormSubmission", "t1").
		WillReturnRows(sqlmock.NewRows([]string{"data"}))

	got, err := s.Filter(context.Background(), EntitySubmission,
		Filter{"tenant_id": "t1"}, "-created_date", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLFilter_RejectsBadField(t *testing.T) {
	s, _ := newMock(t)

	_, err := s.Filter(context.Background(), EntityPage, Filter{"x') OR 1=1 --": 1}, "", 0)
	require.ErrorIs(t, err, ErrBadField)

	_, err = s.Filter(context.Background(), EntityPage, Filter{}, "-title; DROP", 0)
	require.ErrorIs(t, err, ErrBadField)
}

func TestSQLFilter_DriverError(t *testing.T) {
	s, mock := newMock(t)
	boom := errors.New("connection reset")
	mock.ExpectQuery(`SELECT data FROM entity_record`).WillReturnError(boom)

	_, err := s.Filter(context.Background(), EntityPage, Filter{"tenant_id": "t1"}, "", 0)
	require.ErrorIs(t, err, boom)
}

func TestSQLCreate(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectExec(`INSERT INTO entity_record \(id,entity,tenant_id,data,created_date,updated_date\)`).
		WithArgs(sqlmock.AnyArg(), "Page", "t1", sqlmock.AnyArg(), fixedNow, fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec, err := s.Create(context.Background(), EntityPage, Record{"tenant_id": "t1", "title": "Home"})
	require.NoError(t, err)
	assert.Equal(t, Timestamp(fixedNow), rec[FieldCreated])
	assert.Len(t, rec[FieldID], 36)
	require.NoError(t, mock.ExpectationsWereMet())
}

// docField matches a JSON document argument whose field equals want.
type docField struct {
	field string
	want  any
}

func (d docField) Match(v driver.Value) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	doc := map[string]any{}
	if err := json.Unmarshal([]byte(s), &doc); err != nil {
		return false
	}
	return doc[d.field] == d.want
}

func TestSQLCreate_PublishedDateStoredUTC(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectExec(`INSERT INTO entity_record`).
		WithArgs(sqlmock.AnyArg(), "BlogPost", "t1",
			docField{"published_date", "2024-01-01T20:00:00.000000000Z"}, fixedNow, fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec, err := s.Create(context.Background(), EntityBlogPost,
		Record{"tenant_id": "t1", "published_date": "2024-01-02T01:00:00+05:00"})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01T20:00:00.000000000Z", rec["published_date"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLFilter_PublishedDateFilterUTC(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(`SELECT data FROM entity_record`).
		WithArgs("BlogPost", "$.published_date", `"2024-01-01T20:00:00.000000000Z"`).
		WillReturnRows(sqlmock.NewRows([]string{"data"}))

	_, err := s.Filter(context.Background(), EntityBlogPost,
		Filter{"published_date": "2024-01-02T01:00:00+05:00"}, "", 0)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLUpdate(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT data FROM entity_record WHERE entity = \? AND id = \? AND tenant_id = \? FOR UPDATE`).
		WithArgs("Page", "p1", "t1").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).
			AddRow(`{"id":"p1","tenant_id":"t1","title":"Old","created_date":"2026-01-01T00:00:00Z"}`))
	mock.ExpectExec(`UPDATE entity_record SET data = \?, updated_date = \? WHERE entity = \? AND id = \? AND tenant_id = \?`).
		WithArgs(sqlmock.AnyArg(), fixedNow, "Page", "p1", "t1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rec, err := s.Update(context.Background(), EntityPage, "t1", "p1", Record{"title": "New", "tenant_id": "t9"})
	require.NoError(t, err)
	assert.Equal(t, "New", rec["title"])
	assert.Equal(t, "t1", rec["tenant_id"])
	assert.Equal(t, "2026-01-01T00:00:00Z", rec[FieldCreated])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLUpdate_ForeignTenant(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("Page", "p1", "t2").
		WillReturnRows(sqlmock.NewRows([]string{"data"}))
	mock.ExpectRollback()

	_, err := s.Update(context.Background(), EntityPage, "t2", "p1", Record{"title": "x"})
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
