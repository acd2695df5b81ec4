package pgstore

import (
	"context"
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"ripple/internal/observability"
	"ripple/internal/store"
)

// newMockStore returns a Pgstore backed by sqlmock.
func newMockStore(t *testing.T) (*Pgstore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return New(gormDB), mock
}

func TestGet(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT path, doc FROM documents WHERE path = $1`)).
		WithArgs("users/u1").
		WillReturnRows(sqlmock.NewRows([]string{"path", "doc"}).
			AddRow("users/u1", []byte(`{"username":"alice","posts_count":3}`)))

	doc, err := s.Get(context.Background(), "users/u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", doc.ID())
	assert.Equal(t, "alice", doc.String("username"))
	assert.Equal(t, int64(3), doc.Int("posts_count"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT path, doc FROM documents`).
		WithArgs("users/u-ghost").
		WillReturnRows(sqlmock.NewRows([]string{"path", "doc"}))

	_, err := s.Get(context.Background(), "users/u-ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetUpserts(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO documents`).
		WithArgs("posts/p1/comments/c1", "posts/p1/comments", "comments", `{"content":"hi"}`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.Set(context.Background(), "posts/p1/comments/c1", store.Fields{"content": "hi"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetRejectsCollectionPath(t *testing.T) {
	s, _ := newMockStore(t)
	err := s.Set(context.Background(), "posts", store.Fields{})
	assert.ErrorIs(t, err, store.ErrInvalidPath)
}

func TestSetResolvesServerTimestamp(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO documents`).
		WithArgs("posts/p1", "posts", "posts",
			// The sentinel must not leak into the stored JSON.
			sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.Set(context.Background(), "posts/p1", store.Fields{"timestamp": store.ServerTimestamp})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	encoded, err := s.encode(store.Fields{"timestamp": store.ServerTimestamp})
	require.NoError(t, err)
	assert.Regexp(t, `"timestamp":"\d{4}-\d{2}-\d{2}T`, encoded)
}

func TestUpdateMergesJSONB(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE documents SET doc = doc || $1::jsonb`)).
		WithArgs(`{"bio":"new"}`, "users/u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Update(context.Background(), "users/u1", store.Fields{"bio": "new"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE documents SET doc = doc`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.Update(context.Background(), "users/u-ghost", store.Fields{"bio": "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestIncrement(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE documents\s+SET doc = jsonb_set`).
		WithArgs("likes_count", "likes_count", int64(5), "posts/p1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Increment(context.Background(), "posts/p1", "likes_count", 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunBatchCommitsInOneTransaction(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO documents`).
		WithArgs("posts/p1/likes/u2", "posts/p1/likes", "likes", `{"uid":"u2"}`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE documents\s+SET doc = jsonb_set`).
		WithArgs("likes_count", "likes_count", int64(1), "posts/p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.RunBatch(context.Background(), []store.Write{
		store.SetWrite("posts/p1/likes/u2", store.Fields{"uid": "u2"}),
		store.IncrementWrite("posts/p1", "likes_count", 1),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunBatchRollsBackOnFailure(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO documents`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE documents`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.RunBatch(context.Background(), []store.Write{
		store.SetWrite("posts/p1/likes/u2", store.Fields{"uid": "u2"}),
		store.IncrementWrite("posts/p-ghost", "likes_count", 1),
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunBatchSizeLimit(t *testing.T) {
	s, _ := newMockStore(t)

	writes := make([]store.Write, store.MaxBatchWrites+1)
	for i := range writes {
		writes[i] = store.SetWrite(fmt.Sprintf("posts/p%d", i), store.Fields{})
	}
	err := s.RunBatch(context.Background(), writes)
	assert.ErrorIs(t, err, store.ErrBatchTooLarge)
}

func TestRunTransactionLocksReadsAndStagesWrites(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT path, doc FROM documents WHERE path = $1 FOR UPDATE`)).
		WithArgs("posts/p1").
		WillReturnRows(sqlmock.NewRows([]string{"path", "doc"}).
			AddRow("posts/p1", []byte(`{"likes_count":0}`)))
	mock.ExpectExec(`INSERT INTO documents`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE documents\s+SET doc = jsonb_set`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.RunTransaction(context.Background(), func(tx store.Txn) error {
		if _, err := tx.Get("posts/p1"); err != nil {
			return err
		}
		tx.Set("posts/p1/likes/u2", store.Fields{"uid": "u2"})
		tx.Increment("posts/p1", "likes_count", 1)
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunTransactionTranslatesConflict(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT path, doc FROM documents`).
		WillReturnError(&pgconn.PgError{Code: "40001"})
	mock.ExpectRollback()

	err := s.RunTransaction(context.Background(), func(tx store.Txn) error {
		_, err := tx.Get("posts/p1")
		return err
	})
	assert.ErrorIs(t, err, store.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunTransactionKeepsCallerError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	sentinel := fmt.Errorf("domain rule violated")
	err := s.RunTransaction(context.Background(), func(tx store.Txn) error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryByParent(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT path, doc FROM documents WHERE parent = $1 AND doc @> $2::jsonb ORDER BY doc->>$3 DESC LIMIT $4`)).
		WithArgs("posts", `{"owner_uid":"u1"}`, "timestamp", 10).
		WillReturnRows(sqlmock.NewRows([]string{"path", "doc"}).
			AddRow("posts/p2", []byte(`{"owner_uid":"u1","caption":"later"}`)).
			AddRow("posts/p1", []byte(`{"owner_uid":"u1","caption":"earlier"}`)))

	docs, err := s.Query(context.Background(), "posts", store.Query{
		Filters: []store.Filter{store.Where("owner_uid", "u1")},
		OrderBy: "timestamp",
		Desc:    true,
		Limit:   10,
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "later", docs[0].String("caption"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryGroupByCollection(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT path, doc FROM documents WHERE collection = $1 AND doc @> $2::jsonb ORDER BY path`)).
		WithArgs("comments", `{"uid":"u1"}`).
		WillReturnRows(sqlmock.NewRows([]string{"path", "doc"}).
			AddRow("posts/p1/comments/c1", []byte(`{"uid":"u1"}`)).
			AddRow("posts/p9/comments/c4", []byte(`{"uid":"u1"}`)))

	docs, err := s.QueryGroup(context.Background(), "comments", store.Query{
		Filters: []store.Filter{store.Where("uid", "u1")},
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "c4", docs[1].ID())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionReadsSeeStagedIncrement(t *testing.T) {
	s, mock := newMockStore(t)

	lockedRead := regexp.QuoteMeta(`SELECT path, doc FROM documents WHERE path = $1 FOR UPDATE`)
	mock.ExpectBegin()
	mock.ExpectQuery(lockedRead).
		WithArgs("posts/p1").
		WillReturnRows(sqlmock.NewRows([]string{"path", "doc"}).
			AddRow("posts/p1", []byte(`{"likes_count":1}`)))
	mock.ExpectQuery(lockedRead).
		WithArgs("posts/p1").
		WillReturnRows(sqlmock.NewRows([]string{"path", "doc"}).
			AddRow("posts/p1", []byte(`{"likes_count":1}`)))
	mock.ExpectExec(`UPDATE documents`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.RunTransaction(context.Background(), func(tx store.Txn) error {
		doc, err := tx.Get("posts/p1")
		require.NoError(t, err)
		require.Equal(t, int64(1), doc.Int("likes_count"))

		tx.Increment("posts/p1", "likes_count", 1)

		// The committed row still holds 1; the staged increment shadows it.
		doc, err = tx.Get("posts/p1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), doc.Int("likes_count"))
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionReadsSeeStagedSet(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT path, doc FROM documents WHERE path = $1 FOR UPDATE`)).
		WithArgs("posts/p1/likes/u1").
		WillReturnRows(sqlmock.NewRows([]string{"path", "doc"}))
	mock.ExpectExec(`INSERT INTO documents`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.RunTransaction(context.Background(), func(tx store.Txn) error {
		tx.Set("posts/p1/likes/u1", store.Fields{"uid": "u1"})

		doc, err := tx.Get("posts/p1/likes/u1")
		require.NoError(t, err)
		assert.Equal(t, "u1", doc.String("uid"))
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionReadsSeeStagedDelete(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT path, doc FROM documents WHERE path = $1 FOR UPDATE`)).
		WithArgs("posts/p1").
		WillReturnRows(sqlmock.NewRows([]string{"path", "doc"}).
			AddRow("posts/p1", []byte(`{"caption":"hi"}`)))
	mock.ExpectExec(`DELETE FROM documents`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.RunTransaction(context.Background(), func(tx store.Txn) error {
		tx.Delete("posts/p1")

		_, err := tx.Get("posts/p1")
		assert.ErrorIs(t, err, store.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConflictAbortIncrementsCounter(t *testing.T) {
	s, mock := newMockStore(t)

	before := testutil.ToFloat64(observability.TransactionConflicts)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT path, doc FROM documents`).
		WillReturnError(&pgconn.PgError{Code: "40P01"})
	mock.ExpectRollback()

	err := s.RunTransaction(context.Background(), func(tx store.Txn) error {
		_, err := tx.Get("posts/p1")
		return err
	})
	require.ErrorIs(t, err, store.ErrConflict)
	assert.Equal(t, before+1, testutil.ToFloat64(observability.TransactionConflicts))
	assert.NoError(t, mock.ExpectationsWereMet())
}
