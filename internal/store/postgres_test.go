package store_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ai-post-manager/internal/database"
	"github.com/ai-post-manager/internal/models"
	"github.com/ai-post-manager/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostgresStore(t *testing.T) (*store.PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return store.NewPostgresStore(&database.DB{DB: db}), mock
}

func TestPostgresStore_Load(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, rough_draft, final_post, status, idea, extra FROM posts ORDER BY id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "rough_draft", "final_post", "status", "idea", "extra"}).
			AddRow(1, "A", "X", "posted", nil, nil).
			AddRow(2, "B", "Y", "posted", "tags", []byte(`{"posted_at":"2024-01-01"}`)))
	mock.ExpectQuery(`SELECT key, value FROM post_collection_attrs`).
		WillReturnRows(sqlmock.NewRows([]string{"key", "value"}).AddRow("version", []byte(`2`)))

	collection, err := s.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, collection.Posts, 2)
	assert.Equal(t, models.Post{ID: 1, RoughDraft: "A", FinalPost: "X", Status: models.PostStatusPosted}, collection.Posts[0])
	assert.Equal(t, "tags", collection.Posts[1].Idea)
	assert.JSONEq(t, `"2024-01-01"`, string(collection.Posts[1].Extra["posted_at"]))
	assert.JSONEq(t, `2`, string(collection.Extra["version"]))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadEmpty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, rough_draft`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "rough_draft", "final_post", "status", "idea", "extra"}))
	mock.ExpectQuery(`SELECT key, value FROM post_collection_attrs`).
		WillReturnRows(sqlmock.NewRows([]string{"key", "value"}))

	collection, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, collection.Posts)
	assert.Empty(t, collection.Posts)
	assert.Nil(t, collection.Extra)
}

func TestPostgresStore_SaveReplacesAll(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	collection := &models.Collection{
		Posts: []models.Post{
			{ID: 1, RoughDraft: "A", FinalPost: "X", Status: models.PostStatusPosted},
			{
				ID: 2, RoughDraft: "B", FinalPost: "Y", Status: models.PostStatusPosted, Idea: "tags",
				Extra: map[string]json.RawMessage{"likes": json.RawMessage(`3`)},
			},
		},
		Extra: map[string]json.RawMessage{"version": json.RawMessage(`2`)},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM posts`).WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec(`DELETE FROM post_collection_attrs`).WillReturnResult(sqlmock.NewResult(0, 0))
	copyIn := mock.ExpectPrepare(`COPY "posts"`)
	copyIn.ExpectExec().WithArgs(1, "A", "X", "posted", nil, nil).WillReturnResult(sqlmock.NewResult(0, 1))
	copyIn.ExpectExec().WithArgs(2, "B", "Y", "posted", "tags", `{"likes":3}`).WillReturnResult(sqlmock.NewResult(0, 1))
	copyIn.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO post_collection_attrs`).WithArgs("version", "2").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.Save(context.Background(), collection))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRollsBackOnFailure(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM posts`).WillReturnError(errors.New("relation does not exist"))
	mock.ExpectRollback()

	err := s.Save(context.Background(), models.NewCollection())
	var storageErr *store.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "postgres", storageErr.Backend)
	assert.Equal(t, "save", storageErr.Op)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Ping(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectPing()
	assert.NoError(t, s.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	assert.Error(t, s.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
