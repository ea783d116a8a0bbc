package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ai-post-manager/internal/database"
	"github.com/ai-post-manager/internal/models"
	"github.com/lib/pq"
)

// PostgresStore keeps the collection in the posts table. Record fields
// outside the schema live in posts.extra, other top-level keys in
// post_collection_attrs. Save replaces both tables in a single transaction.
type PostgresStore struct {
	db *database.DB
}

var (
	_ Store  = (*PostgresStore)(nil)
	_ Pinger = (*PostgresStore)(nil)
)

// NewPostgresStore creates a store on an open, migrated database
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Load selects every post ordered by id, then the collection attributes
func (s *PostgresStore) Load(ctx context.Context) (*models.Collection, error) {
	query := `SELECT id, rough_draft, final_post, status, idea, extra FROM posts ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, loadError("postgres", err)
	}
	defer rows.Close()

	collection := models.NewCollection()
	for rows.Next() {
		var p models.Post
		var idea sql.NullString
		var extra []byte
		if err := rows.Scan(&p.ID, &p.RoughDraft, &p.FinalPost, &p.Status, &idea, &extra); err != nil {
			return nil, loadError("postgres", fmt.Errorf("%w: %v", ErrParse, err))
		}
		p.Idea = idea.String
		if len(extra) > 0 {
			if err := json.Unmarshal(extra, &p.Extra); err != nil {
				return nil, loadError("postgres", fmt.Errorf("%w: post %d extra: %v", ErrParse, p.ID, err))
			}
		}
		collection.Posts = append(collection.Posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, loadError("postgres", err)
	}

	attrs, err := s.loadAttrs(ctx)
	if err != nil {
		return nil, loadError("postgres", err)
	}
	collection.Extra = attrs

	return collection, nil
}

func (s *PostgresStore) loadAttrs(ctx context.Context) (map[string]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM post_collection_attrs`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attrs map[string]json.RawMessage
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
		if attrs == nil {
			attrs = make(map[string]json.RawMessage)
		}
		attrs[key] = json.RawMessage(value)
	}
	return attrs, rows.Err()
}

// Save deletes all rows and reinserts the collection using the COPY protocol
func (s *PostgresStore) Save(ctx context.Context, collection *models.Collection) error {
	collection = orEmpty(collection)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return saveError("postgres", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM posts`); err != nil {
		return saveError("postgres", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM post_collection_attrs`); err != nil {
		return saveError("postgres", err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("posts",
		"id", "rough_draft", "final_post", "status", "idea", "extra",
	))
	if err != nil {
		return saveError("postgres", err)
	}
	defer stmt.Close()

	for _, p := range collection.Posts {
		extra, err := extraJSON(p.Extra)
		if err != nil {
			return saveError("postgres", err)
		}
		if _, err := stmt.ExecContext(ctx, p.ID, p.RoughDraft, p.FinalPost, string(p.Status), nullString(p.Idea), extra); err != nil {
			return saveError("postgres", err)
		}
	}

	// Flush the COPY buffer
	if _, err := stmt.ExecContext(ctx); err != nil {
		return saveError("postgres", err)
	}

	keys := make([]string, 0, len(collection.Extra))
	for k := range collection.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO post_collection_attrs (key, value) VALUES ($1, $2)`,
			k, string(collection.Extra[k]),
		); err != nil {
			return saveError("postgres", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return saveError("postgres", err)
	}
	return nil
}

// Ping checks the database connection
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.HealthCheck(ctx)
}

// Close releases the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// helper to convert empty string to NULL
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// extraJSON renders extra fields as text for the jsonb column; none is NULL
func extraJSON(extra map[string]json.RawMessage) (sql.NullString, error) {
	if len(extra) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(extra)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode extra fields: %w", err)
	}
	return nullString(string(data)), nil
}
