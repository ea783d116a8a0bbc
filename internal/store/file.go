package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/ai-post-manager/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// FileStore persists the collection as one pretty-printed JSON file.
// Saves write a temp file next to the target and rename it into place.
type FileStore struct {
	path string
	mu   sync.Mutex
	log  zerolog.Logger
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a store backed by the file at path.
// Relative paths resolve against the working directory.
func NewFileStore(path string, log zerolog.Logger) *FileStore {
	return &FileStore{
		path: path,
		log:  log.With().Str("component", "file_store").Str("path", path).Logger(),
	}
}

// Init writes an empty collection if the file does not exist yet
func (s *FileStore) Init(ctx context.Context) error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return loadError("file", err)
	}

	s.log.Info().Msg("Posts file not found, creating empty collection")
	return s.Save(ctx, models.NewCollection())
}

// Load reads and decodes the whole file
func (s *FileStore) Load(ctx context.Context) (*models.Collection, error) {
	s.log.Debug().Msg("Loading posts")

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, loadError("file", ErrNotFound)
		}
		return nil, loadError("file", err)
	}

	collection, err := decodeCollection(data)
	if err != nil {
		return nil, loadError("file", err)
	}
	return collection, nil
}

// Save replaces the file atomically
func (s *FileStore) Save(ctx context.Context, collection *models.Collection) error {
	if err := ctx.Err(); err != nil {
		return saveError("file", err)
	}
	collection = orEmpty(collection)

	data, err := encodeCollection(collection)
	if err != nil {
		return saveError("file", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeFileAtomic(s.path, data); err != nil {
		return saveError("file", err)
	}

	s.log.Debug().Int("posts", len(collection.Posts)).Msg("Posts saved")
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmpPath := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.New().String()[:8]))
	tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	// Remove the temp file on any failure before the rename
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace posts file: %w", err)
	}
	committed = true
	return nil
}

// encodeCollection renders the collection the way the posts file has always
// been written: 4-space indent, trailing newline.
func encodeCollection(collection *models.Collection) ([]byte, error) {
	collection = orEmpty(collection)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(collection); err != nil {
		return nil, fmt.Errorf("failed to encode posts: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeCollection(data []byte) (*models.Collection, error) {
	var collection models.Collection
	if err := json.Unmarshal(data, &collection); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if collection.Posts == nil {
		collection.Posts = make([]models.Post, 0)
	}
	return &collection, nil
}
