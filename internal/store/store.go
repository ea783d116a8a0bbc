package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/ai-post-manager/internal/models"
)

var (
	// ErrNotFound is returned by Load when the backing file or object does not exist
	ErrNotFound = errors.New("post collection not found")
	// ErrParse is returned by Load when the stored data is not a valid collection
	ErrParse = errors.New("post collection is not valid JSON")
)

// Store reads and replaces the whole post collection
type Store interface {
	Load(ctx context.Context) (*models.Collection, error)
	Save(ctx context.Context, collection *models.Collection) error
}

// Pinger is implemented by stores that hold a connection worth health-checking
type Pinger interface {
	Ping(ctx context.Context) error
}

// StorageError wraps a failure of a store backend
type StorageError struct {
	Op      string // "load" or "save"
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s store %s: %v", e.Backend, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func loadError(backend string, err error) error {
	return &StorageError{Op: "load", Backend: backend, Err: err}
}

func saveError(backend string, err error) error {
	return &StorageError{Op: "save", Backend: backend, Err: err}
}

// orEmpty treats a nil collection or nil post list as empty, keeping top-level extras
func orEmpty(collection *models.Collection) *models.Collection {
	if collection == nil {
		return models.NewCollection()
	}
	if collection.Posts == nil {
		return &models.Collection{Posts: make([]models.Post, 0), Extra: collection.Extra}
	}
	return collection
}
