package store

import (
	"context"
	"sync"

	"github.com/ai-post-manager/internal/models"
)

// MemoryStore keeps the collection in process memory
type MemoryStore struct {
	mu         sync.RWMutex
	collection *models.Collection
	LoadErr    error
	SaveErr    error
	SaveCalls  int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a store seeded with the given posts
func NewMemoryStore(posts ...models.Post) *MemoryStore {
	c := models.NewCollection()
	c.Posts = append(c.Posts, posts...)
	return &MemoryStore{collection: c}
}

func (s *MemoryStore) Load(ctx context.Context) (*models.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.LoadErr != nil {
		return nil, loadError("memory", s.LoadErr)
	}
	if s.collection == nil {
		return nil, loadError("memory", ErrNotFound)
	}
	return s.collection.Clone(), nil
}

func (s *MemoryStore) Save(ctx context.Context, collection *models.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.SaveCalls++
	if s.SaveErr != nil {
		return saveError("memory", s.SaveErr)
	}
	s.collection = orEmpty(collection).Clone()
	return nil
}

// Posts returns a snapshot of the stored posts
func (s *MemoryStore) Posts() []models.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.collection == nil {
		return nil
	}
	return s.collection.Clone().Posts
}
