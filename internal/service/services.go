package service

import (
	"context"

	"github.com/ai-post-manager/internal/models"
	"github.com/ai-post-manager/internal/polisher"
	"github.com/ai-post-manager/internal/store"
	"github.com/rs/zerolog"
)

// PostService defines the interface for post operations
type PostService interface {
	ListPosts(ctx context.Context) (*models.Collection, error)
	CreatePost(ctx context.Context, req *models.CreatePostRequest) (*models.Post, error)
	GeneratePost(ctx context.Context, roughDraft string) (string, error)
	Stats(ctx context.Context) (*models.PostStats, error)
}

// Services holds all service interfaces
type Services struct {
	Post PostService

	store store.Store
}

// NewServices creates all services
func NewServices(st store.Store, p polisher.Polisher, log zerolog.Logger) *Services {
	return &Services{
		Post:  newPostService(st, p, log),
		store: st,
	}
}

// Ping reports whether the post store is reachable.
// Stores without a connection are always healthy.
func (s *Services) Ping(ctx context.Context) error {
	if pinger, ok := s.store.(store.Pinger); ok {
		return pinger.Ping(ctx)
	}
	return nil
}
