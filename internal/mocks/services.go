package mocks

import (
	"context"
	"sync"

	"github.com/ai-post-manager/internal/models"
	"github.com/ai-post-manager/internal/service"
)

// MockPostService is a mock implementation of PostService
type MockPostService struct {
	ListFunc     func(ctx context.Context) (*models.Collection, error)
	CreateFunc   func(ctx context.Context, req *models.CreatePostRequest) (*models.Post, error)
	GenerateFunc func(ctx context.Context, roughDraft string) (string, error)
	StatsFunc    func(ctx context.Context) (*models.PostStats, error)

	mu            sync.Mutex
	CreateCalls   []*models.CreatePostRequest
	GenerateCalls []string
}

// Verify interface compliance
var _ service.PostService = (*MockPostService)(nil)

func NewMockPostService() *MockPostService {
	return &MockPostService{}
}

func (m *MockPostService) ListPosts(ctx context.Context) (*models.Collection, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return models.NewCollection(), nil
}

func (m *MockPostService) CreatePost(ctx context.Context, req *models.CreatePostRequest) (*models.Post, error) {
	m.mu.Lock()
	m.CreateCalls = append(m.CreateCalls, req)
	m.mu.Unlock()

	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, req)
	}
	return &models.Post{
		ID:         1,
		RoughDraft: req.RoughDraft,
		FinalPost:  "polished: " + req.RoughDraft,
		Status:     models.PostStatusPosted,
		Idea:       req.Idea,
	}, nil
}

func (m *MockPostService) GeneratePost(ctx context.Context, roughDraft string) (string, error) {
	m.mu.Lock()
	m.GenerateCalls = append(m.GenerateCalls, roughDraft)
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, roughDraft)
	}
	return "polished: " + roughDraft, nil
}

func (m *MockPostService) Stats(ctx context.Context) (*models.PostStats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx)
	}
	return &models.PostStats{}, nil
}
