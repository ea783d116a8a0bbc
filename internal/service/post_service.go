package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ai-post-manager/internal/models"
	"github.com/ai-post-manager/internal/polisher"
	"github.com/ai-post-manager/internal/store"
	"github.com/rs/zerolog"
)

var (
	// ErrDraftRequired is returned when the rough draft is missing or blank
	ErrDraftRequired = errors.New("rough draft is required")
	// ErrDuplicateDraft is returned when the rough draft is already stored or being created
	ErrDuplicateDraft = errors.New("rough draft already exists")
)

// postService is the concrete implementation of PostService.
// mu serializes every read-modify-write of the store; inFlight reserves
// drafts whose polish call is still running so two requests for the same
// draft cannot both be accepted.
type postService struct {
	store    store.Store
	polisher polisher.Polisher
	log      zerolog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func newPostService(st store.Store, p polisher.Polisher, log zerolog.Logger) *postService {
	return &postService{
		store:    st,
		polisher: p,
		log:      log.With().Str("service", "post").Logger(),
		inFlight: make(map[string]struct{}),
	}
}

// ListPosts returns the stored collection as is
func (s *postService) ListPosts(ctx context.Context) (*models.Collection, error) {
	return s.store.Load(ctx)
}

// CreatePost polishes a new draft and appends it to the collection
func (s *postService) CreatePost(ctx context.Context, req *models.CreatePostRequest) (*models.Post, error) {
	draft := req.RoughDraft
	if strings.TrimSpace(draft) == "" {
		return nil, ErrDraftRequired
	}

	if err := s.reserve(ctx, draft); err != nil {
		return nil, err
	}
	defer s.release(draft)

	post := &models.Post{
		RoughDraft: draft,
		Status:     models.PostStatusPending,
		Idea:       req.Idea,
	}

	start := time.Now()
	finalPost, err := s.polisher.Polish(ctx, draft)
	if err != nil {
		return nil, fmt.Errorf("failed to polish draft: %w", err)
	}
	post.FinalPost = finalPost
	post.Status = models.PostStatusPosted

	if err := s.appendPost(ctx, post); err != nil {
		// The generated text only exists in memory at this point
		s.log.Error().
			Err(err).
			Str("rough_draft", draft).
			Str("final_post", finalPost).
			Msg("Failed to persist polished post")
		return nil, err
	}

	s.log.Info().
		Int("post_id", post.ID).
		Dur("polish_duration", time.Since(start)).
		Msg("Post created")

	return post, nil
}

// GeneratePost polishes a draft without storing anything
func (s *postService) GeneratePost(ctx context.Context, roughDraft string) (string, error) {
	if strings.TrimSpace(roughDraft) == "" {
		return "", ErrDraftRequired
	}
	return s.polisher.Polish(ctx, roughDraft)
}

// Stats counts stored posts by status
func (s *postService) Stats(ctx context.Context) (*models.PostStats, error) {
	collection, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	stats := &models.PostStats{Total: len(collection.Posts)}
	for _, p := range collection.Posts {
		switch p.Status {
		case models.PostStatusPending:
			stats.Pending++
		case models.PostStatusPosted:
			stats.Posted++
		}
	}
	return stats, nil
}

// reserve checks the draft against the store and the in-flight set and claims it
func (s *postService) reserve(ctx context.Context, draft string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.inFlight[draft]; ok {
		return ErrDuplicateDraft
	}

	collection, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	if collection.HasDraft(draft) {
		return ErrDuplicateDraft
	}

	s.inFlight[draft] = struct{}{}
	return nil
}

func (s *postService) release(draft string) {
	s.mu.Lock()
	delete(s.inFlight, draft)
	s.mu.Unlock()
}

// appendPost reloads the collection, assigns the next id and saves
func (s *postService) appendPost(ctx context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	collection, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	// The store may have been edited outside this process since reserve
	if collection.HasDraft(post.RoughDraft) {
		return ErrDuplicateDraft
	}

	post.ID = collection.NextID()
	collection.Posts = append(collection.Posts, *post)

	return s.store.Save(ctx, collection)
}
