package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ai-post-manager/internal/mocks"
	"github.com/ai-post-manager/internal/models"
	"github.com/ai-post-manager/internal/polisher"
	"github.com/ai-post-manager/internal/service"
	"github.com/ai-post-manager/internal/store"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(posts ...models.Post) (service.PostService, *store.MemoryStore, *mocks.MockPolisher) {
	st := store.NewMemoryStore(posts...)
	p := mocks.NewMockPolisher()
	return service.NewServices(st, p, zerolog.Nop()).Post, st, p
}

func TestPostService_CreatePost(t *testing.T) {
	svc, st, p := newTestService()
	ctx := context.Background()

	post, err := svc.CreatePost(ctx, &models.CreatePostRequest{RoughDraft: "first idea"})
	require.NoError(t, err)

	assert.Equal(t, 1, post.ID)
	assert.Equal(t, "first idea", post.RoughDraft)
	assert.Equal(t, "polished: first idea", post.FinalPost)
	assert.Equal(t, models.PostStatusPosted, post.Status)
	assert.Equal(t, []string{"first idea"}, p.Calls())
	assert.Equal(t, []models.Post{*post}, st.Posts())

	second, err := svc.CreatePost(ctx, &models.CreatePostRequest{RoughDraft: "second idea"})
	require.NoError(t, err)
	assert.Equal(t, 2, second.ID)
}

func TestPostService_CreatePost_Duplicate(t *testing.T) {
	seed := models.Post{ID: 1, RoughDraft: "A", FinalPost: "X", Status: models.PostStatusPosted}
	svc, st, p := newTestService(seed)

	_, err := svc.CreatePost(context.Background(), &models.CreatePostRequest{RoughDraft: "A"})
	assert.ErrorIs(t, err, service.ErrDuplicateDraft)
	assert.Empty(t, p.Calls())
	assert.Equal(t, 0, st.SaveCalls)
	assert.Equal(t, []models.Post{seed}, st.Posts())
}

func TestPostService_CreatePost_Required(t *testing.T) {
	svc, _, p := newTestService()

	for _, draft := range []string{"", " ", "\n\t"} {
		_, err := svc.CreatePost(context.Background(), &models.CreatePostRequest{RoughDraft: draft})
		assert.ErrorIs(t, err, service.ErrDraftRequired)
	}
	assert.Empty(t, p.Calls())
}

func TestPostService_CreatePost_NextIDSkipsGaps(t *testing.T) {
	svc, _, _ := newTestService(
		models.Post{ID: 1, RoughDraft: "A", Status: models.PostStatusPosted},
		models.Post{ID: 5, RoughDraft: "B", Status: models.PostStatusPosted},
	)

	post, err := svc.CreatePost(context.Background(), &models.CreatePostRequest{RoughDraft: "C"})
	require.NoError(t, err)
	assert.Equal(t, 6, post.ID)
}

func TestPostService_CreatePost_PolishError(t *testing.T) {
	svc, st, p := newTestService()
	genErr := &polisher.GenerationError{Command: "ollama", Err: errors.New("exit status 1")}
	p.PolishFunc = func(ctx context.Context, draft string) (string, error) {
		return "", genErr
	}

	_, err := svc.CreatePost(context.Background(), &models.CreatePostRequest{RoughDraft: "A"})
	var target *polisher.GenerationError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, 0, st.SaveCalls)

	// The draft is released after a failure and can be retried
	p.PolishFunc = nil
	_, err = svc.CreatePost(context.Background(), &models.CreatePostRequest{RoughDraft: "A"})
	assert.NoError(t, err)
}

func TestPostService_CreatePost_StorageErrors(t *testing.T) {
	svc, st, _ := newTestService()
	st.LoadErr = store.ErrNotFound

	_, err := svc.CreatePost(context.Background(), &models.CreatePostRequest{RoughDraft: "A"})
	var storageErr *store.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, "load", storageErr.Op)
}

func TestPostService_CreatePost_SameDraftConcurrently(t *testing.T) {
	svc, st, p := newTestService()

	release := make(chan struct{})
	var started int32
	p.PolishFunc = func(ctx context.Context, draft string) (string, error) {
		atomic.AddInt32(&started, 1)
		<-release
		return "done", nil
	}

	const n = 10
	var wg sync.WaitGroup
	var created, duplicates int32
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreatePost(context.Background(), &models.CreatePostRequest{RoughDraft: "same"})
			switch {
			case err == nil:
				atomic.AddInt32(&created, 1)
			case errors.Is(err, service.ErrDuplicateDraft):
				atomic.AddInt32(&duplicates, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	// Wait for the single accepted request to reach the polisher
	require.Eventually(t, func() bool { return atomic.LoadInt32(&started) == 1 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return atomic.LoadInt32(&duplicates) == n-1 }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), created)
	assert.Equal(t, int32(1), atomic.LoadInt32(&started))
	assert.Len(t, st.Posts(), 1)
}

func TestPostService_GeneratePost(t *testing.T) {
	svc, st, p := newTestService()

	out, err := svc.GeneratePost(context.Background(), "raw")
	require.NoError(t, err)
	assert.Equal(t, "polished: raw", out)
	assert.Equal(t, 0, st.SaveCalls)

	_, err = svc.GeneratePost(context.Background(), "")
	assert.ErrorIs(t, err, service.ErrDraftRequired)
	assert.Len(t, p.Calls(), 1)
}

func TestPostService_GeneratePost_Timeout(t *testing.T) {
	svc, _, p := newTestService()
	p.PolishFunc = func(ctx context.Context, draft string) (string, error) {
		return "", polisher.ErrTimeout
	}

	_, err := svc.GeneratePost(context.Background(), "raw")
	assert.ErrorIs(t, err, polisher.ErrTimeout)
}

func TestPostService_ListAndStats(t *testing.T) {
	svc, _, _ := newTestService(
		models.Post{ID: 1, RoughDraft: "A", Status: models.PostStatusPosted},
		models.Post{ID: 2, RoughDraft: "B", Status: models.PostStatusPending},
	)
	ctx := context.Background()

	collection, err := svc.ListPosts(ctx)
	require.NoError(t, err)
	assert.Len(t, collection.Posts, 2)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &models.PostStats{Total: 2, Pending: 1, Posted: 1}, stats)
}
