package api

import (
	"errors"
	"net/http"

	"github.com/ai-post-manager/internal/models"
	"github.com/ai-post-manager/internal/polisher"
	"github.com/ai-post-manager/internal/service"
	"github.com/ai-post-manager/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	msgDraftRequired  = "Rough draft is required"
	msgDuplicateDraft = "This rough draft already exists."
	msgStorageFailure = "failed to access post storage"
)

// PostHandler handles post endpoints
type PostHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(services *service.Services, log zerolog.Logger) *PostHandler {
	return &PostHandler{
		services: services,
		log:      log.With().Str("handler", "post").Logger(),
	}
}

// ListPosts handles GET /api/posts
func (h *PostHandler) ListPosts(c *gin.Context) {
	h.log.Debug().Msg("GET /api/posts called")

	collection, err := h.services.Post.ListPosts(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, collection)
}

// CreatePost handles POST /api/posts
func (h *PostHandler) CreatePost(c *gin.Context) {
	h.log.Debug().Msg("POST /api/posts called")

	var req models.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("Invalid create post body")
		c.JSON(http.StatusBadRequest, gin.H{"error": msgDraftRequired})
		return
	}

	post, err := h.services.Post.CreatePost(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, post)
}

// GeneratePost handles POST /api/generate_post.
// Nothing is persisted.
func (h *PostHandler) GeneratePost(c *gin.Context) {
	h.log.Debug().Msg("POST /api/generate_post called")

	var req models.GeneratePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgDraftRequired})
		return
	}

	finalPost, err := h.services.Post.GeneratePost(c.Request.Context(), req.RoughDraft)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.GeneratePostResponse{FinalPost: finalPost})
}

// respondError maps service errors onto status codes and bodies
func (h *PostHandler) respondError(c *gin.Context, err error) {
	var genErr *polisher.GenerationError
	var storageErr *store.StorageError

	switch {
	case errors.Is(err, service.ErrDraftRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": msgDraftRequired})
	case errors.Is(err, service.ErrDuplicateDraft):
		c.JSON(http.StatusBadRequest, gin.H{"error": msgDuplicateDraft})
	case errors.Is(err, polisher.ErrTimeout):
		h.log.Warn().Err(err).Msg("Generation timed out")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	case errors.As(err, &genErr):
		h.log.Error().Err(err).Msg("Generation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	case errors.As(err, &storageErr):
		h.log.Error().Err(err).Str("backend", storageErr.Backend).Str("op", storageErr.Op).Msg("Storage failure")
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgStorageFailure})
	default:
		h.log.Error().Err(err).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
