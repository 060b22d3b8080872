package handlers

import (
	"math"
	"net/http"
	"strconv"

	"github.com/driftwood-social/backend/internal/models"
	"github.com/driftwood-social/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// FeedHandler handles feed-related HTTP requests
type FeedHandler struct {
	postRepository   repositories.PostRepository
	userRepository   repositories.UserRepository
	followRepository repositories.FollowRepository
	likeRepository   repositories.LikeRepository
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(
	postRepo repositories.PostRepository,
	userRepo repositories.UserRepository,
	followRepo repositories.FollowRepository,
	likeRepo repositories.LikeRepository,
) *FeedHandler {
	return &FeedHandler{
		postRepository:   postRepo,
		userRepository:   userRepo,
		followRepository: followRepo,
		likeRepository:   likeRepo,
	}
}

// RegisterFeedRoutes registers feed-related routes
func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group) {
	g.GET("/feed", h.GetFeed)
}

// EnrichedPost is a post with author info and user-specific flags
type EnrichedPost struct {
	models.Post
	Author  models.UserCompact `json:"author"`
	IsLiked bool               `json:"is_liked"`
}

// GetFeed returns the reverse-chronological union of posts authored by
// accounts the caller follows, newest first. Computed on read; no
// precomputed fan-out table at this scale.
func (h *FeedHandler) GetFeed(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if err := authenticated()(currentUserID); err != nil {
		return err
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 10
	}

	skip := int64((page - 1) * limit)
	ctx := c.Request().Context()

	followingIDs, err := h.followRepository.GetFollowingIDs(currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	posts, err := h.postRepository.GetPostsByAuthorIDs(ctx, followingIDs, skip, int64(limit))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	totalItems, err := h.postRepository.CountPostsByAuthorIDs(ctx, followingIDs)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// Build author map once per page
	authorMap := make(map[uint]models.UserCompact)
	for _, p := range posts {
		if _, ok := authorMap[p.AuthorID]; ok {
			continue
		}
		if author, err := h.userRepository.GetUserByID(p.AuthorID); err == nil {
			authorMap[p.AuthorID] = author.ToCompact()
		}
	}

	// Check liked status for the current user
	likedMap := make(map[string]bool)
	for _, p := range posts {
		pid := p.ID.Hex()
		liked, err := h.likeRepository.HasUserLikedPost(pid, currentUserID)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		likedMap[pid] = liked
	}

	enrichedPosts := make([]EnrichedPost, len(posts))
	for i, p := range posts {
		enrichedPosts[i] = EnrichedPost{
			Post:    p,
			Author:  authorMap[p.AuthorID],
			IsLiked: likedMap[p.ID.Hex()],
		}
	}

	totalPages := int(math.Ceil(float64(totalItems) / float64(limit)))

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"posts": enrichedPosts,
		},
		"meta": echo.Map{
			"currentPage":     page,
			"totalPages":      totalPages,
			"totalItems":      totalItems,
			"itemsPerPage":    limit,
			"hasNextPage":     page < totalPages,
			"hasPreviousPage": page > 1,
		},
	})
}
