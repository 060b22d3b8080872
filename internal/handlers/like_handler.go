package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/driftwood-social/backend/internal/models"
	"github.com/driftwood-social/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// LikeHandler handles HTTP requests related to likes
type LikeHandler struct {
	likeRepository         repositories.LikeRepository
	postRepository         repositories.PostRepository
	userRepository         repositories.UserRepository
	notificationRepository repositories.NotificationRepository
}

// NewLikeHandler creates a new LikeHandler
func NewLikeHandler(likeRepo repositories.LikeRepository, postRepo repositories.PostRepository, userRepo repositories.UserRepository, notifRepo repositories.NotificationRepository) *LikeHandler {
	return &LikeHandler{
		likeRepository:         likeRepo,
		postRepository:         postRepo,
		userRepository:         userRepo,
		notificationRepository: notifRepo,
	}
}

// RegisterLikeRoutes registers like-related routes
func (h *LikeHandler) RegisterLikeRoutes(g *echo.Group) {
	g.POST("/posts/:post_id/likes", h.LikePost)
	g.DELETE("/posts/:post_id/likes", h.UnlikePost)
	g.GET("/posts/:post_id/likes", h.GetLikesForPost)
	g.GET("/posts/:post_id/likes/count", h.GetLikesCountForPost)
	g.GET("/posts/:post_id/likes/status", h.GetUserLikeStatusForPost)
}

// EnrichedLike is a like row with the liker's compact profile
type EnrichedLike struct {
	models.Like
	User models.UserCompact `json:"user"`
}

// LikePost handles liking a post. Duplicate likes are first-writer-wins:
// the caller gets a conflict, never a second row. Concurrent racers are
// settled by the composite unique key in the like store.
func (h *LikeHandler) LikePost(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if err := authenticated()(currentUserID); err != nil {
		return err
	}
	postID := c.Param("post_id")

	post, err := h.postRepository.GetPostByID(c.Request().Context(), postID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	hasLiked, err := h.likeRepository.HasUserLikedPost(postID, currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if hasLiked {
		return echo.NewHTTPError(http.StatusConflict, "Post already liked by this user")
	}

	like := &models.Like{
		PostID: postID,
		UserID: currentUserID,
	}

	if err := h.likeRepository.CreateLike(like); err != nil {
		if errors.Is(err, models.ErrAlreadyLiked) {
			return echo.NewHTTPError(http.StatusConflict, "Post already liked by this user")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// Increment likes count in the post
	go h.postRepository.IncrementLikesCount(context.Background(), postID)

	// Best-effort notification to the author; skipped when liking your own
	// post, and never rolled back if the append fails.
	warning := ""
	if post.AuthorID != currentUserID {
		actor, err := h.userRepository.GetUserByID(currentUserID)
		if err == nil {
			notif := &models.Notification{
				Type:        models.NotificationTypeLike,
				ActorID:     currentUserID,
				RecipientID: post.AuthorID,
				TargetID:    postID,
				TargetType:  "post",
				Message:     actor.Username + " liked your post",
			}
			if err := h.notificationRepository.CreateNotification(notif); err != nil {
				logrus.Warnf("like committed but notification append failed for recipient %d: %v", post.AuthorID, err)
				warning = "notification delivery failed"
			}
		}
	}

	resp := echo.Map{"success": true, "data": like}
	if warning != "" {
		resp["warning"] = warning
	}
	return c.JSON(http.StatusCreated, resp)
}

// UnlikePost handles unliking a post. Unliking a post that was never
// liked is a conflict reported to the caller, not a server fault.
func (h *LikeHandler) UnlikePost(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if err := authenticated()(currentUserID); err != nil {
		return err
	}
	postID := c.Param("post_id")

	if _, err := h.postRepository.GetPostByID(c.Request().Context(), postID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.likeRepository.DeleteLike(postID, currentUserID); err != nil {
		if errors.Is(err, models.ErrNotLiked) {
			return echo.NewHTTPError(http.StatusConflict, "Post not liked by this user")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// Decrement likes count in the post
	go h.postRepository.DecrementLikesCount(context.Background(), postID)

	return c.NoContent(http.StatusNoContent)
}

// GetLikesForPost lists who liked a post
func (h *LikeHandler) GetLikesForPost(c echo.Context) error {
	postID := c.Param("post_id")

	if _, err := h.postRepository.GetPostByID(c.Request().Context(), postID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	likes, err := h.likeRepository.GetLikesByPostID(postID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	enriched := make([]EnrichedLike, len(likes))
	for i, like := range likes {
		enriched[i] = EnrichedLike{Like: like}
		if user, err := h.userRepository.GetUserByID(like.UserID); err == nil {
			enriched[i].User = user.ToCompact()
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"likes": enriched}})
}

// GetLikesCountForPost retrieves the total number of likes for a specific post
func (h *LikeHandler) GetLikesCountForPost(c echo.Context) error {
	postID := c.Param("post_id")

	if _, err := h.postRepository.GetPostByID(c.Request().Context(), postID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	count, err := h.likeRepository.GetLikesCountByPostID(postID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"post_id": postID, "likes_count": count})
}

// GetUserLikeStatusForPost checks if the authenticated user has liked a specific post
func (h *LikeHandler) GetUserLikeStatusForPost(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if err := authenticated()(currentUserID); err != nil {
		return err
	}
	postID := c.Param("post_id")

	if _, err := h.postRepository.GetPostByID(c.Request().Context(), postID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	hasLiked, err := h.likeRepository.HasUserLikedPost(postID, currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"post_id": postID, "user_id": currentUserID, "has_liked": hasLiked})
}
