package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/driftwood-social/backend/internal/models"
	"github.com/driftwood-social/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// CommentHandler handles HTTP requests related to comments
type CommentHandler struct {
	commentRepository      repositories.CommentRepository
	postRepository         repositories.PostRepository
	userRepository         repositories.UserRepository
	notificationRepository repositories.NotificationRepository
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(commentRepo repositories.CommentRepository, postRepo repositories.PostRepository, userRepo repositories.UserRepository, notifRepo repositories.NotificationRepository) *CommentHandler {
	return &CommentHandler{
		commentRepository:      commentRepo,
		postRepository:         postRepo,
		userRepository:         userRepo,
		notificationRepository: notifRepo,
	}
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.POST("/posts/:post_id/comments", h.CreateComment)
	g.GET("/posts/:post_id/comments", h.GetCommentsByPostID)
	g.PUT("/comments/:id", h.UpdateComment)
	g.DELETE("/comments/:id", h.DeleteComment)
}

// CreateComment creates a new comment on a post
func (h *CommentHandler) CreateComment(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if err := authenticated()(currentUserID); err != nil {
		return err
	}
	postID := c.Param("post_id")

	var req models.CreateCommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	post, err := h.postRepository.GetPostByID(c.Request().Context(), postID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	comment := &models.Comment{
		PostID:  postID,
		UserID:  currentUserID,
		Content: req.Content,
	}

	if err := h.commentRepository.CreateComment(comment); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// Increment comments count in the post
	go h.postRepository.IncrementCommentsCount(context.Background(), postID)

	// Best-effort notification to the author; never rolled back if the
	// append fails.
	warning := ""
	if post.AuthorID != currentUserID {
		if actor, err := h.userRepository.GetUserByID(currentUserID); err == nil {
			notif := &models.Notification{
				Type:        models.NotificationTypeComment,
				ActorID:     currentUserID,
				RecipientID: post.AuthorID,
				TargetID:    postID,
				TargetType:  "post",
				Message:     actor.Username + " commented on your post",
			}
			if err := h.notificationRepository.CreateNotification(notif); err != nil {
				logrus.Warnf("comment committed but notification append failed for recipient %d: %v", post.AuthorID, err)
				warning = "notification delivery failed"
			}
		}
	}

	resp := echo.Map{"success": true, "data": comment}
	if warning != "" {
		resp["warning"] = warning
	}
	return c.JSON(http.StatusCreated, resp)
}

// GetCommentsByPostID retrieves all comments for a specific post
func (h *CommentHandler) GetCommentsByPostID(c echo.Context) error {
	postID := c.Param("post_id")

	if _, err := h.postRepository.GetPostByID(c.Request().Context(), postID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	comments, err := h.commentRepository.GetCommentsByPostID(postID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, comments)
}

// UpdateComment updates an existing comment; only the author may edit it
func (h *CommentHandler) UpdateComment(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	commentID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid comment ID")
	}

	var req models.UpdateCommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	comment, err := h.commentRepository.GetCommentByID(uint(commentID))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Comment not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	check := allOf(authenticated(), ownerOnly(comment.UserID, "You are not authorized to update this comment"))
	if err := check(currentUserID); err != nil {
		return err
	}

	comment.Content = req.Content

	if err := h.commentRepository.UpdateComment(comment); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, comment)
}

// DeleteComment deletes a comment; only the author may delete it
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	commentID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid comment ID")
	}

	comment, err := h.commentRepository.GetCommentByID(uint(commentID))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Comment not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	check := allOf(authenticated(), ownerOnly(comment.UserID, "You are not authorized to delete this comment"))
	if err := check(currentUserID); err != nil {
		return err
	}

	if err := h.commentRepository.DeleteComment(comment.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// Decrement comments count in the post
	go h.postRepository.DecrementCommentsCount(context.Background(), comment.PostID)

	return c.NoContent(http.StatusNoContent)
}
