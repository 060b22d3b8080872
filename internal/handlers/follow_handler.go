package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/driftwood-social/backend/internal/models"
	"github.com/driftwood-social/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// FollowHandler handles follow/unfollow HTTP requests
type FollowHandler struct {
	followRepository       repositories.FollowRepository
	userRepository         repositories.UserRepository
	notificationRepository repositories.NotificationRepository
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(followRepo repositories.FollowRepository, userRepo repositories.UserRepository, notifRepo repositories.NotificationRepository) *FollowHandler {
	return &FollowHandler{
		followRepository:       followRepo,
		userRepository:         userRepo,
		notificationRepository: notifRepo,
	}
}

// RegisterFollowRoutes registers follow-related routes
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group) {
	g.POST("/users/:id/follow", h.FollowUser)
	g.DELETE("/users/:id/follow", h.UnfollowUser)
	g.GET("/users/:id/followers", h.GetFollowers)
	g.GET("/users/:id/following", h.GetFollowing)
}

// FollowUser follows a user. Following an already-followed account
// succeeds silently: the end state after N calls equals the state after
// one.
func (h *FollowHandler) FollowUser(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if err := authenticated()(currentUserID); err != nil {
		return err
	}

	targetID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}

	if currentUserID == uint(targetID) {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot follow yourself")
	}

	target, err := h.userRepository.GetUserByID(uint(targetID))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	isFollowing, err := h.followRepository.IsFollowing(currentUserID, target.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if isFollowing {
		return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"following": true}})
	}

	follow := &models.Follow{
		FollowerID:  currentUserID,
		FollowingID: target.ID,
	}

	if err := h.followRepository.CreateFollow(follow); err != nil {
		// A concurrent racer already created the edge; same end state.
		if !errors.Is(err, models.ErrAlreadyFollowing) {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"following": true}})
	}

	// Update denormalized counts
	h.userRepository.IncrementFollowingCount(currentUserID)
	h.userRepository.IncrementFollowersCount(target.ID)

	// Best-effort notification: a failed append never rolls back the follow
	warning := ""
	actor, err := h.userRepository.GetUserByID(currentUserID)
	if err == nil {
		notif := &models.Notification{
			Type:        models.NotificationTypeFollow,
			ActorID:     currentUserID,
			RecipientID: target.ID,
			TargetID:    strconv.FormatUint(uint64(currentUserID), 10),
			TargetType:  "user",
			Message:     actor.Username + " started following you",
		}
		if err := h.notificationRepository.CreateNotification(notif); err != nil {
			logrus.Warnf("follow committed but notification append failed for recipient %d: %v", target.ID, err)
			warning = "notification delivery failed"
		}
	}

	resp := echo.Map{"success": true, "data": echo.Map{"following": true}}
	if warning != "" {
		resp["warning"] = warning
	}
	return c.JSON(http.StatusOK, resp)
}

// UnfollowUser unfollows a user. Unfollowing an account that was never
// followed is a silent no-op.
func (h *FollowHandler) UnfollowUser(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if err := authenticated()(currentUserID); err != nil {
		return err
	}

	targetID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}

	removed, err := h.followRepository.DeleteFollow(currentUserID, uint(targetID))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if removed {
		// Update denormalized counts
		h.userRepository.DecrementFollowingCount(currentUserID)
		h.userRepository.DecrementFollowersCount(uint(targetID))
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"following": false}})
}

// GetFollowers lists the accounts following the given user
func (h *FollowHandler) GetFollowers(c echo.Context) error {
	return h.listRelated(c, h.followRepository.GetFollowers, h.followRepository.GetFollowersCount, "followers")
}

// GetFollowing lists the accounts the given user follows
func (h *FollowHandler) GetFollowing(c echo.Context) error {
	return h.listRelated(c, h.followRepository.GetFollowing, h.followRepository.GetFollowingCount, "following")
}

func (h *FollowHandler) listRelated(c echo.Context, fetch func(uint) ([]models.User, error), count func(uint) (int64, error), key string) error {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}

	if _, err := h.userRepository.GetUserByID(uint(userID)); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	users, err := fetch(uint(userID))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// Counted from the edge table, not the denormalized user counters
	total, err := count(uint(userID))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	results := make([]models.UserCompact, len(users))
	for i, u := range users {
		results[i] = u.ToCompact()
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{key: results},
		"meta":    echo.Map{"totalItems": total},
	})
}
