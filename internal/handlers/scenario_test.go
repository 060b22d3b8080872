package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/driftwood-social/backend/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// appFixture wires every handler over one shared set of stores, so a
// test can walk a user journey end to end the way the router would.
type appFixture struct {
	users   *fakeUserRepo
	follows *fakeFollowRepo
	likes   *fakeLikeRepo
	posts   *fakePostRepo
	notifs  *fakeNotificationRepo

	auth          *AuthHandler
	followHandler *FollowHandler
	likeHandler   *LikeHandler
	postHandler   *PostHandler
	feedHandler   *FeedHandler
	notifHandler  *NotificationHandler
}

func newAppFixture() *appFixture {
	users := newFakeUserRepo()
	f := &appFixture{
		users:   users,
		follows: newFakeFollowRepo(users),
		likes:   newFakeLikeRepo(),
		posts:   newFakePostRepo(),
		notifs:  newFakeNotificationRepo(),
	}
	comments := newFakeCommentRepo()
	f.auth = NewAuthHandler(f.users, testJWTSecret)
	f.followHandler = NewFollowHandler(f.follows, f.users, f.notifs)
	f.likeHandler = NewLikeHandler(f.likes, f.posts, f.users, f.notifs)
	f.postHandler = NewPostHandler(f.posts, f.users, comments, f.likes)
	f.feedHandler = NewFeedHandler(f.posts, f.users, f.follows, f.likes)
	f.notifHandler = NewNotificationHandler(f.notifs, f.users)
	return f
}

func (f *appFixture) register(t *testing.T, username string) *models.User {
	t.Helper()
	payload := fmt.Sprintf(`{"username":%q,"email":"%s@example.com","password":"hunter2hunter2"}`, username, username)
	c, rec := newTestContext(http.MethodPost, "/auth/register", payload, 0)
	require.NoError(t, f.auth.Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	user, err := f.users.GetUserByUsername(username)
	require.NoError(t, err)
	return user
}

// TestFollowPostLikeJourney walks the core interaction loop: alice
// follows bob, bob posts, the post shows up in alice's feed, alice
// likes it exactly once, bob gets notified, and unfollowing empties
// the feed again.
func TestFollowPostLikeJourney(t *testing.T) {
	f := newAppFixture()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")

	// alice follows bob
	c, rec := newTestContext(http.MethodPost, fmt.Sprintf("/users/%d/follow", bob.ID), "", alice.ID)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(bob.ID))
	require.NoError(t, f.followHandler.FollowUser(c))
	require.Equal(t, http.StatusOK, rec.Code)

	// bob publishes a post
	c, rec = newTestContext(http.MethodPost, "/posts", `{"title":"Hello","content":"first post"}`, bob.ID)
	require.NoError(t, f.postHandler.CreatePost(c))
	require.Equal(t, http.StatusCreated, rec.Code)
	var post models.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &post))

	// the post appears in alice's feed
	c, rec = newTestContext(http.MethodGet, "/feed", "", alice.ID)
	require.NoError(t, f.feedHandler.GetFeed(c))
	var feed feedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &feed))
	require.Len(t, feed.Data.Posts, 1)
	assert.Equal(t, post.ID, feed.Data.Posts[0].ID)
	assert.Equal(t, "bob", feed.Data.Posts[0].Author.Username)
	assert.False(t, feed.Data.Posts[0].IsLiked)

	// alice likes the post
	c, rec = newTestContext(http.MethodPost, "/posts/"+post.ID.Hex()+"/likes", "", alice.ID)
	c.SetParamNames("post_id")
	c.SetParamValues(post.ID.Hex())
	require.NoError(t, f.likeHandler.LikePost(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	// bob now has follow + like notifications, like first
	notifs, _, err := f.notifs.GetByRecipientID(bob.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, notifs, 2)
	assert.Equal(t, models.NotificationTypeLike, notifs[0].Type)
	assert.Equal(t, alice.ID, notifs[0].ActorID)
	assert.Equal(t, "alice liked your post", notifs[0].Message)
	assert.Equal(t, models.NotificationTypeFollow, notifs[1].Type)

	// a second like is rejected and appends nothing
	c, _ = newTestContext(http.MethodPost, "/posts/"+post.ID.Hex()+"/likes", "", alice.ID)
	c.SetParamNames("post_id")
	c.SetParamValues(post.ID.Hex())
	err = f.likeHandler.LikePost(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusConflict, httpErr.Code)

	_, total, err := f.notifs.GetByRecipientID(bob.ID, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	// the feed now marks the post as liked
	c, rec = newTestContext(http.MethodGet, "/feed", "", alice.ID)
	require.NoError(t, f.feedHandler.GetFeed(c))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &feed))
	require.Len(t, feed.Data.Posts, 1)
	assert.True(t, feed.Data.Posts[0].IsLiked)

	// after unfollowing, bob's posts drop out of the feed
	c, rec = newTestContext(http.MethodDelete, fmt.Sprintf("/users/%d/follow", bob.ID), "", alice.ID)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(bob.ID))
	require.NoError(t, f.followHandler.UnfollowUser(c))
	require.Equal(t, http.StatusOK, rec.Code)

	c, rec = newTestContext(http.MethodGet, "/feed", "", alice.ID)
	require.NoError(t, f.feedHandler.GetFeed(c))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &feed))
	assert.Empty(t, feed.Data.Posts)

	// the like itself survives the unfollow
	liked, err := f.likes.HasUserLikedPost(post.ID.Hex(), alice.ID)
	require.NoError(t, err)
	assert.True(t, liked)
}
