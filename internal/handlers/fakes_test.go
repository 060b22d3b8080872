package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/driftwood-social/backend/internal/models"
	"github.com/driftwood-social/backend/internal/validators"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory repository fakes. They mirror the store semantics the
// handlers rely on: unique keys, sentinel errors, newest-first ordering.

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[uint]*models.User
	nextID uint
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uint]*models.User), nextID: 1}
}

func (r *fakeUserRepo) CreateUser(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Same behavior as the unique indexes on username and email
	for _, u := range r.users {
		if u.Username == user.Username || u.Email == user.Email {
			return models.ErrDuplicateUser
		}
	}
	user.ID = r.nextID
	r.nextID++
	user.CreatedAt = time.Now()
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetUserByID(id uint) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetUserByEmail(email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *fakeUserRepo) GetUserByUsername(username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *fakeUserRepo) UpdateUser(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, u := range r.users {
		if id != user.ID && (u.Username == user.Username || u.Email == user.Email) {
			return models.ErrDuplicateUser
		}
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) DeleteUser(id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) SearchUsers(query string) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.User
	q := strings.ToLower(query)
	for _, u := range r.users {
		if strings.Contains(strings.ToLower(u.Username), q) || strings.Contains(strings.ToLower(u.Email), q) {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) adjust(id uint, f func(u *models.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		f(u)
	}
	return nil
}

func (r *fakeUserRepo) IncrementFollowersCount(id uint) error {
	return r.adjust(id, func(u *models.User) { u.FollowersCount++ })
}

func (r *fakeUserRepo) DecrementFollowersCount(id uint) error {
	return r.adjust(id, func(u *models.User) { u.FollowersCount-- })
}

func (r *fakeUserRepo) IncrementFollowingCount(id uint) error {
	return r.adjust(id, func(u *models.User) { u.FollowingCount++ })
}

func (r *fakeUserRepo) DecrementFollowingCount(id uint) error {
	return r.adjust(id, func(u *models.User) { u.FollowingCount-- })
}

type followKey struct {
	follower, following uint
}

type fakeFollowRepo struct {
	mu    sync.Mutex
	users *fakeUserRepo
	edges map[followKey]time.Time
}

func newFakeFollowRepo(users *fakeUserRepo) *fakeFollowRepo {
	return &fakeFollowRepo{users: users, edges: make(map[followKey]time.Time)}
}

func (r *fakeFollowRepo) CreateFollow(follow *models.Follow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := followKey{follow.FollowerID, follow.FollowingID}
	if _, ok := r.edges[key]; ok {
		return models.ErrAlreadyFollowing
	}
	r.edges[key] = time.Now()
	return nil
}

func (r *fakeFollowRepo) DeleteFollow(followerID, followingID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := followKey{followerID, followingID}
	if _, ok := r.edges[key]; !ok {
		return false, nil
	}
	delete(r.edges, key)
	return true, nil
}

func (r *fakeFollowRepo) IsFollowing(followerID, followingID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.edges[followKey{followerID, followingID}]
	return ok, nil
}

func (r *fakeFollowRepo) GetFollowingIDs(userID uint) ([]uint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := []uint{}
	for k := range r.edges {
		if k.follower == userID {
			ids = append(ids, k.following)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *fakeFollowRepo) related(userID uint, pick func(followKey) (uint, bool)) ([]models.User, error) {
	r.mu.Lock()
	var ids []uint
	for k := range r.edges {
		if id, ok := pick(k); ok {
			ids = append(ids, id)
		}
	}
	r.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []models.User
	for _, id := range ids {
		if u, err := r.users.GetUserByID(id); err == nil {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *fakeFollowRepo) GetFollowers(userID uint) ([]models.User, error) {
	return r.related(userID, func(k followKey) (uint, bool) {
		return k.follower, k.following == userID
	})
}

func (r *fakeFollowRepo) GetFollowing(userID uint) ([]models.User, error) {
	return r.related(userID, func(k followKey) (uint, bool) {
		return k.following, k.follower == userID
	})
}

func (r *fakeFollowRepo) GetFollowersCount(userID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k := range r.edges {
		if k.following == userID {
			n++
		}
	}
	return n, nil
}

func (r *fakeFollowRepo) GetFollowingCount(userID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k := range r.edges {
		if k.follower == userID {
			n++
		}
	}
	return n, nil
}

type likeKey struct {
	postID string
	userID uint
}

type fakeLikeRepo struct {
	mu         sync.Mutex
	likes      map[likeKey]time.Time
	failStatus error // when set, HasUserLikedPost fails with it
}

func newFakeLikeRepo() *fakeLikeRepo {
	return &fakeLikeRepo{likes: make(map[likeKey]time.Time)}
}

func (r *fakeLikeRepo) CreateLike(like *models.Like) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := likeKey{like.PostID, like.UserID}
	// Same behavior as the composite unique index in the real store
	if _, ok := r.likes[key]; ok {
		return models.ErrAlreadyLiked
	}
	r.likes[key] = time.Now()
	return nil
}

func (r *fakeLikeRepo) DeleteLike(postID string, userID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := likeKey{postID, userID}
	if _, ok := r.likes[key]; !ok {
		return models.ErrNotLiked
	}
	delete(r.likes, key)
	return nil
}

func (r *fakeLikeRepo) HasUserLikedPost(postID string, userID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failStatus != nil {
		return false, r.failStatus
	}
	_, ok := r.likes[likeKey{postID, userID}]
	return ok, nil
}

func (r *fakeLikeRepo) GetLikesByPostID(postID string) ([]models.Like, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Like
	for k, at := range r.likes {
		if k.postID == postID {
			out = append(out, models.Like{PostID: k.postID, UserID: k.userID, CreatedAt: at})
		}
	}
	return out, nil
}

func (r *fakeLikeRepo) GetLikesCountByPostID(postID string) (int64, error) {
	likes, _ := r.GetLikesByPostID(postID)
	return int64(len(likes)), nil
}

func (r *fakeLikeRepo) DeleteLikesByPostID(postID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.likes {
		if k.postID == postID {
			delete(r.likes, k)
		}
	}
	return nil
}

type fakePostRepo struct {
	mu    sync.Mutex
	posts map[string]*models.Post
	clock time.Time
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: make(map[string]*models.Post), clock: time.Now()}
}

func (r *fakePostRepo) CreatePost(_ context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	post.ID = primitive.NewObjectID()
	// Monotonic timestamps so ordering assertions are deterministic
	r.clock = r.clock.Add(time.Second)
	post.CreatedAt = r.clock
	post.UpdatedAt = r.clock
	cp := *post
	r.posts[post.ID.Hex()] = &cp
	return nil
}

func (r *fakePostRepo) GetPostByID(_ context.Context, id string) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePostRepo) sortedPosts(match func(*models.Post) bool) []models.Post {
	var out []models.Post
	for _, p := range r.posts {
		if match(p) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func paginate(posts []models.Post, skip, limit int64) []models.Post {
	if skip >= int64(len(posts)) {
		return []models.Post{}
	}
	posts = posts[skip:]
	if limit > 0 && int64(len(posts)) > limit {
		posts = posts[:limit]
	}
	return posts
}

func (r *fakePostRepo) GetPostsByAuthorID(_ context.Context, authorID uint, skip, limit int64) ([]models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return paginate(r.sortedPosts(func(p *models.Post) bool { return p.AuthorID == authorID }), skip, limit), nil
}

func (r *fakePostRepo) GetPostsByAuthorIDs(_ context.Context, authorIDs []uint, skip, limit int64) ([]models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	in := make(map[uint]bool, len(authorIDs))
	for _, id := range authorIDs {
		in[id] = true
	}
	return paginate(r.sortedPosts(func(p *models.Post) bool { return in[p.AuthorID] }), skip, limit), nil
}

func (r *fakePostRepo) CountPostsByAuthorIDs(_ context.Context, authorIDs []uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	in := make(map[uint]bool, len(authorIDs))
	for _, id := range authorIDs {
		in[id] = true
	}
	return int64(len(r.sortedPosts(func(p *models.Post) bool { return in[p.AuthorID] }))), nil
}

func (r *fakePostRepo) SearchPosts(_ context.Context, query string, skip, limit int64) ([]models.Post, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q := strings.ToLower(query)
	all := r.sortedPosts(func(p *models.Post) bool {
		return q == "" || strings.Contains(strings.ToLower(p.Title), q) || strings.Contains(strings.ToLower(p.Content), q)
	})
	return paginate(all, skip, limit), int64(len(all)), nil
}

func (r *fakePostRepo) UpdatePost(_ context.Context, id string, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return models.ErrNotFound
	}
	p.Title = post.Title
	p.Content = post.Content
	p.UpdatedAt = time.Now()
	return nil
}

func (r *fakePostRepo) DeletePost(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[id]; !ok {
		return models.ErrNotFound
	}
	delete(r.posts, id)
	return nil
}

func (r *fakePostRepo) DeletePostsByAuthorID(_ context.Context, authorID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, p := range r.posts {
		if p.AuthorID == authorID {
			delete(r.posts, id)
		}
	}
	return nil
}

func (r *fakePostRepo) incr(id, field string, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return models.ErrNotFound
	}
	switch field {
	case "likes_count":
		p.LikesCount += delta
	case "comments_count":
		p.CommentsCount += delta
	}
	return nil
}

func (r *fakePostRepo) IncrementLikesCount(_ context.Context, id string) error {
	return r.incr(id, "likes_count", 1)
}

func (r *fakePostRepo) DecrementLikesCount(_ context.Context, id string) error {
	return r.incr(id, "likes_count", -1)
}

func (r *fakePostRepo) IncrementCommentsCount(_ context.Context, id string) error {
	return r.incr(id, "comments_count", 1)
}

func (r *fakePostRepo) DecrementCommentsCount(_ context.Context, id string) error {
	return r.incr(id, "comments_count", -1)
}

type fakeCommentRepo struct {
	mu       sync.Mutex
	comments map[uint]*models.Comment
	nextID   uint
}

func newFakeCommentRepo() *fakeCommentRepo {
	return &fakeCommentRepo{comments: make(map[uint]*models.Comment), nextID: 1}
}

func (r *fakeCommentRepo) CreateComment(comment *models.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	comment.ID = r.nextID
	r.nextID++
	comment.CreatedAt = time.Now()
	cp := *comment
	r.comments[comment.ID] = &cp
	return nil
}

func (r *fakeCommentRepo) GetCommentByID(id uint) (*models.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cmt, ok := r.comments[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *cmt
	return &cp, nil
}

func (r *fakeCommentRepo) GetCommentsByPostID(postID string) ([]models.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Comment
	for _, cmt := range r.comments {
		if cmt.PostID == postID {
			out = append(out, *cmt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeCommentRepo) UpdateComment(comment *models.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *comment
	r.comments[comment.ID] = &cp
	return nil
}

func (r *fakeCommentRepo) DeleteComment(id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.comments, id)
	return nil
}

func (r *fakeCommentRepo) DeleteCommentsByPostID(postID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, cmt := range r.comments {
		if cmt.PostID == postID {
			delete(r.comments, id)
		}
	}
	return nil
}

type fakeNotificationRepo struct {
	mu            sync.Mutex
	notifications []models.Notification
	nextID        uint
	failAppend    error // when set, CreateNotification fails with it
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{nextID: 1}
}

func (r *fakeNotificationRepo) CreateNotification(n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAppend != nil {
		return r.failAppend
	}
	n.ID = r.nextID
	r.nextID++
	n.CreatedAt = time.Now()
	r.notifications = append(r.notifications, *n)
	return nil
}

func (r *fakeNotificationRepo) GetByRecipientID(recipientID uint, page, limit int) ([]models.Notification, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Notification
	for _, n := range r.notifications {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	// Newest first: appended order is chronological
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := int64(len(out))
	start := (page - 1) * limit
	if start >= len(out) {
		return []models.Notification{}, total, nil
	}
	out = out[start:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (r *fakeNotificationRepo) GetUnreadCount(recipientID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, notif := range r.notifications {
		if notif.RecipientID == recipientID && !notif.IsRead {
			n++
		}
	}
	return n, nil
}

func (r *fakeNotificationRepo) MarkAsRead(recipientID, notificationID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.notifications {
		if r.notifications[i].ID == notificationID && r.notifications[i].RecipientID == recipientID {
			r.notifications[i].IsRead = true
		}
	}
	return nil
}

func (r *fakeNotificationRepo) MarkAllAsRead(recipientID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.notifications {
		if r.notifications[i].RecipientID == recipientID {
			r.notifications[i].IsRead = true
		}
	}
	return nil
}

// newTestContext builds an echo context with the validator installed and,
// when userID is non-zero, JWT claims preloaded as the auth middleware
// would leave them.
func newTestContext(method, target, body string, userID uint) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = validators.NewValidator()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != 0 {
		c.Set("user", &models.JwtCustomClaims{UserID: userID})
	}
	return c, rec
}

func decodeBody(rec *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return out
}
