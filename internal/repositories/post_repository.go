package repositories

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/driftwood-social/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPostByID(ctx context.Context, id string) (*models.Post, error)
	GetPostsByAuthorID(ctx context.Context, authorID uint, skip, limit int64) ([]models.Post, error)
	GetPostsByAuthorIDs(ctx context.Context, authorIDs []uint, skip, limit int64) ([]models.Post, error)
	CountPostsByAuthorIDs(ctx context.Context, authorIDs []uint) (int64, error)
	SearchPosts(ctx context.Context, query string, skip, limit int64) ([]models.Post, int64, error)
	UpdatePost(ctx context.Context, id string, post *models.Post) error
	DeletePost(ctx context.Context, id string) error
	DeletePostsByAuthorID(ctx context.Context, authorID uint) error
	IncrementLikesCount(ctx context.Context, postID string) error
	DecrementLikesCount(ctx context.Context, postID string) error
	IncrementCommentsCount(ctx context.Context, postID string) error
	DecrementCommentsCount(ctx context.Context, postID string) error
}

// MongoPostRepository implements PostRepository for MongoDB
type MongoPostRepository struct {
	collection *mongo.Collection
}

// NewMongoPostRepository creates a new MongoPostRepository
func NewMongoPostRepository(db *mongo.Database) *MongoPostRepository {
	return &MongoPostRepository{collection: db.Collection("posts")}
}

// CreatePost creates a new post in MongoDB
func (r *MongoPostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	post.ID = primitive.NewObjectID()
	post.CreatedAt = time.Now()
	post.UpdatedAt = post.CreatedAt
	_, err := r.collection.InsertOne(ctx, post)
	return err
}

// GetPostByID retrieves a post by ID from MongoDB
func (r *MongoPostRepository) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrNotFound
	}

	var post models.Post
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&post)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &post, nil
}

// GetPostsByAuthorID retrieves posts by a single author, newest first
func (r *MongoPostRepository) GetPostsByAuthorID(ctx context.Context, authorID uint, skip, limit int64) ([]models.Post, error) {
	return r.findPosts(ctx, bson.M{"author_id": authorID}, skip, limit)
}

// GetPostsByAuthorIDs is the feed read path: posts whose author is in the
// caller's followed set, sorted by created_at descending. An empty set
// short-circuits to an empty page.
func (r *MongoPostRepository) GetPostsByAuthorIDs(ctx context.Context, authorIDs []uint, skip, limit int64) ([]models.Post, error) {
	if len(authorIDs) == 0 {
		return []models.Post{}, nil
	}
	return r.findPosts(ctx, bson.M{"author_id": bson.M{"$in": authorIDs}}, skip, limit)
}

// CountPostsByAuthorIDs counts posts for the feed pagination metadata
func (r *MongoPostRepository) CountPostsByAuthorIDs(ctx context.Context, authorIDs []uint) (int64, error) {
	if len(authorIDs) == 0 {
		return 0, nil
	}
	return r.collection.CountDocuments(ctx, bson.M{"author_id": bson.M{"$in": authorIDs}})
}

// SearchPosts retrieves posts whose title or content matches the query
// (case-insensitive), newest first. An empty query matches everything.
func (r *MongoPostRepository) SearchPosts(ctx context.Context, query string, skip, limit int64) ([]models.Post, int64, error) {
	filter := bson.M{}
	if query != "" {
		// Quote the query so user input is matched literally
		regex := primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}
		filter = bson.M{"$or": []bson.M{
			{"title": bson.M{"$regex": regex}},
			{"content": bson.M{"$regex": regex}},
		}}
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	posts, err := r.findPosts(ctx, filter, skip, limit)
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *MongoPostRepository) findPosts(ctx context.Context, filter interface{}, skip, limit int64) ([]models.Post, error) {
	var posts []models.Post
	findOptions := options.Find().SetSkip(skip).SetLimit(limit).SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []models.Post{}
	}
	return posts, nil
}

// UpdatePost updates the mutable fields of an existing post in MongoDB
func (r *MongoPostRepository) UpdatePost(ctx context.Context, id string, post *models.Post) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.ErrNotFound
	}

	post.UpdatedAt = time.Now()
	update := bson.M{
		"$set": bson.M{
			"title":      post.Title,
			"content":    post.Content,
			"updated_at": post.UpdatedAt,
		},
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeletePost deletes a post by ID from MongoDB
func (r *MongoPostRepository) DeletePost(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.ErrNotFound
	}

	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeletePostsByAuthorID removes every post by an author, used by the
// account delete cascade
func (r *MongoPostRepository) DeletePostsByAuthorID(ctx context.Context, authorID uint) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"author_id": authorID})
	return err
}

// IncrementLikesCount increments the likes count of a post
func (r *MongoPostRepository) IncrementLikesCount(ctx context.Context, postID string) error {
	return r.incrementField(ctx, postID, "likes_count", 1)
}

// DecrementLikesCount decrements the likes count of a post
func (r *MongoPostRepository) DecrementLikesCount(ctx context.Context, postID string) error {
	return r.incrementField(ctx, postID, "likes_count", -1)
}

// IncrementCommentsCount increments the comments count of a post
func (r *MongoPostRepository) IncrementCommentsCount(ctx context.Context, postID string) error {
	return r.incrementField(ctx, postID, "comments_count", 1)
}

// DecrementCommentsCount decrements the comments count of a post
func (r *MongoPostRepository) DecrementCommentsCount(ctx context.Context, postID string) error {
	return r.incrementField(ctx, postID, "comments_count", -1)
}

func (r *MongoPostRepository) incrementField(ctx context.Context, postID, field string, delta int) error {
	objID, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return fmt.Errorf("invalid post ID format: %w", err)
	}
	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$inc": bson.M{field: delta}})
	return err
}
