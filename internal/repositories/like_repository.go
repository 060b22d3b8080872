package repositories

import (
	"errors"

	"github.com/driftwood-social/backend/internal/models"
	"gorm.io/gorm"
)

// LikeRepository defines the interface for like data operations
type LikeRepository interface {
	CreateLike(like *models.Like) error
	DeleteLike(postID string, userID uint) error
	HasUserLikedPost(postID string, userID uint) (bool, error)
	GetLikesByPostID(postID string) ([]models.Like, error)
	GetLikesCountByPostID(postID string) (int64, error)
	DeleteLikesByPostID(postID string) error
}

// PostgresLikeRepository implements LikeRepository for PostgreSQL
type PostgresLikeRepository struct {
	db *gorm.DB
}

// NewPostgresLikeRepository creates a new PostgresLikeRepository
func NewPostgresLikeRepository(db *gorm.DB) *PostgresLikeRepository {
	return &PostgresLikeRepository{db: db}
}

// CreateLike inserts a like row. The unique index on (post_id, user_id)
// guarantees at most one like per pair; the loser of a concurrent race
// receives models.ErrAlreadyLiked rather than creating a second row.
func (r *PostgresLikeRepository) CreateLike(like *models.Like) error {
	if err := r.db.Create(like).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.ErrAlreadyLiked
		}
		return err
	}
	return nil
}

// DeleteLike removes a like. Returns models.ErrNotLiked when no like
// existed for the pair, which the handler reports as a conflict.
func (r *PostgresLikeRepository) DeleteLike(postID string, userID uint) error {
	res := r.db.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.Like{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrNotLiked
	}
	return nil
}

// HasUserLikedPost checks if a user has liked a specific post
func (r *PostgresLikeRepository) HasUserLikedPost(postID string, userID uint) (bool, error) {
	var count int64
	if err := r.db.Model(&models.Like{}).Where("post_id = ? AND user_id = ?", postID, userID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetLikesByPostID retrieves all likes for a specific post
func (r *PostgresLikeRepository) GetLikesByPostID(postID string) ([]models.Like, error) {
	var likes []models.Like
	if err := r.db.Where("post_id = ?", postID).Find(&likes).Error; err != nil {
		return nil, err
	}
	return likes, nil
}

// GetLikesCountByPostID retrieves the count of likes for a specific post
func (r *PostgresLikeRepository) GetLikesCountByPostID(postID string) (int64, error) {
	var count int64
	if err := r.db.Model(&models.Like{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteLikesByPostID removes every like on a post, used by the post
// delete cascade
func (r *PostgresLikeRepository) DeleteLikesByPostID(postID string) error {
	return r.db.Where("post_id = ?", postID).Delete(&models.Like{}).Error
}
