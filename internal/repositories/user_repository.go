package repositories

import (
	"errors"

	"github.com/driftwood-social/backend/internal/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	CreateUser(user *models.User) error
	GetUserByID(id uint) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)
	UpdateUser(user *models.User) error
	DeleteUser(id uint) error
	SearchUsers(query string) ([]models.User, error)
	IncrementFollowersCount(userID uint) error
	DecrementFollowersCount(userID uint) error
	IncrementFollowingCount(userID uint) error
	DecrementFollowingCount(userID uint) error
}

// PostgresUserRepository implements UserRepository for PostgreSQL
type PostgresUserRepository struct {
	db *gorm.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository
func NewPostgresUserRepository(db *gorm.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// CreateUser creates a new user in PostgreSQL. A concurrent insert with
// the same username or email trips the unique index and comes back as
// models.ErrDuplicateUser.
func (r *PostgresUserRepository) CreateUser(user *models.User) error {
	if err := r.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.ErrDuplicateUser
		}
		return err
	}
	return nil
}

// GetUserByID retrieves a user by ID from PostgreSQL
func (r *PostgresUserRepository) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email from PostgreSQL
func (r *PostgresUserRepository) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by username from PostgreSQL
func (r *PostgresUserRepository) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UpdateUser updates an existing user in PostgreSQL. Changing username
// or email to one already taken surfaces as models.ErrDuplicateUser.
func (r *PostgresUserRepository) UpdateUser(user *models.User) error {
	if err := r.db.Save(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.ErrDuplicateUser
		}
		return err
	}
	return nil
}

// DeleteUser deletes a user and all relational rows owned by or addressed
// to the account: follow edges (both directions), likes, comments and
// notifications. Runs in a single transaction so a partial cascade never
// becomes visible. Posts live in MongoDB and are cascaded by the caller.
func (r *PostgresUserRepository) DeleteUser(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("follower_id = ? OR following_id = ?", id, id).Delete(&models.Follow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipient_id = ?", id).Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, id).Error
	})
}

// SearchUsers searches for users by username or email
func (r *PostgresUserRepository) SearchUsers(query string) ([]models.User, error) {
	var users []models.User
	// Search by username or email (case-insensitive)
	if err := r.db.Where("LOWER(username) LIKE LOWER(?) OR LOWER(email) LIKE LOWER(?)", "%"+query+"%", "%"+query+"%").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// IncrementFollowersCount bumps the denormalized followers counter
func (r *PostgresUserRepository) IncrementFollowersCount(userID uint) error {
	return r.db.Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn("followers_count", gorm.Expr("followers_count + 1")).Error
}

// DecrementFollowersCount lowers the denormalized followers counter
func (r *PostgresUserRepository) DecrementFollowersCount(userID uint) error {
	return r.db.Model(&models.User{}).Where("id = ? AND followers_count > 0", userID).
		UpdateColumn("followers_count", gorm.Expr("followers_count - 1")).Error
}

// IncrementFollowingCount bumps the denormalized following counter
func (r *PostgresUserRepository) IncrementFollowingCount(userID uint) error {
	return r.db.Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn("following_count", gorm.Expr("following_count + 1")).Error
}

// DecrementFollowingCount lowers the denormalized following counter
func (r *PostgresUserRepository) DecrementFollowingCount(userID uint) error {
	return r.db.Model(&models.User{}).Where("id = ? AND following_count > 0", userID).
		UpdateColumn("following_count", gorm.Expr("following_count - 1")).Error
}
