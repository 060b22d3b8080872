package models

import "time"

// Like represents a like on a post. The composite unique index on
// (post_id, user_id) is what resolves concurrent like races: the loser
// of a race gets a duplicate-key error instead of a second row.
type Like struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	PostID    string    `json:"post_id" gorm:"index;uniqueIndex:idx_post_user"` // MongoDB ObjectID as string
	UserID    uint      `json:"user_id" gorm:"index;uniqueIndex:idx_post_user"` // ID of the user who liked the post
	CreatedAt time.Time `json:"created_at"`
}
