package models

import "time"

// Like represents a like on a post. PostID is the MongoDB ObjectID as a hex
// string; the composite unique index makes double-liking a no-op at the store.
type Like struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	PostID    string    `json:"post_id" gorm:"index;uniqueIndex:idx_likes_post_user"`
	UserID    uint      `json:"user_id" gorm:"uniqueIndex:idx_likes_post_user"`
	CreatedAt time.Time `json:"created_at"`
}
