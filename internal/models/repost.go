package models

import "time"

// Repost represents a plain repost (no added commentary; a repost with
// commentary is a quote post). Same idempotence scheme as Like.
type Repost struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	PostID    string    `json:"post_id" gorm:"index;uniqueIndex:idx_reposts_post_user"`
	UserID    uint      `json:"user_id" gorm:"uniqueIndex:idx_reposts_post_user"`
	CreatedAt time.Time `json:"created_at"`
}
