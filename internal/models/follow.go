package models

import "time"

// Follow represents a follow relationship. The composite unique index keeps
// the row idempotent under concurrent follow requests.
type Follow struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	FollowerID  uint      `json:"follower_id" gorm:"index;uniqueIndex:idx_follows_follower_following"`
	FollowingID uint      `json:"following_id" gorm:"index;uniqueIndex:idx_follows_follower_following"`
	CreatedAt   time.Time `json:"created_at"`
}
