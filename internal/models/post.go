package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post represents a post stored in MongoDB. Replies and quotes are posts
// themselves, linked through ReplyToID / QuotedPostID.
type Post struct {
	ID           primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	AuthorID     uint               `json:"author_id" bson:"author_id"`
	Content      string             `json:"content" bson:"content"`
	ReplyToID    string             `json:"reply_to_id,omitempty" bson:"reply_to_id,omitempty"`
	QuotedPostID string             `json:"quoted_post_id,omitempty" bson:"quoted_post_id,omitempty"`
	Mentions     []uint             `json:"mentions,omitempty" bson:"mentions,omitempty"` // Resolved IDs of users mentioned in the content
	LikesCount   int                `json:"likes_count" bson:"likes_count"`
	RepostsCount int                `json:"reposts_count" bson:"reposts_count"`
	RepliesCount int                `json:"replies_count" bson:"replies_count"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at" bson:"updated_at"`
}

// PostSummary is the reduced post shape embedded in notification stacks.
type PostSummary struct {
	ID        string      `json:"id"`
	Author    UserCompact `json:"author"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
}

// CreatePostRequest defines the request body for creating a new post
type CreatePostRequest struct {
	Content      string `json:"content" validate:"required,min=1,max=300"`
	ReplyToID    string `json:"reply_to_id,omitempty"`
	QuotedPostID string `json:"quoted_post_id,omitempty"`
}
