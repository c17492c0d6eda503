package models

import (
	"fmt"
	"time"
)

// NotificationType is the closed set of stored notification types.
type NotificationType string

const (
	NotificationFollow    NotificationType = "follow"
	NotificationLike      NotificationType = "like"
	NotificationRepost    NotificationType = "repost"
	NotificationQuote     NotificationType = "quote"
	NotificationReply     NotificationType = "reply"
	NotificationMention   NotificationType = "mention"
	NotificationInfo      NotificationType = "info"
	NotificationViolation NotificationType = "violation"
)

// ParseNotificationType maps a raw string onto a known type. Everything
// outside the closed set is rejected so internal logic never branches on
// unchecked strings.
func ParseNotificationType(s string) (NotificationType, error) {
	switch t := NotificationType(s); t {
	case NotificationFollow, NotificationLike, NotificationRepost, NotificationQuote,
		NotificationReply, NotificationMention, NotificationInfo, NotificationViolation:
		return t, nil
	}
	return "", fmt.Errorf("unknown notification type %q", s)
}

// NotificationFilter is the closed set of filters accepted by the listing
// endpoint. Note that reply, mention and violation are stored types but not
// selectable filters; rows of those types only surface under FilterAll.
type NotificationFilter string

const (
	FilterAll    NotificationFilter = "all"
	FilterFollow NotificationFilter = "follow"
	FilterLike   NotificationFilter = "like"
	FilterRepost NotificationFilter = "repost"
	FilterQuote  NotificationFilter = "quote"
	FilterInfo   NotificationFilter = "info"
)

// ParseNotificationFilter maps a query string onto a known filter. The empty
// string defaults to FilterAll.
func ParseNotificationFilter(s string) (NotificationFilter, error) {
	if s == "" {
		return FilterAll, nil
	}
	switch f := NotificationFilter(s); f {
	case FilterAll, FilterFollow, FilterLike, FilterRepost, FilterQuote, FilterInfo:
		return f, nil
	}
	return "", fmt.Errorf("unknown notification filter %q", s)
}

// Type returns the stored type a concrete filter selects, or the empty type
// for FilterAll (no restriction).
func (f NotificationFilter) Type() NotificationType {
	if f == FilterAll {
		return ""
	}
	return NotificationType(f)
}

// CreateNoticeRequest is the payload for a moderator-issued notice.
type CreateNoticeRequest struct {
	Type        string `json:"type" validate:"required,oneof=info violation"`
	RecipientID uint   `json:"recipient_id"`
	Title       string `json:"title" validate:"required,max=200"`
	Body        string `json:"body" validate:"max=2000"`
	ActionURL   string `json:"action_url" validate:"omitempty,url"`
}

// Notification represents a persisted notification row (PostgreSQL). Rows are
// created and deleted, never updated in place, except for the one-shot ReadAt
// marker. The (source_type, source_id) pair names the exact underlying
// interaction and is unique across the whole table; it is the sole
// deduplication and cleanup key.
type Notification struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	RecipientID uint       `json:"recipient_id" gorm:"index;not null"`
	ActorID     uint       `json:"actor_id"` // Zero for system-originated notices
	Type        string     `json:"type" gorm:"size:20;index"`
	PostID      string     `json:"post_id,omitempty"`
	QuotePostID string     `json:"quote_post_id,omitempty"`
	SourceType  string     `json:"source_type" gorm:"size:30;uniqueIndex:idx_notifications_source"`
	SourceID    string     `json:"source_id" gorm:"size:80;uniqueIndex:idx_notifications_source"`
	Title       string     `json:"title,omitempty"`
	Body        string     `json:"body,omitempty"`
	ActionURL   string     `json:"action_url,omitempty"`
	CreatedAt   time.Time  `json:"created_at" gorm:"index"`
	ReadAt      *time.Time `json:"read_at"`
}
