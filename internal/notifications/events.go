package notifications

import (
	"strconv"

	"github.com/corvusant/skylark/backend/internal/models"
	"github.com/google/uuid"
)

// Source type values. Together with a source ID they name the exact
// interaction behind a notification; the pair must stay stable because it is
// the key used to find and delete the notification when the interaction is
// undone.
const (
	SourceUserFollow   = "user_follow"   // source ID: follow row ID
	SourcePostLike     = "post_like"     // source ID: like row ID
	SourcePostRepost   = "post_repost"   // source ID: repost row ID
	SourcePostQuote    = "post_quote"    // source ID: quoting post ID
	SourcePostReply    = "post_reply"    // source ID: reply post ID
	SourcePostMention  = "post_mention"  // source ID: "{postID}:{mentionedUserID}"
	SourceSystemNotice = "system_notice" // source ID: fresh UUID, one per notice
)

// Event describes one notification-worthy interaction. Construct values
// through the New*Event functions only: each constructor populates exactly
// the fields that are meaningful for its type, so combinations like a follow
// carrying a post ID cannot be built.
type Event struct {
	recipientID uint
	actorID     uint
	typ         models.NotificationType
	postID      string
	quotePostID string
	sourceType  string
	sourceID    string
	title       string
	body        string
	actionURL   string
}

// NewFollowEvent records that actor started following recipient.
func NewFollowEvent(recipientID, actorID, followID uint) Event {
	return Event{
		recipientID: recipientID,
		actorID:     actorID,
		typ:         models.NotificationFollow,
		sourceType:  SourceUserFollow,
		sourceID:    formatUint(followID),
	}
}

// NewLikeEvent records that actor liked the recipient's post.
func NewLikeEvent(recipientID, actorID uint, postID string, likeID uint) Event {
	return Event{
		recipientID: recipientID,
		actorID:     actorID,
		typ:         models.NotificationLike,
		postID:      postID,
		sourceType:  SourcePostLike,
		sourceID:    formatUint(likeID),
	}
}

// NewRepostEvent records that actor reposted the recipient's post.
func NewRepostEvent(recipientID, actorID uint, postID string, repostID uint) Event {
	return Event{
		recipientID: recipientID,
		actorID:     actorID,
		typ:         models.NotificationRepost,
		postID:      postID,
		sourceType:  SourcePostRepost,
		sourceID:    formatUint(repostID),
	}
}

// NewQuoteEvent records that actor quoted the recipient's post. quotedPostID
// is the recipient's post (used for stacking), quotingPostID the new post
// holding the commentary.
func NewQuoteEvent(recipientID, actorID uint, quotedPostID, quotingPostID string) Event {
	return Event{
		recipientID: recipientID,
		actorID:     actorID,
		typ:         models.NotificationQuote,
		postID:      quotedPostID,
		quotePostID: quotingPostID,
		sourceType:  SourcePostQuote,
		sourceID:    quotingPostID,
	}
}

// NewReplyEvent records that actor replied to one of the recipient's posts.
// The event correlates to the reply itself so readers land on the new content.
func NewReplyEvent(recipientID, actorID uint, replyPostID string) Event {
	return Event{
		recipientID: recipientID,
		actorID:     actorID,
		typ:         models.NotificationReply,
		postID:      replyPostID,
		sourceType:  SourcePostReply,
		sourceID:    replyPostID,
	}
}

// NewMentionEvent records that actor mentioned the recipient in a post. One
// post can mention several users; the source ID carries the recipient so each
// mention is its own interaction.
func NewMentionEvent(recipientID, actorID uint, postID string) Event {
	return Event{
		recipientID: recipientID,
		actorID:     actorID,
		typ:         models.NotificationMention,
		postID:      postID,
		sourceType:  SourcePostMention,
		sourceID:    postID + ":" + formatUint(recipientID),
	}
}

// NewInfoEvent records a system announcement for the recipient. There is no
// acting user and no underlying row to undo, so the source ID is minted fresh.
func NewInfoEvent(recipientID uint, title, body, actionURL string) Event {
	return Event{
		recipientID: recipientID,
		typ:         models.NotificationInfo,
		sourceType:  SourceSystemNotice,
		sourceID:    uuid.NewString(),
		title:       title,
		body:        body,
		actionURL:   actionURL,
	}
}

// NewViolationEvent records a moderation notice for the recipient.
func NewViolationEvent(recipientID uint, title, body, actionURL string) Event {
	return Event{
		recipientID: recipientID,
		typ:         models.NotificationViolation,
		sourceType:  SourceSystemNotice,
		sourceID:    uuid.NewString(),
		title:       title,
		body:        body,
		actionURL:   actionURL,
	}
}

func (e Event) notification() *models.Notification {
	return &models.Notification{
		RecipientID: e.recipientID,
		ActorID:     e.actorID,
		Type:        string(e.typ),
		PostID:      e.postID,
		QuotePostID: e.quotePostID,
		SourceType:  e.sourceType,
		SourceID:    e.sourceID,
		Title:       e.title,
		Body:        e.body,
		ActionURL:   e.actionURL,
	}
}

func formatUint(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
