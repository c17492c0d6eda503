package notifications

import (
	"strconv"
	"time"

	"github.com/corvusant/skylark/backend/internal/models"
)

// stackedGroup is the intermediate aggregation of one or more notification
// rows sharing a stack key, before actors and posts are resolved against
// their stores.
type stackedGroup struct {
	typ         models.NotificationType
	postID      string
	quotePostID string
	title       string
	body        string
	actionURL   string
	createdAt   time.Time
	actorIDs    []uint // distinct actors, newest first
}

// stackKey groups rows that display as one item. All follow rows for a
// recipient share the single constant key; likes, reposts and quotes group
// per post; every other row stands alone.
func stackKey(row models.Notification, typ models.NotificationType) string {
	switch typ {
	case models.NotificationFollow:
		return "follow"
	case models.NotificationLike, models.NotificationRepost, models.NotificationQuote:
		if row.PostID != "" {
			return string(typ) + ":" + row.PostID
		}
	}
	return string(typ) + ":row:" + strconv.FormatUint(uint64(row.ID), 10)
}

// stackRows folds newest-first notification rows into display groups:
//   - rows with a type outside the supported set are dropped
//   - the group timestamp is the newest member's
//   - quote/title/body/action fields merge fill-if-empty, so the first
//     non-empty value scanned wins
//   - actors deduplicate on first occurrence, which keeps them newest-first
//
// Grouping runs over the whole input before the limit is applied, so a row
// near the end of the window still lands in the group it belongs to.
func stackRows(rows []models.Notification, limit int) []stackedGroup {
	groups := make([]stackedGroup, 0, len(rows))
	index := make(map[string]int, len(rows))

	for _, row := range rows {
		typ, err := models.ParseNotificationType(row.Type)
		if err != nil {
			continue
		}

		key := stackKey(row, typ)
		i, ok := index[key]
		if !ok {
			g := stackedGroup{
				typ:         typ,
				postID:      row.PostID,
				quotePostID: row.QuotePostID,
				title:       row.Title,
				body:        row.Body,
				actionURL:   row.ActionURL,
				createdAt:   row.CreatedAt,
			}
			if row.ActorID != 0 {
				g.actorIDs = append(g.actorIDs, row.ActorID)
			}
			groups = append(groups, g)
			index[key] = len(groups) - 1
			continue
		}

		g := &groups[i]
		if row.CreatedAt.After(g.createdAt) {
			g.createdAt = row.CreatedAt
		}
		if g.quotePostID == "" {
			g.quotePostID = row.QuotePostID
		}
		if g.title == "" {
			g.title = row.Title
		}
		if g.body == "" {
			g.body = row.Body
		}
		if g.actionURL == "" {
			g.actionURL = row.ActionURL
		}
		if row.ActorID != 0 && !containsActor(g.actorIDs, row.ActorID) {
			g.actorIDs = append(g.actorIDs, row.ActorID)
		}
	}

	if len(groups) > limit {
		groups = groups[:limit]
	}
	return groups
}

func containsActor(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
