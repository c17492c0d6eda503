package notifications

import (
	"context"
	"log"
	"time"

	"github.com/corvusant/skylark/backend/internal/models"
)

const (
	// readWindow is how many raw rows one listing pass examines. Larger than
	// maxStacks because grouping shrinks the row set; older rows beyond the
	// window stay reachable through a narrower type filter.
	readWindow = 100
	// maxStacks caps the number of aggregated items returned, applied after
	// grouping.
	maxStacks = 30
	// actorDisplayCap caps how many actor summaries a stack carries; the
	// true distinct count is reported separately.
	actorDisplayCap = 3
)

// Stack is one display-ready aggregated notification item.
type Stack struct {
	Type       models.NotificationType `json:"type"`
	CreatedAt  time.Time               `json:"created_at"`
	Actors     []models.UserCompact    `json:"actors"`
	ActorCount int                     `json:"actor_count"`
	Post       *models.PostSummary     `json:"post,omitempty"`
	QuotePost  *models.PostSummary     `json:"quote_post,omitempty"`
	Title      string                  `json:"title,omitempty"`
	Body       string                  `json:"body,omitempty"`
	ActionURL  string                  `json:"action_url,omitempty"`
}

// LoadItems returns the recipient's aggregated notification items, newest
// first. With markAllRead set and the unrestricted filter, every unread row
// for the recipient is marked read, not just the rows behind the returned
// items. A concrete type filter never marks anything read.
func (s *Service) LoadItems(ctx context.Context, recipientID uint, filter models.NotificationFilter, markAllRead bool) ([]Stack, error) {
	rows, err := s.notificationRepo.GetRecentByRecipient(recipientID, filter.Type(), readWindow)
	if err != nil {
		return nil, err
	}

	groups := stackRows(rows, maxStacks)

	if markAllRead && filter == models.FilterAll {
		if err := s.notificationRepo.MarkAllAsRead(recipientID); err != nil {
			log.Printf("[notifications] mark all read failed for user %d: %v", recipientID, err)
		}
	}

	return s.resolveStacks(ctx, groups)
}

// CountUnread reports how many rows the recipient has without a read marker.
// It counts literal rows, unaffected by stacking or display caps.
func (s *Service) CountUnread(recipientID uint) (int64, error) {
	return s.notificationRepo.CountUnread(recipientID)
}

// resolveStacks turns raw groups into display stacks: posts and quote posts
// are fetched in one batch, then the users needed as actors or post authors
// in another, and finally each stack gets its display action URL.
func (s *Service) resolveStacks(ctx context.Context, groups []stackedGroup) ([]Stack, error) {
	postIDs := make([]string, 0, len(groups)*2)
	seenPosts := make(map[string]bool)
	for _, g := range groups {
		for _, id := range []string{g.postID, g.quotePostID} {
			if id != "" && !seenPosts[id] {
				seenPosts[id] = true
				postIDs = append(postIDs, id)
			}
		}
	}

	posts, err := s.postRepo.GetPostsByIDs(ctx, postIDs)
	if err != nil {
		return nil, err
	}
	postMap := make(map[string]models.Post, len(posts))
	for _, p := range posts {
		postMap[p.ID.Hex()] = p
	}

	userIDs := make([]uint, 0, len(groups)*actorDisplayCap)
	seenUsers := make(map[uint]bool)
	addUser := func(id uint) {
		if id != 0 && !seenUsers[id] {
			seenUsers[id] = true
			userIDs = append(userIDs, id)
		}
	}
	for _, g := range groups {
		for i, actorID := range g.actorIDs {
			if i == actorDisplayCap {
				break
			}
			addUser(actorID)
		}
	}
	for _, p := range posts {
		addUser(p.AuthorID)
	}

	users, err := s.userRepo.GetUsersByIDs(userIDs)
	if err != nil {
		return nil, err
	}
	userMap := make(map[uint]models.UserCompact, len(users))
	for _, u := range users {
		userMap[u.ID] = u.ToCompact()
	}

	summary := func(postID string) *models.PostSummary {
		p, ok := postMap[postID]
		if !ok {
			// Deleted or missing content leaves the stack without a
			// post summary rather than failing the listing.
			return nil
		}
		return &models.PostSummary{
			ID:        p.ID.Hex(),
			Author:    userMap[p.AuthorID],
			Content:   p.Content,
			CreatedAt: p.CreatedAt,
		}
	}

	stacks := make([]Stack, 0, len(groups))
	for _, g := range groups {
		actors := make([]models.UserCompact, 0, actorDisplayCap)
		for _, actorID := range g.actorIDs {
			if len(actors) == actorDisplayCap {
				break
			}
			if u, ok := userMap[actorID]; ok {
				actors = append(actors, u)
			}
		}

		st := Stack{
			Type:       g.typ,
			CreatedAt:  g.createdAt,
			Actors:     actors,
			ActorCount: len(g.actorIDs),
			Title:      g.title,
			Body:       g.body,
		}
		if g.postID != "" {
			st.Post = summary(g.postID)
		}
		if g.quotePostID != "" {
			st.QuotePost = summary(g.quotePostID)
		}
		st.ActionURL = s.stackActionURL(g, actors)
		stacks = append(stacks, st)
	}
	return stacks, nil
}

// stackActionURL resolves where the item should link: an explicit action URL
// wins; follows link to the newest actor's profile; quotes link to the
// quoting post; anything else with a post links to that post.
func (s *Service) stackActionURL(g stackedGroup, actors []models.UserCompact) string {
	if g.actionURL != "" {
		return g.actionURL
	}
	switch g.typ {
	case models.NotificationFollow:
		if len(actors) > 0 {
			return s.profileURL(actors[0].Username)
		}
	case models.NotificationQuote:
		if g.quotePostID != "" {
			return s.postURL(g.quotePostID)
		}
	}
	if g.postID != "" {
		return s.postURL(g.postID)
	}
	return ""
}
