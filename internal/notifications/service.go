package notifications

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/corvusant/skylark/backend/internal/models"
	"github.com/corvusant/skylark/backend/internal/repositories"
)

// dispatchBudget bounds the whole detached dispatch pass: snapshot build and
// fan-out across all endpoints of one recipient.
const dispatchBudget = 30 * time.Second

// Messenger pushes a short notification to a user's device. A nil Messenger
// disables push delivery.
type Messenger interface {
	Push(ctx context.Context, token, title, body string) error
}

// Service is the notification engine: it turns interactions into deduplicated
// notification rows, aggregates them for display, and fans snapshots out to
// registered webhook endpoints.
type Service struct {
	notificationRepo repositories.NotificationRepository
	webhookRepo      repositories.WebhookEndpointRepository
	userRepo         repositories.UserRepository
	postRepo         repositories.PostRepository
	dispatcher       *Dispatcher
	messenger        Messenger
	baseURL          string
}

// NewService creates the notification Service. baseURL is the public site
// root used when composing profile and post links.
func NewService(
	notificationRepo repositories.NotificationRepository,
	webhookRepo repositories.WebhookEndpointRepository,
	userRepo repositories.UserRepository,
	postRepo repositories.PostRepository,
	dispatcher *Dispatcher,
	messenger Messenger,
	baseURL string,
) *Service {
	return &Service{
		notificationRepo: notificationRepo,
		webhookRepo:      webhookRepo,
		userRepo:         userRepo,
		postRepo:         postRepo,
		dispatcher:       dispatcher,
		messenger:        messenger,
		baseURL:          strings.TrimSuffix(baseURL, "/"),
	}
}

// CreateIfNeeded persists a notification for the event unless one already
// exists for the same source identity. Self-actions never notify. Only the
// call that actually inserted the row starts a dispatch, and the dispatch is
// detached: its outcome never reaches this caller.
func (s *Service) CreateIfNeeded(ev Event) error {
	if ev.actorID != 0 && ev.actorID == ev.recipientID {
		return nil
	}

	notification := ev.notification()
	inserted, err := s.notificationRepo.InsertIfAbsent(notification)
	if err != nil {
		return err
	}
	if !inserted {
		// Lost the race or duplicate trigger: the row exists, someone
		// else's dispatch covered it.
		return nil
	}

	go s.dispatchCreated(notification)
	return nil
}

// RemoveBySource deletes the notifications created for interactions that have
// been undone. The removal itself is silent: no webhook fires for it.
func (s *Service) RemoveBySource(sourceType string, sourceIDs []string) error {
	return s.notificationRepo.DeleteBySource(sourceType, sourceIDs)
}

// dispatchCreated runs detached from the request that created the row. Every
// failure in here is logged and dropped; the triggering interaction has
// already succeeded.
func (s *Service) dispatchCreated(n *models.Notification) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[notifications] dispatch panic recovered: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), dispatchBudget)
	defer cancel()

	trigger := &Trigger{
		NotificationID: n.ID,
		Type:           models.NotificationType(n.Type),
		SourceType:     n.SourceType,
		SourceID:       n.SourceID,
	}
	snapshot, err := s.BuildSnapshot(ctx, n.RecipientID, models.FilterAll, trigger)
	if err != nil {
		log.Printf("[notifications] snapshot build failed for user %d: %v", n.RecipientID, err)
		return
	}

	endpoints, err := s.webhookRepo.GetActiveByUserID(n.RecipientID)
	if err != nil {
		log.Printf("[notifications] endpoint lookup failed for user %d: %v", n.RecipientID, err)
	} else if len(endpoints) > 0 {
		s.dispatcher.Deliver(ctx, endpoints, snapshot)
	}

	s.pushToDevice(ctx, n)
}

// pushToDevice sends a best-effort FCM push for the new notification.
func (s *Service) pushToDevice(ctx context.Context, n *models.Notification) {
	if s.messenger == nil {
		return
	}
	recipient, err := s.userRepo.GetUserByID(n.RecipientID)
	if err != nil || recipient.FCMToken == "" {
		return
	}
	title, body := s.pushContent(n)
	if title == "" {
		return
	}
	if err := s.messenger.Push(ctx, recipient.FCMToken, title, body); err != nil {
		log.Printf("[notifications] push to user %d failed: %v", n.RecipientID, err)
	}
}

func (s *Service) pushContent(n *models.Notification) (string, string) {
	// System notices carry their own copy.
	if n.Title != "" {
		return n.Title, n.Body
	}
	actor, err := s.userRepo.GetUserByID(n.ActorID)
	if err != nil {
		return "", ""
	}
	name := actor.DisplayName
	if name == "" {
		name = actor.Username
	}
	switch models.NotificationType(n.Type) {
	case models.NotificationFollow:
		return name + " followed you", ""
	case models.NotificationLike:
		return name + " liked your post", ""
	case models.NotificationRepost:
		return name + " reposted your post", ""
	case models.NotificationQuote:
		return name + " quoted your post", ""
	case models.NotificationReply:
		return name + " replied to your post", ""
	case models.NotificationMention:
		return name + " mentioned you", ""
	}
	return "", ""
}

func (s *Service) profileURL(username string) string {
	return s.baseURL + "/@" + username
}

func (s *Service) postURL(postID string) string {
	return s.baseURL + "/posts/" + postID
}
