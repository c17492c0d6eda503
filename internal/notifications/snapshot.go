package notifications

import (
	"context"
	"time"

	"github.com/corvusant/skylark/backend/internal/models"
)

// EventNotificationUpdated is the event name carried by every snapshot and
// its delivery headers. Webhooks receive current full state, not diffs, so a
// single event name covers all delivery causes.
const EventNotificationUpdated = "notification.updated"

// Trigger identifies the interaction that caused a dispatch, for webhook-side
// correlation. It is absent on manual resends and test deliveries.
type Trigger struct {
	NotificationID uint                    `json:"notification_id"`
	Type           models.NotificationType `json:"type"`
	SourceType     string                  `json:"source_type"`
	SourceID       string                  `json:"source_id"`
}

// Snapshot is the unit of webhook delivery: the recipient's aggregated items
// and unread count as they stood at one instant.
type Snapshot struct {
	Event       string                    `json:"event"`
	GeneratedAt time.Time                 `json:"generated_at"`
	RecipientID uint                      `json:"recipient_id"`
	Filter      models.NotificationFilter `json:"filter"`
	UnreadCount int64                     `json:"unread_count"`
	Items       []Stack                   `json:"items"`
	Trigger     *Trigger                  `json:"trigger,omitempty"`
}

// BuildSnapshot captures the recipient's current notification state under the
// given filter. Building a snapshot never marks rows read; only an explicit
// listing request does that.
func (s *Service) BuildSnapshot(ctx context.Context, recipientID uint, filter models.NotificationFilter, trigger *Trigger) (*Snapshot, error) {
	items, err := s.LoadItems(ctx, recipientID, filter, false)
	if err != nil {
		return nil, err
	}
	unread, err := s.CountUnread(recipientID)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Event:       EventNotificationUpdated,
		GeneratedAt: time.Now().UTC(),
		RecipientID: recipientID,
		Filter:      filter,
		UnreadCount: unread,
		Items:       items,
		Trigger:     trigger,
	}, nil
}
