package notifications

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/corvusant/skylark/backend/internal/models"
	"github.com/corvusant/skylark/backend/internal/repositories"
	"gorm.io/gorm"
)

// fakeNotificationRepo is an in-memory repositories.NotificationRepository
// honoring the same contracts as the real one: source-identity uniqueness,
// newest-first listing, bulk-only read marking.
type fakeNotificationRepo struct {
	mu              sync.Mutex
	rows            []models.Notification
	nextID          uint
	markAllReadFor  []uint
	insertCalls     int
	getRecentCalls  int
	deleteBySources map[string][]string
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{nextID: 1, deleteBySources: make(map[string][]string)}
}

// add seeds a row directly, bypassing the uniqueness check.
func (f *fakeNotificationRepo) add(n models.Notification) models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n.ID == 0 {
		n.ID = f.nextID
		f.nextID++
	} else if n.ID >= f.nextID {
		f.nextID = n.ID + 1
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	f.rows = append(f.rows, n)
	return n
}

func (f *fakeNotificationRepo) InsertIfAbsent(n *models.Notification) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertCalls++
	for _, row := range f.rows {
		if row.SourceType == n.SourceType && row.SourceID == n.SourceID {
			return false, nil
		}
	}
	n.ID = f.nextID
	f.nextID++
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	f.rows = append(f.rows, *n)
	return true, nil
}

func (f *fakeNotificationRepo) DeleteBySource(sourceType string, sourceIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(sourceIDs) == 0 {
		return nil
	}
	f.deleteBySources[sourceType] = append(f.deleteBySources[sourceType], sourceIDs...)
	ids := make(map[string]bool, len(sourceIDs))
	for _, id := range sourceIDs {
		ids[id] = true
	}
	kept := f.rows[:0]
	for _, row := range f.rows {
		if row.SourceType == sourceType && ids[row.SourceID] {
			continue
		}
		kept = append(kept, row)
	}
	f.rows = kept
	return nil
}

func (f *fakeNotificationRepo) GetRecentByRecipient(recipientID uint, notifType models.NotificationType, limit int) ([]models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getRecentCalls++
	var out []models.Notification
	for _, row := range f.rows {
		if row.RecipientID != recipientID {
			continue
		}
		if notifType != "" && row.Type != string(notifType) {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeNotificationRepo) CountUnread(recipientID uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, row := range f.rows {
		if row.RecipientID == recipientID && row.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

func (f *fakeNotificationRepo) MarkAllAsRead(recipientID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markAllReadFor = append(f.markAllReadFor, recipientID)
	now := time.Now()
	for i := range f.rows {
		if f.rows[i].RecipientID == recipientID && f.rows[i].ReadAt == nil {
			f.rows[i].ReadAt = &now
		}
	}
	return nil
}

func (f *fakeNotificationRepo) markAllReadCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.markAllReadFor)
}

// deliveryRecord captures one bookkeeping write on the fake webhook repo.
type deliveryRecord struct {
	webhookID  uint
	statusCode *int
	message    string
}

// fakeWebhookRepo is an in-memory repositories.WebhookEndpointRepository that
// records bookkeeping writes for assertions.
type fakeWebhookRepo struct {
	mu        sync.Mutex
	endpoints []models.WebhookEndpoint
	nextID    uint
	successes []deliveryRecord
	failures  []deliveryRecord
}

func newFakeWebhookRepo() *fakeWebhookRepo {
	return &fakeWebhookRepo{nextID: 1}
}

func (f *fakeWebhookRepo) Create(endpoint *models.WebhookEndpoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	endpoint.ID = f.nextID
	f.nextID++
	f.endpoints = append(f.endpoints, *endpoint)
	return nil
}

func (f *fakeWebhookRepo) GetByIDAndUserID(id, userID uint) (*models.WebhookEndpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ep := range f.endpoints {
		if ep.ID == id && ep.UserID == userID {
			out := ep
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeWebhookRepo) GetByUserID(userID uint) ([]models.WebhookEndpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.WebhookEndpoint
	for _, ep := range f.endpoints {
		if ep.UserID == userID {
			out = append(out, ep)
		}
	}
	return out, nil
}

func (f *fakeWebhookRepo) GetActiveByUserID(userID uint) ([]models.WebhookEndpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.WebhookEndpoint
	for _, ep := range f.endpoints {
		if ep.UserID == userID && ep.IsActive {
			out = append(out, ep)
		}
	}
	return out, nil
}

func (f *fakeWebhookRepo) Update(endpoint *models.WebhookEndpoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.endpoints {
		if f.endpoints[i].ID == endpoint.ID {
			f.endpoints[i] = *endpoint
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeWebhookRepo) Delete(id, userID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.endpoints {
		if f.endpoints[i].ID == id && f.endpoints[i].UserID == userID {
			f.endpoints = append(f.endpoints[:i], f.endpoints[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeWebhookRepo) RecordDeliverySuccess(id uint, sentAt time.Time, statusCode int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	code := statusCode
	f.successes = append(f.successes, deliveryRecord{webhookID: id, statusCode: &code})
	for i := range f.endpoints {
		if f.endpoints[i].ID == id {
			at := sentAt
			f.endpoints[i].LastSentAt = &at
			f.endpoints[i].LastStatusCode = &code
			f.endpoints[i].LastError = ""
		}
	}
	return nil
}

func (f *fakeWebhookRepo) RecordDeliveryFailure(id uint, statusCode *int, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, deliveryRecord{webhookID: id, statusCode: statusCode, message: message})
	for i := range f.endpoints {
		if f.endpoints[i].ID == id {
			f.endpoints[i].LastStatusCode = statusCode
			f.endpoints[i].LastError = message
		}
	}
	return nil
}

func (f *fakeWebhookRepo) recorded() (successes, failures []deliveryRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]deliveryRecord(nil), f.successes...), append([]deliveryRecord(nil), f.failures...)
}

func (f *fakeWebhookRepo) endpointByID(id uint) (models.WebhookEndpoint, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ep := range f.endpoints {
		if ep.ID == id {
			return ep, true
		}
	}
	return models.WebhookEndpoint{}, false
}

// fakeUserRepo serves user lookups from a map. Only the methods the
// notification engine touches are implemented; anything else panics through
// the embedded nil interface.
type fakeUserRepo struct {
	repositories.UserRepository
	users map[uint]models.User
}

func (f *fakeUserRepo) GetUserByID(id uint) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (f *fakeUserRepo) GetUsersByIDs(ids []uint) ([]models.User, error) {
	out := []models.User{}
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// fakePostRepo serves post lookups from a map keyed by hex ID.
type fakePostRepo struct {
	repositories.PostRepository
	posts map[string]models.Post
}

func (f *fakePostRepo) GetPostsByIDs(_ context.Context, ids []string) ([]models.Post, error) {
	out := []models.Post{}
	for _, id := range ids {
		if p, ok := f.posts[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}
