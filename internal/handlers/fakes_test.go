package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/corvusant/skylark/backend/internal/models"
	"github.com/corvusant/skylark/backend/internal/notifications"
	"github.com/corvusant/skylark/backend/internal/repositories"
	"github.com/corvusant/skylark/backend/internal/validators"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// newTestContext builds an echo context with the project's request validator
// installed, ready to hand to a handler method.
func newTestContext(t *testing.T, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = validators.NewValidator()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// authenticate sets the JWT claims the auth middleware would have installed.
func authenticate(c echo.Context, userID uint) {
	c.Set("user", &models.JwtCustomClaims{UserID: userID})
}

// httpStatus extracts the status a handler produced, whether it wrote a
// response or returned an *echo.HTTPError.
func httpStatus(t *testing.T, err error, rec *httptest.ResponseRecorder) int {
	t.Helper()
	if err == nil {
		return rec.Code
	}
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("handler returned non-HTTP error: %v", err)
	}
	return he.Code
}

// decodeData unmarshals the response envelope and returns its data object.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response body: %v", err)
	}
	if body["success"] != true {
		t.Fatalf("envelope success: got %v, want true", body["success"])
	}
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("envelope data: got %T, want object", body["data"])
	}
	return data
}

// memNotificationRepo is an in-memory repositories.NotificationRepository.
type memNotificationRepo struct {
	mu          sync.Mutex
	rows        []models.Notification
	nextID      uint
	markAllRead int
}

func newMemNotificationRepo() *memNotificationRepo {
	return &memNotificationRepo{nextID: 1}
}

func (m *memNotificationRepo) add(n models.Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.ID == 0 {
		n.ID = m.nextID
		m.nextID++
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	m.rows = append(m.rows, n)
}

func (m *memNotificationRepo) InsertIfAbsent(n *models.Notification) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.SourceType == n.SourceType && row.SourceID == n.SourceID {
			return false, nil
		}
	}
	n.ID = m.nextID
	m.nextID++
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	m.rows = append(m.rows, *n)
	return true, nil
}

func (m *memNotificationRepo) DeleteBySource(sourceType string, sourceIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make(map[string]bool, len(sourceIDs))
	for _, id := range sourceIDs {
		ids[id] = true
	}
	kept := m.rows[:0]
	for _, row := range m.rows {
		if row.SourceType == sourceType && ids[row.SourceID] {
			continue
		}
		kept = append(kept, row)
	}
	m.rows = kept
	return nil
}

func (m *memNotificationRepo) GetRecentByRecipient(recipientID uint, notifType models.NotificationType, limit int) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for _, row := range m.rows {
		if row.RecipientID != recipientID {
			continue
		}
		if notifType != "" && row.Type != string(notifType) {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memNotificationRepo) CountUnread(recipientID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, row := range m.rows {
		if row.RecipientID == recipientID && row.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

func (m *memNotificationRepo) MarkAllAsRead(recipientID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markAllRead++
	now := time.Now()
	for i := range m.rows {
		if m.rows[i].RecipientID == recipientID && m.rows[i].ReadAt == nil {
			m.rows[i].ReadAt = &now
		}
	}
	return nil
}

func (m *memNotificationRepo) markAllReadCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.markAllRead
}

// memWebhookRepo is an in-memory repositories.WebhookEndpointRepository.
type memWebhookRepo struct {
	mu        sync.Mutex
	endpoints []models.WebhookEndpoint
	nextID    uint
	successes int
	failures  int
}

func newMemWebhookRepo() *memWebhookRepo {
	return &memWebhookRepo{nextID: 1}
}

func (m *memWebhookRepo) Create(endpoint *models.WebhookEndpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	endpoint.ID = m.nextID
	m.nextID++
	m.endpoints = append(m.endpoints, *endpoint)
	return nil
}

func (m *memWebhookRepo) GetByIDAndUserID(id, userID uint) (*models.WebhookEndpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ep := range m.endpoints {
		if ep.ID == id && ep.UserID == userID {
			out := ep
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memWebhookRepo) GetByUserID(userID uint) ([]models.WebhookEndpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.WebhookEndpoint{}
	for _, ep := range m.endpoints {
		if ep.UserID == userID {
			out = append(out, ep)
		}
	}
	return out, nil
}

func (m *memWebhookRepo) GetActiveByUserID(userID uint) ([]models.WebhookEndpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.WebhookEndpoint{}
	for _, ep := range m.endpoints {
		if ep.UserID == userID && ep.IsActive {
			out = append(out, ep)
		}
	}
	return out, nil
}

func (m *memWebhookRepo) Update(endpoint *models.WebhookEndpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.endpoints {
		if m.endpoints[i].ID == endpoint.ID {
			m.endpoints[i] = *endpoint
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *memWebhookRepo) Delete(id, userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.endpoints {
		if m.endpoints[i].ID == id && m.endpoints[i].UserID == userID {
			m.endpoints = append(m.endpoints[:i], m.endpoints[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *memWebhookRepo) RecordDeliverySuccess(id uint, sentAt time.Time, statusCode int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.successes++
	for i := range m.endpoints {
		if m.endpoints[i].ID == id {
			at := sentAt
			code := statusCode
			m.endpoints[i].LastSentAt = &at
			m.endpoints[i].LastStatusCode = &code
			m.endpoints[i].LastError = ""
		}
	}
	return nil
}

func (m *memWebhookRepo) RecordDeliveryFailure(id uint, statusCode *int, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
	for i := range m.endpoints {
		if m.endpoints[i].ID == id {
			m.endpoints[i].LastStatusCode = statusCode
			m.endpoints[i].LastError = message
		}
	}
	return nil
}

func (m *memWebhookRepo) successCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.successes
}

// memUserRepo overrides the user lookups the notification engine needs.
type memUserRepo struct {
	repositories.UserRepository
	users map[uint]models.User
}

func (m *memUserRepo) GetUserByID(id uint) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (m *memUserRepo) GetUsersByIDs(ids []uint) ([]models.User, error) {
	out := []models.User{}
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memUserRepo) GetUsers() ([]models.User, error) {
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// memPostRepo overrides the batch post lookup the notification engine needs.
type memPostRepo struct {
	repositories.PostRepository
	posts map[string]models.Post
}

func (m *memPostRepo) GetPostsByIDs(_ context.Context, ids []string) ([]models.Post, error) {
	out := []models.Post{}
	for _, id := range ids {
		if p, ok := m.posts[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// notificationStack bundles a notification service with the stores behind it.
type notificationStack struct {
	service       *notifications.Service
	dispatcher    *notifications.Dispatcher
	notifications *memNotificationRepo
	webhooks      *memWebhookRepo
	users         *memUserRepo
	posts         *memPostRepo
}

func newNotificationStack() *notificationStack {
	notificationRepo := newMemNotificationRepo()
	webhookRepo := newMemWebhookRepo()
	userRepo := &memUserRepo{users: map[uint]models.User{}}
	postRepo := &memPostRepo{posts: map[string]models.Post{}}
	dispatcher := notifications.NewDispatcher(webhookRepo)
	service := notifications.NewService(notificationRepo, webhookRepo, userRepo, postRepo, dispatcher, nil, "https://skylark.example")
	return &notificationStack{
		service:       service,
		dispatcher:    dispatcher,
		notifications: notificationRepo,
		webhooks:      webhookRepo,
		users:         userRepo,
		posts:         postRepo,
	}
}
