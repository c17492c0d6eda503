package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/corvusant/skylark/backend/internal/models"
	"github.com/corvusant/skylark/backend/internal/notifications"
)

func newWebhookHandlerFixture() (*WebhookHandler, *notificationStack) {
	stack := newNotificationStack()
	return NewWebhookHandler(stack.webhooks, stack.service, stack.dispatcher), stack
}

func TestCreateWebhook(t *testing.T) {
	t.Parallel()

	t.Run("requires authentication", func(t *testing.T) {
		t.Parallel()
		h, _ := newWebhookHandlerFixture()
		c, rec := newTestContext(t, http.MethodPost, "/webhooks", `{"endpoint":"https://hooks.example.com/skylark"}`)
		if got := httpStatus(t, h.CreateWebhook(c), rec); got != http.StatusUnauthorized {
			t.Errorf("status: got %d, want 401", got)
		}
	})

	t.Run("rejects endpoints the guard disallows", func(t *testing.T) {
		t.Parallel()
		h, stack := newWebhookHandlerFixture()
		c, rec := newTestContext(t, http.MethodPost, "/webhooks", `{"endpoint":"http://localhost:9999/hook"}`)
		authenticate(c, 1)
		if got := httpStatus(t, h.CreateWebhook(c), rec); got != http.StatusBadRequest {
			t.Errorf("status: got %d, want 400", got)
		}
		endpoints, _ := stack.webhooks.GetByUserID(1)
		if len(endpoints) != 0 {
			t.Errorf("endpoints stored: got %d, want 0", len(endpoints))
		}
	})

	t.Run("returns the generated secret exactly once", func(t *testing.T) {
		t.Parallel()
		h, _ := newWebhookHandlerFixture()
		c, rec := newTestContext(t, http.MethodPost, "/webhooks", `{"endpoint":"https://hooks.example.com/skylark"}`)
		authenticate(c, 1)
		if got := httpStatus(t, h.CreateWebhook(c), rec); got != http.StatusCreated {
			t.Fatalf("status: got %d, want 201 (body %s)", got, rec.Body.String())
		}

		data := decodeData(t, rec)
		secret, _ := data["secret"].(string)
		if secret == "" {
			t.Error("secret missing from creation response")
		}
		webhook, ok := data["webhook"].(map[string]any)
		if !ok {
			t.Fatalf("webhook: got %T, want object", data["webhook"])
		}
		if webhook["endpoint"] != "https://hooks.example.com/skylark" {
			t.Errorf("endpoint: got %v", webhook["endpoint"])
		}
		if webhook["is_active"] != true {
			t.Errorf("is_active: got %v, want true", webhook["is_active"])
		}
		// The secret lives only in the top-level field, never inside the
		// serialized endpoint.
		if _, leaked := webhook["secret"]; leaked {
			t.Error("secret serialized inside the webhook object")
		}
	})
}

func TestGetWebhooks(t *testing.T) {
	t.Parallel()

	h, stack := newWebhookHandlerFixture()
	stack.webhooks.Create(&models.WebhookEndpoint{UserID: 1, Endpoint: "https://hooks.example.com/a", Secret: "sec-a", IsActive: true})
	stack.webhooks.Create(&models.WebhookEndpoint{UserID: 1, Endpoint: "https://hooks.example.com/b", Secret: "sec-b", IsActive: false})
	stack.webhooks.Create(&models.WebhookEndpoint{UserID: 2, Endpoint: "https://hooks.example.com/c", Secret: "sec-c", IsActive: true})

	c, rec := newTestContext(t, http.MethodGet, "/webhooks", "")
	authenticate(c, 1)
	if got := httpStatus(t, h.GetWebhooks(c), rec); got != http.StatusOK {
		t.Fatalf("status: got %d, want 200", got)
	}

	data := decodeData(t, rec)
	webhooks, ok := data["webhooks"].([]any)
	if !ok || len(webhooks) != 2 {
		t.Fatalf("webhooks: got %v, want 2 entries", data["webhooks"])
	}
	if strings.Contains(rec.Body.String(), "sec-a") {
		t.Error("stored secret leaked into the listing")
	}
}

func TestUpdateWebhook(t *testing.T) {
	t.Parallel()

	seed := func(t *testing.T) (*WebhookHandler, *notificationStack, uint) {
		t.Helper()
		h, stack := newWebhookHandlerFixture()
		ep := &models.WebhookEndpoint{UserID: 1, Endpoint: "https://hooks.example.com/a", Secret: "sec", IsActive: true}
		stack.webhooks.Create(ep)
		return h, stack, ep.ID
	}

	t.Run("revalidates a replacement URL", func(t *testing.T) {
		t.Parallel()
		h, stack, id := seed(t)
		c, rec := newTestContext(t, http.MethodPut, "/webhooks/1", `{"endpoint":"http://127.0.0.1/hook"}`)
		authenticate(c, 1)
		c.SetParamNames("id")
		c.SetParamValues("1")
		if got := httpStatus(t, h.UpdateWebhook(c), rec); got != http.StatusBadRequest {
			t.Errorf("status: got %d, want 400", got)
		}
		ep, _ := stack.webhooks.GetByIDAndUserID(id, 1)
		if ep.Endpoint != "https://hooks.example.com/a" {
			t.Errorf("endpoint changed to %q despite rejection", ep.Endpoint)
		}
	})

	t.Run("toggles the active flag", func(t *testing.T) {
		t.Parallel()
		h, stack, id := seed(t)
		c, rec := newTestContext(t, http.MethodPut, "/webhooks/1", `{"is_active":false}`)
		authenticate(c, 1)
		c.SetParamNames("id")
		c.SetParamValues("1")
		if got := httpStatus(t, h.UpdateWebhook(c), rec); got != http.StatusOK {
			t.Fatalf("status: got %d, want 200", got)
		}
		ep, err := stack.webhooks.GetByIDAndUserID(id, 1)
		if err != nil {
			t.Fatalf("endpoint lookup: %v", err)
		}
		if ep.IsActive {
			t.Error("endpoint still active after update")
		}
	})

	t.Run("unknown or foreign webhooks are not found", func(t *testing.T) {
		t.Parallel()
		h, _, _ := seed(t)
		c, rec := newTestContext(t, http.MethodPut, "/webhooks/1", `{"is_active":false}`)
		authenticate(c, 2) // someone else's webhook
		c.SetParamNames("id")
		c.SetParamValues("1")
		if got := httpStatus(t, h.UpdateWebhook(c), rec); got != http.StatusNotFound {
			t.Errorf("status: got %d, want 404", got)
		}
	})
}

func TestDeleteWebhook(t *testing.T) {
	t.Parallel()

	h, stack := newWebhookHandlerFixture()
	ep := &models.WebhookEndpoint{UserID: 1, Endpoint: "https://hooks.example.com/a", Secret: "sec", IsActive: true}
	stack.webhooks.Create(ep)

	c, rec := newTestContext(t, http.MethodDelete, "/webhooks/1", "")
	authenticate(c, 1)
	c.SetParamNames("id")
	c.SetParamValues("1")
	if got := httpStatus(t, h.DeleteWebhook(c), rec); got != http.StatusNoContent {
		t.Fatalf("status: got %d, want 204", got)
	}

	c, rec = newTestContext(t, http.MethodDelete, "/webhooks/1", "")
	authenticate(c, 1)
	c.SetParamNames("id")
	c.SetParamValues("1")
	if got := httpStatus(t, h.DeleteWebhook(c), rec); got != http.StatusNotFound {
		t.Errorf("status on second delete: got %d, want 404", got)
	}
}

func TestTestWebhook(t *testing.T) {
	t.Parallel()

	t.Run("applies the endpoint guard", func(t *testing.T) {
		t.Parallel()
		h, _ := newWebhookHandlerFixture()
		c, rec := newTestContext(t, http.MethodPost, "/webhooks/test", `{"endpoint":"http://127.0.0.1:9999/hook","secret":"whsec-t"}`)
		authenticate(c, 1)
		if got := httpStatus(t, h.TestWebhook(c), rec); got != http.StatusBadRequest {
			t.Errorf("status: got %d, want 400", got)
		}
	})

	t.Run("reports the delivery outcome without bookkeeping", func(t *testing.T) {
		t.Parallel()
		h, stack := newWebhookHandlerFixture()
		// A guaranteed-unresolvable host: the guard passes it, the send
		// fails, and the handler still answers 200 with the outcome.
		c, rec := newTestContext(t, http.MethodPost, "/webhooks/test", `{"endpoint":"https://hooks.invalid/skylark","secret":"whsec-t"}`)
		authenticate(c, 1)
		if got := httpStatus(t, h.TestWebhook(c), rec); got != http.StatusOK {
			t.Fatalf("status: got %d, want 200 (body %s)", got, rec.Body.String())
		}

		data := decodeData(t, rec)
		delivery, ok := data["delivery"].(map[string]any)
		if !ok {
			t.Fatalf("delivery: got %T, want object", data["delivery"])
		}
		if delivery["status"] != notifications.DeliveryStatusFailed {
			t.Errorf("status: got %v, want failed for unreachable host", delivery["status"])
		}
		if delivery["webhook_id"] != nil {
			t.Errorf("webhook_id: got %v, want null for ad hoc delivery", delivery["webhook_id"])
		}
		if delivery["delivery_id"] == "" || delivery["delivery_id"] == nil {
			t.Error("delivery_id missing")
		}
		if got := stack.webhooks.successCount(); got != 0 {
			t.Errorf("bookkeeping writes: got %d, want 0", got)
		}
	})
}

func TestDeliverToWebhook(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var gotEvent, gotSignature string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotEvent = r.Header.Get(notifications.HeaderEvent)
		gotSignature = r.Header.Get(notifications.HeaderSignature)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	h, stack := newWebhookHandlerFixture()
	ep := &models.WebhookEndpoint{UserID: 1, Endpoint: srv.URL, Secret: "whsec-d", IsActive: true}
	stack.webhooks.Create(ep)

	t.Run("delivers the current snapshot", func(t *testing.T) {
		c, rec := newTestContext(t, http.MethodPost, "/webhooks/1/deliver", "")
		authenticate(c, 1)
		c.SetParamNames("id")
		c.SetParamValues("1")
		if got := httpStatus(t, h.DeliverToWebhook(c), rec); got != http.StatusOK {
			t.Fatalf("status: got %d, want 200 (body %s)", got, rec.Body.String())
		}

		data := decodeData(t, rec)
		delivery, ok := data["delivery"].(map[string]any)
		if !ok {
			t.Fatalf("delivery: got %T, want object", data["delivery"])
		}
		if delivery["status"] != notifications.DeliveryStatusSuccess {
			t.Errorf("status: got %v, want success", delivery["status"])
		}
		if delivery["webhook_id"] != float64(ep.ID) {
			t.Errorf("webhook_id: got %v, want %d", delivery["webhook_id"], ep.ID)
		}

		mu.Lock()
		defer mu.Unlock()
		if gotEvent != notifications.EventNotificationUpdated {
			t.Errorf("event header: got %q, want %q", gotEvent, notifications.EventNotificationUpdated)
		}
		if !strings.HasPrefix(gotSignature, "sha256=") {
			t.Errorf("signature header: got %q, want sha256= prefix", gotSignature)
		}
		if got := stack.webhooks.successCount(); got != 1 {
			t.Errorf("bookkeeping successes: got %d, want 1", got)
		}
	})

	t.Run("unknown webhook is not found", func(t *testing.T) {
		c, rec := newTestContext(t, http.MethodPost, "/webhooks/99/deliver", "")
		authenticate(c, 1)
		c.SetParamNames("id")
		c.SetParamValues("99")
		if got := httpStatus(t, h.DeliverToWebhook(c), rec); got != http.StatusNotFound {
			t.Errorf("status: got %d, want 404", got)
		}
	})
}
