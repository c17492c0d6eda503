package notifications

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/corvusant/skylark/backend/internal/models"
	"github.com/corvusant/skylark/backend/internal/repositories"
	"github.com/google/uuid"
)

// Delivery headers. The signature covers "{timestamp}.{body}" with the
// endpoint's secret, so receivers can verify both integrity and freshness.
const (
	HeaderEvent     = "X-Skylark-Event"
	HeaderDelivery  = "X-Skylark-Delivery"
	HeaderTimestamp = "X-Skylark-Timestamp"
	HeaderSignature = "X-Skylark-Signature"
)

// deliveryTimeout is the hard bound on one outbound attempt. There are no
// retries; a slow endpoint is recorded as failed.
const deliveryTimeout = 5 * time.Second

const (
	DeliveryStatusSuccess = "success"
	DeliveryStatusFailed  = "failed"
)

// DeliveryResult is the outcome of one delivery attempt to one endpoint.
// WebhookID is nil for ad hoc deliveries, StatusCode is nil when no HTTP
// response was obtained at all.
type DeliveryResult struct {
	WebhookID  *uint  `json:"webhook_id"`
	DeliveryID string `json:"delivery_id"`
	Status     string `json:"status"`
	StatusCode *int   `json:"status_code"`
	Error      string `json:"error,omitempty"`
}

// Dispatcher signs snapshots and POSTs them to webhook endpoints, recording
// per-endpoint bookkeeping for registered endpoints.
type Dispatcher struct {
	client      *http.Client
	webhookRepo repositories.WebhookEndpointRepository
}

// NewDispatcher creates a Dispatcher writing bookkeeping through webhookRepo.
func NewDispatcher(webhookRepo repositories.WebhookEndpointRepository) *Dispatcher {
	return &Dispatcher{
		client:      &http.Client{Timeout: deliveryTimeout},
		webhookRepo: webhookRepo,
	}
}

// Deliver sends the snapshot to every endpoint concurrently. The body is
// serialized once, so all endpoints receive identical bytes (signatures still
// differ because each endpoint has its own secret). The returned slice is
// positionally matched to the endpoints argument, and the call itself never
// fails: per-endpoint outcomes are in the results.
func (d *Dispatcher) Deliver(ctx context.Context, endpoints []models.WebhookEndpoint, snapshot *Snapshot) []DeliveryResult {
	results := make([]DeliveryResult, len(endpoints))
	if len(endpoints) == 0 {
		return results
	}

	body, err := json.Marshal(snapshot)
	if err != nil {
		for i := range endpoints {
			id := endpoints[i].ID
			results[i] = DeliveryResult{
				WebhookID: &id,
				Status:    DeliveryStatusFailed,
				Error:     "encode snapshot: " + err.Error(),
			}
		}
		return results
	}

	var wg sync.WaitGroup
	for i := range endpoints {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			endpoint := endpoints[i]
			res := d.send(ctx, snapshot.Event, endpoint.Endpoint, endpoint.Secret, body)
			res.WebhookID = &endpoint.ID
			d.record(endpoint.ID, res)
			results[i] = res
		}(i)
	}
	wg.Wait()
	return results
}

// DeliverAdHoc sends the snapshot to a caller-supplied endpoint and secret
// that are not persisted. Same signing and outcome classification as Deliver,
// but no bookkeeping and no webhook ID in the result.
func (d *Dispatcher) DeliverAdHoc(ctx context.Context, endpoint, secret string, snapshot *Snapshot) DeliveryResult {
	body, err := json.Marshal(snapshot)
	if err != nil {
		return DeliveryResult{Status: DeliveryStatusFailed, Error: "encode snapshot: " + err.Error()}
	}
	return d.send(ctx, snapshot.Event, endpoint, secret, body)
}

func (d *Dispatcher) send(ctx context.Context, event, endpoint, secret string, body []byte) DeliveryResult {
	res := DeliveryResult{
		DeliveryID: uuid.NewString(),
		Status:     DeliveryStatusFailed,
	}
	timestamp := time.Now().Unix()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		res.Error = "build request: " + err.Error()
		return res
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEvent, event)
	req.Header.Set(HeaderDelivery, res.DeliveryID)
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(timestamp, 10))
	req.Header.Set(HeaderSignature, Sign(secret, timestamp, body))

	resp, err := d.client.Do(req)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	code := resp.StatusCode
	res.StatusCode = &code
	if code >= 200 && code < 300 {
		res.Status = DeliveryStatusSuccess
	} else {
		res.Error = fmt.Sprintf("endpoint responded with status %d", code)
	}
	return res
}

// record persists the delivery outcome onto the endpoint row. A failed
// attempt must not overwrite the last successful send timestamp.
func (d *Dispatcher) record(webhookID uint, res DeliveryResult) {
	if d.webhookRepo == nil {
		return
	}
	var err error
	if res.Status == DeliveryStatusSuccess {
		err = d.webhookRepo.RecordDeliverySuccess(webhookID, time.Now(), *res.StatusCode)
	} else {
		err = d.webhookRepo.RecordDeliveryFailure(webhookID, res.StatusCode, res.Error)
	}
	if err != nil {
		log.Printf("[notifications] bookkeeping update failed for webhook %d: %v", webhookID, err)
	}
}

// Sign computes the signature header value for a delivery: the lowercase hex
// HMAC-SHA256 of "{timestamp}.{body}" keyed with the endpoint secret,
// prefixed with "sha256=".
func Sign(secret string, timestamp int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
