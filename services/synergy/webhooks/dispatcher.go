// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/synergyos/synergy/services/synergy/events"
	"github.com/synergyos/synergy/services/synergy/storage/badger"
)

// queuedDelivery is the outbox payload for one pending attempt.
type queuedDelivery struct {
	DeliveryID  string          `json:"delivery_id"`
	EndpointID  string          `json:"endpoint_id"`
	EventType   string          `json:"event_type"`
	Body        json.RawMessage `json:"body"`
	Attempt     int             `json:"attempt"`
	QueuedAt    time.Time       `json:"queued_at"`
	NextAttempt time.Time       `json:"next_attempt"`
}

// eventPayload is the wire shape posted to endpoints.
type eventPayload struct {
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	ActorID   string    `json:"actor_id,omitempty"`
	Data      any       `json:"data"`
}

// Outbox is the persistent delivery journal the dispatcher drains.
type Outbox interface {
	Enqueue(id string, payload []byte) error
	Pending(limit int) ([]badger.Item, error)
	Delete(id string) error
}

// Dispatcher fans events out to registered endpoints and drives the
// delivery worker.
//
// Thread Safety: Safe for concurrent use. HandleEvent may be called
// from any goroutine; the worker runs under Run.
type Dispatcher struct {
	endpoints  EndpointStore
	deliveries DeliveryStore
	outbox     Outbox

	client     *http.Client
	limiter    *rate.Limiter
	validate   *validator.Validate
	logger     *slog.Logger
	now        func() time.Time
	maxRetries int
	baseDelay  time.Duration

	wake chan struct{}
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithHTTPClient overrides the delivery HTTP client.
func WithHTTPClient(client *http.Client) DispatcherOption {
	return func(d *Dispatcher) { d.client = client }
}

// WithRateLimit caps outbound deliveries per second.
func WithRateLimit(perSecond float64, burst int) DispatcherOption {
	return func(d *Dispatcher) { d.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

// WithMaxRetries sets the retry cap per delivery. Default 3.
func WithMaxRetries(n int) DispatcherOption {
	return func(d *Dispatcher) { d.maxRetries = n }
}

// WithRetryBaseDelay sets the first retry delay; subsequent retries
// double it. Default 1 minute.
func WithRetryBaseDelay(base time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.baseDelay = base }
}

// WithDispatcherLogger sets the logger.
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithClock overrides the time source. For tests.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

// NewDispatcher creates a dispatcher over the given stores and outbox.
func NewDispatcher(endpoints EndpointStore, deliveries DeliveryStore, outbox Outbox, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		endpoints:  endpoints,
		deliveries: deliveries,
		outbox:     outbox,
		client:     &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(10), 20),
		validate:   validator.New(),
		now:        time.Now,
		maxRetries: 3,
		baseDelay:  time.Minute,
		wake:       make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// Register validates and persists an endpoint registration.
func (d *Dispatcher) Register(ctx context.Context, endpoint *Endpoint) error {
	if err := d.validate.Struct(endpoint); err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	if endpoint.ID == "" {
		endpoint.ID = uuid.NewString()
	}
	if len(endpoint.Events) == 0 {
		endpoint.Events = []string{"*"}
	}
	now := d.now()
	endpoint.Active = true
	endpoint.CreatedAt = now
	endpoint.UpdatedAt = now
	return d.endpoints.SaveEndpoint(ctx, endpoint)
}

// HandleEvent is the emitter subscription entry point: it journals one
// delivery per subscribed endpoint and wakes the worker.
//
// Journaling failures are logged, not returned: event emission must
// never fail because a webhook receiver is misconfigured.
func (d *Dispatcher) HandleEvent(event *events.Event) {
	ctx := context.Background()
	endpoints, err := d.endpoints.ListEndpoints(ctx)
	if err != nil {
		d.logger.Error("webhook fanout: list endpoints", "error", err)
		return
	}

	body, err := json.Marshal(eventPayload{
		Event:     string(event.Type),
		Timestamp: event.Timestamp,
		ActorID:   event.ActorID,
		Data:      event.Data,
	})
	if err != nil {
		d.logger.Error("webhook fanout: marshal payload", "event", string(event.Type), "error", err)
		return
	}

	for _, endpoint := range endpoints {
		if !endpoint.Active || !endpoint.Subscribed(string(event.Type)) {
			continue
		}
		queuedAt := d.now()
		delivery := &Delivery{
			ID:         uuid.NewString(),
			EndpointID: endpoint.ID,
			EventType:  string(event.Type),
			Payload:    body,
			Status:     StatusPending,
			CreatedAt:  queuedAt,
		}
		if err := d.deliveries.SaveDelivery(ctx, delivery); err != nil {
			d.logger.Error("webhook fanout: save delivery", "endpoint_id", endpoint.ID, "error", err)
			continue
		}
		if err := d.enqueue(queuedDelivery{
			DeliveryID:  delivery.ID,
			EndpointID:  endpoint.ID,
			EventType:   delivery.EventType,
			Body:        body,
			QueuedAt:    queuedAt,
			NextAttempt: queuedAt,
		}); err != nil {
			d.logger.Error("webhook fanout: enqueue", "delivery_id", delivery.ID, "error", err)
		}
	}
	d.Wake()
}

// Wake nudges the worker to drain the outbox.
func (d *Dispatcher) Wake() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Run drives the delivery worker until ctx is cancelled. Pending
// outbox entries from a previous run are picked up immediately.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			d.drain(ctx)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-d.wake:
			case <-ticker.C:
			}
		}
	})
	return g.Wait()
}

// drain processes every due outbox entry once.
func (d *Dispatcher) drain(ctx context.Context) {
	items, err := d.outbox.Pending(0)
	if err != nil {
		d.logger.Error("webhook worker: scan outbox", "error", err)
		return
	}
	for _, item := range items {
		var queued queuedDelivery
		if err := json.Unmarshal(item.Payload, &queued); err != nil {
			d.logger.Error("webhook worker: corrupt outbox entry", "id", item.ID, "error", err)
			_ = d.outbox.Delete(item.ID)
			continue
		}
		if queued.NextAttempt.After(d.now()) {
			continue
		}
		if err := d.limiter.Wait(ctx); err != nil {
			return
		}
		d.attempt(ctx, item.ID, queued)
	}
}

// attempt performs one delivery attempt and records the outcome.
func (d *Dispatcher) attempt(ctx context.Context, outboxID string, queued queuedDelivery) {
	endpoint, err := d.endpoints.GetEndpoint(ctx, queued.EndpointID)
	if err != nil || !endpoint.Active {
		// Receiver gone or disabled: terminal.
		_ = d.outbox.Delete(outboxID)
		d.finishDelivery(ctx, queued, StatusFailed, 0, "", "endpoint missing or inactive", 0)
		return
	}

	start := d.now()
	status, respBody, postErr := d.post(ctx, endpoint, queued)
	durationMS := d.now().Sub(start).Milliseconds()

	queued.Attempt++
	success := postErr == nil && status < 400
	d.updateStats(ctx, endpoint, success)

	if success {
		_ = d.outbox.Delete(outboxID)
		d.finishDelivery(ctx, queued, StatusSuccess, status, respBody, "", durationMS)
		return
	}

	errMsg := fmt.Sprintf("HTTP %d", status)
	if postErr != nil {
		errMsg = postErr.Error()
	}
	if queued.Attempt >= d.maxRetries {
		_ = d.outbox.Delete(outboxID)
		d.finishDelivery(ctx, queued, StatusFailed, status, respBody, errMsg, durationMS)
		d.logger.Warn("webhook delivery gave up",
			"delivery_id", queued.DeliveryID, "endpoint_id", endpoint.ID,
			"attempts", queued.Attempt, "error", errMsg)
		return
	}

	// Exponential backoff: base, 2*base, 4*base, ...
	queued.NextAttempt = d.now().Add(d.baseDelay << (queued.Attempt - 1))
	_ = d.outbox.Delete(outboxID)
	if err := d.enqueue(queued); err != nil {
		d.logger.Error("webhook worker: requeue", "delivery_id", queued.DeliveryID, "error", err)
	}
	d.finishDelivery(ctx, queued, StatusRetrying, status, respBody, errMsg, durationMS)
}

// post sends one signed HTTP request.
func (d *Dispatcher) post(ctx context.Context, endpoint *Endpoint, queued queuedDelivery) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.URL, bytes.NewReader(queued.Body))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "SynergyOS-Webhook/1.0")
	req.Header.Set("X-Webhook-Event", queued.EventType)
	req.Header.Set("X-Webhook-Delivery", queued.DeliveryID)
	req.Header.Set("X-Webhook-Timestamp", strconv.FormatInt(d.now().Unix(), 10))
	if endpoint.Secret != "" {
		req.Header.Set("X-Webhook-Signature", Sign(endpoint.Secret, queued.Body))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1000))
	return resp.StatusCode, string(body), nil
}

func (d *Dispatcher) enqueue(queued queuedDelivery) error {
	raw, err := json.Marshal(queued)
	if err != nil {
		return err
	}
	return d.outbox.Enqueue(queued.DeliveryID, raw)
}

func (d *Dispatcher) finishDelivery(ctx context.Context, queued queuedDelivery, status string, respStatus int, respBody, errMsg string, durationMS int64) {
	now := d.now()
	createdAt := queued.QueuedAt
	if createdAt.IsZero() {
		// Journal entries written before queued_at existed.
		createdAt = now
	}
	delivery := &Delivery{
		ID:             queued.DeliveryID,
		EndpointID:     queued.EndpointID,
		EventType:      queued.EventType,
		Payload:        queued.Body,
		Status:         status,
		ResponseStatus: respStatus,
		ResponseBody:   respBody,
		Error:          errMsg,
		Attempts:       queued.Attempt,
		DurationMS:     durationMS,
		CreatedAt:      createdAt,
	}
	if status == StatusSuccess {
		delivery.DeliveredAt = &now
	}
	if err := d.deliveries.SaveDelivery(ctx, delivery); err != nil {
		d.logger.Error("webhook worker: record outcome", "delivery_id", queued.DeliveryID, "error", err)
	}
}

func (d *Dispatcher) updateStats(ctx context.Context, endpoint *Endpoint, success bool) {
	endpoint.TotalDeliveries++
	if success {
		endpoint.SuccessfulDeliveries++
	} else {
		endpoint.FailedDeliveries++
	}
	now := d.now()
	endpoint.LastTriggeredAt = &now
	if err := d.endpoints.SaveEndpoint(ctx, endpoint); err != nil {
		d.logger.Error("webhook worker: update stats", "endpoint_id", endpoint.ID, "error", err)
	}
}

// Sign computes the hex HMAC-SHA256 signature header value for a
// payload.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a received signature header against the
// payload. Constant-time comparison.
func VerifySignature(secret string, payload []byte, header string) bool {
	return hmac.Equal([]byte(Sign(secret, payload)), []byte(header))
}
