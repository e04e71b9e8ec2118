// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package webhooks

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/synergyos/synergy/services/synergy/events"
	"github.com/synergyos/synergy/services/synergy/storage/badger"
)

// memEndpoints is an in-memory EndpointStore for tests.
type memEndpoints struct {
	mu        sync.Mutex
	endpoints map[string]*Endpoint
}

func newMemEndpoints() *memEndpoints {
	return &memEndpoints{endpoints: make(map[string]*Endpoint)}
}

func (m *memEndpoints) SaveEndpoint(_ context.Context, endpoint *Endpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *endpoint
	m.endpoints[endpoint.ID] = &cp
	return nil
}

func (m *memEndpoints) GetEndpoint(_ context.Context, id string) (*Endpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	endpoint, ok := m.endpoints[id]
	if !ok {
		return nil, ErrEndpointNotFound
	}
	cp := *endpoint
	return &cp, nil
}

func (m *memEndpoints) ListEndpoints(_ context.Context) ([]*Endpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Endpoint
	for _, endpoint := range m.endpoints {
		cp := *endpoint
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memEndpoints) DeleteEndpoint(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.endpoints[id]; !ok {
		return ErrEndpointNotFound
	}
	delete(m.endpoints, id)
	return nil
}

// memDeliveries is an in-memory DeliveryStore for tests.
type memDeliveries struct {
	mu         sync.Mutex
	deliveries map[string]*Delivery
}

func newMemDeliveries() *memDeliveries {
	return &memDeliveries{deliveries: make(map[string]*Delivery)}
}

func (m *memDeliveries) SaveDelivery(_ context.Context, delivery *Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *delivery
	m.deliveries[delivery.ID] = &cp
	return nil
}

func (m *memDeliveries) ListDeliveries(_ context.Context, endpointID string, _ int) ([]*Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Delivery
	for _, delivery := range m.deliveries {
		if delivery.EndpointID == endpointID {
			cp := *delivery
			out = append(out, &cp)
		}
	}
	return out, nil
}

func newTestDispatcher(t *testing.T, opts ...DispatcherOption) (*Dispatcher, *memEndpoints, *memDeliveries) {
	t.Helper()
	db, err := badger.Open(badger.InMemoryConfig())
	if err != nil {
		t.Fatalf("open outbox: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	endpoints := newMemEndpoints()
	deliveries := newMemDeliveries()
	d := NewDispatcher(endpoints, deliveries, badger.NewOutbox(db), opts...)
	return d, endpoints, deliveries
}

func TestRegister_ValidatesURL(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	ctx := context.Background()

	if err := d.Register(ctx, &Endpoint{Name: "bad", URL: "not a url"}); err == nil {
		t.Fatal("expected validation error for malformed URL")
	}

	endpoint := &Endpoint{Name: "ok", URL: "https://example.com/hooks"}
	if err := d.Register(ctx, endpoint); err != nil {
		t.Fatalf("valid endpoint rejected: %v", err)
	}
	if endpoint.ID == "" || !endpoint.Active {
		t.Fatalf("defaults not applied: %+v", endpoint)
	}
	if len(endpoint.Events) != 1 || endpoint.Events[0] != "*" {
		t.Fatalf("default subscription = %v, want [*]", endpoint.Events)
	}
}

func TestEndpointSubscribed(t *testing.T) {
	all := &Endpoint{Events: []string{"*"}}
	some := &Endpoint{Events: []string{"task.completed", "progress.changed"}}

	if !all.Subscribed("task.created") {
		t.Fatal("wildcard must match everything")
	}
	if !some.Subscribed("task.completed") || some.Subscribed("task.created") {
		t.Fatal("explicit subscription list not honored")
	}
}

func TestDelivery_SuccessWithSignature(t *testing.T) {
	var (
		mu       sync.Mutex
		received []byte
		headers  http.Header
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		received = body
		headers = r.Header.Clone()
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d, endpoints, deliveries := newTestDispatcher(t)
	ctx := context.Background()

	endpoint := &Endpoint{Name: "sink", URL: server.URL, Secret: "s3cret", Events: []string{"task.completed"}}
	if err := d.Register(ctx, endpoint); err != nil {
		t.Fatal(err)
	}

	d.HandleEvent(&events.Event{
		ID:        "e1",
		Type:      events.TypeTaskCompleted,
		Timestamp: time.Now(),
		ActorID:   "u1",
		Data:      events.TaskEventData{TaskID: "t1", ProjectID: "p1", Title: "ship", Status: "done"},
	})
	d.drain(ctx)

	mu.Lock()
	defer mu.Unlock()
	if received == nil {
		t.Fatal("endpoint never called")
	}
	if headers.Get("X-Webhook-Event") != "task.completed" {
		t.Fatalf("event header = %q", headers.Get("X-Webhook-Event"))
	}
	if headers.Get("X-Webhook-Delivery") == "" || headers.Get("X-Webhook-Timestamp") == "" {
		t.Fatal("delivery metadata headers missing")
	}
	if !VerifySignature("s3cret", received, headers.Get("X-Webhook-Signature")) {
		t.Fatal("signature does not verify against the received body")
	}

	list, err := deliveries.ListDeliveries(ctx, endpoint.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Status != StatusSuccess {
		t.Fatalf("delivery record = %+v", list)
	}

	stored, err := endpoints.GetEndpoint(ctx, endpoint.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.TotalDeliveries != 1 || stored.SuccessfulDeliveries != 1 {
		t.Fatalf("stats = %d/%d", stored.TotalDeliveries, stored.SuccessfulDeliveries)
	}
}

func TestDelivery_SkipsUnsubscribedAndInactive(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d, _, _ := newTestDispatcher(t)
	ctx := context.Background()

	other := &Endpoint{Name: "other", URL: server.URL, Events: []string{"project.created"}}
	if err := d.Register(ctx, other); err != nil {
		t.Fatal(err)
	}
	disabled := &Endpoint{Name: "off", URL: server.URL, Events: []string{"*"}}
	if err := d.Register(ctx, disabled); err != nil {
		t.Fatal(err)
	}
	disabled.Active = false
	if err := d.endpoints.SaveEndpoint(ctx, disabled); err != nil {
		t.Fatal(err)
	}

	d.HandleEvent(&events.Event{
		ID: "e1", Type: events.TypeTaskCompleted, Timestamp: time.Now(),
	})
	d.drain(ctx)

	if calls != 0 {
		t.Fatalf("unsubscribed/inactive endpoints received %d calls", calls)
	}
}

func TestDelivery_RecordKeepsEnqueueTime(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	var (
		mu      sync.Mutex
		current = time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)
	)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	}
	d, _, deliveries := newTestDispatcher(t, WithClock(clock))
	ctx := context.Background()

	endpoint := &Endpoint{Name: "sink", URL: server.URL, Events: []string{"*"}}
	if err := d.Register(ctx, endpoint); err != nil {
		t.Fatal(err)
	}

	enqueuedAt := clock()
	d.HandleEvent(&events.Event{ID: "e1", Type: events.TypeTaskCompleted, Timestamp: enqueuedAt})

	// Time passes before the worker gets to the attempt.
	mu.Lock()
	current = current.Add(42 * time.Second)
	mu.Unlock()
	d.drain(ctx)

	list, err := deliveries.ListDeliveries(ctx, endpoint.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("delivery records = %d, want 1", len(list))
	}
	got := list[0]
	if !got.CreatedAt.Equal(enqueuedAt) {
		t.Errorf("CreatedAt = %v, want enqueue time %v", got.CreatedAt, enqueuedAt)
	}
	if got.DeliveredAt == nil || !got.DeliveredAt.Equal(enqueuedAt.Add(42*time.Second)) {
		t.Errorf("DeliveredAt = %v, want attempt time", got.DeliveredAt)
	}
}

func TestDelivery_RetriesThenGivesUp(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	d, _, deliveries := newTestDispatcher(t,
		WithMaxRetries(2),
		WithRetryBaseDelay(time.Nanosecond))
	ctx := context.Background()

	endpoint := &Endpoint{Name: "flaky", URL: server.URL, Events: []string{"*"}}
	if err := d.Register(ctx, endpoint); err != nil {
		t.Fatal(err)
	}

	d.HandleEvent(&events.Event{
		ID: "e1", Type: events.TypeTaskCompleted, Timestamp: time.Now(),
	})
	d.drain(ctx)
	time.Sleep(5 * time.Millisecond)
	d.drain(ctx)

	if attempts != 2 {
		t.Fatalf("server saw %d attempts, want 2", attempts)
	}

	list, err := deliveries.ListDeliveries(ctx, endpoint.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Status != StatusFailed {
		t.Fatalf("delivery record = %+v", list[0])
	}
	if list[0].Attempts != 2 {
		t.Fatalf("recorded attempts = %d, want 2", list[0].Attempts)
	}

	// Terminal outcome: nothing left to drain.
	items, err := d.outbox.Pending(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Fatalf("outbox not drained: %d items", len(items))
	}
}
