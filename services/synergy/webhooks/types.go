// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package webhooks delivers domain events to externally registered
// HTTP endpoints.
//
// Description:
//
//	Endpoints subscribe to event types ("*" subscribes to everything).
//	The dispatcher listens on the in-process event emitter, fans each
//	event out to matching endpoints, journals the delivery in the
//	outbox, and a worker posts it with an HMAC-SHA256 signature.
//	Failed deliveries are retried with exponential backoff up to a
//	configured cap; pending deliveries survive restarts via the outbox.
package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Endpoint is one registered webhook receiver.
type Endpoint struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`

	// Name is a friendly label for the endpoint.
	Name string `json:"name"`

	// URL receives webhook POST requests.
	URL string `json:"url" validate:"required,url"`

	// Secret, when set, enables HMAC-SHA256 payload signing.
	Secret string `json:"-"`

	// Events lists subscribed event types; "*" matches all.
	Events []string `json:"events"`

	Active bool `json:"active"`

	// Delivery statistics, maintained by the dispatcher.
	TotalDeliveries      int        `json:"total_deliveries"`
	SuccessfulDeliveries int        `json:"successful_deliveries"`
	FailedDeliveries     int        `json:"failed_deliveries"`
	LastTriggeredAt      *time.Time `json:"last_triggered_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Subscribed reports whether the endpoint wants the given event type.
func (e *Endpoint) Subscribed(eventType string) bool {
	for _, ev := range e.Events {
		if ev == "*" || ev == eventType {
			return true
		}
	}
	return false
}

// Delivery statuses.
const (
	StatusPending  = "pending"
	StatusSuccess  = "success"
	StatusFailed   = "failed"
	StatusRetrying = "retrying"
)

// Delivery is one attempt record for an event sent to an endpoint.
type Delivery struct {
	ID         string          `json:"id"`
	EndpointID string          `json:"endpoint_id"`
	EventType  string          `json:"event_type"`
	Payload    json.RawMessage `json:"payload"`

	Status         string `json:"status"`
	ResponseStatus int    `json:"response_status,omitempty"`
	ResponseBody   string `json:"response_body,omitempty"`
	Error          string `json:"error,omitempty"`
	Attempts       int    `json:"attempts"`
	DurationMS     int64  `json:"duration_ms,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
}

// EndpointStore persists webhook endpoint registrations.
type EndpointStore interface {
	SaveEndpoint(ctx context.Context, endpoint *Endpoint) error
	GetEndpoint(ctx context.Context, id string) (*Endpoint, error)
	ListEndpoints(ctx context.Context) ([]*Endpoint, error)
	DeleteEndpoint(ctx context.Context, id string) error
}

// DeliveryStore persists the delivery history.
type DeliveryStore interface {
	SaveDelivery(ctx context.Context, delivery *Delivery) error
	ListDeliveries(ctx context.Context, endpointID string, limit int) ([]*Delivery, error)
}

// ErrEndpointNotFound indicates the referenced endpoint does not exist.
var ErrEndpointNotFound = errors.New("webhook endpoint not found")
