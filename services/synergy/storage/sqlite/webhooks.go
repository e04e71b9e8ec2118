// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/synergyos/synergy/services/synergy/webhooks"
)

// SaveEndpoint inserts or replaces a webhook endpoint.
func (s *Store) SaveEndpoint(ctx context.Context, endpoint *webhooks.Endpoint) error {
	eventsJSON, err := json.Marshal(endpoint.Events)
	if err != nil {
		return fmt.Errorf("marshal endpoint events: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO webhook_endpoints
		(id, owner_id, name, url, secret, events, active,
		 total_deliveries, successful_deliveries, failed_deliveries,
		 last_triggered_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			url = excluded.url,
			secret = excluded.secret,
			events = excluded.events,
			active = excluded.active,
			total_deliveries = excluded.total_deliveries,
			successful_deliveries = excluded.successful_deliveries,
			failed_deliveries = excluded.failed_deliveries,
			last_triggered_at = excluded.last_triggered_at,
			updated_at = excluded.updated_at`,
		endpoint.ID, endpoint.OwnerID, endpoint.Name, endpoint.URL,
		endpoint.Secret, string(eventsJSON), boolToInt(endpoint.Active),
		endpoint.TotalDeliveries, endpoint.SuccessfulDeliveries,
		endpoint.FailedDeliveries, encodeTimePtr(endpoint.LastTriggeredAt),
		encodeTime(endpoint.CreatedAt), encodeTime(endpoint.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save webhook endpoint: %w", err)
	}
	return nil
}

// GetEndpoint returns the endpoint with the given id.
func (s *Store) GetEndpoint(ctx context.Context, id string) (*webhooks.Endpoint, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name, url, secret, events, active,
		        total_deliveries, successful_deliveries, failed_deliveries,
		        last_triggered_at, created_at, updated_at
		 FROM webhook_endpoints WHERE id = ?`, id)
	endpoint, err := scanEndpoint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, webhooks.ErrEndpointNotFound
	}
	return endpoint, err
}

// ListEndpoints returns all registered endpoints.
func (s *Store) ListEndpoints(ctx context.Context) ([]*webhooks.Endpoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, name, url, secret, events, active,
		        total_deliveries, successful_deliveries, failed_deliveries,
		        last_triggered_at, created_at, updated_at
		 FROM webhook_endpoints ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var endpoints []*webhooks.Endpoint
	for rows.Next() {
		endpoint, err := scanEndpoint(rows)
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, endpoint)
	}
	return endpoints, rows.Err()
}

// DeleteEndpoint removes an endpoint and its delivery history.
func (s *Store) DeleteEndpoint(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM webhook_endpoints WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return webhooks.ErrEndpointNotFound
	}
	return nil
}

// SaveDelivery inserts or updates a delivery record. The original
// created_at is preserved on update.
func (s *Store) SaveDelivery(ctx context.Context, delivery *webhooks.Delivery) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO webhook_deliveries
		(id, endpoint_id, event_type, payload, status, response_status,
		 response_body, error, attempts, duration_ms, created_at, delivered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			response_status = excluded.response_status,
			response_body = excluded.response_body,
			error = excluded.error,
			attempts = excluded.attempts,
			duration_ms = excluded.duration_ms,
			delivered_at = excluded.delivered_at`,
		delivery.ID, delivery.EndpointID, delivery.EventType,
		string(delivery.Payload), delivery.Status, delivery.ResponseStatus,
		delivery.ResponseBody, delivery.Error, delivery.Attempts,
		delivery.DurationMS, encodeTime(delivery.CreatedAt),
		encodeTimePtr(delivery.DeliveredAt))
	if err != nil {
		return fmt.Errorf("save webhook delivery: %w", err)
	}
	return nil
}

// ListDeliveries returns an endpoint's recent deliveries, newest
// first. limit <= 0 means a default page of 50.
func (s *Store) ListDeliveries(ctx context.Context, endpointID string, limit int) ([]*webhooks.Delivery, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, endpoint_id, event_type, payload, status, response_status,
		        response_body, error, attempts, duration_ms, created_at, delivered_at
		 FROM webhook_deliveries WHERE endpoint_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`, endpointID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deliveries []*webhooks.Delivery
	for rows.Next() {
		var (
			d            webhooks.Delivery
			payload      string
			createdAtRaw string
			deliveredAt  sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.EndpointID, &d.EventType, &payload,
			&d.Status, &d.ResponseStatus, &d.ResponseBody, &d.Error,
			&d.Attempts, &d.DurationMS, &createdAtRaw, &deliveredAt); err != nil {
			return nil, err
		}
		d.Payload = json.RawMessage(payload)
		if d.CreatedAt, err = decodeTime(createdAtRaw); err != nil {
			return nil, err
		}
		if d.DeliveredAt, err = decodeTimePtr(deliveredAt); err != nil {
			return nil, err
		}
		deliveries = append(deliveries, &d)
	}
	return deliveries, rows.Err()
}

func scanEndpoint(row rowScanner) (*webhooks.Endpoint, error) {
	var (
		endpoint                   webhooks.Endpoint
		eventsJSON                 string
		active                     int
		lastTriggeredAt            sql.NullString
		createdAtRaw, updatedAtRaw string
	)
	err := row.Scan(&endpoint.ID, &endpoint.OwnerID, &endpoint.Name,
		&endpoint.URL, &endpoint.Secret, &eventsJSON, &active,
		&endpoint.TotalDeliveries, &endpoint.SuccessfulDeliveries,
		&endpoint.FailedDeliveries, &lastTriggeredAt,
		&createdAtRaw, &updatedAtRaw)
	if err != nil {
		return nil, err
	}
	endpoint.Active = active != 0
	if err := json.Unmarshal([]byte(eventsJSON), &endpoint.Events); err != nil {
		return nil, fmt.Errorf("decode endpoint events: %w", err)
	}
	if endpoint.LastTriggeredAt, err = decodeTimePtr(lastTriggeredAt); err != nil {
		return nil, err
	}
	if endpoint.CreatedAt, err = decodeTime(createdAtRaw); err != nil {
		return nil, err
	}
	if endpoint.UpdatedAt, err = decodeTime(updatedAtRaw); err != nil {
		return nil, err
	}
	return &endpoint, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
