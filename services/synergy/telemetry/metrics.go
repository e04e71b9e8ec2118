// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the instruments recorded across the service.
type Metrics struct {
	// HTTP layer.
	HTTPRequests        metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	// Domain counters.
	ProjectsCreated   metric.Int64Counter
	TasksCreated      metric.Int64Counter
	TasksCompleted    metric.Int64Counter
	DependenciesAdded metric.Int64Counter
	TimersStarted     metric.Int64Counter
	HoursLogged       metric.Float64Counter
	WebhooksDelivered metric.Int64Counter
	WebhooksFailed    metric.Int64Counter
	NotificationsSent metric.Int64Counter
	MessagesPosted    metric.Int64Counter
	AIRequests        metric.Int64Counter
}

// NewMetrics creates all service instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.HTTPRequests, err = meter.Int64Counter(
		"synergy_http_requests_total",
		metric.WithDescription("Total number of HTTP requests handled"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http requests counter: %w", err)
	}

	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"synergy_http_request_duration_seconds",
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("create http duration histogram: %w", err)
	}

	m.HTTPActiveRequests, err = meter.Int64UpDownCounter(
		"synergy_http_active_requests",
		metric.WithDescription("Number of HTTP requests currently in flight"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create active requests counter: %w", err)
	}

	m.ProjectsCreated, err = meter.Int64Counter(
		"synergy_projects_created_total",
		metric.WithDescription("Projects created"),
		metric.WithUnit("{project}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create projects counter: %w", err)
	}

	m.TasksCreated, err = meter.Int64Counter(
		"synergy_tasks_created_total",
		metric.WithDescription("Tasks created"),
		metric.WithUnit("{task}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create tasks counter: %w", err)
	}

	m.TasksCompleted, err = meter.Int64Counter(
		"synergy_tasks_completed_total",
		metric.WithDescription("Tasks moved to done"),
		metric.WithUnit("{task}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create tasks completed counter: %w", err)
	}

	m.DependenciesAdded, err = meter.Int64Counter(
		"synergy_dependencies_added_total",
		metric.WithDescription("Task dependencies added"),
		metric.WithUnit("{dependency}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create dependencies counter: %w", err)
	}

	m.TimersStarted, err = meter.Int64Counter(
		"synergy_timers_started_total",
		metric.WithDescription("Time tracking timers started"),
		metric.WithUnit("{timer}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create timers counter: %w", err)
	}

	m.HoursLogged, err = meter.Float64Counter(
		"synergy_hours_logged_total",
		metric.WithDescription("Hours recorded in the time ledger"),
		metric.WithUnit("h"),
	)
	if err != nil {
		return nil, fmt.Errorf("create hours logged counter: %w", err)
	}

	m.WebhooksDelivered, err = meter.Int64Counter(
		"synergy_webhooks_delivered_total",
		metric.WithDescription("Webhook deliveries that succeeded"),
		metric.WithUnit("{delivery}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create webhooks delivered counter: %w", err)
	}

	m.WebhooksFailed, err = meter.Int64Counter(
		"synergy_webhooks_failed_total",
		metric.WithDescription("Webhook deliveries that exhausted retries"),
		metric.WithUnit("{delivery}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create webhooks failed counter: %w", err)
	}

	m.NotificationsSent, err = meter.Int64Counter(
		"synergy_notifications_sent_total",
		metric.WithDescription("In-app notifications created"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create notifications counter: %w", err)
	}

	m.MessagesPosted, err = meter.Int64Counter(
		"synergy_messages_posted_total",
		metric.WithDescription("Project messages posted"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create messages counter: %w", err)
	}

	m.AIRequests, err = meter.Int64Counter(
		"synergy_ai_requests_total",
		metric.WithDescription("AI assistant requests served"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create ai requests counter: %w", err)
	}

	return m, nil
}
