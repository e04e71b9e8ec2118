// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package telemetry wires OpenTelemetry metrics for the SynergyOS
// service.
//
// Metrics are exported through the Prometheus bridge and served from
// the /metrics endpoint. Request tracing uses otelgin; it becomes
// active automatically when a tracer provider is installed by the
// deployment environment.
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// Config controls telemetry behavior.
type Config struct {
	// ServiceName identifies this service in metrics.
	ServiceName string

	// ServiceVersion is the version string for this service.
	ServiceVersion string

	// Environment identifies the deployment environment.
	Environment string

	// Disabled turns the meter provider into a no-op and leaves the
	// metrics handler unset.
	Disabled bool
}

// DefaultConfig returns defaults for a single-node deployment.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "synergy",
		ServiceVersion: "1.0.0",
		Environment:    "development",
	}
}

var (
	prometheusHandler   http.Handler
	prometheusHandlerMu sync.RWMutex
)

// Init installs the global meter provider.
//
// Description: Creates a Prometheus-bridged OTel meter provider tagged
// with the service identity and registers it globally, so
// otel.Meter() works throughout the application. The promhttp handler
// is captured for MetricsHandler.
// Inputs: ctx - unused today, kept for exporter setups that dial out.
// cfg - telemetry configuration.
// Outputs: shutdown - flushes and stops the provider; must be called
// on exit. error - non-nil when the exporter cannot be created.
// Thread Safety: call once at startup.
func Init(_ context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	if cfg.Disabled {
		return func(context.Context) error { return nil }, nil
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
		attribute.String("deployment.environment", cfg.Environment),
	)

	exporter, err := promexporter.New()
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(mp)

	prometheusHandlerMu.Lock()
	prometheusHandler = promhttp.Handler()
	prometheusHandlerMu.Unlock()

	return mp.Shutdown, nil
}

// MetricsHandler returns the /metrics HTTP handler, or nil before Init
// or when telemetry is disabled.
func MetricsHandler() http.Handler {
	prometheusHandlerMu.RLock()
	defer prometheusHandlerMu.RUnlock()
	return prometheusHandler
}
