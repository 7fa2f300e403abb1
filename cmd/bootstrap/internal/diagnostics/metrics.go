// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package diagnostics

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics records per-step measurements.
type Metrics interface {
	// RecordStep records how long step took and whether it failed.
	RecordStep(ctx context.Context, step string, d time.Duration, err error)

	// Shutdown exports everything recorded and releases resources.
	Shutdown(ctx context.Context) error
}

// NoOpMetrics discards every measurement.
type NoOpMetrics struct{}

// NewNoOpMetrics creates a Metrics that records nothing.
func NewNoOpMetrics() *NoOpMetrics {
	return &NoOpMetrics{}
}

// RecordStep implements Metrics.
func (m *NoOpMetrics) RecordStep(context.Context, string, time.Duration, error) {}

// Shutdown implements Metrics.
func (m *NoOpMetrics) Shutdown(context.Context) error { return nil }

// FileMetrics aggregates step measurements in memory and writes them as
// JSON to a file when shut down.
type FileMetrics struct {
	provider *sdkmetric.MeterProvider
	file     *os.File
	duration metric.Float64Histogram
	failures metric.Int64Counter
}

// NewFileMetrics creates a Metrics exporting to path on Shutdown.
func NewFileMetrics(ctx context.Context, path, service, version string) (*FileMetrics, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("opening metrics file: %w", err)
	}
	exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(f), stdoutmetric.WithPrettyPrint())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create stdout metric exporter: %w", err)
	}
	res, err := newResource(ctx, service, version)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	// The interval only matters for runs longer than an hour; Shutdown
	// performs the final collection.
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(time.Hour))),
	)
	meter := provider.Meter(service)

	duration, err := meter.Float64Histogram("bootstrap.step.duration",
		metric.WithDescription("Wall time of each bootstrap step"),
		metric.WithUnit("s"),
	)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}
	failures, err := meter.Int64Counter("bootstrap.step.failures",
		metric.WithDescription("Bootstrap steps that returned an error"),
	)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create failure counter: %w", err)
	}

	return &FileMetrics{provider: provider, file: f, duration: duration, failures: failures}, nil
}

// RecordStep implements Metrics.
func (m *FileMetrics) RecordStep(ctx context.Context, step string, d time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("step", step),
		attribute.Bool("failed", err != nil),
	)
	m.duration.Record(ctx, d.Seconds(), attrs)
	if err != nil {
		m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("step", step)))
	}
}

// Shutdown implements Metrics.
func (m *FileMetrics) Shutdown(ctx context.Context) error {
	err := m.provider.Shutdown(ctx)
	if cerr := m.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// Compile-time interface compliance check.
var (
	_ Metrics = (*NoOpMetrics)(nil)
	_ Metrics = (*FileMetrics)(nil)
)
