// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
Package diagnostics records what a bootstrap run did as OpenTelemetry spans
and metrics.

Each step of a run becomes one span carrying the run id and step name, and
one duration sample. Both are written as JSON to files chosen on the command
line (--trace-file, --metrics-file) so a failed run on a developer machine
can be attached to a support request. Without those flags the no-op
implementations are used and nothing is recorded.
*/
package diagnostics

import (
	"context"
	"fmt"
	"os"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Tracer starts spans around bootstrap steps.
type Tracer interface {
	// StartSpan starts a span named name. Call the returned function with
	// the step's error (or nil) to end it.
	StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, func(error))

	// TraceID returns the hex trace id of the span in ctx, or "".
	TraceID(ctx context.Context) string

	// Shutdown flushes pending spans and releases resources.
	Shutdown(ctx context.Context) error
}

// -----------------------------------------------------------------------------
// No-op implementation
// -----------------------------------------------------------------------------

// NoOpTracer discards every span.
type NoOpTracer struct {
	tracer trace.Tracer
}

// NewNoOpTracer creates a tracer that records nothing.
func NewNoOpTracer() *NoOpTracer {
	return &NoOpTracer{tracer: noop.NewTracerProvider().Tracer("bootstrap")}
}

// StartSpan implements Tracer.
func (t *NoOpTracer) StartSpan(ctx context.Context, name string, _ map[string]string) (context.Context, func(error)) {
	ctx, span := t.tracer.Start(ctx, name)
	return ctx, func(error) { span.End() }
}

// TraceID implements Tracer. No-op spans carry no trace id.
func (t *NoOpTracer) TraceID(context.Context) string {
	return ""
}

// Shutdown implements Tracer.
func (t *NoOpTracer) Shutdown(context.Context) error {
	return nil
}

// -----------------------------------------------------------------------------
// File implementation
// -----------------------------------------------------------------------------

// FileTracer writes finished spans as JSON lines to a file.
type FileTracer struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	file     *os.File
}

// newResource describes this process to exporters.
func newResource(ctx context.Context, service, version string) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(service),
			semconv.ServiceVersionKey.String(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// NewFileTracer creates a tracer exporting to path, truncating any previous
// content.
//
// # Inputs
//
//   - ctx: Context for initialization.
//   - path: Output file.
//   - service: Service name recorded on every span.
//   - version: Build version recorded on every span.
//
// # Outputs
//
//   - *FileTracer: Ready-to-use tracer. Call Shutdown to flush and close.
//   - error: Non-nil if the file or exporter cannot be created.
func NewFileTracer(ctx context.Context, path, service, version string) (*FileTracer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("opening trace file: %w", err)
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(f))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	res, err := newResource(ctx, service, version)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	// Spans are exported synchronously; a run is short and may exit via os.Exit.
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSyncer(exporter),
	)
	return &FileTracer{
		tracer:   provider.Tracer(service),
		provider: provider,
		file:     f,
	}, nil
}

// StartSpan implements Tracer.
func (t *FileTracer) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, func(error)) {
	ctx, span := t.tracer.Start(ctx, name,
		trace.WithAttributes(toAttributes(attrs)...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

// TraceID implements Tracer.
func (t *FileTracer) TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

// Shutdown implements Tracer.
func (t *FileTracer) Shutdown(ctx context.Context) error {
	err := t.provider.Shutdown(ctx)
	if cerr := t.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// toAttributes converts attrs in key order so span output is stable.
func toAttributes(attrs map[string]string) []attribute.KeyValue {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]attribute.KeyValue, 0, len(keys))
	for _, k := range keys {
		out = append(out, attribute.String(k, attrs[k]))
	}
	return out
}

// Compile-time interface compliance check.
var (
	_ Tracer = (*NoOpTracer)(nil)
	_ Tracer = (*FileTracer)(nil)
)
