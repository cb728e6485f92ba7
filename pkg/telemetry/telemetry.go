// Package telemetry wires OpenTelemetry tracing into the engine. It is
// deliberately thin: a tracer-provider bootstrap plus two call sites that
// matter for operability — Store round-trips and TranslationAgent
// chunk processing (spec.md's domain-stack commitment) — not a
// general-purpose instrumentation layer for every package.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config controls whether tracing is wired at all, and where spans go.
// With Enabled false, Init installs a no-op provider so every Tracer call
// in the rest of the engine is free to run unconditionally.
type Config struct {
	Enabled      bool
	ServiceName  string
	SamplingRate float64
}

// Init installs the global TracerProvider described by cfg and returns it
// so the caller can flush it on shutdown. Exporter wiring is deliberately
// left to the caller's environment (an OTLP collector endpoint is an
// operator deployment concern, not part of this engine's contract) —
// Init always installs the SDK provider with a batch span processor
// writing to whatever exporter was passed in, or a no-op provider when
// tracing is disabled or no exporter is supplied.
func Init(ctx context.Context, cfg Config, exporter sdktrace.SpanExporter) (trace.TracerProvider, error) {
	if !cfg.Enabled || exporter == nil {
		tp := noop.NewTracerProvider()
		otel.SetTracerProvider(tp)
		return tp, nil
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "doctranslate"
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}

	rate := cfg.SamplingRate
	if rate <= 0 {
		rate = 1.0
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(rate)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// Tracer returns a named tracer off the currently installed provider.
// Safe to call before Init — otel defaults to a no-op tracer until a
// provider is installed.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// Span name and attribute key constants for the two instrumented
// surfaces. Kept centralized so store.go and the translation chunk
// wrapper agree on naming.
const (
	SpanStoreCall    = "store.call"
	SpanChunkProcess = "translation.chunk_process"

	AttrStoreMethod    = "store.method"
	AttrProjectID      = "doctranslate.project_id"
	AttrDocumentID     = "doctranslate.document_id"
	AttrChunkIndex     = "doctranslate.chunk_index"
	AttrChunkAtomCount = "doctranslate.chunk_atom_count"
)
