// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry wires the batch CLI's tracing and metrics: a
// stdout-exported OTel tracer for per-component spans, and a
// Prometheus registry dumped as a textfile at finalize (this tool has
// no long-running process to scrape, so the live /metrics endpoint
// pattern used elsewhere in this codebase is adapted to a one-shot
// textfile-collector write).
package telemetry

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// tracerName names the tracer exposed as Telemetry.Tracer. The
// orchestrator opens its spans on its own tracer, obtained from the
// global provider that New installs.
const tracerName = "ekstazi"

// Telemetry bundles a tracer and a metrics registry for one
// invocation, along with the shutdown hook that flushes the trace
// exporter.
type Telemetry struct {
	Tracer   trace.Tracer
	Registry *prometheus.Registry

	provider *sdktrace.TracerProvider

	FunctionsRegistered   prometheus.Counter
	VirtualEdgesStaged    prometheus.Counter
	VirtualEdgesInstalled prometheus.Counter
	TestsSelected         prometheus.Counter
}

// New constructs a Telemetry whose spans are written, via
// stdouttrace, to w (typically os.Stderr so stdout stays free for any
// machine-readable command output).
func New(w *os.File, correlationID string) (*Telemetry, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithoutTimestamps())
	if err != nil {
		return nil, fmt.Errorf("constructing stdout trace exporter: %w", err)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName("ekstazi"),
			semconv.ServiceInstanceID(correlationID),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("constructing resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Telemetry{
		Tracer:   provider.Tracer(tracerName),
		Registry: registry,
		provider: provider,

		FunctionsRegistered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ekstazi",
			Name:      "functions_registered_total",
			Help:      "Total number of functions registered during the call-graph walk.",
		}),
		VirtualEdgesStaged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ekstazi",
			Name:      "virtual_edges_staged_total",
			Help:      "Total number of pending virtual-call edges staged during the walk.",
		}),
		VirtualEdgesInstalled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ekstazi",
			Name:      "virtual_edges_installed_total",
			Help:      "Total number of pending virtual-call edges installed at finalize.",
		}),
		TestsSelected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ekstazi",
			Name:      "tests_selected_total",
			Help:      "Total number of tests selected by the most recent run.",
		}),
	}, nil
}

// Shutdown flushes and closes the trace exporter. Must be called once
// per invocation, typically deferred immediately after New succeeds.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return t.provider.Shutdown(ctx)
}

// DumpMetrics writes the registry's current state to path in
// Prometheus text-exposition format, mirroring the node_exporter
// textfile-collector convention since this tool has no HTTP server to
// scrape.
func (t *Telemetry) DumpMetrics(path string) error {
	families, err := t.Registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := expfmt.NewEncoder(f, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encoding metric family %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
