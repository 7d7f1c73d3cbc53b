// ABOUTME: OpenTelemetry metric instruments for the player
// ABOUTME: Counts samples, drops, underruns, reconnects and seek timing
// Package observe provides the player's metrics: OpenTelemetry instruments
// bridged to a Prometheus scrape endpoint.
//
// Instruments are recorded from the worker goroutine only; the audio callback
// never touches them. Underruns are counted lock-free in the sample buffer and
// forwarded here by the worker. Tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/fastmic/fastmic-go"

// Metrics holds all OpenTelemetry metric instruments for the player.
type Metrics struct {
	// SamplesReceived counts smoothed samples pushed into the sample buffer.
	SamplesReceived metric.Int64Counter

	// SamplesDropped counts samples discarded because the buffer was full.
	SamplesDropped metric.Int64Counter

	// Underruns counts output frames rendered as silence.
	Underruns metric.Int64Counter

	// ConnectAttempts counts session constructions. Use with attributes:
	//   attribute.String("kind", "connect"|"reconnect"), attribute.String("status", "ok"|"error")
	ConnectAttempts metric.Int64Counter

	// StreamLosses counts seek failures that triggered reconnection.
	StreamLosses metric.Int64Counter

	// ActiveSessions is 1 while a session pair is streaming.
	ActiveSessions metric.Int64UpDownCounter

	// SeekDuration tracks the wall time of one seek cycle.
	SeekDuration metric.Float64Histogram
}

// seekBuckets covers a 300-chunk cycle at typical rates (about 12s at 48kHz).
var seekBuckets = []float64{0.5, 1, 2.5, 5, 10, 15, 20, 30, 60}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider].
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SamplesReceived, err = m.Int64Counter("fastmic.samples.received",
		metric.WithDescription("Samples pushed into the sample buffer."),
	); err != nil {
		return nil, err
	}
	if met.SamplesDropped, err = m.Int64Counter("fastmic.samples.dropped",
		metric.WithDescription("Samples dropped because the sample buffer was full."),
	); err != nil {
		return nil, err
	}
	if met.Underruns, err = m.Int64Counter("fastmic.output.underruns",
		metric.WithDescription("Output frames rendered as silence."),
	); err != nil {
		return nil, err
	}
	if met.ConnectAttempts, err = m.Int64Counter("fastmic.connect.attempts",
		metric.WithDescription("Session construction attempts by kind and status."),
	); err != nil {
		return nil, err
	}
	if met.StreamLosses, err = m.Int64Counter("fastmic.stream.losses",
		metric.WithDescription("Stream read failures that triggered reconnection."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("fastmic.active_sessions",
		metric.WithDescription("Number of live session pairs."),
	); err != nil {
		return nil, err
	}
	if met.SeekDuration, err = m.Float64Histogram("fastmic.seek.duration",
		metric.WithDescription("Duration of one seek cycle."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(seekBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Panics if instrument creation fails.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordConnect counts one session construction attempt.
func (m *Metrics) RecordConnect(ctx context.Context, reconnect bool, err error) {
	kind := "connect"
	if reconnect {
		kind = "reconnect"
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ConnectAttempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("status", status),
	))
}
