// Package observe provides application-wide observability primitives for
// Solace: OpenTelemetry metrics, tracing, structured logging, and HTTP
// middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Solace metrics.
const meterName = "github.com/solacevoice/solace"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// TranscribeDuration tracks speech-to-text latency.
	TranscribeDuration metric.Float64Histogram

	// GenerateDuration tracks reply generation latency.
	GenerateDuration metric.Float64Histogram

	// SynthesizeDuration tracks text-to-speech latency.
	SynthesizeDuration metric.Float64Histogram

	// TurnDuration tracks full capture-to-playback turn latency.
	TurnDuration metric.Float64Histogram

	// --- Counters ---

	// Turns counts completed turn cycles. Attributes:
	//   attribute.String("outcome", "played"|"cancelled"|"barged"|"error"|"no_speech"|"crisis")
	Turns metric.Int64Counter

	// ProviderRequests counts backend calls. Attributes:
	//   attribute.String("provider", ...), attribute.String("stage", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// Degradations counts cloud-to-local switches. Attributes:
	//   attribute.String("stage", "stt"|"tts")
	Degradations metric.Int64Counter

	// CrisisScreens counts crisis-tier screening hits. Attributes:
	//   attribute.String("level", "concern"|"critical")
	CrisisScreens metric.Int64Counter

	// BargeIns counts playback interruptions by new captures.
	BargeIns metric.Int64Counter

	// FallbackReplies counts turns answered from the fallback pool.
	FallbackReplies metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks live journal sessions.
	ActiveSessions metric.Int64UpDownCounter

	// ActiveParticipants tracks connected participants.
	ActiveParticipants metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// voice-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	histogram := func(name, desc string) metric.Float64Histogram {
		if err != nil {
			return nil
		}
		var h metric.Float64Histogram
		h, err = m.Float64Histogram(name,
			metric.WithDescription(desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(latencyBuckets...),
		)
		return h
	}
	counter := func(name, desc string) metric.Int64Counter {
		if err != nil {
			return nil
		}
		var c metric.Int64Counter
		c, err = m.Int64Counter(name, metric.WithDescription(desc))
		return c
	}
	gauge := func(name, desc string) metric.Int64UpDownCounter {
		if err != nil {
			return nil
		}
		var g metric.Int64UpDownCounter
		g, err = m.Int64UpDownCounter(name, metric.WithDescription(desc))
		return g
	}

	met.TranscribeDuration = histogram("solace.transcribe.duration", "Latency of speech-to-text transcription.")
	met.GenerateDuration = histogram("solace.generate.duration", "Latency of reply generation.")
	met.SynthesizeDuration = histogram("solace.synthesize.duration", "Latency of speech synthesis.")
	met.TurnDuration = histogram("solace.turn.duration", "Capture-to-playback latency of a full turn.")

	met.Turns = counter("solace.turns", "Completed turn cycles by outcome.")
	met.ProviderRequests = counter("solace.provider.requests", "Backend requests by provider, stage, and status.")
	met.Degradations = counter("solace.degradations", "Cloud-to-local provider switches by stage.")
	met.CrisisScreens = counter("solace.crisis.screens", "Crisis screening hits by level.")
	met.BargeIns = counter("solace.barge_ins", "Playback interruptions by new captures.")
	met.FallbackReplies = counter("solace.fallback.replies", "Turns answered from the spoken fallback pool.")

	met.ActiveSessions = gauge("solace.active_sessions", "Number of live sessions.")
	met.ActiveParticipants = gauge("solace.active_participants", "Number of connected participants.")

	if met.HTTPRequestDuration, err = m.Float64Histogram("solace.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Panics if instrument creation
// fails (should not happen with the global provider).
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

// RecordProviderRequest records one backend call with the standard attribute
// set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, stage, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("stage", stage),
			attribute.String("status", status),
		),
	)
}

// RecordTurn records one completed turn cycle.
func (m *Metrics) RecordTurn(ctx context.Context, outcome string) {
	m.Turns.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordDegradation records one cloud-to-local switch.
func (m *Metrics) RecordDegradation(ctx context.Context, stage string) {
	m.Degradations.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordCrisisScreen records one crisis screening hit.
func (m *Metrics) RecordCrisisScreen(ctx context.Context, level string) {
	m.CrisisScreens.Add(ctx, 1, metric.WithAttributes(attribute.String("level", level)))
}
