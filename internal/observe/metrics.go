// Package observe provides application-wide observability primitives for
// Helmsman: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Helmsman metrics.
const meterName = "github.com/MrWong99/helmsman"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// STTDuration tracks speech-to-text transcription latency on the voice
	// session path, measured from utterance end to final-transcript
	// delivery. Only recorded when the provider reports utterance timing.
	STTDuration metric.Float64Histogram

	// CorrectionDuration tracks transcript correction latency.
	CorrectionDuration metric.Float64Histogram

	// InterpretationDuration tracks command interpretation latency.
	InterpretationDuration metric.Float64Histogram

	// SpeechDuration tracks confirmation synthesis and playback latency.
	SpeechDuration metric.Float64Histogram

	// CommandDuration tracks end-to-end command latency from transcript
	// submission to spoken confirmation.
	CommandDuration metric.Float64Histogram

	// --- Counters ---

	// Commands counts processed helm commands. Use with attributes:
	//   attribute.String("source", ...), attribute.String("status", ...)
	// Well-known status values: "applied", "rejected", "failed".
	Commands metric.Int64Counter

	// VocabularySubstitutions counts phonetic vocabulary replacements made
	// during transcript normalisation.
	VocabularySubstitutions metric.Int64Counter

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// CommandsInFlight tracks commands currently moving through the
	// pipeline. With the single-command gate this is 0 or 1; values above 1
	// indicate a gate bug.
	CommandsInFlight metric.Int64UpDownCounter

	// ActiveVoiceSessions tracks the number of live STT streaming sessions.
	ActiveVoiceSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for voice-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.STTDuration, err = m.Float64Histogram("helmsman.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CorrectionDuration, err = m.Float64Histogram("helmsman.correction.duration",
		metric.WithDescription("Latency of LLM transcript correction."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.InterpretationDuration, err = m.Float64Histogram("helmsman.interpretation.duration",
		metric.WithDescription("Latency of LLM command interpretation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SpeechDuration, err = m.Float64Histogram("helmsman.speech.duration",
		metric.WithDescription("Latency of confirmation synthesis and playback."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CommandDuration, err = m.Float64Histogram("helmsman.command.duration",
		metric.WithDescription("End-to-end helm command latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Commands, err = m.Int64Counter("helmsman.commands",
		metric.WithDescription("Total helm commands by source and status."),
	); err != nil {
		return nil, err
	}
	if met.VocabularySubstitutions, err = m.Int64Counter("helmsman.vocabulary.substitutions",
		metric.WithDescription("Total phonetic vocabulary substitutions applied to transcripts."),
	); err != nil {
		return nil, err
	}
	if met.ProviderRequests, err = m.Int64Counter("helmsman.provider.requests",
		metric.WithDescription("Total provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("helmsman.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.CommandsInFlight, err = m.Int64UpDownCounter("helmsman.commands.in_flight",
		metric.WithDescription("Commands currently moving through the pipeline."),
	); err != nil {
		return nil, err
	}
	if met.ActiveVoiceSessions, err = m.Int64UpDownCounter("helmsman.voice.sessions",
		metric.WithDescription("Number of live STT streaming sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("helmsman.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
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
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: creating default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}
