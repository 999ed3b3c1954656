package llm

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-verdict/internal/ports"
)

// Metrics holds the Prometheus collectors for provider call
// observability.
type Metrics struct {
	evaluationsTotal *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	tokensUsed       *prometheus.CounterVec
}

// NewMetrics creates and registers the provider metrics on the given
// registerer. Pass prometheus.DefaultRegisterer in production; tests
// use a fresh registry to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		evaluationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_evaluations_total",
				Help: "Total number of judge evaluations, by provider and verdict.",
			},
			[]string{"provider", "verdict"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_request_duration_seconds",
				Help:    "Duration of provider evaluate calls.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "outcome"},
		),
		tokensUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_tokens_used_total",
				Help: "Total tokens consumed across provider calls, by direction.",
			},
			[]string{"provider", "direction"},
		),
	}
}

// meteredAdapter records per-call metrics around the wrapped adapter.
type meteredAdapter struct {
	ports.ProviderAdapter
	metrics *Metrics
}

// MetricsMiddleware creates middleware that records call counts,
// latencies, verdicts, and token usage for every evaluate call.
func MetricsMiddleware(metrics *Metrics) Middleware {
	return func(next ports.ProviderAdapter) ports.ProviderAdapter {
		return &meteredAdapter{ProviderAdapter: next, metrics: metrics}
	}
}

// Evaluate forwards the request and records its outcome.
func (m *meteredAdapter) Evaluate(ctx context.Context, req ports.EvaluateRequest) (ports.EvaluateResponse, error) {
	provider := m.ProviderAdapter.Name()

	start := time.Now()
	resp, err := m.ProviderAdapter.Evaluate(ctx, req)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		m.metrics.requestDuration.WithLabelValues(provider, "error").Observe(elapsed)
		return resp, err
	}

	m.metrics.requestDuration.WithLabelValues(provider, "success").Observe(elapsed)
	m.metrics.evaluationsTotal.WithLabelValues(provider, string(resp.Result.Verdict)).Inc()
	if resp.Usage != nil {
		m.metrics.tokensUsed.WithLabelValues(provider, "input").Add(float64(resp.Usage.PromptTokens))
		m.metrics.tokensUsed.WithLabelValues(provider, "output").Add(float64(resp.Usage.CompletionTokens))
	}
	return resp, nil
}
