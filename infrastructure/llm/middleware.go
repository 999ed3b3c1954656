package llm

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/ahrav/go-verdict/internal/ports"
)

// Middleware wraps a ProviderAdapter to add cross-cutting behavior
// (rate smoothing, metrics, tracing) without touching adapter logic.
type Middleware func(ports.ProviderAdapter) ports.ProviderAdapter

// rateLimitedAdapter paces requests with a token bucket. This smooths
// request bursts toward vendor per-second limits; the engine's
// per-provider Limiter separately bounds concurrency.
type rateLimitedAdapter struct {
	ports.ProviderAdapter
	limiter *rate.Limiter
}

// RateLimitMiddleware creates middleware enforcing a sustained
// requests-per-second rate with the given burst allowance. Each wrapped
// adapter gets its own token bucket, so one slow vendor does not starve
// the others.
func RateLimitMiddleware(limit rate.Limit, burst int) Middleware {
	return func(next ports.ProviderAdapter) ports.ProviderAdapter {
		return &rateLimitedAdapter{
			ProviderAdapter: next,
			limiter:         rate.NewLimiter(limit, burst),
		}
	}
}

// Evaluate waits for a rate token before forwarding the request.
func (r *rateLimitedAdapter) Evaluate(ctx context.Context, req ports.EvaluateRequest) (ports.EvaluateResponse, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return ports.EvaluateResponse{}, fmt.Errorf("rate limit: %w", err)
	}
	return r.ProviderAdapter.Evaluate(ctx, req)
}

// tracedAdapter records one span per evaluate call.
type tracedAdapter struct {
	ports.ProviderAdapter
	tracer trace.Tracer
}

// TracingMiddleware creates middleware that wraps every evaluate call
// in an OpenTelemetry span carrying provider, model, and verdict
// attributes.
func TracingMiddleware(tracerName string) Middleware {
	tracer := otel.Tracer(tracerName)
	return func(next ports.ProviderAdapter) ports.ProviderAdapter {
		return &tracedAdapter{ProviderAdapter: next, tracer: tracer}
	}
}

// Evaluate executes the request inside a span, recording failures and
// the parsed verdict.
func (t *tracedAdapter) Evaluate(ctx context.Context, req ports.EvaluateRequest) (ports.EvaluateResponse, error) {
	ctx, span := t.tracer.Start(ctx, "llm.evaluate",
		trace.WithAttributes(
			attribute.String("llm.provider", t.ProviderAdapter.Name()),
			attribute.String("llm.model", req.Model),
			attribute.Int("llm.prompt.length", len(req.UserPrompt)),
		),
	)
	defer span.End()

	start := time.Now()
	resp, err := t.ProviderAdapter.Evaluate(ctx, req)
	span.SetAttributes(attribute.Int64("llm.duration_ms", time.Since(start).Milliseconds()))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return resp, err
	}

	span.SetAttributes(attribute.String("llm.verdict", string(resp.Result.Verdict)))
	if resp.Usage != nil {
		span.SetAttributes(
			attribute.Int("llm.tokens.input", resp.Usage.PromptTokens),
			attribute.Int("llm.tokens.output", resp.Usage.CompletionTokens),
		)
	}
	return resp, nil
}
