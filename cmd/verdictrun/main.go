// Command verdictrun evaluates a queue of answers with their assigned
// LLM judges and prints a batch summary. Scenarios are described by a
// YAML fixture; provider credentials come from the environment.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/chainguard-dev/clog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/ahrav/go-verdict/infrastructure/llm"
	"github.com/ahrav/go-verdict/internal/engine"
	"github.com/ahrav/go-verdict/internal/storage"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		fixturePath string
		queueID     string
		temperature float64
		maxTokens   int
		rps         float64
	)

	cmd := &cobra.Command{
		Use:   "verdictrun",
		Short: "Run LLM judge evaluations over a queue of answers",
		Long: `verdictrun loads an evaluation scenario from a YAML fixture, expands it
into (answer, judge) tasks, runs every task through the judge's provider
under per-provider concurrency limits, and prints a summary.

Provider credentials are read from OPENAI_API_KEY, ANTHROPIC_API_KEY,
and GOOGLE_API_KEY. Providers without a credential are skipped; judges
routed to them fail individually without aborting the batch.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), fixturePath, queueID, temperature, maxTokens, rps)
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVarP(&fixturePath, "fixture", "f", "", "path to the YAML scenario fixture (required)")
	cmd.Flags().StringVarP(&queueID, "queue", "q", "", "queue to evaluate (defaults to the fixture's queue_id)")
	cmd.Flags().Float64Var(&temperature, "temperature", engine.DefaultJudgeTemperature, "sampling temperature for judge calls")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", engine.DefaultJudgeMaxTokens, "response token cap for judge calls")
	cmd.Flags().Float64Var(&rps, "rps", 0, "per-provider request smoothing in requests per second (0 disables)")
	_ = cmd.MarkFlagRequired("fixture")

	return cmd
}

func run(ctx context.Context, fixturePath, queueID string, temperature float64, maxTokens int, rps float64) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := clog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx = clog.WithLogger(ctx, log)

	store, fixtureQueueID, err := storage.LoadFixture(fixturePath)
	if err != nil {
		return err
	}
	if queueID == "" {
		queueID = fixtureQueueID
	}

	registryCfg, err := llm.LoadRegistryConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to load provider configuration: %w", err)
	}
	registryCfg.Middleware = buildMiddleware(rps)

	registry, err := llm.NewRegistry(ctx, registryCfg)
	if err != nil {
		return fmt.Errorf("failed to build provider registry: %w", err)
	}

	available := registry.ListAvailableProviders()
	if len(available) == 0 {
		return fmt.Errorf("no provider credentials found; set OPENAI_API_KEY, ANTHROPIC_API_KEY, or GOOGLE_API_KEY")
	}
	log.Info("provider registry ready", "providers", available)

	warnUnsupportedModels(ctx, registry, store)

	config := engine.DefaultConfig()
	config.Temperature = temperature
	config.MaxTokens = maxTokens

	executor := engine.NewExecutor(registry, config)
	orchestrator, err := engine.NewOrchestrator(store, executor, config)
	if err != nil {
		return err
	}

	summary, err := orchestrator.RunEvaluations(ctx, queueID)
	if err != nil {
		return fmt.Errorf("evaluation run failed: %w", err)
	}

	fmt.Printf("Evaluations: %d total, %d completed, %d failed\n",
		summary.Total, summary.Completed, summary.Failed)
	for _, taskErr := range summary.Errors {
		fmt.Printf("  failed: answer=%s judge=%s: %v\n",
			taskErr.Task.Answer.AnswerID, taskErr.Task.JudgeID, taskErr.Err)
	}
	for _, eval := range store.Evaluations() {
		fmt.Printf("  %s judge=%s verdict=%s\n", eval.AnswerID, eval.JudgeID, eval.Result.Verdict)
	}

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d evaluations failed", summary.Failed, summary.Total)
	}
	return nil
}

// buildMiddleware assembles the adapter decorator chain: metrics and
// tracing always, request smoothing only when an RPS target is set.
func buildMiddleware(rps float64) []llm.Middleware {
	metrics := llm.NewMetrics(prometheus.DefaultRegisterer)
	chain := []llm.Middleware{
		llm.MetricsMiddleware(metrics),
		llm.TracingMiddleware("verdictrun"),
	}
	if rps > 0 {
		chain = append(chain, llm.RateLimitMiddleware(rate.Limit(rps), 1))
	}
	return chain
}

// warnUnsupportedModels surfaces judge model typos before the run
// starts. Checks are advisory; the run proceeds regardless, since the
// adapters accept unknown models to allow newly released ones.
func warnUnsupportedModels(ctx context.Context, registry *llm.Registry, store *storage.MemStore) {
	log := clog.FromContext(ctx)
	for _, judge := range store.Judges() {
		if !judge.Active {
			continue
		}
		if err := registry.CheckModel(judge.Provider, judge.Model); err != nil {
			log.Warn("judge model not in the supported set", "judge_id", judge.ID, "error", err)
		}
	}
}
