// Command extract runs a structured-extraction benchmark over labor court
// sentences. It reads documents as JSON lines, sends each one to every
// configured model, validates the returned JSON against the extraction
// schema, and writes one result line per document and model pair followed
// by per-model summaries.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/structured-trts/sentenca/infrastructure/llm"
	"github.com/structured-trts/sentenca/infrastructure/middleware"
	"github.com/structured-trts/sentenca/internal/application"
	"github.com/structured-trts/sentenca/internal/domain"
	"github.com/structured-trts/sentenca/internal/extraction"
)

func main() {
	if err := run(); err != nil {
		slog.Error("extraction run failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  = flag.String("config", "benchmark.yaml", "Path to the benchmark configuration file")
		inputPath   = flag.String("input", "-", "Documents as JSON lines ('-' reads stdin)")
		outputPath  = flag.String("output", "-", "Per-task results as JSON lines ('-' writes stdout)")
		summaryPath = flag.String("summaries", "", "Optional path for per-model summaries as JSON lines")
		metricsAddr = flag.String("metrics-addr", "", "Optional address to serve Prometheus metrics on during the run, e.g. :9090")
		logLevel    = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	logger := newLogger(*logLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := application.NewConfigLoader().LoadFromFile(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config %s: %w", *configPath, err)
	}

	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	metrics := middleware.NewPrometheusMetrics(nil)
	if *metricsAddr != "" {
		stopMetrics := serveMetrics(*metricsAddr, logger)
		defer stopMetrics()
	}

	registry, err := buildRegistry(cfg, metrics)
	if err != nil {
		return err
	}

	models, err := buildModels(cfg, registry)
	if err != nil {
		return err
	}

	templateText, err := cfg.PromptTemplate(extraction.DefaultPromptTemplate)
	if err != nil {
		return fmt.Errorf("failed to load prompt template: %w", err)
	}
	renderer, err := extraction.NewPromptRenderer(templateText)
	if err != nil {
		return fmt.Errorf("invalid prompt template: %w", err)
	}

	vocab, err := domain.NewVocabulary(cfg.ClaimVocabulary)
	if err != nil {
		return fmt.Errorf("invalid claim vocabulary: %w", err)
	}
	validator, err := domain.NewValidator(vocab)
	if err != nil {
		return fmt.Errorf("failed to build validator: %w", err)
	}

	orch, err := extraction.NewOrchestrator(models, renderer, validator, metrics)
	if err != nil {
		return fmt.Errorf("failed to build orchestrator: %w", err)
	}

	runner, err := extraction.NewRunner(orch, extraction.RunnerConfig{
		Concurrency:       cfg.Run.Concurrency,
		MaxDocumentTokens: cfg.Run.MaxDocumentTokens,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to build runner: %w", err)
	}

	docs, err := readDocuments(*inputPath)
	if err != nil {
		return err
	}
	logger.Info("starting benchmark",
		"documents", len(docs),
		"models", len(cfg.Models),
		"concurrency", cfg.Run.Concurrency)

	results, runErr := runner.RunBatch(ctx, docs, nil)

	if err := writeResults(*outputPath, results); err != nil {
		return err
	}

	summaries := domain.Summarize(results)
	if *summaryPath != "" {
		if err := writeSummaries(*summaryPath, summaries); err != nil {
			return err
		}
	}
	printSummaryTable(os.Stderr, summaries)

	if runErr != nil {
		return runErr
	}
	logger.Info("benchmark complete", "results", len(results))
	return nil
}

// serveMetrics exposes the default Prometheus registry while the batch runs
// so a scraper can follow per-provider call rates and task outcomes live.
// The returned function shuts the listener down.
func serveMetrics(addr string, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", "error", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// buildRegistry assembles the provider registry from the config. Retry and
// timeout middleware are shared by all providers; each provider gets its own
// rate limiter, metrics, and tracing.
func buildRegistry(cfg *application.Config, metrics *middleware.PrometheusMetrics) (*llm.Registry, error) {
	defaults := []llm.Middleware{}
	if cfg.Retry.MaxAttempts > 0 {
		defaults = append(defaults, llm.RetryMiddleware(cfg.Retry.MaxAttempts, cfg.Retry.InitialDelay(), cfg.Retry.MaxDelay()))
	}
	defaults = append(defaults, llm.TimeoutMiddleware(cfg.Run.Timeout()))

	providers := make(map[string]llm.ProviderConfig, len(cfg.Providers))
	defaultProvider := ""
	for name, pc := range cfg.Providers {
		base, ok := llm.DefaultProviders[name]
		if !ok {
			return nil, fmt.Errorf("unknown provider %q", name)
		}
		if pc.EnvVar != "" {
			base.EnvVar = pc.EnvVar
		}
		if pc.BaseURL != "" {
			base.BaseURL = pc.BaseURL
		}
		// The config file is the authority on which models run.
		base.SupportedModels = nil
		base.Middleware = []llm.Middleware{
			llm.RateLimitMiddleware(rate.Limit(pc.RequestsPerSecond), pc.Burst),
			llm.MetricsMiddleware(name, metrics),
			llm.TracingMiddleware("sentenca-extract", name),
		}
		providers[name] = base
		if defaultProvider == "" || name < defaultProvider {
			defaultProvider = name
		}
	}

	return llm.NewRegistry(llm.RegistryConfig{
		Providers:         providers,
		DefaultProvider:   defaultProvider,
		DefaultTimeout:    cfg.Run.Timeout(),
		DefaultMiddleware: defaults,
	})
}

// buildModels resolves each configured model to a client and its per-call
// options. Credential or configuration problems surface here, before any
// document is read.
func buildModels(cfg *application.Config, registry *llm.Registry) ([]extraction.Model, error) {
	models := make([]extraction.Model, 0, len(cfg.Models))
	for _, mc := range cfg.Models {
		client, err := registry.GetClient(mc.Provider + "/" + mc.ModelID)
		if err != nil {
			return nil, fmt.Errorf("failed to build client for model %q: %w", mc.Name, err)
		}

		options := map[string]any{}
		if mc.Temperature != nil {
			options["temperature"] = *mc.Temperature
		}
		if mc.MaxTokens > 0 {
			options["max_tokens"] = mc.MaxTokens
		}
		if mc.JSONMode {
			options["json_mode"] = true
		}

		models = append(models, extraction.Model{
			Name:     mc.Name,
			Provider: mc.Provider,
			Client:   client,
			Options:  options,
		})
	}
	return models, nil
}

func readDocuments(path string) ([]domain.Document, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open input %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	docs, err := extraction.ReadDocuments(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read documents: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no documents found in %s", path)
	}
	return docs, nil
}

func writeResults(path string, results []domain.ExtractionResult) error {
	w, closeFn, err := openOutput(path)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := extraction.WriteResults(w, results); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	return nil
}

func writeSummaries(path string, summaries []domain.ModelSummary) error {
	w, closeFn, err := openOutput(path)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := extraction.WriteSummaries(w, summaries); err != nil {
		return fmt.Errorf("failed to write summaries: %w", err)
	}
	return nil
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output %s: %w", path, err)
	}
	return f, func() { _ = f.Close() }, nil
}

func printSummaryTable(w io.Writer, summaries []domain.ModelSummary) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Model", "Tasks", "Success Rate", "Avg Seconds"})
	for _, s := range summaries {
		table.Append([]string{
			s.ModelName,
			strconv.Itoa(s.TaskCount),
			fmt.Sprintf("%.1f%%", s.SuccessRate*100),
			fmt.Sprintf("%.2f", s.AvgExtractionTimeSeconds),
		})
	}
	table.Render()
}
