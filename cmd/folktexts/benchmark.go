package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bwilder0/folktexts/internal/benchmark"
	"github.com/bwilder0/folktexts/internal/config"
	"github.com/bwilder0/folktexts/internal/dataset"
	"github.com/bwilder0/folktexts/internal/llm"
	"github.com/bwilder0/folktexts/internal/store"
)

type benchmarkOptions struct {
	model    string
	provider string

	taskName   string
	resultsDir string
	dataDir    string

	fewShot      int
	batchSize    int
	contextSize  int
	fitThreshold int
	subsampling  float64
	seed         int64
	loggerLevel  string

	dontCorrectOrderBias bool
	chatPrompt           bool
	directRiskPrompting  bool
	reuseFewShotExamples bool

	featureSubset    []string
	populationFilter []string
}

func newBenchmarkCmd(st *cliState) *cobra.Command {
	var opts benchmarkOptions

	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Run a calibration benchmark and save results",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(st.configPath)
			if err != nil {
				return err
			}
			st.cfg = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmark(cmd, st, &opts)
		},
	}

	cmd.Flags().StringVar(&opts.model, "model", "", "model name (overrides config)")
	cmd.Flags().StringVar(&opts.provider, "provider", "", "provider name (overrides config)")
	cmd.Flags().StringVar(&opts.taskName, "task-name", "", "prediction task to run (e.g. ACSIncome)")
	cmd.Flags().StringVar(&opts.resultsDir, "results-dir", "", "directory for result files")
	cmd.Flags().StringVar(&opts.dataDir, "data-dir", "", "directory holding task CSV files")

	cmd.Flags().IntVar(&opts.fewShot, "few-shot", 0, "number of solved examples per prompt (0 = zero-shot)")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", benchmark.DefaultBatchSize, "rows per progress batch")
	cmd.Flags().IntVar(&opts.contextSize, "context-size", benchmark.DefaultContextSize, "prompt token budget")
	cmd.Flags().IntVar(&opts.fitThreshold, "fit-threshold", 0, "fit the decision threshold on the first N rows (0 = use 0.5)")
	cmd.Flags().Float64Var(&opts.subsampling, "subsampling", 0, "fraction of the dataset to evaluate (0 = all)")
	cmd.Flags().Int64Var(&opts.seed, "seed", benchmark.DefaultSeed, "random seed for subsampling and few-shot selection")
	cmd.Flags().StringVar(&opts.loggerLevel, "logger-level", "info", "log verbosity: debug|info|warning|error")

	cmd.Flags().BoolVar(&opts.dontCorrectOrderBias, "dont-correct-order-bias", false, "skip averaging over answer-choice orderings")
	cmd.Flags().BoolVar(&opts.chatPrompt, "chat-prompt", false, "render few-shot examples as chat turns")
	cmd.Flags().BoolVar(&opts.directRiskPrompting, "direct-risk-prompting", false, "ask for a numeric probability instead of multiple choice")
	cmd.Flags().BoolVar(&opts.reuseFewShotExamples, "reuse-few-shot-examples", false, "use the same examples for every row")

	cmd.Flags().StringSliceVar(&opts.featureSubset, "use-feature-subset", nil, "restrict features to this subset of column names")
	cmd.Flags().StringSliceVar(&opts.populationFilter, "use-population-filter", nil, "keep only rows matching column=value filters")

	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("task-name")
	_ = cmd.MarkFlagRequired("results-dir")
	_ = cmd.MarkFlagRequired("data-dir")

	return cmd
}

func runBenchmark(cmd *cobra.Command, st *cliState, opts *benchmarkOptions) error {
	if st == nil || st.cfg == nil {
		return fmt.Errorf("benchmark: missing config (internal error)")
	}
	if opts == nil {
		return fmt.Errorf("benchmark: nil options")
	}
	if err := applyLoggerLevel(opts.loggerLevel); err != nil {
		return err
	}

	filters, err := dataset.ParseFilters(opts.populationFilter)
	if err != nil {
		return err
	}

	provider, modelName, err := llm.NewProvider(st.cfg, opts.provider, opts.model)
	if err != nil {
		return err
	}

	cfg := benchmark.DefaultConfig()
	cfg.TaskName = strings.TrimSpace(opts.taskName)
	cfg.ResultsDir = strings.TrimSpace(opts.resultsDir)
	cfg.DataDir = strings.TrimSpace(opts.dataDir)
	cfg.FewShot = opts.fewShot
	cfg.BatchSize = opts.batchSize
	cfg.ContextSize = opts.contextSize
	cfg.FitThreshold = opts.fitThreshold
	cfg.Subsampling = opts.subsampling
	cfg.Seed = opts.seed
	cfg.CorrectOrderBias = !opts.dontCorrectOrderBias
	cfg.ChatPrompt = opts.chatPrompt
	cfg.DirectRiskPrompting = opts.directRiskPrompting
	cfg.ReuseFewShotExamples = opts.reuseFewShotExamples
	cfg.FeatureSubset = opts.featureSubset
	cfg.PopulationFilter = filters
	cfg.RequestsPerSecond = st.cfg.Inference.RequestsPerSecond

	b, err := benchmark.New(provider, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, runErr := b.Run(ctx)
	if res == nil {
		return runErr
	}
	res.Model = modelName

	path, err := res.Save(cfg.ResultsDir)
	if err != nil {
		return err
	}

	if err := persistResult(cmd.Context(), st.cfg, res); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Benchmark saved: run=%s model=%s task=%s n=%d accuracy=%.4f brier=%.4f ece=%.4f threshold=%.3f tokens=%d\n",
		res.RunID,
		res.Model,
		res.Task,
		res.Metrics.N,
		res.Metrics.Accuracy,
		res.Metrics.BrierScore,
		res.Metrics.ECE,
		res.Metrics.Threshold,
		res.TotalTokens,
	)
	_, _ = fmt.Fprintf(out, "Results written to %s\n", path)

	if runErr != nil {
		return fmt.Errorf("benchmark: run interrupted after %d rows: %w", len(res.Predictions), runErr)
	}
	return nil
}

// persistResult writes the run to the sqlite store unless storage is
// explicitly disabled.
func persistResult(ctx context.Context, cfg *config.Config, res *benchmark.Result) error {
	if strings.EqualFold(strings.TrimSpace(cfg.Storage.Type), "memory") {
		return nil
	}

	path := strings.TrimSpace(cfg.Storage.Path)
	if path == "" {
		path = store.DefaultPath
	}

	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()

	return st.SaveResult(ctx, res)
}

func applyLoggerLevel(level string) error {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "debug", "info":
		return nil
	case "warning", "error":
		log.SetOutput(io.Discard)
		return nil
	default:
		return fmt.Errorf("benchmark: unknown logger level %q (expected debug|info|warning|error)", level)
	}
}
