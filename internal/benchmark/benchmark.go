// Package benchmark runs the LLM calibration benchmark: census rows are
// rendered to natural-language prompts, the model's answer distribution is
// extracted per row, and the resulting risk scores are calibrated against
// ground truth.
package benchmark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bwilder0/folktexts/internal/acs"
	"github.com/bwilder0/folktexts/internal/columns"
	"github.com/bwilder0/folktexts/internal/dataset"
	"github.com/bwilder0/folktexts/internal/llm"
	"github.com/bwilder0/folktexts/internal/qa"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const answerMaxTokens = 16

// CalibrationBenchmark scores a task's dataset rows with a model and
// calibrates the predicted answer distributions.
type CalibrationBenchmark struct {
	provider llm.Provider
	task     acs.Task
	cfg      Config

	features []*columns.ColumnToText
	target   *qa.MultipleChoiceQA
	limiter  *rate.Limiter
	logger   *log.Logger
}

// Result is a completed benchmark run.
type Result struct {
	RunID       string       `json:"run_id"`
	Model       string       `json:"model"`
	Task        string       `json:"task"`
	Config      Config       `json:"config"`
	Metrics     Metrics      `json:"metrics"`
	Predictions []Prediction `json:"predictions"`
	TotalTokens int          `json:"total_tokens"`
	StartedAt   time.Time    `json:"started_at"`
	FinishedAt  time.Time    `json:"finished_at"`
}

// New validates the config and resolves the task's columns.
func New(provider llm.Provider, cfg Config) (*CalibrationBenchmark, error) {
	if provider == nil {
		return nil, errors.New("benchmark: nil provider")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	task, ok := acs.TaskByName(cfg.TaskName)
	if !ok {
		return nil, fmt.Errorf("benchmark: unknown task %q (expected one of %s)",
			cfg.TaskName, strings.Join(acs.TaskNames(), ", "))
	}

	features, err := task.FeatureColumns(cfg.FeatureSubset)
	if err != nil {
		return nil, err
	}
	targetCol, err := task.TargetColumn()
	if err != nil {
		return nil, err
	}
	target := targetCol.Question()
	if target == nil {
		return nil, fmt.Errorf("benchmark: target column %q has no question", task.Target)
	}

	b := &CalibrationBenchmark{
		provider: provider,
		task:     task,
		cfg:      cfg,
		features: features,
		target:   target,
		logger:   log.Default(),
	}
	if cfg.RequestsPerSecond > 0 {
		b.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return b, nil
}

// Run loads the dataset, scores every evaluation row, optionally fits the
// decision threshold, and returns the assembled result. A context error
// mid-run returns the partial result alongside the error.
func (b *CalibrationBenchmark) Run(ctx context.Context) (*Result, error) {
	if ctx == nil {
		return nil, errors.New("benchmark: nil context")
	}

	start := time.Now().UTC()

	rows, err := dataset.Load(dataset.TaskPath(b.cfg.DataDir, b.task.Name))
	if err != nil {
		return nil, err
	}
	rows = dataset.Filter(rows, b.cfg.PopulationFilter)
	rows = dataset.Subsample(rows, b.cfg.Subsampling, b.cfg.Seed)
	if len(rows) == 0 {
		return nil, errors.New("benchmark: no rows to evaluate after filtering")
	}

	pool, evalRows := b.splitShots(rows)

	out := &Result{
		RunID:       uuid.NewString(),
		Model:       b.provider.Name(),
		Task:        b.task.Name,
		Config:      b.cfg,
		Predictions: make([]Prediction, 0, len(evalRows)),
		StartedAt:   start,
	}

	totalTokens := 0
	for i, row := range evalRows {
		if err := ctx.Err(); err != nil {
			b.finish(out, totalTokens)
			return out, err
		}

		shots := b.shotsForRow(pool, i)
		score, answer, tokens, rowErr := b.scoreRow(ctx, row, shots)
		totalTokens += tokens

		pred := Prediction{
			Index: i,
			Label: b.label(row),
			Score: score,
		}
		if answer != "" {
			pred.Answer = answer
		}
		if rowErr != nil {
			if errors.Is(rowErr, context.Canceled) || errors.Is(rowErr, context.DeadlineExceeded) {
				out.Predictions = append(out.Predictions, pred)
				b.finish(out, totalTokens)
				return out, rowErr
			}
			pred.Error = rowErr.Error()
		}
		out.Predictions = append(out.Predictions, pred)

		if (i+1)%b.cfg.BatchSize == 0 {
			b.logger.Printf("benchmark: scored %d/%d rows", i+1, len(evalRows))
		}
	}

	b.finish(out, totalTokens)
	return out, nil
}

func (b *CalibrationBenchmark) finish(out *Result, totalTokens int) {
	threshold := 0.5
	if b.cfg.FitThreshold > 0 {
		threshold = FitThreshold(out.Predictions, b.cfg.FitThreshold)
	}
	out.Metrics = Evaluate(out.Predictions, threshold)
	out.TotalTokens = totalTokens
	out.FinishedAt = time.Now().UTC()
}

// splitShots carves the few-shot example pool out of the loaded rows. When
// examples are resampled per row, the pool is larger than the shot count so
// consecutive rows see different examples.
func (b *CalibrationBenchmark) splitShots(rows []dataset.Row) (pool []dataset.Row, eval []dataset.Row) {
	if b.cfg.FewShot <= 0 {
		return nil, rows
	}

	poolSize := b.cfg.FewShot
	if !b.cfg.ReuseFewShotExamples {
		poolSize *= 5
		if max := len(rows) / 2; poolSize > max {
			poolSize = max
		}
		if poolSize < b.cfg.FewShot {
			poolSize = b.cfg.FewShot
		}
	}
	return dataset.SplitFewShot(rows, poolSize, b.cfg.Seed)
}

// shotsForRow renders the few-shot blocks for one evaluation row. With
// example reuse the whole pool is used verbatim; otherwise a per-row seeded
// sample is drawn from the pool.
func (b *CalibrationBenchmark) shotsForRow(pool []dataset.Row, rowIdx int) []string {
	if b.cfg.FewShot <= 0 || len(pool) == 0 {
		return nil
	}

	selected := pool
	if !b.cfg.ReuseFewShotExamples && len(pool) > b.cfg.FewShot {
		rng := rand.New(rand.NewSource(b.cfg.Seed + int64(rowIdx)))
		perm := rng.Perm(len(pool))
		selected = make([]dataset.Row, 0, b.cfg.FewShot)
		for _, i := range perm[:b.cfg.FewShot] {
			selected = append(selected, pool[i])
		}
	}

	shots := make([]string, 0, len(selected))
	for _, row := range selected {
		block, ok := fewShotBlock(row, b.features, b.target, b.label(row))
		if !ok {
			continue
		}
		shots = append(shots, block)
	}
	return shots
}

func (b *CalibrationBenchmark) label(row dataset.Row) int {
	raw, ok := row.Float(b.task.RawTarget)
	if !ok {
		return 0
	}
	return b.task.Binarize(raw)
}

// scoreRow produces the model's risk score for one row: the probability
// assigned to the task's positive choice, averaged over choice-order
// permutations when order-bias correction is on.
func (b *CalibrationBenchmark) scoreRow(
	ctx context.Context,
	row dataset.Row,
	shots []string,
) (score float64, answer string, tokens int, err error) {
	description := rowDescription(row, b.features)

	if b.cfg.DirectRiskPrompting {
		return b.scoreRowDirect(ctx, description, shots)
	}

	permutations := 1
	if b.cfg.CorrectOrderBias {
		permutations = len(b.target.Choices)
	}

	var sum float64
	scored := 0
	for offset := 0; offset < permutations; offset++ {
		q := b.target.Permuted(offset)
		p, text, t, qErr := b.askQuestion(ctx, description, shots, q)
		tokens += t
		if qErr != nil {
			return 0, answer, tokens, qErr
		}
		sum += p
		scored++
		if offset == 0 {
			answer = text
		}
	}
	if scored == 0 {
		return 0, answer, tokens, errors.New("benchmark: question has no choices")
	}
	return sum / float64(scored), answer, tokens, nil
}

func (b *CalibrationBenchmark) askQuestion(
	ctx context.Context,
	description string,
	shots []string,
	q *qa.MultipleChoiceQA,
) (float64, string, int, error) {
	question := q.PromptText()
	shots = trimToContext(shots, description, question, b.cfg.ContextSize)
	system, msgs := buildMessages(b.cfg.ChatPrompt, shots, description, question)

	res, err := b.complete(ctx, &llm.Request{
		Messages:   msgs,
		System:     system,
		MaxTokens:  answerMaxTokens,
		AnswerKeys: q.AnswerKeys(),
	})
	if err != nil {
		return 0, "", 0, err
	}
	tokens := res.InputTokens + res.OutputTokens
	text := strings.TrimSpace(res.Text)

	if len(res.KeyScores) > 0 {
		return b.positiveMass(q, res.KeyScores), text, tokens, nil
	}

	// No token probabilities from this provider: fall back to the sampled
	// answer as a hard 0/1 signal.
	idx, ok := qa.ExtractAnswer(res.Text, len(q.Choices))
	if !ok {
		return 0, text, tokens, fmt.Errorf("benchmark: could not parse answer %q", text)
	}
	if qa.KeyFor(q.Choices[idx].Value) == b.task.PositiveKey {
		return 1, text, tokens, nil
	}
	return 0, text, tokens, nil
}

// positiveMass normalizes the per-letter probabilities over the question's
// answer keys and returns the mass on the positive choice.
func (b *CalibrationBenchmark) positiveMass(q *qa.MultipleChoiceQA, keyScores map[string]float64) float64 {
	var total, positive float64
	for i, c := range q.Choices {
		p := keyScores[string(rune('A'+i))]
		total += p
		if qa.KeyFor(c.Value) == b.task.PositiveKey {
			positive += p
		}
	}
	if total <= 0 {
		return 0
	}
	return positive / total
}

func (b *CalibrationBenchmark) scoreRowDirect(
	ctx context.Context,
	description string,
	shots []string,
) (float64, string, int, error) {
	q := &qa.DirectNumericQA{Column: b.target.Column, Text: b.target.Text}
	question := q.PromptText()
	shots = trimToContext(shots, description, question, b.cfg.ContextSize)
	system, msgs := buildMessages(b.cfg.ChatPrompt, shots, description, question)

	res, err := b.complete(ctx, &llm.Request{
		Messages:  msgs,
		System:    system,
		MaxTokens: answerMaxTokens,
	})
	if err != nil {
		return 0, "", 0, err
	}
	tokens := res.InputTokens + res.OutputTokens
	text := strings.TrimSpace(res.Text)

	p, err := qa.ParseProbability(res.Text)
	if err != nil {
		return 0, text, tokens, err
	}
	return p, text, tokens, nil
}

func (b *CalibrationBenchmark) complete(ctx context.Context, req *llm.Request) (*llm.Result, error) {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return b.provider.Complete(ctx, req)
}

// Save writes the result as JSON under dir, named by run ID.
func (r *Result) Save(dir string) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return "", errors.New("benchmark: empty results dir")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("benchmark: create results dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("results-%s.json", r.RunID))
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("benchmark: encode results: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", fmt.Errorf("benchmark: write results: %w", err)
	}
	return path, nil
}
