package benchmark

import "fmt"

const (
	DefaultBatchSize   = 30
	DefaultContextSize = 500
	DefaultSeed        = 42
)

// Config carries every knob of a calibration benchmark run. The zero value
// is not usable; start from DefaultConfig.
type Config struct {
	TaskName   string `json:"task_name"`
	ResultsDir string `json:"results_dir"`
	DataDir    string `json:"data_dir"`

	FewShot      int     `json:"few_shot,omitempty"`
	BatchSize    int     `json:"batch_size"`
	ContextSize  int     `json:"context_size"`
	FitThreshold int     `json:"fit_threshold,omitempty"`
	Subsampling  float64 `json:"subsampling,omitempty"`
	Seed         int64   `json:"seed"`

	CorrectOrderBias     bool `json:"correct_order_bias"`
	ChatPrompt           bool `json:"chat_prompt"`
	DirectRiskPrompting  bool `json:"direct_risk_prompting"`
	ReuseFewShotExamples bool `json:"reuse_few_shot_examples"`

	FeatureSubset    []string          `json:"feature_subset,omitempty"`
	PopulationFilter map[string]string `json:"population_filter,omitempty"`

	// RequestsPerSecond throttles provider calls; zero means unthrottled.
	RequestsPerSecond float64 `json:"requests_per_second,omitempty"`
}

// DefaultConfig returns the benchmark defaults: order-bias correction on,
// batch size 30, context size 500 tokens, seed 42.
func DefaultConfig() Config {
	return Config{
		BatchSize:        DefaultBatchSize,
		ContextSize:      DefaultContextSize,
		Seed:             DefaultSeed,
		CorrectOrderBias: true,
	}
}

func (c *Config) validate() error {
	if c.TaskName == "" {
		return fmt.Errorf("benchmark: missing task name")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("benchmark: batch size must be positive (got %d)", c.BatchSize)
	}
	if c.ContextSize <= 0 {
		return fmt.Errorf("benchmark: context size must be positive (got %d)", c.ContextSize)
	}
	if c.Subsampling < 0 || c.Subsampling > 1 {
		return fmt.Errorf("benchmark: subsampling fraction must be in [0, 1] (got %v)", c.Subsampling)
	}
	if c.FewShot < 0 {
		return fmt.Errorf("benchmark: few-shot count must be >= 0 (got %d)", c.FewShot)
	}
	if c.FitThreshold < 0 {
		return fmt.Errorf("benchmark: fit-threshold sample count must be >= 0 (got %d)", c.FitThreshold)
	}
	return nil
}
