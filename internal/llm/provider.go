package llm

import "context"

// Provider completes chat-style prompts against a hosted model API.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req *Request) (*Result, error)
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Request struct {
	Messages    []Message
	System      string
	MaxTokens   int
	Temperature float64

	// AnswerKeys, when set, names the single-token answers (e.g. "A", "B")
	// whose probabilities the caller wants. Providers that expose token
	// logprobs fill Result.KeyScores; others leave it nil.
	AnswerKeys []string
}

type Result struct {
	Text string

	// KeyScores maps each requested answer key to the model's probability
	// for it at the answer position. Nil when the provider cannot report
	// token probabilities.
	KeyScores map[string]float64

	InputTokens  int
	OutputTokens int
	LatencyMs    int64
}
