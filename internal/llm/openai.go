package llm

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const openaiTopLogprobs = 10

type OpenAIProvider struct {
	client *openai.Client
	model  string
}

func NewOpenAIProvider(apiKey string, baseURL string, model string) *OpenAIProvider {
	cfg := openai.DefaultConfig(strings.TrimSpace(apiKey))
	if v := strings.TrimSpace(baseURL); v != "" {
		cfg.BaseURL = strings.TrimRight(v, "/")
	}

	m := strings.TrimSpace(model)
	if m == "" {
		m = "gpt-4o"
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  m,
	}
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

func (p *OpenAIProvider) Complete(ctx context.Context, req *Request) (*Result, error) {
	if p == nil || p.client == nil {
		return nil, errors.New("llm: openai: nil client")
	}
	if ctx == nil {
		return nil, errors.New("llm: openai: nil context")
	}
	if req == nil {
		return nil, errors.New("llm: openai: nil request")
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if system := strings.TrimSpace(req.System); system != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	for _, m := range req.Messages {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    normalizeOpenAIRole(m.Role),
			Content: m.Content,
		})
	}

	r := openai.ChatCompletionRequest{
		Model:       strings.TrimSpace(p.model),
		Messages:    msgs,
		MaxTokens:   clampMaxTokens(req.MaxTokens),
		Temperature: float32(req.Temperature),
	}
	if len(req.AnswerKeys) > 0 {
		r.LogProbs = true
		r.TopLogProbs = openaiTopLogprobs
	}

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, r)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("llm: openai: empty choices")
	}

	choice := resp.Choices[0]
	out := &Result{
		Text:         choice.Message.Content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		LatencyMs:    latency,
	}

	if len(req.AnswerKeys) > 0 && choice.LogProbs != nil {
		out.KeyScores = answerKeyScores(choice.LogProbs, req.AnswerKeys)
	}

	return out, nil
}

// answerKeyScores reads the top-logprob distribution at the first answer
// token and maps it onto the requested answer keys.
func answerKeyScores(lp *openai.LogProbs, keys []string) map[string]float64 {
	if lp == nil || len(lp.Content) == 0 || len(keys) == 0 {
		return nil
	}

	keySet := make(map[string]bool, len(keys))
	for _, k := range keys {
		keySet[strings.ToUpper(strings.TrimSpace(k))] = true
	}

	// The answer letter is usually the first generated token, but chat
	// models sometimes lead with whitespace or punctuation.
	for _, tok := range lp.Content {
		if !keySet[normalizeAnswerToken(tok.Token)] {
			continue
		}

		scores := make(map[string]float64, len(keys))
		scores[normalizeAnswerToken(tok.Token)] = math.Exp(tok.LogProb)
		for _, alt := range tok.TopLogProbs {
			key := normalizeAnswerToken(alt.Token)
			if !keySet[key] {
				continue
			}
			p := math.Exp(alt.LogProb)
			if p > scores[key] {
				scores[key] = p
			}
		}
		return scores
	}
	return nil
}

func normalizeAnswerToken(tok string) string {
	return strings.ToUpper(strings.Trim(strings.TrimSpace(tok), ".():"))
}

func normalizeOpenAIRole(role string) string {
	role = strings.ToLower(strings.TrimSpace(role))
	switch role {
	case openai.ChatMessageRoleSystem,
		openai.ChatMessageRoleUser,
		openai.ChatMessageRoleAssistant:
		return role
	default:
		return openai.ChatMessageRoleUser
	}
}

func clampMaxTokens(n int) int {
	if n <= 0 {
		return 0
	}
	return n
}
