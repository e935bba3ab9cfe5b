package benchmark

import (
	"strings"
	"sync"

	"github.com/bwilder0/folktexts/internal/columns"
	"github.com/bwilder0/folktexts/internal/dataset"
	"github.com/bwilder0/folktexts/internal/llm"
	"github.com/bwilder0/folktexts/internal/qa"
	"github.com/pkoukk/tiktoken-go"
)

const systemPreamble = "The following data corresponds to a survey respondent. " +
	"Please answer the question based on the information provided. " +
	"The answer should be selected from the provided choices."

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

// rowDescription renders one sentence per feature column, in task feature
// order.
func rowDescription(row dataset.Row, features []*columns.ColumnToText) string {
	lines := make([]string, 0, len(features))
	for _, col := range features {
		value, _ := row.Value(col.Name())
		lines = append(lines, col.Sentence(value))
	}
	return strings.Join(lines, "\n")
}

// fewShotBlock renders one solved example: the respondent description, the
// question, and the correct answer letter.
func fewShotBlock(row dataset.Row, features []*columns.ColumnToText, q *qa.MultipleChoiceQA, label int) (string, bool) {
	answer, ok := answerKeyForLabel(q, label)
	if !ok {
		return "", false
	}

	var sb strings.Builder
	sb.WriteString(rowDescription(row, features))
	sb.WriteString("\n")
	sb.WriteString(q.PromptText())
	sb.WriteString(" ")
	sb.WriteString(answer)
	sb.WriteString(".")
	return sb.String(), true
}

// answerKeyForLabel finds the letter of the choice whose raw value matches
// the binarized label.
func answerKeyForLabel(q *qa.MultipleChoiceQA, label int) (string, bool) {
	for i, c := range q.Choices {
		if qa.KeyFor(c.Value) == qa.KeyFor(label) {
			return string(rune('A' + i)), true
		}
	}
	return "", false
}

// buildMessages assembles the provider request messages for one row: the
// few-shot examples (as chat turns or inline text) followed by the row's
// description and question.
func buildMessages(
	chatPrompt bool,
	shots []string,
	description string,
	question string,
) (system string, msgs []llm.Message) {
	if chatPrompt {
		msgs = make([]llm.Message, 0, len(shots)+1)
		for _, shot := range shots {
			// Split the solved example back into prompt and answer turns.
			body, answer, ok := strings.Cut(shot, "\nAnswer: ")
			if !ok {
				body, answer = shot, ""
			}
			msgs = append(msgs, llm.Message{Role: "user", Content: body + "\nAnswer:"})
			msgs = append(msgs, llm.Message{Role: "assistant", Content: strings.TrimSpace(answer)})
		}
		msgs = append(msgs, llm.Message{
			Role:    "user",
			Content: description + "\n" + question,
		})
		return systemPreamble, msgs
	}

	var sb strings.Builder
	sb.WriteString(systemPreamble)
	sb.WriteString("\n\n")
	for _, shot := range shots {
		sb.WriteString(shot)
		sb.WriteString("\n\n")
	}
	sb.WriteString(description)
	sb.WriteString("\n")
	sb.WriteString(question)

	return "", []llm.Message{{Role: "user", Content: sb.String()}}
}

// trimToContext drops few-shot examples, oldest last, until the assembled
// prompt fits the context budget. The bare zero-shot prompt is returned
// even when it exceeds the budget.
func trimToContext(shots []string, description string, question string, contextSize int) []string {
	for len(shots) > 0 {
		total := countTokens(systemPreamble) + countTokens(description) + countTokens(question)
		for _, s := range shots {
			total += countTokens(s)
		}
		if total <= contextSize {
			break
		}
		shots = shots[:len(shots)-1]
	}
	return shots
}

// countTokens counts tokens with the cl100k_base encoding, approximating
// by byte length when the encoding is unavailable (e.g. offline).
func countTokens(s string) int {
	encodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoding = enc
		}
	})
	if encoding == nil {
		return len(s) / 4
	}
	return len(encoding.Encode(s, nil, nil))
}
