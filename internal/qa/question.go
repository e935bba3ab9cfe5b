package qa

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Interface is the minimal surface shared by all question shapes.
type Interface interface {
	PromptText() string
	ColumnName() string
}

// Choice is one selectable answer in a multiple-choice question. Value is
// the raw underlying column value used as a mapping key; Numeric optionally
// carries a numeric stand-in (e.g. a bracket midpoint).
type Choice struct {
	Text    string
	Value   any
	Numeric *float64
}

// Num is a convenience for inline Choice literals with a numeric value.
func Num(v float64) *float64 { return &v }

// MultipleChoiceQA is a question with an ordered set of choices. Choice
// order matters: it drives display ordering and order-bias permutations.
type MultipleChoiceQA struct {
	Column  string
	Text    string
	Choices []Choice
}

// DirectNumericQA asks the model for a numeric estimate directly instead of
// a multiple-choice answer.
type DirectNumericQA struct {
	Column string
	Text   string
}

func (q *MultipleChoiceQA) ColumnName() string { return q.Column }
func (q *DirectNumericQA) ColumnName() string  { return q.Column }

// PromptText renders the question with lettered choices and an answer
// instruction.
func (q *MultipleChoiceQA) PromptText() string {
	var sb strings.Builder
	sb.WriteString("Question: ")
	sb.WriteString(strings.TrimSpace(q.Text))
	sb.WriteString("\n")

	for i, c := range q.Choices {
		sb.WriteString(string(rune('A' + i)))
		sb.WriteString(". ")
		sb.WriteString(strings.TrimSpace(c.Text))
		sb.WriteByte('\n')
	}

	sb.WriteString("Answer:")
	return sb.String()
}

func (q *DirectNumericQA) PromptText() string {
	var sb strings.Builder
	sb.WriteString("Question: ")
	sb.WriteString(strings.TrimSpace(q.Text))
	sb.WriteString("\nAnswer with a probability between 0 and 1.\nAnswer:")
	return sb.String()
}

// AnswerKeys returns the letter labels for the question's choices, in
// choice order.
func (q *MultipleChoiceQA) AnswerKeys() []string {
	out := make([]string, len(q.Choices))
	for i := range q.Choices {
		out[i] = string(rune('A' + i))
	}
	return out
}

// ChoiceFor returns the choice whose raw value canonicalizes to the given
// value, or ok=false.
func (q *MultipleChoiceQA) ChoiceFor(value any) (Choice, bool) {
	key := KeyFor(value)
	for _, c := range q.Choices {
		if KeyFor(c.Value) == key {
			return c, true
		}
	}
	return Choice{}, false
}

// Permuted returns a copy of the question with its choices cyclically
// rotated by offset. Offset 0 returns an identical copy.
func (q *MultipleChoiceQA) Permuted(offset int) *MultipleChoiceQA {
	n := len(q.Choices)
	if n == 0 {
		return &MultipleChoiceQA{Column: q.Column, Text: q.Text}
	}
	offset = ((offset % n) + n) % n

	choices := make([]Choice, 0, n)
	choices = append(choices, q.Choices[offset:]...)
	choices = append(choices, q.Choices[:offset]...)
	return &MultipleChoiceQA{Column: q.Column, Text: q.Text, Choices: choices}
}

// KeyFor canonicalizes a raw column value into a stable string mapping key.
// Integral floats collapse to their integer form so a CSV-read 1.0 hits the
// entry declared for 1.
func KeyFor(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	case float32:
		return KeyFor(float64(v))
	case bool:
		if v {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprintf("%v", value)
	}
}

// MappingFromQuestion derives a raw-value-to-text mapping from a question's
// choices. Only multiple-choice questions have a derivation rule; any other
// shape is a configuration error.
func MappingFromQuestion(q Interface) (map[string]string, error) {
	mcq, ok := q.(*MultipleChoiceQA)
	if !ok || mcq == nil {
		return nil, fmt.Errorf("qa: cannot derive a value map from a %T question", q)
	}
	if len(mcq.Choices) == 0 {
		return nil, errors.New("qa: cannot derive a value map from a question with no choices")
	}

	out := make(map[string]string, len(mcq.Choices))
	for _, c := range mcq.Choices {
		out[KeyFor(c.Value)] = c.Text
	}
	return out, nil
}

// QuestionFromMapping synthesizes a multiple-choice question from an
// explicit value map. Choices are ordered deterministically: numeric keys
// numerically, then the rest lexicographically.
func QuestionFromMapping(column string, attribute string, valueMap map[any]string) *MultipleChoiceQA {
	type pair struct {
		value any
		text  string
	}

	pairs := make([]pair, 0, len(valueMap))
	for v, t := range valueMap {
		pairs = append(pairs, pair{value: v, text: t})
	}
	sort.Slice(pairs, func(i, j int) bool {
		return keyLess(KeyFor(pairs[i].value), KeyFor(pairs[j].value))
	})

	choices := make([]Choice, 0, len(pairs))
	for _, p := range pairs {
		choices = append(choices, Choice{Text: p.text, Value: p.value})
	}

	return &MultipleChoiceQA{
		Column:  column,
		Text:    fmt.Sprintf("What is this person's %s?", strings.TrimSpace(attribute)),
		Choices: choices,
	}
}

func keyLess(a, b string) bool {
	na, aok := strconv.ParseFloat(a, 64)
	nb, bok := strconv.ParseFloat(b, 64)
	switch {
	case aok == nil && bok == nil:
		if na != nb {
			return na < nb
		}
		return a < b
	case aok == nil:
		return true
	case bok == nil:
		return false
	default:
		return a < b
	}
}

// ExtractAnswer finds the first standalone answer letter in a model
// response, for a question with n choices.
func ExtractAnswer(response string, n int) (int, bool) {
	s := strings.TrimSpace(response)
	if s == "" || n <= 0 {
		return -1, false
	}
	if n > 26 {
		n = 26
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			c = c - 'a' + 'A'
		}
		if c < 'A' || c > 'Z' {
			continue
		}
		idx := int(c - 'A')
		if idx >= n {
			continue
		}

		prevOK := i == 0 || !isAlphaNum(s[i-1])
		nextOK := i+1 == len(s) || !isAlphaNum(s[i+1])
		if prevOK && nextOK {
			return idx, true
		}
	}
	return -1, false
}

// ParseProbability extracts a probability in [0, 1] from a model response
// to a direct numeric question. Accepts bare floats and percentages.
func ParseProbability(response string) (float64, error) {
	s := strings.TrimSpace(response)
	if s == "" {
		return 0, errors.New("qa: empty response")
	}

	start := -1
	for i := 0; i < len(s); i++ {
		if (s[i] >= '0' && s[i] <= '9') || s[i] == '.' {
			start = i
			break
		}
	}
	if start < 0 {
		return 0, fmt.Errorf("qa: no number in response %q", s)
	}

	end := start
	for end < len(s) && ((s[end] >= '0' && s[end] <= '9') || s[end] == '.') {
		end++
	}

	v, err := strconv.ParseFloat(strings.TrimRight(s[start:end], "."), 64)
	if err != nil {
		return 0, fmt.Errorf("qa: parse %q: %w", s[start:end], err)
	}

	if end < len(s) && s[end] == '%' {
		v /= 100
	} else if v > 1 && v <= 100 {
		v /= 100
	}

	if v < 0 || v > 1 {
		return 0, fmt.Errorf("qa: probability %v out of range", v)
	}
	return v, nil
}

func isAlphaNum(b byte) bool {
	return (b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}
