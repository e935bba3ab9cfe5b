package columns

import (
	"fmt"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/bwilder0/folktexts/internal/qa"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestNewRequiresMappingOrQuestion(t *testing.T) {
	_, err := New("AGEP", "age")
	if err == nil {
		t.Fatal("expected a construction error with neither mapping nor question")
	}
	if !strings.Contains(err.Error(), "AGEP") {
		t.Fatalf("error %q does not name the column", err)
	}
}

func TestValueMapColumn(t *testing.T) {
	col, err := New("MAR", "marital status",
		WithValueMap(map[any]string{
			1: "married",
			2: "widowed",
		}),
		WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if got := col.Text(1); got != "married" {
		t.Fatalf("Text(1) = %q", got)
	}
	// CSV-read numeric cells arrive as float64.
	if got := col.Text(2.0); got != "widowed" {
		t.Fatalf("Text(2.0) = %q", got)
	}
	if got := col.Sentence(1); got != "The marital status is married." {
		t.Fatalf("Sentence(1) = %q", got)
	}
}

func TestValueMapColumnSynthesizesQuestion(t *testing.T) {
	col, err := New("MAR", "marital status",
		WithValueMap(map[any]string{
			2: "widowed",
			1: "married",
		}),
		WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	q := col.Question()
	if q == nil {
		t.Fatal("value-map column should synthesize a question")
	}
	if len(q.Choices) != 2 || q.Choices[0].Text != "married" {
		t.Fatalf("synthesized choices = %+v", q.Choices)
	}
	if !strings.Contains(q.Text, "marital status") {
		t.Fatalf("question text %q does not mention the attribute", q.Text)
	}
}

func TestQuestionDerivedColumn(t *testing.T) {
	col, err := New("PUBCOV", "public health insurance coverage",
		WithQuestion(&qa.MultipleChoiceQA{
			Column: "PUBCOV",
			Text:   "Does this person have public health insurance coverage?",
			Choices: []qa.Choice{
				{Text: "No", Value: 0},
				{Text: "Yes", Value: 1},
			},
		}),
		WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if got := col.Text(1); got != "Yes" {
		t.Fatalf("Text(1) = %q", got)
	}
	if got := col.Text(0.0); got != "No" {
		t.Fatalf("Text(0.0) = %q", got)
	}
	if col.Question() == nil {
		t.Fatal("question-derived column lost its question")
	}
}

func TestQuestionWithoutDerivationRuleFails(t *testing.T) {
	_, err := New("PINCP", "yearly income",
		WithQuestion(&qa.DirectNumericQA{Column: "PINCP"}),
		WithLogger(quietLogger()),
	)
	if err == nil {
		t.Fatal("expected an error deriving a mapping from a direct numeric question")
	}
}

func TestProcedureColumn(t *testing.T) {
	col, err := New("AGEP", "age",
		WithProcedure(func(v any) string {
			return fmt.Sprintf("%v years old", v)
		}),
		WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if got := col.Sentence(42); got != "The age is 42 years old." {
		t.Fatalf("Sentence(42) = %q", got)
	}
	if q := col.Question(); q != nil {
		t.Fatalf("procedure column should have no question, got %+v", q)
	}
}

func TestBothMappingAndQuestionKeepsMapping(t *testing.T) {
	var buf strings.Builder
	col, err := New("PINCP_binary", "yearly income",
		WithValueMap(map[any]string{
			0: "Below $50,000",
			1: "Above $50,000",
		}),
		WithQuestion(&qa.MultipleChoiceQA{
			Column: "PINCP_binary",
			Text:   "What is this person's estimated yearly income?",
			Choices: []qa.Choice{
				{Text: "Below $50,000", Value: 0},
				{Text: "Above $50,000", Value: 1},
			},
		}),
		WithLogger(log.New(&buf, "", 0)),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if !strings.Contains(buf.String(), "both a value map and a question") {
		t.Fatalf("expected a warning about redundant sources, got %q", buf.String())
	}
	if got := col.Text(1); got != "Above $50,000" {
		t.Fatalf("Text(1) = %q", got)
	}
	if col.Question() == nil {
		t.Fatal("explicit question was dropped")
	}
}

func TestMissingFill(t *testing.T) {
	col, err := New("WKHP", "usual number of hours worked per week",
		WithValueMap(map[any]string{40: "40 hours"}),
		WithMissingFill("N/A (did not work)"),
		WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if got := col.Text(999); got != "N/A (did not work)" {
		t.Fatalf("Text(999) = %q", got)
	}
}

func TestConnectorVerb(t *testing.T) {
	col, err := New("X", "number of children",
		WithValueMap(map[any]string{2: "two"}),
		WithConnectorVerb("has been"),
		WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if got := col.Sentence(2); got != "The number of children has been two." {
		t.Fatalf("Sentence(2) = %q", got)
	}
}

func TestMustNewPanicsOnBadConfig(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("MustNew should panic on a configuration error")
		}
	}()
	MustNew("BAD", "bad column")
}
