package columns

import (
	"fmt"
	"log"
	"strings"

	"github.com/bwilder0/folktexts/internal/qa"
)

// sourceKind tags how a column's value-to-text mapping was supplied. The
// shape is resolved once at construction; the lookup path never branches
// on it again.
type sourceKind int

const (
	explicitTable sourceKind = iota
	procedure
	derivedFromQuestion
)

// ColumnToText maps a single column's raw values to natural text. Instances
// are immutable configuration: built once, looked up by name afterwards.
type ColumnToText struct {
	name             string
	shortDescription string
	connectorVerb    string
	missingFill      string

	kind     sourceKind
	table    map[string]string
	question *qa.MultipleChoiceQA
	lookup   func(any) string

	logger *log.Logger
}

// Option configures a ColumnToText under construction.
type Option func(*settings)

type settings struct {
	valueMap      map[any]string
	proc          func(any) string
	question      qa.Interface
	connectorVerb string
	missingFill   string
	logger        *log.Logger
}

// WithValueMap supplies an explicit raw-value-to-text mapping.
func WithValueMap(m map[any]string) Option {
	return func(s *settings) { s.valueMap = m }
}

// WithProcedure supplies a callable mapping for open-ended or numeric-like
// values. The procedure owns its own fallback policy.
func WithProcedure(fn func(any) string) Option {
	return func(s *settings) { s.proc = fn }
}

// WithQuestion associates a question with the column. For multiple-choice
// questions without an explicit mapping, the mapping is derived from the
// question's choices.
func WithQuestion(q qa.Interface) Option {
	return func(s *settings) { s.question = q }
}

// WithConnectorVerb overrides the verb connecting description and value
// (default "is").
func WithConnectorVerb(verb string) Option {
	return func(s *settings) { s.connectorVerb = verb }
}

// WithMissingFill overrides the text used for unmapped values (default
// "N/A").
func WithMissingFill(fill string) Option {
	return func(s *settings) { s.missingFill = fill }
}

// WithLogger sets the logger for non-fatal diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a ColumnToText for the named column. Exactly one
// authoritative value source must be derivable: an explicit map, a
// procedure, or a multiple-choice question. Construction fails when
// neither a mapping nor a question is supplied, or when a mapping must be
// derived from a question shape that has no derivation rule.
func New(name string, shortDescription string, opts ...Option) (*ColumnToText, error) {
	s := settings{
		connectorVerb: "is",
		missingFill:   NotFound,
		logger:        log.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}

	c := &ColumnToText{
		name:             name,
		shortDescription: shortDescription,
		connectorVerb:    s.connectorVerb,
		missingFill:      s.missingFill,
		logger:           s.logger,
	}

	hasMapping := s.valueMap != nil || s.proc != nil

	switch {
	case s.question != nil && !hasMapping:
		table, err := qa.MappingFromQuestion(s.question)
		if err != nil {
			return nil, fmt.Errorf("columns: column %q: %w", name, err)
		}
		c.kind = derivedFromQuestion
		c.table = table
		c.question = s.question.(*qa.MultipleChoiceQA)

	case hasMapping && s.question == nil:
		if s.valueMap != nil {
			c.kind = explicitTable
			c.table = canonicalTable(s.valueMap)
			c.question = qa.QuestionFromMapping(name, shortDescription, s.valueMap)
		} else {
			c.kind = procedure
			c.lookup = s.proc
		}

	case hasMapping && s.question != nil:
		c.logger.Printf(
			"columns: got both a value map and a question for column %q; make sure value mappings are consistent",
			name)
		if s.valueMap != nil {
			c.kind = explicitTable
			c.table = canonicalTable(s.valueMap)
		} else {
			c.kind = procedure
			c.lookup = s.proc
		}
		if mcq, ok := s.question.(*qa.MultipleChoiceQA); ok {
			c.question = mcq
		}

	default:
		return nil, fmt.Errorf(
			"columns: must provide either a value map or a question for column %q but neither was provided",
			name)
	}

	if c.lookup == nil {
		c.lookup = c.tableLookup
	}
	return c, nil
}

// MustNew is New for static registry definitions; it panics on a
// configuration error.
func MustNew(name string, shortDescription string, opts ...Option) *ColumnToText {
	c, err := New(name, shortDescription, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *ColumnToText) Name() string             { return c.name }
func (c *ColumnToText) ShortDescription() string { return c.shortDescription }

// Question returns the column's question, which may have been synthesized
// from an explicit value map. Procedure-backed columns have no question;
// the miss is logged.
func (c *ColumnToText) Question() *qa.MultipleChoiceQA {
	if c.question == nil {
		c.logger.Printf("columns: no question available for column %q", c.name)
	}
	return c.question
}

// Text returns the textual representation of a raw column value.
func (c *ColumnToText) Text(value any) string {
	return c.lookup(value)
}

// Sentence renders the full templated sentence for a raw column value:
// "The {short_description} {connector_verb} {value_text}."
func (c *ColumnToText) Sentence(value any) string {
	return fmt.Sprintf("The %s %s %s.", c.shortDescription, c.connectorVerb, c.Text(value))
}

func (c *ColumnToText) tableLookup(value any) string {
	text, ok := c.table[qa.KeyFor(value)]
	if !ok {
		c.logger.Printf("columns: could not find value %v in value map for column %q", value, c.name)
		return c.missingFill
	}
	return text
}

func canonicalTable(valueMap map[any]string) map[string]string {
	out := make(map[string]string, len(valueMap))
	for v, t := range valueMap {
		out[qa.KeyFor(v)] = t
	}
	return out
}

// Describe returns a one-line summary of the column for listings.
func (c *ColumnToText) Describe() string {
	shape := "procedure"
	switch c.kind {
	case explicitTable:
		shape = fmt.Sprintf("value map (%d entries)", len(c.table))
	case derivedFromQuestion:
		shape = fmt.Sprintf("question (%d choices)", len(c.question.Choices))
	}
	return fmt.Sprintf("%s: %s [%s]", c.name, strings.TrimSpace(c.shortDescription), shape)
}
