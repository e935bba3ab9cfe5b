// Package acs holds the ACS column registry: one column-to-text mapper per
// census attribute, with value/text correspondences ported from the PUMS
// data dictionary.
package acs

import (
	"embed"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/bwilder0/folktexts/internal/columns"
	"github.com/bwilder0/folktexts/internal/qa"
)

//go:embed data
var dataFS embed.FS

const (
	occpCodesFile = "data/OCCP-codes-acs.txt"
	pobpCodesFile = "data/POBP-codes-acs.txt"
)

// codeTables caches the shipped PUMS code-table files for the process
// lifetime.
var codeTables = columns.NewCatalog(columns.WithCatalogFS(dataFS))

var acsAge = columns.MustNew(
	"AGEP",
	"age",
	columns.WithProcedure(func(v any) string {
		n, ok := asInt(v)
		if !ok {
			return columns.NotFound
		}
		return fmt.Sprintf("%d years old", n)
	}),
)

var acsClassOfWorker = columns.MustNew(
	"COW",
	"current employment status",
	columns.WithQuestion(&qa.MultipleChoiceQA{
		Column: "COW",
		Text: "Which one of the following best describes this person's employment " +
			"last week or the most recent employment in the past 5 years?",
		Choices: []qa.Choice{
			{Text: "working for a for-profit private company or organization", Value: 1},
			{Text: "working for a non-profit organization", Value: 2},
			{Text: "working for the local government", Value: 3},
			{Text: "working for the state government", Value: 4},
			{Text: "working for the federal government", Value: 5},
			{Text: "owner of non-incorporated business, professional practice, or farm", Value: 6},
			{Text: "owner of incorporated business, professional practice, or farm", Value: 7},
			{Text: "working without pay in a for-profit family business or farm", Value: 8},
			{Text: "unemployed and last worked 5 years ago or earlier or never worked", Value: 9},
		},
	}),
)

var acsSchooling = columns.MustNew(
	"SCHL",
	"highest grade completed",
	columns.WithQuestion(&qa.MultipleChoiceQA{
		Column: "SCHL",
		Text:   "What is this person's highest grade or level of school completed?",
		Choices: []qa.Choice{
			{Text: "kindergarten", Value: 3},
			{Text: "1st grade only", Value: 4},
			{Text: "2nd grade", Value: 5},
			{Text: "3rd grade", Value: 6},
			{Text: "4th grade", Value: 7},
			{Text: "5th grade", Value: 8},
			{Text: "6th grade", Value: 9},
			{Text: "7th grade", Value: 10},
			{Text: "8th grade", Value: 11},
			{Text: "9th grade", Value: 12},
			{Text: "10th grade", Value: 13},
			{Text: "11th grade", Value: 14},
			{Text: "12th grade, no diploma", Value: 15},
			{Text: "regular high school diploma", Value: 16},
			{Text: "GED or alternative credential", Value: 17},
			{Text: "some college, less than 1 year", Value: 18},
			{Text: "some college, 1 or more years, no degree", Value: 19},
			{Text: "Associate's degree", Value: 20},
			{Text: "Bachelor's degree", Value: 21},
			{Text: "Master's degree", Value: 22},
			{Text: "Professional degree beyond a bachelor's degree", Value: 23},
			{Text: "Doctorate degree", Value: 24},
		},
	}),
)

var acsMaritalStatus = columns.MustNew(
	"MAR",
	"marital status",
	columns.WithValueMap(map[any]string{
		1: "married",
		2: "widowed",
		3: "divorced",
		4: "separated",
		5: "never married",
	}),
)

var acsOccupation = columns.MustNew(
	"OCCP",
	"occupation",
	columns.WithProcedure(codeTables.LookupFunc(occpCodesFile, func(s string) string {
		// Descriptions carry a fixed-width category prefix, e.g. "MGR-".
		if len(s) > 4 {
			s = s[4:]
		}
		return strings.TrimSpace(strings.ToLower(s))
	})),
)

var acsPlaceOfBirth = columns.MustNew(
	"POBP",
	"place of birth",
	columns.WithProcedure(codeTables.LookupFunc(pobpCodesFile, nil)),
)

var acsRelationship = columns.MustNew(
	"RELP",
	"relationship to the reference person in the household",
	columns.WithQuestion(&qa.MultipleChoiceQA{
		Column: "RELP",
		Text:   "What is this person's relationship to the reference person in the household?",
		Choices: []qa.Choice{
			{Text: "the 'reference person' itself", Value: 0},
			{Text: "husband/wife", Value: 1},
			{Text: "biological son or daughter", Value: 2},
			{Text: "adopted son or daughter", Value: 3},
			{Text: "stepson or stepdaughter", Value: 4},
			{Text: "brother or sister", Value: 5},
			{Text: "father or mother", Value: 6},
			{Text: "grandchild", Value: 7},
			{Text: "parent-in-law", Value: 8},
			{Text: "son-in-law or daughter-in-law", Value: 9},
			{Text: "other relative", Value: 10},
			{Text: "roomer or boarder", Value: 11},
			{Text: "housemate or roommate", Value: 12},
			{Text: "unmarried partner", Value: 13},
			{Text: "foster child", Value: 14},
			{Text: "other non-relative", Value: 15},
			{Text: "institutionalized group quarters population", Value: 16},
			{Text: "non-institutionalized group quarters population", Value: 17},
		},
	}),
)

var acsWorkHours = columns.MustNew(
	"WKHP",
	"usual number of hours worked per week",
	columns.WithMissingFill("N/A (less than 16 years old, or did not work during the past 12 months)"),
	columns.WithProcedure(func(v any) string {
		n, ok := asInt(v)
		if !ok {
			return "N/A (less than 16 years old, or did not work during the past 12 months)"
		}
		return fmt.Sprintf("%d hours", n)
	}),
)

var acsSex = columns.MustNew(
	"SEX",
	"sex",
	columns.WithQuestion(&qa.MultipleChoiceQA{
		Column: "SEX",
		Text:   "What is this person's sex?",
		Choices: []qa.Choice{
			{Text: "Male", Value: 1},
			{Text: "Female", Value: 2},
		},
	}),
)

var acsRace = columns.MustNew(
	"RAC1P",
	"race",
	columns.WithValueMap(map[any]string{
		1: "White",
		2: "Black or African American",
		3: "American Indian",
		4: "Alaska Native",
		5: "American Indian and Alaska Native tribes specified, or American Indian or Alaska Native, not specified and no other races",
		6: "Asian",
		7: "Native Hawaiian and Other Pacific Islander",
		8: "Some other race alone (non-White)",
		9: "Two or more races",
	}),
)

var acsIncome = columns.MustNew(
	"PINCP",
	"yearly income",
	columns.WithMissingFill("N/A (less than 15 years old)"),
	columns.WithProcedure(func(v any) string {
		n, ok := asInt(v)
		if !ok {
			return "N/A (less than 15 years old)"
		}
		return formatDollars(n)
	}),
)

var acsIncomeBinary = columns.MustNew(
	"PINCP_binary",
	"yearly income",
	columns.WithMissingFill("N/A (less than 15 years old)"),
	columns.WithQuestion(&qa.MultipleChoiceQA{
		Column: "PINCP_binary",
		Text:   "What is this person's estimated yearly income?",
		Choices: []qa.Choice{
			{Text: "Below $50,000", Value: 0},
			{Text: "Above $50,000", Value: 1},
		},
	}),
)

var acsIncomeBrackets = columns.MustNew(
	"PINCP_brackets",
	"yearly income",
	columns.WithMissingFill("N/A (less than 15 years old)"),
	columns.WithQuestion(&qa.MultipleChoiceQA{
		Column: "PINCP_brackets",
		Text:   "What is this person's estimated yearly income?",
		Choices: []qa.Choice{
			{Text: "Less than $25,000", Value: "(0.0, 25000.0]", Numeric: qa.Num(12_500)},
			{Text: "Between $25,000 and $50,000", Value: "(25000.0, 50000.0]", Numeric: qa.Num(37_500)},
			{Text: "Between $50,000 and $100,000", Value: "(50000.0, 100000.0]", Numeric: qa.Num(75_000)},
			{Text: "Above $100,000", Value: "(100000.0, inf]", Numeric: qa.Num(150_000)},
		},
	}),
)

var acsEmployment = columns.MustNew(
	"ESR",
	"employment status",
	columns.WithQuestion(&qa.MultipleChoiceQA{
		Column: "ESR",
		Text:   "Is this person currently employed?",
		Choices: []qa.Choice{
			{Text: "No, this person is not employed", Value: 0},
			{Text: "Yes, this person is employed", Value: 1},
		},
	}),
)

var acsPubCov = columns.MustNew(
	"PUBCOV",
	"public health insurance coverage",
	columns.WithQuestion(&qa.MultipleChoiceQA{
		Column: "PUBCOV",
		Text:   "Does this person have public health insurance coverage?",
		Choices: []qa.Choice{
			{Text: "No, individual is not covered by public health insurance", Value: 0},
			{Text: "Yes, individual is covered by public health insurance", Value: 1},
		},
	}),
)

var registry = buildRegistry(
	acsAge,
	acsClassOfWorker,
	acsSchooling,
	acsMaritalStatus,
	acsOccupation,
	acsPlaceOfBirth,
	acsRelationship,
	acsWorkHours,
	acsSex,
	acsRace,
	acsIncome,
	acsIncomeBinary,
	acsIncomeBrackets,
	acsEmployment,
	acsPubCov,
)

func buildRegistry(cols ...*columns.ColumnToText) map[string]*columns.ColumnToText {
	out := make(map[string]*columns.ColumnToText, len(cols))
	for _, c := range cols {
		out[c.Name()] = c
	}
	return out
}

// Column returns the registry mapper for a column name.
func Column(name string) (*columns.ColumnToText, bool) {
	c, ok := registry[name]
	return c, ok
}

// ColumnNames lists all registered column names, sorted.
func ColumnNames() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		return int(x), true
	case float32:
		return int(x), true
	case string:
		// Raw values arrive as strings from the CLI's --value flag.
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil || f != math.Trunc(f) {
			return 0, false
		}
		return int(f), true
	default:
		return 0, false
	}
}

func formatDollars(n int) string {
	neg := n < 0
	if neg {
		n = -n
	}

	s := fmt.Sprintf("%d", n)
	var sb strings.Builder
	if neg {
		sb.WriteByte('-')
	}
	sb.WriteByte('$')
	for i, d := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(d)
	}
	return sb.String()
}
