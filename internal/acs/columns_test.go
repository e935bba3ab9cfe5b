package acs

import (
	"strings"
	"testing"
)

func TestRegistryCompleteness(t *testing.T) {
	want := []string{
		"AGEP", "COW", "SCHL", "MAR", "OCCP", "POBP", "RELP", "WKHP",
		"SEX", "RAC1P", "PINCP", "PINCP_binary", "PINCP_brackets", "ESR", "PUBCOV",
	}
	if got := len(ColumnNames()); got != len(want) {
		t.Fatalf("registry has %d columns, want %d: %v", got, len(want), ColumnNames())
	}
	for _, name := range want {
		if _, ok := Column(name); !ok {
			t.Errorf("column %q missing from registry", name)
		}
	}
}

func TestRaceSentences(t *testing.T) {
	col, ok := Column("RAC1P")
	if !ok {
		t.Fatal("RAC1P not registered")
	}

	cases := []struct {
		value any
		want  string
	}{
		{6, "The race is Asian."},
		{6.0, "The race is Asian."},
		{1, "The race is White."},
		{8, "The race is Some other race alone (non-White)."},
	}
	for _, tc := range cases {
		if got := col.Sentence(tc.value); got != tc.want {
			t.Errorf("Sentence(%v) = %q, want %q", tc.value, got, tc.want)
		}
	}
}

func TestIncomeBinarySentences(t *testing.T) {
	col, ok := Column("PINCP_binary")
	if !ok {
		t.Fatal("PINCP_binary not registered")
	}

	if got := col.Sentence(0); got != "The yearly income is Below $50,000." {
		t.Fatalf("Sentence(0) = %q", got)
	}
	if got := col.Sentence(1.0); got != "The yearly income is Above $50,000." {
		t.Fatalf("Sentence(1.0) = %q", got)
	}

	q := col.Question()
	if q == nil || len(q.Choices) != 2 {
		t.Fatalf("PINCP_binary question = %+v", q)
	}
}

func TestAgeProcedure(t *testing.T) {
	col, _ := Column("AGEP")
	if got := col.Sentence(42.0); got != "The age is 42 years old." {
		t.Fatalf("Sentence(42.0) = %q", got)
	}
}

func TestProcedureColumnsAcceptStringValues(t *testing.T) {
	cases := []struct {
		column string
		value  string
		want   string
	}{
		{"AGEP", "42", "42 years old"},
		{"AGEP", "42.0", "42 years old"},
		{"WKHP", "35", "35 hours"},
		{"PINCP", "52000", "$52,000"},
	}
	for _, tc := range cases {
		col, ok := Column(tc.column)
		if !ok {
			t.Fatalf("%s not registered", tc.column)
		}
		if got := col.Text(tc.value); got != tc.want {
			t.Errorf("%s.Text(%q) = %q, want %q", tc.column, tc.value, got, tc.want)
		}
	}

	col, _ := Column("AGEP")
	if got := col.Text("forty-two"); got != "N/A" {
		t.Errorf("AGEP.Text(non-numeric) = %q, want N/A", got)
	}
}

func TestWorkHoursMissingValue(t *testing.T) {
	col, _ := Column("WKHP")
	if got := col.Text(35.0); got != "35 hours" {
		t.Fatalf("Text(35.0) = %q", got)
	}
	if got := col.Text("?"); !strings.HasPrefix(got, "N/A") {
		t.Fatalf("Text(?) = %q, want an N/A fill", got)
	}
}

func TestOccupationLookupFromEmbeddedTable(t *testing.T) {
	col, _ := Column("OCCP")
	// 0010 .MGR-Chief Executives And Legislators
	if got := col.Text(10.0); got != "chief executives and legislators" {
		t.Fatalf("Text(10.0) = %q", got)
	}
	if got := col.Text(999999.0); got != "N/A" {
		t.Fatalf("Text for unknown code = %q", got)
	}
}

func TestPlaceOfBirthLookupFromEmbeddedTable(t *testing.T) {
	col, _ := Column("POBP")
	cases := []struct {
		value any
		want  string
	}{
		{1.0, "Alabama/AL"},
		{6.0, "California/CA"},
		{303.0, "Mexico"},
	}
	for _, tc := range cases {
		if got := col.Text(tc.value); got != tc.want {
			t.Errorf("Text(%v) = %q, want %q", tc.value, got, tc.want)
		}
	}
}

func TestIncomeFormatting(t *testing.T) {
	col, _ := Column("PINCP")
	cases := []struct {
		value any
		want  string
	}{
		{900.0, "The yearly income is $900."},
		{52000.0, "The yearly income is $52,000."},
		{1250000.0, "The yearly income is $1,250,000."},
	}
	for _, tc := range cases {
		if got := col.Sentence(tc.value); got != tc.want {
			t.Errorf("Sentence(%v) = %q, want %q", tc.value, got, tc.want)
		}
	}
}

func TestIncomeBracketsChoices(t *testing.T) {
	col, _ := Column("PINCP_brackets")
	q := col.Question()
	if q == nil {
		t.Fatal("PINCP_brackets has no question")
	}
	if len(q.Choices) != 4 {
		t.Fatalf("PINCP_brackets has %d choices, want 4", len(q.Choices))
	}
	if q.Choices[0].Numeric == nil || *q.Choices[0].Numeric != 12_500 {
		t.Fatalf("first bracket midpoint = %v", q.Choices[0].Numeric)
	}
	if got := col.Text("(25000.0, 50000.0]"); got != "Between $25,000 and $50,000" {
		t.Fatalf("Text(bracket) = %q", got)
	}
}

func TestSchoolingQuestionShape(t *testing.T) {
	col, _ := Column("SCHL")
	q := col.Question()
	if q == nil {
		t.Fatal("SCHL has no question")
	}
	if len(q.Choices) != 22 {
		t.Fatalf("SCHL has %d choices, want 22", len(q.Choices))
	}
	if got := col.Text(21.0); got != "Bachelor's degree" {
		t.Fatalf("Text(21.0) = %q", got)
	}
}
