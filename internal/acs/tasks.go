package acs

import (
	"fmt"
	"sort"

	"github.com/bwilder0/folktexts/internal/columns"
)

// Task is one named ACS prediction task: the feature columns presented to
// the model, the raw dataset column carrying the label, and the registry
// column whose question is asked.
type Task struct {
	Name        string
	Description string

	// Features are registry column names rendered as sentences.
	Features []string

	// Target names the registry column whose question is asked.
	Target string

	// RawTarget names the dataset column holding the raw label value.
	RawTarget string

	// PositiveKey is the canonical choice key counted as the positive
	// class.
	PositiveKey string

	// Binarize maps a raw label value to 0/1.
	Binarize func(float64) int
}

var tasks = map[string]Task{
	"ACSIncome": {
		Name:        "ACSIncome",
		Description: "predict whether yearly income is above $50,000",
		Features:    []string{"AGEP", "COW", "SCHL", "MAR", "OCCP", "POBP", "RELP", "WKHP", "SEX", "RAC1P"},
		Target:      "PINCP_binary",
		RawTarget:   "PINCP",
		PositiveKey: "1",
		Binarize:    func(v float64) int { return boolToInt(v > 50_000) },
	},
	"ACSEmployment": {
		Name:        "ACSEmployment",
		Description: "predict whether a person is employed",
		Features:    []string{"AGEP", "SCHL", "MAR", "RELP", "SEX", "RAC1P"},
		Target:      "ESR",
		RawTarget:   "ESR",
		PositiveKey: "1",
		Binarize:    func(v float64) int { return boolToInt(v == 1) },
	},
	"ACSPublicCoverage": {
		Name:        "ACSPublicCoverage",
		Description: "predict whether a person is covered by public health insurance",
		Features:    []string{"AGEP", "SCHL", "MAR", "SEX", "PINCP", "RAC1P"},
		Target:      "PUBCOV",
		RawTarget:   "PUBCOV",
		PositiveKey: "1",
		Binarize:    func(v float64) int { return boolToInt(v == 1) },
	},
}

// TaskByName returns the named task.
func TaskByName(name string) (Task, bool) {
	t, ok := tasks[name]
	return t, ok
}

// TaskNames lists all task names, sorted.
func TaskNames() []string {
	out := make([]string, 0, len(tasks))
	for name := range tasks {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// FeatureColumns resolves the task's feature mappers, honoring an optional
// feature subset.
func (t Task) FeatureColumns(subset []string) ([]*columns.ColumnToText, error) {
	names := t.Features
	if len(subset) > 0 {
		allowed := make(map[string]bool, len(subset))
		for _, s := range subset {
			allowed[s] = true
		}
		filtered := make([]string, 0, len(names))
		for _, name := range names {
			if allowed[name] {
				filtered = append(filtered, name)
			}
		}
		if len(filtered) == 0 {
			return nil, fmt.Errorf("acs: feature subset %v matches no feature of task %q", subset, t.Name)
		}
		names = filtered
	}

	out := make([]*columns.ColumnToText, 0, len(names))
	for _, name := range names {
		c, ok := Column(name)
		if !ok {
			return nil, fmt.Errorf("acs: task %q references unknown column %q", t.Name, name)
		}
		out = append(out, c)
	}
	return out, nil
}

// TargetColumn resolves the task's target mapper.
func (t Task) TargetColumn() (*columns.ColumnToText, error) {
	c, ok := Column(t.Target)
	if !ok {
		return nil, fmt.Errorf("acs: task %q references unknown target column %q", t.Name, t.Target)
	}
	return c, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
