// internal/rules/rules.go
package rules

import (
	"errors"
	"fmt"
	"os"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// ErrEmptyRulesFile is returned when a rules file holds no document.
var ErrEmptyRulesFile = errors.New("rules file is empty")

// defaultFilteredNamespaces is the seed for filtered namespace prefixes.
// It is never handed out directly; callers get a copy.
var defaultFilteredNamespaces = [...]string{
	"System.",
	"Microsoft.Extensions.",
	"Microsoft.AspNetCore.",
}

// DefaultFilteredNamespaces returns a fresh copy of the default framework prefixes.
func DefaultFilteredNamespaces() []string {
	out := make([]string, len(defaultFilteredNamespaces))
	copy(out, defaultFilteredNamespaces[:])
	return out
}

// RuleSet decides which frames are framework noise and which are application
// code. It must not be mutated while a classification is in flight; build a
// new value and swap it instead.
type RuleSet struct {
	FilteredNamespaces       []string `yaml:"filtered_namespaces" json:"filtered_namespaces"`
	HighlightedNamespaces    []string `yaml:"highlighted_namespaces" json:"highlighted_namespaces"`
	FilteredClassNames       []string `yaml:"filtered_class_names" json:"filtered_class_names"`
	HighlightedClassNames    []string `yaml:"highlighted_class_names" json:"highlighted_class_names"`
	FilterFrameworkCalls     bool     `yaml:"filter_framework_calls" json:"filter_framework_calls"`
	HighlightApplicationCode bool     `yaml:"highlight_application_code" json:"highlight_application_code"`
}

// Default returns the default rule set: framework prefixes filtered and
// everything else highlighted as application code.
func Default() *RuleSet {
	return &RuleSet{
		FilteredNamespaces:       DefaultFilteredNamespaces(),
		HighlightedNamespaces:    []string{},
		FilteredClassNames:       []string{},
		HighlightedClassNames:    []string{},
		FilterFrameworkCalls:     true,
		HighlightApplicationCode: true,
	}
}

// Clone returns a deep copy of the rule set.
func (r *RuleSet) Clone() *RuleSet {
	if r == nil {
		return nil
	}
	return &RuleSet{
		FilteredNamespaces:       cloneStrings(r.FilteredNamespaces),
		HighlightedNamespaces:    cloneStrings(r.HighlightedNamespaces),
		FilteredClassNames:       cloneStrings(r.FilteredClassNames),
		HighlightedClassNames:    cloneStrings(r.HighlightedClassNames),
		FilterFrameworkCalls:     r.FilterFrameworkCalls,
		HighlightApplicationCode: r.HighlightApplicationCode,
	}
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// fileRules mirrors RuleSet with pointer toggles so an absent key keeps its default.
type fileRules struct {
	FilteredNamespaces       *[]string `yaml:"filtered_namespaces"`
	HighlightedNamespaces    []string  `yaml:"highlighted_namespaces"`
	FilteredClassNames       []string  `yaml:"filtered_class_names"`
	HighlightedClassNames    []string  `yaml:"highlighted_class_names"`
	FilterFrameworkCalls     *bool     `yaml:"filter_framework_calls"`
	HighlightApplicationCode *bool     `yaml:"highlight_application_code"`
}

// Parse decodes a YAML rules document. Keys that are absent keep the values
// of Default(); an explicit empty filtered_namespaces list clears the seed.
func Parse(data []byte) (*RuleSet, error) {
	var raw fileRules
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	if node.Kind == 0 || len(node.Content) == 0 {
		return nil, ErrEmptyRulesFile
	}
	if err := node.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode rules: %w", err)
	}

	rs := Default()
	if raw.FilteredNamespaces != nil {
		rs.FilteredNamespaces = cloneStrings(*raw.FilteredNamespaces)
	}
	rs.HighlightedNamespaces = append(rs.HighlightedNamespaces, raw.HighlightedNamespaces...)
	rs.FilteredClassNames = append(rs.FilteredClassNames, raw.FilteredClassNames...)
	rs.HighlightedClassNames = append(rs.HighlightedClassNames, raw.HighlightedClassNames...)
	if raw.FilterFrameworkCalls != nil {
		rs.FilterFrameworkCalls = *raw.FilterFrameworkCalls
	}
	if raw.HighlightApplicationCode != nil {
		rs.HighlightApplicationCode = *raw.HighlightApplicationCode
	}
	return rs, nil
}

// LoadFile reads a YAML rules file. The path may start with "~".
func LoadFile(path string) (*RuleSet, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand rules path %s: %w", path, err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	rs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", expanded, err)
	}
	return rs, nil
}

// Marshal renders the rule set as YAML.
func Marshal(rs *RuleSet) ([]byte, error) {
	return yaml.Marshal(rs)
}
