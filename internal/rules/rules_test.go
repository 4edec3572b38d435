// internal/rules/rules_test.go
package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	rs := Default()
	assert.Equal(t, []string{"System.", "Microsoft.Extensions.", "Microsoft.AspNetCore."}, rs.FilteredNamespaces)
	assert.Empty(t, rs.HighlightedNamespaces)
	assert.Empty(t, rs.FilteredClassNames)
	assert.Empty(t, rs.HighlightedClassNames)
	assert.True(t, rs.FilterFrameworkCalls)
	assert.True(t, rs.HighlightApplicationCode)
}

func TestDefaultFilteredNamespaces_ReturnsCopy(t *testing.T) {
	first := DefaultFilteredNamespaces()
	first[0] = "Mutated."

	assert.Equal(t, "System.", DefaultFilteredNamespaces()[0])
	assert.Equal(t, "System.", Default().FilteredNamespaces[0])
}

func TestRuleSet_Clone(t *testing.T) {
	original := Default()
	clone := original.Clone()
	clone.FilteredNamespaces[0] = "Changed."
	clone.FilterFrameworkCalls = false

	assert.Equal(t, "System.", original.FilteredNamespaces[0])
	assert.True(t, original.FilterFrameworkCalls)

	var nilSet *RuleSet
	assert.Nil(t, nilSet.Clone())
}

func TestBuilder(t *testing.T) {
	t.Run("Appends To Defaults", func(t *testing.T) {
		rs := NewBuilder().
			FilterNamespace("Newtonsoft.").
			HighlightNamespace("MyApp.").
			FilterClass("Interceptor").
			HighlightClass("OrderService").
			WithFilterFrameworkCalls(false).
			WithHighlightApplicationCode(false).
			Build()

		assert.Equal(t, []string{"System.", "Microsoft.Extensions.", "Microsoft.AspNetCore.", "Newtonsoft."}, rs.FilteredNamespaces)
		assert.Equal(t, []string{"MyApp."}, rs.HighlightedNamespaces)
		assert.Equal(t, []string{"Interceptor"}, rs.FilteredClassNames)
		assert.Equal(t, []string{"OrderService"}, rs.HighlightedClassNames)
		assert.False(t, rs.FilterFrameworkCalls)
		assert.False(t, rs.HighlightApplicationCode)
	})

	t.Run("Built Sets Are Independent", func(t *testing.T) {
		b := NewBuilder().HighlightNamespace("A.")
		first := b.Build()
		b.HighlightNamespace("B.")
		second := b.Build()

		assert.Equal(t, []string{"A."}, first.HighlightedNamespaces)
		assert.Equal(t, []string{"A.", "B."}, second.HighlightedNamespaces)
	})

	t.Run("From Base Does Not Mutate Base", func(t *testing.T) {
		base := &RuleSet{FilteredNamespaces: []string{"Only."}}
		rs := NewBuilderFrom(base).FilterNamespace("More.").Build()

		assert.Equal(t, []string{"Only."}, base.FilteredNamespaces)
		assert.Equal(t, []string{"Only.", "More."}, rs.FilteredNamespaces)
		assert.Equal(t, Default(), NewBuilderFrom(nil).Build())
	})
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected *RuleSet
		errIs    error
		errMsg   string
	}{
		{
			name: "Full Document",
			input: `
filtered_namespaces: ["System.", "Polly."]
highlighted_namespaces: ["MyApp."]
filtered_class_names: ["Middleware"]
highlighted_class_names: ["OrderService"]
filter_framework_calls: false
highlight_application_code: false
`,
			expected: &RuleSet{
				FilteredNamespaces:       []string{"System.", "Polly."},
				HighlightedNamespaces:    []string{"MyApp."},
				FilteredClassNames:       []string{"Middleware"},
				HighlightedClassNames:    []string{"OrderService"},
				FilterFrameworkCalls:     false,
				HighlightApplicationCode: false,
			},
		},
		{
			name:  "Partial Document Keeps Defaults",
			input: "highlighted_namespaces: [\"MyApp.\"]\n",
			expected: &RuleSet{
				FilteredNamespaces:       DefaultFilteredNamespaces(),
				HighlightedNamespaces:    []string{"MyApp."},
				FilteredClassNames:       []string{},
				HighlightedClassNames:    []string{},
				FilterFrameworkCalls:     true,
				HighlightApplicationCode: true,
			},
		},
		{
			name:  "Explicit Empty Filter List Clears Seed",
			input: "filtered_namespaces: []\n",
			expected: &RuleSet{
				FilteredNamespaces:       []string{},
				HighlightedNamespaces:    []string{},
				FilteredClassNames:       []string{},
				HighlightedClassNames:    []string{},
				FilterFrameworkCalls:     true,
				HighlightApplicationCode: true,
			},
		},
		{
			name:  "Empty Document",
			input: "",
			errIs: ErrEmptyRulesFile,
		},
		{
			name:   "Malformed YAML",
			input:  "filtered_namespaces: [unterminated",
			errMsg: "failed to parse rules",
		},
		{
			name:   "Wrong Shape",
			input:  "- just\n- a list\n",
			errMsg: "failed to decode rules",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rs, err := Parse([]byte(tt.input))
			switch {
			case tt.errIs != nil:
				assert.ErrorIs(t, err, tt.errIs)
				assert.Nil(t, rs)
			case tt.errMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.expected, rs)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("Successful Load", func(t *testing.T) {
		path := filepath.Join(dir, "rules.yaml")
		require.NoError(t, os.WriteFile(path, []byte("highlighted_class_names: [\"Checkout\"]\n"), 0644))

		rs, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"Checkout"}, rs.HighlightedClassNames)
	})

	t.Run("File Not Found", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(dir, "missing.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read rules file")
	})

	t.Run("Empty File", func(t *testing.T) {
		path := filepath.Join(dir, "empty.yaml")
		require.NoError(t, os.WriteFile(path, nil, 0644))

		_, err := LoadFile(path)
		assert.ErrorIs(t, err, ErrEmptyRulesFile)
	})
}

func TestMarshal_RoundTripsThroughParse(t *testing.T) {
	original := NewBuilder().HighlightNamespace("MyApp.").FilterClass("Proxy").WithHighlightApplicationCode(false).Build()

	data, err := Marshal(original)
	require.NoError(t, err)
	assert.Contains(t, string(data), "highlight_application_code: false")

	parsed, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, original, parsed)
}
