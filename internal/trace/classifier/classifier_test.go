// internal/trace/classifier/classifier_test.go
package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/tracelens/internal/rules"
	"github.com/xkilldash9x/tracelens/internal/trace"
)

func frame(ns, class string) *trace.Frame {
	return &trace.Frame{FullText: "at " + ns + "." + class + ".Run()", Namespace: ns, ClassName: class, MethodName: "Run"}
}

func TestClassifyFrame(t *testing.T) {
	tests := []struct {
		name            string
		frame           *trace.Frame
		rules           *rules.RuleSet
		wantFiltered    bool
		wantHighlighted bool
	}{
		{
			name:         "Framework Namespace Is Filtered",
			frame:        frame("System.Collections", "List"),
			rules:        rules.Default(),
			wantFiltered: true,
		},
		{
			name:            "Application Namespace Is Highlighted",
			frame:           frame("MyApp", "OrderService"),
			rules:           rules.Default(),
			wantHighlighted: true,
		},
		{
			name:         "Prefix Match Ignores Case",
			frame:        frame("system.threading", "Task"),
			rules:        rules.Default(),
			wantFiltered: true,
		},
		{
			name:         "Filtered Class Name",
			frame:        frame("MyApp.Infra", "RetryProxy"),
			rules:        rules.NewBuilder().FilterClass("retryproxy").Build(),
			wantFiltered: true,
		},
		{
			name:         "Filter Beats Highlighted Namespace",
			frame:        frame("System.Net", "Socket"),
			rules:        rules.NewBuilder().HighlightNamespace("System.Net").Build(),
			wantFiltered: true,
		},
		{
			name:         "Filter Beats Highlighted Class",
			frame:        frame("MyApp", "Gateway"),
			rules:        rules.NewBuilder().FilterClass("Gateway").HighlightClass("Gateway").Build(),
			wantFiltered: true,
		},
		{
			name:            "Filtering Disabled Leaves Framework Frames Visible",
			frame:           frame("System.Collections", "List"),
			rules:           rules.NewBuilder().WithFilterFrameworkCalls(false).Build(),
			wantHighlighted: false,
		},
		{
			name:            "Filtering Disabled Still Honours Highlight Rules",
			frame:           frame("System.Collections", "List"),
			rules:           rules.NewBuilder().WithFilterFrameworkCalls(false).HighlightClass("List").Build(),
			wantHighlighted: true,
		},
		{
			name:            "Filtering Disabled Ignores Filtered Class",
			frame:           frame("MyApp", "Gateway"),
			rules:           rules.NewBuilder().WithFilterFrameworkCalls(false).FilterClass("Gateway").Build(),
			wantHighlighted: true,
		},
		{
			name:            "Application Code Highlighting Disabled",
			frame:           frame("MyApp", "OrderService"),
			rules:           rules.NewBuilder().WithHighlightApplicationCode(false).Build(),
			wantHighlighted: false,
		},
		{
			name:            "Highlighted Namespace Without App Code Default",
			frame:           frame("MyApp.Orders", "OrderService"),
			rules:           rules.NewBuilder().WithHighlightApplicationCode(false).HighlightNamespace("myapp.").Build(),
			wantHighlighted: true,
		},
		{
			name:            "Filtered Class Still Blocks App Code Default",
			frame:           frame("MyApp", "Gateway"),
			rules:           rules.NewBuilder().FilterClass("Gateway").Build(),
			wantFiltered:    true,
			wantHighlighted: false,
		},
		{
			name:            "No Namespace Is Left Alone",
			frame:           &trace.Frame{FullText: "at Program.Main()", ClassName: "Program", MethodName: "Main"},
			rules:           rules.Default(),
			wantHighlighted: false,
		},
		{
			name:            "No Namespace Matches Highlighted Class",
			frame:           &trace.Frame{FullText: "at Program.Main()", ClassName: "Program", MethodName: "Main"},
			rules:           rules.NewBuilder().HighlightClass("program").Build(),
			wantHighlighted: true,
		},
		{
			name:         "No Namespace Matches Filtered Class",
			frame:        &trace.Frame{FullText: "at Program.Main()", ClassName: "Program", MethodName: "Main"},
			rules:        rules.NewBuilder().FilterClass("Program").Build(),
			wantFiltered: true,
		},
		{
			name:  "Bare Method Matches Nothing",
			frame: &trace.Frame{FullText: "at Main()", MethodName: "Main"},
			rules: rules.NewBuilder().FilterClass("").HighlightClass("").Build(),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ClassifyFrame(tt.frame, tt.rules)
			assert.Equal(t, tt.wantFiltered, tt.frame.Filtered, "filtered")
			assert.Equal(t, tt.wantHighlighted, tt.frame.Highlighted, "highlighted")
		})
	}
}

func TestClassify_WalksInnerChain(t *testing.T) {
	root := &trace.ExceptionNode{Type: "Inner", Frames: []*trace.Frame{frame("MyApp.Data", "Repo")}}
	outer := &trace.ExceptionNode{
		Type:   "Outer",
		Frames: []*trace.Frame{frame("System.Linq", "Enumerable"), frame("MyApp", "Controller")},
		Inner:  root,
	}

	Classify(outer, rules.Default())

	assert.True(t, outer.Frames[0].Filtered)
	assert.True(t, outer.Frames[1].Highlighted)
	assert.True(t, root.Frames[0].Highlighted)
}

func TestClassify_NilRulesUsesDefaults(t *testing.T) {
	node := &trace.ExceptionNode{Frames: []*trace.Frame{frame("System.IO", "File")}}
	Classify(node, nil)
	assert.True(t, node.Frames[0].Filtered)

	assert.NotPanics(t, func() { Classify(nil, rules.Default()) })
}

func TestClassify_IsIdempotent(t *testing.T) {
	build := func() *trace.ExceptionNode {
		return &trace.ExceptionNode{
			Frames: []*trace.Frame{
				frame("System.Linq", "Enumerable"),
				frame("MyApp", "Controller"),
				{FullText: "at Main()", MethodName: "Main"},
			},
			Inner: &trace.ExceptionNode{Frames: []*trace.Frame{frame("Microsoft.AspNetCore.Mvc", "Invoker")}},
		}
	}
	rs := rules.NewBuilder().HighlightClass("Invoker").Build()

	once := build()
	Classify(once, rs)
	twice := build()
	Classify(twice, rs)
	Classify(twice, rs)
	assert.Equal(t, once, twice)

	// Stale annotations from a previous rule set do not leak through.
	Classify(twice, rules.NewBuilder().WithFilterFrameworkCalls(false).WithHighlightApplicationCode(false).Build())
	for _, n := range twice.Chain() {
		for _, f := range n.Frames {
			assert.False(t, f.Filtered)
			assert.False(t, f.Highlighted)
		}
	}
}

// Every combination of toggles and overlapping filter/highlight rules must
// keep a frame from being both filtered and highlighted.
func TestClassify_FilterPrecedenceUnderAllPermutations(t *testing.T) {
	frames := []*trace.Frame{
		frame("System.Collections", "List"),
		frame("MyApp", "Gateway"),
		frame("MyApp.Orders", "OrderService"),
		frame("Vendor.Sdk", "Client"),
		{FullText: "at Program.Main()", ClassName: "Program", MethodName: "Main"},
		{FullText: "at Main()", MethodName: "Main"},
	}
	namespaces := []string{"System.", "MyApp", "Vendor."}
	classes := []string{"List", "Gateway", "Program", "Client"}

	// Each bit decides whether one candidate goes into the filter or
	// highlight lists of the rule set.
	total := len(namespaces) + len(classes)
	for mask := 0; mask < 1<<(2*total); mask++ {
		for toggles := 0; toggles < 4; toggles++ {
			b := rules.NewBuilderFrom(&rules.RuleSet{})
			for i, ns := range namespaces {
				if mask&(1<<i) != 0 {
					b.FilterNamespace(ns)
				}
				if mask&(1<<(total+i)) != 0 {
					b.HighlightNamespace(ns)
				}
			}
			for i, c := range classes {
				bit := len(namespaces) + i
				if mask&(1<<bit) != 0 {
					b.FilterClass(c)
				}
				if mask&(1<<(total+bit)) != 0 {
					b.HighlightClass(c)
				}
			}
			rs := b.WithFilterFrameworkCalls(toggles&1 != 0).WithHighlightApplicationCode(toggles&2 != 0).Build()

			for _, f := range frames {
				ClassifyFrame(f, rs)
				require.False(t, f.Filtered && f.Highlighted,
					"frame %q both filtered and highlighted (mask=%b toggles=%b)", f.FullText, mask, toggles)
				if !rs.FilterFrameworkCalls {
					require.False(t, f.Filtered, "nothing is filtered when filtering is disabled")
				}
			}
		}
	}
}
