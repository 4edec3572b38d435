// internal/analyzer/analyzer_fuzz_test.go
package analyzer_test

import (
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"go.uber.org/zap"

	"github.com/xkilldash9x/tracelens/internal/analyzer"
	"github.com/xkilldash9x/tracelens/internal/rules"
)

type fuzzInput struct {
	Text    string
	FromLog bool
	Rules   rules.RuleSet
}

// FuzzAnalyzer_Invariants checks that arbitrary text and rule sets never
// break the statistics or filter precedence guarantees.
func FuzzAnalyzer_Invariants(f *testing.F) {
	f.Add([]byte("System.Exception: x\n   at MyApp.A.B()\n"))
	f.Fuzz(func(t *testing.T, data []byte) {
		consumer := fuzz.NewConsumer(data)
		input := fuzzInput{}
		if err := consumer.GenerateStruct(&input); err != nil {
			return
		}

		a := analyzer.New(rules.Static(&input.Rules), zap.NewNop())
		result := a.Analyze(input.Text)
		if input.FromLog {
			result = a.AnalyzeFromLog(input.Text)
		}
		if result == nil {
			return
		}

		if len(result.Chain) == 0 || result.RootException != result.Chain[len(result.Chain)-1] {
			t.Fatalf("root exception must be the last chain node")
		}
		if result.VisibleFrames+result.FilteredFrames != result.TotalFrames {
			t.Fatalf("statistics do not add up: %d + %d != %d", result.VisibleFrames, result.FilteredFrames, result.TotalFrames)
		}
		for _, node := range result.Chain {
			for _, fr := range node.Frames {
				if fr.Filtered && fr.Highlighted {
					t.Fatalf("frame %q both filtered and highlighted", fr.FullText)
				}
			}
		}
	})
}
