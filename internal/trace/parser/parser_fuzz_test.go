// internal/trace/parser/parser_fuzz_test.go
package parser

import (
	"strings"
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
)

// fuzzBlock is populated from fuzzed bytes and rendered into an exception block.
type fuzzBlock struct {
	Header      string
	Frames      []string
	WithFiles   bool
	InnerHeader string
	Boundary    bool
}

func (b fuzzBlock) render() string {
	var sb strings.Builder
	sb.WriteString(b.Header)
	sb.WriteString("\n")
	for i, f := range b.Frames {
		sb.WriteString("   at ")
		sb.WriteString(f)
		if b.WithFiles {
			sb.WriteString(" in /src/file.cs:line ")
			sb.WriteString(strings.Repeat("1", i%5+1))
		}
		sb.WriteString("\n")
		if b.Boundary && i == len(b.Frames)/2 {
			sb.WriteString("--- End of stack trace from previous location ---\n")
		}
	}
	if b.InnerHeader != "" {
		sb.WriteString("Inner Exception: ")
		sb.WriteString(b.InnerHeader)
		sb.WriteString("\n")
	}
	return sb.String()
}

// FuzzParser_Parse_Raw feeds arbitrary text to the parser. The goal is survival
// and the non-empty chain guarantee.
func FuzzParser_Parse_Raw(f *testing.F) {
	f.Add(blockTwoFrames)
	f.Add(blockFlexTime)
	f.Add(blockThreeLevels)
	f.Add("Inner Exception:\nInner Exception:\n")
	f.Add("   at (")

	parser := NewParser()
	f.Fuzz(func(t *testing.T, text string) {
		node := parser.Parse(text)
		if strings.TrimSpace(text) == "" {
			if node != nil {
				t.Fatalf("expected nil for blank input %q", text)
			}
			return
		}
		if node == nil {
			t.Fatalf("expected a node for non-blank input %q", text)
		}
		if node.Type == "" {
			t.Fatalf("node type must never be empty")
		}
		if len(node.Chain()) > DefaultMaxInnerDepth+1 {
			t.Fatalf("chain deeper than the configured limit")
		}
	})
}

// FuzzParser_Parse_Structured builds well-formed-ish blocks from fuzzed data.
func FuzzParser_Parse_Structured(f *testing.F) {
	parser := NewParser()
	f.Fuzz(func(t *testing.T, data []byte) {
		consumer := fuzz.NewConsumer(data)
		block := fuzzBlock{}
		if err := consumer.GenerateStruct(&block); err != nil {
			return
		}

		defer func() {
			if r := recover(); r != nil {
				t.Errorf("Caught a panic during structured fuzzing: %v", r)
			}
		}()

		text := block.render()
		node := parser.Parse(text)
		if node == nil {
			return
		}
		for _, n := range node.Chain() {
			for _, fr := range n.Frames {
				if fr.LineNumber < 0 {
					t.Errorf("negative line number in frame %q", fr.FullText)
				}
				if fr.FileName == "" && fr.LineNumber != 0 {
					t.Errorf("line number without file in frame %q", fr.FullText)
				}
			}
		}
	})
}
