// internal/analyzer/analyzer.go
package analyzer

import (
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/tracelens/internal/rules"
	"github.com/xkilldash9x/tracelens/internal/trace"
	"github.com/xkilldash9x/tracelens/internal/trace/classifier"
	"github.com/xkilldash9x/tracelens/internal/trace/extractor"
	"github.com/xkilldash9x/tracelens/internal/trace/parser"
)

// Analyzer runs the extract, parse and classify pipeline and aggregates the
// outcome into an AnalysisResult. It holds no per-call state and is safe for
// concurrent use.
type Analyzer struct {
	logger *zap.Logger
	rules  rules.Source
	parser *parser.Parser
}

// Option customises an Analyzer.
type Option func(*Analyzer)

// WithMaxInnerDepth bounds how many nested inner exceptions are parsed.
func WithMaxInnerDepth(depth int) Option {
	return func(a *Analyzer) {
		a.parser = parser.NewParser().WithMaxInnerDepth(depth)
	}
}

// New creates an Analyzer reading its rules from src. A nil src uses the
// default rule set.
func New(src rules.Source, logger *zap.Logger, opts ...Option) *Analyzer {
	if src == nil {
		src = rules.Static(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Analyzer{
		logger: logger.Named("analyzer"),
		rules:  src,
		parser: parser.NewParser(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze parses a pre-isolated exception report. It returns nil when the
// text contains no exception; that is an expected outcome, not an error.
func (a *Analyzer) Analyze(exceptionText string) *trace.AnalysisResult {
	if strings.TrimSpace(exceptionText) == "" {
		return nil
	}

	node := a.parser.Parse(exceptionText)
	if node == nil {
		return nil
	}

	// One snapshot per call; a concurrent Swap cannot change rules midway.
	rs := a.rules.Rules()
	classifier.Classify(node, rs)

	result := &trace.AnalysisResult{
		Chain:         node.Chain(),
		RootException: node.Root(),
	}
	for _, n := range result.Chain {
		result.TotalFrames += len(n.Frames)
		result.VisibleFrames += len(n.VisibleFrames())
	}
	result.FilteredFrames = result.TotalFrames - result.VisibleFrames
	result.Summary = summarize(result.RootException)

	a.logger.Debug("Exception analyzed.",
		zap.String("root_type", result.RootException.Type),
		zap.Int("chain_length", len(result.Chain)),
		zap.Int("total_frames", result.TotalFrames),
		zap.Int("filtered_frames", result.FilteredFrames),
	)
	return result
}

// AnalyzeFromLog isolates the exception block of a free-form log entry and
// analyzes it.
func (a *Analyzer) AnalyzeFromLog(logEntry string) *trace.AnalysisResult {
	return a.Analyze(extractor.Extract(logEntry))
}

// summarize renders "<type>: <message>", followed by the first highlighted
// frame of the root when there is one.
func summarize(root *trace.ExceptionNode) string {
	var sb strings.Builder
	sb.WriteString(root.Type)
	sb.WriteString(": ")
	sb.WriteString(root.Message)
	if highlighted := root.HighlightedFrames(); len(highlighted) > 0 {
		sb.WriteString(" at ")
		sb.WriteString(highlighted[0].FullMethodName())
	}
	return sb.String()
}
