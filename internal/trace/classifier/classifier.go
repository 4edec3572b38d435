// internal/trace/classifier/classifier.go
package classifier

import (
	"strings"

	"github.com/xkilldash9x/tracelens/internal/rules"
	"github.com/xkilldash9x/tracelens/internal/trace"
)

// Classify annotates every frame of node and of its inner exceptions as
// filtered (framework noise) or highlighted (application code).
//
// Filtering always wins: a frame that matches a filter rule is never
// highlighted. Annotations are recomputed from scratch, so classifying the
// same chain twice with the same rules gives the same result.
func Classify(node *trace.ExceptionNode, rs *rules.RuleSet) {
	if rs == nil {
		rs = rules.Default()
	}
	for cur := node; cur != nil; cur = cur.Inner {
		for _, frame := range cur.Frames {
			ClassifyFrame(frame, rs)
		}
	}
}

// ClassifyFrame annotates a single frame.
func ClassifyFrame(frame *trace.Frame, rs *rules.RuleSet) {
	frame.Filtered = false
	frame.Highlighted = false

	if rs.FilterFrameworkCalls && isFiltered(frame, rs) {
		frame.Filtered = true
		return
	}
	frame.Highlighted = isHighlighted(frame, rs)
}

func isFiltered(frame *trace.Frame, rs *rules.RuleSet) bool {
	if frame.Namespace != "" && hasAnyPrefixFold(frame.Namespace, rs.FilteredNamespaces) {
		return true
	}
	return frame.ClassName != "" && equalsAnyFold(frame.ClassName, rs.FilteredClassNames)
}

func isHighlighted(frame *trace.Frame, rs *rules.RuleSet) bool {
	if frame.Namespace != "" && hasAnyPrefixFold(frame.Namespace, rs.HighlightedNamespaces) {
		return true
	}
	if frame.ClassName != "" && equalsAnyFold(frame.ClassName, rs.HighlightedClassNames) {
		return true
	}
	// Application code: anything with a namespace outside the framework
	// prefixes, regardless of whether filtering is switched on.
	return rs.HighlightApplicationCode &&
		frame.Namespace != "" &&
		!hasAnyPrefixFold(frame.Namespace, rs.FilteredNamespaces)
}

// hasAnyPrefixFold reports whether s starts with any prefix, ignoring case.
func hasAnyPrefixFold(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if len(s) >= len(p) && strings.EqualFold(s[:len(p)], p) {
			return true
		}
	}
	return false
}

func equalsAnyFold(s string, candidates []string) bool {
	for _, c := range candidates {
		if strings.EqualFold(s, c) {
			return true
		}
	}
	return false
}
