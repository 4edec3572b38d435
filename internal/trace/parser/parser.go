// internal/trace/parser/parser.go
package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/xkilldash9x/tracelens/internal/trace"
)

// DefaultMaxInnerDepth bounds how many nested inner exceptions are followed.
const DefaultMaxInnerDepth = 64

// Regex definitions for the exception header and stack frame grammars.
var (
	// Matches "<dotted.identifier>Exception: message" or "...Error: message".
	headerRegex = regexp.MustCompile(`^([\w.]+(?:Exception|Error)):\s*(.*)$`)
	// Matches "at <method>" with an optional " in <file>:line <n>" suffix.
	frameRegex = regexp.MustCompile(`^\s*at\s+(.+?)(?:\s+in\s+(.+?):line\s+(\d+))?$`)
)

// Markers introducing a nested exception.
var innerMarkers = []string{"Inner Exception", "InnerException"}

// lineKind is the heuristic classification of a line following the header.
type lineKind int

const (
	lineNoise lineKind = iota
	lineFrame
	lineBoundary
	lineInner
)

// classifyLine decides what role a line plays inside an exception block.
// Frame lines win over the other markers so that a method named after an
// inner exception is still read as a frame.
func classifyLine(line string) lineKind {
	trimmed := strings.TrimSpace(line)
	switch {
	case frameRegex.MatchString(strings.TrimRight(line, " \t")):
		return lineFrame
	case strings.HasPrefix(trimmed, "---"):
		return lineBoundary
	case containsInnerMarker(line):
		return lineInner
	default:
		return lineNoise
	}
}

func containsInnerMarker(line string) bool {
	for _, m := range innerMarkers {
		if strings.Contains(line, m) {
			return true
		}
	}
	return false
}

// Parser turns an isolated exception block into a chain of exception nodes.
// It holds no per-call state and is safe for concurrent use.
type Parser struct {
	maxInnerDepth int
}

// NewParser creates a Parser with the default inner-exception depth limit.
func NewParser() *Parser {
	return &Parser{maxInnerDepth: DefaultMaxInnerDepth}
}

// WithMaxInnerDepth returns a copy of the parser that follows at most depth
// nested inner exceptions. Values below zero are treated as zero.
func (p *Parser) WithMaxInnerDepth(depth int) *Parser {
	if depth < 0 {
		depth = 0
	}
	return &Parser{maxInnerDepth: depth}
}

// Parse interprets an exception block. It returns nil when the text is empty
// or whitespace only; any other input yields at least one node.
func (p *Parser) Parse(text string) *trace.ExceptionNode {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return p.parseLines(splitLines(text), text, 0)
}

func (p *Parser) parseLines(lines []string, rawText string, depth int) *trace.ExceptionNode {
	if len(lines) == 0 {
		return nil
	}

	node := &trace.ExceptionNode{RawText: rawText}
	node.Type, node.Message = parseHeader(lines[0])

	for i := 1; i < len(lines); i++ {
		line := lines[i]

		switch classifyLine(line) {
		case lineFrame:
			node.Frames = append(node.Frames, parseFrame(line))
		case lineBoundary:
			// Frames after a continuation boundary are dropped, not merged.
			return node
		case lineInner:
			if depth >= p.maxInnerDepth {
				return node
			}
			start := i
			if !hasContentAfterColon(line) {
				start = i + 1
			}
			if start < len(lines) {
				innerLines := lines[start:]
				node.Inner = p.parseLines(innerLines, strings.Join(innerLines, "\n"), depth+1)
			}
			return node
		}
	}

	return node
}

// splitLines splits on \r\n, \r or \n and drops blank lines.
func splitLines(text string) []string {
	raw := strings.FieldsFunc(text, func(r rune) bool { return r == '\r' || r == '\n' })
	lines := raw[:0]
	for _, l := range raw {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// parseHeader extracts the exception type and message from the first line.
// Lines that do not match the header grammar yield UnknownType with the
// whole trimmed line as the message.
func parseHeader(line string) (string, string) {
	first := strings.TrimSpace(line)
	if strings.Contains(first, "Inner Exception:") || strings.Contains(first, "InnerException:") {
		first = strings.TrimSpace(first[strings.Index(first, ":")+1:])
	}

	if matches := headerRegex.FindStringSubmatch(first); len(matches) == 3 {
		return matches[1], strings.TrimSpace(matches[2])
	}
	return trace.UnknownType, first
}

func hasContentAfterColon(line string) bool {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return false
	}
	return strings.TrimSpace(line[idx+1:]) != ""
}

// parseFrame builds a Frame from a line already known to match frameRegex.
func parseFrame(line string) *trace.Frame {
	trimmed := strings.TrimRight(line, " \t")
	frame := &trace.Frame{FullText: strings.TrimSpace(line)}

	matches := frameRegex.FindStringSubmatch(trimmed)
	if len(matches) != 4 {
		return frame
	}

	frame.Namespace, frame.ClassName, frame.MethodName = splitMethodPath(matches[1])
	if matches[2] != "" && matches[3] != "" {
		if n, err := strconv.Atoi(matches[3]); err == nil {
			frame.FileName = matches[2]
			frame.LineNumber = n
		}
	}
	return frame
}

// splitMethodPath splits "Namespace.Class.Method(args)" into its parts.
// A single segment before the method is taken as the class name; a path with
// no dot is a bare method name.
func splitMethodPath(path string) (namespace, className, method string) {
	if idx := strings.Index(path, "("); idx > 0 {
		path = path[:idx]
	}
	path = strings.TrimSpace(path)

	lastDot := strings.LastIndex(path, ".")
	if lastDot <= 0 {
		return "", "", path
	}
	method = path[lastDot+1:]
	typeName := path[:lastDot]

	typeDot := strings.LastIndex(typeName, ".")
	if typeDot <= 0 {
		return "", typeName, method
	}
	return typeName[:typeDot], typeName[typeDot+1:], method
}
