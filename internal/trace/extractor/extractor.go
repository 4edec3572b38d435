// internal/trace/extractor/extractor.go
package extractor

import (
	"strings"
)

// Trigger tokens that open an exception block inside a log entry.
const (
	exceptionToken = "Exception:"
	framePrefix    = "at "
)

// state of the extraction machine.
type state int

const (
	// stateSeeking skips log metadata until a trigger line appears.
	stateSeeking state = iota
	// stateCapturing retains every line until a blank line ends the block.
	stateCapturing
	// stateDone ignores the remainder of the entry.
	stateDone
)

func (s state) String() string {
	switch s {
	case stateSeeking:
		return "seeking"
	case stateCapturing:
		return "capturing"
	case stateDone:
		return "done"
	default:
		return "unknown"
	}
}

// machine isolates the exception block of a single log entry, one line at a time.
type machine struct {
	state    state
	retained []string
}

// feed advances the machine by one line.
func (m *machine) feed(line string) {
	switch m.state {
	case stateSeeking:
		if !isTrigger(line) {
			return
		}
		m.state = stateCapturing
		m.retained = append(m.retained, stripExceptionPrefix(line))

	case stateCapturing:
		if strings.TrimSpace(line) == "" {
			m.state = stateDone
			return
		}
		m.retained = append(m.retained, stripExceptionPrefix(line))

	case stateDone:
	}
}

// isTrigger reports whether a line opens the exception block.
func isTrigger(line string) bool {
	return strings.Contains(line, exceptionToken) ||
		strings.HasPrefix(strings.TrimSpace(line), framePrefix)
}

// stripExceptionPrefix turns "Exception: Foo.BarException: msg" into
// "Foo.BarException: msg". Other lines are returned unchanged.
func stripExceptionPrefix(line string) string {
	if !strings.HasPrefix(strings.TrimSpace(line), exceptionToken) {
		return line
	}
	idx := strings.Index(line, exceptionToken)
	return strings.TrimSpace(line[idx+len(exceptionToken):])
}

// splitLines splits on \r\n, \r or \n, keeping blank lines.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}

// Extract scans a raw log entry and returns the substring that plausibly
// holds an exception report (header plus frames). It returns "" when no line
// looks like part of an exception, which callers treat as "no exception".
//
// Trailing log fields that share a physical line with the trigger are kept;
// the heuristic favours recall over precision.
func Extract(logEntry string) string {
	m := &machine{}
	for _, line := range splitLines(logEntry) {
		m.feed(line)
		if m.state == stateDone {
			break
		}
	}
	return strings.Join(m.retained, "\n")
}
