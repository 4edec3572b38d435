// internal/watcher/assembler.go
package watcher

import (
	"regexp"
	"strings"
)

// DefaultEntryStartPattern matches the first line of a typical log entry: an
// ISO-style date, a zap JSON line, a bare or bracketed level keyword, or a
// "Timestamp:" field.
const DefaultEntryStartPattern = `^(\d{4}[-/]\d{2}[-/]\d{2}|\{.*"ts":|\[?(TRACE|DEBUG|INFO|WARN|WARNING|ERROR|FATAL)\]?\b|Timestamp:)`

// DefaultMaxEntryLines caps a single buffered entry.
const DefaultMaxEntryLines = 2000

// entryAssembler groups tailed lines into log entries. A line matching the
// start pattern closes the previous entry and opens a new one; lines before
// the first start line form an entry of their own.
type entryAssembler struct {
	start    *regexp.Regexp
	maxLines int
	lines    []string
}

func newEntryAssembler(start *regexp.Regexp, maxLines int) *entryAssembler {
	if maxLines <= 0 {
		maxLines = DefaultMaxEntryLines
	}
	return &entryAssembler{start: start, maxLines: maxLines}
}

// add consumes a line and returns the entries it completed, oldest first. A
// start line can close the previous entry and, at a cap of one line, its own.
func (a *entryAssembler) add(line string) []string {
	line = strings.TrimRight(line, "\r")

	var completed []string
	if len(a.lines) > 0 && a.start.MatchString(line) {
		if entry, ok := a.flush(); ok {
			completed = append(completed, entry)
		}
	}

	a.lines = append(a.lines, line)
	if len(a.lines) >= a.maxLines {
		// An oversized entry is cut here; whatever follows starts a new one.
		if entry, ok := a.flush(); ok {
			completed = append(completed, entry)
		}
	}
	return completed
}

// flush returns the buffered entry and resets the buffer. Entries made only
// of blank lines are dropped.
func (a *entryAssembler) flush() (string, bool) {
	if len(a.lines) == 0 {
		return "", false
	}
	entry := strings.Join(a.lines, "\n")
	a.lines = a.lines[:0]
	if strings.TrimSpace(entry) == "" {
		return "", false
	}
	return entry, true
}

// pending reports whether lines are buffered.
func (a *entryAssembler) pending() bool {
	return len(a.lines) > 0
}
