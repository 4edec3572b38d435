// internal/reporting/text.go
package reporting

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/xkilldash9x/tracelens/internal/trace"
)

// DefaultMaxStackFrames caps the frames listed under "Key Stack Frames".
const DefaultMaxStackFrames = 50

// NoExceptionNotice is printed for inputs without an exception.
const NoExceptionNotice = "No exception found."

// TextOptions controls the human-readable rendering.
type TextOptions struct {
	// MaxStackFrames limits the listed frames; zero means no limit.
	MaxStackFrames int
	// ShowFileInfo prints the "in <file>:line <n>" line under located frames.
	ShowFileInfo bool
	// Color styles the output with ANSI colours.
	Color bool
}

// DefaultTextOptions returns the rendering defaults.
func DefaultTextOptions() TextOptions {
	return TextOptions{
		MaxStackFrames: DefaultMaxStackFrames,
		ShowFileInfo:   true,
	}
}

// textStyles holds the lipgloss styles for each part of the report.
type textStyles struct {
	enabled     bool
	rootCause   lipgloss.Style
	heading     lipgloss.Style
	highlighted lipgloss.Style
	location    lipgloss.Style
	muted       lipgloss.Style
}

func newTextStyles(color bool) textStyles {
	return textStyles{
		enabled:     color,
		rootCause:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E06C75")),
		heading:     lipgloss.NewStyle().Bold(true).Underline(true),
		highlighted: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E5C07B")),
		location:    lipgloss.NewStyle().Foreground(lipgloss.Color("#61AFEF")),
		muted:       lipgloss.NewStyle().Foreground(lipgloss.Color("#5C6370")),
	}
}

// paint leaves text untouched when colour is off; lipgloss would still
// rewrite tabs.
func (st textStyles) paint(s lipgloss.Style, text string) string {
	if !st.enabled {
		return text
	}
	return s.Render(text)
}

// RenderText renders a result for people: the root cause, the visible frames
// of the root exception, the chain when there is more than one exception,
// and the frame statistics. A nil result renders as an empty string.
func RenderText(result *trace.AnalysisResult, opts TextOptions) string {
	if result == nil || result.RootException == nil {
		return ""
	}
	st := newTextStyles(opts.Color)
	root := result.RootException

	var sb strings.Builder
	sb.WriteString(st.paint(st.rootCause, fmt.Sprintf("Root Cause: %s: %s", root.Type, root.Message)))
	sb.WriteString("\n\n")

	if visible := root.VisibleFrames(); len(visible) > 0 {
		sb.WriteString(st.paint(st.heading, "Key Stack Frames:"))
		sb.WriteString("\n")

		shown := visible
		if opts.MaxStackFrames > 0 && len(shown) > opts.MaxStackFrames {
			shown = shown[:opts.MaxStackFrames]
		}
		for _, f := range shown {
			line := "  at " + f.FullMethodName()
			if f.Highlighted {
				line = st.paint(st.highlighted, line+" [!]")
			}
			sb.WriteString(line)
			sb.WriteString("\n")
			if opts.ShowFileInfo && f.HasLocation() {
				sb.WriteString(st.paint(st.location, fmt.Sprintf("     in %s:line %d", f.FileName, f.LineNumber)))
				sb.WriteString("\n")
			}
		}
		if hidden := len(visible) - len(shown); hidden > 0 {
			sb.WriteString(st.paint(st.muted, fmt.Sprintf("  ... %d more frames", hidden)))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if len(result.Chain) > 1 {
		sb.WriteString(st.paint(st.heading, "Exception Chain:"))
		sb.WriteString("\n")
		for i, node := range result.Chain {
			fmt.Fprintf(&sb, "  %d. %s: %s\n", i+1, node.Type, node.Message)
		}
		sb.WriteString("\n")
	}

	sb.WriteString(st.paint(st.muted, fmt.Sprintf("Statistics: %d visible / %d total frames (%d filtered)",
		result.VisibleFrames, result.TotalFrames, result.FilteredFrames)))
	sb.WriteString("\n")
	return sb.String()
}

// TextReporter streams RenderText output, one block per input.
type TextReporter struct {
	writer io.WriteCloser
	opts   TextOptions
	mu     sync.Mutex
	count  int
}

// NewTextReporter creates a text reporter that owns writer.
func NewTextReporter(writer io.WriteCloser, opts TextOptions) *TextReporter {
	return &TextReporter{writer: writer, opts: opts}
}

// Write renders one result. Blocks are separated by a blank line, and each
// is headed by its source when one is given.
func (r *TextReporter) Write(source string, result *trace.AnalysisResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var sb strings.Builder
	if r.count > 0 {
		sb.WriteString("\n")
	}
	if source != "" {
		fmt.Fprintf(&sb, "==> %s <==\n", source)
	}
	if result == nil {
		sb.WriteString(NoExceptionNotice)
		sb.WriteString("\n")
	} else {
		sb.WriteString(RenderText(result, r.opts))
	}
	r.count++

	if _, err := io.WriteString(r.writer, sb.String()); err != nil {
		return fmt.Errorf("failed to write text report: %w", err)
	}
	return nil
}

// Close closes the underlying writer.
func (r *TextReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.writer.Close(); err != nil {
		return fmt.Errorf("failed to close output writer: %w", err)
	}
	return nil
}
