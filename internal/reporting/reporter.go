// internal/reporting/reporter.go
package reporting

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/xkilldash9x/tracelens/internal/trace"
)

// Supported output formats.
const (
	FormatText  = "text"
	FormatJSON  = "json"
	FormatSARIF = "sarif"
)

// ErrUnsupportedFormat is returned by New for an unknown format name.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// Reporter writes analysis results to an output.
type Reporter interface {
	// Write records the analysis of one input. A nil result means the input
	// held no exception.
	Write(source string, result *trace.AnalysisResult) error
	// Close finalizes the report and closes the underlying output.
	Close() error
}

// Incident identifies a result found while following a log.
type Incident struct {
	ID         string
	DetectedAt time.Time
	// Entry is the raw log entry the result was taken from.
	Entry string
}

// IncidentWriter is implemented by reporters that record incident metadata
// alongside the analysis. Callers fall back to Write for other reporters.
type IncidentWriter interface {
	WriteIncident(source string, inc Incident, result *trace.AnalysisResult) error
}

// Options configures the reporters built by New.
type Options struct {
	Text        TextOptions
	ToolVersion string
	Logger      *zap.Logger
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// New creates a reporter for format writing to outputPath. An empty path or
// "stdout" writes to standard output, which is never closed.
func New(format, outputPath string, opts Options) (Reporter, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	if err := validateFormat(format); err != nil {
		return nil, err
	}

	var writer io.WriteCloser
	if outputPath == "" || outputPath == "stdout" {
		writer = &nopWriteCloser{os.Stdout}
	} else {
		expanded, err := homedir.Expand(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to expand output path %s: %w", outputPath, err)
		}
		f, err := os.Create(expanded)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}

	return newForWriter(format, writer, opts), nil
}

// NewForWriter creates a reporter for format writing to w. Closing the
// reporter finalizes the report but leaves w open.
func NewForWriter(format string, w io.Writer, opts Options) (Reporter, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if err := validateFormat(format); err != nil {
		return nil, err
	}
	return newForWriter(format, &nopWriteCloser{w}, opts), nil
}

func validateFormat(format string) error {
	switch format {
	case FormatText, FormatJSON, FormatSARIF:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// newForWriter takes ownership of writer. format must already be validated.
func newForWriter(format string, writer io.WriteCloser, opts Options) Reporter {
	switch format {
	case FormatJSON:
		return NewJSONReporter(writer, opts.Logger)
	case FormatSARIF:
		return NewSARIFReporter(writer, opts.ToolVersion, opts.Logger)
	default:
		return NewTextReporter(writer, opts.Text)
	}
}
