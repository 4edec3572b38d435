// internal/reporting/json_reporter.go
package reporting

import (
	"fmt"
	"io"
	"sync"
	"time"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/tracelens/internal/trace"
)

// JSONRecord is one line of the NDJSON output.
type JSONRecord struct {
	Source      string                `json:"source,omitempty"`
	Found       bool                  `json:"found"`
	RootType    string                `json:"root_type,omitempty"`
	RootMessage string                `json:"root_message,omitempty"`
	Summary     string                `json:"summary,omitempty"`
	Result      *trace.AnalysisResult `json:"result,omitempty"`

	// Set only for incidents found by watch.
	IncidentID string     `json:"incident_id,omitempty"`
	DetectedAt *time.Time `json:"detected_at,omitempty"`
	Entry      string     `json:"entry,omitempty"`
}

// NewJSONRecord flattens a result into a record. A nil result gives a record
// with Found set to false.
func NewJSONRecord(source string, result *trace.AnalysisResult) JSONRecord {
	rec := JSONRecord{Source: source}
	if result == nil || result.RootException == nil {
		return rec
	}
	rec.Found = true
	rec.RootType = result.RootException.Type
	rec.RootMessage = result.RootException.Message
	rec.Summary = result.Summary
	rec.Result = result
	return rec
}

// JSONReporter writes one JSON object per line, flushing as it goes so the
// output can be piped while a watch is running.
type JSONReporter struct {
	writer  io.WriteCloser
	encoder *json.Encoder
	logger  *zap.Logger
	mu      sync.Mutex
	written int
}

// NewJSONReporter creates a reporter that owns writer.
func NewJSONReporter(writer io.WriteCloser, logger *zap.Logger) *JSONReporter {
	encoder := json.NewEncoder(writer)
	encoder.SetEscapeHTML(false)
	return &JSONReporter{
		writer:  writer,
		encoder: encoder,
		logger:  logger.Named("json_reporter"),
	}
}

func (r *JSONReporter) Write(source string, result *trace.AnalysisResult) error {
	return r.encode(NewJSONRecord(source, result))
}

// WriteIncident writes the record with the incident id, detection time and
// raw log entry attached.
func (r *JSONReporter) WriteIncident(source string, inc Incident, result *trace.AnalysisResult) error {
	rec := NewJSONRecord(source, result)
	rec.IncidentID = inc.ID
	if !inc.DetectedAt.IsZero() {
		detectedAt := inc.DetectedAt
		rec.DetectedAt = &detectedAt
	}
	rec.Entry = inc.Entry
	return r.encode(rec)
}

func (r *JSONReporter) encode(rec JSONRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.encoder.Encode(rec); err != nil {
		return fmt.Errorf("failed to encode JSON record: %w", err)
	}
	r.written++
	return nil
}

func (r *JSONReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug("Closing JSON report.", zap.Int("records", r.written))
	if err := r.writer.Close(); err != nil {
		return fmt.Errorf("failed to close output writer: %w", err)
	}
	return nil
}
