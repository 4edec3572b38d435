// internal/reporting/sarif_reporter.go
package reporting

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/tracelens/internal/reporting/sarif"
	"github.com/xkilldash9x/tracelens/internal/trace"
)

// Constants for tool identification in the SARIF report.
const (
	ToolName     = "tracelens"
	ToolInfoURI  = "https://github.com/xkilldash9x/tracelens"
	SARIFVersion = "2.1.0"
	SARIFSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
	rulePrefix   = "EXC-"
)

// ruleIDSanitizer collapses anything outside [A-Za-z0-9_.] into one hyphen.
var ruleIDSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_.]+`)

// SARIFReporter buffers one SARIF result per analyzed exception and writes
// the whole log on Close. It is thread safe.
type SARIFReporter struct {
	writer io.WriteCloser
	logger *zap.Logger
	log    *sarif.Log
	// mu protects the log structure and the rule index.
	mu sync.Mutex
	// ruleIndex maps an exception type to its position in the driver rules.
	ruleIndex map[string]int
}

// NewSARIFReporter creates a reporter that owns writer.
func NewSARIFReporter(writer io.WriteCloser, toolVersion string, logger *zap.Logger) *SARIFReporter {
	driver := &sarif.ToolComponent{
		Name:           ToolName,
		InformationURI: pString(ToolInfoURI),
		Rules:          []*sarif.ReportingDescriptor{},
	}
	if toolVersion != "" {
		driver.Version = pString(toolVersion)
	}

	return &SARIFReporter{
		writer: writer,
		logger: logger.Named("sarif_reporter"),
		log: &sarif.Log{
			Version: SARIFVersion,
			Schema:  SARIFSchema,
			Runs: []*sarif.Run{{
				Tool:    &sarif.Tool{Driver: driver},
				Results: []*sarif.Result{},
			}},
		},
		ruleIndex: make(map[string]int),
	}
}

// Write adds one result for the root exception. Inputs without an exception
// produce nothing.
func (r *SARIFReporter) Write(source string, result *trace.AnalysisResult) error {
	return r.add(source, result, nil)
}

// WriteIncident is Write with the incident id and detection time recorded in
// the result properties.
func (r *SARIFReporter) WriteIncident(source string, inc Incident, result *trace.AnalysisResult) error {
	extra := sarif.PropertyBag{"incidentId": inc.ID}
	if !inc.DetectedAt.IsZero() {
		extra["detectedAt"] = inc.DetectedAt.UTC().Format(time.RFC3339Nano)
	}
	return r.add(source, result, extra)
}

func (r *SARIFReporter) add(source string, result *trace.AnalysisResult, extra sarif.PropertyBag) error {
	if result == nil || result.RootException == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	root := result.RootException
	idx := r.ensureRule(root.Type)
	run := r.log.Runs[0]

	props := sarif.PropertyBag{
		"chainLength":    len(result.Chain),
		"totalFrames":    result.TotalFrames,
		"visibleFrames":  result.VisibleFrames,
		"filteredFrames": result.FilteredFrames,
	}
	if source != "" {
		props["source"] = source
	}
	for k, v := range extra {
		props[k] = v
	}

	run.Results = append(run.Results, &sarif.Result{
		RuleID:     run.Tool.Driver.Rules[idx].ID,
		RuleIndex:  idx,
		Message:    &sarif.Message{Text: pString(result.Summary)},
		Level:      sarif.LevelError,
		Locations:  createLocations(root),
		Properties: &props,
	})
	return nil
}

// Close finalizes the SARIF log and writes it to the output writer.
func (r *SARIFReporter) Close() error {
	startTime := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	run := r.log.Runs[0]
	r.logger.Info("Finalizing SARIF report",
		zap.Int("total_results", len(run.Results)),
		zap.Int("total_rules", len(run.Tool.Driver.Rules)),
	)

	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")

	encodeErr := encoder.Encode(r.log)
	// Always attempt to close the writer, regardless of encoding success.
	closeErr := r.writer.Close()

	if encodeErr != nil {
		r.logger.Error("Failed to encode SARIF log to JSON", zap.Error(encodeErr))
		return fmt.Errorf("failed to encode SARIF output: %w", encodeErr)
	}
	if closeErr != nil {
		r.logger.Error("Failed to close output writer", zap.Error(closeErr))
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}

	r.logger.Debug("Wrote SARIF report", zap.Duration("duration", time.Since(startTime)))
	return nil
}

// ensureRule returns the rule index for an exception type, registering it on
// first sight. Must be called while holding the mutex.
func (r *SARIFReporter) ensureRule(exceptionType string) int {
	if idx, ok := r.ruleIndex[exceptionType]; ok {
		return idx
	}

	driver := r.log.Runs[0].Tool.Driver
	idx := len(driver.Rules)
	driver.Rules = append(driver.Rules, &sarif.ReportingDescriptor{
		ID:               rulePrefix + sanitizeRuleName(exceptionType),
		Name:             pString(exceptionType),
		ShortDescription: &sarif.MultiformatMessageString{Text: pString(exceptionType)},
		FullDescription: &sarif.MultiformatMessageString{
			Text: pString(fmt.Sprintf("Root cause exception of type %s.", exceptionType)),
		},
		Properties: &sarif.PropertyBag{"tags": []string{"exception", "tracelens"}},
	})
	r.ruleIndex[exceptionType] = idx
	r.logger.Debug("Registering new SARIF rule definition", zap.String("exception_type", exceptionType))
	return idx
}

// sanitizeRuleName upper-cases a type name and keeps it to rule-ID characters.
// Distinct types that sanitize to the same ID keep distinct rule indexes.
func sanitizeRuleName(name string) string {
	sanitized := strings.Trim(ruleIDSanitizer.ReplaceAllString(strings.ToUpper(name), "-"), "-")
	if sanitized == "" {
		return "UNKNOWN"
	}
	return sanitized
}

// createLocations points at the highlighted frames of the root exception.
// Frames without a source file get a logical location only.
func createLocations(root *trace.ExceptionNode) []*sarif.Location {
	var locations []*sarif.Location
	for _, f := range root.HighlightedFrames() {
		loc := &sarif.Location{
			LogicalLocations: []*sarif.LogicalLocation{{
				FullyQualifiedName: pString(f.FullMethodName()),
				Kind:               pString("function"),
			}},
		}
		if f.HasLocation() {
			loc.PhysicalLocation = &sarif.PhysicalLocation{
				ArtifactLocation: &sarif.ArtifactLocation{URI: pString(toURI(f.FileName))},
				Region:           &sarif.Region{StartLine: f.LineNumber},
			}
		}
		locations = append(locations, loc)
	}
	return locations
}

// toURI turns Windows separators into forward slashes for artifact URIs.
func toURI(path string) string {
	return strings.ReplaceAll(path, `\`, "/")
}

// pString returns a pointer to the given string value.
func pString(s string) *string {
	return &s
}
