// internal/analyzer/batch.go
package analyzer

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/tracelens/internal/logsource"
	"github.com/xkilldash9x/tracelens/internal/trace"
)

// BatchOptions controls AnalyzeFiles.
type BatchOptions struct {
	// Concurrency bounds how many inputs are read and analyzed at once.
	// Zero or negative means runtime.NumCPU().
	Concurrency int
	// FromLog runs block extraction first, for inputs that are whole log
	// entries rather than bare exception reports.
	FromLog bool
}

// FileResult pairs an input path with its analysis. Result is nil when the
// input held no exception.
type FileResult struct {
	Source string
	Result *trace.AnalysisResult
}

// AnalyzeFiles analyzes every path concurrently and returns one FileResult
// per path, in input order. The first read error cancels the remaining work.
func (a *Analyzer) AnalyzeFiles(ctx context.Context, paths []string, opts BatchOptions) ([]FileResult, error) {
	limit := opts.Concurrency
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	results := make([]FileResult, len(paths))
	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	a.logger.Debug("Starting batch analysis.", zap.Int("inputs", len(paths)), zap.Int("concurrency", limit))

	for i, path := range paths {
		i, path := i, path
		if groupCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			text, err := logsource.ReadAll(path)
			if err != nil {
				return fmt.Errorf("failed to analyze %s: %w", path, err)
			}

			var result *trace.AnalysisResult
			if opts.FromLog {
				result = a.AnalyzeFromLog(text)
			} else {
				result = a.Analyze(text)
			}
			// Each goroutine owns exactly one slot.
			results[i] = FileResult{Source: path, Result: result}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
