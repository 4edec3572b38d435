// File: cmd/analyze.go
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/tracelens/internal/analyzer"
	"github.com/xkilldash9x/tracelens/internal/config"
	"github.com/xkilldash9x/tracelens/internal/logsource"
	"github.com/xkilldash9x/tracelens/internal/observability"
	"github.com/xkilldash9x/tracelens/internal/reporting"
	"github.com/xkilldash9x/tracelens/internal/rules"
)

// newAnalyzeCmd creates and configures the `analyze` command.
func newAnalyzeCmd() *cobra.Command {
	analyzeCmd := &cobra.Command{
		Use:   "analyze [files...]",
		Short: "Analyze exception reports or log files",
		Long: `Parses each input as an exception report, filters framework frames,
highlights application frames and prints the root cause. With no files,
standard input is read. Inputs ending in .gz or .br are decompressed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			return runAnalyze(ctx, observability.GetLogger(), cfg, args, cmd.OutOrStdout())
		},
	}

	analyzeCmd.Flags().Bool("from-log", false, "Treat inputs as log entries and extract the exception block first")
	analyzeCmd.Flags().StringP("format", "f", "text", "Output format: text, json or sarif")
	analyzeCmd.Flags().StringP("output", "o", "", "Output file path (default stdout)")
	analyzeCmd.Flags().StringP("rules", "r", "", "YAML rules file replacing the configured rules")
	analyzeCmd.Flags().Bool("color", false, "Colorize text output")
	analyzeCmd.Flags().Int("max-frames", 50, "Maximum stack frames shown in text output (0 = unlimited)")
	analyzeCmd.Flags().IntP("concurrency", "j", 4, "Number of inputs analyzed at once")

	return analyzeCmd
}

// runAnalyze contains the core, testable logic of the analyze command.
func runAnalyze(ctx context.Context, logger *zap.Logger, cfg config.Interface, paths []string, stdout io.Writer) (err error) {
	rs, err := buildRuleSet(cfg.Rules())
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		paths = []string{logsource.Stdin}
	}

	a := analyzer.New(rules.Static(rs), logger, analyzer.WithMaxInnerDepth(cfg.Analyze().MaxInnerDepth))
	results, err := a.AnalyzeFiles(ctx, paths, analyzer.BatchOptions{
		Concurrency: cfg.Analyze().Concurrency,
		FromLog:     cfg.Analyze().FromLog,
	})
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	reporter, err := newReporter(cfg.Report(), stdout, logger)
	if err != nil {
		return err
	}
	defer closeReporter(reporter, logger, &err)

	found := 0
	for _, fr := range results {
		if fr.Result != nil {
			found++
		}
		if err := reporter.Write(sourceLabel(fr.Source, len(results), cfg.Report().Format), fr.Result); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	logger.Info("Analysis complete.",
		zap.Int("inputs", len(results)),
		zap.Int("exceptions", found),
		zap.String("format", cfg.Report().Format),
	)
	return nil
}

// sourceLabel names an input in the report. A single text report needs no
// header.
func sourceLabel(source string, inputs int, format string) string {
	if format == reporting.FormatText && inputs <= 1 {
		return ""
	}
	if source == logsource.Stdin {
		return "stdin"
	}
	return source
}
