// File: cmd/helpers.go
package cmd

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/xkilldash9x/tracelens/internal/config"
	"github.com/xkilldash9x/tracelens/internal/reporting"
	"github.com/xkilldash9x/tracelens/internal/rules"
)

// buildRuleSet resolves the effective rule set. A rules file replaces the
// inline configuration lists entirely.
func buildRuleSet(cfg config.RulesConfig) (*rules.RuleSet, error) {
	if cfg.File != "" {
		rs, err := rules.LoadFile(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("failed to load rules file: %w", err)
		}
		return rs, nil
	}

	b := rules.NewBuilderFrom(&rules.RuleSet{}).
		WithFilterFrameworkCalls(cfg.FilterFrameworkCalls).
		WithHighlightApplicationCode(cfg.HighlightApplicationCode)
	for _, ns := range cfg.FilteredNamespaces {
		b.FilterNamespace(ns)
	}
	for _, ns := range cfg.HighlightedNamespaces {
		b.HighlightNamespace(ns)
	}
	for _, class := range cfg.FilteredClassNames {
		b.FilterClass(class)
	}
	for _, class := range cfg.HighlightedClassNames {
		b.HighlightClass(class)
	}
	return b.Build(), nil
}

// newReporter opens the configured report output. Stdout is the command's
// output stream so that it can be captured.
func newReporter(cfg config.ReportConfig, stdout io.Writer, logger *zap.Logger) (reporting.Reporter, error) {
	opts := reporting.Options{
		Text: reporting.TextOptions{
			MaxStackFrames: cfg.MaxStackFrames,
			ShowFileInfo:   cfg.ShowFileInfo,
			Color:          cfg.Color,
		},
		ToolVersion: Version,
		Logger:      logger,
	}

	var (
		reporter reporting.Reporter
		err      error
	)
	if cfg.Output == "" || cfg.Output == "stdout" {
		reporter, err = reporting.NewForWriter(cfg.Format, stdout, opts)
	} else {
		reporter, err = reporting.New(cfg.Format, cfg.Output, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize reporter: %w", err)
	}
	return reporter, nil
}

// closeReporter finalizes the report, keeping the first error.
func closeReporter(reporter reporting.Reporter, logger *zap.Logger, errp *error) {
	if err := reporter.Close(); err != nil {
		logger.Warn("Failed to close reporter cleanly.", zap.Error(err))
		if *errp == nil {
			*errp = fmt.Errorf("failed to finalize report: %w", err)
		}
	}
}
