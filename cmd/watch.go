// File: cmd/watch.go
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/tracelens/internal/analyzer"
	"github.com/xkilldash9x/tracelens/internal/config"
	"github.com/xkilldash9x/tracelens/internal/observability"
	"github.com/xkilldash9x/tracelens/internal/reporting"
	"github.com/xkilldash9x/tracelens/internal/rules"
	"github.com/xkilldash9x/tracelens/internal/watcher"
)

// newWatchCmd creates and configures the `watch` command.
func newWatchCmd() *cobra.Command {
	watchCmd := &cobra.Command{
		Use:   "watch <logfile>",
		Short: "Follow a log file and report exceptions as they are written",
		Long: `Tails a log file, groups lines into log entries and analyzes each one.
Every entry holding an exception is reported as an incident until the
command is interrupted. Changes to the rules file are picked up live.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			return runWatch(ctx, observability.GetLogger(), cfg, args[0], cmd.OutOrStdout())
		},
	}

	watchCmd.Flags().StringP("format", "f", "text", "Output format: text, json or sarif")
	watchCmd.Flags().StringP("output", "o", "", "Output file path (default stdout)")
	watchCmd.Flags().StringP("rules", "r", "", "YAML rules file replacing the configured rules")
	watchCmd.Flags().Bool("color", false, "Colorize text output")
	watchCmd.Flags().Bool("from-start", false, "Analyze the existing file content before following")
	watchCmd.Flags().Bool("poll", false, "Poll for changes instead of using file system events")
	watchCmd.Flags().Float64("rate-limit", 5, "Maximum incidents per second (0 = unlimited)")

	return watchCmd
}

// runWatch follows logPath until ctx is cancelled. Cancellation is a normal
// stop and returns nil.
func runWatch(ctx context.Context, logger *zap.Logger, cfg config.Interface, logPath string, stdout io.Writer) (err error) {
	rs, err := buildRuleSet(cfg.Rules())
	if err != nil {
		return err
	}
	store := rules.NewStore(rs)

	if file := cfg.Rules().File; file != "" && cfg.Rules().HotReload {
		fw, err := rules.NewFileWatcher(file, store, logger)
		if err != nil {
			return fmt.Errorf("failed to set up rules hot reload: %w", err)
		}
		fw.SetDebounce(cfg.Rules().ReloadDebounce)
		if err := fw.Start(ctx); err != nil {
			fw.Stop()
			return fmt.Errorf("failed to start rules hot reload: %w", err)
		}
		defer fw.Stop()
	}

	reporter, err := newReporter(cfg.Report(), stdout, logger)
	if err != nil {
		return err
	}
	defer closeReporter(reporter, logger, &err)

	a := analyzer.New(store, logger, analyzer.WithMaxInnerDepth(cfg.Analyze().MaxInnerDepth))
	incidents := make(chan watcher.Incident, 64)
	wcfg := cfg.Watch()
	w, err := watcher.NewWatcher(logger, logPath, a, incidents, watcher.Config{
		EntryStartPattern: wcfg.EntryStartPattern,
		FlushInterval:     wcfg.FlushInterval,
		MaxEntryLines:     wcfg.MaxEntryLines,
		FromStart:         wcfg.FromStart,
		Poll:              wcfg.Poll,
		RateLimit:         wcfg.RateLimit,
		Burst:             wcfg.Burst,
	})
	if err != nil {
		return fmt.Errorf("failed to create log watcher: %w", err)
	}
	if err := w.Start(ctx); err != nil {
		return err
	}

	for {
		select {
		case inc := <-incidents:
			if err := writeIncident(reporter, inc); err != nil {
				return err
			}
		case <-w.Done():
			// Deliver anything sent before the watcher stopped.
			for {
				select {
				case inc := <-incidents:
					if err := writeIncident(reporter, inc); err != nil {
						return err
					}
				default:
					logger.Info("Log watch finished.",
						zap.Int64("entries", w.Entries()),
						zap.Int64("incidents", w.Emitted()),
						zap.Int64("suppressed", w.Suppressed()),
					)
					return nil
				}
			}
		}
	}
}

// writeIncident reports an incident, with its id, time and log entry when
// the reporter can carry them.
func writeIncident(reporter reporting.Reporter, inc watcher.Incident) error {
	var err error
	if iw, ok := reporter.(reporting.IncidentWriter); ok {
		err = iw.WriteIncident(inc.Source, reporting.Incident{
			ID:         inc.ID,
			DetectedAt: inc.DetectedAt,
			Entry:      inc.Entry,
		}, inc.Result)
	} else {
		err = reporter.Write(inc.Source, inc.Result)
	}
	if err != nil {
		return fmt.Errorf("failed to report incident %s: %w", inc.ID, err)
	}
	return nil
}
