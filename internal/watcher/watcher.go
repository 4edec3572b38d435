// internal/watcher/watcher.go
package watcher

import (
	"context"
	"fmt"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hpcloud/tail"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/tracelens/internal/trace"
)

// DefaultFlushInterval closes an entry when no new line arrives in time.
const DefaultFlushInterval = 250 * time.Millisecond

// EntryAnalyzer turns a complete log entry into an analysis, or nil when the
// entry holds no exception. *analyzer.Analyzer satisfies it.
type EntryAnalyzer interface {
	AnalyzeFromLog(logEntry string) *trace.AnalysisResult
}

// Incident is an exception found in a followed log.
type Incident struct {
	ID         string                `json:"id"`
	DetectedAt time.Time             `json:"detected_at"`
	Source     string                `json:"source"`
	Entry      string                `json:"entry"`
	Result     *trace.AnalysisResult `json:"result"`
}

// Config tunes entry assembly, tailing and incident rate limiting.
type Config struct {
	// EntryStartPattern is a regular expression matching the first line of a
	// log entry. Empty means DefaultEntryStartPattern.
	EntryStartPattern string
	// FlushInterval closes an entry after this much idle time.
	FlushInterval time.Duration
	// MaxEntryLines caps a buffered entry.
	MaxEntryLines int
	// FromStart reads the existing file content instead of only new lines.
	FromStart bool
	// Poll uses polling instead of inotify, for filesystems without events.
	Poll bool
	// RateLimit is the sustained number of incidents per second. Zero or
	// negative disables limiting.
	RateLimit float64
	// Burst is the number of incidents allowed at once above RateLimit.
	Burst int
}

// Watcher follows a log file, analyzes each entry and reports incidents.
type Watcher struct {
	logger    *zap.Logger
	path      string
	cfg       Config
	analyzer  EntryAnalyzer
	incidents chan<- Incident
	start     *regexp.Regexp
	limiter   *rate.Limiter

	entries    atomic.Int64
	emitted    atomic.Int64
	suppressed atomic.Int64
	done       chan struct{}
}

// NewWatcher validates the configuration and prepares a watcher for path.
// Incidents are sent on incidents; the caller owns and drains the channel.
func NewWatcher(logger *zap.Logger, path string, analyzer EntryAnalyzer, incidents chan<- Incident, cfg Config) (*Watcher, error) {
	if path == "" {
		return nil, fmt.Errorf("a log file to watch is required")
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand log path %s: %w", path, err)
	}

	pattern := cfg.EntryStartPattern
	if pattern == "" {
		pattern = DefaultEntryStartPattern
	}
	start, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid entry start pattern %q: %w", pattern, err)
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}

	limit, burst := rate.Inf, 0
	if cfg.RateLimit > 0 {
		limit, burst = rate.Limit(cfg.RateLimit), cfg.Burst
		if burst < 1 {
			burst = 1
		}
	}

	return &Watcher{
		logger:    logger.Named("log-watcher"),
		path:      expanded,
		cfg:       cfg,
		analyzer:  analyzer,
		incidents: incidents,
		start:     start,
		limiter:   rate.NewLimiter(limit, burst),
		done:      make(chan struct{}),
	}, nil
}

// Start begins tailing in a separate goroutine. It returns an error if the
// file cannot be tailed.
func (w *Watcher) Start(ctx context.Context) error {
	w.logger.Info("Starting log watcher...", zap.String("log", w.path), zap.Bool("from_start", w.cfg.FromStart))

	whence := 2
	if w.cfg.FromStart {
		whence = 0
	}
	t, err := tail.TailFile(w.path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: true,
		Poll:      w.cfg.Poll,
		Location:  &tail.SeekInfo{Offset: 0, Whence: whence},
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to tail log file: %w", err)
	}

	go w.monitorLoop(ctx, t)
	return nil
}

// Done is closed once the watcher has stopped and flushed its last entry.
func (w *Watcher) Done() <-chan struct{} { return w.done }

// Entries returns how many complete log entries were analyzed.
func (w *Watcher) Entries() int64 { return w.entries.Load() }

// Emitted returns how many incidents were sent.
func (w *Watcher) Emitted() int64 { return w.emitted.Load() }

// Suppressed returns how many incidents the rate limit dropped.
func (w *Watcher) Suppressed() int64 { return w.suppressed.Load() }

// monitorLoop reads lines and assembles them into entries. An entry is
// complete when the next entry starts or when the file goes quiet for
// FlushInterval.
func (w *Watcher) monitorLoop(ctx context.Context, t *tail.Tail) {
	defer close(w.done)
	defer func() {
		_ = t.Stop()
		t.Cleanup()
	}()

	assembler := newEntryAssembler(w.start, w.cfg.MaxEntryLines)
	timeout := time.NewTimer(w.cfg.FlushInterval)
	if !timeout.Stop() {
		<-timeout.C
	}
	defer timeout.Stop()

	flush := func() {
		if entry, ok := assembler.flush(); ok {
			w.handleEntry(ctx, entry)
		}
	}

	for {
		select {
		case <-ctx.Done():
			// The pending entry is analyzed but cannot be delivered on a
			// cancelled context; it is logged instead.
			flush()
			w.logger.Info("Stopping log watcher.",
				zap.Int64("entries", w.entries.Load()),
				zap.Int64("incidents", w.emitted.Load()),
				zap.Int64("suppressed", w.suppressed.Load()),
			)
			return

		case line, ok := <-t.Lines:
			if !ok {
				flush()
				w.logger.Info("Log file tailer channel closed.")
				return
			}
			if line.Err != nil {
				w.logger.Warn("Error reading from log file", zap.Error(line.Err))
				continue
			}

			for _, entry := range assembler.add(line.Text) {
				w.handleEntry(ctx, entry)
			}
			if assembler.pending() {
				timeout.Reset(w.cfg.FlushInterval)
			}

		case <-timeout.C:
			flush()
		}
	}
}

// handleEntry analyzes one entry and emits an incident when it holds an
// exception and the rate limit allows it.
func (w *Watcher) handleEntry(ctx context.Context, entry string) {
	w.entries.Add(1)
	result := w.analyzer.AnalyzeFromLog(entry)
	if result == nil {
		return
	}

	if !w.limiter.Allow() {
		w.suppressed.Add(1)
		w.logger.Warn("Incident rate limit exceeded; dropping incident.",
			zap.String("summary", result.Summary),
			zap.Int64("suppressed_total", w.suppressed.Load()),
		)
		return
	}

	incident := Incident{
		ID:         uuid.New().String(),
		DetectedAt: time.Now(),
		Source:     w.path,
		Entry:      entry,
		Result:     result,
	}
	w.logger.Info("Exception detected.", zap.String("incident_id", incident.ID), zap.String("summary", result.Summary))

	select {
	case w.incidents <- incident:
		w.emitted.Add(1)
	case <-ctx.Done():
		w.logger.Warn("Context cancelled while sending incident.", zap.String("incident_id", incident.ID))
	}
}
