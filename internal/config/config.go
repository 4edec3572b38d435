// File: internal/config/config.go
package config

import (
	"fmt"
	"regexp"
	"time"

	"github.com/spf13/viper"
)

// Interface is the read-only view of the configuration handed to commands.
type Interface interface {
	Logger() LoggerConfig
	Rules() RulesConfig
	Report() ReportConfig
	Analyze() AnalyzeConfig
	Watch() WatchConfig
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	RulesCfg   RulesConfig   `mapstructure:"rules" yaml:"rules"`
	ReportCfg  ReportConfig  `mapstructure:"report" yaml:"report"`
	AnalyzeCfg AnalyzeConfig `mapstructure:"analyze" yaml:"analyze"`
	WatchCfg   WatchConfig   `mapstructure:"watch" yaml:"watch"`
}

var _ Interface = (*Config)(nil)

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig   { return c.LoggerCfg }
func (c *Config) Rules() RulesConfig     { return c.RulesCfg }
func (c *Config) Report() ReportConfig   { return c.ReportCfg }
func (c *Config) Analyze() AnalyzeConfig { return c.AnalyzeCfg }
func (c *Config) Watch() WatchConfig     { return c.WatchCfg }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// RulesConfig holds the inline frame classification rules. When File is set
// the rules file replaces the inline lists entirely.
type RulesConfig struct {
	File                     string        `mapstructure:"file" yaml:"file"`
	FilteredNamespaces       []string      `mapstructure:"filtered_namespaces" yaml:"filtered_namespaces"`
	HighlightedNamespaces    []string      `mapstructure:"highlighted_namespaces" yaml:"highlighted_namespaces"`
	FilteredClassNames       []string      `mapstructure:"filtered_class_names" yaml:"filtered_class_names"`
	HighlightedClassNames    []string      `mapstructure:"highlighted_class_names" yaml:"highlighted_class_names"`
	FilterFrameworkCalls     bool          `mapstructure:"filter_framework_calls" yaml:"filter_framework_calls"`
	HighlightApplicationCode bool          `mapstructure:"highlight_application_code" yaml:"highlight_application_code"`
	HotReload                bool          `mapstructure:"hot_reload" yaml:"hot_reload"`
	ReloadDebounce           time.Duration `mapstructure:"reload_debounce" yaml:"reload_debounce"`
}

// ReportConfig controls how results are rendered.
type ReportConfig struct {
	Format         string `mapstructure:"format" yaml:"format"`
	Output         string `mapstructure:"output" yaml:"output"`
	MaxStackFrames int    `mapstructure:"max_stack_frames" yaml:"max_stack_frames"`
	ShowFileInfo   bool   `mapstructure:"show_file_info" yaml:"show_file_info"`
	Color          bool   `mapstructure:"color" yaml:"color"`
}

// AnalyzeConfig controls one-shot analysis of files or stdin.
type AnalyzeConfig struct {
	FromLog       bool `mapstructure:"from_log" yaml:"from_log"`
	Concurrency   int  `mapstructure:"concurrency" yaml:"concurrency"`
	MaxInnerDepth int  `mapstructure:"max_inner_depth" yaml:"max_inner_depth"`
}

// WatchConfig controls live log following.
type WatchConfig struct {
	EntryStartPattern string        `mapstructure:"entry_start_pattern" yaml:"entry_start_pattern"`
	FlushInterval     time.Duration `mapstructure:"flush_interval" yaml:"flush_interval"`
	MaxEntryLines     int           `mapstructure:"max_entry_lines" yaml:"max_entry_lines"`
	FromStart         bool          `mapstructure:"from_start" yaml:"from_start"`
	Poll              bool          `mapstructure:"poll" yaml:"poll"`
	RateLimit         float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
	Burst             int           `mapstructure:"burst" yaml:"burst"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "tracelens")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "red")

	// -- Rules --
	v.SetDefault("rules.file", "")
	v.SetDefault("rules.filtered_namespaces", []string{"System.", "Microsoft.Extensions.", "Microsoft.AspNetCore."})
	v.SetDefault("rules.highlighted_namespaces", []string{})
	v.SetDefault("rules.filtered_class_names", []string{})
	v.SetDefault("rules.highlighted_class_names", []string{})
	v.SetDefault("rules.filter_framework_calls", true)
	v.SetDefault("rules.highlight_application_code", true)
	v.SetDefault("rules.hot_reload", true)
	v.SetDefault("rules.reload_debounce", "200ms")

	// -- Report --
	v.SetDefault("report.format", "text")
	v.SetDefault("report.output", "stdout")
	v.SetDefault("report.max_stack_frames", 50)
	v.SetDefault("report.show_file_info", true)
	v.SetDefault("report.color", false)

	// -- Analyze --
	v.SetDefault("analyze.from_log", false)
	v.SetDefault("analyze.concurrency", 4)
	v.SetDefault("analyze.max_inner_depth", 64)

	// -- Watch --
	v.SetDefault("watch.entry_start_pattern", "")
	v.SetDefault("watch.flush_interval", "250ms")
	v.SetDefault("watch.max_entry_lines", 2000)
	v.SetDefault("watch.from_start", false)
	v.SetDefault("watch.poll", false)
	v.SetDefault("watch.rate_limit", 5.0)
	v.SetDefault("watch.burst", 10)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

var validFormats = map[string]bool{"text": true, "json": true, "sarif": true}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.ReportCfg.Validate(); err != nil {
		return fmt.Errorf("report configuration invalid: %w", err)
	}
	if c.AnalyzeCfg.Concurrency <= 0 {
		return fmt.Errorf("analyze.concurrency must be a positive integer")
	}
	if c.AnalyzeCfg.MaxInnerDepth < 0 {
		return fmt.Errorf("analyze.max_inner_depth must not be negative")
	}
	if c.RulesCfg.HotReload && c.RulesCfg.ReloadDebounce <= 0 {
		return fmt.Errorf("rules.reload_debounce must be a positive duration")
	}
	if err := c.WatchCfg.Validate(); err != nil {
		return fmt.Errorf("watch configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the report settings.
func (r *ReportConfig) Validate() error {
	if !validFormats[r.Format] {
		return fmt.Errorf("format must be one of text, json, sarif (got %q)", r.Format)
	}
	if r.MaxStackFrames < 0 {
		return fmt.Errorf("max_stack_frames must not be negative")
	}
	return nil
}

// Validate checks the watch settings.
func (w *WatchConfig) Validate() error {
	if w.FlushInterval <= 0 {
		return fmt.Errorf("flush_interval must be a positive duration")
	}
	if w.MaxEntryLines <= 0 {
		return fmt.Errorf("max_entry_lines must be greater than 0")
	}
	if w.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative")
	}
	if w.RateLimit > 0 && w.Burst < 1 {
		return fmt.Errorf("burst must be at least 1 when rate_limit is set")
	}
	if w.EntryStartPattern != "" {
		if _, err := regexp.Compile(w.EntryStartPattern); err != nil {
			return fmt.Errorf("entry_start_pattern is not a valid regular expression: %w", err)
		}
	}
	return nil
}
