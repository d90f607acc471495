// Package config loads hookable settings from YAML.
//
//	log:
//	  level: debug        # debug|info|warn|error
//	  format: text        # text|json
//	  source: false       # add source file:line to records
//	parallel:
//	  max_concurrency: 4  # 0 = unbounded
//	stages:               # hook name -> tap name -> stage
//	  processAssets:
//	    BPlugin: -100
//
// Files are validated against a JSON Schema before decoding, so unknown keys
// and mistyped values are reported instead of silently ignored.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"

	"github.com/rickchristie/hookable"
	"github.com/rickchristie/hookable/logging"
	"github.com/rickchristie/hookable/schema"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every error caused by the file's content.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config is the decoded configuration.
type Config struct {
	Log      LogConfig                 `yaml:"log"`
	Parallel ParallelConfig            `yaml:"parallel"`
	Stages   map[string]map[string]int `yaml:"stages"`
}

// LogConfig configures the logger built by [Config.Logger].
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
}

// ParallelConfig configures parallel hooks.
type ParallelConfig struct {
	MaxConcurrency int `yaml:"max_concurrency"`
}

var fileSchema = schema.MustCompile(schema.Closed(schema.Object(map[string]*schema.Property{
	"log": schema.Nested("Logging options", map[string]*schema.Property{
		"level":  schema.String("Minimum log level").Enum("debug", "info", "warn", "warning", "error").Default("info"),
		"format": schema.String("Log output format").Enum("text", "json").Default("text"),
		"source": schema.Boolean("Add the source location to log records").Default(false),
	}),
	"parallel": schema.Nested("Parallel hook options", map[string]*schema.Property{
		"max_concurrency": schema.Integer("Callbacks of one stage group run at once; 0 is unbounded").Min(0).Default(0),
	}),
	"stages": schema.Map("Stage overrides by hook name",
		schema.Map("Stage by tap name", schema.Integer("Stage").Raw()).Raw()),
})))

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log:    LogConfig{Level: "info", Format: "text"},
		Stages: map[string]map[string]int{},
	}
}

// Load reads and parses the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse validates and decodes YAML data. Keys missing from data keep their
// [Default] values.
func Parse(data []byte) (*Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	if err := fileSchema.Validate(raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if cfg.Stages == nil {
		cfg.Stages = map[string]map[string]int{}
	}
	return cfg, nil
}

// HookOptions returns the options for the hook with the given name: the
// parallel concurrency bound and the stage overrides configured for it.
func (c *Config) HookOptions(hookName string) []hookable.Option {
	opts := []hookable.Option{hookable.WithMaxConcurrency(c.Parallel.MaxConcurrency)}
	if stages := c.Stages[hookName]; len(stages) > 0 {
		opts = append(opts, hookable.WithStageOverrides(maps.Clone(stages)))
	}
	return opts
}

// Logger builds the configured logger writing to w.
func (c *Config) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	format, err := logging.ParseFormat(c.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return logging.NewWithOptions(w, format, &slog.HandlerOptions{
		Level:     level,
		AddSource: c.Log.Source,
	}), nil
}
