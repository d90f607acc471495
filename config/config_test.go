package config

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rickchristie/hookable"
	"github.com/rickchristie/hookable/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	type input struct {
		data string
	}

	type expected struct {
		cfg             *Config
		hasErr          bool
		isValidationErr bool
	}

	tests := []struct {
		name     string
		input    input
		expected expected
	}{
		{
			name:     "empty file yields defaults",
			input:    input{data: ""},
			expected: expected{cfg: Default()},
		},
		{
			name: "full file",
			input: input{data: `
log:
  level: debug
  format: json
  source: true
parallel:
  max_concurrency: 4
stages:
  processAssets:
    BPlugin: -100
    APlugin: 10
`},
			expected: expected{cfg: &Config{
				Log:      LogConfig{Level: "debug", Format: "json", Source: true},
				Parallel: ParallelConfig{MaxConcurrency: 4},
				Stages: map[string]map[string]int{
					"processAssets": {"BPlugin": -100, "APlugin": 10},
				},
			}},
		},
		{
			name:  "partial file keeps other defaults",
			input: input{data: "log:\n  level: warn\n"},
			expected: expected{cfg: &Config{
				Log:    LogConfig{Level: "warn", Format: "text"},
				Stages: map[string]map[string]int{},
			}},
		},
		{
			name:     "unknown key",
			input:    input{data: "logging:\n  level: debug\n"},
			expected: expected{hasErr: true, isValidationErr: true},
		},
		{
			name:     "bad level",
			input:    input{data: "log:\n  level: verbose\n"},
			expected: expected{hasErr: true, isValidationErr: true},
		},
		{
			name:     "non-boolean source",
			input:    input{data: "log:\n  source: sometimes\n"},
			expected: expected{hasErr: true, isValidationErr: true},
		},
		{
			name:     "negative concurrency",
			input:    input{data: "parallel:\n  max_concurrency: -1\n"},
			expected: expected{hasErr: true, isValidationErr: true},
		},
		{
			name:     "non-integer stage",
			input:    input{data: "stages:\n  make:\n    A: early\n"},
			expected: expected{hasErr: true, isValidationErr: true},
		},
		{
			name:     "malformed yaml",
			input:    input{data: "log: [unterminated"},
			expected: expected{hasErr: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.input.data))

			if !tt.expected.hasErr {
				require.NoError(t, err)
				assert.Equal(t, tt.expected.cfg, cfg)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			var vErr *schema.ValidationError
			assert.Equal(t, tt.expected.isValidationErr, errors.As(err, &vErr))
		})
	}
}

func TestFileSchema_DefaultsMatchDefault(t *testing.T) {
	def := Default()
	props := fileSchema.Raw()["properties"].(map[string]any)
	section := func(name string) map[string]any {
		return props[name].(map[string]any)["properties"].(map[string]any)
	}

	tests := []struct {
		name     string
		prop     map[string]any
		expected any
	}{
		{name: "log.level", prop: section("log")["level"].(map[string]any), expected: def.Log.Level},
		{name: "log.format", prop: section("log")["format"].(map[string]any), expected: def.Log.Format},
		{name: "log.source", prop: section("log")["source"].(map[string]any), expected: def.Log.Source},
		{name: "parallel.max_concurrency", prop: section("parallel")["max_concurrency"].(map[string]any), expected: def.Parallel.MaxConcurrency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.prop["default"])
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hookable.yaml")
	require.NoError(t, os.WriteFile(path, []byte("parallel:\n  max_concurrency: 2\n"), 0o600))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Parallel.MaxConcurrency)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidConfig)
}

func TestConfig_HookOptions(t *testing.T) {
	cfg, err := Parse([]byte(`
stages:
  processAssets:
    BPlugin: -100
`))
	require.NoError(t, err)

	var order []string
	record := func(name string) hookable.SeriesFunc[int] {
		return func(ctx context.Context, in int) error {
			order = append(order, name)
			return nil
		}
	}

	h := hookable.NewAsyncSeriesHook(hookable.Define[int, hookable.Void]("processAssets"),
		cfg.HookOptions("processAssets")...)
	h.TapFunc(record("APlugin"), hookable.WithTapName("APlugin"))
	h.TapFunc(record("BPlugin"), hookable.WithTapName("BPlugin"))

	other := hookable.NewAsyncSeriesHook(hookable.Define[int, hookable.Void]("make"),
		cfg.HookOptions("make")...)
	other.TapFunc(record("make:APlugin"), hookable.WithTapName("APlugin"))
	other.TapFunc(record("make:BPlugin"), hookable.WithTapName("BPlugin"))

	require.NoError(t, h.Call(context.Background(), 0))
	require.NoError(t, other.Call(context.Background(), 0))

	assert.Equal(t, []string{"BPlugin", "APlugin", "make:APlugin", "make:BPlugin"}, order)
}

func TestConfig_Logger(t *testing.T) {
	cfg, err := Parse([]byte("log:\n  level: warn\n  format: json\n"))
	require.NoError(t, err)

	var buf bytes.Buffer
	logger, err := cfg.Logger(&buf)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	_, err = (&Config{Log: LogConfig{Level: "loud"}}).Logger(&buf)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConfig_LoggerSource(t *testing.T) {
	cfg, err := Parse([]byte("log:\n  format: json\n  source: true\n"))
	require.NoError(t, err)

	var buf bytes.Buffer
	logger, err := cfg.Logger(&buf)
	require.NoError(t, err)
	logger.Info("located")

	assert.Contains(t, buf.String(), `"source":`)
	assert.Contains(t, buf.String(), "config_test.go")
}
