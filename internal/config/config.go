package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. PAGELOAD_PAGE_URL.
const EnvPrefix = "PAGELOAD"

// Config holds runtime options for normalizing a page-load capture.
type Config struct {
	InputPath      string   `mapstructure:"input" json:"input,omitempty"`
	OutputPath     string   `mapstructure:"output" json:"output,omitempty"`
	OutputType     string   `mapstructure:"output_type" json:"output_type,omitempty"` // stdout|file|jsonl|http
	ReportPath     string   `mapstructure:"report" json:"report,omitempty"`
	PageURL        string   `mapstructure:"page_url" json:"page_url,omitempty"`
	ExpandMessages bool     `mapstructure:"expand_messages" json:"expand_messages"`
	FilterMethods  []string `mapstructure:"filter_methods" json:"filter_methods,omitempty"`
	// HTTP sink
	SinkMaxRetries    int `mapstructure:"sink_max_retries" json:"sink_max_retries,omitempty"`
	SinkBackoffBaseMS int `mapstructure:"sink_backoff_base_ms" json:"sink_backoff_base_ms,omitempty"`
	// Server
	ListenAddr             string `mapstructure:"listen_addr" json:"listen_addr,omitempty"`
	MaxBodyBytes           int64  `mapstructure:"max_body_bytes" json:"max_body_bytes,omitempty"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds" json:"shutdown_timeout_seconds,omitempty"`
	// Logging
	LogLevel  string `mapstructure:"log_level" json:"log_level,omitempty"`   // debug, info, warn, error
	LogFormat string `mapstructure:"log_format" json:"log_format,omitempty"` // json, text
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		InputPath:              "-",
		OutputType:             "stdout",
		ExpandMessages:         true,
		SinkMaxRetries:         3,
		SinkBackoffBaseMS:      100,
		ListenAddr:             ":8080",
		MaxBodyBytes:           32 * 1024 * 1024,
		ShutdownTimeoutSeconds: 30,
		LogLevel:               "info",
		LogFormat:              "json",
	}
}

// Merge overlays non-zero values from override onto base. ExpandMessages is
// not merged since false is its meaningful override; set it directly.
func Merge(base, override Config) Config {
	result := base

	if override.InputPath != "" {
		result.InputPath = override.InputPath
	}
	if override.OutputPath != "" {
		result.OutputPath = override.OutputPath
	}
	if override.OutputType != "" {
		result.OutputType = override.OutputType
	}
	if override.ReportPath != "" {
		result.ReportPath = override.ReportPath
	}
	if override.PageURL != "" {
		result.PageURL = override.PageURL
	}
	if len(override.FilterMethods) > 0 {
		result.FilterMethods = override.FilterMethods
	}
	if override.SinkMaxRetries > 0 {
		result.SinkMaxRetries = override.SinkMaxRetries
	}
	if override.SinkBackoffBaseMS > 0 {
		result.SinkBackoffBaseMS = override.SinkBackoffBaseMS
	}
	if override.ListenAddr != "" {
		result.ListenAddr = override.ListenAddr
	}
	if override.MaxBodyBytes > 0 {
		result.MaxBodyBytes = override.MaxBodyBytes
	}
	if override.ShutdownTimeoutSeconds > 0 {
		result.ShutdownTimeoutSeconds = override.ShutdownTimeoutSeconds
	}
	if override.LogLevel != "" {
		result.LogLevel = override.LogLevel
	}
	if override.LogFormat != "" {
		result.LogFormat = override.LogFormat
	}

	return result
}

// Load layers defaults, the optional config file at path (YAML, JSON or
// TOML by extension) and PAGELOAD_* environment variables.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.FilterMethods = parseList(cfg.FilterMethods)
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("input", d.InputPath)
	v.SetDefault("output", d.OutputPath)
	v.SetDefault("output_type", d.OutputType)
	v.SetDefault("report", d.ReportPath)
	v.SetDefault("page_url", d.PageURL)
	v.SetDefault("expand_messages", d.ExpandMessages)
	v.SetDefault("filter_methods", d.FilterMethods)
	v.SetDefault("sink_max_retries", d.SinkMaxRetries)
	v.SetDefault("sink_backoff_base_ms", d.SinkBackoffBaseMS)
	v.SetDefault("listen_addr", d.ListenAddr)
	v.SetDefault("max_body_bytes", d.MaxBodyBytes)
	v.SetDefault("shutdown_timeout_seconds", d.ShutdownTimeoutSeconds)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
}

// ParseList splits comma/semicolon-separated values, dropping blanks.
func ParseList(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// parseList flattens list values that arrived as one delimited string.
func parseList(values []string) []string {
	var out []string
	for _, v := range values {
		out = append(out, ParseList(v)...)
	}
	return out
}

// Validate checks the configuration for common misconfigurations and returns
// an error describing all issues found.
func Validate(cfg Config) error {
	var errs []string

	switch strings.ToLower(cfg.OutputType) {
	case "", "stdout", "file", "jsonl", "http":
	default:
		errs = append(errs, fmt.Sprintf("invalid output_type %q: must be stdout, file, jsonl or http", cfg.OutputType))
	}

	if (strings.EqualFold(cfg.OutputType, "file") || strings.EqualFold(cfg.OutputType, "http")) && cfg.OutputPath == "" {
		errs = append(errs, "output is required when output_type is file or http")
	}

	if cfg.SinkMaxRetries < 0 {
		errs = append(errs, fmt.Sprintf("sink_max_retries cannot be negative: %d", cfg.SinkMaxRetries))
	}
	if cfg.SinkBackoffBaseMS < 0 {
		errs = append(errs, fmt.Sprintf("sink_backoff_base_ms cannot be negative: %d", cfg.SinkBackoffBaseMS))
	}
	if cfg.MaxBodyBytes < 0 {
		errs = append(errs, fmt.Sprintf("max_body_bytes cannot be negative: %d", cfg.MaxBodyBytes))
	}
	if cfg.ShutdownTimeoutSeconds < 0 {
		errs = append(errs, fmt.Sprintf("shutdown_timeout_seconds cannot be negative: %d", cfg.ShutdownTimeoutSeconds))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if cfg.LogLevel != "" && !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		errs = append(errs, fmt.Sprintf("invalid log_level %q: must be debug, info, warn, or error", cfg.LogLevel))
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if cfg.LogFormat != "" && !validLogFormats[strings.ToLower(cfg.LogFormat)] {
		errs = append(errs, fmt.Sprintf("invalid log_format %q: must be json or text", cfg.LogFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
