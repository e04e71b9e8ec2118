// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads SynergyOS service configuration.
//
// Precedence, lowest to highest: built-in defaults, then the YAML
// config file, then SYNERGY_* environment variables. A missing config
// file is not an error; the defaults produce a runnable single-node
// setup under ~/.synergy.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultHost           = "0.0.0.0"
	DefaultPort           = 8900
	DefaultBusyTimeoutMS  = 5000
	DefaultMaxRetries     = 3
	DefaultRetryBaseDelay = time.Minute
	DefaultRatePerSecond  = 10
	DefaultRateBurst      = 20
	DefaultDailySchedule  = "0 8 * * *"
	DefaultWeeklySchedule = "0 9 * * 1"
	DefaultAIModel        = "gpt-4o-mini"
)

// Duration wraps time.Duration so YAML can express delays as strings
// like "90s" or "5m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full service configuration tree.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Webhooks WebhooksConfig `yaml:"webhooks"`
	Digest   DigestConfig   `yaml:"digest"`
	AI       AIConfig       `yaml:"ai"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the host:port the server binds to.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig configures the sqlite database and the badger-backed
// webhook outbox.
type StorageConfig struct {
	SQLitePath    string `yaml:"sqlite_path"`
	BusyTimeoutMS int    `yaml:"busy_timeout_ms"`
	OutboxPath    string `yaml:"outbox_path"`
}

// WebhooksConfig configures outbound webhook delivery.
type WebhooksConfig struct {
	MaxRetries     int           `yaml:"max_retries"`
	RetryBaseDelay Duration      `yaml:"retry_base_delay"`
	RatePerSecond  float64       `yaml:"rate_per_second"`
	RateBurst      int           `yaml:"rate_burst"`
}

// DigestConfig configures the scheduled digest jobs.
type DigestConfig struct {
	Enabled        bool   `yaml:"enabled"`
	DailySchedule  string `yaml:"daily_schedule"`
	WeeklySchedule string `yaml:"weekly_schedule"`
}

// AIConfig configures the model-assisted features. An empty APIKey
// disables model calls; the AI endpoints then serve their heuristic
// fallbacks.
type AIConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	JSON   bool   `yaml:"json"`
	LogDir string `yaml:"log_dir"`
}

// Default returns the built-in configuration.
func Default() *Config {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".synergy")
	return &Config{
		Server: ServerConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Storage: StorageConfig{
			SQLitePath:    filepath.Join(dataDir, "synergy.db"),
			BusyTimeoutMS: DefaultBusyTimeoutMS,
			OutboxPath:    filepath.Join(dataDir, "outbox"),
		},
		Webhooks: WebhooksConfig{
			MaxRetries:     DefaultMaxRetries,
			RetryBaseDelay: Duration(DefaultRetryBaseDelay),
			RatePerSecond:  DefaultRatePerSecond,
			RateBurst:      DefaultRateBurst,
		},
		Digest: DigestConfig{
			Enabled:        true,
			DailySchedule:  DefaultDailySchedule,
			WeeklySchedule: DefaultWeeklySchedule,
		},
		AI: AIConfig{
			Model: DefaultAIModel,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the effective configuration.
//
// Description: Starts from Default, merges the YAML file at path when
// it exists, then applies environment overrides. Path may be empty, in
// which case only defaults and the environment apply.
// Inputs: path - YAML config file location, may be empty.
// Outputs: the effective config, or an error for an unreadable or
// malformed file or an invalid resulting configuration.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if host := os.Getenv("SYNERGY_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SYNERGY_PORT"); port != "" {
		if parsed, err := strconv.Atoi(port); err == nil {
			c.Server.Port = parsed
		}
	}
	if path := os.Getenv("SYNERGY_DB_PATH"); path != "" {
		c.Storage.SQLitePath = path
	}
	if path := os.Getenv("SYNERGY_OUTBOX_PATH"); path != "" {
		c.Storage.OutboxPath = path
	}
	if retries := os.Getenv("SYNERGY_WEBHOOK_MAX_RETRIES"); retries != "" {
		if parsed, err := strconv.Atoi(retries); err == nil {
			c.Webhooks.MaxRetries = parsed
		}
	}
	if delay := os.Getenv("SYNERGY_WEBHOOK_RETRY_DELAY"); delay != "" {
		if parsed, err := time.ParseDuration(delay); err == nil {
			c.Webhooks.RetryBaseDelay = Duration(parsed)
		}
	}
	if enabled := os.Getenv("SYNERGY_DIGEST_ENABLED"); enabled != "" {
		if parsed, err := strconv.ParseBool(enabled); err == nil {
			c.Digest.Enabled = parsed
		}
	}
	if key := os.Getenv("SYNERGY_OPENAI_API_KEY"); key != "" {
		c.AI.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && c.AI.APIKey == "" {
		c.AI.APIKey = key
	}
	if model := os.Getenv("SYNERGY_AI_MODEL"); model != "" {
		c.AI.Model = model
	}
	if level := os.Getenv("SYNERGY_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if dir := os.Getenv("SYNERGY_LOG_DIR"); dir != "" {
		c.Logging.LogDir = dir
	}
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Server.Port)
	}
	if c.Storage.SQLitePath == "" {
		return fmt.Errorf("config: sqlite_path is required")
	}
	if c.Webhooks.MaxRetries < 0 {
		return fmt.Errorf("config: max_retries must be >= 0")
	}
	if c.Webhooks.RetryBaseDelay <= 0 {
		return fmt.Errorf("config: retry_base_delay must be positive")
	}
	if c.Webhooks.RatePerSecond <= 0 {
		return fmt.Errorf("config: rate_per_second must be positive")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.Logging.Level)
	}
	return nil
}
