// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "synergy.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != DefaultPort || cfg.Server.Host != DefaultHost {
		t.Fatalf("server = %+v", cfg.Server)
	}
	if cfg.Webhooks.MaxRetries != DefaultMaxRetries || cfg.Webhooks.RetryBaseDelay.Std() != time.Minute {
		t.Fatalf("webhooks = %+v", cfg.Webhooks)
	}
	if !cfg.Digest.Enabled || cfg.Digest.DailySchedule != DefaultDailySchedule {
		t.Fatalf("digest = %+v", cfg.Digest)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	if cfg.Server.Addr() == "" {
		t.Fatal("empty addr")
	}
}

func TestLoad_MissingFileIsFine(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != DefaultPort {
		t.Fatalf("port = %d", cfg.Server.Port)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 9100
storage:
  sqlite_path: /var/lib/synergy/synergy.db
webhooks:
  max_retries: 5
  retry_base_delay: 90s
logging:
  level: debug
  json: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr() != "127.0.0.1:9100" {
		t.Fatalf("addr = %s", cfg.Server.Addr())
	}
	if cfg.Storage.SQLitePath != "/var/lib/synergy/synergy.db" {
		t.Fatalf("sqlite path = %s", cfg.Storage.SQLitePath)
	}
	if cfg.Webhooks.MaxRetries != 5 || cfg.Webhooks.RetryBaseDelay.Std() != 90*time.Second {
		t.Fatalf("webhooks = %+v", cfg.Webhooks)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.JSON {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	// Untouched sections keep their defaults.
	if cfg.Digest.DailySchedule != DefaultDailySchedule {
		t.Fatalf("digest = %+v", cfg.Digest)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9100\n")

	t.Setenv("SYNERGY_PORT", "9200")
	t.Setenv("SYNERGY_DB_PATH", "/tmp/env.db")
	t.Setenv("SYNERGY_DIGEST_ENABLED", "false")
	t.Setenv("SYNERGY_WEBHOOK_RETRY_DELAY", "2m")
	t.Setenv("SYNERGY_OPENAI_API_KEY", "sk-test")
	t.Setenv("SYNERGY_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9200 {
		t.Fatalf("port = %d, want env override", cfg.Server.Port)
	}
	if cfg.Storage.SQLitePath != "/tmp/env.db" {
		t.Fatalf("sqlite path = %s", cfg.Storage.SQLitePath)
	}
	if cfg.Digest.Enabled {
		t.Fatal("digest should be disabled by env")
	}
	if cfg.Webhooks.RetryBaseDelay.Std() != 2*time.Minute {
		t.Fatalf("retry delay = %v", cfg.Webhooks.RetryBaseDelay.Std())
	}
	if cfg.AI.APIKey != "sk-test" || cfg.Logging.Level != "warn" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoad_GenericOpenAIKeyIsFallback(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-generic")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.AI.APIKey != "sk-generic" {
		t.Fatalf("api key = %q", cfg.AI.APIKey)
	}

	t.Setenv("SYNERGY_OPENAI_API_KEY", "sk-specific")
	cfg, err = Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.AI.APIKey != "sk-specific" {
		t.Fatalf("api key = %q, want the SYNERGY-specific key to win", cfg.AI.APIKey)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"bad yaml", "server: [not a map"},
		{"port out of range", "server:\n  port: 70000\n"},
		{"bad log level", "logging:\n  level: verbose\n"},
		{"bad duration", "webhooks:\n  retry_base_delay: soon\n"},
		{"negative retries", "webhooks:\n  max_retries: -1\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.yaml)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
