// cliparse/cliparse_test.go
package cliparse

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "file:test.db")
	t.Setenv("ADMIN_EMAIL", "admin@school.example")
	t.Setenv("ADMIN_KEY_SALT", "test-salt")
	t.Setenv("VOTER_TOKEN_SALT", "test-voter")
}

func TestParseFlags_EnvVars(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("FEED_POLL_INTERVAL", "500ms")
	t.Setenv("BALLOT_BURST", "9")

	cfg, err := ParseFlags([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}
	if cfg.DatabaseType != "sqlite" {
		t.Errorf("expected default database type sqlite, got %s", cfg.DatabaseType)
	}
	if cfg.FeedPollInterval != 500*time.Millisecond {
		t.Errorf("expected poll interval 500ms, got %s", cfg.FeedPollInterval)
	}
	if cfg.BallotBurst != 9 {
		t.Errorf("expected burst 9, got %d", cfg.BallotBurst)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Errorf("unexpected log defaults: %s/%s", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.TrustProxy {
		t.Error("forwarded headers must not be trusted by default")
	}
}

func TestParseFlags_TrustProxy(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TRUST_PROXY", "true")

	cfg, err := ParseFlags([]string{})
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.TrustProxy {
		t.Error("expected TRUST_PROXY=true to enable forwarded headers")
	}

	t.Setenv("TRUST_PROXY", "")
	cfg, err = ParseFlags([]string{"-trust-proxy"})
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.TrustProxy {
		t.Error("expected -trust-proxy to enable forwarded headers")
	}
}

func TestParseFlags_CLIOverridesEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9000")

	cfg, err := ParseFlags([]string{"-p", "8080", "-t", "postgres", "-admin-email", "head@school.example"})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 8080 {
		t.Errorf("CLI should override env: expected 8080, got %d", cfg.Port)
	}
	if cfg.DatabaseType != "postgres" {
		t.Errorf("expected postgres, got %s", cfg.DatabaseType)
	}
	if cfg.AdminEmail != "head@school.example" {
		t.Errorf("expected CLI admin email, got %s", cfg.AdminEmail)
	}
}

func TestParseFlags_MissingRequired(t *testing.T) {
	tests := []struct {
		name  string
		unset string
	}{
		{"database url", "DATABASE_URL"},
		{"admin email", "ADMIN_EMAIL"},
		{"admin salt", "ADMIN_KEY_SALT"},
		{"voter salt", "VOTER_TOKEN_SALT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.unset, "")

			if _, err := ParseFlags([]string{}); err == nil {
				t.Errorf("expected error when %s is missing", tt.unset)
			}
		})
	}
}

func TestParseFlags_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"port", "PORT", "abc"},
		{"database type", "DATABASE_TYPE", "mysql"},
		{"poll interval", "FEED_POLL_INTERVAL", "soon"},
		{"ballot rate", "BALLOT_RATE", "-1"},
		{"trust proxy", "TRUST_PROXY", "sometimes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.val)

			if _, err := ParseFlags([]string{}); err == nil {
				t.Errorf("expected error for %s=%q", tt.key, tt.val)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("SCHOOL_ELECTION_DOTENV_TEST=loaded\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SCHOOL_ELECTION_DOTENV_TEST", "")
	os.Unsetenv("SCHOOL_ELECTION_DOTENV_TEST")

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("SCHOOL_ELECTION_DOTENV_TEST"); got != "loaded" {
		t.Errorf("expected value from .env, got %q", got)
	}
}

func TestLogger(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		level   string
		debug   bool
		info    bool
		warning bool
	}{
		{"debug", true, true, true},
		{"info", false, true, true},
		{"", false, true, true},
		{"warn", false, false, true},
		{"error", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := Config{LogLevel: tt.level, LogFormat: "json"}.Logger()

			if got := logger.Enabled(ctx, slog.LevelDebug); got != tt.debug {
				t.Errorf("debug enabled = %v, want %v", got, tt.debug)
			}
			if got := logger.Enabled(ctx, slog.LevelInfo); got != tt.info {
				t.Errorf("info enabled = %v, want %v", got, tt.info)
			}
			if got := logger.Enabled(ctx, slog.LevelWarn); got != tt.warning {
				t.Errorf("warn enabled = %v, want %v", got, tt.warning)
			}
		})
	}
}
