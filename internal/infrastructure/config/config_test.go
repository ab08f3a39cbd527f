package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeConfig writes a config file into a temp dir and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

const validConfig = `
site:
  id: "test-site"
database:
  path: "/tmp/portero-test.db"
storage:
  notifications_file: "/tmp/notifications.json"
  upload_dir: "/tmp/uploads"
relay:
  port: 3000
  timeout: 10
api:
  host: "0.0.0.0"
  port: 5000
security:
  jwt:
    secret: "test-secret-key-at-least-32-chars!"
`

func TestLoad_ValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "test-site" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "test-site")
	}
	if cfg.Database.Path != "/tmp/portero-test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/portero-test.db")
	}
	if cfg.Storage.NotificationsFile != "/tmp/notifications.json" {
		t.Errorf("Storage.NotificationsFile = %q, want %q", cfg.Storage.NotificationsFile, "/tmp/notifications.json")
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Stream.PollInterval != 5 {
		t.Errorf("Stream.PollInterval = %d, want default 5", cfg.Stream.PollInterval)
	}
	if cfg.Stream.BufferSize != 8 {
		t.Errorf("Stream.BufferSize = %d, want default 8", cfg.Stream.BufferSize)
	}
	if cfg.Relay.Port != 3000 {
		t.Errorf("Relay.Port = %d, want 3000", cfg.Relay.Port)
	}
	if cfg.Audit.FlushInterval != 3600 {
		t.Errorf("Audit.FlushInterval = %d, want default 3600", cfg.Audit.FlushInterval)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want default info", cfg.Logging.Level)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "site: [unclosed"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("PORTERO_DATABASE_PATH", "/override/portero.db")
	t.Setenv("PORTERO_API_PORT", "9090")

	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/override/portero.db" {
		t.Errorf("Database.Path = %q, want env override", cfg.Database.Path)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}
}

func TestValidate_JWTSecret(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		wantErr string
	}{
		{"missing", "", "security.jwt.secret is required"},
		{"too short", "short", "at least 32 characters"},
		{"valid", "test-secret-key-at-least-32-chars!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Security.JWT.Secret = tt.secret

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_StreamAndRelay(t *testing.T) {
	cfg := defaultConfig()
	cfg.Security.JWT.Secret = "test-secret-key-at-least-32-chars!"
	cfg.Stream.PollInterval = 0
	cfg.Relay.Timeout = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error, got nil")
	}
	if !strings.Contains(err.Error(), "stream.poll_interval") {
		t.Errorf("Validate() error = %v, want poll_interval complaint", err)
	}
	if !strings.Contains(err.Error(), "relay.timeout") {
		t.Errorf("Validate() error = %v, want relay.timeout complaint", err)
	}
}
