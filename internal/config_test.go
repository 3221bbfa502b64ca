package internal

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadConfig_DefaultsAndValidation(t *testing.T) {
	path := writeTempConfig(t, `
users:
  - name: alice
    id: a7f8d9e0-1b2c-4d3e-8f5a-6c7b8d9e0f1a
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Listen.Addr != "0.0.0.0:443" || cfg.Listen.Path != "/" {
		t.Fatalf("unexpected listen defaults: %+v", cfg.Listen)
	}
	if cfg.Dial.Timeout != 10*time.Second {
		t.Fatalf("dial timeout default = %v", cfg.Dial.Timeout)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("log level default = %q", cfg.Log.Level)
	}

	users := cfg.UserSet()
	if len(users) != 1 {
		t.Fatalf("UserSet() = %v", users)
	}
}

func TestLoadConfig_NoUsersRejected(t *testing.T) {
	path := writeTempConfig(t, "listen:\n  addr: 0.0.0.0:443\n")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for config with no users")
	}
}

func TestLoadConfig_InvalidUserID(t *testing.T) {
	path := writeTempConfig(t, `
users:
  - name: alice
    id: not-a-uuid
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for invalid user id")
	}
}

func TestLoadConfig_DuplicateUserID(t *testing.T) {
	path := writeTempConfig(t, `
users:
  - name: alice
    id: a7f8d9e0-1b2c-4d3e-8f5a-6c7b8d9e0f1a
  - name: bob
    id: a7f8d9e0-1b2c-4d3e-8f5a-6c7b8d9e0f1a
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for duplicate user id")
	}
}
