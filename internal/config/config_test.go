// Copyright (c) 2025 the vmlink authors
// vmlink - remote VM operations over chat
// This source code is licensed under the MIT license found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

func testCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "vmlink", Run: func(cmd *cobra.Command, args []string) {}}
	cmd.Flags().String("database.type", "sqlite", "")
	cmd.Flags().String("database.dsn", "vmlink.db", "")
	cmd.Flags().String("language", "en", "")
	cmd.Flags().Bool("debug", false, "")
	return cmd
}

// isolate points cwd and the user config dir at fresh temp directories so
// tests never see (or write) real configuration.
func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	cfg, used, err := Load(testCmd(), "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if used != "" {
		t.Fatalf("no config file exists, yet Load reports %q", used)
	}
	if cfg.Database.Type != "sqlite" || cfg.Database.DSN != "vmlink.db" {
		t.Fatalf("unexpected database defaults: %+v", cfg.Database)
	}
	if cfg.Language != "en" || cfg.Debug {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("VMLINK_DATABASE_TYPE", "postgres")
	t.Setenv("VMLINK_DEBUG", "true")

	cfg, _, err := Load(testCmd(), "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database.Type != "postgres" {
		t.Fatalf("env override ignored: %+v", cfg.Database)
	}
	if !cfg.Debug {
		t.Fatalf("debug env override ignored")
	}
}

func TestLoadExplicitFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	content := "database:\n  type: mysql\n  dsn: user:pw@/vmlink\nlanguage: ru\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, used, err := Load(testCmd(), path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if used != path {
		t.Fatalf("Load reported %q, want %q", used, path)
	}
	if cfg.Database.Type != "mysql" || cfg.Language != "ru" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)
	if _, _, err := Load(testCmd(), filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected an error for a missing explicit config file")
	}
}

func TestWriteFileRoundTrip(t *testing.T) {
	isolate(t)

	cfg := Config{
		Database: DatabaseConfig{Type: "postgres", DSN: "postgres://vmlink"},
		Language: "ru",
	}
	if err := WriteFile(&cfg, false); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	path, err := getConfigPath(false)
	if err != nil {
		t.Fatalf("getConfigPath failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Fatalf("config file mode = %o, want 0600", perm)
	}

	// The written file is found through the normal search path.
	loaded, used, err := Load(testCmd(), "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if used != path {
		t.Fatalf("Load used %q, want %q", used, path)
	}
	if loaded.Database.Type != "postgres" || loaded.Language != "ru" {
		t.Fatalf("written values not loaded back: %+v", loaded)
	}
}
