// Copyright (c) 2025 the vmlink authors
// vmlink - remote VM operations over chat
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRootCmdHasSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	want := map[string]bool{"migrate": false, "audit": false, "version": false}
	for _, sub := range cmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestRootCmdFlags(t *testing.T) {
	cmd := NewRootCmd()
	for _, name := range []string{"config", "database.type", "database.dsn", "language", "debug"} {
		if cmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("missing persistent flag %q", name)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"version"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	_ = out // the version line is printed to stdout directly
}

func TestMigrateCommandAgainstMemoryDB(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cmd := NewRootCmd()
	cmd.SetArgs([]string{"migrate", "--database.type", "sqlite", "--database.dsn", ":memory:"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
}

func TestAuditCommandAgainstMemoryDB(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"audit", "--database.type", "sqlite", "--database.dsn", ":memory:"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("audit failed: %v", err)
	}
	if strings.Contains(out.String(), "error") {
		t.Fatalf("unexpected output: %s", out.String())
	}
}

func TestFirstRunWritesDefaultConfig(t *testing.T) {
	configHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)

	cmd := NewRootCmd()
	cmd.SetArgs([]string{"migrate", "--database.type", "sqlite", "--database.dsn", ":memory:"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	path := filepath.Join(configHome, "vmlink", "vmlink.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("default config was not written on first run: %v", err)
	}
	if !strings.Contains(string(data), "database") {
		t.Fatalf("written config looks wrong: %s", data)
	}
}
