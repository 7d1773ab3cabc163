package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"contextengine/internal/plugin"
	"contextengine/internal/plugin/sqldb"
)

// runCmd executes the shared package-level rootCmd with args and returns
// everything it wrote to stdout and stderr. Flag variables are
// package-level too, so a value set by one invocation persists into the
// next unless that invocation sets it again.
func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	rootCmd.SetArgs(args)
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestInit_ScaffoldsProject(t *testing.T) {
	dir := t.TempDir()

	out, err := runCmd(t, "init", "--project", dir)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if out == "" {
		t.Errorf("expected init output, got empty")
	}

	for _, p := range []string{
		filepath.Join(dir, "src", "files"),
		filepath.Join(dir, "src", "databases"),
		filepath.Join(dir, "dce.ini"),
	} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected %s to exist: %v", p, err)
		}
	}
}

func TestInit_FailsIfAlreadyInitialised(t *testing.T) {
	dir := t.TempDir()
	if _, err := runCmd(t, "init", "--project", dir); err != nil {
		t.Fatalf("first init: %v", err)
	}
	if _, err := runCmd(t, "init", "--project", dir); err == nil {
		t.Fatalf("second init: want error, got nil")
	}
}

func TestInfo_ReportsUninitialisedProject(t *testing.T) {
	dir := t.TempDir()
	out, err := runCmd(t, "info", "--project", dir)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if !bytes.Contains([]byte(out), []byte("no project")) {
		t.Errorf("output = %q, want mention of missing project", out)
	}
}

func TestInfo_ReportsInitialisedProject(t *testing.T) {
	dir := t.TempDir()
	if _, err := runCmd(t, "init", "--project", dir); err != nil {
		t.Fatalf("init: %v", err)
	}
	out, err := runCmd(t, "info", "--project", dir)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if !bytes.Contains([]byte(out), []byte("project-id")) {
		t.Errorf("output = %q, want project-id", out)
	}
}

func TestBuild_EmptyProjectSucceeds(t *testing.T) {
	dir := t.TempDir()
	if _, err := runCmd(t, "init", "--project", dir); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := runCmd(t, "build", "--project", dir); err != nil {
		t.Fatalf("build: %v", err)
	}
}

func TestDatasourceValidate_SkipsWhenNoPluginMatches(t *testing.T) {
	dir := t.TempDir()
	if _, err := runCmd(t, "init", "--project", dir); err != nil {
		t.Fatalf("init: %v", err)
	}

	cfgPath := filepath.Join(dir, "src", "databases", "nope.yaml")
	if err := os.WriteFile(cfgPath, []byte("type: nonexistent_backend\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	out, err := runCmd(t, "datasource", "validate", "--project", dir)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !bytes.Contains([]byte(out), []byte("skipped")) {
		t.Errorf("output = %q, want skipped", out)
	}
}

func TestDecodeDatasourceConfig_RejectsMissingRequiredField(t *testing.T) {
	registry := plugin.NewRegistry()
	p := sqldb.New()
	if err := registry.Register(p); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	validated, err := decodeDatasourceConfig(p, map[string]any{"type": "postgres"})
	if err != nil {
		t.Fatalf("decodeDatasourceConfig() error = %v, want a decoded (if unvalidated) struct", err)
	}
	if err := registry.ValidateConfig(p, validated); err == nil {
		t.Errorf("ValidateConfig() with missing dsn: want error, got nil")
	}
}

func TestDatasourceFilter(t *testing.T) {
	if f := datasourceFilter(nil); f != nil {
		t.Errorf("datasourceFilter(nil) = %v, want nil", f)
	}
	f := datasourceFilter([]string{"files/a.md", "files/b.md"})
	if !f["files/a.md"] || f["files/c.md"] {
		t.Errorf("datasourceFilter = %+v, unexpected membership", f)
	}
}
