package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	cfgPath := filepath.Join(base, "slate.toml")
	content := fmt.Sprintf(`[paths]
jobs_root = %q
cache_dir = %q
log_dir = %q

[registry]
enabled = false

[disk_cache]
enabled = false
`, filepath.Join(base, "jobs"), filepath.Join(base, "cache"), filepath.Join(base, "logs"))
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return cfgPath
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestJobsCommandEmptyRoot(t *testing.T) {
	cfgPath := writeTestConfig(t)
	out, err := runCommand(t, "--config", cfgPath, "jobs")
	if err != nil {
		t.Fatal(err)
	}
	if out == "" {
		t.Fatal("expected output")
	}
}

func TestJobsCommandListsJobs(t *testing.T) {
	cfgPath := writeTestConfig(t)
	jobsRoot := filepath.Join(filepath.Dir(cfgPath), "jobs")
	if err := os.MkdirAll(filepath.Join(jobsRoot, "showA"), 0o755); err != nil {
		t.Fatal(err)
	}
	out, err := runCommand(t, "--config", cfgPath, "jobs")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains([]byte(out), []byte("showA")) {
		t.Fatalf("expected showA in output:\n%s", out)
	}
}

func TestEntitiesCommand(t *testing.T) {
	cfgPath := writeTestConfig(t)
	base := filepath.Dir(cfgPath)
	shotDir := filepath.Join(base, "jobs", "showA", "shots", "seq010", "sh010")
	if err := os.MkdirAll(shotDir, 0o755); err != nil {
		t.Fatal(err)
	}
	out, err := runCommand(t, "--config", cfgPath, "entities", "showA", "--shots")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains([]byte(out), []byte("sh010")) {
		t.Fatalf("expected sh010 in output:\n%s", out)
	}
}

func TestVersionUpCommand(t *testing.T) {
	cfgPath := writeTestConfig(t)
	base := filepath.Dir(cfgPath)
	workDir := filepath.Join(base, "jobs", "showA", "shots", "seq010", "sh010", "maya", "anim", "work")
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		t.Fatal(err)
	}
	workPath := filepath.Join(workDir, "sh010_anim_main_v001.ma")
	if err := os.WriteFile(workPath, []byte("scene"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := runCommand(t, "--config", cfgPath, "version-up", workPath, "--notes", "bump")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains([]byte(out), []byte("v002")) {
		t.Fatalf("expected v002 in output:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(workDir, "sh010_anim_main_v002.ma")); err != nil {
		t.Fatalf("v002 not created: %v", err)
	}
}

func TestCacheStatsCommand(t *testing.T) {
	base := t.TempDir()
	cfgPath := filepath.Join(base, "slate.toml")
	content := fmt.Sprintf(`[paths]
jobs_root = %q
cache_dir = %q
log_dir = %q

[registry]
enabled = false

[disk_cache]
enabled = true
max_gib = 1
`, filepath.Join(base, "jobs"), filepath.Join(base, "cache"), filepath.Join(base, "logs"))
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := runCommand(t, "--config", cfgPath, "cache", "stats")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains([]byte(out), []byte("ENTRIES")) || !bytes.Contains([]byte(out), []byte("MAX")) {
		t.Fatalf("unexpected stats output:\n%s", out)
	}
}

func TestConfigValidateCommand(t *testing.T) {
	out, err := runCommand(t, "config", "validate")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains([]byte(out), []byte("Configuration valid")) {
		t.Fatalf("unexpected output:\n%s", out)
	}
}
