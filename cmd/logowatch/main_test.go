package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	body := fmt.Sprintf(`
[paths]
data_dir = %q
report_dir = %q
log_dir = %q

[twitch]
client_id = "id"
client_secret = "secret"

[detection]
logo_path = %q

[monitor]
streamers = ["alpha", "bravo"]
`,
		filepath.Join(root, "data"),
		filepath.Join(root, "reports"),
		filepath.Join(root, "logs"),
		filepath.Join(root, "logo.png"))

	path := filepath.Join(root, "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestHistoryCommandEmptyStore(t *testing.T) {
	cfgPath := writeTestConfig(t)
	out, err := runCommand(t, "history", "--config", cfgPath)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out, "No checks recorded") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestStatusCommandShowsRoster(t *testing.T) {
	cfgPath := writeTestConfig(t)
	out, err := runCommand(t, "status", "--config", cfgPath)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(out, "alpha, bravo") {
		t.Fatalf("roster missing from output: %q", out)
	}
	if !strings.Contains(out, "Total checks") {
		t.Fatalf("history section missing: %q", out)
	}
}

func TestReportCommandWritesDashboard(t *testing.T) {
	cfgPath := writeTestConfig(t)
	out, err := runCommand(t, "report", "--config", cfgPath)
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if !strings.Contains(out, "Dashboard written to") {
		t.Fatalf("unexpected output: %q", out)
	}
	line := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(out), "Dashboard written to"))
	if _, err := os.Stat(line); err != nil {
		t.Fatalf("dashboard file missing: %v", err)
	}
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	if _, err := runCommand(t, "config", "init", "--path", target); err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}
	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected overwrite refusal")
	}
	if _, err := runCommand(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite failed: %v", err)
	}
}

func TestPruneCommandReportsCounts(t *testing.T) {
	cfgPath := writeTestConfig(t)
	out, err := runCommand(t, "prune", "--config", cfgPath)
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if !strings.Contains(out, "Removed 0 record(s)") {
		t.Fatalf("unexpected output: %q", out)
	}
}
