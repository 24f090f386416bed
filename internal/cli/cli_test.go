package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	content := "database:\n  dsn: " + filepath.Join(dir, "portal.db") + "\njwt:\n  secret: test\n"
	if errWrite := os.WriteFile(cfgPath, []byte(content), 0o600); errWrite != nil {
		t.Fatalf("write config: %v", errWrite)
	}
	return cfgPath
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		configPath = ""
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestMigrateAndReconcile(t *testing.T) {
	cfgPath := writeConfig(t)

	out, err := runCLI(t, "", "migrate", "--config", cfgPath)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !strings.Contains(out, "migrations applied") {
		t.Fatalf("unexpected migrate output %q", out)
	}

	out, err = runCLI(t, "", "reconcile", "--config", cfgPath)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !strings.Contains(out, "ledger consistent") {
		t.Fatalf("unexpected reconcile output %q", out)
	}
}

func TestAdminCreateReadsPasswordFromStdin(t *testing.T) {
	t.Setenv("PORTAL_ADMIN_PASSWORD", "")
	cfgPath := writeConfig(t)

	out, err := runCLI(t, "desk-pass-123\n", "admin", "create", "--config", cfgPath, "--username", "desk", "--super")
	if err != nil {
		t.Fatalf("admin create: %v", err)
	}
	if !strings.Contains(out, "created admin desk") || !strings.Contains(out, "super=true") {
		t.Fatalf("unexpected output %q", out)
	}
}
