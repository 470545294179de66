package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xelth-com/eckmrpgo/internal/utils"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out, "eckmrp dev") {
		t.Errorf("Unexpected output %q", out)
	}
}

func TestImportDryRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.yaml")
	if err := os.WriteFile(path, []byte("processes:\n  - name: P\n    uom: Unit\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, "import", "--dry-run", path)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if !strings.Contains(out, "1 process definitions are valid") {
		t.Errorf("Unexpected output %q", out)
	}
	importDryRun = false
}

func TestToken(t *testing.T) {
	t.Setenv("NODE_ENV", "development")
	t.Setenv("JWT_SECRET", "cli-secret")
	t.Setenv("LOG_LEVEL", "error")
	out, err := run(t, "token", "board", "--role", utils.RolePlanner)
	if err != nil {
		t.Fatalf("token failed: %v", err)
	}
	claims, err := utils.ValidateToken(strings.TrimSpace(out), "cli-secret")
	if err != nil {
		t.Fatalf("Issued token invalid: %v", err)
	}
	if claims["role"] != utils.RolePlanner || claims["sub"] != "board" {
		t.Errorf("Unexpected claims %v", claims)
	}

	if _, err := run(t, "token", "board", "--role", "root"); err == nil {
		t.Error("Expected unknown role error")
	}
	tokenRole = utils.RoleViewer
}
