package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func TestInitThenGenerateCommand(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MIGRATION_DIR", dir)

	if out, err := runRoot(t, "init", "--module-path", "example.com/acme/migrations"); err != nil {
		t.Fatalf("init: %v (output: %s)", err, out)
	}

	out, err := runRoot(t, "generate", "add index", "--module-path", "example.com/acme/migrations")
	if err != nil {
		t.Fatalf("generate: %v (output: %s)", err, out)
	}

	if _, err := os.Stat(filepath.Join(dir, "migrations.go")); err != nil {
		t.Errorf("expected migrations.go to exist: %v", err)
	}
}

func TestGenerateMessageFlagDoesNotRenameFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MIGRATION_DIR", dir)

	if out, err := runRoot(t, "init", "--module-path", "example.com/acme/migrations"); err != nil {
		t.Fatalf("init: %v (output: %s)", err, out)
	}

	out, err := runRoot(t, "generate", "add_index", "-m", "add an index for search", "--module-path", "example.com/acme/migrations")
	if err != nil {
		t.Fatalf("generate: %v (output: %s)", err, out)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "version_*_add_index.go"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one generated file named after <name>, got %v in %q", matches, out)
	}

	src, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read %s: %v", matches[0], err)
	}
	if !bytes.Contains(src, []byte(`Message:        "add an index for search"`)) {
		t.Errorf("generated file should carry the -m message, got:\n%s", src)
	}
}

func TestInitRequiresModulePath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MIGRATION_DIR", dir)

	if _, err := runRoot(t, "init"); err == nil {
		t.Fatal("expected init without --module-path to fail")
	}
}

// runRoot resets every flag's Changed state before executing, since
// rootCmd is a package-level singleton shared across test cases.
func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Changed = false
		f.Value.Set(f.DefValue)
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}
