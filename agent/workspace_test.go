package agent

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestLocalWorkspaceReadWriteRoundTrip(t *testing.T) {
	ws := NewLocalWorkspace(t.TempDir())

	if err := ws.WriteFile("sub/dir/a.txt", "hello\n"); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	content, err := ws.ReadFile("sub/dir/a.txt")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if content != "hello\n" {
		t.Errorf("expected raw content, got %q", content)
	}
}

func TestLocalWorkspaceReadMissingFile(t *testing.T) {
	ws := NewLocalWorkspace(t.TempDir())
	if _, err := ws.ReadFile("nope.txt"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLocalWorkspaceResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	ws := NewLocalWorkspace(dir)

	if err := ws.WriteFile("x.txt", "data"); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "x.txt")); err != nil {
		t.Errorf("file must land under the working directory: %v", err)
	}
}

func TestLocalWorkspaceListFiles(t *testing.T) {
	dir := t.TempDir()
	ws := NewLocalWorkspace(dir)
	for _, f := range []string{"b.txt", "a.txt", "sub/c.txt"} {
		if err := ws.WriteFile(f, ""); err != nil {
			t.Fatal(err)
		}
	}

	flat, err := ws.ListFiles(".", false)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !reflect.DeepEqual(flat, []string{"a.txt", "b.txt", "sub"}) {
		t.Errorf("unexpected flat listing: %v", flat)
	}

	deep, err := ws.ListFiles(".", true)
	if err != nil {
		t.Fatalf("recursive list failed: %v", err)
	}
	if !reflect.DeepEqual(deep, []string{"a.txt", "b.txt", "sub/", "sub/c.txt"}) {
		t.Errorf("unexpected recursive listing: %v", deep)
	}
}

func TestLocalWorkspaceSearchFiles(t *testing.T) {
	ws := NewLocalWorkspace(t.TempDir())
	if err := ws.WriteFile("main.go", "package main\n\nfunc main() {}\n"); err != nil {
		t.Fatal(err)
	}
	if err := ws.WriteFile("notes.txt", "func is a keyword\n"); err != nil {
		t.Fatal(err)
	}

	matches, err := ws.SearchFiles(".", `^func `, "*.go")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d: %v", len(matches), matches)
	}
	if matches[0].File != "main.go" || matches[0].Line != 3 {
		t.Errorf("unexpected match location: %+v", matches[0])
	}
	if matches[0].String() != "main.go:3:func main() {}" {
		t.Errorf("unexpected match rendering: %q", matches[0].String())
	}
}

func TestLocalWorkspaceSearchFilesBadRegex(t *testing.T) {
	ws := NewLocalWorkspace(t.TempDir())
	if _, err := ws.SearchFiles(".", "([unclosed", ""); err == nil {
		t.Error("expected error for invalid regex")
	}
}

func TestLocalWorkspaceExecCommand(t *testing.T) {
	ws := NewLocalWorkspace(t.TempDir())

	result, err := ws.ExecCommand(context.Background(), "echo hello", 5000)
	if err != nil {
		t.Fatalf("exec failed: %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("expected exit 0, got %d", result.ExitCode)
	}
	if strings.TrimSpace(result.Stdout) != "hello" {
		t.Errorf("unexpected stdout: %q", result.Stdout)
	}
}

func TestLocalWorkspaceExecCommandNonZeroExit(t *testing.T) {
	ws := NewLocalWorkspace(t.TempDir())

	result, err := ws.ExecCommand(context.Background(), "exit 3", 5000)
	if err != nil {
		t.Fatalf("non-zero exit is not an error: %v", err)
	}
	if result.ExitCode != 3 {
		t.Errorf("expected exit 3, got %d", result.ExitCode)
	}
}

func TestLocalWorkspaceExecCommandTimeout(t *testing.T) {
	ws := NewLocalWorkspace(t.TempDir())

	result, err := ws.ExecCommand(context.Background(), "sleep 5", 100)
	if err != nil {
		t.Fatalf("timeout is reported on the result, not as an error: %v", err)
	}
	if !result.TimedOut {
		t.Error("expected TimedOut to be set")
	}
}

func TestLocalWorkspaceExecCommandRunsInWorkingDir(t *testing.T) {
	dir := t.TempDir()
	ws := NewLocalWorkspace(dir)

	result, err := ws.ExecCommand(context.Background(), "pwd", 5000)
	if err != nil {
		t.Fatalf("exec failed: %v", err)
	}
	got := strings.TrimSpace(result.Stdout)
	want, _ := filepath.EvalSymlinks(dir)
	gotResolved, _ := filepath.EvalSymlinks(got)
	if gotResolved != want {
		t.Errorf("expected cwd %q, got %q", want, got)
	}
}

func TestIsSensitiveEnvVar(t *testing.T) {
	cases := map[string]bool{
		"OPENAI_API_KEY": true,
		"DB_PASSWORD":    true,
		"GITHUB_TOKEN":   true,
		"aws_secret":     true,
		"PATH":           false,
		"HOME":           false,
	}
	for name, want := range cases {
		if got := isSensitiveEnvVar(name); got != want {
			t.Errorf("isSensitiveEnvVar(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestExecResultOutput(t *testing.T) {
	r := ExecResult{Stdout: "out\n", Stderr: "err\n"}
	if got := r.Output(); got != "out\n\nerr" {
		t.Errorf("unexpected combined output: %q", got)
	}
	if (ExecResult{}).Output() != "" {
		t.Error("empty result must render empty")
	}
}
