package agent

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"syscall"
	"time"
)

// ExecResult holds the result of a command execution.
type ExecResult struct {
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ExitCode   int    `json:"exit_code"`
	TimedOut   bool   `json:"timed_out"`
	DurationMs int64  `json:"duration_ms"`
}

// Output returns combined stdout and stderr, trimmed.
func (r ExecResult) Output() string {
	combined := r.Stdout
	if r.Stderr != "" {
		if combined != "" {
			combined += "\n"
		}
		combined += r.Stderr
	}
	return strings.TrimSpace(combined)
}

// SearchMatch is one regex hit produced by SearchFiles.
type SearchMatch struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Content string `json:"content"`
}

func (m SearchMatch) String() string {
	return fmt.Sprintf("%s:%d:%s", m.File, m.Line, m.Content)
}

// Workspace abstracts where tool operations run. Tool executors receive only
// this interface plus their own parameters, never the transcript.
type Workspace interface {
	ReadFile(path string) (string, error)
	WriteFile(path string, content string) error
	ListFiles(path string, recursive bool) ([]string, error)
	SearchFiles(path string, pattern string, filePattern string) ([]SearchMatch, error)
	ExecCommand(ctx context.Context, command string, timeoutMs int) (*ExecResult, error)

	WorkingDirectory() string
	Platform() string
}

// sensitiveEnvPatterns are case-insensitive suffixes for environment variables
// excluded from child process environments.
var sensitiveEnvPatterns = []string{
	"_API_KEY",
	"_SECRET",
	"_TOKEN",
	"_PASSWORD",
	"_CREDENTIAL",
}

func isSensitiveEnvVar(name string) bool {
	upper := strings.ToUpper(name)
	for _, pattern := range sensitiveEnvPatterns {
		if strings.HasSuffix(upper, pattern) {
			return true
		}
	}
	return false
}

func filterEnvironment() []string {
	var filtered []string
	for _, kv := range os.Environ() {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			continue
		}
		if !isSensitiveEnvVar(parts[0]) {
			filtered = append(filtered, kv)
		}
	}
	return filtered
}

// LocalWorkspace runs tools on the local machine, resolving relative paths
// against a working directory.
type LocalWorkspace struct {
	workingDir string
}

// NewLocalWorkspace creates a local workspace rooted at workingDir
// (the process working directory when empty).
func NewLocalWorkspace(workingDir string) *LocalWorkspace {
	if workingDir == "" {
		workingDir, _ = os.Getwd()
	}
	return &LocalWorkspace{workingDir: workingDir}
}

func (w *LocalWorkspace) WorkingDirectory() string { return w.workingDir }

func (w *LocalWorkspace) Platform() string { return runtime.GOOS + "/" + runtime.GOARCH }

func (w *LocalWorkspace) resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(w.workingDir, path)
}

func (w *LocalWorkspace) ReadFile(path string) (string, error) {
	data, err := os.ReadFile(w.resolvePath(path))
	if err != nil {
		return "", fmt.Errorf("read_file: %w", err)
	}
	return string(data), nil
}

func (w *LocalWorkspace) WriteFile(path string, content string) error {
	resolved := w.resolvePath(path)
	if dir := filepath.Dir(resolved); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("write_to_file: create directory: %w", err)
		}
	}
	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write_to_file: %w", err)
	}
	return nil
}

// ListFiles returns entry names for a directory, or slash-suffixed relative
// paths for directories plus file paths when recursive.
func (w *LocalWorkspace) ListFiles(path string, recursive bool) ([]string, error) {
	resolved := w.resolvePath(path)

	if !recursive {
		entries, err := os.ReadDir(resolved)
		if err != nil {
			return nil, fmt.Errorf("list_files: %w", err)
		}
		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			names = append(names, entry.Name())
		}
		sort.Strings(names)
		return names, nil
	}

	var results []string
	err := filepath.WalkDir(resolved, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == resolved {
			return nil
		}
		rel, relErr := filepath.Rel(resolved, p)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			rel += "/"
		}
		results = append(results, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list_files: %w", err)
	}
	sort.Strings(results)
	return results, nil
}

// SearchFiles walks path, applying pattern line by line to files whose base
// name matches filePattern ("*" when empty). Unreadable files are skipped.
func (w *LocalWorkspace) SearchFiles(path string, pattern string, filePattern string) ([]SearchMatch, error) {
	resolved := w.resolvePath(path)

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("search_files: invalid regex: %w", err)
	}
	if filePattern == "" {
		filePattern = "*"
	}

	var matches []SearchMatch
	err = filepath.WalkDir(resolved, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ok, matchErr := filepath.Match(filePattern, d.Name())
		if matchErr != nil {
			return fmt.Errorf("invalid file pattern: %w", matchErr)
		}
		if !ok {
			return nil
		}

		data, readErr := os.ReadFile(p)
		if readErr != nil {
			return nil
		}
		rel, relErr := filepath.Rel(resolved, p)
		if relErr != nil {
			rel = p
		}
		for i, line := range strings.Split(string(data), "\n") {
			if re.MatchString(line) {
				matches = append(matches, SearchMatch{
					File:    filepath.ToSlash(rel),
					Line:    i + 1,
					Content: strings.TrimRight(line, "\r"),
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("search_files: %w", err)
	}
	return matches, nil
}

// ExecCommand runs a shell command with a timeout, returning captured output
// and exit status. The command runs in its own process group so a timeout can
// kill the whole tree.
func (w *LocalWorkspace) ExecCommand(ctx context.Context, command string, timeoutMs int) (*ExecResult, error) {
	if timeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
		defer cancel()
	}

	shell, shellArg := "/bin/sh", "-c"
	if runtime.GOOS == "windows" {
		shell, shellArg = "cmd.exe", "/c"
	}

	cmd := exec.CommandContext(ctx, shell, shellArg, command)
	cmd.Dir = w.workingDir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Env = filterEnvironment()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()

	result := &ExecResult{
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		DurationMs: time.Since(start).Milliseconds(),
	}

	if runErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			result.TimedOut = true
			result.ExitCode = -1
			if cmd.Process != nil {
				_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
			}
		} else if exitErr, ok := runErr.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("execute_command: %w", runErr)
		}
	}
	return result, nil
}
