package agent

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// CoreToolsOptions configures the built-in tool set.
type CoreToolsOptions struct {
	// DefaultCommandTimeoutMs applies to execute_command when the invocation
	// carries no timeout. Zero uses 10000.
	DefaultCommandTimeoutMs int
	// MaxCommandTimeoutMs caps invocation-supplied timeouts. Zero uses 600000.
	MaxCommandTimeoutMs int
	// AskUser collects a free-form answer for ask_followup_question. Nil
	// makes that tool report that no operator is available.
	AskUser func(question string) (string, error)
	// OnFileTouched is called with each path a file tool reads or writes.
	OnFileTouched func(path string)
	// OnFileRead is called with the content a file tool read or wrote, for
	// hosts keeping per-file context.
	OnFileRead func(path, content string)
}

// RegisterCoreTools registers the built-in tool set on a ToolRegistry.
// The tools delegate to the provided Workspace.
func RegisterCoreTools(reg *ToolRegistry, ws Workspace, opts CoreToolsOptions) {
	if opts.DefaultCommandTimeoutMs <= 0 {
		opts.DefaultCommandTimeoutMs = 10000
	}
	if opts.MaxCommandTimeoutMs <= 0 {
		opts.MaxCommandTimeoutMs = 600000
	}
	touched := opts.OnFileTouched
	if touched == nil {
		touched = func(string) {}
	}
	read := opts.OnFileRead
	if read == nil {
		read = func(string, string) {}
	}

	registerExecuteCommand(reg, ws, opts)
	registerReadFile(reg, ws, touched, read)
	registerWriteToFile(reg, ws, touched, read)
	registerReplaceInFile(reg, ws, touched, read)
	registerListFiles(reg, ws)
	registerSearchFiles(reg, ws)
	registerListCodeDefinitionNames(reg, ws)
	registerAskFollowupQuestion(reg, opts.AskUser)
}

func registerExecuteCommand(reg *ToolRegistry, ws Workspace, opts CoreToolsOptions) {
	reg.Register(ToolSpec{
		Name:        "execute_command",
		Description: "Run a shell command in the working directory and return its combined output and exit code.",
		Params: []ParamSpec{
			{Name: "command", Required: true, Description: "The shell command to execute."},
			{Name: "requires_approval", Description: "Set to 'true' for commands with side effects that the user must approve."},
			{Name: "timeout_ms", Description: "Command timeout in milliseconds."},
		},
		Approval:      ApprovalFromParam,
		ApprovalParam: "requires_approval",
		Strict:        true,
		Executor: func(params *Params) (string, error) {
			command, _ := params.Get("command")
			timeoutMs := opts.DefaultCommandTimeoutMs
			if raw, ok := params.Get("timeout_ms"); ok {
				if parsed, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && parsed > 0 {
					timeoutMs = parsed
				}
			}
			if timeoutMs > opts.MaxCommandTimeoutMs {
				timeoutMs = opts.MaxCommandTimeoutMs
			}

			result, err := ws.ExecCommand(context.Background(), command, timeoutMs)
			if err != nil {
				return "", &ToolError{Tool: "execute_command", Message: err.Error()}
			}
			if result.TimedOut {
				return "", &ToolError{
					Tool:    "execute_command",
					Message: fmt.Sprintf("command timed out after %dms", timeoutMs),
				}
			}

			output := result.Output()
			if output == "" {
				output = "(no output)"
			}
			if result.ExitCode != 0 {
				return fmt.Sprintf("%s\n\nExit code: %d", output, result.ExitCode), nil
			}
			return output, nil
		},
	})
}

func registerReadFile(reg *ToolRegistry, ws Workspace, touched func(string), read func(string, string)) {
	reg.Register(ToolSpec{
		Name:        "read_file",
		Description: "Read the contents of a file. The path is relative to the working directory.",
		Params: []ParamSpec{
			{Name: "path", Required: true, Description: "Path of the file to read."},
		},
		Executor: func(params *Params) (string, error) {
			path, _ := params.Get("path")
			content, err := ws.ReadFile(path)
			if err != nil {
				return "", &ToolError{Tool: "read_file", Message: err.Error()}
			}
			touched(path)
			read(path, content)
			return content, nil
		},
	})
}

func registerWriteToFile(reg *ToolRegistry, ws Workspace, touched func(string), read func(string, string)) {
	reg.Register(ToolSpec{
		Name:        "write_to_file",
		Description: "Write content to a file, creating it and any parent directories. Overwrites existing content.",
		Params: []ParamSpec{
			{Name: "path", Required: true, Description: "Path of the file to write."},
			{Name: "content", Required: true, Description: "The complete file content."},
		},
		Executor: func(params *Params) (string, error) {
			path, _ := params.Get("path")
			content, _ := params.Get("content")
			if err := ws.WriteFile(path, content); err != nil {
				return "", &ToolError{Tool: "write_to_file", Message: err.Error()}
			}
			touched(path)
			read(path, content)
			return fmt.Sprintf("Successfully wrote %d bytes to %s", len(content), path), nil
		},
	})
}

// searchReplaceBlock is one SEARCH/REPLACE pair from a replace_in_file diff.
type searchReplaceBlock struct {
	search  string
	replace string
}

const (
	searchMarker  = "------- SEARCH"
	divideMarker  = "======="
	replaceMarker = "+++++++ REPLACE"
)

// parseSearchReplaceBlocks parses the diff format used by replace_in_file:
// one or more blocks of
//
//	------- SEARCH
//	<exact existing text>
//	=======
//	<replacement text>
//	+++++++ REPLACE
func parseSearchReplaceBlocks(diff string) ([]searchReplaceBlock, error) {
	var blocks []searchReplaceBlock
	lines := strings.Split(diff, "\n")

	i := 0
	for i < len(lines) {
		if strings.TrimSpace(lines[i]) != searchMarker {
			i++
			continue
		}
		i++
		var search []string
		for i < len(lines) && strings.TrimSpace(lines[i]) != divideMarker {
			search = append(search, lines[i])
			i++
		}
		if i >= len(lines) {
			return nil, fmt.Errorf("malformed diff: SEARCH block without %q divider", divideMarker)
		}
		i++
		var replace []string
		for i < len(lines) && strings.TrimSpace(lines[i]) != replaceMarker {
			replace = append(replace, lines[i])
			i++
		}
		if i >= len(lines) {
			return nil, fmt.Errorf("malformed diff: block without %q terminator", replaceMarker)
		}
		i++
		blocks = append(blocks, searchReplaceBlock{
			search:  strings.Join(search, "\n"),
			replace: strings.Join(replace, "\n"),
		})
	}

	if len(blocks) == 0 {
		return nil, fmt.Errorf("diff contains no SEARCH/REPLACE blocks")
	}
	return blocks, nil
}

func registerReplaceInFile(reg *ToolRegistry, ws Workspace, touched func(string), read func(string, string)) {
	reg.Register(ToolSpec{
		Name: "replace_in_file",
		Description: "Apply targeted edits to a file using SEARCH/REPLACE blocks. " +
			"Each SEARCH section must match existing file content exactly.",
		Params: []ParamSpec{
			{Name: "path", Required: true, Description: "Path of the file to edit."},
			{Name: "diff", Required: true, Description: "One or more SEARCH/REPLACE blocks."},
		},
		Executor: func(params *Params) (string, error) {
			path, _ := params.Get("path")
			diff, _ := params.Get("diff")

			blocks, err := parseSearchReplaceBlocks(diff)
			if err != nil {
				return "", &ToolError{Tool: "replace_in_file", Message: err.Error()}
			}

			content, err := ws.ReadFile(path)
			if err != nil {
				return "", &ToolError{Tool: "replace_in_file", Message: err.Error()}
			}

			for n, block := range blocks {
				if !strings.Contains(content, block.search) {
					return "", &ToolError{
						Tool:    "replace_in_file",
						Message: fmt.Sprintf("SEARCH block %d does not match any content in %s", n+1, path),
					}
				}
				content = strings.Replace(content, block.search, block.replace, 1)
			}

			if err := ws.WriteFile(path, content); err != nil {
				return "", &ToolError{Tool: "replace_in_file", Message: err.Error()}
			}
			touched(path)
			read(path, content)
			return fmt.Sprintf("Applied %d replacement(s) to %s", len(blocks), path), nil
		},
	})
}

func registerListFiles(reg *ToolRegistry, ws Workspace) {
	reg.Register(ToolSpec{
		Name:        "list_files",
		Description: "List files and directories at a path. Directories carry a trailing slash in recursive listings.",
		Params: []ParamSpec{
			{Name: "path", Required: true, Description: "Directory to list."},
			{Name: "recursive", Description: "Set to 'true' to list recursively."},
		},
		Executor: func(params *Params) (string, error) {
			path, _ := params.Get("path")
			recursive := ParseBool(params.Get("recursive"))

			entries, err := ws.ListFiles(path, recursive)
			if err != nil {
				return "", &ToolError{Tool: "list_files", Message: err.Error()}
			}
			if len(entries) == 0 {
				return "(empty directory)", nil
			}
			return strings.Join(entries, "\n"), nil
		},
	})
}

func registerSearchFiles(reg *ToolRegistry, ws Workspace) {
	reg.Register(ToolSpec{
		Name:        "search_files",
		Description: "Search files under a directory for a regex pattern. Returns file:line:content matches.",
		Params: []ParamSpec{
			{Name: "path", Required: true, Description: "Directory to search."},
			{Name: "regex", Required: true, Description: "Regular expression to match, line by line."},
			{Name: "file_pattern", Description: "Glob filter on file names, e.g. '*.go'."},
		},
		Executor: func(params *Params) (string, error) {
			path, _ := params.Get("path")
			pattern, _ := params.Get("regex")
			filePattern, _ := params.Get("file_pattern")

			matches, err := ws.SearchFiles(path, pattern, filePattern)
			if err != nil {
				return "", &ToolError{Tool: "search_files", Message: err.Error()}
			}
			if len(matches) == 0 {
				return "No matches found.", nil
			}
			lines := make([]string, len(matches))
			for i, m := range matches {
				lines[i] = m.String()
			}
			return strings.Join(lines, "\n"), nil
		},
	})
}

// definitionPatterns recognizes top-level definitions per file extension.
var definitionPatterns = map[string]*regexp.Regexp{
	".go": regexp.MustCompile(`^(?:func|type)\s+(?:\([^)]+\)\s+)?(\w+)`),
	".py": regexp.MustCompile(`^(?:class|def|async def)\s+(\w+)`),
	".js": regexp.MustCompile(`^(?:export\s+)?(?:function|class|const|let)\s+(\w+)`),
	".ts": regexp.MustCompile(`^(?:export\s+)?(?:function|class|interface|type|const|let)\s+(\w+)`),
	".rs": regexp.MustCompile(`^(?:pub\s+)?(?:fn|struct|enum|trait|impl)\s+(\w+)`),
}

func registerListCodeDefinitionNames(reg *ToolRegistry, ws Workspace) {
	reg.Register(ToolSpec{
		Name:        "list_code_definition_names",
		Description: "List top-level code definitions (functions, types, classes) in source files under a directory.",
		Params: []ParamSpec{
			{Name: "path", Required: true, Description: "Directory to scan (non-recursive)."},
		},
		Executor: func(params *Params) (string, error) {
			path, _ := params.Get("path")
			entries, err := ws.ListFiles(path, false)
			if err != nil {
				return "", &ToolError{Tool: "list_code_definition_names", Message: err.Error()}
			}

			var sb strings.Builder
			for _, name := range entries {
				re, ok := definitionPatterns[filepath.Ext(name)]
				if !ok {
					continue
				}
				content, readErr := ws.ReadFile(filepath.Join(path, name))
				if readErr != nil {
					continue
				}
				var defs []string
				for _, line := range strings.Split(content, "\n") {
					if m := re.FindStringSubmatch(line); m != nil {
						defs = append(defs, strings.TrimSpace(m[1]))
					}
				}
				if len(defs) > 0 {
					sb.WriteString(name + ":\n")
					for _, d := range defs {
						sb.WriteString("  " + d + "\n")
					}
				}
			}
			if sb.Len() == 0 {
				return "No source code definitions found.", nil
			}
			return strings.TrimRight(sb.String(), "\n"), nil
		},
	})
}

func registerAskFollowupQuestion(reg *ToolRegistry, askUser func(question string) (string, error)) {
	if askUser == nil {
		askUser = func(string) (string, error) {
			return "", fmt.Errorf("no interactive operator is available to answer questions")
		}
	}
	reg.Register(ToolSpec{
		Name:        "ask_followup_question",
		Description: "Ask the user a clarifying question and wait for their answer.",
		Params: []ParamSpec{
			{Name: "question", Required: true, Description: "The question to ask the user."},
		},
		Executor: func(params *Params) (string, error) {
			question, _ := params.Get("question")
			answer, err := askUser(question)
			if err != nil {
				return "", &ToolError{Tool: "ask_followup_question", Message: err.Error()}
			}
			return fmt.Sprintf("The user answered:\n%s", answer), nil
		},
	})
}

// ConsoleAskUser prints the question to stdout and reads one line from stdin.
// It is the default AskUser for interactive runs.
func ConsoleAskUser(question string) (string, error) {
	fmt.Printf("\n%s\n> ", question)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return "", fmt.Errorf("input stream closed")
	}
	return strings.TrimSpace(scanner.Text()), nil
}
