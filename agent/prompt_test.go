package agent

import (
	"strings"
	"testing"
)

func TestBuildToolDocumentation(t *testing.T) {
	reg := NewToolRegistry()
	reg.Register(ToolSpec{
		Name:        "read_file",
		Description: "Read a file.",
		Params: []ParamSpec{
			{Name: "path", Required: true, Description: "Path of the file."},
		},
	})

	docs := BuildToolDocumentation(reg)
	for _, want := range []string{
		"## read_file",
		"- path: (required) Path of the file.",
		"<read_file>",
		"</read_file>",
	} {
		if !strings.Contains(docs, want) {
			t.Errorf("expected %q in docs:\n%s", want, docs)
		}
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	ws := NewLocalWorkspace(t.TempDir())
	reg := NewToolRegistry()
	RegisterCoreTools(reg, ws, CoreToolsOptions{})
	registerCompletionTool(reg)

	prompt := BuildSystemPrompt(reg, ws)
	for _, want := range []string{
		"one tool per message",
		"## attempt_completion",
		"## execute_command",
		"<environment>",
		ws.WorkingDirectory(),
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("expected %q in system prompt", want)
		}
	}
}
