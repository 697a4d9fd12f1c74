package agent

import (
	"fmt"
	"strings"
	"time"
)

// BuildSystemPrompt assembles the instruction prompt sent with every backend
// call: role, the tag-based invocation format, per-tool documentation derived
// from the registry, and an environment block.
func BuildSystemPrompt(registry *ToolRegistry, ws Workspace) string {
	var sb strings.Builder

	sb.WriteString(`You are a highly skilled software engineer working on a task in a local repository.

====

TOOL USE

You have access to a set of tools that are executed upon the user's approval. You can use one tool per message, and will receive the result of that tool use in the user's response. You use tools step-by-step to accomplish a given task, with each tool use informed by the result of the previous tool use.

Tool use is formatted using XML-style tags. The tool name is enclosed in opening and closing tags, and each parameter is similarly enclosed within its own set of tags:

<tool_name>
<parameter1_name>value1</parameter1_name>
<parameter2_name>value2</parameter2_name>
</tool_name>

For example:

<read_file>
<path>src/main.go</path>
</read_file>

Always adhere to this format so the invocation can be parsed and executed.

# Tools

`)
	sb.WriteString(BuildToolDocumentation(registry))

	sb.WriteString(`
# Guidelines

1. Use exactly one tool per message. Additional invocations in the same message are ignored.
2. Wait for the tool result before deciding your next step. Never assume an outcome.
3. When the task is finished, use attempt_completion with a result describing what was done.
`)

	sb.WriteString("\n====\n\n")
	sb.WriteString(BuildEnvironmentContext(ws))
	return sb.String()
}

// BuildToolDocumentation renders usage documentation for every registered
// tool, in name order.
func BuildToolDocumentation(registry *ToolRegistry) string {
	var sb strings.Builder
	for _, name := range registry.Names() {
		spec := registry.Lookup(name)
		if spec == nil {
			continue
		}
		fmt.Fprintf(&sb, "## %s\n", spec.Name)
		if spec.Description != "" {
			fmt.Fprintf(&sb, "Description: %s\n", spec.Description)
		}
		if len(spec.Params) > 0 {
			sb.WriteString("Parameters:\n")
			for _, p := range spec.Params {
				requirement := "optional"
				if p.Required {
					requirement = "required"
				}
				fmt.Fprintf(&sb, "- %s: (%s) %s\n", p.Name, requirement, p.Description)
			}
		}
		sb.WriteString("Usage:\n")
		fmt.Fprintf(&sb, "<%s>\n", spec.Name)
		for _, p := range spec.Params {
			fmt.Fprintf(&sb, "<%s>%s here</%s>\n", p.Name, p.Name, p.Name)
		}
		fmt.Fprintf(&sb, "</%s>\n\n", spec.Name)
	}
	return sb.String()
}

// BuildEnvironmentContext generates the structured environment context block.
func BuildEnvironmentContext(ws Workspace) string {
	var sb strings.Builder
	sb.WriteString("<environment>\n")
	fmt.Fprintf(&sb, "Working directory: %s\n", ws.WorkingDirectory())
	fmt.Fprintf(&sb, "Platform: %s\n", ws.Platform())
	fmt.Fprintf(&sb, "Today's date: %s\n", time.Now().Format("2006-01-02"))
	sb.WriteString("</environment>")
	return sb.String()
}
