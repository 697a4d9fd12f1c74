package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/matdev83/cli-agent/llm"
)

// CompletionTool is the reserved tool name that signals task completion.
// It is always registered and is never dispatched to an executor; the loop
// terminates when the model invokes it.
const CompletionTool = "attempt_completion"

// ExecutionOutcome classifies what one loop iteration did.
type ExecutionOutcome string

const (
	// OutcomeCompleted means the model invoked the completion tool.
	OutcomeCompleted ExecutionOutcome = "completed"
	// OutcomeToolRan means a tool executed and produced a result.
	OutcomeToolRan ExecutionOutcome = "tool_ran"
	// OutcomeToolDenied means the operator refused the invocation.
	OutcomeToolDenied ExecutionOutcome = "tool_denied"
	// OutcomeToolFailed means the tool raised an error (fed back to the model,
	// never fatal).
	OutcomeToolFailed ExecutionOutcome = "tool_failed"
	// OutcomeNoInvocation means the reply contained prose only.
	OutcomeNoInvocation ExecutionOutcome = "no_invocation"
)

// StopReason explains why a run ended.
type StopReason string

const (
	// StopCompleted means the model signaled completion.
	StopCompleted StopReason = "completed"
	// StopTurnLimit means the iteration cap was reached first.
	StopTurnLimit StopReason = "turn_limit"
)

// RunResult is the final outcome of a task run.
type RunResult struct {
	RunID      string             `json:"run_id"`
	StopReason StopReason         `json:"stop_reason"`
	FinalText  string             `json:"final_text"`
	Iterations int                `json:"iterations"`
	Outcomes   []ExecutionOutcome `json:"outcomes"`
}

// SessionConfig holds configuration for a task run.
type SessionConfig struct {
	MaxTurns                int            `json:"max_turns"`
	SystemPrompt            string         `json:"system_prompt,omitempty"`
	AutoApprove             bool           `json:"auto_approve"`
	DefaultCommandTimeoutMs int            `json:"default_command_timeout_ms"`
	MaxCommandTimeoutMs     int            `json:"max_command_timeout_ms"`
	ToolOutputLimits        map[string]int `json:"tool_output_limits,omitempty"`
	ToolLineLimits          map[string]int `json:"tool_line_limits,omitempty"`
	EventBufferSize         int            `json:"event_buffer_size,omitempty"`
}

// DefaultSessionConfig returns the default configuration.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		MaxTurns:                25,
		DefaultCommandTimeoutMs: 10000,
		MaxCommandTimeoutMs:     600000,
	}
}

// Session drives one task to completion: it alternates backend calls with
// local tool execution until the model invokes the completion tool or the
// turn cap is reached. A Session runs a single task; state is not reused
// across tasks. All loop work happens on the caller's goroutine.
type Session struct {
	runID      string
	backend    llm.Backend
	registry   *ToolRegistry
	parser     *Parser
	gate       *ApprovalGate
	workspace  Workspace
	transcript Transcript
	config     SessionConfig
	emitter    *EventEmitter
	logger     *slog.Logger

	// filesTouched records workspace paths read or written during the run,
	// for the end-of-run summary. fileContext keeps the last content seen per
	// path.
	filesTouched map[string]bool
	fileContext  map[string]string
}

// NewSession creates a session. A nil config uses defaults; a nil logger
// discards; a nil confirmer denies every confirmation request. The completion
// tool is registered automatically.
func NewSession(backend llm.Backend, registry *ToolRegistry, workspace Workspace, confirmer Confirmer, config *SessionConfig, logger *slog.Logger) *Session {
	cfg := DefaultSessionConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = DefaultSessionConfig().MaxTurns
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	registerCompletionTool(registry)

	runID := uuid.New().String()
	return &Session{
		runID:        runID,
		backend:      backend,
		registry:     registry,
		parser:       NewParser(registry),
		gate:         NewApprovalGate(cfg.AutoApprove, confirmer),
		workspace:    workspace,
		config:       cfg,
		emitter:      NewEventEmitter(runID, cfg.EventBufferSize),
		logger:       logger.With("run_id", runID),
		filesTouched: make(map[string]bool),
		fileContext:  make(map[string]string),
	}
}

// registerCompletionTool adds the reserved completion tool. Its executor is
// nil: the loop intercepts it before dispatch.
func registerCompletionTool(registry *ToolRegistry) {
	if registry.Lookup(CompletionTool) != nil {
		return
	}
	registry.Register(ToolSpec{
		Name:        CompletionTool,
		Description: "Signal that the task is complete and present the final result to the user.",
		Params: []ParamSpec{
			{Name: "result", Required: true, Description: "The final result of the task."},
		},
	})
}

// ID returns the run identifier.
func (s *Session) ID() string { return s.runID }

// Workspace returns the workspace tools run against.
func (s *Session) Workspace() Workspace { return s.workspace }

// Events returns the event channel for the host application.
func (s *Session) Events() <-chan RunEvent {
	return s.emitter.Events()
}

// Transcript returns a copy of the conversation so far.
func (s *Session) Transcript() []Turn {
	return s.transcript.Turns()
}

// RecordFileTouched notes a workspace path as read or written during the run.
// Tool executors call this so the run summary can list touched files.
func (s *Session) RecordFileTouched(path string) {
	s.filesTouched[path] = true
}

// RecordFileContext stores the last content seen for a workspace path and
// marks the path as touched.
func (s *Session) RecordFileContext(path, content string) {
	s.fileContext[path] = content
	s.filesTouched[path] = true
}

// FileContext returns the last recorded content for a path.
func (s *Session) FileContext(path string) (string, bool) {
	content, ok := s.fileContext[path]
	return content, ok
}

// FilesTouched returns the sorted set of paths recorded during the run.
func (s *Session) FilesTouched() []string {
	paths := make([]string, 0, len(s.filesTouched))
	for p := range s.filesTouched {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Run executes the loop for one task. It returns a RunResult on both
// completion and turn-cap exhaustion; the error return is reserved for
// backend failures, which are fatal. The event channel is closed before Run
// returns.
func (s *Session) Run(ctx context.Context, task string) (*RunResult, error) {
	defer s.emitter.Close()

	s.emitter.Emit(EventRunStart, map[string]interface{}{"task": task})
	s.logger.Info("run started", "max_turns", s.config.MaxTurns)

	s.transcript.Append(NewUserTurn(task))

	result := &RunResult{RunID: s.runID}

	for iteration := 1; iteration <= s.config.MaxTurns; iteration++ {
		result.Iterations = iteration

		reply, err := s.callBackend(ctx)
		if err != nil {
			s.emitter.Emit(EventError, map[string]interface{}{"error": err.Error()})
			s.logger.Error("backend call failed", "iteration", iteration, "error", err)
			return nil, err
		}
		s.transcript.Append(NewAssistantTurn(reply))
		s.emitter.Emit(EventAssistantReply, map[string]interface{}{"length": len(reply)})

		segments := s.parser.Parse(reply)
		inv, extras := FirstInvocation(segments)

		if inv == nil {
			result.Outcomes = append(result.Outcomes, OutcomeNoInvocation)
			s.emitter.Emit(EventNoInvocation, nil)
			s.logger.Warn("reply contained no tool invocation", "iteration", iteration)
			s.transcript.Append(NewToolResultTurn(noInvocationReminder))
			continue
		}

		if extras > 0 {
			s.emitter.Emit(EventExtrasDiscarded, map[string]interface{}{"count": extras})
			s.logger.Warn("discarding extra invocations", "count", extras, "acted_on", inv.Name)
		}
		s.emitter.Emit(EventInvocation, map[string]interface{}{
			"tool":    inv.Name,
			"partial": inv.Partial,
		})

		if inv.Name == CompletionTool {
			result.StopReason = StopCompleted
			result.FinalText = s.completionText(inv, segments)
			result.Outcomes = append(result.Outcomes, OutcomeCompleted)
			s.emitter.Emit(EventRunEnd, map[string]interface{}{"stop_reason": string(StopCompleted)})
			s.logger.Info("run completed", "iterations", iteration)
			return result, nil
		}

		outcome, resultText := s.dispatch(ctx, inv)
		result.Outcomes = append(result.Outcomes, outcome)

		if extras > 0 {
			resultText += fmt.Sprintf(
				"\n\n[NOTE] Only the first tool invocation per reply is executed; %d additional invocation(s) were ignored. Invoke one tool at a time.",
				extras)
		}
		s.transcript.Append(NewToolResultTurn(resultText))
	}

	result.StopReason = StopTurnLimit
	result.FinalText = s.lastAssistantText()
	s.emitter.Emit(EventTurnLimit, map[string]interface{}{"max_turns": s.config.MaxTurns})
	s.emitter.Emit(EventRunEnd, map[string]interface{}{"stop_reason": string(StopTurnLimit)})
	s.logger.Warn("turn limit reached", "max_turns", s.config.MaxTurns)
	return result, nil
}

// noInvocationReminder is fed back when a reply carries no invocation and no
// completion signal.
const noInvocationReminder = "[ERROR] You did not use a tool in your previous response. " +
	"Every reply must invoke exactly one tool. " +
	"If the task is finished, use <attempt_completion> with a <result> describing the outcome."

// callBackend converts the transcript into messages and performs one model
// call. Backend errors are returned unwrapped; the loop treats them as fatal.
func (s *Session) callBackend(ctx context.Context) (string, error) {
	messages := s.transcript.Messages(s.config.SystemPrompt)
	s.emitter.Emit(EventModelCall, map[string]interface{}{"messages": len(messages)})
	return s.backend.Send(ctx, messages)
}

// completionText extracts the final answer from a completion invocation,
// falling back to the reply's prose when the result parameter is absent.
func (s *Session) completionText(inv *Invocation, segments []Segment) string {
	if result, ok := inv.Params.Get("result"); ok && result != "" {
		return result
	}
	return PlainText(segments)
}

// dispatch validates, gates, and executes a single invocation, returning the
// outcome and the tool-result text to append.
func (s *Session) dispatch(ctx context.Context, inv *Invocation) (ExecutionOutcome, string) {
	spec := s.registry.Lookup(inv.Name)
	if spec == nil {
		// Unreachable: the parser only emits invocations for registered names.
		return OutcomeToolFailed, fmt.Sprintf("Error: unknown tool '%s'.", inv.Name)
	}

	if missing := spec.MissingRequired(inv.Params); len(missing) > 0 {
		s.logger.Warn("invocation missing required parameters", "tool", inv.Name, "missing", missing)
		return OutcomeToolFailed, fmt.Sprintf(
			"Error executing %s: missing required parameter(s): %s.",
			inv.Name, strings.Join(missing, ", "))
	}

	if s.gate.RequiresConfirmation(spec, inv) {
		s.emitter.Emit(EventApprovalAsked, map[string]interface{}{"tool": inv.Name})
		if !s.gate.Confirm(spec, inv) {
			s.emitter.Emit(EventApprovalDenied, map[string]interface{}{"tool": inv.Name})
			s.logger.Info("invocation denied by operator", "tool", inv.Name)
			return OutcomeToolDenied, fmt.Sprintf(
				"The user denied permission to run %s. Do not retry the same operation; ask for guidance or try a different approach.",
				inv.Name)
		}
	}

	if spec.Executor == nil {
		return OutcomeToolFailed, fmt.Sprintf("Error executing %s: tool has no executor.", inv.Name)
	}

	s.emitter.Emit(EventToolStart, map[string]interface{}{"tool": inv.Name})
	s.logger.Info("executing tool", "tool", inv.Name)

	output, err := spec.Executor(inv.Params)
	if err != nil {
		s.emitter.Emit(EventToolEnd, map[string]interface{}{"tool": inv.Name, "error": err.Error()})
		s.logger.Warn("tool failed", "tool", inv.Name, "error", err)
		return OutcomeToolFailed, fmt.Sprintf("Error executing %s: %s", inv.Name, err.Error())
	}

	output = TruncateToolOutput(output, inv.Name, s.config.ToolOutputLimits, s.config.ToolLineLimits)
	s.emitter.Emit(EventToolEnd, map[string]interface{}{"tool": inv.Name, "output_length": len(output)})
	return OutcomeToolRan, fmt.Sprintf("Result of %s:\n%s", inv.Name, output)
}

// lastAssistantText returns the prose of the most recent assistant turn, for
// the turn-limit result.
func (s *Session) lastAssistantText() string {
	turns := s.transcript.Turns()
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == RoleAssistant {
			return PlainText(s.parser.Parse(turns[i].Content))
		}
	}
	return ""
}
