// Package agent implements the conversational control loop that lets a
// language model drive a set of local development tools.
//
// The model requests tools through XML-style tags embedded in its reply text:
//
//	<read_file>
//	<path>src/main.go</path>
//	</read_file>
//
// The loop parses each reply into text and invocation segments, runs at most
// one invocation per turn through the approval gate and tool registry, and
// feeds the result back as the next conversation turn until the model calls
// the reserved attempt_completion tool or the turn cap is reached.
//
// # Architecture
//
//   - Parser: two-level tag scanner producing a Segment sequence. Tolerant of
//     truncated or overlapping blocks; unknown tags stay plain text.
//   - ToolRegistry: name -> ToolSpec (parameter shapes, approval class,
//     executor). Built once at construction, read-only during a run.
//   - ApprovalGate: decides whether an invocation needs interactive
//     confirmation, honoring the auto-approve override.
//   - Transcript: append-only role-tagged conversation state, owned by the
//     Session.
//   - Session: the turn loop. One backend call, one parse, at most one tool
//     execution per iteration; strictly sequential.
//
// # Quick Start
//
//	ws := agent.NewLocalWorkspace(".")
//	reg := agent.NewToolRegistry()
//	agent.RegisterCoreTools(reg, ws, agent.CoreToolsOptions{})
//	session := agent.NewSession(backend, reg, ws, agent.NewConsoleConfirmer(), nil, nil)
//	result, err := session.Run(ctx, "Create a hello.py file")
package agent
