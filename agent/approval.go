package agent

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Confirmer suspends for interactive input and reports whether the operator
// approved. Implementations block; the loop has no other suspension point
// besides the backend call.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConsoleConfirmer asks y/n questions on a terminal. Only "y" and "yes"
// (case-insensitive) approve; a closed input stream denies.
type ConsoleConfirmer struct {
	In  io.Reader
	Out io.Writer
}

// NewConsoleConfirmer creates a ConsoleConfirmer over stdin/stdout.
func NewConsoleConfirmer() *ConsoleConfirmer {
	return &ConsoleConfirmer{In: os.Stdin, Out: os.Stdout}
}

func (c *ConsoleConfirmer) Confirm(prompt string) bool {
	fmt.Fprintf(c.Out, "%s ", prompt)
	scanner := bufio.NewScanner(c.In)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}

// ApprovalGate decides, per invocation, whether execution requires interactive
// confirmation. The policy lives on each ToolSpec; the gate combines it with
// the run-wide auto-approve override. Tools marked Strict always ask,
// regardless of the override.
type ApprovalGate struct {
	autoApprove bool
	confirmer   Confirmer
}

// NewApprovalGate creates a gate. A nil confirmer denies every confirmation
// request, which is the safe default for non-interactive runs.
func NewApprovalGate(autoApprove bool, confirmer Confirmer) *ApprovalGate {
	return &ApprovalGate{autoApprove: autoApprove, confirmer: confirmer}
}

// RequiresConfirmation reports whether the invocation must be confirmed
// before execution.
func (g *ApprovalGate) RequiresConfirmation(spec *ToolSpec, inv *Invocation) bool {
	var wants bool
	switch spec.Approval {
	case ApprovalAlways:
		wants = true
	case ApprovalFromParam:
		wants = ParseBool(inv.Params.Get(spec.ApprovalParam))
	default:
		wants = false
	}
	if !wants {
		return false
	}
	if g.autoApprove && !spec.Strict {
		return false
	}
	return true
}

// Confirm asks the operator to approve the invocation. Returns false (deny)
// when no confirmer is configured.
func (g *ApprovalGate) Confirm(spec *ToolSpec, inv *Invocation) bool {
	if g.confirmer == nil {
		return false
	}
	return g.confirmer.Confirm(approvalPrompt(spec, inv))
}

// approvalPrompt renders the y/n question shown to the operator.
func approvalPrompt(spec *ToolSpec, inv *Invocation) string {
	if spec.Name == "execute_command" {
		if cmd, ok := inv.Params.Get("command"); ok {
			return fmt.Sprintf("Approve command '%s'? [y/N]:", cmd)
		}
	}
	return fmt.Sprintf("Allow %s? [y/N]:", spec.Name)
}
