package agent

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Params is the ordered parameter mapping passed to executors. Order matches
// the parameter blocks' appearance in the model's reply.
type Params = orderedmap.OrderedMap[string, string]

// NewParams creates an empty parameter mapping.
func NewParams() *Params {
	return orderedmap.New[string, string]()
}

// ToolExecutor is the function signature for tool execution. It receives the
// parsed parameter mapping and returns the result text fed back to the model.
type ToolExecutor func(params *Params) (string, error)

// ToolError marks a failure raised by a tool executor. The loop converts it
// into a tool-result turn; it never escapes to the operator.
type ToolError struct {
	Tool    string
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Tool, e.Message)
}

// ApprovalMode classifies when a tool needs interactive confirmation.
type ApprovalMode string

const (
	// ApprovalNever runs without confirmation.
	ApprovalNever ApprovalMode = "never"
	// ApprovalAlways asks before every run.
	ApprovalAlways ApprovalMode = "always"
	// ApprovalFromParam derives the decision from a boolean parameter on the
	// invocation itself (named by ToolSpec.ApprovalParam).
	ApprovalFromParam ApprovalMode = "from_param"
)

// ParamSpec describes one parameter of a tool.
type ParamSpec struct {
	Name        string
	Required    bool
	Description string
}

// ToolSpec describes a callable tool: its wire name, parameter shapes, and
// approval classification. Strict marks tools whose confirmation cannot be
// skipped by the auto-approve override (reserved for destructive actions).
type ToolSpec struct {
	Name        string
	Description string
	Params      []ParamSpec

	Approval      ApprovalMode
	ApprovalParam string
	Strict        bool

	Executor ToolExecutor
}

// ParamNames returns the tool's parameter names in declaration order.
func (s ToolSpec) ParamNames() []string {
	names := make([]string, len(s.Params))
	for i, p := range s.Params {
		names[i] = p.Name
	}
	return names
}

// MissingRequired returns the names of required parameters absent from params.
func (s ToolSpec) MissingRequired(params *Params) []string {
	var missing []string
	for _, p := range s.Params {
		if !p.Required {
			continue
		}
		if _, ok := params.Get(p.Name); !ok {
			missing = append(missing, p.Name)
		}
	}
	return missing
}

// ToolRegistry maps tool names to their specs. It is populated once at agent
// construction and must not be mutated while a loop is executing; both the
// parser and the approval gate read from it.
type ToolRegistry struct {
	tools map[string]*ToolSpec
	mu    sync.RWMutex
}

// NewToolRegistry creates an empty ToolRegistry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]*ToolSpec)}
}

// Register adds or replaces a tool in the registry.
func (r *ToolRegistry) Register(spec ToolSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[spec.Name] = &spec
}

// Lookup returns the spec for name, or nil if not registered.
func (r *ToolRegistry) Lookup(name string) *ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Names returns all registered tool names, sorted for determinism.
func (r *ToolRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered tools.
func (r *ToolRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// ParseBool interprets an assistant-provided boolean parameter. Only the
// literal strings "true" and "false" (case-insensitive, trimmed) are
// booleans; anything else, including absence, counts as false. The values are
// advisory gate input, so a malformed value must not fail the invocation.
func ParseBool(value string, ok bool) bool {
	if !ok {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(value), "true")
}
