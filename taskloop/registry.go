package taskloop

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Result is the outcome of running one action. A mapping with an
// "error" key signals failure; a "stdout"/"stderr" pair signals
// process-like output. Any other keys are passed through to the model
// verbatim on the next step.
type Result map[string]interface{}

// ErrorResult builds a failed Result.
func ErrorResult(format string, args ...interface{}) Result {
	return Result{"error": fmt.Sprintf(format, args...)}
}

// Err returns the error message, or an empty string on success.
func (r Result) Err() string {
	if r == nil {
		return ""
	}
	if msg, ok := r["error"].(string); ok {
		return msg
	}
	return ""
}

// IsError reports whether the result carries an "error" key.
func (r Result) IsError() bool { return r.Err() != "" }

// Handler executes one action with its string parameters.
type Handler func(params map[string]string) Result

// ToolSpec describes a registered action: what it does, what parameters
// it takes (name -> type hint), and the handler that runs it.
type ToolSpec struct {
	Description string            `json:"description"`
	Parameters  map[string]string `json:"parameters"`
	Handler     Handler           `json:"-"`
}

// Registry maps qualified action names to their specs.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*ToolSpec
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*ToolSpec)}
}

// Register adds or replaces an action in the registry.
func (r *Registry) Register(name string, spec ToolSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = &spec
}

// Get returns the spec for a qualified name, or nil if not registered.
func (r *Registry) Get(name string) *ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Names returns all registered action names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns the metadata replayed into the model prompt:
// descriptions and parameter schemas, without handlers.
func (r *Registry) Describe() map[string]ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]ToolSpec, len(r.tools))
	for name, spec := range r.tools {
		out[name] = ToolSpec{
			Description: spec.Description,
			Parameters:  spec.Parameters,
		}
	}
	return out
}

// Run resolves name and executes its handler. A bare name (no
// namespace) resolves to the first qualified name that ends with it.
// Unrecognized names yield an error result, never a panic.
func (r *Registry) Run(name string, params map[string]string) Result {
	r.mu.RLock()
	if !strings.Contains(name, ".") {
		for full := range r.tools {
			if strings.HasSuffix(full, "."+name) {
				name = full
				break
			}
		}
	}
	spec := r.tools[name]
	r.mu.RUnlock()

	if spec == nil {
		return ErrorResult("Unknown function: %s", name)
	}
	return spec.Handler(params)
}
