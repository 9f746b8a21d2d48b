package handler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mproffitt/folden/pkg/workflow"
)

// HandlerType a named kind of handler directories can be registered with
type HandlerType struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	// Actions the workflow of this type may use. Empty allows any action.
	Actions []string `json:"actions,omitempty"`
}

// Check the workflow only uses actions this type allows
func (t HandlerType) Check(c *workflow.Config) error {
	if len(t.Actions) == 0 {
		return nil
	}
	for _, action := range c.Pipeline() {
		var allowed bool = false
		for _, name := range t.Actions {
			if strings.EqualFold(name, action.Name()) {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("%w: handler type %s does not run %s", workflow.ErrInvalidConfig, t.Name, action.Name())
		}
	}
	return nil
}

// Default the workflow written by generate for this type
func (t HandlerType) Default() (*workflow.Config, error) {
	return workflow.Default(nil, t.Actions)
}

// Registry the catalogue of handler types the daemon accepts
type Registry interface {
	Lookup(name string) (HandlerType, bool)
	Types() []HandlerType
}

type registry map[string]HandlerType

// NewRegistry a registry holding the given types, keyed case insensitively
func NewRegistry(types ...HandlerType) Registry {
	r := make(registry, len(types))
	for _, t := range types {
		r[strings.ToLower(t.Name)] = t
	}
	return r
}

// Lookup finds a handler type by name
func (r registry) Lookup(name string) (HandlerType, bool) {
	t, ok := r[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

// Types every registered type sorted by name
func (r registry) Types() []HandlerType {
	types := make([]HandlerType, 0, len(r))
	for _, t := range r {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i].Name < types[j].Name })
	return types
}

// DefaultRegistry the handler types built into the daemon
var DefaultRegistry Registry = NewRegistry(
	HandlerType{
		Name:        "workflow",
		Description: "Runs the actions listed in the workflow config",
	},
	HandlerType{
		Name:        "move-to-dir",
		Description: "Moves new files into another directory",
		Actions:     []string{"MoveToDir"},
	},
	HandlerType{
		Name:        "run-cmd",
		Description: "Runs a shell command for each new file",
		Actions:     []string{"RunCmd"},
	},
	HandlerType{
		Name:        "extract-archive",
		Description: "Extracts new archives into another directory",
		Actions:     []string{"ExtractArchive"},
	},
	HandlerType{
		Name:        "set-permissions",
		Description: "Applies a mode expression to new files",
		Actions:     []string{"SetPermissions"},
	},
	HandlerType{
		Name:        "notify",
		Description: "Raises a desktop notification for new files",
		Actions:     []string{"Notify"},
	},
)
