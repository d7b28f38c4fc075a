package shell

import (
	"github.com/watercolor-games/redteam/core/console"
)

// BuiltinFunc runs a builtin. out is where the builtin writes, name is what it
// was invoked as.
type BuiltinFunc func(out console.Output, name string, args []string) error

// Builtin is a named command handler.
type Builtin struct {
	Name        string
	Description string
	Action      BuiltinFunc
}

// Registry maps command names to builtins, keeping registration order.
type Registry struct {
	builtins []*Builtin
	byName   map[string]*Builtin
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Builtin)}
}

// Register adds a builtin, or replaces the description and action of an
// existing one in place.
func (r *Registry) Register(name, description string, action BuiltinFunc) {
	if existing, ok := r.byName[name]; ok {
		existing.Description = description
		existing.Action = action
		return
	}

	builtin := &Builtin{Name: name, Description: description, Action: action}
	r.builtins = append(r.builtins, builtin)
	r.byName[name] = builtin
}

// Lookup finds a builtin by exact name.
func (r *Registry) Lookup(name string) (*Builtin, bool) {
	builtin, ok := r.byName[name]
	return builtin, ok
}

// Names returns every builtin name in registration order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.builtins))
	for _, b := range r.builtins {
		out = append(out, b.Name)
	}
	return out
}

// All returns every builtin in registration order.
func (r *Registry) All() []*Builtin {
	return append([]*Builtin(nil), r.builtins...)
}
