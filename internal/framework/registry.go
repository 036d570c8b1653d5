package framework

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// builtins are the frameworks every registry starts with.
var builtins = []func() Framework{GDPR, HIPAA, CCPA}

// Registry maps framework ids to implementations. It is populated at
// construction and by explicit Register calls; nothing is loaded implicitly.
type Registry struct {
	byID map[string]Framework
}

// NewRegistry returns a registry holding the built-in frameworks.
func NewRegistry() *Registry {
	r := &Registry{byID: make(map[string]Framework, len(builtins))}
	for _, ctor := range builtins {
		fw := ctor()
		r.byID[fw.ID()] = fw
	}
	return r
}

// Register adds fw after validating its required term lists. Ids are
// case-insensitive and may not be registered twice.
func (r *Registry) Register(fw Framework) error {
	id := normalizeID(fw.ID())
	if id == "" {
		return eris.New("framework: id is required")
	}
	if err := fw.Terms().Validate(id); err != nil {
		return err
	}
	if _, ok := r.byID[id]; ok {
		return eris.Errorf("framework: %q is already registered", id)
	}
	r.byID[id] = fw
	return nil
}

// Get returns the framework registered under id.
func (r *Registry) Get(id string) (Framework, error) {
	fw, ok := r.byID[normalizeID(id)]
	if !ok {
		return nil, eris.Errorf("framework: unknown framework %q (available: %s)", id, strings.Join(r.IDs(), ", "))
	}
	return fw, nil
}

// IDs returns the registered ids in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// List returns every registered framework sorted by id.
func (r *Registry) List() []Framework {
	ids := r.IDs()
	out := make([]Framework, len(ids))
	for i, id := range ids {
		out[i] = r.byID[id]
	}
	return out
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
