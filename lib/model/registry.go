package model

import (
	"github.com/ValentinKolb/trol/lib/common"
	"github.com/puzpuzpuz/xsync/v3"
)

// Registry maps type names to types for decoding entity references.
// It is filled explicitly; a type that is not registered cannot be decoded.
type Registry struct {
	types *xsync.MapOf[string, *Type]
	db    *Database
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: xsync.NewMapOf[string, *Type]()}
}

// Register adds types. A type with the same name as an already registered
// one replaces it.
func (r *Registry) Register(types ...*Type) {
	for _, t := range types {
		r.types.Store(t.name, t)
	}
}

// RegisterUnique adds t and fails if another type already uses its name.
func (r *Registry) RegisterUnique(t *Type) error {
	if prev, loaded := r.types.LoadOrStore(t.name, t); loaded && prev != t {
		return common.Errorf(common.RetCConfiguration, "type name %q already registered", t.name)
	}
	return nil
}

// Unregister removes the type registered under name.
func (r *Registry) Unregister(name string) {
	r.types.Delete(name)
}

// Lookup returns the type registered under name.
func (r *Registry) Lookup(name string) (*Type, bool) {
	return r.types.Load(name)
}

// Names returns the names of all registered types, sorted.
func (r *Registry) Names() []string {
	m := make(map[string]*Type, r.types.Size())
	r.types.Range(func(name string, t *Type) bool {
		m[name] = t
		return true
	})
	return sortedKeys(m)
}

// Database returns the database owning the registry, nil if none.
func (r *Registry) Database() *Database {
	return r.db
}
