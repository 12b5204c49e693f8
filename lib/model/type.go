package model

import (
	"fmt"
	"sort"

	"github.com/ValentinKolb/trol/lib/collection"
	"github.com/ValentinKolb/trol/lib/lockmgr"
	"github.com/ValentinKolb/trol/lib/property"
)

// --------------------------------------------------------------------------
// Type
// --------------------------------------------------------------------------

// Type describes an entity type: its name, its properties, collections and
// nested entity types, and the defaults for the property policies.
// A Type is immutable once NewType returns.
type Type struct {
	name        string
	fields      map[string]property.Binding
	collections map[string]collection.Binding
	models      map[string]*Type
	locks       map[string]*lockmgr.Lock
	autocommit  bool
	alwaysfetch bool
	bases       []*Type
}

type typeBuilder struct {
	bases       []*Type
	fields      map[string]property.Binding
	collections map[string]collection.Binding
	models      map[string]*Type
	locks       map[string]*lockmgr.Lock
	autocommit  *bool
	alwaysfetch *bool
}

// TypeOption declares a member or default of a Type.
type TypeOption func(*typeBuilder)

// Extends inherits every declaration of base. Declarations of the new
// type override same named declarations of base; later bases override
// earlier ones.
func Extends(base *Type) TypeOption {
	return func(b *typeBuilder) { b.bases = append(b.bases, base) }
}

// WithField declares a property under attr. An unnamed property takes attr as name.
func WithField(attr string, p property.Binding) TypeOption {
	return func(b *typeBuilder) { b.fields[attr] = p }
}

// WithCollection declares a collection under attr. An unnamed collection takes attr as name.
func WithCollection(attr string, c collection.Binding) TypeOption {
	return func(b *typeBuilder) { b.collections[attr] = c }
}

// WithModel declares a nested entity type under attr.
func WithModel(attr string, t *Type) TypeOption {
	return func(b *typeBuilder) { b.models[attr] = t }
}

// WithLock declares a lock under attr. An unnamed lock takes attr as name.
func WithLock(attr string, l *lockmgr.Lock) TypeOption {
	return func(b *typeBuilder) { b.locks[attr] = l }
}

// WithAutocommit sets the autocommit default of the properties (default true).
func WithAutocommit(v bool) TypeOption {
	return func(b *typeBuilder) { b.autocommit = &v }
}

// WithAlwaysFetch sets the alwaysfetch default of the properties (default false).
func WithAlwaysFetch(v bool) TypeOption {
	return func(b *typeBuilder) { b.alwaysfetch = &v }
}

// NewType composes an entity type. Names are assigned to unnamed
// properties and collections from their attribute names.
func NewType(name string, opts ...TypeOption) *Type {
	b := &typeBuilder{
		fields:      make(map[string]property.Binding),
		collections: make(map[string]collection.Binding),
		models:      make(map[string]*Type),
		locks:       make(map[string]*lockmgr.Lock),
	}
	for _, opt := range opts {
		opt(b)
	}

	t := &Type{
		name:        name,
		fields:      make(map[string]property.Binding),
		collections: make(map[string]collection.Binding),
		models:      make(map[string]*Type),
		locks:       make(map[string]*lockmgr.Lock),
		autocommit:  true,
		alwaysfetch: false,
		bases:       b.bases,
	}

	// bases first, own declarations override
	for _, base := range b.bases {
		for attr, p := range base.fields {
			t.fields[attr] = p
		}
		for attr, c := range base.collections {
			t.collections[attr] = c
		}
		for attr, m := range base.models {
			t.models[attr] = m
		}
		for attr, l := range base.locks {
			t.locks[attr] = l
		}
		t.autocommit = base.autocommit
		t.alwaysfetch = base.alwaysfetch
	}
	for attr, p := range b.fields {
		p.AssignName(attr)
		t.fields[attr] = p
	}
	for attr, c := range b.collections {
		c.AssignName(attr)
		t.collections[attr] = c
	}
	for attr, m := range b.models {
		t.models[attr] = m
	}
	for attr, l := range b.locks {
		l.AssignName(attr)
		t.locks[attr] = l
	}
	if b.autocommit != nil {
		t.autocommit = *b.autocommit
	}
	if b.alwaysfetch != nil {
		t.alwaysfetch = *b.alwaysfetch
	}
	return t
}

// Name returns the type name, the default model name of its entities.
func (t *Type) Name() string { return t.name }

// Field returns the property declared under attr.
func (t *Type) Field(attr string) (property.Binding, bool) {
	p, ok := t.fields[attr]
	return p, ok
}

// CollectionDecl returns the collection declared under attr.
func (t *Type) CollectionDecl(attr string) (collection.Binding, bool) {
	c, ok := t.collections[attr]
	return c, ok
}

// Model returns the nested type declared under attr.
func (t *Type) Model(attr string) (*Type, bool) {
	m, ok := t.models[attr]
	return m, ok
}

// LockDecl returns the lock declared under attr.
func (t *Type) LockDecl(attr string) (*lockmgr.Lock, bool) {
	l, ok := t.locks[attr]
	return l, ok
}

// Fields returns the attribute names of all properties, sorted.
func (t *Type) Fields() []string { return sortedKeys(t.fields) }

// Collections returns the attribute names of all collections, sorted.
func (t *Type) Collections() []string { return sortedKeys(t.collections) }

// Models returns the attribute names of all nested types, sorted.
func (t *Type) Models() []string { return sortedKeys(t.models) }

// Locks returns the attribute names of all locks, sorted.
func (t *Type) Locks() []string { return sortedKeys(t.locks) }

// Is reports whether t is other or extends it (directly or transitively).
func (t *Type) Is(other *Type) bool {
	if t == other {
		return true
	}
	for _, b := range t.bases {
		if b.Is(other) {
			return true
		}
	}
	return false
}

func (t *Type) String() string {
	return fmt.Sprintf("<Type %s>", t.name)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
