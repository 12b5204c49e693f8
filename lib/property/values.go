package property

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// Values holds the locally cached values of one owner, keyed by property
// name. A missing entry is the unset state.
type Values struct {
	m *xsync.MapOf[string, interface{}]
}

// NewValues returns an empty cache.
func NewValues() *Values {
	return &Values{m: xsync.NewMapOf[string, interface{}]()}
}

func (v *Values) load(name string) (interface{}, bool) {
	return v.m.Load(name)
}

func (v *Values) store(name string, value interface{}) {
	v.m.Store(name, value)
}

func (v *Values) unset(name string) {
	v.m.Delete(name)
}

// IsSet reports whether a value is cached under name.
func (v *Values) IsSet(name string) bool {
	_, ok := v.m.Load(name)
	return ok
}

// Len returns the number of cached values.
func (v *Values) Len() int {
	return v.m.Size()
}

// Reset drops every cached value.
func (v *Values) Reset() {
	v.m.Clear()
}
