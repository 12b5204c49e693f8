package codec

import (
	"fmt"
	"reflect"

	"github.com/ValentinKolb/trol/lib/common"
	"github.com/puzpuzpuz/xsync/v3"
)

// EncodeFunc turns a value into its wire representation.
type EncodeFunc func(v interface{}) (string, error)

// DecodeFunc turns a wire representation back into a value.
type DecodeFunc func(s string) (interface{}, error)

// Registry maps declared value types to their encode and decode functions.
//
// Registration is last-write-wins: registering a function for a type that
// already has one replaces it. This is the intended way to override the
// built-in representation of a type. Already constructed properties and
// collections keep the functions they resolved at construction time.
//
// Thread-safety: all methods are safe for concurrent use.
type Registry struct {
	encoders *xsync.MapOf[reflect.Type, EncodeFunc]
	decoders *xsync.MapOf[reflect.Type, DecodeFunc]
}

// NewRegistry creates a registry with the built-in mappings for
// string, int, int64, float64, []byte and bool.
func NewRegistry() *Registry {
	r := NewEmptyRegistry()
	registerBuiltins(r)
	return r
}

// NewEmptyRegistry creates a registry without any mappings.
func NewEmptyRegistry() *Registry {
	return &Registry{
		encoders: xsync.NewMapOf[reflect.Type, EncodeFunc](),
		decoders: xsync.NewMapOf[reflect.Type, DecodeFunc](),
	}
}

// TypeOf returns the reflect.Type used as registry key for T.
// Interface types are supported (the static type is used, not the dynamic one).
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// --------------------------------------------------------------------------
// Registration
// --------------------------------------------------------------------------

// Register sets the encode function for t.
func (r *Registry) Register(t reflect.Type, fn EncodeFunc) {
	r.encoders.Store(t, fn)
}

// RegisterDecoder sets the decode function for t.
func (r *Registry) RegisterDecoder(t reflect.Type, fn DecodeFunc) {
	r.decoders.Store(t, fn)
}

// Unregister removes both functions registered for t.
func (r *Registry) Unregister(t reflect.Type) {
	r.encoders.Delete(t)
	r.decoders.Delete(t)
}

// --------------------------------------------------------------------------
// Lookup
// --------------------------------------------------------------------------

// Encoder returns the encode function for t.
func (r *Registry) Encoder(t reflect.Type) (EncodeFunc, bool) {
	return r.encoders.Load(t)
}

// Decoder returns the decode function for t.
func (r *Registry) Decoder(t reflect.Type) (DecodeFunc, bool) {
	return r.decoders.Load(t)
}

// Encode encodes v with the function registered for t.
func (r *Registry) Encode(t reflect.Type, v interface{}) (string, error) {
	fn, ok := r.Encoder(t)
	if !ok {
		return "", unsupported(t, "serializer")
	}
	return fn(v)
}

// Decode decodes s with the function registered for t.
func (r *Registry) Decode(t reflect.Type, s string) (interface{}, error) {
	fn, ok := r.Decoder(t)
	if !ok {
		return nil, unsupported(t, "deserializer")
	}
	return fn(s)
}

// Types returns every type that has an encoder registered.
func (r *Registry) Types() []reflect.Type {
	types := make([]reflect.Type, 0, r.encoders.Size())
	r.encoders.Range(func(t reflect.Type, _ EncodeFunc) bool {
		types = append(types, t)
		return true
	})
	return types
}

func unsupported(t reflect.Type, what string) error {
	name := "<nil>"
	if t != nil {
		name = t.String()
	}
	return common.Errorf(common.RetCUnsupportedType, "no %s registered for type %s", what, name)
}

// mismatch is returned when a registered function is handed a value of the wrong type
func mismatch(want reflect.Type, got interface{}) error {
	return fmt.Errorf("codec: expected value of type %s, got %T", want, got)
}
