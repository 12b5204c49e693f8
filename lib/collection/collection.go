package collection

import (
	"context"
	"fmt"
	"strings"

	"github.com/ValentinKolb/trol/lib/backend"
	"github.com/ValentinKolb/trol/lib/codec"
	"github.com/ValentinKolb/trol/lib/common"
)

// --------------------------------------------------------------------------
// Owner & Binding
// --------------------------------------------------------------------------

// Owner is what a collection is bound to (an entity or a database).
type Owner interface {
	// Key is the prefix of the collection key; empty means the name is used alone.
	Key() (string, error)
	Conn() (backend.Conn, error)
}

// Binding is the untyped view on a collection declaration.
type Binding interface {
	Name() string
	// AssignName sets the name if none was given at declaration.
	AssignName(name string)
	// Kind is one of "Set", "List", "SortedSet", "Hash".
	Kind() string
	// BindAny returns the bound proxy (the same as the typed Bind).
	BindAny(o Owner) (interface{}, error)
}

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

type options struct {
	name       string
	key        string
	conn       backend.Conn
	registry   *codec.Registry
	codec      interface{}
	fieldCodec interface{}
}

// Option configures a collection at declaration.
type Option func(*options)

// WithName sets the name (the key suffix). Defaults to the attribute name.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithKey sets an explicit key, bypassing the owner prefix.
func WithKey(key string) Option {
	return func(o *options) { o.key = key }
}

// WithConn overrides the connection of the owner.
func WithConn(conn backend.Conn) Option {
	return func(o *options) { o.conn = conn }
}

// WithRegistry selects the registry used to resolve codecs.
func WithRegistry(r *codec.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithCodec supplies the element (Hash: value) serializer and/or deserializer.
func WithCodec[T any](c codec.Codec[T]) Option {
	return func(o *options) { o.codec = c }
}

// WithFieldCodec supplies the field name codec of a Hash.
func WithFieldCodec[K any](c codec.Codec[K]) Option {
	return func(o *options) { o.fieldCodec = c }
}

// builtins resolves codecs when no registry is given. It is never mutated.
var builtins = codec.NewRegistry()

func applyOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = builtins
	}
	return o
}

func resolveCodec[T any](reg *codec.Registry, supplied interface{}, what string) (codec.Codec[T], error) {
	var c codec.Codec[T]
	if supplied != nil {
		typed, ok := supplied.(codec.Codec[T])
		if !ok {
			return c, common.Errorf(common.RetCConfiguration, "%s codec of type %T does not match %s", what, supplied, codec.TypeOf[T]())
		}
		c = typed
	}
	return codec.Resolve(reg, c)
}

// --------------------------------------------------------------------------
// Base
// --------------------------------------------------------------------------

// base holds name, key and connection shared by all collection kinds. On a
// declaration key and conn are the explicit overrides; on a bound proxy
// both are resolved.
type base struct {
	kind string
	name string
	key  string
	conn backend.Conn
}

func (b *base) Name() string { return b.name }

func (b *base) Kind() string { return b.kind }

func (b *base) AssignName(name string) {
	if b.name == "" {
		b.name = name
	}
}

// Key returns the backing key. Empty on an unbound declaration without explicit key.
func (b *base) Key() string { return b.key }

// Conn returns the connection. Nil on an unbound declaration without override.
func (b *base) Conn() backend.Conn { return b.conn }

func (b *base) String() string {
	if b.key != "" {
		return fmt.Sprintf("<%s '%s'>", b.kind, b.key)
	}
	return fmt.Sprintf("<%s %s>", b.kind, b.name)
}

// bind resolves key and connection against o.
func (b *base) bind(o Owner) (base, error) {
	bound := *b

	if bound.key == "" {
		if o == nil || bound.name == "" {
			return bound, common.Errorf(common.RetCConfiguration,
				"%s does not have its name or key set; if not bound to an entity, at least one must be set explicitly", b.kind)
		}
		prefix, err := o.Key()
		if err != nil {
			return bound, err
		}
		if prefix == "" {
			bound.key = bound.name
		} else {
			bound.key = prefix + ":" + bound.name
		}
	}

	if bound.conn == nil && o != nil {
		conn, err := o.Conn()
		if err != nil {
			return bound, err
		}
		bound.conn = conn
	}
	if bound.conn == nil {
		return bound, common.Errorf(common.RetCConfiguration, "%s %q has no connection to resolve", b.kind, bound.key)
	}
	return bound, nil
}

// ready fails unless key and connection are known.
func (b *base) ready() error {
	if b.key == "" {
		return common.Errorf(common.RetCConfiguration, "%s %s is not bound (no key)", b.kind, b.name)
	}
	if b.conn == nil {
		return common.Errorf(common.RetCConfiguration, "%s %q has no connection", b.kind, b.key)
	}
	return nil
}

// Clear deletes the backing key. It reports whether a key was removed.
func (b *base) Clear(ctx context.Context) (bool, error) {
	if err := b.ready(); err != nil {
		return false, err
	}
	n, err := b.conn.Del(ctx, b.key).Result()
	return n > 0, err
}

// SetExpire sets a ttl in seconds (millisecond resolution) on the backing key.
func (b *base) SetExpire(ctx context.Context, seconds float64) (bool, error) {
	if err := b.ready(); err != nil {
		return false, err
	}
	return b.conn.PExpire(ctx, b.key, backend.TTL(seconds)).Result()
}

// Exists reports whether the backing key exists.
func (b *base) Exists(ctx context.Context) (bool, error) {
	if err := b.ready(); err != nil {
		return false, err
	}
	n, err := b.conn.Exists(ctx, b.key).Result()
	return n > 0, err
}

// outOfRange translates the server reply of LSET on a bad index.
func outOfRange(key string, idx int64, err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "out of range") || strings.Contains(msg, "no such key") {
		return common.Errorf(common.RetCOutOfRange, "index %d out of range for %s", idx, key)
	}
	return err
}

// sliceBounds translates half-open [start, stop) with negative indices
// into the inclusive range of the server. ok is false for an empty range.
func sliceBounds(start, stop, length int64) (int64, int64, bool) {
	clamp := func(i int64) int64 {
		if i < 0 {
			i += length
			if i < 0 {
				i = 0
			}
		}
		if i > length {
			i = length
		}
		return i
	}
	start, stop = clamp(start), clamp(stop)
	if stop <= start {
		return 0, 0, false
	}
	return start, stop - 1, true
}
