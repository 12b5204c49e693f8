package property

import (
	"context"
	"fmt"
	"reflect"

	"github.com/ValentinKolb/trol/lib/backend"
	"github.com/ValentinKolb/trol/lib/codec"
	"github.com/ValentinKolb/trol/lib/common"
)

// --------------------------------------------------------------------------
// Owner
// --------------------------------------------------------------------------

// Owner is the holder a property is bound to (an entity or a database).
type Owner interface {
	// Key is the prefix of the property keys. An empty key means the
	// property name is used as key on its own.
	Key() (string, error)
	// Conn resolves the backend connection.
	Conn() (backend.Conn, error)
	// Values is the local cache of the owner.
	Values() *Values
	// Autocommit and AlwaysFetch are the defaults for Inherit policies.
	Autocommit() bool
	AlwaysFetch() bool
}

// Binding is the untyped view on a property used by composed operations
// that work on several properties of an owner at once.
type Binding interface {
	Name() string
	// AssignName sets the name if none was given at declaration.
	AssignName(name string)
	Key(o Owner) (string, error)
	// Encoded returns the serialized cached value, false if unset.
	Encoded(o Owner) (string, bool, error)
	// SetAny caches v locally. v must be of the declared type or a number
	// convertible to it without loss.
	SetAny(o Owner, v interface{}) error
	Invalidate(o Owner)
	AutocommitFor(o Owner) bool
}

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

type options struct {
	name        string
	autocommit  Policy
	alwaysfetch Policy
	codec       interface{}
	registry    *codec.Registry
}

// Option configures a property at declaration.
type Option func(*options)

// WithName sets the name (the key suffix). Defaults to the attribute name
// the property is declared under.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithAutocommit sets whether assignments are written through to the backend.
func WithAutocommit(p Policy) Option {
	return func(o *options) { o.autocommit = p }
}

// WithAlwaysFetch sets whether every read fetches from the backend.
func WithAlwaysFetch(p Policy) Option {
	return func(o *options) { o.alwaysfetch = p }
}

// WithCodec supplies the serializer and/or deserializer. Missing functions
// are resolved from the registry.
func WithCodec[T any](c codec.Codec[T]) Option {
	return func(o *options) { o.codec = c }
}

// WithRegistry selects the registry used to resolve the codec.
func WithRegistry(r *codec.Registry) Option {
	return func(o *options) { o.registry = r }
}

// builtins resolves codecs when no registry is given. It is never mutated.
var builtins = codec.NewRegistry()

// --------------------------------------------------------------------------
// Property
// --------------------------------------------------------------------------

// Property binds a single value of type T to the key "{owner key}:{name}".
// The property itself is stateless and shared by every owner of a type; the
// cached value lives in the Values of the owner.
type Property[T any] struct {
	name        string
	autocommit  Policy
	alwaysfetch Policy
	codec       codec.Codec[T]
}

// New declares a property of type T. It fails with common.ErrUnsupportedType
// if T has no registered codec and none was supplied.
func New[T any](opts ...Option) (*Property[T], error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	var c codec.Codec[T]
	if o.codec != nil {
		typed, ok := o.codec.(codec.Codec[T])
		if !ok {
			return nil, common.Errorf(common.RetCConfiguration, "codec of type %T does not match property type %s", o.codec, codec.TypeOf[T]())
		}
		c = typed
	}
	reg := o.registry
	if reg == nil {
		reg = builtins
	}
	c, err := codec.Resolve(reg, c)
	if err != nil {
		return nil, err
	}

	return &Property[T]{
		name:        o.name,
		autocommit:  o.autocommit,
		alwaysfetch: o.alwaysfetch,
		codec:       c,
	}, nil
}

// Must is New that panics on error. Intended for package level declarations.
func Must[T any](opts ...Option) *Property[T] {
	p, err := New[T](opts...)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Property[T]) Name() string {
	return p.name
}

func (p *Property[T]) AssignName(name string) {
	if p.name == "" {
		p.name = name
	}
}

// Codec returns the resolved codec.
func (p *Property[T]) Codec() codec.Codec[T] {
	return p.codec
}

func (p *Property[T]) String() string {
	return fmt.Sprintf("<Property %s %s>", p.name, codec.TypeOf[T]())
}

// Key returns "{owner key}:{name}", or the name alone for owners without a key.
func (p *Property[T]) Key(o Owner) (string, error) {
	if p.name == "" {
		return "", common.NewError(common.RetCConfiguration, "property has no name")
	}
	prefix, err := o.Key()
	if err != nil {
		return "", err
	}
	if prefix == "" {
		return p.name, nil
	}
	return prefix + ":" + p.name, nil
}

// Value returns the cached value without contacting the backend.
func (p *Property[T]) Value(o Owner) (T, bool) {
	var zero T
	v, ok := o.Values().load(p.name)
	if !ok {
		return zero, false
	}
	tv, _ := v.(T)
	return tv, true
}

// Get returns the cached value. It fetches first when the value is unset or
// the effective alwaysfetch policy is enabled. ok is false when the backend
// has no value.
func (p *Property[T]) Get(ctx context.Context, o Owner) (v T, ok bool, err error) {
	v, ok = p.Value(o)
	if !ok || p.alwaysfetch.Resolve(o.AlwaysFetch()) {
		return p.Fetch(ctx, o)
	}
	return v, true, nil
}

// Set caches v locally. The backend is not touched.
func (p *Property[T]) Set(o Owner, v T) {
	o.Values().store(p.name, v)
}

func (p *Property[T]) SetAny(o Owner, v interface{}) error {
	tv, ok := v.(T)
	if !ok {
		tv, ok = convertNumber[T](v)
	}
	if !ok {
		return common.Errorf(common.RetCPrecondition, "property %s expects %s, got %T", p.name, codec.TypeOf[T](), v)
	}
	p.Set(o, tv)
	return nil
}

// convertNumber converts between numeric kinds when no precision is lost,
// e.g. an untyped constant 3 (int) for an int64 or float64 property.
func convertNumber[T any](v interface{}) (T, bool) {
	var zero T
	target := codec.TypeOf[T]()
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || !isNumber(rv.Kind()) || !isNumber(target.Kind()) {
		return zero, false
	}
	converted := rv.Convert(target)
	if !converted.Convert(rv.Type()).Equal(rv) || isNegative(converted) != isNegative(rv) {
		return zero, false
	}
	tv, ok := converted.Interface().(T)
	return tv, ok
}

func isNegative(v reflect.Value) bool {
	switch {
	case v.CanInt():
		return v.Int() < 0
	case v.CanFloat():
		return v.Float() < 0
	}
	return false
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// Assign caches v and commits it if the effective autocommit policy is enabled.
func (p *Property[T]) Assign(ctx context.Context, o Owner, v T) error {
	p.Set(o, v)
	if p.AutocommitFor(o) {
		_, err := p.Commit(ctx, o)
		return err
	}
	return nil
}

func (p *Property[T]) AutocommitFor(o Owner) bool {
	return p.autocommit.Resolve(o.Autocommit())
}

// Fetch reads the value from the backend and caches it. A missing key
// resets the cache to unset and returns ok == false.
func (p *Property[T]) Fetch(ctx context.Context, o Owner) (T, bool, error) {
	var zero T
	key, conn, err := p.resolve(o)
	if err != nil {
		return zero, false, err
	}

	raw, err := conn.Get(ctx, key).Result()
	if backend.IsNil(err) {
		p.Invalidate(o)
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}

	v, err := p.codec.Decode(raw)
	if err != nil {
		return zero, false, err
	}
	p.Set(o, v)
	return v, true, nil
}

// Commit writes the cached value. Committing an unset value is a no-op
// reporting success.
func (p *Property[T]) Commit(ctx context.Context, o Owner) (bool, error) {
	raw, ok, err := p.Encoded(o)
	if err != nil || !ok {
		return err == nil, err
	}
	key, conn, err := p.resolve(o)
	if err != nil {
		return false, err
	}
	if err := conn.Set(ctx, key, raw, 0).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Property[T]) Encoded(o Owner) (string, bool, error) {
	v, ok := p.Value(o)
	if !ok {
		return "", false, nil
	}
	raw, err := p.codec.Encode(v)
	if err != nil {
		return "", false, err
	}
	return raw, true, nil
}

// Delete removes the key and resets the cache. It reports whether a key was removed.
func (p *Property[T]) Delete(ctx context.Context, o Owner) (bool, error) {
	key, conn, err := p.resolve(o)
	if err != nil {
		return false, err
	}
	n, err := conn.Del(ctx, key).Result()
	if err != nil {
		return false, err
	}
	p.Invalidate(o)
	return n > 0, nil
}

// Invalidate resets the cache to unset. The backend is not touched.
func (p *Property[T]) Invalidate(o Owner) {
	o.Values().unset(p.name)
}

// Expire sets a ttl in seconds, rounded to the nearest millisecond. The
// cache is reset when the ttl is not positive or the key does not exist.
func (p *Property[T]) Expire(ctx context.Context, o Owner, seconds float64) (bool, error) {
	key, conn, err := p.resolve(o)
	if err != nil {
		return false, err
	}
	ttl := backend.TTL(seconds)
	ok, err := conn.PExpire(ctx, key, ttl).Result()
	if err != nil {
		return false, err
	}
	if ExpireInvalidates(ttl.Milliseconds(), ok) {
		p.Invalidate(o)
	}
	return ok, nil
}

// Exists checks the key in the backend. The cache is not touched.
func (p *Property[T]) Exists(ctx context.Context, o Owner) (bool, error) {
	key, conn, err := p.resolve(o)
	if err != nil {
		return false, err
	}
	n, err := conn.Exists(ctx, key).Result()
	return n > 0, err
}

func (p *Property[T]) resolve(o Owner) (string, backend.Conn, error) {
	key, err := p.Key(o)
	if err != nil {
		return "", nil, err
	}
	conn, err := o.Conn()
	if err != nil {
		return "", nil, err
	}
	return key, conn, nil
}

// ExpireInvalidates reports whether an expire with ttlMillis that returned
// ok leaves the cached value stale.
func ExpireInvalidates(ttlMillis int64, ok bool) bool {
	return ttlMillis <= 0 || !ok
}

var _ Binding = (*Property[string])(nil)
