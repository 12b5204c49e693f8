package model

import (
	"context"
	"fmt"
	"time"

	"github.com/ValentinKolb/trol/lib/backend"
	"github.com/ValentinKolb/trol/lib/common"
	"github.com/ValentinKolb/trol/lib/lockmgr"
	"github.com/ValentinKolb/trol/lib/property"
	"github.com/redis/go-redis/v9"
)

// Owner is the parent of an entity: another entity or a database.
// An owner with an empty key does not prefix the keys of its children.
type Owner interface {
	Key() (string, error)
	Conn() (backend.Conn, error)
}

// --------------------------------------------------------------------------
// Entity
// --------------------------------------------------------------------------

// Entity is one instance of a Type: a node in the key hierarchy.
//
// Its key is recomputed on every access:
//
//	explicit key                                   if set
//	[{owner key}:]{model name}:{identifier}        otherwise
//
// Entities are not safe for concurrent mutation of the same property.
type Entity struct {
	typ         *Type
	id          string
	hasID       bool
	modelName   string
	key         string
	owner       Owner
	conn        backend.Conn
	values      *property.Values
	autocommit  property.Policy
	alwaysfetch property.Policy
}

// EntityOption configures an entity at construction.
type EntityOption func(*Entity)

// WithOwner nests the entity under o.
func WithOwner(o Owner) EntityOption {
	return func(e *Entity) { e.owner = o }
}

// WithConn overrides the connection inherited from the owner.
func WithConn(conn backend.Conn) EntityOption {
	return func(e *Entity) { e.conn = conn }
}

// WithKey sets an explicit key.
func WithKey(key string) EntityOption {
	return func(e *Entity) { e.key = key }
}

// WithModelName overrides the model name (default: the type name).
func WithModelName(name string) EntityOption {
	return func(e *Entity) { e.modelName = name }
}

// New creates an entity of t with the given identifier. Nothing is read
// from or written to the backend.
func (t *Type) New(id string, opts ...EntityOption) *Entity {
	e := t.NewEmpty(opts...)
	e.SetID(id)
	return e
}

// NewEmpty creates an entity of t without identifier. Its key cannot be
// computed until SetID or SetKey is called.
func (t *Type) NewEmpty(opts ...EntityOption) *Entity {
	e := &Entity{
		typ:    t,
		values: property.NewValues(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Entity) Type() *Type { return e.typ }

// ID returns the identifier; ok is false if none is set.
func (e *Entity) ID() (string, bool) { return e.id, e.hasID }

func (e *Entity) SetID(id string) {
	e.id = id
	e.hasID = true
}

// ModelName returns the model name override, else the type name.
func (e *Entity) ModelName() string {
	if e.modelName != "" {
		return e.modelName
	}
	return e.typ.name
}

func (e *Entity) SetModelName(name string) { e.modelName = name }

// ExplicitKey returns the explicit key, empty if none is set.
func (e *Entity) ExplicitKey() string { return e.key }

func (e *Entity) SetKey(key string) { e.key = key }

func (e *Entity) Owner() Owner { return e.owner }

func (e *Entity) SetOwner(o Owner) { e.owner = o }

func (e *Entity) SetConn(conn backend.Conn) { e.conn = conn }

// SetAutocommit overrides the autocommit default of the type for this entity.
func (e *Entity) SetAutocommit(p property.Policy) { e.autocommit = p }

// SetAlwaysFetch overrides the alwaysfetch default of the type for this entity.
func (e *Entity) SetAlwaysFetch(p property.Policy) { e.alwaysfetch = p }

// Key computes the key. It fails with common.ErrPrecondition when neither
// an explicit key nor an identifier is set.
func (e *Entity) Key() (string, error) {
	if e.key != "" {
		return e.key, nil
	}
	if !e.hasID {
		return "", common.Errorf(common.RetCPrecondition, "%s entity has no identifier; set it before using the key", e.typ.name)
	}
	own := e.ModelName() + ":" + e.id
	if e.owner == nil {
		return own, nil
	}
	prefix, err := e.owner.Key()
	if err != nil {
		return "", err
	}
	if prefix == "" {
		return own, nil
	}
	return prefix + ":" + own, nil
}

// Conn resolves the connection: the override of the entity, else the
// connection of the owner chain.
func (e *Entity) Conn() (backend.Conn, error) {
	if e.conn != nil {
		return e.conn, nil
	}
	if e.owner != nil {
		return e.owner.Conn()
	}
	return nil, common.Errorf(common.RetCConfiguration, "%s entity has no connection and no owner to inherit one from", e.typ.name)
}

func (e *Entity) Values() *property.Values { return e.values }

func (e *Entity) Autocommit() bool { return e.autocommit.Resolve(e.typ.autocommit) }

func (e *Entity) AlwaysFetch() bool { return e.alwaysfetch.Resolve(e.typ.alwaysfetch) }

func (e *Entity) String() string {
	key, err := e.Key()
	if err != nil {
		return fmt.Sprintf("<%s (no key)>", e.typ.name)
	}
	return fmt.Sprintf("<%s '%s'>", e.typ.name, key)
}

// --------------------------------------------------------------------------
// Members
// --------------------------------------------------------------------------

// Field returns the property declared under attr.
func (e *Entity) Field(attr string) (property.Binding, error) {
	p, ok := e.typ.fields[attr]
	if !ok {
		return nil, common.Errorf(common.RetCNotFound, "%s has no property %q", e.typ.name, attr)
	}
	return p, nil
}

// Collection returns a fresh proxy of the collection declared under attr,
// bound to e. The concrete type is the one of the declaration, e.g.
// *collection.Set[string].
func (e *Entity) Collection(attr string) (interface{}, error) {
	c, ok := e.typ.collections[attr]
	if !ok {
		return nil, common.Errorf(common.RetCNotFound, "%s has no collection %q", e.typ.name, attr)
	}
	return c.BindAny(e)
}

// Lock returns the lock declared under attr, bound to e.
func (e *Entity) Lock(attr string) (*lockmgr.Handle, error) {
	l, ok := e.typ.locks[attr]
	if !ok {
		return nil, common.Errorf(common.RetCNotFound, "%s has no lock %q", e.typ.name, attr)
	}
	return l.Bind(e)
}

// Nested creates a child entity of the nested type declared under attr.
func (e *Entity) Nested(attr, id string, opts ...EntityOption) (*Entity, error) {
	t, ok := e.typ.models[attr]
	if !ok {
		return nil, common.Errorf(common.RetCNotFound, "%s has no nested model %q", e.typ.name, attr)
	}
	return t.New(id, append([]EntityOption{WithOwner(e)}, opts...)...), nil
}

// --------------------------------------------------------------------------
// Composed operations
//
// Each operation works on the named properties, or on all properties of the
// type when no name is given, with a single round trip.
// --------------------------------------------------------------------------

func (e *Entity) bindings(attrs []string) ([]property.Binding, error) {
	if len(attrs) == 0 {
		attrs = e.typ.Fields()
	}
	out := make([]property.Binding, 0, len(attrs))
	for _, attr := range attrs {
		p, err := e.Field(attr)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (e *Entity) keys(props []property.Binding) ([]string, error) {
	keys := make([]string, len(props))
	for i, p := range props {
		k, err := p.Key(e)
		if err != nil {
			return nil, err
		}
		keys[i] = k
	}
	return keys, nil
}

// Commit writes the cached values of the properties with one MSET.
// Unset properties are skipped; if nothing is set no command is sent.
func (e *Entity) Commit(ctx context.Context, attrs ...string) error {
	props, err := e.bindings(attrs)
	if err != nil {
		return err
	}
	pairs := make([]interface{}, 0, 2*len(props))
	for _, p := range props {
		raw, ok, err := p.Encoded(e)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		key, err := p.Key(e)
		if err != nil {
			return err
		}
		pairs = append(pairs, key, raw)
	}
	if len(pairs) == 0 {
		return nil
	}
	conn, err := e.Conn()
	if err != nil {
		return err
	}
	return conn.MSet(ctx, pairs...).Err()
}

// Invalidate resets the cached values of the properties.
func (e *Entity) Invalidate(attrs ...string) error {
	props, err := e.bindings(attrs)
	if err != nil {
		return err
	}
	for _, p := range props {
		p.Invalidate(e)
	}
	return nil
}

// Delete removes the keys of the properties with one DEL and resets their
// cached values. It returns the number of removed keys.
func (e *Entity) Delete(ctx context.Context, attrs ...string) (int64, error) {
	props, err := e.bindings(attrs)
	if err != nil || len(props) == 0 {
		return 0, err
	}
	keys, err := e.keys(props)
	if err != nil {
		return 0, err
	}
	conn, err := e.Conn()
	if err != nil {
		return 0, err
	}
	n, err := conn.Del(ctx, keys...).Result()
	if err != nil {
		return 0, err
	}
	for _, p := range props {
		p.Invalidate(e)
	}
	return n, nil
}

// Exists checks the keys of the properties in one pipeline. With names
// given, all of them must exist; without, at least one property must exist.
func (e *Entity) Exists(ctx context.Context, attrs ...string) (bool, error) {
	props, err := e.bindings(attrs)
	if err != nil || len(props) == 0 {
		return false, err
	}
	keys, err := e.keys(props)
	if err != nil {
		return false, err
	}
	conn, err := e.Conn()
	if err != nil {
		return false, err
	}

	cmds := make([]*redis.IntCmd, len(keys))
	_, err = conn.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, k := range keys {
			cmds[i] = p.Exists(ctx, k)
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	all := len(attrs) > 0
	for _, c := range cmds {
		found := c.Val() > 0
		if all && !found {
			return false, nil
		}
		if !all && found {
			return true, nil
		}
	}
	return all, nil
}

// Update caches the given values and commits, in one MSET, those whose
// effective autocommit policy is enabled. A value must have the declared
// type of its property; numbers are converted when no precision is lost.
func (e *Entity) Update(ctx context.Context, values map[string]interface{}) error {
	commits := make([]string, 0, len(values))
	for attr, v := range values {
		p, err := e.Field(attr)
		if err != nil {
			return err
		}
		if err := p.SetAny(e, v); err != nil {
			return err
		}
		if p.AutocommitFor(e) {
			commits = append(commits, attr)
		}
	}
	if len(commits) == 0 {
		return nil
	}
	return e.Commit(ctx, commits...)
}

// ExpireOption selects the ttl of Expire.
type ExpireOption func(*expireTTLs)

type expireTTLs struct {
	all      *float64
	perField map[string]float64
}

// ExpireAll sets a ttl in seconds for every property without its own ttl.
func ExpireAll(seconds float64) ExpireOption {
	return func(s *expireTTLs) { s.all = &seconds }
}

// ExpireField sets the ttl in seconds of one property. It overrides ExpireAll.
func ExpireField(attr string, seconds float64) ExpireOption {
	return func(s *expireTTLs) { s.perField[attr] = seconds }
}

// Expire sets ttls on the keys of the properties in one pipeline. Without
// options it does nothing. Cached values are reset like property.Expire
// does. It reports whether every PEXPIRE succeeded.
func (e *Entity) Expire(ctx context.Context, opts ...ExpireOption) (bool, error) {
	ttls := &expireTTLs{perField: make(map[string]float64)}
	for _, opt := range opts {
		opt(ttls)
	}
	if ttls.all == nil && len(ttls.perField) == 0 {
		return true, nil
	}
	for attr := range ttls.perField {
		if _, ok := e.typ.fields[attr]; !ok {
			return false, common.Errorf(common.RetCNotFound, "%s has no property %q", e.typ.name, attr)
		}
	}

	type target struct {
		prop property.Binding
		key  string
		ttl  time.Duration
		cmd  *redis.BoolCmd
	}
	var targets []*target
	for _, attr := range e.typ.Fields() {
		seconds, ok := ttls.perField[attr]
		if !ok {
			if ttls.all == nil {
				continue
			}
			seconds = *ttls.all
		}
		p := e.typ.fields[attr]
		key, err := p.Key(e)
		if err != nil {
			return false, err
		}
		targets = append(targets, &target{prop: p, key: key, ttl: backend.TTL(seconds)})
	}

	conn, err := e.Conn()
	if err != nil {
		return false, err
	}
	_, err = conn.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, t := range targets {
			t.cmd = p.PExpire(ctx, t.key, t.ttl)
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	allOK := true
	for _, t := range targets {
		ok := t.cmd.Val()
		if property.ExpireInvalidates(t.ttl.Milliseconds(), ok) {
			t.prop.Invalidate(e)
		}
		allOK = allOK && ok
	}
	return allOK, nil
}
