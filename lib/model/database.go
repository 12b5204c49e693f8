package model

import (
	"context"

	"github.com/ValentinKolb/trol/lib/backend"
	"github.com/ValentinKolb/trol/lib/codec"
	"github.com/ValentinKolb/trol/lib/collection"
	"github.com/ValentinKolb/trol/lib/common"
	"github.com/ValentinKolb/trol/lib/property"
)

// Database is the top level container. It holds the connection inherited
// by the entities created under it, the type registry used to decode
// entity references, and its own properties and collections, which are
// stored under their bare names.
type Database struct {
	conn        backend.Conn
	types       *Registry
	codecs      *codec.Registry
	values      *property.Values
	fields      map[string]property.Binding
	collections map[string]collection.Binding
}

// DatabaseOption configures a Database.
type DatabaseOption func(*Database)

// DatabaseField declares a database level property under attr.
func DatabaseField(attr string, p property.Binding) DatabaseOption {
	return func(d *Database) {
		p.AssignName(attr)
		d.fields[attr] = p
	}
}

// DatabaseCollection declares a database level collection under attr.
func DatabaseCollection(attr string, c collection.Binding) DatabaseOption {
	return func(d *Database) {
		c.AssignName(attr)
		d.collections[attr] = c
	}
}

// DatabaseTypes registers entity types for reference decoding.
func DatabaseTypes(types ...*Type) DatabaseOption {
	return func(d *Database) { d.types.Register(types...) }
}

// DatabaseCodecs sets the codec registry; *Entity references are
// registered in it.
func DatabaseCodecs(c *codec.Registry) DatabaseOption {
	return func(d *Database) { d.codecs = c }
}

// NewDatabase creates a database on conn.
func NewDatabase(conn backend.Conn, opts ...DatabaseOption) *Database {
	d := &Database{
		conn:        conn,
		types:       NewRegistry(),
		codecs:      codec.NewRegistry(),
		values:      property.NewValues(),
		fields:      make(map[string]property.Binding),
		collections: make(map[string]collection.Binding),
	}
	d.types.db = d
	for _, opt := range opts {
		opt(d)
	}
	RegisterRefs(d.codecs, d.types)
	return d
}

// Key is empty: database members use their bare names as keys and
// entities created under the database are not prefixed.
func (d *Database) Key() (string, error) { return "", nil }

func (d *Database) Conn() (backend.Conn, error) {
	if d.conn == nil {
		return nil, common.NewError(common.RetCConfiguration, "database has no connection")
	}
	return d.conn, nil
}

// SetConn replaces the connection. Entities without their own override
// follow the change.
func (d *Database) SetConn(conn backend.Conn) { d.conn = conn }

func (d *Database) Values() *property.Values { return d.values }

func (d *Database) Autocommit() bool { return true }

func (d *Database) AlwaysFetch() bool { return false }

// Types returns the type registry.
func (d *Database) Types() *Registry { return d.types }

// Codecs returns the codec registry (with *Entity registered).
func (d *Database) Codecs() *codec.Registry { return d.codecs }

// New creates an entity of t owned by the database. t is registered for
// reference decoding.
func (d *Database) New(t *Type, id string, opts ...EntityOption) *Entity {
	d.types.Register(t)
	return t.New(id, append([]EntityOption{WithOwner(d)}, opts...)...)
}

// Field returns the database level property declared under attr.
func (d *Database) Field(attr string) (property.Binding, error) {
	p, ok := d.fields[attr]
	if !ok {
		return nil, common.Errorf(common.RetCNotFound, "database has no property %q", attr)
	}
	return p, nil
}

// Collection returns a fresh proxy of the database level collection declared under attr.
func (d *Database) Collection(attr string) (interface{}, error) {
	c, ok := d.collections[attr]
	if !ok {
		return nil, common.Errorf(common.RetCNotFound, "database has no collection %q", attr)
	}
	return c.BindAny(d)
}

// Ping checks the connection.
func (d *Database) Ping(ctx context.Context) error {
	conn, err := d.Conn()
	if err != nil {
		return err
	}
	return backend.Ping(ctx, conn)
}
