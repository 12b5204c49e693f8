// Package model composes properties and collections into entity types and
// places entities in a key hierarchy.
//
// Types are built explicitly:
//
//	var (
//		Name = property.Must[string]()
//		Tags = collection.MustSet[string]()
//
//		User = model.NewType("User",
//			model.WithField("name", Name),
//			model.WithCollection("tags", Tags),
//		)
//	)
//
// NewType assigns attribute names to unnamed members, merges the maps of
// base types (Extends) and returns an immutable descriptor.
//
// Key hierarchy:
//
//	u := db.New(User, "42")          // User:42
//	a, _ := u.Nested("address", "1") // User:42:Address:1
//	Name.Assign(ctx, u, "bob")       // SET User:42:name bob
//	tags, _ := Tags.Bind(u)          // User:42:tags
//
// Keys are recomputed on every access and never cached. Identifiers must
// not contain the ':' delimiter; this is not checked.
//
// Composed operations (Commit, Invalidate, Delete, Exists, Update, Expire)
// work on several properties of an entity with one round trip.
//
// Entity references (EncodeRef, Registry.DecodeRef, RegisterRefs) store a
// pointer to an entity as a value: type name, identifier, model name and
// explicit key. Types must be registered to be decodable.
package model
