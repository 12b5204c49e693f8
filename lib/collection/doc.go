// Package collection binds server side containers (sets, lists, sorted sets
// and hashes) to an owner.
//
// A collection value returned by NewSet, NewList, NewSortedSet or NewHash is
// a declaration: name, optional explicit key, optional connection override
// and the resolved codecs. Bind resolves it against an owner and returns a
// fresh proxy. Proxies are stateless: every call goes to the backend and
// nothing is cached locally.
//
// Key resolution:
//
//	explicit key                       if set
//	"{owner key}:{name}"               if the owner has a key
//	"{name}"                           if the owner has no key (a database)
//	configuration error                otherwise
//
// Connection resolution: the override of the declaration, else the
// connection of the owner; a configuration error if neither exists.
//
// Atomicity:
//
//   - Set comparisons (subset, superset, disjoint, equality) never transfer
//     members. They store an intersection, difference or union under a
//     scratch key, read its cardinality and delete it in one MULTI/EXEC batch.
//   - List Reverse and Copy read and rewrite inside one WATCH/MULTI/EXEC
//     transaction and are retried when another client modifies the list.
//   - Hash Replace deletes and rewrites in one batch.
//
// Variadic mutators (Add, Push, ...) take values directly or a slice with
// the ... spread; an empty argument list is a no-op.
package collection
