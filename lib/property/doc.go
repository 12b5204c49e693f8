// Package property binds single typed values of an owner to keys of the
// backend.
//
// A Property is declared once per entity type and shared by all entities of
// that type. Each entity carries its own Values cache. The state of a
// property per owner is either unset or a decoded value; it is never
// partially written.
//
//   - Get serves the cached value, fetching first when the value is unset or
//     the effective alwaysfetch policy is enabled.
//   - Assign caches the value and commits it when the effective autocommit
//     policy is enabled. Set only caches.
//   - Commit of an unset value is a no-op reporting success.
//   - Invalidate never contacts the backend.
//   - Expire rounds to milliseconds and invalidates the cache when the ttl is
//     not positive or the key did not exist.
//
// Policies are tri-state (Inherit, Enabled, Disabled). Inherit resolves to
// the default of the owner: autocommit defaults to true, alwaysfetch to false.
//
// The key of a property is "{owner key}:{name}", or the bare name for owners
// without key (a database).
package property
