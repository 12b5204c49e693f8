// Package cmd implements the command-line interface of trol. It provides a
// hierarchical command structure for working with a key-value server
// through the object mapping layer.
//
// The package is organized into several subpackages:
//
//   - kv: Commands for raw key operations (get, set, del, ttl, type, keys, show) and the perf tool
//   - lock: Commands for locking operations (acquire, release, extend)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Every flag can also be set through an environment variable with the
// TROL_ prefix (e.g. TROL_ENDPOINT), which may be placed in a .env or
// .env.local file.
//
// See trol -help for a list of all commands.
package cmd
