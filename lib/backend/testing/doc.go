// Package testing provides standardised tests and benchmarks for backend
// connections that satisfy the backend.Conn interface.
//
// The suite checks the part of the server contract the object mapping layer
// relies on: absent values, millisecond expiration, the store variants of
// the set operations, list and sorted set ranges, hash maps, conditional
// set for locks and the atomicity of batched and watched execution.
//
// Example usage:
//
//	factory := func(t testing.TB) backend.Conn {
//		srv := miniredis.RunT(t)
//		return redis.NewClient(&redis.Options{Addr: srv.Addr()})
//	}
//
//	conntesting.RunConnTests(t, "miniredis", factory)
//	conntesting.RunConnBenchmarks(b, "miniredis", factory)
package testing
