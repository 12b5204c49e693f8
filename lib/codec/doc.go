// Package codec provides the serialization registry used by properties and
// collections to turn typed values into the string payloads stored in the
// backend and back.
//
// The package focuses on:
//   - An explicit, injectable registry (no hidden global state)
//   - Exact round trips for the built-in types
//   - Typed codecs resolved once, at declaration time
//
// Key Components:
//
//   - Registry: maps a reflect.Type to an EncodeFunc and a DecodeFunc. A new
//     registry starts with human readable mappings for string, int, int64,
//     float64, []byte and bool (booleans are stored as "True" / "False").
//     Registration is last-write-wins and is the supported override point.
//
//   - Codec[T]: a typed pair of functions. For and Resolve build a Codec from a
//     registry and fail with common.ErrUnsupportedType when a function is
//     missing and was not supplied explicitly.
//
//   - Msgpack, JSON, Gob: ready made codecs for arbitrary types, usable either
//     explicitly at a declaration site or registered with RegisterMsgpack /
//     RegisterJSON.
//
// Thread Safety:
//
//	The registry is backed by concurrent maps and can be read and written from
//	multiple goroutines. Codecs are immutable values.
//
// Usage:
//
//	reg := codec.NewRegistry()
//	codec.RegisterMsgpack[Address](reg)
//
//	c, err := codec.For[Address](reg)
//	wire, err := c.Encode(Address{Street: "Main St"})
package codec
