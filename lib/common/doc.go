// Package common provides the data structures shared by every package of the
// object mapping layer.
//
// The package focuses on:
//   - The error taxonomy of the library (configuration, unsupported type,
//     precondition, deserialization, out of range, not found)
//   - Configuration structures for opening backend connections
//   - A custom logging implementation plugged into dragonboats logger facade
//
// Key Components:
//
//   - Error: the single error type raised by the library. It carries a RetCode
//     and, for failed model reference decoding, the offending bytes. The
//     package level sentinels (ErrConfiguration, ErrPrecondition, ...) match
//     any Error with the same code through errors.Is. Errors produced by the
//     backend are never wrapped and are returned verbatim.
//
//   - ClientConfig: connection parameters (endpoint, credentials, timeouts,
//     pool size, instrumentation switches).
//
//   - Logger: formats every line as "LEVEL | logger | message". The library
//     itself is silent on the success path; only the backend hooks and the
//     command line tool write log lines.
package common
