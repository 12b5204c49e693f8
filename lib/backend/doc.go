// Package backend defines the connection to the remote key-value server and
// the execution helpers the object mapping layer builds on.
//
// Key Components:
//
//   - Conn: the command surface of the server (redis.Cmdable) plus Watch for
//     optimistic transactions. *redis.Client from github.com/redis/go-redis/v9
//     satisfies it.
//
//   - Open: creates a client from a common.ClientConfig and installs the
//     optional metrics and command logging hooks.
//
//   - Batch: runs several commands as one MULTI/EXEC unit. Used wherever an
//     algorithm needs more than one command to observe a consistent state
//     (scratch key set algebra, multi key commits).
//
//   - Transaction: WATCH + MULTI/EXEC with bounded retry on conflict. Used for
//     read-then-write algorithms (list reverse and copy, lock release).
//
//   - ScratchKey: disposable keys of the form
//     trol:scratch:{process namespace}:{sequence}. Every call returns a new
//     key, so concurrent callers never share one.
//
//   - Hooks: NewMetricsHook exports command counters and durations through
//     github.com/VictoriaMetrics/metrics, NewLogHook writes commands to a
//     dragonboat style logger.
//
// Error handling:
//
//	Server and network errors are returned unchanged. The "no such value"
//	reply (redis.Nil) is an absent result, not an error; IsNil and NoNil help
//	callers translate it.
//
// Usage:
//
//	conn := backend.Open(common.DefaultClientConfig())
//	defer conn.Close()
//
//	cmds, err := backend.Batch(ctx, conn, func(p redis.Pipeliner) error {
//		p.Set(ctx, "a", "1", 0)
//		p.Incr(ctx, "b")
//		return nil
//	})
package backend
