package backend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// --------------------------------------------------------------------------
// Batched execution
// --------------------------------------------------------------------------

// MaxTxRetries bounds how often Transaction re-runs fn after a watched key
// was modified by another client.
var MaxTxRetries = 32

// Batch queues the commands issued by fn and sends them wrapped in
// MULTI/EXEC, so they apply as one indivisible unit. The queued commands
// are returned in issue order. A redis.Nil reply of a single command does
// not fail the batch; the first other command error does.
func Batch(ctx context.Context, conn Conn, fn func(redis.Pipeliner) error) ([]redis.Cmder, error) {
	cmds, err := conn.TxPipelined(ctx, fn)
	if !IsNil(err) {
		return cmds, err
	}
	// go-redis reports the first failed command only
	for _, cmd := range cmds {
		if cerr := cmd.Err(); cerr != nil && !IsNil(cerr) {
			return cmds, cerr
		}
	}
	return cmds, nil
}

// Transaction runs fn with the keys watched and retries it when EXEC
// reports a conflict. fn reads through the *redis.Tx and issues its writes
// with tx.TxPipelined. Any other error is returned unchanged.
func Transaction(ctx context.Context, conn Conn, fn func(*redis.Tx) error, keys ...string) error {
	for i := 0; i < MaxTxRetries; i++ {
		err := conn.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		Logger.Debugf("transaction on %v conflicted, retry %d", keys, i+1)
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return fmt.Errorf("transaction on %v: %w (gave up after %d attempts)", keys, redis.TxFailedErr, MaxTxRetries)
}

// --------------------------------------------------------------------------
// Scratch keys
// --------------------------------------------------------------------------

var (
	// scratchNamespace is fixed for the lifetime of the process
	scratchNamespace = uuid.NewString()
	scratchSeq       atomic.Uint64
)

// ScratchPrefix is the key prefix of every scratch key.
const ScratchPrefix = "trol:scratch:"

// ScratchKey returns a fresh disposable key. Keys are unique per call, so
// concurrent callers sharing one server never collide, and disjoint from
// keys of other processes through the random namespace.
func ScratchKey() string {
	return fmt.Sprintf("%s%s:%d", ScratchPrefix, scratchNamespace, scratchSeq.Add(1))
}

// --------------------------------------------------------------------------
// Expiration
// --------------------------------------------------------------------------

// TTL converts seconds into a duration rounded to the nearest millisecond.
func TTL(seconds float64) time.Duration {
	return time.Duration(math.Round(seconds*1000)) * time.Millisecond
}
