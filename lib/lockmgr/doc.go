// Package lockmgr implements distributed locks on the backend and binds
// them to entities.
//
// The lock manager only ever stores in the backend and has no other internal
// state. Therefore it is safe to be created multiple times on the same
// connection. It is even possible to create a new manager for every acquire
// and or release operation.
//
// Core Functionality:
//   - Lock acquisition with ownership verification
//   - Automatic lock expiration through configurable timeouts
//   - Safe release and extend operations that verify ownership
//
// Implementation Approach:
//
//	- Lock Acquisition: SET NX creates the key only if it does not exist,
//	  which guarantees that only one requester succeeds. The value is a
//	  random owner ID (uuid) that identifies the holder.
//
//	- Timeouts: Locks can be created with a timeout after which the backend
//	  removes them, preventing deadlocks if a client crashes.
//
//	- Safe Release: ReleaseLock watches the key, compares the stored owner
//	  ID and deletes the key in a MULTI/EXEC block. If the key changes in
//	  between, the transaction is retried.
//
// Lock Binding:
//
// A Lock is declared once per entity type (model.WithLock) and bound to an
// owner, giving a Handle on the key "{owner key}:{name}":
//
//	mutex := lockmgr.New(lockmgr.WithTimeout(30 * time.Second))
//	Sleepy := model.NewType("Sleepy", model.WithLock("sleepy_lock", mutex))
//
//	h, _ := db.New(Sleepy, "foo").Lock("sleepy_lock") // Sleepy:foo:sleepy_lock
//	err := h.Do(ctx, func() error {
//	    // exclusive
//	    return nil
//	})
//
// Acquire retries every WithSleep interval until it succeeds, the
// WithBlockingTimeout elapses or the context is done. TryAcquire makes one
// attempt.
//
// Security Considerations:
//
//	Owner IDs provide reasonable protection against accidental lock
//	stealing. They do not resist malicious clients with access to the
//	backend, which can manipulate lock keys directly.
package lockmgr
