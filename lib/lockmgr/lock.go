package lockmgr

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ValentinKolb/trol/lib/backend"
	"github.com/ValentinKolb/trol/lib/common"
)

// Owner is anything a lock can be bound to: an entity or a database.
type Owner interface {
	Key() (string, error)
	Conn() (backend.Conn, error)
}

// DefaultSleep is the time between two acquisition attempts of Acquire.
const DefaultSleep = 100 * time.Millisecond

// --------------------------------------------------------------------------
// Lock declaration
// --------------------------------------------------------------------------

// Lock declares a distributed lock per owner. The lock of an owner is
// stored under "{owner key}:{name}" and holds the owner ID of its holder.
// A declaration is stateless and may be shared by any number of owners
// and goroutines.
type Lock struct {
	name            string
	timeout         time.Duration
	sleep           time.Duration
	blockingTimeout time.Duration
}

type Option func(*Lock)

// WithName sets the name explicitly.
func WithName(name string) Option {
	return func(l *Lock) { l.name = name }
}

// WithTimeout sets the time after which a held lock expires (zero: never).
func WithTimeout(d time.Duration) Option {
	return func(l *Lock) { l.timeout = d }
}

// WithSleep sets the time between two acquisition attempts.
func WithSleep(d time.Duration) Option {
	return func(l *Lock) { l.sleep = d }
}

// WithBlockingTimeout bounds the time Acquire waits (zero: until ctx is done).
func WithBlockingTimeout(d time.Duration) Option {
	return func(l *Lock) { l.blockingTimeout = d }
}

// New declares a lock.
func New(opts ...Option) *Lock {
	l := &Lock{
		sleep: DefaultSleep,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Lock) Name() string { return l.name }

// AssignName sets the name unless one is already set.
func (l *Lock) AssignName(name string) {
	if l.name == "" {
		l.name = name
	}
}

func (l *Lock) String() string {
	return fmt.Sprintf("<Lock %s>", l.name)
}

// Key returns "{owner key}:{name}", or the name alone for owners without a key.
func (l *Lock) Key(o Owner) (string, error) {
	if l.name == "" {
		return "", common.NewError(common.RetCConfiguration, "lock has no name")
	}
	prefix, err := o.Key()
	if err != nil {
		return "", err
	}
	if prefix == "" {
		return l.name, nil
	}
	return prefix + ":" + l.name, nil
}

// Bind resolves key and connection of the lock of o.
func (l *Lock) Bind(o Owner) (*Handle, error) {
	key, err := l.Key(o)
	if err != nil {
		return nil, err
	}
	conn, err := o.Conn()
	if err != nil {
		return nil, err
	}
	return &Handle{
		lock: l,
		key:  key,
		mgr:  NewLockManager(conn),
	}, nil
}

// --------------------------------------------------------------------------
// Bound lock
// --------------------------------------------------------------------------

// Handle is a lock bound to one owner. The owner ID of an acquired lock is
// kept on the Handle: only the Handle that acquired the lock can release or
// extend it.
type Handle struct {
	lock *Lock
	key  string
	mgr  ILockManager

	mu      sync.Mutex
	ownerID string
}

func (h *Handle) Key() string { return h.key }

// Held reports whether this Handle acquired the lock and has not released
// it since. It does not contact the backend, so a lock lost to its timeout
// still reports true.
func (h *Handle) Held() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ownerID != ""
}

// TryAcquire makes a single acquisition attempt. It fails with
// common.ErrPrecondition if the Handle already holds the lock.
func (h *Handle) TryAcquire(ctx context.Context) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ownerID != "" {
		return false, common.Errorf(common.RetCPrecondition, "lock %s is already held by this handle", h.key)
	}
	ok, ownerID, err := h.mgr.AcquireLock(ctx, h.key, h.lock.timeout)
	if err != nil || !ok {
		return false, err
	}
	h.ownerID = ownerID
	return true, nil
}

// Acquire retries TryAcquire until it succeeds, the blocking timeout of the
// lock elapses (false, nil) or ctx is done.
func (h *Handle) Acquire(ctx context.Context) (bool, error) {
	var deadline time.Time
	if h.lock.blockingTimeout > 0 {
		deadline = time.Now().Add(h.lock.blockingTimeout)
	}
	for {
		ok, err := h.TryAcquire(ctx)
		if err != nil || ok {
			return ok, err
		}
		if !deadline.IsZero() && !time.Now().Add(h.lock.sleep).Before(deadline) {
			return false, nil
		}
		timer := time.NewTimer(h.lock.sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false, ctx.Err()
		case <-timer.C:
		}
	}
}

// Release releases the lock. It fails with common.ErrPrecondition if this
// Handle does not hold the lock, and returns false if the lock expired and
// was taken by someone else in the meantime.
func (h *Handle) Release(ctx context.Context) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ownerID == "" {
		return false, common.Errorf(common.RetCPrecondition, "cannot release lock %s: not held", h.key)
	}
	released, err := h.mgr.ReleaseLock(ctx, h.key, h.ownerID)
	if err != nil {
		return false, err
	}
	h.ownerID = ""
	return released, nil
}

// Extend adds additional time to the remaining timeout of the held lock.
func (h *Handle) Extend(ctx context.Context, additional time.Duration) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ownerID == "" {
		return false, common.Errorf(common.RetCPrecondition, "cannot extend lock %s: not held", h.key)
	}
	return h.mgr.ExtendLock(ctx, h.key, h.ownerID, additional)
}

// Do runs fn while holding the lock. It returns common.ErrPrecondition if
// the lock could not be acquired within the blocking timeout.
func (h *Handle) Do(ctx context.Context, fn func() error) error {
	ok, err := h.Acquire(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return common.Errorf(common.RetCPrecondition, "could not acquire lock %s", h.key)
	}
	defer func() {
		if _, err := h.Release(context.WithoutCancel(ctx)); err != nil {
			Logger.Warningf("releasing lock %s failed: %v", h.key, err)
		}
	}()
	return fn()
}
