package lockmgr

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/trol/lib/backend"
	"github.com/ValentinKolb/trol/lib/common"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type testOwner struct {
	key  string
	conn backend.Conn
}

func (o *testOwner) Key() (string, error) { return o.key, nil }
func (o *testOwner) Conn() (backend.Conn, error) { return o.conn, nil }

func setup(t *testing.T) (*testOwner, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	conn := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = conn.Close() })
	return &testOwner{key: "Sleepy:foo", conn: conn}, srv
}

// --------------------------------------------------------------------------
// Lock manager
// --------------------------------------------------------------------------

func TestAcquireRelease(t *testing.T) {
	o, srv := setup(t)
	ctx := context.Background()
	mgr := NewLockManager(o.conn)

	ok, ownerID, err := mgr.AcquireLock(ctx, "resource:123", 0)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, ownerID)
	srv.CheckGet(t, "resource:123", ownerID)

	ok, other, err := mgr.AcquireLock(ctx, "resource:123", 0)
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, other)

	ok, err = mgr.ReleaseLock(ctx, "resource:123", "someone else")
	require.NoError(t, err)
	require.False(t, ok)
	require.True(t, srv.Exists("resource:123"))

	ok, err = mgr.ReleaseLock(ctx, "resource:123", ownerID)
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, srv.Exists("resource:123"))

	// releasing a lock that does not exist succeeds
	ok, err = mgr.ReleaseLock(ctx, "resource:123", ownerID)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestTimeoutAndExtend(t *testing.T) {
	o, srv := setup(t)
	ctx := context.Background()
	mgr := NewLockManager(o.conn)

	ok, ownerID, err := mgr.AcquireLock(ctx, "res", 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 10*time.Second, srv.TTL("res"))

	ok, err = mgr.ExtendLock(ctx, "res", ownerID, 5*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 15*time.Second, srv.TTL("res"))

	ok, err = mgr.ExtendLock(ctx, "res", "someone else", 5*time.Second)
	require.NoError(t, err)
	require.False(t, ok)

	srv.FastForward(16 * time.Second)
	require.False(t, srv.Exists("res"))

	ok, err = mgr.ExtendLock(ctx, "res", ownerID, time.Second)
	require.NoError(t, err)
	require.False(t, ok)

	ok, ownerID, err = mgr.AcquireLock(ctx, "forever", 0)
	require.NoError(t, err)
	require.True(t, ok)
	_, err = mgr.ExtendLock(ctx, "forever", ownerID, time.Second)
	require.ErrorIs(t, err, common.ErrPrecondition)
}

// --------------------------------------------------------------------------
// Lock binding
// --------------------------------------------------------------------------

func TestLockKey(t *testing.T) {
	l := New()
	_, err := l.Key(&testOwner{key: "Sleepy:foo"})
	require.ErrorIs(t, err, common.ErrConfiguration)

	l.AssignName("sleepy_lock")
	l.AssignName("other")
	key, err := l.Key(&testOwner{key: "Sleepy:foo"})
	require.NoError(t, err)
	require.Equal(t, "Sleepy:foo:sleepy_lock", key)

	key, err = l.Key(&testOwner{})
	require.NoError(t, err)
	require.Equal(t, "sleepy_lock", key)
}

func TestHandle(t *testing.T) {
	o, srv := setup(t)
	ctx := context.Background()
	l := New(WithName("mutex"), WithTimeout(time.Minute))

	h, err := l.Bind(o)
	require.NoError(t, err)
	require.False(t, h.Held())

	_, err = h.Release(ctx)
	require.ErrorIs(t, err, common.ErrPrecondition)
	_, err = h.Extend(ctx, time.Second)
	require.ErrorIs(t, err, common.ErrPrecondition)

	ok, err := h.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, h.Held())
	require.Equal(t, time.Minute, srv.TTL("Sleepy:foo:mutex"))

	ok, err = h.Extend(ctx, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2*time.Minute, srv.TTL("Sleepy:foo:mutex"))

	_, err = h.TryAcquire(ctx)
	require.ErrorIs(t, err, common.ErrPrecondition)

	ok, err = h.Release(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, h.Held())
	require.False(t, srv.Exists("Sleepy:foo:mutex"))
}

func TestHandleOwnership(t *testing.T) {
	o, srv := setup(t)
	ctx := context.Background()
	l := New(WithName("mutex"))

	a, err := l.Bind(o)
	require.NoError(t, err)
	b, err := l.Bind(o)
	require.NoError(t, err)

	ok, err := a.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// another handle of the same declaration never owns the lock
	require.False(t, b.Held())
	_, err = b.Release(ctx)
	require.ErrorIs(t, err, common.ErrPrecondition)
	_, err = b.Extend(ctx, time.Second)
	require.ErrorIs(t, err, common.ErrPrecondition)
	require.True(t, srv.Exists("Sleepy:foo:mutex"))

	ok, err = b.TryAcquire(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	// b takes over right after a released; a cannot touch b's lock
	ok, err = a.Release(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = b.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = a.Release(ctx)
	require.ErrorIs(t, err, common.ErrPrecondition)
	require.True(t, srv.Exists("Sleepy:foo:mutex"))

	ok, err = b.Release(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, srv.Exists("Sleepy:foo:mutex"))
}

func TestAcquireBlockingTimeout(t *testing.T) {
	o, srv := setup(t)
	ctx := context.Background()
	require.NoError(t, srv.Set("Sleepy:foo:mutex", "taken"))

	l := New(WithName("mutex"), WithSleep(10*time.Millisecond), WithBlockingTimeout(50*time.Millisecond))
	h, err := l.Bind(o)
	require.NoError(t, err)

	start := time.Now()
	ok, err := h.Acquire(ctx)
	require.NoError(t, err)
	require.False(t, ok)
	require.Less(t, time.Since(start), time.Second)

	err = h.Do(ctx, func() error { return nil })
	require.ErrorIs(t, err, common.ErrPrecondition)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	unbounded := New(WithName("mutex"), WithSleep(10*time.Millisecond))
	h, err = unbounded.Bind(o)
	require.NoError(t, err)
	_, err = h.Acquire(cctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestMutualExclusion(t *testing.T) {
	o, srv := setup(t)
	ctx := context.Background()

	// one declaration shared by every worker, as on an entity type
	l := New(WithName("mutex"), WithSleep(time.Millisecond))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
		runs    int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				h, err := l.Bind(o)
				if err != nil {
					t.Errorf("bind: %v", err)
					return
				}
				err = h.Do(ctx, func() error {
					mu.Lock()
					inside++
					runs++
					if inside > maxSeen {
						maxSeen = inside
					}
					mu.Unlock()
					time.Sleep(time.Millisecond)
					mu.Lock()
					inside--
					mu.Unlock()
					return nil
				})
				if err != nil {
					t.Errorf("do: %v", err)
				}
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, maxSeen)
	require.Equal(t, 40, runs)
	require.False(t, srv.Exists("Sleepy:foo:mutex"), "every lock must be released")
}
