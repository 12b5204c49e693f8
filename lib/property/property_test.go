package property

import (
	"context"
	"errors"
	"math"
	"strconv"
	"testing"

	"github.com/ValentinKolb/trol/lib/backend"
	"github.com/ValentinKolb/trol/lib/codec"
	"github.com/ValentinKolb/trol/lib/common"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// testOwner is a minimal owner with a fixed key
type testOwner struct {
	key         string
	keyErr      error
	conn        backend.Conn
	values      *Values
	autocommit  bool
	alwaysfetch bool
}

func (o *testOwner) Key() (string, error) { return o.key, o.keyErr }
func (o *testOwner) Conn() (backend.Conn, error) { return o.conn, nil }
func (o *testOwner) Values() *Values { return o.values }
func (o *testOwner) Autocommit() bool { return o.autocommit }
func (o *testOwner) AlwaysFetch() bool { return o.alwaysfetch }

func setup(t *testing.T) (*testOwner, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	conn := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = conn.Close() })
	return &testOwner{
		key:        "Alpha:a",
		conn:       conn,
		values:     NewValues(),
		autocommit: true,
	}, srv
}

func TestKey(t *testing.T) {
	o := &testOwner{key: "Alpha:a", values: NewValues()}
	p := Must[string](WithName("name"))

	key, err := p.Key(o)
	require.NoError(t, err)
	require.Equal(t, "Alpha:a:name", key)

	o.key = ""
	key, err = p.Key(o)
	require.NoError(t, err)
	require.Equal(t, "name", key)

	o.keyErr = common.NewError(common.RetCPrecondition, "identifier not set")
	_, err = p.Key(o)
	require.ErrorIs(t, err, common.ErrPrecondition)

	unnamed := Must[string]()
	_, err = unnamed.Key(&testOwner{values: NewValues()})
	require.ErrorIs(t, err, common.ErrConfiguration)
}

func TestAssignName(t *testing.T) {
	p := Must[int]()
	p.AssignName("count")
	require.Equal(t, "count", p.Name())

	p.AssignName("other")
	require.Equal(t, "count", p.Name(), "explicit or first name must win")
}

func TestUnsupportedType(t *testing.T) {
	type custom struct{ A int }

	_, err := New[custom](WithName("c"))
	require.ErrorIs(t, err, common.ErrUnsupportedType)

	p, err := New[custom](WithName("c"), WithCodec(codec.JSON[custom]()))
	require.NoError(t, err)
	require.NotNil(t, p)

	_, err = New[custom](WithCodec(codec.JSON[int]()))
	require.ErrorIs(t, err, common.ErrConfiguration)
}

func TestAutocommit(t *testing.T) {
	ctx := context.Background()
	o, srv := setup(t)

	t.Run("enabled", func(t *testing.T) {
		p := Must[string](WithName("on"))
		require.NoError(t, p.Assign(ctx, o, "canary"))

		got, err := srv.Get("Alpha:a:on")
		require.NoError(t, err)
		require.Equal(t, "canary", got)

		// a fresh fetch sees the new value
		p.Invalidate(o)
		v, ok, err := p.Get(ctx, o)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "canary", v)
	})

	t.Run("disabled", func(t *testing.T) {
		p := Must[string](WithName("off"), WithAutocommit(Disabled))
		require.NoError(t, srv.Set("Alpha:a:off", "previous"))

		require.NoError(t, p.Assign(ctx, o, "next"))
		v, ok := p.Value(o)
		require.True(t, ok)
		require.Equal(t, "next", v)

		fetched, ok, err := p.Fetch(ctx, o)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "previous", fetched)

		require.NoError(t, p.Assign(ctx, o, "next"))
		committed, err := p.Commit(ctx, o)
		require.NoError(t, err)
		require.True(t, committed)

		got, _ := srv.Get("Alpha:a:off")
		require.Equal(t, "next", got)
	})

	t.Run("inherit", func(t *testing.T) {
		p := Must[int](WithName("inherit"))
		o.autocommit = false
		defer func() { o.autocommit = true }()

		require.NoError(t, p.Assign(ctx, o, 7))
		require.False(t, srv.Exists("Alpha:a:inherit"))
	})
}

func TestAlwaysFetch(t *testing.T) {
	ctx := context.Background()
	o, srv := setup(t)

	cached := Must[int](WithName("cached"))
	fresh := Must[int](WithName("fresh"), WithAlwaysFetch(Enabled))

	require.NoError(t, cached.Assign(ctx, o, 1))
	require.NoError(t, fresh.Assign(ctx, o, 1))

	// another client changes both keys
	require.NoError(t, srv.Set("Alpha:a:cached", "2"))
	require.NoError(t, srv.Set("Alpha:a:fresh", "2"))

	v, _, err := cached.Get(ctx, o)
	require.NoError(t, err)
	require.Equal(t, 1, v)

	v, _, err = fresh.Get(ctx, o)
	require.NoError(t, err)
	require.Equal(t, 2, v)

	o.alwaysfetch = true
	v, _, err = cached.Get(ctx, o)
	require.NoError(t, err)
	require.Equal(t, 2, v)
}

func TestFetchMissing(t *testing.T) {
	ctx := context.Background()
	o, _ := setup(t)
	p := Must[string](WithName("missing"))

	p.Set(o, "local")
	v, ok, err := p.Fetch(ctx, o)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, "", v)
	require.False(t, o.values.IsSet("missing"))
}

func TestCommitUnset(t *testing.T) {
	ctx := context.Background()
	o, srv := setup(t)
	p := Must[string](WithName("unset"))

	ok, err := p.Commit(ctx, o)
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, srv.Keys())
}

func TestInvalidateDoesNotTouchBackend(t *testing.T) {
	ctx := context.Background()
	o, srv := setup(t)
	p := Must[string](WithName("v"))
	require.NoError(t, p.Assign(ctx, o, "x"))

	// drop the connection: any backend call would fail now
	o.conn = nil
	p.Invalidate(o)
	require.True(t, srv.Exists("Alpha:a:v"))
	_, ok := p.Value(o)
	require.False(t, ok)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	o, srv := setup(t)
	p := Must[bool](WithName("flag"))
	require.NoError(t, p.Assign(ctx, o, true))

	got, _ := srv.Get("Alpha:a:flag")
	require.Equal(t, "True", got)

	removed, err := p.Delete(ctx, o)
	require.NoError(t, err)
	require.True(t, removed)
	_, ok := p.Value(o)
	require.False(t, ok)

	removed, err = p.Delete(ctx, o)
	require.NoError(t, err)
	require.False(t, removed)
}

func TestExpire(t *testing.T) {
	ctx := context.Background()
	o, srv := setup(t)
	p := Must[float64](WithName("ratio"))
	require.NoError(t, p.Assign(ctx, o, 0.5))

	ok, err := p.Expire(ctx, o, 10.0004)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "10s", srv.TTL("Alpha:a:ratio").String())
	_, cached := p.Value(o)
	require.True(t, cached, "a positive ttl keeps the cached value")

	ok, err = p.Expire(ctx, o, 0)
	require.NoError(t, err)
	require.True(t, ok)
	_, cached = p.Value(o)
	require.False(t, cached, "a zero ttl invalidates")
	require.False(t, srv.Exists("Alpha:a:ratio"))

	// missing key: backend reports failure
	p.Set(o, 1.5)
	ok, err = p.Expire(ctx, o, 5)
	require.NoError(t, err)
	require.False(t, ok)
	_, cached = p.Value(o)
	require.False(t, cached)
}

func TestExists(t *testing.T) {
	ctx := context.Background()
	o, _ := setup(t)
	p := Must[int64](WithName("n"))

	ok, err := p.Exists(ctx, o)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, p.Assign(ctx, o, 12))
	p.Invalidate(o)

	ok, err = p.Exists(ctx, o)
	require.NoError(t, err)
	require.True(t, ok)
	_, cached := p.Value(o)
	require.False(t, cached, "exists must not fill the cache")
}

func TestCustomCodec(t *testing.T) {
	ctx := context.Background()
	o, srv := setup(t)

	hex := codec.Codec[int]{
		Encode: func(v int) (string, error) { return strconv.FormatInt(int64(v), 16), nil },
		Decode: func(s string) (int, error) {
			n, err := strconv.ParseInt(s, 16, 64)
			return int(n), err
		},
	}
	p := Must[int](WithName("hex"), WithCodec(hex))
	require.NoError(t, p.Assign(ctx, o, 255))

	got, _ := srv.Get("Alpha:a:hex")
	require.Equal(t, "ff", got)

	p.Invalidate(o)
	v, _, err := p.Get(ctx, o)
	require.NoError(t, err)
	require.Equal(t, 255, v)
}

func TestSetAny(t *testing.T) {
	o := &testOwner{values: NewValues()}
	p := Must[int](WithName("n"))

	require.NoError(t, p.SetAny(o, 3))
	err := p.SetAny(o, "three")
	if !errors.Is(err, common.ErrPrecondition) {
		t.Errorf("expected precondition error, got %v", err)
	}

	wide := Must[int64](WithName("wide"))
	require.NoError(t, wide.SetAny(o, 3))
	v, ok := wide.Value(o)
	require.True(t, ok)
	require.Equal(t, int64(3), v)

	ratio := Must[float64](WithName("ratio"))
	require.NoError(t, ratio.SetAny(o, 2))
	f, _ := ratio.Value(o)
	require.Equal(t, 2.0, f)

	// lossy conversions are refused
	require.ErrorIs(t, wide.SetAny(o, 2.5), common.ErrPrecondition)
	require.ErrorIs(t, p.SetAny(o, uint64(math.MaxUint64)), common.ErrPrecondition)
	require.ErrorIs(t, p.SetAny(o, nil), common.ErrPrecondition)
}

func TestPolicy(t *testing.T) {
	cases := []struct {
		p    Policy
		def  bool
		want bool
	}{
		{Inherit, true, true},
		{Inherit, false, false},
		{Enabled, false, true},
		{Disabled, true, false},
	}
	for _, c := range cases {
		if got := c.p.Resolve(c.def); got != c.want {
			t.Errorf("%s.Resolve(%v) = %v, want %v", c.p, c.def, got, c.want)
		}
	}
}
