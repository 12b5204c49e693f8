package collection

import (
	"context"
	"sort"
	"testing"

	"github.com/ValentinKolb/trol/lib/backend"
	"github.com/ValentinKolb/trol/lib/common"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// testOwner is an owner with a fixed key and connection
type testOwner struct {
	key  string
	err  error
	conn backend.Conn
}

func (o *testOwner) Key() (string, error) { return o.key, o.err }

func (o *testOwner) Conn() (backend.Conn, error) {
	if o.conn == nil {
		return nil, common.NewError(common.RetCConfiguration, "owner has no connection")
	}
	return o.conn, nil
}

func newConn(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	conn := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = conn.Close() })
	return conn, srv
}

func sorted(vs []string) []string {
	out := append([]string(nil), vs...)
	sort.Strings(out)
	return out
}

func TestBindKeyResolution(t *testing.T) {
	conn, _ := newConn(t)

	t.Run("owner prefix", func(t *testing.T) {
		s := MustSet[string](WithName("tags"))
		bound, err := s.Bind(&testOwner{key: "Alpha:a", conn: conn})
		require.NoError(t, err)
		require.Equal(t, "Alpha:a:tags", bound.Key())
		require.Equal(t, "", s.Key(), "binding must not modify the declaration")
	})

	t.Run("owner without key", func(t *testing.T) {
		s := MustSet[string](WithName("tags"))
		bound, err := s.Bind(&testOwner{conn: conn})
		require.NoError(t, err)
		require.Equal(t, "tags", bound.Key())
	})

	t.Run("explicit key wins", func(t *testing.T) {
		s := MustSet[string](WithName("tags"), WithKey("global:tags"))
		bound, err := s.Bind(&testOwner{key: "Alpha:a", conn: conn})
		require.NoError(t, err)
		require.Equal(t, "global:tags", bound.Key())
	})

	t.Run("no name and no key", func(t *testing.T) {
		s := MustSet[string]()
		_, err := s.Bind(&testOwner{key: "Alpha:a", conn: conn})
		require.ErrorIs(t, err, common.ErrConfiguration)

		_, err = MustSet[string](WithName("x")).Bind(nil)
		require.ErrorIs(t, err, common.ErrConfiguration)
	})

	t.Run("owner key error", func(t *testing.T) {
		s := MustSet[string](WithName("tags"))
		_, err := s.Bind(&testOwner{err: common.NewError(common.RetCPrecondition, "no id"), conn: conn})
		require.ErrorIs(t, err, common.ErrPrecondition)
	})

	t.Run("connection", func(t *testing.T) {
		s := MustSet[string](WithName("tags"))
		_, err := s.Bind(&testOwner{key: "Alpha:a"})
		require.ErrorIs(t, err, common.ErrConfiguration)

		override := MustSet[string](WithName("tags"), WithConn(conn))
		bound, err := override.Bind(&testOwner{key: "Alpha:a"})
		require.NoError(t, err)
		require.Equal(t, backend.Conn(conn), bound.Conn())
	})

	t.Run("unbound use", func(t *testing.T) {
		s := MustSet[string](WithName("tags"))
		_, err := s.Add(context.Background(), "a")
		require.ErrorIs(t, err, common.ErrConfiguration)
	})

	t.Run("assign name", func(t *testing.T) {
		s := MustList[int]()
		s.AssignName("history")
		s.AssignName("ignored")
		require.Equal(t, "history", s.Name())
		require.Equal(t, "List", s.Kind())
	})
}

func TestClearAndExpire(t *testing.T) {
	ctx := context.Background()
	conn, srv := newConn(t)
	l := MustList[string](WithKey("l"), WithConn(conn))

	_, err := l.Push(ctx, "a")
	require.NoError(t, err)

	ok, err := l.SetExpire(ctx, 2.5)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2.5s", srv.TTL("l").String())

	exists, err := l.Exists(ctx)
	require.NoError(t, err)
	require.True(t, exists)

	removed, err := l.Clear(ctx)
	require.NoError(t, err)
	require.True(t, removed)
	require.False(t, srv.Exists("l"))
}

func TestSliceBounds(t *testing.T) {
	cases := []struct {
		start, stop, length int64
		from, to            int64
		ok                  bool
	}{
		{1, 3, 4, 1, 2, true},
		{0, 4, 4, 0, 3, true},
		{-1, 4, 4, 3, 3, true},
		{-2, -1, 4, 2, 2, true},
		{-10, 2, 4, 0, 1, true},
		{2, 2, 4, 0, 0, false},
		{3, 1, 4, 0, 0, false},
		{0, 10, 4, 0, 3, true},
		{0, 1, 0, 0, 0, false},
	}
	for _, c := range cases {
		from, to, ok := sliceBounds(c.start, c.stop, c.length)
		if ok != c.ok || (ok && (from != c.from || to != c.to)) {
			t.Errorf("sliceBounds(%d, %d, %d) = (%d, %d, %v), want (%d, %d, %v)",
				c.start, c.stop, c.length, from, to, ok, c.from, c.to, c.ok)
		}
	}
}
