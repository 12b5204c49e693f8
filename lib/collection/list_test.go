package collection

import (
	"context"
	"testing"

	"github.com/ValentinKolb/trol/lib/common"
	"github.com/stretchr/testify/require"
)

func TestListPush(t *testing.T) {
	ctx := context.Background()
	conn, _ := newConn(t)
	l := MustList[string](WithKey("l"), WithConn(conn))

	n, err := l.Push(ctx, "a", "b")
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	n, err = l.Push(ctx, "c", "d")
	require.NoError(t, err)
	require.EqualValues(t, 4, n)

	n, err = l.Push(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 4, n, "pushing nothing returns the current length")

	members, err := l.Members(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c", "d"}, members)

	n, err = l.Unshift(ctx, "y", "z")
	require.NoError(t, err)
	require.EqualValues(t, 6, n)
	members, _ = l.Members(ctx)
	require.Equal(t, []string{"z", "y", "a", "b", "c", "d"}, members)

	n, err = l.Extend(ctx, []string{"e"})
	require.NoError(t, err)
	require.EqualValues(t, 7, n)
}

func TestListPop(t *testing.T) {
	ctx := context.Background()
	conn, _ := newConn(t)
	l := MustList[int](WithKey("l"), WithConn(conn))
	_, _ = l.Push(ctx, 1, 2, 3)

	v, ok, err := l.Pop(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 3, v)

	v, ok, err = l.Shift(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, v)

	_, _, _ = l.Pop(ctx)
	_, ok, err = l.Pop(ctx)
	require.NoError(t, err)
	require.False(t, ok)
	_, ok, err = l.Shift(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestListIndexAndSlice(t *testing.T) {
	ctx := context.Background()
	conn, _ := newConn(t)
	l := MustList[string](WithKey("l"), WithConn(conn))
	_, _ = l.Push(ctx, "a", "b", "c", "d")

	got, err := l.Slice(ctx, 1, 3)
	require.NoError(t, err)
	require.Equal(t, []string{"b", "c"}, got)

	last, ok, err := l.Index(ctx, -1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "d", last)

	_, ok, err = l.Index(ctx, 10)
	require.NoError(t, err)
	require.False(t, ok)

	got, _ = l.Slice(ctx, -3, -1)
	require.Equal(t, []string{"b", "c"}, got)

	got, _ = l.Slice(ctx, 2, 2)
	require.Empty(t, got)

	got, _ = l.Slice(ctx, 0, 100)
	require.Equal(t, []string{"a", "b", "c", "d"}, got)

	got, _ = l.SliceFrom(ctx, -2)
	require.Equal(t, []string{"c", "d"}, got)

	got, _ = l.SliceFrom(ctx, 3)
	require.Equal(t, []string{"d"}, got)

	got, _ = l.Range(ctx, 1, 2)
	require.Equal(t, []string{"b", "c"}, got)
}

func TestListSet(t *testing.T) {
	ctx := context.Background()
	conn, _ := newConn(t)
	l := MustList[string](WithKey("l"), WithConn(conn))
	_, _ = l.Push(ctx, "a", "b", "c")

	require.NoError(t, l.Set(ctx, 0, "e"))
	members, _ := l.Members(ctx)
	require.Equal(t, []string{"e", "b", "c"}, members)

	err := l.Set(ctx, 5, "x")
	require.ErrorIs(t, err, common.ErrOutOfRange)

	empty := MustList[string](WithKey("empty"), WithConn(conn))
	err = empty.Set(ctx, 0, "x")
	require.ErrorIs(t, err, common.ErrOutOfRange)
}

func TestListReverse(t *testing.T) {
	ctx := context.Background()
	conn, srv := newConn(t)
	l := MustList[string](WithKey("l"), WithConn(conn))

	require.NoError(t, l.Reverse(ctx), "reversing an empty list is a no-op")
	require.False(t, srv.Exists("l"))

	_, _ = l.Push(ctx, "a", "b", "c")
	require.NoError(t, l.Reverse(ctx))
	members, _ := l.Members(ctx)
	require.Equal(t, []string{"c", "b", "a"}, members)
}

func TestListCopy(t *testing.T) {
	ctx := context.Background()
	conn, srv := newConn(t)
	l := MustList[string](WithKey("src"), WithConn(conn))
	_, _ = l.Push(ctx, "a", "b")

	_, err := srv.Push("dst", "old")
	require.NoError(t, err)

	cp, err := l.Copy(ctx, "dst")
	require.NoError(t, err)
	require.Equal(t, "dst", cp.Key())
	members, _ := cp.Members(ctx)
	require.Equal(t, []string{"a", "b"}, members)

	empty := MustList[string](WithKey("none"), WithConn(conn))
	cp, err = empty.Copy(ctx, "dst")
	require.NoError(t, err)
	n, _ := cp.Len(ctx)
	require.EqualValues(t, 0, n)
	require.False(t, srv.Exists("dst"))
}

func TestListMisc(t *testing.T) {
	ctx := context.Background()
	conn, _ := newConn(t)
	l := MustList[string](WithKey("l"), WithConn(conn))
	_, _ = l.Push(ctx, "a", "b", "a", "c", "a")

	n, err := l.Count(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, 3, n)

	removed, err := l.Remove(ctx, "a", 1)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	require.NoError(t, l.Trim(ctx, 0, 1))
	members, _ := l.Members(ctx)
	require.Equal(t, []string{"b", "a"}, members)

	v, ok, err := l.RPopLPush(ctx, "other")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a", v)

	other := l.At("other")
	members, _ = other.Members(ctx)
	require.Equal(t, []string{"a"}, members)

	v, ok, err = l.PopOnto(ctx, "other")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "b", v)

	_, ok, err = l.PopOnto(ctx, "other")
	require.NoError(t, err)
	require.False(t, ok)

	var seen []string
	require.NoError(t, other.Each(ctx, func(i int, v string) bool {
		seen = append(seen, v)
		return i < 0
	}))
	require.Equal(t, []string{"b"}, seen)
}
