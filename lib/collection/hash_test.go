package collection

import (
	"context"
	"testing"

	"github.com/ValentinKolb/trol/lib/codec"
	"github.com/ValentinKolb/trol/lib/common"
	"github.com/stretchr/testify/require"
)

func TestHashFieldValueCodecs(t *testing.T) {
	ctx := context.Background()
	conn, srv := newConn(t)
	h := MustHash[string, int](WithKey("h"), WithConn(conn))

	isNew, err := h.HSet(ctx, "a", 1)
	require.NoError(t, err)
	require.True(t, isNew)

	require.Equal(t, "1", srv.HGet("h", "a"))

	all, err := h.HGetAll(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]int{"a": 1}, all)

	isNew, err = h.HSet(ctx, "a", 2)
	require.NoError(t, err)
	require.False(t, isNew)
}

func TestHashTypedFields(t *testing.T) {
	ctx := context.Background()
	conn, srv := newConn(t)
	h := MustHash[int, bool](WithKey("h"), WithConn(conn))

	_, err := h.HMSet(ctx, map[int]bool{1: true, 2: false})
	require.NoError(t, err)
	require.Equal(t, "True", srv.HGet("h", "1"))
	require.Equal(t, "False", srv.HGet("h", "2"))

	keys, err := h.HKeys(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, []int{1, 2}, keys)

	vals, err := h.HVals(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, []bool{true, false}, vals)
}

func TestHashMissingFields(t *testing.T) {
	ctx := context.Background()
	conn, _ := newConn(t)
	h := MustHash[string, string](WithKey("h"), WithConn(conn))
	_, _ = h.HSet(ctx, "present", "yes")

	_, ok, err := h.HGet(ctx, "absent")
	require.NoError(t, err)
	require.False(t, ok)

	v, err := h.GetOr(ctx, "absent", "fallback")
	require.NoError(t, err)
	require.Equal(t, "fallback", v)

	v, err = h.GetOr(ctx, "present", "fallback")
	require.NoError(t, err)
	require.Equal(t, "yes", v)

	_, err = h.Item(ctx, "absent")
	require.ErrorIs(t, err, common.ErrNotFound)

	vals, err := h.HMGet(ctx, "-", "present", "absent")
	require.NoError(t, err)
	require.Equal(t, []string{"yes", "-"}, vals)

	_, err = h.HMGetStrict(ctx, "present", "absent")
	require.ErrorIs(t, err, common.ErrNotFound)

	vals, err = h.HMGetStrict(ctx, "present")
	require.NoError(t, err)
	require.Equal(t, []string{"yes"}, vals)

	err = h.Delete(ctx, "absent")
	require.ErrorIs(t, err, common.ErrNotFound)
	require.NoError(t, h.Delete(ctx, "present"))
}

func TestHashBulk(t *testing.T) {
	ctx := context.Background()
	conn, srv := newConn(t)
	h := MustHash[string, int](WithKey("h"), WithConn(conn))

	ok, err := h.HMSet(ctx, map[string]int{})
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, srv.Exists("h"), "empty hmset must not touch the backend")

	ok, err = h.Update(ctx, map[string]int{"a": 1, "b": 2}, map[string]int{"b": 3})
	require.NoError(t, err)
	require.True(t, ok)

	all, _ := h.Items(ctx)
	require.Equal(t, map[string]int{"a": 1, "b": 3}, all)

	n, err := h.HIncrBy(ctx, "a", 10)
	require.NoError(t, err)
	require.EqualValues(t, 11, n)

	require.NoError(t, h.Replace(ctx, map[string]int{"z": 26}))
	all, _ = h.HGetAll(ctx)
	require.Equal(t, map[string]int{"z": 26}, all)

	size, err := h.Len(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, size)

	in, err := h.Contains(ctx, "z")
	require.NoError(t, err)
	require.True(t, in)

	removed, err := h.HDel(ctx, "z", "y")
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	require.NoError(t, h.Replace(ctx, nil))
	require.False(t, srv.Exists("h"))
}

func TestHashStructValues(t *testing.T) {
	type address struct {
		Street string
		Number int
	}

	ctx := context.Background()
	conn, _ := newConn(t)
	h := MustHash[string, address](WithKey("addr"), WithConn(conn), WithCodec(codec.Msgpack[address]()))

	_, err := h.HSet(ctx, "home", address{Street: "Main St", Number: 1})
	require.NoError(t, err)

	got, err := h.Item(ctx, "home")
	require.NoError(t, err)
	require.Equal(t, address{Street: "Main St", Number: 1}, got)

	_, err = NewHash[string, address](WithKey("addr"))
	require.ErrorIs(t, err, common.ErrUnsupportedType)
}
