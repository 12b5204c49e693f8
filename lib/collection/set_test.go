package collection

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/ValentinKolb/trol/lib/backend"
	"github.com/ValentinKolb/trol/lib/common"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestSetMutators(t *testing.T) {
	ctx := context.Background()
	conn, srv := newConn(t)
	s := MustSet[string](WithKey("s"), WithConn(conn))

	n, err := s.Add(ctx, "a", "b", "c")
	require.NoError(t, err)
	require.EqualValues(t, 3, n)

	values := []string{"c", "d"}
	n, err = s.Add(ctx, values...)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	n, err = s.Add(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 0, n)

	n, err = s.Remove(ctx, "a", "x")
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	members, err := s.Members(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"b", "c", "d"}, sorted(members))

	ok, err := s.Contains(ctx, "b")
	require.NoError(t, err)
	require.True(t, ok)

	size, err := s.Len(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 3, size)

	rnd, ok, err := s.RandMember(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Contains(t, members, rnd)

	for i := 0; i < 3; i++ {
		_, ok, err = s.Pop(ctx)
		require.NoError(t, err)
		require.True(t, ok)
	}
	_, ok, err = s.Pop(ctx)
	require.NoError(t, err)
	require.False(t, ok)
	require.False(t, srv.Exists("s"))
}

func TestSetTypedMembers(t *testing.T) {
	ctx := context.Background()
	conn, srv := newConn(t)
	s := MustSet[int](WithKey("ints"), WithConn(conn))

	_, err := s.Add(ctx, 1, 2, 3)
	require.NoError(t, err)

	raw, err := srv.Members("ints")
	require.NoError(t, err)
	require.Equal(t, []string{"1", "2", "3"}, raw)

	members, err := s.Members(ctx)
	require.NoError(t, err)
	sort.Ints(members)
	require.Equal(t, []int{1, 2, 3}, members)

	sum := 0
	require.NoError(t, s.Each(ctx, func(v int) bool {
		sum += v
		return true
	}))
	require.Equal(t, 6, sum)
}

func TestSetStoredAlgebra(t *testing.T) {
	ctx := context.Background()
	conn, _ := newConn(t)
	s1 := MustSet[string](WithKey("s1"), WithConn(conn))
	s2 := MustSet[string](WithKey("s2"), WithConn(conn))

	_, _ = s1.Add(ctx, "a", "b", "c")
	_, _ = s2.Add(ctx, "c", "e")

	diff, err := s1.Difference(ctx, "k3", s2)
	require.NoError(t, err)
	require.Equal(t, "k3", diff.Key())
	members, err := diff.Members(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, sorted(members))

	union, err := s1.Union(ctx, "k4", s2)
	require.NoError(t, err)
	members, _ = union.Members(ctx)
	require.Equal(t, []string{"a", "b", "c", "e"}, sorted(members))

	inter, err := s1.Intersection(ctx, "k5", s2)
	require.NoError(t, err)
	members, _ = inter.Members(ctx)
	require.Equal(t, []string{"c"}, members)

	cp, err := s1.Copy(ctx, "k6")
	require.NoError(t, err)
	eq, err := cp.Equal(ctx, s1)
	require.NoError(t, err)
	require.True(t, eq)

	raw, err := s1.SDiff(ctx, s2)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, sorted(raw))
	raw, _ = s1.SInter(ctx, s2)
	require.Equal(t, []string{"c"}, raw)
	raw, _ = s1.SUnion(ctx, s2)
	require.Len(t, raw, 4)
}

func TestSetInPlaceAlgebra(t *testing.T) {
	ctx := context.Background()
	conn, _ := newConn(t)
	a := MustSet[string](WithKey("a"), WithConn(conn))
	b := MustSet[string](WithKey("b"), WithConn(conn))
	_, _ = b.Add(ctx, "x", "y")

	_, _ = a.Add(ctx, "w", "x")
	n, err := a.Update(ctx, b)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)

	n, err = a.IntersectionUpdate(ctx, b)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	_, _ = a.Add(ctx, "z")
	n, err = a.DifferenceUpdate(ctx, b)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	members, _ := a.Members(ctx)
	require.Equal(t, []string{"z"}, members)
}

// localSubset is the reference implementation on materialized members
func localSubset(a, b []string) bool {
	in := make(map[string]bool, len(b))
	for _, v := range b {
		in[v] = true
	}
	for _, v := range a {
		if !in[v] {
			return false
		}
	}
	return true
}

func TestSetComparisonsMatchLocal(t *testing.T) {
	ctx := context.Background()
	conn, _ := newConn(t)

	sets := [][]string{
		{},
		{"a"},
		{"a", "b"},
		{"b", "c"},
		{"a", "b", "c"},
		{"d"},
	}

	for i, left := range sets {
		for j, right := range sets {
			name := fmt.Sprintf("%v<=%v", left, right)
			t.Run(name, func(t *testing.T) {
				a := MustSet[string](WithKey(fmt.Sprintf("cmp:%d:%d:a", i, j)), WithConn(conn))
				b := MustSet[string](WithKey(fmt.Sprintf("cmp:%d:%d:b", i, j)), WithConn(conn))
				_, _ = a.Add(ctx, left...)
				_, _ = b.Add(ctx, right...)

				subset := localSubset(left, right)
				superset := localSubset(right, left)
				equal := subset && superset

				got, err := a.IsSubset(ctx, b)
				require.NoError(t, err)
				require.Equal(t, subset, got, "subset")

				got, err = a.IsSuperset(ctx, b)
				require.NoError(t, err)
				require.Equal(t, superset, got, "superset")

				got, err = a.IsStrictSubset(ctx, b)
				require.NoError(t, err)
				require.Equal(t, subset && !equal, got, "strict subset")

				got, err = a.IsStrictSuperset(ctx, b)
				require.NoError(t, err)
				require.Equal(t, superset && !equal, got, "strict superset")

				got, err = a.Equal(ctx, b)
				require.NoError(t, err)
				require.Equal(t, equal, got, "equal")

				disjoint := true
				for _, v := range left {
					if localSubset([]string{v}, right) {
						disjoint = false
					}
				}
				got, err = a.IsDisjoint(ctx, b)
				require.NoError(t, err)
				require.Equal(t, disjoint, got, "disjoint")
			})
		}
	}

	keys, err := conn.Keys(ctx, backend.ScratchPrefix+"*").Result()
	require.NoError(t, err)
	require.Empty(t, keys, "scratch keys must be removed")
}

func TestSetEqualSameKey(t *testing.T) {
	ctx := context.Background()
	// nothing listens here: any command would fail
	conn := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer conn.Close()
	a := MustSet[string](WithKey("same"), WithConn(conn))
	b := MustSet[string](WithKey("same"), WithConn(conn))

	eq, err := a.Equal(ctx, b)
	require.NoError(t, err, "identical keys must not contact the backend")
	require.True(t, eq)
}

func TestSetCompareUnbound(t *testing.T) {
	ctx := context.Background()
	conn, _ := newConn(t)
	a := MustSet[string](WithKey("a"), WithConn(conn))

	_, err := a.IsSubset(ctx, MustSet[string](WithName("unbound")))
	require.ErrorIs(t, err, common.ErrConfiguration)
	_, err = a.Equal(ctx, nil)
	require.ErrorIs(t, err, common.ErrConfiguration)
}
