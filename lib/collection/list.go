package collection

import (
	"context"
	"math"

	"github.com/ValentinKolb/trol/lib/backend"
	"github.com/ValentinKolb/trol/lib/codec"
	"github.com/redis/go-redis/v9"
)

// List is an index addressable sequence backed by a server list.
type List[T any] struct {
	base
	codec codec.Codec[T]
}

// NewList declares a list of T.
func NewList[T any](opts ...Option) (*List[T], error) {
	o := applyOptions(opts)
	c, err := resolveCodec[T](o.registry, o.codec, "element")
	if err != nil {
		return nil, err
	}
	return &List[T]{
		base:  base{kind: "List", name: o.name, key: o.key, conn: o.conn},
		codec: c,
	}, nil
}

// MustList is NewList that panics on error.
func MustList[T any](opts ...Option) *List[T] {
	l, err := NewList[T](opts...)
	if err != nil {
		panic(err)
	}
	return l
}

// Bind returns a proxy bound to o.
func (l *List[T]) Bind(o Owner) (*List[T], error) {
	b, err := l.bind(o)
	if err != nil {
		return nil, err
	}
	return &List[T]{base: b, codec: l.codec}, nil
}

func (l *List[T]) BindAny(o Owner) (interface{}, error) {
	return l.Bind(o)
}

// At returns a proxy on key sharing codec and connection with l.
func (l *List[T]) At(key string) *List[T] {
	return &List[T]{base: base{kind: l.kind, name: l.name, key: key, conn: l.conn}, codec: l.codec}
}

// --------------------------------------------------------------------------
// Push & pop
// --------------------------------------------------------------------------

// Push appends values at the right and returns the new length. Pushing no
// values returns the current length.
func (l *List[T]) Push(ctx context.Context, values ...T) (int64, error) {
	return l.push(ctx, false, values)
}

// Append is Push.
func (l *List[T]) Append(ctx context.Context, values ...T) (int64, error) {
	return l.push(ctx, false, values)
}

// Extend appends every element of values in one command.
func (l *List[T]) Extend(ctx context.Context, values []T) (int64, error) {
	return l.push(ctx, false, values)
}

// Unshift prepends values at the left and returns the new length. Like
// LPUSH, the values end up in reverse order at the head.
func (l *List[T]) Unshift(ctx context.Context, values ...T) (int64, error) {
	return l.push(ctx, true, values)
}

// LPush is Unshift.
func (l *List[T]) LPush(ctx context.Context, values ...T) (int64, error) {
	return l.push(ctx, true, values)
}

func (l *List[T]) push(ctx context.Context, left bool, values []T) (int64, error) {
	if err := l.ready(); err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return l.conn.LLen(ctx, l.key).Result()
	}
	raw, err := l.codec.EncodeAll(values)
	if err != nil {
		return 0, err
	}
	if left {
		return l.conn.LPush(ctx, l.key, raw...).Result()
	}
	return l.conn.RPush(ctx, l.key, raw...).Result()
}

// Pop removes and returns the last element; ok is false for an empty list.
func (l *List[T]) Pop(ctx context.Context) (v T, ok bool, err error) {
	if err = l.ready(); err != nil {
		return v, false, err
	}
	return l.decodeOne(l.conn.RPop(ctx, l.key).Result())
}

// Shift removes and returns the first element.
func (l *List[T]) Shift(ctx context.Context) (v T, ok bool, err error) {
	if err = l.ready(); err != nil {
		return v, false, err
	}
	return l.decodeOne(l.conn.LPop(ctx, l.key).Result())
}

// RPopLPush atomically moves the last element to the head of the list at
// dest and returns it.
func (l *List[T]) RPopLPush(ctx context.Context, dest string) (v T, ok bool, err error) {
	if err = l.ready(); err != nil {
		return v, false, err
	}
	return l.decodeOne(l.conn.RPopLPush(ctx, l.key, dest).Result())
}

// PopOnto is RPopLPush.
func (l *List[T]) PopOnto(ctx context.Context, dest string) (T, bool, error) {
	return l.RPopLPush(ctx, dest)
}

// --------------------------------------------------------------------------
// Index access
// --------------------------------------------------------------------------

// Index returns the element at idx; negative indices count from the end.
// ok is false when idx is out of range.
func (l *List[T]) Index(ctx context.Context, idx int64) (v T, ok bool, err error) {
	if err = l.ready(); err != nil {
		return v, false, err
	}
	return l.decodeOne(l.conn.LIndex(ctx, l.key, idx).Result())
}

// Set replaces the element at idx. It fails with common.ErrOutOfRange for
// an invalid index.
func (l *List[T]) Set(ctx context.Context, idx int64, v T) error {
	if err := l.ready(); err != nil {
		return err
	}
	raw, err := l.codec.Encode(v)
	if err != nil {
		return err
	}
	return outOfRange(l.key, idx, l.conn.LSet(ctx, l.key, idx, raw).Err())
}

// Range returns the elements from start to stop, both inclusive, like LRANGE.
func (l *List[T]) Range(ctx context.Context, start, stop int64) ([]T, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	return l.decodeAll(l.conn.LRange(ctx, l.key, start, stop).Result())
}

// Slice returns the elements of the half-open range [start, stop).
// Negative indices are resolved against the current length, so l[1:3] of
// [a b c d] is [b c] and l[-2:len] is the last two elements.
func (l *List[T]) Slice(ctx context.Context, start, stop int64) ([]T, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	if start >= 0 && stop >= 0 {
		if stop <= start {
			return []T{}, nil
		}
		return l.Range(ctx, start, stop-1)
	}
	length, err := l.conn.LLen(ctx, l.key).Result()
	if err != nil {
		return nil, err
	}
	from, to, ok := sliceBounds(start, stop, length)
	if !ok {
		return []T{}, nil
	}
	return l.Range(ctx, from, to)
}

// SliceFrom returns the elements from start to the end.
func (l *List[T]) SliceFrom(ctx context.Context, start int64) ([]T, error) {
	if start >= 0 {
		return l.Range(ctx, start, -1)
	}
	return l.Slice(ctx, start, math.MaxInt64)
}

// Members returns all elements in order.
func (l *List[T]) Members(ctx context.Context) ([]T, error) {
	return l.Range(ctx, 0, -1)
}

// Each calls fn for every element until fn returns false. The list is read
// once when iteration starts.
func (l *List[T]) Each(ctx context.Context, fn func(int, T) bool) error {
	members, err := l.Members(ctx)
	if err != nil {
		return err
	}
	for i, m := range members {
		if !fn(i, m) {
			return nil
		}
	}
	return nil
}

// Len returns the length.
func (l *List[T]) Len(ctx context.Context) (int64, error) {
	if err := l.ready(); err != nil {
		return 0, err
	}
	return l.conn.LLen(ctx, l.key).Result()
}

// Count returns the number of occurrences of v.
func (l *List[T]) Count(ctx context.Context, v T) (int, error) {
	if err := l.ready(); err != nil {
		return 0, err
	}
	want, err := l.codec.Encode(v)
	if err != nil {
		return 0, err
	}
	raw, err := l.conn.LRange(ctx, l.key, 0, -1).Result()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range raw {
		if r == want {
			n++
		}
	}
	return n, nil
}

// Remove deletes up to count occurrences of v (LREM semantics: count > 0
// from the head, count < 0 from the tail, 0 all) and returns how many were removed.
func (l *List[T]) Remove(ctx context.Context, v T, count int64) (int64, error) {
	if err := l.ready(); err != nil {
		return 0, err
	}
	raw, err := l.codec.Encode(v)
	if err != nil {
		return 0, err
	}
	return l.conn.LRem(ctx, l.key, count, raw).Result()
}

// Trim keeps only the elements from start to stop, both inclusive.
func (l *List[T]) Trim(ctx context.Context, start, stop int64) error {
	if err := l.ready(); err != nil {
		return err
	}
	return l.conn.LTrim(ctx, l.key, start, stop).Err()
}

// --------------------------------------------------------------------------
// Read-then-write (optimistic transactions)
// --------------------------------------------------------------------------

// Reverse reverses the list in place. The read and the rewrite run in one
// WATCH/MULTI transaction, retried if another client touches the list.
func (l *List[T]) Reverse(ctx context.Context) error {
	if err := l.ready(); err != nil {
		return err
	}
	return backend.Transaction(ctx, l.conn, func(tx *redis.Tx) error {
		values, err := tx.LRange(ctx, l.key, 0, -1).Result()
		if err != nil || len(values) == 0 {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Del(ctx, l.key)
			p.LPush(ctx, l.key, toArgs(values)...)
			return nil
		})
		return err
	}, l.key)
}

// Copy replaces the list at dest with the elements of l and returns a
// proxy on dest. An empty source leaves dest empty.
func (l *List[T]) Copy(ctx context.Context, dest string) (*List[T], error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	err := backend.Transaction(ctx, l.conn, func(tx *redis.Tx) error {
		values, err := tx.LRange(ctx, l.key, 0, -1).Result()
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Del(ctx, dest)
			if len(values) > 0 {
				p.RPush(ctx, dest, toArgs(values)...)
			}
			return nil
		})
		return err
	}, l.key, dest)
	if err != nil {
		return nil, err
	}
	return l.At(dest), nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func (l *List[T]) decodeOne(raw string, err error) (v T, ok bool, _ error) {
	if backend.IsNil(err) {
		return v, false, nil
	}
	if err != nil {
		return v, false, err
	}
	v, err = l.codec.Decode(raw)
	return v, err == nil, err
}

func (l *List[T]) decodeAll(raw []string, err error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	return l.codec.DecodeAll(raw)
}

func toArgs(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

var _ Binding = (*List[string])(nil)
