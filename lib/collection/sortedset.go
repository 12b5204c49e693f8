package collection

import (
	"context"
	"strconv"

	"github.com/ValentinKolb/trol/lib/backend"
	"github.com/ValentinKolb/trol/lib/codec"
	"github.com/redis/go-redis/v9"
)

// Member is an element of a sorted set with its score.
type Member[T any] struct {
	Value T
	Score float64
}

// Page restricts a score range query. The zero value returns everything.
type Page struct {
	Offset int64
	Limit  int64
}

// SortedSet maps members to float scores and keeps them ordered by score,
// backed by a server sorted set.
type SortedSet[T any] struct {
	base
	codec codec.Codec[T]
}

// NewSortedSet declares a sorted set of T.
func NewSortedSet[T any](opts ...Option) (*SortedSet[T], error) {
	o := applyOptions(opts)
	c, err := resolveCodec[T](o.registry, o.codec, "member")
	if err != nil {
		return nil, err
	}
	return &SortedSet[T]{
		base:  base{kind: "SortedSet", name: o.name, key: o.key, conn: o.conn},
		codec: c,
	}, nil
}

// MustSortedSet is NewSortedSet that panics on error.
func MustSortedSet[T any](opts ...Option) *SortedSet[T] {
	z, err := NewSortedSet[T](opts...)
	if err != nil {
		panic(err)
	}
	return z
}

// Bind returns a proxy bound to o.
func (z *SortedSet[T]) Bind(o Owner) (*SortedSet[T], error) {
	b, err := z.bind(o)
	if err != nil {
		return nil, err
	}
	return &SortedSet[T]{base: b, codec: z.codec}, nil
}

func (z *SortedSet[T]) BindAny(o Owner) (interface{}, error) {
	return z.Bind(o)
}

// --------------------------------------------------------------------------
// Mutators
// --------------------------------------------------------------------------

// Add inserts values with the same score in one command and returns how
// many were new.
func (z *SortedSet[T]) Add(ctx context.Context, score float64, values ...T) (int64, error) {
	members := make([]Member[T], len(values))
	for i, v := range values {
		members[i] = Member[T]{Value: v, Score: score}
	}
	return z.AddMembers(ctx, members...)
}

// AddMembers inserts members with their own scores in one command.
func (z *SortedSet[T]) AddMembers(ctx context.Context, members ...Member[T]) (int64, error) {
	if err := z.ready(); err != nil {
		return 0, err
	}
	if len(members) == 0 {
		return 0, nil
	}
	zs := make([]redis.Z, len(members))
	for i, m := range members {
		raw, err := z.codec.Encode(m.Value)
		if err != nil {
			return 0, err
		}
		zs[i] = redis.Z{Score: m.Score, Member: raw}
	}
	return z.conn.ZAdd(ctx, z.key, zs...).Result()
}

// ZRem removes values and returns how many were members.
func (z *SortedSet[T]) ZRem(ctx context.Context, values ...T) (int64, error) {
	if err := z.ready(); err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, nil
	}
	raw, err := z.codec.EncodeAll(values)
	if err != nil {
		return 0, err
	}
	return z.conn.ZRem(ctx, z.key, raw...).Result()
}

// ZIncrBy adds incr to the score of v and returns the new score.
func (z *SortedSet[T]) ZIncrBy(ctx context.Context, v T, incr float64) (float64, error) {
	if err := z.ready(); err != nil {
		return 0, err
	}
	raw, err := z.codec.Encode(v)
	if err != nil {
		return 0, err
	}
	return z.conn.ZIncrBy(ctx, z.key, incr, raw).Result()
}

// ZRemRangeByRank removes the members ranked start to stop (inclusive).
func (z *SortedSet[T]) ZRemRangeByRank(ctx context.Context, start, stop int64) (int64, error) {
	if err := z.ready(); err != nil {
		return 0, err
	}
	return z.conn.ZRemRangeByRank(ctx, z.key, start, stop).Result()
}

// ZRemRangeByScore removes the members with min <= score <= max.
func (z *SortedSet[T]) ZRemRangeByScore(ctx context.Context, min, max float64) (int64, error) {
	if err := z.ready(); err != nil {
		return 0, err
	}
	return z.conn.ZRemRangeByScore(ctx, z.key, formatScore(min), formatScore(max)).Result()
}

// --------------------------------------------------------------------------
// Point reads
// --------------------------------------------------------------------------

// ZScore returns the score of v; ok is false if v is not a member.
func (z *SortedSet[T]) ZScore(ctx context.Context, v T) (score float64, ok bool, err error) {
	if err = z.ready(); err != nil {
		return 0, false, err
	}
	raw, err := z.codec.Encode(v)
	if err != nil {
		return 0, false, err
	}
	score, err = z.conn.ZScore(ctx, z.key, raw).Result()
	if backend.IsNil(err) {
		return 0, false, nil
	}
	return score, err == nil, err
}

// Contains reports whether v is a member.
func (z *SortedSet[T]) Contains(ctx context.Context, v T) (bool, error) {
	_, ok, err := z.ZScore(ctx, v)
	return ok, err
}

// ZRank returns the ascending rank of v.
func (z *SortedSet[T]) ZRank(ctx context.Context, v T) (int64, bool, error) {
	return z.rank(ctx, v, false)
}

// ZRevRank returns the descending rank of v.
func (z *SortedSet[T]) ZRevRank(ctx context.Context, v T) (int64, bool, error) {
	return z.rank(ctx, v, true)
}

func (z *SortedSet[T]) rank(ctx context.Context, v T, rev bool) (int64, bool, error) {
	if err := z.ready(); err != nil {
		return 0, false, err
	}
	raw, err := z.codec.Encode(v)
	if err != nil {
		return 0, false, err
	}
	var r int64
	if rev {
		r, err = z.conn.ZRevRank(ctx, z.key, raw).Result()
	} else {
		r, err = z.conn.ZRank(ctx, z.key, raw).Result()
	}
	if backend.IsNil(err) {
		return 0, false, nil
	}
	return r, err == nil, err
}

// ZCard returns the number of members.
func (z *SortedSet[T]) ZCard(ctx context.Context) (int64, error) {
	if err := z.ready(); err != nil {
		return 0, err
	}
	return z.conn.ZCard(ctx, z.key).Result()
}

// Len is ZCard.
func (z *SortedSet[T]) Len(ctx context.Context) (int64, error) {
	return z.ZCard(ctx)
}

// MinScore returns the lowest score; ok is false for an empty set.
func (z *SortedSet[T]) MinScore(ctx context.Context) (float64, bool, error) {
	return z.edgeScore(ctx, 0)
}

// MaxScore returns the highest score.
func (z *SortedSet[T]) MaxScore(ctx context.Context) (float64, bool, error) {
	return z.edgeScore(ctx, -1)
}

func (z *SortedSet[T]) edgeScore(ctx context.Context, idx int64) (float64, bool, error) {
	if err := z.ready(); err != nil {
		return 0, false, err
	}
	zs, err := z.conn.ZRangeWithScores(ctx, z.key, idx, idx).Result()
	if err != nil || len(zs) == 0 {
		return 0, false, err
	}
	return zs[0].Score, true, nil
}

// --------------------------------------------------------------------------
// Rank ranges
// --------------------------------------------------------------------------

// Index returns the member at rank idx (ascending, zero-based). Negative
// indices count from the highest score.
func (z *SortedSet[T]) Index(ctx context.Context, idx int64) (v T, ok bool, err error) {
	vals, err := z.ZRange(ctx, idx, idx)
	if err != nil || len(vals) == 0 {
		return v, false, err
	}
	return vals[0], true, nil
}

// Slice returns the members ranked in the half-open range [start, stop).
func (z *SortedSet[T]) Slice(ctx context.Context, start, stop int64) ([]T, error) {
	if err := z.ready(); err != nil {
		return nil, err
	}
	if start >= 0 && stop >= 0 {
		if stop <= start {
			return []T{}, nil
		}
		return z.ZRange(ctx, start, stop-1)
	}
	card, err := z.conn.ZCard(ctx, z.key).Result()
	if err != nil {
		return nil, err
	}
	from, to, ok := sliceBounds(start, stop, card)
	if !ok {
		return []T{}, nil
	}
	return z.ZRange(ctx, from, to)
}

// ZRange returns the members ranked start to stop (inclusive), ascending.
func (z *SortedSet[T]) ZRange(ctx context.Context, start, stop int64) ([]T, error) {
	if err := z.ready(); err != nil {
		return nil, err
	}
	return z.decodeAll(z.conn.ZRange(ctx, z.key, start, stop).Result())
}

// ZRangeWithScores is ZRange with scores.
func (z *SortedSet[T]) ZRangeWithScores(ctx context.Context, start, stop int64) ([]Member[T], error) {
	if err := z.ready(); err != nil {
		return nil, err
	}
	return z.decodeScored(z.conn.ZRangeWithScores(ctx, z.key, start, stop).Result())
}

// ZRevRange returns the members ranked start to stop (inclusive), descending.
func (z *SortedSet[T]) ZRevRange(ctx context.Context, start, stop int64) ([]T, error) {
	if err := z.ready(); err != nil {
		return nil, err
	}
	return z.decodeAll(z.conn.ZRevRange(ctx, z.key, start, stop).Result())
}

// ZRevRangeWithScores is ZRevRange with scores.
func (z *SortedSet[T]) ZRevRangeWithScores(ctx context.Context, start, stop int64) ([]Member[T], error) {
	if err := z.ready(); err != nil {
		return nil, err
	}
	return z.decodeScored(z.conn.ZRevRangeWithScores(ctx, z.key, start, stop).Result())
}

// Members returns all members ascending by score.
func (z *SortedSet[T]) Members(ctx context.Context) ([]T, error) {
	return z.ZRange(ctx, 0, -1)
}

// RevMembers returns all members descending by score.
func (z *SortedSet[T]) RevMembers(ctx context.Context) ([]T, error) {
	return z.ZRevRange(ctx, 0, -1)
}

// --------------------------------------------------------------------------
// Score ranges
//
// min and max use the server syntax: "-inf", "+inf", "10" (inclusive) and
// "(10" (exclusive).
// --------------------------------------------------------------------------

// ZRangeByScore returns the members with min <= score <= max, ascending.
func (z *SortedSet[T]) ZRangeByScore(ctx context.Context, min, max string, page Page) ([]T, error) {
	if err := z.ready(); err != nil {
		return nil, err
	}
	return z.decodeAll(z.conn.ZRangeByScore(ctx, z.key, rangeBy(min, max, page)).Result())
}

// ZRangeByScoreWithScores is ZRangeByScore with scores.
func (z *SortedSet[T]) ZRangeByScoreWithScores(ctx context.Context, min, max string, page Page) ([]Member[T], error) {
	if err := z.ready(); err != nil {
		return nil, err
	}
	return z.decodeScored(z.conn.ZRangeByScoreWithScores(ctx, z.key, rangeBy(min, max, page)).Result())
}

// ZRevRangeByScore returns the members with min <= score <= max, descending.
func (z *SortedSet[T]) ZRevRangeByScore(ctx context.Context, max, min string, page Page) ([]T, error) {
	if err := z.ready(); err != nil {
		return nil, err
	}
	return z.decodeAll(z.conn.ZRevRangeByScore(ctx, z.key, rangeBy(min, max, page)).Result())
}

// ZRevRangeByScoreWithScores is ZRevRangeByScore with scores.
func (z *SortedSet[T]) ZRevRangeByScoreWithScores(ctx context.Context, max, min string, page Page) ([]Member[T], error) {
	if err := z.ready(); err != nil {
		return nil, err
	}
	return z.decodeScored(z.conn.ZRevRangeByScoreWithScores(ctx, z.key, rangeBy(min, max, page)).Result())
}

// Lt returns the members with a score strictly below v.
func (z *SortedSet[T]) Lt(ctx context.Context, v float64, page Page) ([]T, error) {
	return z.ZRangeByScore(ctx, "-inf", exclusive(v), page)
}

// Le returns the members with a score below or equal to v.
func (z *SortedSet[T]) Le(ctx context.Context, v float64, page Page) ([]T, error) {
	return z.ZRangeByScore(ctx, "-inf", formatScore(v), page)
}

// Gt returns the members with a score strictly above v.
func (z *SortedSet[T]) Gt(ctx context.Context, v float64, page Page) ([]T, error) {
	return z.ZRangeByScore(ctx, exclusive(v), "+inf", page)
}

// Ge returns the members with a score above or equal to v.
func (z *SortedSet[T]) Ge(ctx context.Context, v float64, page Page) ([]T, error) {
	return z.ZRangeByScore(ctx, formatScore(v), "+inf", page)
}

// Between returns the members with min <= score <= max. Both ends are inclusive.
func (z *SortedSet[T]) Between(ctx context.Context, min, max float64, page Page) ([]T, error) {
	return z.ZRangeByScore(ctx, formatScore(min), formatScore(max), page)
}

// Eq returns the members with a score of exactly v.
func (z *SortedSet[T]) Eq(ctx context.Context, v float64, page Page) ([]T, error) {
	return z.ZRangeByScore(ctx, formatScore(v), formatScore(v), page)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func exclusive(v float64) string {
	return "(" + formatScore(v)
}

func rangeBy(min, max string, page Page) *redis.ZRangeBy {
	by := &redis.ZRangeBy{Min: min, Max: max, Offset: page.Offset, Count: page.Limit}
	if page.Limit == 0 && page.Offset != 0 {
		// the server needs a count together with an offset
		by.Count = -1
	}
	return by
}

func (z *SortedSet[T]) decodeAll(raw []string, err error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	return z.codec.DecodeAll(raw)
}

func (z *SortedSet[T]) decodeScored(zs []redis.Z, err error) ([]Member[T], error) {
	if err != nil {
		return nil, err
	}
	out := make([]Member[T], len(zs))
	for i, m := range zs {
		raw, _ := m.Member.(string)
		v, err := z.codec.Decode(raw)
		if err != nil {
			return nil, err
		}
		out[i] = Member[T]{Value: v, Score: m.Score}
	}
	return out, nil
}

var _ Binding = (*SortedSet[string])(nil)
