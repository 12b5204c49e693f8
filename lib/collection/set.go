package collection

import (
	"context"

	"github.com/ValentinKolb/trol/lib/backend"
	"github.com/ValentinKolb/trol/lib/codec"
	"github.com/ValentinKolb/trol/lib/common"
	"github.com/redis/go-redis/v9"
)

// Set is an unordered collection of unique members backed by a server set.
//
// A Set returned by NewSet is a declaration. Bind resolves key and
// connection against an owner and returns a proxy; every proxy operation
// goes straight to the backend, nothing is cached.
type Set[T any] struct {
	base
	codec codec.Codec[T]
}

// NewSet declares a set of T.
func NewSet[T any](opts ...Option) (*Set[T], error) {
	o := applyOptions(opts)
	c, err := resolveCodec[T](o.registry, o.codec, "element")
	if err != nil {
		return nil, err
	}
	return &Set[T]{
		base:  base{kind: "Set", name: o.name, key: o.key, conn: o.conn},
		codec: c,
	}, nil
}

// MustSet is NewSet that panics on error.
func MustSet[T any](opts ...Option) *Set[T] {
	s, err := NewSet[T](opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Bind returns a proxy bound to o.
func (s *Set[T]) Bind(o Owner) (*Set[T], error) {
	b, err := s.bind(o)
	if err != nil {
		return nil, err
	}
	return &Set[T]{base: b, codec: s.codec}, nil
}

func (s *Set[T]) BindAny(o Owner) (interface{}, error) {
	return s.Bind(o)
}

// At returns a proxy on key sharing codec and connection with s.
func (s *Set[T]) At(key string) *Set[T] {
	return &Set[T]{base: base{kind: s.kind, name: s.name, key: key, conn: s.conn}, codec: s.codec}
}

// --------------------------------------------------------------------------
// Mutators
// --------------------------------------------------------------------------

// Add inserts values and returns how many were new. No values is a no-op.
func (s *Set[T]) Add(ctx context.Context, values ...T) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, nil
	}
	raw, err := s.codec.EncodeAll(values)
	if err != nil {
		return 0, err
	}
	return s.conn.SAdd(ctx, s.key, raw...).Result()
}

// Remove deletes values and returns how many were members.
func (s *Set[T]) Remove(ctx context.Context, values ...T) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, nil
	}
	raw, err := s.codec.EncodeAll(values)
	if err != nil {
		return 0, err
	}
	return s.conn.SRem(ctx, s.key, raw...).Result()
}

// Pop removes and returns an arbitrary member; ok is false for an empty set.
func (s *Set[T]) Pop(ctx context.Context) (v T, ok bool, err error) {
	if err = s.ready(); err != nil {
		return v, false, err
	}
	return s.decodeOne(s.conn.SPop(ctx, s.key).Result())
}

// --------------------------------------------------------------------------
// Reads
// --------------------------------------------------------------------------

// Members returns all members.
func (s *Set[T]) Members(ctx context.Context) ([]T, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.decodeAll(s.conn.SMembers(ctx, s.key).Result())
}

// Each calls fn for every member until fn returns false. The members are
// read once when iteration starts.
func (s *Set[T]) Each(ctx context.Context, fn func(T) bool) error {
	members, err := s.Members(ctx)
	if err != nil {
		return err
	}
	for _, m := range members {
		if !fn(m) {
			return nil
		}
	}
	return nil
}

// Len returns the cardinality.
func (s *Set[T]) Len(ctx context.Context) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	return s.conn.SCard(ctx, s.key).Result()
}

// Contains reports whether v is a member.
func (s *Set[T]) Contains(ctx context.Context, v T) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	raw, err := s.codec.Encode(v)
	if err != nil {
		return false, err
	}
	return s.conn.SIsMember(ctx, s.key, raw).Result()
}

// RandMember returns a random member without removing it.
func (s *Set[T]) RandMember(ctx context.Context) (v T, ok bool, err error) {
	if err = s.ready(); err != nil {
		return v, false, err
	}
	return s.decodeOne(s.conn.SRandMember(ctx, s.key).Result())
}

// SInter returns the members common to s and others.
func (s *Set[T]) SInter(ctx context.Context, others ...*Set[T]) ([]T, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.decodeAll(s.conn.SInter(ctx, s.keys(others)...).Result())
}

// SUnion returns the members of s and all others.
func (s *Set[T]) SUnion(ctx context.Context, others ...*Set[T]) ([]T, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.decodeAll(s.conn.SUnion(ctx, s.keys(others)...).Result())
}

// SDiff returns the members of s that are in none of others.
func (s *Set[T]) SDiff(ctx context.Context, others ...*Set[T]) ([]T, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.decodeAll(s.conn.SDiff(ctx, s.keys(others)...).Result())
}

// --------------------------------------------------------------------------
// Server side algebra (stored results)
// --------------------------------------------------------------------------

// Union stores the union of s and others at dest and returns a proxy on dest.
func (s *Set[T]) Union(ctx context.Context, dest string, others ...*Set[T]) (*Set[T], error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := s.conn.SUnionStore(ctx, dest, s.keys(others)...).Err(); err != nil {
		return nil, err
	}
	return s.At(dest), nil
}

// Intersection stores the intersection of s and others at dest.
func (s *Set[T]) Intersection(ctx context.Context, dest string, others ...*Set[T]) (*Set[T], error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := s.conn.SInterStore(ctx, dest, s.keys(others)...).Err(); err != nil {
		return nil, err
	}
	return s.At(dest), nil
}

// Difference stores the members of s missing from all others at dest.
func (s *Set[T]) Difference(ctx context.Context, dest string, others ...*Set[T]) (*Set[T], error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := s.conn.SDiffStore(ctx, dest, s.keys(others)...).Err(); err != nil {
		return nil, err
	}
	return s.At(dest), nil
}

// Update adds the members of others to s and returns the new cardinality.
func (s *Set[T]) Update(ctx context.Context, others ...*Set[T]) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	return s.conn.SUnionStore(ctx, s.key, s.keys(others)...).Result()
}

// IntersectionUpdate keeps only members also found in all others.
func (s *Set[T]) IntersectionUpdate(ctx context.Context, others ...*Set[T]) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	return s.conn.SInterStore(ctx, s.key, s.keys(others)...).Result()
}

// DifferenceUpdate removes the members found in any of others.
func (s *Set[T]) DifferenceUpdate(ctx context.Context, others ...*Set[T]) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	return s.conn.SDiffStore(ctx, s.key, s.keys(others)...).Result()
}

// Copy duplicates s at dest on the server.
func (s *Set[T]) Copy(ctx context.Context, dest string) (*Set[T], error) {
	return s.Union(ctx, dest)
}

// --------------------------------------------------------------------------
// Comparisons
//
// Every comparison is one MULTI/EXEC batch: store an intersection,
// difference or union under a scratch key, read its cardinality and
// delete it again. Members never travel to the client.
// --------------------------------------------------------------------------

// IsDisjoint reports whether s and other share no member.
func (s *Set[T]) IsDisjoint(ctx context.Context, other *Set[T]) (bool, error) {
	n, err := s.scratchStore(ctx, other, func(p redis.Pipeliner, scratch string) *redis.IntCmd {
		return p.SInterStore(ctx, scratch, s.key, other.key)
	})
	return n == 0 && err == nil, err
}

// IsSubset reports whether every member of s is in other.
func (s *Set[T]) IsSubset(ctx context.Context, other *Set[T]) (bool, error) {
	n, err := s.scratchStore(ctx, other, func(p redis.Pipeliner, scratch string) *redis.IntCmd {
		return p.SDiffStore(ctx, scratch, s.key, other.key)
	})
	return n == 0 && err == nil, err
}

// IsSuperset reports whether every member of other is in s.
func (s *Set[T]) IsSuperset(ctx context.Context, other *Set[T]) (bool, error) {
	n, err := s.scratchStore(ctx, other, func(p redis.Pipeliner, scratch string) *redis.IntCmd {
		return p.SDiffStore(ctx, scratch, other.key, s.key)
	})
	return n == 0 && err == nil, err
}

// IsStrictSubset reports whether s is a subset of other and smaller.
func (s *Set[T]) IsStrictSubset(ctx context.Context, other *Set[T]) (bool, error) {
	diff, self, oth, err := s.compare(ctx, other, func(p redis.Pipeliner, scratch string) *redis.IntCmd {
		return p.SDiffStore(ctx, scratch, s.key, other.key)
	})
	return err == nil && diff == 0 && self < oth, err
}

// IsStrictSuperset reports whether s is a superset of other and larger.
func (s *Set[T]) IsStrictSuperset(ctx context.Context, other *Set[T]) (bool, error) {
	diff, self, oth, err := s.compare(ctx, other, func(p redis.Pipeliner, scratch string) *redis.IntCmd {
		return p.SDiffStore(ctx, scratch, other.key, s.key)
	})
	return err == nil && diff == 0 && self > oth, err
}

// Equal reports whether s and other have the same members. Two proxies on
// the same key are equal without a round trip.
func (s *Set[T]) Equal(ctx context.Context, other *Set[T]) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	if err := checkOther(other); err != nil {
		return false, err
	}
	if s.key == other.key {
		return true, nil
	}
	union, self, oth, err := s.compare(ctx, other, func(p redis.Pipeliner, scratch string) *redis.IntCmd {
		return p.SUnionStore(ctx, scratch, s.key, other.key)
	})
	return err == nil && union == self && union == oth, err
}

// scratchStore runs store into a scratch key and returns its cardinality.
func (s *Set[T]) scratchStore(ctx context.Context, other *Set[T], store func(redis.Pipeliner, string) *redis.IntCmd) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	if err := checkOther(other); err != nil {
		return 0, err
	}
	scratch := backend.ScratchKey()
	var res *redis.IntCmd
	_, err := backend.Batch(ctx, s.conn, func(p redis.Pipeliner) error {
		res = store(p, scratch)
		p.Del(ctx, scratch)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return res.Val(), nil
}

// compare is scratchStore that also reads both cardinalities in the same batch.
func (s *Set[T]) compare(ctx context.Context, other *Set[T], store func(redis.Pipeliner, string) *redis.IntCmd) (stored, self, oth int64, err error) {
	if err = s.ready(); err != nil {
		return 0, 0, 0, err
	}
	if err = checkOther(other); err != nil {
		return 0, 0, 0, err
	}
	scratch := backend.ScratchKey()
	var res, selfCard, otherCard *redis.IntCmd
	_, err = backend.Batch(ctx, s.conn, func(p redis.Pipeliner) error {
		res = store(p, scratch)
		selfCard = p.SCard(ctx, s.key)
		otherCard = p.SCard(ctx, other.key)
		p.Del(ctx, scratch)
		return nil
	})
	if err != nil {
		return 0, 0, 0, err
	}
	return res.Val(), selfCard.Val(), otherCard.Val(), nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func checkOther[T any](other *Set[T]) error {
	if other == nil || other.key == "" {
		return common.NewError(common.RetCConfiguration, "other set is not bound")
	}
	return nil
}

func (s *Set[T]) keys(others []*Set[T]) []string {
	keys := make([]string, 0, len(others)+1)
	keys = append(keys, s.key)
	for _, o := range others {
		keys = append(keys, o.key)
	}
	return keys
}

func (s *Set[T]) decodeOne(raw string, err error) (v T, ok bool, _ error) {
	if backend.IsNil(err) {
		return v, false, nil
	}
	if err != nil {
		return v, false, err
	}
	v, err = s.codec.Decode(raw)
	return v, err == nil, err
}

func (s *Set[T]) decodeAll(raw []string, err error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	return s.codec.DecodeAll(raw)
}

var _ Binding = (*Set[string])(nil)
