package collection

import (
	"context"

	"github.com/ValentinKolb/trol/lib/backend"
	"github.com/ValentinKolb/trol/lib/codec"
	"github.com/ValentinKolb/trol/lib/common"
	"github.com/redis/go-redis/v9"
)

// Hash is a field to value map backed by a server hash. Field names and
// values are serialized independently; fields default to the string
// codec of the registry.
type Hash[K comparable, V any] struct {
	base
	fields codec.Codec[K]
	values codec.Codec[V]
}

// NewHash declares a hash with fields of type K and values of type V.
func NewHash[K comparable, V any](opts ...Option) (*Hash[K, V], error) {
	o := applyOptions(opts)
	fc, err := resolveCodec[K](o.registry, o.fieldCodec, "field")
	if err != nil {
		return nil, err
	}
	vc, err := resolveCodec[V](o.registry, o.codec, "value")
	if err != nil {
		return nil, err
	}
	return &Hash[K, V]{
		base:   base{kind: "Hash", name: o.name, key: o.key, conn: o.conn},
		fields: fc,
		values: vc,
	}, nil
}

// MustHash is NewHash that panics on error.
func MustHash[K comparable, V any](opts ...Option) *Hash[K, V] {
	h, err := NewHash[K, V](opts...)
	if err != nil {
		panic(err)
	}
	return h
}

// Bind returns a proxy bound to o.
func (h *Hash[K, V]) Bind(o Owner) (*Hash[K, V], error) {
	b, err := h.bind(o)
	if err != nil {
		return nil, err
	}
	return &Hash[K, V]{base: b, fields: h.fields, values: h.values}, nil
}

func (h *Hash[K, V]) BindAny(o Owner) (interface{}, error) {
	return h.Bind(o)
}

// --------------------------------------------------------------------------
// Single field access
// --------------------------------------------------------------------------

// HSet stores v under field and reports whether the field is new.
func (h *Hash[K, V]) HSet(ctx context.Context, field K, v V) (bool, error) {
	if err := h.ready(); err != nil {
		return false, err
	}
	f, err := h.fields.Encode(field)
	if err != nil {
		return false, err
	}
	raw, err := h.values.Encode(v)
	if err != nil {
		return false, err
	}
	n, err := h.conn.HSet(ctx, h.key, f, raw).Result()
	return n > 0, err
}

// HGet returns the value of field; ok is false if the field is absent.
func (h *Hash[K, V]) HGet(ctx context.Context, field K) (v V, ok bool, err error) {
	if err = h.ready(); err != nil {
		return v, false, err
	}
	f, err := h.fields.Encode(field)
	if err != nil {
		return v, false, err
	}
	raw, err := h.conn.HGet(ctx, h.key, f).Result()
	if backend.IsNil(err) {
		return v, false, nil
	}
	if err != nil {
		return v, false, err
	}
	v, err = h.values.Decode(raw)
	return v, err == nil, err
}

// GetOr returns the value of field, or def if the field is absent.
func (h *Hash[K, V]) GetOr(ctx context.Context, field K, def V) (V, error) {
	v, ok, err := h.HGet(ctx, field)
	if err != nil || !ok {
		return def, err
	}
	return v, nil
}

// Item returns the value of field and fails with common.ErrNotFound if the
// field is absent.
func (h *Hash[K, V]) Item(ctx context.Context, field K) (V, error) {
	v, ok, err := h.HGet(ctx, field)
	if err == nil && !ok {
		err = common.Errorf(common.RetCNotFound, "field %v not in %s", field, h.key)
	}
	return v, err
}

// HExists reports whether field is present.
func (h *Hash[K, V]) HExists(ctx context.Context, field K) (bool, error) {
	if err := h.ready(); err != nil {
		return false, err
	}
	f, err := h.fields.Encode(field)
	if err != nil {
		return false, err
	}
	return h.conn.HExists(ctx, h.key, f).Result()
}

// Contains is HExists.
func (h *Hash[K, V]) Contains(ctx context.Context, field K) (bool, error) {
	return h.HExists(ctx, field)
}

// HIncrBy adds incr to the integer value of field and returns the result.
func (h *Hash[K, V]) HIncrBy(ctx context.Context, field K, incr int64) (int64, error) {
	if err := h.ready(); err != nil {
		return 0, err
	}
	f, err := h.fields.Encode(field)
	if err != nil {
		return 0, err
	}
	return h.conn.HIncrBy(ctx, h.key, f, incr).Result()
}

// HDel removes fields and returns how many existed.
func (h *Hash[K, V]) HDel(ctx context.Context, fields ...K) (int64, error) {
	if err := h.ready(); err != nil {
		return 0, err
	}
	if len(fields) == 0 {
		return 0, nil
	}
	fs, err := h.encodeFields(fields)
	if err != nil {
		return 0, err
	}
	return h.conn.HDel(ctx, h.key, fs...).Result()
}

// Delete removes field and fails with common.ErrNotFound if it was absent.
func (h *Hash[K, V]) Delete(ctx context.Context, field K) error {
	n, err := h.HDel(ctx, field)
	if err == nil && n == 0 {
		err = common.Errorf(common.RetCNotFound, "field %v not in %s", field, h.key)
	}
	return err
}

// --------------------------------------------------------------------------
// Multi field access
// --------------------------------------------------------------------------

// HMGet returns the values of fields in order; absent fields yield def.
func (h *Hash[K, V]) HMGet(ctx context.Context, def V, fields ...K) ([]V, error) {
	return h.hmget(ctx, fields, &def)
}

// HMGetStrict is HMGet failing with common.ErrNotFound on the first absent field.
func (h *Hash[K, V]) HMGetStrict(ctx context.Context, fields ...K) ([]V, error) {
	return h.hmget(ctx, fields, nil)
}

func (h *Hash[K, V]) hmget(ctx context.Context, fields []K, def *V) ([]V, error) {
	if err := h.ready(); err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return []V{}, nil
	}
	fs, err := h.encodeFields(fields)
	if err != nil {
		return nil, err
	}
	raw, err := h.conn.HMGet(ctx, h.key, fs...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]V, len(raw))
	for i, r := range raw {
		s, ok := r.(string)
		if !ok {
			if def == nil {
				return nil, common.Errorf(common.RetCNotFound, "field %v not in %s", fields[i], h.key)
			}
			out[i] = *def
			continue
		}
		if out[i], err = h.values.Decode(s); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// HMSet stores every entry of m in one command. An empty map is a no-op.
func (h *Hash[K, V]) HMSet(ctx context.Context, m map[K]V) (bool, error) {
	if err := h.ready(); err != nil {
		return false, err
	}
	if len(m) == 0 {
		return true, nil
	}
	args, err := h.encodeMap(m)
	if err != nil {
		return false, err
	}
	if err := h.conn.HSet(ctx, h.key, args...).Err(); err != nil {
		return false, err
	}
	return true, nil
}

// Update merges maps (later maps win) and stores the result in one command.
func (h *Hash[K, V]) Update(ctx context.Context, maps ...map[K]V) (bool, error) {
	merged := make(map[K]V)
	for _, m := range maps {
		for k, v := range m {
			merged[k] = v
		}
	}
	return h.HMSet(ctx, merged)
}

// Replace atomically clears the hash and stores m.
func (h *Hash[K, V]) Replace(ctx context.Context, m map[K]V) error {
	if err := h.ready(); err != nil {
		return err
	}
	args, err := h.encodeMap(m)
	if err != nil {
		return err
	}
	_, err = backend.Batch(ctx, h.conn, func(p redis.Pipeliner) error {
		p.Del(ctx, h.key)
		if len(args) > 0 {
			p.HSet(ctx, h.key, args...)
		}
		return nil
	})
	return err
}

// --------------------------------------------------------------------------
// Whole map reads
// --------------------------------------------------------------------------

// HGetAll returns every field and value.
func (h *Hash[K, V]) HGetAll(ctx context.Context) (map[K]V, error) {
	if err := h.ready(); err != nil {
		return nil, err
	}
	raw, err := h.conn.HGetAll(ctx, h.key).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[K]V, len(raw))
	for f, r := range raw {
		k, err := h.fields.Decode(f)
		if err != nil {
			return nil, err
		}
		v, err := h.values.Decode(r)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// Items is HGetAll.
func (h *Hash[K, V]) Items(ctx context.Context) (map[K]V, error) {
	return h.HGetAll(ctx)
}

// HKeys returns every field.
func (h *Hash[K, V]) HKeys(ctx context.Context) ([]K, error) {
	if err := h.ready(); err != nil {
		return nil, err
	}
	raw, err := h.conn.HKeys(ctx, h.key).Result()
	if err != nil {
		return nil, err
	}
	return h.fields.DecodeAll(raw)
}

// HVals returns every value.
func (h *Hash[K, V]) HVals(ctx context.Context) ([]V, error) {
	if err := h.ready(); err != nil {
		return nil, err
	}
	raw, err := h.conn.HVals(ctx, h.key).Result()
	if err != nil {
		return nil, err
	}
	return h.values.DecodeAll(raw)
}

// HLen returns the number of fields.
func (h *Hash[K, V]) HLen(ctx context.Context) (int64, error) {
	if err := h.ready(); err != nil {
		return 0, err
	}
	return h.conn.HLen(ctx, h.key).Result()
}

// Len is HLen.
func (h *Hash[K, V]) Len(ctx context.Context) (int64, error) {
	return h.HLen(ctx)
}

// Each calls fn for every entry until fn returns false. The hash is read
// once when iteration starts.
func (h *Hash[K, V]) Each(ctx context.Context, fn func(K, V) bool) error {
	all, err := h.HGetAll(ctx)
	if err != nil {
		return err
	}
	for k, v := range all {
		if !fn(k, v) {
			return nil
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func (h *Hash[K, V]) encodeFields(fields []K) ([]string, error) {
	out := make([]string, len(fields))
	for i, f := range fields {
		s, err := h.fields.Encode(f)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func (h *Hash[K, V]) encodeMap(m map[K]V) ([]interface{}, error) {
	args := make([]interface{}, 0, 2*len(m))
	for k, v := range m {
		f, err := h.fields.Encode(k)
		if err != nil {
			return nil, err
		}
		raw, err := h.values.Encode(v)
		if err != nil {
			return nil, err
		}
		args = append(args, f, raw)
	}
	return args, nil
}

var _ Binding = (*Hash[string, string])(nil)
