package codec

import (
	"bytes"
	"encoding/gob"
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec is a typed pair of encode and decode functions.
// A Codec with a nil function is partial and can be completed with Resolve.
type Codec[T any] struct {
	Encode func(v T) (string, error)
	Decode func(s string) (T, error)
}

// Complete reports whether both functions are set.
func (c Codec[T]) Complete() bool {
	return c.Encode != nil && c.Decode != nil
}

// EncodeAll encodes every value of vs.
func (c Codec[T]) EncodeAll(vs []T) ([]interface{}, error) {
	out := make([]interface{}, len(vs))
	for i, v := range vs {
		s, err := c.Encode(v)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// DecodeAll decodes every wire value of ss.
func (c Codec[T]) DecodeAll(ss []string) ([]T, error) {
	out := make([]T, len(ss))
	for i, s := range ss {
		v, err := c.Decode(s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// --------------------------------------------------------------------------
// Registry bridge
// --------------------------------------------------------------------------

// Register installs typed encode and decode functions for T in r.
// Either function may be nil, in which case only the other one is registered.
func Register[T any](r *Registry, enc func(T) (string, error), dec func(string) (T, error)) {
	t := TypeOf[T]()
	if enc != nil {
		r.Register(t, func(v interface{}) (string, error) {
			tv, ok := v.(T)
			if !ok {
				return "", mismatch(t, v)
			}
			return enc(tv)
		})
	}
	if dec != nil {
		r.RegisterDecoder(t, func(s string) (interface{}, error) {
			return dec(s)
		})
	}
}

// For returns the codec registered for T in r.
// It fails with an unsupported type error if either function is missing.
func For[T any](r *Registry) (Codec[T], error) {
	return Resolve[T](r, Codec[T]{})
}

// Resolve completes c with the functions registered for T in r.
// Functions already present in c take precedence over the registry.
func Resolve[T any](r *Registry, c Codec[T]) (Codec[T], error) {
	t := TypeOf[T]()

	if c.Encode == nil {
		if r == nil {
			return c, unsupported(t, "serializer")
		}
		enc, ok := r.Encoder(t)
		if !ok {
			return c, unsupported(t, "serializer")
		}
		c.Encode = func(v T) (string, error) {
			return enc(v)
		}
	}

	if c.Decode == nil {
		if r == nil {
			return c, unsupported(t, "deserializer")
		}
		dec, ok := r.Decoder(t)
		if !ok {
			return c, unsupported(t, "deserializer")
		}
		c.Decode = func(s string) (T, error) {
			var zero T
			v, err := dec(s)
			if err != nil || v == nil {
				return zero, err
			}
			tv, ok := v.(T)
			if !ok {
				return zero, mismatch(t, v)
			}
			return tv, nil
		}
	}

	return c, nil
}

// --------------------------------------------------------------------------
// Value codecs for arbitrary types
// --------------------------------------------------------------------------

// Msgpack returns a codec using msgpack encoding. It is compact and
// the recommended choice for struct values.
func Msgpack[T any]() Codec[T] {
	return Codec[T]{
		Encode: func(v T) (string, error) {
			b, err := msgpack.Marshal(v)
			return string(b), err
		},
		Decode: func(s string) (T, error) {
			var v T
			err := msgpack.Unmarshal([]byte(s), &v)
			return v, err
		},
	}
}

// JSON returns a codec using json encoding. Values stay readable in the
// backend which helps when inspecting keys by hand.
func JSON[T any]() Codec[T] {
	return Codec[T]{
		Encode: func(v T) (string, error) {
			b, err := json.Marshal(v)
			return string(b), err
		},
		Decode: func(s string) (T, error) {
			var v T
			err := json.Unmarshal([]byte(s), &v)
			return v, err
		},
	}
}

// Gob returns a codec using Go's binary gob format. It produces larger
// payloads than Msgpack and is only readable by Go programs.
func Gob[T any]() Codec[T] {
	return Codec[T]{
		Encode: func(v T) (string, error) {
			var buf bytes.Buffer
			if err := gob.NewEncoder(&buf).Encode(v); err != nil {
				return "", err
			}
			return buf.String(), nil
		},
		Decode: func(s string) (T, error) {
			var v T
			err := gob.NewDecoder(bytes.NewBufferString(s)).Decode(&v)
			return v, err
		},
	}
}

// RegisterMsgpack registers the msgpack codec for T in r.
func RegisterMsgpack[T any](r *Registry) {
	c := Msgpack[T]()
	Register(r, c.Encode, c.Decode)
}

// RegisterJSON registers the json codec for T in r.
func RegisterJSON[T any](r *Registry) {
	c := JSON[T]()
	Register(r, c.Encode, c.Decode)
}
