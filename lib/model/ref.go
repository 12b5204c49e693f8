package model

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/ValentinKolb/trol/lib/codec"
	"github.com/ValentinKolb/trol/lib/common"
	"github.com/ValentinKolb/trol/lib/property"
)

// --------------------------------------------------------------------------
// Entity references
//
// A reference is the byte sequence
//
//	type name 0xFE identifier 0xFE model name 0xFE explicit key
//
// where an absent identifier, model name override or explicit key is the
// single byte 0xFC. Neither byte occurs in valid UTF-8.
// --------------------------------------------------------------------------

const (
	refSeparator byte = 0xFE
	refAbsent    byte = 0xFC
	refFields         = 4
)

// EncodeRef encodes a reference to e. Only type, identifier, model name
// override and explicit key are stored, never property values.
func EncodeRef(e *Entity) (string, error) {
	if e == nil || e.typ == nil {
		return "", common.NewError(common.RetCPrecondition, "cannot reference a nil entity")
	}
	pieces := [refFields]struct {
		val     string
		present bool
	}{
		{e.typ.name, true},
		{e.id, e.hasID},
		{e.modelName, e.modelName != ""},
		{e.key, e.key != ""},
	}

	var buf bytes.Buffer
	for i, p := range pieces {
		if i > 0 {
			buf.WriteByte(refSeparator)
		}
		if !p.present {
			buf.WriteByte(refAbsent)
			continue
		}
		if !utf8.ValidString(p.val) {
			return "", common.Errorf(common.RetCPrecondition, "reference field %q is not valid UTF-8", p.val)
		}
		buf.WriteString(p.val)
	}
	return buf.String(), nil
}

// DecodeRef decodes a reference produced by EncodeRef. The type is looked
// up in r. The entity is not constructed through New: only identifier,
// model name and explicit key are restored, and the owner is the database
// of r (if any). Every failure is a common.ErrDeserialization error
// carrying the offending bytes.
func (r *Registry) DecodeRef(s string) (*Entity, error) {
	data := []byte(s)
	parts := bytes.Split(data, []byte{refSeparator})
	if len(parts) != refFields {
		return nil, common.NewDeserializationError(data, fmt.Errorf("expected %d fields, got %d", refFields, len(parts)))
	}

	vals := make([]string, refFields)
	present := make([]bool, refFields)
	for i, p := range parts {
		if len(p) == 1 && p[0] == refAbsent {
			continue
		}
		if !utf8.Valid(p) {
			return nil, common.NewDeserializationError(data, fmt.Errorf("field %d is not valid UTF-8", i))
		}
		vals[i] = string(p)
		present[i] = true
	}
	if !present[0] {
		return nil, common.NewDeserializationError(data, errors.New("type name missing"))
	}

	t, ok := r.Lookup(vals[0])
	if !ok {
		return nil, common.NewDeserializationError(data, fmt.Errorf("unknown type %q", vals[0]))
	}

	e := &Entity{
		typ:       t,
		id:        vals[1],
		hasID:     present[1],
		modelName: vals[2],
		key:       vals[3],
		values:    property.NewValues(),
	}
	if r.db != nil {
		e.owner = r.db
	}
	return e, nil
}

// RefCodec returns a codec for entity references decoding against r.
func RefCodec(r *Registry) codec.Codec[*Entity] {
	return codec.Codec[*Entity]{
		Encode: EncodeRef,
		Decode: r.DecodeRef,
	}
}

// RegisterRefs makes *Entity a serializable type of c, decoding against r.
func RegisterRefs(c *codec.Registry, r *Registry) {
	rc := RefCodec(r)
	codec.Register(c, rc.Encode, rc.Decode)
}
