package kvdoc

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

const (
	valueFormatVer1      = 1
	valueFormatVerLatest = valueFormatVer1
)

var (
	_ msgpack.CustomEncoder = (*List)(nil)
	_ msgpack.CustomDecoder = (*List)(nil)
)

// EncodeValue produces the stored form of a value used by persistent
// backings: a format version byte followed by MsgPack. Documents are encoded
// as MsgPack maps in pair order, duplicates included.
func EncodeValue(v any) ([]byte, error) {
	bb := bytesBuilder{make([]byte, 0, 64)}
	ensure(bb.WriteByte(valueFormatVerLatest))
	enc := msgpack.GetEncoder()
	enc.Reset(&bb)
	enc.SetSortMapKeys(true)
	err := encodeAny(enc, v)
	msgpack.PutEncoder(enc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %T using MsgPack: %w", v, err)
	}
	return bb.Buf, nil
}

// DecodeValue is the inverse of EncodeValue. MsgPack maps decode as *List.
func DecodeValue(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, dataErrf(data, 0, nil, "invalid value: empty")
	}
	if data[0] != valueFormatVer1 {
		return nil, dataErrf(data, 0, nil, "invalid value: unsupported format version %d", data[0])
	}
	var r bytes.Reader
	r.Reset(data[1:])
	dec := msgpack.GetDecoder()
	dec.Reset(&r)
	v, err := decodeAny(dec)
	msgpack.PutDecoder(dec)
	if err != nil {
		return nil, dataErrf(data, 1, err, "failed to decode msgpack value")
	}
	return v, nil
}

// FromValue converts a struct (or anything else MsgPack encodes as a map)
// into a List, keeping struct field order and msgpack tags.
func FromValue(v any) (*List, error) {
	switch v := v.(type) {
	case Document:
		return Copy(v), nil
	case Documenter:
		return Copy(v.AsDocument()), nil
	}
	raw, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %T using MsgPack: %w", v, err)
	}
	dec := msgpack.NewDecoder(bytes.NewReader(raw))
	decoded, err := decodeAny(dec)
	if err != nil {
		return nil, dataErrf(raw, 0, err, "failed to decode %T back from msgpack", v)
	}
	l, ok := decoded.(*List)
	if !ok {
		return nil, fmt.Errorf("%T does not encode to a map", v)
	}
	return l, nil
}

func (l *List) EncodeMsgpack(enc *msgpack.Encoder) error {
	return encodeDocument(enc, l)
}

func (l *List) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return err
	}
	l.entries = nil
	if n <= 0 {
		return nil
	}
	l.entries = make([]*listEntry, 0, n)
	for range n {
		k, err := dec.DecodeInterface()
		if err != nil {
			return err
		}
		key, ok := k.(string)
		if !ok {
			key = fmt.Sprint(k)
		}
		v, err := decodeAny(dec)
		if err != nil {
			return err
		}
		l.entries = append(l.entries, &listEntry{key: key, value: v})
	}
	return nil
}

func encodeDocument(enc *msgpack.Encoder, doc Document) error {
	if isNil(doc) {
		return enc.EncodeNil()
	}
	pairs := Pairs(doc)
	if err := enc.EncodeMapLen(len(pairs)); err != nil {
		return err
	}
	for _, p := range pairs {
		if err := enc.EncodeString(p.Key); err != nil {
			return err
		}
		if err := encodeAny(enc, p.Value); err != nil {
			return err
		}
	}
	return nil
}

func encodeAny(enc *msgpack.Encoder, v any) error {
	switch v := v.(type) {
	case Document:
		return encodeDocument(enc, v)
	case Documenter:
		return encodeDocument(enc, v.AsDocument())
	case []Document:
		if err := enc.EncodeArrayLen(len(v)); err != nil {
			return err
		}
		for _, d := range v {
			if err := encodeDocument(enc, d); err != nil {
				return err
			}
		}
		return nil
	case []any:
		if err := enc.EncodeArrayLen(len(v)); err != nil {
			return err
		}
		for _, item := range v {
			if err := encodeAny(enc, item); err != nil {
				return err
			}
		}
		return nil
	default:
		return enc.Encode(v)
	}
}

func isMapCode(c byte) bool {
	return msgpcode.IsFixedMap(c) || c == msgpcode.Map16 || c == msgpcode.Map32
}

func isArrayCode(c byte) bool {
	return msgpcode.IsFixedArray(c) || c == msgpcode.Array16 || c == msgpcode.Array32
}

// decodeAny decodes maps as *List and arrays of maps as []Document;
// everything else is left to msgpack.
func decodeAny(dec *msgpack.Decoder) (any, error) {
	c, err := dec.PeekCode()
	if err != nil {
		return nil, err
	}
	switch {
	case isMapCode(c):
		l := &List{}
		if err := l.DecodeMsgpack(dec); err != nil {
			return nil, err
		}
		return l, nil
	case isArrayCode(c):
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return nil, err
		}
		items := make([]any, n)
		allDocs := n > 0
		for i := range items {
			items[i], err = decodeAny(dec)
			if err != nil {
				return nil, err
			}
			if _, ok := items[i].(*List); !ok && items[i] != nil {
				allDocs = false
			}
		}
		if allDocs {
			docs := make([]Document, n)
			for i, item := range items {
				if item != nil {
					docs[i] = item.(*List)
				}
			}
			return docs, nil
		}
		return items, nil
	default:
		return dec.DecodeInterface()
	}
}
