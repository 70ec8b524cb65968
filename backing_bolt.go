package kvdoc

import (
	"errors"
	"fmt"
	"unsafe"

	"go.etcd.io/bbolt"
)

// BoltBucket is a Backing over a Bolt bucket. Keys come out in byte order.
// Scalar values are stored with EncodeValue; nested documents are stored as
// nested buckets, so Get on such a key returns a live MapDocument over the
// nested bucket.
//
// The backing is only valid for the lifetime of the bucket's transaction.
// Writes through a read-only transaction fail with an error wrapping
// ErrUnsupported.
type BoltBucket struct {
	b *bbolt.Bucket
}

func NewBoltBucket(b *bbolt.Bucket) BoltBucket {
	if b == nil {
		panic(ErrNilDocument)
	}
	return BoltBucket{b}
}

// NewBoltDocument is a shortcut for NewMapDocument(NewBoltBucket(b)).
func NewBoltDocument(b *bbolt.Bucket) *MapDocument {
	return NewMapDocument(NewBoltBucket(b))
}

func (b BoltBucket) Bucket() *bbolt.Bucket {
	return b.b
}

func (b BoltBucket) Keys() ([]string, error) {
	var keys []string
	err := b.b.ForEach(func(k, _ []byte) error {
		keys = append(keys, string(k))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (b BoltBucket) Get(key string) (any, bool, error) {
	kb := unsafeBytesFromString(key)
	if sub := b.b.Bucket(kb); sub != nil {
		return NewBoltDocument(sub), true, nil
	}
	data := b.b.Get(kb)
	if data == nil {
		return nil, false, nil
	}
	v, err := DecodeValue(data)
	if err != nil {
		return nil, true, fmt.Errorf("%q: %w", key, err)
	}
	return v, true, nil
}

func (b BoltBucket) Set(key string, value any) error {
	if !b.b.Writable() {
		return boltErr(bbolt.ErrTxNotWritable)
	}
	var doc *List
	switch v := value.(type) {
	case Document:
		if !isNil(v) {
			doc = Copy(v) // may live in the bucket we are about to replace
		}
	case Documenter:
		doc = Copy(v.AsDocument())
	}

	var data []byte
	if doc == nil {
		var err error
		data, err = EncodeValue(value)
		if err != nil {
			return err
		}
	}

	if err := b.Delete(key); err != nil {
		return err
	}
	kb := []byte(key)
	if doc == nil {
		return boltErr(b.b.Put(kb, data))
	}
	sub, err := b.b.CreateBucket(kb)
	if err != nil {
		return boltErr(err)
	}
	nested := BoltBucket{sub}
	for k, v := range All(doc) {
		if err := nested.Set(k, v); err != nil {
			return err
		}
	}
	return nil
}

func (b BoltBucket) Delete(key string) error {
	kb := unsafeBytesFromString(key)
	if b.b.Bucket(kb) != nil {
		return boltErr(b.b.DeleteBucket(kb))
	}
	return boltErr(b.b.Delete(kb))
}

func boltErr(err error) error {
	if errors.Is(err, bbolt.ErrTxNotWritable) {
		return fmt.Errorf("%w: %w", ErrUnsupported, err)
	}
	return err
}

func unsafeBytesFromString(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
