// Package badgerdoc exposes a key prefix inside a Badger transaction as a
// kvdoc document.
//
// A plain pair with key k under prefix p is stored at p+k, its value encoded
// with kvdoc.EncodeValue. A nested document under k is stored as a marker
// key p+k+"\x00" with an empty value, and its own pairs live under the
// prefix p+k+"\x00". Keys therefore must not contain NUL bytes.
package badgerdoc

import (
	"bytes"
	"errors"
	"fmt"
	"slices"

	"github.com/andreyvit/kvdoc"
	"github.com/dgraph-io/badger/v4"
)

const nestedSep = 0

var ErrInvalidKey = errors.New("invalid key")

// Backing is a kvdoc.Backing over all keys with a given prefix in a Badger
// transaction. It is only valid while the transaction is open.
type Backing struct {
	txn    *badger.Txn
	prefix []byte
}

func New(txn *badger.Txn, prefix []byte) Backing {
	if txn == nil {
		panic(kvdoc.ErrNilDocument)
	}
	return Backing{txn, slices.Clone(prefix)}
}

// NewDocument is a shortcut for kvdoc.NewMapDocument(New(txn, prefix)).
func NewDocument(txn *badger.Txn, prefix []byte) *kvdoc.MapDocument {
	return kvdoc.NewMapDocument(New(txn, prefix))
}

func (b Backing) Prefix() []byte {
	return b.prefix
}

func (b Backing) plainKey(key string) []byte {
	k := make([]byte, 0, len(b.prefix)+len(key))
	k = append(k, b.prefix...)
	return append(k, key...)
}

func (b Backing) nestedPrefix(key string) []byte {
	return append(b.plainKey(key), nestedSep)
}

func (b Backing) scan(prefix []byte, f func(key []byte)) {
	opt := badger.DefaultIteratorOptions
	opt.PrefetchValues = false
	opt.Prefix = prefix
	it := b.txn.NewIterator(opt)
	defer it.Close()
	for it.Rewind(); it.Valid(); it.Next() {
		f(it.Item().KeyCopy(nil))
	}
}

func (b Backing) Keys() ([]string, error) {
	var keys []string
	b.scan(b.prefix, func(k []byte) {
		rel := k[len(b.prefix):]
		switch i := bytes.IndexByte(rel, nestedSep); {
		case i < 0:
			keys = append(keys, string(rel))
		case i == len(rel)-1:
			keys = append(keys, string(rel[:i]))
		}
	})
	return keys, nil
}

func (b Backing) Get(key string) (any, bool, error) {
	item, err := b.txn.Get(b.plainKey(key))
	if err == nil {
		data, err := item.ValueCopy(nil)
		if err != nil {
			return nil, true, err
		}
		v, err := kvdoc.DecodeValue(data)
		if err != nil {
			return nil, true, fmt.Errorf("%q: %w", key, err)
		}
		return v, true, nil
	} else if err != badger.ErrKeyNotFound {
		return nil, false, err
	}

	nested := b.nestedPrefix(key)
	_, err = b.txn.Get(nested)
	if err == badger.ErrKeyNotFound {
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}
	return kvdoc.NewMapDocument(Backing{b.txn, nested}), true, nil
}

func (b Backing) Set(key string, value any) error {
	if key == "" && len(b.prefix) == 0 || bytes.IndexByte([]byte(key), nestedSep) >= 0 {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	var doc *kvdoc.List
	switch v := value.(type) {
	case kvdoc.Document:
		if v != nil {
			doc = kvdoc.Copy(v) // may live under the prefix we are about to clear
		}
	case kvdoc.Documenter:
		doc = kvdoc.Copy(v.AsDocument())
	}

	var data []byte
	if doc == nil {
		var err error
		data, err = kvdoc.EncodeValue(value)
		if err != nil {
			return err
		}
	}

	if err := b.Delete(key); err != nil {
		return err
	}
	if doc == nil {
		return txnErr(b.txn.Set(b.plainKey(key), data))
	}

	nestedPrefix := b.nestedPrefix(key)
	if err := txnErr(b.txn.Set(nestedPrefix, []byte{})); err != nil {
		return err
	}
	nested := Backing{b.txn, nestedPrefix}
	for _, p := range kvdoc.Pairs(doc) {
		if err := nested.Set(p.Key, p.Value); err != nil {
			return err
		}
	}
	return nil
}

func (b Backing) Delete(key string) error {
	if err := txnErr(b.txn.Delete(b.plainKey(key))); err != nil {
		return err
	}
	var doomed [][]byte
	b.scan(b.nestedPrefix(key), func(k []byte) {
		doomed = append(doomed, k)
	})
	for _, k := range doomed {
		if err := txnErr(b.txn.Delete(k)); err != nil {
			return err
		}
	}
	return nil
}

func txnErr(err error) error {
	if errors.Is(err, badger.ErrReadOnlyTxn) {
		return fmt.Errorf("%w: %w", kvdoc.ErrUnsupported, err)
	}
	return err
}
