package kvdoc

import "iter"

// Document is an ordered sequence of key-value pairs in which keys may
// repeat. All reads and writes go through cursors.
type Document interface {
	Cursor() Cursor
}

// Documenter is implemented by values that have a document form. The
// comparators and encoders treat them as documents.
type Documenter interface {
	AsDocument() Document
}

// Cursor is a stateful position within one document.
//
// A fresh cursor is unpositioned. Navigation methods return whether the
// cursor ended up on a pair; a miss leaves it unpositioned and is never an
// error. Next on an unpositioned cursor behaves like First, Prev like Last.
//
// Inserts move the cursor onto the inserted pair. When unpositioned,
// InsertBefore prepends and InsertAfter appends. Delete moves the cursor
// onto the pair that followed the deleted one, or unpositions it.
//
// Cursors are not safe for concurrent use. Several cursors may be open on
// the same document; a cursor whose pair is deleted through another cursor
// becomes unpositioned.
type Cursor interface {
	Positioned() bool
	Key() string
	Value() any

	SetKey(key string) error
	SetValue(value any) error

	Next() bool
	Prev() bool
	First() bool
	Last() bool

	NextKey(key string) bool
	PrevKey(key string) bool
	FirstKey(key string) bool
	LastKey(key string) bool

	InsertBefore(key string, value any) error
	InsertAfter(key string, value any) error
	InsertDocumentBefore(key string) (Document, error)
	InsertDocumentAfter(key string) (Document, error)

	Delete() bool
	HasMore() bool

	Clone() Cursor
	Reset()
}

// IndexedCursor is implemented by cursors that support random access by
// position.
type IndexedCursor interface {
	Cursor
	Index() int // -1 when unpositioned
	Seek(i int) bool
}

// SeekIndex positions c on the i-th pair, looking through envelope cursors.
// It returns ErrUnsupported if nothing in the chain has random access, which
// is distinct from a miss (false, nil).
func SeekIndex(c Cursor, i int) (bool, error) {
	ic := indexedCursor(c)
	if ic == nil {
		return false, ErrUnsupported
	}
	return ic.Seek(i), nil
}

// CursorIndex returns the position of c, or -1 if it is unpositioned.
func CursorIndex(c Cursor) (int, error) {
	ic := indexedCursor(c)
	if ic == nil {
		return -1, ErrUnsupported
	}
	return ic.Index(), nil
}

func indexedCursor(c Cursor) IndexedCursor {
	for c != nil {
		if ic, ok := c.(IndexedCursor); ok {
			return ic
		}
		u, ok := c.(interface{ Unwrap() Cursor })
		if !ok {
			return nil
		}
		c = u.Unwrap()
	}
	return nil
}

// Pair is a plain key-value pair.
type Pair struct {
	Key   string
	Value any
}

func P(key string, value any) Pair {
	return Pair{key, value}
}

// All iterates over the pairs of doc in order using a fresh cursor.
func All(doc Document) iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		if isNil(doc) {
			return
		}
		c := doc.Cursor()
		for c.Next() {
			if !yield(c.Key(), c.Value()) {
				return
			}
		}
	}
}

func Pairs(doc Document) []Pair {
	var result []Pair
	for k, v := range All(doc) {
		result = append(result, Pair{k, v})
	}
	return result
}

func Keys(doc Document) []string {
	var result []string
	for k := range All(doc) {
		result = append(result, k)
	}
	return result
}

func Len(doc Document) int {
	var n int
	for range All(doc) {
		n++
	}
	return n
}

// Get returns the value of the first pair with the given key.
func Get(doc Document, key string) (any, bool) {
	if isNil(doc) {
		return nil, false
	}
	c := doc.Cursor()
	if c.FirstKey(key) {
		return c.Value(), true
	}
	return nil, false
}

// GetAll returns the values of all pairs with the given key, in order.
func GetAll(doc Document, key string) []any {
	if isNil(doc) {
		return nil
	}
	var result []any
	c := doc.Cursor()
	for ok := c.FirstKey(key); ok; ok = c.NextKey(key) {
		result = append(result, c.Value())
	}
	return result
}

// Append adds pairs at the end of doc.
func Append(doc Document, pairs ...Pair) error {
	c := doc.Cursor()
	for _, p := range pairs {
		if err := c.InsertAfter(p.Key, p.Value); err != nil {
			return err
		}
	}
	return nil
}
