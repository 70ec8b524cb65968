package kvdoc

import (
	"slices"
	"sort"
)

// List is the in-memory reference Document: a slice of pairs with duplicate
// keys allowed and insertion order preserved.
type List struct {
	entries []*listEntry
}

type listEntry struct {
	key     string
	value   any
	deleted bool
}

func NewList() *List {
	return &List{}
}

func NewListOf(pairs ...Pair) *List {
	l := &List{entries: make([]*listEntry, 0, len(pairs))}
	for _, p := range pairs {
		l.entries = append(l.entries, &listEntry{key: p.Key, value: p.Value})
	}
	return l
}

// FromMap builds a list from a Go map. Keys come out sorted since Go maps
// have no order. Nested maps and map slices are converted too.
func FromMap(m map[string]any) *List {
	if m == nil {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	l := &List{entries: make([]*listEntry, 0, len(keys))}
	for _, k := range keys {
		l.entries = append(l.entries, &listEntry{key: k, value: fromMapValue(m[k])})
	}
	return l
}

func fromMapValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return FromMap(v)
	case []map[string]any:
		docs := make([]Document, len(v))
		for i, m := range v {
			if m != nil {
				docs[i] = FromMap(m)
			}
		}
		return docs
	default:
		return v
	}
}

// Copy makes a deep copy of doc as a List. Nested documents and document
// arrays are copied; other values are shared.
func Copy(doc Document) *List {
	if isNil(doc) {
		return nil
	}
	l := &List{}
	for k, v := range All(doc) {
		l.entries = append(l.entries, &listEntry{key: k, value: copyValue(v)})
	}
	return l
}

func copyValue(v any) any {
	switch v := v.(type) {
	case Document:
		if isNil(v) {
			return v
		}
		return Copy(v)
	case []Document:
		docs := make([]Document, len(v))
		for i, d := range v {
			if !isNil(d) {
				docs[i] = Copy(d)
			}
		}
		return docs
	default:
		return v
	}
}

func (l *List) Cursor() Cursor {
	return &listCursor{l: l, i: -1}
}

func (l *List) Len() int {
	return len(l.entries)
}

func (l *List) Pairs() []Pair {
	result := make([]Pair, len(l.entries))
	for i, e := range l.entries {
		result[i] = Pair{e.key, e.value}
	}
	return result
}

func (l *List) insert(i int, key string, value any) *listEntry {
	e := &listEntry{key: key, value: value}
	l.entries = slices.Insert(l.entries, i, e)
	return e
}

func (l *List) remove(i int) {
	l.entries[i].deleted = true
	l.entries = slices.Delete(l.entries, i, i+1)
}

// listCursor remembers both the entry and its last known index; the index
// is re-resolved when other cursors have shifted the entries.
type listCursor struct {
	l *List
	e *listEntry
	i int
}

func (c *listCursor) resolve() bool {
	e := c.e
	if e == nil {
		return false
	}
	if e.deleted {
		c.unposition()
		return false
	}
	if c.i >= 0 && c.i < len(c.l.entries) && c.l.entries[c.i] == e {
		return true
	}
	i := slices.Index(c.l.entries, e)
	if i < 0 {
		c.unposition()
		return false
	}
	c.i = i
	return true
}

func (c *listCursor) set(i int) bool {
	c.i = i
	c.e = c.l.entries[i]
	return true
}

func (c *listCursor) unposition() bool {
	c.e, c.i = nil, -1
	return false
}

func (c *listCursor) Positioned() bool {
	return c.resolve()
}

func (c *listCursor) Index() int {
	if !c.resolve() {
		return -1
	}
	return c.i
}

func (c *listCursor) Seek(i int) bool {
	if i < 0 || i >= len(c.l.entries) {
		return c.unposition()
	}
	return c.set(i)
}

func (c *listCursor) Key() string {
	if !c.resolve() {
		return ""
	}
	return c.e.key
}

func (c *listCursor) Value() any {
	if !c.resolve() {
		return nil
	}
	return c.e.value
}

func (c *listCursor) SetKey(key string) error {
	if !c.resolve() {
		return ErrNotPositioned
	}
	c.e.key = key
	return nil
}

func (c *listCursor) SetValue(value any) error {
	if !c.resolve() {
		return ErrNotPositioned
	}
	c.e.value = value
	return nil
}

func (c *listCursor) First() bool {
	if len(c.l.entries) == 0 {
		return c.unposition()
	}
	return c.set(0)
}

func (c *listCursor) Last() bool {
	n := len(c.l.entries)
	if n == 0 {
		return c.unposition()
	}
	return c.set(n - 1)
}

func (c *listCursor) Next() bool {
	if !c.resolve() {
		return c.First()
	}
	if c.i+1 < len(c.l.entries) {
		return c.set(c.i + 1)
	}
	return c.unposition()
}

func (c *listCursor) Prev() bool {
	if !c.resolve() {
		return c.Last()
	}
	if c.i > 0 {
		return c.set(c.i - 1)
	}
	return c.unposition()
}

func (c *listCursor) scanForward(from int, key string) bool {
	for i := from; i < len(c.l.entries); i++ {
		if c.l.entries[i].key == key {
			return c.set(i)
		}
	}
	return c.unposition()
}

func (c *listCursor) scanBackward(from int, key string) bool {
	for i := from; i >= 0; i-- {
		if c.l.entries[i].key == key {
			return c.set(i)
		}
	}
	return c.unposition()
}

func (c *listCursor) FirstKey(key string) bool {
	return c.scanForward(0, key)
}

func (c *listCursor) LastKey(key string) bool {
	return c.scanBackward(len(c.l.entries)-1, key)
}

func (c *listCursor) NextKey(key string) bool {
	if !c.resolve() {
		return c.FirstKey(key)
	}
	return c.scanForward(c.i+1, key)
}

func (c *listCursor) PrevKey(key string) bool {
	if !c.resolve() {
		return c.LastKey(key)
	}
	return c.scanBackward(c.i-1, key)
}

func (c *listCursor) InsertBefore(key string, value any) error {
	i := 0
	if c.resolve() {
		i = c.i
	}
	c.e, c.i = c.l.insert(i, key, value), i
	return nil
}

func (c *listCursor) InsertAfter(key string, value any) error {
	i := len(c.l.entries)
	if c.resolve() {
		i = c.i + 1
	}
	c.e, c.i = c.l.insert(i, key, value), i
	return nil
}

func (c *listCursor) InsertDocumentBefore(key string) (Document, error) {
	doc := NewList()
	return doc, c.InsertBefore(key, doc)
}

func (c *listCursor) InsertDocumentAfter(key string) (Document, error) {
	doc := NewList()
	return doc, c.InsertAfter(key, doc)
}

func (c *listCursor) Delete() bool {
	if !c.resolve() {
		return false
	}
	c.l.remove(c.i)
	if c.i < len(c.l.entries) {
		c.set(c.i)
	} else {
		c.unposition()
	}
	return true
}

func (c *listCursor) HasMore() bool {
	if !c.resolve() {
		return len(c.l.entries) > 0
	}
	return c.i+1 < len(c.l.entries)
}

func (c *listCursor) Clone() Cursor {
	clone := *c
	return &clone
}

func (c *listCursor) Reset() {
	c.unposition()
}
