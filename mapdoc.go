package kvdoc

import (
	"log/slog"
	"slices"
)

const (
	debugLogMapCursors = false
)

// MapDocument exposes a Backing through the cursor protocol.
//
// Because the backing has unique keys, LastKey is the same as FirstKey,
// and NextKey/PrevKey find the single match unless the cursor already sits
// on it.
type MapDocument struct {
	backing Backing
	logger  *slog.Logger
}

// NewMapDocument adapts b. It panics with ErrNilDocument if b is nil.
func NewMapDocument(b Backing) *MapDocument {
	if isNil(b) {
		panic(ErrNilDocument)
	}
	return &MapDocument{backing: b}
}

// WithLogger returns a copy of the document whose cursors log backing
// failures at debug level.
func (doc *MapDocument) WithLogger(logger *slog.Logger) *MapDocument {
	d := *doc
	d.logger = logger
	return &d
}

func (doc *MapDocument) Backing() Backing {
	return doc.backing
}

func (doc *MapDocument) Cursor() Cursor {
	return doc.MapCursor()
}

// MapCursor is Cursor with the concrete type, for access to Err.
func (doc *MapDocument) MapCursor() *MapCursor {
	c := &MapCursor{doc: doc}
	c.Reset()
	return c
}

type mapPosMode int

const (
	posNone mapPosMode = iota
	posIndex
	posKey
)

// MapCursor walks a snapshot of the backing's keys taken when the cursor
// is created or reset.
//
// Its position is either an index into the snapshot or, after FirstKey, a
// key whose index is looked up only when a positional operation needs it.
type MapCursor struct {
	doc  *MapDocument
	keys []string
	mode mapPosMode
	idx  int
	key  string
	err  error
}

// Err returns the first backing error the cursor ran into, if any.
func (c *MapCursor) Err() error {
	return c.err
}

func (c *MapCursor) fail(err error) {
	if c.err == nil {
		c.err = err
	}
	logDebug(c.doc.logger, "kvdoc: backing failure", slog.Any("err", err))
}

func (c *MapCursor) unposition() bool {
	c.mode, c.idx, c.key = posNone, -1, ""
	return false
}

func (c *MapCursor) setIndex(i int) bool {
	c.mode, c.idx, c.key = posIndex, i, ""
	return true
}

// resolve turns a pending key position into an index position.
func (c *MapCursor) resolve() (string, bool) {
	switch c.mode {
	case posIndex:
		return c.keys[c.idx], true
	case posKey:
		i := indexOfString(c.keys, c.key)
		if i < 0 {
			// appeared in the backing after the snapshot
			c.keys = append(c.keys, c.key)
			i = len(c.keys) - 1
		}
		key := c.key
		c.setIndex(i)
		if debugLogMapCursors {
			logDebug(c.doc.logger, "kvdoc: resolved pending key", slog.String("key", key), slog.Int("idx", i))
		}
		return key, true
	default:
		return "", false
	}
}

// currentKey is the key at the current position without resolving the
// index.
func (c *MapCursor) currentKey() (string, bool) {
	switch c.mode {
	case posIndex:
		return c.keys[c.idx], true
	case posKey:
		return c.key, true
	default:
		return "", false
	}
}

// live checks that the current key still exists in the backing.
func (c *MapCursor) live() (string, any, bool) {
	key, ok := c.currentKey()
	if !ok {
		return "", nil, false
	}
	v, found, err := c.doc.backing.Get(key)
	if err != nil {
		c.fail(err)
		return key, nil, true
	}
	if !found {
		c.drop(key)
		return "", nil, c.unposition()
	}
	return key, v, true
}

func (c *MapCursor) drop(key string) {
	c.keys, _ = removeString(c.keys, key)
}

func (c *MapCursor) exists(key string) bool {
	_, found, err := c.doc.backing.Get(key)
	if err != nil {
		c.fail(err)
		return false
	}
	return found
}

func (c *MapCursor) Positioned() bool {
	_, _, ok := c.live()
	return ok
}

func (c *MapCursor) Index() int {
	if _, ok := c.resolve(); !ok {
		return -1
	}
	return c.idx
}

func (c *MapCursor) Seek(i int) bool {
	if i < 0 || i >= len(c.keys) {
		return c.unposition()
	}
	return c.setIndex(i)
}

func (c *MapCursor) Key() string {
	key, _, _ := c.live()
	return key
}

func (c *MapCursor) Value() any {
	_, v, _ := c.live()
	return v
}

func (c *MapCursor) SetKey(key string) error {
	old, v, ok := c.live()
	if !ok {
		return ErrNotPositioned
	}
	if old == key {
		return nil
	}
	prev, existed, err := c.doc.backing.Get(key)
	if err != nil {
		return err
	}
	if err := c.doc.backing.Set(key, v); err != nil {
		return err
	}
	if err := c.doc.backing.Delete(old); err != nil {
		// put the target key back the way it was
		var undo error
		if existed {
			undo = c.doc.backing.Set(key, prev)
		} else {
			undo = c.doc.backing.Delete(key)
		}
		if undo != nil {
			c.fail(undo)
		}
		return err
	}
	c.resolve()
	if j := indexOfString(c.keys, key); j >= 0 {
		c.keys = slices.Delete(c.keys, j, j+1)
		if j < c.idx {
			c.idx--
		}
	}
	c.keys[c.idx] = key
	return nil
}

func (c *MapCursor) SetValue(value any) error {
	key, _, ok := c.live()
	if !ok {
		return ErrNotPositioned
	}
	return c.doc.backing.Set(key, value)
}

// step moves by dir from index i, skipping snapshot keys that have since
// disappeared from the backing.
func (c *MapCursor) step(i, dir int) bool {
	for i >= 0 && i < len(c.keys) {
		if c.exists(c.keys[i]) {
			return c.setIndex(i)
		}
		c.keys = slices.Delete(c.keys, i, i+1)
		if dir < 0 {
			i--
		}
	}
	return c.unposition()
}

func (c *MapCursor) First() bool {
	return c.step(0, 1)
}

func (c *MapCursor) Last() bool {
	return c.step(len(c.keys)-1, -1)
}

func (c *MapCursor) Next() bool {
	if _, ok := c.resolve(); !ok {
		return c.First()
	}
	return c.step(c.idx+1, 1)
}

func (c *MapCursor) Prev() bool {
	if _, ok := c.resolve(); !ok {
		return c.Last()
	}
	return c.step(c.idx-1, -1)
}

func (c *MapCursor) FirstKey(key string) bool {
	if !c.exists(key) {
		return c.unposition()
	}
	c.mode, c.idx, c.key = posKey, -1, key
	return true
}

func (c *MapCursor) LastKey(key string) bool {
	return c.FirstKey(key)
}

func (c *MapCursor) NextKey(key string) bool {
	if cur, ok := c.currentKey(); ok && cur == key {
		return c.unposition()
	}
	return c.FirstKey(key)
}

func (c *MapCursor) PrevKey(key string) bool {
	return c.NextKey(key)
}

func (c *MapCursor) insertAt(target int, key string, value any) error {
	if err := c.doc.backing.Set(key, value); err != nil {
		return err
	}
	if j := indexOfString(c.keys, key); j >= 0 {
		c.keys = slices.Delete(c.keys, j, j+1)
		if j < target {
			target--
		}
	}
	target = clamp(target, 0, len(c.keys))
	c.keys = slices.Insert(c.keys, target, key)
	c.setIndex(target)
	return nil
}

func (c *MapCursor) InsertBefore(key string, value any) error {
	target := 0
	if _, ok := c.resolve(); ok {
		target = c.idx
	}
	return c.insertAt(clamp(target, 0, len(c.keys)), key, value)
}

func (c *MapCursor) InsertAfter(key string, value any) error {
	target := len(c.keys)
	if _, ok := c.resolve(); ok {
		target = c.idx + 1
	}
	return c.insertAt(clamp(target, 0, len(c.keys)), key, value)
}

func (c *MapCursor) InsertDocumentBefore(key string) (Document, error) {
	if err := c.InsertBefore(key, NewList()); err != nil {
		return nil, err
	}
	return c.insertedDocument()
}

func (c *MapCursor) InsertDocumentAfter(key string) (Document, error) {
	if err := c.InsertAfter(key, NewList()); err != nil {
		return nil, err
	}
	return c.insertedDocument()
}

// insertedDocument reads back the stored document, since backings that
// persist nested documents hand out their own live view of them.
func (c *MapCursor) insertedDocument() (Document, error) {
	_, v, ok := c.live()
	if c.err != nil {
		return nil, c.err
	}
	doc, isDoc := v.(Document)
	if !ok || !isDoc {
		return nil, ErrUnsupported
	}
	return doc, nil
}

func (c *MapCursor) Delete() bool {
	if _, _, ok := c.live(); !ok {
		return false
	}
	key, _ := c.resolve()
	if err := c.doc.backing.Delete(key); err != nil {
		c.fail(err)
		return false
	}
	c.keys = slices.Delete(c.keys, c.idx, c.idx+1)
	if c.idx >= len(c.keys) {
		c.unposition()
	}
	return true
}

// HasMore reports whether Next would succeed. Snapshot keys deleted from
// the backing in the meantime do not count.
func (c *MapCursor) HasMore() bool {
	start := 0
	if _, ok := c.resolve(); ok {
		start = c.idx + 1
	}
	for _, k := range c.keys[start:] {
		if c.exists(k) {
			return true
		}
	}
	return false
}

func (c *MapCursor) Clone() Cursor {
	clone := *c
	clone.keys = slices.Clone(c.keys)
	return &clone
}

func (c *MapCursor) Reset() {
	keys, err := c.doc.backing.Keys()
	if err != nil {
		c.fail(err)
	}
	c.keys = keys
	c.unposition()
}
