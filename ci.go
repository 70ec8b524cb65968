package kvdoc

import (
	"log/slog"
	"sort"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultLocale is what an unspecified (language.Und) locale normalizes to.
var DefaultLocale = language.English

// NormalizeLocale maps language.Und to DefaultLocale and canonicalizes
// everything else. Two overlays are interchangeable only if their
// normalized locales are equal.
func NormalizeLocale(tag language.Tag) language.Tag {
	if tag == language.Und {
		return DefaultLocale
	}
	return language.Make(tag.String())
}

// folder lower-cases keys according to a locale. Not safe for concurrent
// use, since cases.Caser keeps state.
type folder struct {
	locale language.Tag
	caser  cases.Caser
}

func newFolder(locale language.Tag) *folder {
	locale = NormalizeLocale(locale)
	return &folder{locale, cases.Lower(locale)}
}

func (f *folder) fold(s string) string {
	return f.caser.String(s)
}

type CIOptions struct {
	// Locale drives case folding. language.Und means DefaultLocale.
	Locale language.Tag

	// Logger, if set, receives debug messages about index maintenance.
	Logger *slog.Logger

	// OnChange, if set, is called after every structural mutation made
	// through the overlay's cursors, once the index has been updated.
	// Nested overlays handed out for sub-documents do not report to it.
	OnChange func(Change)
}

// CIDocument makes key lookups on the wrapped document case-insensitive
// while keeping the stored casing. It keeps an index from folded keys to the
// casings actually stored; the index is built once from the top-level keys
// and then maintained by the overlay's cursors. Mutating the wrapped document
// directly makes the index stale until Reindex.
//
// Nested documents returned by cursor values are wrapped in overlays with
// the same locale on every read. Cyclic documents are not supported.
type CIDocument struct {
	*Envelope
	folder   *folder
	logger   *slog.Logger
	onChange func(Change)
	index    map[string]*foldEntry
}

// foldEntry lists the stored casings of one folded key along with the
// number of pairs using each, since documents allow duplicate keys.
type foldEntry struct {
	casings []string
	counts  map[string]int
}

// NewCaseInsensitive wraps doc. If doc already is a CIDocument with the same
// normalized locale, it is returned as is. Panics with ErrNilDocument if doc
// is nil.
func NewCaseInsensitive(doc Document, opt CIOptions) *CIDocument {
	locale := NormalizeLocale(opt.Locale)
	if ci, ok := doc.(*CIDocument); ok && ci != nil {
		if ci.folder.locale == locale {
			return ci
		}
		doc = ci.Unwrap()
	}
	d := &CIDocument{
		Envelope: NewEnvelope(doc),
		folder:   newFolder(locale),
		logger:   opt.Logger,
		onChange: opt.OnChange,
	}
	d.Reindex()
	return d
}

// CaseInsensitiveAll wraps every document of docs. Nil elements stay nil.
func CaseInsensitiveAll(docs []Document, opt CIOptions) []Document {
	if docs == nil {
		return nil
	}
	result := make([]Document, len(docs))
	for i, doc := range docs {
		if !isNil(doc) {
			result[i] = NewCaseInsensitive(doc, opt)
		}
	}
	return result
}

func (d *CIDocument) Locale() language.Tag {
	return d.folder.locale
}

// nestedOptions configures overlays of sub-documents. Their changes carry
// keys of another document, so they are not reported to d's observer.
func (d *CIDocument) nestedOptions() CIOptions {
	return CIOptions{Locale: d.folder.locale, Logger: d.logger}
}

// Fold returns the folded form of key used by the index.
func (d *CIDocument) Fold(key string) string {
	return d.folder.fold(key)
}

// Reindex rebuilds the index from the wrapped document's top-level keys.
func (d *CIDocument) Reindex() {
	d.index = make(map[string]*foldEntry)
	var n int
	for k := range All(d.Unwrap()) {
		d.add(k)
		n++
	}
	logDebug(d.logger, "kvdoc: built case-insensitive index", slog.String("locale", d.folder.locale.String()), slog.Int("pairs", n), slog.Int("folds", len(d.index)))
}

// Replace swaps the wrapped document and rebuilds the index.
func (d *CIDocument) Replace(doc Document) {
	d.Envelope = NewEnvelope(doc)
	d.Reindex()
}

// Lookup returns the first stored casing of key.
func (d *CIDocument) Lookup(key string) (string, bool) {
	e := d.index[d.folder.fold(key)]
	if e == nil {
		return "", false
	}
	return e.casings[0], true
}

// IndexKeys returns the folded keys currently in the index, sorted.
func (d *CIDocument) IndexKeys() []string {
	keys := make([]string, 0, len(d.index))
	for k := range d.index {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (d *CIDocument) add(key string) {
	f := d.folder.fold(key)
	e := d.index[f]
	if e == nil {
		e = &foldEntry{counts: make(map[string]int)}
		d.index[f] = e
	}
	if e.counts[key] == 0 {
		e.casings = append(e.casings, key)
	}
	e.counts[key]++
}

func (d *CIDocument) remove(key string) {
	f := d.folder.fold(key)
	e := d.index[f]
	if e == nil || e.counts[key] == 0 {
		logDebug(d.logger, "kvdoc: removing unindexed key", slog.String("key", key))
		return
	}
	e.counts[key]--
	if e.counts[key] == 0 {
		delete(e.counts, key)
		e.casings, _ = removeString(e.casings, key)
		if len(e.casings) == 0 {
			delete(d.index, f)
		}
	}
}

// count is the number of indexed pairs stored under exactly key.
func (d *CIDocument) count(key string) int {
	if e := d.index[d.folder.fold(key)]; e != nil {
		return e.counts[key]
	}
	return 0
}

// recount brings the count of key in line with the wrapped document.
// Documents with unique keys overwrite on insert, so a key that is already
// indexed may or may not have gained a pair.
func (d *CIDocument) recount(key string) {
	var n int
	for k := range All(d.Unwrap()) {
		if k == key {
			n++
		}
	}
	for d.count(key) > n {
		d.remove(key)
	}
	for d.count(key) < n {
		d.add(key)
	}
}

// insert indexes a key that has just been stored.
func (d *CIDocument) insert(key string) {
	if d.count(key) == 0 {
		d.add(key)
	} else {
		d.recount(key)
	}
}

func (d *CIDocument) apply(chg Change) {
	switch chg.op {
	case OpInsert:
		d.insert(chg.key)
	case OpDelete:
		d.remove(chg.key)
	case OpRename:
		d.remove(chg.oldKey)
		d.insert(chg.key)
	}
	if d.onChange != nil {
		d.onChange(chg)
	}
}

func (d *CIDocument) casings(key string) []string {
	e := d.index[d.folder.fold(key)]
	if e == nil {
		return nil
	}
	return e.casings
}

// wrapValue extends case-insensitivity to nested documents.
func (d *CIDocument) wrapValue(v any) any {
	switch v := v.(type) {
	case Document:
		if isNil(v) {
			return v
		}
		return NewCaseInsensitive(v, d.nestedOptions())
	case []Document:
		return CaseInsensitiveAll(v, d.nestedOptions())
	default:
		return v
	}
}

func (d *CIDocument) Cursor() Cursor {
	return &ciCursor{NewEnvelopeCursor(d.Unwrap().Cursor()), d}
}

// ciCursor keeps the overlay's index in sync with mutations and translates
// keys for key-filtered navigation.
type ciCursor struct {
	*EnvelopeCursor
	d *CIDocument
}

func (c *ciCursor) Value() any {
	return c.d.wrapValue(c.Cursor.Value())
}

func (c *ciCursor) SetKey(key string) error {
	if !c.Cursor.Positioned() {
		return ErrNotPositioned
	}
	old := c.Cursor.Key()
	if err := c.Cursor.SetKey(key); err != nil {
		return err
	}
	if old != key {
		c.d.apply(renameChange(old, key))
	}
	return nil
}

func (c *ciCursor) Delete() bool {
	if !c.Cursor.Positioned() {
		return false
	}
	key := c.Cursor.Key()
	if !c.Cursor.Delete() {
		return false
	}
	c.d.apply(deleteChange(key))
	return true
}

func (c *ciCursor) InsertBefore(key string, value any) error {
	if err := c.Cursor.InsertBefore(key, value); err != nil {
		return err
	}
	c.d.apply(insertChange(key))
	return nil
}

func (c *ciCursor) InsertAfter(key string, value any) error {
	if err := c.Cursor.InsertAfter(key, value); err != nil {
		return err
	}
	c.d.apply(insertChange(key))
	return nil
}

func (c *ciCursor) InsertDocumentBefore(key string) (Document, error) {
	doc, err := c.Cursor.InsertDocumentBefore(key)
	if err != nil {
		return nil, err
	}
	c.d.apply(insertChange(key))
	return NewCaseInsensitive(doc, c.d.nestedOptions()), nil
}

func (c *ciCursor) InsertDocumentAfter(key string) (Document, error) {
	doc, err := c.Cursor.InsertDocumentAfter(key)
	if err != nil {
		return nil, err
	}
	c.d.apply(insertChange(key))
	return NewCaseInsensitive(doc, c.d.nestedOptions()), nil
}

func (c *ciCursor) matches(f string) bool {
	return c.d.folder.fold(c.Cursor.Key()) == f
}

func (c *ciCursor) scan(f string, step func() bool) bool {
	for step() {
		if c.matches(f) {
			return true
		}
	}
	return false
}

// Key-filtered navigation delegates with the stored casing when the key has
// exactly one; with several casings it has to compare folded keys while
// stepping.

func (c *ciCursor) FirstKey(key string) bool {
	switch cs := c.d.casings(key); len(cs) {
	case 0:
		c.Cursor.Reset()
		return false
	case 1:
		return c.Cursor.FirstKey(cs[0])
	default:
		c.Cursor.Reset()
		return c.scan(c.d.folder.fold(key), c.Cursor.Next)
	}
}

func (c *ciCursor) LastKey(key string) bool {
	switch cs := c.d.casings(key); len(cs) {
	case 0:
		c.Cursor.Reset()
		return false
	case 1:
		return c.Cursor.LastKey(cs[0])
	default:
		c.Cursor.Reset()
		return c.scan(c.d.folder.fold(key), c.Cursor.Prev)
	}
}

func (c *ciCursor) NextKey(key string) bool {
	switch cs := c.d.casings(key); len(cs) {
	case 0:
		c.Cursor.Reset()
		return false
	case 1:
		return c.Cursor.NextKey(cs[0])
	default:
		return c.scan(c.d.folder.fold(key), c.Cursor.Next)
	}
}

func (c *ciCursor) PrevKey(key string) bool {
	switch cs := c.d.casings(key); len(cs) {
	case 0:
		c.Cursor.Reset()
		return false
	case 1:
		return c.Cursor.PrevKey(cs[0])
	default:
		return c.scan(c.d.folder.fold(key), c.Cursor.Prev)
	}
}

func (c *ciCursor) Clone() Cursor {
	return &ciCursor{&EnvelopeCursor{c.Cursor.Clone()}, c.d}
}
