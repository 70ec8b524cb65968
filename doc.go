/*
Package kvdoc implements ordered key-value documents accessed through
cursors, a case-insensitive key overlay, and configurable document ordering.

We implement:

1. Documents: ordered sequences of string-keyed pairs in which keys may
repeat. List is the in-memory implementation; MapDocument adapts any keyed
store (a Go map, a sync.Map, a Bolt bucket, a Badger key prefix) via the
Backing interface.

2. Cursors, the only way to read or modify a document. See Cursor for the
positioning rules.

3. Envelopes, which forward everything to another document and serve as the
base for decorators.

4. A case-insensitive overlay (CIDocument) that folds keys under a locale
and keeps the stored casing.

5. Elements: key-value pairs with alias keys, matched exactly or
case-insensitively.

6. Comparators: a structural DefaultComparator and a CriteriaComparator
driven by typed sort criteria.

# Technical Details

**Cursor positions.**
A cursor either points at a pair or is unpositioned. Misses unposition the
cursor and are not errors. Writes through an unpositioned cursor fail with
ErrNotPositioned; operations a document cannot do at all fail with
ErrUnsupported.

**Case folding.**
Keys are folded with the lower-case mapping of golang.org/x/text/cases for
the overlay's locale. The overlay's index maps each folded key to the stored
casings in first-seen order, with a count per casing.

## Binary encoding

Persistent backings store each value as a version byte followed by msgpack.
Documents are msgpack maps that keep pair order and duplicate keys; on
decode, maps come back as *List and arrays of maps as []Document.
Bolt and Badger backings store nested documents as nested buckets and
nested key prefixes respectively, so they can be edited in place.
*/
package kvdoc
