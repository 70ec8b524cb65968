package kvdoc

import (
	"fmt"
	"strings"
)

type DumpFlags uint64

const (
	// DumpMultiline puts every pair on its own line, indenting nested
	// documents.
	DumpMultiline = DumpFlags(1 << iota)

	// DumpTypes appends the Go type of every scalar value.
	DumpTypes

	DumpAll = DumpFlags(0xFFFFFFFFFFFFFFFF)

	indentStep = "  "
)

func (f DumpFlags) Contains(v DumpFlags) bool {
	return (f & v) == v
}

// Dump formats doc for debugging and test failure messages. Strings are
// quoted and nested documents are dumped recursively, so two documents that
// DefaultComparator considers equal dump identically unless they hold
// values it only tells apart by identity.
func Dump(doc Document, f DumpFlags) string {
	var buf strings.Builder
	dumpDoc(&buf, "", f, doc)
	return buf.String()
}

func (l *List) String() string {
	return Dump(l, 0)
}

func dumpDoc(w *strings.Builder, indent string, f DumpFlags, doc Document) {
	if isNil(doc) {
		w.WriteString("<nil>")
		return
	}
	multiline := f.Contains(DumpMultiline)
	inner := indent + indentStep
	w.WriteByte('{')
	var n int
	for k, v := range All(doc) {
		if multiline {
			w.WriteByte('\n')
			w.WriteString(inner)
		} else if n > 0 {
			w.WriteString(", ")
		}
		fmt.Fprintf(w, "%q: ", k)
		dumpValue(w, inner, f, v)
		n++
	}
	if multiline && n > 0 {
		w.WriteByte('\n')
		w.WriteString(indent)
	}
	w.WriteByte('}')
}

func dumpValue(w *strings.Builder, indent string, f DumpFlags, v any) {
	v = documentForm(v)
	if isNil(v) {
		w.WriteString("null")
		return
	}
	switch v := v.(type) {
	case Document:
		dumpDoc(w, indent, f, v)
	case []Document:
		w.WriteByte('[')
		for i, d := range v {
			if i > 0 {
				w.WriteString(", ")
			}
			dumpDoc(w, indent, f, d)
		}
		w.WriteByte(']')
	case []any:
		w.WriteByte('[')
		for i, e := range v {
			if i > 0 {
				w.WriteString(", ")
			}
			dumpValue(w, indent, f, e)
		}
		w.WriteByte(']')
	case string:
		fmt.Fprintf(w, "%q", v)
	default:
		fmt.Fprintf(w, "%v", v)
		if f.Contains(DumpTypes) {
			fmt.Fprintf(w, " (%T)", v)
		}
	}
}
