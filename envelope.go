package kvdoc

// Envelope wraps a document without copying it and delegates everything to
// it. It is the base for decorators: embed *Envelope and override Cursor.
//
// An Envelope never owns the wrapped document.
type Envelope struct {
	doc Document
}

// NewEnvelope wraps doc. It panics with ErrNilDocument if doc is nil.
func NewEnvelope(doc Document) *Envelope {
	if isNil(doc) {
		panic(ErrNilDocument)
	}
	return &Envelope{doc}
}

// WrapAll wraps every document of docs in an Envelope. Nil elements stay nil.
func WrapAll(docs []Document) []Document {
	if docs == nil {
		return nil
	}
	result := make([]Document, len(docs))
	for i, doc := range docs {
		if !isNil(doc) {
			result[i] = NewEnvelope(doc)
		}
	}
	return result
}

func (env *Envelope) Unwrap() Document {
	return env.doc
}

func (env *Envelope) Cursor() Cursor {
	return NewEnvelopeCursor(env.doc.Cursor())
}

// EnvelopeCursor delegates every call to the wrapped cursor. Decorating
// cursors embed it and override the calls they intercept.
type EnvelopeCursor struct {
	Cursor
}

// NewEnvelopeCursor wraps c. It panics with ErrNilCursor if c is nil.
func NewEnvelopeCursor(c Cursor) *EnvelopeCursor {
	if isNil(c) {
		panic(ErrNilCursor)
	}
	return &EnvelopeCursor{c}
}

func (c *EnvelopeCursor) Unwrap() Cursor {
	return c.Cursor
}

func (c *EnvelopeCursor) Clone() Cursor {
	return &EnvelopeCursor{c.Cursor.Clone()}
}
