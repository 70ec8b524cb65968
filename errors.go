package kvdoc

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotPositioned is returned by cursor writes when the cursor does not
	// point at a pair.
	ErrNotPositioned = errors.New("cursor not positioned")

	// ErrUnsupported signals that a document or cursor cannot perform the
	// requested operation at all, as opposed to a navigation miss.
	ErrUnsupported = errors.New("operation not supported")

	ErrNoCriteria  = errors.New("at least one comparison criterion required")
	ErrNilDocument = errors.New("nil document")
	ErrNilCursor   = errors.New("nil cursor")

	// ErrKeyNotFound is returned by backings that report missing keys as errors.
	ErrKeyNotFound = errors.New("key not found")
)

// DataError reports stored bytes that could not be decoded into a value.
type DataError struct {
	Data []byte
	Off  int
	Err  error
	Msg  string
}

func dataErrf(data []byte, off int, err error, format string, args ...any) error {
	return &DataError{data, off, err, fmt.Sprintf(format, args...)}
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func (e *DataError) Error() string {
	const prefixLen = 64
	const suffixLen = 32
	n := len(e.Data)
	if n <= prefixLen+suffixLen {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v: (%d) %x", e.Msg, e.Err, n, e.Data)
		} else {
			return fmt.Sprintf("%s: (%d) %x", e.Msg, n, e.Data)
		}
	} else {
		p, s := e.Data[:prefixLen], e.Data[n-suffixLen:]
		if e.Err != nil {
			return fmt.Sprintf("%s: %v: (%d) %x...%x", e.Msg, e.Err, n, p, s)
		} else {
			return fmt.Sprintf("%s: (%d) %x...%x", e.Msg, n, p, s)
		}
	}
}

// CriterionError reports an invalid comparison criterion.
type CriterionError struct {
	Pos int // zero-based position in the criteria list, -1 if unknown
	Key string
	Msg string
	Err error
}

func criterionErrf(pos int, key string, err error, format string, args ...any) error {
	return &CriterionError{pos, key, fmt.Sprintf(format, args...), err}
}

func (e *CriterionError) Unwrap() error {
	return e.Err
}

func (e *CriterionError) Error() string {
	var buf strings.Builder
	buf.WriteString("criterion")
	if e.Pos >= 0 {
		fmt.Fprintf(&buf, " #%d", e.Pos+1)
	}
	if e.Key != "" {
		fmt.Fprintf(&buf, " %q", e.Key)
	}
	if e.Msg != "" {
		buf.WriteString(": ")
		buf.WriteString(e.Msg)
	}
	if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}
