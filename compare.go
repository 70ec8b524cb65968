package kvdoc

import (
	"bytes"
	"cmp"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strings"
)

// Comparator orders documents. Nil documents are valid inputs.
type Comparator interface {
	Compare(a, b Document) int
}

type ComparatorFunc func(a, b Document) int

func (f ComparatorFunc) Compare(a, b Document) int {
	return f(a, b)
}

// DefaultComparator orders documents structurally:
//
//  1. nil sorts before everything else;
//  2. a document with fewer pairs sorts first;
//  3. otherwise pairs are compared in stored order, key first, then value
//     (see CompareValues), and the first difference wins.
//
// Rule 2 makes this a shortlex order rather than a purely lexicographic
// one: {"b": 1} sorts before {"a": 1, "a": 2}.
type DefaultComparator struct{}

var Default Comparator = DefaultComparator{}

func (DefaultComparator) Compare(a, b Document) int {
	return compareDocuments(a, b)
}

func compareDocuments(a, b Document) int {
	an, bn := isNil(a), isNil(b)
	switch {
	case an && bn:
		return 0
	case an:
		return -1
	case bn:
		return 1
	}
	pa, pb := Pairs(a), Pairs(b)
	if c := cmp.Compare(len(pa), len(pb)); c != 0 {
		return c
	}
	for i := range pa {
		if c := strings.Compare(pa[i].Key, pb[i].Key); c != 0 {
			return c
		}
		if c := CompareValues(pa[i].Value, pb[i].Value); c != 0 {
			return c
		}
	}
	return 0
}

// valueClass ranks kinds of values against each other so that values of
// different kinds still have a total order.
type valueClass int

const (
	classNil valueClass = iota
	classBool
	classNumber
	classString
	classBytes
	classOrdered // has Compare(T) int
	classDocument
	classDocArray
	classArray
	classOther
)

var (
	documentType  = reflect.TypeFor[Document]()
	bigIntType    = reflect.TypeFor[*big.Int]()
	bigRatType    = reflect.TypeFor[*big.Rat]()
	bigFloatType  = reflect.TypeFor[*big.Float]()
	byteSliceType = reflect.TypeFor[[]byte]()
)

// CompareValues is the value order used by DefaultComparator:
//
//   - nil first;
//   - documents (including Documenter values and map[string]any) compare
//     recursively, document slices element-wise, shorter first;
//   - other slices and arrays element-wise by the same rules, shorter first;
//   - numbers of any Go numeric type (and big.Int/Rat/Float) numerically,
//     strings, bools and byte slices naturally, and values with a
//     Compare(T) int method by that method;
//   - anything else, or values of different kinds, by a fallback that is
//     consistent within one process run but not across runs.
func CompareValues(a, b any) int {
	a, b = documentForm(a), documentForm(b)
	ca, cb := classify(a), classify(b)
	if ca != cb {
		return cmp.Compare(ca, cb)
	}
	switch ca {
	case classNil:
		return 0
	case classBool:
		return compareBools(reflect.ValueOf(a).Bool(), reflect.ValueOf(b).Bool())
	case classNumber:
		return compareNumbers(a, b)
	case classString:
		return strings.Compare(reflect.ValueOf(a).String(), reflect.ValueOf(b).String())
	case classBytes:
		return bytes.Compare(reflect.ValueOf(a).Bytes(), reflect.ValueOf(b).Bytes())
	case classOrdered:
		if reflect.TypeOf(a) == reflect.TypeOf(b) {
			return callCompare(a, b)
		}
		return compareIdentity(a, b)
	case classDocument:
		return compareDocuments(a.(Document), b.(Document))
	case classDocArray, classArray:
		return compareSequences(reflect.ValueOf(a), reflect.ValueOf(b))
	default:
		return compareIdentity(a, b)
	}
}

func documentForm(v any) any {
	switch v := v.(type) {
	case Document:
		return v
	case Documenter:
		return v.AsDocument()
	case map[string]any:
		if v == nil {
			return nil
		}
		return FromMap(v)
	default:
		return v
	}
}

func classify(v any) valueClass {
	if isNil(v) {
		return classNil
	}
	if _, ok := v.(Document); ok {
		return classDocument
	}
	rv := reflect.ValueOf(v)
	t := rv.Type()
	switch t {
	case bigIntType, bigRatType, bigFloatType:
		return classNumber
	case byteSliceType:
		return classBytes
	}
	switch t.Kind() {
	case reflect.Bool:
		return classBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		if !hasCompareMethod(t) {
			return classNumber
		}
	case reflect.String:
		if !hasCompareMethod(t) {
			return classString
		}
	case reflect.Slice, reflect.Array:
		if t.Elem().Implements(documentType) {
			return classDocArray
		}
		if t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 {
			return classBytes
		}
		return classArray
	}
	if hasCompareMethod(t) {
		return classOrdered
	}
	return classOther
}

func hasCompareMethod(t reflect.Type) bool {
	m, ok := t.MethodByName("Compare")
	if !ok {
		return false
	}
	mt := m.Type // includes the receiver
	return mt.NumIn() == 2 && mt.In(1) == t && mt.NumOut() == 1 && mt.Out(0).Kind() == reflect.Int
}

func callCompare(a, b any) int {
	out := reflect.ValueOf(a).MethodByName("Compare").Call([]reflect.Value{reflect.ValueOf(b)})
	return cmp.Compare(out[0].Int(), 0)
}

func compareBools(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

func compareSequences(a, b reflect.Value) int {
	n := min(a.Len(), b.Len())
	for i := range n {
		if c := CompareValues(a.Index(i).Interface(), b.Index(i).Interface()); c != 0 {
			return c
		}
	}
	return cmp.Compare(a.Len(), b.Len())
}

// compareNumbers avoids big.Rat when both sides fit a common Go type.
func compareNumbers(a, b any) int {
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	ka, kb := numberKind(ra), numberKind(rb)
	switch {
	case ka == 'i' && kb == 'i':
		return cmp.Compare(ra.Int(), rb.Int())
	case ka == 'u' && kb == 'u':
		return cmp.Compare(ra.Uint(), rb.Uint())
	case ka == 'f' && kb == 'f':
		return cmp.Compare(ra.Float(), rb.Float())
	}
	xa, oka := toRat(a)
	xb, okb := toRat(b)
	if oka && okb {
		return xa.Cmp(xb)
	}
	// NaN or an infinity on at least one side
	return cmp.Compare(toFloat(a), toFloat(b))
}

func numberKind(rv reflect.Value) byte {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return 'i'
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return 'u'
	case reflect.Float32, reflect.Float64:
		return 'f'
	default:
		return 'b'
	}
}

func toRat(v any) (*big.Rat, bool) {
	switch v := v.(type) {
	case *big.Int:
		return new(big.Rat).SetInt(v), true
	case *big.Rat:
		return v, true
	case *big.Float:
		if v.IsInf() {
			return nil, false
		}
		r, _ := v.Rat(nil)
		return r, true
	}
	rv := reflect.ValueOf(v)
	switch numberKind(rv) {
	case 'i':
		return new(big.Rat).SetInt64(rv.Int()), true
	case 'u':
		return new(big.Rat).SetInt(new(big.Int).SetUint64(rv.Uint())), true
	case 'f':
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, false
		}
		return new(big.Rat).SetFloat64(f), true
	}
	return nil, false
}

func toFloat(v any) float64 {
	switch v := v.(type) {
	case *big.Int:
		f, _ := new(big.Float).SetInt(v).Float64()
		return f
	case *big.Rat:
		f, _ := v.Float64()
		return f
	case *big.Float:
		f, _ := v.Float64()
		return f
	}
	rv := reflect.ValueOf(v)
	switch numberKind(rv) {
	case 'i':
		return float64(rv.Int())
	case 'u':
		return float64(rv.Uint())
	default:
		return rv.Float()
	}
}

// compareIdentity is the last resort: order by type name, then by address
// for reference types, then by the formatted value. Addresses make the
// result stable within a run only.
func compareIdentity(a, b any) int {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		if c := strings.Compare(ta.String(), tb.String()); c != 0 {
			return c
		}
		if c := strings.Compare(ta.PkgPath(), tb.PkgPath()); c != 0 {
			return c
		}
		if c := strings.Compare(fmt.Sprintf("%#v", a), fmt.Sprintf("%#v", b)); c != 0 {
			return c
		}
		// distinct types spelled the same, e.g. declared in different functions
		return cmp.Compare(reflect.ValueOf(ta).Pointer(), reflect.ValueOf(tb).Pointer())
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch ra.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer, reflect.Slice:
		return cmp.Compare(ra.Pointer(), rb.Pointer())
	}
	return strings.Compare(fmt.Sprintf("%#v", a), fmt.Sprintf("%#v", b))
}
