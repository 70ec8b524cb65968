package kvdoc

import (
	"cmp"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// ValueType says how a criterion interprets the values it compares.
type ValueType int

const (
	TypeString ValueType = iota
	TypeInteger
	TypeDecimal
	TypeDateTime
	TypeDuration
)

var valueTypeNames = [...]string{
	TypeString:   "string",
	TypeInteger:  "integer",
	TypeDecimal:  "decimal",
	TypeDateTime: "datetime",
	TypeDuration: "duration",
}

func (t ValueType) String() string {
	if t >= 0 && int(t) < len(valueTypeNames) {
		return valueTypeNames[t]
	}
	return fmt.Sprintf("ValueType(%d)", int(t))
}

func (t ValueType) valid() bool {
	return t >= 0 && int(t) < len(valueTypeNames)
}

// ParseValueType accepts the names returned by ValueType.String and a few
// common synonyms.
func ParseValueType(s string) (ValueType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "string", "str", "text":
		return TypeString, nil
	case "integer", "int", "long":
		return TypeInteger, nil
	case "decimal", "number", "numeric":
		return TypeDecimal, nil
	case "datetime", "date", "time", "timestamp":
		return TypeDateTime, nil
	case "duration":
		return TypeDuration, nil
	}
	return 0, fmt.Errorf("unknown value type %q", s)
}

// Criterion is one sort key of a CriteriaComparator.
type Criterion struct {
	Key     string
	Aliases []string // alternative keys; the first pair matching Key or any alias wins
	Type    ValueType

	// Pattern is the date-time pattern for TypeDateTime, either a Go layout
	// or a pattern like "yyyy-MM-dd HH:mm". Ignored for other types.
	Pattern string

	Descending bool
}

func Asc(key string, typ ValueType) Criterion {
	return Criterion{Key: key, Type: typ}
}

func Desc(key string, typ ValueType) Criterion {
	return Criterion{Key: key, Type: typ, Descending: true}
}

func (c Criterion) String() string {
	var buf strings.Builder
	buf.WriteString(c.Key)
	for _, a := range c.Aliases {
		buf.WriteByte('|')
		buf.WriteString(a)
	}
	buf.WriteByte(':')
	buf.WriteString(c.Type.String())
	if c.Descending {
		buf.WriteString(":desc")
	} else {
		buf.WriteString(":asc")
	}
	if c.Pattern != "" {
		buf.WriteByte(':')
		buf.WriteString(c.Pattern)
	}
	return buf.String()
}

type CompareOptions struct {
	// CaseInsensitiveKeys matches criterion keys and aliases against document
	// keys case-insensitively under Locale.
	CaseInsensitiveKeys bool
	Locale              language.Tag

	// Logger, if set, receives debug messages for values that fail to
	// convert to a criterion's type.
	Logger *slog.Logger
}

// CriteriaComparator orders documents by a list of criteria. The first
// criterion that tells two documents apart decides. For each criterion:
//
//   - if both values are missing or nil, the next criterion is consulted;
//   - if one is, it sorts first (last when Descending);
//   - otherwise the values are converted to the criterion's type and
//     compared; a value that fails to convert sorts after one that does, and
//     two failures tie.
//
// Nil documents sort before all others regardless of direction, the same
// as in the default ordering.
//
// A CriteriaComparator is immutable and safe for concurrent use.
type CriteriaComparator struct {
	criteria []compiledCriterion
	logger   *slog.Logger
}

type compiledCriterion struct {
	Criterion
	pos    int
	match  Entry[string, int]
	simple bool           // exact matching with no aliases
	format dateTimeFormat // TypeDateTime only
}

// NewCriteriaComparator validates and compiles criteria. It fails with
// ErrNoCriteria if none are given, and with a *CriterionError for a
// criterion with an empty key, an unknown type or a bad pattern.
func NewCriteriaComparator(opt CompareOptions, criteria ...Criterion) (*CriteriaComparator, error) {
	if len(criteria) == 0 {
		return nil, ErrNoCriteria
	}
	eopt := ElementOptions{CaseInsensitive: opt.CaseInsensitiveKeys, Locale: opt.Locale}
	cc := &CriteriaComparator{
		criteria: make([]compiledCriterion, len(criteria)),
		logger:   opt.Logger,
	}
	for i, c := range criteria {
		if c.Key == "" {
			return nil, criterionErrf(i, "", nil, "empty key")
		}
		if !c.Type.valid() {
			return nil, criterionErrf(i, c.Key, nil, "unknown type %v", c.Type)
		}
		for _, a := range c.Aliases {
			if a == "" {
				return nil, criterionErrf(i, c.Key, nil, "empty alias")
			}
		}
		cc.criteria[i] = compiledCriterion{
			Criterion: c,
			pos:       i,
			match:     Normalize(Entry[string, int](NewElement(c.Key, i, c.Aliases...)), eopt),
			simple:    !opt.CaseInsensitiveKeys && len(c.Aliases) == 0,
		}
		if c.Type == TypeDateTime {
			format, err := compileDateTimePattern(c.Pattern)
			if err != nil {
				return nil, criterionErrf(i, c.Key, err, "invalid pattern")
			}
			cc.criteria[i].format = format
		}
	}
	return cc, nil
}

// MustCriteriaComparator is NewCriteriaComparator that panics on error.
func MustCriteriaComparator(opt CompareOptions, criteria ...Criterion) *CriteriaComparator {
	return must(NewCriteriaComparator(opt, criteria...))
}

func (cc *CriteriaComparator) Criteria() []Criterion {
	result := make([]Criterion, len(cc.criteria))
	for i, c := range cc.criteria {
		result[i] = c.Criterion
	}
	return result
}

func (cc *CriteriaComparator) Compare(a, b Document) int {
	an, bn := isNil(a), isNil(b)
	switch {
	case an && bn:
		return 0
	case an:
		return -1
	case bn:
		return 1
	}
	for i := range cc.criteria {
		c := &cc.criteria[i]
		va, vb := c.extract(a), c.extract(b)
		an, bn := isNil(va), isNil(vb)
		if an && bn {
			continue
		}
		var r int
		switch {
		case an:
			r = -1
		case bn:
			r = 1
		default:
			r = cc.compareTyped(c, va, vb)
		}
		if c.Descending {
			r = -r
		}
		if r != 0 {
			return r
		}
	}
	return 0
}

// extract returns the value of the first pair whose key matches c, in
// document order.
func (c *compiledCriterion) extract(doc Document) any {
	if c.simple {
		v, _ := Get(doc, c.Key)
		return v
	}
	for k, v := range All(doc) {
		if c.match.KeyEquals(k) {
			return v
		}
	}
	return nil
}

func (cc *CriteriaComparator) compareTyped(c *compiledCriterion, a, b any) int {
	switch c.Type {
	case TypeInteger:
		x, errA := toBigInt(a)
		y, errB := toBigInt(b)
		return cc.compareConverted(c, a, b, errA, errB, func() int { return x.Cmp(y) })
	case TypeDecimal:
		x, errA := toDecimal(a)
		y, errB := toDecimal(b)
		return cc.compareConverted(c, a, b, errA, errB, func() int { return x.Cmp(y) })
	case TypeDateTime:
		x, errA := toTime(a, c.format)
		y, errB := toTime(b, c.format)
		return cc.compareConverted(c, a, b, errA, errB, func() int { return x.Compare(y) })
	case TypeDuration:
		x, errA := toDuration(a)
		y, errB := toDuration(b)
		return cc.compareConverted(c, a, b, errA, errB, func() int { return cmp.Compare(x.Milliseconds(), y.Milliseconds()) })
	default:
		return strings.Compare(stringOf(a), stringOf(b))
	}
}

func (cc *CriteriaComparator) compareConverted(c *compiledCriterion, a, b any, errA, errB error, compare func() int) int {
	if errA != nil {
		cc.logConversion(c, a, errA)
	}
	if errB != nil {
		cc.logConversion(c, b, errB)
	}
	switch {
	case errA == nil && errB == nil:
		return compare()
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	default:
		return 0
	}
}

func (cc *CriteriaComparator) logConversion(c *compiledCriterion, v any, err error) {
	logDebug(cc.logger, "kvdoc: criterion value not convertible",
		slog.Int("criterion", c.pos), slog.String("key", c.Key), slog.String("type", c.Type.String()),
		slog.String("value", fmt.Sprint(v)), slog.Any("err", err))
}

func stringOf(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(v)
}

func toBigInt(v any) (*big.Int, error) {
	switch v := v.(type) {
	case *big.Int:
		return v, nil
	case *big.Rat:
		if v.IsInt() {
			return v.Num(), nil
		}
		return nil, fmt.Errorf("%v is not an integer", v)
	case *big.Float:
		if i, acc := v.Int(nil); acc == big.Exact {
			return i, nil
		}
		return nil, fmt.Errorf("%v is not an integer", v)
	}
	rv := reflect.ValueOf(v)
	switch numberKind(rv) {
	case 'i':
		return big.NewInt(rv.Int()), nil
	case 'u':
		return new(big.Int).SetUint64(rv.Uint()), nil
	case 'f':
		f := rv.Float()
		if f != math.Trunc(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%v is not an integer", f)
		}
		i, _ := big.NewFloat(f).Int(nil)
		return i, nil
	}
	s := strings.TrimSpace(stringOf(v))
	i, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	return i, nil
}

func toDecimal(v any) (*big.Rat, error) {
	switch v.(type) {
	case *big.Int, *big.Rat, *big.Float:
		if r, ok := toRat(v); ok {
			return r, nil
		}
		return nil, fmt.Errorf("%v is not finite", v)
	}
	if numberKind(reflect.ValueOf(v)) != 'b' {
		if r, ok := toRat(v); ok {
			return r, nil
		}
		return nil, fmt.Errorf("%v is not finite", v)
	}
	s := strings.TrimSpace(stringOf(v))
	if strings.ContainsRune(s, '/') {
		return nil, fmt.Errorf("invalid decimal %q", s)
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, fmt.Errorf("invalid decimal %q", s)
	}
	return r, nil
}

func toTime(v any, format dateTimeFormat) (time.Time, error) {
	switch v := v.(type) {
	case time.Time:
		return v, nil
	case *time.Time:
		return *v, nil
	}
	return format.parse(stringOf(v))
}

// toDuration reads integers as milliseconds.
func toDuration(v any) (time.Duration, error) {
	switch v := v.(type) {
	case time.Duration:
		return v, nil
	case string:
		return ParseDuration(v)
	}
	rv := reflect.ValueOf(v)
	switch numberKind(rv) {
	case 'i':
		return time.Duration(rv.Int()) * time.Millisecond, nil
	case 'u':
		return time.Duration(rv.Uint()) * time.Millisecond, nil
	case 'f':
		return time.Duration(rv.Float() * float64(time.Millisecond)), nil
	}
	return ParseDuration(stringOf(v))
}

// ParseCriteria parses a comma-separated list of criteria of the form
//
//	key[|alias...][:type[:asc|desc[:pattern]]]
//
// for example "age:integer:desc, created:datetime:asc:yyyy-MM-dd, name".
// The pattern runs to the end of the item and may contain colons.
func ParseCriteria(s string) ([]Criterion, error) {
	var result []Criterion
	for i, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			return nil, criterionErrf(i, "", nil, "empty criterion")
		}
		parts := strings.SplitN(item, ":", 4)
		names := strings.Split(parts[0], "|")
		for j := range names {
			names[j] = strings.TrimSpace(names[j])
		}
		c := Criterion{Key: names[0], Aliases: names[1:]}
		if len(c.Aliases) == 0 {
			c.Aliases = nil
		}
		if c.Key == "" {
			return nil, criterionErrf(i, "", nil, "empty key")
		}
		if len(parts) > 1 {
			t, err := ParseValueType(parts[1])
			if err != nil {
				return nil, criterionErrf(i, c.Key, err, "")
			}
			c.Type = t
		}
		if len(parts) > 2 {
			switch strings.ToLower(strings.TrimSpace(parts[2])) {
			case "", "asc", "ascending":
			case "desc", "descending":
				c.Descending = true
			default:
				return nil, criterionErrf(i, c.Key, nil, "invalid direction %s", strconv.Quote(parts[2]))
			}
		}
		if len(parts) > 3 {
			c.Pattern = strings.TrimSpace(parts[3])
		}
		result = append(result, c)
	}
	return result, nil
}
