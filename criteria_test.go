package kvdoc

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"golang.org/x/text/language"
)

func TestNewCriteriaComparator_Errors(t *testing.T) {
	if _, err := NewCriteriaComparator(CompareOptions{}); !errors.Is(err, ErrNoCriteria) {
		t.Fatalf("no criteria: err = %v, wanted ErrNoCriteria", err)
	}

	tests := []struct {
		criteria []Criterion
		pos      int
		msg      string
	}{
		{[]Criterion{Asc("a", TypeString), {Type: TypeInteger}}, 1, "empty key"},
		{[]Criterion{{Key: "a", Type: ValueType(42)}}, 0, "unknown type"},
		{[]Criterion{{Key: "a", Aliases: []string{"b", ""}}}, 0, "empty alias"},
		{[]Criterion{{Key: "a", Type: TypeDateTime, Pattern: "yyyy-MM-dd 'T"}}, 0, "invalid pattern"},
		{[]Criterion{{Key: "a", Type: TypeDateTime, Pattern: "yyyy 'Jan' dd"}}, 0, "invalid pattern"},
	}
	for _, tt := range tests {
		_, err := NewCriteriaComparator(CompareOptions{}, tt.criteria...)
		var ce *CriterionError
		if !errors.As(err, &ce) {
			t.Errorf("%v: err = %v, wanted *CriterionError", tt.criteria, err)
			continue
		}
		if ce.Pos != tt.pos || !strings.Contains(ce.Error(), tt.msg) {
			t.Errorf("%v: err = %v at #%d, wanted %q at #%d", tt.criteria, err, ce.Pos, tt.msg, tt.pos)
		}
	}
	assertPanics(t, func() { MustCriteriaComparator(CompareOptions{}) })
}

func valueDocs(values ...any) []Document {
	result := make([]Document, len(values))
	for i, v := range values {
		if v != nil {
			result[i] = NewListOf(P("v", v))
		} else {
			result[i] = NewList()
		}
	}
	return result
}

func docValues(docs []Document) []any {
	var result []any
	for _, doc := range docs {
		v, _ := Get(doc, "v")
		result = append(result, v)
	}
	return result
}

func sortedValues(t testing.TB, c Criterion, in ...any) []any {
	t.Helper()
	d := valueDocs(in...)
	Sort(d, MustCriteriaComparator(CompareOptions{}, c))
	return docValues(d)
}

func TestCriteriaComparator_IntegerVersusString(t *testing.T) {
	deepEqual(t, sortedValues(t, Asc("v", TypeInteger), "10", "2", "-3"), []any{"-3", "2", "10"})
	deepEqual(t, sortedValues(t, Asc("v", TypeString), "10", "2", "-3"), []any{"-3", "10", "2"})
	deepEqual(t, sortedValues(t, Desc("v", TypeInteger), 2, "10", 3.0), []any{"10", 3.0, 2})

	// values beyond int64
	deepEqual(t, sortedValues(t, Asc("v", TypeInteger), "99999999999999999999", "100000000000000000000", 5),
		[]any{5, "99999999999999999999", "100000000000000000000"})
}

func TestCriteriaComparator_Missing(t *testing.T) {
	deepEqual(t, sortedValues(t, Asc("v", TypeInteger), 3, nil, 1), []any{nil, 1, 3})
	deepEqual(t, sortedValues(t, Desc("v", TypeInteger), 3, nil, 1), []any{3, 1, nil})

	cc := MustCriteriaComparator(CompareOptions{}, Asc("v", TypeInteger))
	if cc.Compare(NewListOf(P("v", nil)), NewList()) != 0 {
		t.Fatalf("a nil value must equal a missing key")
	}
}

func TestCriteriaComparator_NilDocuments(t *testing.T) {
	for _, cc := range []*CriteriaComparator{
		MustCriteriaComparator(CompareOptions{}, Asc("v", TypeInteger)),
		MustCriteriaComparator(CompareOptions{}, Desc("v", TypeInteger)),
	} {
		if r := cc.Compare(nil, nil); r != 0 {
			t.Errorf("Compare(nil, nil) = %d, wanted 0", r)
		}
		for _, doc := range []Document{NewList(), NewListOf(P("v", 1)), NewListOf(P("w", 1))} {
			if r := cc.Compare(nil, doc); r != -1 {
				t.Errorf("Compare(nil, %v) = %d, wanted -1", doc, r)
			}
			if r := cc.Compare(doc, nil); r != 1 {
				t.Errorf("Compare(%v, nil) = %d, wanted 1", doc, r)
			}
		}
	}

	byV := MustCriteriaComparator(CompareOptions{}, Asc("v", TypeInteger))
	docs := []Document{NewList(), nil, NewListOf(P("v", 1)), nil}
	Sort(docs, byV)
	if docs[0] != nil || docs[1] != nil || isNil(docs[2]) || isNil(docs[3]) {
		t.Fatalf("sorted = %v, wanted nil documents first", docs)
	}
	if got := Dedup(docs, byV); len(got) != 3 {
		t.Fatalf("Dedup kept %d documents, wanted 3", len(got))
	}
}

func TestCriteriaComparator_Unconvertible(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	cc := MustCriteriaComparator(CompareOptions{Logger: logger}, Asc("v", TypeInteger))

	d := valueDocs("x", 2, "y", 1)
	Sort(d, cc)
	deepEqual(t, docValues(d), []any{1, 2, "x", "y"})
	if cc.Compare(NewListOf(P("v", "x")), NewListOf(P("v", "y"))) != 0 {
		t.Fatalf("two unconvertible values must tie")
	}
	if !strings.Contains(buf.String(), "not convertible") || !strings.Contains(buf.String(), "key=v") {
		t.Fatalf("log output = %q, wanted a conversion message", buf.String())
	}

	// descending flips the whole result, so failures come first; 1.5 is not an integer
	deepEqual(t, sortedValues(t, Desc("v", TypeInteger), "x", 2, 1.5), []any{"x", 1.5, 2})
}

func TestCriteriaComparator_ShortCircuit(t *testing.T) {
	people := []Document{
		NewListOf(P("name", "cid"), P("age", 30)),
		NewListOf(P("name", "bob"), P("age", 25)),
		NewListOf(P("name", "amy"), P("age", 30)),
		NewListOf(P("name", "dan")),
	}
	ensure(SortBy(people, Desc("age", TypeInteger), Asc("name", TypeString)))
	var names []any
	for _, p := range people {
		names = append(names, getValue(t, p, "name"))
	}
	deepEqual(t, names, []any{"amy", "cid", "bob", "dan"})

	if err := SortBy(people); !errors.Is(err, ErrNoCriteria) {
		t.Fatalf("SortBy() = %v, wanted ErrNoCriteria", err)
	}
}

func TestCriteriaComparator_Decimal(t *testing.T) {
	deepEqual(t, sortedValues(t, Asc("v", TypeDecimal), "1.50", 1.25, "1e1", "-0.5", 2),
		[]any{"-0.5", 1.25, "1.50", 2, "1e1"})

	cc := MustCriteriaComparator(CompareOptions{}, Asc("v", TypeDecimal))
	if cc.Compare(NewListOf(P("v", "1/2")), NewListOf(P("v", 100))) != 1 {
		t.Fatalf("fractions must not parse as decimals")
	}
	if cc.Compare(NewListOf(P("v", "0.10")), NewListOf(P("v", "0.1"))) != 0 {
		t.Fatalf("0.10 != 0.1")
	}
}

func TestCriteriaComparator_DateTime(t *testing.T) {
	deepEqual(t, sortedValues(t, Asc("v", TypeDateTime),
		"2024-03-01T10:00:00Z", "2024-03-01T11:00:00+02:00", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		[]any{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "2024-03-01T11:00:00+02:00", "2024-03-01T10:00:00Z"})

	c := Criterion{Key: "v", Type: TypeDateTime, Pattern: "dd.MM.yyyy HH:mm"}
	deepEqual(t, sortedValues(t, c, "02.01.2024 10:00", "01.02.2023 09:30", "31.12.2023 23:59"),
		[]any{"01.02.2023 09:30", "31.12.2023 23:59", "02.01.2024 10:00"})

	goLayout := Criterion{Key: "v", Type: TypeDateTime, Pattern: "Jan 2, 2006"}
	deepEqual(t, sortedValues(t, goLayout, "Mar 1, 2024", "Feb 29, 2024"), []any{"Feb 29, 2024", "Mar 1, 2024"})
}

func TestParseDateTime(t *testing.T) {
	tests := []struct {
		pattern, value string
		want           time.Time
	}{
		{"", "2024-03-01T10:00:00Z", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		{"2006-01-02", "2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"dd.MM.yyyy HH:mm", "02.01.2024 10:30", time.Date(2024, 1, 2, 10, 30, 0, 0, time.UTC)},
		{"yyyy/MM/dd", " 2023/12/31 ", time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)},
		{"HH:mm:ss dd-MM-yyyy", "23:59:01 15-06-2022", time.Date(2022, 6, 15, 23, 59, 1, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseDateTime(tt.pattern, tt.value)
		if err != nil {
			t.Errorf("ParseDateTime(%q, %q) failed: %v", tt.pattern, tt.value, err)
		} else if !got.Equal(tt.want) {
			t.Errorf("ParseDateTime(%q, %q) = %v, wanted %v", tt.pattern, tt.value, got, tt.want)
		}
	}

	if _, err := ParseDateTime("dd.MM.yyyy", "2024-01-02"); err == nil {
		t.Errorf("ParseDateTime accepted a value in another format")
	}
	for _, bad := range []string{"yyyy 'unterminated", "yyyy 'Jan' dd", "HH 'h5'", "yyyy-1-dd", "dd 'PM'"} {
		if _, err := ParseDateTime(bad, "x"); err == nil || !strings.Contains(err.Error(), "pattern") {
			t.Errorf("ParseDateTime(%q) err = %v, wanted a pattern error", bad, err)
		}
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"1h30m", 90 * time.Minute},
		{"PT1H30M", 90 * time.Minute},
		{"P1D", 24 * time.Hour},
		{"P1W", 168 * time.Hour},
		{"P1DT2H", 26 * time.Hour},
		{"PT0.5S", 500 * time.Millisecond},
		{"PT1,5S", 1500 * time.Millisecond},
		{"-PT15M", -15 * time.Minute},
		{" p1dt1m ", 24*time.Hour + time.Minute},
		{"+PT1S", time.Second},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		if err != nil {
			t.Errorf("ParseDuration(%q) failed: %v", tt.in, err)
		} else if got != tt.want {
			t.Errorf("ParseDuration(%q) = %v, wanted %v", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "P", "PT", "P1M", "P1Y", "P1Y2D", "P1DT", "P1", "1 hour"} {
		if d, err := ParseDuration(bad); err == nil {
			t.Errorf("ParseDuration(%q) = %v, wanted error", bad, d)
		}
	}
}

func TestCriteriaComparator_Duration(t *testing.T) {
	cc := MustCriteriaComparator(CompareOptions{}, Asc("v", TypeDuration))
	eq := func(a, b any) {
		t.Helper()
		if got := cc.Compare(NewListOf(P("v", a)), NewListOf(P("v", b))); got != 0 {
			t.Errorf("Compare(%v, %v) = %d, wanted 0", a, b, got)
		}
	}
	eq("PT1H30M", "1h30m")
	eq(1500, "1.5s")
	eq(90*time.Minute, "PT90M")
	eq("1ms", "1.4ms") // compared at millisecond precision

	deepEqual(t, sortedValues(t, Asc("v", TypeDuration), "P1D", "PT2H", 60000, "P1M"),
		[]any{60000, "PT2H", "P1D", "P1M"})
}

func TestCriteriaComparator_CaseInsensitiveKeys(t *testing.T) {
	upper := NewListOf(P("AGE", 3))
	lower := NewListOf(P("age", 2))

	ci := MustCriteriaComparator(CompareOptions{CaseInsensitiveKeys: true}, Asc("age", TypeInteger))
	if got := ci.Compare(upper, lower); got <= 0 {
		t.Fatalf("case-insensitive Compare = %d, wanted > 0", got)
	}

	exact := MustCriteriaComparator(CompareOptions{}, Asc("age", TypeInteger))
	if got := exact.Compare(upper, lower); got >= 0 {
		t.Fatalf("exact Compare = %d, wanted < 0 since AGE is missing", got)
	}

	tr := MustCriteriaComparator(CompareOptions{CaseInsensitiveKeys: true, Locale: language.Turkish}, Asc("title", TypeString))
	if got := tr.Compare(NewListOf(P("TITLE", "b")), NewListOf(P("title", "a"))); got != -1 {
		t.Fatalf("Turkish Compare = %d, wanted -1 since TITLE is not title", got)
	}
}

func TestCriteriaComparator_Aliases(t *testing.T) {
	cc := MustCriteriaComparator(CompareOptions{}, Criterion{Key: "age", Aliases: []string{"years"}, Type: TypeInteger})
	a := NewListOf(P("years", 5))
	b := NewListOf(P("age", 4))
	if got := cc.Compare(a, b); got != 1 {
		t.Fatalf("Compare(years=5, age=4) = %d, wanted 1", got)
	}

	// the first matching pair in document order wins
	both := NewListOf(P("years", 1), P("age", 9))
	if got := cc.Compare(both, b); got != -1 {
		t.Fatalf("Compare(years=1 age=9, age=4) = %d, wanted -1", got)
	}

	deepEqual(t, cc.Criteria(), []Criterion{{Key: "age", Aliases: []string{"years"}, Type: TypeInteger}})
}

func TestParseCriteria(t *testing.T) {
	got, err := ParseCriteria("age:integer:desc, created|createdAt:datetime:asc:yyyy-MM-dd HH:mm, name")
	if err != nil {
		t.Fatal(err)
	}
	want := []Criterion{
		{Key: "age", Type: TypeInteger, Descending: true},
		{Key: "created", Aliases: []string{"createdAt"}, Type: TypeDateTime, Pattern: "yyyy-MM-dd HH:mm"},
		{Key: "name"},
	}
	deepEqual(t, got, want)

	var strs []string
	for _, c := range got {
		strs = append(strs, c.String())
	}
	deepEqual(t, strs, []string{"age:integer:desc", "created|createdAt:datetime:asc:yyyy-MM-dd HH:mm", "name:string:asc"})
	again := must(ParseCriteria(strings.Join(strs, ",")))
	deepEqual(t, again, want)

	for _, bad := range []string{"", "a,,b", ":integer", "a:money", "a:string:sideways"} {
		_, err := ParseCriteria(bad)
		var ce *CriterionError
		if !errors.As(err, &ce) {
			t.Errorf("ParseCriteria(%q) err = %v, wanted *CriterionError", bad, err)
		}
	}
}

func TestParseValueType(t *testing.T) {
	for in, want := range map[string]ValueType{
		"":          TypeString,
		"TEXT":      TypeString,
		"long":      TypeInteger,
		"Numeric":   TypeDecimal,
		"timestamp": TypeDateTime,
		"duration":  TypeDuration,
	} {
		if got, err := ParseValueType(in); err != nil || got != want {
			t.Errorf("ParseValueType(%q) = %v, %v, wanted %v", in, got, err, want)
		}
	}
	if _, err := ParseValueType("money"); err == nil {
		t.Errorf("ParseValueType(money) succeeded")
	}
	if s := ValueType(9).String(); s != "ValueType(9)" {
		t.Errorf("ValueType(9).String() = %q", s)
	}
}
