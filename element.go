package kvdoc

import (
	"slices"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Entry is a key-value pair whose key may match more than one spelling.
type Entry[K comparable, V any] interface {
	Key() K
	Value() V
	KeyEquals(candidate K) bool
}

// aliased is implemented by entries that carry alias keys.
type aliased[K comparable] interface {
	Aliases() []K
}

// Element is a key-value pair plus alias keys that count as the same key,
// for fields known under several names. The alias set keeps insertion order
// and never holds duplicates or the key itself.
type Element[K comparable, V any] struct {
	key     K
	value   V
	aliases []K
}

func NewElement[K comparable, V any](key K, value V, aliases ...K) *Element[K, V] {
	e := &Element[K, V]{key: key, value: value}
	for _, a := range aliases {
		e.AddAlias(a)
	}
	return e
}

func (e *Element[K, V]) Key() K           { return e.key }
func (e *Element[K, V]) Value() V         { return e.value }
func (e *Element[K, V]) SetValue(v V)     { e.value = v }
func (e *Element[K, V]) Aliases() []K     { return slices.Clone(e.aliases) }
func (e *Element[K, V]) HasAliases() bool { return len(e.aliases) > 0 }

// AddAlias adds an alias, returning false if it is the key or already an alias.
func (e *Element[K, V]) AddAlias(alias K) bool {
	if alias == e.key || slices.Contains(e.aliases, alias) {
		return false
	}
	e.aliases = append(e.aliases, alias)
	return true
}

func (e *Element[K, V]) RemoveAlias(alias K) bool {
	i := slices.Index(e.aliases, alias)
	if i < 0 {
		return false
	}
	e.aliases = slices.Delete(e.aliases, i, i+1)
	return true
}

func (e *Element[K, V]) KeyEquals(candidate K) bool {
	return candidate == e.key || slices.Contains(e.aliases, candidate)
}

// CIElement is an Element with string keys matched case-insensitively
// under a locale. Safe for concurrent reads.
type CIElement[V any] struct {
	Element[string, V]
	locale language.Tag
}

func NewCIElement[V any](key string, value V, locale language.Tag, aliases ...string) *CIElement[V] {
	e := &CIElement[V]{Element: Element[string, V]{key: key, value: value}, locale: NormalizeLocale(locale)}
	for _, a := range aliases {
		e.AddAlias(a)
	}
	return e
}

func (e *CIElement[V]) Locale() language.Tag {
	return e.locale
}

func (e *CIElement[V]) fold(s string) string {
	return cases.Lower(e.locale).String(s)
}

// AddAlias rejects aliases that fold to the key or to an existing alias.
func (e *CIElement[V]) AddAlias(alias string) bool {
	f := e.fold(alias)
	if f == e.fold(e.key) {
		return false
	}
	for _, a := range e.aliases {
		if e.fold(a) == f {
			return false
		}
	}
	e.aliases = append(e.aliases, alias)
	return true
}

func (e *CIElement[V]) KeyEquals(candidate string) bool {
	f := e.fold(candidate)
	if f == e.fold(e.key) {
		return true
	}
	for _, a := range e.aliases {
		if e.fold(a) == f {
			return true
		}
	}
	return false
}

type ElementOptions struct {
	CaseInsensitive bool
	Locale          language.Tag // for CaseInsensitive; language.Und means DefaultLocale
}

// Normalize returns e itself if it already has the semantics opt asks for,
// and otherwise a new element with the same key, value and aliases. This
// avoids stacking wrappers.
func Normalize[V any](e Entry[string, V], opt ElementOptions) Entry[string, V] {
	var aliases []string
	if a, ok := e.(aliased[string]); ok {
		aliases = a.Aliases()
	}
	if opt.CaseInsensitive {
		locale := NormalizeLocale(opt.Locale)
		if ce, ok := e.(*CIElement[V]); ok && ce.locale == locale {
			return e
		}
		return NewCIElement(e.Key(), e.Value(), locale, aliases...)
	}
	if _, ok := e.(*Element[string, V]); ok {
		return e
	}
	return NewElement(e.Key(), e.Value(), aliases...)
}
