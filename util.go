package kvdoc

import (
	"context"
	"log/slog"
	"reflect"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func ensure(err error) {
	if err != nil {
		panic(err)
	}
}

// isNil reports whether v is nil or a typed nil pointer/interface/map/slice.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}

func clamp(i, lo, hi int) int {
	if i < lo {
		return lo
	}
	if i > hi {
		return hi
	}
	return i
}

// removeString deletes the first occurrence of s, preserving order.
func removeString(list []string, s string) ([]string, bool) {
	for i, v := range list {
		if v == s {
			return append(list[:i], list[i+1:]...), true
		}
	}
	return list, false
}

func indexOfString(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func logDebug(logger *slog.Logger, msg string, attrs ...slog.Attr) {
	if logger == nil {
		return
	}
	logger.LogAttrs(context.Background(), slog.LevelDebug, msg, attrs...)
}
