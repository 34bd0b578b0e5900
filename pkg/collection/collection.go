// Package collection provides generic slice helpers used by the read-side
// aggregations.
//
//	units := collection.Sum(collection.Map(orders, func(o models.Order) int { return o.Quantity }))
//	byMonth := collection.GroupBy(orders, func(o models.Order) string { return monthKey(o.CreatedAt) })
package collection

import (
	"cmp"
	"slices"
)

// Number is any type Sum can add.
type Number interface {
	~int | ~int32 | ~int64 | ~float32 | ~float64
}

// Map transforms each element of s using fn.
func Map[T, R any](s []T, fn func(T) R) []R {
	out := make([]R, len(s))
	for i, v := range s {
		out[i] = fn(v)
	}
	return out
}

// Filter returns elements of s for which fn returns true.
func Filter[T any](s []T, fn func(T) bool) []T {
	var out []T
	for _, v := range s {
		if fn(v) {
			out = append(out, v)
		}
	}
	return out
}

// Count returns how many elements satisfy fn.
func Count[T any](s []T, fn func(T) bool) int {
	n := 0
	for _, v := range s {
		if fn(v) {
			n++
		}
	}
	return n
}

// Reduce folds s into a single value using fn, starting with initial.
func Reduce[T, R any](s []T, initial R, fn func(carry R, item T) R) R {
	carry := initial
	for _, v := range s {
		carry = fn(carry, v)
	}
	return carry
}

// Sum adds every element of s.
func Sum[N Number](s []N) N {
	var total N
	for _, v := range s {
		total += v
	}
	return total
}

// GroupBy partitions s into a map keyed by fn. Element order within each
// group follows s.
func GroupBy[T any, K comparable](s []T, fn func(T) K) map[K][]T {
	out := make(map[K][]T)
	for _, v := range s {
		k := fn(v)
		out[k] = append(out[k], v)
	}
	return out
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// SortBy sorts s in place with a stable sort and returns it.
func SortBy[T any](s []T, cmpFn func(a, b T) int) []T {
	slices.SortStableFunc(s, cmpFn)
	return s
}

// TakeLast returns the final n elements of s (all of s when shorter).
func TakeLast[T any](s []T, n int) []T {
	if n <= 0 {
		return s[:0]
	}
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
