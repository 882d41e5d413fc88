package kvtree

import (
	"iter"
	"reflect"
)

// Mapping is the capability of a plain key/value structure: every key maps
// to exactly one value. Go maps satisfy the category through reflection;
// Mapping lets other structures (ordered maps, caches, views) take part.
type Mapping interface {
	Len() int
	// Range calls fn for each pair in the structure's natural order and
	// stops when fn returns false.
	Range(fn func(key, value any) bool)
}

// OrderedMap is a Mapping that iterates in insertion order. The zero value
// is not usable; construct with NewOrderedMap.
type OrderedMap[K comparable, V any] struct {
	keys   []K
	values []V
	index  map[K]int
}

// NewOrderedMap returns an empty OrderedMap.
func NewOrderedMap[K comparable, V any]() *OrderedMap[K, V] {
	return &OrderedMap[K, V]{index: make(map[K]int)}
}

// Set stores v under k. Replacing an existing key keeps its position.
func (m *OrderedMap[K, V]) Set(k K, v V) {
	if i, ok := m.index[k]; ok {
		m.values[i] = v
		return
	}
	m.index[k] = len(m.keys)
	m.keys = append(m.keys, k)
	m.values = append(m.values, v)
}

// Get returns the value stored under k.
func (m *OrderedMap[K, V]) Get(k K) (V, bool) {
	i, ok := m.index[k]
	if !ok {
		var zero V
		return zero, false
	}
	return m.values[i], true
}

// Delete removes k and reports whether it was present.
func (m *OrderedMap[K, V]) Delete(k K) bool {
	i, ok := m.index[k]
	if !ok {
		return false
	}
	m.keys = append(m.keys[:i], m.keys[i+1:]...)
	m.values = append(m.values[:i], m.values[i+1:]...)
	delete(m.index, k)
	for j := i; j < len(m.keys); j++ {
		m.index[m.keys[j]] = j
	}
	return true
}

// Len returns the number of keys.
func (m *OrderedMap[K, V]) Len() int { return len(m.keys) }

// Keys returns a copy of the keys in insertion order.
func (m *OrderedMap[K, V]) Keys() []K { return append([]K(nil), m.keys...) }

// All iterates pairs in insertion order.
func (m *OrderedMap[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for i, k := range m.keys {
			if !yield(k, m.values[i]) {
				return
			}
		}
	}
}

func (m *OrderedMap[K, V]) Range(fn func(key, value any) bool) {
	for k, v := range m.All() {
		if !fn(k, v) {
			return
		}
	}
}

// Descriptor returns map[K]V as inferred from the type parameters.
func (m *OrderedMap[K, V]) Descriptor() *Type { return m.typeDescriptor() }

func (*OrderedMap[K, V]) typeDescriptor() *Type {
	return MapOf(InferType(reflect.TypeFor[K]()), InferType(reflect.TypeFor[V]()))
}
