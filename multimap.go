package kvtree

import (
	"cmp"
	"reflect"
	"slices"
	"sync"
)

// Multimapping is the capability of a multi-valued key/value structure. A
// key's group is the ordered sequence of every value put under it.
//
// Any implementation plugs into the serializer: it is classified as a
// multimapping from this capability alone, whatever its contents.
type Multimapping interface {
	// Len returns the number of (key, value) pairs, not keys.
	Len() int
	// Entries calls fn for every pair. Values of one key are visited in
	// insertion order. Iteration stops when fn returns false.
	Entries(fn func(key, value any) bool)
	// Grouped returns the grouped view: a Mapping from each key to a slice
	// holding its whole group. It may return nil, in which case the view is
	// computed from Entries.
	Grouped() Mapping
}

// ListMultimap is an insertion-ordered multimap that keeps duplicate values.
// Keys iterate in first-insertion order. A key whose group becomes empty is
// removed. The zero value is not usable; construct with NewListMultimap.
type ListMultimap[K comparable, V any] struct {
	keys   []K
	groups map[K][]V
	size   int
}

// NewListMultimap returns an empty ListMultimap.
func NewListMultimap[K comparable, V any]() *ListMultimap[K, V] {
	return &ListMultimap[K, V]{groups: make(map[K][]V)}
}

// MultimapFromGroups builds a ListMultimap from a map of groups, such as
// url.Values or http.Header. Keys are inserted in sorted order; empty groups
// are skipped.
func MultimapFromGroups[K cmp.Ordered, V any](groups map[K][]V) *ListMultimap[K, V] {
	m := NewListMultimap[K, V]()
	keys := make([]K, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		m.PutAll(k, groups[k]...)
	}
	return m
}

// Put appends v to the group of k.
func (m *ListMultimap[K, V]) Put(k K, v V) {
	g, ok := m.groups[k]
	if !ok {
		m.keys = append(m.keys, k)
	}
	m.groups[k] = append(g, v)
	m.size++
}

// PutAll appends vs to the group of k. An empty vs is a no-op.
func (m *ListMultimap[K, V]) PutAll(k K, vs ...V) {
	for _, v := range vs {
		m.Put(k, v)
	}
}

// Get returns a copy of the group of k.
func (m *ListMultimap[K, V]) Get(k K) []V { return slices.Clone(m.groups[k]) }

// ContainsKey reports whether k has at least one value.
func (m *ListMultimap[K, V]) ContainsKey(k K) bool {
	_, ok := m.groups[k]
	return ok
}

// RemoveAll drops every value of k and returns them.
func (m *ListMultimap[K, V]) RemoveAll(k K) []V {
	g, ok := m.groups[k]
	if !ok {
		return nil
	}
	m.dropKey(k)
	m.size -= len(g)
	return g
}

// RemoveFunc drops the values of k for which del returns true and reports
// how many were removed.
func (m *ListMultimap[K, V]) RemoveFunc(k K, del func(V) bool) int {
	g, ok := m.groups[k]
	if !ok {
		return 0
	}
	kept := slices.DeleteFunc(slices.Clone(g), del)
	n := len(g) - len(kept)
	m.size -= n
	if len(kept) == 0 {
		m.dropKey(k)
	} else {
		m.groups[k] = kept
	}
	return n
}

func (m *ListMultimap[K, V]) dropKey(k K) {
	delete(m.groups, k)
	if i := slices.Index(m.keys, k); i >= 0 {
		m.keys = slices.Delete(m.keys, i, i+1)
	}
}

// Len returns the number of pairs.
func (m *ListMultimap[K, V]) Len() int { return m.size }

// KeyLen returns the number of distinct keys.
func (m *ListMultimap[K, V]) KeyLen() int { return len(m.keys) }

// Keys returns the distinct keys in first-insertion order.
func (m *ListMultimap[K, V]) Keys() []K { return slices.Clone(m.keys) }

func (m *ListMultimap[K, V]) Entries(fn func(key, value any) bool) {
	for _, k := range m.keys {
		for _, v := range m.groups[k] {
			if !fn(k, v) {
				return
			}
		}
	}
}

// AsMap returns the grouped view as a typed OrderedMap. Groups are copied so
// later puts do not alias the view.
func (m *ListMultimap[K, V]) AsMap() *OrderedMap[K, []V] {
	out := NewOrderedMap[K, []V]()
	for _, k := range m.keys {
		out.Set(k, slices.Clone(m.groups[k]))
	}
	return out
}

func (m *ListMultimap[K, V]) Grouped() Mapping { return m.AsMap() }

// Descriptor returns multimap[K]V as inferred from the type parameters.
func (m *ListMultimap[K, V]) Descriptor() *Type { return m.typeDescriptor() }

func (*ListMultimap[K, V]) typeDescriptor() *Type {
	return MultimapOf(InferType(reflect.TypeFor[K]()), InferType(reflect.TypeFor[V]()))
}

// SyncMultimap is a ListMultimap guarded by a RWMutex. Entries and Grouped
// work on a snapshot taken under the read lock, so serialization never holds
// the lock while calling back into user code.
type SyncMultimap[K comparable, V any] struct {
	mu    sync.RWMutex
	inner *ListMultimap[K, V]
}

// NewSyncMultimap returns an empty SyncMultimap.
func NewSyncMultimap[K comparable, V any]() *SyncMultimap[K, V] {
	return &SyncMultimap[K, V]{inner: NewListMultimap[K, V]()}
}

func (m *SyncMultimap[K, V]) Put(k K, v V) {
	m.mu.Lock()
	m.inner.Put(k, v)
	m.mu.Unlock()
}

func (m *SyncMultimap[K, V]) Get(k K) []V {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.inner.Get(k)
}

func (m *SyncMultimap[K, V]) RemoveAll(k K) []V {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inner.RemoveAll(k)
}

func (m *SyncMultimap[K, V]) RemoveFunc(k K, del func(V) bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inner.RemoveFunc(k, del)
}

func (m *SyncMultimap[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.inner.Len()
}

func (m *SyncMultimap[K, V]) Entries(fn func(key, value any) bool) {
	m.Snapshot().Entries(fn)
}

func (m *SyncMultimap[K, V]) Grouped() Mapping { return m.Snapshot().AsMap() }

// Snapshot returns a point-in-time copy.
func (m *SyncMultimap[K, V]) Snapshot() *ListMultimap[K, V] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := NewListMultimap[K, V]()
	for _, k := range m.inner.keys {
		out.PutAll(k, m.inner.groups[k]...)
	}
	return out
}

func (m *SyncMultimap[K, V]) Descriptor() *Type { return m.typeDescriptor() }

func (*SyncMultimap[K, V]) typeDescriptor() *Type {
	return MultimapOf(InferType(reflect.TypeFor[K]()), InferType(reflect.TypeFor[V]()))
}
