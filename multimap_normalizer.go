package kvtree

import "reflect"

// multimap serializes a multimapping as its grouped view: the same object a
// plain map[K][]V holding every group would produce. Every group is an array,
// single-value groups included, and duplicate values are kept. A group that
// an implementation reports as empty stays an empty array, so the output
// always equals the serialization of the grouped view.
func (w *walker) multimap(p *pathRef, v any, t *Type, depth int) (Node, error) {
	keyT, valT := w.opt.Resolver.ResolveElementTypes(t)
	grouped := MapOf(keyT, SequenceOf(valT))

	mm, ok := v.(Multimapping)
	if !ok {
		if isGroupedView(v) {
			return w.mapping(p, v, grouped, depth)
		}
		return nil, issueAt(p, CodeTypeMismatch, "multimapping declared, got "+describe(v), nil)
	}

	leave, err := w.enter(p, v)
	if err != nil {
		return nil, err
	}
	defer leave()

	view := mm.Grouped()
	if view == nil {
		view, err = groupEntries(p, mm)
		if err != nil {
			return nil, err
		}
		if w.debug {
			w.log.Debug("grouped view computed from entries", "path", p.Pointer(), "type", describe(v), "pairs", mm.Len())
		}
	}
	return w.mapping(p, view, grouped, depth)
}

// isGroupedView reports whether v already is a grouped view: a Go map of
// slices, or a Mapping whose own descriptor says its values are sequences,
// such as the OrderedMap returned by ListMultimap.AsMap.
func isGroupedView(v any) bool {
	if _, ok := v.(Mapping); ok {
		d, ok := v.(Described)
		if !ok {
			return false
		}
		dt := d.Descriptor()
		return dt.CategoryOf() == CategoryMapping && dt.Elem.CategoryOf() == CategorySequence
	}
	rt := reflect.TypeOf(v)
	return rt.Kind() == reflect.Map && (rt.Elem().Kind() == reflect.Slice || rt.Elem().Kind() == reflect.Array)
}

// groupEntries builds the grouped view of mm from its pairs: keys in first
// appearance order, each with its values in iteration order.
func groupEntries(p *pathRef, mm Multimapping) (*OrderedMap[any, []any], error) {
	view := NewOrderedMap[any, []any]()
	var err error
	mm.Entries(func(k, v any) bool {
		if k != nil && !reflect.TypeOf(k).Comparable() {
			err = issueAt(p, CodeUnencodableScalar, "non-comparable multimap key "+describe(k), nil)
			return false
		}
		g, _ := view.Get(k)
		view.Set(k, append(g, v))
		return true
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}
