package kvtree

import (
	"reflect"
	"slices"
	"strings"
)

// mapping emits one object entry per key. Mapping implementations are walked
// in their Range order; Go maps have no stable order, so their entries are
// sorted by object key (bytewise) to keep output deterministic.
func (w *walker) mapping(p *pathRef, v any, t *Type, depth int) (Node, error) {
	keyT, valT := w.opt.Resolver.ResolveElementTypes(t)
	if kc := keyT.CategoryOf(); kc != CategoryAny && kc != CategoryScalar {
		return nil, issueAt(p, CodeInvalidDescriptor, "map key must be a scalar: "+t.String(), nil)
	}

	leave, err := w.enter(p, v)
	if err != nil {
		return nil, err
	}
	defer leave()

	obj := &Object{}
	seen := make(map[string]struct{})
	put := func(key string, val any) error {
		if _, dup := seen[key]; dup {
			return issueAt(p.Field(key), CodeDuplicateKey, "two source keys coerce to "+key, nil)
		}
		seen[key] = struct{}{}
		n, err := w.value(p.Field(key), val, valT, depth+1)
		if err != nil {
			return err
		}
		if !w.omit(n) {
			obj.put(key, n)
		}
		return nil
	}

	if m, ok := v.(Mapping); ok {
		var ferr error
		m.Range(func(k, val any) bool {
			key, err := w.keyString(p, k)
			if err != nil {
				ferr = err
				return false
			}
			ferr = put(key, val)
			return ferr == nil
		})
		if ferr != nil {
			return nil, ferr
		}
		return obj, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		hint := "mapping declared, got " + describe(v)
		if _, isMulti := v.(Multimapping); isMulti {
			hint += " (a multimapping; declare a multimap type or pass its grouped view)"
		}
		return nil, issueAt(p, CodeTypeMismatch, hint, nil)
	}

	type entry struct {
		key string
		val any
	}
	entries := make([]entry, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		key, err := w.keyString(p, iter.Key().Interface())
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry{key: key, val: iter.Value().Interface()})
	}
	slices.SortFunc(entries, func(a, b entry) int { return strings.Compare(a.key, b.key) })
	for _, e := range entries {
		if err := put(e.key, e.val); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

func (w *walker) keyString(p *pathRef, k any) (string, error) {
	k, err := w.indirect(p, k)
	if err != nil {
		return "", err
	}
	s, err := w.opt.LeafEncoder.KeyString(k)
	if err != nil {
		return "", issueAt(p, CodeUnencodableScalar, "map key "+describe(k), err)
	}
	return s, nil
}
