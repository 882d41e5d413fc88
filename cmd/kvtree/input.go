package main

import (
	"fmt"
	"reflect"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	kvtree "github.com/reoring/kvtree"
)

// decodeInput parses data in the given syntax. Objects and mappings decode
// into OrderedMaps and keep document order; JSON numbers keep their source
// text.
func decodeInput(syntax string, data []byte) (any, error) {
	switch syntax {
	case "json", "jsonc":
		if syntax == "jsonc" {
			data = jsonc.ToJSON(data)
		}
		v, err := decodeJSON(data)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", syntax, err)
		}
		return v, nil
	case "yaml":
		var root yaml.Node
		if err := yaml.Unmarshal(data, &root); err != nil {
			return nil, fmt.Errorf("parsing yaml: %w", err)
		}
		if root.Kind == 0 {
			return nil, nil
		}
		return fromYAML(&root)
	default:
		return nil, fmt.Errorf("unknown input syntax %q", syntax)
	}
}

func fromYAML(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		return fromYAML(n.Content[0])
	case yaml.AliasNode:
		return fromYAML(n.Alias)
	case yaml.MappingNode:
		m := kvtree.NewOrderedMap[string, any]()
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := fromYAML(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			m.Set(n.Content[i].Value, v)
		}
		return m, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := fromYAML(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	default:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return v, nil
	}
}

// toMultimap reshapes a decoded document for a multimap type. A list of
// [key, value] pairs keeps its order and duplicates; an object of groups is
// passed on as a grouped view, so a key with an empty list keeps its []
// group. Anything else is returned unchanged and left to
// the serializer to reject.
func toMultimap(doc any) (any, error) {
	enc := kvtree.DefaultLeafEncoder{}
	switch x := doc.(type) {
	case []any:
		mm := kvtree.NewListMultimap[string, any]()
		for i, p := range x {
			pair, ok := p.([]any)
			if !ok || len(pair) != 2 {
				return nil, fmt.Errorf("pair %d: expected [key, value]", i)
			}
			if pair[0] != nil && !isScalar(pair[0]) {
				return nil, fmt.Errorf("pair %d: key must be a scalar", i)
			}
			k, err := enc.KeyString(pair[0])
			if err != nil {
				return nil, fmt.Errorf("pair %d: %w", i, err)
			}
			mm.Put(k, pair[1])
		}
		return mm, nil
	case *kvtree.OrderedMap[string, any]:
		groups := kvtree.NewOrderedMap[string, []any]()
		for k, v := range x.All() {
			groups.Set(k, asGroup(v))
		}
		return groups, nil
	}
	return doc, nil
}

// asGroup treats a non-list value as a group of one.
func asGroup(v any) []any {
	if g, ok := v.([]any); ok {
		return g
	}
	return []any{v}
}

func isScalar(v any) bool {
	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Map, reflect.Pointer:
		return false
	}
	return true
}
