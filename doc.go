// Package kvtree serializes plain mappings and multi-valued mappings into an
// ordered tree of objects, arrays and leaves.
//
// The package provides:
//
// - A closed tree model (Object, Array, Leaf) with structural equality
// - Type descriptors built compositionally (MapOf, MultimapOf, SequenceOf) that
// render to and parse from text such as "multimap[string]string"
// - A dispatcher that honors the declared category and falls back to the
// value's capabilities (Mapping, Multimapping, reflect kind) when none is given
// - A multimap normalizer: a multimap serializes exactly like its grouped view
// (each key mapped to the ordered slice of its values)
// - A stable error model via Issues (JSON Pointer, code, message)
// - Pluggable renderers (JSON built in; YAML and CBOR in codec/) and content
// fingerprints
//
// Design policy:
// - Keep the public API in the root package; renderers live under codec/,
// JSON Schema projection under jsonschema/, messages under i18n/, and the
// CLI under cmd/kvtree.
// - The core performs no I/O and keeps no per-call state.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//	mm := kvtree.NewListMultimap[string, string]()
//	mm.Put("key1", "value1")
//	mm.Put("key1", "value2")
//	n, err := kvtree.Serialize(mm, nil)
//	// n is {"key1":["value1","value2"]}, equal to kvtree.Serialize(mm.AsMap(), nil)
package kvtree
