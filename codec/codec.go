// Package codec provides wire renderers for kvtree trees. Importing the
// package registers them with kvtree.RegisterRenderer under their names:
// "json-indent", "yaml" and "cbor". The compact "json" renderer is built
// into the root package.
package codec

import kvtree "github.com/reoring/kvtree"

func init() {
	kvtree.RegisterRenderer(JSONIndent("  "))
	kvtree.RegisterRenderer(YAML())
	kvtree.RegisterRenderer(CBOR())
}
