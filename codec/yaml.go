package codec

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	kvtree "github.com/reoring/kvtree"
)

// YAML returns a renderer producing a YAML document. Object key order is
// preserved and every scalar carries an explicit core tag, so strings that
// look like numbers stay strings.
func YAML() kvtree.Renderer { return yamlRenderer{} }

type yamlRenderer struct{}

func (yamlRenderer) Name() string { return "yaml" }

func (yamlRenderer) Render(w io.Writer, n kvtree.Node) error {
	doc, err := ToYAMLNode(n)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

// ToYAMLNode converts a tree into a yaml.v3 node tree.
func ToYAMLNode(n kvtree.Node) (*yaml.Node, error) {
	switch x := n.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case kvtree.Leaf:
		return leafNode(x), nil
	case kvtree.Array:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, e := range x {
			c, err := ToYAMLNode(e)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, c)
		}
		return seq, nil
	case *kvtree.Object:
		m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for i := 0; i < x.Len(); i++ {
			v, err := ToYAMLNode(x.Values[i])
			if err != nil {
				return nil, err
			}
			m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: x.Keys[i]}, v)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("codec: unsupported node %T", n)
	}
}

func leafNode(l kvtree.Leaf) *yaml.Node {
	switch l.Kind {
	case kvtree.LeafNull:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case kvtree.LeafBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: l.Text}
	case kvtree.LeafNumber:
		tag := "!!int"
		if strings.ContainsAny(l.Text, ".eE") {
			tag = "!!float"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: l.Text}
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: l.Text}
	}
}
