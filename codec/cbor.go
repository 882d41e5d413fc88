package codec

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fxamacker/cbor/v2"

	kvtree "github.com/reoring/kvtree"
)

// CBOR returns a renderer producing canonical CBOR (RFC 8949 core
// deterministic encoding). Map keys are sorted by the encoding rules, so
// object key order is not preserved; integers use the smallest encoding.
func CBOR() kvtree.Renderer {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err) // static options
	}
	return cborRenderer{em: em}
}

type cborRenderer struct{ em cbor.EncMode }

func (cborRenderer) Name() string { return "cbor" }

func (r cborRenderer) Render(w io.Writer, n kvtree.Node) error {
	v, err := toPlain(n)
	if err != nil {
		return err
	}
	return r.em.NewEncoder(w).Encode(v)
}

// toPlain converts a tree into Go values the CBOR encoder understands.
func toPlain(n kvtree.Node) (any, error) {
	switch x := n.(type) {
	case nil:
		return nil, nil
	case kvtree.Leaf:
		switch x.Kind {
		case kvtree.LeafNull:
			return nil, nil
		case kvtree.LeafBool:
			return x.Text == "true", nil
		case kvtree.LeafNumber:
			if i, err := strconv.ParseInt(x.Text, 10, 64); err == nil {
				return i, nil
			}
			if u, err := strconv.ParseUint(x.Text, 10, 64); err == nil {
				return u, nil
			}
			f, err := strconv.ParseFloat(x.Text, 64)
			if err != nil {
				return nil, fmt.Errorf("codec: number %q: %w", x.Text, err)
			}
			return f, nil
		default:
			return x.Text, nil
		}
	case kvtree.Array:
		out := make([]any, len(x))
		for i, e := range x {
			v, err := toPlain(e)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case *kvtree.Object:
		out := make(map[string]any, x.Len())
		for i := 0; i < x.Len(); i++ {
			v, err := toPlain(x.Values[i])
			if err != nil {
				return nil, err
			}
			out[x.Keys[i]] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("codec: unsupported node %T", n)
	}
}
