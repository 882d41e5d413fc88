package kvtree

import (
	"bytes"
	"errors"
	"io"
	"slices"
	"sort"
	"sync"

	j "github.com/goccy/go-json"
)

// Renderer writes a tree in a wire format. Implementations are registered by
// name and looked up by Render.
type Renderer interface {
	Render(w io.Writer, n Node) error
	Name() string
}

// ErrUnknownRenderer is returned by Render for an unregistered format.
var ErrUnknownRenderer = errors.New("kvtree: unknown renderer")

var (
	renderersMu sync.RWMutex
	renderers   = map[string]Renderer{"json": jsonRenderer{}}
)

// RegisterRenderer adds or replaces a renderer under r.Name(); nil values
// are ignored. The codec package registers its renderers on import.
func RegisterRenderer(r Renderer) {
	if r == nil {
		return
	}
	renderersMu.Lock()
	renderers[r.Name()] = r
	renderersMu.Unlock()
}

// LookupRenderer returns the renderer registered under name.
func LookupRenderer(name string) (Renderer, bool) {
	renderersMu.RLock()
	r, ok := renderers[name]
	renderersMu.RUnlock()
	return r, ok
}

// Renderers lists registered renderer names in sorted order.
func Renderers() []string {
	renderersMu.RLock()
	defer renderersMu.RUnlock()
	names := make([]string, 0, len(renderers))
	for n := range renderers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Render writes n to w using the renderer registered under format.
func Render(w io.Writer, format string, n Node) error {
	r, ok := LookupRenderer(format)
	if !ok {
		return errors.Join(ErrUnknownRenderer, errors.New("format "+format))
	}
	return r.Render(w, n)
}

// jsonRenderer is the built-in compact JSON renderer. Object key order is
// preserved.
type jsonRenderer struct{}

func (jsonRenderer) Name() string { return "json" }

func (jsonRenderer) Render(w io.Writer, n Node) error {
	var buf bytes.Buffer
	if err := writeJSON(&buf, n, false); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// MarshalJSON encodes the tree as JSON with object keys in their stored order.
func MarshalJSON(n Node) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, n, false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CanonicalJSON encodes the tree as compact JSON with object keys sorted
// bytewise at every level.
func CanonicalJSON(n Node) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, n, true); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (o *Object) MarshalJSON() ([]byte, error) { return MarshalJSON(o) }
func (a Array) MarshalJSON() ([]byte, error)   { return MarshalJSON(a) }
func (l Leaf) MarshalJSON() ([]byte, error)    { return MarshalJSON(l) }

func writeJSON(buf *bytes.Buffer, n Node, sortKeys bool) error {
	switch x := n.(type) {
	case nil:
		buf.WriteString("null")
	case Leaf:
		switch x.Kind {
		case LeafNull:
			buf.WriteString("null")
		case LeafNumber, LeafBool:
			buf.WriteString(x.Text)
		default:
			b, err := j.Marshal(x.Text)
			if err != nil {
				return err
			}
			buf.Write(b)
		}
	case Array:
		buf.WriteByte('[')
		for i, e := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, e, sortKeys); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case *Object:
		order := make([]int, x.Len())
		for i := range order {
			order[i] = i
		}
		if sortKeys {
			slices.SortFunc(order, func(a, b int) int {
				switch {
				case x.Keys[a] < x.Keys[b]:
					return -1
				case x.Keys[a] > x.Keys[b]:
					return 1
				}
				return 0
			})
		}
		buf.WriteByte('{')
		for i, idx := range order {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := j.Marshal(x.Keys[idx])
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := writeJSON(buf, x.Values[idx], sortKeys); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}
