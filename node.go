package kvtree

// Node is an output tree node. Concrete types:
//
//   - *Object (ordered string keys to Node)
//   - Array   (ordered sequence of Node)
//   - Leaf    (string, number, bool or null)
type Node interface {
	treeNode() // sealed marker; only types in this package implement Node
}

// Object is an ordered mapping from string keys to nodes. Keys are unique;
// the serializer enforces this when it builds objects.
type Object struct {
	Keys   []string
	Values []Node
}

// Array is an ordered sequence of nodes.
type Array []Node

// LeafKind identifies the scalar carried by a Leaf.
type LeafKind int

const (
	LeafNull LeafKind = iota
	LeafString
	LeafNumber
	LeafBool
)

func (k LeafKind) String() string {
	switch k {
	case LeafNull:
		return "null"
	case LeafString:
		return "string"
	case LeafNumber:
		return "number"
	case LeafBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Leaf is a primitive scalar. Numbers keep their canonical decimal text so
// that equality does not depend on float rounding.
type Leaf struct {
	Kind LeafKind
	Text string // string value, number text or "true"/"false"; empty for null
}

func (*Object) treeNode() {}
func (Array) treeNode()   {}
func (Leaf) treeNode()    {}

// Null returns the null leaf.
func Null() Leaf { return Leaf{Kind: LeafNull} }

// String returns a string leaf.
func String(s string) Leaf { return Leaf{Kind: LeafString, Text: s} }

// Number returns a number leaf from its canonical text.
func Number(text string) Leaf { return Leaf{Kind: LeafNumber, Text: text} }

// Bool returns a boolean leaf.
func Bool(b bool) Leaf {
	if b {
		return Leaf{Kind: LeafBool, Text: "true"}
	}
	return Leaf{Kind: LeafBool, Text: "false"}
}

// Entry is a convenience type for building objects.
type Entry struct {
	Key   string
	Value Node
}

// NewObject creates an Object from entries in order. It does not check for
// duplicate keys.
func NewObject(entries ...Entry) *Object {
	o := &Object{
		Keys:   make([]string, len(entries)),
		Values: make([]Node, len(entries)),
	}
	for i, e := range entries {
		o.Keys[i] = e.Key
		o.Values[i] = e.Value
	}
	return o
}

// Len returns the number of entries.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.Keys)
}

// Get returns the node stored under key.
func (o *Object) Get(key string) (Node, bool) {
	if o == nil {
		return nil, false
	}
	for i, k := range o.Keys {
		if k == key {
			return o.Values[i], true
		}
	}
	return nil, false
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

func (o *Object) put(key string, v Node) {
	o.Keys = append(o.Keys, key)
	o.Values = append(o.Values, v)
}

// Equal reports whether a and b are structurally equal. Object key order is
// significant: the serializer emits keys in a deterministic order, so two
// trees produced from equivalent inputs agree on it.
func Equal(a, b Node) bool {
	switch x := a.(type) {
	case Leaf:
		y, ok := b.(Leaf)
		return ok && x == y
	case Array:
		y, ok := b.(Array)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case *Object:
		y, ok := b.(*Object)
		if !ok {
			return false
		}
		if x.Len() != y.Len() {
			return false
		}
		for i := 0; i < x.Len(); i++ {
			if x.Keys[i] != y.Keys[i] || !Equal(x.Values[i], y.Values[i]) {
				return false
			}
		}
		return true
	case nil:
		return b == nil
	default:
		return false
	}
}
