package kvtree

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/reoring/kvtree/i18n"
	js "github.com/reoring/kvtree/jsonschema"
)

// Category is the closed set of container categories the dispatcher routes on.
type Category int

const (
	CategoryAny          Category = iota // Undeclared; resolved from the runtime value.
	CategoryScalar                       // Encoded by the LeafEncoder.
	CategorySequence                     // Slices and arrays.
	CategoryMapping                      // One value per key.
	CategoryMultimapping                 // An ordered group of values per key.
)

func (c Category) String() string {
	switch c {
	case CategoryAny:
		return "any"
	case CategoryScalar:
		return "scalar"
	case CategorySequence:
		return "sequence"
	case CategoryMapping:
		return "mapping"
	case CategoryMultimapping:
		return "multimapping"
	default:
		return fmt.Sprintf("Category(%d)", int(c))
	}
}

// ScalarKind narrows a scalar descriptor.
type ScalarKind int

const (
	ScalarAny ScalarKind = iota
	ScalarString
	ScalarInt
	ScalarUint
	ScalarFloat
	ScalarBool
	ScalarTime
	ScalarDuration
)

var scalarNames = map[ScalarKind]string{
	ScalarAny:      "scalar",
	ScalarString:   "string",
	ScalarInt:      "int",
	ScalarUint:     "uint",
	ScalarFloat:    "float",
	ScalarBool:     "bool",
	ScalarTime:     "time",
	ScalarDuration: "duration",
}

func (k ScalarKind) String() string {
	if n, ok := scalarNames[k]; ok {
		return n
	}
	return fmt.Sprintf("ScalarKind(%d)", int(k))
}

// Type describes the declared shape of a value. A nil *Type means no static
// information is available and behaves like Any().
//
// Types are built compositionally:
//
//	kvtree.MultimapOf(kvtree.ScalarOf(kvtree.ScalarString), kvtree.ScalarOf(kvtree.ScalarString))
//	kvtree.MapOf(kvtree.ScalarOf(kvtree.ScalarString), kvtree.SequenceOf(kvtree.ScalarOf(kvtree.ScalarString)))
//
// and render as Go-like text ("multimap[string]string", "map[string][]string")
// that ParseType reads back.
type Type struct {
	Category Category
	Scalar   ScalarKind // CategoryScalar only
	Key      *Type      // CategoryMapping, CategoryMultimapping
	Elem     *Type      // value type for mappings, element type for sequences
}

// Any returns a descriptor that defers to runtime classification.
func Any() *Type { return &Type{Category: CategoryAny} }

// ScalarOf returns a scalar descriptor.
func ScalarOf(k ScalarKind) *Type { return &Type{Category: CategoryScalar, Scalar: k} }

// SequenceOf returns a sequence descriptor.
func SequenceOf(elem *Type) *Type { return &Type{Category: CategorySequence, Elem: elem} }

// MapOf returns a plain mapping descriptor.
func MapOf(key, value *Type) *Type { return &Type{Category: CategoryMapping, Key: key, Elem: value} }

// MultimapOf returns a multi-valued mapping descriptor.
func MultimapOf(key, value *Type) *Type {
	return &Type{Category: CategoryMultimapping, Key: key, Elem: value}
}

// CategoryOf returns the declared category, CategoryAny for nil.
func (t *Type) CategoryOf() Category {
	if t == nil {
		return CategoryAny
	}
	return t.Category
}

// Grouped returns the descriptor of the grouped view of a multimap
// descriptor: map[K][]V. Other descriptors are returned unchanged.
func (t *Type) Grouped() *Type {
	if t.CategoryOf() != CategoryMultimapping {
		return t
	}
	return MapOf(t.Key, SequenceOf(t.Elem))
}

func (t *Type) String() string {
	var b strings.Builder
	t.writeTo(&b)
	return b.String()
}

func (t *Type) writeTo(b *strings.Builder) {
	switch t.CategoryOf() {
	case CategoryAny:
		b.WriteString("any")
	case CategoryScalar:
		b.WriteString(t.Scalar.String())
	case CategorySequence:
		b.WriteString("[]")
		t.Elem.writeTo(b)
	case CategoryMapping, CategoryMultimapping:
		if t.Category == CategoryMultimapping {
			b.WriteString("multi")
		}
		b.WriteString("map[")
		t.Key.writeTo(b)
		b.WriteByte(']')
		t.Elem.writeTo(b)
	default:
		b.WriteString(t.Category.String())
	}
}

// Equal reports whether two descriptors describe the same shape. nil and
// Any() are equal.
func (t *Type) Equal(u *Type) bool {
	if t.CategoryOf() != u.CategoryOf() {
		return false
	}
	switch t.CategoryOf() {
	case CategoryAny:
		return true
	case CategoryScalar:
		return t.Scalar == u.Scalar
	case CategorySequence:
		return t.Elem.Equal(u.Elem)
	default:
		return t.Key.Equal(u.Key) && t.Elem.Equal(u.Elem)
	}
}

// ParseType parses the textual form produced by Type.String.
func ParseType(s string) (*Type, error) {
	p := &typeParser{src: strings.ReplaceAll(s, " ", "")}
	t, err := p.parse()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.src) {
		return nil, p.fail("trailing input")
	}
	return t, nil
}

// MustParseType is like ParseType but panics on error. Intended for
// package-level descriptor variables.
func MustParseType(s string) *Type {
	t, err := ParseType(s)
	if err != nil {
		panic(err)
	}
	return t
}

type typeParser struct {
	src string
	pos int
}

func (p *typeParser) rest() string { return p.src[p.pos:] }

func (p *typeParser) fail(reason string) error {
	return Issues{Issue{
		Path:    "/",
		Code:    CodeInvalidDescriptor,
		Message: i18n.T(CodeInvalidDescriptor, nil),
		Hint:    fmt.Sprintf("%s at offset %d in %q", reason, p.pos, p.src),
	}}
}

func (p *typeParser) parse() (*Type, error) {
	switch {
	case strings.HasPrefix(p.rest(), "[]"):
		p.pos += 2
		elem, err := p.parse()
		if err != nil {
			return nil, err
		}
		return SequenceOf(elem), nil
	case strings.HasPrefix(p.rest(), "multimap["):
		p.pos += len("multimap[")
		return p.parseKeyed(CategoryMultimapping)
	case strings.HasPrefix(p.rest(), "map["):
		p.pos += len("map[")
		return p.parseKeyed(CategoryMapping)
	}
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] >= 'a' && p.src[p.pos] <= 'z' {
		p.pos++
	}
	name := p.src[start:p.pos]
	if name == "" {
		return nil, p.fail("expected type")
	}
	if name == "any" {
		return Any(), nil
	}
	for k, n := range scalarNames {
		if n == name {
			return ScalarOf(k), nil
		}
	}
	p.pos = start
	return nil, p.fail("unknown type " + name)
}

func (p *typeParser) parseKeyed(c Category) (*Type, error) {
	key, err := p.parse()
	if err != nil {
		return nil, err
	}
	if kc := key.CategoryOf(); kc != CategoryScalar && kc != CategoryAny {
		return nil, p.fail("map key must be a scalar")
	}
	if p.pos >= len(p.src) || p.src[p.pos] != ']' {
		return nil, p.fail("expected ]")
	}
	p.pos++
	elem, err := p.parse()
	if err != nil {
		return nil, err
	}
	return &Type{Category: c, Key: key, Elem: elem}, nil
}

// MarshalText renders the descriptor text.
func (t *Type) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText parses descriptor text into t.
func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = *parsed
	return nil
}

// MarshalYAML renders the descriptor as a plain scalar.
func (t *Type) MarshalYAML() (any, error) { return t.String(), nil }

// UnmarshalYAML reads a descriptor from a scalar node.
func (t *Type) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return Issues{Issue{
			Path:    "/",
			Code:    CodeInvalidDescriptor,
			Message: i18n.T(CodeInvalidDescriptor, nil),
			Hint:    fmt.Sprintf("line %d: descriptor must be a string", node.Line),
		}}
	}
	return t.UnmarshalText([]byte(node.Value))
}

// LoadTypesYAML reads a YAML mapping of names to descriptor strings, e.g.
//
//	headers: multimap[string]string
//	counts: map[string]int
func LoadTypesYAML(data []byte) (map[string]*Type, error) {
	out := map[string]*Type{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// JSONSchema projects the descriptor into the JSON Schema of the tree the
// serializer produces for it.
func (t *Type) JSONSchema() *js.Schema {
	switch t.CategoryOf() {
	case CategoryScalar:
		return scalarSchema(t.Scalar)
	case CategorySequence:
		return &js.Schema{Type: "array", Items: t.Elem.JSONSchema()}
	case CategoryMapping:
		return &js.Schema{Type: "object", PropertyNames: keySchema(t.Key), AdditionalProperties: t.Elem.JSONSchema()}
	case CategoryMultimapping:
		// Groups may be empty, so this is the schema of the grouped view.
		return t.Grouped().JSONSchema()
	default:
		return &js.Schema{}
	}
}

func scalarSchema(k ScalarKind) *js.Schema {
	switch k {
	case ScalarString, ScalarDuration:
		return &js.Schema{Type: "string"}
	case ScalarTime:
		return &js.Schema{Type: "string", Format: "date-time"}
	case ScalarInt, ScalarUint:
		return &js.Schema{Type: "integer"}
	case ScalarFloat:
		return &js.Schema{Type: "number"}
	case ScalarBool:
		return &js.Schema{Type: "boolean"}
	default:
		return &js.Schema{}
	}
}

// keySchema constrains property names for non-string key types.
func keySchema(key *Type) *js.Schema {
	if key.CategoryOf() != CategoryScalar {
		return nil
	}
	switch key.Scalar {
	case ScalarInt:
		return &js.Schema{Pattern: `^-?[0-9]+$`}
	case ScalarUint:
		return &js.Schema{Pattern: `^[0-9]+$`}
	case ScalarBool:
		return &js.Schema{Enum: []any{"true", "false"}}
	case ScalarTime:
		return &js.Schema{Format: "date-time"}
	default:
		return nil
	}
}
