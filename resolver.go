package kvtree

import (
	"fmt"
	"reflect"
	"sync"
)

// Resolver supplies the type information that drives traversal.
// Implementations must be safe for concurrent use.
type Resolver interface {
	// ResolveElementTypes returns the key and value (or element) descriptors
	// declared by t. Missing parts come back as Any().
	ResolveElementTypes(t *Type) (key, value *Type)
	// Classify determines the category of a runtime value from its
	// capabilities, never from its contents.
	Classify(v any) (Category, error)
}

// Described is implemented by containers that know their own descriptor.
// The serializer uses it when the caller passes no descriptor.
type Described interface {
	Descriptor() *Type
}

// typeDescribed is implemented by the generic containers of this package,
// whose descriptor depends on type parameters only and is therefore
// available from a nil receiver.
type typeDescribed interface {
	typeDescriptor() *Type
}

var (
	mappingType      = reflect.TypeFor[Mapping]()
	multimappingType = reflect.TypeFor[Multimapping]()
)

// DefaultResolver classifies by capability: the Multimapping and Mapping
// interfaces first, then the reflect kind. Results are memoized per dynamic
// type; the cache is only an optimization.
type DefaultResolver struct {
	cache sync.Map // reflect.Type -> classification
}

type classification struct {
	cat  Category
	err  string // issue code, empty when classification succeeded
	hint string
}

// NewResolver returns a DefaultResolver with an empty cache.
func NewResolver() *DefaultResolver { return &DefaultResolver{} }

func (r *DefaultResolver) ResolveElementTypes(t *Type) (key, value *Type) {
	key, value = Any(), Any()
	switch t.CategoryOf() {
	case CategoryMapping, CategoryMultimapping:
		if t.Key != nil {
			key = t.Key
		}
		if t.Elem != nil {
			value = t.Elem
		}
	case CategorySequence:
		if t.Elem != nil {
			value = t.Elem
		}
	}
	return key, value
}

func (r *DefaultResolver) Classify(v any) (Category, error) {
	if v == nil {
		return CategoryScalar, nil
	}
	rt := reflect.TypeOf(v)
	c, ok := r.cache.Load(rt)
	if !ok {
		c, _ = r.cache.LoadOrStore(rt, classifyType(rt))
	}
	cl := c.(classification)
	if cl.err != "" {
		return CategoryAny, issueAt(nil, cl.err, cl.hint, nil)
	}
	return cl.cat, nil
}

func classifyType(rt reflect.Type) classification {
	isMulti := rt.Implements(multimappingType)
	isMap := rt.Implements(mappingType)
	switch {
	case isMulti && isMap:
		return classification{err: CodeAmbiguousCategory, hint: rt.String() + " implements both Mapping and Multimapping"}
	case isMulti:
		return classification{cat: CategoryMultimapping}
	case isMap:
		return classification{cat: CategoryMapping}
	}
	switch rt {
	case timeType, durationType, numberType:
		return classification{cat: CategoryScalar}
	}
	if rt.Implements(textMarshalerType) {
		return classification{cat: CategoryScalar}
	}
	switch rt.Kind() {
	case reflect.Map:
		return classification{cat: CategoryMapping}
	case reflect.Slice:
		if rt.Elem().Kind() == reflect.Uint8 {
			return classification{cat: CategoryScalar}
		}
		return classification{cat: CategorySequence}
	case reflect.Array:
		return classification{cat: CategorySequence}
	case reflect.Pointer:
		return classifyType(rt.Elem())
	case reflect.Struct, reflect.Interface:
		return classification{err: CodeAmbiguousCategory, hint: rt.String()}
	default:
		// Numbers, strings and bools, plus kinds the LeafEncoder rejects
		// (complex, func, chan) so the failure carries its scalar code.
		return classification{cat: CategoryScalar}
	}
}

// InferType derives a descriptor from a Go type. Interface types, including
// any, infer to Any().
func InferType(rt reflect.Type) *Type {
	if rt == nil {
		return Any()
	}
	for rt.Kind() == reflect.Pointer && !rt.Implements(mappingType) && !rt.Implements(multimappingType) {
		rt = rt.Elem()
	}
	switch rt {
	case timeType:
		return ScalarOf(ScalarTime)
	case durationType:
		return ScalarOf(ScalarDuration)
	case numberType:
		return ScalarOf(ScalarFloat)
	}
	switch rt.Kind() {
	case reflect.Interface:
		return Any()
	case reflect.String:
		return ScalarOf(ScalarString)
	case reflect.Bool:
		return ScalarOf(ScalarBool)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return ScalarOf(ScalarInt)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return ScalarOf(ScalarUint)
	case reflect.Float32, reflect.Float64:
		return ScalarOf(ScalarFloat)
	case reflect.Map:
		return MapOf(InferType(rt.Key()), InferType(rt.Elem()))
	case reflect.Slice:
		if rt.Elem().Kind() == reflect.Uint8 {
			return ScalarOf(ScalarString)
		}
		return SequenceOf(InferType(rt.Elem()))
	case reflect.Array:
		return SequenceOf(InferType(rt.Elem()))
	}
	if d, ok := reflect.Zero(rt).Interface().(typeDescribed); ok {
		return d.typeDescriptor()
	}
	// Other containers may need their contents to describe themselves, so
	// only the capability is known here.
	switch {
	case rt.Implements(multimappingType):
		return MultimapOf(Any(), Any())
	case rt.Implements(mappingType):
		return MapOf(Any(), Any())
	}
	return Any()
}

// Infer returns the descriptor of a runtime value: its own Descriptor when
// it implements Described, otherwise InferType of its dynamic type.
func Infer(v any) *Type {
	if d, ok := v.(Described); ok {
		return d.Descriptor()
	}
	return InferType(reflect.TypeOf(v))
}

func describe(v any) string { return fmt.Sprintf("%T", v) }
