package kvtree

import (
	"context"
	"log/slog"
	"reflect"
)

// NullPolicy controls how nil values are emitted.
type NullPolicy int

const (
	NullAsLeaf NullPolicy = iota // Emit a null leaf.
	NullOmit                     // Drop null object entries and array elements; a nil root is still a null leaf.
)

// DefaultMaxDepth bounds container nesting when Options.MaxDepth is zero.
const DefaultMaxDepth = 256

// Options configures a Serializer. Zero fields take their defaults.
type Options struct {
	NullPolicy NullPolicy
	MaxDepth   int
	// SkipCycleCheck disables cycle detection. Acyclic input is then a
	// precondition; a cycle ends in depth_exceeded instead.
	SkipCycleCheck bool
	LeafEncoder    LeafEncoder
	Resolver       Resolver
	Logger         *slog.Logger
}

// DefaultOptions returns the options used by the package-level Serialize.
func DefaultOptions() Options {
	return Options{
		NullPolicy:  NullAsLeaf,
		MaxDepth:    DefaultMaxDepth,
		LeafEncoder: DefaultLeafEncoder{},
		Resolver:    NewResolver(),
		Logger:      slog.New(slog.DiscardHandler),
	}
}

// Serializer turns mappings and multimaps into trees. It holds no per-call
// state and is safe for concurrent use.
type Serializer struct {
	opt Options
}

// New returns a Serializer, filling zero option fields with defaults.
func New(opt Options) *Serializer {
	def := DefaultOptions()
	if opt.MaxDepth <= 0 {
		opt.MaxDepth = def.MaxDepth
	}
	if opt.LeafEncoder == nil {
		opt.LeafEncoder = def.LeafEncoder
	}
	if opt.Resolver == nil {
		opt.Resolver = def.Resolver
	}
	if opt.Logger == nil {
		opt.Logger = def.Logger
	}
	return &Serializer{opt: opt}
}

var defaultSerializer = New(Options{})

// Serialize converts v using the default serializer. See Serializer.Serialize.
func Serialize(v any, t *Type) (Node, error) { return defaultSerializer.Serialize(v, t) }

// Serialize converts v into a tree. t is the declared type of v and may be
// nil, in which case the category comes from v's capabilities. A declared
// category always wins over runtime inspection.
//
// Mappings and multimaps, including empty and nil ones, always produce an
// *Object. The call is fail-fast: on error no partial tree is returned and
// the error is an Issues value.
func (s *Serializer) Serialize(v any, t *Type) (Node, error) {
	w := &walker{
		opt:   &s.opt,
		log:   s.opt.Logger,
		debug: s.opt.Logger.Enabled(context.Background(), slog.LevelDebug),
	}
	if !s.opt.SkipCycleCheck {
		w.visiting = make(map[visitKey]struct{})
	}
	n, err := w.value(nil, v, t, 0)
	if err != nil {
		if w.debug {
			if iss, ok := AsIssues(err); ok && len(iss) > 0 {
				w.log.Debug("serialize failed", "code", iss[0].Code, "path", iss[0].Path, "hint", iss[0].Hint)
			}
		}
		return nil, err
	}
	return n, nil
}

// walker carries the state of one Serialize call.
type walker struct {
	opt      *Options
	log      *slog.Logger
	debug    bool
	visiting map[visitKey]struct{}
}

type visitKey struct {
	ptr uintptr
	typ reflect.Type
	len int
}

// value is the dispatcher: resolve the category, then route.
func (w *walker) value(p *pathRef, v any, t *Type, depth int) (Node, error) {
	if depth > w.opt.MaxDepth {
		return nil, issueAt(p, CodeDepthExceeded, "", nil)
	}
	v, err := w.indirect(p, v)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return Null(), nil
	}

	cat := t.CategoryOf()
	if cat == CategoryAny {
		if d, ok := v.(Described); ok {
			if dt := d.Descriptor(); dt.CategoryOf() != CategoryAny {
				t, cat = dt, dt.Category
			}
		}
	}
	if cat == CategoryAny {
		c, err := w.opt.Resolver.Classify(v)
		if err != nil {
			return nil, rebase(p, err)
		}
		cat = c
		if w.debug && cat != CategoryScalar {
			w.log.Debug("category resolved at runtime", "path", p.Pointer(), "type", describe(v), "category", cat.String())
		}
	}

	switch cat {
	case CategoryMapping:
		return w.mapping(p, v, t, depth)
	case CategoryMultimapping:
		return w.multimap(p, v, t, depth)
	case CategorySequence:
		return w.sequence(p, v, t, depth)
	case CategoryScalar:
		leaf, err := w.opt.LeafEncoder.EncodeScalar(v)
		if err != nil {
			return nil, issueAt(p, CodeUnencodableScalar, describe(v), err)
		}
		return leaf, nil
	default:
		return nil, issueAt(p, CodeInvalidDescriptor, t.String(), nil)
	}
}

// indirect follows pointers and interfaces down to the value to serialize.
// Pointers that carry a capability (Mapping, Multimapping, TextMarshaler)
// are kept as they are. A nil pointer yields nil.
func (w *walker) indirect(p *pathRef, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	var seen map[uintptr]struct{}
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, nil
		}
		rt := rv.Type()
		if rt.Implements(mappingType) || rt.Implements(multimappingType) || rt.Implements(textMarshalerType) {
			break
		}
		if rv.Kind() == reflect.Pointer {
			if seen == nil {
				seen = make(map[uintptr]struct{})
			}
			if _, dup := seen[rv.Pointer()]; dup {
				return nil, issueAt(p, CodeCyclicStructure, rt.String(), nil)
			}
			seen[rv.Pointer()] = struct{}{}
		}
		rv = rv.Elem()
	}
	return rv.Interface(), nil
}

// enter marks a reference-typed container as being on the current path and
// returns the function that unmarks it.
func (w *walker) enter(p *pathRef, v any) (func(), error) {
	if w.visiting == nil {
		return func() {}, nil
	}
	rv := reflect.ValueOf(v)
	var k visitKey
	switch rv.Kind() {
	case reflect.Map, reflect.Pointer:
		if rv.IsNil() {
			return func() {}, nil
		}
		k = visitKey{ptr: rv.Pointer(), typ: rv.Type()}
	case reflect.Slice:
		if rv.Len() == 0 {
			return func() {}, nil
		}
		k = visitKey{ptr: rv.Pointer(), typ: rv.Type(), len: rv.Len()}
	default:
		return func() {}, nil
	}
	if _, dup := w.visiting[k]; dup {
		return nil, issueAt(p, CodeCyclicStructure, describe(v), nil)
	}
	w.visiting[k] = struct{}{}
	return func() { delete(w.visiting, k) }, nil
}

func (w *walker) sequence(p *pathRef, v any, t *Type, depth int) (Node, error) {
	_, elemT := w.opt.Resolver.ResolveElementTypes(t)
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, issueAt(p, CodeTypeMismatch, "sequence declared, got "+describe(v), nil)
	}
	leave, err := w.enter(p, v)
	if err != nil {
		return nil, err
	}
	defer leave()

	out := make(Array, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		n, err := w.value(p.Index(i), rv.Index(i).Interface(), elemT, depth+1)
		if err != nil {
			return nil, err
		}
		if w.omit(n) {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (w *walker) omit(n Node) bool {
	if w.opt.NullPolicy != NullOmit {
		return false
	}
	l, ok := n.(Leaf)
	return ok && l.Kind == LeafNull
}

// rebase moves resolver issues to the current path.
func rebase(p *pathRef, err error) error {
	iss, ok := AsIssues(err)
	if !ok {
		return issueAt(p, CodeAmbiguousCategory, "", err)
	}
	out := make(Issues, len(iss))
	for i, it := range iss {
		it.Path = p.Pointer()
		out[i] = it
	}
	return out
}
