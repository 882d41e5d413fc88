package kvtree_test

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kvtree "github.com/reoring/kvtree"
)

func jsonOf(t *testing.T, n kvtree.Node) string {
	t.Helper()
	b, err := kvtree.MarshalJSON(n)
	require.NoError(t, err)
	return string(b)
}

func requireIssue(t *testing.T, err error, code, path string) {
	t.Helper()
	require.Error(t, err)
	iss, ok := kvtree.AsIssues(err)
	require.Truef(t, ok, "expected Issues, got %T: %v", err, err)
	require.Len(t, iss, 1)
	assert.Equal(t, code, iss[0].Code)
	assert.Equal(t, path, iss[0].Path)
	assert.NotEmpty(t, iss[0].Message)
}

// both exposes the Mapping and the Multimapping capability at once.
type both struct{}

func (both) Len() int { return 2 }
func (both) Range(fn func(k, v any) bool) {
	fn("as", "mapping")
}
func (both) Entries(fn func(k, v any) bool) {
	if fn("as", "multi") {
		fn("as", "mapping")
	}
}
func (both) Grouped() kvtree.Mapping { return nil }

func TestDispatch_AmbiguousWithoutDescriptor(t *testing.T) {
	_, err := kvtree.Serialize(both{}, nil)
	requireIssue(t, err, kvtree.CodeAmbiguousCategory, "/")
}

func TestDispatch_StaticIntentWins(t *testing.T) {
	n, err := kvtree.Serialize(both{}, mapStrStr)
	require.NoError(t, err)
	assert.Equal(t, `{"as":"mapping"}`, jsonOf(t, n))

	n, err = kvtree.Serialize(both{}, multiStrStr)
	require.NoError(t, err)
	// Grouped returns nil, so the view is computed from Entries.
	assert.Equal(t, `{"as":["multi","mapping"]}`, jsonOf(t, n))
}

func TestDispatch_MultimapDeclaredAsMappingIsMismatch(t *testing.T) {
	mm := kvtree.NewListMultimap[string, string]()
	mm.Put("a", "b")
	_, err := kvtree.Serialize(mm, mapStrStr)
	requireIssue(t, err, kvtree.CodeTypeMismatch, "/")
}

func TestDispatch_GoMapOfSlicesDeclaredAsMultimap(t *testing.T) {
	n, err := kvtree.Serialize(map[string][]string{"b": {"2"}, "a": {"1", "1"}}, multiStrStr)
	require.NoError(t, err)
	assert.Equal(t, `{"a":["1","1"],"b":["2"]}`, jsonOf(t, n))
}

func TestDispatch_NestedContainers(t *testing.T) {
	mm := kvtree.NewListMultimap[string, any]()
	mm.Put("h", map[string]int{"z": 1, "y": 2})
	mm.Put("h", []string{"p", "q"})
	in := map[string]any{
		"mm":   mm,
		"list": []any{1, "two", true, nil},
	}
	n, err := kvtree.Serialize(in, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"list":[1,"two",true,null],"mm":{"h":[{"y":2,"z":1},["p","q"]]}}`, jsonOf(t, n))
}

func TestDispatch_OrderedMapKeepsInsertionOrder(t *testing.T) {
	om := kvtree.NewOrderedMap[string, float64]()
	om.Set("b", 1.5)
	om.Set("a", 1e21)
	om.Set("c", -0.000001)
	n, err := kvtree.Serialize(om, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"b":1.5,"a":1e+21,"c":-0.000001}`, jsonOf(t, n))
}

func TestDispatch_KeyCoercion(t *testing.T) {
	n, err := kvtree.Serialize(map[int]string{2: "b", 10: "a", -1: "m"}, nil)
	require.NoError(t, err)
	// keys are sorted bytewise after coercion
	assert.Equal(t, `{"-1":"m","10":"a","2":"b"}`, jsonOf(t, n))

	ts := time.Date(2025, 1, 1, 9, 0, 0, 0, time.FixedZone("JST", 9*3600))
	n, err = kvtree.Serialize(map[time.Time]bool{ts: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"2025-01-01T00:00:00Z":true}`, jsonOf(t, n))

	// float keys read the same as float leaves
	n, err = kvtree.Serialize(map[float32]float32{0.1: 0.1}, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"0.1":0.1}`, jsonOf(t, n))
	n, err = kvtree.Serialize(map[float64]bool{1e21: true, 1e-7: false}, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"1e+21":true,"1e-7":false}`, jsonOf(t, n))
}

func TestDispatch_DuplicateCoercedKeys(t *testing.T) {
	_, err := kvtree.Serialize(map[any]string{1: "int", "1": "string"}, nil)
	requireIssue(t, err, kvtree.CodeDuplicateKey, "/1")
}

func TestDispatch_NullPolicy(t *testing.T) {
	in := map[string]any{"a": nil, "b": []any{nil, 1}}

	n, err := kvtree.Serialize(in, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"a":null,"b":[null,1]}`, jsonOf(t, n))

	s := kvtree.New(kvtree.Options{NullPolicy: kvtree.NullOmit})
	n, err = s.Serialize(in, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"b":[1]}`, jsonOf(t, n))

	n, err = s.Serialize(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, kvtree.Null(), n)
}

func TestDispatch_NilPointerIsNull(t *testing.T) {
	var mm *kvtree.ListMultimap[string, string]
	n, err := kvtree.Serialize(mm, multiStrStr)
	require.NoError(t, err)
	assert.Equal(t, kvtree.Null(), n)

	s := "x"
	pp := &s
	n, err = kvtree.Serialize(map[string]**string{"p": &pp}, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"p":"x"}`, jsonOf(t, n))
}

func TestDispatch_UnencodableScalar(t *testing.T) {
	_, err := kvtree.Serialize(map[string]any{"c": complex(1, 2)}, nil)
	requireIssue(t, err, kvtree.CodeUnencodableScalar, "/c")
	assert.True(t, errors.Is(err, kvtree.ErrUnencodableScalar))

	mm := kvtree.NewListMultimap[string, float64]()
	mm.PutAll("f", 1, math.NaN())
	_, err = kvtree.Serialize(mm, nil)
	requireIssue(t, err, kvtree.CodeUnencodableScalar, "/f/1")
}

func TestDispatch_StructIsAmbiguous(t *testing.T) {
	_, err := kvtree.Serialize(map[string]any{"s": struct{ A int }{1}}, nil)
	requireIssue(t, err, kvtree.CodeAmbiguousCategory, "/s")
}

func TestDispatch_SequenceDeclaredOverScalar(t *testing.T) {
	_, err := kvtree.Serialize(map[string]string{"a": "b"}, kvtree.MapOf(str, kvtree.SequenceOf(str)))
	requireIssue(t, err, kvtree.CodeTypeMismatch, "/a")
}

func TestDispatch_InvalidKeyDescriptor(t *testing.T) {
	bad := kvtree.MapOf(kvtree.SequenceOf(str), str)
	_, err := kvtree.Serialize(map[string]string{}, bad)
	requireIssue(t, err, kvtree.CodeInvalidDescriptor, "/")
}

func TestDispatch_CycleDetection(t *testing.T) {
	m := map[string]any{}
	m["self"] = m
	_, err := kvtree.Serialize(m, nil)
	requireIssue(t, err, kvtree.CodeCyclicStructure, "/self")

	s := []any{nil}
	s[0] = s
	_, err = kvtree.Serialize(s, nil)
	requireIssue(t, err, kvtree.CodeCyclicStructure, "/0")

	var x any
	x = &x
	_, err = kvtree.Serialize(map[string]any{"p": x}, nil)
	requireIssue(t, err, kvtree.CodeCyclicStructure, "/p")

	mm := kvtree.NewListMultimap[string, any]()
	mm.Put("me", mm)
	_, err = kvtree.Serialize(mm, nil)
	requireIssue(t, err, kvtree.CodeCyclicStructure, "/me/0")
}

func TestDispatch_SharedButAcyclicIsFine(t *testing.T) {
	shared := map[string]int{"n": 1}
	n, err := kvtree.Serialize(map[string]any{"a": shared, "b": shared}, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"n":1},"b":{"n":1}}`, jsonOf(t, n))
}

func TestDispatch_DepthLimit(t *testing.T) {
	var v any = "leaf"
	for i := 0; i < 5; i++ {
		v = map[string]any{"n": v}
	}
	s := kvtree.New(kvtree.Options{MaxDepth: 3})
	_, err := s.Serialize(v, nil)
	requireIssue(t, err, kvtree.CodeDepthExceeded, "/n/n/n/n")

	m := map[string]any{}
	m["self"] = m
	_, err = kvtree.New(kvtree.Options{MaxDepth: 8, SkipCycleCheck: true}).Serialize(m, nil)
	require.True(t, kvtree.HasCode(err, kvtree.CodeDepthExceeded))
}

func TestDispatch_PathEscaping(t *testing.T) {
	_, err := kvtree.Serialize(map[string]any{"a/b~c": complex64(1)}, nil)
	requireIssue(t, err, kvtree.CodeUnencodableScalar, "/a~1b~0c")
}

type failingEncoder struct{ kvtree.DefaultLeafEncoder }

var errBoom = errors.New("boom")

func (failingEncoder) EncodeScalar(v any) (kvtree.Leaf, error) {
	if v == "bad" {
		return kvtree.Leaf{}, errBoom
	}
	return kvtree.DefaultLeafEncoder{}.EncodeScalar(v)
}

func TestDispatch_CustomLeafEncoderErrorPropagates(t *testing.T) {
	s := kvtree.New(kvtree.Options{LeafEncoder: failingEncoder{}})
	mm := kvtree.NewListMultimap[string, string]()
	mm.PutAll("k", "ok", "bad")
	n, err := s.Serialize(mm, nil)
	assert.Nil(t, n)
	requireIssue(t, err, kvtree.CodeUnencodableScalar, "/k/1")
	assert.ErrorIs(t, err, errBoom)
}

func TestSerializer_LogsRuntimeFallback(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s := kvtree.New(kvtree.Options{Logger: logger})

	_, err := s.Serialize(map[string]any{"a": []int{1}}, nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "category resolved at runtime")
	assert.Contains(t, buf.String(), "path=/a")
}

func TestSerializer_ConcurrentUse(t *testing.T) {
	s := kvtree.New(kvtree.Options{})
	mm := kvtree.NewListMultimap[string, int]()
	mm.PutAll("a", 1, 2, 3)
	mm.PutAll("b", 4)
	want := `{"a":[1,2,3],"b":[4]}`

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := s.Serialize(mm, nil)
			if err != nil {
				errs <- err
				return
			}
			b, _ := kvtree.MarshalJSON(n)
			if string(b) != want {
				errs <- errors.New("unexpected output " + string(b))
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
