package kvtree_test

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"

	kvtree "github.com/reoring/kvtree"
)

var (
	str          = kvtree.ScalarOf(kvtree.ScalarString)
	mapStrStr    = kvtree.MapOf(str, str)
	multiStrStr  = kvtree.MultimapOf(str, str)
	groupsStrStr = kvtree.MapOf(str, kvtree.SequenceOf(str))
)

func mustSerialize(t *testing.T, v any, typ *kvtree.Type) kvtree.Node {
	t.Helper()
	n, err := kvtree.Serialize(v, typ)
	require.NoError(t, err)
	require.NotNil(t, n)
	return n
}

func asObject(t *testing.T, n kvtree.Node) *kvtree.Object {
	t.Helper()
	obj, ok := n.(*kvtree.Object)
	require.Truef(t, ok, "expected *Object, got %s", spew.Sdump(n))
	return obj
}

func requireTreeEqual(t *testing.T, want, got kvtree.Node) {
	t.Helper()
	if !kvtree.Equal(want, got) {
		t.Fatalf("trees differ\nwant: %s\ngot:  %s", spew.Sdump(want), spew.Sdump(got))
	}
}

func TestEmptyMap_NoType(t *testing.T) {
	obj := asObject(t, mustSerialize(t, map[string]string{}, nil))
	require.Zero(t, obj.Len())
}

func TestEmptyMap_Typed(t *testing.T) {
	obj := asObject(t, mustSerialize(t, map[string]string{}, mapStrStr))
	require.Zero(t, obj.Len())
}

func TestNilMap_IsEmptyObject(t *testing.T) {
	var m map[string]string
	obj := asObject(t, mustSerialize(t, m, nil))
	require.Zero(t, obj.Len())
}

func TestNonEmptyMap_Typed(t *testing.T) {
	obj := asObject(t, mustSerialize(t, map[string]string{"key1": "value1"}, mapStrStr))
	require.True(t, obj.Has("key1"))
	v, _ := obj.Get("key1")
	require.Equal(t, kvtree.String("value1"), v)
}

func TestEmptyMultimap_NoType(t *testing.T) {
	obj := asObject(t, mustSerialize(t, kvtree.NewListMultimap[string, string](), nil))
	require.Zero(t, obj.Len())
}

func TestEmptyMultimap_Typed(t *testing.T) {
	obj := asObject(t, mustSerialize(t, kvtree.NewListMultimap[string, string](), multiStrStr))
	require.Zero(t, obj.Len())
}

func TestNonEmptyMultimap_MatchesGroupedView(t *testing.T) {
	mm := kvtree.NewListMultimap[string, string]()
	mm.Put("key1", "value1")

	got := mustSerialize(t, mm, multiStrStr)
	require.True(t, asObject(t, got).Has("key1"))

	asMap := mustSerialize(t, mm.AsMap(), nil)
	requireTreeEqual(t, asMap, got)
}

func TestDupKeyMultimap_MatchesGroupedView(t *testing.T) {
	mm := kvtree.NewListMultimap[string, string]()
	mm.Put("key1", "value1")
	mm.Put("key1", "value2")
	mm.Put("key1", "value3")
	mm.Put("key2", "valueA")

	got := mustSerialize(t, mm, multiStrStr)
	obj := asObject(t, got)
	require.True(t, obj.Has("key1"))
	require.True(t, obj.Has("key2"))

	requireTreeEqual(t, mustSerialize(t, mm.AsMap(), nil), got)
	requireTreeEqual(t, mustSerialize(t, mm.Grouped(), groupsStrStr), got)

	out, err := kvtree.MarshalJSON(got)
	require.NoError(t, err)
	require.Equal(t, `{"key1":["value1","value2","value3"],"key2":["valueA"]}`, string(out))
}

func TestMultimap_DuplicateValuesPreserved(t *testing.T) {
	mm := kvtree.NewListMultimap[string, int]()
	mm.PutAll("k", 7, 7, 3, 7)

	obj := asObject(t, mustSerialize(t, mm, nil))
	group, ok := obj.Get("k")
	require.True(t, ok)
	requireTreeEqual(t, kvtree.Array{
		kvtree.Number("7"), kvtree.Number("7"), kvtree.Number("3"), kvtree.Number("7"),
	}, group)
}

func TestMultimap_SingleValuedStillClassifiedAsMultimap(t *testing.T) {
	mm := kvtree.NewListMultimap[string, string]()
	mm.Put("a", "1")
	mm.Put("b", "2")

	out, err := kvtree.MarshalJSON(mustSerialize(t, mm, nil))
	require.NoError(t, err)
	require.Equal(t, `{"a":["1"],"b":["2"]}`, string(out))
}

func TestMultimap_GoMapOfGroupsWithSortedKeysIsEquivalent(t *testing.T) {
	mm := kvtree.NewListMultimap[string, string]()
	mm.Put("alpha", "1")
	mm.Put("beta", "2")
	mm.Put("alpha", "3")

	// Go maps serialize in sorted key order, which matches the insertion
	// order used above.
	plain := map[string][]string{"alpha": {"1", "3"}, "beta": {"2"}}
	requireTreeEqual(t, mustSerialize(t, plain, nil), mustSerialize(t, mm, nil))
}

// Randomized check of the grouping properties over many shapes.
func TestProperties_RandomMultimaps(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 1847))
	for round := 0; round < 200; round++ {
		mm := kvtree.NewListMultimap[string, int]()
		pairs := rng.IntN(12)
		for i := 0; i < pairs; i++ {
			mm.Put(fmt.Sprintf("k%d", rng.IntN(5)), rng.IntN(3))
		}

		untyped := mustSerialize(t, mm, nil)
		typed := mustSerialize(t, mm, kvtree.MultimapOf(str, kvtree.ScalarOf(kvtree.ScalarInt)))
		view := mustSerialize(t, mm.AsMap(), nil)
		requireTreeEqual(t, view, untyped)
		requireTreeEqual(t, view, typed)

		obj := asObject(t, untyped)
		require.Equal(t, mm.KeyLen(), obj.Len())
		for _, k := range mm.Keys() {
			group, ok := obj.Get(k)
			require.Truef(t, ok, "round %d: missing key %s", round, k)
			want := kvtree.Array{}
			for _, v := range mm.Get(k) {
				want = append(want, kvtree.Number(strconv.Itoa(v)))
			}
			requireTreeEqual(t, want, group)
		}
	}
}

func TestProperties_RandomPlainMaps(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	for round := 0; round < 200; round++ {
		m := map[int]string{}
		n := rng.IntN(10)
		for i := 0; i < n; i++ {
			m[rng.IntN(1000)-500] = strconv.Itoa(i)
		}
		obj := asObject(t, mustSerialize(t, m, nil))
		require.Equal(t, len(m), obj.Len())
		for k, v := range m {
			got, ok := obj.Get(strconv.Itoa(k))
			require.True(t, ok)
			require.Equal(t, kvtree.String(v), got)
		}
	}
}

func TestSyncMultimap_MatchesListMultimap(t *testing.T) {
	sm := kvtree.NewSyncMultimap[string, string]()
	lm := kvtree.NewListMultimap[string, string]()
	for _, kv := range [][2]string{{"x", "1"}, {"y", "2"}, {"x", "3"}} {
		sm.Put(kv[0], kv[1])
		lm.Put(kv[0], kv[1])
	}
	requireTreeEqual(t, mustSerialize(t, lm, nil), mustSerialize(t, sm, nil))
}
