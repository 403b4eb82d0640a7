package runtime

import "testing"

func TestCompactRewritesRoots(t *testing.T) {
	rt := NewRuntime()
	garbage := rt.NewStr("garbage")
	kept := rt.NewStr("kept")
	rt.Heap().AddRoot(&kept)
	defer rt.Heap().RemoveRoot(&kept)

	if rt.Heap().Len() < 2 {
		t.Fatalf("expected at least 2 live cells, got %d", rt.Heap().Len())
	}
	rt.Heap().Compact()

	if got, _ := rt.StrValue(kept); got != "kept" {
		t.Fatalf("rooted object lost after compaction: %q", got)
	}
	if rt.Heap().Len() != 1 {
		t.Fatalf("expected 1 live cell after compaction, got %d", rt.Heap().Len())
	}
	_ = garbage
}

func TestCompactRemapsInteriorReferences(t *testing.T) {
	rt := NewRuntime()
	// Allocate filler first so the list's items sit at high slot indices
	// and must move during compaction.
	for i := 0; i < 16; i++ {
		rt.NewStr("filler")
	}
	a := rt.NewStr("alpha")
	b := rt.NewStr("beta")
	list := rt.NewList(a, b)
	rt.Heap().AddRoot(&list)
	defer rt.Heap().RemoveRoot(&list)

	rt.Heap().Compact()

	items, ok := rt.ListItems(list)
	if !ok || len(items) != 2 {
		t.Fatalf("list lost its items after compaction")
	}
	if got, _ := rt.StrValue(items[0]); got != "alpha" {
		t.Fatalf("items[0] = %q, want alpha", got)
	}
	if got, _ := rt.StrValue(items[1]); got != "beta" {
		t.Fatalf("items[1] = %q, want beta", got)
	}
}

func TestCompactTracesDictEntries(t *testing.T) {
	rt := NewRuntime()
	dict := rt.NewDict()
	if err := rt.DictSet(dict, rt.NewStr("key"), rt.NewStr("value")); err != nil {
		t.Fatalf("DictSet: %v", err)
	}
	rt.Heap().AddRoot(&dict)
	defer rt.Heap().RemoveRoot(&dict)

	rt.Heap().Compact()

	v, found, err := rt.DictGet(dict, rt.NewStr("key"))
	if err != nil || !found {
		t.Fatalf("dict lookup after compaction: found=%v err=%v", found, err)
	}
	if got, _ := rt.StrValue(v); got != "value" {
		t.Fatalf("dict value = %q, want value", got)
	}
}

func TestImmediatesNeedNoHeap(t *testing.T) {
	rt := NewRuntime()
	before := rt.Heap().Len()
	o := rt.NewInt(42)
	if !o.IsSmallInt() || o.SmallIntValue() != 42 {
		t.Fatalf("small int not packed into the word")
	}
	if rt.Heap().Len() != before {
		t.Fatalf("small int allocation touched the heap")
	}
	if !None().IsNone() || !Bool(true).BoolValue() {
		t.Fatalf("singleton words broken")
	}
}

func TestBigIntSpillsToHeap(t *testing.T) {
	rt := NewRuntime()
	big := rt.NewInt(SmallIntMax)
	sum, err := rt.InvokeFunction("operator", "add", big, rt.NewInt(1))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if sum.IsSmallInt() {
		t.Fatalf("overflowing sum should be heap allocated")
	}
	v, ok := rt.AsBigInt(sum)
	if !ok || v.Int64() != SmallIntMax+1 {
		t.Fatalf("sum = %v", v)
	}
}
