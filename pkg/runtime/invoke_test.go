package runtime

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLookupMethodWalksMRO(t *testing.T) {
	rt := NewRuntime()
	base := rt.NewType("base", nil, map[string]Method{
		"greet": func(r *Runtime, self Object, args ...Object) (Object, error) {
			return r.NewStr("hello"), nil
		},
	})
	derived := rt.NewType("derived", base, nil)

	if _, ok := rt.LookupMethod(derived, "greet"); !ok {
		t.Fatalf("inherited method not found through MRO")
	}
	if _, ok := rt.LookupMethod(derived, "missing"); ok {
		t.Fatalf("phantom method found")
	}
	if !derived.IsSubtype(base) || base.IsSubtype(derived) {
		t.Fatalf("subtype relation wrong")
	}
}

func TestBinaryOpDispatch(t *testing.T) {
	rt := NewRuntime()
	res, err := rt.InvokeFunction("operator", "add", rt.NewInt(2), rt.NewInt(3))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if v, _ := rt.AsInt(res); v != 5 {
		t.Fatalf("2+3 = %d", v)
	}

	// Mixed int/float goes through the reflected method.
	res, err = rt.InvokeFunction("operator", "add", rt.NewInt(2), rt.NewFloat(0.5))
	if err != nil {
		t.Fatalf("mixed add: %v", err)
	}
	if f, _ := rt.FloatValue(res); f != 2.5 {
		t.Fatalf("2+0.5 = %v", f)
	}
}

func TestBinaryOpUnsupported(t *testing.T) {
	rt := NewRuntime()
	_, err := rt.InvokeFunction("operator", "add", rt.NewInt(1), rt.NewStr("x"))
	if !errors.Is(err, ErrRaised) {
		t.Fatalf("err = %v, want ErrRaised", err)
	}
	pending := rt.PendingError()
	if pending == nil || pending.Kind != TypeError {
		t.Fatalf("pending = %v", pending)
	}
	want := "unsupported operand type(s) for +: 'int' and 'str'"
	if pending.Msg != want {
		t.Fatalf("msg = %q, want %q", pending.Msg, want)
	}
	rt.ClearPendingError()
	if rt.HasPendingError() {
		t.Fatalf("pending error survived clear")
	}
}

func TestInvokeMissReportsNothing(t *testing.T) {
	rt := NewRuntime()
	_, err := rt.Invoke(rt.NewInt(1), "__len__")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if rt.HasPendingError() {
		t.Fatalf("lookup miss must not raise")
	}
}

func TestIteration(t *testing.T) {
	rt := NewRuntime()
	list := rt.NewList(rt.NewInt(10), rt.NewInt(20), rt.NewInt(30))
	iter, err := rt.CreateIterator(list)
	if err != nil {
		t.Fatalf("CreateIterator: %v", err)
	}
	var got []int64
	for {
		item, done, err := rt.IterNext(iter)
		if err != nil {
			t.Fatalf("IterNext: %v", err)
		}
		if done {
			break
		}
		v, _ := rt.AsInt(item)
		got = append(got, v)
	}
	if diff := cmp.Diff([]int64{10, 20, 30}, got); diff != "" {
		t.Fatalf("iteration mismatch (-want +got):\n%s", diff)
	}
	if rt.HasPendingError() {
		t.Fatalf("exhaustion left a pending error")
	}
}

func TestCreateIteratorRejectsNonIterable(t *testing.T) {
	rt := NewRuntime()
	_, err := rt.CreateIterator(rt.NewInt(7))
	if !errors.Is(err, ErrRaised) {
		t.Fatalf("err = %v", err)
	}
	if rt.PendingError().Msg != "'int' object is not iterable" {
		t.Fatalf("msg = %q", rt.PendingError().Msg)
	}
	rt.ClearPendingError()
}

func TestInPlaceFallsBackToBinary(t *testing.T) {
	rt := NewRuntime()
	res, err := rt.InvokeFunction("operator", "iadd", rt.NewInt(1), rt.NewInt(2))
	if err != nil {
		t.Fatalf("iadd: %v", err)
	}
	if v, _ := rt.AsInt(res); v != 3 {
		t.Fatalf("1 += 2 -> %d", v)
	}

	// Lists implement __iadd__ and mutate in place.
	list := rt.NewList(rt.NewInt(1))
	res, err = rt.InvokeFunction("operator", "iadd", list, rt.NewList(rt.NewInt(2)))
	if err != nil {
		t.Fatalf("list iadd: %v", err)
	}
	if !res.Is(list) {
		t.Fatalf("list __iadd__ should return the receiver")
	}
	items, _ := rt.ListItems(list)
	if len(items) != 2 {
		t.Fatalf("list not extended: %d items", len(items))
	}
}

func TestDictOperations(t *testing.T) {
	rt := NewRuntime()
	dict := rt.NewDict()
	if err := rt.DictSet(dict, rt.NewStr("a"), rt.NewInt(1)); err != nil {
		t.Fatalf("DictSet: %v", err)
	}
	if err := rt.DictSet(dict, rt.NewInt(2), rt.NewStr("two")); err != nil {
		t.Fatalf("DictSet int key: %v", err)
	}
	if _, err := rt.Invoke(dict, "__getitem__", rt.NewStr("missing")); !errors.Is(err, ErrRaised) {
		t.Fatalf("missing key should raise")
	}
	if rt.PendingKind() != KeyError {
		t.Fatalf("kind = %v, want KeyError", rt.PendingKind())
	}
	rt.ClearPendingError()

	// Unhashable keys raise TypeError.
	if err := rt.DictSet(dict, rt.NewList(), None()); !errors.Is(err, ErrRaised) {
		t.Fatalf("unhashable key should raise")
	}
	if rt.PendingError().Msg != "unhashable type: 'list'" {
		t.Fatalf("msg = %q", rt.PendingError().Msg)
	}
	rt.ClearPendingError()
}

func TestDictFloatKeys(t *testing.T) {
	rt := NewRuntime()
	dict := rt.NewDict()

	// Integral floats within int64 range share the int key space.
	if err := rt.DictSet(dict, rt.NewFloat(2.0), rt.NewStr("two")); err != nil {
		t.Fatalf("DictSet: %v", err)
	}
	v, found, err := rt.DictGet(dict, rt.NewInt(2))
	if err != nil || !found {
		t.Fatalf("2.0 and 2 should key alike: found=%v err=%v", found, err)
	}
	if s, _ := rt.StrValue(v); s != "two" {
		t.Fatalf("value = %q, want %q", s, "two")
	}

	// Huge integral floats must stay distinct keys.
	if err := rt.DictSet(dict, rt.NewFloat(1e19), rt.NewStr("first")); err != nil {
		t.Fatalf("DictSet 1e19: %v", err)
	}
	if err := rt.DictSet(dict, rt.NewFloat(2e19), rt.NewStr("second")); err != nil {
		t.Fatalf("DictSet 2e19: %v", err)
	}
	if n, _ := rt.DictLen(dict); n != 3 {
		t.Fatalf("distinct keys must coexist, got %d entries", n)
	}
	v, found, err = rt.DictGet(dict, rt.NewFloat(1e19))
	if err != nil || !found {
		t.Fatalf("1e19 lookup: found=%v err=%v", found, err)
	}
	if s, _ := rt.StrValue(v); s != "first" {
		t.Fatalf("value = %q, want %q", s, "first")
	}
}

func TestTruthiness(t *testing.T) {
	rt := NewRuntime()
	cases := []struct {
		obj  Object
		want bool
	}{
		{rt.NewInt(0), false},
		{rt.NewInt(3), true},
		{None(), false},
		{rt.NewStr(""), false},
		{rt.NewStr("x"), true},
		{rt.NewList(), false},
		{rt.NewList(None()), true},
	}
	for _, tc := range cases {
		got, err := rt.IsTrue(tc.obj)
		if err != nil {
			t.Fatalf("IsTrue(%s): %v", rt.Repr(tc.obj), err)
		}
		if got != tc.want {
			t.Fatalf("IsTrue(%s) = %v, want %v", rt.Repr(tc.obj), got, tc.want)
		}
	}
}
