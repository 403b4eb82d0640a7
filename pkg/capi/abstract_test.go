package capi

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrigankpawagi/skybison/pkg/runtime"
)

func wrapInt(t *testing.T, s *State, v int64) *Handle {
	t.Helper()
	h := s.Wrap(s.Runtime().NewInt(v))
	t.Cleanup(func() { h.DecRef() })
	return h
}

func intOf(t *testing.T, s *State, h *Handle) int64 {
	t.Helper()
	require.NotNil(t, h)
	v, ok := s.Runtime().AsInt(h.Object())
	require.True(t, ok)
	h.DecRef()
	return v
}

func TestNumberAddFastPath(t *testing.T) {
	s := newTestState(t)
	rt := s.Runtime()

	res := s.NumberAdd(wrapInt(t, s, 2), wrapInt(t, s, 3))
	require.NotNil(t, res)
	assert.True(t, res.Object().IsSmallInt())
	assert.Equal(t, int64(5), intOf(t, s, res))

	// The fast path spills to the slow path at the payload boundary.
	res = s.NumberAdd(wrapInt(t, s, runtime.SmallIntMax), wrapInt(t, s, 1))
	require.NotNil(t, res)
	assert.False(t, res.Object().IsSmallInt())
	v, ok := rt.AsBigInt(res.Object())
	require.True(t, ok)
	want := new(big.Int).Add(big.NewInt(runtime.SmallIntMax), big.NewInt(1))
	assert.Zero(t, v.Cmp(want))
	res.DecRef()
}

func TestNumberDispatch(t *testing.T) {
	s := newTestState(t)
	rt := s.Runtime()

	res := s.NumberMultiply(wrapInt(t, s, 6), wrapInt(t, s, 7))
	assert.Equal(t, int64(42), intOf(t, s, res))

	f := s.Wrap(rt.NewFloat(0.5))
	defer f.DecRef()
	res = s.NumberAdd(wrapInt(t, s, 1), f)
	require.NotNil(t, res)
	fv, ok := rt.FloatValue(res.Object())
	require.True(t, ok)
	assert.Equal(t, 1.5, fv)
	res.DecRef()

	res = s.NumberTrueDivide(wrapInt(t, s, 1), wrapInt(t, s, 0))
	require.Nil(t, res)
	requireRaised(t, s, runtime.ZeroDivisionError, "division by zero")

	str := s.Wrap(rt.NewStr("x"))
	defer str.DecRef()
	res = s.NumberAdd(wrapInt(t, s, 1), str)
	require.Nil(t, res)
	requireRaised(t, s, runtime.TypeError,
		"unsupported operand type(s) for +: 'int' and 'str'")

	res = s.NumberNegative(wrapInt(t, s, 9))
	assert.Equal(t, int64(-9), intOf(t, s, res))
}

func TestNumberConversions(t *testing.T) {
	s := newTestState(t)
	rt := s.Runtime()

	assert.True(t, s.NumberCheck(wrapInt(t, s, 1)))
	str := s.Wrap(rt.NewStr("no"))
	defer str.DecRef()
	assert.False(t, s.NumberCheck(str))

	f := s.Wrap(rt.NewFloat(3.9))
	defer f.DecRef()
	res := s.NumberLong(f)
	assert.Equal(t, int64(3), intOf(t, s, res))

	res = s.NumberFloat(wrapInt(t, s, 2))
	require.NotNil(t, res)
	fv, _ := rt.FloatValue(res.Object())
	assert.Equal(t, 2.0, fv)
	res.DecRef()

	n, ok := s.NumberAsSize(wrapInt(t, s, 41), runtime.OverflowError, false)
	require.True(t, ok)
	assert.Equal(t, 41, n)

	huge := s.Wrap(rt.NewIntFromBig(new(big.Int).Lsh(big.NewInt(1), 80)))
	defer huge.DecRef()
	_, ok = s.NumberAsSize(huge, runtime.OverflowError, false)
	require.False(t, ok)
	requireRaised(t, s, runtime.OverflowError,
		"cannot fit 'int' into an index-sized integer")

	n, ok = s.NumberAsSize(huge, runtime.OverflowError, true)
	require.True(t, ok)
	assert.Equal(t, maxInt, n)

	res = s.NumberToBase(wrapInt(t, s, -255), 16)
	require.NotNil(t, res)
	text, _ := rt.StrValue(res.Object())
	assert.Equal(t, "-0xff", text)
	res.DecRef()
}

func TestObjectLengthTaxonomy(t *testing.T) {
	s := newTestState(t)
	rt := s.Runtime()

	lst := s.Wrap(rt.NewList(rt.NewInt(1), rt.NewInt(2)))
	defer lst.DecRef()
	n, ok := s.ObjectLength(lst)
	require.True(t, ok)
	assert.Equal(t, 2, n)

	num := wrapInt(t, s, 3)
	_, ok = s.ObjectLength(num)
	require.False(t, ok)
	requireRaised(t, s, runtime.TypeError, "object of type 'int' has no len()")

	n, ok = s.ObjectLengthHint(num, 11)
	require.True(t, ok)
	assert.Equal(t, 11, n)
}

func TestSequenceProtocol(t *testing.T) {
	s := newTestState(t)
	rt := s.Runtime()

	lst := s.Wrap(rt.NewList(rt.NewInt(10), rt.NewInt(20), rt.NewInt(20)))
	defer lst.DecRef()
	require.True(t, s.SequenceCheck(lst))

	item := s.SequenceGetItem(lst, -1)
	assert.Equal(t, int64(20), intOf(t, s, item))

	item = s.SequenceGetItem(lst, 5)
	require.Nil(t, item)
	assert.Equal(t, runtime.IndexError, s.PendingError().Kind)
	s.ClearPendingError()

	require.True(t, s.SequenceSetItem(lst, 0, wrapInt(t, s, 99)))
	item = s.SequenceGetItem(lst, 0)
	assert.Equal(t, int64(99), intOf(t, s, item))

	found, ok := s.SequenceContains(lst, wrapInt(t, s, 20))
	require.True(t, ok)
	assert.True(t, found)

	cnt, ok := s.SequenceCount(lst, wrapInt(t, s, 20))
	require.True(t, ok)
	assert.Equal(t, 2, cnt)

	idx, ok := s.SequenceIndex(lst, wrapInt(t, s, 20))
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	cat := s.SequenceConcat(lst, lst)
	require.NotNil(t, cat)
	items, _ := rt.ListItems(cat.Object())
	assert.Len(t, items, 6)
	cat.DecRef()

	rep := s.SequenceRepeat(lst, 2)
	require.NotNil(t, rep)
	items, _ = rt.ListItems(rep.Object())
	assert.Len(t, items, 6)
	rep.DecRef()

	// In-place concat mutates and returns the same list.
	same := s.SequenceInPlaceConcat(lst, lst)
	require.NotNil(t, same)
	assert.True(t, same.Object().Is(lst.Object()))
	items, _ = rt.ListItems(lst.Object())
	assert.Len(t, items, 6)
	same.DecRef()

	require.True(t, s.SequenceDelItem(lst, 0))
	n, _ := s.SequenceLength(lst)
	assert.Equal(t, 5, n)

	tup := s.SequenceTuple(lst)
	require.NotNil(t, tup)
	_, isTuple := rt.TupleItems(tup.Object())
	assert.True(t, isTuple)
	tup.DecRef()

	num := wrapInt(t, s, 3)
	require.False(t, s.SequenceCheck(num))
	fast := s.SequenceFast(num, "argument must be iterable")
	require.Nil(t, fast)
	requireRaised(t, s, runtime.TypeError, "argument must be iterable")
}

func TestSequenceSlices(t *testing.T) {
	s := newTestState(t)
	rt := s.Runtime()

	lst := s.Wrap(rt.NewList(rt.NewInt(0), rt.NewInt(1), rt.NewInt(2), rt.NewInt(3)))
	defer lst.DecRef()

	mid := s.SequenceGetSlice(lst, 1, 3)
	require.NotNil(t, mid)
	items, _ := rt.ListItems(mid.Object())
	require.Len(t, items, 2)
	assert.Equal(t, int64(1), items[0].SmallIntValue())
	mid.DecRef()

	// Bounds clip and negatives count from the end.
	tail := s.SequenceGetSlice(lst, -2, 100)
	require.NotNil(t, tail)
	items, _ = rt.ListItems(tail.Object())
	assert.Len(t, items, 2)
	tail.DecRef()

	text := s.Wrap(rt.NewStr("héllo"))
	defer text.DecRef()
	sub := s.SequenceGetSlice(text, 1, 3)
	require.NotNil(t, sub)
	got, _ := rt.StrValue(sub.Object())
	assert.Equal(t, "él", got)
	sub.DecRef()

	repl := s.Wrap(rt.NewTuple(rt.NewInt(8), rt.NewInt(9)))
	defer repl.DecRef()
	require.True(t, s.SequenceSetSlice(lst, 1, 3, repl))
	items, _ = rt.ListItems(lst.Object())
	require.Len(t, items, 4)
	assert.Equal(t, int64(8), items[1].SmallIntValue())
	assert.Equal(t, int64(9), items[2].SmallIntValue())

	require.True(t, s.SequenceDelSlice(lst, 0, 2))
	n, _ := s.SequenceLength(lst)
	assert.Equal(t, 2, n)

	num := wrapInt(t, s, 3)
	require.Nil(t, s.SequenceGetSlice(num, 0, 1))
	requireRaised(t, s, runtime.TypeError, "'int' object is unsliceable")

	require.False(t, s.SequenceSetSlice(num, 0, 1, repl))
	requireRaised(t, s, runtime.TypeError, "'int' object doesn't support slice assignment")

	require.False(t, s.SequenceSetSlice(lst, 0, 1, num))
	requireRaised(t, s, runtime.TypeError, "can only assign list or tuple (not \"int\") to a slice")
}

func TestMappingProtocol(t *testing.T) {
	s := newTestState(t)
	rt := s.Runtime()

	d := s.Wrap(rt.NewDict())
	defer d.DecRef()
	require.True(t, s.MappingCheck(d))

	require.True(t, s.MappingSetItemString(d, "answer", wrapInt(t, s, 42)))
	require.True(t, s.MappingHasKeyString(d, "answer"))
	require.False(t, s.MappingHasKeyString(d, "question"))
	assert.False(t, s.HasPendingError(), "HasKey probes must not leave a condition")

	got := s.MappingGetItemString(d, "answer")
	assert.Equal(t, int64(42), intOf(t, s, got))

	got = s.MappingGetItemString(d, "question")
	require.Nil(t, got)
	assert.Equal(t, runtime.KeyError, s.PendingError().Kind)
	s.ClearPendingError()

	keys := s.MappingKeys(d)
	require.NotNil(t, keys)
	items, _ := rt.ListItems(keys.Object())
	require.Len(t, items, 1)
	name, _ := rt.StrValue(items[0])
	assert.Equal(t, "answer", name)
	keys.DecRef()

	require.True(t, s.MappingDelItemString(d, "answer"))
	n, ok := s.MappingLength(d)
	require.True(t, ok)
	assert.Equal(t, 0, n)
}

func TestIterationProtocol(t *testing.T) {
	s := newTestState(t)
	rt := s.Runtime()

	lst := s.Wrap(rt.NewList(rt.NewInt(1), rt.NewInt(2)))
	defer lst.DecRef()
	iter := s.ObjectGetIter(lst)
	require.NotNil(t, iter)
	defer iter.DecRef()

	var got []int64
	for {
		item := s.ObjectIterNext(iter)
		if item == nil {
			break
		}
		got = append(got, intOf(t, s, item))
	}
	assert.Equal(t, []int64{1, 2}, got)
	assert.False(t, s.HasPendingError(), "exhaustion is not a condition")

	num := wrapInt(t, s, 3)
	require.Nil(t, s.ObjectGetIter(num))
	requireRaised(t, s, runtime.TypeError, "'int' object is not iterable")
}

func TestObjectCalls(t *testing.T) {
	s := newTestState(t)
	rt := s.Runtime()

	fn := s.Wrap(rt.NewFunction("double", func(r *runtime.Runtime, args ...runtime.Object) (runtime.Object, error) {
		v, _ := r.AsInt(args[0])
		return r.NewInt(2 * v), nil
	}))
	defer fn.DecRef()

	res := s.ObjectCall(fn, wrapInt(t, s, 8))
	assert.Equal(t, int64(16), intOf(t, s, res))

	args := s.Wrap(rt.NewTuple(rt.NewInt(5)))
	defer args.DecRef()
	res = s.ObjectCallObject(fn, args)
	assert.Equal(t, int64(10), intOf(t, s, res))

	num := wrapInt(t, s, 3)
	require.Nil(t, s.ObjectCall(num))
	requireRaised(t, s, runtime.TypeError, "'int' object is not callable")

	lst := s.Wrap(rt.NewList(rt.NewInt(1)))
	defer lst.DecRef()
	res = s.ObjectCallMethod(lst, "append", wrapInt(t, s, 2))
	require.NotNil(t, res)
	res.DecRef()
	n, _ := s.ObjectLength(lst)
	assert.Equal(t, 2, n)

	require.Nil(t, s.ObjectCallMethod(lst, "nonesuch"))
	requireRaised(t, s, runtime.AttributeError, "'list' object has no attribute 'nonesuch'")
}

func TestRecursionLimit(t *testing.T) {
	s := NewState(runtime.NewRuntime(), WithRecursionLimit(4))
	t.Cleanup(s.FinalizeHandles)
	rt := s.Runtime()

	var recurse runtime.Function
	depth := 0
	recurse = func(r *runtime.Runtime, args ...runtime.Object) (runtime.Object, error) {
		depth++
		fn := s.Wrap(r.NewFunction("recurse", recurse))
		defer fn.DecRef()
		if res := s.ObjectCall(fn); res != nil {
			res.DecRef()
			return runtime.None(), nil
		}
		return runtime.Object{}, runtime.ErrRaised
	}

	top := s.Wrap(rt.NewFunction("recurse", recurse))
	defer top.DecRef()
	require.Nil(t, s.ObjectCall(top))
	requireRaised(t, s, runtime.RuntimeError, "maximum recursion depth exceeded")
	assert.Equal(t, 4, depth)
}
