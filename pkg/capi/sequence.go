package capi

import (
	"github.com/mrigankpawagi/skybison/pkg/runtime"
)

// SequenceCheck reports whether o supports indexed access. Dicts are
// subscriptable but not sequences.
func (s *State) SequenceCheck(o *Handle) bool {
	t := s.rt.TypeOf(o.Object())
	if t.IsSubtype(s.rt.DictType) {
		return false
	}
	_, ok := s.rt.LookupMethod(t, "__getitem__")
	return ok
}

// SequenceLength returns len(o), -1 with the condition recorded on
// failure.
func (s *State) SequenceLength(o *Handle) (int, bool) {
	return s.objectLength(o)
}

// SequenceGetItem returns o[i], with direct item access for tuples and
// lists before falling back to dispatch.
func (s *State) SequenceGetItem(o *Handle, i int) *Handle {
	obj := o.Object()
	if items, ok := s.rt.TupleItems(obj); ok {
		return s.seqFastItem(items, i, "tuple")
	}
	if items, ok := s.rt.ListItems(obj); ok {
		return s.seqFastItem(items, i, "list")
	}
	res, err := s.rt.InvokeFunction("operator", "getitem", obj, s.rt.NewInt(int64(i)))
	return s.wrap(res, err)
}

func (s *State) seqFastItem(items []runtime.Object, i int, kind string) *Handle {
	if i < 0 {
		i += len(items)
	}
	if i < 0 || i >= len(items) {
		s.rt.Raise(runtime.IndexError, "%s index out of range", kind)
		return nil
	}
	return s.Wrap(items[i])
}

// SequenceSetItem assigns o[i] = v. A nil v deletes the item.
func (s *State) SequenceSetItem(o *Handle, i int, v *Handle) bool {
	if v == nil {
		return s.SequenceDelItem(o, i)
	}
	_, err := s.rt.InvokeFunction("operator", "setitem",
		o.Object(), s.rt.NewInt(int64(i)), v.Object())
	return err == nil
}

// SequenceDelItem deletes o[i].
func (s *State) SequenceDelItem(o *Handle, i int) bool {
	_, err := s.rt.InvokeFunction("operator", "delitem", o.Object(), s.rt.NewInt(int64(i)))
	return err == nil
}

// clipSlice resolves slice bounds the way the abstract layer does:
// negative indices count from the end, everything clips to [0, n] and an
// inverted range collapses to empty.
func clipSlice(lo, hi, n int) (int, int) {
	if lo < 0 {
		lo += n
	}
	if hi < 0 {
		hi += n
	}
	if lo < 0 {
		lo = 0
	}
	if hi > n {
		hi = n
	}
	if lo > n {
		lo = n
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// SequenceGetSlice returns o[lo:hi] for the sliceable builtin shapes.
func (s *State) SequenceGetSlice(o *Handle, lo, hi int) *Handle {
	obj := o.Object()
	if items, ok := s.rt.ListItems(obj); ok {
		lo, hi = clipSlice(lo, hi, len(items))
		return s.Wrap(s.rt.NewList(items[lo:hi]...))
	}
	if items, ok := s.rt.TupleItems(obj); ok {
		lo, hi = clipSlice(lo, hi, len(items))
		return s.Wrap(s.rt.NewTuple(items[lo:hi]...))
	}
	if text, ok := s.rt.StrValue(obj); ok {
		chars := []rune(text)
		lo, hi = clipSlice(lo, hi, len(chars))
		return s.Wrap(s.rt.NewStr(string(chars[lo:hi])))
	}
	if raw, ok := s.rt.BytesValue(obj); ok {
		lo, hi = clipSlice(lo, hi, len(raw))
		return s.Wrap(s.rt.NewBytes(raw[lo:hi]))
	}
	if raw, ok := s.rt.BytearrayBytes(obj); ok {
		lo, hi = clipSlice(lo, hi, len(raw))
		return s.Wrap(s.rt.NewBytearray(raw[lo:hi]))
	}
	s.rt.Raise(runtime.TypeError, "'%s' object is unsliceable", s.rt.TypeName(obj))
	return nil
}

// SequenceSetSlice assigns o[lo:hi] = v for lists, taking the replacement
// items from any list or tuple.
func (s *State) SequenceSetSlice(o *Handle, lo, hi int, v *Handle) bool {
	obj := o.Object()
	items, ok := s.rt.ListItems(obj)
	if !ok {
		s.rt.Raise(runtime.TypeError, "'%s' object doesn't support slice assignment",
			s.rt.TypeName(obj))
		return false
	}
	src := s.SequenceFastItems(v)
	if src == nil {
		s.rt.Raise(runtime.TypeError, "can only assign list or tuple (not \"%s\") to a slice",
			s.rt.TypeName(v.Object()))
		return false
	}
	// Copy first: v may be the target list itself.
	repl := make([]runtime.Object, len(src))
	copy(repl, src)
	lo, hi = clipSlice(lo, hi, len(items))
	return s.rt.ListReplaceRange(obj, lo, hi, repl)
}

// SequenceDelSlice deletes o[lo:hi] from a list.
func (s *State) SequenceDelSlice(o *Handle, lo, hi int) bool {
	obj := o.Object()
	items, ok := s.rt.ListItems(obj)
	if !ok {
		s.rt.Raise(runtime.TypeError, "'%s' object doesn't support slice deletion",
			s.rt.TypeName(obj))
		return false
	}
	lo, hi = clipSlice(lo, hi, len(items))
	return s.rt.ListReplaceRange(obj, lo, hi, nil)
}

// SequenceConcat returns l + r after checking both operands are
// sequences, so that numbers are rejected with the sequence wording
// rather than the operator one.
func (s *State) SequenceConcat(l, r *Handle) *Handle {
	if !s.SequenceCheck(l) || !s.SequenceCheck(r) {
		s.rt.Raise(runtime.TypeError, "'%s' object can't be concatenated",
			s.rt.TypeName(l.Object()))
		return nil
	}
	return s.operator2("add", l, r)
}

// SequenceRepeat returns o * count.
func (s *State) SequenceRepeat(o *Handle, count int) *Handle {
	if !s.SequenceCheck(o) {
		s.rt.Raise(runtime.TypeError, "'%s' object can't be repeated", s.rt.TypeName(o.Object()))
		return nil
	}
	res, err := s.rt.InvokeFunction("operator", "mul", o.Object(), s.rt.NewInt(int64(count)))
	return s.wrap(res, err)
}

// SequenceInPlaceConcat returns l += r.
func (s *State) SequenceInPlaceConcat(l, r *Handle) *Handle {
	if !s.SequenceCheck(l) || !s.SequenceCheck(r) {
		s.rt.Raise(runtime.TypeError, "'%s' object can't be concatenated",
			s.rt.TypeName(l.Object()))
		return nil
	}
	return s.operator2("iadd", l, r)
}

// SequenceInPlaceRepeat returns o *= count.
func (s *State) SequenceInPlaceRepeat(o *Handle, count int) *Handle {
	if !s.SequenceCheck(o) {
		s.rt.Raise(runtime.TypeError, "'%s' object can't be repeated", s.rt.TypeName(o.Object()))
		return nil
	}
	res, err := s.rt.InvokeFunction("operator", "imul", o.Object(), s.rt.NewInt(int64(count)))
	return s.wrap(res, err)
}

// SequenceContains reports whether item is in o.
func (s *State) SequenceContains(o, item *Handle) (bool, bool) {
	res, err := s.rt.InvokeFunction("operator", "contains", o.Object(), item.Object())
	if err != nil {
		return false, false
	}
	return res.BoolValue(), true
}

// SequenceIndex returns the position of the first occurrence of item.
func (s *State) SequenceIndex(o, item *Handle) (int, bool) {
	res, err := s.rt.InvokeFunction("operator", "indexOf", o.Object(), item.Object())
	if err != nil {
		return -1, false
	}
	n, _ := s.rt.AsInt(res)
	return int(n), true
}

// SequenceCount returns the number of occurrences of item.
func (s *State) SequenceCount(o, item *Handle) (int, bool) {
	res, err := s.rt.InvokeFunction("operator", "countOf", o.Object(), item.Object())
	if err != nil {
		return -1, false
	}
	n, _ := s.rt.AsInt(res)
	return int(n), true
}

// SequenceTuple materializes any iterable as a tuple, passing tuples
// through untouched.
func (s *State) SequenceTuple(o *Handle) *Handle {
	obj := o.Object()
	if _, ok := s.rt.TupleItems(obj); ok {
		return s.Wrap(obj)
	}
	res, err := s.rt.InvokeFunction("builtins", "tuple", obj)
	return s.wrap(res, err)
}

// SequenceList materializes any iterable as a new list.
func (s *State) SequenceList(o *Handle) *Handle {
	res, err := s.rt.InvokeFunction("builtins", "list", o.Object())
	return s.wrap(res, err)
}

// SequenceFast returns o itself when it is a list or tuple and otherwise
// a list built from it. A non-iterable raises TypeError with the
// caller-supplied message.
func (s *State) SequenceFast(o *Handle, message string) *Handle {
	obj := o.Object()
	if _, ok := s.rt.TupleItems(obj); ok {
		return s.Wrap(obj)
	}
	if _, ok := s.rt.ListItems(obj); ok {
		return s.Wrap(obj)
	}
	iter, err := s.rt.CreateIterator(obj)
	if err != nil {
		if s.rt.HasPendingError() && s.rt.PendingKind() == runtime.TypeError {
			s.rt.Raise(runtime.TypeError, "%s", message)
		}
		return nil
	}
	var items []runtime.Object
	for {
		item, done, err := s.rt.IterNext(iter)
		if err != nil {
			return nil
		}
		if done {
			break
		}
		items = append(items, item)
	}
	return s.Wrap(s.rt.NewList(items...))
}

// SequenceFastItems exposes the backing items of a SequenceFast result.
func (s *State) SequenceFastItems(o *Handle) []runtime.Object {
	if items, ok := s.rt.TupleItems(o.Object()); ok {
		return items
	}
	if items, ok := s.rt.ListItems(o.Object()); ok {
		return items
	}
	return nil
}
