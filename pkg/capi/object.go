package capi

import (
	"errors"

	"github.com/mrigankpawagi/skybison/pkg/runtime"
)

// ObjectLength returns len(o), distinguishing the missing-__len__ miss
// from raised conditions and enforcing the non-negative, index-sized
// result contract.
func (s *State) ObjectLength(o *Handle) (int, bool) {
	return s.objectLength(o)
}

// ObjectLengthHint returns len(o), falling back to __length_hint__ and
// then to defaultValue when the object has no length.
func (s *State) ObjectLengthHint(o *Handle, defaultValue int) (int, bool) {
	if n, ok := s.objectLength(o); ok {
		return n, true
	}
	if s.rt.HasPendingError() && s.rt.PendingKind() != runtime.TypeError {
		return -1, false
	}
	s.rt.ClearPendingError()
	res, err := s.rt.Invoke(o.Object(), "__length_hint__")
	if err != nil {
		if errors.Is(err, runtime.ErrNotFound) {
			return defaultValue, true
		}
		return -1, false
	}
	n, ok := s.rt.AsInt(res)
	if !ok {
		s.rt.Raise(runtime.TypeError, "__length_hint__ must be an integer, not %s", s.rt.TypeName(res))
		return -1, false
	}
	if n < 0 {
		s.rt.Raise(runtime.ValueError, "__length_hint__() should return >= 0")
		return -1, false
	}
	return int(n), true
}

// ObjectGetItem returns o[key].
func (s *State) ObjectGetItem(o, key *Handle) *Handle {
	return s.operator2("getitem", o, key)
}

// ObjectSetItem assigns o[key] = v.
func (s *State) ObjectSetItem(o, key, v *Handle) bool {
	_, err := s.rt.InvokeFunction("operator", "setitem", o.Object(), key.Object(), v.Object())
	return err == nil
}

// ObjectDelItem deletes o[key].
func (s *State) ObjectDelItem(o, key *Handle) bool {
	_, err := s.rt.InvokeFunction("operator", "delitem", o.Object(), key.Object())
	return err == nil
}

// ObjectGetIter returns an iterator over o.
func (s *State) ObjectGetIter(o *Handle) *Handle {
	return s.wrap(s.rt.CreateIterator(o.Object()))
}

// ObjectIterNext advances an iterator, returning nil with no pending
// condition at exhaustion.
func (s *State) ObjectIterNext(iter *Handle) *Handle {
	item, done, err := s.rt.IterNext(iter.Object())
	if err != nil || done {
		return nil
	}
	return s.Wrap(item)
}

// ObjectIsTrue computes the truth value of o.
func (s *State) ObjectIsTrue(o *Handle) (bool, bool) {
	v, err := s.rt.IsTrue(o.Object())
	return v, err == nil
}

// ObjectType returns the runtime type of o.
func (s *State) ObjectType(o *Handle) *runtime.Type {
	return s.rt.TypeOf(o.Object())
}

// ObjectIsInstance reports whether o is an instance of typ or a subtype.
func (s *State) ObjectIsInstance(o *Handle, typ *runtime.Type) bool {
	return s.rt.TypeOf(o.Object()).IsSubtype(typ)
}

// ObjectIsSubclass reports whether typ is of or derives from.
func (s *State) ObjectIsSubclass(typ, of *runtime.Type) bool {
	return typ.IsSubtype(of)
}

// ObjectRepr returns the printable representation of o.
func (s *State) ObjectRepr(o *Handle) *Handle {
	return s.Wrap(s.rt.NewStr(s.rt.Repr(o.Object())))
}

// ObjectIndexCheck reports whether o converts losslessly to an index.
func (s *State) ObjectIndexCheck(o *Handle) bool {
	_, ok := s.rt.LookupMethod(s.rt.TypeOf(o.Object()), "__index__")
	return ok
}

// ObjectCall invokes callable with positional arguments, guarded by the
// state's recursion limit.
func (s *State) ObjectCall(callable *Handle, args ...*Handle) *Handle {
	if !s.enterCall() {
		return nil
	}
	defer s.leaveCall()
	objs := make([]runtime.Object, len(args))
	for i, a := range args {
		objs[i] = a.Object()
	}
	return s.wrap(s.rt.Call(callable.Object(), objs))
}

// ObjectCallNoArgs invokes callable with no arguments.
func (s *State) ObjectCallNoArgs(callable *Handle) *Handle {
	return s.ObjectCall(callable)
}

// ObjectCallObject invokes callable splatting a tuple of arguments; a nil
// tuple means no arguments.
func (s *State) ObjectCallObject(callable, argsTuple *Handle) *Handle {
	if argsTuple == nil {
		return s.ObjectCall(callable)
	}
	items, ok := s.rt.TupleItems(argsTuple.Object())
	if !ok {
		s.rt.Raise(runtime.TypeError, "argument list must be a tuple, not %s",
			s.rt.TypeName(argsTuple.Object()))
		return nil
	}
	if !s.enterCall() {
		return nil
	}
	defer s.leaveCall()
	return s.wrap(s.rt.Call(callable.Object(), items))
}

// ObjectCallMethod looks up name on the receiver and calls it with the
// given arguments. A lookup miss raises AttributeError.
func (s *State) ObjectCallMethod(receiver *Handle, name string, args ...*Handle) *Handle {
	if !s.enterCall() {
		return nil
	}
	defer s.leaveCall()
	objs := make([]runtime.Object, len(args))
	for i, a := range args {
		objs[i] = a.Object()
	}
	res, err := s.rt.Invoke(receiver.Object(), name, objs...)
	if errors.Is(err, runtime.ErrNotFound) {
		s.rt.Raise(runtime.AttributeError, "'%s' object has no attribute '%s'",
			s.rt.TypeName(receiver.Object()), name)
		return nil
	}
	return s.wrap(res, err)
}
