package runtime

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Invoke looks up name on the receiver's type and calls it. A lookup miss
// returns ErrNotFound with nothing raised; the caller owns the wording of
// the resulting error, if any.
func (rt *Runtime) Invoke(receiver Object, name string, args ...Object) (Object, error) {
	m, ok := rt.LookupMethod(rt.TypeOf(receiver), name)
	if !ok {
		return Object{}, ErrNotFound
	}
	return m(rt, receiver, args...)
}

// Call invokes a callable object with positional arguments, preferring the
// type's native call slot over method dispatch.
func (rt *Runtime) Call(callable Object, args []Object) (Object, error) {
	t := rt.TypeOf(callable)
	if t.Slots.Call != nil {
		return t.Slots.Call(rt, callable, args)
	}
	if m, ok := rt.LookupMethod(t, "__call__"); ok {
		return m(rt, callable, args...)
	}
	return Object{}, rt.Raise(TypeError, "'%s' object is not callable", t.Name)
}

// CreateIterator returns an iterator over o.
func (rt *Runtime) CreateIterator(o Object) (Object, error) {
	res, err := rt.Invoke(o, "__iter__")
	if errors.Is(err, ErrNotFound) {
		return Object{}, rt.Raise(TypeError, "'%s' object is not iterable", rt.TypeName(o))
	}
	return res, err
}

// IterNext advances an iterator. done is true at exhaustion, with the
// StopIteration condition absorbed.
func (rt *Runtime) IterNext(iter Object) (item Object, done bool, err error) {
	res, err := rt.Invoke(iter, "__next__")
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Object{}, false, rt.Raise(TypeError, "'%s' object is not an iterator", rt.TypeName(iter))
		}
		if rt.HasPendingError() && rt.PendingKind() == StopIteration {
			rt.ClearPendingError()
			return Object{}, true, nil
		}
		return Object{}, false, err
	}
	return res, false, nil
}

// IsTrue computes the truth value of o via __bool__, falling back to
// __len__ and then to true.
func (rt *Runtime) IsTrue(o Object) (bool, error) {
	if o.IsBool() {
		return o.BoolValue(), nil
	}
	if o.IsNone() {
		return false, nil
	}
	if o.IsSmallInt() {
		return o.SmallIntValue() != 0, nil
	}
	res, err := rt.Invoke(o, "__bool__")
	if err == nil {
		if res.IsBool() {
			return res.BoolValue(), nil
		}
		return false, rt.Raise(TypeError, "__bool__ should return bool, returned %s", rt.TypeName(res))
	}
	if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	res, err = rt.Invoke(o, "__len__")
	if err == nil {
		n, ok := rt.AsInt(res)
		if !ok {
			return false, rt.Raise(TypeError, "'%s' object cannot be interpreted as an integer", rt.TypeName(res))
		}
		if n < 0 {
			return false, rt.Raise(ValueError, "__len__() should return >= 0")
		}
		return n != 0, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	return true, nil
}

// binaryOp implements the left/right dispatch for a binary operator. When
// the right operand's type is a proper subtype of the left's, its
// reflected method is consulted first.
func (rt *Runtime) binaryOp(leftName, rightName, symbol string, l, r Object) (Object, error) {
	lt := rt.TypeOf(l)
	rtp := rt.TypeOf(r)
	tryMethod := func(t *Type, name string, a, b Object) (Object, bool, error) {
		m, ok := rt.LookupMethod(t, name)
		if !ok {
			return Object{}, false, nil
		}
		res, err := m(rt, a, b)
		if err != nil {
			return Object{}, false, err
		}
		if res.IsNotImplemented() {
			return Object{}, false, nil
		}
		return res, true, nil
	}
	if rtp != lt && rtp.IsSubtype(lt) {
		if res, ok, err := tryMethod(rtp, rightName, r, l); err != nil || ok {
			return res, err
		}
		if res, ok, err := tryMethod(lt, leftName, l, r); err != nil || ok {
			return res, err
		}
	} else {
		if res, ok, err := tryMethod(lt, leftName, l, r); err != nil || ok {
			return res, err
		}
		if rtp != lt {
			if res, ok, err := tryMethod(rtp, rightName, r, l); err != nil || ok {
				return res, err
			}
		}
	}
	return Object{}, rt.Raise(TypeError,
		"unsupported operand type(s) for %s: '%s' and '%s'", symbol, lt.Name, rtp.Name)
}

// inPlaceOp tries the augmented method first and falls back to the binary
// form, as the interpreter does for mutable receivers.
func (rt *Runtime) inPlaceOp(inPlaceName, leftName, rightName, symbol string, l, r Object) (Object, error) {
	if m, ok := rt.LookupMethod(rt.TypeOf(l), inPlaceName); ok {
		res, err := m(rt, l, r)
		if err != nil {
			return Object{}, err
		}
		if !res.IsNotImplemented() {
			return res, nil
		}
	}
	res, err := rt.binaryOp(leftName, rightName, symbol, l, r)
	if err != nil && rt.HasPendingError() &&
		strings.HasPrefix(rt.pending.Msg, "unsupported operand type(s) for "+symbol+":") {
		// Rewrite the operator spelling to the augmented form.
		return Object{}, rt.Raise(TypeError,
			"unsupported operand type(s) for %s=: '%s' and '%s'",
			symbol, rt.TypeName(l), rt.TypeName(r))
	}
	return res, err
}

func (rt *Runtime) unaryOp(name, symbol string, o Object) (Object, error) {
	res, err := rt.Invoke(o, name)
	if errors.Is(err, ErrNotFound) {
		return Object{}, rt.Raise(TypeError, "bad operand type for unary %s: '%s'", symbol, rt.TypeName(o))
	}
	return res, err
}

// IntFromIndex converts o to an integer through __index__. A lookup miss
// raises TypeError with the integer-interpretation wording.
func (rt *Runtime) IntFromIndex(o Object) (Object, error) {
	if rt.IsInt(o) {
		return o, nil
	}
	res, err := rt.Invoke(o, "__index__")
	if errors.Is(err, ErrNotFound) {
		return Object{}, rt.Raise(TypeError,
			"'%s' object cannot be interpreted as an integer", rt.TypeName(o))
	}
	if err != nil {
		return Object{}, err
	}
	if !rt.IsInt(res) {
		return Object{}, rt.Raise(TypeError,
			"__index__ returned non-int (type %s)", rt.TypeName(res))
	}
	return res, nil
}

// Equals compares two objects for equality via __eq__ in both directions,
// falling back to identity.
func (rt *Runtime) Equals(l, r Object) (bool, error) {
	if l.Is(r) {
		return true, nil
	}
	for _, dir := range [2][2]Object{{l, r}, {r, l}} {
		res, err := rt.Invoke(dir[0], "__eq__", dir[1])
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return false, err
		}
		if !res.IsNotImplemented() {
			return rt.IsTrue(res)
		}
	}
	return false, nil
}

// Repr renders o for diagnostics. It never raises; unknown payloads fall
// back to a type-qualified placeholder.
func (rt *Runtime) Repr(o Object) string {
	if o.IsSmallInt() {
		return fmt.Sprintf("%d", o.SmallIntValue())
	}
	switch {
	case o.IsNone():
		return "None"
	case o.IsBool():
		if o.BoolValue() {
			return "True"
		}
		return "False"
	case o.IsNotImplemented():
		return "NotImplemented"
	}
	if !o.IsHeap() {
		return "<unbound>"
	}
	c := rt.heap.cellAt(o)
	switch d := c.data.(type) {
	case *big.Int:
		return d.String()
	case float64:
		return fmt.Sprintf("%g", d)
	case complex128:
		return fmt.Sprintf("(%g+%gj)", real(d), imag(d))
	case string:
		return fmt.Sprintf("%q", d)
	case []byte:
		return fmt.Sprintf("b%q", string(d))
	case []Object:
		parts := make([]string, len(d))
		for i, it := range d {
			parts[i] = rt.Repr(it)
		}
		if len(d) == 1 {
			return "(" + parts[0] + ",)"
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case *listData:
		parts := make([]string, len(d.items))
		for i, it := range d.items {
			parts[i] = rt.Repr(it)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *dictData:
		parts := make([]string, len(d.entries))
		for i, e := range d.entries {
			parts[i] = rt.Repr(e.key) + ": " + rt.Repr(e.value)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *bytearrayData:
		return fmt.Sprintf("bytearray(b%q)", string(d.items))
	case *funcData:
		return fmt.Sprintf("<function %s>", d.name)
	}
	return fmt.Sprintf("<%s object>", c.typ.Name)
}
