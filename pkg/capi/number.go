package capi

import (
	"errors"
	"math/big"

	"github.com/mrigankpawagi/skybison/pkg/runtime"
)

// smallIntSum adds two word-packed integers when the result still fits the
// small int range, bypassing method dispatch entirely.
func (s *State) smallIntSum(l, r runtime.Object) (runtime.Object, bool) {
	if !l.IsSmallInt() || !r.IsSmallInt() {
		return runtime.Object{}, false
	}
	// Both payloads fit 63 bits, so the int64 sum cannot wrap.
	sum := l.SmallIntValue() + r.SmallIntValue()
	if sum > runtime.SmallIntMax || sum < runtime.SmallIntMin {
		return runtime.Object{}, false
	}
	return s.rt.NewInt(sum), true
}

// NumberAdd returns l + r.
func (s *State) NumberAdd(l, r *Handle) *Handle {
	if res, ok := s.smallIntSum(l.Object(), r.Object()); ok {
		return s.Wrap(res)
	}
	return s.operator2("add", l, r)
}

// NumberInPlaceAdd returns l += r, sharing the small int fast path with
// NumberAdd since immediates are never mutated in place.
func (s *State) NumberInPlaceAdd(l, r *Handle) *Handle {
	if res, ok := s.smallIntSum(l.Object(), r.Object()); ok {
		return s.Wrap(res)
	}
	return s.operator2("iadd", l, r)
}

func (s *State) NumberSubtract(l, r *Handle) *Handle       { return s.operator2("sub", l, r) }
func (s *State) NumberMultiply(l, r *Handle) *Handle       { return s.operator2("mul", l, r) }
func (s *State) NumberMatrixMultiply(l, r *Handle) *Handle { return s.operator2("matmul", l, r) }
func (s *State) NumberTrueDivide(l, r *Handle) *Handle     { return s.operator2("truediv", l, r) }
func (s *State) NumberFloorDivide(l, r *Handle) *Handle    { return s.operator2("floordiv", l, r) }
func (s *State) NumberRemainder(l, r *Handle) *Handle      { return s.operator2("mod", l, r) }
func (s *State) NumberDivmod(l, r *Handle) *Handle         { return s.operator2("divmod", l, r) }
func (s *State) NumberPower(l, r *Handle) *Handle          { return s.operator2("pow", l, r) }
func (s *State) NumberLshift(l, r *Handle) *Handle         { return s.operator2("lshift", l, r) }
func (s *State) NumberRshift(l, r *Handle) *Handle         { return s.operator2("rshift", l, r) }
func (s *State) NumberAnd(l, r *Handle) *Handle            { return s.operator2("and_", l, r) }
func (s *State) NumberOr(l, r *Handle) *Handle             { return s.operator2("or_", l, r) }
func (s *State) NumberXor(l, r *Handle) *Handle            { return s.operator2("xor", l, r) }

func (s *State) NumberInPlaceSubtract(l, r *Handle) *Handle    { return s.operator2("isub", l, r) }
func (s *State) NumberInPlaceMultiply(l, r *Handle) *Handle    { return s.operator2("imul", l, r) }
func (s *State) NumberInPlaceTrueDivide(l, r *Handle) *Handle  { return s.operator2("itruediv", l, r) }
func (s *State) NumberInPlaceFloorDivide(l, r *Handle) *Handle { return s.operator2("ifloordiv", l, r) }
func (s *State) NumberInPlaceRemainder(l, r *Handle) *Handle   { return s.operator2("imod", l, r) }
func (s *State) NumberInPlacePower(l, r *Handle) *Handle       { return s.operator2("ipow", l, r) }
func (s *State) NumberInPlaceLshift(l, r *Handle) *Handle      { return s.operator2("ilshift", l, r) }
func (s *State) NumberInPlaceRshift(l, r *Handle) *Handle      { return s.operator2("irshift", l, r) }
func (s *State) NumberInPlaceAnd(l, r *Handle) *Handle         { return s.operator2("iand", l, r) }
func (s *State) NumberInPlaceOr(l, r *Handle) *Handle          { return s.operator2("ior", l, r) }
func (s *State) NumberInPlaceXor(l, r *Handle) *Handle         { return s.operator2("ixor", l, r) }

func (s *State) NumberNegative(o *Handle) *Handle { return s.operator1("neg", o) }
func (s *State) NumberPositive(o *Handle) *Handle { return s.operator1("pos", o) }
func (s *State) NumberAbsolute(o *Handle) *Handle { return s.operator1("abs", o) }
func (s *State) NumberInvert(o *Handle) *Handle   { return s.operator1("invert", o) }

// NumberCheck reports whether o participates in the numeric protocol.
func (s *State) NumberCheck(o *Handle) bool {
	t := s.rt.TypeOf(o.Object())
	for _, name := range []string{"__int__", "__float__", "__index__"} {
		if _, ok := s.rt.LookupMethod(t, name); ok {
			return true
		}
	}
	return false
}

// NumberIndex converts o to an integer through the index protocol.
func (s *State) NumberIndex(o *Handle) *Handle {
	return s.wrap(s.rt.IntFromIndex(o.Object()))
}

// NumberLong converts o to an integer via __int__, falling back to
// __index__.
func (s *State) NumberLong(o *Handle) *Handle {
	obj := o.Object()
	if s.rt.IsInt(obj) {
		return s.Wrap(obj)
	}
	res, err := s.rt.Invoke(obj, "__int__")
	if errors.Is(err, runtime.ErrNotFound) {
		res, err = s.rt.Invoke(obj, "__index__")
		if errors.Is(err, runtime.ErrNotFound) {
			s.rt.Raise(runtime.TypeError,
				"int() argument must be a string, a bytes-like object or a number, not '%s'",
				s.rt.TypeName(obj))
			return nil
		}
	}
	return s.wrap(res, err)
}

// NumberFloat converts o to a float via __float__, accepting integers.
func (s *State) NumberFloat(o *Handle) *Handle {
	obj := o.Object()
	res, err := s.rt.Invoke(obj, "__float__")
	if errors.Is(err, runtime.ErrNotFound) {
		s.rt.Raise(runtime.TypeError,
			"float() argument must be a string or a number, not '%s'", s.rt.TypeName(obj))
		return nil
	}
	return s.wrap(res, err)
}

// NumberAsSize converts o through the index protocol to a native int.
// Out-of-range values saturate when saturate is set and otherwise raise
// overflowKind.
func (s *State) NumberAsSize(o *Handle, overflowKind runtime.ErrorKind, saturate bool) (int, bool) {
	idx, err := s.rt.IntFromIndex(o.Object())
	if err != nil {
		return -1, false
	}
	n, fits := s.rt.AsInt(idx)
	if fits && n >= int64(minInt) && n <= int64(maxInt) {
		return int(n), true
	}
	if saturate {
		b, _ := s.rt.AsBigInt(idx)
		if b.Sign() < 0 {
			return minInt, true
		}
		return maxInt, true
	}
	s.rt.Raise(overflowKind,
		"cannot fit '%s' into an index-sized integer", s.rt.TypeName(o.Object()))
	return -1, false
}

// NumberToBase renders an integer in base 2, 8, 10 or 16 with the usual
// literal prefix.
func (s *State) NumberToBase(o *Handle, base int) *Handle {
	idx, err := s.rt.IntFromIndex(o.Object())
	if err != nil {
		return nil
	}
	b, _ := s.rt.AsBigInt(idx)
	neg := b.Sign() < 0
	abs := new(big.Int).Abs(b)
	var text string
	switch base {
	case 2:
		text = "0b" + abs.Text(2)
	case 8:
		text = "0o" + abs.Text(8)
	case 10:
		text = abs.Text(10)
	case 16:
		text = "0x" + abs.Text(16)
	default:
		s.rt.Raise(runtime.SystemError, "base must be 2, 8, 10 or 16")
		return nil
	}
	if neg {
		text = "-" + text
	}
	return s.Wrap(s.rt.NewStr(text))
}
