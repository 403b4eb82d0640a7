package runtime

import (
	"encoding/binary"
	"math"
	"math/big"
	"strings"
	"unicode/utf8"
)

const maxShiftCount = 1 << 20

func oneArg(rt *Runtime, name string, args []Object) (Object, error) {
	if len(args) != 1 {
		return Object{}, rt.Raise(TypeError, "%s() takes exactly one argument (%d given)", name, len(args))
	}
	return args[0], nil
}

func (rt *Runtime) floatOperand(o Object) (float64, bool) {
	if f, ok := rt.FloatValue(o); ok {
		return f, true
	}
	if b, ok := rt.AsBigInt(o); ok {
		f, _ := new(big.Float).SetInt(b).Float64()
		return f, true
	}
	return 0, false
}

// floorDivMod computes floored division, the rounding the managed language
// uses, from Go's truncated big.Int quotient.
func floorDivMod(a, b *big.Int) (*big.Int, *big.Int) {
	q := new(big.Int)
	r := new(big.Int)
	q.QuoRem(a, b, r)
	if r.Sign() != 0 && r.Sign() != b.Sign() {
		q.Sub(q, big.NewInt(1))
		r.Add(r, b)
	}
	return q, r
}

func intBinaryMethod(reflected bool, f func(rt *Runtime, a, b *big.Int) (Object, error)) Method {
	return func(rt *Runtime, self Object, args ...Object) (Object, error) {
		other, err := oneArg(rt, "int operator", args)
		if err != nil {
			return Object{}, err
		}
		a, ok := rt.AsBigInt(self)
		if !ok {
			return NotImplemented(), nil
		}
		b, ok := rt.AsBigInt(other)
		if !ok {
			return NotImplemented(), nil
		}
		if reflected {
			a, b = b, a
		}
		return f(rt, a, b)
	}
}

func floatBinaryMethod(reflected bool, f func(rt *Runtime, a, b float64) (Object, error)) Method {
	return func(rt *Runtime, self Object, args ...Object) (Object, error) {
		other, err := oneArg(rt, "float operator", args)
		if err != nil {
			return Object{}, err
		}
		a, ok := rt.floatOperand(self)
		if !ok {
			return NotImplemented(), nil
		}
		b, ok := rt.floatOperand(other)
		if !ok {
			return NotImplemented(), nil
		}
		if reflected {
			a, b = b, a
		}
		return f(rt, a, b)
	}
}

// resolveIndex converts an item index through __index__ and normalizes a
// negative index against length. outOfRange is reported with the
// container-specific wording by the caller.
func (rt *Runtime) resolveIndex(idx Object, length int) (int, bool, error) {
	conv, err := rt.IntFromIndex(idx)
	if err != nil {
		return 0, false, err
	}
	n, ok := rt.AsInt(conv)
	if !ok {
		return 0, false, rt.Raise(OverflowError, "cannot fit '%s' into an index-sized integer", rt.TypeName(idx))
	}
	if n < 0 {
		n += int64(length)
	}
	if n < 0 || n >= int64(length) {
		return 0, true, nil
	}
	return int(n), false, nil
}

func (rt *Runtime) repeatCount(o Object) (int, bool, error) {
	if !rt.IsInt(o) {
		if _, hasIndex := rt.LookupMethod(rt.TypeOf(o), "__index__"); !hasIndex {
			return 0, false, nil
		}
	}
	conv, err := rt.IntFromIndex(o)
	if err != nil {
		return 0, false, err
	}
	n, ok := rt.AsInt(conv)
	if !ok {
		return 0, true, rt.Raise(OverflowError, "repeated sequence is too long")
	}
	if n < 0 {
		n = 0
	}
	return int(n), true, nil
}

func (rt *Runtime) initTypes() {
	rt.ObjectType = rt.NewType("object", nil, map[string]Method{})
	rt.NoneType = rt.NewType("NoneType", rt.ObjectType, map[string]Method{})
	rt.NotImplementedType = rt.NewType("NotImplementedType", rt.ObjectType, map[string]Method{})
	rt.initIntType()
	rt.BoolType = rt.NewType("bool", rt.IntType, map[string]Method{})
	rt.initFloatType()
	rt.initComplexType()
	rt.initStrType()
	rt.initBytesType()
	rt.initBytearrayType()
	rt.initArrayType()
	rt.initListType()
	rt.initTupleType()
	rt.initDictType()
	rt.initIterTypes()
	rt.FunctionType = rt.NewType("function", rt.ObjectType, map[string]Method{})
	rt.FunctionType.Slots.Call = func(r *Runtime, callable Object, args []Object) (Object, error) {
		d := r.heap.cellAt(callable).data.(*funcData)
		return d.fn(r, args...)
	}
}

func (rt *Runtime) initIntType() {
	rt.IntType = rt.NewType("int", nil, map[string]Method{
		"__add__": intBinaryMethod(false, func(r *Runtime, a, b *big.Int) (Object, error) {
			return r.NewIntFromBig(new(big.Int).Add(a, b)), nil
		}),
		"__radd__": intBinaryMethod(true, func(r *Runtime, a, b *big.Int) (Object, error) {
			return r.NewIntFromBig(new(big.Int).Add(a, b)), nil
		}),
		"__sub__": intBinaryMethod(false, func(r *Runtime, a, b *big.Int) (Object, error) {
			return r.NewIntFromBig(new(big.Int).Sub(a, b)), nil
		}),
		"__rsub__": intBinaryMethod(true, func(r *Runtime, a, b *big.Int) (Object, error) {
			return r.NewIntFromBig(new(big.Int).Sub(a, b)), nil
		}),
		"__mul__": intBinaryMethod(false, func(r *Runtime, a, b *big.Int) (Object, error) {
			return r.NewIntFromBig(new(big.Int).Mul(a, b)), nil
		}),
		"__rmul__": intBinaryMethod(true, func(r *Runtime, a, b *big.Int) (Object, error) {
			return r.NewIntFromBig(new(big.Int).Mul(a, b)), nil
		}),
		"__floordiv__": intBinaryMethod(false, intFloorDiv),
		"__rfloordiv__": intBinaryMethod(true, intFloorDiv),
		"__mod__": intBinaryMethod(false, intMod),
		"__rmod__": intBinaryMethod(true, intMod),
		"__divmod__": intBinaryMethod(false, func(r *Runtime, a, b *big.Int) (Object, error) {
			if b.Sign() == 0 {
				return Object{}, r.Raise(ZeroDivisionError, "integer division or modulo by zero")
			}
			q, m := floorDivMod(a, b)
			return r.NewTuple(r.NewIntFromBig(q), r.NewIntFromBig(m)), nil
		}),
		"__truediv__": intBinaryMethod(false, intTrueDiv),
		"__rtruediv__": intBinaryMethod(true, intTrueDiv),
		"__pow__": intBinaryMethod(false, intPow),
		"__rpow__": intBinaryMethod(true, intPow),
		"__lshift__": intBinaryMethod(false, func(r *Runtime, a, b *big.Int) (Object, error) {
			n, err := shiftCount(r, b)
			if err != nil {
				return Object{}, err
			}
			return r.NewIntFromBig(new(big.Int).Lsh(a, n)), nil
		}),
		"__rshift__": intBinaryMethod(false, func(r *Runtime, a, b *big.Int) (Object, error) {
			n, err := shiftCount(r, b)
			if err != nil {
				return Object{}, err
			}
			return r.NewIntFromBig(new(big.Int).Rsh(a, n)), nil
		}),
		"__and__": intBinaryMethod(false, func(r *Runtime, a, b *big.Int) (Object, error) {
			return r.NewIntFromBig(new(big.Int).And(a, b)), nil
		}),
		"__rand__": intBinaryMethod(true, func(r *Runtime, a, b *big.Int) (Object, error) {
			return r.NewIntFromBig(new(big.Int).And(a, b)), nil
		}),
		"__or__": intBinaryMethod(false, func(r *Runtime, a, b *big.Int) (Object, error) {
			return r.NewIntFromBig(new(big.Int).Or(a, b)), nil
		}),
		"__ror__": intBinaryMethod(true, func(r *Runtime, a, b *big.Int) (Object, error) {
			return r.NewIntFromBig(new(big.Int).Or(a, b)), nil
		}),
		"__xor__": intBinaryMethod(false, func(r *Runtime, a, b *big.Int) (Object, error) {
			return r.NewIntFromBig(new(big.Int).Xor(a, b)), nil
		}),
		"__rxor__": intBinaryMethod(true, func(r *Runtime, a, b *big.Int) (Object, error) {
			return r.NewIntFromBig(new(big.Int).Xor(a, b)), nil
		}),
		"__neg__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			a, _ := r.AsBigInt(self)
			return r.NewIntFromBig(new(big.Int).Neg(a)), nil
		},
		"__pos__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			a, _ := r.AsBigInt(self)
			return r.NewIntFromBig(a), nil
		},
		"__abs__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			a, _ := r.AsBigInt(self)
			return r.NewIntFromBig(new(big.Int).Abs(a)), nil
		},
		"__invert__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			a, _ := r.AsBigInt(self)
			return r.NewIntFromBig(new(big.Int).Not(a)), nil
		},
		"__bool__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			a, _ := r.AsBigInt(self)
			return Bool(a.Sign() != 0), nil
		},
		"__index__": intIdentity,
		"__int__":   intIdentity,
		"__float__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			f, _ := r.floatOperand(self)
			return r.NewFloat(f), nil
		},
		"__eq__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			other, err := oneArg(r, "__eq__", args)
			if err != nil {
				return Object{}, err
			}
			a, _ := r.AsBigInt(self)
			if b, ok := r.AsBigInt(other); ok {
				return Bool(a.Cmp(b) == 0), nil
			}
			if f, ok := r.FloatValue(other); ok {
				af, _ := new(big.Float).SetInt(a).Float64()
				return Bool(af == f), nil
			}
			return NotImplemented(), nil
		},
	})
}

func intIdentity(r *Runtime, self Object, args ...Object) (Object, error) {
	a, _ := r.AsBigInt(self)
	return r.NewIntFromBig(a), nil
}

func intFloorDiv(r *Runtime, a, b *big.Int) (Object, error) {
	if b.Sign() == 0 {
		return Object{}, r.Raise(ZeroDivisionError, "integer division or modulo by zero")
	}
	q, _ := floorDivMod(a, b)
	return r.NewIntFromBig(q), nil
}

func intMod(r *Runtime, a, b *big.Int) (Object, error) {
	if b.Sign() == 0 {
		return Object{}, r.Raise(ZeroDivisionError, "integer division or modulo by zero")
	}
	_, m := floorDivMod(a, b)
	return r.NewIntFromBig(m), nil
}

func intTrueDiv(r *Runtime, a, b *big.Int) (Object, error) {
	if b.Sign() == 0 {
		return Object{}, r.Raise(ZeroDivisionError, "division by zero")
	}
	q, _ := new(big.Float).Quo(new(big.Float).SetInt(a), new(big.Float).SetInt(b)).Float64()
	return r.NewFloat(q), nil
}

func intPow(r *Runtime, a, b *big.Int) (Object, error) {
	if b.Sign() < 0 {
		af, _ := new(big.Float).SetInt(a).Float64()
		bf, _ := new(big.Float).SetInt(b).Float64()
		return r.NewFloat(math.Pow(af, bf)), nil
	}
	if !b.IsInt64() || b.Int64() > maxShiftCount {
		return Object{}, r.Raise(OverflowError, "exponent too large")
	}
	return r.NewIntFromBig(new(big.Int).Exp(a, b, nil)), nil
}

func shiftCount(r *Runtime, b *big.Int) (uint, error) {
	if b.Sign() < 0 {
		return 0, r.Raise(ValueError, "negative shift count")
	}
	if !b.IsInt64() || b.Int64() > maxShiftCount {
		return 0, r.Raise(OverflowError, "shift count too large")
	}
	return uint(b.Int64()), nil
}

func (rt *Runtime) initFloatType() {
	rt.FloatType = rt.NewType("float", nil, map[string]Method{
		"__add__": floatBinaryMethod(false, func(r *Runtime, a, b float64) (Object, error) {
			return r.NewFloat(a + b), nil
		}),
		"__radd__": floatBinaryMethod(true, func(r *Runtime, a, b float64) (Object, error) {
			return r.NewFloat(a + b), nil
		}),
		"__sub__": floatBinaryMethod(false, func(r *Runtime, a, b float64) (Object, error) {
			return r.NewFloat(a - b), nil
		}),
		"__rsub__": floatBinaryMethod(true, func(r *Runtime, a, b float64) (Object, error) {
			return r.NewFloat(a - b), nil
		}),
		"__mul__": floatBinaryMethod(false, func(r *Runtime, a, b float64) (Object, error) {
			return r.NewFloat(a * b), nil
		}),
		"__rmul__": floatBinaryMethod(true, func(r *Runtime, a, b float64) (Object, error) {
			return r.NewFloat(a * b), nil
		}),
		"__truediv__": floatBinaryMethod(false, floatDiv),
		"__rtruediv__": floatBinaryMethod(true, floatDiv),
		"__floordiv__": floatBinaryMethod(false, func(r *Runtime, a, b float64) (Object, error) {
			if b == 0 {
				return Object{}, r.Raise(ZeroDivisionError, "float floor division by zero")
			}
			return r.NewFloat(math.Floor(a / b)), nil
		}),
		"__mod__": floatBinaryMethod(false, func(r *Runtime, a, b float64) (Object, error) {
			if b == 0 {
				return Object{}, r.Raise(ZeroDivisionError, "float modulo")
			}
			m := math.Mod(a, b)
			if m != 0 && (m < 0) != (b < 0) {
				m += b
			}
			return r.NewFloat(m), nil
		}),
		"__pow__": floatBinaryMethod(false, func(r *Runtime, a, b float64) (Object, error) {
			return r.NewFloat(math.Pow(a, b)), nil
		}),
		"__neg__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			f, _ := r.FloatValue(self)
			return r.NewFloat(-f), nil
		},
		"__pos__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			return self, nil
		},
		"__abs__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			f, _ := r.FloatValue(self)
			return r.NewFloat(math.Abs(f)), nil
		},
		"__bool__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			f, _ := r.FloatValue(self)
			return Bool(f != 0), nil
		},
		"__float__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			return self, nil
		},
		"__int__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			f, _ := r.FloatValue(self)
			if math.IsInf(f, 0) {
				return Object{}, r.Raise(OverflowError, "cannot convert float infinity to integer")
			}
			if math.IsNaN(f) {
				return Object{}, r.Raise(ValueError, "cannot convert float NaN to integer")
			}
			bf := new(big.Float).SetFloat64(math.Trunc(f))
			bi, _ := bf.Int(nil)
			return r.NewIntFromBig(bi), nil
		},
		"__eq__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			other, err := oneArg(r, "__eq__", args)
			if err != nil {
				return Object{}, err
			}
			a, _ := r.FloatValue(self)
			if b, ok := r.floatOperand(other); ok {
				return Bool(a == b), nil
			}
			return NotImplemented(), nil
		},
	})
}

func floatDiv(r *Runtime, a, b float64) (Object, error) {
	if b == 0 {
		return Object{}, r.Raise(ZeroDivisionError, "float division by zero")
	}
	return r.NewFloat(a / b), nil
}

func (rt *Runtime) initComplexType() {
	complexOperand := func(r *Runtime, o Object) (complex128, bool) {
		if c, ok := r.ComplexValue(o); ok {
			return c, true
		}
		if f, ok := r.floatOperand(o); ok {
			return complex(f, 0), true
		}
		return 0, false
	}
	binary := func(f func(a, b complex128) complex128) Method {
		return func(r *Runtime, self Object, args ...Object) (Object, error) {
			other, err := oneArg(r, "complex operator", args)
			if err != nil {
				return Object{}, err
			}
			a, _ := r.ComplexValue(self)
			b, ok := complexOperand(r, other)
			if !ok {
				return NotImplemented(), nil
			}
			return r.NewComplex(f(a, b)), nil
		}
	}
	rt.ComplexType = rt.NewType("complex", nil, map[string]Method{
		"__add__": binary(func(a, b complex128) complex128 { return a + b }),
		"__sub__": binary(func(a, b complex128) complex128 { return a - b }),
		"__mul__": binary(func(a, b complex128) complex128 { return a * b }),
		"__abs__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			c, _ := r.ComplexValue(self)
			return r.NewFloat(math.Hypot(real(c), imag(c))), nil
		},
		"__bool__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			c, _ := r.ComplexValue(self)
			return Bool(c != 0), nil
		},
		"__eq__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			other, err := oneArg(r, "__eq__", args)
			if err != nil {
				return Object{}, err
			}
			a, _ := r.ComplexValue(self)
			if b, ok := complexOperand(r, other); ok {
				return Bool(a == b), nil
			}
			return NotImplemented(), nil
		},
	})
}

func (rt *Runtime) initStrType() {
	rt.StrType = rt.NewType("str", nil, map[string]Method{
		"__len__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			s, _ := r.StrValue(self)
			return r.NewInt(int64(utf8.RuneCountInString(s))), nil
		},
		"__getitem__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			idx, err := oneArg(r, "__getitem__", args)
			if err != nil {
				return Object{}, err
			}
			s, _ := r.StrValue(self)
			runes := []rune(s)
			i, out, err := r.resolveIndex(idx, len(runes))
			if err != nil {
				return Object{}, err
			}
			if out {
				return Object{}, r.Raise(IndexError, "string index out of range")
			}
			return r.NewStr(string(runes[i])), nil
		},
		"__add__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			other, err := oneArg(r, "__add__", args)
			if err != nil {
				return Object{}, err
			}
			a, _ := r.StrValue(self)
			b, ok := r.StrValue(other)
			if !ok {
				return Object{}, r.Raise(TypeError,
					"can only concatenate str (not \"%s\") to str", r.TypeName(other))
			}
			return r.NewStr(a + b), nil
		},
		"__mul__":  strRepeat,
		"__rmul__": strRepeat,
		"__contains__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			other, err := oneArg(r, "__contains__", args)
			if err != nil {
				return Object{}, err
			}
			s, _ := r.StrValue(self)
			sub, ok := r.StrValue(other)
			if !ok {
				return Object{}, r.Raise(TypeError,
					"'in <string>' requires string as left operand, not %s", r.TypeName(other))
			}
			return Bool(strings.Contains(s, sub)), nil
		},
		"__eq__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			other, err := oneArg(r, "__eq__", args)
			if err != nil {
				return Object{}, err
			}
			a, _ := r.StrValue(self)
			if b, ok := r.StrValue(other); ok {
				return Bool(a == b), nil
			}
			return NotImplemented(), nil
		},
		"__iter__": newSeqIter,
	})
}

func strRepeat(r *Runtime, self Object, args ...Object) (Object, error) {
	other, err := oneArg(r, "__mul__", args)
	if err != nil {
		return Object{}, err
	}
	s, _ := r.StrValue(self)
	n, ok, err := r.repeatCount(other)
	if err != nil {
		return Object{}, err
	}
	if !ok {
		return NotImplemented(), nil
	}
	return r.NewStr(strings.Repeat(s, n)), nil
}

func newSeqIter(r *Runtime, self Object, args ...Object) (Object, error) {
	return r.heap.alloc(r.SeqIterType, &seqIterData{seq: self}), nil
}

func (rt *Runtime) initBytesType() {
	rt.BytesType = rt.NewType("bytes", nil, map[string]Method{
		"__len__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			b, _ := r.BytesValue(self)
			return r.NewInt(int64(len(b))), nil
		},
		"__getitem__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			idx, err := oneArg(r, "__getitem__", args)
			if err != nil {
				return Object{}, err
			}
			b, _ := r.BytesValue(self)
			i, out, err := r.resolveIndex(idx, len(b))
			if err != nil {
				return Object{}, err
			}
			if out {
				return Object{}, r.Raise(IndexError, "index out of range")
			}
			return r.NewInt(int64(b[i])), nil
		},
		"__add__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			other, err := oneArg(r, "__add__", args)
			if err != nil {
				return Object{}, err
			}
			a, _ := r.BytesValue(self)
			b, ok := bytesLike(r, other)
			if !ok {
				return Object{}, r.Raise(TypeError,
					"can't concat %s to bytes", r.TypeName(other))
			}
			out := make([]byte, 0, len(a)+len(b))
			out = append(out, a...)
			out = append(out, b...)
			return r.NewBytes(out), nil
		},
		"__mul__":  bytesRepeat,
		"__rmul__": bytesRepeat,
		"__contains__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			other, err := oneArg(r, "__contains__", args)
			if err != nil {
				return Object{}, err
			}
			hay, _ := r.BytesValue(self)
			return bytesContains(r, hay, other)
		},
		"__eq__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			other, err := oneArg(r, "__eq__", args)
			if err != nil {
				return Object{}, err
			}
			a, _ := r.BytesValue(self)
			if b, ok := r.BytesValue(other); ok {
				return Bool(string(a) == string(b)), nil
			}
			return NotImplemented(), nil
		},
		"__iter__": newSeqIter,
	})
}

func bytesLike(r *Runtime, o Object) ([]byte, bool) {
	if b, ok := r.BytesValue(o); ok {
		return b, true
	}
	if b, ok := r.BytearrayBytes(o); ok {
		return b, true
	}
	return nil, false
}

func bytesRepeat(r *Runtime, self Object, args ...Object) (Object, error) {
	other, err := oneArg(r, "__mul__", args)
	if err != nil {
		return Object{}, err
	}
	b, ok := bytesLike(r, self)
	if !ok {
		return NotImplemented(), nil
	}
	n, isInt, err := r.repeatCount(other)
	if err != nil {
		return Object{}, err
	}
	if !isInt {
		return NotImplemented(), nil
	}
	out := make([]byte, 0, len(b)*n)
	for i := 0; i < n; i++ {
		out = append(out, b...)
	}
	if r.TypeOf(self).IsSubtype(r.BytearrayType) {
		return r.NewBytearray(out), nil
	}
	return r.NewBytes(out), nil
}

func bytesContains(r *Runtime, hay []byte, needle Object) (Object, error) {
	if r.IsInt(needle) {
		n, ok := r.AsInt(needle)
		if !ok || n < 0 || n > 255 {
			return Object{}, r.Raise(ValueError, "byte must be in range(0, 256)")
		}
		for _, b := range hay {
			if int64(b) == n {
				return Bool(true), nil
			}
		}
		return Bool(false), nil
	}
	sub, ok := bytesLike(r, needle)
	if !ok {
		return Object{}, r.Raise(TypeError,
			"a bytes-like object is required, not '%s'", r.TypeName(needle))
	}
	return Bool(strings.Contains(string(hay), string(sub))), nil
}

func (rt *Runtime) initBytearrayType() {
	rt.BytearrayType = rt.NewType("bytearray", nil, map[string]Method{
		"__len__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			b, _ := r.BytearrayBytes(self)
			return r.NewInt(int64(len(b))), nil
		},
		"__getitem__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			idx, err := oneArg(r, "__getitem__", args)
			if err != nil {
				return Object{}, err
			}
			b, _ := r.BytearrayBytes(self)
			i, out, err := r.resolveIndex(idx, len(b))
			if err != nil {
				return Object{}, err
			}
			if out {
				return Object{}, r.Raise(IndexError, "bytearray index out of range")
			}
			return r.NewInt(int64(b[i])), nil
		},
		"__setitem__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			if len(args) != 2 {
				return Object{}, r.Raise(TypeError, "__setitem__ expected 2 arguments, got %d", len(args))
			}
			b, _ := r.BytearrayBytes(self)
			i, out, err := r.resolveIndex(args[0], len(b))
			if err != nil {
				return Object{}, err
			}
			if out {
				return Object{}, r.Raise(IndexError, "bytearray index out of range")
			}
			v, ok := r.AsInt(args[1])
			if !ok {
				return Object{}, r.Raise(TypeError,
					"'%s' object cannot be interpreted as an integer", r.TypeName(args[1]))
			}
			if v < 0 || v > 255 {
				return Object{}, r.Raise(ValueError, "byte must be in range(0, 256)")
			}
			b[i] = byte(v)
			return None(), nil
		},
		"__add__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			other, err := oneArg(r, "__add__", args)
			if err != nil {
				return Object{}, err
			}
			a, _ := r.BytearrayBytes(self)
			b, ok := bytesLike(r, other)
			if !ok {
				return Object{}, r.Raise(TypeError,
					"can't concat %s to bytearray", r.TypeName(other))
			}
			out := make([]byte, 0, len(a)+len(b))
			out = append(out, a...)
			out = append(out, b...)
			return r.NewBytearray(out), nil
		},
		"__iadd__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			other, err := oneArg(r, "__iadd__", args)
			if err != nil {
				return Object{}, err
			}
			b, ok := bytesLike(r, other)
			if !ok {
				return NotImplemented(), nil
			}
			d := r.heap.cellAt(self).data.(*bytearrayData)
			d.items = append(d.items, b...)
			return self, nil
		},
		"__mul__":  bytesRepeat,
		"__rmul__": bytesRepeat,
		"__contains__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			other, err := oneArg(r, "__contains__", args)
			if err != nil {
				return Object{}, err
			}
			hay, _ := r.BytearrayBytes(self)
			return bytesContains(r, hay, other)
		},
		"__eq__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			other, err := oneArg(r, "__eq__", args)
			if err != nil {
				return Object{}, err
			}
			a, _ := r.BytearrayBytes(self)
			if b, ok := bytesLike(r, other); ok {
				return Bool(string(a) == string(b)), nil
			}
			return NotImplemented(), nil
		},
		"__iter__": newSeqIter,
	})
}

func (rt *Runtime) initArrayType() {
	rt.ArrayType = rt.NewType("array", nil, map[string]Method{
		"__len__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			_, size, data, _ := r.ArrayInfo(self)
			return r.NewInt(int64(len(data) / size)), nil
		},
		"__getitem__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			idx, err := oneArg(r, "__getitem__", args)
			if err != nil {
				return Object{}, err
			}
			code, size, data, _ := r.ArrayInfo(self)
			i, out, err := r.resolveIndex(idx, len(data)/size)
			if err != nil {
				return Object{}, err
			}
			if out {
				return Object{}, r.Raise(IndexError, "array index out of range")
			}
			return decodeArrayItem(r, code, data[i*size:(i+1)*size]), nil
		},
		"__iter__": newSeqIter,
	})
}

func decodeArrayItem(r *Runtime, code byte, raw []byte) Object {
	switch code {
	case 'b':
		return r.NewInt(int64(int8(raw[0])))
	case 'B':
		return r.NewInt(int64(raw[0]))
	case 'h':
		return r.NewInt(int64(int16(binary.LittleEndian.Uint16(raw))))
	case 'H':
		return r.NewInt(int64(binary.LittleEndian.Uint16(raw)))
	case 'i', 'l':
		return r.NewInt(int64(int32(binary.LittleEndian.Uint32(raw))))
	case 'I', 'L':
		return r.NewInt(int64(binary.LittleEndian.Uint32(raw)))
	case 'q':
		return r.NewInt(int64(binary.LittleEndian.Uint64(raw)))
	case 'Q':
		return r.NewIntFromBig(new(big.Int).SetUint64(binary.LittleEndian.Uint64(raw)))
	case 'f':
		return r.NewFloat(float64(math.Float32frombits(binary.LittleEndian.Uint32(raw))))
	case 'd':
		return r.NewFloat(math.Float64frombits(binary.LittleEndian.Uint64(raw)))
	}
	return r.NewInt(int64(raw[0]))
}

func (rt *Runtime) initListType() {
	rt.ListType = rt.NewType("list", nil, map[string]Method{
		"__len__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			items, _ := r.ListItems(self)
			return r.NewInt(int64(len(items))), nil
		},
		"__getitem__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			idx, err := oneArg(r, "__getitem__", args)
			if err != nil {
				return Object{}, err
			}
			items, _ := r.ListItems(self)
			i, out, err := r.resolveIndex(idx, len(items))
			if err != nil {
				return Object{}, err
			}
			if out {
				return Object{}, r.Raise(IndexError, "list index out of range")
			}
			return items[i], nil
		},
		"__setitem__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			if len(args) != 2 {
				return Object{}, r.Raise(TypeError, "__setitem__ expected 2 arguments, got %d", len(args))
			}
			items, _ := r.ListItems(self)
			i, out, err := r.resolveIndex(args[0], len(items))
			if err != nil {
				return Object{}, err
			}
			if out {
				return Object{}, r.Raise(IndexError, "list assignment index out of range")
			}
			items[i] = args[1]
			return None(), nil
		},
		"__delitem__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			idx, err := oneArg(r, "__delitem__", args)
			if err != nil {
				return Object{}, err
			}
			items, _ := r.ListItems(self)
			i, out, err := r.resolveIndex(idx, len(items))
			if err != nil {
				return Object{}, err
			}
			if out {
				return Object{}, r.Raise(IndexError, "list assignment index out of range")
			}
			r.listSetItems(self, append(items[:i], items[i+1:]...))
			return None(), nil
		},
		"__add__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			other, err := oneArg(r, "__add__", args)
			if err != nil {
				return Object{}, err
			}
			a, _ := r.ListItems(self)
			b, ok := r.ListItems(other)
			if !ok {
				return Object{}, r.Raise(TypeError,
					"can only concatenate list (not \"%s\") to list", r.TypeName(other))
			}
			out := make([]Object, 0, len(a)+len(b))
			out = append(out, a...)
			out = append(out, b...)
			return r.NewList(out...), nil
		},
		"__iadd__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			other, err := oneArg(r, "__iadd__", args)
			if err != nil {
				return Object{}, err
			}
			// Snapshot list and tuple operands up front so that
			// extending a list with itself terminates.
			if items, ok := r.ListItems(other); ok {
				snap := make([]Object, len(items))
				copy(snap, items)
				for _, item := range snap {
					r.ListAppend(self, item)
				}
				return self, nil
			}
			iter, err := r.CreateIterator(other)
			if err != nil {
				return Object{}, err
			}
			for {
				item, done, err := r.IterNext(iter)
				if err != nil {
					return Object{}, err
				}
				if done {
					break
				}
				r.ListAppend(self, item)
			}
			return self, nil
		},
		"__mul__":  listRepeat,
		"__rmul__": listRepeat,
		"__contains__": seqContains(func(r *Runtime, o Object) ([]Object, bool) {
			return r.ListItems(o)
		}),
		"__iter__": newSeqIter,
		"append": func(r *Runtime, self Object, args ...Object) (Object, error) {
			item, err := oneArg(r, "append", args)
			if err != nil {
				return Object{}, err
			}
			r.ListAppend(self, item)
			return None(), nil
		},
	})
}

func listRepeat(r *Runtime, self Object, args ...Object) (Object, error) {
	other, err := oneArg(r, "__mul__", args)
	if err != nil {
		return Object{}, err
	}
	items, _ := r.ListItems(self)
	n, isInt, err := r.repeatCount(other)
	if err != nil {
		return Object{}, err
	}
	if !isInt {
		return NotImplemented(), nil
	}
	out := make([]Object, 0, len(items)*n)
	for i := 0; i < n; i++ {
		out = append(out, items...)
	}
	return r.NewList(out...), nil
}

func seqContains(itemsOf func(r *Runtime, o Object) ([]Object, bool)) Method {
	return func(r *Runtime, self Object, args ...Object) (Object, error) {
		needle, err := oneArg(r, "__contains__", args)
		if err != nil {
			return Object{}, err
		}
		items, _ := itemsOf(r, self)
		for _, it := range items {
			eq, err := r.Equals(it, needle)
			if err != nil {
				return Object{}, err
			}
			if eq {
				return Bool(true), nil
			}
		}
		return Bool(false), nil
	}
}

func (rt *Runtime) initTupleType() {
	rt.TupleType = rt.NewType("tuple", nil, map[string]Method{
		"__len__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			items, _ := r.TupleItems(self)
			return r.NewInt(int64(len(items))), nil
		},
		"__getitem__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			idx, err := oneArg(r, "__getitem__", args)
			if err != nil {
				return Object{}, err
			}
			items, _ := r.TupleItems(self)
			i, out, err := r.resolveIndex(idx, len(items))
			if err != nil {
				return Object{}, err
			}
			if out {
				return Object{}, r.Raise(IndexError, "tuple index out of range")
			}
			return items[i], nil
		},
		"__add__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			other, err := oneArg(r, "__add__", args)
			if err != nil {
				return Object{}, err
			}
			a, _ := r.TupleItems(self)
			b, ok := r.TupleItems(other)
			if !ok {
				return Object{}, r.Raise(TypeError,
					"can only concatenate tuple (not \"%s\") to tuple", r.TypeName(other))
			}
			out := make([]Object, 0, len(a)+len(b))
			out = append(out, a...)
			out = append(out, b...)
			return r.NewTuple(out...), nil
		},
		"__mul__":  tupleRepeat,
		"__rmul__": tupleRepeat,
		"__contains__": seqContains(func(r *Runtime, o Object) ([]Object, bool) {
			return r.TupleItems(o)
		}),
		"__iter__": newSeqIter,
		"__eq__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			other, err := oneArg(r, "__eq__", args)
			if err != nil {
				return Object{}, err
			}
			a, _ := r.TupleItems(self)
			b, ok := r.TupleItems(other)
			if !ok {
				return NotImplemented(), nil
			}
			if len(a) != len(b) {
				return Bool(false), nil
			}
			for i := range a {
				eq, err := r.Equals(a[i], b[i])
				if err != nil {
					return Object{}, err
				}
				if !eq {
					return Bool(false), nil
				}
			}
			return Bool(true), nil
		},
	})
}

func tupleRepeat(r *Runtime, self Object, args ...Object) (Object, error) {
	other, err := oneArg(r, "__mul__", args)
	if err != nil {
		return Object{}, err
	}
	items, _ := r.TupleItems(self)
	n, isInt, err := r.repeatCount(other)
	if err != nil {
		return Object{}, err
	}
	if !isInt {
		return NotImplemented(), nil
	}
	out := make([]Object, 0, len(items)*n)
	for i := 0; i < n; i++ {
		out = append(out, items...)
	}
	return r.NewTuple(out...), nil
}

func (rt *Runtime) initDictType() {
	rt.DictType = rt.NewType("dict", nil, map[string]Method{
		"__len__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			n, _ := r.DictLen(self)
			return r.NewInt(int64(n)), nil
		},
		"__getitem__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			key, err := oneArg(r, "__getitem__", args)
			if err != nil {
				return Object{}, err
			}
			v, found, err := r.DictGet(self, key)
			if err != nil {
				return Object{}, err
			}
			if !found {
				return Object{}, r.Raise(KeyError, "%s", r.Repr(key))
			}
			return v, nil
		},
		"__setitem__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			if len(args) != 2 {
				return Object{}, r.Raise(TypeError, "__setitem__ expected 2 arguments, got %d", len(args))
			}
			if err := r.DictSet(self, args[0], args[1]); err != nil {
				return Object{}, err
			}
			return None(), nil
		},
		"__delitem__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			key, err := oneArg(r, "__delitem__", args)
			if err != nil {
				return Object{}, err
			}
			found, err := r.DictDel(self, key)
			if err != nil {
				return Object{}, err
			}
			if !found {
				return Object{}, r.Raise(KeyError, "%s", r.Repr(key))
			}
			return None(), nil
		},
		"__contains__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			key, err := oneArg(r, "__contains__", args)
			if err != nil {
				return Object{}, err
			}
			_, found, err := r.DictGet(self, key)
			if err != nil {
				return Object{}, err
			}
			return Bool(found), nil
		},
		"__iter__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			keys, _, _ := r.DictEntries(self)
			return newSeqIter(r, r.NewList(keys...))
		},
		"keys": func(r *Runtime, self Object, args ...Object) (Object, error) {
			keys, _, _ := r.DictEntries(self)
			return r.NewList(keys...), nil
		},
		"values": func(r *Runtime, self Object, args ...Object) (Object, error) {
			_, values, _ := r.DictEntries(self)
			return r.NewList(values...), nil
		},
		"items": func(r *Runtime, self Object, args ...Object) (Object, error) {
			keys, values, _ := r.DictEntries(self)
			pairs := make([]Object, len(keys))
			for i := range keys {
				pairs[i] = r.NewTuple(keys[i], values[i])
			}
			return r.NewList(pairs...), nil
		},
	})
}

func (rt *Runtime) initIterTypes() {
	rt.SeqIterType = rt.NewType("iterator", nil, map[string]Method{
		"__iter__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			return self, nil
		},
		"__next__": func(r *Runtime, self Object, args ...Object) (Object, error) {
			d := r.heap.cellAt(self).data.(*seqIterData)
			item, err := r.Invoke(d.seq, "__getitem__", r.NewInt(int64(d.index)))
			if err != nil {
				if r.HasPendingError() && r.PendingKind() == IndexError {
					r.ClearPendingError()
					return Object{}, r.Raise(StopIteration, "")
				}
				return Object{}, err
			}
			d.index++
			return item, nil
		},
	})
}
