package capi

import (
	"fmt"
	"math"
	"math/big"
	"strings"
	"unicode/utf8"

	"github.com/mrigankpawagi/skybison/pkg/runtime"
)

var mask64 = new(big.Int).SetUint64(^uint64(0))

// intArg converts an argument through the index protocol, with the float
// rejection the integer codes share.
func (b *binder) intArg(arg runtime.Object, iarg int, levels []int) (*big.Int, bool) {
	rt := b.s.rt
	if _, isFloat := rt.FloatValue(arg); isFloat {
		rt.Raise(runtime.TypeError, "integer argument expected, got float")
		return nil, false
	}
	idx, err := rt.IntFromIndex(arg)
	if err != nil {
		b.converterr("int", arg, iarg, levels)
		return nil, false
	}
	v, _ := rt.AsBigInt(idx)
	return v, true
}

func (b *binder) rangedInt(v *big.Int, lo, hi int64, what string) (int64, bool) {
	if v.Cmp(big.NewInt(lo)) < 0 {
		b.s.rt.Raise(runtime.OverflowError, "%s is less than minimum", what)
		return 0, false
	}
	if v.Cmp(big.NewInt(hi)) > 0 {
		b.s.rt.Raise(runtime.OverflowError, "%s is greater than maximum", what)
		return 0, false
	}
	return v.Int64(), true
}

func maskedUint64(v *big.Int) uint64 {
	return new(big.Int).And(v, mask64).Uint64()
}

// floatArg accepts floats and integers for the real-number codes.
func (b *binder) floatArg(arg runtime.Object, iarg int, levels []int) (float64, bool) {
	rt := b.s.rt
	if f, ok := rt.FloatValue(arg); ok {
		return f, true
	}
	if v, ok := rt.AsBigInt(arg); ok {
		f, _ := new(big.Float).SetInt(v).Float64()
		return f, true
	}
	res, err := rt.Invoke(arg, "__float__")
	if err == nil {
		if f, ok := rt.FloatValue(res); ok {
			return f, true
		}
	}
	b.converterr("float", arg, iarg, levels)
	return 0, false
}

// getBufferArg exports the argument's buffer into view, translating a
// failed export into the canonical argument error.
func (b *binder) getBufferArg(arg runtime.Object, view *BufferView, flags int, expected string, iarg int, levels []int) bool {
	h := b.s.Wrap(arg)
	ok := b.s.GetBuffer(h, view, flags)
	h.DecRef()
	if !ok {
		return b.converterr(expected, arg, iarg, levels)
	}
	if !IsContiguous(view, 'C') {
		b.s.ReleaseBufferView(view)
		return b.converterr("contiguous buffer", arg, iarg, levels)
	}
	b.cleanup.Add(func() { b.s.ReleaseBufferView(view) })
	return true
}

func (b *binder) convertSimple(spec itemSpec, arg runtime.Object, iarg int, levels []int) bool {
	rt := b.s.rt
	target := b.nextOut()
	switch spec.code {
	case 'b':
		out, ok := target.(*byte)
		if !ok {
			badTarget('b', "*byte", target)
		}
		v, okv := b.intArg(arg, iarg, levels)
		if !okv {
			return false
		}
		n, okr := b.rangedInt(v, 0, 255, "unsigned byte integer")
		if !okr {
			return false
		}
		*out = byte(n)
	case 'B':
		out, ok := target.(*byte)
		if !ok {
			badTarget('B', "*byte", target)
		}
		v, okv := b.intArg(arg, iarg, levels)
		if !okv {
			return false
		}
		*out = byte(maskedUint64(v))
	case 'h':
		out, ok := target.(*int16)
		if !ok {
			badTarget('h', "*int16", target)
		}
		v, okv := b.intArg(arg, iarg, levels)
		if !okv {
			return false
		}
		n, okr := b.rangedInt(v, math.MinInt16, math.MaxInt16, "signed short integer")
		if !okr {
			return false
		}
		*out = int16(n)
	case 'H':
		out, ok := target.(*uint16)
		if !ok {
			badTarget('H', "*uint16", target)
		}
		v, okv := b.intArg(arg, iarg, levels)
		if !okv {
			return false
		}
		*out = uint16(maskedUint64(v))
	case 'i':
		out, ok := target.(*int32)
		if !ok {
			badTarget('i', "*int32", target)
		}
		v, okv := b.intArg(arg, iarg, levels)
		if !okv {
			return false
		}
		n, okr := b.rangedInt(v, math.MinInt32, math.MaxInt32, "signed integer")
		if !okr {
			return false
		}
		*out = int32(n)
	case 'I':
		out, ok := target.(*uint32)
		if !ok {
			badTarget('I', "*uint32", target)
		}
		v, okv := b.intArg(arg, iarg, levels)
		if !okv {
			return false
		}
		*out = uint32(maskedUint64(v))
	case 'l', 'L':
		out, ok := target.(*int64)
		if !ok {
			badTarget(spec.code, "*int64", target)
		}
		v, okv := b.intArg(arg, iarg, levels)
		if !okv {
			return false
		}
		if !v.IsInt64() {
			width := "C long"
			if spec.code == 'L' {
				width = "C long long"
			}
			rt.Raise(runtime.OverflowError, "Python int too large to convert to %s", width)
			return false
		}
		*out = v.Int64()
	case 'k', 'K':
		out, ok := target.(*uint64)
		if !ok {
			badTarget(spec.code, "*uint64", target)
		}
		v, okv := b.intArg(arg, iarg, levels)
		if !okv {
			return false
		}
		*out = maskedUint64(v)
	case 'n':
		out, ok := target.(*int)
		if !ok {
			badTarget('n', "*int", target)
		}
		v, okv := b.intArg(arg, iarg, levels)
		if !okv {
			return false
		}
		if !v.IsInt64() || v.Int64() > int64(maxInt) || v.Int64() < int64(minInt) {
			rt.Raise(runtime.OverflowError, "Python int too large to convert to C ssize_t")
			return false
		}
		*out = int(v.Int64())
	case 'f':
		out, ok := target.(*float32)
		if !ok {
			badTarget('f', "*float32", target)
		}
		f, okf := b.floatArg(arg, iarg, levels)
		if !okf {
			return false
		}
		*out = float32(f)
	case 'd':
		out, ok := target.(*float64)
		if !ok {
			badTarget('d', "*float64", target)
		}
		f, okf := b.floatArg(arg, iarg, levels)
		if !okf {
			return false
		}
		*out = f
	case 'D':
		out, ok := target.(*complex128)
		if !ok {
			badTarget('D', "*complex128", target)
		}
		if c, okc := rt.ComplexValue(arg); okc {
			*out = c
			return true
		}
		if f, okf := rt.FloatValue(arg); okf {
			*out = complex(f, 0)
			return true
		}
		if v, oki := rt.AsBigInt(arg); oki {
			f, _ := new(big.Float).SetInt(v).Float64()
			*out = complex(f, 0)
			return true
		}
		return b.converterr("complex", arg, iarg, levels)
	case 'c':
		out, ok := target.(*byte)
		if !ok {
			badTarget('c', "*byte", target)
		}
		raw, okb := b.bytesLike(arg)
		if !okb || len(raw) != 1 {
			return b.converterr("a byte string of length 1", arg, iarg, levels)
		}
		*out = raw[0]
	case 'C':
		out, ok := target.(*rune)
		if !ok {
			badTarget('C', "*rune", target)
		}
		s, oks := rt.StrValue(arg)
		if !oks || utf8.RuneCountInString(s) != 1 {
			return b.converterr("a unicode character", arg, iarg, levels)
		}
		r, _ := utf8.DecodeRuneInString(s)
		*out = r
	case 'p':
		out, ok := target.(*bool)
		if !ok {
			badTarget('p', "*bool", target)
		}
		v, err := rt.IsTrue(arg)
		if err != nil {
			return false
		}
		*out = v
	case 's':
		return b.convertStr(spec, arg, target, false, iarg, levels)
	case 'z':
		return b.convertStr(spec, arg, target, true, iarg, levels)
	case 'y':
		return b.convertBytes(spec, arg, target, iarg, levels)
	case 'u', 'Z':
		out, ok := target.(*[]rune)
		if !ok {
			badTarget(spec.code, "*[]rune", target)
		}
		if spec.code == 'Z' && arg.IsNone() {
			*out = nil
			return true
		}
		s, oks := rt.StrValue(arg)
		if !oks {
			return b.converterr("str", arg, iarg, levels)
		}
		*out = []rune(s)
	case 'e':
		return b.convertEncoded(spec, arg, target, iarg, levels)
	case 'w':
		view, ok := target.(*BufferView)
		if !ok {
			badTarget('w', "*BufferView", target)
		}
		return b.getBufferArg(arg, view, BufWritable, "read-write bytes-like object", iarg, levels)
	case 'S':
		out, ok := target.(**Handle)
		if !ok {
			badTarget('S', "**Handle", target)
		}
		if _, okb := rt.BytesValue(arg); !okb {
			return b.converterr("bytes", arg, iarg, levels)
		}
		*out = b.s.Borrow(arg)
	case 'Y':
		out, ok := target.(**Handle)
		if !ok {
			badTarget('Y', "**Handle", target)
		}
		if _, okb := rt.BytearrayBytes(arg); !okb {
			return b.converterr("bytearray", arg, iarg, levels)
		}
		*out = b.s.Borrow(arg)
	case 'U':
		out, ok := target.(**Handle)
		if !ok {
			badTarget('U', "**Handle", target)
		}
		if _, oks := rt.StrValue(arg); !oks {
			return b.converterr("str", arg, iarg, levels)
		}
		*out = b.s.Borrow(arg)
	case 'O':
		switch {
		case spec.bang:
			typ, okt := target.(*runtime.Type)
			if !okt {
				badTarget('O', "*runtime.Type guard followed by **Handle", target)
			}
			out, oko := b.nextOut().(**Handle)
			if !oko {
				badTarget('O', "**Handle", target)
			}
			if !rt.TypeOf(arg).IsSubtype(typ) {
				return b.converterr(typ.Name, arg, iarg, levels)
			}
			*out = b.s.Borrow(arg)
		case spec.amp:
			conv, okc := target.(Converter)
			if !okc {
				badTarget('O', "Converter followed by its target", target)
			}
			convTarget := b.nextOut()
			h := b.s.Borrow(arg)
			switch conv(b.s, h, convTarget) {
			case ConvertFailed:
				if !rt.HasPendingError() {
					rt.Raise(runtime.SystemError, "converter function failed without setting an error")
				}
				return false
			case ConvertCleanup:
				b.cleanup.Add(func() { conv(b.s, nil, convTarget) })
			}
		default:
			out, oko := target.(**Handle)
			if !oko {
				badTarget('O', "**Handle", target)
			}
			*out = b.s.Borrow(arg)
		}
	default:
		panic(formatError(fmt.Sprintf("capi: unhandled format code '%c'", spec.code)))
	}
	return true
}

func (b *binder) bytesLike(arg runtime.Object) ([]byte, bool) {
	if raw, ok := b.s.rt.BytesValue(arg); ok {
		return raw, true
	}
	if raw, ok := b.s.rt.BytearrayBytes(arg); ok {
		return raw, true
	}
	return nil, false
}

// convertStr handles 's' and 'z' with their '#' and '*' variants. The
// nullable 'z' binds through a **string so None is distinguishable.
func (b *binder) convertStr(spec itemSpec, arg runtime.Object, target any, nullable bool, iarg int, levels []int) bool {
	rt := b.s.rt
	if spec.star {
		view, ok := target.(*BufferView)
		if !ok {
			badTarget(spec.code, "*BufferView", target)
		}
		if nullable && arg.IsNone() {
			*view = BufferView{}
			return true
		}
		if s, oks := rt.StrValue(arg); oks {
			h := b.s.Wrap(arg)
			filled := b.s.FillInfo(view, h, []byte(s), true, BufSimple)
			h.DecRef()
			if !filled {
				return false
			}
			b.cleanup.Add(func() { b.s.ReleaseBufferView(view) })
			return true
		}
		expected := "str or bytes-like object"
		return b.getBufferArg(arg, view, BufSimple, expected, iarg, levels)
	}
	if nullable {
		out, ok := target.(**string)
		if !ok {
			badTarget('z', "**string", target)
		}
		if arg.IsNone() {
			*out = nil
			return true
		}
		s, oks := rt.StrValue(arg)
		if !oks {
			return b.converterr("str or None", arg, iarg, levels)
		}
		if !spec.hash && strings.IndexByte(s, 0) >= 0 {
			rt.Raise(runtime.ValueError, "embedded null character")
			return false
		}
		*out = &s
		return true
	}
	out, ok := target.(*string)
	if !ok {
		badTarget('s', "*string", target)
	}
	s, oks := rt.StrValue(arg)
	if !oks {
		return b.converterr("str", arg, iarg, levels)
	}
	if !spec.hash && strings.IndexByte(s, 0) >= 0 {
		rt.Raise(runtime.ValueError, "embedded null character")
		return false
	}
	*out = s
	return true
}

// convertBytes handles 'y' with its '#' and '*' variants. The plain forms
// alias the exporter's storage; only '*' takes a counted buffer view.
func (b *binder) convertBytes(spec itemSpec, arg runtime.Object, target any, iarg int, levels []int) bool {
	rt := b.s.rt
	if spec.star {
		view, ok := target.(*BufferView)
		if !ok {
			badTarget('y', "*BufferView", target)
		}
		return b.getBufferArg(arg, view, BufSimple, "bytes-like object", iarg, levels)
	}
	out, ok := target.(*[]byte)
	if !ok {
		badTarget('y', "*[]byte", target)
	}
	raw, okb := b.bytesLike(arg)
	if !okb {
		return b.converterr("read-only bytes-like object", arg, iarg, levels)
	}
	if !spec.hash {
		for _, c := range raw {
			if c == 0 {
				rt.Raise(runtime.ValueError, "embedded null byte")
				return false
			}
		}
	}
	*out = raw
	return true
}

// convertEncoded handles 'es' and 'et': the target pair is the encoding
// name followed by a *[]byte that receives a tracked native buffer the
// caller must free with FreeEncoded.
func (b *binder) convertEncoded(spec itemSpec, arg runtime.Object, target any, iarg int, levels []int) bool {
	rt := b.s.rt
	encoding, ok := target.(string)
	if !ok {
		badTarget('e', "encoding string followed by *[]byte", target)
	}
	out, oko := b.nextOut().(*[]byte)
	if !oko {
		badTarget('e', "*[]byte", target)
	}
	if encoding == "" {
		encoding = "utf-8"
	}

	var raw []byte
	if spec.sub == 't' {
		if bl, okb := b.bytesLike(arg); okb {
			raw = bl
		}
	}
	if raw == nil {
		s, oks := rt.StrValue(arg)
		if !oks {
			expected := "str"
			if spec.sub == 't' {
				expected = "str, bytes or bytearray"
			}
			return b.converterr(expected, arg, iarg, levels)
		}
		encoded, err := encodeString(rt, s, encoding)
		if err != nil {
			return false
		}
		raw = encoded
	}

	buf := allocTracked(len(raw))
	copy(buf, raw)
	*out = buf
	b.cleanup.Add(func() {
		freeTracked(buf)
		*out = nil
	})
	if !spec.hash {
		for _, c := range buf {
			if c == 0 {
				return b.converterr("encoded string without null bytes", arg, iarg, levels)
			}
		}
	}
	return true
}

// FreeEncoded releases a buffer produced by an 'es'/'et' conversion that
// completed successfully.
func (s *State) FreeEncoded(b []byte) { freeTracked(b) }

// encodeString encodes text for the encoded-string codes. The supported
// codecs match the runtime's own: utf-8, ascii, latin-1.
func encodeString(rt *runtime.Runtime, s, encoding string) ([]byte, error) {
	switch strings.ToLower(encoding) {
	case "utf-8", "utf8":
		return []byte(s), nil
	case "ascii", "us-ascii":
		for _, r := range s {
			if r >= 0x80 {
				return nil, rt.Raise(runtime.UnicodeEncodeError,
					"'ascii' codec can't encode character: ordinal not in range(128)")
			}
		}
		return []byte(s), nil
	case "latin-1", "latin1", "iso-8859-1":
		out := make([]byte, 0, len(s))
		for _, r := range s {
			if r >= 0x100 {
				return nil, rt.Raise(runtime.UnicodeEncodeError,
					"'latin-1' codec can't encode character: ordinal not in range(256)")
			}
			out = append(out, byte(r))
		}
		return out, nil
	default:
		return nil, rt.Raise(runtime.LookupError, "unknown encoding: %s", encoding)
	}
}
