// Package runtime implements a small managed object runtime with a
// relocatable heap. Values are represented as single-word Objects:
// small integers and singletons are packed into the word itself, while
// everything else is a slot reference into the heap. Heap slots may move
// when the heap compacts, so code outside the runtime must never retain a
// raw slot index; it registers the Object word as a root instead and lets
// compaction rewrite it.
package runtime

// Word layout, low three bits:
//
//	xxxx...xxx1  small integer, 63-bit two's complement payload
//	xxxx...x010  immediate singleton, code in the upper bits
//	xxxx...x100  heap reference, slot index in the upper bits
type Object struct {
	w uint64
}

const (
	tagMask      = 0x7
	smallIntTag  = 0x1
	immediateTag = 0x2
	heapTag      = 0x4
)

const (
	immNone = iota
	immTrue
	immFalse
	immNotImplemented
	immUnbound
)

// SmallIntMin and SmallIntMax bound the range representable without a heap
// allocation. Integers outside the range are stored as big ints.
const (
	SmallIntMax = int64(1)<<62 - 1
	SmallIntMin = -(int64(1) << 62)
)

func newSmallInt(v int64) Object {
	return Object{w: uint64(v)<<1 | smallIntTag}
}

func newImmediate(code uint64) Object {
	return Object{w: code<<3 | immediateTag}
}

func newHeapRef(slot int) Object {
	return Object{w: uint64(slot)<<3 | heapTag}
}

// IsSmallInt reports whether o is an integer packed into the word.
func (o Object) IsSmallInt() bool { return o.w&0x1 == smallIntTag }

// IsHeap reports whether o refers to a heap slot.
func (o Object) IsHeap() bool { return o.w&tagMask == heapTag }

// IsImmediate reports whether o is identified purely by its word value,
// so it can be recreated without touching the heap.
func (o Object) IsImmediate() bool { return !o.IsHeap() }

// SmallIntValue returns the packed integer payload. Only meaningful when
// IsSmallInt reports true.
func (o Object) SmallIntValue() int64 { return int64(o.w) >> 1 }

func (o Object) isImmediateCode(code uint64) bool {
	return o.w == code<<3|immediateTag
}

// IsNone reports whether o is the None singleton.
func (o Object) IsNone() bool { return o.isImmediateCode(immNone) }

// IsBool reports whether o is True or False.
func (o Object) IsBool() bool {
	return o.isImmediateCode(immTrue) || o.isImmediateCode(immFalse)
}

// IsNotImplemented reports whether o is the NotImplemented singleton.
func (o Object) IsNotImplemented() bool { return o.isImmediateCode(immNotImplemented) }

// IsUnbound reports whether o is the internal unbound marker. Unbound never
// escapes to managed code; it fills freshly allocated container slots.
func (o Object) IsUnbound() bool { return o.isImmediateCode(immUnbound) }

// BoolValue returns the truth value of a True or False word.
func (o Object) BoolValue() bool { return o.isImmediateCode(immTrue) }

func (o Object) heapSlot() int { return int(o.w >> 3) }

// Is reports object identity. Immediates compare by word value; heap
// objects compare by slot, which is stable between compactions only, so
// identity checks must happen with both words already fixed up.
func (o Object) Is(other Object) bool { return o.w == other.w }

// None returns the None singleton.
func None() Object { return newImmediate(immNone) }

// NotImplemented returns the NotImplemented singleton.
func NotImplemented() Object { return newImmediate(immNotImplemented) }

// Unbound returns the internal unbound marker.
func Unbound() Object { return newImmediate(immUnbound) }

// Bool returns the True or False singleton.
func Bool(v bool) Object {
	if v {
		return newImmediate(immTrue)
	}
	return newImmediate(immFalse)
}
