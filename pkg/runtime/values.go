package runtime

import (
	"math"
	"math/big"
)

// Heap payload representations. Tuples store their item slice directly;
// the mutable containers go through a pointer so shared references observe
// mutation.
type listData struct {
	items []Object
}

type bytearrayData struct {
	items []byte
}

type arrayData struct {
	typecode byte
	itemsize int
	data     []byte
}

type dictEntry struct {
	key   Object
	value Object
	hash  dictKey
}

type dictData struct {
	entries []dictEntry
	index   map[dictKey]int
}

type seqIterData struct {
	seq   Object
	index int
}

type funcData struct {
	name string
	fn   Function
}

type boundMethodData struct {
	name string
	self Object
	fn   Method
}

// dictKey is a value-identity key for hashable objects. It is independent
// of heap slot indices so dict lookups survive compaction.
type dictKey struct {
	kind byte
	i    int64
	f    float64
	s    string
}

const (
	keyKindInt = iota
	keyKindFloat
	keyKindStr
	keyKindBytes
	keyKindNone
)

func (rt *Runtime) hashKey(o Object) (dictKey, error) {
	if o.IsSmallInt() {
		return dictKey{kind: keyKindInt, i: o.SmallIntValue()}, nil
	}
	if o.IsNone() {
		return dictKey{kind: keyKindNone}, nil
	}
	if o.IsBool() {
		if o.BoolValue() {
			return dictKey{kind: keyKindInt, i: 1}, nil
		}
		return dictKey{kind: keyKindInt, i: 0}, nil
	}
	if o.IsHeap() {
		c := rt.heap.cellAt(o)
		switch d := c.data.(type) {
		case *big.Int:
			if d.IsInt64() {
				return dictKey{kind: keyKindInt, i: d.Int64()}, nil
			}
			return dictKey{kind: keyKindStr, s: "bigint:" + d.String()}, nil
		case string:
			return dictKey{kind: keyKindStr, s: d}, nil
		case float64:
			// Integral floats share the int key space so 2.0 and 2 hash
			// alike; outside the int64 range the conversion would
			// saturate and collide distinct keys.
			if d == math.Trunc(d) && d >= -(1<<63) && d < 1<<63 {
				return dictKey{kind: keyKindInt, i: int64(d)}, nil
			}
			return dictKey{kind: keyKindFloat, f: d}, nil
		}
		if c.typ == rt.BytesType {
			return dictKey{kind: keyKindBytes, s: string(c.data.([]byte))}, nil
		}
	}
	return dictKey{}, rt.Raise(TypeError, "unhashable type: '%s'", rt.TypeName(o))
}

// NewInt returns an integer object, packed into the word when the value
// fits the small int range.
func (rt *Runtime) NewInt(v int64) Object {
	if v >= SmallIntMin && v <= SmallIntMax {
		return newSmallInt(v)
	}
	return rt.heap.alloc(rt.IntType, big.NewInt(v))
}

// NewIntFromBig returns an integer object, normalizing to a small int when
// the value fits.
func (rt *Runtime) NewIntFromBig(v *big.Int) Object {
	if v.IsInt64() {
		n := v.Int64()
		if n >= SmallIntMin && n <= SmallIntMax {
			return newSmallInt(n)
		}
	}
	return rt.heap.alloc(rt.IntType, new(big.Int).Set(v))
}

// IsInt reports whether o is an integer (bools included, as in the managed
// language's numeric tower).
func (rt *Runtime) IsInt(o Object) bool {
	if o.IsSmallInt() || o.IsBool() {
		return true
	}
	return o.IsHeap() && rt.heap.cellAt(o).typ.IsSubtype(rt.IntType)
}

// AsInt returns the int64 value of an integer object. ok is false when o
// is not an integer or does not fit 64 bits.
func (rt *Runtime) AsInt(o Object) (int64, bool) {
	if o.IsSmallInt() {
		return o.SmallIntValue(), true
	}
	if o.IsBool() {
		if o.BoolValue() {
			return 1, true
		}
		return 0, true
	}
	if o.IsHeap() {
		if b, ok := rt.heap.cellAt(o).data.(*big.Int); ok {
			if b.IsInt64() {
				return b.Int64(), true
			}
		}
	}
	return 0, false
}

// AsBigInt returns the arbitrary-precision value of an integer object.
func (rt *Runtime) AsBigInt(o Object) (*big.Int, bool) {
	if o.IsSmallInt() {
		return big.NewInt(o.SmallIntValue()), true
	}
	if o.IsBool() {
		if o.BoolValue() {
			return big.NewInt(1), true
		}
		return big.NewInt(0), true
	}
	if o.IsHeap() {
		if b, ok := rt.heap.cellAt(o).data.(*big.Int); ok {
			return b, true
		}
	}
	return nil, false
}

// NewFloat returns a float object.
func (rt *Runtime) NewFloat(v float64) Object {
	return rt.heap.alloc(rt.FloatType, v)
}

// FloatValue returns the payload of a float object.
func (rt *Runtime) FloatValue(o Object) (float64, bool) {
	if o.IsHeap() {
		if f, ok := rt.heap.cellAt(o).data.(float64); ok {
			return f, true
		}
	}
	return 0, false
}

// NewComplex returns a complex object.
func (rt *Runtime) NewComplex(v complex128) Object {
	return rt.heap.alloc(rt.ComplexType, v)
}

// ComplexValue returns the payload of a complex object.
func (rt *Runtime) ComplexValue(o Object) (complex128, bool) {
	if o.IsHeap() {
		if c, ok := rt.heap.cellAt(o).data.(complex128); ok {
			return c, true
		}
	}
	return 0, false
}

// NewStr returns a str object.
func (rt *Runtime) NewStr(s string) Object {
	return rt.heap.alloc(rt.StrType, s)
}

// StrValue returns the payload of a str object.
func (rt *Runtime) StrValue(o Object) (string, bool) {
	if o.IsHeap() {
		if s, ok := rt.heap.cellAt(o).data.(string); ok {
			return s, true
		}
	}
	return "", false
}

// NewBytes returns an immutable bytes object. The slice is copied.
func (rt *Runtime) NewBytes(b []byte) Object {
	cp := make([]byte, len(b))
	copy(cp, b)
	return rt.heap.alloc(rt.BytesType, cp)
}

// BytesValue returns the payload of a bytes object. Callers must not
// mutate the slice.
func (rt *Runtime) BytesValue(o Object) ([]byte, bool) {
	if o.IsHeap() {
		c := rt.heap.cellAt(o)
		if c.typ.IsSubtype(rt.BytesType) {
			return c.data.([]byte), true
		}
	}
	return nil, false
}

// NewBytearray returns a mutable bytearray object. The slice is copied.
func (rt *Runtime) NewBytearray(b []byte) Object {
	cp := make([]byte, len(b))
	copy(cp, b)
	return rt.heap.alloc(rt.BytearrayType, &bytearrayData{items: cp})
}

// BytearrayBytes returns the live backing slice of a bytearray; writes
// through it mutate the object.
func (rt *Runtime) BytearrayBytes(o Object) ([]byte, bool) {
	if o.IsHeap() {
		if d, ok := rt.heap.cellAt(o).data.(*bytearrayData); ok {
			return d.items, true
		}
	}
	return nil, false
}

// NewArray returns a typed flat array object. itemsize follows the
// typecode ('b' 1, 'h' 2, 'i'/'f' 4, 'q'/'d' 8).
func (rt *Runtime) NewArray(typecode byte, data []byte) Object {
	size := 1
	switch typecode {
	case 'h', 'H':
		size = 2
	case 'i', 'I', 'l', 'L', 'f':
		size = 4
	case 'q', 'Q', 'd':
		size = 8
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return rt.heap.alloc(rt.ArrayType, &arrayData{typecode: typecode, itemsize: size, data: cp})
}

// ArrayInfo returns the typecode, item size and live backing storage of an
// array object.
func (rt *Runtime) ArrayInfo(o Object) (typecode byte, itemsize int, data []byte, ok bool) {
	if o.IsHeap() {
		if d, okc := rt.heap.cellAt(o).data.(*arrayData); okc {
			return d.typecode, d.itemsize, d.data, true
		}
	}
	return 0, 0, nil, false
}

// NewList returns a list object holding the given items.
func (rt *Runtime) NewList(items ...Object) Object {
	cp := make([]Object, len(items))
	copy(cp, items)
	return rt.heap.alloc(rt.ListType, &listData{items: cp})
}

// ListItems returns the live item slice of a list.
func (rt *Runtime) ListItems(o Object) ([]Object, bool) {
	if o.IsHeap() {
		if d, ok := rt.heap.cellAt(o).data.(*listData); ok {
			return d.items, true
		}
	}
	return nil, false
}

// ListAppend appends to a list in place.
func (rt *Runtime) ListAppend(o Object, item Object) bool {
	if o.IsHeap() {
		if d, ok := rt.heap.cellAt(o).data.(*listData); ok {
			d.items = append(d.items, item)
			return true
		}
	}
	return false
}

func (rt *Runtime) listSetItems(o Object, items []Object) {
	rt.heap.cellAt(o).data.(*listData).items = items
}

// ListReplaceRange splices items into a list in place of the half-open
// index range [lo, hi). The caller clips the bounds.
func (rt *Runtime) ListReplaceRange(o Object, lo, hi int, items []Object) bool {
	d, ok := rt.heap.cellAt(o).data.(*listData)
	if !ok {
		return false
	}
	tail := make([]Object, len(d.items)-hi)
	copy(tail, d.items[hi:])
	d.items = append(append(d.items[:lo], items...), tail...)
	return true
}

// NewTuple returns a tuple object holding the given items.
func (rt *Runtime) NewTuple(items ...Object) Object {
	cp := make([]Object, len(items))
	copy(cp, items)
	return rt.heap.alloc(rt.TupleType, cp)
}

// TupleItems returns the item slice of a tuple. Callers must not mutate it.
func (rt *Runtime) TupleItems(o Object) ([]Object, bool) {
	if o.IsHeap() {
		c := rt.heap.cellAt(o)
		if c.typ.IsSubtype(rt.TupleType) {
			return c.data.([]Object), true
		}
	}
	return nil, false
}

// NewDict returns an empty dict object.
func (rt *Runtime) NewDict() Object {
	return rt.heap.alloc(rt.DictType, &dictData{index: make(map[dictKey]int)})
}

func (rt *Runtime) dictData(o Object) (*dictData, bool) {
	if o.IsHeap() {
		if d, ok := rt.heap.cellAt(o).data.(*dictData); ok {
			return d, true
		}
	}
	return nil, false
}

// DictSet stores key -> value, raising TypeError for unhashable keys.
func (rt *Runtime) DictSet(dict, key, value Object) error {
	d, ok := rt.dictData(dict)
	if !ok {
		return rt.Raise(SystemError, "DictSet on non-dict '%s'", rt.TypeName(dict))
	}
	h, err := rt.hashKey(key)
	if err != nil {
		return err
	}
	if i, exists := d.index[h]; exists {
		d.entries[i].value = value
		return nil
	}
	d.index[h] = len(d.entries)
	d.entries = append(d.entries, dictEntry{key: key, value: value, hash: h})
	return nil
}

// DictGet looks up key. found is false on a clean miss; err is non-nil
// only when hashing raised.
func (rt *Runtime) DictGet(dict, key Object) (value Object, found bool, err error) {
	d, ok := rt.dictData(dict)
	if !ok {
		return Object{}, false, rt.Raise(SystemError, "DictGet on non-dict '%s'", rt.TypeName(dict))
	}
	h, err := rt.hashKey(key)
	if err != nil {
		return Object{}, false, err
	}
	if i, exists := d.index[h]; exists {
		return d.entries[i].value, true, nil
	}
	return Object{}, false, nil
}

// DictDel removes key. found is false on a clean miss.
func (rt *Runtime) DictDel(dict, key Object) (found bool, err error) {
	d, ok := rt.dictData(dict)
	if !ok {
		return false, rt.Raise(SystemError, "DictDel on non-dict '%s'", rt.TypeName(dict))
	}
	h, err := rt.hashKey(key)
	if err != nil {
		return false, err
	}
	i, exists := d.index[h]
	if !exists {
		return false, nil
	}
	delete(d.index, h)
	d.entries = append(d.entries[:i], d.entries[i+1:]...)
	for j := i; j < len(d.entries); j++ {
		d.index[d.entries[j].hash] = j
	}
	return true, nil
}

// DictLen returns the number of entries.
func (rt *Runtime) DictLen(dict Object) (int, bool) {
	d, ok := rt.dictData(dict)
	if !ok {
		return 0, false
	}
	return len(d.entries), true
}

// DictEntries returns the keys and values in insertion order.
func (rt *Runtime) DictEntries(dict Object) (keys, values []Object, ok bool) {
	d, okd := rt.dictData(dict)
	if !okd {
		return nil, nil, false
	}
	keys = make([]Object, len(d.entries))
	values = make([]Object, len(d.entries))
	for i, e := range d.entries {
		keys[i] = e.key
		values[i] = e.value
	}
	return keys, values, true
}

// NewFunction returns a callable function object.
func (rt *Runtime) NewFunction(name string, fn Function) Object {
	return rt.heap.alloc(rt.FunctionType, &funcData{name: name, fn: fn})
}

// NewInstance allocates a heap object of an extension type. The payload
// is opaque to the collector: it is kept alive with the cell but never
// traced, so it must not hold Objects.
func (rt *Runtime) NewInstance(typ *Type, data any) Object {
	return rt.heap.alloc(typ, data)
}

// InstanceData returns the payload of an extension-typed object.
func (rt *Runtime) InstanceData(o Object) (any, bool) {
	if !o.IsHeap() {
		return nil, false
	}
	return rt.heap.cellAt(o).data, true
}

// IsCallable reports whether o can be called.
func (rt *Runtime) IsCallable(o Object) bool {
	t := rt.TypeOf(o)
	if t.Slots.Call != nil {
		return true
	}
	_, ok := rt.LookupMethod(t, "__call__")
	return ok
}
