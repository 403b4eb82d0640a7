package capi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrigankpawagi/skybison/pkg/runtime"
)

func TestGetBufferBytes(t *testing.T) {
	s := newTestState(t)
	rt := s.Runtime()

	h := s.Wrap(rt.NewBytes([]byte("hello")))
	defer h.DecRef()

	var view BufferView
	require.True(t, s.GetBuffer(h, &view, BufFull&^BufWritable))
	assert.Equal(t, []byte("hello"), view.Buf)
	assert.True(t, view.ReadOnly)
	assert.Equal(t, 5, view.Len)
	assert.Equal(t, 1, view.ItemSize)
	assert.Equal(t, "B", view.Format)
	assert.Equal(t, []int{5}, view.Shape)
	assert.Equal(t, []int{1}, view.Strides)
	assert.Equal(t, 2, h.RefCount(), "the view holds a reference to its exporter")

	s.ReleaseBufferView(&view)
	assert.Equal(t, 1, h.RefCount())
	assert.Nil(t, view.Buf)

	// Releasing an already released view is a no-op.
	s.ReleaseBufferView(&view)
	assert.Equal(t, 1, h.RefCount())
}

func TestGetBufferRejectsWritableOnReadOnly(t *testing.T) {
	s := newTestState(t)
	rt := s.Runtime()

	h := s.Wrap(rt.NewBytes([]byte("ro")))
	defer h.DecRef()

	var view BufferView
	require.False(t, s.GetBuffer(h, &view, BufWritable))
	requireRaised(t, s, runtime.BufferError, "Object is not writable.")

	n := s.Wrap(rt.NewInt(7))
	defer n.DecRef()
	require.False(t, s.GetBuffer(n, &view, BufSimple))
	requireRaised(t, s, runtime.TypeError, "a bytes-like object is required, not 'int'")
	assert.False(t, s.ObjectCheckBuffer(n))
}

func TestGetBufferBytearrayAliasesStorage(t *testing.T) {
	s := newTestState(t)
	rt := s.Runtime()

	obj := rt.NewBytearray([]byte{1, 2, 3})
	h := s.Wrap(obj)
	defer h.DecRef()

	var view BufferView
	require.True(t, s.GetBuffer(h, &view, BufWritable))
	require.False(t, view.ReadOnly)
	view.Buf[0] = 99
	raw, _ := rt.BytearrayBytes(obj)
	assert.Equal(t, byte(99), raw[0], "the view aliases the live storage")
	s.ReleaseBufferView(&view)
}

func TestGetBufferArrayCopiesThroughCache(t *testing.T) {
	s := newTestState(t)
	rt := s.Runtime()
	base := NativeAllocations()

	h := s.Wrap(rt.NewArray('i', []byte{1, 0, 0, 0, 2, 0, 0, 0}))

	var view BufferView
	require.True(t, s.GetBuffer(h, &view, BufFull&^BufWritable))
	assert.Equal(t, 4, view.ItemSize)
	assert.Equal(t, "i", view.Format)
	assert.Equal(t, []int{2}, view.Shape)
	assert.Equal(t, []int{4}, view.Strides)
	assert.Equal(t, 8, view.Len)
	assert.Equal(t, base+1, NativeAllocations(), "the flat copy lives in the handle cache")
	s.ReleaseBufferView(&view)

	// A second export replaces the cached copy instead of stacking one.
	require.True(t, s.GetBuffer(h, &view, BufSimple))
	assert.Equal(t, base+1, NativeAllocations())
	s.ReleaseBufferView(&view)
	assert.Equal(t, base+1, NativeAllocations())

	// Releasing the handle frees the cached copy.
	h.DecRef()
	assert.Equal(t, base, NativeAllocations())
}

func TestGetBufferSlotExporter(t *testing.T) {
	s := newTestState(t)
	rt := s.Runtime()

	releases := 0
	typ := rt.NewType("framebuf", nil, nil)
	typ.Slots.GetBuffer = func(r *runtime.Runtime, self runtime.Object, writable bool) (*runtime.RawBuffer, error) {
		data, _ := r.InstanceData(self)
		return &runtime.RawBuffer{Data: data.([]byte), ReadOnly: !writable, Format: "B", ItemSize: 1}, nil
	}
	typ.Slots.ReleaseBuffer = func(r *runtime.Runtime, self runtime.Object) {
		releases++
	}

	h := s.Wrap(rt.NewInstance(typ, []byte{7, 8, 9}))
	defer h.DecRef()
	require.True(t, s.ObjectCheckBuffer(h))

	var view BufferView
	require.True(t, s.GetBuffer(h, &view, BufWritable))
	assert.Equal(t, []byte{7, 8, 9}, view.Buf)

	// Compaction between export and release must not confuse the
	// exporter's release slot.
	for i := 0; i < 4; i++ {
		rt.NewStr("garbage")
	}
	rt.Heap().Compact()

	s.ReleaseBufferView(&view)
	assert.Equal(t, 1, releases)
	s.ReleaseBufferView(&view)
	assert.Equal(t, 1, releases, "release runs exactly once")
}

func TestIsContiguous(t *testing.T) {
	flat := &BufferView{NDim: 1, ItemSize: 1, Shape: []int{4}, Strides: []int{1}}
	assert.True(t, IsContiguous(flat, 'C'))
	assert.True(t, IsContiguous(flat, 'F'))
	assert.True(t, IsContiguous(flat, 'A'))

	rowMajor := &BufferView{NDim: 2, ItemSize: 1, Shape: []int{2, 3}, Strides: []int{3, 1}}
	assert.True(t, IsContiguous(rowMajor, 'C'))
	assert.False(t, IsContiguous(rowMajor, 'F'))
	assert.True(t, IsContiguous(rowMajor, 'A'))

	colMajor := &BufferView{NDim: 2, ItemSize: 1, Shape: []int{2, 3}, Strides: []int{1, 2}}
	assert.False(t, IsContiguous(colMajor, 'C'))
	assert.True(t, IsContiguous(colMajor, 'F'))
	assert.True(t, IsContiguous(colMajor, 'A'))

	strided := &BufferView{NDim: 1, ItemSize: 1, Shape: []int{4}, Strides: []int{2}}
	assert.False(t, IsContiguous(strided, 'C'))
	assert.False(t, IsContiguous(strided, 'A'))

	// A view without stride data is contiguous by construction.
	assert.True(t, IsContiguous(&BufferView{NDim: 1}, 'C'))
}
