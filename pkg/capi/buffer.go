package capi

import (
	"github.com/mrigankpawagi/skybison/pkg/runtime"
)

// Buffer request flags. A request is a bitwise OR; each compound flag
// implies the simpler ones it is built from.
const (
	BufSimple   = 0x0000
	BufWritable = 0x0001
	BufFormat   = 0x0004
	BufND       = 0x0008
	BufStrides  = 0x0010 | BufND

	BufCContiguous   = 0x0020 | BufStrides
	BufFContiguous   = 0x0040 | BufStrides
	BufAnyContiguous = 0x0080 | BufStrides

	BufFull     = BufIndirect | BufWritable | BufFormat
	BufContig   = BufND | BufWritable
	BufIndirect = 0x0100 | BufStrides
)

// BufferView describes exported raw storage. Buf aliases the exporter's
// storage (or a synthesized copy held in the owning handle's cache); Obj
// keeps the exporter alive until Release.
type BufferView struct {
	Buf      []byte
	Obj      *Handle
	Len      int
	ReadOnly bool
	ItemSize int
	Format   string
	NDim     int
	Shape    []int
	Strides  []int

	releaser func(s *State)
}

// FillInfo populates view for a one-dimensional exporter, honoring the
// shape-related request flags and rejecting writable requests against
// read-only storage.
func (s *State) FillInfo(view *BufferView, owner *Handle, buf []byte, readonly bool, flags int) bool {
	if flags&BufWritable != 0 && readonly {
		s.rt.Raise(runtime.BufferError, "Object is not writable.")
		return false
	}
	if owner != nil {
		owner.IncRef()
	}
	view.Obj = owner
	view.Buf = buf
	view.Len = len(buf)
	view.ReadOnly = readonly
	view.ItemSize = 1
	view.NDim = 1
	if flags&BufFormat != 0 {
		view.Format = "B"
	} else {
		view.Format = ""
	}
	if flags&BufND == BufND {
		view.Shape = []int{len(buf)}
	} else {
		view.Shape = nil
	}
	if flags&BufStrides == BufStrides {
		view.Strides = []int{1}
	} else {
		view.Strides = nil
	}
	return true
}

// GetBuffer exports the raw storage of o into view. Bytes export
// read-only storage directly, bytearrays their live mutable storage, and
// typed arrays a synthesized flat copy kept alive in the handle's cache
// slot (replacing and freeing any previous copy). Types with a buffer
// slot export through it; everything else raises the bytes-like
// TypeError.
func (s *State) GetBuffer(o *Handle, view *BufferView, flags int) bool {
	obj := o.Object()
	if b, ok := s.rt.BytesValue(obj); ok {
		return s.FillInfo(view, o, b, true, flags)
	}
	if b, ok := s.rt.BytearrayBytes(obj); ok {
		return s.FillInfo(view, o, b, false, flags)
	}
	if code, size, data, ok := s.rt.ArrayInfo(obj); ok {
		copied := allocTracked(len(data))
		copy(copied, data)
		o.SetCache(copied)
		if !s.FillInfo(view, o, copied, false, flags) {
			return false
		}
		view.ItemSize = size
		if flags&BufFormat != 0 {
			view.Format = string(code)
		}
		if view.Shape != nil {
			view.Shape = []int{len(data) / size}
		}
		if view.Strides != nil {
			view.Strides = []int{size}
		}
		view.Len = len(data)
		return true
	}
	t := s.rt.TypeOf(obj)
	if t.Slots.GetBuffer != nil {
		raw, err := t.Slots.GetBuffer(s.rt, obj, flags&BufWritable != 0)
		if err != nil {
			return false
		}
		if !s.FillInfo(view, o, raw.Data, raw.ReadOnly, flags) {
			return false
		}
		if raw.ItemSize > 0 {
			view.ItemSize = raw.ItemSize
		}
		if flags&BufFormat != 0 && raw.Format != "" {
			view.Format = raw.Format
		}
		// Re-read the object word through the handle at release time;
		// the heap may have compacted in between.
		view.releaser = func(st *State) {
			if t.Slots.ReleaseBuffer != nil {
				t.Slots.ReleaseBuffer(st.rt, o.Object())
			}
		}
		return true
	}
	s.rt.Raise(runtime.TypeError,
		"a bytes-like object is required, not '%s'", s.rt.TypeName(obj))
	return false
}

// ObjectCheckBuffer reports whether o can export a buffer.
func (s *State) ObjectCheckBuffer(o *Handle) bool {
	obj := o.Object()
	if _, ok := s.rt.BytesValue(obj); ok {
		return true
	}
	if _, ok := s.rt.BytearrayBytes(obj); ok {
		return true
	}
	if _, _, _, ok := s.rt.ArrayInfo(obj); ok {
		return true
	}
	return s.rt.TypeOf(obj).Slots.GetBuffer != nil
}

// ReleaseBufferView tears down a filled view: the exporter's release slot
// runs first, then the owning reference drops exactly once. Releasing an
// empty or already released view is a no-op.
func (s *State) ReleaseBufferView(view *BufferView) {
	if view.Obj == nil {
		return
	}
	if view.releaser != nil {
		view.releaser(s)
		view.releaser = nil
	}
	view.Obj.DecRef()
	view.Obj = nil
	view.Buf = nil
}

// IsContiguous reports whether the view's memory is contiguous in the
// requested order: 'C' row-major, 'F' column-major, 'A' either.
func IsContiguous(view *BufferView, order byte) bool {
	if view.Strides == nil {
		return true
	}
	switch order {
	case 'C':
		return contiguous(view, true)
	case 'F':
		return contiguous(view, false)
	case 'A':
		return contiguous(view, true) || contiguous(view, false)
	}
	return false
}

func contiguous(view *BufferView, rowMajor bool) bool {
	if view.NDim == 0 {
		return true
	}
	expected := view.ItemSize
	if rowMajor {
		for i := view.NDim - 1; i >= 0; i-- {
			dim := view.Shape[i]
			if dim > 1 && view.Strides[i] != expected {
				return false
			}
			expected *= dim
		}
	} else {
		for i := 0; i < view.NDim; i++ {
			dim := view.Shape[i]
			if dim > 1 && view.Strides[i] != expected {
				return false
			}
			expected *= dim
		}
	}
	return true
}
