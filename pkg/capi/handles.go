package capi

import (
	"sync/atomic"

	"github.com/mrigankpawagi/skybison/pkg/runtime"
)

// poisonRefs marks a released handle. Any use after release trips the
// Object accessor's contract check.
const poisonRefs = int32(-0x40000000)

// nativeAllocs counts outstanding native-owned buffers (handle caches,
// decoded argument buffers). Tests assert it returns to zero after
// unwinding, so every allocation site pairs with a tracked free.
var nativeAllocs atomic.Int64

func allocTracked(n int) []byte {
	nativeAllocs.Add(1)
	return make([]byte, n)
}

func freeTracked(b []byte) {
	if b != nil {
		nativeAllocs.Add(-1)
	}
}

// NativeAllocations returns the number of live native-owned buffers.
func NativeAllocations() int64 { return nativeAllocs.Load() }

// Handle is a stable native reference to a managed object. The embedded
// object word is registered as a GC root while the handle lives, so heap
// compaction rewrites it in place; the handle's own address never changes.
type Handle struct {
	state *State
	obj   runtime.Object
	refs  int32
	cache []byte
}

// Wrap returns a new reference to o: the object's existing handle with its
// count incremented, or a fresh handle with count one. Heap objects get at
// most one live handle; immediates are identified by value and get cheap
// transient handles.
func (s *State) Wrap(o runtime.Object) *Handle {
	if o.IsHeap() {
		if p := s.rt.NativeProxy(o); p != nil {
			h := p.(*Handle)
			h.refs++
			return h
		}
	}
	h := &Handle{state: s, obj: o, refs: 1}
	if o.IsHeap() {
		s.rt.Heap().AddRoot(&h.obj)
		s.rt.SetNativeProxy(o, h)
	}
	s.live[h] = struct{}{}
	s.log.Trace().Str("type", s.rt.TypeName(o)).Msg("handle created")
	return h
}

// Borrow returns the handle for o without taking a reference. A borrowed
// handle created here stays alive until something releases it or the state
// finalizes; callers must not release references they do not own.
func (s *State) Borrow(o runtime.Object) *Handle {
	if o.IsHeap() {
		if p := s.rt.NativeProxy(o); p != nil {
			return p.(*Handle)
		}
	}
	h := s.Wrap(o)
	h.refs--
	return h
}

// Object unwraps the handle to its current object word. Using a released
// handle is a contract violation and panics.
func (h *Handle) Object() runtime.Object {
	if h.refs == poisonRefs {
		panic("capi: use of released handle")
	}
	return h.obj
}

// RefCount returns the current native reference count.
func (h *Handle) RefCount() int { return int(h.refs) }

// IncRef takes an additional reference.
func (h *Handle) IncRef() {
	if h.refs == poisonRefs {
		panic("capi: use of released handle")
	}
	h.refs++
}

// DecRef drops a reference, freeing the handle when the count reaches
// zero. Freeing detaches the GC root, clears the object's proxy slot,
// releases the cache buffer and poisons the handle.
func (h *Handle) DecRef() {
	if h.refs == poisonRefs {
		panic("capi: use of released handle")
	}
	h.refs--
	if h.refs > 0 {
		return
	}
	h.free()
}

func (h *Handle) free() {
	s := h.state
	if h.obj.IsHeap() {
		s.rt.SetNativeProxy(h.obj, nil)
		s.rt.Heap().RemoveRoot(&h.obj)
	}
	if h.cache != nil {
		freeTracked(h.cache)
		h.cache = nil
	}
	delete(s.live, h)
	h.refs = poisonRefs
	s.log.Trace().Msg("handle released")
}

// Release drops one reference; shorthand for DecRef on a non-nil handle.
func (s *State) Release(h *Handle) {
	if h != nil {
		h.DecRef()
	}
}

// Cache returns the handle's native side buffer, or nil.
func (h *Handle) Cache() []byte {
	if h.refs == poisonRefs {
		panic("capi: use of released handle")
	}
	return h.cache
}

// SetCache installs a native side buffer on the handle, freeing any
// previous one. The buffer must have been allocated through the tracked
// allocator; ownership transfers to the handle.
func (h *Handle) SetCache(b []byte) {
	if h.refs == poisonRefs {
		panic("capi: use of released handle")
	}
	if h.cache != nil {
		freeTracked(h.cache)
	}
	h.cache = b
}

// LiveHandles returns the number of handles currently alive, borrowed
// handles included.
func (s *State) LiveHandles() int { return len(s.live) }

// FinalizeHandles force-frees every live handle. Only sensible at state
// teardown; outstanding Handle pointers become poisoned.
func (s *State) FinalizeHandles() {
	for h := range s.live {
		h.free()
	}
}
