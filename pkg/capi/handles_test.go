package capi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/mrigankpawagi/skybison/pkg/runtime"
)

func newTestState(t *testing.T) *State {
	t.Helper()
	s := NewState(runtime.NewRuntime())
	t.Cleanup(s.FinalizeHandles)
	return s
}

func TestWrapUnwrapIdentity(t *testing.T) {
	s := newTestState(t)
	rt := s.Runtime()

	obj := rt.NewStr("payload")
	h := s.Wrap(obj)
	require.True(t, h.Object().Is(obj))
	require.Equal(t, 1, h.RefCount())
	h.DecRef()
}

func TestRepeatedWrapReturnsSameHandle(t *testing.T) {
	s := newTestState(t)
	rt := s.Runtime()

	obj := rt.NewList(rt.NewInt(1))
	h1 := s.Wrap(obj)
	h2 := s.Wrap(obj)
	require.Same(t, h1, h2)
	require.Equal(t, 2, h1.RefCount())
	require.Equal(t, 1, s.LiveHandles())

	h2.DecRef()
	require.Equal(t, 1, h1.RefCount())
	h1.DecRef()
	require.Equal(t, 0, s.LiveHandles())

	// A fresh wrap after full release creates a new handle.
	h3 := s.Wrap(obj)
	require.Equal(t, 1, h3.RefCount())
	h3.DecRef()
}

func TestBorrowDoesNotOwnReference(t *testing.T) {
	s := newTestState(t)
	rt := s.Runtime()

	obj := rt.NewBytes([]byte("abc"))
	owned := s.Wrap(obj)
	borrowed := s.Borrow(obj)
	require.Same(t, owned, borrowed)
	require.Equal(t, 1, owned.RefCount())
	owned.DecRef()
}

func TestReleasedHandleIsPoisoned(t *testing.T) {
	s := newTestState(t)
	rt := s.Runtime()

	h := s.Wrap(rt.NewStr("doomed"))
	h.DecRef()
	assert.Panics(t, func() { h.Object() })
	assert.Panics(t, func() { h.IncRef() })
	assert.Panics(t, func() { h.Cache() })
}

func TestHandleSurvivesRelocation(t *testing.T) {
	s := newTestState(t)
	rt := s.Runtime()

	for i := 0; i < 8; i++ {
		rt.NewStr("filler")
	}
	obj := rt.NewStr("pinned")
	h := s.Wrap(obj)
	defer h.DecRef()

	rt.Heap().Compact()

	got, ok := rt.StrValue(h.Object())
	require.True(t, ok)
	require.Equal(t, "pinned", got)

	// The proxy mapping moved with the object: wrapping the fixed-up
	// word still finds the same handle.
	h2 := s.Wrap(h.Object())
	require.Same(t, h, h2)
	h2.DecRef()
}

func TestImmediateHandlesAreTransient(t *testing.T) {
	s := newTestState(t)
	rt := s.Runtime()

	a := s.Wrap(rt.NewInt(5))
	b := s.Wrap(rt.NewInt(5))
	require.NotSame(t, a, b)
	require.True(t, a.Object().Is(b.Object()))
	a.DecRef()
	b.DecRef()
}

func TestCacheSlotFreesOnReplaceAndRelease(t *testing.T) {
	s := newTestState(t)
	rt := s.Runtime()

	base := NativeAllocations()
	h := s.Wrap(rt.NewBytearray([]byte{1, 2, 3}))

	h.SetCache(allocTracked(4))
	require.Equal(t, base+1, NativeAllocations())

	h.SetCache(allocTracked(8))
	require.Equal(t, base+1, NativeAllocations(), "replacing the cache must free the old buffer")
	require.Len(t, h.Cache(), 8)

	h.DecRef()
	require.Equal(t, base, NativeAllocations(), "release must free the cache")
}

func TestHandleRace(t *testing.T) {
	s := newTestState(t)
	rt := s.Runtime()

	var g errgroup.Group
	for i := 0; i < 32; i++ {
		i := i
		g.Go(func() error {
			s.Lock()
			defer s.Unlock()
			h := s.Wrap(rt.NewInt(int64(i)))
			_ = h.Object()
			h.DecRef()
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.Equal(t, 0, s.LiveHandles())
}
