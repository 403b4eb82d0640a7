package capi

import (
	"errors"

	"github.com/mrigankpawagi/skybison/pkg/runtime"
)

// The protocol dispatcher mirrors the abstract object layer: generic
// operations that route through the operator function table, with fast
// paths for the common immediate shapes. Every operation returns nil (or a
// negative count) with the error condition already recorded on the
// runtime; nothing here both returns an error value and leaves the
// runtime clean.

func (s *State) wrap(o runtime.Object, err error) *Handle {
	if err != nil {
		return nil
	}
	return s.Wrap(o)
}

// operator1 dispatches a unary operation through the operator table.
func (s *State) operator1(name string, a *Handle) *Handle {
	res, err := s.rt.InvokeFunction("operator", name, a.Object())
	return s.wrap(res, err)
}

// operator2 dispatches a binary operation through the operator table.
func (s *State) operator2(name string, a, b *Handle) *Handle {
	res, err := s.rt.InvokeFunction("operator", name, a.Object(), b.Object())
	return s.wrap(res, err)
}

// objectLength resolves __len__ and converts the result to an index-sized
// integer, with the distinct wording for the lookup miss, the negative
// result and the oversized result.
func (s *State) objectLength(h *Handle) (int, bool) {
	o := h.Object()
	res, err := s.rt.Invoke(o, "__len__")
	if err != nil {
		if errors.Is(err, runtime.ErrNotFound) {
			s.rt.Raise(runtime.TypeError, "object of type '%s' has no len()", s.rt.TypeName(o))
		}
		return -1, false
	}
	idx, err := s.rt.IntFromIndex(res)
	if err != nil {
		return -1, false
	}
	n, ok := s.rt.AsInt(idx)
	if !ok {
		s.rt.Raise(runtime.OverflowError,
			"cannot fit '%s' into an index-sized integer", s.rt.TypeName(res))
		return -1, false
	}
	if n < 0 {
		s.rt.Raise(runtime.ValueError, "__len__() should return >= 0")
		return -1, false
	}
	if n > int64(maxInt) {
		s.rt.Raise(runtime.OverflowError,
			"cannot fit '%s' into an index-sized integer", s.rt.TypeName(res))
		return -1, false
	}
	return int(n), true
}

const maxInt = int(^uint(0) >> 1)

const minInt = -maxInt - 1
