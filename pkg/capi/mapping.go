package capi

import (
	"errors"

	"github.com/mrigankpawagi/skybison/pkg/runtime"
)

// MappingCheck reports whether o supports keyed subscript access.
func (s *State) MappingCheck(o *Handle) bool {
	_, ok := s.rt.LookupMethod(s.rt.TypeOf(o.Object()), "__getitem__")
	return ok
}

// MappingLength returns len(o).
func (s *State) MappingLength(o *Handle) (int, bool) {
	return s.objectLength(o)
}

// MappingGetItemString returns o[key] for a native string key.
func (s *State) MappingGetItemString(o *Handle, key string) *Handle {
	res, err := s.rt.InvokeFunction("operator", "getitem", o.Object(), s.rt.NewStr(key))
	return s.wrap(res, err)
}

// MappingSetItemString assigns o[key] = v for a native string key.
func (s *State) MappingSetItemString(o *Handle, key string, v *Handle) bool {
	_, err := s.rt.InvokeFunction("operator", "setitem",
		o.Object(), s.rt.NewStr(key), v.Object())
	return err == nil
}

// MappingDelItemString deletes o[key] for a native string key.
func (s *State) MappingDelItemString(o *Handle, key string) bool {
	_, err := s.rt.InvokeFunction("operator", "delitem", o.Object(), s.rt.NewStr(key))
	return err == nil
}

// MappingHasKey probes o[key], swallowing any raised condition.
func (s *State) MappingHasKey(o, key *Handle) bool {
	_, err := s.rt.InvokeFunction("operator", "getitem", o.Object(), key.Object())
	if err != nil {
		s.rt.ClearPendingError()
		return false
	}
	return true
}

// MappingHasKeyString probes o[key] for a native string key.
func (s *State) MappingHasKeyString(o *Handle, key string) bool {
	_, err := s.rt.InvokeFunction("operator", "getitem", o.Object(), s.rt.NewStr(key))
	if err != nil {
		s.rt.ClearPendingError()
		return false
	}
	return true
}

// mappingListMethod calls a view method (keys, values, items) and
// materializes the result as a list.
func (s *State) mappingListMethod(o *Handle, name string) *Handle {
	res, err := s.rt.Invoke(o.Object(), name)
	if err != nil {
		if errors.Is(err, runtime.ErrNotFound) {
			s.rt.Raise(runtime.TypeError, "'%s' object is not a mapping", s.rt.TypeName(o.Object()))
		}
		return nil
	}
	view := s.Wrap(res)
	defer view.DecRef()
	return s.SequenceList(view)
}

// MappingKeys returns a list of o's keys.
func (s *State) MappingKeys(o *Handle) *Handle { return s.mappingListMethod(o, "keys") }

// MappingValues returns a list of o's values.
func (s *State) MappingValues(o *Handle) *Handle { return s.mappingListMethod(o, "values") }

// MappingItems returns a list of o's (key, value) pairs.
func (s *State) MappingItems(o *Handle) *Handle { return s.mappingListMethod(o, "items") }
