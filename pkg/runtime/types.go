package runtime

// Method is a function bound to a type's method table. self is the
// receiver; extra arguments follow positionally.
type Method func(rt *Runtime, self Object, args ...Object) (Object, error)

// Function is an unbound module-level function.
type Function func(rt *Runtime, args ...Object) (Object, error)

// RawBuffer is the runtime-level view a type's buffer slot exports. The
// bridge wraps it into its own view structure.
type RawBuffer struct {
	Data     []byte
	ReadOnly bool
	Format   string
	ItemSize int
}

// Slots holds the native slot functions a type may define in addition to
// its method table. Builtin exporters and extension types use these; the
// bridge consults them before falling back to method dispatch.
type Slots struct {
	GetBuffer     func(rt *Runtime, self Object, writable bool) (*RawBuffer, error)
	ReleaseBuffer func(rt *Runtime, self Object)
	Call          func(rt *Runtime, callable Object, args []Object) (Object, error)
}

// Type describes a runtime type: its name, single-inheritance base chain
// and method table. The MRO is the type followed by its bases in order.
type Type struct {
	Name    string
	Base    *Type
	Slots   Slots
	mro     []*Type
	methods map[string]Method
}

// NewType creates a type with the given base (nil bases anchor at object)
// and method table, and computes its MRO.
func (rt *Runtime) NewType(name string, base *Type, methods map[string]Method) *Type {
	if base == nil && rt.ObjectType != nil && name != "object" {
		base = rt.ObjectType
	}
	t := &Type{Name: name, Base: base, methods: methods}
	if methods == nil {
		t.methods = make(map[string]Method)
	}
	t.mro = []*Type{t}
	for b := base; b != nil; b = b.Base {
		t.mro = append(t.mro, b)
	}
	return t
}

// MRO returns the method resolution order, most derived first.
func (t *Type) MRO() []*Type { return t.mro }

// IsSubtype reports whether t is other or derives from it.
func (t *Type) IsSubtype(other *Type) bool {
	for _, m := range t.mro {
		if m == other {
			return true
		}
	}
	return false
}

// SetMethod installs or replaces a method on the type itself.
func (t *Type) SetMethod(name string, m Method) {
	t.methods[name] = m
}

// ownMethod looks only at the type's own table, not the MRO.
func (t *Type) ownMethod(name string) (Method, bool) {
	m, ok := t.methods[name]
	return m, ok
}

// LookupMethod resolves name through the type's MRO. A miss returns
// ok=false with nothing raised.
func (rt *Runtime) LookupMethod(t *Type, name string) (Method, bool) {
	for _, m := range t.mro {
		if fn, ok := m.ownMethod(name); ok {
			return fn, true
		}
	}
	return nil, false
}

// TypeOf returns the runtime type of o.
func (rt *Runtime) TypeOf(o Object) *Type {
	if o.IsSmallInt() {
		return rt.IntType
	}
	if o.IsHeap() {
		return rt.heap.cellAt(o).typ
	}
	switch {
	case o.IsNone():
		return rt.NoneType
	case o.IsBool():
		return rt.BoolType
	case o.IsNotImplemented():
		return rt.NotImplementedType
	default:
		return rt.ObjectType
	}
}

// TypeName is shorthand for TypeOf(o).Name, the spelling used in error
// messages.
func (rt *Runtime) TypeName(o Object) string { return rt.TypeOf(o).Name }
