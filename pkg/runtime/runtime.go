package runtime

// Runtime owns the heap, the builtin type graph, the module function
// tables and the pending error condition. It is not safe for concurrent
// use; callers serialize access through the bridge's execution lock.
type Runtime struct {
	heap    *Heap
	pending *RaisedError
	modules map[string]map[string]Function

	ObjectType         *Type
	IntType            *Type
	BoolType           *Type
	FloatType          *Type
	ComplexType        *Type
	StrType            *Type
	BytesType          *Type
	BytearrayType      *Type
	ArrayType          *Type
	ListType           *Type
	TupleType          *Type
	DictType           *Type
	NoneType           *Type
	NotImplementedType *Type
	FunctionType       *Type
	SeqIterType        *Type
}

// NewRuntime builds a runtime with the builtin types and the operator and
// builtins module tables installed.
func NewRuntime() *Runtime {
	rt := &Runtime{
		heap:    newHeap(),
		modules: make(map[string]map[string]Function),
	}
	rt.initTypes()
	rt.registerOperatorModule()
	rt.registerBuiltinsModule()
	return rt
}

// Heap exposes the heap for root registration and compaction.
func (rt *Runtime) Heap() *Heap { return rt.heap }

// NativeProxy returns the opaque native-side proxy attached to a heap
// object, or nil. Immediates carry no proxy slot.
func (rt *Runtime) NativeProxy(o Object) any {
	if !o.IsHeap() {
		return nil
	}
	return rt.heap.cellAt(o).proxy
}

// SetNativeProxy attaches (or with nil, detaches) the native-side proxy of
// a heap object.
func (rt *Runtime) SetNativeProxy(o Object, proxy any) {
	rt.heap.cellAt(o).proxy = proxy
}

// RegisterFunction installs a function into a module table, creating the
// module on first use.
func (rt *Runtime) RegisterFunction(module, name string, fn Function) {
	tbl, ok := rt.modules[module]
	if !ok {
		tbl = make(map[string]Function)
		rt.modules[module] = tbl
	}
	tbl[name] = fn
}

// InvokeFunction calls a registered module-level function. An unknown
// module or name returns ErrNotFound with nothing raised.
func (rt *Runtime) InvokeFunction(module, name string, args ...Object) (Object, error) {
	tbl, ok := rt.modules[module]
	if !ok {
		return Object{}, ErrNotFound
	}
	fn, ok := tbl[name]
	if !ok {
		return Object{}, ErrNotFound
	}
	return fn(rt, args...)
}
