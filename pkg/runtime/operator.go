package runtime

import "errors"

func binaryFn(leftName, rightName, symbol string) Function {
	return func(rt *Runtime, args ...Object) (Object, error) {
		return rt.binaryOp(leftName, rightName, symbol, args[0], args[1])
	}
}

func inPlaceFn(inPlaceName, leftName, rightName, symbol string) Function {
	return func(rt *Runtime, args ...Object) (Object, error) {
		return rt.inPlaceOp(inPlaceName, leftName, rightName, symbol, args[0], args[1])
	}
}

func unaryFn(name, symbol string) Function {
	return func(rt *Runtime, args ...Object) (Object, error) {
		return rt.unaryOp(name, symbol, args[0])
	}
}

// registerOperatorModule installs the function table the protocol
// dispatcher routes generic operations through.
func (rt *Runtime) registerOperatorModule() {
	ops := map[string]Function{
		"add":      binaryFn("__add__", "__radd__", "+"),
		"sub":      binaryFn("__sub__", "__rsub__", "-"),
		"mul":      binaryFn("__mul__", "__rmul__", "*"),
		"matmul":   binaryFn("__matmul__", "__rmatmul__", "@"),
		"truediv":  binaryFn("__truediv__", "__rtruediv__", "/"),
		"floordiv": binaryFn("__floordiv__", "__rfloordiv__", "//"),
		"mod":      binaryFn("__mod__", "__rmod__", "%"),
		"divmod":   binaryFn("__divmod__", "__rdivmod__", "divmod()"),
		"pow":      binaryFn("__pow__", "__rpow__", "** or pow()"),
		"lshift":   binaryFn("__lshift__", "__rlshift__", "<<"),
		"rshift":   binaryFn("__rshift__", "__rrshift__", ">>"),
		"and_":     binaryFn("__and__", "__rand__", "&"),
		"or_":      binaryFn("__or__", "__ror__", "|"),
		"xor":      binaryFn("__xor__", "__rxor__", "^"),

		"iadd":      inPlaceFn("__iadd__", "__add__", "__radd__", "+"),
		"isub":      inPlaceFn("__isub__", "__sub__", "__rsub__", "-"),
		"imul":      inPlaceFn("__imul__", "__mul__", "__rmul__", "*"),
		"imatmul":   inPlaceFn("__imatmul__", "__matmul__", "__rmatmul__", "@"),
		"itruediv":  inPlaceFn("__itruediv__", "__truediv__", "__rtruediv__", "/"),
		"ifloordiv": inPlaceFn("__ifloordiv__", "__floordiv__", "__rfloordiv__", "//"),
		"imod":      inPlaceFn("__imod__", "__mod__", "__rmod__", "%"),
		"ipow":      inPlaceFn("__ipow__", "__pow__", "__rpow__", "** or pow()"),
		"ilshift":   inPlaceFn("__ilshift__", "__lshift__", "__rlshift__", "<<"),
		"irshift":   inPlaceFn("__irshift__", "__rshift__", "__rrshift__", ">>"),
		"iand":      inPlaceFn("__iand__", "__and__", "__rand__", "&"),
		"ior":       inPlaceFn("__ior__", "__or__", "__ror__", "|"),
		"ixor":      inPlaceFn("__ixor__", "__xor__", "__rxor__", "^"),

		"neg":    unaryFn("__neg__", "-"),
		"pos":    unaryFn("__pos__", "+"),
		"invert": unaryFn("__invert__", "~"),
		"abs": func(r *Runtime, args ...Object) (Object, error) {
			res, err := r.Invoke(args[0], "__abs__")
			if errors.Is(err, ErrNotFound) {
				return Object{}, r.Raise(TypeError, "bad operand type for abs(): '%s'", r.TypeName(args[0]))
			}
			return res, err
		},
		"index": func(r *Runtime, args ...Object) (Object, error) {
			return r.IntFromIndex(args[0])
		},
		"getitem": func(r *Runtime, args ...Object) (Object, error) {
			res, err := r.Invoke(args[0], "__getitem__", args[1])
			if errors.Is(err, ErrNotFound) {
				return Object{}, r.Raise(TypeError, "'%s' object is not subscriptable", r.TypeName(args[0]))
			}
			return res, err
		},
		"setitem": func(r *Runtime, args ...Object) (Object, error) {
			res, err := r.Invoke(args[0], "__setitem__", args[1], args[2])
			if errors.Is(err, ErrNotFound) {
				return Object{}, r.Raise(TypeError,
					"'%s' object does not support item assignment", r.TypeName(args[0]))
			}
			return res, err
		},
		"delitem": func(r *Runtime, args ...Object) (Object, error) {
			res, err := r.Invoke(args[0], "__delitem__", args[1])
			if errors.Is(err, ErrNotFound) {
				return Object{}, r.Raise(TypeError,
					"'%s' object doesn't support item deletion", r.TypeName(args[0]))
			}
			return res, err
		},
		"contains": func(r *Runtime, args ...Object) (Object, error) {
			res, err := r.Invoke(args[0], "__contains__", args[1])
			if err == nil {
				ok, err := r.IsTrue(res)
				if err != nil {
					return Object{}, err
				}
				return Bool(ok), nil
			}
			if !errors.Is(err, ErrNotFound) {
				return Object{}, err
			}
			// Fall back to iteration.
			found, err := r.iterFind(args[0], args[1], false)
			if err != nil {
				return Object{}, err
			}
			return Bool(found >= 0), nil
		},
		"indexOf": func(r *Runtime, args ...Object) (Object, error) {
			i, err := r.iterFind(args[0], args[1], false)
			if err != nil {
				return Object{}, err
			}
			if i < 0 {
				return Object{}, r.Raise(ValueError, "sequence.index(x): x not in sequence")
			}
			return r.NewInt(int64(i)), nil
		},
		"countOf": func(r *Runtime, args ...Object) (Object, error) {
			n, err := r.iterFind(args[0], args[1], true)
			if err != nil {
				return Object{}, err
			}
			return r.NewInt(int64(n)), nil
		},
	}
	for name, fn := range ops {
		rt.RegisterFunction("operator", name, fn)
	}
}

// iterFind walks an iterable comparing items against needle. With count
// false it returns the index of the first match or -1; with count true it
// returns the number of matches.
func (rt *Runtime) iterFind(iterable, needle Object, count bool) (int, error) {
	iter, err := rt.CreateIterator(iterable)
	if err != nil {
		return 0, err
	}
	matches := 0
	for i := 0; ; i++ {
		item, done, err := rt.IterNext(iter)
		if err != nil {
			return 0, err
		}
		if done {
			break
		}
		eq, err := rt.Equals(item, needle)
		if err != nil {
			return 0, err
		}
		if eq {
			if !count {
				return i, nil
			}
			matches++
		}
	}
	if count {
		return matches, nil
	}
	return -1, nil
}

// registerBuiltinsModule installs the handful of builtins the bridge and
// the demo shell route through the function table.
func (rt *Runtime) registerBuiltinsModule() {
	builtins := map[string]Function{
		"len": func(r *Runtime, args ...Object) (Object, error) {
			res, err := r.Invoke(args[0], "__len__")
			if errors.Is(err, ErrNotFound) {
				return Object{}, r.Raise(TypeError,
					"object of type '%s' has no len()", r.TypeName(args[0]))
			}
			return res, err
		},
		"iter": func(r *Runtime, args ...Object) (Object, error) {
			return r.CreateIterator(args[0])
		},
		"next": func(r *Runtime, args ...Object) (Object, error) {
			item, done, err := r.IterNext(args[0])
			if err != nil {
				return Object{}, err
			}
			if done {
				return Object{}, r.Raise(StopIteration, "")
			}
			return item, nil
		},
		"abs": func(r *Runtime, args ...Object) (Object, error) {
			return r.InvokeFunction("operator", "abs", args[0])
		},
		"repr": func(r *Runtime, args ...Object) (Object, error) {
			return r.NewStr(r.Repr(args[0])), nil
		},
		"bool": func(r *Runtime, args ...Object) (Object, error) {
			ok, err := r.IsTrue(args[0])
			if err != nil {
				return Object{}, err
			}
			return Bool(ok), nil
		},
		"tuple": func(r *Runtime, args ...Object) (Object, error) {
			items, err := r.collect(args[0])
			if err != nil {
				return Object{}, err
			}
			return r.NewTuple(items...), nil
		},
		"list": func(r *Runtime, args ...Object) (Object, error) {
			items, err := r.collect(args[0])
			if err != nil {
				return Object{}, err
			}
			return r.NewList(items...), nil
		},
	}
	for name, fn := range builtins {
		rt.RegisterFunction("builtins", name, fn)
	}
}

// collect drains an iterable into a slice.
func (rt *Runtime) collect(iterable Object) ([]Object, error) {
	iter, err := rt.CreateIterator(iterable)
	if err != nil {
		return nil, err
	}
	var items []Object
	for {
		item, done, err := rt.IterNext(iter)
		if err != nil {
			return nil, err
		}
		if done {
			return items, nil
		}
		items = append(items, item)
	}
}
