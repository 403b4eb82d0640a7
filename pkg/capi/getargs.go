package capi

import (
	"fmt"

	"github.com/mrigankpawagi/skybison/pkg/runtime"
)

// CleanupList collects undo actions for resources bound while converting
// arguments. On a conversion failure the binder runs the list in reverse
// registration order; on success the list is dropped and the caller owns
// every bound resource.
type CleanupList struct {
	fns []func()
}

// Add registers an undo action.
func (c *CleanupList) Add(fn func()) { c.fns = append(c.fns, fn) }

// Run executes the registered actions newest-first and empties the list.
// Running twice is harmless.
func (c *CleanupList) Run() {
	for i := len(c.fns) - 1; i >= 0; i-- {
		c.fns[i]()
	}
	c.fns = nil
}

// Len returns the number of pending actions.
func (c *CleanupList) Len() int { return len(c.fns) }

// ConvertResult is what an 'O&' converter reports.
type ConvertResult int

const (
	// ConvertFailed aborts the parse; the converter must have raised.
	ConvertFailed ConvertResult = iota
	// ConvertOK accepts the argument.
	ConvertOK
	// ConvertCleanup accepts the argument and asks to be called again
	// with a nil argument should a later conversion fail.
	ConvertCleanup
)

// Converter adapts one argument for an 'O&' slot, writing into target.
type Converter func(s *State, arg *Handle, target any) ConvertResult

type binder struct {
	s       *State
	d       *Descriptor
	out     []any
	outIdx  int
	cleanup CleanupList
}

func (b *binder) nextOut() any {
	if b.outIdx >= len(b.out) {
		panic(formatError(fmt.Sprintf(
			"capi: format %q consumes more output targets than supplied", b.d.format)))
	}
	v := b.out[b.outIdx]
	b.outIdx++
	return v
}

func badTarget(code byte, want string, got any) {
	panic(formatError(fmt.Sprintf(
		"capi: format '%c' requires a %s target, got %T", code, want, got)))
}

// argPrefix is the function spelling prepended to argument diagnostics,
// empty when the format names no function.
func (b *binder) argPrefix() string {
	if b.d.fname != "" {
		return b.d.fname + "() "
	}
	return ""
}

// raiseArgText raises an argument error with the given "must be ..."
// text, or the format's custom message when one was configured after ';'.
func (b *binder) raiseArgText(text string, iarg int, levels []int) bool {
	if b.s.rt.HasPendingError() {
		b.s.rt.ClearPendingError()
	}
	if b.d.message != "" {
		b.s.rt.Raise(runtime.TypeError, "%s%s", b.argPrefix(), b.d.message)
		return false
	}
	pos := "argument"
	if iarg > 0 {
		pos = fmt.Sprintf("argument %d", iarg)
	}
	for _, l := range levels {
		pos += fmt.Sprintf(", item %d", l)
	}
	b.s.rt.Raise(runtime.TypeError, "%s%s %s", b.argPrefix(), pos, text)
	return false
}

// converterr raises the canonical "must be X, not Y" argument error.
func (b *binder) converterr(expected string, arg runtime.Object, iarg int, levels []int) bool {
	return b.raiseArgText(
		fmt.Sprintf("must be %s, not %s", expected, b.s.rt.TypeName(arg)), iarg, levels)
}

// raiseArity reports a wrong positional argument count against the
// descriptor's bounds.
func (b *binder) raiseArity(nargs int) bool {
	if b.d.message != "" {
		b.s.rt.Raise(runtime.TypeError, "%s%s", b.argPrefix(), b.d.message)
		return false
	}
	min, max := b.d.min, b.d.Max()
	var quantity string
	var bound int
	switch {
	case min == max:
		quantity, bound = "exactly", max
	case nargs < min:
		quantity, bound = "at least", min
	default:
		quantity, bound = "at most", max
	}
	plural := "s"
	if bound == 1 {
		plural = ""
	}
	b.s.rt.Raise(runtime.TypeError, "%s takes %s %d argument%s (%d given)",
		b.d.funcName(), quantity, bound, plural, nargs)
	return false
}

// ParseTuple binds the items of an argument tuple to native output
// targets according to format. It returns false with the error condition
// recorded after unwinding any partially bound resources.
func (s *State) ParseTuple(args *Handle, format string, out ...any) bool {
	d := s.CompileFormat(format, nil)
	items := s.tupleArgs(args)
	return s.bindPositional(d, items, out)
}

// Parse is the single-argument compatibility shape: the argument is the
// bare object rather than a tuple around it.
func (s *State) Parse(arg *Handle, format string, out ...any) bool {
	d := s.CompileFormat(format, nil)
	if d.Max() == 0 {
		if arg != nil {
			s.rt.Raise(runtime.TypeError, "%s takes no arguments", d.funcName())
			return false
		}
		return true
	}
	if d.Max() != 1 {
		fatalFormat(format, "old style getargs format uses new features")
	}
	if arg == nil {
		if d.min > 0 {
			s.rt.Raise(runtime.TypeError, "%s takes exactly 1 argument (0 given)", d.funcName())
			return false
		}
		return true
	}
	b := &binder{s: s, d: d, out: out}
	if !b.convertItem(d.items[0], arg.Object(), 0, nil) {
		b.cleanup.Run()
		return false
	}
	return true
}

func (s *State) tupleArgs(args *Handle) []runtime.Object {
	if args == nil {
		return nil
	}
	if items, ok := s.rt.TupleItems(args.Object()); ok {
		return items
	}
	panic("capi: argument pack must be a tuple handle")
}

func (s *State) bindPositional(d *Descriptor, items []runtime.Object, out []any) bool {
	b := &binder{s: s, d: d, out: out}
	if len(items) < d.min || len(items) > d.Max() {
		return b.raiseArity(len(items))
	}
	for i, arg := range items {
		if !b.convertItem(d.items[i], arg, i+1, nil) {
			b.cleanup.Run()
			return false
		}
	}
	return true
}

// ParseTupleAndKeywords binds positional and keyword arguments against a
// format whose slots are named by kwlist. Leading empty names mark
// positional-only parameters.
func (s *State) ParseTupleAndKeywords(args, kwargs *Handle, format string, kwlist []string, out ...any) bool {
	d := s.CompileFormat(format, kwlist)
	items := s.tupleArgs(args)
	b := &binder{s: s, d: d, out: out}

	nargs := len(items)
	if nargs > d.maxPos {
		plural := "s"
		if d.maxPos == 1 {
			plural = ""
		}
		s.rt.Raise(runtime.TypeError, "%s takes at most %d positional argument%s (%d given)",
			d.funcName(), d.maxPos, plural, nargs)
		return false
	}

	var kwObj runtime.Object
	haveKw := kwargs != nil
	if haveKw {
		kwObj = kwargs.Object()
	}
	matchedKw := 0
	fail := func() bool {
		b.cleanup.Run()
		return false
	}
	for i, spec := range d.items {
		name := d.names[i]
		var arg runtime.Object
		have := false
		if i < nargs {
			arg = items[i]
			have = true
			if haveKw && name != "" {
				if _, found, err := s.rt.DictGet(kwObj, s.rt.NewStr(name)); err != nil {
					return fail()
				} else if found {
					s.rt.Raise(runtime.TypeError,
						"%sargument given by name ('%s') and position (%d)",
						b.argPrefix(), name, i+1)
					return fail()
				}
			}
		} else if haveKw && name != "" {
			v, found, err := s.rt.DictGet(kwObj, s.rt.NewStr(name))
			if err != nil {
				return fail()
			}
			if found {
				arg = v
				have = true
				matchedKw++
			}
		}
		if !have {
			if i < d.min {
				if name == "" {
					b.raiseArity(nargs)
					return fail()
				}
				s.rt.Raise(runtime.TypeError,
					"Required argument '%s' (pos %d) not found", name, i+1)
				return fail()
			}
			b.skipItem(spec)
			continue
		}
		if !b.convertItem(spec, arg, i+1, nil) {
			return fail()
		}
	}
	if haveKw {
		n, _ := s.rt.DictLen(kwObj)
		if matchedKw < n {
			keys, _, _ := s.rt.DictEntries(kwObj)
			for _, key := range keys {
				name, ok := s.rt.StrValue(key)
				if !ok {
					s.rt.Raise(runtime.TypeError, "keywords must be strings")
					return fail()
				}
				known := false
				for _, want := range d.names {
					if want == name {
						known = true
						break
					}
				}
				if !known {
					s.rt.Raise(runtime.TypeError,
						"'%s' is an invalid keyword argument for this function", name)
					return fail()
				}
			}
		}
	}
	return true
}

// UnpackTuple binds the items of an argument tuple to handle targets
// without any conversion. Targets beyond the arguments present are left
// untouched.
func (s *State) UnpackTuple(args *Handle, name string, min, max int, out ...**Handle) bool {
	items := s.tupleArgs(args)
	if !s.CheckPositional(name, len(items), min, max) {
		return false
	}
	for i, arg := range items {
		*out[i] = s.Borrow(arg)
	}
	return true
}

// CheckPositional validates a bare positional argument count against
// inclusive bounds.
func (s *State) CheckPositional(name string, nargs, min, max int) bool {
	if name == "" {
		name = "unpacked tuple"
	}
	if nargs < min {
		qualifier := ""
		if min != max {
			qualifier = "at least "
		}
		plural := "s"
		if min == 1 {
			plural = ""
		}
		s.rt.Raise(runtime.TypeError, "%s expected %s%d argument%s, got %d",
			name, qualifier, min, plural, nargs)
		return false
	}
	if nargs > max {
		qualifier := ""
		if min != max {
			qualifier = "at most "
		}
		plural := "s"
		if max == 1 {
			plural = ""
		}
		s.rt.Raise(runtime.TypeError, "%s expected %s%d argument%s, got %d",
			name, qualifier, max, plural, nargs)
		return false
	}
	return true
}

// NoKeywords rejects any keyword arguments for a function that takes
// none.
func (s *State) NoKeywords(fname string, kwargs *Handle) bool {
	if kwargs == nil {
		return true
	}
	if n, ok := s.rt.DictLen(kwargs.Object()); !ok || n == 0 {
		return true
	}
	s.rt.Raise(runtime.TypeError, "%s() takes no keyword arguments", fname)
	return false
}

// NoPositional rejects any positional arguments for a function that takes
// none.
func (s *State) NoPositional(fname string, args *Handle) bool {
	if args == nil || len(s.tupleArgs(args)) == 0 {
		return true
	}
	s.rt.Raise(runtime.TypeError, "%s() takes no positional arguments", fname)
	return false
}

// skipItem advances past the output targets of an unbound optional slot
// without writing to them.
func (b *binder) skipItem(spec itemSpec) {
	switch {
	case spec.code == '(':
		for _, sub := range spec.nested.items {
			b.skipItem(sub)
		}
	case spec.code == 'e', spec.bang, spec.amp:
		b.outIdx += 2
	default:
		b.outIdx++
	}
}

func (b *binder) convertItem(spec itemSpec, arg runtime.Object, iarg int, levels []int) bool {
	if spec.code == '(' {
		return b.convertTuple(spec, arg, iarg, levels)
	}
	return b.convertSimple(spec, arg, iarg, levels)
}

// convertTuple unpacks a parenthesized group from a general sequence.
// Strings and mappings are not acceptable as argument tuples.
func (b *binder) convertTuple(spec itemSpec, arg runtime.Object, iarg int, levels []int) bool {
	rt := b.s.rt
	n := len(spec.nested.items)
	seqLike := func() bool {
		t := rt.TypeOf(arg)
		if t.IsSubtype(rt.StrType) || t.IsSubtype(rt.BytesType) ||
			t.IsSubtype(rt.BytearrayType) || t.IsSubtype(rt.DictType) {
			return false
		}
		_, ok := rt.LookupMethod(t, "__getitem__")
		return ok
	}
	if !seqLike() {
		return b.converterr(fmt.Sprintf("%d-item sequence", n), arg, iarg, levels)
	}
	h := b.s.Wrap(arg)
	length, ok := b.s.objectLength(h)
	h.DecRef()
	if !ok {
		rt.ClearPendingError()
		return b.converterr(fmt.Sprintf("%d-item sequence", n), arg, iarg, levels)
	}
	if length != n {
		return b.raiseArgText(
			fmt.Sprintf("must be sequence of length %d, not %d", n, length), iarg, levels)
	}
	for j := 0; j < n; j++ {
		item, err := rt.InvokeFunction("operator", "getitem", arg, rt.NewInt(int64(j)))
		if err != nil {
			return false
		}
		if !b.convertItem(spec.nested.items[j], item, iarg, append(levels, j+1)) {
			return false
		}
	}
	return true
}
