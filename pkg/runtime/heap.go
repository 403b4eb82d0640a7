package runtime

import "fmt"

// cell is one heap slot. typ is the object's type; data holds the value
// payload (see values.go for the per-type representations). proxy is an
// opaque slot for the native bridge, carried with the object across
// relocation so at most one native proxy ever exists per object.
type cell struct {
	typ   *Type
	data  any
	proxy any
	live  bool
}

// Heap is a slot-indexed, relocatable object store. Compact removes dead
// cells and slides survivors down, so slot indices change; every Object
// word held outside the heap across a compaction must be registered as a
// root so the move is patched through.
type Heap struct {
	cells []cell
	roots map[*Object]struct{}
}

func newHeap() *Heap {
	return &Heap{roots: make(map[*Object]struct{})}
}

func (h *Heap) alloc(typ *Type, data any) Object {
	h.cells = append(h.cells, cell{typ: typ, data: data, live: true})
	return newHeapRef(len(h.cells) - 1)
}

func (h *Heap) cellAt(o Object) *cell {
	slot := o.heapSlot()
	if slot >= len(h.cells) || !h.cells[slot].live {
		panic(fmt.Sprintf("runtime: access to dead heap slot %d", slot))
	}
	return &h.cells[slot]
}

// AddRoot registers loc so that the Object word it points at is traced
// from and rewritten by Compact. The same location may be registered only
// once; re-registration is a no-op.
func (h *Heap) AddRoot(loc *Object) {
	h.roots[loc] = struct{}{}
}

// RemoveRoot drops a previously registered root location.
func (h *Heap) RemoveRoot(loc *Object) {
	delete(h.roots, loc)
}

// NumRoots returns the number of registered root locations.
func (h *Heap) NumRoots() int { return len(h.roots) }

// Len returns the number of live cells.
func (h *Heap) Len() int {
	n := 0
	for i := range h.cells {
		if h.cells[i].live {
			n++
		}
	}
	return n
}

// Compact runs a mark phase over the registered roots, sweeps everything
// unreachable, slides the survivors to the front of the cell array and
// rewrites every root and every traced interior reference with the new
// slot indices.
func (h *Heap) Compact() {
	marked := make([]bool, len(h.cells))
	var stack []int
	push := func(o Object) {
		if !o.IsHeap() {
			return
		}
		slot := o.heapSlot()
		if !marked[slot] {
			marked[slot] = true
			stack = append(stack, slot)
		}
	}
	for loc := range h.roots {
		push(*loc)
	}
	for len(stack) > 0 {
		slot := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		h.cells[slot].trace(push)
	}

	// Assign new indices to the marked cells in order.
	forward := make([]int, len(h.cells))
	next := 0
	for i := range h.cells {
		if marked[i] {
			forward[i] = next
			next++
		} else {
			forward[i] = -1
		}
	}
	remap := func(o Object) Object {
		if !o.IsHeap() {
			return o
		}
		return newHeapRef(forward[o.heapSlot()])
	}

	compacted := make([]cell, 0, next)
	for i := range h.cells {
		if !marked[i] {
			continue
		}
		c := h.cells[i]
		c.remap(remap)
		compacted = append(compacted, c)
	}
	h.cells = compacted
	for loc := range h.roots {
		*loc = remap(*loc)
	}
}

// trace visits every Object held inside the cell's payload.
func (c *cell) trace(visit func(Object)) {
	switch d := c.data.(type) {
	case []Object:
		for _, o := range d {
			visit(o)
		}
	case *listData:
		for _, o := range d.items {
			visit(o)
		}
	case *dictData:
		for _, e := range d.entries {
			visit(e.key)
			visit(e.value)
		}
	case *seqIterData:
		visit(d.seq)
	case *boundMethodData:
		visit(d.self)
	}
}

// remap rewrites every interior Object reference through fn.
func (c *cell) remap(fn func(Object) Object) {
	switch d := c.data.(type) {
	case []Object:
		for i, o := range d {
			d[i] = fn(o)
		}
	case *listData:
		for i, o := range d.items {
			d.items[i] = fn(o)
		}
	case *dictData:
		for i := range d.entries {
			d.entries[i].key = fn(d.entries[i].key)
			d.entries[i].value = fn(d.entries[i].value)
		}
	case *seqIterData:
		d.seq = fn(d.seq)
	case *boundMethodData:
		d.self = fn(d.self)
	}
}
