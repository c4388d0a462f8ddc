// Package page implements the page descriptor facade: the per-frame
// metadata (reference count, compound-page type, order) that the buddy
// and slab layers read and write, plus the byte-addressable memory each
// frame backs.
//
// In a real kernel this table, and the virtual<->physical translation
// that goes with it, is supplied by the boot-time page-frame discovery
// code and the paging subsystem -- an external collaborator. Table is
// the self-contained stand-in a standalone, testable allocator needs:
// it owns its own backing bytes and aligns them so that an object's
// owning frame can be recovered by masking its address, the same trick
// KMEM2SLAB plays on a kernel virtual address.
package page

import (
	"unsafe"

	"kalloc/ilist"
	"kalloc/util"
)

// Shift and Size describe the simulated page geometry (PGSIZE/PGSHIFT
// in the reference allocator).
const (
	Shift = 12
	Size  = 1 << Shift
)

// Kind classifies a page's role within a compound (2^k-page) run.
type Kind uint8

const (
	// KindFree pages carry no metadata of interest; only RefCount==0 matters.
	KindFree Kind = iota
	// KindCompoundHead marks the first page of an order-k run.
	KindCompoundHead
	// KindCompoundTail marks a non-first page of an order-k run.
	KindCompoundTail
)

// PFN is a zero-based page frame number.
type PFN uint32

// Descriptor is the per-frame record the facade operates on. Its
// address is stable for the table's lifetime, so the buddy layer's free
// lists can hold direct pointers to it.
type Descriptor struct {
	pfn      PFN
	RefCount uint16
	Kind     Kind
	Order    uint8
	ln       *ilist.Node[Descriptor]
}

// PFN reports which frame this descriptor belongs to.
func (d *Descriptor) PFN() PFN { return d.pfn }

// Node exposes the descriptor's intrusive list link for use by a buddy
// free-area's per-order lists.
func (d *Descriptor) Node() *ilist.Node[Descriptor] { return d.ln }

// Table is a fixed-size page frame array: descriptors plus the memory
// those frames actually own.
type Table struct {
	raw   []byte
	arena []byte
	meta  []Descriptor
}

// NewTable allocates a table of n page-sized frames, all initially free.
// Pinning frames that are already in use before handing the table to a
// buddy area is the caller's job (via Ref), mirroring how a real boot
// sequence marks kernel image pages as reserved before buddy_init scans
// the rest.
func NewTable(n int) *Table {
	if n <= 0 {
		panic("page: a table needs at least one frame")
	}
	// Overallocate by one page so an aligned window of n*Size bytes can
	// always be carved out, regardless of where the runtime happened to
	// place the backing slice.
	raw := make([]byte, n*Size+Size)
	base := uintptr(unsafe.Pointer(&raw[0]))
	aligned := util.Roundup(base, uintptr(Size))
	off := aligned - base

	t := &Table{
		raw:   raw,
		arena: raw[off : off+uintptr(n*Size)],
		meta:  make([]Descriptor, n),
	}
	for i := range t.meta {
		t.meta[i].pfn = PFN(i)
		t.meta[i].ln = ilist.NewNode(&t.meta[i])
	}
	return t
}

// NumFrames reports how many frames the table manages.
func (t *Table) NumFrames() int { return len(t.meta) }

// Descriptor returns the metadata record for pfn.
func (t *Table) Descriptor(pfn PFN) *Descriptor { return &t.meta[pfn] }

// Bytes returns the Size-byte window backing pfn.
func (t *Table) Bytes(pfn PFN) []byte {
	lo := int(pfn) * Size
	return t.arena[lo : lo+Size]
}

// PFNOf recovers the frame owning a byte slice previously handed out by
// Bytes (or any sub-slice of it) by masking its address down to the
// page boundary.
func (t *Table) PFNOf(obj []byte) (PFN, bool) {
	if len(obj) == 0 {
		return 0, false
	}
	base := uintptr(unsafe.Pointer(&t.arena[0]))
	addr := uintptr(unsafe.Pointer(&obj[0]))
	if addr < base {
		return 0, false
	}
	rel := addr - base
	if rel >= uintptr(len(t.arena)) {
		return 0, false
	}
	return PFN(rel / Size), true
}

// SetHead marks pfn as the head of a compound page of the given order.
func (t *Table) SetHead(pfn PFN, order int) {
	d := &t.meta[pfn]
	d.Kind = KindCompoundHead
	d.Order = uint8(order)
}

// SetTail marks pfn as a non-head page of whatever run it belongs to.
func (t *Table) SetTail(pfn PFN) {
	t.meta[pfn].Kind = KindCompoundTail
}

// OrderOf returns the order a compound-head page was last marked with.
func (t *Table) OrderOf(pfn PFN) int { return int(t.meta[pfn].Order) }

// IsFree reports whether pfn currently carries no references.
func (t *Table) IsFree(pfn PFN) bool { return t.meta[pfn].RefCount == 0 }

// Ref bumps pfn's reference count.
func (t *Table) Ref(pfn PFN) { t.meta[pfn].RefCount++ }

// Deref drops pfn's reference count and returns the new value.
// Dereferencing an already-zero count is an invariant violation and
// panics rather than wrapping silently.
func (t *Table) Deref(pfn PFN) uint16 {
	d := &t.meta[pfn]
	if d.RefCount == 0 {
		panic("page: deref of a page already at zero references")
	}
	d.RefCount--
	return d.RefCount
}
