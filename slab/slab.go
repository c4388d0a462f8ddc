// Package slab implements the slab allocator: fixed-size object caches
// carved out of single pages obtained from a buddy.Area, grounded on
// kern/slab.c and kern/slab.h of the reference allocator this module
// reimplements.
package slab

import (
	"unsafe"

	"kalloc/ilist"
	"kalloc/page"
)

// headerSize mirrors the reference struct slab header (two list
// pointers, flags, active count, start pointer, free-table pointer) so
// the free-table capacity formula below matches the original exactly,
// even though this Slab's bookkeeping actually lives in ordinary Go
// heap memory rather than in the page itself.
const headerSize = 24

// fteSize is the width in bytes of one free-table entry.
const fteSize = 2

// fteOffsetBits is the width of the offset field packed into an FTE;
// the remaining high bits carry flags.
const fteOffsetBits = 12

// fteConstructed marks an FTE's object as already having had its
// constructor run, so Cache.Alloc can skip re-running it.
const fteConstructed = uint16(1) << fteOffsetBits

// ObjsPerSlab returns how many objsize-byte objects fit in a single
// page alongside one free-table entry per object.
func ObjsPerSlab(objsize int) int {
	return (page.Size - headerSize) / (objsize + fteSize)
}

func packFTE(offset int, constructed bool) uint16 {
	v := uint16(offset)
	if constructed {
		v |= fteConstructed
	}
	return v
}

func unpackFTE(fte uint16) (offset int, constructed bool) {
	return int(fte & (1<<fteOffsetBits - 1)), fte&fteConstructed != 0
}

// Slab is one page's worth of same-size objects plus a stack of free
// object byte offsets (the free table). It is the Go analogue of the
// reference allocator's on-page struct slab, except the bookkeeping is
// a plain heap object linked to its backing page through pfn rather
// than overlaid on the page bytes.
type Slab struct {
	pfn     page.PFN
	bytes   []byte
	objsize int
	objs    int
	fte     []uint16 // free table, length objs; fte[:free] are the free slots' packed offsets
	free    int      // number of free entries remaining at the top of fte
	active  int
	ln      *ilist.Node[Slab]
}

// newSlab formats a freshly allocated page as a slab of objsize-byte
// objects, initializing the free table with one entry per object
// (offset i*objsize, not yet constructed), matching the intended
// behavior of kmem_cache_new_page.
func newSlab(pfn page.PFN, bytes []byte, objsize int) *Slab {
	objs := ObjsPerSlab(objsize)
	s := &Slab{
		pfn:     pfn,
		bytes:   bytes,
		objsize: objsize,
		objs:    objs,
		fte:     make([]uint16, objs),
		free:    objs,
	}
	for i := 0; i < objs; i++ {
		s.fte[i] = packFTE(i*objsize, false)
	}
	s.ln = ilist.NewNode(s)
	return s
}

func (s *Slab) full() bool  { return s.free == 0 }
func (s *Slab) empty() bool { return s.active == 0 }

// alloc pops a free entry off the table and returns the object's bytes
// plus whether its constructor has already run (memoized from a prior
// life of this slot).
func (s *Slab) alloc() (obj []byte, constructed bool) {
	s.free--
	offset, ctor := unpackFTE(s.fte[s.free])
	s.active++
	return s.bytes[offset : offset+s.objsize], ctor
}

// offsetOf returns obj's byte offset within the slab's page, panicking
// if obj doesn't actually point into this slab.
func (s *Slab) offsetOf(obj []byte) int {
	base := uintptr(unsafe.Pointer(&s.bytes[0]))
	target := uintptr(unsafe.Pointer(&obj[0]))
	if target < base {
		panic("slab: object does not belong to this slab")
	}
	off := int(target - base)
	if off+s.objsize > page.Size {
		panic("slab: object does not belong to this slab")
	}
	return off
}

// releaseAt pushes the slot at byte offset off back onto the free
// table as constructed, making it available for the next alloc.
func (s *Slab) releaseAt(off int) {
	s.fte[s.free] = packFTE(off, true)
	s.free++
	s.active--
}
