// Package buddy implements the buddy page allocator: a power-of-two
// free-list allocator over a page.Table, grounded on kern/buddy.c of
// the reference allocator this module reimplements.
package buddy

import (
	"fmt"
	"math/bits"
	"sync"

	"kalloc/ilist"
	"kalloc/page"
)

// MaxOrder bounds the largest run the allocator will ever hand out or
// track: 2^(MaxOrder-1) pages.
const MaxOrder = 11

// MaxNormalPFN caps how many frames Init will scan when building the
// initial free lists, mirroring the reference allocator's split between
// "normal" memory it manages and high memory it leaves alone.
const MaxNormalPFN = 0x10000

// Area is a buddy allocator over a fixed page.Table. The zero value is
// not usable; construct with NewArea.
type Area struct {
	mu       sync.Mutex
	tbl      *page.Table
	freeList [MaxOrder]ilist.List[page.Descriptor]
	numFree  [MaxOrder]int // count of free blocks headed at this order
}

// NewArea returns an Area with all free lists initialized but empty.
// Call Init to populate them from a table.
func NewArea(tbl *page.Table) *Area {
	a := &Area{tbl: tbl}
	for i := range a.freeList {
		a.freeList[i].Init()
	}
	return a
}

// Init scans frames [0, min(tbl.NumFrames(), MaxNormalPFN)) and inserts
// every maximal run of frames for which isFree returns true into the
// free lists, decomposed into aligned power-of-two blocks. isFree lets
// the caller reserve frames (kernel image, boot structures) before
// turning the rest over to the allocator.
func (a *Area) Init(isFree func(page.PFN) bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	limit := a.tbl.NumFrames()
	if limit > MaxNormalPFN {
		limit = MaxNormalPFN
	}

	pfn := page.PFN(0)
	for int(pfn) < limit {
		if !isFree(pfn) {
			pfn++
			continue
		}
		start := pfn
		for int(pfn) < limit && isFree(pfn) {
			pfn++
		}
		a.insertRun(start, pfn)
	}
}

// insertRun decomposes the half-open frame range [start, end) into
// maximal aligned power-of-two blocks and inserts each as a free head.
// Alignment of the run's start pins the largest usable order at each
// step, exactly as the reference allocator's initial free-area walk
// does; math/bits.TrailingZeros32(0) saturating at 32 naturally handles
// a run starting at pfn 0 without a special case.
func (a *Area) insertRun(start, end page.PFN) {
	for start < end {
		order := MaxOrder - 1
		if tz := bits.TrailingZeros32(uint32(start)); tz < order {
			order = tz
		}
		for start+page.PFN(1<<uint(order)) > end {
			order--
		}
		a.tbl.SetHead(start, order)
		a.freeList[order].PushBack(a.tbl.Descriptor(start).Node())
		a.numFree[order]++
		start += page.PFN(1 << uint(order))
	}
}

// AllocPages removes and returns the head frame of a free block of the
// given order, splitting a larger block if no exact match is free. It
// reports false if no block of order or larger is available, including
// when order is MaxOrder or greater -- no list that large is ever
// populated, so that's exhaustion, not a programming error.
func (a *Area) AllocPages(order int) (page.PFN, bool) {
	if order < 0 {
		panic(fmt.Sprintf("buddy: order %d out of range", order))
	}
	if order >= MaxOrder {
		return 0, false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.getFromFreeList(order)
}

func (a *Area) getFromFreeList(order int) (page.PFN, bool) {
	cur := order
	for cur < MaxOrder && a.freeList[cur].Empty() {
		cur++
	}
	if cur == MaxOrder {
		return 0, false
	}

	d := a.freeList[cur].PopFront()
	a.numFree[cur]--
	pfn := d.PFN()

	// Split the block down to the requested order, handing the lower
	// half of each split back to the free list at its new (smaller)
	// order and keeping the upper half as the candidate result.
	for cur > order {
		cur--
		a.tbl.SetHead(pfn, cur)
		a.freeList[cur].PushBack(a.tbl.Descriptor(pfn).Node())
		a.numFree[cur]++
		pfn += page.PFN(1 << uint(cur))
	}

	a.tbl.SetHead(pfn, order)
	a.tbl.Ref(pfn)
	for i := page.PFN(1); i < page.PFN(1<<uint(order)); i++ {
		a.tbl.SetTail(pfn + i)
	}
	return pfn, true
}

// FreePages drops the head frame's reference count and, once it reaches
// zero, returns the order-sized block to the free lists, merging with
// its buddy as far up as possible.
func (a *Area) FreePages(pfn page.PFN, order int) {
	if order < 0 || order >= MaxOrder {
		panic(fmt.Sprintf("buddy: order %d out of range", order))
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.tbl.Deref(pfn) != 0 {
		return
	}
	a.putToFreeList(pfn, order)
}

// putToFreeList merges pfn's block with its buddy while the buddy is
// itself a free head of the same order, then inserts the (possibly
// grown) result as a new free head. On each merge the higher-addressed
// of the pair becomes the compound's tail and the lower-addressed
// survives as the head, which keeps every head aligned to its order.
func (a *Area) putToFreeList(pfn page.PFN, order int) {
	for order < MaxOrder-1 {
		buddy := pfn ^ page.PFN(1<<uint(order))
		if int(buddy) >= a.tbl.NumFrames() {
			break
		}
		d := a.tbl.Descriptor(buddy)
		if d.Kind != page.KindCompoundHead || !a.tbl.IsFree(buddy) || a.tbl.OrderOf(buddy) != order {
			break
		}
		a.unlinkBuddy(buddy, order)

		if pfn > buddy {
			a.tbl.SetTail(pfn)
			pfn = buddy
		} else {
			a.tbl.SetTail(buddy)
		}
		order++
	}
	a.tbl.SetHead(pfn, order)
	a.freeList[order].PushBack(a.tbl.Descriptor(pfn).Node())
	a.numFree[order]++
}

// unlinkBuddy removes buddy's descriptor node from freeList[order]
// wherever it sits (not necessarily the front) and corrects the count.
func (a *Area) unlinkBuddy(buddy page.PFN, order int) {
	a.tbl.Descriptor(buddy).Node().Unlink()
	a.numFree[order]--
}

// NumFreePages reports the total number of free pages across all orders.
func (a *Area) NumFreePages() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	total := 0
	for order, n := range a.numFree {
		total += n * (1 << uint(order))
	}
	return total
}

// NumFreePagesOrder reports the number of free blocks at exactly the
// given order (not pages; blocks).
func (a *Area) NumFreePagesOrder(order int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if order < 0 || order >= MaxOrder {
		return 0
	}
	return a.numFree[order]
}
