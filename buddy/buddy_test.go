package buddy

import (
	"testing"

	"kalloc/page"
)

func newFullArea(n int) (*Area, *page.Table) {
	tbl := page.NewTable(n)
	a := NewArea(tbl)
	a.Init(func(page.PFN) bool { return true })
	return a, tbl
}

// S6 — buddy initial decomposition: 17 contiguous free pages from pfn 0
// must produce one order-4 block at pfn 0 and one order-0 block at pfn 16.
func TestInitialDecomposition17Pages(t *testing.T) {
	a, _ := newFullArea(17)
	if got := a.NumFreePagesOrder(4); got != 1 {
		t.Fatalf("order-4 blocks = %d, want 1", got)
	}
	if got := a.NumFreePagesOrder(0); got != 1 {
		t.Fatalf("order-0 blocks = %d, want 1", got)
	}
	if got := a.NumFreePages(); got != 17 {
		t.Fatalf("NumFreePages() = %d, want 17", got)
	}
}

// S1 — buddy split/merge symmetry.
func TestSplitMergeSymmetry(t *testing.T) {
	n := 1 << (MaxOrder - 1)
	a, _ := newFullArea(n)

	if got := a.NumFreePagesOrder(MaxOrder - 1); got != 1 {
		t.Fatalf("initial top-order blocks = %d, want 1", got)
	}

	pfn, ok := a.AllocPages(0)
	if !ok {
		t.Fatalf("AllocPages(0) failed")
	}
	for order := 0; order < MaxOrder-1; order++ {
		if got := a.NumFreePagesOrder(order); got != 1 {
			t.Fatalf("after alloc, order-%d blocks = %d, want 1", order, got)
		}
	}
	if got := a.NumFreePagesOrder(MaxOrder - 1); got != 0 {
		t.Fatalf("after alloc, top-order blocks = %d, want 0", got)
	}

	a.FreePages(pfn, 0)
	if got := a.NumFreePagesOrder(MaxOrder - 1); got != 1 {
		t.Fatalf("after free, top-order blocks = %d, want 1", got)
	}
	if got := a.NumFreePages(); got != n {
		t.Fatalf("NumFreePages() = %d, want %d", got, n)
	}
}

func TestAllocExhaustion(t *testing.T) {
	a, _ := newFullArea(1)
	if _, ok := a.AllocPages(0); !ok {
		t.Fatalf("expected single page to allocate")
	}
	if _, ok := a.AllocPages(0); ok {
		t.Fatalf("expected exhaustion on second alloc")
	}
}

func TestFreeAtZeroPanics(t *testing.T) {
	a, _ := newFullArea(2)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic freeing an unreferenced page")
		}
	}()
	a.FreePages(0, 0)
}

func TestAllocRespectsAlignment(t *testing.T) {
	a, _ := newFullArea(64)
	pfn, ok := a.AllocPages(3)
	if !ok {
		t.Fatalf("AllocPages(3) failed")
	}
	if pfn%8 != 0 {
		t.Fatalf("order-3 allocation at pfn %d is not 8-aligned", pfn)
	}
}
