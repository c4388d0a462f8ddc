package page

import "testing"

func TestBytesAreDistinctPerFrame(t *testing.T) {
	tbl := NewTable(4)
	a := tbl.Bytes(0)
	b := tbl.Bytes(1)
	a[0] = 0xAB
	if b[0] == 0xAB {
		t.Fatalf("frame 1 aliases frame 0")
	}
	if len(a) != Size || len(b) != Size {
		t.Fatalf("frame window length = %d, want %d", len(a), Size)
	}
}

func TestPFNOfRoundTrips(t *testing.T) {
	tbl := NewTable(8)
	for i := 0; i < 8; i++ {
		pfn, ok := tbl.PFNOf(tbl.Bytes(PFN(i)))
		if !ok || pfn != PFN(i) {
			t.Fatalf("PFNOf(Bytes(%d)) = (%d, %v), want (%d, true)", i, pfn, ok, i)
		}
	}
}

func TestPFNOfSubSlice(t *testing.T) {
	tbl := NewTable(2)
	full := tbl.Bytes(1)
	sub := full[16:32]
	pfn, ok := tbl.PFNOf(sub)
	if !ok || pfn != 1 {
		t.Fatalf("PFNOf(sub-slice) = (%d, %v), want (1, true)", pfn, ok)
	}
}

func TestRefDeref(t *testing.T) {
	tbl := NewTable(1)
	if !tbl.IsFree(0) {
		t.Fatalf("fresh frame should be free")
	}
	tbl.Ref(0)
	if tbl.IsFree(0) {
		t.Fatalf("referenced frame should not be free")
	}
	if n := tbl.Deref(0); n != 0 {
		t.Fatalf("Deref() = %d, want 0", n)
	}
	if !tbl.IsFree(0) {
		t.Fatalf("frame should be free after deref to zero")
	}
}

func TestDerefAtZeroPanics(t *testing.T) {
	tbl := NewTable(1)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic derefing an already-zero count")
		}
	}()
	tbl.Deref(0)
}

func TestSetHeadOrder(t *testing.T) {
	tbl := NewTable(1)
	tbl.SetHead(0, 4)
	if got := tbl.OrderOf(0); got != 4 {
		t.Fatalf("OrderOf() = %d, want 4", got)
	}
}
