package kalloc

import (
	"strings"
	"testing"

	"kalloc/config"
	"kalloc/page"
	"kalloc/slab"
)

func TestAllocFreePagesRoundTrip(t *testing.T) {
	a := NewDefault(64)
	before := a.Pages.NumFreePages()

	buf, err := a.AllocPages(2)
	if err != nil {
		t.Fatalf("AllocPages failed: %v", err)
	}
	if len(buf) != 4*page.Size {
		t.Fatalf("AllocPages(2) returned %d bytes, want %d", len(buf), 4*page.Size)
	}

	if err := a.FreePages(buf, 2); err != nil {
		t.Fatalf("FreePages failed: %v", err)
	}
	if after := a.Pages.NumFreePages(); after != before {
		t.Fatalf("NumFreePages() after round trip = %d, want %d", after, before)
	}
}

// S4/S5 — churn balance and cache-removal page-return identity.
func TestChurnAndRemove(t *testing.T) {
	a := NewDefault(4096)
	preSnapshot := a.Pages.NumFreePages()

	c, err := a.NewCache("churn", 24, nil, nil)
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}

	const rounds = 20
	const perRound = 200
	var firstRoundSlabs int
	for r := 0; r < rounds; r++ {
		objs := make([][]byte, 0, perRound)
		for i := 0; i < perRound; i++ {
			obj, err := c.Alloc()
			if err != nil {
				t.Fatalf("round %d alloc %d failed: %v", r, i, err)
			}
			objs = append(objs, obj)
		}
		if r == 0 {
			firstRoundSlabs = c.Stats().NumSlabs
		}
		for _, obj := range objs {
			if err := c.Free(obj); err != nil {
				t.Fatalf("round %d free failed: %v", r, err)
			}
		}
	}

	final := c.Stats()
	if final.NumActive != 0 {
		t.Fatalf("NumActive after churn = %d, want 0", final.NumActive)
	}
	if final.NumSlabs != firstRoundSlabs {
		t.Fatalf("NumSlabs after churn = %d, want %d (stable since first round)", final.NumSlabs, firstRoundSlabs)
	}

	if err := a.Registry.Remove("churn"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if post := a.Pages.NumFreePages(); post != preSnapshot {
		t.Fatalf("NumFreePages() after remove = %d, want %d (pre-creation snapshot)", post, preSnapshot)
	}
}

func TestNewCacheDuplicateName(t *testing.T) {
	a := NewDefault(16)
	if _, err := a.NewCache("dup", 32, nil, nil); err != nil {
		t.Fatalf("first NewCache failed: %v", err)
	}
	if _, err := a.NewCache("dup", 32, nil, nil); err != slab.ErrDuplicateCache {
		t.Fatalf("second NewCache err = %v, want ErrDuplicateCache", err)
	}
}

func TestNewFromConfigRejectsInvalid(t *testing.T) {
	if _, err := NewFromConfig(config.Config{}); err == nil {
		t.Fatalf("NewFromConfig(zero value) = nil error, want validation failure")
	}
}

func TestNewFromConfigCapsAllocOrder(t *testing.T) {
	cfg := config.Config{NumFrames: 64, MaxOrder: 3, CacheNameMax: 32}
	a, err := NewFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}

	if _, err := a.AllocPages(cfg.MaxOrder); err != ErrOutOfMemory {
		t.Fatalf("AllocPages(MaxOrder) err = %v, want ErrOutOfMemory", err)
	}
	if _, err := a.AllocPages(cfg.MaxOrder - 1); err != nil {
		t.Fatalf("AllocPages(MaxOrder-1) failed: %v", err)
	}
}

func TestNewCacheNameTooLong(t *testing.T) {
	cfg := config.Config{NumFrames: 64, MaxOrder: 4, CacheNameMax: 4}
	a, err := NewFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}

	if _, err := a.NewCache(strings.Repeat("x", cfg.CacheNameMax+1), 32, nil, nil); err != ErrNameTooLong {
		t.Fatalf("NewCache with overlong name err = %v, want ErrNameTooLong", err)
	}
	if _, err := a.NewCache("ok", 32, nil, nil); err != nil {
		t.Fatalf("NewCache with valid name failed: %v", err)
	}
}
