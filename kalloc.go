// Package kalloc ties the page, buddy and slab packages together into
// a single kernel-style memory allocator: a buddy page allocator for
// coarse power-of-two allocations, layered under a slab allocator for
// small fixed-size objects.
package kalloc

import (
	"github.com/pkg/errors"

	"kalloc/buddy"
	"kalloc/config"
	"kalloc/page"
	"kalloc/slab"
)

// ErrOutOfMemory is returned by AllocPages when the buddy area has no
// block of the requested order or larger available, including when
// order is capped out by the allocator's configured MaxOrder.
var ErrOutOfMemory = errors.New("kalloc: out of memory")

// ErrNotOwned is returned by FreePages when the given bytes were not
// previously handed out by this allocator's table.
var ErrNotOwned = errors.New("kalloc: bytes not owned by this allocator")

// ErrNameTooLong is returned by NewCache when name exceeds the
// allocator's configured CacheNameMax.
var ErrNameTooLong = errors.New("kalloc: cache name exceeds configured maximum")

// Allocator is the top-level facade a kernel boots once and then uses
// for the rest of its lifetime.
type Allocator struct {
	Table    *page.Table
	Pages    *buddy.Area
	Registry *slab.Registry

	cfg config.Config
}

// NewFromConfig builds an Allocator sized and bounded by cfg: a table
// of cfg.NumFrames frames (all free) with a buddy area and registry
// over it. The Allocator's AllocPages rejects orders of cfg.MaxOrder or
// more and its NewCache rejects cache names longer than
// cfg.CacheNameMax; the buddy area and registry themselves are not
// bounded by cfg. It returns an error if cfg does not validate.
func NewFromConfig(cfg config.Config) (*Allocator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tbl := page.NewTable(cfg.NumFrames)
	area := buddy.NewArea(tbl)
	area.Init(func(page.PFN) bool { return true })
	return &Allocator{
		Table:    tbl,
		Pages:    area,
		Registry: slab.NewRegistry(area, tbl),
		cfg:      cfg,
	}, nil
}

// New builds an Allocator over tbl, handing every frame for which
// isFree returns true to the buddy area and leaving the rest (already
// in use, e.g. the kernel image) untouched. Its configuration is
// config.Default with NumFrames overridden to tbl's actual frame
// count, so MaxOrder and CacheNameMax still apply to it.
func New(tbl *page.Table, isFree func(page.PFN) bool) *Allocator {
	area := buddy.NewArea(tbl)
	area.Init(isFree)
	cfg := config.Default()
	cfg.NumFrames = tbl.NumFrames()
	return &Allocator{
		Table:    tbl,
		Pages:    area,
		Registry: slab.NewRegistry(area, tbl),
		cfg:      cfg,
	}
}

// NewDefault builds an Allocator over a freshly allocated table of
// numFrames frames, all free. It is the convenient entry point for
// tests and for any caller that doesn't need to model pre-reserved
// memory. It panics if numFrames does not yield a valid configuration,
// since callers of this entry point pass a bare frame count rather
// than a config.Config and have no error return to react to.
func NewDefault(numFrames int) *Allocator {
	cfg := config.Default()
	cfg.NumFrames = numFrames
	a, err := NewFromConfig(cfg)
	if err != nil {
		panic(err)
	}
	return a
}

// AllocPages allocates 2^order contiguous pages and returns the bytes
// backing the whole run, starting at the head frame. order must be
// less than this allocator's configured MaxOrder; a larger order is
// treated the same as exhaustion, not a programming error.
func (a *Allocator) AllocPages(order int) ([]byte, error) {
	if order >= a.cfg.MaxOrder {
		return nil, ErrOutOfMemory
	}
	pfn, ok := a.Pages.AllocPages(order)
	if !ok {
		return nil, ErrOutOfMemory
	}
	return pagesBytes(a.Table, pfn, order), nil
}

// pagesBytes returns the contiguous byte window spanning an order-sized
// run starting at pfn. A table's frames are laid out contiguously in
// one backing arena, so the run's bytes are simply the head frame's
// window extended by the run's remaining length.
func pagesBytes(tbl *page.Table, pfn page.PFN, order int) []byte {
	first := tbl.Bytes(pfn)
	n := 1 << uint(order)
	return first[:page.Size*n]
}

// FreePages returns a run of pages previously obtained from AllocPages.
// order must match the order originally requested.
func (a *Allocator) FreePages(obj []byte, order int) error {
	pfn, ok := a.Table.PFNOf(obj)
	if !ok {
		return ErrNotOwned
	}
	a.Pages.FreePages(pfn, order)
	return nil
}

// NewCache registers a new object cache backed by this allocator's
// buddy area. name must not exceed this allocator's configured
// CacheNameMax.
func (a *Allocator) NewCache(name string, objsize int, ctor, dtor func([]byte)) (*slab.Cache, error) {
	if len(name) > a.cfg.CacheNameMax {
		return nil, ErrNameTooLong
	}
	return a.Registry.Create(name, objsize, slab.Ctor(ctor), slab.Dtor(dtor))
}

// Config returns the configuration this allocator was built from.
func (a *Allocator) Config() config.Config {
	return a.cfg
}
