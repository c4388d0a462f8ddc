package slab

import (
	"sync"

	"github.com/google/uuid"

	"kalloc/buddy"
	"kalloc/ilist"
	"kalloc/page"
)

// Ctor initializes a freshly backed object. It runs at most once per
// slot for the slot's lifetime: once a slot has held a constructed
// object, freeing and reallocating it skips the constructor, matching
// the memoization the reference allocator's CONSTRUCTED flag provides.
type Ctor func(obj []byte)

// Dtor tears down an object's invariants when it is freed. It is
// optional; most caches need only a constructor. A slab with no more
// live objects is kept around (not returned to the page allocator)
// until the whole cache is removed, so a later Alloc can reuse it.
type Dtor func(obj []byte)

// Cache is a fixed-size object allocator backed by single pages drawn
// from a buddy.Area. Objects are grouped across three slab lists (full,
// partial, empty) exactly as kmem_cache tracks them in the reference
// allocator, so the commonly hot path -- allocate from a partial slab
// -- never has to scan a full or empty one.
type Cache struct {
	ID   uuid.UUID
	Name string

	mu      sync.Mutex
	area    *buddy.Area
	tbl     *page.Table
	objsize int
	ctor    Ctor
	dtor    Dtor

	full    ilist.List[Slab]
	partial ilist.List[Slab]
	free    ilist.List[Slab]

	byFrame map[page.PFN]*Slab

	numActive int
	numSlabs  int
}

// newCache builds a cache without registering it anywhere; callers go
// through Registry.Create.
func newCache(name string, objsize int, area *buddy.Area, tbl *page.Table, ctor Ctor, dtor Dtor) *Cache {
	c := &Cache{
		ID:      uuid.New(),
		Name:    name,
		area:    area,
		tbl:     tbl,
		objsize: objsize,
		ctor:    ctor,
		dtor:    dtor,
		byFrame: make(map[page.PFN]*Slab),
	}
	c.full.Init()
	c.partial.Init()
	c.free.Init()
	return c
}

// Alloc hands out one object from the first available slab (partial
// first, then an empty slab the cache already owns, then a new slab
// grown from a zero-order page), running the constructor unless the
// slot already carries a constructed object from a previous life.
func (c *Cache) Alloc() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.partial.First()
	if s == nil {
		s = c.free.First()
	}
	if s == nil {
		var err error
		s, err = c.growSlab()
		if err != nil {
			return nil, err
		}
	}
	// s currently sits wherever it was found (partial, free, or freshly
	// created and unlisted); pull it out and let relist place it
	// according to its occupancy after this allocation.
	s.ln.Unlink()

	obj, constructed := s.alloc()
	if !constructed && c.ctor != nil {
		c.ctor(obj)
	}
	c.numActive++
	c.relist(s)
	return obj, nil
}

// Free returns obj to its owning slab, running the destructor if one is
// configured. The slab itself is never returned to the page allocator
// here, even once it holds no live objects -- only Registry.Remove
// reclaims pages, so a later Alloc can reuse an already-formatted slab
// without rerunning constructors on its memoized slots.
func (c *Cache) Free(obj []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	pfn, ok := c.tbl.PFNOf(obj)
	if !ok {
		return ErrObjectNotOwned
	}
	s, ok := c.byFrame[pfn]
	if !ok {
		return ErrObjectNotOwned
	}

	if c.dtor != nil {
		c.dtor(obj)
	}
	off := s.offsetOf(obj)
	s.releaseAt(off)
	c.numActive--
	s.ln.Unlink()
	c.relist(s)
	return nil
}

// relist places s on the list matching its current occupancy. Callers
// must have already unlinked s from whatever list it was previously on.
func (c *Cache) relist(s *Slab) {
	switch {
	case s.full():
		c.full.PushBack(s.ln)
	case s.free == s.objs:
		c.free.PushBack(s.ln)
	default:
		c.partial.PushBack(s.ln)
	}
}

// growSlab allocates a fresh page from the buddy area and formats it as
// a new slab for this cache. The caller (Alloc) is responsible for
// allocating from it and placing it on the right list.
func (c *Cache) growSlab() (*Slab, error) {
	pfn, ok := c.area.AllocPages(0)
	if !ok {
		return nil, ErrOutOfPages
	}
	s := newSlab(pfn, c.tbl.Bytes(pfn), c.objsize)
	c.byFrame[pfn] = s
	c.numSlabs++
	return s, nil
}

// Stats reports a snapshot of the cache's current occupancy, useful for
// the metrics and diag packages.
type Stats struct {
	Name      string
	ObjSize   int
	NumSlabs  int
	NumActive int
	NumObjs   int
}

// Stats returns a point-in-time snapshot of the cache's occupancy.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Name:      c.Name,
		ObjSize:   c.objsize,
		NumSlabs:  c.numSlabs,
		NumActive: c.numActive,
		NumObjs:   c.numSlabs * ObjsPerSlab(c.objsize),
	}
}
