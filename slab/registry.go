package slab

import (
	"sync"

	"kalloc/buddy"
	"kalloc/page"
)

// cacheCacheName is the name of the bootstrap cache that would, in the
// reference allocator, hold struct kmem_cache descriptors themselves.
// This port keeps a registered entry under that name for API fidelity,
// but individual Cache values are ordinary Go heap objects (see
// Registry.Create) rather than objects carved out of cacheCache's own
// slabs: a Cache holds a mutex, maps and slices, and overlaying that
// onto manually managed page bytes would be invisible to the garbage
// collector.
const cacheCacheName = "cache_cache"

// Registry is the set of live caches, keyed by name, analogous to the
// reference allocator's global slab_cache list threaded through every
// struct kmem_cache.
type Registry struct {
	mu     sync.Mutex
	area   *buddy.Area
	tbl    *page.Table
	caches map[string]*Cache
}

// NewRegistry returns a Registry backed by area, with the bootstrap
// cache_cache entry already present.
func NewRegistry(area *buddy.Area, tbl *page.Table) *Registry {
	r := &Registry{
		area:   area,
		tbl:    tbl,
		caches: make(map[string]*Cache),
	}
	r.caches[cacheCacheName] = newCache(cacheCacheName, 0, area, tbl, nil, nil)
	return r
}

// Create registers a new cache named name holding objsize-byte objects,
// built with the given constructor and (optional) destructor. It
// rejects object sizes that would pack fewer than two objects per page,
// and duplicate names.
func (r *Registry) Create(name string, objsize int, ctor Ctor, dtor Dtor) (*Cache, error) {
	if ObjsPerSlab(objsize) < 2 {
		return nil, ErrInvalidObjsPerSlab
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.caches[name]; exists {
		return nil, ErrDuplicateCache
	}

	c := newCache(name, objsize, r.area, r.tbl, ctor, dtor)
	r.caches[name] = c
	return c, nil
}

// Remove unregisters and returns the backing pages of every slab owned
// by the named cache. It is the caller's responsibility to ensure no
// objects from the cache are still in use.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.caches[name]
	if !ok {
		return ErrCacheNotFound
	}
	delete(r.caches, name)

	c.mu.Lock()
	defer c.mu.Unlock()
	for pfn := range c.byFrame {
		c.area.FreePages(pfn, 0)
	}
	c.byFrame = nil
	return nil
}

// Lookup returns the named cache, or nil if none is registered.
func (r *Registry) Lookup(name string) *Cache {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.caches[name]
}

// ForEach calls fn once per registered cache in an unspecified order.
func (r *Registry) ForEach(fn func(*Cache)) {
	r.mu.Lock()
	caches := make([]*Cache, 0, len(r.caches))
	for _, c := range r.caches {
		caches = append(caches, c)
	}
	r.mu.Unlock()
	for _, c := range caches {
		fn(c)
	}
}
