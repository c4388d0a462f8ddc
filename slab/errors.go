package slab

import "github.com/pkg/errors"

var (
	// ErrObjectNotOwned is returned by Cache.Free when the given object
	// does not belong to any live slab of that cache.
	ErrObjectNotOwned = errors.New("slab: object not owned by this cache")
	// ErrOutOfPages is returned by Cache.Alloc when the backing buddy
	// area has no more pages to grow the cache with.
	ErrOutOfPages = errors.New("slab: backing page allocator is out of memory")
)

// ErrInvalidObjsPerSlab is returned by Registry.Create when the
// requested object size would pack fewer than two objects per slab.
// The reference allocator's intent for that case is unclear, so this
// implementation rejects it outright rather than guessing.
var ErrInvalidObjsPerSlab = errors.New("slab: object size yields fewer than two objects per slab")

// ErrDuplicateCache is returned by Registry.Create when a cache with
// the given name is already registered.
var ErrDuplicateCache = errors.New("slab: cache with this name already exists")

// ErrCacheNotFound is returned by Registry.Remove when no cache is
// registered under the given name.
var ErrCacheNotFound = errors.New("slab: no cache registered under this name")
