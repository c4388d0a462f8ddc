// Package ilist implements a generic intrusive doubly-linked list.
//
// The original allocator (see inc/list.h in the reference sources) embeds
// a list_head inside every element and recovers the enclosing struct via
// container_of pointer arithmetic. That trick doesn't translate to a
// memory-safe language, so each Node here stores a typed back-reference to
// its owner instead of relying on address arithmetic: a type-generic list
// holding references, traded for one extra pointer per node.
package ilist

// Node is the intrusive link embedded (by pointer) inside a list element.
// A node belongs to at most one list at a time.
type Node[T any] struct {
	next, prev *Node[T]
	elem       *T
}

// NewNode returns a detached node owned by elem. Callers typically store
// the result in a field of elem itself and never construct a second node
// for the same element.
func NewNode[T any](elem *T) *Node[T] {
	n := &Node[T]{elem: elem}
	n.next, n.prev = n, n
	return n
}

// Unlink removes n from whichever list it currently belongs to and
// poisons its links. Unlinking an already-unlinked (poisoned) node
// panics instead of corrupting a list silently.
func (n *Node[T]) Unlink() {
	if n.next == nil || n.prev == nil {
		panic("ilist: double unlink")
	}
	n.next.prev = n.prev
	n.prev.next = n.next
	n.next, n.prev = nil, nil
}

// List is a circular, sentinel-headed list of *T elements.
type List[T any] struct {
	sentinel Node[T]
}

// Init prepares an empty list. The zero value of List is not usable
// until Init has run once.
func (l *List[T]) Init() {
	l.sentinel.next = &l.sentinel
	l.sentinel.prev = &l.sentinel
}

// Empty reports whether the list holds no elements.
func (l *List[T]) Empty() bool {
	return l.sentinel.next == &l.sentinel
}

func insertAfter[T any](at, n *Node[T]) {
	n.next = at.next
	n.prev = at
	at.next.prev = n
	at.next = n
}

// PushFront inserts n as the new first element.
func (l *List[T]) PushFront(n *Node[T]) {
	insertAfter(&l.sentinel, n)
}

// PushBack inserts n as the new last element.
func (l *List[T]) PushBack(n *Node[T]) {
	insertAfter(l.sentinel.prev, n)
}

// First returns the first element, or nil if the list is empty.
func (l *List[T]) First() *T {
	if l.Empty() {
		return nil
	}
	return l.sentinel.next.elem
}

// Last returns the last element, or nil if the list is empty.
func (l *List[T]) Last() *T {
	if l.Empty() {
		return nil
	}
	return l.sentinel.prev.elem
}

// PopFront unlinks and returns the first element, or nil if empty.
func (l *List[T]) PopFront() *T {
	e := l.sentinel.next
	if e == &l.sentinel {
		return nil
	}
	e.Unlink()
	return e.elem
}

// PopBack unlinks and returns the last element, or nil if empty.
func (l *List[T]) PopBack() *T {
	e := l.sentinel.prev
	if e == &l.sentinel {
		return nil
	}
	e.Unlink()
	return e.elem
}

// ForEach walks the list front to back, stopping early if fn returns
// false. fn must not mutate the list it is iterating; use ForEachSafe
// for that.
func (l *List[T]) ForEach(fn func(*T) bool) {
	for n := l.sentinel.next; n != &l.sentinel; n = n.next {
		if !fn(n.elem) {
			return
		}
	}
}

// ForEachSafe walks the list front to back and tolerates fn unlinking
// the element it was just handed.
func (l *List[T]) ForEachSafe(fn func(*T) bool) {
	n := l.sentinel.next
	for n != &l.sentinel {
		next := n.next
		if !fn(n.elem) {
			return
		}
		n = next
	}
}
