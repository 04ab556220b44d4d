/*
Package orderedset provides an insertion-ordered container of unique values with
constant time append, erase and in-place replacement.  It pairs a doubly linked
sequence with a value->node map, the same arrangement an LRU cache uses, except
that nodes never move once inserted.

A Set is not safe for concurrent use.
*/
package orderedset

import "fmt"

type node[T comparable] struct {
	value      T
	prev, next *node[T]
}

// Set is an ordered set of unique values.  The zero value is not usable; use New.
type Set[T comparable] struct {
	head, tail *node[T]
	nodes      map[T]*node[T]
}

// New returns an empty set.
func New[T comparable]() *Set[T] {
	return &Set[T]{nodes: make(map[T]*node[T])}
}

// Len returns the number of values in the set.
func (s *Set[T]) Len() int {
	return len(s.nodes)
}

// Contains returns true if the value is in the set.
func (s *Set[T]) Contains(v T) bool {
	_, found := s.nodes[v]
	return found
}

// Append adds a value at the back.  The value must not already be present.
func (s *Set[T]) Append(v T) error {
	if _, found := s.nodes[v]; found {
		return fmt.Errorf("value %v already in ordered set", v)
	}
	n := &node[T]{value: v, prev: s.tail}
	if s.tail == nil {
		s.head = n
	} else {
		s.tail.next = n
	}
	s.tail = n
	s.nodes[v] = n
	return nil
}

// Erase removes a value.  It is a no-op if the value is absent.
func (s *Set[T]) Erase(v T) {
	n, found := s.nodes[v]
	if !found {
		return
	}
	if n.prev == nil {
		s.head = n.next
	} else {
		n.prev.next = n.next
	}
	if n.next == nil {
		s.tail = n.prev
	} else {
		n.next.prev = n.prev
	}
	delete(s.nodes, v)
}

// Replace swaps oldV for newV at the same position.  It is a no-op if oldV is absent
// and an error if newV is already present at another position.
func (s *Set[T]) Replace(oldV, newV T) error {
	n, found := s.nodes[oldV]
	if !found || oldV == newV {
		return nil
	}
	if _, taken := s.nodes[newV]; taken {
		return fmt.Errorf("cannot replace %v with %v: value already in ordered set", oldV, newV)
	}
	delete(s.nodes, oldV)
	n.value = newV
	s.nodes[newV] = n
	return nil
}

// Front returns the first value.  The bool is false on an empty set.
func (s *Set[T]) Front() (v T, ok bool) {
	if s.head == nil {
		return v, false
	}
	return s.head.value, true
}

// Back returns the last value.  The bool is false on an empty set.
func (s *Set[T]) Back() (v T, ok bool) {
	if s.tail == nil {
		return v, false
	}
	return s.tail.value, true
}

// PopBack removes and returns the last value.
func (s *Set[T]) PopBack() (v T, ok bool) {
	if v, ok = s.Back(); ok {
		s.Erase(v)
	}
	return
}

// Clear removes all values.
func (s *Set[T]) Clear() {
	s.head, s.tail = nil, nil
	s.nodes = make(map[T]*node[T])
}

// Values returns the values in order.
func (s *Set[T]) Values() []T {
	out := make([]T, 0, len(s.nodes))
	for n := s.head; n != nil; n = n.next {
		out = append(out, n.value)
	}
	return out
}

// Reverse returns the values from back to front.
func (s *Set[T]) Reverse() []T {
	out := make([]T, 0, len(s.nodes))
	for n := s.tail; n != nil; n = n.prev {
		out = append(out, n.value)
	}
	return out
}

// Each calls fn for every value in order until fn returns false.  The set must not be
// modified during iteration.
func (s *Set[T]) Each(fn func(T) bool) {
	for n := s.head; n != nil; n = n.next {
		if !fn(n.value) {
			return
		}
	}
}
