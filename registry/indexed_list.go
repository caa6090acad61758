// Package registry provides the keyed, insertion-ordered, optionally bounded store used for
// per-cycle obstacles and for the history of planning frames.
package registry

import (
	"container/list"
	"iter"

	"github.com/pkg/errors"
)

// ErrDuplicateKey is returned by Add when the key is already present and the list rejects
// duplicates.
var ErrDuplicateKey = errors.New("key already registered")

// DuplicatePolicy controls what Add does with a key that is already present.
type DuplicatePolicy int

const (
	// RejectDuplicates makes Add fail with ErrDuplicateKey.
	RejectDuplicates DuplicatePolicy = iota
	// OverwriteDuplicates replaces the stored value and keeps the entry's original position.
	OverwriteDuplicates
)

type entry[K comparable, V any] struct {
	key   K
	value V
}

// IndexedList maps keys to owned values and remembers the order they were added in. When built
// with a positive capacity, adding a new key to a full list first evicts the oldest entry.
//
// IndexedList is not safe for concurrent use.
type IndexedList[K comparable, V any] struct {
	capacity int
	policy   DuplicatePolicy

	order *list.List
	index map[K]*list.Element
}

// NewIndexedList returns an empty list. A capacity of zero or less means unbounded.
func NewIndexedList[K comparable, V any](capacity int, policy DuplicatePolicy) *IndexedList[K, V] {
	if capacity < 0 {
		capacity = 0
	}
	return &IndexedList[K, V]{
		capacity: capacity,
		policy:   policy,
		order:    list.New(),
		index:    make(map[K]*list.Element),
	}
}

// Add stores value under key.
func (l *IndexedList[K, V]) Add(key K, value V) error {
	_, _, err := l.AddWithEviction(key, value)
	return err
}

// AddWithEviction is Add, but also reports the key evicted to make room, if any.
func (l *IndexedList[K, V]) AddWithEviction(key K, value V) (K, bool, error) {
	var evictedKey K
	if elem, ok := l.index[key]; ok {
		if l.policy == RejectDuplicates {
			return evictedKey, false, errors.Wrapf(ErrDuplicateKey, "%v", key)
		}
		elem.Value.(*entry[K, V]).value = value
		return evictedKey, false, nil
	}

	evicted := false
	if l.capacity > 0 && l.order.Len() >= l.capacity {
		oldest := l.order.Front()
		e := oldest.Value.(*entry[K, V])
		l.order.Remove(oldest)
		delete(l.index, e.key)
		evictedKey, evicted = e.key, true
	}

	l.index[key] = l.order.PushBack(&entry[K, V]{key: key, value: value})
	return evictedKey, evicted, nil
}

// Get returns the value stored under key.
func (l *IndexedList[K, V]) Get(key K) (V, bool) {
	elem, ok := l.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	return elem.Value.(*entry[K, V]).value, true
}

// Contains reports whether key is present.
func (l *IndexedList[K, V]) Contains(key K) bool {
	_, ok := l.index[key]
	return ok
}

// Len returns the number of stored entries.
func (l *IndexedList[K, V]) Len() int {
	return l.order.Len()
}

// Capacity returns the configured capacity, zero when unbounded.
func (l *IndexedList[K, V]) Capacity() int {
	return l.capacity
}

// Oldest returns the earliest surviving entry.
func (l *IndexedList[K, V]) Oldest() (K, V, bool) {
	return l.at(l.order.Front())
}

// Newest returns the most recently added entry.
func (l *IndexedList[K, V]) Newest() (K, V, bool) {
	return l.at(l.order.Back())
}

func (l *IndexedList[K, V]) at(elem *list.Element) (K, V, bool) {
	if elem == nil {
		var (
			k K
			v V
		)
		return k, v, false
	}
	e := elem.Value.(*entry[K, V])
	return e.key, e.value, true
}

// Keys returns the keys in insertion order.
func (l *IndexedList[K, V]) Keys() []K {
	keys := make([]K, 0, l.order.Len())
	for elem := l.order.Front(); elem != nil; elem = elem.Next() {
		keys = append(keys, elem.Value.(*entry[K, V]).key)
	}
	return keys
}

// Items iterates over the entries in insertion order. Each call starts over from the oldest entry.
func (l *IndexedList[K, V]) Items() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for elem := l.order.Front(); elem != nil; elem = elem.Next() {
			e := elem.Value.(*entry[K, V])
			if !yield(e.key, e.value) {
				return
			}
		}
	}
}
