package registry

import (
	"errors"
	"testing"

	"go.viam.com/test"
)

func collect[K comparable, V any](l *IndexedList[K, V]) ([]K, []V) {
	var (
		keys   []K
		values []V
	)
	for k, v := range l.Items() {
		keys = append(keys, k)
		values = append(values, v)
	}
	return keys, values
}

func TestIndexedListUnbounded(t *testing.T) {
	l := NewIndexedList[string, int](0, RejectDuplicates)
	for i, k := range []string{"c", "a", "b"} {
		test.That(t, l.Add(k, i), test.ShouldBeNil)
	}
	test.That(t, l.Len(), test.ShouldEqual, 3)
	test.That(t, l.Capacity(), test.ShouldEqual, 0)

	keys, values := collect(l)
	test.That(t, keys, test.ShouldResemble, []string{"c", "a", "b"})
	test.That(t, values, test.ShouldResemble, []int{0, 1, 2})

	v, ok := l.Get("a")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldEqual, 1)

	_, ok = l.Get("missing")
	test.That(t, ok, test.ShouldBeFalse)

	t.Run("items is restartable", func(t *testing.T) {
		again, _ := collect(l)
		test.That(t, again, test.ShouldResemble, keys)
	})

	t.Run("items stops early", func(t *testing.T) {
		var seen []string
		for k := range l.Items() {
			seen = append(seen, k)
			if len(seen) == 2 {
				break
			}
		}
		test.That(t, seen, test.ShouldResemble, []string{"c", "a"})
	})
}

func TestIndexedListDuplicates(t *testing.T) {
	t.Run("reject", func(t *testing.T) {
		l := NewIndexedList[string, int](0, RejectDuplicates)
		test.That(t, l.Add("a", 1), test.ShouldBeNil)
		err := l.Add("a", 2)
		test.That(t, errors.Is(err, ErrDuplicateKey), test.ShouldBeTrue)
		v, _ := l.Get("a")
		test.That(t, v, test.ShouldEqual, 1)
		test.That(t, l.Len(), test.ShouldEqual, 1)
	})

	t.Run("overwrite keeps position", func(t *testing.T) {
		l := NewIndexedList[string, int](0, OverwriteDuplicates)
		test.That(t, l.Add("a", 1), test.ShouldBeNil)
		test.That(t, l.Add("b", 2), test.ShouldBeNil)
		test.That(t, l.Add("a", 3), test.ShouldBeNil)
		keys, values := collect(l)
		test.That(t, keys, test.ShouldResemble, []string{"a", "b"})
		test.That(t, values, test.ShouldResemble, []int{3, 2})
	})
}

func TestIndexedListEviction(t *testing.T) {
	l := NewIndexedList[uint32, string](3, RejectDuplicates)
	for _, k := range []uint32{1, 2, 3} {
		_, evicted, err := l.AddWithEviction(k, "v")
		test.That(t, err, test.ShouldBeNil)
		test.That(t, evicted, test.ShouldBeFalse)
	}

	key, evicted, err := l.AddWithEviction(4, "v")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, evicted, test.ShouldBeTrue)
	test.That(t, key, test.ShouldEqual, 1)
	test.That(t, l.Contains(1), test.ShouldBeFalse)
	test.That(t, l.Keys(), test.ShouldResemble, []uint32{2, 3, 4})

	oldest, _, ok := l.Oldest()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, oldest, test.ShouldEqual, 2)
	newest, _, ok := l.Newest()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, newest, test.ShouldEqual, 4)

	t.Run("rejected duplicate does not evict", func(t *testing.T) {
		err := l.Add(3, "again")
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, l.Keys(), test.ShouldResemble, []uint32{2, 3, 4})
	})
}

func TestIndexedListEmpty(t *testing.T) {
	l := NewIndexedList[int, int](-5, RejectDuplicates)
	test.That(t, l.Capacity(), test.ShouldEqual, 0)
	_, _, ok := l.Oldest()
	test.That(t, ok, test.ShouldBeFalse)
	_, _, ok = l.Newest()
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, l.Keys(), test.ShouldBeEmpty)
}
