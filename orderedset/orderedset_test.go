package orderedset

import (
	"reflect"
	"testing"
)

func checkOrder(t *testing.T, s *Set[int], expected []int) {
	t.Helper()
	got := s.Values()
	if len(expected) == 0 && len(got) == 0 {
		return
	}
	if !reflect.DeepEqual(got, expected) {
		t.Fatalf("expected order %v, got %v\n", expected, got)
	}
	rev := s.Reverse()
	for i := range rev {
		if rev[i] != expected[len(expected)-1-i] {
			t.Fatalf("reverse iteration %v doesn't mirror %v\n", rev, expected)
		}
	}
	if s.Len() != len(expected) {
		t.Fatalf("expected length %d, got %d\n", len(expected), s.Len())
	}
}

func TestAppendErase(t *testing.T) {
	s := New[int]()
	for _, v := range []int{4, 1, 9} {
		if err := s.Append(v); err != nil {
			t.Fatalf("unable to append %d: %v\n", v, err)
		}
	}
	checkOrder(t, s, []int{4, 1, 9})

	if err := s.Append(1); err == nil {
		t.Fatalf("expected error on duplicate append\n")
	}

	// append then erase restores prior sequence
	if err := s.Append(7); err != nil {
		t.Fatal(err)
	}
	s.Erase(7)
	checkOrder(t, s, []int{4, 1, 9})

	s.Erase(42)
	checkOrder(t, s, []int{4, 1, 9})

	s.Erase(4)
	checkOrder(t, s, []int{1, 9})
	s.Erase(9)
	checkOrder(t, s, []int{1})
	s.Erase(1)
	checkOrder(t, s, nil)
	if _, ok := s.Front(); ok {
		t.Fatalf("expected empty set to have no front\n")
	}
	if _, ok := s.Back(); ok {
		t.Fatalf("expected empty set to have no back\n")
	}
}

func TestReplace(t *testing.T) {
	s := New[int]()
	for _, v := range []int{1, 2, 3} {
		s.Append(v)
	}
	if err := s.Replace(2, 20); err != nil {
		t.Fatal(err)
	}
	checkOrder(t, s, []int{1, 20, 3})
	if s.Contains(2) || !s.Contains(20) {
		t.Fatalf("replace didn't update membership\n")
	}

	if err := s.Replace(1, 10); err != nil {
		t.Fatal(err)
	}
	if front, _ := s.Front(); front != 10 {
		t.Fatalf("expected front 10 after replace, got %d\n", front)
	}

	// absent old value is a no-op
	if err := s.Replace(99, 100); err != nil {
		t.Fatal(err)
	}
	checkOrder(t, s, []int{10, 20, 3})

	if err := s.Replace(10, 3); err == nil {
		t.Fatalf("expected error when replacing with a value already present\n")
	}
	checkOrder(t, s, []int{10, 20, 3})
}

func TestPopBackAndClear(t *testing.T) {
	s := New[string]()
	s.Append("a")
	s.Append("b")
	if v, ok := s.PopBack(); !ok || v != "b" {
		t.Fatalf("expected to pop b, got %q (%t)\n", v, ok)
	}
	if back, _ := s.Back(); back != "a" {
		t.Fatalf("expected back a, got %q\n", back)
	}
	s.Clear()
	if s.Len() != 0 || s.Contains("a") {
		t.Fatalf("clear left values behind\n")
	}
	if err := s.Append("a"); err != nil {
		t.Fatalf("unable to reuse cleared set: %v\n", err)
	}
}

func TestEachStops(t *testing.T) {
	s := New[int]()
	for i := 0; i < 10; i++ {
		s.Append(i)
	}
	var seen []int
	s.Each(func(v int) bool {
		seen = append(seen, v)
		return v < 3
	})
	if !reflect.DeepEqual(seen, []int{0, 1, 2, 3}) {
		t.Fatalf("unexpected iteration: %v\n", seen)
	}
}
