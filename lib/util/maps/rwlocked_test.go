package maps

import (
	"testing"
)

func TestRWLocked_ZeroValue(t *testing.T) {
	var m RWLocked[string, int]

	if _, ok := m.Load("a"); ok {
		t.Error("empty map should load nothing")
	}
	if n := m.Len(); n != 0 {
		t.Errorf("expected 0, got %d", n)
	}

	m.Store("a", 1)
	if v, ok := m.Load("a"); !ok || v != 1 {
		t.Errorf("expected 1, got %d (%v)", v, ok)
	}
}

func TestRWLocked_LoadOrStore(t *testing.T) {
	var m RWLocked[string, int]

	if actual, loaded := m.LoadOrStore("a", 1); loaded || actual != 1 {
		t.Errorf("expected a fresh store of 1, got %d (%v)", actual, loaded)
	}
	if actual, loaded := m.LoadOrStore("a", 2); !loaded || actual != 1 {
		t.Errorf("expected the stored 1, got %d (%v)", actual, loaded)
	}
}

func TestRWLocked_LoadAndDelete(t *testing.T) {
	var m RWLocked[string, int]
	m.Store("a", 1)

	if v, loaded := m.LoadAndDelete("a"); !loaded || v != 1 {
		t.Errorf("expected 1, got %d (%v)", v, loaded)
	}
	if _, loaded := m.LoadAndDelete("a"); loaded {
		t.Error("second delete should load nothing")
	}
}

func TestRWLocked_Update(t *testing.T) {
	var m RWLocked[string, int]

	stored := m.Update("a", func(value int, ok bool) (int, bool) {
		if ok {
			t.Error("expected no current value")
		}
		return 1, true
	})
	if !stored {
		t.Fatal("expected the update to store")
	}

	stored = m.Update("a", func(value int, ok bool) (int, bool) {
		if !ok || value != 1 {
			t.Errorf("expected the stored 1, got %d (%v)", value, ok)
		}
		return 0, false
	})
	if stored {
		t.Fatal("a declined update must not store")
	}
	if v, _ := m.Load("a"); v != 1 {
		t.Errorf("expected 1 to survive, got %d", v)
	}
}

func TestRWLocked_Range(t *testing.T) {
	var m RWLocked[string, int]
	m.Store("a", 1)
	m.Store("b", 2)

	seen := make(map[string]int)
	if done := m.Range(func(key string, value int) bool {
		seen[key] = value
		return true
	}); !done {
		t.Error("expected the full range to complete")
	}
	if len(seen) != 2 || seen["a"] != 1 || seen["b"] != 2 {
		t.Errorf("unexpected range contents %v", seen)
	}

	var visits int
	if done := m.Range(func(string, int) bool {
		visits++
		return false
	}); done {
		t.Error("expected an early stop to report false")
	}
	if visits != 1 {
		t.Errorf("expected one visit, got %d", visits)
	}
}
