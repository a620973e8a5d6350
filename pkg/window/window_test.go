package window

import "testing"

func TestNewRejectsInvalidCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1, -600} {
		if _, err := New(capacity); err == nil {
			t.Errorf("New(%d) should fail", capacity)
		}
	}
}

func TestPushEviction(t *testing.T) {
	w, err := New(3)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 5; i++ {
		w.Push(float64(i) * 10)
	}
	got := w.Snapshot()
	want := []float64{30, 40, 50}
	if len(got) != len(want) {
		t.Fatalf("snapshot length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("snapshot[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestFullOnlyAfterEvictionBegins(t *testing.T) {
	w, _ := New(4)
	for i := 0; i < 3; i++ {
		if w.Full() {
			t.Fatalf("window reported full after %d pushes", i)
		}
		w.Push(float64(i))
	}
	w.Push(3)
	if !w.Full() {
		t.Error("window should be full after capacity pushes")
	}
	w.Push(4)
	if !w.Full() {
		t.Error("window should stay full once eviction begins")
	}
	if w.Len() != 4 {
		t.Errorf("Len = %d, want 4", w.Len())
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	w, _ := New(2)
	w.Push(1)
	w.Push(2)
	snap := w.Snapshot()
	w.Push(3)
	if snap[0] != 1 || snap[1] != 2 {
		t.Errorf("snapshot mutated by later push: %v", snap)
	}
}

func TestSnapshotOrderWhilePartial(t *testing.T) {
	w, _ := New(10)
	w.Push(5)
	w.Push(7)
	got := w.Snapshot()
	if len(got) != 2 || got[0] != 5 || got[1] != 7 {
		t.Errorf("partial snapshot = %v, want [5 7]", got)
	}
}
