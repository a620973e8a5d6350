package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/skohler/chamber-pi/pkg/arbiter"
	"github.com/skohler/chamber-pi/pkg/control"
	"github.com/skohler/chamber-pi/pkg/override"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "chamber.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func snapAt(ts time.Time, lux float64, code int) control.Snapshot {
	return control.Snapshot{
		Time:    ts,
		Raw:     lux,
		Command: arbiter.Command{Code: code, Source: arbiter.SourceAutomaticLux},
	}
}

func TestAppendAndRange(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if err := s.Append(snapAt(base.Add(time.Duration(i)*time.Second), float64(100+i), i)); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Range(base, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 5 {
		t.Fatalf("Range returned %d readings, want 5", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Time.Before(got[i-1].Time) {
			t.Error("Range results not in arrival order")
		}
	}

	// Limit keeps the most recent entries
	got, err = s.Range(base, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Raw != 103 || got[1].Raw != 104 {
		t.Errorf("limited Range = %+v, want the two newest", got)
	}

	// Since excludes older entries
	got, _ = s.Range(base.Add(3*time.Second), 0)
	if len(got) != 2 {
		t.Errorf("since-filtered Range returned %d, want 2", len(got))
	}
}

func TestLatest(t *testing.T) {
	s := openTestStore(t)
	if snap, err := s.Latest(); err != nil || snap != nil {
		t.Errorf("Latest on empty store = %v, %v", snap, err)
	}
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.Append(snapAt(base, 100, 1))
	s.Append(snapAt(base.Add(time.Minute), 200, 2))
	snap, err := s.Latest()
	if err != nil {
		t.Fatal(err)
	}
	if snap == nil || snap.Raw != 200 {
		t.Errorf("Latest = %+v, want raw 200", snap)
	}
}

func TestStats(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.Append(snapAt(base, 100, 100))
	s.Append(snapAt(base.Add(time.Second), 200, 300))
	s.Append(snapAt(base.Add(2*time.Second), 300, 200))

	st, err := s.Stats(base)
	if err != nil {
		t.Fatal(err)
	}
	if st.Count != 3 {
		t.Errorf("count = %d, want 3", st.Count)
	}
	if st.AvgLux != 200 || st.MinLux != 100 || st.MaxLux != 300 {
		t.Errorf("lux stats = %+v", st)
	}
	if st.AvgPWM != 200 {
		t.Errorf("avg pwm = %v, want 200", st.AvgPWM)
	}

	empty, err := s.Stats(base.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if empty.Count != 0 {
		t.Errorf("empty stats count = %d", empty.Count)
	}
}

func TestCleanup(t *testing.T) {
	s := openTestStore(t)
	old := time.Now().Add(-48 * time.Hour)
	s.Append(snapAt(old, 100, 1))
	s.Append(snapAt(time.Now(), 200, 2))

	removed, err := s.Cleanup(24 * time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	got, _ := s.Range(time.Time{}, 0)
	if len(got) != 1 || got[0].Raw != 200 {
		t.Errorf("remaining = %+v", got)
	}
}

func TestOverridePersistence(t *testing.T) {
	s := openTestStore(t)
	st, err := s.LoadOverride()
	if err != nil {
		t.Fatal(err)
	}
	if st.Enabled || st.Code != 0 {
		t.Errorf("default override = %+v", st)
	}

	if err := s.SaveOverride(override.State{Enabled: true, Code: 512}); err != nil {
		t.Fatal(err)
	}
	st, err = s.LoadOverride()
	if err != nil {
		t.Fatal(err)
	}
	if !st.Enabled || st.Code != 512 {
		t.Errorf("loaded override = %+v", st)
	}
}
