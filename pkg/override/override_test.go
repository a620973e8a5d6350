package override

import (
	"sync"
	"testing"
)

func TestSetGet(t *testing.T) {
	r := NewRegister()
	if got := r.Get(); got.Enabled || got.Code != 0 {
		t.Errorf("zero register = %+v", got)
	}
	r.Set(true, 300)
	if got := r.Get(); !got.Enabled || got.Code != 300 {
		t.Errorf("after Set = %+v", got)
	}
	r.Set(false, 0)
	if got := r.Get(); got.Enabled {
		t.Errorf("after disable = %+v", got)
	}
}

func TestSnapshotConsistencyUnderConcurrency(t *testing.T) {
	r := NewRegister()
	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			// Writers only ever publish matched pairs
			if i%2 == 0 {
				r.Set(true, 512)
			} else {
				r.Set(false, 0)
			}
		}
	}()

	for i := 0; i < 10000; i++ {
		s := r.Get()
		if s.Enabled && s.Code != 512 {
			t.Fatalf("torn read: %+v", s)
		}
		if !s.Enabled && s.Code != 0 {
			t.Fatalf("torn read: %+v", s)
		}
	}
	close(stop)
	wg.Wait()
}
