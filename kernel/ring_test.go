package kernel

import (
	"runtime"
	"sync"
	"testing"
)

func TestRingTryPopEmpty(t *testing.T) {
	r := NewRing[int](4)
	if _, ok := r.TryPop(); ok {
		t.Fatalf("TryPop() ok = true, want false")
	}
}

func TestRingTryPushFull(t *testing.T) {
	r := NewRing[int](3)
	if r.Cap() != 4 {
		t.Fatalf("Cap() = %d, want 4", r.Cap())
	}
	for i := 0; i < r.Cap(); i++ {
		if ok := r.TryPush(i); !ok {
			t.Fatalf("TryPush() ok = false at slot %d, want true", i)
		}
	}
	if ok := r.TryPush(99); ok {
		t.Fatalf("TryPush() ok = true when full, want false")
	}
	for i := 0; i < r.Cap(); i++ {
		v, ok := r.TryPop()
		if !ok || v != i {
			t.Fatalf("TryPop() = %d, %v, want %d, true", v, ok, i)
		}
	}
	if r.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", r.Len())
	}
}

func TestRingConcurrentProducers(t *testing.T) {
	oldProcs := runtime.GOMAXPROCS(1)
	defer runtime.GOMAXPROCS(oldProcs)

	const (
		producers = 4
		perProd   = 10_000
		total     = producers * perProd
	)

	r := NewRing[uint32](8)

	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(producers)
	for producerID := 0; producerID < producers; producerID++ {
		go func(producerID int) {
			defer wg.Done()
			<-start
			for i := 0; i < perProd; i++ {
				r.Push(uint32(producerID*perProd + i))
			}
		}(producerID)
	}
	close(start)

	seen := make([]bool, total)
	for got := 0; got < total; {
		v, ok := r.TryPop()
		if !ok {
			runtime.Gosched()
			continue
		}
		if seen[v] {
			t.Fatalf("value %d received twice", v)
		}
		seen[v] = true
		got++
	}
	wg.Wait()
}

func TestRingDrain(t *testing.T) {
	r := NewRing[byte](16)
	for _, b := range []byte("ok\n") {
		r.Push(b)
	}
	var out []byte
	if n := r.Drain(func(b byte) { out = append(out, b) }); n != 3 {
		t.Fatalf("Drain() = %d, want 3", n)
	}
	if string(out) != "ok\n" {
		t.Fatalf("drained %q, want %q", out, "ok\n")
	}
}
