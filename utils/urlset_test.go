package utils

import (
	"fmt"
	"sync"
	"testing"
)

func TestURLSetAdd(t *testing.T) {
	s := NewURLSet()

	if !s.Add("https://x.cl/MLC-1") {
		t.Error("first add should report new")
	}
	if s.Add("https://x.cl/MLC-1") {
		t.Error("second add should report duplicate")
	}
	if !s.Contains("https://x.cl/MLC-1") {
		t.Error("added URL not found")
	}
	if s.Contains("https://x.cl/MLC-2") {
		t.Error("unknown URL reported present")
	}
	if s.Size() != 1 {
		t.Errorf("size: got %d, want 1", s.Size())
	}
}

func TestURLSetConcurrentAdd(t *testing.T) {
	s := NewURLSet()
	var wg sync.WaitGroup
	var mu sync.Mutex
	newCount := 0

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if s.Add(fmt.Sprintf("https://x.cl/MLC-%d", i)) {
					mu.Lock()
					newCount++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	if s.Size() != 100 {
		t.Errorf("size: got %d, want 100", s.Size())
	}
	if newCount != 100 {
		t.Errorf("new adds: got %d, want exactly 100", newCount)
	}
}
