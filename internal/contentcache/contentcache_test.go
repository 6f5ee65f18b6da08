package contentcache

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

func TestGetCachesAfterFirstFetch(t *testing.T) {
	dir := t.TempDir()
	var fetches int32
	c, err := New(dir, 2, func(path, rev string) ([]byte, error) {
		atomic.AddInt32(&fetches, 1)
		return []byte(fmt.Sprintf("%s@%s", path, rev)), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	p1, err := c.Get("src/main.c", "1.2")
	if err != nil {
		t.Fatal(err)
	}
	p2, err := c.Get("src/main.c", "1.2")
	if err != nil {
		t.Fatal(err)
	}
	if p1 != p2 {
		t.Fatalf("expected stable cache path, got %s then %s", p1, p2)
	}
	if atomic.LoadInt32(&fetches) != 1 {
		t.Fatalf("expected exactly 1 fetch, got %d", fetches)
	}
}

func TestGetConcurrentSameKey(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, 4, func(path, rev string) ([]byte, error) {
		return []byte("content"), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	var wg sync.WaitGroup
	paths := make([]string, 8)
	for i := 0; i < 8; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := c.Get("f", "1.1")
			if err != nil {
				t.Error(err)
				return
			}
			paths[i] = p
		}()
	}
	wg.Wait()
	for _, p := range paths {
		if p != paths[0] {
			t.Fatalf("expected every caller to observe the same path, got %v", paths)
		}
	}
}
