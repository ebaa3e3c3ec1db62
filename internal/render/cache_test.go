package render

import (
	"sync"
	"testing"
)

func TestCacheKey(t *testing.T) {
	opts1 := DefaultOptions()
	opts2 := DefaultOptions().WithWidth(100)
	opts3 := DefaultOptions().WithStyle("light")

	if cacheKey(opts1) == cacheKey(opts2) {
		t.Error("Different widths should produce different keys")
	}
	if cacheKey(opts1) == cacheKey(opts3) {
		t.Error("Different styles should produce different keys")
	}
	if cacheKey(opts1) != cacheKey(DefaultOptions()) {
		t.Error("Same options should produce same key")
	}
}

func TestPoolGetAndPut(t *testing.T) {
	ClearCache()
	defer ClearCache()

	opts := DefaultOptions()

	renderer, err := globalPool.get(opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if renderer == nil {
		t.Fatal("expected non-nil renderer")
	}
	if CacheSize() != 1 {
		t.Errorf("expected pool count 1, got %d", CacheSize())
	}
	globalPool.put(opts, renderer)

	if _, err := globalPool.get(opts.WithWidth(40)); err != nil {
		t.Fatal(err)
	}
	if CacheSize() != 2 {
		t.Errorf("expected pool count 2, got %d", CacheSize())
	}
}

func TestConcurrentRender(t *testing.T) {
	ClearCache()
	defer ClearCache()

	opts := DefaultOptions().WithStyle("notty")
	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := Markdown("**concurrent** render", opts); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("render error: %v", err)
	}
}

func TestIsStandardStyle(t *testing.T) {
	if !IsStandardStyle("dark") || !IsStandardStyle("notty") {
		t.Error("expected bundled styles")
	}
	if IsStandardStyle("/tmp/custom.json") {
		t.Error("paths are not standard styles")
	}
}
