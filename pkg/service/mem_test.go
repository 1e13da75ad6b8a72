//go:build test

package service

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"sync"
	"testing"
)

var memQueries = []string{
	"Дурова 4", "ул. Дурова, д. 11", "дурова", "Ленина 10", "ул Ленина", "Советский пр-т 1",
	"Москва, Советский проспект, 1", "улица Дурова 4к2", "пр-т Советский", "Леннина",
}

func TestMemoryLeakBasic(t *testing.T) {
	for _, iterations := range []int{100, 500, 2500} {
		t.Run(fmt.Sprintf("iterations_%d", iterations), func(t *testing.T) {
			runMemoryTest(t, 1, iterations)
		})
	}
}

func TestMemoryLeakConcurrent(t *testing.T) {
	configs := []struct {
		workers             int
		iterationsPerWorker int
	}{
		{workers: 2, iterationsPerWorker: 500},
		{workers: 4, iterationsPerWorker: 250},
		{workers: 8, iterationsPerWorker: 125},
	}
	for _, c := range configs {
		t.Run(fmt.Sprintf("workers_%d_iter_%d", c.workers, c.iterationsPerWorker), func(t *testing.T) {
			runMemoryTest(t, c.workers, c.iterationsPerWorker)
		})
	}
}

func runMemoryTest(t *testing.T, workers, iterationsPerWorker int) {
	svc := newService(t, seed(), "levenshtein")
	if err := svc.Warm(context.Background()); err != nil {
		t.Fatalf("index build failed: %v", err)
	}

	var baseline runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&baseline)
	baselineGoroutines := runtime.NumGoroutine()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < iterationsPerWorker; i++ {
				for _, q := range memQueries {
					if _, err := svc.Search(context.Background(), q, 3); err != nil {
						t.Errorf("search %q: %v", q, err)
						return
					}
				}
			}
		}()
	}
	wg.Wait()

	var final runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&final)

	totalOps := workers * iterationsPerWorker * len(memQueries)
	memDelta := int64(final.Alloc) - int64(baseline.Alloc)
	memPerOp := float64(memDelta) / float64(totalOps)
	goroutineDelta := runtime.NumGoroutine() - baselineGoroutines

	t.Logf("workers=%d ops=%d mem_delta=%d bytes mem_per_op=%.2f goroutine_delta=%d",
		workers, totalOps, memDelta, memPerOp, goroutineDelta)

	if os.Getenv("ADDRSERVE_HEAP_PROFILE") != "" {
		f, err := os.Create(fmt.Sprintf("heap_w%d.prof", workers))
		if err == nil {
			pprof.WriteHeapProfile(f)
			f.Close()
		}
	}

	if memPerOp > 1000 {
		t.Errorf("excessive memory retained per search: %.2f bytes", memPerOp)
	}
	if goroutineDelta > 2 {
		t.Errorf("goroutine leak detected: %d goroutines leaked", goroutineDelta)
	}
}
