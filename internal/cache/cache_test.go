package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mandir/internal/core"
)

func TestLRUCache_EvictsOldest(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // a is now most recent
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("a = %v, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Errorf("Size = %d", c.Size())
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("x", "1")
	c.Set("y", "2")
	now = now.Add(2 * time.Minute)
	c.Set("z", "3")

	if n := c.CleanExpired(); n != 2 {
		t.Fatalf("CleanExpired removed %d, want 2", n)
	}
	if _, ok := c.Get("z"); !ok {
		t.Error("z should still be cached")
	}
	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("z"); ok {
		t.Error("z should have expired")
	}

	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 || st.Size != 0 {
		t.Errorf("Stats = %+v", st)
	}
}

func TestLRUCache_Purge(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	c.Purge()
	if c.Size() != 0 {
		t.Fatalf("Size after purge = %d", c.Size())
	}
	c.Set("c", 3)
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Fatal("cache unusable after purge")
	}
}

type countingLoader struct {
	calls   atomic.Int32
	started chan struct{}
	gate    chan struct{}
	onLoad  func()
	err     error
}

func (l *countingLoader) Aggregate(ctx context.Context, q core.CollectionQuery) (core.CollectionSummary, error) {
	l.calls.Add(1)
	if l.started != nil {
		l.started <- struct{}{}
	}
	if l.gate != nil {
		<-l.gate
	}
	if l.onLoad != nil {
		l.onLoad()
	}
	if err := ctx.Err(); err != nil {
		return core.CollectionSummary{}, err
	}
	if l.err != nil {
		return core.CollectionSummary{}, l.err
	}
	return core.CollectionSummary{Query: q, OverallTotal: core.Money{Cents: 5100}}, nil
}

func query() core.CollectionQuery {
	return core.CollectionQuery{Start: core.NewDate(2024, 1, 1), End: core.NewDate(2024, 1, 31), GroupBy: core.GroupByOccurrenceDate}
}

func TestSummaryCache_HitAndInvalidate(t *testing.T) {
	loader := &countingLoader{}
	c := NewSummaryCache(loader, 8, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		s, err := c.Aggregate(ctx, query())
		if err != nil || s.OverallTotal.Cents != 5100 {
			t.Fatalf("Aggregate = %+v, %v", s, err)
		}
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("loader called %d times, want 1", loader.calls.Load())
	}

	c.Invalidate()
	if _, err := c.Aggregate(ctx, query()); err != nil {
		t.Fatal(err)
	}
	if loader.calls.Load() != 2 {
		t.Fatalf("loader called %d times after invalidate, want 2", loader.calls.Load())
	}
}

func TestSummaryCache_ErrorsAreNotCached(t *testing.T) {
	loader := &countingLoader{err: core.ErrStoreFailure}
	c := NewSummaryCache(loader, 8, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := c.Aggregate(context.Background(), query()); !errors.Is(err, core.ErrStoreFailure) {
			t.Fatalf("err = %v", err)
		}
	}
	if loader.calls.Load() != 2 {
		t.Fatalf("loader called %d times, want 2", loader.calls.Load())
	}
}

func TestSummaryCache_ConcurrentMissesShareLoad(t *testing.T) {
	loader := &countingLoader{gate: make(chan struct{})}
	c := NewSummaryCache(loader, 8, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Aggregate(context.Background(), query()); err != nil {
				t.Error(err)
			}
		}()
	}
	// Let the goroutines pile up on the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(loader.gate)
	wg.Wait()

	if n := loader.calls.Load(); n < 1 || n > 5 {
		t.Fatalf("loader calls = %d", n)
	}
	if c.Stats().Size != 1 {
		t.Fatalf("Stats = %+v", c.Stats())
	}
}

func TestSummaryCache_InvalidateDuringLoadIsNotServed(t *testing.T) {
	loader := &countingLoader{}
	c := NewSummaryCache(loader, 8, time.Minute)
	loader.onLoad = func() {
		loader.onLoad = nil
		c.Invalidate()
	}
	ctx := context.Background()

	if _, err := c.Aggregate(ctx, query()); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Aggregate(ctx, query()); err != nil {
		t.Fatal(err)
	}
	if n := loader.calls.Load(); n != 2 {
		t.Fatalf("loader called %d times, want 2", n)
	}
	if _, err := c.Aggregate(ctx, query()); err != nil {
		t.Fatal(err)
	}
	if n := loader.calls.Load(); n != 2 {
		t.Fatalf("loader called %d times after reload, want 2", n)
	}
}

func TestSummaryCache_CancelledCallerDoesNotFailOthers(t *testing.T) {
	loader := &countingLoader{started: make(chan struct{}, 1), gate: make(chan struct{})}
	c := NewSummaryCache(loader, 8, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := c.Aggregate(ctx, query())
		first <- err
	}()
	<-loader.started

	second := make(chan error, 1)
	go func() {
		s, err := c.Aggregate(context.Background(), query())
		if err == nil && s.OverallTotal.Cents != 5100 {
			err = errors.New("unexpected summary")
		}
		second <- err
	}()

	cancel()
	if err := <-first; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller err = %v", err)
	}
	close(loader.gate)
	if err := <-second; err != nil {
		t.Fatalf("waiting caller err = %v", err)
	}
	if n := loader.calls.Load(); n != 1 {
		t.Fatalf("loader called %d times, want 1", n)
	}
}
