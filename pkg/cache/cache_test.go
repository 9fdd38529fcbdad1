package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint("fetch_quality_data", "catalog", "schema", "patients")
	b := Fingerprint("fetch_quality_data", "catalog", "schema", "patients")
	if a != b {
		t.Fatalf("same inputs produced different fingerprints: %q vs %q", a, b)
	}
	if a == Fingerprint("fetch_duplicate_data", "catalog", "schema", "patients") {
		t.Fatal("different operations produced the same fingerprint")
	}
}

func TestGetOrComputeCachesValue(t *testing.T) {
	c := New(time.Minute)
	calls := 0

	for i := 0; i < 3; i++ {
		v, err := c.GetOrCompute(context.Background(), "fp", func(ctx context.Context) (interface{}, error) {
			calls++
			return "result", nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v.(string) != "result" {
			t.Fatalf("unexpected value: %v", v)
		}
	}

	if calls != 1 {
		t.Fatalf("expected 1 compute call, got %d", calls)
	}
}

func TestConcurrentComputeRunsOnce(t *testing.T) {
	c := New(time.Minute)
	var calls atomic.Int32

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			v, err := c.GetOrCompute(context.Background(), "fp", func(ctx context.Context) (interface{}, error) {
				calls.Add(1)
				time.Sleep(20 * time.Millisecond)
				return 42, nil
			})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if v.(int) != 42 {
				t.Errorf("unexpected value: %v", v)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected exactly one compute call, got %d", got)
	}
}

func TestExpiredEntryNeverReturned(t *testing.T) {
	c := New(time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	calls := 0
	compute := func(ctx context.Context) (interface{}, error) {
		calls++
		return calls, nil
	}

	if _, err := c.GetOrComputeTTL(context.Background(), "fp", 30*time.Second, compute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now = now.Add(31 * time.Second)
	v, err := c.GetOrComputeTTL(context.Background(), "fp", 30*time.Second, compute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.(int) != 2 {
		t.Fatalf("expected recompute after expiry, got cached value %v", v)
	}
}

func TestFailedComputeDoesNotPoisonCache(t *testing.T) {
	c := New(time.Minute)
	boom := errors.New("warehouse unreachable")

	_, err := c.GetOrCompute(context.Background(), "fp", func(ctx context.Context) (interface{}, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected compute error to propagate, got %v", err)
	}

	v, err := c.GetOrCompute(context.Background(), "fp", func(ctx context.Context) (interface{}, error) {
		return "fresh", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.(string) != "fresh" {
		t.Fatalf("expected fresh computation after failure, got %v", v)
	}
}

func TestFailedComputeLeavesExpiredEntryUntouched(t *testing.T) {
	c := New(time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	if _, err := c.GetOrComputeTTL(context.Background(), "fp", time.Second, func(ctx context.Context) (interface{}, error) {
		return "old", nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now = now.Add(2 * time.Second)
	_, err := c.GetOrComputeTTL(context.Background(), "fp", time.Second, func(ctx context.Context) (interface{}, error) {
		return nil, errors.New("oracle down")
	})
	if err == nil {
		t.Fatal("expected error from failed compute")
	}

	c.mu.RLock()
	e, ok := c.entries["fp"]
	c.mu.RUnlock()
	if !ok || e.value.(string) != "old" {
		t.Fatalf("expected stale entry to survive failed compute, got %v (present=%v)", e.value, ok)
	}
}

func TestInvalidateAll(t *testing.T) {
	c := New(time.Minute)
	calls := 0
	compute := func(ctx context.Context) (interface{}, error) {
		calls++
		return calls, nil
	}

	for _, fp := range []string{"a", "b"} {
		if _, err := c.GetOrCompute(context.Background(), fp, compute); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	c.InvalidateAll()

	for _, fp := range []string{"a", "b"} {
		if _, err := c.GetOrCompute(context.Background(), fp, compute); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if calls != 4 {
		t.Fatalf("expected every key to miss after InvalidateAll, got %d compute calls", calls)
	}
}

func TestInvalidateSingleKey(t *testing.T) {
	c := New(time.Minute)
	calls := map[string]int{}
	compute := func(fp string) ComputeFunc {
		return func(ctx context.Context) (interface{}, error) {
			calls[fp]++
			return calls[fp], nil
		}
	}

	c.GetOrCompute(context.Background(), "a", compute("a"))
	c.GetOrCompute(context.Background(), "b", compute("b"))

	c.Invalidate("a")

	c.GetOrCompute(context.Background(), "a", compute("a"))
	c.GetOrCompute(context.Background(), "b", compute("b"))

	if calls["a"] != 2 {
		t.Fatalf("expected invalidated key to recompute, got %d calls", calls["a"])
	}
	if calls["b"] != 1 {
		t.Fatalf("expected untouched key to stay cached, got %d calls", calls["b"])
	}
}
