package toolmgr

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestInflightTrackerCounts(t *testing.T) {
	t.Parallel()

	tr := newInflightTracker()
	if tr.count() != 0 {
		t.Fatalf("count() = %d, expected 0", tr.count())
	}

	release1 := tr.register("get_weather", "alpha", "corr-1")
	release2 := tr.register("search", "beta", "corr-2")
	if tr.count() != 2 {
		t.Fatalf("count() = %d, expected 2", tr.count())
	}

	release1()
	if tr.count() != 1 {
		t.Fatalf("count() = %d, expected 1", tr.count())
	}
	release2()
	if tr.count() != 0 {
		t.Fatalf("count() = %d, expected 0", tr.count())
	}
}

func TestDrainReturnsImmediatelyWhenIdle(t *testing.T) {
	t.Parallel()

	tr := newInflightTracker()
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	if err := tr.drain(ctx); err != nil {
		t.Fatalf("drain(idle) = %v, expected nil", err)
	}
}

func TestDrainWaitsForLastRelease(t *testing.T) {
	t.Parallel()

	tr := newInflightTracker()
	release := tr.register("get_weather", "alpha", "")

	go func() {
		time.Sleep(20 * time.Millisecond)
		release()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	start := time.Now()
	if err := tr.drain(ctx); err != nil {
		t.Fatalf("drain() = %v, expected nil after release", err)
	}
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Fatalf("drain() returned after %v, before the call released", elapsed)
	}
	if tr.count() != 0 {
		t.Fatalf("count() = %d after drain, expected 0", tr.count())
	}
}

func TestDrainHonorsDeadline(t *testing.T) {
	t.Parallel()

	tr := newInflightTracker()
	release := tr.register("get_weather", "alpha", "")
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := tr.drain(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("drain() = %v, expected deadline exceeded", err)
	}
}

func TestDrainWakesEveryWaiter(t *testing.T) {
	t.Parallel()

	tr := newInflightTracker()
	release := tr.register("get_weather", "alpha", "")

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			errs <- tr.drain(ctx)
		}()
	}

	time.Sleep(10 * time.Millisecond)
	release()

	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("drain() = %v, expected nil", err)
		}
	}
}
