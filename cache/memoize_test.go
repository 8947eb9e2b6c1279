package cache

import (
	"errors"
	"testing"
	"time"
)

func TestMemoize_CachesProducerResult(t *testing.T) {
	c, _ := newTestCache(t, testConfig(t), nil)

	calls := 0
	wrapped := c.Memoize(MemoizeOptions{Bucket: BucketCommon}, func(args Args) (any, error) {
		calls++
		return "computed-" + args.Positional[0].(string), nil
	})

	args := Args{Positional: []any{"id-1"}}
	first, err := wrapped(args)
	if err != nil {
		t.Fatalf("First call failed: %v", err)
	}
	if first != "computed-id-1" {
		t.Errorf("First call result mismatch: got %v", first)
	}

	second, err := wrapped(args)
	if err != nil {
		t.Fatalf("Second call failed: %v", err)
	}
	if second != first {
		t.Errorf("Second call result mismatch: got %v, want %v", second, first)
	}
	if calls != 1 {
		t.Errorf("Producer invoked %d times, want 1", calls)
	}

	// A different identifier recomputes.
	if _, err := wrapped(Args{Positional: []any{"id-2"}}); err != nil {
		t.Fatalf("Call with new identifier failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("Producer invoked %d times, want 2", calls)
	}
}

func TestMemoize_RecomputesAfterExpiry(t *testing.T) {
	c, clock := newTestCache(t, testConfig(t), nil)

	calls := 0
	wrapped := c.Memoize(MemoizeOptions{Bucket: BucketCommon, TTL: 5 * time.Second},
		func(Args) (any, error) {
			calls++
			return calls, nil
		})

	args := Args{Positional: []any{"id"}}
	if _, err := wrapped(args); err != nil {
		t.Fatalf("First call failed: %v", err)
	}

	clock.Advance(6 * time.Second)
	got, err := wrapped(args)
	if err != nil {
		t.Fatalf("Call after expiry failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("Producer invoked %d times, want 2", calls)
	}
	if got != 2 {
		t.Errorf("Expected recomputed value 2, got %v", got)
	}
}

func TestMemoize_RecomputesAfterInvalidation(t *testing.T) {
	c, _ := newTestCache(t, testConfig(t), nil)

	calls := 0
	wrapped := c.Memoize(MemoizeOptions{Bucket: BucketCommon}, func(Args) (any, error) {
		calls++
		return calls, nil
	})

	args := Args{Positional: []any{"id"}}
	if _, err := wrapped(args); err != nil {
		t.Fatalf("First call failed: %v", err)
	}
	if err := c.InvalidateEntry(BucketCommon, "id"); err != nil {
		t.Fatalf("InvalidateEntry failed: %v", err)
	}
	if _, err := wrapped(args); err != nil {
		t.Fatalf("Call after invalidation failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("Producer invoked %d times, want 2", calls)
	}
}

func TestMemoize_NamedArgumentWinsOverPositional(t *testing.T) {
	c, _ := newTestCache(t, testConfig(t), nil)

	wrapped := c.Memoize(MemoizeOptions{Bucket: BucketCommon, ArgName: "videoID"},
		func(Args) (any, error) { return "value", nil })

	args := Args{
		Positional: []any{"positional-id"},
		Named:      map[string]any{"videoID": "named-id"},
	}
	if _, err := wrapped(args); err != nil {
		t.Fatalf("Call failed: %v", err)
	}

	if _, err := c.Get(BucketCommon, "named-id"); err != nil {
		t.Errorf("Entry not cached under named identifier: %v", err)
	}
	if _, err := c.Get(BucketCommon, "positional-id"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Entry unexpectedly cached under positional identifier")
	}
}

func TestMemoize_PositionalFallback(t *testing.T) {
	c, _ := newTestCache(t, testConfig(t), nil)

	wrapped := c.Memoize(MemoizeOptions{Bucket: BucketCommon, ArgName: "videoID", ArgIndex: 1},
		func(Args) (any, error) { return "value", nil })

	// No named argument present: the second positional argument is the key.
	if _, err := wrapped(Args{Positional: []any{"ignored", 4711}}); err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if _, err := c.Get(BucketCommon, "4711"); err != nil {
		t.Errorf("Entry not cached under positional identifier: %v", err)
	}
}

func TestMemoize_FixedIdentifier(t *testing.T) {
	c, _ := newTestCache(t, testConfig(t), nil)

	calls := 0
	wrapped := c.Memoize(MemoizeOptions{Bucket: BucketCommon, FixedIdentifier: "profiles"},
		func(Args) (any, error) {
			calls++
			return "profile-list", nil
		})

	// Arguments are irrelevant to the cache key.
	if _, err := wrapped(Args{Positional: []any{"a"}}); err != nil {
		t.Fatalf("First call failed: %v", err)
	}
	if _, err := wrapped(Args{Positional: []any{"b"}}); err != nil {
		t.Fatalf("Second call failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("Producer invoked %d times, want 1", calls)
	}
}

func TestMemoize_IdentifierResolutionError(t *testing.T) {
	c, _ := newTestCache(t, testConfig(t), nil)

	calls := 0
	wrapped := c.Memoize(MemoizeOptions{Bucket: BucketCommon, ArgIndex: 3},
		func(Args) (any, error) {
			calls++
			return "value", nil
		})

	_, err := wrapped(Args{Positional: []any{"only-one"}})
	if !errors.Is(err, ErrNoIdentifier) {
		t.Fatalf("Expected ErrNoIdentifier, got %v", err)
	}
	if calls != 0 {
		t.Errorf("Producer must not run on a configuration error, ran %d times", calls)
	}
}

func TestMemoize_ProducerErrorNotCached(t *testing.T) {
	c, _ := newTestCache(t, testConfig(t), nil)

	boom := errors.New("upstream failure")
	calls := 0
	wrapped := c.Memoize(MemoizeOptions{Bucket: BucketCommon}, func(Args) (any, error) {
		calls++
		if calls == 1 {
			return nil, boom
		}
		return "recovered", nil
	})

	args := Args{Positional: []any{"id"}}
	if _, err := wrapped(args); !errors.Is(err, boom) {
		t.Fatalf("Expected producer error, got %v", err)
	}

	// The failure was not cached; the next call runs the producer again.
	got, err := wrapped(args)
	if err != nil {
		t.Fatalf("Second call failed: %v", err)
	}
	if got != "recovered" || calls != 2 {
		t.Errorf("Expected recomputation after failure, got %v with %d calls", got, calls)
	}
}

func TestInjectCached_PassesCachedValueToProducer(t *testing.T) {
	c, _ := newTestCache(t, testConfig(t), nil)

	var seen []any
	wrapped := c.InjectCached(MemoizeOptions{Bucket: BucketCommon}, "cached",
		func(args Args) (any, error) {
			seen = append(seen, args.Named["cached"])
			return len(seen), nil
		})

	args := Args{Positional: []any{"id"}}
	if _, err := wrapped(args); err != nil {
		t.Fatalf("First call failed: %v", err)
	}
	if _, err := wrapped(args); err != nil {
		t.Fatalf("Second call failed: %v", err)
	}

	if seen[0] != nil {
		t.Errorf("First call should see nil cached value, got %v", seen[0])
	}
	if seen[1] != 1 {
		t.Errorf("Second call should see first result, got %v", seen[1])
	}
}
