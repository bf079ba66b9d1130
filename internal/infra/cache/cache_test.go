package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boddenberg/finbuddy-assistant-go/internal/infra/cache"
)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("key1", "value1")
	val, ok := c.Get("key1")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if val != "value1" {
		t.Errorf("expected 'value1', got '%s'", val)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	_, ok := c.Get("nonexistent")
	if ok {
		t.Fatal("expected cache miss for nonexistent key")
	}
}

func TestCache_Expiration(t *testing.T) {
	c := cache.New[string](50 * time.Millisecond)
	defer c.Close()

	c.Set("key1", "value1")
	time.Sleep(100 * time.Millisecond)

	_, ok := c.Get("key1")
	if ok {
		t.Fatal("expected cache entry to be expired")
	}
}

func TestCache_NoTTLKeepsEntries(t *testing.T) {
	c := cache.New[string](0)

	c.Set("key1", "value1")
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("key1"); !ok {
		t.Fatal("expected entry without TTL to survive")
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("key1", "value1")
	c.Delete("key1")

	_, ok := c.Get("key1")
	if ok {
		t.Fatal("expected key to be deleted")
	}
}

func TestCache_Clear(t *testing.T) {
	c := cache.New[int](0)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Clear()

	if c.Len() != 0 {
		t.Fatalf("expected empty cache, got %d entries", c.Len())
	}
}

func TestCache_GetOrLoad(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	var calls int32
	load := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "loaded", nil
	}

	v, hit, err := c.GetOrLoad(context.Background(), "k", load)
	if err != nil || hit || v != "loaded" {
		t.Fatalf("first load: v=%q hit=%v err=%v", v, hit, err)
	}
	v, hit, err = c.GetOrLoad(context.Background(), "k", load)
	if err != nil || !hit || v != "loaded" {
		t.Fatalf("second load: v=%q hit=%v err=%v", v, hit, err)
	}
	if calls != 1 {
		t.Errorf("expected 1 load, got %d", calls)
	}
}

func TestCache_GetOrLoadCollapsesConcurrentCalls(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	var calls int32
	release := make(chan struct{})
	load := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "v", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := c.GetOrLoad(context.Background(), "k", load); err != nil {
				t.Error(err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected a single load, got %d", got)
	}
}

func TestCache_GetOrLoadDoesNotCacheErrors(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	boom := errors.New("boom")
	_, _, err := c.GetOrLoad(context.Background(), "k", func(ctx context.Context) (string, error) {
		return "", boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, ok := c.Get("k"); ok {
		t.Fatal("error result must not be cached")
	}
}

func TestCache_GetOrLoadSurvivesFirstCallerCancel(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	load := func(ctx context.Context) (string, error) {
		close(started)
		select {
		case <-release:
			return "v", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, _, err := c.GetOrLoad(firstCtx, "k", load)
		firstErr <- err
	}()
	<-started

	type result struct {
		v   string
		err error
	}
	second := make(chan result, 1)
	go func() {
		v, _, err := c.GetOrLoad(context.Background(), "k", load)
		second <- result{v, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected the cancelled caller to see context.Canceled, got %v", err)
	}

	close(release)
	got := <-second
	if got.err != nil || got.v != "v" {
		t.Fatalf("second caller: v=%q err=%v", got.v, got.err)
	}
	if v, ok := c.Get("k"); !ok || v != "v" {
		t.Fatal("expected the shared load to be cached")
	}
}
